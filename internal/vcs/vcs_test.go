package vcs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/tessera-editor/tessera/internal/fsio"
)

// mockExecutor records commands and returns canned output per subcommand.
type mockExecutor struct {
	calls   []string
	outputs map[string][]byte // keyed by git subcommand ("status", "add", ...)
	errs    map[string]error
}

func (m *mockExecutor) Run(_ context.Context, dir, name string, args ...string) ([]byte, error) {
	m.calls = append(m.calls, name+" "+strings.Join(args, " "))
	if len(args) == 0 {
		return nil, nil
	}
	sub := args[0]
	return m.outputs[sub], m.errs[sub]
}

func newTestClient(outputs map[string][]byte) (*Client, *mockExecutor) {
	exec := &mockExecutor{outputs: outputs}
	return NewClientWithExecutor(fsio.New(afero.NewMemMapFs()), exec), exec
}

func TestStatus_PorcelainMapping(t *testing.T) {
	porcelain := strings.Join([]string{
		"?? new.txt",
		"A  staged.txt",
		"M  staged_mod.txt",
		" M worktree_mod.txt",
		"MM both_mod.txt",
		" D gone.txt",
		"UU merge.txt",
		"AA added_both.txt",
		"R  old.txt -> renamed.txt",
	}, "\n") + "\n"

	client, _ := newTestClient(map[string][]byte{"status": []byte(porcelain)})

	got, err := client.Status(context.Background(), "/repo")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}

	want := map[string]StatusCode{
		"/repo/new.txt":          StatusUntracked,
		"/repo/staged.txt":       StatusAddedStaged,
		"/repo/staged_mod.txt":   StatusModifiedStaged,
		"/repo/worktree_mod.txt": StatusModified,
		"/repo/both_mod.txt":     StatusModified,
		"/repo/gone.txt":         StatusDeleted,
		"/repo/merge.txt":        StatusConflicted,
		"/repo/added_both.txt":   StatusConflicted,
		"/repo/renamed.txt":      StatusAddedStaged,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d: %v", len(got), len(want), got)
	}
	for path, code := range want {
		if got[path] != code {
			t.Errorf("status[%s] = %q, want %q", path, got[path], code)
		}
	}
}

func TestStatus_NotARepo(t *testing.T) {
	exec := &mockExecutor{errs: map[string]error{"status": os.ErrPermission}}
	client := NewClientWithExecutor(fsio.New(afero.NewMemMapFs()), exec)

	got, err := client.Status(context.Background(), "/not-a-repo")
	if err != nil {
		t.Fatalf("Status should swallow repo errors, got %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty status, got %v", got)
	}
}

func TestDiff_ParsesUnified(t *testing.T) {
	diff := `diff --git a/main.go b/main.go
index 1234567..89abcde 100644
--- a/main.go
+++ b/main.go
@@ -1,3 +1,3 @@
 package main
-func old() {}
+func new() {}
`
	client, _ := newTestClient(map[string][]byte{"diff": []byte(diff)})

	lines, err := client.Diff(context.Background(), "/repo", "main.go", false, false)
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}

	want := []DiffLine{
		{Kind: LineContext, OldLine: 1, NewLine: 1, Text: "package main"},
		{Kind: LineRemoved, OldLine: 2, Text: "func old() {}"},
		{Kind: LineAdded, NewLine: 2, Text: "func new() {}"},
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %v", len(lines), len(want), lines)
	}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("line %d = %+v, want %+v", i, lines[i], w)
		}
	}
}

func TestDiff_MultipleHunks(t *testing.T) {
	diff := `--- a/f
+++ b/f
@@ -1,2 +1,2 @@
 one
-two
+TWO
@@ -10,2 +10,3 @@
 ten
+ten-and-a-half
 eleven
`
	client, _ := newTestClient(map[string][]byte{"diff": []byte(diff)})

	lines, err := client.Diff(context.Background(), "/repo", "f", false, false)
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if len(lines) != 6 {
		t.Fatalf("got %d lines, want 6: %+v", len(lines), lines)
	}
	// Second hunk resumes numbering at its header, not where the first ended.
	if lines[3].OldLine != 10 || lines[3].NewLine != 10 {
		t.Errorf("second hunk context = %+v, want old=10 new=10", lines[3])
	}
	if lines[4].Kind != LineAdded || lines[4].NewLine != 11 {
		t.Errorf("inserted line = %+v, want added at new=11", lines[4])
	}
}

func TestDiff_StagedUsesCached(t *testing.T) {
	client, exec := newTestClient(map[string][]byte{"diff": nil})

	if _, err := client.Diff(context.Background(), "/repo", "f", true, false); err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if len(exec.calls) != 1 || !strings.Contains(exec.calls[0], "--cached") {
		t.Errorf("staged diff did not use --cached: %v", exec.calls)
	}
}

func TestDiff_UntrackedAllAdded(t *testing.T) {
	files := fsio.New(afero.NewMemMapFs())
	_ = files.WriteFile("/repo/fresh.txt", "alpha\nbeta\n")
	client := NewClientWithExecutor(files, &mockExecutor{})

	lines, err := client.Diff(context.Background(), "/repo", "fresh.txt", false, true)
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	want := []DiffLine{
		{Kind: LineAdded, NewLine: 1, Text: "alpha"},
		{Kind: LineAdded, NewLine: 2, Text: "beta"},
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d", len(lines), len(want))
	}
	for i, w := range want {
		if lines[i] != w {
			t.Errorf("line %d = %+v, want %+v", i, lines[i], w)
		}
	}
}

func TestResolveConflict_WritesAndStages(t *testing.T) {
	files := fsio.New(afero.NewMemMapFs())
	exec := &mockExecutor{outputs: map[string][]byte{}}
	client := NewClientWithExecutor(files, exec)

	err := client.ResolveConflict(context.Background(), "/repo", "merge.txt", "resolved\n", true)
	if err != nil {
		t.Fatalf("ResolveConflict failed: %v", err)
	}

	content, err := files.ReadFile("/repo/merge.txt")
	if err != nil || content != "resolved\n" {
		t.Errorf("written content = %q, %v; want %q", content, err, "resolved\n")
	}
	if len(exec.calls) != 1 || !strings.Contains(exec.calls[0], "add -- merge.txt") {
		t.Errorf("expected a stage call, got %v", exec.calls)
	}
}

func TestResolveConflict_NoStage(t *testing.T) {
	files := fsio.New(afero.NewMemMapFs())
	exec := &mockExecutor{}
	client := NewClientWithExecutor(files, exec)

	if err := client.ResolveConflict(context.Background(), "/repo", "m.txt", "x", false); err != nil {
		t.Fatalf("ResolveConflict failed: %v", err)
	}
	if len(exec.calls) != 0 {
		t.Errorf("expected no git calls, got %v", exec.calls)
	}
}

func TestBranch(t *testing.T) {
	root := t.TempDir()
	gitDir := filepath.Join(root, ".git")
	if err := os.Mkdir(gitDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte("ref: refs/heads/feature/sync\n"), 0644); err != nil {
		t.Fatal(err)
	}

	client, _ := newTestClient(nil)
	if got := client.Branch(root); got != "feature/sync" {
		t.Errorf("Branch = %q, want %q", got, "feature/sync")
	}

	// Subdirectories resolve by walking up to the repo root.
	sub := filepath.Join(root, "pkg", "inner")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if got := client.Branch(sub); got != "feature/sync" {
		t.Errorf("Branch from subdir = %q, want %q", got, "feature/sync")
	}
}

func TestBranch_DetachedHead(t *testing.T) {
	root := t.TempDir()
	gitDir := filepath.Join(root, ".git")
	_ = os.Mkdir(gitDir, 0755)
	_ = os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte("0123456789abcdef0123456789abcdef01234567\n"), 0644)

	client, _ := newTestClient(nil)
	if got := client.Branch(root); got != "0123456" {
		t.Errorf("Branch = %q, want short hash %q", got, "0123456")
	}
}

func TestBranch_NotARepo(t *testing.T) {
	client, _ := newTestClient(nil)
	if got := client.Branch(t.TempDir()); got != "" {
		t.Errorf("Branch = %q, want empty", got)
	}
}
