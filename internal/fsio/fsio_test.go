package fsio

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/tessera-editor/tessera/internal/errors"
)

func TestReadFile_Missing(t *testing.T) {
	files := New(afero.NewMemMapFs())

	_, err := files.ReadFile("/proj/missing.go")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if !errors.IsTransientIO(err) {
		t.Errorf("expected transient IO classification, got %v", err)
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	files := New(afero.NewMemMapFs())

	if err := files.WriteFile("/proj/a.go", "package a\n"); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, err := files.ReadFile("/proj/a.go")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if got != "package a\n" {
		t.Errorf("content = %q, want %q", got, "package a\n")
	}
}

func TestExists(t *testing.T) {
	files := New(afero.NewMemMapFs())
	_ = files.WriteFile("/proj/a.go", "x")

	ok, err := files.Exists("/proj/a.go")
	if err != nil || !ok {
		t.Errorf("Exists(/proj/a.go) = %v, %v; want true, nil", ok, err)
	}
	ok, err = files.Exists("/proj/b.go")
	if err != nil || ok {
		t.Errorf("Exists(/proj/b.go) = %v, %v; want false, nil", ok, err)
	}
}

func TestRename(t *testing.T) {
	files := New(afero.NewMemMapFs())
	_ = files.WriteFile("/proj/old.go", "content")

	if err := files.Rename("/proj/old.go", "/proj/new.go"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}

	if _, err := files.ReadFile("/proj/old.go"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("old path still readable after rename: %v", err)
	}
	got, err := files.ReadFile("/proj/new.go")
	if err != nil || got != "content" {
		t.Errorf("new path content = %q, %v; want %q, nil", got, err, "content")
	}
}
