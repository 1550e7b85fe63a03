// Package vcs implements the version-control collaborator consumed by the
// editor core: working-tree status, per-file diffs parsed into line records,
// conflict-resolution writes, and branch lookup. All raw plumbing goes
// through the git CLI behind a CommandExecutor so tests can run without a
// repository.
package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tessera-editor/tessera/internal/errors"
	"github.com/tessera-editor/tessera/internal/fsio"
)

// StatusCode classifies a changed path in the working tree.
type StatusCode string

const (
	StatusAddedStaged    StatusCode = "added_staged"
	StatusModifiedStaged StatusCode = "modified_staged"
	StatusModified       StatusCode = "modified"
	StatusDeleted        StatusCode = "deleted"
	StatusUntracked      StatusCode = "untracked"
	StatusConflicted     StatusCode = "conflicted"
)

// -----------------------------------------------------------------------------
// Command Executor
// -----------------------------------------------------------------------------

// CommandExecutor abstracts command execution for testability.
// This allows tests to mock git commands without executing them.
type CommandExecutor interface {
	// Run executes a command in dir and returns combined output.
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// CLICommandExecutor executes commands using os/exec.
type CLICommandExecutor struct{}

// NewCLICommandExecutor creates a new CLI command executor.
func NewCLICommandExecutor() *CLICommandExecutor {
	return &CLICommandExecutor{}
}

// Run executes a command and returns combined output.
func (e *CLICommandExecutor) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

// Client wraps git operations for a collaborator-facing API.
type Client struct {
	executor CommandExecutor
	files    *fsio.Files
}

// NewClient creates a Client using the git CLI and the given filesystem
// collaborator for conflict-resolution writes.
func NewClient(files *fsio.Files) *Client {
	return &Client{executor: NewCLICommandExecutor(), files: files}
}

// NewClientWithExecutor creates a Client with a custom executor.
// This is primarily useful for testing.
func NewClientWithExecutor(files *fsio.Files, executor CommandExecutor) *Client {
	return &Client{executor: executor, files: files}
}

// Status returns a map of absolute path -> status code for every changed
// file under root. A non-repository root yields an empty map, not an error.
func (c *Client) Status(ctx context.Context, root string) (map[string]StatusCode, error) {
	output, err := c.executor.Run(ctx, root, "git", "status", "--porcelain", "-uall")
	if err != nil {
		// Not a git repo or git unavailable. The shell treats that as
		// "no VCS overlay", the same way the backend did.
		return map[string]StatusCode{}, nil
	}

	result := make(map[string]StatusCode)
	for _, line := range strings.Split(string(output), "\n") {
		if len(line) < 4 {
			continue
		}
		index := line[0]
		worktree := line[1]
		filePath := line[3:]

		// Renames come through as "R  old -> new"; track the new path.
		if arrow := strings.Index(filePath, " -> "); arrow >= 0 {
			filePath = filePath[arrow+4:]
		}

		code, ok := classifyPorcelain(index, worktree)
		if !ok {
			continue
		}
		result[filepath.Join(root, filePath)] = code
	}
	return result, nil
}

// classifyPorcelain maps a porcelain XY status pair to a StatusCode.
// Conflicted states take priority; otherwise staged-only changes are
// distinguished from worktree modifications.
func classifyPorcelain(index, worktree byte) (StatusCode, bool) {
	switch {
	case index == 'U' || worktree == 'U', index == 'A' && worktree == 'A', index == 'D' && worktree == 'D':
		return StatusConflicted, true
	case index == '?' && worktree == '?':
		return StatusUntracked, true
	case index == 'A', index == 'R':
		return StatusAddedStaged, true
	case index == 'D' || worktree == 'D':
		return StatusDeleted, true
	case index == 'M' && (worktree == ' ' || worktree == 0):
		return StatusModifiedStaged, true
	case worktree == 'M':
		return StatusModified, true
	case index == 'M':
		return StatusModified, true
	}
	return "", false
}

// Stage stages a single file.
func (c *Client) Stage(ctx context.Context, root, relPath string) error {
	output, err := c.executor.Run(ctx, root, "git", "add", "--", relPath)
	if err != nil {
		return errors.NewVCSError("failed to stage file", err).
			WithRoot(root).
			WithCommand("git add").
			WithOutput(string(output))
	}
	return nil
}

// ResolveConflict writes resolved content for a conflicted file and, when
// stage is true, stages it so the merge can proceed.
func (c *Client) ResolveConflict(ctx context.Context, root, relPath, content string, stage bool) error {
	absPath := filepath.Join(root, relPath)
	if err := c.files.WriteFile(absPath, content); err != nil {
		return errors.NewVCSError("failed to write resolved content", err).WithRoot(root)
	}
	if stage {
		return c.Stage(ctx, root, relPath)
	}
	return nil
}

// Discard restores a file to its committed content, throwing away both
// staged and unstaged changes.
func (c *Client) Discard(ctx context.Context, root, relPath string) error {
	output, err := c.executor.Run(ctx, root, "git", "checkout", "HEAD", "--", relPath)
	if err != nil {
		return errors.NewVCSError("failed to discard changes", err).
			WithRoot(root).
			WithCommand("git checkout").
			WithOutput(string(output))
	}
	return nil
}

// Branch returns the current branch name for root, walking up to the
// enclosing .git directory. Detached HEAD reports a short hash. Returns ""
// when root is not inside a repository.
func (c *Client) Branch(root string) string {
	dir := root
	for {
		head := filepath.Join(dir, ".git", "HEAD")
		if content, err := os.ReadFile(head); err == nil {
			ref := strings.TrimSpace(string(content))
			if branch, ok := strings.CutPrefix(ref, "ref: refs/heads/"); ok {
				return branch
			}
			if len(ref) > 7 {
				ref = ref[:7]
			}
			return ref
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
