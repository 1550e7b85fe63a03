package vcs

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tessera-editor/tessera/internal/errors"
)

// LineKind classifies a single diff line.
type LineKind string

const (
	LineAdded   LineKind = "add"
	LineRemoved LineKind = "del"
	LineContext LineKind = "context"
)

// DiffLine is one line of a unified diff with resolved line numbers.
// OldLine and NewLine are 1-based; 0 means the line does not exist on
// that side (added lines have no old number, removed lines no new one).
type DiffLine struct {
	Kind    LineKind `json:"kind"`
	OldLine int      `json:"old_line"`
	NewLine int      `json:"new_line"`
	Text    string   `json:"text"`
}

// Diff returns the line-level diff for a single file. Staged selects the
// index-vs-HEAD diff instead of worktree-vs-index. Untracked files have no
// history to diff against, so every line comes back as added.
func (c *Client) Diff(ctx context.Context, root, relPath string, staged, untracked bool) ([]DiffLine, error) {
	if untracked {
		return c.untrackedDiff(root, relPath)
	}

	args := []string{"diff"}
	if staged {
		args = append(args, "--cached")
	}
	args = append(args, "--", relPath)

	output, err := c.executor.Run(ctx, root, "git", args...)
	if err != nil {
		return nil, errors.NewVCSError("failed to diff file", err).
			WithRoot(root).
			WithCommand("git diff").
			WithOutput(string(output))
	}
	return parseUnifiedDiff(string(output)), nil
}

// untrackedDiff synthesizes an all-added diff from the file content.
func (c *Client) untrackedDiff(root, relPath string) ([]DiffLine, error) {
	content, err := c.files.ReadFile(filepath.Join(root, relPath))
	if err != nil {
		return nil, err
	}
	lines := strings.Split(content, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	result := make([]DiffLine, 0, len(lines))
	for i, text := range lines {
		result = append(result, DiffLine{Kind: LineAdded, NewLine: i + 1, Text: text})
	}
	return result, nil
}

// parseUnifiedDiff walks a unified diff, tracking hunk headers to assign
// old/new line numbers to each body line. File headers and hunk headers are
// not emitted; only body lines are.
func parseUnifiedDiff(diff string) []DiffLine {
	var result []DiffLine
	var oldLine, newLine int
	inHunk := false

	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "@@") {
			oldStart, newStart, ok := parseHunkHeader(line)
			if !ok {
				inHunk = false
				continue
			}
			oldLine, newLine = oldStart, newStart
			inHunk = true
			continue
		}
		if !inHunk {
			continue
		}

		switch {
		case strings.HasPrefix(line, "+"):
			result = append(result, DiffLine{Kind: LineAdded, NewLine: newLine, Text: line[1:]})
			newLine++
		case strings.HasPrefix(line, "-"):
			result = append(result, DiffLine{Kind: LineRemoved, OldLine: oldLine, Text: line[1:]})
			oldLine++
		case strings.HasPrefix(line, " "):
			result = append(result, DiffLine{Kind: LineContext, OldLine: oldLine, NewLine: newLine, Text: line[1:]})
			oldLine++
			newLine++
		case line == `\ No newline at end of file`:
			// metadata, skip
		default:
			// Blank line or a new file header terminates the hunk body.
			inHunk = false
		}
	}
	return result
}

// parseHunkHeader extracts the starting old/new line numbers from a header
// of the form "@@ -12,4 +13,6 @@ optional section".
func parseHunkHeader(line string) (oldStart, newStart int, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[0] != "@@" {
		return 0, 0, false
	}
	oldStart, ok1 := parseRangeStart(fields[1], "-")
	newStart, ok2 := parseRangeStart(fields[2], "+")
	return oldStart, newStart, ok1 && ok2
}

func parseRangeStart(field, sign string) (int, bool) {
	s, found := strings.CutPrefix(field, sign)
	if !found {
		return 0, false
	}
	if comma := strings.Index(s, ","); comma >= 0 {
		s = s[:comma]
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
