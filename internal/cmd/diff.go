package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tessera-editor/tessera/internal/conflict"
	"github.com/tessera-editor/tessera/internal/fsio"
	"github.com/tessera-editor/tessera/internal/vcs"
)

var (
	diffStaged    bool
	diffUntracked bool
)

var diffCmd = &cobra.Command{
	Use:   "diff <file>",
	Short: "Show the line diff for a single file",
	Long: `Show the per-line diff the editor's gutter markers are built from, with
resolved old/new line numbers.`,
	Args: cobra.ExactArgs(1),
	RunE: runDiff,
}

var conflictsCmd = &cobra.Command{
	Use:   "conflicts <file>",
	Short: "List merge-conflict hunks in a file",
	Long: `Parse a file's conflict markers and list each hunk with its labels and
line positions, the way the merge view presents them.`,
	Args: cobra.ExactArgs(1),
	RunE: runConflicts,
}

func init() {
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(conflictsCmd)

	diffCmd.Flags().BoolVar(&diffStaged, "staged", false, "diff the index against HEAD instead of the worktree")
	diffCmd.Flags().BoolVar(&diffUntracked, "untracked", false, "treat the file as untracked (every line added)")
}

func splitRepoPath(arg string) (root, rel, abs string, err error) {
	abs, err = filepath.Abs(arg)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to resolve path: %w", err)
	}
	root, err = os.Getwd()
	if err != nil {
		return "", "", "", fmt.Errorf("failed to get current directory: %w", err)
	}
	rel, err = filepath.Rel(root, abs)
	if err != nil {
		rel = abs
	}
	return root, rel, abs, nil
}

func runDiff(cmd *cobra.Command, args []string) error {
	root, rel, _, err := splitRepoPath(args[0])
	if err != nil {
		return err
	}

	client := vcs.NewClient(fsio.NewOS())
	lines, err := client.Diff(cmd.Context(), root, rel, diffStaged, diffUntracked)
	if err != nil {
		return fmt.Errorf("failed to diff %s: %w", rel, err)
	}
	if len(lines) == 0 {
		fmt.Println("No changes.")
		return nil
	}

	for _, l := range lines {
		switch l.Kind {
		case vcs.LineAdded:
			fmt.Printf("+ %4s %4d  %s\n", "", l.NewLine, l.Text)
		case vcs.LineRemoved:
			fmt.Printf("- %4d %4s  %s\n", l.OldLine, "", l.Text)
		default:
			fmt.Printf("  %4d %4d  %s\n", l.OldLine, l.NewLine, l.Text)
		}
	}
	return nil
}

func runConflicts(cmd *cobra.Command, args []string) error {
	_, rel, abs, err := splitRepoPath(args[0])
	if err != nil {
		return err
	}

	content, err := fsio.NewOS().ReadFile(abs)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", rel, err)
	}

	hunks := conflict.Parse(content)
	if len(hunks) == 0 {
		fmt.Println("No conflicts.")
		return nil
	}

	fmt.Printf("%d conflict hunk(s) in %s:\n\n", len(hunks), rel)
	for _, h := range hunks {
		fmt.Printf("  Hunk %d (lines %d-%d)\n", h.Index+1, h.StartLine+1, h.EndLine+1)
		fmt.Printf("    ours   (%s): %d line(s)\n", h.CurrentLabel, len(h.CurrentLines))
		fmt.Printf("    theirs (%s): %d line(s)\n", h.IncomingLabel, len(h.IncomingLines))
	}
	return nil
}
