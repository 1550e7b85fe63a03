package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tessera-editor/tessera/internal/fsio"
	"github.com/tessera-editor/tessera/internal/vcs"
)

var statusCmd = &cobra.Command{
	Use:   "status [root]",
	Short: "Show working-tree status for a project",
	Long: `Show the version-control status codes the editor's side panel displays,
plus the current branch. Defaults to the current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// statusGlyphs maps codes to the single-character markers the tab bar and
// file tree use.
var statusGlyphs = map[vcs.StatusCode]string{
	vcs.StatusAddedStaged:    "A",
	vcs.StatusModifiedStaged: "S",
	vcs.StatusModified:       "M",
	vcs.StatusDeleted:        "D",
	vcs.StatusUntracked:      "U",
	vcs.StatusConflicted:     "C",
}

func runStatus(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	if len(args) > 0 {
		root, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
	}

	client := vcs.NewClient(fsio.NewOS())

	if branch := client.Branch(root); branch != "" {
		fmt.Printf("On branch %s\n\n", branch)
	}

	statuses, err := client.Status(cmd.Context(), root)
	if err != nil {
		return fmt.Errorf("failed to read status: %w", err)
	}
	if len(statuses) == 0 {
		fmt.Println("Working tree clean.")
		return nil
	}

	paths := make([]string, 0, len(statuses))
	for p := range statuses {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			rel = p
		}
		fmt.Printf("  %s  %s\n", statusGlyphs[statuses[p]], rel)
	}
	return nil
}
