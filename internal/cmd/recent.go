package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tessera-editor/tessera/internal/config"
	"github.com/tessera-editor/tessera/internal/logging"
	"github.com/tessera-editor/tessera/internal/session"
)

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Manage the recent-project list",
	Long:  `Commands for listing and pruning the most-recently-used project list.`,
}

var recentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent projects",
	Long: `List recent projects, most recent first, with the stored session for
each: how many files were open and which one was active.`,
	RunE: runRecentList,
}

var recentRemoveCmd = &cobra.Command{
	Use:   "remove <root>",
	Short: "Remove a project from the recent list",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecentRemove,
}

func init() {
	rootCmd.AddCommand(recentCmd)
	recentCmd.AddCommand(recentListCmd)
	recentCmd.AddCommand(recentRemoveCmd)
}

// stateFile is where session state persists between runs.
func stateFile() string {
	return filepath.Join(config.DataDir(), "state.json")
}

func sessionStore() *session.Store {
	return session.NewStore(afero.NewOsFs(), stateFile(), logging.NopLogger())
}

func runRecentList(cmd *cobra.Command, args []string) error {
	recent := sessionStore().Recent()
	if len(recent) == 0 {
		fmt.Println("No recent projects.")
		return nil
	}

	fmt.Printf("Found %d recent project(s):\n\n", len(recent))
	for _, p := range recent {
		fmt.Printf("  %s\n", p.Path)
		fmt.Printf("    Name:        %s\n", p.Name)
		fmt.Printf("    Last opened: %s\n", p.LastOpened.Local().Format(time.RFC822))
		if p.Session != nil {
			fmt.Printf("    Open files:  %d\n", len(p.Session.OpenFiles))
			if p.Session.ActiveFile != "" {
				fmt.Printf("    Active:      %s\n", p.Session.ActiveFile)
			}
		}
		fmt.Println()
	}
	return nil
}

func runRecentRemove(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	if err := sessionStore().RemoveRecent(root); err != nil {
		return fmt.Errorf("failed to remove %s: %w", root, err)
	}
	fmt.Printf("Removed: %s\n", root)
	return nil
}
