package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tessera-editor/tessera/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "tessera",
	Short: "Document-session engine for the Tessera editor",
	Long: `Tessera keeps an open file's in-memory buffer consistent with on-disk
content across user edits, external filesystem changes, and version-control
operations, while managing tab lifecycle, autosave, and session restore.

The editor shell embeds this engine; the CLI exposes its session state and
working-tree inspection for scripting and debugging.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/tessera/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/tessera")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("TESSERA")
	// Replace dots with underscores for nested keys in env vars
	// e.g., TESSERA_EDITOR_MAX_OPEN_TABS for editor.max_open_tabs
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
