package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/tessera-editor/tessera/internal/logging"
)

// Config represents the complete tessera configuration
type Config struct {
	Editor  EditorConfig  `mapstructure:"editor"`
	Watcher WatcherConfig `mapstructure:"watcher"`
	Session SessionConfig `mapstructure:"session"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// EditorConfig controls document and tab behavior
type EditorConfig struct {
	// MaxOpenTabs is the open-tab cap enforced by eviction (default: 9).
	// Pinned and dirty documents are never evicted, so the cap can be
	// exceeded when no eligible candidate remains.
	MaxOpenTabs int `mapstructure:"max_open_tabs"`
	// AutosaveEnabled arms a debounced save timer after every edit (default: true)
	AutosaveEnabled bool `mapstructure:"autosave_enabled"`
	// AutosaveDelayMs is the autosave debounce delay in milliseconds (default: 1000)
	AutosaveDelayMs int `mapstructure:"autosave_delay_ms"`
}

// WatcherConfig controls filesystem watch behavior
type WatcherConfig struct {
	// DebounceMs coalesces filesystem events from one logical write into a
	// single reconciliation pass (default: 250)
	DebounceMs int `mapstructure:"debounce_ms"`
	// IgnorePatterns are directory names excluded from watching
	IgnorePatterns []string `mapstructure:"ignore_patterns"`
}

// SessionConfig controls session snapshot persistence
type SessionConfig struct {
	// MaxRecentProjects caps the most-recently-used project list (default: 10, max: 30)
	MaxRecentProjects int `mapstructure:"max_recent_projects"`
	// PersistDebounceMs coalesces snapshot writes (default: 500)
	PersistDebounceMs int `mapstructure:"persist_debounce_ms"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether debug logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// AutosaveDelay returns the autosave debounce as a time.Duration.
func (c *EditorConfig) AutosaveDelay() time.Duration {
	return time.Duration(c.AutosaveDelayMs) * time.Millisecond
}

// Debounce returns the watch debounce as a time.Duration.
func (c *WatcherConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// PersistDebounce returns the snapshot-write debounce as a time.Duration.
func (c *SessionConfig) PersistDebounce() time.Duration {
	return time.Duration(c.PersistDebounceMs) * time.Millisecond
}

// Rotation returns the log rotation settings.
func (c *LoggingConfig) Rotation() logging.RotationConfig {
	return logging.RotationConfig{
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
	}
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Editor: EditorConfig{
			MaxOpenTabs:     9,
			AutosaveEnabled: true,
			AutosaveDelayMs: 1000,
		},
		Watcher: WatcherConfig{
			DebounceMs:     250,
			IgnorePatterns: []string{".git", "node_modules", "target", ".DS_Store"},
		},
		Session: SessionConfig{
			MaxRecentProjects: 10,
			PersistDebounceMs: 500,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Editor defaults
	viper.SetDefault("editor.max_open_tabs", defaults.Editor.MaxOpenTabs)
	viper.SetDefault("editor.autosave_enabled", defaults.Editor.AutosaveEnabled)
	viper.SetDefault("editor.autosave_delay_ms", defaults.Editor.AutosaveDelayMs)

	// Watcher defaults
	viper.SetDefault("watcher.debounce_ms", defaults.Watcher.DebounceMs)
	viper.SetDefault("watcher.ignore_patterns", defaults.Watcher.IgnorePatterns)

	// Session defaults
	viper.SetDefault("session.max_recent_projects", defaults.Session.MaxRecentProjects)
	viper.SetDefault("session.persist_debounce_ms", defaults.Session.PersistDebounceMs)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tessera")
	}
	// Fall back to ~/.config/tessera
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tessera"
	}
	return filepath.Join(home, ".config", "tessera")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DataDir returns the path to the user's data directory, where session
// state and logs live.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "tessera")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tessera"
	}
	return filepath.Join(home, ".local", "share", "tessera")
}
