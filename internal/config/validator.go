package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tessera-editor/tessera/internal/logging"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "editor.max_open_tabs")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// MaxRecentProjectsCap is the hard upper bound on the recent-project list.
const MaxRecentProjectsCap = 30

// Validate checks the Config for invalid values and returns all validation
// errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Editor.MaxOpenTabs < 1 {
		errors = append(errors, ValidationError{
			Field:   "editor.max_open_tabs",
			Value:   c.Editor.MaxOpenTabs,
			Message: "must be at least 1",
		})
	}
	if c.Editor.AutosaveDelayMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "editor.autosave_delay_ms",
			Value:   c.Editor.AutosaveDelayMs,
			Message: "must not be negative",
		})
	}

	if c.Watcher.DebounceMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "watcher.debounce_ms",
			Value:   c.Watcher.DebounceMs,
			Message: "must not be negative",
		})
	}

	if c.Session.MaxRecentProjects < 1 || c.Session.MaxRecentProjects > MaxRecentProjectsCap {
		errors = append(errors, ValidationError{
			Field:   "session.max_recent_projects",
			Value:   c.Session.MaxRecentProjects,
			Message: fmt.Sprintf("must be between 1 and %d", MaxRecentProjectsCap),
		})
	}
	if c.Session.PersistDebounceMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "session.persist_debounce_ms",
			Value:   c.Session.PersistDebounceMs,
			Message: "must not be negative",
		})
	}

	if !slices.Contains(validLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validLogLevels(), ", ")),
		})
	}
	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must not be negative",
		})
	}
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must not be negative",
		})
	}

	return errors
}

// validLogLevels returns the accepted logging.level values, lowercased.
func validLogLevels() []string {
	levels := logging.ValidLevels()
	out := make([]string, len(levels))
	for i, l := range levels {
		out[i] = strings.ToLower(l)
	}
	return out
}
