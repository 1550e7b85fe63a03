// Package errors provides centralized error definitions and error handling
// utilities for the tessera codebase. It defines domain-specific errors,
// sentinel errors for intentional no-ops, error constructors with context
// wrapping, and classification helpers.
//
// Two of the sentinels deserve a note: ErrSaveInFlight and ErrStaleNavigation
// mark *intentional* skips, not failures. A save triggered while another save
// for the same document is outstanding is dropped, and a background disk check
// whose document the user has navigated away from is discarded. Callers that
// receive them should log at debug level and move on.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Document-related sentinel errors
var (
	// ErrDocumentNotFound indicates that a path is not in the open-document list.
	ErrDocumentNotFound = New("document not open")
	// ErrDocumentPinned indicates that an operation was refused because the
	// document is pinned. Unpinning is required first.
	ErrDocumentPinned = New("document is pinned")
	// ErrSaveInFlight indicates that a save for the document is already
	// outstanding. The triggering save is dropped, never queued.
	ErrSaveInFlight = New("save already in flight")
	// ErrStaleNavigation indicates that the result of a background operation
	// was discarded because the user navigated away from the document.
	ErrStaleNavigation = New("document no longer active")
)

// Conflict-related sentinel errors
var (
	// ErrResolutionIncomplete indicates that a conflict session was asked to
	// finish before every hunk had a resolution.
	ErrResolutionIncomplete = New("not all conflicts resolved")
	// ErrNoConflicts indicates that a conflict operation was attempted with no
	// parsed hunks present.
	ErrNoConflicts = New("no conflicts present")
)

// General sentinel errors
var (
	// ErrNotFound indicates that a file or resource does not exist.
	ErrNotFound = New("not found")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Intentional-Skip Classification
// -----------------------------------------------------------------------------

// IsSkip reports whether err marks an intentional no-op rather than a failure.
// Covers the in-flight save guard and stale-navigation discards.
func IsSkip(err error) bool {
	return Is(err, ErrSaveInFlight) || Is(err, ErrStaleNavigation)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// DocumentError represents errors related to a single open document.
//
// Example:
//
//	err := errors.NewDocumentError("save failed", cause).WithPath("/p/main.go")
type DocumentError struct {
	Path      string
	Operation string
	message   string
	cause     error
}

// NewDocumentError creates a new DocumentError.
func NewDocumentError(message string, cause error) *DocumentError {
	return &DocumentError{message: message, cause: cause}
}

// WithPath adds the document path to the error context.
func (e *DocumentError) WithPath(path string) *DocumentError {
	e.Path = path
	return e
}

// WithOperation adds the failing operation name to the error context.
func (e *DocumentError) WithOperation(op string) *DocumentError {
	e.Operation = op
	return e
}

// Error returns the formatted error message.
func (e *DocumentError) Error() string {
	var parts []string
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Operation))
	}

	prefix := "document error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("document error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Unwrap returns the underlying error.
func (e *DocumentError) Unwrap() error { return e.cause }

// Is checks if this error matches the target.
func (e *DocumentError) Is(target error) bool {
	if _, ok := target.(*DocumentError); ok {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// VCSError represents errors from version-control collaborator commands.
type VCSError struct {
	Root    string
	Command string
	Output  string // captured command output
	message string
	cause   error
}

// NewVCSError creates a new VCSError.
func NewVCSError(message string, cause error) *VCSError {
	return &VCSError{message: message, cause: cause}
}

// WithRoot adds the repository root to the error context.
func (e *VCSError) WithRoot(root string) *VCSError {
	e.Root = root
	return e
}

// WithCommand adds the failing command to the error context.
func (e *VCSError) WithCommand(cmd string) *VCSError {
	e.Command = cmd
	return e
}

// WithOutput adds captured command output to the error context.
func (e *VCSError) WithOutput(out string) *VCSError {
	e.Output = strings.TrimSpace(out)
	return e
}

// Error returns the formatted error message.
func (e *VCSError) Error() string {
	var parts []string
	if e.Root != "" {
		parts = append(parts, fmt.Sprintf("root=%s", e.Root))
	}
	if e.Command != "" {
		parts = append(parts, fmt.Sprintf("cmd=%s", e.Command))
	}

	prefix := "vcs error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("vcs error [%s]", strings.Join(parts, ", "))
	}

	msg := e.message
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	if e.Output != "" {
		msg = fmt.Sprintf("%s\noutput: %s", msg, e.Output)
	}
	return fmt.Sprintf("%s: %s", prefix, msg)
}

// Unwrap returns the underlying error.
func (e *VCSError) Unwrap() error { return e.cause }

// Is checks if this error matches the target.
func (e *VCSError) Is(target error) bool {
	if _, ok := target.(*VCSError); ok {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// IOError represents a transient read/write/watch failure. Background
// reconciliation swallows these (the file may have been deleted; the next
// watch event or tab activation retries); foreground saves surface them.
type IOError struct {
	Path    string
	message string
	cause   error
}

// NewIOError creates a new IOError for the given path.
func NewIOError(message, path string, cause error) *IOError {
	return &IOError{message: message, Path: path, cause: cause}
}

// Error returns the formatted error message.
func (e *IOError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("io error [path=%s]: %s: %v", e.Path, e.message, e.cause)
	}
	return fmt.Sprintf("io error [path=%s]: %s", e.Path, e.message)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error { return e.cause }

// Is checks if this error matches the target.
func (e *IOError) Is(target error) bool {
	if _, ok := target.(*IOError); ok {
		return true
	}
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// IsTransientIO reports whether err is (or wraps) a transient I/O failure.
func IsTransientIO(err error) bool {
	var ioErr *IOError
	return As(err, &ioErr)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
