// Package session persists the open-tab set and active pointer per project
// root, plus a most-recently-used project list, so a relaunch restores where
// the user left off. Writes are fire-and-forget: failures are logged, never
// surfaced.
package session

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/tessera-editor/tessera/internal/errors"
	"github.com/tessera-editor/tessera/internal/logging"
)

const (
	// maxSnapshotFiles caps how many open files one snapshot records.
	maxSnapshotFiles = 20
	// maxRecentCap is the hard ceiling on the recent-project list,
	// regardless of configuration.
	maxRecentCap = 30
)

// FileRef is one open file in a snapshot.
type FileRef struct {
	Path   string `json:"path"`
	Pinned bool   `json:"pinned"`
}

// Snapshot is the restorable tab state for one project root.
type Snapshot struct {
	OpenFiles  []FileRef `json:"open_files"`
	ActiveFile string    `json:"active_file,omitempty"`
}

// RecentProject is one entry in the MRU project list, with its last session.
type RecentProject struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	LastOpened time.Time `json:"last_opened"`
	Session    *Snapshot `json:"session,omitempty"`
}

// State is the full persisted file.
type State struct {
	RecentProjects []RecentProject `json:"recent_projects"`
}

// Store reads and writes the persisted state file.
type Store struct {
	mu     sync.Mutex
	fs     afero.Fs
	path   string
	logger *logging.Logger
}

// NewStore creates a store writing to path on the given filesystem.
func NewStore(fs afero.Fs, path string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Store{
		fs:     fs,
		path:   path,
		logger: logger.WithComponent("session"),
	}
}

// Load reads the persisted state. A missing or corrupt file yields the
// default empty state; restore must never block startup.
func (s *Store) Load() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() State {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return State{}
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn("session state corrupt, starting fresh", "path", s.path, "error", err)
		return State{}
	}
	return state
}

// Snapshot returns the stored session for a project root, if any.
func (s *Store) Snapshot(root string) (Snapshot, bool) {
	state := s.Load()
	for _, p := range state.RecentProjects {
		if p.Path == root && p.Session != nil {
			return *p.Session, true
		}
	}
	return Snapshot{}, false
}

// Recent returns the MRU project list, most recent first.
func (s *Store) Recent() []RecentProject {
	state := s.Load()
	return state.RecentProjects
}

// RemoveRecent drops a project from the MRU list.
func (s *Store) RemoveRecent(root string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.loadLocked()
	kept := state.RecentProjects[:0]
	for _, p := range state.RecentProjects {
		if p.Path != root {
			kept = append(kept, p)
		}
	}
	state.RecentProjects = kept
	return s.writeLocked(state)
}

// Save records snapshot for root and moves the project to the front of the
// MRU list. The open-file list is truncated to its cap; the MRU list is
// truncated to min(maxRecent, the hard ceiling).
func (s *Store) Save(root string, snapshot Snapshot, maxRecent int) error {
	if err := validateRoot(root); err != nil {
		return err
	}

	if len(snapshot.OpenFiles) > maxSnapshotFiles {
		snapshot.OpenFiles = snapshot.OpenFiles[:maxSnapshotFiles]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.loadLocked()

	entry := RecentProject{
		Path:       root,
		Name:       filepath.Base(root),
		LastOpened: time.Now().UTC(),
		Session:    &snapshot,
	}

	// Upsert to front: drop any existing entry for root, then prepend.
	kept := make([]RecentProject, 0, len(state.RecentProjects)+1)
	kept = append(kept, entry)
	for _, p := range state.RecentProjects {
		if p.Path != root {
			kept = append(kept, p)
		}
	}

	limit := maxRecent
	if limit <= 0 || limit > maxRecentCap {
		limit = maxRecentCap
	}
	if len(kept) > limit {
		kept = kept[:limit]
	}
	state.RecentProjects = kept

	return s.writeLocked(state)
}

// validateRoot rejects relative paths and traversal segments. The state file
// is shared across projects; a bad root must not poison it.
func validateRoot(root string) error {
	if root == "" || !filepath.IsAbs(root) {
		return errors.Wrapf(errors.ErrInvalidInput, "project root must be absolute: %q", root)
	}
	for _, part := range strings.Split(root, string(filepath.Separator)) {
		if part == ".." {
			return errors.Wrapf(errors.ErrInvalidInput, "project root must not traverse: %q", root)
		}
	}
	return nil
}

// writeLocked persists state atomically: write a temp file alongside the
// target, sync, then rename over it. A crash mid-write leaves the previous
// state intact.
func (s *Store) writeLocked(state State) error {
	sort.SliceStable(state.RecentProjects, func(i, j int) bool {
		return state.RecentProjects[i].LastOpened.After(state.RecentProjects[j].LastOpened)
	})

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal session state")
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return errors.NewIOError("create state directory", dir, err)
	}

	tmp := s.path + ".tmp"
	f, err := s.fs.Create(tmp)
	if err != nil {
		return errors.NewIOError("create temp state file", tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = s.fs.Remove(tmp)
		return errors.NewIOError("write temp state file", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = s.fs.Remove(tmp)
		return errors.NewIOError("sync temp state file", tmp, err)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return errors.NewIOError("close temp state file", tmp, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return errors.NewIOError("replace state file", s.path, err)
	}
	return nil
}
