// Package document implements the open-document registry and tab lifecycle:
// open/close/pin, the eviction policy that enforces the open-tab cap, cyclic
// tab navigation, bulk close on project switch, and rename propagation.
//
// The store is pure bookkeeping. It never touches disk; the controller in
// internal/editor feeds it content and reacts to the events it publishes.
package document

import (
	"path/filepath"
	"sync"

	"github.com/tessera-editor/tessera/internal/errors"
	"github.com/tessera-editor/tessera/internal/event"
	"github.com/tessera-editor/tessera/internal/logging"
)

// DefaultMaxOpenTabs is the open-tab cap used when none is configured.
const DefaultMaxOpenTabs = 9

// OpenDocument is one entry in the open list. Path is the unique key.
//
// Dirty is derived, never set directly: it holds exactly when BufferContent
// differs from LastKnownDiskContent. Version increases only on forced reloads
// (e.g. a discard from the version-control panel), never on ordinary saves or
// watcher-driven reconciliation.
type OpenDocument struct {
	Path                 string
	DisplayName          string
	BufferContent        string
	Dirty                bool
	Pinned               bool
	Version              int
	LastKnownDiskContent string
}

// Store holds the ordered open-document list and the active pointer.
// Documents keep insertion order; eviction and "most recently remaining"
// decisions are defined over that order.
//
// Events are published after the mutex is released. Handlers on the
// synchronous bus may therefore call back into the store safely.
type Store struct {
	mu     sync.Mutex
	docs   []*OpenDocument
	byPath map[string]*OpenDocument
	active string

	maxOpen int
	bus     *event.Bus
	logger  *logging.Logger
}

// NewStore creates a store with the given tab cap. A non-positive cap falls
// back to DefaultMaxOpenTabs.
func NewStore(maxOpen int, bus *event.Bus, logger *logging.Logger) *Store {
	if maxOpen <= 0 {
		maxOpen = DefaultMaxOpenTabs
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Store{
		byPath:  make(map[string]*OpenDocument),
		maxOpen: maxOpen,
		bus:     bus,
		logger:  logger.WithComponent("document"),
	}
}

// Open adds path to the open list and makes it active. Opening an already
// open path only moves the active pointer. A fresh document starts clean with
// both buffer and last-known-disk content set to content. Returns the paths
// evicted to stay under the tab cap.
func (s *Store) Open(path, name, content string) []string {
	var pending []event.Event
	defer s.flush(&pending)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byPath[path]; ok {
		s.setActiveLocked(path, &pending)
		return nil
	}

	if name == "" {
		name = filepath.Base(path)
	}
	doc := &OpenDocument{
		Path:                 path,
		DisplayName:          name,
		BufferContent:        content,
		LastKnownDiskContent: content,
	}
	s.docs = append(s.docs, doc)
	s.byPath[path] = doc
	pending = append(pending, event.DocumentOpened{Path: path})
	s.setActiveLocked(path, &pending)

	return s.evictLocked(path, &pending)
}

// evictLocked removes documents until the list fits the cap. Candidates are
// taken in insertion order and must be unpinned, clean, and not the document
// just opened. Pinned and dirty documents are never dropped, even if that
// leaves the cap exceeded.
func (s *Store) evictLocked(justOpened string, pending *[]event.Event) []string {
	var evicted []string
	for len(s.docs) > s.maxOpen {
		victim := -1
		for i, doc := range s.docs {
			if doc.Pinned || doc.Dirty || doc.Path == justOpened {
				continue
			}
			victim = i
			break
		}
		if victim < 0 {
			s.logger.Warn("tab cap exceeded with no eligible eviction candidate",
				"open", len(s.docs), "cap", s.maxOpen)
			return evicted
		}
		path := s.docs[victim].Path
		s.removeLocked(victim)
		evicted = append(evicted, path)
		*pending = append(*pending, event.DocumentClosed{Path: path, Evicted: true})
		s.logger.Debug("evicted document", "path", path)
	}
	return evicted
}

// Close removes path from the open list. Pinned documents refuse to close;
// unpin first. If the closed document was active, the active pointer moves to
// the most recently opened remaining document, or clears when none is left.
func (s *Store) Close(path string) error {
	var pending []event.Event
	defer s.flush(&pending)

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.byPath[path]
	if !ok {
		return errors.ErrDocumentNotFound
	}
	if doc.Pinned {
		return errors.ErrDocumentPinned
	}

	for i, d := range s.docs {
		if d.Path == path {
			s.removeLocked(i)
			break
		}
	}
	pending = append(pending, event.DocumentClosed{Path: path})

	if s.active == path {
		next := ""
		if n := len(s.docs); n > 0 {
			next = s.docs[n-1].Path
		}
		s.setActiveLocked(next, &pending)
	}
	return nil
}

// CloseAllUnpinned closes every unpinned document. Used on project switch,
// where pinned tabs survive. Returns the closed paths. The active pointer is
// re-anchored to the last remaining document, or cleared.
func (s *Store) CloseAllUnpinned() []string {
	var pending []event.Event
	defer s.flush(&pending)

	s.mu.Lock()
	defer s.mu.Unlock()

	var closed []string
	kept := s.docs[:0]
	for _, doc := range s.docs {
		if doc.Pinned {
			kept = append(kept, doc)
			continue
		}
		delete(s.byPath, doc.Path)
		closed = append(closed, doc.Path)
		pending = append(pending, event.DocumentClosed{Path: doc.Path})
	}
	s.docs = kept

	if _, stillOpen := s.byPath[s.active]; !stillOpen {
		next := ""
		if n := len(s.docs); n > 0 {
			next = s.docs[n-1].Path
		}
		s.setActiveLocked(next, &pending)
	}
	return closed
}

// TogglePin flips the pinned flag and returns the new value.
func (s *Store) TogglePin(path string) (bool, error) {
	var pending []event.Event
	defer s.flush(&pending)

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.byPath[path]
	if !ok {
		return false, errors.ErrDocumentNotFound
	}
	doc.Pinned = !doc.Pinned
	pending = append(pending, event.DocumentPinned{Path: path, Pinned: doc.Pinned})
	return doc.Pinned, nil
}

// Activate moves the active pointer to path.
func (s *Store) Activate(path string) error {
	var pending []event.Event
	defer s.flush(&pending)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byPath[path]; !ok {
		return errors.ErrDocumentNotFound
	}
	s.setActiveLocked(path, &pending)
	return nil
}

// setActiveLocked updates the pointer and queues an event when it moved.
func (s *Store) setActiveLocked(path string, pending *[]event.Event) {
	if s.active == path {
		return
	}
	s.active = path
	*pending = append(*pending, event.DocumentActivated{Path: path})
}

// NextTab advances the active pointer cyclically: pinned documents first in
// insertion order, then unpinned, wrapping at both ends. Returns the newly
// active path, or "" when the list is empty.
func (s *Store) NextTab() string { return s.navigate(1) }

// PrevTab is NextTab in the other direction.
func (s *Store) PrevTab() string { return s.navigate(-1) }

func (s *Store) navigate(step int) string {
	var pending []event.Event
	defer s.flush(&pending)

	s.mu.Lock()
	defer s.mu.Unlock()

	order := s.navOrderLocked()
	if len(order) == 0 {
		return ""
	}

	current := -1
	for i, path := range order {
		if path == s.active {
			current = i
			break
		}
	}
	// Active pointer not in the list (or unset): enter the order from the
	// matching end, first tab going forward, last going backward.
	next := 0
	if current >= 0 {
		next = (current + step + len(order)) % len(order)
	} else if step < 0 {
		next = len(order) - 1
	}
	s.setActiveLocked(order[next], &pending)
	return order[next]
}

// navOrderLocked returns the tab-bar order: pinned first, then unpinned,
// each group in insertion order.
func (s *Store) navOrderLocked() []string {
	order := make([]string, 0, len(s.docs))
	for _, doc := range s.docs {
		if doc.Pinned {
			order = append(order, doc.Path)
		}
	}
	for _, doc := range s.docs {
		if !doc.Pinned {
			order = append(order, doc.Path)
		}
	}
	return order
}

// Rename updates a document's path and display name in place after an
// external collaborator moved the file. Index structures keyed by the old
// path follow, as does the active pointer.
func (s *Store) Rename(oldPath, newPath string) error {
	var pending []event.Event
	defer s.flush(&pending)

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.byPath[oldPath]
	if !ok {
		return errors.ErrDocumentNotFound
	}
	if _, taken := s.byPath[newPath]; taken && newPath != oldPath {
		return errors.Wrap(errors.ErrInvalidInput, "rename target already open")
	}

	delete(s.byPath, oldPath)
	doc.Path = newPath
	doc.DisplayName = filepath.Base(newPath)
	s.byPath[newPath] = doc

	if s.active == oldPath {
		s.active = newPath
	}
	pending = append(pending, event.DocumentRenamed{OldPath: oldPath, NewPath: newPath})
	return nil
}

// -----------------------------------------------------------------------------
// Content accessors
// -----------------------------------------------------------------------------

// SetBuffer replaces the live buffer for path with a user edit. Dirty is
// recomputed against the last-known-disk value.
func (s *Store) SetBuffer(path, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.byPath[path]
	if !ok {
		return errors.ErrDocumentNotFound
	}
	doc.BufferContent = content
	doc.Dirty = content != doc.LastKnownDiskContent
	return nil
}

// MarkSaved records content as the new last-known-disk value after a
// successful save and clears dirty.
func (s *Store) MarkSaved(path, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.byPath[path]
	if !ok {
		return errors.ErrDocumentNotFound
	}
	doc.LastKnownDiskContent = content
	doc.Dirty = doc.BufferContent != content
	return nil
}

// ReplaceFromDisk overwrites both buffer and last-known-disk value with disk
// content during reconciliation. Dirty clears; version does not move.
func (s *Store) ReplaceFromDisk(path, diskContent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.byPath[path]
	if !ok {
		return errors.ErrDocumentNotFound
	}
	doc.BufferContent = diskContent
	doc.LastKnownDiskContent = diskContent
	doc.Dirty = false
	return nil
}

// UpdateLastKnownDisk silently records diskContent as the last-known-disk
// value without touching the buffer. Used when disk caught up to the buffer
// on its own (e.g. an identical outside write).
func (s *Store) UpdateLastKnownDisk(path, diskContent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.byPath[path]
	if !ok {
		return errors.ErrDocumentNotFound
	}
	doc.LastKnownDiskContent = diskContent
	doc.Dirty = doc.BufferContent != diskContent
	return nil
}

// BumpVersion marks a forced reload (discard and similar collaborator-driven
// operations). The buffer and last-known-disk value take the new content.
func (s *Store) BumpVersion(path, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.byPath[path]
	if !ok {
		return errors.ErrDocumentNotFound
	}
	doc.Version++
	doc.BufferContent = content
	doc.LastKnownDiskContent = content
	doc.Dirty = false
	return nil
}

// -----------------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------------

// Get returns a copy of the document for path.
func (s *Store) Get(path string) (OpenDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.byPath[path]
	if !ok {
		return OpenDocument{}, false
	}
	return *doc, true
}

// List returns copies of all open documents in insertion order.
func (s *Store) List() []OpenDocument {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]OpenDocument, len(s.docs))
	for i, doc := range s.docs {
		out[i] = *doc
	}
	return out
}

// Active returns the active path, or "" when nothing is active.
func (s *Store) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Len returns the number of open documents.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

func (s *Store) removeLocked(i int) {
	delete(s.byPath, s.docs[i].Path)
	s.docs = append(s.docs[:i], s.docs[i+1:]...)
}

// flush publishes queued events once the mutex is no longer held. Registered
// before the unlock defer, so LIFO ordering runs it after the unlock.
func (s *Store) flush(pending *[]event.Event) {
	if s.bus == nil {
		return
	}
	for _, e := range *pending {
		s.bus.Publish(e)
	}
}
