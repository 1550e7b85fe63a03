// Package editor implements the document controller: the orchestration of
// load, edit, activate, save, close, and discard for open documents,
// composing the session store, autosave scheduler, and disk reconciliation
// protocol.
//
// The controller owns the per-path cached buffer side-table. Entries are
// created and destroyed in lockstep with store entries; no other component
// holds buffer state.
package editor

import (
	"context"
	"fmt"
	"sync"

	"github.com/tessera-editor/tessera/internal/autosave"
	"github.com/tessera-editor/tessera/internal/document"
	"github.com/tessera-editor/tessera/internal/errors"
	"github.com/tessera-editor/tessera/internal/event"
	"github.com/tessera-editor/tessera/internal/fsio"
	"github.com/tessera-editor/tessera/internal/logging"
	"github.com/tessera-editor/tessera/internal/reconcile"
	"github.com/tessera-editor/tessera/internal/vcs"
)

// bufferState is the cached editing state for one path: the last content the
// widget held and the cursor offset into it. The cursor survives programmatic
// buffer replacement, clamped to the new length.
type bufferState struct {
	content string
	cursor  int
}

// Controller orchestrates document lifecycle for one project window.
type Controller struct {
	store     *document.Store
	files     *fsio.Files
	scheduler *autosave.Scheduler
	latches   *reconcile.Latches
	vcs       *vcs.Client
	bus       *event.Bus
	logger    *logging.Logger

	mu           sync.Mutex
	buffers      map[string]*bufferState
	saveInFlight map[string]bool

	subIDs []uint64
}

// NewController wires a controller over its collaborators. The latch set
// must be the same instance the reconciler consults.
func NewController(store *document.Store, files *fsio.Files, latches *reconcile.Latches, client *vcs.Client, bus *event.Bus, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.NopLogger()
	}
	c := &Controller{
		store:        store,
		files:        files,
		latches:      latches,
		vcs:          client,
		bus:          bus,
		logger:       logger.WithComponent("editor"),
		buffers:      make(map[string]*bufferState),
		saveInFlight: make(map[string]bool),
	}
	return c
}

// SetScheduler attaches the autosave scheduler. Separate from the
// constructor because the scheduler's save callback is the controller's own
// SaveFile.
func (c *Controller) SetScheduler(s *autosave.Scheduler) {
	c.scheduler = s
}

// Start subscribes to the bus events the controller reacts to.
func (c *Controller) Start() {
	c.subIDs = append(c.subIDs,
		c.bus.Subscribe(event.TypeExternalChange, func(e event.Event) {
			c.onExternalChange(e.(event.ExternalChange).Path)
		}),
		c.bus.Subscribe(event.TypeDocumentRenamed, func(e event.Event) {
			ev := e.(event.DocumentRenamed)
			c.onRenamed(ev.OldPath, ev.NewPath)
		}),
	)
}

// Stop unsubscribes and cancels pending autosaves. FlushAll first if edits
// must survive.
func (c *Controller) Stop() {
	for _, id := range c.subIDs {
		c.bus.Unsubscribe(id)
	}
	c.subIDs = nil
	if c.scheduler != nil {
		c.scheduler.Stop()
	}
}

// -----------------------------------------------------------------------------
// Load
// -----------------------------------------------------------------------------

// LoadFile opens path and makes it active. Three cases:
//
//  1. A cached buffer exists: restore it immediately for responsiveness,
//     then re-verify against disk in the background. The comparison is
//     against the last known disk content, not the live buffer, so
//     in-progress unsaved edits survive.
//  2. No cache: read the file and create a fresh buffer.
//  3. The read fails: the tab still opens, with an inline error placeholder
//     as its content.
//
// Returns the buffer content now displayed.
func (c *Controller) LoadFile(path string) string {
	c.mu.Lock()
	cached, hasCache := c.buffers[path]
	c.mu.Unlock()

	if hasCache {
		// Open on an existing entry moves the active pointer itself.
		c.store.Open(path, "", cached.content)
		go c.verifyDisk(path)
		return cached.content
	}

	content, err := c.files.ReadFile(path)
	if err != nil {
		content = loadErrorPlaceholder(path, err)
		c.logger.Warn("load failed, opening placeholder", "path", path, "error", err)
	}

	evicted := c.store.Open(path, "", content)
	for _, gone := range evicted {
		c.dropLocalState(gone)
	}
	c.mu.Lock()
	c.buffers[path] = &bufferState{content: content}
	c.mu.Unlock()
	return content
}

// loadErrorPlaceholder is displayed as buffer content when a read fails, so
// the tab opens instead of erroring out.
func loadErrorPlaceholder(path string, err error) string {
	return fmt.Sprintf("// Unable to load %s\n// %v\n", path, err)
}

// verifyDisk re-checks a restored buffer against disk. Only a disk that
// moved past the last known value forces a reload; a buffer that is merely
// dirty keeps its edits. The result is discarded if the user has navigated
// away by the time the read completes.
func (c *Controller) verifyDisk(path string) error {
	doc, ok := c.store.Get(path)
	if !ok {
		return errors.ErrDocumentNotFound
	}

	disk, err := c.files.ReadFile(path)
	if err != nil {
		// Deleted or unreadable; the next watch event or activation retries.
		c.logger.Debug("background verify read failed", "path", path, "error", err)
		return nil
	}

	// Suspension point passed: is this still the document on screen?
	if c.store.Active() != path {
		c.logger.Debug("verify result stale, discarding", "path", path)
		return errors.ErrStaleNavigation
	}

	if disk == doc.LastKnownDiskContent {
		return nil
	}
	if disk == doc.BufferContent {
		_ = c.store.UpdateLastKnownDisk(path, disk)
		return nil
	}

	if err := c.store.ReplaceFromDisk(path, disk); err != nil {
		return err
	}
	c.bus.Publish(event.ExternalChange{Path: path})
	return nil
}

// -----------------------------------------------------------------------------
// Edit / Save
// -----------------------------------------------------------------------------

// Edit records a user edit to path's buffer and re-arms its autosave timer.
func (c *Controller) Edit(path, content string, cursor int) error {
	if err := c.store.SetBuffer(path, content); err != nil {
		return err
	}
	c.mu.Lock()
	if buf, ok := c.buffers[path]; ok {
		buf.content = content
		buf.cursor = clampCursor(cursor, content)
	} else {
		c.buffers[path] = &bufferState{content: content, cursor: clampCursor(cursor, content)}
	}
	c.mu.Unlock()

	if c.scheduler != nil {
		c.scheduler.Schedule(path)
	}
	return nil
}

// SaveFile writes path's buffer to disk. At most one save per document is in
// flight; a concurrent trigger is dropped with ErrSaveInFlight, never
// queued. A clean document is a no-op, so back-to-back saves with no
// intervening edit reach the collaborator exactly once.
func (c *Controller) SaveFile(path string) error {
	doc, ok := c.store.Get(path)
	if !ok {
		return errors.ErrDocumentNotFound
	}
	if !doc.Dirty {
		return nil
	}

	c.mu.Lock()
	if c.saveInFlight[path] {
		c.mu.Unlock()
		return errors.ErrSaveInFlight
	}
	c.saveInFlight[path] = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.saveInFlight, path)
		c.mu.Unlock()
	}()

	content := doc.BufferContent

	// Arm before writing: the watcher will see our own write and the latch
	// swallows that echo.
	c.latches.Arm(path)

	if err := c.files.WriteFile(path, content); err != nil {
		// No echo will ever arrive for a failed write.
		c.latches.Reset(path)
		c.logger.Error("save failed", "path", path, "error", err)
		return errors.NewDocumentError("save failed", err).WithPath(path).WithOperation("save")
	}

	_ = c.store.MarkSaved(path, content)
	c.bus.Publish(event.DocumentSaved{Path: path})
	c.logger.Debug("saved", "path", path)
	return nil
}

// -----------------------------------------------------------------------------
// Activate / Close
// -----------------------------------------------------------------------------

// Activate switches the active document to path. The outgoing document's
// pending autosave is cancelled, with a final save forced when one was
// pending and autosave is enabled, so edits are never silently lost.
func (c *Controller) Activate(path string) error {
	outgoing := c.store.Active()
	if outgoing == path {
		return nil
	}
	if outgoing != "" && c.scheduler != nil {
		if err := c.scheduler.Flush(outgoing); err != nil && !errors.IsSkip(err) {
			c.logger.Warn("flush on switch failed", "path", outgoing, "error", err)
		}
	}

	if err := c.store.Activate(path); err != nil {
		return err
	}
	go c.verifyDisk(path)
	return nil
}

// NextTab and PrevTab navigate cyclically, flushing the outgoing document
// the same way Activate does.
func (c *Controller) NextTab() string { return c.navigate(c.store.NextTab) }

// PrevTab is NextTab in the other direction.
func (c *Controller) PrevTab() string { return c.navigate(c.store.PrevTab) }

func (c *Controller) navigate(move func() string) string {
	outgoing := c.store.Active()
	if outgoing != "" && c.scheduler != nil {
		if err := c.scheduler.Flush(outgoing); err != nil && !errors.IsSkip(err) {
			c.logger.Warn("flush on switch failed", "path", outgoing, "error", err)
		}
	}
	return move()
}

// CloseFile closes path. A dirty document is saved directly first, so the
// close never drops edits even when autosave is disabled and no timer was
// ever armed; a pinned document refuses and stays open, unsaved.
func (c *Controller) CloseFile(path string) error {
	doc, ok := c.store.Get(path)
	if !ok {
		return errors.ErrDocumentNotFound
	}
	if !doc.Pinned && doc.Dirty {
		if err := c.SaveFile(path); err != nil && !errors.IsSkip(err) {
			c.logger.Warn("save on close failed", "path", path, "error", err)
		}
	}
	if err := c.store.Close(path); err != nil {
		return err
	}
	c.dropLocalState(path)
	return nil
}

// TogglePin flips the pinned flag for path.
func (c *Controller) TogglePin(path string) (bool, error) {
	return c.store.TogglePin(path)
}

// dropLocalState destroys the buffer cache, latch, in-flight flag, and any
// pending autosave for a path leaving the open list.
func (c *Controller) dropLocalState(path string) {
	if c.scheduler != nil {
		c.scheduler.Cancel(path)
	}
	c.latches.Drop(path)
	c.mu.Lock()
	delete(c.buffers, path)
	delete(c.saveInFlight, path)
	c.mu.Unlock()
}

// -----------------------------------------------------------------------------
// Collaborator-driven operations
// -----------------------------------------------------------------------------

// Discard throws away all local changes to path via the version-control
// collaborator and force-reloads from disk. This is the one operation that
// bumps the document version; the cached buffer is fully dropped so nothing
// stale can be restored.
func (c *Controller) Discard(ctx context.Context, root, relPath, path string) error {
	if c.scheduler != nil {
		c.scheduler.Cancel(path)
	}
	if err := c.vcs.Discard(ctx, root, relPath); err != nil {
		return err
	}

	disk, err := c.files.ReadFile(path)
	if err != nil {
		return err
	}
	if err := c.store.BumpVersion(path, disk); err != nil {
		return err
	}

	c.latches.Drop(path)
	c.mu.Lock()
	// Replace, not patch: a discard invalidates the cached buffer outright.
	old := c.buffers[path]
	cursor := 0
	if old != nil {
		cursor = clampCursor(old.cursor, disk)
	}
	c.buffers[path] = &bufferState{content: disk, cursor: cursor}
	c.mu.Unlock()
	return nil
}

// onExternalChange refreshes the cached buffer after reconciliation
// overwrote the store's content, clamping the cursor to the new length.
func (c *Controller) onExternalChange(path string) {
	doc, ok := c.store.Get(path)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	buf, ok := c.buffers[path]
	if !ok {
		return
	}
	buf.content = doc.BufferContent
	buf.cursor = clampCursor(buf.cursor, doc.BufferContent)
}

// onRenamed moves path-keyed side-state to the new key. Latch state never
// survives an identity change.
func (c *Controller) onRenamed(oldPath, newPath string) {
	if c.scheduler != nil {
		c.scheduler.Cancel(oldPath)
	}
	c.latches.Drop(oldPath)

	c.mu.Lock()
	defer c.mu.Unlock()
	if buf, ok := c.buffers[oldPath]; ok {
		delete(c.buffers, oldPath)
		c.buffers[newPath] = buf
	}
	delete(c.saveInFlight, oldPath)
}

// Cursor returns the cached cursor offset for path.
func (c *Controller) Cursor(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if buf, ok := c.buffers[path]; ok {
		return buf.cursor
	}
	return 0
}

// clampCursor bounds an offset to [0, len(content)].
func clampCursor(cursor int, content string) int {
	if cursor < 0 {
		return 0
	}
	if cursor > len(content) {
		return len(content)
	}
	return cursor
}
