package editor

import (
	"github.com/spf13/afero"

	"github.com/tessera-editor/tessera/internal/autosave"
	"github.com/tessera-editor/tessera/internal/config"
	"github.com/tessera-editor/tessera/internal/document"
	"github.com/tessera-editor/tessera/internal/errors"
	"github.com/tessera-editor/tessera/internal/event"
	"github.com/tessera-editor/tessera/internal/fsio"
	"github.com/tessera-editor/tessera/internal/logging"
	"github.com/tessera-editor/tessera/internal/reconcile"
	"github.com/tessera-editor/tessera/internal/session"
	"github.com/tessera-editor/tessera/internal/vcs"
	"github.com/tessera-editor/tessera/internal/watch"
)

// Workspace composes the whole engine for one project window: store,
// controller, scheduler, reconciler, watcher, persistence, and the
// version-control client, wired over a shared bus.
type Workspace struct {
	Store      *document.Store
	Controller *Controller
	Scheduler  *autosave.Scheduler
	Reconciler *reconcile.Reconciler
	Sessions   *session.Store
	Persister  *session.Persister
	VCS        *vcs.Client
	Bus        *event.Bus

	files   *fsio.Files
	watcher *watch.Watcher
	logger  *logging.Logger

	root string
}

// NewWorkspace builds a fully wired workspace from configuration. The
// filesystem is injectable so tests run in memory; production passes
// afero.NewOsFs() and the real state-file path.
func NewWorkspace(cfg *config.Config, fs afero.Fs, statePath string, logger *logging.Logger) (*Workspace, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}

	bus := event.NewBus()
	files := fsio.New(fs)
	store := document.NewStore(cfg.Editor.MaxOpenTabs, bus, logger)
	latches := reconcile.NewLatches()
	client := vcs.NewClient(files)

	controller := NewController(store, files, latches, client, bus, logger)
	scheduler := autosave.New(cfg.Editor.AutosaveDelay(), cfg.Editor.AutosaveEnabled, controller.SaveFile, logger)
	controller.SetScheduler(scheduler)

	reconciler := reconcile.New(store, files, latches, bus, logger)

	watcher, err := watch.New(cfg.Watcher.Debounce(), cfg.Watcher.IgnorePatterns, logger)
	if err != nil {
		return nil, err
	}
	watcher.SetCallback(reconciler.HandleBurst)

	sessions := session.NewStore(fs, statePath, logger)

	w := &Workspace{
		Store:      store,
		Controller: controller,
		Scheduler:  scheduler,
		Reconciler: reconciler,
		Sessions:   sessions,
		VCS:        client,
		Bus:        bus,
		files:      files,
		watcher:    watcher,
		logger:     logger.WithComponent("workspace"),
	}

	w.Persister = session.NewPersister(
		sessions, bus, w.snapshot,
		cfg.Session.PersistDebounce(),
		cfg.Session.MaxRecentProjects,
		logger,
	)

	controller.Start()
	w.Persister.Start()
	watcher.Start()
	return w, nil
}

// snapshot captures the current tab state for persistence.
func (w *Workspace) snapshot() (string, session.Snapshot) {
	if w.root == "" {
		return "", session.Snapshot{}
	}
	docs := w.Store.List()
	snap := session.Snapshot{
		OpenFiles:  make([]session.FileRef, 0, len(docs)),
		ActiveFile: w.Store.Active(),
	}
	for _, doc := range docs {
		snap.OpenFiles = append(snap.OpenFiles, session.FileRef{Path: doc.Path, Pinned: doc.Pinned})
	}
	return w.root, snap
}

// Root returns the current project root, or "" before any project opens.
func (w *Workspace) Root() string { return w.root }

// OpenProject switches to a new project root: the outgoing project's
// session flushes immediately, unpinned tabs close, the watcher re-targets,
// and the stored session for the new root is restored.
func (w *Workspace) OpenProject(root string) error {
	if w.root != "" {
		w.Persister.Flush()
		w.watcher.RemoveRoot(w.root)
	}
	// Unpinned tabs are about to close; save their edits before the buffers
	// go away. Pinned tabs survive the switch and keep theirs.
	for _, doc := range w.Store.List() {
		if doc.Dirty && !doc.Pinned {
			if err := w.Controller.SaveFile(doc.Path); err != nil && !errors.IsSkip(err) {
				w.logger.Warn("save on project switch failed", "path", doc.Path, "error", err)
			}
		}
	}
	closed := w.Store.CloseAllUnpinned()
	for _, path := range closed {
		w.Controller.dropLocalState(path)
	}

	w.root = root
	if err := w.watcher.AddRoot(root); err != nil {
		// Watching is best effort; reconciliation degrades to activation
		// checks only.
		w.logger.Warn("watch unavailable for project", "root", root, "error", err)
	}

	w.restoreSession(root)
	w.Bus.Publish(event.SessionReplaced{Root: root})
	w.Persister.Flush()
	w.logger.Info("project opened", "root", root)
	return nil
}

// restoreSession reopens the stored tab set for root, pins what was pinned,
// and reactivates the stored active file.
func (w *Workspace) restoreSession(root string) {
	snap, ok := w.Sessions.Snapshot(root)
	if !ok {
		return
	}
	for _, ref := range snap.OpenFiles {
		w.Controller.LoadFile(ref.Path)
		if ref.Pinned {
			if doc, open := w.Store.Get(ref.Path); open && !doc.Pinned {
				_, _ = w.Store.TogglePin(ref.Path)
			}
		}
	}
	if snap.ActiveFile != "" {
		if _, open := w.Store.Get(snap.ActiveFile); open {
			_ = w.Controller.Activate(snap.ActiveFile)
		}
	}
}

// Shutdown saves every dirty document and flushes the session snapshot,
// then tears the engine down. Saves go through the controller directly, not
// the scheduler, so edits survive even with autosave disabled.
func (w *Workspace) Shutdown() {
	for _, doc := range w.Store.List() {
		if !doc.Dirty {
			continue
		}
		if err := w.Controller.SaveFile(doc.Path); err != nil && !errors.IsSkip(err) {
			w.logger.Warn("save on shutdown failed", "path", doc.Path, "error", err)
		}
	}
	w.Persister.Flush()
	w.Persister.Stop()
	w.watcher.Stop()
	w.Controller.Stop()
}
