// Package reconcile implements the disk reconciliation protocol: deciding,
// for each watcher notification, whether an open buffer must be overwritten
// by on-disk content, while suppressing echoes of the program's own saves.
//
// Three actors write to a file's disk content: the document's own save, an
// outside edit, and a version-control operation issued from the side panel.
// The protocol distinguishes "my own echo" from "a genuine external change"
// without ever discarding unsaved edits.
package reconcile

import (
	"github.com/tessera-editor/tessera/internal/document"
	"github.com/tessera-editor/tessera/internal/event"
	"github.com/tessera-editor/tessera/internal/fsio"
	"github.com/tessera-editor/tessera/internal/logging"
)

// Outcome reports what a reconciliation pass decided for one path.
type Outcome int

const (
	// OutcomeNotOpen means the path has no open document; nothing to do.
	OutcomeNotOpen Outcome = iota
	// OutcomeEcho means the notification was the echo of our own save and
	// was consumed by the latch.
	OutcomeEcho
	// OutcomeSpurious means disk still matches the last-known-disk value;
	// the notification carried no new information.
	OutcomeSpurious
	// OutcomeBufferMatch means disk changed but now equals the live buffer;
	// only the last-known-disk value was updated, silently.
	OutcomeBufferMatch
	// OutcomeReloaded means disk genuinely diverged and the buffer was
	// overwritten with disk content.
	OutcomeReloaded
	// OutcomeReadFailed means the disk read failed. Swallowed: the file may
	// have been deleted, and the next watch event or activation retries.
	OutcomeReadFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEcho:
		return "echo"
	case OutcomeSpurious:
		return "spurious"
	case OutcomeBufferMatch:
		return "buffer_match"
	case OutcomeReloaded:
		return "reloaded"
	case OutcomeReadFailed:
		return "read_failed"
	default:
		return "not_open"
	}
}

// Reconciler runs the protocol against the document store. One instance
// serves all open documents; per-document state lives in the latch set.
type Reconciler struct {
	store   *document.Store
	files   *fsio.Files
	latches *Latches
	bus     *event.Bus
	logger  *logging.Logger
}

// New creates a reconciler. The latch set is shared with the save path in
// the controller, which arms it before each write.
func New(store *document.Store, files *fsio.Files, latches *Latches, bus *event.Bus, logger *logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Reconciler{
		store:   store,
		files:   files,
		latches: latches,
		bus:     bus,
		logger:  logger.WithComponent("reconcile"),
	}
}

// HandleBurst runs one reconciliation pass per path in a coalesced watcher
// burst. Paths without an open document fall through untouched.
func (r *Reconciler) HandleBurst(paths []string) {
	for _, path := range paths {
		outcome := r.HandleChange(path)
		if outcome != OutcomeNotOpen {
			r.logger.Debug("reconciled", "path", path, "outcome", outcome.String())
		}
	}
}

// HandleChange decides what a single watch notification for path means.
//
// Order matters: the latch check runs before the disk read so an echo never
// costs a read, and the last-known-disk comparison runs before the buffer
// comparison so a spurious event on a dirty document stays a no-op.
func (r *Reconciler) HandleChange(path string) Outcome {
	doc, ok := r.store.Get(path)
	if !ok {
		return OutcomeNotOpen
	}

	if r.latches.Consume(path) {
		return OutcomeEcho
	}

	disk, err := r.files.ReadFile(path)
	if err != nil {
		r.logger.Debug("reconciliation read failed", "path", path, "error", err)
		return OutcomeReadFailed
	}

	switch disk {
	case doc.LastKnownDiskContent:
		return OutcomeSpurious
	case doc.BufferContent:
		_ = r.store.UpdateLastKnownDisk(path, disk)
		return OutcomeBufferMatch
	}

	// Genuine external change: overwrite the buffer and clear dirty. No
	// version bump; those are reserved for forced reloads like discard.
	if err := r.store.ReplaceFromDisk(path, disk); err != nil {
		return OutcomeNotOpen
	}
	if r.bus != nil {
		r.bus.Publish(event.ExternalChange{Path: path})
	}
	return OutcomeReloaded
}
