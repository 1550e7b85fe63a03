package event

// Event is implemented by all events published on the bus.
type Event interface {
	// EventType returns a stable string identifying the event kind.
	EventType() string
}

// Event type identifiers.
const (
	TypeDocumentOpened    = "document.opened"
	TypeDocumentClosed    = "document.closed"
	TypeDocumentActivated = "document.activated"
	TypeDocumentPinned    = "document.pinned"
	TypeDocumentRenamed   = "document.renamed"
	TypeDocumentSaved     = "document.saved"
	TypeExternalChange    = "document.external_change"
	TypeSessionReplaced   = "session.replaced"
	TypeConflictResolved  = "conflict.resolved"
)

// DocumentOpened is published when a path is added to the open-document list.
type DocumentOpened struct {
	Path string
}

func (DocumentOpened) EventType() string { return TypeDocumentOpened }

// DocumentClosed is published when a document leaves the open list, whether by
// explicit close, bulk close, or eviction.
type DocumentClosed struct {
	Path    string
	Evicted bool
}

func (DocumentClosed) EventType() string { return TypeDocumentClosed }

// DocumentActivated is published when the active pointer moves.
// Path is empty when no document remains active.
type DocumentActivated struct {
	Path string
}

func (DocumentActivated) EventType() string { return TypeDocumentActivated }

// DocumentPinned is published when a document's pinned flag toggles.
type DocumentPinned struct {
	Path   string
	Pinned bool
}

func (DocumentPinned) EventType() string { return TypeDocumentPinned }

// DocumentRenamed is published when an external collaborator renames a path
// and the store updates the entry in place.
type DocumentRenamed struct {
	OldPath string
	NewPath string
}

func (DocumentRenamed) EventType() string { return TypeDocumentRenamed }

// DocumentSaved is published after a successful save reaches disk.
type DocumentSaved struct {
	Path string
}

func (DocumentSaved) EventType() string { return TypeDocumentSaved }

// ExternalChange is published when reconciliation overwrites a buffer with
// disk content. Consumers refresh content-derived overlays such as
// change-indicator markers.
type ExternalChange struct {
	Path string
}

func (ExternalChange) EventType() string { return TypeExternalChange }

// SessionReplaced is published on project switch, after unpinned documents
// have been bulk-closed.
type SessionReplaced struct {
	Root string
}

func (SessionReplaced) EventType() string { return TypeSessionReplaced }

// ConflictResolved is published after a conflict sub-session writes and
// stages its resolved content.
type ConflictResolved struct {
	Path string
}

func (ConflictResolved) EventType() string { return TypeConflictResolved }
