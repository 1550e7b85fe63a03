package reconcile

import "sync"

// LatchState is the tri-state of a per-document echo-suppression latch.
// Modeling the states explicitly makes the defensive reset an observable
// transition instead of a side effect on a bare boolean.
type LatchState int

const (
	// Idle means no save is pending an echo.
	Idle LatchState = iota
	// Armed means the document's own save just wrote to disk and the next
	// watch notification for the path is the write's echo.
	Armed
	// Consumed means the echo arrived and was suppressed.
	Consumed
)

func (s LatchState) String() string {
	switch s {
	case Armed:
		return "armed"
	case Consumed:
		return "consumed"
	default:
		return "idle"
	}
}

// Latches tracks one echo-suppression latch per document path. Latches are
// scoped strictly to a path; Drop must be called when a document closes or
// changes identity so state never leaks across documents.
type Latches struct {
	mu     sync.Mutex
	states map[string]LatchState
}

// NewLatches creates an empty latch set.
func NewLatches() *Latches {
	return &Latches{states: make(map[string]LatchState)}
}

// Arm marks path as expecting one echo notification. Called immediately
// before a save writes to disk.
func (l *Latches) Arm(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states[path] = Armed
}

// Consume fires the latch if armed. Returns true exactly once per armed
// cycle; the caller suppresses the notification on true.
func (l *Latches) Consume(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.states[path] != Armed {
		return false
	}
	l.states[path] = Consumed
	return true
}

// Reset forces path back to Idle. Called defensively when the expected echo
// will never arrive, e.g. after a failed save.
func (l *Latches) Reset(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.states[path]; ok {
		l.states[path] = Idle
	}
}

// Drop removes all latch state for path. Called on close and rename.
func (l *Latches) Drop(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.states, path)
}

// State reports the current latch state for path.
func (l *Latches) State(path string) LatchState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.states[path]
}
