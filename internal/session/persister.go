package session

import (
	"sync"
	"time"

	"github.com/tessera-editor/tessera/internal/event"
	"github.com/tessera-editor/tessera/internal/logging"
)

// DefaultPersistDebounce is used when no persistence debounce is configured.
const DefaultPersistDebounce = 500 * time.Millisecond

// SnapshotFunc produces the current snapshot to persist. An empty root means
// no project is open and nothing is written.
type SnapshotFunc func() (root string, snap Snapshot)

// Persister observes document-lifecycle events on the bus and writes the
// session snapshot with a debounce, coalescing bursts of tab churn into a
// single outstanding write. Flush bypasses the debounce window for project
// switch and shutdown.
type Persister struct {
	store     *Store
	bus       *event.Bus
	snapshot  SnapshotFunc
	debounce  time.Duration
	maxRecent int
	logger    *logging.Logger

	mu     sync.Mutex
	timer  *time.Timer
	subIDs []uint64
}

// NewPersister creates a persister. A non-positive debounce falls back to
// DefaultPersistDebounce.
func NewPersister(store *Store, bus *event.Bus, snapshot SnapshotFunc, debounce time.Duration, maxRecent int, logger *logging.Logger) *Persister {
	if debounce <= 0 {
		debounce = DefaultPersistDebounce
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Persister{
		store:     store,
		bus:       bus,
		snapshot:  snapshot,
		debounce:  debounce,
		maxRecent: maxRecent,
		logger:    logger.WithComponent("persist"),
	}
}

// Start subscribes to the events that change what a snapshot would contain.
func (p *Persister) Start() {
	types := []string{
		event.TypeDocumentOpened,
		event.TypeDocumentClosed,
		event.TypeDocumentActivated,
		event.TypeDocumentPinned,
		event.TypeDocumentRenamed,
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range types {
		p.subIDs = append(p.subIDs, p.bus.Subscribe(t, func(event.Event) {
			p.schedule()
		}))
	}
}

// schedule arms (or re-arms) the single outstanding debounced write.
func (p *Persister) schedule() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.debounce, p.write)
}

// Flush cancels any pending debounced write and writes immediately.
func (p *Persister) Flush() {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()

	p.write()
}

// Stop unsubscribes and cancels any pending write without flushing; callers
// that need the final state call Flush first.
func (p *Persister) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range p.subIDs {
		p.bus.Unsubscribe(id)
	}
	p.subIDs = nil
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// write persists the current snapshot. Failures are logged, never surfaced;
// session persistence must not interrupt the user.
func (p *Persister) write() {
	root, snap := p.snapshot()
	if root == "" {
		return
	}
	if err := p.store.Save(root, snap, p.maxRecent); err != nil {
		p.logger.Warn("session persist failed", "root", root, "error", err)
	}
}
