package conflict

import (
	"context"
	"strings"
	"sync"

	"github.com/tessera-editor/tessera/internal/errors"
	"github.com/tessera-editor/tessera/internal/event"
	"github.com/tessera-editor/tessera/internal/logging"
	"github.com/tessera-editor/tessera/internal/vcs"
)

// Session tracks the resolution state for one conflicted file. It consumes
// the document's raw content and the version-control collaborator, and is
// independent of the normal editing path: a session is created when a
// conflicted file opens and destroyed on successful save or when the
// underlying path changes.
type Session struct {
	mu          sync.Mutex
	root        string
	relPath     string
	content     string
	hunks       []Hunk
	resolutions map[int]Resolution

	client *vcs.Client
	bus    *event.Bus
	logger *logging.Logger
}

// NewSession parses content for root/relPath and returns a session holding
// its hunks with no resolutions yet.
func NewSession(root, relPath, content string, client *vcs.Client, bus *event.Bus, logger *logging.Logger) *Session {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Session{
		root:        root,
		relPath:     relPath,
		content:     content,
		hunks:       Parse(content),
		resolutions: make(map[int]Resolution),
		client:      client,
		bus:         bus,
		logger:      logger.WithComponent("conflict"),
	}
}

// Hunks returns the parsed hunks in document order.
func (s *Session) Hunks() []Hunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Hunk, len(s.hunks))
	copy(out, s.hunks)
	return out
}

// Resolve records the choice for one hunk, replacing any earlier choice.
func (s *Session) Resolve(index int, r Resolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.hunks) == 0 {
		return errors.ErrNoConflicts
	}
	if index < 0 || index >= len(s.hunks) {
		return errors.Wrapf(errors.ErrInvalidInput, "hunk index %d out of range", index)
	}
	if !r.Valid() {
		return errors.Wrapf(errors.ErrInvalidInput, "unknown resolution %q", r)
	}
	s.resolutions[index] = r
	return nil
}

// Unresolve drops the choice for one hunk, returning it to pending.
func (s *Session) Unresolve(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resolutions, index)
}

// AcceptAllCurrent overwrites every hunk's resolution with "current".
func (s *Session) AcceptAllCurrent() { s.acceptAll(ResolutionCurrent) }

// AcceptAllIncoming overwrites every hunk's resolution with "incoming".
func (s *Session) AcceptAllIncoming() { s.acceptAll(ResolutionIncoming) }

func (s *Session) acceptAll(r Resolution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.hunks {
		s.resolutions[h.Index] = r
	}
}

// Complete reports whether every hunk has a resolution and at least one hunk
// exists. A session over conflict-free content is never complete.
func (s *Session) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completeLocked()
}

func (s *Session) completeLocked() bool {
	return len(s.hunks) > 0 && len(s.resolutions) == len(s.hunks)
}

// ResolvedCount returns how many hunks have a resolution.
func (s *Session) ResolvedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resolutions)
}

// BuildResolvedContent rebuilds the file: unaffected text verbatim, resolved
// hunks replaced by their chosen lines, and unresolved hunks re-emitted with
// their original markers unchanged so the output stays re-parseable into the
// same outstanding hunks.
func (s *Session) BuildResolvedContent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildLocked()
}

func (s *Session) buildLocked() string {
	lines := strings.Split(s.content, "\n")
	var out []string

	next := 0
	for _, h := range s.hunks {
		out = append(out, lines[next:h.StartLine]...)
		if r, ok := s.resolutions[h.Index]; ok {
			out = append(out, ResolveHunkLines(h, r)...)
		} else {
			out = append(out, lines[h.StartLine:h.EndLine+1]...)
		}
		next = h.EndLine + 1
	}
	out = append(out, lines[next:]...)
	return strings.Join(out, "\n")
}

// SaveAndFinish builds the resolved content, writes and stages it through
// the collaborator, and clears local state. Only callable when complete. Any
// failure leaves every resolution intact so the user retries without
// re-choosing.
func (s *Session) SaveAndFinish(ctx context.Context) error {
	s.mu.Lock()
	if !s.completeLocked() {
		s.mu.Unlock()
		if len(s.hunks) == 0 {
			return errors.ErrNoConflicts
		}
		return errors.ErrResolutionIncomplete
	}
	resolved := s.buildLocked()
	root, relPath := s.root, s.relPath
	s.mu.Unlock()

	if err := s.client.ResolveConflict(ctx, root, relPath, resolved, true); err != nil {
		s.logger.Warn("conflict save failed, resolutions kept", "path", relPath, "error", err)
		return err
	}

	s.mu.Lock()
	s.content = resolved
	s.hunks = nil
	s.resolutions = make(map[int]Resolution)
	s.mu.Unlock()

	s.logger.Info("conflicts resolved", "path", relPath)
	if s.bus != nil {
		s.bus.Publish(event.ConflictResolved{Path: relPath})
	}
	return nil
}
