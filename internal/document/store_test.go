package document

import (
	"fmt"
	"testing"

	"github.com/tessera-editor/tessera/internal/errors"
	"github.com/tessera-editor/tessera/internal/event"
)

func paths(docs []OpenDocument) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Path
	}
	return out
}

func equalPaths(a []string, b ...string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestOpen_Idempotent(t *testing.T) {
	s := NewStore(9, nil, nil)

	s.Open("/p/a.go", "a.go", "alpha")
	s.Open("/p/b.go", "b.go", "beta")
	s.Open("/p/a.go", "a.go", "ignored")

	got := s.List()
	if !equalPaths(paths(got), "/p/a.go", "/p/b.go") {
		t.Fatalf("open list = %v, want [a b]", paths(got))
	}
	if s.Active() != "/p/a.go" {
		t.Errorf("active = %q, want /p/a.go", s.Active())
	}
	// The second open must not clobber existing content.
	if doc, _ := s.Get("/p/a.go"); doc.BufferContent != "alpha" {
		t.Errorf("buffer = %q, want original content preserved", doc.BufferContent)
	}
}

func TestDirty_TracksBufferVsDisk(t *testing.T) {
	s := NewStore(9, nil, nil)
	s.Open("/p/a.go", "", "v1")

	if doc, _ := s.Get("/p/a.go"); doc.Dirty {
		t.Error("fresh document should be clean")
	}

	_ = s.SetBuffer("/p/a.go", "v2")
	if doc, _ := s.Get("/p/a.go"); !doc.Dirty {
		t.Error("edited document should be dirty")
	}

	// Editing back to the disk content clears dirty.
	_ = s.SetBuffer("/p/a.go", "v1")
	if doc, _ := s.Get("/p/a.go"); doc.Dirty {
		t.Error("buffer equal to disk should be clean")
	}

	_ = s.SetBuffer("/p/a.go", "v2")
	_ = s.MarkSaved("/p/a.go", "v2")
	if doc, _ := s.Get("/p/a.go"); doc.Dirty {
		t.Error("saved document should be clean")
	}
}

func TestEviction_OldestEligible(t *testing.T) {
	s := NewStore(9, nil, nil)
	for i := 0; i < 9; i++ {
		s.Open(fmt.Sprintf("/p/f%d.go", i), "", "x")
	}

	evicted := s.Open("/p/f9.go", "", "x")

	if !equalPaths(evicted, "/p/f0.go") {
		t.Fatalf("evicted = %v, want exactly the oldest [/p/f0.go]", evicted)
	}
	if s.Len() != 9 {
		t.Errorf("open count = %d, want 9", s.Len())
	}
	if s.Active() != "/p/f9.go" {
		t.Errorf("active = %q, want the newly opened document", s.Active())
	}
}

func TestEviction_SkipsPinnedAndDirty(t *testing.T) {
	s := NewStore(9, nil, nil)
	for i := 0; i < 9; i++ {
		s.Open(fmt.Sprintf("/p/f%d.go", i), "", "x")
	}
	_, _ = s.TogglePin("/p/f0.go")
	_ = s.SetBuffer("/p/f1.go", "edited")

	evicted := s.Open("/p/f9.go", "", "x")

	if !equalPaths(evicted, "/p/f2.go") {
		t.Fatalf("evicted = %v, want [/p/f2.go] (f0 pinned, f1 dirty)", evicted)
	}
	for _, keep := range []string{"/p/f0.go", "/p/f1.go"} {
		if _, ok := s.Get(keep); !ok {
			t.Errorf("%s was evicted despite being pinned or dirty", keep)
		}
	}
}

func TestEviction_NoEligibleCandidateExceedsCap(t *testing.T) {
	s := NewStore(2, nil, nil)
	s.Open("/p/a.go", "", "x")
	s.Open("/p/b.go", "", "x")
	_ = s.SetBuffer("/p/a.go", "edited")
	_ = s.SetBuffer("/p/b.go", "edited")

	evicted := s.Open("/p/c.go", "", "x")

	if len(evicted) != 0 {
		t.Fatalf("evicted = %v, want none (all candidates dirty)", evicted)
	}
	if s.Len() != 3 {
		t.Errorf("open count = %d, want 3 (cap exceeded rather than dropping edits)", s.Len())
	}
}

func TestClose_PinnedIsNoOp(t *testing.T) {
	s := NewStore(9, nil, nil)
	s.Open("/p/a.go", "", "x")
	_, _ = s.TogglePin("/p/a.go")

	err := s.Close("/p/a.go")

	if !errors.Is(err, errors.ErrDocumentPinned) {
		t.Fatalf("err = %v, want ErrDocumentPinned", err)
	}
	if _, ok := s.Get("/p/a.go"); !ok {
		t.Error("pinned document was closed")
	}
	if s.Active() != "/p/a.go" {
		t.Errorf("active = %q, want pinned document to stay active", s.Active())
	}
}

func TestClose_ReassignsActive(t *testing.T) {
	s := NewStore(9, nil, nil)
	s.Open("/p/a.go", "", "x")
	s.Open("/p/b.go", "", "x")
	s.Open("/p/c.go", "", "x")

	if err := s.Close("/p/c.go"); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if s.Active() != "/p/b.go" {
		t.Errorf("active = %q, want most recently remaining /p/b.go", s.Active())
	}

	_ = s.Close("/p/b.go")
	_ = s.Close("/p/a.go")
	if s.Active() != "" {
		t.Errorf("active = %q, want empty with no documents left", s.Active())
	}
}

func TestClose_InactiveLeavesActiveAlone(t *testing.T) {
	s := NewStore(9, nil, nil)
	s.Open("/p/a.go", "", "x")
	s.Open("/p/b.go", "", "x")

	if err := s.Close("/p/a.go"); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if s.Active() != "/p/b.go" {
		t.Errorf("active = %q, want unchanged /p/b.go", s.Active())
	}
}

func TestCloseAllUnpinned(t *testing.T) {
	s := NewStore(9, nil, nil)
	s.Open("/p/a.go", "", "x")
	s.Open("/p/b.go", "", "x")
	s.Open("/p/c.go", "", "x")
	_, _ = s.TogglePin("/p/b.go")

	closed := s.CloseAllUnpinned()

	if !equalPaths(closed, "/p/a.go", "/p/c.go") {
		t.Fatalf("closed = %v, want [a c]", closed)
	}
	if !equalPaths(paths(s.List()), "/p/b.go") {
		t.Fatalf("remaining = %v, want only the pinned document", paths(s.List()))
	}
	if s.Active() != "/p/b.go" {
		t.Errorf("active = %q, want re-anchored to /p/b.go", s.Active())
	}
}

func TestCloseAllUnpinned_NothingPinned(t *testing.T) {
	s := NewStore(9, nil, nil)
	s.Open("/p/a.go", "", "x")

	s.CloseAllUnpinned()

	if s.Len() != 0 {
		t.Errorf("open count = %d, want 0", s.Len())
	}
	if s.Active() != "" {
		t.Errorf("active = %q, want empty", s.Active())
	}
}

func TestNavigation_PinnedFirstCyclic(t *testing.T) {
	s := NewStore(9, nil, nil)
	s.Open("/p/a.go", "", "x")
	s.Open("/p/b.go", "", "x")
	s.Open("/p/c.go", "", "x")
	_, _ = s.TogglePin("/p/c.go")
	// Tab order: c (pinned), a, b. Active is c from the last Open.

	if got := s.NextTab(); got != "/p/a.go" {
		t.Errorf("NextTab = %q, want /p/a.go", got)
	}
	if got := s.NextTab(); got != "/p/b.go" {
		t.Errorf("NextTab = %q, want /p/b.go", got)
	}
	// Wraps back to the pinned head.
	if got := s.NextTab(); got != "/p/c.go" {
		t.Errorf("NextTab = %q, want wrap to /p/c.go", got)
	}
	// And backwards wraps to the tail.
	if got := s.PrevTab(); got != "/p/b.go" {
		t.Errorf("PrevTab = %q, want wrap to /p/b.go", got)
	}
}

func TestNavigation_Empty(t *testing.T) {
	s := NewStore(9, nil, nil)
	if got := s.NextTab(); got != "" {
		t.Errorf("NextTab on empty store = %q, want empty", got)
	}
}

func TestNavigation_UnsetActiveEntersFromMatchingEnd(t *testing.T) {
	s := NewStore(9, nil, nil)
	s.Open("/p/a.go", "", "x")
	s.Open("/p/b.go", "", "x")
	s.Open("/p/c.go", "", "x")

	s.mu.Lock()
	s.active = ""
	s.mu.Unlock()
	if got := s.NextTab(); got != "/p/a.go" {
		t.Errorf("NextTab from unset active = %q, want first tab", got)
	}

	s.mu.Lock()
	s.active = ""
	s.mu.Unlock()
	if got := s.PrevTab(); got != "/p/c.go" {
		t.Errorf("PrevTab from unset active = %q, want last tab", got)
	}
}

func TestRename_PropagatesIndexAndActive(t *testing.T) {
	bus := event.NewBus()
	var renamed []event.DocumentRenamed
	bus.Subscribe(event.TypeDocumentRenamed, func(e event.Event) {
		renamed = append(renamed, e.(event.DocumentRenamed))
	})

	s := NewStore(9, bus, nil)
	s.Open("/p/old.go", "", "x")

	if err := s.Rename("/p/old.go", "/p/new.go"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}

	if _, ok := s.Get("/p/old.go"); ok {
		t.Error("old path still resolves after rename")
	}
	doc, ok := s.Get("/p/new.go")
	if !ok {
		t.Fatal("new path does not resolve after rename")
	}
	if doc.DisplayName != "new.go" {
		t.Errorf("displayName = %q, want new.go", doc.DisplayName)
	}
	if s.Active() != "/p/new.go" {
		t.Errorf("active = %q, want to follow the rename", s.Active())
	}
	if len(renamed) != 1 || renamed[0].OldPath != "/p/old.go" || renamed[0].NewPath != "/p/new.go" {
		t.Errorf("renamed events = %v, want one old->new", renamed)
	}
}

func TestRename_TargetAlreadyOpen(t *testing.T) {
	s := NewStore(9, nil, nil)
	s.Open("/p/a.go", "", "x")
	s.Open("/p/b.go", "", "x")

	if err := s.Rename("/p/a.go", "/p/b.go"); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestVersion_OnlyForcedReloadsBump(t *testing.T) {
	s := NewStore(9, nil, nil)
	s.Open("/p/a.go", "", "v1")

	_ = s.SetBuffer("/p/a.go", "v2")
	_ = s.MarkSaved("/p/a.go", "v2")
	_ = s.ReplaceFromDisk("/p/a.go", "v3")
	if doc, _ := s.Get("/p/a.go"); doc.Version != 0 {
		t.Errorf("version = %d after save and reconciliation, want 0", doc.Version)
	}

	_ = s.BumpVersion("/p/a.go", "v4")
	doc, _ := s.Get("/p/a.go")
	if doc.Version != 1 {
		t.Errorf("version = %d after forced reload, want 1", doc.Version)
	}
	if doc.Dirty || doc.BufferContent != "v4" || doc.LastKnownDiskContent != "v4" {
		t.Errorf("forced reload state = %+v, want clean v4", doc)
	}
}

func TestEvents_PublishedOutsideLock(t *testing.T) {
	bus := event.NewBus()
	s := NewStore(9, bus, nil)

	// A handler that re-enters the store must not deadlock.
	var sawLen int
	bus.Subscribe(event.TypeDocumentOpened, func(event.Event) {
		sawLen = s.Len()
	})

	s.Open("/p/a.go", "", "x")
	if sawLen != 1 {
		t.Errorf("handler observed %d open documents, want 1", sawLen)
	}
}

func TestEvents_EvictionMarked(t *testing.T) {
	bus := event.NewBus()
	var closes []event.DocumentClosed
	bus.Subscribe(event.TypeDocumentClosed, func(e event.Event) {
		closes = append(closes, e.(event.DocumentClosed))
	})

	s := NewStore(1, bus, nil)
	s.Open("/p/a.go", "", "x")
	s.Open("/p/b.go", "", "x")

	if len(closes) != 1 || !closes[0].Evicted || closes[0].Path != "/p/a.go" {
		t.Errorf("close events = %v, want one eviction of /p/a.go", closes)
	}
}
