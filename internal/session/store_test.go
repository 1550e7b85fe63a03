package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/tessera-editor/tessera/internal/errors"
	"github.com/tessera-editor/tessera/internal/event"
)

func newTestStore() *Store {
	return NewStore(afero.NewMemMapFs(), "/data/state.json", nil)
}

func TestLoad_MissingFileIsDefault(t *testing.T) {
	s := newTestStore()
	state := s.Load()
	if len(state.RecentProjects) != 0 {
		t.Errorf("missing file produced %d projects, want empty default", len(state.RecentProjects))
	}
}

func TestLoad_CorruptFileIsDefault(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/data/state.json", []byte("{not json"), 0644)

	s := NewStore(fs, "/data/state.json", nil)
	state := s.Load()
	if len(state.RecentProjects) != 0 {
		t.Errorf("corrupt file produced %d projects, want empty default", len(state.RecentProjects))
	}
}

func TestSave_RoundTrip(t *testing.T) {
	s := newTestStore()

	snap := Snapshot{
		OpenFiles:  []FileRef{{Path: "/proj/a.go", Pinned: true}, {Path: "/proj/b.go"}},
		ActiveFile: "/proj/b.go",
	}
	if err := s.Save("/proj", snap, 10); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, ok := s.Snapshot("/proj")
	if !ok {
		t.Fatal("snapshot not found after save")
	}
	if len(got.OpenFiles) != 2 || got.OpenFiles[0] != snap.OpenFiles[0] {
		t.Errorf("openFiles = %v, want %v", got.OpenFiles, snap.OpenFiles)
	}
	if got.ActiveFile != "/proj/b.go" {
		t.Errorf("activeFile = %q, want /proj/b.go", got.ActiveFile)
	}

	recent := s.Recent()
	if len(recent) != 1 || recent[0].Path != "/proj" || recent[0].Name != "proj" {
		t.Errorf("recent = %v, want one entry for /proj", recent)
	}
}

func TestSave_UpsertsToFront(t *testing.T) {
	s := newTestStore()

	_ = s.Save("/proj-a", Snapshot{}, 10)
	_ = s.Save("/proj-b", Snapshot{}, 10)
	_ = s.Save("/proj-a", Snapshot{ActiveFile: "/proj-a/x.go"}, 10)

	recent := s.Recent()
	if len(recent) != 2 {
		t.Fatalf("recent has %d entries, want 2 (no duplicates)", len(recent))
	}
	if recent[0].Path != "/proj-a" {
		t.Errorf("front = %q, want re-saved project moved to front", recent[0].Path)
	}
	if recent[0].Session.ActiveFile != "/proj-a/x.go" {
		t.Errorf("front session not updated: %+v", recent[0].Session)
	}
}

func TestSave_TruncatesRecentList(t *testing.T) {
	s := newTestStore()

	for i := 0; i < 6; i++ {
		if err := s.Save(fmt.Sprintf("/proj-%d", i), Snapshot{}, 4); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	recent := s.Recent()
	if len(recent) != 4 {
		t.Fatalf("recent has %d entries, want 4", len(recent))
	}
	if recent[0].Path != "/proj-5" {
		t.Errorf("front = %q, want newest /proj-5", recent[0].Path)
	}
}

func TestSave_RecentListHardCeiling(t *testing.T) {
	s := newTestStore()

	for i := 0; i < 35; i++ {
		_ = s.Save(fmt.Sprintf("/proj-%d", i), Snapshot{}, 100)
	}
	if got := len(s.Recent()); got != maxRecentCap {
		t.Errorf("recent has %d entries, want capped at %d", got, maxRecentCap)
	}
}

func TestSave_TruncatesOpenFiles(t *testing.T) {
	s := newTestStore()

	var refs []FileRef
	for i := 0; i < 25; i++ {
		refs = append(refs, FileRef{Path: fmt.Sprintf("/proj/f%d.go", i)})
	}
	if err := s.Save("/proj", Snapshot{OpenFiles: refs}, 10); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, _ := s.Snapshot("/proj")
	if len(got.OpenFiles) != maxSnapshotFiles {
		t.Errorf("openFiles = %d, want truncated to %d", len(got.OpenFiles), maxSnapshotFiles)
	}
}

func TestSave_RejectsBadRoots(t *testing.T) {
	s := newTestStore()

	for _, root := range []string{"", "relative/path", "/proj/../etc"} {
		if err := s.Save(root, Snapshot{}, 10); !errors.Is(err, errors.ErrInvalidInput) {
			t.Errorf("Save(%q): err = %v, want ErrInvalidInput", root, err)
		}
	}
}

func TestRemoveRecent(t *testing.T) {
	s := newTestStore()
	_ = s.Save("/proj-a", Snapshot{}, 10)
	_ = s.Save("/proj-b", Snapshot{}, 10)

	if err := s.RemoveRecent("/proj-a"); err != nil {
		t.Fatalf("RemoveRecent failed: %v", err)
	}
	recent := s.Recent()
	if len(recent) != 1 || recent[0].Path != "/proj-b" {
		t.Errorf("recent = %v, want only /proj-b", recent)
	}
}

func TestSave_NoTempFileLeftBehind(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewStore(fs, "/data/state.json", nil)
	_ = s.Save("/proj", Snapshot{}, 10)

	if ok, _ := afero.Exists(fs, "/data/state.json.tmp"); ok {
		t.Error("temp file left behind after successful write")
	}
	if ok, _ := afero.Exists(fs, "/data/state.json"); !ok {
		t.Error("state file missing after save")
	}
}

// snapshotStub is a thread-safe SnapshotFunc for persister tests.
type snapshotStub struct {
	mu   sync.Mutex
	root string
	snap Snapshot
}

func (s *snapshotStub) get() (string, Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root, s.snap
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestPersister_DebouncedWrite(t *testing.T) {
	store := newTestStore()
	bus := event.NewBus()
	stub := &snapshotStub{root: "/proj", snap: Snapshot{ActiveFile: "/proj/a.go"}}

	p := NewPersister(store, bus, stub.get, 30*time.Millisecond, 10, nil)
	p.Start()
	defer p.Stop()

	// A burst of tab churn coalesces into one eventual write.
	bus.Publish(event.DocumentOpened{Path: "/proj/a.go"})
	bus.Publish(event.DocumentActivated{Path: "/proj/a.go"})
	bus.Publish(event.DocumentPinned{Path: "/proj/a.go", Pinned: true})

	if len(store.Recent()) != 0 {
		t.Error("write happened inside the debounce window")
	}
	if !waitFor(t, 2*time.Second, func() bool { return len(store.Recent()) == 1 }) {
		t.Fatal("debounced write never landed")
	}
}

func TestPersister_FlushBypassesDebounce(t *testing.T) {
	store := newTestStore()
	bus := event.NewBus()
	stub := &snapshotStub{root: "/proj"}

	p := NewPersister(store, bus, stub.get, time.Hour, 10, nil)
	p.Start()
	defer p.Stop()

	bus.Publish(event.DocumentOpened{Path: "/proj/a.go"})
	p.Flush()

	if len(store.Recent()) != 1 {
		t.Fatal("flush did not write immediately")
	}
}

func TestPersister_EmptyRootSkipsWrite(t *testing.T) {
	store := newTestStore()
	bus := event.NewBus()
	stub := &snapshotStub{} // no project open

	p := NewPersister(store, bus, stub.get, time.Hour, 10, nil)
	p.Start()
	defer p.Stop()

	p.Flush()
	if len(store.Recent()) != 0 {
		t.Error("flush wrote with no project open")
	}
}

func TestPersister_StopCancelsPending(t *testing.T) {
	store := newTestStore()
	bus := event.NewBus()
	stub := &snapshotStub{root: "/proj"}

	p := NewPersister(store, bus, stub.get, 30*time.Millisecond, 10, nil)
	p.Start()
	bus.Publish(event.DocumentOpened{Path: "/proj/a.go"})
	p.Stop()

	time.Sleep(100 * time.Millisecond)
	if len(store.Recent()) != 0 {
		t.Error("pending write fired after Stop")
	}
}
