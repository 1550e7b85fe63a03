// Package autosave implements the per-document debounced save timer. Every
// edit re-schedules the document's timer; only the last edit in a quiet
// window triggers a save. Timers are cancellable scheduled tasks: each
// re-schedule cancels the prior handle, and teardown paths either fire or
// cancel explicitly.
package autosave

import (
	"sync"
	"time"

	"github.com/tessera-editor/tessera/internal/errors"
	"github.com/tessera-editor/tessera/internal/logging"
)

// DefaultDelay is used when no autosave delay is configured.
const DefaultDelay = 1000 * time.Millisecond

// SaveFunc persists a document. The controller's SaveFile is plugged in
// here; it owns the in-flight guard, so expiry during a pending save is a
// skip, not an error.
type SaveFunc func(path string) error

// Scheduler owns one pending timer per document path.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	delay   time.Duration
	enabled bool

	save   SaveFunc
	logger *logging.Logger
}

// New creates a scheduler. A non-positive delay falls back to DefaultDelay.
func New(delay time.Duration, enabled bool, save SaveFunc, logger *logging.Logger) *Scheduler {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Scheduler{
		timers:  make(map[string]*time.Timer),
		delay:   delay,
		enabled: enabled,
		save:    save,
		logger:  logger.WithComponent("autosave"),
	}
}

// Schedule cancels any pending timer for path and, when autosave is enabled,
// arms a fresh one. With autosave disabled this is purely a cancel.
func (s *Scheduler) Schedule(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked(path)
	if !s.enabled {
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		// A re-schedule or cancel may have raced the expiry; only the
		// still-registered timer gets to save.
		if s.timers[path] != timer {
			s.mu.Unlock()
			return
		}
		delete(s.timers, path)
		s.mu.Unlock()

		s.runSave(path)
	})
	s.timers[path] = timer
}

// Cancel stops the pending timer for path without saving. Reports whether a
// timer was pending.
func (s *Scheduler) Cancel(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(path)
}

func (s *Scheduler) cancelLocked(path string) bool {
	timer, ok := s.timers[path]
	if !ok {
		return false
	}
	timer.Stop()
	delete(s.timers, path)
	return true
}

// Flush cancels the pending timer for path and saves immediately. Used when
// switching away from a document so edits are never silently lost. A no-op
// when nothing was pending or autosave is disabled.
func (s *Scheduler) Flush(path string) error {
	s.mu.Lock()
	hadPending := s.cancelLocked(path)
	enabled := s.enabled
	s.mu.Unlock()

	if !hadPending || !enabled {
		return nil
	}
	return s.save(path)
}

// SetEnabled toggles autosave globally. Disabling cancels every pending
// timer without firing; only explicit saves apply afterwards.
func (s *Scheduler) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enabled = enabled
	if enabled {
		return
	}
	for path, timer := range s.timers {
		timer.Stop()
		delete(s.timers, path)
	}
}

// Enabled reports whether autosave is globally on.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Pending reports whether path has an armed timer.
func (s *Scheduler) Pending(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[path]
	return ok
}

// Stop cancels all pending timers. Part of shutdown; close-time flushing is
// the controller's responsibility before it gets here.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path, timer := range s.timers {
		timer.Stop()
		delete(s.timers, path)
	}
}

// runSave invokes the save callback, logging skips at debug and real
// failures at warn. Autosave failures never surface to the user directly;
// the dirty indicator stays on and the next trigger retries.
func (s *Scheduler) runSave(path string) {
	if err := s.save(path); err != nil {
		if errors.IsSkip(err) {
			s.logger.Debug("autosave skipped", "path", path, "reason", err)
			return
		}
		s.logger.Warn("autosave failed", "path", path, "error", err)
	}
}
