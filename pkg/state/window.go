package state

import (
	"sync"
	"time"
)

// Window is a sliding-window request counter for one (policy, subject)
// pair. It keeps a deque of request timestamps and prunes entries that
// have aged out before every check, which bounds memory to at most the
// policy's max_requests entries per active subject.
type Window struct {
	mu         sync.Mutex
	timestamps []time.Time
	lastAccess time.Time
}

// Allow checks the window against max over span at time now and, if
// capacity remains, records now and returns true. A request at exactly
// the window boundary (age == span) is outside the window: windows are
// half-open (now-span, now].
func (w *Window) Allow(now time.Time, max int, span time.Duration) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastAccess = now
	w.pruneLocked(now, span)

	if len(w.timestamps) >= max {
		return false
	}
	w.timestamps = append(w.timestamps, now)
	return true
}

// Count returns the number of requests currently inside the window.
func (w *Window) Count(now time.Time, span time.Duration) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now, span)
	return len(w.timestamps)
}

// pruneLocked drops timestamps with age >= span. Caller holds mu.
func (w *Window) pruneLocked(now time.Time, span time.Duration) {
	cutoff := now.Add(-span)
	i := 0
	for i < len(w.timestamps) && !w.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.timestamps = append(w.timestamps[:0], w.timestamps[i:]...)
	}
}

// idleSince reports whether the window has not been touched since t.
func (w *Window) idleSince(t time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastAccess.Before(t)
}
