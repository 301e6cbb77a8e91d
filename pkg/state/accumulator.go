package state

import (
	"sync"
	"time"
)

// Accumulator is a windowed running spend total for one (policy,
// subject) pair. The window reset is lazy: it happens on the next
// access after the window elapses, not on a timer. A subject that goes
// quiet across a window boundary and returns is still reset correctly
// before the cap is checked.
type Accumulator struct {
	mu          sync.Mutex
	total       float64
	windowStart time.Time
	lastAccess  time.Time
}

// Spend checks amount against max over span at time now. When the
// spend fits, it is added to the running total and Spend returns true.
// A denied spend is not added to the total.
func (a *Accumulator) Spend(now time.Time, amount, max float64, span time.Duration) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.lastAccess = now
	a.resetIfElapsedLocked(now, span)

	if a.total+amount > max {
		return false
	}
	a.total += amount
	return true
}

// Total returns the running total inside the current window.
func (a *Accumulator) Total(now time.Time, span time.Duration) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.resetIfElapsedLocked(now, span)
	return a.total
}

// resetIfElapsedLocked starts a fresh window when the current one has
// fully elapsed. Caller holds mu.
func (a *Accumulator) resetIfElapsedLocked(now time.Time, span time.Duration) {
	if a.windowStart.IsZero() {
		a.windowStart = now
		return
	}
	if now.Sub(a.windowStart) >= span {
		a.total = 0
		a.windowStart = now
	}
}

// idleSince reports whether the accumulator has not been touched since t.
func (a *Accumulator) idleSince(t time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastAccess.Before(t)
}
