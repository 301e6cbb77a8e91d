package state

import (
	"sync"
	"testing"
	"time"
)

func TestWindow_AllowUpToLimit(t *testing.T) {
	w := &Window{}
	now := time.Now()

	for i := 0; i < 5; i++ {
		if !w.Allow(now.Add(time.Duration(i)*time.Second), 5, time.Minute) {
			t.Fatalf("request %d: expected allow", i)
		}
	}
	if w.Allow(now.Add(10*time.Second), 5, time.Minute) {
		t.Error("6th request inside the window should be rejected")
	}
}

func TestWindow_SlidesForward(t *testing.T) {
	w := &Window{}
	start := time.Now()

	for i := 0; i < 3; i++ {
		if !w.Allow(start, 3, time.Minute) {
			t.Fatalf("request %d: expected allow", i)
		}
	}
	if w.Allow(start.Add(30*time.Second), 3, time.Minute) {
		t.Error("expected reject while window still holds 3 entries")
	}

	// One full window later, the old entries have aged out.
	if !w.Allow(start.Add(time.Minute+time.Second), 3, time.Minute) {
		t.Error("expected allow after the window slid past the old entries")
	}
}

func TestWindow_BoundaryIsHalfOpen(t *testing.T) {
	w := &Window{}
	start := time.Now()

	if !w.Allow(start, 1, time.Minute) {
		t.Fatal("first request should pass")
	}

	// A check exactly window_seconds later: the original entry has
	// age == span and is pruned, so the request passes.
	if !w.Allow(start.Add(time.Minute), 1, time.Minute) {
		t.Error("entry at exactly the window boundary must be outside the window")
	}
}

func TestWindow_RejectedRequestNotRecorded(t *testing.T) {
	w := &Window{}
	now := time.Now()

	w.Allow(now, 1, time.Minute)
	w.Allow(now.Add(time.Second), 1, time.Minute) // rejected

	if got := w.Count(now.Add(2*time.Second), time.Minute); got != 1 {
		t.Errorf("rejected requests must not be recorded: count = %d", got)
	}
}

func TestWindow_MemoryBoundedByPruning(t *testing.T) {
	w := &Window{}
	start := time.Now()

	// Many requests spread over a long period: the deque never grows
	// past the limit because aged entries are pruned on every check.
	for i := 0; i < 1000; i++ {
		w.Allow(start.Add(time.Duration(i)*time.Second), 10, 10*time.Second)
	}
	if n := len(w.timestamps); n > 10 {
		t.Errorf("window holds %d timestamps, expected at most 10", n)
	}
}

func TestAccumulator_SpendToExactCap(t *testing.T) {
	a := &Accumulator{}
	now := time.Now()

	// Spends summing to exactly the cap all pass.
	for _, amount := range []float64{4.0, 4.0, 2.0} {
		if !a.Spend(now, amount, 10.0, time.Hour) {
			t.Fatalf("spend %v within cap should pass", amount)
		}
	}
	// The next cent tips over.
	if a.Spend(now, 0.01, 10.0, time.Hour) {
		t.Error("spend beyond the cap should be denied")
	}
}

func TestAccumulator_DeniedSpendNotAdded(t *testing.T) {
	a := &Accumulator{}
	now := time.Now()

	a.Spend(now, 4.0, 10.0, time.Hour)
	a.Spend(now, 4.0, 10.0, time.Hour)
	if a.Spend(now, 3.0, 10.0, time.Hour) {
		t.Fatal("8+3 > 10 should be denied")
	}

	if got := a.Total(now, time.Hour); got != 8.0 {
		t.Errorf("denied amount must not accumulate: total = %v, want 8.0", got)
	}

	// A smaller spend that fits still passes.
	if !a.Spend(now, 2.0, 10.0, time.Hour) {
		t.Error("8+2 == 10 should still pass")
	}
}

func TestAccumulator_LazyWindowReset(t *testing.T) {
	a := &Accumulator{}
	start := time.Now()

	a.Spend(start, 10.0, 10.0, time.Hour)
	if a.Spend(start.Add(time.Minute), 1.0, 10.0, time.Hour) {
		t.Fatal("cap is exhausted inside the window")
	}

	// The subject goes quiet past the window boundary; the reset
	// happens lazily on the next access.
	if !a.Spend(start.Add(2*time.Hour), 10.0, 10.0, time.Hour) {
		t.Error("expected fresh window after the boundary")
	}
	if got := a.Total(start.Add(2*time.Hour), time.Hour); got != 10.0 {
		t.Errorf("total after reset = %v, want 10.0", got)
	}
}

func TestMemoryStore_SeparateStatePerPolicy(t *testing.T) {
	s := NewMemoryStore()

	w1 := s.Window(0, "agent-1")
	w2 := s.Window(1, "agent-1")
	if w1 == w2 {
		t.Error("two policies keyed on the same subject must not share state")
	}

	if got := s.Window(0, "agent-1"); got != w1 {
		t.Error("same (policy, subject) must return the same window")
	}
}

func TestMemoryStore_SeparateStatePerSubject(t *testing.T) {
	s := NewMemoryStore()
	if s.Accumulator(0, "wallet-a") == s.Accumulator(0, "wallet-b") {
		t.Error("different subjects must not share an accumulator")
	}
}

func TestMemoryStore_Len(t *testing.T) {
	s := NewMemoryStore()
	s.Window(0, "a")
	s.Window(0, "b")
	s.Accumulator(1, "a")
	if got := s.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	s := NewMemoryStore()
	old := time.Now().Add(-time.Hour)

	s.Window(0, "stale").Allow(old, 10, time.Minute)
	s.Window(0, "fresh").Allow(time.Now(), 10, time.Minute)

	removed := s.Sweep(10 * time.Minute)
	if removed != 1 {
		t.Errorf("Sweep removed %d entries, want 1", removed)
	}
	if got := s.Len(); got != 1 {
		t.Errorf("Len() after sweep = %d, want 1", got)
	}
}

func TestWindow_ConcurrentSameSubject(t *testing.T) {
	// The classic lost-update race: N concurrent requests against a
	// limit of N must admit exactly N, never N+1.
	const limit = 50
	const attempts = 200

	s := NewMemoryStore()
	now := time.Now()

	var wg sync.WaitGroup
	allowed := make(chan bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := s.Window(0, "agent-1")
			allowed <- w.Allow(now, limit, time.Minute)
		}()
	}
	wg.Wait()
	close(allowed)

	n := 0
	for ok := range allowed {
		if ok {
			n++
		}
	}
	if n != limit {
		t.Errorf("admitted %d concurrent requests, want exactly %d", n, limit)
	}
}

func TestAccumulator_ConcurrentSameSubject(t *testing.T) {
	const attempts = 100

	s := NewMemoryStore()
	now := time.Now()

	var wg sync.WaitGroup
	allowed := make(chan bool, attempts)

	// Cap of 50 with unit spends: exactly 50 must pass.
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a := s.Accumulator(0, "wallet-1")
			allowed <- a.Spend(now, 1.0, 50.0, time.Hour)
		}()
	}
	wg.Wait()
	close(allowed)

	n := 0
	for ok := range allowed {
		if ok {
			n++
		}
	}
	if n != 50 {
		t.Errorf("admitted %d concurrent unit spends, want exactly 50", n)
	}
}
