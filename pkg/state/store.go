package state

import (
	"hash/fnv"
	"sync"
	"time"
)

// Store provides lazily created per-(policy, subject) counters to the
// engine. The interface decouples the engine from the concrete
// concurrency primitive; MemoryStore is the standard implementation.
type Store interface {
	// Window returns the rate-limit window for the policy at ordinal
	// and the given subject key, creating it on first use.
	Window(ordinal int, subject string) *Window

	// Accumulator returns the spending accumulator for the policy at
	// ordinal and the given subject key, creating it on first use.
	Accumulator(ordinal int, subject string) *Accumulator

	// Len returns the total number of live entries, for introspection.
	Len() int

	// Sweep drops entries idle for longer than maxIdle and returns the
	// number removed. Dropping an idle entry is safe: a re-created
	// window or accumulator starts empty, which is what a fully aged
	// window would report anyway.
	Sweep(maxIdle time.Duration) int
}

const shardCount = 32

// MemoryStore is the in-process Store. Entries live in sharded maps so
// unrelated subjects do not contend on a single lock; the per-entry
// mutexes inside Window and Accumulator serialize same-subject checks.
type MemoryStore struct {
	shards [shardCount]storeShard
}

type storeShard struct {
	mu           sync.Mutex
	windows      map[stateKey]*Window
	accumulators map[stateKey]*Accumulator
}

// stateKey identifies one counter: the policy's position in the set
// plus the subject value it is tracking.
type stateKey struct {
	ordinal int
	subject string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	for i := range s.shards {
		s.shards[i].windows = make(map[stateKey]*Window)
		s.shards[i].accumulators = make(map[stateKey]*Accumulator)
	}
	return s
}

// Window returns the window for (ordinal, subject), creating it lazily.
func (s *MemoryStore) Window(ordinal int, subject string) *Window {
	shard := s.shard(ordinal, subject)
	key := stateKey{ordinal: ordinal, subject: subject}

	shard.mu.Lock()
	defer shard.mu.Unlock()

	w, ok := shard.windows[key]
	if !ok {
		w = &Window{}
		shard.windows[key] = w
	}
	return w
}

// Accumulator returns the accumulator for (ordinal, subject), creating
// it lazily.
func (s *MemoryStore) Accumulator(ordinal int, subject string) *Accumulator {
	shard := s.shard(ordinal, subject)
	key := stateKey{ordinal: ordinal, subject: subject}

	shard.mu.Lock()
	defer shard.mu.Unlock()

	a, ok := shard.accumulators[key]
	if !ok {
		a = &Accumulator{}
		shard.accumulators[key] = a
	}
	return a
}

// Len returns the total number of live entries across all shards.
func (s *MemoryStore) Len() int {
	n := 0
	for i := range s.shards {
		shard := &s.shards[i]
		shard.mu.Lock()
		n += len(shard.windows) + len(shard.accumulators)
		shard.mu.Unlock()
	}
	return n
}

// Sweep removes entries idle since before now-maxIdle.
func (s *MemoryStore) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	removed := 0

	for i := range s.shards {
		shard := &s.shards[i]
		shard.mu.Lock()
		for key, w := range shard.windows {
			if w.idleSince(cutoff) {
				delete(shard.windows, key)
				removed++
			}
		}
		for key, a := range shard.accumulators {
			if a.idleSince(cutoff) {
				delete(shard.accumulators, key)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	return removed
}

// shard picks the shard for a key by FNV-1a hash of its components.
func (s *MemoryStore) shard(ordinal int, subject string) *storeShard {
	h := fnv.New32a()
	h.Write([]byte{byte(ordinal), byte(ordinal >> 8)})
	h.Write([]byte(subject))
	return &s.shards[h.Sum32()%shardCount]
}
