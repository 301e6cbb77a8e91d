// Package state holds the mutable runtime counters consumed by the
// policy engine: sliding-window request timestamps for rate limits and
// windowed spending accumulators for spending caps.
//
// Entries are keyed by (policy ordinal, subject value), so two policies
// never share state even when they key on the same subject field. Each
// entry carries its own mutex: concurrent requests from the same
// subject serialize their read-modify-write, while requests from
// different subjects proceed in parallel. The entry maps themselves are
// sharded to keep lookup contention low.
//
// State lives only in memory. A process restart resets every counter;
// that is a documented property of the system, not a bug.
package state
