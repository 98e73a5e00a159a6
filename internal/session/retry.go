package session

import (
	"sync"
	"time"
)

// RetryTracker counts reconnect attempts per session id. It lives outside the
// control block so counters can be inspected and reset independently of
// whether a control block currently exists.
type RetryTracker struct {
	mu          sync.Mutex
	counts      map[string]int
	lastAttempt map[string]time.Time
}

// NewRetryTracker creates an empty tracker.
func NewRetryTracker() *RetryTracker {
	return &RetryTracker{
		counts:      make(map[string]int),
		lastAttempt: make(map[string]time.Time),
	}
}

// Incr records one more attempt for the id and returns the new count.
func (t *RetryTracker) Incr(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[id]++
	t.lastAttempt[id] = time.Now()
	return t.counts[id]
}

// Count returns the attempts recorded for the id since its last reset.
func (t *RetryTracker) Count(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[id]
}

// Reset zeroes the counter for the id; called when a session reaches Open.
func (t *RetryTracker) Reset(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[id] = 0
}

// Remove deletes the id's entry entirely, so a later manual start gets a
// fresh budget.
func (t *RetryTracker) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.counts, id)
	delete(t.lastAttempt, id)
}

// Has reports whether the id has a live entry.
func (t *RetryTracker) Has(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.counts[id]
	return ok
}

// LastAttempt returns when the id last attempted to connect.
func (t *RetryTracker) LastAttempt(id string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	at, ok := t.lastAttempt[id]
	return at, ok
}
