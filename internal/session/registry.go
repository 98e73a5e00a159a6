package session

import (
	"sync"

	"github.com/zaploop/zaploop/internal/common/cnst"
	"go.uber.org/zap"
)

// Registry is the single source of truth for which sessions exist. It is an
// injected dependency, never a package global, so orchestrators can be tested
// in isolation.
type Registry struct {
	logger *zap.Logger
	mu     sync.RWMutex
	byID   map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger: logger.Named("session.registry"),
		byID:   make(map[string]*Session),
	}
}

// Register inserts the control block under its id. The check and the insert
// happen under one lock, so of two concurrent starts for the same id exactly
// one wins; the loser gets the winner's control block and ErrSessionExists.
func (r *Registry) Register(s *Session) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byID[s.ID()]; ok {
		return existing, cnst.ErrSessionExists
	}
	r.byID[s.ID()] = s
	return s, nil
}

// Lookup returns the control block for the id, if registered.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

// Remove deletes the id. It reports whether the id was registered, and only
// removes the given control block if one is supplied, so a stale cleanup
// cannot evict a newer session registered under the same id.
func (r *Registry) Remove(id string, expect *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return false
	}
	if expect != nil && current != expect {
		return false
	}
	delete(r.byID, id)
	return true
}

// IDs returns a snapshot of the registered session ids.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	return ids
}

// All returns a snapshot of the registered control blocks.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s)
	}
	return out
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
