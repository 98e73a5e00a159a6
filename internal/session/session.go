// Package session holds the per-tenant control block and the registry that
// owns every control block in the process.
package session

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/zaploop/zaploop/internal/common/cnst"
	"github.com/zaploop/zaploop/internal/mirror"
	"github.com/zaploop/zaploop/internal/provider"
)

// State is a session's position in the connection lifecycle.
type State string

const (
	// StateIdle means the control block exists but no attempt started yet.
	StateIdle State = "idle"
	// StateConnecting means a connect call is in flight.
	StateConnecting State = "connecting"
	// StateAuthPending means a pairing code was issued and awaits the user.
	StateAuthPending State = "auth-pending"
	// StateOpen means the connection is authenticated and usable.
	StateOpen State = "open"
	// StateClosing means an explicit teardown is in progress.
	StateClosing State = "closing"
	// StateTerminated is absorbing; a new start creates a new control block.
	StateTerminated State = "terminated"
)

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateID enforces the session id contract: 3-50 characters from a
// restricted charset, checked before any state changes.
func ValidateID(id string) error {
	if len(id) < 3 || len(id) > 50 {
		return cnst.ErrInvalidSessionID
	}
	if !idPattern.MatchString(id) {
		return cnst.ErrInvalidSessionID
	}
	return nil
}

// PairingArtifact is the pending pairing payload plus its rendered image.
type PairingArtifact struct {
	Code     string
	PNG      []byte
	IssuedAt time.Time
}

// Session is the control block for one tenant's connection. The registry is
// the only owner; everyone else holds references.
type Session struct {
	id     string
	mirror *mirror.Mirror

	mu          sync.RWMutex
	state       State
	conn        provider.Conn
	artifact    *PairingArtifact
	lastErr     error
	createdAt   time.Time
	lastEventAt time.Time
	cancel      context.CancelFunc
}

// New creates a control block in the Idle state.
func New(id string, m *mirror.Mirror) *Session {
	now := time.Now()
	return &Session{
		id:          id,
		mirror:      m,
		state:       StateIdle,
		createdAt:   now,
		lastEventAt: now,
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Mirror returns the session's cache.
func (s *Session) Mirror() *mirror.Mirror { return s.mirror }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetState moves the session to a new lifecycle state.
func (s *Session) SetState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.lastEventAt = time.Now()
}

// Conn returns the current connection handle, nil outside
// Connecting/AuthPending/Open.
func (s *Session) Conn() provider.Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}

// SetConn swaps the connection handle.
func (s *Session) SetConn(conn provider.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
}

// Artifact returns the pending pairing artifact, or nil when already
// authenticated or none was issued yet.
func (s *Session) Artifact() *PairingArtifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.artifact
}

// SetArtifact stores a pairing artifact, overwriting any prior pending one.
func (s *Session) SetArtifact(a *PairingArtifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifact = a
	s.lastEventAt = time.Now()
}

// ClearArtifact drops the pending artifact once the session authenticates.
func (s *Session) ClearArtifact() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifact = nil
}

// LastError returns the terminal failure recorded for this control block.
func (s *Session) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// SetLastError records a terminal failure reason.
func (s *Session) SetLastError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

// CreatedAt returns when the control block was registered.
func (s *Session) CreatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.createdAt
}

// LastEventAt returns the time of the last observed activity.
func (s *Session) LastEventAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastEventAt
}

// Touch records activity on the session.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastEventAt = time.Now()
}

// BindCancel stores the cancel function for the session's event loop and any
// timers derived from its context.
func (s *Session) BindCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancel = cancel
}

// CancelLoop stops the session's event loop. Safe to call repeatedly.
func (s *Session) CancelLoop() {
	s.mu.RLock()
	cancel := s.cancel
	s.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}
