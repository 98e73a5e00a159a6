// Package providertest provides a scriptable in-memory Provider for tests.
package providertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/zaploop/zaploop/internal/provider"
)

// Provider implements provider.Provider. Each Connect call produces a fresh
// Conn whose event stream the test drives by hand.
type Provider struct {
	mu       sync.Mutex
	conns    map[string][]*Conn
	failNext map[string]error

	// ConnectErr, when set, fails every Connect call.
	ConnectErr error
}

var _ provider.Provider = (*Provider)(nil)

// New creates an empty fake provider.
func New() *Provider {
	return &Provider{
		conns:    make(map[string][]*Conn),
		failNext: make(map[string]error),
	}
}

// FailNextConnect makes the next Connect call for the session fail with err.
func (p *Provider) FailNextConnect(sessionID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext[sessionID] = err
}

// Connect implements provider.Provider.
func (p *Provider) Connect(_ context.Context, sessionID, credentialDir string) (provider.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ConnectErr != nil {
		return nil, p.ConnectErr
	}
	if err, ok := p.failNext[sessionID]; ok {
		delete(p.failNext, sessionID)
		return nil, err
	}

	conn := &Conn{
		sessionID:     sessionID,
		credentialDir: credentialDir,
		events:        make(chan provider.Event, 64),
	}
	p.conns[sessionID] = append(p.conns[sessionID], conn)
	return conn, nil
}

// Conn returns the latest connection handed out for the session, or nil.
func (p *Provider) Conn(sessionID string) *Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	conns := p.conns[sessionID]
	if len(conns) == 0 {
		return nil
	}
	return conns[len(conns)-1]
}

// ConnectCount returns how many Connect calls succeeded for the session.
func (p *Provider) ConnectCount(sessionID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns[sessionID])
}

// Conn implements provider.Conn with recorded interactions.
type Conn struct {
	sessionID     string
	credentialDir string
	events        chan provider.Event

	mu        sync.Mutex
	sends     []provider.SendRequest
	presences []provider.PresenceKind
	loggedOut bool
	closed    bool

	// SendErr, when set, fails every Send call.
	SendErr error
}

var _ provider.Conn = (*Conn)(nil)

// Events implements provider.Conn.
func (c *Conn) Events() <-chan provider.Event {
	return c.events
}

// Send implements provider.Conn.
func (c *Conn) Send(_ context.Context, req provider.SendRequest) (*provider.SendResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return nil, c.SendErr
	}
	c.sends = append(c.sends, req)
	return &provider.SendResult{MessageID: fmt.Sprintf("msg-%d", len(c.sends))}, nil
}

// Presence implements provider.Conn.
func (c *Conn) Presence(_ context.Context, _ string, kind provider.PresenceKind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.presences = append(c.presences, kind)
	return nil
}

// Logout implements provider.Conn.
func (c *Conn) Logout(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loggedOut = true
	return nil
}

// Close implements provider.Conn.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// CloseEvents closes the event stream, simulating a transport that died
// without reporting a reason.
func (c *Conn) CloseEvents() {
	close(c.events)
}

// Emit pushes an event onto the connection's stream.
func (c *Conn) Emit(evt provider.Event) {
	c.events <- evt
}

// EmitConnected pushes a connection-established event.
func (c *Conn) EmitConnected() {
	c.Emit(provider.Event{Kind: provider.EventConnected})
}

// EmitPairingCode pushes a pairing payload.
func (c *Conn) EmitPairingCode(code string) {
	c.Emit(provider.Event{Kind: provider.EventPairingCode, PairingCode: code})
}

// EmitDisconnected pushes a disconnect with the given reason.
func (c *Conn) EmitDisconnected(reason provider.DisconnectReason) {
	c.Emit(provider.Event{Kind: provider.EventDisconnected, Reason: reason})
}

// EmitMessages pushes an inbound message batch.
func (c *Conn) EmitMessages(isEcho bool, msgs ...provider.Message) {
	c.Emit(provider.Event{Kind: provider.EventMessages, Messages: msgs, IsEcho: isEcho})
}

// Sends returns a copy of the recorded send requests.
func (c *Conn) Sends() []provider.SendRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]provider.SendRequest, len(c.sends))
	copy(out, c.sends)
	return out
}

// Presences returns a copy of the recorded presence updates.
func (c *Conn) Presences() []provider.PresenceKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]provider.PresenceKind, len(c.presences))
	copy(out, c.presences)
	return out
}

// LoggedOut reports whether Logout was called.
func (c *Conn) LoggedOut() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loggedOut
}

// Closed reports whether Close was called.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// CredentialDir returns the directory passed to Connect.
func (c *Conn) CredentialDir() string {
	return c.credentialDir
}
