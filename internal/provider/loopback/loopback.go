// Package loopback is a self-contained development transport. A session pairs
// against itself: the first connect issues a pairing code and authenticates
// after a short delay by writing a credential file, later connects reuse that
// file, and every outbound send is reflected back as an inbound message. It
// exists so the gateway can be exercised end to end without a wire protocol.
package loopback

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zaploop/zaploop/internal/provider"
	"go.uber.org/zap"
)

const credsFile = "creds.json"

// Provider implements provider.Provider.
type Provider struct {
	logger       *zap.Logger
	pairingDelay time.Duration
}

var _ provider.Provider = (*Provider)(nil)

// New creates a loopback provider. pairingDelay is how long a fresh session
// stays in auth-pending before it self-authenticates.
func New(logger *zap.Logger, pairingDelay time.Duration) *Provider {
	if pairingDelay <= 0 {
		pairingDelay = 2 * time.Second
	}
	return &Provider{
		logger:       logger.Named("provider.loopback"),
		pairingDelay: pairingDelay,
	}
}

// Connect implements provider.Provider. The handshake outlives the call's
// context; it stops when the connection is closed.
func (p *Provider) Connect(_ context.Context, sessionID, credentialDir string) (provider.Conn, error) {
	c := &conn{
		logger:        p.logger.With(zap.String("session", sessionID)),
		credentialDir: credentialDir,
		events:        make(chan provider.Event, 16),
		done:          make(chan struct{}),
	}
	go c.bootstrap(p.pairingDelay)
	return c, nil
}

type conn struct {
	logger        *zap.Logger
	credentialDir string
	events        chan provider.Event
	done          chan struct{}

	mu     sync.Mutex
	closed bool
}

var _ provider.Conn = (*conn)(nil)

func (c *conn) Events() <-chan provider.Event {
	return c.events
}

// bootstrap authenticates immediately when credentials exist, otherwise runs
// the pairing handshake against itself.
func (c *conn) bootstrap(pairingDelay time.Duration) {
	credsPath := filepath.Join(c.credentialDir, credsFile)
	if _, err := os.Stat(credsPath); err == nil {
		c.emit(provider.Event{Kind: provider.EventConnected})
		return
	}

	c.emit(provider.Event{Kind: provider.EventPairingCode, PairingCode: uuid.NewString()})

	select {
	case <-c.done:
		return
	case <-time.After(pairingDelay):
	}

	if err := os.WriteFile(credsPath, []byte(`{"paired":true}`), 0600); err != nil {
		c.logger.Error("failed to write loopback credentials", zap.Error(err))
		c.emit(provider.Event{Kind: provider.EventDisconnected, Reason: provider.DisconnectStreamError})
		return
	}
	c.emit(provider.Event{Kind: provider.EventConnected})
}

// Send reflects the message back as an inbound one from the recipient.
func (c *conn) Send(_ context.Context, req provider.SendRequest) (*provider.SendResult, error) {
	now := time.Now()
	id := uuid.NewString()

	c.emit(provider.Event{
		Kind: provider.EventMessages,
		Messages: []provider.Message{{
			ID:        uuid.NewString(),
			From:      req.JID,
			Chat:      req.JID,
			Timestamp: now,
			Type:      string(req.Kind),
			Text:      req.Text,
			MediaURL:  req.MediaURL,
		}},
	})
	return &provider.SendResult{MessageID: id, Timestamp: now}, nil
}

func (c *conn) Presence(_ context.Context, jid string, kind provider.PresenceKind) error {
	c.logger.Debug("presence", zap.String("jid", jid), zap.String("kind", string(kind)))
	return nil
}

// Logout removes the credential file so the next connect pairs again.
func (c *conn) Logout(context.Context) error {
	return os.RemoveAll(filepath.Join(c.credentialDir, credsFile))
}

func (c *conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
		close(c.events)
	}
	return nil
}

// emit drops the event when the connection is closed or the buffer is full.
func (c *conn) emit(evt provider.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- evt:
	default:
		c.logger.Warn("event buffer full, dropping event", zap.String("kind", string(evt.Kind)))
	}
}
