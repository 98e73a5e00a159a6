package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/zaploop/zaploop/internal/common/cnst"
	"github.com/zaploop/zaploop/internal/mirror"
	"github.com/zaploop/zaploop/internal/provider"
	"github.com/zaploop/zaploop/internal/session"
	"go.uber.org/zap"
)

// Typing simulation pacing. A send that asks for it announces composing,
// waits proportionally to the text length and announces paused before the
// actual delivery.
const (
	typingBase    = time.Second
	typingPerChar = 250 * time.Millisecond
	typingMax     = 15 * time.Second
)

// Presence auto-reset bounds.
const (
	presenceMinDuration     = 100 * time.Millisecond
	presenceMaxDuration     = 30 * time.Second
	presenceDefaultDuration = 5 * time.Second
)

// Status is the read model returned for one session.
type Status struct {
	ID          string        `json:"id"`
	State       session.State `json:"state"`
	HasArtifact bool          `json:"hasArtifact"`
	CreatedAt   time.Time     `json:"createdAt"`
	LastEventAt time.Time     `json:"lastEventAt"`
	RetryCount  int           `json:"retryCount"`
	LastError   string        `json:"lastError,omitempty"`
	Contacts    int           `json:"contacts"`
	Chats       int           `json:"chats"`
	Messages    int           `json:"messages"`
}

// GetStatus returns the session's current lifecycle view.
func (o *Orchestrator) GetStatus(id string) (*Status, error) {
	s, ok := o.registry.Lookup(id)
	if !ok {
		return nil, cnst.ErrSessionNotFound
	}

	st := &Status{
		ID:          s.ID(),
		State:       s.State(),
		HasArtifact: s.Artifact() != nil,
		CreatedAt:   s.CreatedAt(),
		LastEventAt: s.LastEventAt(),
		RetryCount:  o.retries.Count(id),
	}
	if err := s.LastError(); err != nil {
		st.LastError = err.Error()
	}
	st.Contacts, st.Chats, st.Messages = s.Mirror().Counts()
	return st, nil
}

// PairingImage returns the rendered PNG for the session's pending pairing
// code. An authenticated or codeless session yields ErrArtifactNotAvailable,
// distinct from an unknown session id.
func (o *Orchestrator) PairingImage(id string) ([]byte, error) {
	s, ok := o.registry.Lookup(id)
	if !ok {
		return nil, cnst.ErrSessionNotFound
	}

	art := s.Artifact()
	if art == nil || s.State() != session.StateAuthPending {
		return nil, cnst.ErrArtifactNotAvailable
	}
	if len(art.PNG) == 0 {
		return nil, cnst.ErrArtifactNotAvailable
	}
	return art.PNG, nil
}

// MirrorSnapshot returns the session's cached contacts, chats and messages.
// Reads come straight from memory and never touch the provider.
func (o *Orchestrator) MirrorSnapshot(id string) (*mirror.Snapshot, error) {
	s, ok := o.registry.Lookup(id)
	if !ok {
		return nil, cnst.ErrSessionNotFound
	}
	snap := s.Mirror().Snapshot()
	return &snap, nil
}

// SendOptions modulate an outbound delivery.
type SendOptions struct {
	// SimulateTyping announces composing and paces the delivery by the text
	// length before actually sending.
	SimulateTyping bool
}

// Send delivers an outbound message through the session's open connection.
func (o *Orchestrator) Send(ctx context.Context, id string, req provider.SendRequest, opts SendOptions) (*provider.SendResult, error) {
	s, conn, err := o.openConn(id)
	if err != nil {
		o.metrics.MessageSent(string(req.Kind), "error")
		return nil, err
	}

	if opts.SimulateTyping && req.Kind == provider.SendText {
		if err := o.simulateTyping(ctx, conn, req.JID, req.Text); err != nil {
			o.metrics.MessageSent(string(req.Kind), "error")
			return nil, err
		}
	}

	res, err := conn.Send(ctx, req)
	if err != nil {
		o.logger.Error("send failed",
			zap.String("session", s.ID()),
			zap.String("kind", string(req.Kind)),
			zap.Error(err))
		o.metrics.MessageSent(string(req.Kind), "error")
		return nil, err
	}
	o.metrics.MessageSent(string(req.Kind), "ok")
	return res, nil
}

// simulateTyping paces a text delivery like a human writing it.
func (o *Orchestrator) simulateTyping(ctx context.Context, conn provider.Conn, jid, text string) error {
	if err := conn.Presence(ctx, jid, provider.PresenceComposing); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(typingDelay(text)):
	}
	return conn.Presence(ctx, jid, provider.PresencePaused)
}

// typingDelay scales with text length and is capped to keep long messages
// from stalling the caller.
func typingDelay(text string) time.Duration {
	d := typingBase + time.Duration(len(text))*typingPerChar
	if d > typingMax {
		return typingMax
	}
	return d
}

// Presence publishes a chat-state update and schedules the automatic reset to
// available after the clamped duration.
func (o *Orchestrator) Presence(ctx context.Context, id, jid string, kind provider.PresenceKind, duration time.Duration) error {
	if !provider.ValidPresence(kind) {
		return errors.New("unsupported presence kind: " + string(kind))
	}

	s, conn, err := o.openConn(id)
	if err != nil {
		return err
	}
	if err := conn.Presence(ctx, jid, kind); err != nil {
		return err
	}

	duration = clampPresence(duration)
	time.AfterFunc(duration, func() {
		// only reset while this very connection is still the open one
		if s.State() != session.StateOpen || s.Conn() != conn {
			return
		}
		if err := conn.Presence(context.Background(), jid, provider.PresenceAvailable); err != nil {
			o.logger.Warn("presence reset failed", zap.String("session", id), zap.Error(err))
		}
	})
	return nil
}

// clampPresence bounds the requested duration, defaulting when unset.
func clampPresence(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return presenceDefaultDuration
	case d < presenceMinDuration:
		return presenceMinDuration
	case d > presenceMaxDuration:
		return presenceMaxDuration
	}
	return d
}

// openConn resolves the session and requires an authenticated connection.
func (o *Orchestrator) openConn(id string) (*session.Session, provider.Conn, error) {
	s, ok := o.registry.Lookup(id)
	if !ok {
		return nil, nil, cnst.ErrSessionNotFound
	}
	if s.State() != session.StateOpen {
		return nil, nil, cnst.ErrSessionNotOpen
	}
	conn := s.Conn()
	if conn == nil {
		return nil, nil, cnst.ErrSessionNotOpen
	}
	return s, conn, nil
}
