// Package orchestrator drives every session's lifecycle: it owns the registry,
// runs one event loop per session, applies the reconnect budget and the
// pairing deadline, and fans session activity out to the notification sinks.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/skip2/go-qrcode"
	"github.com/zaploop/zaploop/internal/common/cnst"
	"github.com/zaploop/zaploop/internal/common/config"
	"github.com/zaploop/zaploop/internal/mirror"
	"github.com/zaploop/zaploop/internal/notify"
	"github.com/zaploop/zaploop/internal/provider"
	"github.com/zaploop/zaploop/internal/session"
	"github.com/zaploop/zaploop/internal/store"
	"github.com/zaploop/zaploop/pkg/metrics"
	"go.uber.org/zap"
)

const pairingImageSize = 256

// Orchestrator coordinates session lifecycles. All public methods are safe for
// concurrent use.
type Orchestrator struct {
	logger   *zap.Logger
	cfg      config.SessionConfig
	provider provider.Provider
	store    *store.DiskStore
	registry *session.Registry
	retries  *session.RetryTracker
	hub      *notify.Hub
	webhook  *notify.WebhookSink
	metrics  *metrics.Metrics

	alwaysRetry map[string]bool

	mu       sync.Mutex
	shutting bool
	wg       sync.WaitGroup
}

// New wires an orchestrator from its collaborators.
func New(
	logger *zap.Logger,
	cfg config.SessionConfig,
	p provider.Provider,
	st *store.DiskStore,
	hub *notify.Hub,
	webhook *notify.WebhookSink,
	m *metrics.Metrics,
) *Orchestrator {
	always := make(map[string]bool, len(cfg.AlwaysRetry))
	for _, id := range cfg.AlwaysRetry {
		always[id] = true
	}
	return &Orchestrator{
		logger:      logger.Named("orchestrator"),
		cfg:         cfg,
		provider:    p,
		store:       st,
		registry:    session.NewRegistry(logger),
		retries:     session.NewRetryTracker(),
		hub:         hub,
		webhook:     webhook,
		metrics:     m,
		alwaysRetry: always,
	}
}

// Registry exposes the session registry for read-side consumers.
func (o *Orchestrator) Registry() *session.Registry {
	return o.registry
}

// StartSession validates the id, claims it in the registry, performs the first
// connect synchronously and hands the connection to a background event loop.
// When the id is already registered the existing control block is returned
// together with ErrSessionExists.
func (o *Orchestrator) StartSession(ctx context.Context, id string) (*session.Session, error) {
	if err := session.ValidateID(id); err != nil {
		return nil, err
	}
	if o.shuttingDown() {
		return nil, cnst.ErrShuttingDown
	}

	s := session.New(id, mirror.New(o.logger, o.store, id))
	if winner, err := o.registry.Register(s); err != nil {
		return winner, err
	}

	dir, err := o.store.EnsureSession(id)
	if err != nil {
		o.abandonStart(s, err)
		return nil, err
	}
	s.Mirror().Load()

	s.SetState(session.StateConnecting)
	o.logger.Info("starting session", zap.String("session", id))

	conn, err := o.provider.Connect(ctx, id, dir)
	if err != nil {
		o.logger.Error("initial connect failed", zap.String("session", id), zap.Error(err))
		o.metrics.SessionStart("error")
		o.abandonStart(s, err)
		return nil, err
	}
	s.SetConn(conn)

	loopCtx, cancel := context.WithCancel(context.Background())
	s.BindCancel(cancel)
	o.wg.Add(1)
	go o.runLoop(loopCtx, s, conn)

	o.metrics.SessionStart("ok")
	o.metrics.SessionUp()
	return s, nil
}

// abandonStart rolls back a registration whose connect never got off the
// ground.
func (o *Orchestrator) abandonStart(s *session.Session, cause error) {
	s.SetLastError(cause)
	s.SetState(session.StateTerminated)
	o.registry.Remove(s.ID(), s)
}

// runLoop consumes the session's ordered event stream until the connection
// terminates or the loop context is cancelled. All state transitions for a
// live session happen here, so events are never handled out of order.
func (o *Orchestrator) runLoop(ctx context.Context, s *session.Session, conn provider.Conn) {
	defer o.wg.Done()

	log := o.logger.With(zap.String("session", s.ID()))

	pairing := time.NewTimer(o.cfg.PairingTimeout)
	defer pairing.Stop()
	flush := time.NewTicker(o.cfg.FlushInterval)
	defer flush.Stop()

	events := conn.Events()
	for {
		select {
		case <-ctx.Done():
			s.Mirror().Flush()
			return

		case <-pairing.C:
			log.Warn("pairing window expired, terminating session")
			s.SetLastError(cnst.ErrPairingTimeout)
			o.metrics.PairingTimeout()
			o.finish(s, false)
			return

		case <-flush.C:
			s.Mirror().Flush()

		case evt, ok := <-events:
			if !ok {
				// stream closed without a disconnect event; treat it
				// as a lost connection
				evt = provider.Event{Kind: provider.EventDisconnected, Reason: provider.DisconnectConnectionLost}
			}

			switch evt.Kind {
			case provider.EventConnected:
				log.Info("session open")
				stopTimer(pairing)
				s.ClearArtifact()
				s.SetLastError(nil)
				s.SetState(session.StateOpen)
				o.retries.Reset(s.ID())
				o.hub.Publish(notify.New(s.ID(), "status", string(session.StateOpen)))

			case provider.EventPairingCode:
				if !o.acceptPairingCode(s, evt.PairingCode, log) {
					o.finish(s, false)
					return
				}

			case provider.EventDisconnected:
				log.Warn("session disconnected", zap.String("reason", string(evt.Reason)))
				next, ok := o.afterDisconnect(ctx, s, evt.Reason, log)
				if !ok {
					return
				}
				conn = next
				events = conn.Events()
				resetTimer(pairing, o.cfg.PairingTimeout)

			case provider.EventMessages:
				s.Mirror().Apply(evt)
				s.Touch()
				o.hub.Publish(notify.New(s.ID(), "message", evt.Messages))
				if !evt.IsEcho {
					// one webhook call per message, senders as bare numbers
					for _, msg := range evt.Messages {
						msg.From = provider.BareNumber(msg.From)
						o.webhook.Notify(notify.New(s.ID(), "message", msg))
					}
				}

			case provider.EventHistorySync, provider.EventContacts:
				if s.Mirror().Apply(evt) {
					s.Mirror().Flush()
				}

			case provider.EventCredentials:
				if evt.Credential == nil {
					continue
				}
				if err := o.store.WriteCredential(s.ID(), evt.Credential.Name, evt.Credential.Data); err != nil {
					log.Error("failed to persist rotated credentials", zap.Error(err))
				}
			}
		}
	}
}

// acceptPairingCode records a fresh pairing payload. The issue time of the
// first code of the attempt is kept, so a stream of regenerated codes cannot
// extend the pairing window. It reports false once that window is already
// spent.
func (o *Orchestrator) acceptPairingCode(s *session.Session, code string, log *zap.Logger) bool {
	issued := time.Now()
	if prev := s.Artifact(); prev != nil {
		if time.Since(prev.IssuedAt) > o.cfg.PairingTimeout {
			log.Warn("pairing window expired, terminating session")
			s.SetLastError(cnst.ErrPairingTimeout)
			o.metrics.PairingTimeout()
			return false
		}
		issued = prev.IssuedAt
	}

	png, err := qrcode.Encode(code, qrcode.Medium, pairingImageSize)
	if err != nil {
		log.Error("failed to render pairing image", zap.Error(err))
	}
	s.SetArtifact(&session.PairingArtifact{Code: code, PNG: png, IssuedAt: issued})
	s.SetState(session.StateAuthPending)
	o.hub.Publish(notify.New(s.ID(), "qrcode", code))
	return true
}

// afterDisconnect decides what a dropped connection becomes: a terminal state
// or a fresh connection obtained within the retry budget.
func (o *Orchestrator) afterDisconnect(ctx context.Context, s *session.Session, reason provider.DisconnectReason, log *zap.Logger) (provider.Conn, bool) {
	if !reason.Recoverable() {
		// a remote logout invalidates the stored credentials; keep them
		// for every other terminal reason
		o.finish(s, reason == provider.DisconnectLoggedOut)
		return nil, false
	}

	for {
		if o.shuttingDown() {
			o.finish(s, false)
			return nil, false
		}
		if !o.allowRetry(s.ID()) {
			log.Warn("retry budget exhausted, removing session")
			s.SetLastError(cnst.ErrRetryBudgetExhausted)
			o.metrics.RetryExhausted()
			o.retries.Remove(s.ID())
			o.finish(s, false)
			return nil, false
		}

		select {
		case <-ctx.Done():
			s.Mirror().Flush()
			return nil, false
		case <-time.After(o.cfg.RetryDelay):
		}

		attempt := o.retries.Incr(s.ID())
		o.metrics.ReconnectAttempt()
		s.SetState(session.StateConnecting)
		log.Info("reconnecting", zap.Int("attempt", attempt))

		conn, err := o.provider.Connect(ctx, s.ID(), o.store.SessionDir(s.ID()))
		if err != nil {
			log.Warn("reconnect attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			s.SetLastError(err)
			continue
		}
		s.SetConn(conn)
		return conn, true
	}
}

// allowRetry applies the budget, with the configured exemption list.
func (o *Orchestrator) allowRetry(id string) bool {
	if o.alwaysRetry[id] {
		return true
	}
	return o.retries.Count(id) < o.cfg.MaxRetries
}

// finish tears the session down from inside its own loop.
func (o *Orchestrator) finish(s *session.Session, erase bool) {
	o.teardown(s, erase)
}

// teardown closes the connection, persists or erases the session's directory
// and retires the control block. Safe to invoke more than once for the same
// block.
func (o *Orchestrator) teardown(s *session.Session, erase bool) {
	s.SetState(session.StateClosing)
	if erase {
		// the dying loop's final flush must not recreate the directory
		s.Mirror().Discard()
	}
	s.CancelLoop()

	if conn := s.Conn(); conn != nil {
		if err := conn.Close(); err != nil {
			o.logger.Warn("closing connection failed", zap.String("session", s.ID()), zap.Error(err))
		}
		s.SetConn(nil)
	}

	if erase {
		if err := o.store.DeleteSession(s.ID()); err != nil {
			o.logger.Error("failed to erase session directory", zap.String("session", s.ID()), zap.Error(err))
		}
	} else {
		s.Mirror().Flush()
	}

	s.SetState(session.StateTerminated)
	if o.registry.Remove(s.ID(), s) {
		o.metrics.SessionDown()
	}
	o.retries.Remove(s.ID())
}

func (o *Orchestrator) shuttingDown() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.shutting
}

// stopTimer drains and stops a timer so it can never fire afterwards.
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

// resetTimer re-arms a timer for a fresh attempt window.
func resetTimer(t *time.Timer, d time.Duration) {
	stopTimer(t)
	t.Reset(d)
}
