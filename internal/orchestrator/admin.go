package orchestrator

import (
	"context"
	"errors"
	"sort"

	"github.com/zaploop/zaploop/internal/common/cnst"
	"github.com/zaploop/zaploop/internal/session"
	"go.uber.org/zap"
)

// DeleteSession logs the session out, erases its directory including the
// credentials, and retires the control block. Deleting an id that only exists
// on disk erases the directory; an id known nowhere is ErrSessionNotFound.
func (o *Orchestrator) DeleteSession(ctx context.Context, id string) error {
	s, ok := o.registry.Lookup(id)
	if !ok {
		if !o.store.HasSession(id) {
			return cnst.ErrSessionNotFound
		}
		return o.store.DeleteSession(id)
	}

	o.logger.Info("deleting session", zap.String("session", id))
	if conn := s.Conn(); conn != nil {
		if err := conn.Logout(ctx); err != nil {
			o.logger.Warn("logout failed, erasing local credentials anyway",
				zap.String("session", id), zap.Error(err))
		}
	}

	s.CancelLoop()
	o.teardown(s, true)
	o.retries.Remove(id)
	return nil
}

// ReconnectSession stops the session's current loop without touching its
// credentials and starts it again with a fresh retry budget.
func (o *Orchestrator) ReconnectSession(ctx context.Context, id string) (*session.Session, error) {
	if err := session.ValidateID(id); err != nil {
		return nil, err
	}

	if s, ok := o.registry.Lookup(id); ok {
		o.logger.Info("restarting session", zap.String("session", id))
		s.CancelLoop()
		o.teardown(s, false)
	} else if !o.store.HasSession(id) {
		return nil, cnst.ErrSessionNotFound
	}
	o.retries.Remove(id)

	return o.StartSession(ctx, id)
}

// RestartReport partitions a batch restore by outcome.
type RestartReport struct {
	Succeeded []string          `json:"succeeded"`
	Failed    map[string]string `json:"failed"`
}

// RestartAll starts a session for every directory under the store root. An id
// that is already running counts as succeeded; individual failures never stop
// the batch.
func (o *Orchestrator) RestartAll(ctx context.Context) (*RestartReport, error) {
	ids, err := o.store.ListSessions()
	if err != nil {
		return nil, err
	}

	report := &RestartReport{Failed: make(map[string]string)}
	for _, id := range ids {
		_, err := o.StartSession(ctx, id)
		switch {
		case err == nil, errors.Is(err, cnst.ErrSessionExists):
			report.Succeeded = append(report.Succeeded, id)
		default:
			report.Failed[id] = err.Error()
		}
	}
	sort.Strings(report.Succeeded)

	o.logger.Info("batch restore finished",
		zap.Int("succeeded", len(report.Succeeded)),
		zap.Int("failed", len(report.Failed)))
	return report, nil
}

// Wipeout force-terminates every session and erases the entire store root,
// credentials included. Open sessions are torn down like any other.
func (o *Orchestrator) Wipeout(ctx context.Context) (int, error) {
	sessions := o.registry.All()
	for _, s := range sessions {
		if conn := s.Conn(); conn != nil {
			if err := conn.Logout(ctx); err != nil {
				o.logger.Warn("logout failed during wipeout",
					zap.String("session", s.ID()), zap.Error(err))
			}
		}
		s.CancelLoop()
		o.teardown(s, true)
		o.retries.Remove(s.ID())
	}

	if err := o.store.DeleteAll(); err != nil {
		return len(sessions), err
	}
	o.logger.Warn("wipeout complete", zap.Int("sessions", len(sessions)))
	return len(sessions), nil
}

// Shutdown stops accepting new sessions, cancels every loop and waits for
// them to drain within the context deadline. Sessions still winding down at
// the deadline are reported, not awaited further.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.shutting = true
	o.mu.Unlock()

	sessions := o.registry.All()
	for _, s := range sessions {
		s.CancelLoop()
	}

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		o.logger.Warn("shutdown deadline reached with sessions still draining",
			zap.Int("remaining", o.registry.Len()))
		return ctx.Err()
	}

	for _, s := range sessions {
		o.teardown(s, false)
	}
	o.logger.Info("orchestrator stopped", zap.Int("sessions", len(sessions)))
	return nil
}
