package notify

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/zaploop/zaploop/internal/common/config"
	"github.com/zaploop/zaploop/pkg/metrics"
	"go.uber.org/zap"
)

// WebhookSink posts notifications to a configured HTTP endpoint. Delivery is
// fire and forget; a failed post is logged and never retried, and the session
// event loop is never held up by the receiver.
type WebhookSink struct {
	logger  *zap.Logger
	url     string
	origin  string
	client  *http.Client
	metrics *metrics.Metrics
}

// NewWebhookSink creates a sink from the webhook configuration. An empty URL
// yields a disabled sink.
func NewWebhookSink(logger *zap.Logger, cfg config.WebhookConfig, m *metrics.Metrics) *WebhookSink {
	return &WebhookSink{
		logger:  logger.Named("notify.webhook"),
		url:     cfg.URL,
		origin:  cfg.Origin,
		client:  &http.Client{Timeout: cfg.Timeout},
		metrics: m,
	}
}

// Enabled reports whether a webhook endpoint is configured.
func (s *WebhookSink) Enabled() bool {
	return s.url != ""
}

// Notify posts the notification in the background.
func (s *WebhookSink) Notify(n Notification) {
	if !s.Enabled() {
		return
	}
	go s.deliver(n)
}

func (s *WebhookSink) deliver(n Notification) {
	body, err := json.Marshal(n)
	if err != nil {
		s.logger.Error("failed to encode webhook payload",
			zap.String("session", n.SessionID), zap.Error(err))
		return
	}

	req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		s.logger.Error("failed to build webhook request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", s.origin)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("webhook delivery failed",
			zap.String("session", n.SessionID),
			zap.String("type", n.MessageType),
			zap.Error(err))
		s.record("error")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.logger.Warn("webhook endpoint rejected notification",
			zap.String("session", n.SessionID),
			zap.Int("status", resp.StatusCode))
		s.record("rejected")
		return
	}
	s.record("ok")
}

func (s *WebhookSink) record(status string) {
	if s.metrics != nil {
		s.metrics.WebhookDelivery(status)
	}
}
