package notify

import (
	"sync"

	"github.com/google/uuid"
	"github.com/zaploop/zaploop/pkg/metrics"
	"go.uber.org/zap"
)

// Hub delivers notifications to in-process subscribers over buffered channels.
// Publish never blocks: a subscriber whose buffer is full loses the event and
// the drop is logged and counted.
type Hub struct {
	logger    *zap.Logger
	queueSize int
	metrics   *metrics.Metrics

	mu   sync.RWMutex
	subs map[string]chan Notification
}

// NewHub creates a hub whose subscriber channels buffer queueSize events.
func NewHub(logger *zap.Logger, queueSize int, m *metrics.Metrics) *Hub {
	return &Hub{
		logger:    logger.Named("notify.hub"),
		queueSize: queueSize,
		metrics:   m,
		subs:      make(map[string]chan Notification),
	}
}

// Subscribe registers a new consumer and returns its id plus receive channel.
// The channel is closed on Unsubscribe.
func (h *Hub) Subscribe() (string, <-chan Notification) {
	id := uuid.NewString()
	ch := make(chan Notification, h.queueSize)

	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()

	h.logger.Debug("subscriber attached", zap.String("subscriber", id))
	return id, ch
}

// Unsubscribe detaches the consumer and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	ch, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	h.mu.Unlock()

	if ok {
		close(ch)
		h.logger.Debug("subscriber detached", zap.String("subscriber", id))
	}
}

// Publish offers the notification to every subscriber without blocking.
func (h *Hub) Publish(n Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs {
		select {
		case ch <- n:
		default:
			h.logger.Warn("dropping notification for slow subscriber",
				zap.String("subscriber", id),
				zap.String("session", n.SessionID),
				zap.String("type", n.MessageType))
			if h.metrics != nil {
				h.metrics.PushDropped()
			}
		}
	}
}

// Len returns the number of attached subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
