package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zaploop/zaploop/internal/common/config"
)

type Metrics struct {
	registry   *prometheus.Registry
	namespace  string
	httpReqCnt *prometheus.CounterVec
	httpDur    *prometheus.HistogramVec
	httpInfl   *prometheus.GaugeVec

	sessionsLive    prometheus.Gauge
	sessionStarts   *prometheus.CounterVec
	reconnects      prometheus.Counter
	retryExhausted  prometheus.Counter
	pairingTimeouts prometheus.Counter
	sendCnt         *prometheus.CounterVec
	webhookCnt      *prometheus.CounterVec
	pushDrops       prometheus.Counter
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	r := prometheus.NewRegistry()
	// Register standard process and Go collectors
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	// Register basic HTTP metrics
	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: cfg.Buckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_inflight"}, []string{"route"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	sessionsLive := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "sessions_live"})
	sessionStarts := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "session_starts_total"}, []string{"outcome"})
	reconnects := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "session_reconnect_attempts_total"})
	retryExhausted := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "session_retry_exhausted_total"})
	pairingTimeouts := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "session_pairing_timeouts_total"})
	r.MustRegister(sessionsLive, sessionStarts, reconnects, retryExhausted, pairingTimeouts)

	sendCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "messages_sent_total"}, []string{"kind", "status"})
	webhookCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "webhook_deliveries_total"}, []string{"status"})
	pushDrops := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "push_dropped_total"})
	r.MustRegister(sendCnt, webhookCnt, pushDrops)

	return &Metrics{
		registry:        r,
		namespace:       ns,
		httpReqCnt:      httpReqCnt,
		httpDur:         httpDur,
		httpInfl:        httpInfl,
		sessionsLive:    sessionsLive,
		sessionStarts:   sessionStarts,
		reconnects:      reconnects,
		retryExhausted:  retryExhausted,
		pairingTimeouts: pairingTimeouts,
		sendCnt:         sendCnt,
		webhookCnt:      webhookCnt,
		pushDrops:       pushDrops,
	}
}

func (m *Metrics) SessionUp()   { m.sessionsLive.Inc() }
func (m *Metrics) SessionDown() { m.sessionsLive.Dec() }

func (m *Metrics) SessionStart(outcome string) {
	m.sessionStarts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ReconnectAttempt() { m.reconnects.Inc() }
func (m *Metrics) RetryExhausted()   { m.retryExhausted.Inc() }
func (m *Metrics) PairingTimeout()   { m.pairingTimeouts.Inc() }

func (m *Metrics) MessageSent(kind, status string) {
	m.sendCnt.WithLabelValues(kind, status).Inc()
}

func (m *Metrics) WebhookDelivery(status string) {
	m.webhookCnt.WithLabelValues(status).Inc()
}

func (m *Metrics) PushDropped() { m.pushDrops.Inc() }

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		m.httpInfl.WithLabelValues(route).Inc()
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpInfl.WithLabelValues(route).Dec()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
