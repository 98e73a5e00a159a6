// Package gateway exposes the orchestrator over HTTP: a REST control surface
// for session lifecycles and messaging, a websocket push channel and the
// Prometheus exposition endpoint.
package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/zaploop/zaploop/internal/common/config"
	"github.com/zaploop/zaploop/internal/notify"
	"github.com/zaploop/zaploop/internal/orchestrator"
	"github.com/zaploop/zaploop/pkg/metrics"
	"go.uber.org/zap"
)

// Server is the HTTP control surface.
type Server struct {
	logger    *zap.Logger
	cfg       config.ServerConfig
	orch      *orchestrator.Orchestrator
	hub       *notify.Hub
	metrics   *metrics.Metrics
	upgrader  websocket.Upgrader
	startedAt time.Time

	httpSrv *http.Server
}

// NewServer wires the control surface around an orchestrator.
func NewServer(logger *zap.Logger, cfg config.ServerConfig, orch *orchestrator.Orchestrator, hub *notify.Hub, m *metrics.Metrics) *Server {
	return &Server{
		logger:  logger.Named("gateway"),
		cfg:     cfg,
		orch:    orch,
		hub:     hub,
		metrics: m,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		startedAt: time.Now(),
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.metrics.Middleware())

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	router.GET("/ws", s.handleWS)

	sessions := router.Group("/sessions")
	{
		sessions.POST("", s.handleStartSession)
		sessions.GET("", s.handleListSessions)
		sessions.POST("/restart-all", s.handleRestartAll)
		sessions.POST("/wipeout", s.handleWipeout)
		sessions.GET("/:id/status", s.handleStatus)
		sessions.GET("/:id/qr", s.handlePairingImage)
		sessions.GET("/:id/mirror", s.handleMirror)
		sessions.POST("/:id/reconnect", s.handleReconnect)
		sessions.DELETE("/:id", s.handleDeleteSession)
	}

	router.POST("/messages", s.handleSendMessage)
	router.POST("/presence", s.handlePresence)

	return router
}

// Run serves HTTP until the context is cancelled, then drains within the
// configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown incomplete", zap.Error(err))
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}
