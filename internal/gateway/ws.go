package gateway

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const wsWriteTimeout = 10 * time.Second

// handleWS upgrades the request and streams hub notifications until the
// client goes away. A subscriber that cannot keep up loses events at the hub,
// never here.
func (s *Server) handleWS(c *gin.Context) {
	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	subID, events := s.hub.Subscribe()
	s.logger.Info("websocket client connected", zap.String("subscriber", subID))

	// reader: only there to observe the close handshake
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		s.hub.Unsubscribe(subID)
		_ = ws.Close()
		s.logger.Info("websocket client disconnected", zap.String("subscriber", subID))
	}()

	for {
		select {
		case <-done:
			return
		case n, ok := <-events:
			if !ok {
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := ws.WriteJSON(n); err != nil {
				s.logger.Debug("websocket write failed", zap.String("subscriber", subID), zap.Error(err))
				return
			}
		}
	}
}
