package gateway

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zaploop/zaploop/internal/common/cnst"
	"github.com/zaploop/zaploop/internal/orchestrator"
	"github.com/zaploop/zaploop/internal/provider"
	"github.com/zaploop/zaploop/pkg/version"
	"go.uber.org/zap"
)

// statusCode maps domain errors onto HTTP statuses.
func statusCode(err error) int {
	switch {
	case errors.Is(err, cnst.ErrInvalidSessionID):
		return http.StatusBadRequest
	case errors.Is(err, cnst.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, cnst.ErrSessionExists),
		errors.Is(err, cnst.ErrSessionNotOpen),
		errors.Is(err, cnst.ErrArtifactNotAvailable):
		return http.StatusConflict
	case errors.Is(err, cnst.ErrShuttingDown):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	c.JSON(statusCode(err), ErrorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       version.Get(),
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Sessions:      s.orch.Registry().Len(),
	})
}

func (s *Server) handleStartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	_, err := s.orch.StartSession(c.Request.Context(), req.SessionID)
	if err != nil && !errors.Is(err, cnst.ErrSessionExists) {
		s.fail(c, err)
		return
	}

	st, stErr := s.orch.GetStatus(req.SessionID)
	if stErr != nil {
		s.fail(c, stErr)
		return
	}
	if errors.Is(err, cnst.ErrSessionExists) {
		c.JSON(http.StatusConflict, st)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (s *Server) handleListSessions(c *gin.Context) {
	ids := s.orch.Registry().IDs()
	statuses := make([]any, 0, len(ids))
	for _, id := range ids {
		if st, err := s.orch.GetStatus(id); err == nil {
			statuses = append(statuses, st)
		}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": statuses})
}

func (s *Server) handleStatus(c *gin.Context) {
	st, err := s.orch.GetStatus(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handlePairingImage(c *gin.Context) {
	png, err := s.orch.PairingImage(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) handleMirror(c *gin.Context) {
	snap, err := s.orch.MirrorSnapshot(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	id := c.Param("id")
	if err := s.orch.DeleteSession(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session deleted", "sessionId": id})
}

func (s *Server) handleReconnect(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.orch.ReconnectSession(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	st, err := s.orch.GetStatus(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) handleRestartAll(c *gin.Context) {
	report, err := s.orch.RestartAll(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleWipeout(c *gin.Context) {
	count, err := s.orch.Wipeout(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "wipeout complete", "sessions": count})
}

func (s *Server) handleSendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	sendReq, err := buildSendRequest(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	res, err := s.orch.Send(c.Request.Context(), req.SessionID, sendReq,
		orchestrator.SendOptions{SimulateTyping: req.SimulateTyping})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// defaultReactionEmoji is used when a reaction request names no emoji.
const defaultReactionEmoji = "❤️"

// buildSendRequest validates the variant fields and normalizes the recipient.
func buildSendRequest(req SendMessageRequest) (provider.SendRequest, error) {
	jid, err := provider.NormalizeJID(req.To)
	if err != nil {
		return provider.SendRequest{}, err
	}

	out := provider.SendRequest{
		Kind:            provider.SendKind(req.Type),
		JID:             jid,
		Text:            req.Text,
		MediaURL:        req.MediaURL,
		PTT:             req.PTT,
		Emoji:           req.Emoji,
		TargetMessageID: req.TargetMessageID,
	}
	if req.MediaBase64 != "" {
		out.MediaBytes, err = base64.StdEncoding.DecodeString(req.MediaBase64)
		if err != nil {
			return out, errors.New("mediaBase64 is not valid base64")
		}
	}

	switch out.Kind {
	case provider.SendText:
		if out.Text == "" {
			return out, errors.New("text is required for text messages")
		}
	case provider.SendImage, provider.SendVideo, provider.SendAudio:
		if out.MediaURL == "" && len(out.MediaBytes) == 0 {
			return out, errors.New("mediaUrl or mediaBase64 is required for media messages")
		}
	case provider.SendReaction:
		if out.TargetMessageID == "" {
			return out, errors.New("targetMessageId is required for reactions")
		}
		if out.Emoji == "" {
			out.Emoji = defaultReactionEmoji
		}
	default:
		return out, errors.New("unsupported message type: " + req.Type)
	}
	return out, nil
}

func (s *Server) handlePresence(c *gin.Context) {
	var req PresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	jid, err := provider.NormalizeJID(req.To)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	kind := provider.PresenceKind(req.Presence)
	if !provider.ValidPresence(kind) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unsupported presence: " + req.Presence})
		return
	}

	duration := time.Duration(req.DurationMs) * time.Millisecond
	if err := s.orch.Presence(c.Request.Context(), req.SessionID, jid, kind, duration); err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Debug("presence published",
		zap.String("session", req.SessionID),
		zap.String("presence", req.Presence))
	c.JSON(http.StatusOK, gin.H{"message": "presence updated"})
}
