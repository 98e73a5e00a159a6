package gateway

// StartSessionRequest creates or claims a session id.
type StartSessionRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

// SendMessageRequest is the unified outbound message payload. Type selects the
// variant; the remaining fields are variant-specific.
type SendMessageRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	To        string `json:"to" binding:"required"`
	Type      string `json:"type" binding:"required"`

	Text        string `json:"text,omitempty"`
	MediaURL    string `json:"mediaUrl,omitempty"`
	MediaBase64 string `json:"mediaBase64,omitempty"`
	PTT         bool   `json:"ptt,omitempty"`

	Emoji           string `json:"emoji,omitempty"`
	TargetMessageID string `json:"targetMessageId,omitempty"`

	SimulateTyping bool `json:"simulateTyping,omitempty"`
}

// PresenceRequest publishes a chat-state update with an optional hold time.
type PresenceRequest struct {
	SessionID  string `json:"sessionId" binding:"required"`
	To         string `json:"to" binding:"required"`
	Presence   string `json:"presence" binding:"required"`
	DurationMs int    `json:"durationMs,omitempty"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports process liveness.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	Sessions      int    `json:"sessions"`
}
