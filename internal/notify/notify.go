// Package notify fans inbound session activity out to the delivery channels:
// an in-process push hub feeding websocket subscribers and an optional webhook
// sink for external consumers. Delivery is best effort on both paths; session
// lifecycle never waits on a consumer.
package notify

import "time"

// Notification is one outbound event in the wire shape consumers receive.
type Notification struct {
	SessionID   string      `json:"sessionId"`
	MessageType string      `json:"messageType"`
	Message     interface{} `json:"message"`
	Timestamp   time.Time   `json:"timestamp"`
}

// New builds a notification stamped with the current time.
func New(sessionID, messageType string, message interface{}) Notification {
	return Notification{
		SessionID:   sessionID,
		MessageType: messageType,
		Message:     message,
		Timestamp:   time.Now(),
	}
}
