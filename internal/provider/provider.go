package provider

import (
	"context"
	"time"
)

// Provider is the external connection library behind this gateway. It owns the
// wire protocol, the cryptographic handshake and the credential files inside
// the session's directory; the gateway only drives its lifecycle.
type Provider interface {
	// Connect opens a connection for the session using whatever credential
	// material already exists under credentialDir. A connection handle is
	// returned as soon as the attempt is in flight; the outcome (pairing
	// required, open, disconnected) arrives on the handle's event stream.
	Connect(ctx context.Context, sessionID, credentialDir string) (Conn, error)
}

// Conn is a live connection handle. Events delivers the lifecycle stream as a
// single ordered channel; the channel is closed when the connection dies.
type Conn interface {
	Events() <-chan Event

	// Send delivers an outbound message and returns provider message info.
	Send(ctx context.Context, req SendRequest) (*SendResult, error)

	// Presence publishes a chat-state update (composing, recording, paused,
	// available) for the given recipient.
	Presence(ctx context.Context, jid string, kind PresenceKind) error

	// Logout invalidates the stored credentials on the remote side.
	Logout(ctx context.Context) error

	// Close tears down the transport without logging out.
	Close() error
}

// EventKind discriminates the variants of Event.
type EventKind string

const (
	// EventConnected means the connection is authenticated and usable.
	EventConnected EventKind = "connected"
	// EventDisconnected means the connection dropped; Reason says whether a
	// reconnect is worth attempting.
	EventDisconnected EventKind = "disconnected"
	// EventPairingCode carries a fresh pairing payload awaiting the end user.
	EventPairingCode EventKind = "pairing-code"
	// EventMessages carries an inbound message batch.
	EventMessages EventKind = "messages"
	// EventHistorySync carries the initial contact/chat/message snapshot.
	EventHistorySync EventKind = "history-sync"
	// EventContacts carries incremental contact upserts.
	EventContacts EventKind = "contacts"
	// EventCredentials carries rotated credential material to persist.
	EventCredentials EventKind = "credentials"
)

// Event is one entry of a connection's lifecycle stream.
type Event struct {
	Kind EventKind

	// Reason is set for EventDisconnected.
	Reason DisconnectReason

	// PairingCode is set for EventPairingCode.
	PairingCode string

	// Messages and IsEcho are set for EventMessages. IsEcho marks batches
	// originated by this session's own user.
	Messages []Message
	IsEcho   bool

	// History is set for EventHistorySync.
	History *HistorySet

	// Contacts is set for EventContacts.
	Contacts []Contact

	// Credential is set for EventCredentials.
	Credential *CredentialBlob
}

// DisconnectReason classifies why a connection dropped.
type DisconnectReason string

const (
	DisconnectLoggedOut      DisconnectReason = "logged-out"
	DisconnectSuperseded     DisconnectReason = "superseded"
	DisconnectConnectionLost DisconnectReason = "connection-lost"
	DisconnectStreamError    DisconnectReason = "stream-error"
)

// Recoverable reports whether a reconnect attempt makes sense. A logout or a
// superseded (newer login elsewhere) session must never reconnect.
func (r DisconnectReason) Recoverable() bool {
	return r != DisconnectLoggedOut && r != DisconnectSuperseded
}

// CredentialBlob is rotated authentication material the gateway must persist
// into the session's directory before the next connect.
type CredentialBlob struct {
	Name string
	Data []byte
}

// Message is an inbound message in the gateway's own vocabulary, flattened
// from whatever shape the provider delivers.
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	Chat      string    `json:"chat"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Text      string    `json:"text,omitempty"`
	MediaURL  string    `json:"mediaUrl,omitempty"`
	Mimetype  string    `json:"mimetype,omitempty"`
	FileName  string    `json:"fileName,omitempty"`
	VCard     string    `json:"vCard,omitempty"`
	Location  *Location `json:"location,omitempty"`
}

// Location is an inbound location share.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
}

// Contact is one remote-address-book entry.
type Contact struct {
	JID          string `json:"id"`
	Name         string `json:"name"`
	Notify       string `json:"notify,omitempty"`
	PushName     string `json:"pushName,omitempty"`
	VerifiedName string `json:"verifiedName,omitempty"`
	Status       string `json:"status,omitempty"`
	ImgURL       string `json:"imgUrl,omitempty"`
	IsBusiness   bool   `json:"isBusiness"`
}

// Chat is one conversation entry.
type Chat struct {
	JID          string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	LastActivity time.Time `json:"lastActivity,omitempty"`
	UnreadCount  int       `json:"unreadCount,omitempty"`
}

// HistorySet is the provider's initial sync snapshot.
type HistorySet struct {
	Contacts []Contact
	Chats    []Chat
	Messages []Message
}

// SendKind discriminates outbound payload types.
type SendKind string

const (
	SendText     SendKind = "text"
	SendImage    SendKind = "image"
	SendVideo    SendKind = "video"
	SendAudio    SendKind = "audio"
	SendReaction SendKind = "reaction"
)

// SendRequest is one outbound operation.
type SendRequest struct {
	Kind SendKind
	JID  string

	// Text doubles as the caption for media sends.
	Text string

	// Media is given either by URL or by raw bytes.
	MediaURL   string
	MediaBytes []byte
	PTT        bool // voice note instead of plain audio

	// Reaction fields.
	Emoji           string
	TargetMessageID string
}

// SendResult is the provider's acknowledgement of a send.
type SendResult struct {
	MessageID string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
}

// PresenceKind is a chat-state update type.
type PresenceKind string

const (
	PresenceComposing PresenceKind = "composing"
	PresenceRecording PresenceKind = "recording"
	PresencePaused    PresenceKind = "paused"
	PresenceAvailable PresenceKind = "available"
)

// ValidPresence reports whether kind may be requested by a caller. Available
// is reserved for the automatic reset.
func ValidPresence(kind PresenceKind) bool {
	switch kind {
	case PresenceComposing, PresenceRecording, PresencePaused:
		return true
	}
	return false
}
