// Package mirror keeps an in-memory reflection of one session's contacts,
// chats and recent messages, loaded from and periodically flushed to the
// session's snapshot file.
package mirror

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/zaploop/zaploop/internal/provider"
	"github.com/zaploop/zaploop/internal/store"
	"go.uber.org/zap"
)

// DefaultMaxMessages bounds the recent-message buffer.
const DefaultMaxMessages = 100

// Snapshot is the persisted form of the mirror.
type Snapshot struct {
	Contacts []provider.Contact `json:"contacts"`
	Chats    []provider.Chat    `json:"chats"`
	Messages []provider.Message `json:"messages"`
}

// Mirror is one session's cache. All methods are safe for concurrent use and
// reads never block on provider activity.
type Mirror struct {
	logger    *zap.Logger
	sessionID string
	store     *store.DiskStore

	mu          sync.RWMutex
	contacts    map[string]provider.Contact
	chats       map[string]provider.Chat
	messages    []provider.Message
	maxMessages int
	dirty       bool
	closed      bool
}

// New creates an empty mirror for the session.
func New(logger *zap.Logger, st *store.DiskStore, sessionID string) *Mirror {
	return &Mirror{
		logger:      logger.Named("mirror").With(zap.String("session", sessionID)),
		sessionID:   sessionID,
		store:       st,
		contacts:    make(map[string]provider.Contact),
		chats:       make(map[string]provider.Chat),
		maxMessages: DefaultMaxMessages,
	}
}

// Load restores the mirror from its snapshot file. A missing or unreadable
// snapshot leaves the mirror empty; starting without history is fine.
func (m *Mirror) Load() {
	data, err := m.store.ReadMirror(m.sessionID)
	if err != nil {
		return
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		m.logger.Warn("discarding unreadable mirror snapshot", zap.Error(err))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range snap.Contacts {
		m.contacts[c.JID] = c
	}
	for _, ch := range snap.Chats {
		m.chats[ch.JID] = ch
	}
	m.messages = snap.Messages
	m.trimLocked()
}

// Apply folds a provider event into the cache. It reports whether the event
// is one of the high-value sync points that warrant an immediate flush.
func (m *Mirror) Apply(evt provider.Event) bool {
	switch evt.Kind {
	case provider.EventHistorySync:
		if evt.History == nil {
			return false
		}
		m.mu.Lock()
		for _, c := range evt.History.Contacts {
			m.contacts[c.JID] = c
		}
		for _, ch := range evt.History.Chats {
			m.chats[ch.JID] = ch
		}
		m.messages = append(m.messages, evt.History.Messages...)
		m.trimLocked()
		m.dirty = true
		m.mu.Unlock()
		return true

	case provider.EventContacts:
		m.mu.Lock()
		for _, c := range evt.Contacts {
			m.contacts[c.JID] = c
		}
		m.dirty = true
		m.mu.Unlock()
		return true

	case provider.EventMessages:
		m.mu.Lock()
		m.messages = append(m.messages, evt.Messages...)
		m.trimLocked()
		m.dirty = true
		m.mu.Unlock()
		return false
	}
	return false
}

// trimLocked drops the oldest messages beyond the bound. Callers hold mu.
func (m *Mirror) trimLocked() {
	if len(m.messages) > m.maxMessages {
		m.messages = m.messages[len(m.messages)-m.maxMessages:]
	}
}

// Discard permanently disables the mirror. Once the session's directory is
// being erased, a late flush from the dying event loop must not write
// anything back.
func (m *Mirror) Discard() {
	m.mu.Lock()
	m.closed = true
	m.dirty = false
	m.mu.Unlock()
}

// Flush writes the snapshot to the store if anything changed since the last
// flush. A write failure is logged and the data stays dirty for the next try.
// A discarded mirror never writes.
func (m *Mirror) Flush() {
	m.mu.Lock()
	if m.closed || !m.dirty {
		m.mu.Unlock()
		return
	}
	snap := m.snapshotLocked()
	m.dirty = false
	m.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		m.logger.Error("failed to marshal mirror snapshot", zap.Error(err))
		return
	}
	if err := m.store.WriteMirror(m.sessionID, data); err != nil {
		m.logger.Error("failed to write mirror snapshot", zap.Error(err))
		m.mu.Lock()
		m.dirty = true
		m.mu.Unlock()
	}
}

// Snapshot returns a copy of the current cache contents.
func (m *Mirror) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// snapshotLocked copies the cache. Callers hold mu (read or write).
func (m *Mirror) snapshotLocked() Snapshot {
	snap := Snapshot{
		Contacts: make([]provider.Contact, 0, len(m.contacts)),
		Chats:    make([]provider.Chat, 0, len(m.chats)),
		Messages: make([]provider.Message, len(m.messages)),
	}
	for _, c := range m.contacts {
		snap.Contacts = append(snap.Contacts, c)
	}
	for _, ch := range m.chats {
		snap.Chats = append(snap.Chats, ch)
	}
	copy(snap.Messages, m.messages)

	sort.Slice(snap.Contacts, func(i, j int) bool { return snap.Contacts[i].JID < snap.Contacts[j].JID })
	sort.Slice(snap.Chats, func(i, j int) bool { return snap.Chats[i].JID < snap.Chats[j].JID })
	return snap
}

// Counts returns the number of cached contacts, chats and messages.
func (m *Mirror) Counts() (contacts, chats, messages int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.contacts), len(m.chats), len(m.messages)
}
