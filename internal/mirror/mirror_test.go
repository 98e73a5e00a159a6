package mirror

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zaploop/zaploop/internal/provider"
	"github.com/zaploop/zaploop/internal/store"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *store.DiskStore {
	t.Helper()
	s, err := store.NewDiskStore(zap.NewNop(), filepath.Join(t.TempDir(), "sessions"))
	require.NoError(t, err)
	_, err = s.EnsureSession("tenant-a")
	require.NoError(t, err)
	return s
}

func TestApplyHistorySync(t *testing.T) {
	m := New(zap.NewNop(), newTestStore(t), "tenant-a")

	flush := m.Apply(provider.Event{
		Kind: provider.EventHistorySync,
		History: &provider.HistorySet{
			Contacts: []provider.Contact{{JID: "1@s.whatsapp.net", Name: "Ana"}},
			Chats:    []provider.Chat{{JID: "1@s.whatsapp.net"}},
			Messages: []provider.Message{{ID: "m1"}},
		},
	})
	assert.True(t, flush, "history sync should trigger an immediate flush")

	contacts, chats, messages := m.Counts()
	assert.Equal(t, 1, contacts)
	assert.Equal(t, 1, chats)
	assert.Equal(t, 1, messages)
}

func TestApplyContactsUpsert(t *testing.T) {
	m := New(zap.NewNop(), newTestStore(t), "tenant-a")

	flush := m.Apply(provider.Event{
		Kind:     provider.EventContacts,
		Contacts: []provider.Contact{{JID: "1@s.whatsapp.net", Name: "Ana"}},
	})
	assert.True(t, flush)

	// upsert replaces by JID
	m.Apply(provider.Event{
		Kind:     provider.EventContacts,
		Contacts: []provider.Contact{{JID: "1@s.whatsapp.net", Name: "Ana Maria"}},
	})
	snap := m.Snapshot()
	require.Len(t, snap.Contacts, 1)
	assert.Equal(t, "Ana Maria", snap.Contacts[0].Name)
}

func TestMessagesAreBounded(t *testing.T) {
	m := New(zap.NewNop(), newTestStore(t), "tenant-a")

	for i := 0; i < DefaultMaxMessages+25; i++ {
		m.Apply(provider.Event{
			Kind:     provider.EventMessages,
			Messages: []provider.Message{{ID: "m"}},
		})
	}
	_, _, messages := m.Counts()
	assert.Equal(t, DefaultMaxMessages, messages)
}

func TestFlushAndLoadRoundTrip(t *testing.T) {
	st := newTestStore(t)

	m := New(zap.NewNop(), st, "tenant-a")
	m.Apply(provider.Event{
		Kind: provider.EventHistorySync,
		History: &provider.HistorySet{
			Contacts: []provider.Contact{{JID: "1@s.whatsapp.net", Name: "Ana"}},
			Chats:    []provider.Chat{{JID: "1@s.whatsapp.net", Name: "Ana"}},
		},
	})
	m.Flush()

	// a fresh mirror for the same session sees the persisted data before any
	// live event arrives
	restored := New(zap.NewNop(), st, "tenant-a")
	restored.Load()
	snap := restored.Snapshot()
	require.Len(t, snap.Contacts, 1)
	assert.Equal(t, "Ana", snap.Contacts[0].Name)
	assert.Len(t, snap.Chats, 1)
}

func TestLoadMissingSnapshotIsEmpty(t *testing.T) {
	m := New(zap.NewNop(), newTestStore(t), "tenant-a")
	m.Load()

	snap := m.Snapshot()
	assert.Empty(t, snap.Contacts)
	assert.Empty(t, snap.Chats)
	assert.Empty(t, snap.Messages)
}

func TestLoadCorruptSnapshotIsEmpty(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.WriteMirror("tenant-a", []byte("not json")))

	m := New(zap.NewNop(), st, "tenant-a")
	m.Load()
	snap := m.Snapshot()
	assert.Empty(t, snap.Contacts)
}

func TestFlushSkipsWhenClean(t *testing.T) {
	st := newTestStore(t)
	m := New(zap.NewNop(), st, "tenant-a")

	m.Flush()
	_, err := st.ReadMirror("tenant-a")
	assert.Error(t, err, "clean mirror should not write a snapshot")
}

func TestFlushAfterDiscardWritesNothing(t *testing.T) {
	st := newTestStore(t)
	m := New(zap.NewNop(), st, "tenant-a")

	m.Apply(provider.Event{
		Kind:     provider.EventContacts,
		Contacts: []provider.Contact{{JID: "1@s.whatsapp.net", Name: "Ana"}},
	})
	m.Discard()
	m.Flush()

	_, err := st.ReadMirror("tenant-a")
	assert.Error(t, err, "discarded mirror must not flush dirty data")
}
