package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeJID(t *testing.T) {
	t.Run("bare phone number", func(t *testing.T) {
		jid, err := NormalizeJID("15551234567")
		assert.NoError(t, err)
		assert.Equal(t, "15551234567@s.whatsapp.net", jid)
	})

	t.Run("strips formatting and old suffixes", func(t *testing.T) {
		jid, err := NormalizeJID(" +1 (555) 123-4567@c.us ")
		assert.NoError(t, err)
		assert.Equal(t, "15551234567@s.whatsapp.net", jid)
	})

	t.Run("removes leading zeros", func(t *testing.T) {
		jid, err := NormalizeJID("0015551234567")
		assert.NoError(t, err)
		assert.Equal(t, "15551234567@s.whatsapp.net", jid)
	})

	t.Run("group jid passes through", func(t *testing.T) {
		jid, err := NormalizeJID("123456789012345@g.us")
		assert.NoError(t, err)
		assert.Equal(t, "123456789012345@g.us", jid)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := NormalizeJID("12345")
		assert.Error(t, err)
	})

	t.Run("too long", func(t *testing.T) {
		_, err := NormalizeJID("1234567890123456")
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := NormalizeJID("   ")
		assert.Error(t, err)
	})
}

func TestBareNumber(t *testing.T) {
	assert.Equal(t, "15551234567", BareNumber("15551234567@s.whatsapp.net"))
	assert.Equal(t, "15551234567", BareNumber("+1 555 123 4567"))
}

func TestDisconnectReasonRecoverable(t *testing.T) {
	assert.False(t, DisconnectLoggedOut.Recoverable())
	assert.False(t, DisconnectSuperseded.Recoverable())
	assert.True(t, DisconnectConnectionLost.Recoverable())
	assert.True(t, DisconnectStreamError.Recoverable())
}

func TestValidPresence(t *testing.T) {
	assert.True(t, ValidPresence(PresenceComposing))
	assert.True(t, ValidPresence(PresenceRecording))
	assert.True(t, ValidPresence(PresencePaused))
	assert.False(t, ValidPresence(PresenceAvailable))
	assert.False(t, ValidPresence("typing"))
}
