package orchestrator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zaploop/zaploop/internal/common/cnst"
	"github.com/zaploop/zaploop/internal/provider"
)

func TestSendRequiresOpenSession(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.o.Send(context.Background(), "ghost", provider.SendRequest{Kind: provider.SendText}, SendOptions{})
	assert.ErrorIs(t, err, cnst.ErrSessionNotFound)

	_, err = env.o.StartSession(context.Background(), "tenant-a")
	require.NoError(t, err)

	// still connecting, not usable yet
	_, err = env.o.Send(context.Background(), "tenant-a", provider.SendRequest{Kind: provider.SendText}, SendOptions{})
	assert.ErrorIs(t, err, cnst.ErrSessionNotOpen)
}

func TestSendTextDelivers(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := env.open(t, "tenant-a")

	res, err := env.o.Send(context.Background(), "tenant-a", provider.SendRequest{
		Kind: provider.SendText,
		JID:  "5511999999999@s.whatsapp.net",
		Text: "hello",
	}, SendOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, res.MessageID)

	sends := conn.Sends()
	require.Len(t, sends, 1)
	assert.Equal(t, "hello", sends[0].Text)
	assert.Empty(t, conn.Presences())
}

func TestSendMediaKinds(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := env.open(t, "tenant-a")

	for _, kind := range []provider.SendKind{provider.SendImage, provider.SendVideo, provider.SendAudio, provider.SendReaction} {
		_, err := env.o.Send(context.Background(), "tenant-a", provider.SendRequest{
			Kind:     kind,
			JID:      "5511999999999@s.whatsapp.net",
			MediaURL: "https://example.com/file",
		}, SendOptions{})
		require.NoError(t, err, string(kind))
	}
	assert.Len(t, conn.Sends(), 4)
}

func TestSendSimulateTypingAnnouncesComposing(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := env.open(t, "tenant-a")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := env.o.Send(ctx, "tenant-a", provider.SendRequest{
			Kind: provider.SendText,
			JID:  "5511999999999@s.whatsapp.net",
			Text: "paced like a human",
		}, SendOptions{SimulateTyping: true})
		errCh <- err
	}()

	// composing goes out before the paced wait
	require.Eventually(t, func() bool {
		p := conn.Presences()
		return len(p) == 1 && p[0] == provider.PresenceComposing
	}, waitFor, tick)

	// cancelling during the wait aborts before anything is sent
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	assert.Empty(t, conn.Sends())
}

func TestTypingDelayScalesAndCaps(t *testing.T) {
	assert.Equal(t, time.Second, typingDelay(""))
	assert.Equal(t, 3500*time.Millisecond, typingDelay("ten chars!"))
	assert.Equal(t, typingMax, typingDelay(strings.Repeat("x", 500)))
}

func TestPresenceRejectsInvalidKinds(t *testing.T) {
	env := newTestEnv(t, nil)
	env.open(t, "tenant-a")

	err := env.o.Presence(context.Background(), "tenant-a", "5511999999999@s.whatsapp.net", provider.PresenceKind("dancing"), 0)
	assert.Error(t, err)

	// available is reserved for the auto-reset
	err = env.o.Presence(context.Background(), "tenant-a", "5511999999999@s.whatsapp.net", provider.PresenceAvailable, 0)
	assert.Error(t, err)
}

func TestPresenceAutoResetsToAvailable(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := env.open(t, "tenant-a")

	err := env.o.Presence(context.Background(), "tenant-a", "5511999999999@s.whatsapp.net", provider.PresenceComposing, presenceMinDuration)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		p := conn.Presences()
		return len(p) == 2 && p[0] == provider.PresenceComposing && p[1] == provider.PresenceAvailable
	}, waitFor, tick)
}

func TestClampPresence(t *testing.T) {
	assert.Equal(t, presenceDefaultDuration, clampPresence(0))
	assert.Equal(t, presenceMinDuration, clampPresence(time.Millisecond))
	assert.Equal(t, 2*time.Second, clampPresence(2*time.Second))
	assert.Equal(t, presenceMaxDuration, clampPresence(time.Hour))
}

func TestMirrorSnapshotServesCachedData(t *testing.T) {
	env := newTestEnv(t, nil)
	conn := env.open(t, "tenant-a")

	conn.EmitMessages(false, provider.Message{ID: "m1", Chat: "111@s.whatsapp.net", Type: "text", Text: "cached"})

	require.Eventually(t, func() bool {
		snap, err := env.o.MirrorSnapshot("tenant-a")
		return err == nil && len(snap.Messages) == 1
	}, waitFor, tick)

	_, err := env.o.MirrorSnapshot("ghost")
	assert.ErrorIs(t, err, cnst.ErrSessionNotFound)
}
