package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/zaploop/zaploop/internal/common/cnst"
)

func TestValidateID(t *testing.T) {
	t.Run("accepts valid ids", func(t *testing.T) {
		for _, id := range []string{"abc", "tenant-42", "my_session", "A1-b2_C3"} {
			assert.NoError(t, ValidateID(id), id)
		}
	})

	t.Run("rejects invalid ids", func(t *testing.T) {
		cases := []string{
			"",
			"ab",
			"has space",
			"has/slash",
			"dots.not.allowed",
			"ñó",
			string(make([]byte, 51)),
		}
		for _, id := range cases {
			assert.ErrorIs(t, ValidateID(id), cnst.ErrInvalidSessionID, id)
		}
	})
}

func TestSessionStateAndArtifact(t *testing.T) {
	s := New("tenant-a", nil)
	assert.Equal(t, StateIdle, s.State())
	assert.Nil(t, s.Artifact())

	s.SetState(StateConnecting)
	assert.Equal(t, StateConnecting, s.State())

	art := &PairingArtifact{Code: "pair-me", IssuedAt: time.Now()}
	s.SetArtifact(art)
	assert.Equal(t, art, s.Artifact())

	// a later artifact overwrites the pending one
	art2 := &PairingArtifact{Code: "pair-me-again", IssuedAt: time.Now()}
	s.SetArtifact(art2)
	assert.Equal(t, "pair-me-again", s.Artifact().Code)

	s.ClearArtifact()
	assert.Nil(t, s.Artifact())
}

func TestSessionLastError(t *testing.T) {
	s := New("tenant-a", nil)
	assert.NoError(t, s.LastError())
	s.SetLastError(cnst.ErrPairingTimeout)
	assert.ErrorIs(t, s.LastError(), cnst.ErrPairingTimeout)
}

func TestSessionCancelLoopWithoutBindIsSafe(t *testing.T) {
	s := New("tenant-a", nil)
	s.CancelLoop() // no cancel bound yet

	called := false
	s.BindCancel(func() { called = true })
	s.CancelLoop()
	assert.True(t, called)
	s.CancelLoop() // repeat is safe
}
