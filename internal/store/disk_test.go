package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *DiskStore {
	t.Helper()
	s, err := NewDiskStore(zap.NewNop(), filepath.Join(t.TempDir(), "sessions"))
	require.NoError(t, err)
	return s
}

func TestEnsureSessionAndList(t *testing.T) {
	s := newTestStore(t)

	ids, err := s.ListSessions()
	require.NoError(t, err)
	assert.Empty(t, ids)

	dir, err := s.EnsureSession("tenant-a")
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.True(t, s.HasSession("tenant-a"))
	assert.False(t, s.HasSession("tenant-b"))

	_, err = s.EnsureSession("tenant-b")
	require.NoError(t, err)

	ids, err = s.ListSessions()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tenant-a", "tenant-b"}, ids)
}

func TestListSessionsIgnoresFiles(t *testing.T) {
	s := newTestStore(t)
	_, err := s.EnsureSession("tenant-a")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.RootDir(), "stray.txt"), []byte("x"), 0644))

	ids, err := s.ListSessions()
	require.NoError(t, err)
	assert.Equal(t, []string{"tenant-a"}, ids)
}

func TestMirrorRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ReadMirror("tenant-a")
	assert.Error(t, err)

	_, err = s.EnsureSession("tenant-a")
	require.NoError(t, err)
	require.NoError(t, s.WriteMirror("tenant-a", []byte(`{"contacts":[]}`)))
	data, err := s.ReadMirror("tenant-a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"contacts":[]}`, string(data))
}

func TestWritesNeverRecreateDeletedSession(t *testing.T) {
	s := newTestStore(t)
	_, err := s.EnsureSession("tenant-a")
	require.NoError(t, err)
	require.NoError(t, s.DeleteSession("tenant-a"))

	assert.Error(t, s.WriteMirror("tenant-a", []byte(`{}`)))
	assert.Error(t, s.WriteCredential("tenant-a", "creds.json", []byte("{}")))
	assert.False(t, s.HasSession("tenant-a"))
}

func TestCredentialRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, err := s.EnsureSession("tenant-a")
	require.NoError(t, err)
	require.NoError(t, s.WriteCredential("tenant-a", "creds.json", []byte("secret")))
	data, err := s.ReadCredential("tenant-a", "creds.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), data)
}

func TestDeleteSession(t *testing.T) {
	s := newTestStore(t)
	_, err := s.EnsureSession("tenant-a")
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession("tenant-a"))
	assert.False(t, s.HasSession("tenant-a"))

	// deleting a missing session is not an error
	assert.NoError(t, s.DeleteSession("tenant-a"))
}

func TestDeleteAll(t *testing.T) {
	s := newTestStore(t)
	_, err := s.EnsureSession("tenant-a")
	require.NoError(t, err)
	_, err = s.EnsureSession("tenant-b")
	require.NoError(t, err)

	require.NoError(t, s.DeleteAll())

	ids, err := s.ListSessions()
	require.NoError(t, err)
	assert.Empty(t, ids)
	// root is recreated so the store stays usable
	assert.DirExists(t, s.RootDir())
}
