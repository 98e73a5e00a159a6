// Package store is the durable per-session state mirror: one directory per
// session under a root path, holding provider-owned credential files plus the
// gateway's mirror snapshot. Contents are opaque blobs.
package store

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

const mirrorFile = "mirror.json"

// DiskStore implements the session store on the local filesystem
type DiskStore struct {
	logger  *zap.Logger
	rootDir string
	mu      sync.RWMutex
}

// NewDiskStore creates a new disk-based session store
func NewDiskStore(logger *zap.Logger, rootDir string) (*DiskStore, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, err
	}

	return &DiskStore{
		logger:  logger.Named("store.disk"),
		rootDir: rootDir,
	}, nil
}

// RootDir returns the store's root path.
func (s *DiskStore) RootDir() string {
	return s.rootDir
}

// SessionDir returns the directory for a session without creating it.
func (s *DiskStore) SessionDir(id string) string {
	return filepath.Join(s.rootDir, id)
}

// EnsureSession creates the session's directory if needed and returns its path.
func (s *DiskStore) EnsureSession(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.rootDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// HasSession reports whether the session has a directory on disk.
func (s *DiskStore) HasSession(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, err := os.Stat(filepath.Join(s.rootDir, id))
	return err == nil && info.IsDir()
}

// ListSessions returns every session id persisted under the root.
func (s *DiskStore) ListSessions() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.rootDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		ids = append(ids, entry.Name())
	}
	return ids, nil
}

// DeleteSession removes a session's directory and everything in it.
func (s *DiskStore) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return os.RemoveAll(filepath.Join(s.rootDir, id))
}

// DeleteAll removes the entire store root. Used by wipeout only.
func (s *DiskStore) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(s.rootDir); err != nil {
		return err
	}
	return os.MkdirAll(s.rootDir, 0755)
}

// ReadMirror loads the session's mirror snapshot blob.
func (s *DiskStore) ReadMirror(id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return os.ReadFile(filepath.Join(s.rootDir, id, mirrorFile))
}

// WriteMirror stores the session's mirror snapshot blob. The session's
// directory must already exist; a write never recreates an erased one.
func (s *DiskStore) WriteMirror(id string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return os.WriteFile(filepath.Join(s.rootDir, id, mirrorFile), data, 0644)
}

// WriteCredential persists a rotated credential blob into the session's
// directory. The provider decides the file name and format. Like WriteMirror,
// the directory must already exist.
func (s *DiskStore) WriteCredential(id, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return os.WriteFile(filepath.Join(s.rootDir, id, name), data, 0600)
}

// ReadCredential loads a credential blob from the session's directory.
func (s *DiskStore) ReadCredential(id, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return os.ReadFile(filepath.Join(s.rootDir, id, name))
}
