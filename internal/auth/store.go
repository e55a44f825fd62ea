package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// SessionStore abstracts persistence for the auth session.
type SessionStore interface {
	Load() (Session, error)
	Save(Session) error
	Clear() error
}

// FileStore writes the session to a JSON file on disk. Reads take a shared
// lock and writes an exclusive lock on a sibling .lock file.
type FileStore struct {
	path string
	lock *flock.Flock
}

// NewFileStore builds a FileStore rooted at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, lock: flock.New(path + ".lock")}
}

// Path returns the session file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the session from disk. A missing file resolves to an empty session.
func (s *FileStore) Load() (Session, error) {
	if err := s.ensureDir(); err != nil {
		return Session{}, err
	}
	if err := s.lock.RLock(); err != nil {
		return Session{}, fmt.Errorf("lock session file: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

// Save persists the session with owner-only permissions.
func (s *FileStore) Save(session Session) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock session file: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

// Clear removes the session file. A missing file is not an error.
func (s *FileStore) Clear() error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock session file: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

func (s *FileStore) ensureDir() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("ensure session directory: %w", err)
	}
	return nil
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	session Session
}

func (m *MemoryStore) Load() (Session, error) { return m.session, nil }

func (m *MemoryStore) Save(s Session) error {
	m.session = s
	return nil
}

func (m *MemoryStore) Clear() error {
	m.session = Session{}
	return nil
}
