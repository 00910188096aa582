package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

var safeUserID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// FileStateStore keeps each user's device-local mode hint in its own small
// JSON file, e.g. {"mode":"morning","protocolArmed":"true"}.
type FileStateStore struct {
	mu  sync.Mutex
	dir string
}

func NewFileStateStore(dir string) (*FileStateStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStateStore{dir: dir}, nil
}

func (s *FileStateStore) path(userID string) (string, error) {
	if !safeUserID.MatchString(userID) {
		return "", fmt.Errorf("storage: unsafe user id %q", userID)
	}
	return filepath.Join(s.dir, userID+".json"), nil
}

func (s *FileStateStore) Load(userID string) (map[string]string, error) {
	p, err := s.path(userID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := map[string]string{}
	if err := loadJSON(p, &st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *FileStateStore) Save(userID string, state map[string]string) error {
	p, err := s.path(userID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return atomicWriteFileJSON(p, state)
}
