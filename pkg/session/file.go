package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
)

// FileStore is a file-based session store for CLI applications.
// Sessions are stored as JSON files in a config directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a new file-based session store.
// If baseDir is empty, defaults to ~/.config/sheetslicer/sessions/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, sserrors.Wrap(sserrors.ErrCodeInvalidPath, err, "get home dir")
		}
		baseDir = filepath.Join(home, ".config", "sheetslicer", "sessions")
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, sserrors.Wrap(sserrors.ErrCodeInvalidPath, err, "create session dir")
	}
	return &FileStore{baseDir: baseDir}, nil
}

// Dir returns the directory holding the session files.
func (s *FileStore) Dir() string { return s.baseDir }

func (s *FileStore) sessionPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *FileStore) Get(ctx context.Context, id string) (*Session, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read(s.sessionPath(id))
}

func (s *FileStore) Set(ctx context.Context, sess *Session) error {
	if err := ValidateID(sess.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sess.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return sserrors.Wrap(sserrors.ErrCodeInternal, err, "marshal session")
	}

	path := s.sessionPath(sess.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return sserrors.Wrap(sserrors.ErrCodeInvalidPath, err, "write session file")
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return sserrors.Wrap(sserrors.ErrCodeInvalidPath, err, "write session file")
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.sessionPath(id)); err != nil && !os.IsNotExist(err) {
		return sserrors.Wrap(sserrors.ErrCodeInvalidPath, err, "remove session file")
	}
	return nil
}

// List skips files that do not decode as a session.
func (s *FileStore) List(ctx context.Context) ([]*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, sserrors.Wrap(sserrors.ErrCodeInvalidPath, err, "read session dir")
	}

	var out []*Session
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		sess, err := s.read(filepath.Join(s.baseDir, entry.Name()))
		if err != nil || sess == nil {
			continue
		}
		out = append(out, sess)
	}
	slices.SortFunc(out, func(a, b *Session) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return out, nil
}

func (s *FileStore) read(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, sserrors.Wrap(sserrors.ErrCodeInvalidPath, err, "read session file")
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, sserrors.Wrap(sserrors.ErrCodeInvalidFormat, err, "parse session %s", filepath.Base(path))
	}
	return &sess, nil
}

var _ Store = (*FileStore)(nil)
