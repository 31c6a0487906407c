package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"student-dashboard/internal/shared/telemetry"
)

// FileStore keeps one JSON document per session under Dir.
type FileStore struct {
	Dir string
}

// NewFileStore constructs a FileStore, defaulting the directory.
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = "./data/sessions"
	}
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(sid string) string {
	return filepath.Join(s.Dir, sid+".json")
}

// Load reads the session. A missing or corrupted file reads as ErrNoSession.
func (s *FileStore) Load(ctx context.Context, sid string) (Session, error) {
	if !validSID(sid) {
		return Session{}, ErrNoSession
	}
	raw, err := os.ReadFile(s.path(sid))
	if errors.Is(err, os.ErrNotExist) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	var entries map[string]string
	if err := json.Unmarshal(raw, &entries); err != nil {
		telemetry.Warn("session.corrupted", map[string]any{"backend": "file", "err": err})
		return Session{}, ErrNoSession
	}
	sess, err := decode(entries)
	if err != nil {
		telemetry.Warn("session.corrupted", map[string]any{"backend": "file", "err": err})
		return Session{}, ErrNoSession
	}
	return sess, nil
}

// Save writes the session atomically via a temp file rename.
func (s *FileStore) Save(ctx context.Context, sid string, sess Session) error {
	if !validSID(sid) {
		return errors.New("invalid session id")
	}
	entries, err := encode(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.Dir, sid+".*.tmp")
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(sid)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Clear removes the session. Clearing an absent session is not an error.
func (s *FileStore) Clear(ctx context.Context, sid string) error {
	if !validSID(sid) {
		return nil
	}
	if err := os.Remove(s.path(sid)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
