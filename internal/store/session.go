package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"arbor-cli/internal/model"

	json "github.com/goccy/go-json"
)

const sessionFileName = "session.json"

var ErrNoSession = errors.New("no session: run `arbor login` first")

func (s Store) sessionPath() string {
	return filepath.Join(s.Dir, sessionFileName)
}

// LoadSession returns the stored login identity, or ErrNoSession.
func (s Store) LoadSession() (*model.Session, error) {
	if strings.TrimSpace(s.Dir) == "" {
		return nil, ErrNoSession
	}
	b, err := os.ReadFile(s.sessionPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	var sess model.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		// A corrupted session is treated as logged out.
		return nil, ErrNoSession
	}
	if strings.TrimSpace(sess.UserID) == "" {
		return nil, ErrNoSession
	}
	return &sess, nil
}

func (s Store) SaveSession(sess *model.Session) error {
	if sess == nil || strings.TrimSpace(sess.UserID) == "" {
		return errors.New("session: missing user id")
	}
	if err := s.Ensure(); err != nil {
		return err
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	b, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	path := s.sessionPath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s Store) ClearSession() error {
	err := os.Remove(s.sessionPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
