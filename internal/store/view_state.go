package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
)

const viewStateFileName = "view_state.json"

// ViewState is the tree view's last selection and toggles, restored on relaunch.
// It is best effort: a missing or unreadable file reads as the zero state.
type ViewState struct {
	Version int `json:"version"`

	// UserID scopes the state; a different login starts fresh.
	UserID         string   `json:"userId,omitempty"`
	SelectedNodeID string   `json:"selectedNodeId,omitempty"`
	Expanded       []string `json:"expanded,omitempty"`
	ShowArchived   bool     `json:"showArchived,omitempty"`
	FocusedView    bool     `json:"focusedView,omitempty"`
}

func (s Store) viewStatePath() string {
	return filepath.Join(s.Dir, viewStateFileName)
}

func (s Store) LoadViewState() (*ViewState, error) {
	if strings.TrimSpace(s.Dir) == "" {
		return &ViewState{Version: 1}, nil
	}
	b, err := os.ReadFile(s.viewStatePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ViewState{Version: 1}, nil
		}
		return nil, err
	}
	var st ViewState
	if err := json.Unmarshal(b, &st); err != nil {
		return &ViewState{Version: 1}, nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	return &st, nil
}

func (s Store) SaveViewState(st *ViewState) error {
	if st == nil || strings.TrimSpace(s.Dir) == "" {
		return nil
	}
	if err := s.Ensure(); err != nil {
		return err
	}
	if st.Version == 0 {
		st.Version = 1
	}
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	path := s.viewStatePath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ClearViewState removes the saved state (logout).
func (s Store) ClearViewState() error {
	err := os.Remove(s.viewStatePath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
