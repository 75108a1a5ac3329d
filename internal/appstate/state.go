// Package appstate holds the application state the tree view renders from: the
// session user, the selected node, the expanded set, and the view toggles.
//
// A State is constructed explicitly, passed to whoever needs it, and closed when the
// program exits. Observers read Snapshot values and wait on Changes.
package appstate

import (
	"strings"
	"sync"

	"arbor-cli/internal/model"
	"arbor-cli/internal/query"
	"arbor-cli/internal/store"
)

type State struct {
	mu sync.RWMutex

	session      model.Session
	exp          Expansion
	rec          Reconciler
	showArchived bool
	focusedView  bool

	changes chan struct{}
	closed  bool
}

// Snapshot is an immutable copy of State.
type Snapshot struct {
	Session        model.Session
	SelectedNodeID *string
	Expanded       []string
	ShowArchived   bool
	FocusedView    bool
}

type Option func(*State)

func WithShowArchived(v bool) Option { return func(s *State) { s.showArchived = v } }

func WithFocusedView(v bool) Option { return func(s *State) { s.focusedView = v } }

func WithSelected(id string) Option {
	return func(s *State) {
		if id = strings.TrimSpace(id); id != "" {
			s.exp.Selected = &id
		}
	}
}

// WithExpanded seeds the expanded set, e.g. from a saved view state.
func WithExpanded(ids ...string) Option {
	return func(s *State) {
		for _, id := range ids {
			if id = strings.TrimSpace(id); id != "" {
				s.exp.Expanded[id] = true
			}
		}
	}
}

// New constructs the state for an authenticated session.
func New(sess *model.Session, opts ...Option) (*State, error) {
	if sess == nil || strings.TrimSpace(sess.UserID) == "" {
		return nil, store.ErrNoSession
	}
	s := &State{
		session: *sess,
		exp:     NewExpansion(nil),
		changes: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close stops change notifications. Further mutations are applied but not announced.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.changes)
}

// Changes signals (coalesced) after any mutation. It is closed by Close.
func (s *State) Changes() <-chan struct{} { return s.changes }

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Session:      s.session,
		Expanded:     s.exp.IDs(),
		ShowArchived: s.showArchived,
		FocusedView:  s.focusedView,
	}
	if s.exp.Selected != nil {
		sel := *s.exp.Selected
		snap.SelectedNodeID = &sel
	}
	return snap
}

func (s *State) Session() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *State) SelectedNodeID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.exp.Selected == nil {
		return "", false
	}
	return *s.exp.Selected, true
}

func (s *State) IsExpanded(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exp.IsExpanded(id)
}

// Select sets the selected node. An empty id clears the selection.
func (s *State) Select(id string) {
	id = strings.TrimSpace(id)
	s.mutate(func() bool {
		if id == "" {
			if s.exp.Selected == nil {
				return false
			}
			s.exp.Selected = nil
			return true
		}
		if s.exp.Selected != nil && *s.exp.Selected == id {
			return false
		}
		s.exp.Selected = &id
		return true
	})
}

func (s *State) SetShowArchived(v bool) {
	s.mutate(func() bool {
		changed := s.showArchived != v
		s.showArchived = v
		return changed
	})
}

func (s *State) SetFocusedView(v bool) {
	s.mutate(func() bool {
		changed := s.focusedView != v
		s.focusedView = v
		return changed
	})
}

func (s *State) ToggleShowArchived() {
	s.mutate(func() bool { s.showArchived = !s.showArchived; return true })
}

func (s *State) ToggleFocusedView() {
	s.mutate(func() bool { s.focusedView = !s.focusedView; return true })
}

// ToggleExpanded applies Toggle to id.
func (s *State) ToggleExpanded(id string) {
	s.apply(func(e Expansion) Expansion { return Toggle(e, id) })
}

func (s *State) Expand(id string) {
	s.apply(func(e Expansion) Expansion { return Expand(e, id) })
}

func (s *State) Collapse(id string) {
	s.apply(func(e Expansion) Expansion { return Collapse(e, id) })
}

// ObserveNodes runs the auto-expand reconciliation against freshly loaded nodes.
// It reports whether the expanded set changed.
func (s *State) ObserveNodes(nodes []model.Node) bool {
	byID := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n.HasChildren
	}
	lookup := func(id string) (bool, bool) {
		hc, ok := byID[id]
		return hc, ok
	}
	changed := false
	s.mutate(func() bool {
		var next Expansion
		next, changed = s.rec.Observe(s.exp, lookup)
		s.exp = next
		return changed
	})
	return changed
}

// PruneExpanded drops expanded ids for which keep returns false and returns how
// many were dropped.
func (s *State) PruneExpanded(keep func(id string) bool) int {
	dropped := 0
	s.mutate(func() bool {
		for id := range s.exp.Expanded {
			if !keep(id) {
				s.exp = Collapse(s.exp, id)
				dropped++
			}
		}
		return dropped > 0
	})
	return dropped
}

// VisibleParams returns the visible-node query inputs for the current state.
func (s *State) VisibleParams() query.VisibleParams {
	snap := s.Snapshot()
	return query.VisibleParams{
		UserID:         snap.Session.UserID,
		SelectedNodeID: snap.SelectedNodeID,
		FocusedView:    snap.FocusedView,
		ShowArchived:   snap.ShowArchived,
	}
}

func (s *State) apply(fn func(Expansion) Expansion) {
	s.mutate(func() bool {
		s.exp = fn(s.exp)
		return true
	})
}

func (s *State) mutate(fn func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !fn() || s.closed {
		return
	}
	// Non-blocking: one pending signal is enough for any number of mutations.
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
