// Package tui is the interactive tree view. It renders the visible nodes of the
// local mirror, keeps them live through internal/live subscriptions, and routes
// edits through the node service.
package tui

import (
	"context"
	"errors"

	"arbor-cli/internal/appstate"
	"arbor-cli/internal/live"
	"arbor-cli/internal/logging"
	"arbor-cli/internal/metrics"
	"arbor-cli/internal/nodes"
	"arbor-cli/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators of the tree view. DB and State are required; the
// rest default to fresh instances.
type Deps struct {
	DB      *store.DB
	State   *appstate.State
	Nodes   *nodes.Service
	Hub     *live.Hub
	Metrics *metrics.Tracker
	Log     logrus.FieldLogger

	// Glyphs is the configured glyph set ("unicode" or "ascii").
	Glyphs string
}

func (d Deps) withDefaults() Deps {
	if d.Log == nil {
		d.Log = logging.Discard()
	}
	if d.Nodes == nil {
		d.Nodes = nodes.New(d.DB, nodes.WithLogger(d.Log))
	}
	if d.Hub == nil {
		d.Hub = live.NewHub()
		d.Hub.Attach(d.DB)
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New(d.Log)
	}
	return d
}

// Run blocks until the user quits or ctx is done.
func Run(ctx context.Context, d Deps) error {
	if d.DB == nil {
		return store.ErrNoDatabase
	}
	if d.State == nil {
		return store.ErrNoSession
	}
	applyColorProfilePreference()
	applyThemePreference()
	applyGlyphPreference(d.Glyphs)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newAppModel(ctx, d)
	m.metrics.RegisterStart()
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
