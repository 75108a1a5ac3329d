package cli

import (
	"context"
	"errors"

	"arbor-cli/internal/appstate"
	"arbor-cli/internal/live"
	"arbor-cli/internal/metrics"
	"arbor-cli/internal/model"
	"arbor-cli/internal/nodes"
	"arbor-cli/internal/store"
	"arbor-cli/internal/tui"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// runTUI starts the tree view with the file watcher running beside it, restoring
// and saving the per-user view state around the session.
func runTUI(cmd *cobra.Command, app *App) error {
	sess, err := app.session()
	if err != nil {
		return writeErr(cmd, err)
	}
	db, err := app.openDB(cmd.Context())
	if err != nil {
		return writeErr(cmd, err)
	}

	s := app.store()
	saved, err := s.LoadViewState()
	if err != nil {
		app.log.WithError(err).Warn("view state unreadable; starting fresh")
		saved = &store.ViewState{Version: 1}
	}
	state, err := appstate.New(sess, viewOptions(app, sess, saved)...)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer state.Close()

	hub := live.NewHub()
	hub.Attach(db)
	watcher, err := live.NewFileWatcher(db.Path(), hub, store.AllTables,
		live.WithPollInterval(app.cfg.Watch.PollInterval),
		live.WithForcePoll(app.cfg.Watch.ForcePoll),
		live.WithWatcherLogger(app.log),
	)
	if err != nil {
		return writeErr(cmd, err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watcher.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return tui.Run(gctx, tui.Deps{
			DB:      db,
			State:   state,
			Nodes:   nodes.New(db, nodes.WithLogger(app.log)),
			Hub:     hub,
			Metrics: metrics.New(app.log),
			Log:     app.log,
			Glyphs:  app.cfg.TUI.Glyphs,
		})
	})
	runErr := g.Wait()
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	if err := s.SaveViewState(viewStateFrom(state.Snapshot())); err != nil {
		app.log.WithError(err).Warn("save view state")
	}
	if runErr != nil {
		return writeErr(cmd, runErr)
	}
	return nil
}

// viewOptions restores the saved view when it belongs to this user and falls back to
// the configured toggles otherwise.
func viewOptions(app *App, sess *model.Session, saved *store.ViewState) []appstate.Option {
	if saved == nil || saved.UserID != sess.UserID {
		return []appstate.Option{
			appstate.WithShowArchived(app.cfg.TUI.ShowArchived),
			appstate.WithFocusedView(app.cfg.TUI.FocusedView),
		}
	}
	return []appstate.Option{
		appstate.WithSelected(saved.SelectedNodeID),
		appstate.WithExpanded(saved.Expanded...),
		appstate.WithShowArchived(saved.ShowArchived),
		appstate.WithFocusedView(saved.FocusedView),
	}
}

func viewStateFrom(snap appstate.Snapshot) *store.ViewState {
	st := &store.ViewState{
		Version:      1,
		UserID:       snap.Session.UserID,
		Expanded:     snap.Expanded,
		ShowArchived: snap.ShowArchived,
		FocusedView:  snap.FocusedView,
	}
	if snap.SelectedNodeID != nil {
		st.SelectedNodeID = *snap.SelectedNodeID
	}
	return st
}
