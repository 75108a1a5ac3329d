package cli

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"arbor-cli/internal/live"
	"arbor-cli/internal/query"
	"arbor-cli/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newWatchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live query results until interrupted",
	}
	cmd.AddCommand(newWatchVisibleCmd(app))
	cmd.AddCommand(newWatchStatusCmd(app))
	return cmd
}

func newWatchVisibleCmd(app *App) *cobra.Command {
	var p visibleFlags
	var count int

	cmd := &cobra.Command{
		Use:   "visible",
		Short: "Print the visible-node query result every time it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadNodeEnv(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			q := p.query(env.sess.UserID)
			return streamQuery(cmd, app, env.db, q, count, func(rows *sql.Rows) (any, error) {
				ns, err := query.ScanNodes(rows)
				return nodeList(ns), err
			})
		},
	}
	p.register(cmd)
	cmd.Flags().IntVar(&count, "count", 0, "Stop after this many results (0 = until interrupted)")
	return cmd
}

func newWatchStatusCmd(app *App) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the sync status every time the sync agent reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := app.openDB(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return streamQuery(cmd, app, db, query.SyncStatus(), count, func(rows *sql.Rows) (any, error) {
				st, err := store.ScanSyncStatus(rows)
				return syncStatusView{st}, err
			})
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "Stop after this many results (0 = until interrupted)")
	return cmd
}

// streamQuery runs q live (local commits and other processes' writes both trigger
// re-runs) and writes one envelope per result.
func streamQuery(cmd *cobra.Command, app *App, db *store.DB, q query.Query, count int, scan func(*sql.Rows) (any, error)) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

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

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return watcher.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		seen := 0
		for res := range live.Watch(gctx, hub, db, q, scan) {
			if res.Err != nil {
				return res.Err
			}
			app.log.WithFields(logrus.Fields{"query": q.Name, "seq": res.Seq}).Debug("result")
			meta := map[string]any{"query": q.Name, "seq": res.Seq, "at": res.At}
			if err := writeOutMeta(cmd, app, res.Value, meta); err != nil {
				return err
			}
			seen++
			if count > 0 && seen >= count {
				return nil
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return writeErr(cmd, err)
	}
	return nil
}
