package cli

import (
	"fmt"
	"time"

	"arbor-cli/internal/format"
	"arbor-cli/internal/model"
	"arbor-cli/internal/query"

	"github.com/spf13/cobra"
)

type syncStatusView struct {
	model.SyncStatus `yaml:",inline"`
}

func (v syncStatusView) Text(st format.Styles) string {
	conn := st.Warn.Render("offline")
	if v.Connected {
		conn = "connected"
	}
	kv := format.KV{
		{"sync", conn},
		{"synced", fmt.Sprint(v.HasSynced)},
		{"lastSynced", formatTimePtr(v.LastSyncedAt)},
		{"uploading", fmt.Sprint(v.DataFlow.Uploading)},
		{"downloading", fmt.Sprint(v.DataFlow.Downloading)},
	}
	if p := v.DownloadProgress; p != nil {
		kv = append(kv, [2]string{"download", p.String()})
	}
	return kv.Text(st)
}

type statusReport struct {
	Session   *model.Session   `json:"session" yaml:"session"`
	Sync      model.SyncStatus `json:"sync" yaml:"sync"`
	AllNodes  int64            `json:"allNodes" yaml:"allNodes"`
	UserNodes int64            `json:"userNodes" yaml:"userNodes"`
	Pending   int64            `json:"pendingUploads" yaml:"pendingUploads"`
	DBPath    string           `json:"dbPath" yaml:"dbPath"`
}

func (r statusReport) Text(st format.Styles) string {
	kv := format.KV{
		{"user", r.Session.UserID},
		{"db", r.DBPath},
		{"nodes", fmt.Sprint(r.AllNodes)},
		{"myNodes", fmt.Sprint(r.UserNodes)},
		{"pending", fmt.Sprint(r.Pending)},
	}
	return kv.Text(st) + syncStatusView{r.Sync}.Text(st)
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session, node counts, and the sync agent's last report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.session()
			if err != nil {
				return writeErr(cmd, err)
			}
			db, err := app.openDB(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			ctx := cmd.Context()
			rep := statusReport{Session: sess, DBPath: db.Path()}
			if rep.Sync, err = db.SyncStatus(ctx); err != nil {
				return writeErr(cmd, err)
			}
			counts := []struct {
				q   query.Query
				dst *int64
			}{
				{query.CountAllNodes(), &rep.AllNodes},
				{query.CountUserNodes(sess.EffectiveLocalID()), &rep.UserNodes},
				{query.CountPendingUploads(), &rep.Pending},
			}
			for _, c := range counts {
				n, err := query.Run(ctx, db, c.q, query.ScanCount)
				if err != nil {
					return writeErr(cmd, err)
				}
				*c.dst = n
			}
			return writeOut(cmd, app, rep)
		},
	}
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(model.TimeLayout)
}
