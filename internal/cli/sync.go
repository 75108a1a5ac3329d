package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"arbor-cli/internal/format"
	"arbor-cli/internal/model"
	"arbor-cli/internal/store"

	"github.com/spf13/cobra"
)

// The sync agent is a separate process. These commands are its side of the local
// contract: drain the upload queue, acknowledge uploads, and report status.
func newSyncCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Upload queue and sync status (the sync agent's interface)",
	}
	cmd.AddCommand(newSyncPendingCmd(app))
	cmd.AddCommand(newSyncAckCmd(app))
	cmd.AddCommand(newSyncReportCmd(app))
	return cmd
}

type crudList []model.CrudEntry

func (l crudList) Text(st format.Styles) string {
	t := format.Table{Header: []string{"SEQ", "TX", "OP", "TABLE", "ROW"}}
	for _, e := range l {
		t.Rows = append(t.Rows, []string{fmt.Sprint(e.Seq), fmt.Sprint(e.TxID), string(e.Op), e.Table, e.RowID})
	}
	return t.Text(st)
}

func newSyncPendingCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List queued local writes in upload order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := app.openDB(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			out, err := db.PendingUploads(cmd.Context(), limit)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, crudList(out))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum entries (0 = all)")
	return cmd
}

func newSyncAckCmd(app *App) *cobra.Command {
	var through int64

	cmd := &cobra.Command{
		Use:   "ack",
		Short: "Drop queued writes up to and including a sequence number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if through <= 0 {
				return writeErr(cmd, errors.New("missing --through"))
			}
			db, err := app.openDB(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			n, err := db.AckUploads(cmd.Context(), through)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"acked": n, "through": through})
		},
	}
	cmd.Flags().Int64Var(&through, "through", 0, "Last uploaded sequence number")
	return cmd
}

func newSyncReportCmd(app *App) *cobra.Command {
	var (
		connected, hasSynced, uploading, downloading bool
		downloaded, total                            int64
		syncedAt                                     string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Replace the reported sync status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := model.SyncStatus{
				Connected: connected,
				HasSynced: hasSynced,
				DataFlow:  model.DataFlowStatus{Uploading: uploading, Downloading: downloading},
			}
			if downloading || total > 0 {
				st.DownloadProgress = &model.DownloadProgress{DownloadedOperations: downloaded, TotalOperations: total}
			}
			if s := strings.TrimSpace(syncedAt); s != "" {
				t, err := parseSyncedAt(s)
				if err != nil {
					return writeErr(cmd, err)
				}
				st.LastSyncedAt = &t
				st.HasSynced = true
			}
			db, err := app.openDB(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := db.SaveSyncStatus(cmd.Context(), st); err != nil {
				return writeErr(cmd, err)
			}
			saved, err := db.SyncStatus(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, syncStatusView{saved})
		},
	}
	cmd.Flags().BoolVar(&connected, "connected", false, "Connected to the backend")
	cmd.Flags().BoolVar(&hasSynced, "has-synced", false, "At least one full sync completed")
	cmd.Flags().BoolVar(&uploading, "uploading", false, "Upload in progress")
	cmd.Flags().BoolVar(&downloading, "downloading", false, "Download in progress")
	cmd.Flags().Int64Var(&downloaded, "downloaded", 0, "Downloaded operations")
	cmd.Flags().Int64Var(&total, "total", 0, "Total operations to download")
	cmd.Flags().StringVar(&syncedAt, "synced-at", "", "Last sync time (RFC3339, or \"now\")")
	return cmd
}

func parseSyncedAt(s string) (time.Time, error) {
	if s == "now" {
		return time.Now().UTC(), nil
	}
	t, err := store.ParseTime(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --synced-at: %w", err)
	}
	return t, nil
}
