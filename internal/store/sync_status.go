package store

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"arbor-cli/internal/model"
)

const (
	statusConnected   = "connected"
	statusHasSynced   = "has_synced"
	statusLastSynced  = "last_synced_at"
	statusUploading   = "uploading"
	statusDownloading = "downloading"
	statusDownloaded  = "downloaded_operations"
	statusTotal       = "total_operations"
)

// SyncStatus reads the status the external sync agent last reported.
// Missing keys read as zero values (offline, never synced).
func (db *DB) SyncStatus(ctx context.Context) (model.SyncStatus, error) {
	rows, err := db.QueryContext(ctx, `SELECT k, v FROM sync_status`)
	if err != nil {
		return model.SyncStatus{}, err
	}
	defer rows.Close()
	return ScanSyncStatus(rows)
}

// ScanSyncStatus decodes `SELECT k, v FROM sync_status` rows.
func ScanSyncStatus(rows *sql.Rows) (model.SyncStatus, error) {
	kv := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return model.SyncStatus{}, err
		}
		kv[k] = v
	}
	if err := rows.Err(); err != nil {
		return model.SyncStatus{}, err
	}

	st := model.SyncStatus{
		Connected: kv[statusConnected] == "1",
		HasSynced: kv[statusHasSynced] == "1",
		DataFlow: model.DataFlowStatus{
			Uploading:   kv[statusUploading] == "1",
			Downloading: kv[statusDownloading] == "1",
		},
	}
	if v := kv[statusLastSynced]; v != "" {
		if t, err := ParseTime(v); err == nil {
			st.LastSyncedAt = &t
		}
	}
	downloaded, _ := strconv.ParseInt(kv[statusDownloaded], 10, 64)
	total, _ := strconv.ParseInt(kv[statusTotal], 10, 64)
	if st.DataFlow.Downloading || total > 0 {
		st.DownloadProgress = &model.DownloadProgress{
			DownloadedOperations: downloaded,
			TotalOperations:      total,
			DownloadedFraction:   downloadedFraction(downloaded, total),
		}
	}
	return st, nil
}

// SaveSyncStatus replaces the reported status. Used by the sync agent integration and tests.
func (db *DB) SaveSyncStatus(ctx context.Context, st model.SyncStatus) error {
	kv := map[string]string{
		statusConnected:   boolFlag(st.Connected),
		statusHasSynced:   boolFlag(st.HasSynced),
		statusUploading:   boolFlag(st.DataFlow.Uploading),
		statusDownloading: boolFlag(st.DataFlow.Downloading),
		statusLastSynced:  "",
		statusDownloaded:  "0",
		statusTotal:       "0",
	}
	if st.LastSyncedAt != nil {
		kv[statusLastSynced] = FormatTime(*st.LastSyncedAt)
	}
	if p := st.DownloadProgress; p != nil {
		kv[statusDownloaded] = strconv.FormatInt(p.DownloadedOperations, 10)
		kv[statusTotal] = strconv.FormatInt(p.TotalOperations, 10)
	}
	return db.WithTx(ctx, func(tx *Tx) error {
		for k, v := range kv {
			if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO sync_status(k, v) VALUES(?, ?)`, k, v); err != nil {
				return err
			}
		}
		tx.Touch(TableSyncStatus)
		return nil
	})
}

// MarkSynced records a completed sync at t.
func (db *DB) MarkSynced(ctx context.Context, t time.Time) error {
	st, err := db.SyncStatus(ctx)
	if err != nil {
		return err
	}
	st.HasSynced = true
	st.LastSyncedAt = &t
	st.DataFlow.Downloading = false
	return db.SaveSyncStatus(ctx, st)
}

func downloadedFraction(downloaded, total int64) float64 {
	if total <= 0 {
		return 0
	}
	f := float64(downloaded) / float64(total)
	if f > 1 {
		return 1
	}
	return f
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
