package query

import (
	"database/sql"
	"strings"

	"arbor-cli/internal/store"
)

func CountAllNodes() Query {
	return Query{
		Name:   "count_all_nodes",
		SQL:    `SELECT COUNT(*) AS count FROM nodes`,
		Tables: []string{store.TableNodes},
	}
}

// CountUserNodes counts nodes owned by the session's local id.
func CountUserNodes(localID string) Query {
	return Query{
		Name:   "count_user_nodes",
		SQL:    `SELECT COUNT(*) AS count FROM nodes WHERE user_id = ?`,
		Args:   []any{strings.TrimSpace(localID)},
		Tables: []string{store.TableNodes},
	}
}

// CountPendingUploads counts local writes not yet acknowledged by the sync agent.
func CountPendingUploads() Query {
	return Query{
		Name:   "count_pending_uploads",
		SQL:    `SELECT COUNT(*) AS count FROM crud_queue`,
		Tables: []string{store.TableCrudQueue},
	}
}

// ScanCount reads a single COUNT(*) row. No rows reads as zero.
func ScanCount(rows *sql.Rows) (int64, error) {
	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}

// SyncStatus reads the key/value rows the sync agent reports; decode them with
// store.ScanSyncStatus.
func SyncStatus() Query {
	return Query{
		Name:   "sync_status",
		SQL:    `SELECT k, v FROM sync_status`,
		Tables: []string{store.TableSyncStatus},
	}
}
