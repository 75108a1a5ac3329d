package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"arbor-cli/internal/model"

	json "github.com/goccy/go-json"
)

// Tx is a write transaction. Every local write goes through a Tx so that the node
// row and its upload-queue entry commit together.
type Tx struct {
	tx      *sql.Tx
	id      int64
	touched map[string]bool
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

// Touch marks tables as changed by this transaction.
func (t *Tx) Touch(tables ...string) {
	for _, name := range tables {
		t.touched[name] = true
	}
}

func (t *Tx) tables() []string {
	out := make([]string, 0, len(t.touched))
	for name := range t.touched {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// txID allocates the upload transaction id lazily, once per Tx.
func (t *Tx) txID(ctx context.Context) (int64, error) {
	if t.id != 0 {
		return t.id, nil
	}
	var raw string
	err := t.tx.QueryRowContext(ctx, `SELECT v FROM state_meta WHERE k = 'next_tx_id'`).Scan(&raw)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	next := int64(1)
	if raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("state_meta next_tx_id: %w", err)
		}
		next = n
	}
	if _, err := t.tx.ExecContext(ctx, `INSERT OR REPLACE INTO state_meta(k, v) VALUES('next_tx_id', ?)`, strconv.FormatInt(next+1, 10)); err != nil {
		return 0, err
	}
	t.id = next
	return next, nil
}

// Enqueue appends an upload-queue entry for a row written in this transaction.
func (t *Tx) Enqueue(ctx context.Context, op model.CrudOp, table, rowID string, data map[string]any) error {
	id, err := t.txID(ctx)
	if err != nil {
		return err
	}
	if data == nil {
		data = map[string]any{}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx, `INSERT INTO crud_queue(tx_id, op, table_name, row_id, data_json, created_at) VALUES(?, ?, ?, ?, ?, ?)`,
		id, string(op), table, rowID, string(raw), FormatTime(time.Now())); err != nil {
		return err
	}
	t.Touch(table, TableCrudQueue)
	return nil
}

// PendingUploads returns queued entries in write order. limit <= 0 returns all.
func (db *DB) PendingUploads(ctx context.Context, limit int) ([]model.CrudEntry, error) {
	q := `SELECT seq, tx_id, op, table_name, row_id, data_json, created_at FROM crud_queue ORDER BY seq`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.CrudEntry{}
	for rows.Next() {
		var (
			e       model.CrudEntry
			op      string
			data    string
			created string
		)
		if err := rows.Scan(&e.Seq, &e.TxID, &op, &e.Table, &e.RowID, &data, &created); err != nil {
			return nil, err
		}
		e.Op = model.CrudOp(op)
		if strings.TrimSpace(data) != "" {
			if err := json.Unmarshal([]byte(data), &e.Data); err != nil {
				return nil, fmt.Errorf("crud_queue seq %d: %w", e.Seq, err)
			}
		}
		if e.CreatedAt, err = ParseTime(created); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AckUploads removes every queued entry with seq <= through and returns how many were removed.
func (db *DB) AckUploads(ctx context.Context, through int64) (int64, error) {
	var n int64
	err := db.WithTx(ctx, func(tx *Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM crud_queue WHERE seq <= ?`, through)
		if err != nil {
			return err
		}
		n, _ = res.RowsAffected()
		if n > 0 {
			tx.Touch(TableCrudQueue)
		}
		return nil
	})
	return n, err
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(model.TimeLayout)
}

func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(model.TimeLayout, s); err == nil {
		return t, nil
	}
	// Rows written by the sync agent may carry other RFC 3339 precisions.
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}
