package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

const (
	dbFileName = "arbor.sqlite"

	TableNodes      = "nodes"
	TableCrudQueue  = "crud_queue"
	TableSyncStatus = "sync_status"
)

// AllTables lists every table a change notification can name.
var AllTables = []string{TableNodes, TableCrudQueue, TableSyncStatus}

var ErrNoDatabase = errors.New("no database: open the store before use")

// Store is a data directory holding the local SQLite mirror and the session file.
type Store struct {
	Dir string
}

// DB is an open handle on the local mirror.
type DB struct {
	conn *sql.DB
	path string

	mu        sync.RWMutex
	listeners []func(tables []string)
}

func DefaultDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); v != "" {
		return filepath.Join(v, "arbor"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "arbor"), nil
}

func (s Store) Ensure() error {
	if strings.TrimSpace(s.Dir) == "" {
		return errors.New("store: empty data dir")
	}
	return os.MkdirAll(s.Dir, 0o755)
}

func (s Store) DBPath() string {
	return filepath.Join(filepath.Clean(s.Dir), dbFileName)
}

// Open opens (creating if needed) the SQLite mirror and applies migrations.
func (s Store) Open(ctx context.Context) (*DB, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	path := s.DBPath()

	// Pragmas go in the DSN so every pooled connection gets them.
	// WAL enables one writer + many readers; busy_timeout helps avoid "database is locked" flakiness.
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", "foreign_keys(ON)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Set("_txlock", "immediate")
	dsn := "file:" + path + "?" + q.Encode()

	// modernc.org/sqlite driver name is "sqlite".
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := migrate(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return &DB{conn: conn, path: path}, nil
}

func (db *DB) Close() error {
	if db == nil || db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

func (db *DB) Path() string { return db.path }

// Conn exposes the pool for read queries.
func (db *DB) Conn() *sql.DB { return db.conn }

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if db == nil || db.conn == nil {
		return nil, ErrNoDatabase
	}
	return db.conn.QueryContext(ctx, query, args...)
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.conn.QueryRowContext(ctx, query, args...)
}

// OnChange registers fn to be called after every committed transaction with the
// tables it touched. Listeners run synchronously on the committing goroutine.
func (db *DB) OnChange(fn func(tables []string)) {
	if fn == nil {
		return
	}
	db.mu.Lock()
	db.listeners = append(db.listeners, fn)
	db.mu.Unlock()
}

func (db *DB) notify(tables []string) {
	if len(tables) == 0 {
		return
	}
	db.mu.RLock()
	ls := append([]func([]string){}, db.listeners...)
	db.mu.RUnlock()
	for _, fn := range ls {
		fn(tables)
	}
}

// WithTx runs fn inside a write transaction. Tables marked via Tx.Touch (or written
// by Tx.Enqueue) are announced to OnChange listeners after commit.
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	if db == nil || db.conn == nil {
		return ErrNoDatabase
	}
	sqlTx, err := db.conn.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = sqlTx.Rollback() }()

	tx := &Tx{tx: sqlTx, touched: map[string]bool{}}
	if err := fn(tx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return err
	}
	db.notify(tx.tables())
	return nil
}
