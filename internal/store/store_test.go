package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"arbor-cli/internal/model"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := (Store{Dir: t.TempDir()}).Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func insertNode(t *testing.T, db *DB, id string) {
	t.Helper()
	ctx := context.Background()
	err := db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO nodes(id, user_id, content, created_at) VALUES(?, 'u1', '', ?)`, id, FormatTime(time.Now())); err != nil {
			return err
		}
		return tx.Enqueue(ctx, model.CrudPut, TableNodes, id, map[string]any{"content": ""})
	})
	if err != nil {
		t.Fatalf("insert %s: %v", id, err)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := Store{Dir: filepath.Join(dir, "nested", "data")}
	for i := 0; i < 2; i++ {
		db, err := s.Open(context.Background())
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		if db.Path() != s.DBPath() {
			t.Fatalf("path: got %q want %q", db.Path(), s.DBPath())
		}
		if err := db.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	if _, err := os.Stat(s.DBPath()); err != nil {
		t.Fatalf("expected database file: %v", err)
	}
}

func TestOpenRejectsEmptyDir(t *testing.T) {
	t.Parallel()

	if _, err := (Store{}).Open(context.Background()); err == nil {
		t.Fatalf("expected error for empty data dir")
	}
}

func TestNilDBReturnsErrNoDatabase(t *testing.T) {
	t.Parallel()

	var db *DB
	err := db.WithTx(context.Background(), func(tx *Tx) error { return nil })
	if !errors.Is(err, ErrNoDatabase) {
		t.Fatalf("expected ErrNoDatabase; got %v", err)
	}
	if _, err := db.QueryContext(context.Background(), `SELECT 1`); !errors.Is(err, ErrNoDatabase) {
		t.Fatalf("expected ErrNoDatabase; got %v", err)
	}
}

func TestEnqueueGroupsEntriesByTransaction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)

	err := db.WithTx(ctx, func(tx *Tx) error {
		if err := tx.Enqueue(ctx, model.CrudPut, TableNodes, "a", map[string]any{"content": "A"}); err != nil {
			return err
		}
		return tx.Enqueue(ctx, model.CrudPatch, TableNodes, "a", map[string]any{"content": "A2"})
	})
	if err != nil {
		t.Fatalf("tx1: %v", err)
	}
	insertNode(t, db, "b")

	got, err := db.PendingUploads(ctx, 0)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries; got %d", len(got))
	}
	if got[0].TxID != got[1].TxID || got[1].TxID == got[2].TxID {
		t.Fatalf("tx ids: %d %d %d", got[0].TxID, got[1].TxID, got[2].TxID)
	}
	if got[0].Seq >= got[1].Seq || got[1].Seq >= got[2].Seq {
		t.Fatalf("expected increasing seq: %+v", got)
	}
	if got[1].Op != model.CrudPatch || got[1].Data["content"] != "A2" {
		t.Fatalf("second entry: %+v", got[1])
	}

	limited, err := db.PendingUploads(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limit: %v %d", err, len(limited))
	}

	n, err := db.AckUploads(ctx, got[1].Seq)
	if err != nil {
		t.Fatalf("ack: %v", err)
	}
	if n != 2 {
		t.Fatalf("acked %d, want 2", n)
	}
	rest, _ := db.PendingUploads(ctx, 0)
	if len(rest) != 1 || rest[0].RowID != "b" {
		t.Fatalf("remaining: %+v", rest)
	}
}

func TestFailedTxIsRolledBackAndNotAnnounced(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)

	var announced [][]string
	db.OnChange(func(tables []string) { announced = append(announced, tables) })

	boom := errors.New("boom")
	err := db.WithTx(ctx, func(tx *Tx) error {
		if err := tx.Enqueue(ctx, model.CrudPut, TableNodes, "a", nil); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom; got %v", err)
	}
	if len(announced) != 0 {
		t.Fatalf("rolled back tx announced: %v", announced)
	}
	if got, _ := db.PendingUploads(ctx, 0); len(got) != 0 {
		t.Fatalf("rolled back entry persisted: %+v", got)
	}

	insertNode(t, db, "a")
	want := [][]string{{TableCrudQueue, TableNodes}}
	if !reflect.DeepEqual(announced, want) {
		t.Fatalf("announced: got %v want %v", announced, want)
	}
}

func TestSyncStatusDefaultsAndRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)

	st, err := db.SyncStatus(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.Connected || st.HasSynced || st.LastSyncedAt != nil || st.DownloadProgress != nil {
		t.Fatalf("expected zero status; got %+v", st)
	}

	err = db.SaveSyncStatus(ctx, model.SyncStatus{
		Connected:        true,
		DataFlow:         model.DataFlowStatus{Downloading: true},
		DownloadProgress: &model.DownloadProgress{DownloadedOperations: 3, TotalOperations: 4},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	st, _ = db.SyncStatus(ctx)
	if !st.Connected || !st.DataFlow.Downloading || st.DownloadProgress == nil {
		t.Fatalf("saved status: %+v", st)
	}
	if st.DownloadProgress.DownloadedFraction != 0.75 {
		t.Fatalf("fraction: %v", st.DownloadProgress.DownloadedFraction)
	}

	at := time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	if err := db.MarkSynced(ctx, at); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	st, _ = db.SyncStatus(ctx)
	if !st.HasSynced || st.LastSyncedAt == nil || !st.LastSyncedAt.Equal(at) || st.DataFlow.Downloading {
		t.Fatalf("after MarkSynced: %+v", st)
	}
}

func TestDownloadedFractionIsClamped(t *testing.T) {
	t.Parallel()

	cases := []struct {
		done, total int64
		want        float64
	}{
		{0, 0, 0},
		{5, 0, 0},
		{1, 2, 0.5},
		{3, 2, 1},
	}
	for _, c := range cases {
		if got := downloadedFraction(c.done, c.total); got != c.want {
			t.Fatalf("downloadedFraction(%d, %d) = %v, want %v", c.done, c.total, got, c.want)
		}
	}
}

func TestParseTimeAcceptsAgentPrecisions(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, s := range []string{"2026-03-01T12:00:00.000Z", "2026-03-01T12:00:00Z", "2026-03-01T13:00:00+01:00"} {
		got, err := ParseTime(s)
		if err != nil {
			t.Fatalf("ParseTime(%q): %v", s, err)
		}
		if !got.Equal(want) {
			t.Fatalf("ParseTime(%q) = %v", s, got)
		}
	}
	if _, err := ParseTime("yesterday"); err == nil {
		t.Fatalf("expected error")
	}
}
