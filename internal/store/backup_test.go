package store

import (
	"context"
	"path/filepath"
	"testing"
)

func TestBackupCopiesDatabase(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	insertNode(t, db, "a")

	destDir := t.TempDir()
	dest := filepath.Join(destDir, "sub", dbFileName)
	if err := db.Backup(ctx, dest); err != nil {
		t.Fatalf("backup: %v", err)
	}
	if err := db.Backup(ctx, dest); err == nil {
		t.Fatalf("expected error for existing destination")
	}
	if err := db.Backup(ctx, " "); err == nil {
		t.Fatalf("expected error for empty destination")
	}

	copyDB, err := (Store{Dir: filepath.Dir(dest)}).Open(ctx)
	if err != nil {
		t.Fatalf("open copy: %v", err)
	}
	defer copyDB.Close()
	pending, err := copyDB.PendingUploads(ctx, 0)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].RowID != "a" {
		t.Fatalf("copy queue: %+v", pending)
	}
}
