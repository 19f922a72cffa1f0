package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/rsclarke/ingestcam/internal/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenCreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "history.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestMigrationsApplied(t *testing.T) {
	db := openTestDB(t)

	for _, table := range []string{"schema_migrations", "uploads"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestReopenSkipsAppliedMigrations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 2; i++ {
		db, err := Open(dbPath)
		if err != nil {
			t.Fatalf("Open #%d failed: %v", i+1, err)
		}
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatal(err)
		}
		if count != 1 {
			t.Errorf("schema_migrations has %d rows, want 1", count)
		}
		_ = db.Close()
	}
}

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("001_create_uploads.sql")
	if err != nil || v != 1 {
		t.Errorf("parseVersion() = %d, %v; want 1, nil", v, err)
	}
	if _, err := parseVersion("create_uploads.sql"); err == nil {
		t.Error("expected error for filename without version")
	}
}

func TestInsertAndListUploads(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rows := []models.Upload{
		{ID: "a", Seq: 1, Label: "cat", Filename: "photo.png", Size: 10, ProjectID: 7, OK: true, StatusCode: 200, Message: "OK", CreatedAt: 100},
		{ID: "b", Seq: 2, Label: "cat", Filename: "photo.png", Size: 11, ProjectID: 7, StatusCode: 500, Message: "Internal Server Error", CreatedAt: 200},
		{ID: "c", Seq: 3, Label: "dog", Filename: "photo.png", Size: 12, Message: "connection refused", CreatedAt: 300},
	}
	for _, u := range rows {
		if err := InsertUpload(ctx, db, u); err != nil {
			t.Fatalf("InsertUpload(%s): %v", u.ID, err)
		}
	}

	got, err := ListUploads(ctx, db, 0)
	if err != nil {
		t.Fatalf("ListUploads: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d uploads, want 3", len(got))
	}
	if got[0].ID != "c" || got[2].ID != "a" {
		t.Errorf("order = %s,%s,%s; want newest first", got[0].ID, got[1].ID, got[2].ID)
	}
	if got[2] != rows[0] {
		t.Errorf("round trip = %+v, want %+v", got[2], rows[0])
	}

	limited, err := ListUploads(ctx, db, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("limit 2 returned %d rows", len(limited))
	}

	total, ok, err := CountUploads(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || ok != 1 {
		t.Errorf("CountUploads() = %d, %d; want 3, 1", total, ok)
	}
}

func TestInsertDuplicateID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	u := models.Upload{ID: "dup", Label: "x", Filename: "photo.png", CreatedAt: 1}

	if err := InsertUpload(ctx, db, u); err != nil {
		t.Fatal(err)
	}
	if err := InsertUpload(ctx, db, u); err == nil {
		t.Error("expected error inserting duplicate id")
	}
}

func TestUploadStoreRecords(t *testing.T) {
	db := openTestDB(t)
	store := &UploadStore{DB: db}

	if err := store.RecordUpload(context.Background(), models.Upload{ID: "r1", Label: "x", Filename: "photo.png", OK: true, CreatedAt: 5}); err != nil {
		t.Fatalf("RecordUpload: %v", err)
	}
	got, err := ListUploads(context.Background(), db, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !got[0].OK {
		t.Errorf("got %+v", got)
	}
}

func TestListUploadsEmpty(t *testing.T) {
	db := openTestDB(t)
	got, err := ListUploads(context.Background(), db, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d rows from empty table", len(got))
	}
}
