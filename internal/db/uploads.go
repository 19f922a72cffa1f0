package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rsclarke/ingestcam/internal/models"
)

// InsertUpload records one upload attempt.
func InsertUpload(ctx context.Context, d *sql.DB, u models.Upload) error {
	okVal := 0
	if u.OK {
		okVal = 1
	}
	_, err := d.ExecContext(ctx,
		"INSERT INTO uploads (id, seq, label, filename, size, project_id, ok, status_code, message, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		u.ID, u.Seq, u.Label, u.Filename, u.Size, u.ProjectID, okVal, u.StatusCode, u.Message, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert upload %s: %w", u.ID, err)
	}
	return nil
}

// ListUploads returns the most recent upload attempts, newest first. A
// limit of zero or less returns every row.
func ListUploads(ctx context.Context, d *sql.DB, limit int) ([]models.Upload, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.QueryContext(ctx,
		"SELECT id, seq, label, filename, size, project_id, ok, status_code, message, created_at FROM uploads ORDER BY created_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uploads []models.Upload
	for rows.Next() {
		var u models.Upload
		var okVal int
		if err := rows.Scan(&u.ID, &u.Seq, &u.Label, &u.Filename, &u.Size, &u.ProjectID, &okVal, &u.StatusCode, &u.Message, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.OK = okVal != 0
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}

// CountUploads returns the number of recorded attempts and how many of
// them succeeded.
func CountUploads(ctx context.Context, d *sql.DB) (total, ok int, err error) {
	err = d.QueryRowContext(ctx, "SELECT COUNT(*), COALESCE(SUM(ok), 0) FROM uploads").Scan(&total, &ok)
	return total, ok, err
}

// UploadStore records upload attempts from the capture loop.
type UploadStore struct {
	DB *sql.DB
}

func (s *UploadStore) RecordUpload(ctx context.Context, u models.Upload) error {
	return InsertUpload(ctx, s.DB, u)
}
