package resumes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"interview-backend/internal/shared/storage/db"
)

const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// SQLRepo implements Repo on Postgres or SQLite.
type SQLRepo struct {
	DB      *sql.DB
	Dialect string
}

// Create inserts a new resume.
func (r *SQLRepo) Create(ctx context.Context, res Resume) error {
	const query = `
INSERT INTO resumes (
    id,
    file_name,
    mime_type,
    size_bytes,
    storage_key,
    checksum,
    text,
    created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.DB.ExecContext(
		ctx,
		db.Rebind(r.Dialect, query),
		res.ID,
		res.FileName,
		res.MimeType,
		res.SizeBytes,
		res.StorageKey,
		res.Checksum,
		res.Text,
		res.CreatedAt.UTC().Format(timeLayout),
	)
	return err
}

// Get fetches a resume by id.
func (r *SQLRepo) Get(ctx context.Context, id string) (Resume, error) {
	const query = `
SELECT id, file_name, mime_type, size_bytes, storage_key, checksum, text, created_at
FROM resumes
WHERE id = ?`

	var res Resume
	var createdAt string
	err := r.DB.QueryRowContext(ctx, db.Rebind(r.Dialect, query), id).Scan(
		&res.ID,
		&res.FileName,
		&res.MimeType,
		&res.SizeBytes,
		&res.StorageKey,
		&res.Checksum,
		&res.Text,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Resume{}, ErrNotFound
		}
		return Resume{}, err
	}
	res.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return Resume{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return res, nil
}
