package cv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres. cv_files holds one row per user.
type PGRepo struct {
	DB *sql.DB
}

const cvColumns = `id, user_id, file_name, file_size, mime_type, storage_key, file_url, uploaded_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (File, error) {
	var f File
	var fileURL sql.NullString
	if err := row.Scan(&f.ID, &f.UserID, &f.FileName, &f.FileSize, &f.MimeType, &f.StorageKey, &fileURL, &f.UploadedAt); err != nil {
		return File{}, err
	}
	if fileURL.Valid {
		f.FileURL = fileURL.String
	}
	f.UploadedAt = f.UploadedAt.UTC()
	return f, nil
}

// Current returns the user's CV.
func (r *PGRepo) Current(ctx context.Context, userID string) (File, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+cvColumns+` FROM cv_files WHERE user_id = $1`, userID)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return File{}, ErrNotFound
	}
	if err != nil {
		return File{}, fmt.Errorf("select cv: %w", err)
	}
	return f, nil
}

// Replace upserts f inside a transaction, locking the previous row first.
func (r *PGRepo) Replace(ctx context.Context, f File) (*File, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var prev *File
	row := tx.QueryRowContext(ctx, `SELECT `+cvColumns+` FROM cv_files WHERE user_id = $1 FOR UPDATE`, f.UserID)
	old, err := scanFile(row)
	switch {
	case err == nil:
		prev = &old
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, fmt.Errorf("select cv: %w", err)
	}

	var fileURL sql.NullString
	if f.FileURL != "" {
		fileURL = sql.NullString{String: f.FileURL, Valid: true}
	}
	const upsert = `
INSERT INTO cv_files (id, user_id, file_name, file_size, mime_type, storage_key, file_url, uploaded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (user_id) DO UPDATE SET
    id = EXCLUDED.id,
    file_name = EXCLUDED.file_name,
    file_size = EXCLUDED.file_size,
    mime_type = EXCLUDED.mime_type,
    storage_key = EXCLUDED.storage_key,
    file_url = EXCLUDED.file_url,
    uploaded_at = EXCLUDED.uploaded_at`
	if _, err := tx.ExecContext(ctx, upsert, f.ID, f.UserID, f.FileName, f.FileSize, f.MimeType, f.StorageKey, fileURL, f.UploadedAt); err != nil {
		return nil, fmt.Errorf("upsert cv: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return prev, nil
}

// Delete removes the user's CV and returns it.
func (r *PGRepo) Delete(ctx context.Context, userID string) (File, error) {
	row := r.DB.QueryRowContext(ctx, `DELETE FROM cv_files WHERE user_id = $1 RETURNING `+cvColumns, userID)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return File{}, ErrNotFound
	}
	if err != nil {
		return File{}, fmt.Errorf("delete cv: %w", err)
	}
	return f, nil
}

var _ Repo = (*PGRepo)(nil)
