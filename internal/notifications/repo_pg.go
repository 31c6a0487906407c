package notifications

import (
	"context"
	"database/sql"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// List returns the user's notifications ordered newest-first.
func (r *PGRepo) List(ctx context.Context, userID string) ([]Record, error) {
	const query = `
SELECT id, user_id, title, message, kind, target_link, is_read, read_at, created_at
FROM notifications
WHERE user_id = $1
ORDER BY created_at DESC, id`

	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var rec Record
		var kind string
		var targetLink sql.NullString
		var readAt sql.NullTime
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.Title,
			&rec.Message,
			&kind,
			&targetLink,
			&rec.Read,
			&readAt,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Kind = Kind(kind)
		if targetLink.Valid {
			rec.TargetLink = targetLink.String
		}
		if readAt.Valid {
			t := readAt.Time
			rec.ReadAt = &t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Create inserts a notification. A reused id yields ErrDuplicateID.
func (r *PGRepo) Create(ctx context.Context, rec Record) error {
	const query = `
INSERT INTO notifications (
    id,
    user_id,
    title,
    message,
    kind,
    target_link,
    is_read,
    read_at,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO NOTHING`

	var targetLink sql.NullString
	if rec.TargetLink != "" {
		targetLink = sql.NullString{String: rec.TargetLink, Valid: true}
	}
	var readAt sql.NullTime
	if rec.ReadAt != nil {
		readAt = sql.NullTime{Time: *rec.ReadAt, Valid: true}
	}

	res, err := r.DB.ExecContext(
		ctx,
		query,
		rec.ID,
		rec.UserID,
		rec.Title,
		rec.Message,
		string(rec.Kind),
		targetLink,
		rec.Read,
		readAt,
		rec.CreatedAt,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDuplicateID
	}
	return nil
}

// MarkRead flags one notification as read, keeping an existing read_at.
func (r *PGRepo) MarkRead(ctx context.Context, userID, id string, at time.Time) error {
	const query = `
UPDATE notifications
SET is_read = TRUE, read_at = COALESCE(read_at, $1)
WHERE user_id = $2 AND id = $3`
	return execOne(ctx, r.DB, query, at, userID, id)
}

// MarkAllRead flags every unread notification of the user.
func (r *PGRepo) MarkAllRead(ctx context.Context, userID string, at time.Time) error {
	const query = `
UPDATE notifications
SET is_read = TRUE, read_at = $1
WHERE user_id = $2 AND is_read = FALSE`
	_, err := r.DB.ExecContext(ctx, query, at, userID)
	return err
}

// Delete removes one notification.
func (r *PGRepo) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM notifications WHERE user_id = $1 AND id = $2`
	return execOne(ctx, r.DB, query, userID, id)
}

// DeleteAll removes every notification of the user.
func (r *PGRepo) DeleteAll(ctx context.Context, userID string) error {
	const query = `DELETE FROM notifications WHERE user_id = $1`
	_, err := r.DB.ExecContext(ctx, query, userID)
	return err
}

func execOne(ctx context.Context, db *sql.DB, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repo = (*PGRepo)(nil)
