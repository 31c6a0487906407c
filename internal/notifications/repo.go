package notifications

import (
	"context"
	"time"
)

// Repo is the authoritative notification backend.
type Repo interface {
	// List returns every notification for the user, newest first.
	List(ctx context.Context, userID string) ([]Record, error)
	Create(ctx context.Context, rec Record) error
	MarkRead(ctx context.Context, userID, id string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) error
	Delete(ctx context.Context, userID, id string) error
	DeleteAll(ctx context.Context, userID string) error
}
