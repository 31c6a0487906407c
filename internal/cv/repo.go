package cv

import "context"

// Repo stores at most one CV per user.
type Repo interface {
	Current(ctx context.Context, userID string) (File, error)
	// Replace makes f the user's CV and returns the one it displaced, if any.
	Replace(ctx context.Context, f File) (*File, error)
	// Delete removes the user's CV and returns it. ErrNotFound when there is none.
	Delete(ctx context.Context, userID string) (File, error)
}
