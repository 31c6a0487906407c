package notifications

import (
	"context"
	"sync"
	"time"

	"student-dashboard/internal/shared/transport"
)

// MemoryRepo is an in-memory Repo. Each instance owns its data; nothing is shared
// between instances. Calls pay the simulated transport latency.
type MemoryRepo struct {
	Transport transport.Simulator
	// Seed, when set, populates a user's notifications on first access.
	Seed func(userID string, now time.Time) []Record
	// Fail, when set, is consulted before every operation; a non-nil error aborts it.
	Fail func(op string) error

	mu     sync.RWMutex
	data   map[string][]Record
	seeded map[string]bool
	now    func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo seeded with DemoSeed.
func NewMemoryRepo(latency time.Duration) *MemoryRepo {
	return &MemoryRepo{
		Transport: transport.Simulator{Latency: latency},
		Seed:      DemoSeed,
		data:      make(map[string][]Record),
		seeded:    make(map[string]bool),
		now:       time.Now,
	}
}

func (r *MemoryRepo) begin(ctx context.Context, op string) error {
	if err := r.Transport.Wait(ctx); err != nil {
		return err
	}
	if r.Fail != nil {
		if err := r.Fail(op); err != nil {
			return err
		}
	}
	return nil
}

// ensureSeeded must be called with r.mu held for writing.
func (r *MemoryRepo) ensureSeeded(userID string) {
	if r.seeded[userID] {
		return
	}
	r.seeded[userID] = true
	if r.Seed == nil {
		return
	}
	for _, rec := range r.Seed(userID, r.now().UTC()) {
		rec.UserID = userID
		r.data[userID] = append(r.data[userID], rec)
	}
	sortNewestFirst(r.data[userID])
}

// List returns the user's notifications, newest first.
func (r *MemoryRepo) List(ctx context.Context, userID string) ([]Record, error) {
	if err := r.begin(ctx, "list"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureSeeded(userID)
	return clone(r.data[userID]), nil
}

// Create inserts a notification, keeping newest-first order.
func (r *MemoryRepo) Create(ctx context.Context, rec Record) error {
	if err := r.begin(ctx, "create"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureSeeded(rec.UserID)
	for _, recs := range r.data {
		if indexOf(recs, rec.ID) >= 0 {
			return ErrDuplicateID
		}
	}
	recs := append(r.data[rec.UserID], rec)
	sortNewestFirst(recs)
	r.data[rec.UserID] = recs
	return nil
}

// MarkRead flags one notification as read. Already-read records keep their ReadAt.
func (r *MemoryRepo) MarkRead(ctx context.Context, userID, id string, at time.Time) error {
	if err := r.begin(ctx, "mark_read"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureSeeded(userID)
	recs := r.data[userID]
	i := indexOf(recs, id)
	if i < 0 {
		return ErrNotFound
	}
	if !recs[i].Read {
		readAt := at
		recs[i].Read = true
		recs[i].ReadAt = &readAt
	}
	return nil
}

// MarkAllRead flags every notification of the user as read.
func (r *MemoryRepo) MarkAllRead(ctx context.Context, userID string, at time.Time) error {
	if err := r.begin(ctx, "mark_all_read"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureSeeded(userID)
	recs := r.data[userID]
	for i := range recs {
		if !recs[i].Read {
			readAt := at
			recs[i].Read = true
			recs[i].ReadAt = &readAt
		}
	}
	return nil
}

// Delete removes one notification.
func (r *MemoryRepo) Delete(ctx context.Context, userID, id string) error {
	if err := r.begin(ctx, "delete"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureSeeded(userID)
	recs := r.data[userID]
	i := indexOf(recs, id)
	if i < 0 {
		return ErrNotFound
	}
	out := make([]Record, 0, len(recs)-1)
	out = append(out, recs[:i]...)
	out = append(out, recs[i+1:]...)
	r.data[userID] = out
	return nil
}

// DeleteAll removes every notification of the user.
func (r *MemoryRepo) DeleteAll(ctx context.Context, userID string) error {
	if err := r.begin(ctx, "delete_all"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seeded[userID] = true
	r.data[userID] = nil
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
