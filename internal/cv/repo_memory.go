package cv

import (
	"context"
	"sync"
	"time"

	"student-dashboard/internal/shared/transport"
)

// MemoryRepo is an in-memory Repo behind the simulated transport.
type MemoryRepo struct {
	Transport transport.Simulator

	mu    sync.RWMutex
	files map[string]File
}

// NewMemoryRepo constructs an empty MemoryRepo.
func NewMemoryRepo(latency time.Duration) *MemoryRepo {
	return &MemoryRepo{
		Transport: transport.Simulator{Latency: latency},
		files:     make(map[string]File),
	}
}

// Current returns the user's CV.
func (r *MemoryRepo) Current(ctx context.Context, userID string) (File, error) {
	if err := r.Transport.Wait(ctx); err != nil {
		return File{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.files[userID]
	if !ok {
		return File{}, ErrNotFound
	}
	return f, nil
}

// Replace swaps in f and returns the previous CV.
func (r *MemoryRepo) Replace(ctx context.Context, f File) (*File, error) {
	if err := r.Transport.Wait(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.files[f.UserID]
	r.files[f.UserID] = f
	if !ok {
		return nil, nil
	}
	return &prev, nil
}

// Delete removes the user's CV.
func (r *MemoryRepo) Delete(ctx context.Context, userID string) (File, error) {
	if err := r.Transport.Wait(ctx); err != nil {
		return File{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[userID]
	if !ok {
		return File{}, ErrNotFound
	}
	delete(r.files, userID)
	return f, nil
}

var _ Repo = (*MemoryRepo)(nil)
