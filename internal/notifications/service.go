package notifications

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultIdleTTL is how long an untouched per-user store is kept.
const DefaultIdleTTL = 30 * time.Minute

const sweepEvery = time.Minute

// Service owns the per-user stores over one Repo. Stores untouched for
// IdleTTL are dropped; the next access rebuilds them from the Repo.
type Service struct {
	Repo    Repo
	IdleTTL time.Duration

	mu        sync.Mutex
	stores    map[string]*storeEntry
	lastSweep time.Time
	now       func() time.Time
}

type storeEntry struct {
	store *Store
	seen  time.Time
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{
		Repo:    repo,
		IdleTTL: DefaultIdleTTL,
		stores:  make(map[string]*storeEntry),
		now:     time.Now,
	}
}

// StoreFor returns the user's store, creating it on first use.
func (s *Service) StoreFor(userID string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweep(now)
	e, ok := s.stores[userID]
	if !ok {
		st := NewStore(s.Repo, userID)
		st.now = s.now
		e = &storeEntry{store: st}
		s.stores[userID] = e
	}
	e.seen = now
	return e.store
}

// Forget drops the user's store, e.g. on logout.
func (s *Service) Forget(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stores, userID)
}

// Len reports the number of cached stores.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.stores)
}

// sweep requires s.mu.
func (s *Service) sweep(now time.Time) {
	if s.IdleTTL <= 0 || now.Sub(s.lastSweep) < sweepEvery {
		return
	}
	s.lastSweep = now
	for userID, e := range s.stores {
		if now.Sub(e.seen) > s.IdleTTL {
			delete(s.stores, userID)
		}
	}
}

// Publish validates and persists a new notification. Missing ids and
// timestamps are filled in. A redelivered id is reported as ErrDuplicateID.
func (s *Service) Publish(ctx context.Context, rec Record) (Record, error) {
	if s == nil || s.Repo == nil {
		return Record{}, errors.New("notifications service not configured")
	}
	rec.UserID = strings.TrimSpace(rec.UserID)
	rec.Title = strings.TrimSpace(rec.Title)
	if rec.UserID == "" || rec.Title == "" {
		return Record{}, ErrInvalidInput
	}
	if rec.Kind == "" {
		rec.Kind = KindInfo
	}
	if !rec.Kind.Valid() {
		return Record{}, ErrInvalidInput
	}
	if strings.TrimSpace(rec.ID) == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	if rec.Read && rec.ReadAt == nil {
		at := rec.CreatedAt
		rec.ReadAt = &at
	}
	if err := s.Repo.Create(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}
