package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"student-dashboard/internal/shared/telemetry"
)

// Store is one user's client-side view of their notifications.
//
// A single authoritative read feeds every filtered projection and the unread
// counter, so the counter always reflects the whole collection. Mutations are
// applied optimistically, serialized, and published atomically; a failed
// mutation is rolled back by reloading from the Repo.
type Store struct {
	repo   Repo
	userID string
	now    func() time.Time

	mutMu sync.Mutex

	mu      sync.RWMutex
	records []Record
	version uint64
	loaded  bool
}

// NewStore constructs an empty store for userID. Call Refresh to populate it.
func NewStore(repo Repo, userID string) *Store {
	return &Store{repo: repo, userID: userID, now: time.Now}
}

// ClickResult tells the page where to navigate after a click.
type ClickResult struct {
	TargetLink string `json:"targetLink,omitempty"`
	MarkedRead bool   `json:"markedRead"`
}

// Refresh replaces the snapshot with the authoritative list. On failure the
// previous snapshot stays visible.
func (s *Store) Refresh(ctx context.Context) error {
	s.mutMu.Lock()
	defer s.mutMu.Unlock()
	return s.refreshLocked(ctx)
}

// refreshLocked requires s.mutMu.
func (s *Store) refreshLocked(ctx context.Context) error {
	recs, err := s.repo.List(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("notifications refresh: %w", err)
	}
	recs = clone(recs)
	sortNewestFirst(recs)
	s.swap(recs)
	return nil
}

func (s *Store) swap(recs []Record) {
	s.mu.Lock()
	s.records = recs
	s.loaded = true
	s.version++
	s.mu.Unlock()
}

// Loaded reports whether at least one authoritative read has succeeded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// List returns a fresh projection for filter. The snapshot itself is never exposed.
func (s *Store) List(filter Filter) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return project(s.records, filter)
}

// UnreadCount counts unread records across the whole store, independent of any filter.
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countUnread(s.records)
}

// View returns a projection and the global unread count taken from the same snapshot.
func (s *Store) View(filter Filter) View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{
		Filter:      filter,
		Items:       project(s.records, filter),
		UnreadCount: countUnread(s.records),
		Version:     s.version,
	}
}

// Version increments on every applied change.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// MarkRead marks one record read. Marking an already-read record changes nothing.
func (s *Store) MarkRead(ctx context.Context, id string) error {
	now := s.now().UTC()
	return s.mutate(ctx, "mark_read", id,
		func(recs []Record) ([]Record, bool) {
			i := indexOf(recs, id)
			if i < 0 || recs[i].Read {
				return recs, false
			}
			recs[i].Read = true
			recs[i].ReadAt = &now
			return recs, true
		},
		func(ctx context.Context) error { return s.repo.MarkRead(ctx, s.userID, id, now) },
	)
}

// MarkAllRead marks every record read.
func (s *Store) MarkAllRead(ctx context.Context) error {
	now := s.now().UTC()
	return s.mutate(ctx, "mark_all_read", "",
		func(recs []Record) ([]Record, bool) {
			changed := false
			for i := range recs {
				if !recs[i].Read {
					recs[i].Read = true
					recs[i].ReadAt = &now
					changed = true
				}
			}
			return recs, changed
		},
		func(ctx context.Context) error { return s.repo.MarkAllRead(ctx, s.userID, now) },
	)
}

// Clear removes one record.
func (s *Store) Clear(ctx context.Context, id string) error {
	return s.mutate(ctx, "clear", id,
		func(recs []Record) ([]Record, bool) {
			i := indexOf(recs, id)
			if i < 0 {
				return recs, false
			}
			out := make([]Record, 0, len(recs)-1)
			out = append(out, recs[:i]...)
			out = append(out, recs[i+1:]...)
			return out, true
		},
		func(ctx context.Context) error { return s.repo.Delete(ctx, s.userID, id) },
	)
}

// ClearAll empties the store.
func (s *Store) ClearAll(ctx context.Context) error {
	return s.mutate(ctx, "clear_all", "",
		func(recs []Record) ([]Record, bool) {
			return []Record{}, len(recs) > 0
		},
		func(ctx context.Context) error { return s.repo.DeleteAll(ctx, s.userID) },
	)
}

// Click marks an unread record read before surfacing its target link.
// Clicking a read record performs no mutation. A record that is absent from
// the authoritative list yields an empty result; failing to fetch that list
// is returned.
func (s *Store) Click(ctx context.Context, id string) (ClickResult, error) {
	rec, ok, err := s.lookup(ctx, id)
	if err != nil {
		return ClickResult{}, err
	}
	if !ok {
		return ClickResult{}, nil
	}
	res := ClickResult{TargetLink: rec.TargetLink}
	if rec.Read {
		return res, nil
	}
	if err := s.MarkRead(ctx, id); err != nil {
		return ClickResult{}, err
	}
	res.MarkedRead = true
	return res, nil
}

func (s *Store) lookup(ctx context.Context, id string) (Record, bool, error) {
	s.mu.RLock()
	i := indexOf(s.records, id)
	var rec Record
	if i >= 0 {
		rec = s.records[i]
	}
	s.mu.RUnlock()
	if i >= 0 {
		return rec, true, nil
	}
	// The snapshot may predate the record; one authoritative read settles it.
	if err := s.Refresh(ctx); err != nil {
		return Record{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i = indexOf(s.records, id); i >= 0 {
		return s.records[i], true, nil
	}
	return Record{}, false, nil
}

// mutate applies local optimistically, then confirms with remote. A NotFound
// from remote is benign: the store resyncs and reports success. Any other
// failure rolls the snapshot back and is returned.
func (s *Store) mutate(
	ctx context.Context,
	op string,
	id string,
	local func([]Record) ([]Record, bool),
	remote func(ctx context.Context) error,
) error {
	s.mutMu.Lock()
	defer s.mutMu.Unlock()

	if !s.Loaded() || (id != "" && !s.has(id)) {
		if err := s.refreshLocked(ctx); err != nil {
			return err
		}
	}

	s.mu.Lock()
	prev := s.records
	next, changed := local(clone(prev))
	if !changed {
		s.mu.Unlock()
		return nil
	}
	s.records = next
	s.version++
	s.mu.Unlock()

	err := remote(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		if rerr := s.refreshLocked(ctx); rerr != nil {
			s.swap(prev)
		}
		return nil
	}

	telemetry.Warn("notifications.rollback", map[string]any{
		"user_id": s.userID,
		"op":      op,
		"id":      id,
		"err":     err,
	})
	// Rollback prefers the authoritative state over the pre-mutation snapshot.
	if rerr := s.refreshLocked(ctx); rerr != nil {
		s.swap(prev)
	}
	return fmt.Errorf("notifications %s: %w", op, err)
}

func (s *Store) has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.records, id) >= 0
}
