package notifications

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"student-dashboard/internal/shared/failure"
)

func newSeededStore(t *testing.T) (*Store, *MemoryRepo) {
	t.Helper()
	repo := NewMemoryRepo(0)
	st := NewStore(repo, "student-1")
	require.NoError(t, st.Refresh(context.Background()))
	return st, repo
}

func failOn(ops ...string) func(string) error {
	return func(op string) error {
		for _, o := range ops {
			if o == op {
				return failure.Transport(503, "backend unavailable", nil)
			}
		}
		return nil
	}
}

func TestSeededStoreCountsThenMarkAllRead(t *testing.T) {
	st, _ := newSeededStore(t)
	require.Len(t, st.List(FilterAll), 7)
	require.Equal(t, 3, st.UnreadCount())

	require.NoError(t, st.MarkAllRead(context.Background()))
	assert.Equal(t, 0, st.UnreadCount())
	assert.Empty(t, st.List(FilterUnread))
	assert.Len(t, st.List(FilterRead), 7)
}

func TestUnreadCountIgnoresFilterAcrossMutations(t *testing.T) {
	st, repo := newSeededStore(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	filters := []Filter{FilterAll, FilterUnread, FilterRead}

	for step := 0; step < 40; step++ {
		all := st.List(FilterAll)
		if len(all) == 0 {
			break
		}
		target := all[rng.Intn(len(all))].ID
		if rng.Intn(2) == 0 {
			require.NoError(t, st.MarkRead(ctx, target))
		} else {
			require.NoError(t, st.Clear(ctx, target))
		}

		want := 0
		for _, r := range st.List(FilterAll) {
			if !r.Read {
				want++
			}
		}
		for _, f := range filters {
			view := st.View(f)
			assert.Equal(t, want, view.UnreadCount, "filter %s", f)
		}

		authoritative, err := repo.List(ctx, "student-1")
		require.NoError(t, err)
		assert.Equal(t, countUnread(authoritative), st.UnreadCount())
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	st, _ := newSeededStore(t)
	ctx := context.Background()
	id := st.List(FilterUnread)[0].ID

	require.NoError(t, st.MarkRead(ctx, id))
	once := st.List(FilterAll)
	version := st.Version()

	require.NoError(t, st.MarkRead(ctx, id))
	assert.Equal(t, once, st.List(FilterAll))
	assert.Equal(t, version, st.Version())
	assert.Equal(t, 2, st.UnreadCount())
}

func TestClearAllEmptiesEveryFilter(t *testing.T) {
	st, _ := newSeededStore(t)
	require.NoError(t, st.ClearAll(context.Background()))

	for _, f := range []Filter{FilterAll, FilterUnread, FilterRead} {
		assert.Empty(t, st.List(f), "filter %s", f)
	}
	assert.Equal(t, 0, st.UnreadCount())

	require.NoError(t, st.Refresh(context.Background()))
	assert.Empty(t, st.List(FilterAll))
}

func TestClearPreservesOrderOfRemainingRecords(t *testing.T) {
	st, _ := newSeededStore(t)
	before := st.List(FilterAll)

	require.NoError(t, st.Clear(context.Background(), before[2].ID))
	after := st.List(FilterAll)
	require.Len(t, after, 6)

	var wantIDs, gotIDs []string
	for i, r := range before {
		if i != 2 {
			wantIDs = append(wantIDs, r.ID)
		}
	}
	for _, r := range after {
		gotIDs = append(gotIDs, r.ID)
	}
	assert.Equal(t, wantIDs, gotIDs)
}

func TestListReturnsIndependentProjection(t *testing.T) {
	st, _ := newSeededStore(t)
	view := st.List(FilterAll)
	view[0].Read = !view[0].Read
	view[0].Title = "mutated"

	fresh := st.List(FilterAll)
	assert.NotEqual(t, "mutated", fresh[0].Title)
	assert.Equal(t, 3, st.UnreadCount())
}

func TestFailedMutationRollsBack(t *testing.T) {
	st, repo := newSeededStore(t)
	id := st.List(FilterUnread)[0].ID
	before := st.List(FilterAll)

	repo.Fail = failOn("mark_read")
	err := st.MarkRead(context.Background(), id)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.KindTransport))

	assert.Equal(t, before, st.List(FilterAll))
	assert.Equal(t, 3, st.UnreadCount())
}

func TestRollbackRestoresSnapshotWhenReloadAlsoFails(t *testing.T) {
	st, repo := newSeededStore(t)
	before := st.List(FilterAll)

	repo.Fail = failOn("delete_all", "list")
	require.Error(t, st.ClearAll(context.Background()))

	assert.Equal(t, before, st.List(FilterAll))
	assert.Equal(t, 3, st.UnreadCount())
}

func TestClearMissingRecordIsBenign(t *testing.T) {
	st, repo := newSeededStore(t)
	ctx := context.Background()
	id := st.List(FilterAll)[0].ID

	// Another tab already removed it.
	require.NoError(t, repo.Delete(ctx, "student-1", id))

	require.NoError(t, st.Clear(ctx, id))
	require.NoError(t, st.Clear(ctx, id))
	assert.Len(t, st.List(FilterAll), 6)
}

func TestClickUnreadMarksReadAndSurfacesLink(t *testing.T) {
	st, _ := newSeededStore(t)
	var target Record
	for _, r := range st.List(FilterUnread) {
		if r.TargetLink != "" {
			target = r
			break
		}
	}
	require.NotEmpty(t, target.ID)

	res, err := st.Click(context.Background(), target.ID)
	require.NoError(t, err)
	assert.Equal(t, target.TargetLink, res.TargetLink)
	assert.True(t, res.MarkedRead)
	assert.Equal(t, 2, st.UnreadCount())
}

func TestClickReadRecordDoesNotMutate(t *testing.T) {
	st, repo := newSeededStore(t)
	read := st.List(FilterRead)[0]
	version := st.Version()
	repo.Fail = failOn("mark_read")

	res, err := st.Click(context.Background(), read.ID)
	require.NoError(t, err)
	assert.False(t, res.MarkedRead)
	assert.Equal(t, version, st.Version())
}

func TestClickFailureIsSurfaced(t *testing.T) {
	st, repo := newSeededStore(t)
	id := st.List(FilterUnread)[0].ID
	repo.Fail = failOn("mark_read")

	_, err := st.Click(context.Background(), id)
	require.Error(t, err)
	assert.Equal(t, 3, st.UnreadCount())
}

func TestClickOnUnloadedStoreSurfacesRefreshFailure(t *testing.T) {
	repo := NewMemoryRepo(0)
	repo.Fail = failOn("list")
	st := NewStore(repo, "student-1")

	res, err := st.Click(context.Background(), "student-1-n1")
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.KindTransport))
	assert.Equal(t, ClickResult{}, res)
	assert.False(t, st.Loaded())
}

func TestClickUnknownRecordAfterRefreshIsEmpty(t *testing.T) {
	st, _ := newSeededStore(t)

	res, err := st.Click(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, ClickResult{}, res)
}

func TestReadersNeverSeePartialMarkAllRead(t *testing.T) {
	st, _ := newSeededStore(t)
	require.Equal(t, 3, st.UnreadCount())

	stop := make(chan struct{})
	seen := make(chan int, 1024)
	var wg sync.WaitGroup
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				n := st.UnreadCount()
				if n != 3 && n != 0 {
					select {
					case seen <- n:
					default:
					}
				}
				if v := st.View(FilterUnread); len(v.Items) != v.UnreadCount {
					select {
					case seen <- -len(v.Items):
					default:
					}
				}
			}
		}()
	}

	require.NoError(t, st.MarkAllRead(context.Background()))
	close(stop)
	wg.Wait()
	close(seen)

	for n := range seen {
		t.Fatalf("reader observed a partial update: %d", n)
	}
	assert.Equal(t, 0, st.UnreadCount())
}

func TestMutationLoadsStoreOnFirstUse(t *testing.T) {
	repo := NewMemoryRepo(0)
	st := NewStore(repo, "student-2")

	require.NoError(t, st.MarkAllRead(context.Background()))
	assert.True(t, st.Loaded())
	assert.Equal(t, 0, st.UnreadCount())
}

func TestRefreshFailureKeepsStaleSnapshot(t *testing.T) {
	st, repo := newSeededStore(t)
	repo.Fail = failOn("list")

	err := st.Refresh(context.Background())
	require.Error(t, err)
	assert.Len(t, st.List(FilterAll), 7)
}

func TestPublishAppearsAfterRefresh(t *testing.T) {
	repo := NewMemoryRepo(0)
	svc := NewService(repo)
	st := svc.StoreFor("student-3")
	ctx := context.Background()
	require.NoError(t, st.Refresh(ctx))

	rec, err := svc.Publish(ctx, Record{UserID: "student-3", Title: "New match", Kind: KindSuccess})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)

	require.NoError(t, st.Refresh(ctx))
	assert.Equal(t, rec.ID, st.List(FilterAll)[0].ID)
	assert.Equal(t, 4, st.UnreadCount())

	_, err = svc.Publish(ctx, rec)
	assert.True(t, errors.Is(err, ErrDuplicateID))

	_, err = svc.Publish(ctx, Record{UserID: "student-3", Title: "x", Kind: "urgent"})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
