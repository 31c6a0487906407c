package pages

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"student-dashboard/internal/resource"
	"student-dashboard/internal/shared/failure"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestGetMountsAndSettlesEveryPage(t *testing.T) {
	reg := NewRegistry(NewMockAPI(0), 0)
	for _, page := range All {
		snap, err := reg.Get(waitCtx(t), "user-1", page, true)
		require.NoError(t, err, page)
		assert.Equal(t, resource.StatusReady, snap.Status, page)
		assert.NotNil(t, snap.Data, page)
		assert.Equal(t, page, snap.Page)
	}
	assert.Equal(t, All, reg.Mounted("user-1"))
}

func TestGetWithoutWaitReportsLoading(t *testing.T) {
	reg := NewRegistry(NewMockAPI(time.Hour), 0)
	snap, err := reg.Get(context.Background(), "user-1", PageProfile, false)
	require.NoError(t, err)
	assert.Equal(t, resource.StatusLoading, snap.Status)
	assert.Nil(t, snap.Data)
	reg.Forget("user-1")
}

func TestProfileIsStablePerUser(t *testing.T) {
	api := NewMockAPI(0)
	first, err := api.Profile(context.Background(), "user-1")
	require.NoError(t, err)
	again, err := api.Profile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, "user-1", first.UserID)
	assert.NotEmpty(t, first.Email)
}

func TestFailedReloadKeepsPreviousData(t *testing.T) {
	api := NewMockAPI(0)
	var failing atomic.Bool
	api.Fail = func(page Page, userID string) error {
		if failing.Load() {
			return errors.New("matching service unavailable")
		}
		return nil
	}
	reg := NewRegistry(api, 0)

	snap, err := reg.Get(waitCtx(t), "user-1", PageMatching, true)
	require.NoError(t, err)
	require.Equal(t, resource.StatusReady, snap.Status)
	before := snap.Data

	failing.Store(true)
	snap, err = reg.Reload(waitCtx(t), "user-1", PageMatching, true)
	require.NoError(t, err)
	assert.Equal(t, resource.StatusError, snap.Status)
	assert.Equal(t, "matching service unavailable", snap.Err)
	assert.Equal(t, before, snap.Data)

	failing.Store(false)
	snap, err = reg.Reload(waitCtx(t), "user-1", PageMatching, true)
	require.NoError(t, err)
	assert.Equal(t, resource.StatusReady, snap.Status)
	assert.Empty(t, snap.Err)
}

func TestTimeoutSettlesInError(t *testing.T) {
	reg := NewRegistry(NewMockAPI(time.Second), 10*time.Millisecond)
	snap, err := reg.Get(waitCtx(t), "user-1", PageJourney, true)
	require.NoError(t, err)
	assert.Equal(t, resource.StatusError, snap.Status)
	assert.Equal(t, string(failure.KindTimeout), snap.ErrKind)
}

func TestStubAPIReportsTransportFailure(t *testing.T) {
	reg := NewRegistry(StubAPI{}, 0)
	snap, err := reg.Get(waitCtx(t), "user-1", PageAppointments, true)
	require.NoError(t, err)
	assert.Equal(t, resource.StatusError, snap.Status)
	assert.Equal(t, string(failure.KindTransport), snap.ErrKind)
}

func TestUnmountAndForget(t *testing.T) {
	reg := NewRegistry(NewMockAPI(0), 0)
	_, err := reg.Get(waitCtx(t), "user-1", PageProfile, true)
	require.NoError(t, err)
	_, err = reg.Get(waitCtx(t), "user-1", PageJourney, true)
	require.NoError(t, err)

	require.NoError(t, reg.Unmount("user-1", PageProfile))
	assert.ErrorIs(t, reg.Unmount("user-1", PageProfile), ErrNotMounted)
	assert.Equal(t, []Page{PageJourney}, reg.Mounted("user-1"))

	reg.Forget("user-1")
	assert.Empty(t, reg.Mounted("user-1"))
}

func TestParsePage(t *testing.T) {
	page, err := ParsePage(" Matching ")
	require.NoError(t, err)
	assert.Equal(t, PageMatching, page)

	_, err = ParsePage("cv")
	assert.True(t, failure.Is(err, failure.KindNotFound))
}

func TestIdleUsersAreUnmounted(t *testing.T) {
	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	reg := NewRegistry(NewMockAPI(0), 0)
	reg.now = func() time.Time { return now }

	_, err := reg.Get(waitCtx(t), "guest:a", PageProfile, true)
	require.NoError(t, err)
	_, err = reg.Get(waitCtx(t), "guest:b", PageJourney, true)
	require.NoError(t, err)
	require.Equal(t, 2, reg.Users())

	now = now.Add(DefaultIdleTTL / 2)
	_, err = reg.Get(waitCtx(t), "guest:b", PageMatching, true)
	require.NoError(t, err)

	now = now.Add(DefaultIdleTTL/2 + time.Minute)
	_, err = reg.Get(waitCtx(t), "guest:c", PageProfile, true)
	require.NoError(t, err)

	assert.Equal(t, 2, reg.Users())
	assert.Empty(t, reg.Mounted("guest:a"))
	assert.Equal(t, []Page{PageJourney, PageMatching}, reg.Mounted("guest:b"))
}
