package pages

import (
	"context"
	"sync"
	"time"

	"student-dashboard/internal/resource"
)

// Snapshot is a page resource state with its data type erased for transport.
type Snapshot struct {
	Page      Page            `json:"page"`
	Status    resource.Status `json:"status"`
	Data      any             `json:"data"`
	Err       string          `json:"error,omitempty"`
	ErrKind   string          `json:"errorKind,omitempty"`
	Seq       uint64          `json:"seq"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type mountedPage interface {
	Snapshot() Snapshot
	Start() Snapshot
	Wait(ctx context.Context) (Snapshot, error)
	Unmount()
}

type pageResource[T any] struct {
	page Page
	ctrl *resource.Controller[T]
}

func snapshotOf[T any](page Page, st resource.State[T]) Snapshot {
	var data any
	if st.Data != nil {
		data = *st.Data
	}
	return Snapshot{
		Page:      page,
		Status:    st.Status,
		Data:      data,
		Err:       st.Err,
		ErrKind:   st.ErrKind,
		Seq:       st.Seq,
		UpdatedAt: st.UpdatedAt,
	}
}

func (p *pageResource[T]) Snapshot() Snapshot { return snapshotOf(p.page, p.ctrl.State()) }
func (p *pageResource[T]) Start() Snapshot    { return snapshotOf(p.page, p.ctrl.Start()) }
func (p *pageResource[T]) Unmount()           { p.ctrl.Unmount() }

func (p *pageResource[T]) Wait(ctx context.Context) (Snapshot, error) {
	st, err := p.ctrl.Wait(ctx)
	return snapshotOf(p.page, st), err
}

func mount[T any](page Page, fetch resource.Fetcher[T], opts ...resource.Option) mountedPage {
	ctrl := resource.New(fetch, append(opts, resource.WithName("page."+string(page)))...)
	ctrl.Mount()
	return &pageResource[T]{page: page, ctrl: ctrl}
}

// DefaultIdleTTL is how long a user's pages stay mounted without any access.
const DefaultIdleTTL = 30 * time.Minute

const sweepEvery = time.Minute

// Registry holds the mounted page resources of every user. A page is mounted
// on first access and lives until it is unmounted, its user is forgotten, or
// none of the user's pages were touched for IdleTTL.
type Registry struct {
	API     API
	Timeout time.Duration
	IdleTTL time.Duration

	mu        sync.Mutex
	users     map[string]*userPages
	lastSweep time.Time
	now       func() time.Time
}

type userPages struct {
	pages map[Page]mountedPage
	seen  time.Time
}

// NewRegistry constructs a Registry over api. Attempts are bounded by timeout when positive.
func NewRegistry(api API, timeout time.Duration) *Registry {
	return &Registry{
		API:     api,
		Timeout: timeout,
		IdleTTL: DefaultIdleTTL,
		users:   make(map[string]*userPages),
		now:     time.Now,
	}
}

func (r *Registry) newPage(userID string, page Page) mountedPage {
	opts := []resource.Option{resource.WithTimeout(r.Timeout)}
	switch page {
	case PageProfile:
		return mount(page, func(ctx context.Context) (Profile, error) { return r.API.Profile(ctx, userID) }, opts...)
	case PageJourney:
		return mount(page, func(ctx context.Context) (Journey, error) { return r.API.Journey(ctx, userID) }, opts...)
	case PageMatching:
		return mount(page, func(ctx context.Context) (Matching, error) { return r.API.Matching(ctx, userID) }, opts...)
	default:
		return mount(page, func(ctx context.Context) (Appointments, error) { return r.API.Appointments(ctx, userID) }, opts...)
	}
}

// open returns the user's page, mounting it when absent. created reports a fresh mount.
func (r *Registry) open(userID string, page Page) (p mountedPage, created bool) {
	r.mu.Lock()
	now := r.now()
	evicted := r.sweep(now)
	u, ok := r.users[userID]
	if !ok {
		u = &userPages{pages: make(map[Page]mountedPage)}
		r.users[userID] = u
	}
	u.seen = now
	p, ok = u.pages[page]
	if !ok {
		p = r.newPage(userID, page)
		u.pages[page] = p
		created = true
	}
	r.mu.Unlock()

	for _, idle := range evicted {
		idle.Unmount()
	}
	return p, created
}

// sweep drops users idle for longer than IdleTTL and returns their pages for
// unmounting outside the lock. Requires r.mu.
func (r *Registry) sweep(now time.Time) []mountedPage {
	if r.IdleTTL <= 0 || now.Sub(r.lastSweep) < sweepEvery {
		return nil
	}
	r.lastSweep = now
	var evicted []mountedPage
	for userID, u := range r.users {
		if now.Sub(u.seen) <= r.IdleTTL {
			continue
		}
		for _, p := range u.pages {
			evicted = append(evicted, p)
		}
		delete(r.users, userID)
	}
	return evicted
}

func (r *Registry) lookup(userID string, page Page) (mountedPage, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, false
	}
	p, ok := u.pages[page]
	return p, ok
}

// Users reports how many users have mounted pages.
func (r *Registry) Users() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func settle(ctx context.Context, p mountedPage, wait bool) (Snapshot, error) {
	if !wait {
		return p.Snapshot(), nil
	}
	return p.Wait(ctx)
}

// Get returns the page state, mounting the page on first access. With wait it
// blocks until the latest attempt settles.
func (r *Registry) Get(ctx context.Context, userID string, page Page, wait bool) (Snapshot, error) {
	p, _ := r.open(userID, page)
	return settle(ctx, p, wait)
}

// Reload restarts the page's load cycle. A page that is not mounted yet is
// mounted instead, which starts its first cycle.
func (r *Registry) Reload(ctx context.Context, userID string, page Page, wait bool) (Snapshot, error) {
	p, created := r.open(userID, page)
	if !created {
		p.Start()
	}
	return settle(ctx, p, wait)
}

// Unmount cancels the page's in-flight attempt and drops it.
func (r *Registry) Unmount(userID string, page Page) error {
	r.mu.Lock()
	var p mountedPage
	u, ok := r.users[userID]
	if ok {
		p, ok = u.pages[page]
	}
	if ok {
		delete(u.pages, page)
		if len(u.pages) == 0 {
			delete(r.users, userID)
		}
	}
	r.mu.Unlock()
	if !ok {
		return ErrNotMounted
	}
	p.Unmount()
	return nil
}

// Forget unmounts every page of the user, e.g. on logout.
func (r *Registry) Forget(userID string) {
	r.mu.Lock()
	u := r.users[userID]
	delete(r.users, userID)
	r.mu.Unlock()
	if u == nil {
		return
	}
	for _, p := range u.pages {
		p.Unmount()
	}
}

// Mounted lists the user's mounted pages in navigation order.
func (r *Registry) Mounted(userID string) []Page {
	var out []Page
	for _, page := range All {
		if _, ok := r.lookup(userID, page); ok {
			out = append(out, page)
		}
	}
	return out
}
