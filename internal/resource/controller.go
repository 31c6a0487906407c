// Package resource holds the generic load/error/reload state machine that
// dashboard pages compose to fetch one logical resource.
//
// Every attempt is tagged with a sequence number. Only the most recently
// initiated attempt may settle the state; results from superseded attempts
// are dropped.
package resource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"student-dashboard/internal/shared/failure"
	"student-dashboard/internal/shared/metrics"
	"student-dashboard/internal/shared/telemetry"
	"student-dashboard/internal/shared/transport"
)

// Status is the derived lifecycle state of a resource.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusError   Status = "error"
	StatusReady   Status = "ready"
)

// Fetcher loads one resource value.
type Fetcher[T any] func(ctx context.Context) (T, error)

// State is an immutable snapshot of a controller.
type State[T any] struct {
	Data      *T        `json:"data"`
	Status    Status    `json:"status"`
	Err       string    `json:"error,omitempty"`
	ErrKind   string    `json:"errorKind,omitempty"`
	Seq       uint64    `json:"seq"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Settled reports whether the snapshot is Ready or Error.
func (s State[T]) Settled() bool {
	return s.Status == StatusReady || s.Status == StatusError
}

// Option configures a Controller.
type Option func(*options)

type options struct {
	name     string
	timeout  time.Duration
	fallback string
	now      func() time.Time
}

// WithName labels log lines emitted by the controller.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithTimeout bounds every attempt; expiry settles the resource in Error with a timeout message.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithFallbackMessage replaces the generic message used for failures without one.
func WithFallbackMessage(msg string) Option {
	return func(o *options) { o.fallback = msg }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Controller coordinates the fetch/reload cycle of a single resource.
type Controller[T any] struct {
	fetch Fetcher[T]
	opts  options

	base       context.Context
	baseCancel context.CancelFunc

	mu        sync.Mutex
	state     State[T]
	seq       uint64
	cancel    context.CancelFunc
	done      chan struct{}
	mounted   bool
	unmounted bool

	subMu     sync.Mutex
	subs      map[int]chan State[T]
	subID     int
	published uint64
	closed    bool
}

// New constructs an idle controller around fetch.
func New[T any](fetch Fetcher[T], opts ...Option) *Controller[T] {
	o := options{fallback: failure.DefaultMessage, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	base, cancel := context.WithCancel(context.Background())
	return &Controller[T]{
		fetch:      fetch,
		opts:       o,
		base:       base,
		baseCancel: cancel,
		state:      State[T]{Status: StatusIdle},
		subs:       make(map[int]chan State[T]),
	}
}

// State returns the current snapshot.
func (c *Controller[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Mount starts the first load cycle in the background. The state is Loading
// when Mount returns. Calling it again is a no-op.
func (c *Controller[T]) Mount() {
	c.mu.Lock()
	if c.mounted || c.unmounted {
		c.mu.Unlock()
		return
	}
	c.mounted = true
	c.mu.Unlock()
	if a, ok := c.begin(c.base); ok {
		go c.run(a)
	}
}

// Unmount cancels the in-flight attempt and freezes the state. Subscriptions are closed.
func (c *Controller[T]) Unmount() {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return
	}
	c.unmounted = true
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
	c.baseCancel()

	c.subMu.Lock()
	c.closed = true
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.subMu.Unlock()
}

// attempt is one started load cycle.
type attempt struct {
	ctx    context.Context
	cancel context.CancelFunc
	seq    uint64
	done   chan struct{}
}

// Load runs one attempt and returns the snapshot observed when it settled.
// Failures are captured into the state; Load never returns an error.
func (c *Controller[T]) Load(ctx context.Context) State[T] {
	a, ok := c.begin(ctx)
	if !ok {
		return c.State()
	}
	return c.run(a)
}

func (c *Controller[T]) begin(ctx context.Context) (attempt, bool) {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return attempt{}, false
	}
	c.seq++
	if c.cancel != nil {
		c.cancel()
	}
	attemptCtx, cancel := context.WithCancel(ctx)
	a := attempt{ctx: attemptCtx, cancel: cancel, seq: c.seq, done: make(chan struct{})}
	c.cancel = cancel
	c.done = a.done
	c.state.Status = StatusLoading
	c.state.Err = ""
	c.state.ErrKind = ""
	c.state.Seq = a.seq
	c.state.UpdatedAt = c.opts.now()
	loading := c.state
	c.mu.Unlock()
	c.publish(loading)
	return a, true
}

func (c *Controller[T]) run(a attempt) State[T] {
	defer close(a.done)
	start := time.Now()
	var data T
	err := transport.WithTimeout(a.ctx, c.opts.timeout, func(ctx context.Context) error {
		var ferr error
		data, ferr = c.invoke(ctx)
		return ferr
	})
	a.cancel()

	c.mu.Lock()
	if a.seq != c.seq || c.unmounted {
		st := c.state
		c.mu.Unlock()
		metrics.IncResourceStale()
		c.log("resource.stale", a.seq, start, nil)
		return st
	}
	if err != nil {
		c.state.Status = StatusError
		c.state.Err = failure.Message(err, c.opts.fallback)
		c.state.ErrKind = string(failure.KindOf(err))
	} else {
		value := data
		c.state.Data = &value
		c.state.Status = StatusReady
	}
	c.state.UpdatedAt = c.opts.now()
	settled := c.state
	c.mu.Unlock()

	c.publish(settled)
	metrics.ObserveResourceAttempt(err == nil, float64(time.Since(start).Microseconds())/1000.0)
	c.log("resource.settled", a.seq, start, err)
	return settled
}

// Reset drops the loaded data and returns to Idle. A pending attempt is
// cancelled and its result discarded.
func (c *Controller[T]) Reset() {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return
	}
	c.seq++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = State[T]{Status: StatusIdle, Seq: c.seq, UpdatedAt: c.opts.now()}
	idle := c.state
	c.mu.Unlock()
	c.publish(idle)
}

// Reload restarts the cycle. It is safe to call while a previous attempt is pending.
func (c *Controller[T]) Reload(ctx context.Context) State[T] {
	return c.Load(ctx)
}

// Start restarts the cycle in the background under the controller's own
// lifetime. The returned snapshot is already Loading.
func (c *Controller[T]) Start() State[T] {
	a, ok := c.begin(c.base)
	if !ok {
		return c.State()
	}
	c.mu.Lock()
	c.mounted = true
	st := c.state
	c.mu.Unlock()
	go c.run(a)
	return st
}

// Wait blocks until the latest attempt settles, following any reloads started meanwhile.
func (c *Controller[T]) Wait(ctx context.Context) (State[T], error) {
	for {
		c.mu.Lock()
		done := c.done
		st := c.state
		c.mu.Unlock()
		if done == nil || st.Status != StatusLoading {
			return st, nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return c.State(), ctx.Err()
		}
	}
}

// Subscribe delivers snapshots as they change. Only the latest undelivered
// snapshot is kept. After Unmount the returned channel is already closed.
func (c *Controller[T]) Subscribe() (<-chan State[T], func()) {
	ch := make(chan State[T], 1)
	c.subMu.Lock()
	if c.closed {
		c.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.subID
	c.subID++
	c.subs[id] = ch
	ch <- c.State()
	c.subMu.Unlock()

	return ch, func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if sub, ok := c.subs[id]; ok {
			close(sub)
			delete(c.subs, id)
		}
	}
}

// publish fans st out to subscribers. Snapshots run outside c.mu, so one from
// a superseded attempt can arrive late; it is dropped.
func (c *Controller[T]) publish(st State[T]) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if st.Seq < c.published {
		return
	}
	c.published = st.Seq
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}

func (c *Controller[T]) invoke(ctx context.Context) (data T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch panicked: %v", r)
		}
	}()
	return c.fetch(ctx)
}

func (c *Controller[T]) log(msg string, seq uint64, start time.Time, err error) {
	if c.opts.name == "" {
		return
	}
	fields := map[string]any{
		"resource":    c.opts.name,
		"seq":         seq,
		"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
	}
	if err != nil {
		fields["err"] = err.Error()
		fields["kind"] = string(failure.KindOf(err))
		telemetry.Warn(msg, fields)
		return
	}
	telemetry.Info(msg, fields)
}
