// Package blob issues transient "blob:" handles for stored objects. Each
// handle is owned by exactly one CV file and is released exactly once.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"student-dashboard/internal/shared/metrics"
	"student-dashboard/internal/shared/storage/object"
	"student-dashboard/internal/shared/telemetry"
)

// Scheme prefixes every handle.
const Scheme = "blob:"

var (
	ErrUnknownHandle = errors.New("unknown blob handle")
	ErrReleased      = errors.New("blob handle already released")
)

// Registry maps handles to object store keys.
type Registry struct {
	store object.ObjectStore

	mu       sync.Mutex
	live     map[string]string
	released map[string]int
}

// NewRegistry constructs a Registry over store.
func NewRegistry(store object.ObjectStore) *Registry {
	return &Registry{
		store:    store,
		live:     make(map[string]string),
		released: make(map[string]int),
	}
}

// Issue registers key and returns a fresh handle for it.
func (r *Registry) Issue(key string) string {
	handle := Scheme + uuid.NewString()
	r.mu.Lock()
	r.live[handle] = key
	r.mu.Unlock()
	return handle
}

// Adopt re-registers a handle persisted before a restart. Adopting a live
// handle is a no-op; a released handle cannot come back.
func (r *Registry) Adopt(handle, key string) error {
	if !strings.HasPrefix(handle, Scheme) {
		return fmt.Errorf("%w: %q", ErrUnknownHandle, handle)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released[handle] > 0 {
		return ErrReleased
	}
	r.live[handle] = key
	return nil
}

// Resolve returns the key behind a live handle.
func (r *Registry) Resolve(handle string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if key, ok := r.live[handle]; ok {
		return key, nil
	}
	if r.released[handle] > 0 {
		return "", ErrReleased
	}
	return "", ErrUnknownHandle
}

// Open streams the object behind a live handle.
func (r *Registry) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	key, err := r.Resolve(handle)
	if err != nil {
		return nil, err
	}
	return r.store.Open(ctx, key)
}

// Release ends the handle and deletes its object. Only the first call
// releases; later calls return ErrReleased and are counted.
func (r *Registry) Release(ctx context.Context, handle string) error {
	r.mu.Lock()
	key, ok := r.live[handle]
	if !ok {
		n := r.released[handle]
		if n > 0 {
			r.released[handle] = n + 1
		}
		r.mu.Unlock()
		if n > 0 {
			metrics.IncBlobDoubleRelease()
			telemetry.Warn("blob.double_release", map[string]any{"handle": handle, "attempts": n + 1})
			return ErrReleased
		}
		return ErrUnknownHandle
	}
	delete(r.live, handle)
	r.released[handle] = 1
	r.mu.Unlock()

	if err := r.store.Delete(ctx, key); err != nil {
		telemetry.Warn("blob.delete_failed", map[string]any{"handle": handle, "key": key, "err": err})
		return fmt.Errorf("delete blob object: %w", err)
	}
	return nil
}

// Releases reports how many times Release was called on a released handle.
func (r *Registry) Releases(handle string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.released[handle]
}

// Live reports the number of unreleased handles.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}
