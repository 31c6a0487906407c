package transport

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"student-dashboard/internal/shared/failure"
)

// Delay blocks for exactly d, or until ctx ends. A deadline surfaces as a timeout failure.
func Delay(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return contextFailure(err)
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return contextFailure(ctx.Err())
	}
}

// WithTimeout runs fn under a deadline of d. Expiry is reported as a timeout failure
// even when fn returns the bare context error.
func WithTimeout(ctx context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	err := fn(tctx)
	if err != nil && errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		if failure.Is(err, failure.KindTimeout) {
			return err
		}
		return failure.Timeout(err)
	}
	return err
}

// NewError builds the typed failure a real-mode call returns for a non-2xx response.
func NewError(status int, msg string, body []byte) error {
	var raw json.RawMessage
	if len(body) > 0 && json.Valid(body) {
		raw = json.RawMessage(body)
	}
	return failure.Transport(status, msg, raw)
}

// Simulator stands in for the network: every call waits Latency and then runs locally.
type Simulator struct {
	Latency time.Duration
}

// Wait applies the simulated latency.
func (s Simulator) Wait(ctx context.Context) error {
	return Delay(ctx, s.Latency)
}

// Call waits for the simulated latency and then runs fn.
func Call[T any](ctx context.Context, s Simulator, fn func() (T, error)) (T, error) {
	if err := s.Wait(ctx); err != nil {
		var zero T
		return zero, err
	}
	return fn()
}

func contextFailure(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return failure.Timeout(err)
	}
	return err
}
