package cv

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"student-dashboard/internal/shared/failure"
	"student-dashboard/internal/shared/transport"
)

// DefaultChunks is how many steps a simulated upload reports.
const DefaultChunks = 20

// CommitFunc persists the uploaded content once transfer has finished.
type CommitFunc func(ctx context.Context) (File, error)

// Session is one upload in flight. Progress values are non-decreasing, within
// 0..100, and a successful upload always ends with 100. The channel is closed
// when the session ends.
type Session struct {
	Info FileInfo

	progress chan int
	done     chan struct{}
	cancel   context.CancelFunc

	mu   sync.Mutex
	last int
	file File
	err  error
}

func newSession(ctx context.Context, info FileInfo) (*Session, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	return &Session{
		Info: info,
		// One slot per possible percentage, so emit never blocks.
		progress: make(chan int, 101),
		done:     make(chan struct{}),
		cancel:   cancel,
		last:     -1,
	}, ctx
}

// Progress delivers percentages as the upload advances.
func (s *Session) Progress() <-chan int {
	return s.progress
}

// Wait blocks until the upload ends and returns the stored file.
func (s *Session) Wait(ctx context.Context) (File, error) {
	select {
	case <-s.done:
	case <-ctx.Done():
		return File{}, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file, s.err
}

// Done is closed when the upload ends.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Cancel aborts the upload. No file is produced.
func (s *Session) Cancel() {
	s.cancel()
}

func (s *Session) emit(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if percent <= s.last {
		return
	}
	s.last = percent
	s.progress <- percent
}

func (s *Session) finish(f File, err error) {
	s.mu.Lock()
	s.file, s.err = f, err
	s.mu.Unlock()
	s.cancel()
	close(s.progress)
	close(s.done)
}

// Simulator reports upload progress in fixed chunks, pausing ChunkDelay
// between them, and commits once every chunk is through.
type Simulator struct {
	Chunks     int
	ChunkDelay time.Duration
}

// Start validates info and, if it passes, begins the simulated transfer.
// Rejected files produce no session and no progress.
func (sim Simulator) Start(ctx context.Context, info FileInfo, commit CommitFunc) (*Session, error) {
	if err := Validate(info); err != nil {
		return nil, err
	}
	chunks := sim.Chunks
	if chunks <= 0 {
		chunks = DefaultChunks
	}
	sess, ctx := newSession(ctx, info)
	sess.emit(0)
	go func() {
		for done := 1; done <= chunks; done++ {
			if err := transport.Delay(ctx, sim.ChunkDelay); err != nil {
				sess.finish(File{}, cancelled(err))
				return
			}
			sess.emit(percentOf(int64(done), int64(chunks)))
		}
		f, err := commit(ctx)
		if err != nil && ctx.Err() != nil {
			err = cancelled(err)
		}
		sess.finish(f, err)
	}()
	return sess, nil
}

// StartStream validates info and commits immediately, reporting progress from
// the bytes the commit actually reads through the returned reader wrapper.
func StartStream(ctx context.Context, info FileInfo, r io.Reader, commit func(ctx context.Context, r io.Reader) (File, error)) (*Session, error) {
	if err := Validate(info); err != nil {
		return nil, err
	}
	sess, ctx := newSession(ctx, info)
	sess.emit(0)
	go func() {
		counted := &byteProgress{r: r, total: info.Size, sess: sess}
		f, err := commit(ctx, counted)
		if err != nil {
			if ctx.Err() != nil {
				err = cancelled(err)
			}
			sess.finish(File{}, err)
			return
		}
		sess.emit(100)
		sess.finish(f, nil)
	}()
	return sess, nil
}

// byteProgress reports the share of total read so far, holding back 100 until
// the commit has succeeded.
type byteProgress struct {
	r     io.Reader
	read  int64
	total int64
	sess  *Session
}

func (b *byteProgress) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if n > 0 {
		b.read += int64(n)
		pct := percentOf(b.read, b.total)
		if pct >= 100 {
			pct = 99
		}
		b.sess.emit(pct)
	}
	return n, err
}

// percentOf rounds 100*done/total to the nearest integer.
func percentOf(done, total int64) int {
	if total <= 0 {
		return 0
	}
	return int((100*done + total/2) / total)
}

func cancelled(err error) error {
	if failure.Is(err, failure.KindTimeout) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return ErrCancelled
	}
	return err
}
