package cv

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"student-dashboard/internal/extract"
	"student-dashboard/internal/shared/failure"
)

func pdfInfo(size int64) FileInfo {
	return FileInfo{Name: "cv.pdf", Size: size, MimeType: extract.MimePDF}
}

func collect(t *testing.T, sess *Session) []int {
	t.Helper()
	var got []int
	timeout := time.After(2 * time.Second)
	for {
		select {
		case p, ok := <-sess.Progress():
			if !ok {
				return got
			}
			got = append(got, p)
		case <-timeout:
			t.Fatalf("progress did not finish, got %v", got)
		}
	}
}

func assertMonotonic(t *testing.T, got []int) {
	t.Helper()
	require.NotEmpty(t, got)
	for i, p := range got {
		assert.GreaterOrEqual(t, p, 0)
		assert.LessOrEqual(t, p, 100)
		if i > 0 {
			assert.GreaterOrEqual(t, p, got[i-1], "progress went backwards: %v", got)
		}
	}
}

func TestSimulatorProgressEndsAtHundred(t *testing.T) {
	sim := Simulator{Chunks: 20, ChunkDelay: time.Millisecond}
	committed := false
	sess, err := sim.Start(context.Background(), pdfInfo(1<<20), func(ctx context.Context) (File, error) {
		committed = true
		return File{ID: "cv-1"}, nil
	})
	require.NoError(t, err)

	got := collect(t, sess)
	assertMonotonic(t, got)
	assert.Equal(t, 100, got[len(got)-1])
	assert.Len(t, got, 21)

	f, err := sess.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, committed)
	assert.Equal(t, "cv-1", f.ID)
}

func TestSimulatorUnevenChunksRound(t *testing.T) {
	sess, err := Simulator{Chunks: 3}.Start(context.Background(), pdfInfo(10), func(ctx context.Context) (File, error) {
		return File{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 33, 67, 100}, collect(t, sess))
}

func TestValidationRejectsBeforeAnyProgress(t *testing.T) {
	cases := map[string]FileInfo{
		"oversize":   pdfInfo(6 << 20),
		"wrong mime": {Name: "cv.png", Size: 10, MimeType: "image/png"},
		"empty":      pdfInfo(0),
		"no name":    {Name: " ", Size: 10, MimeType: extract.MimePDF},
	}
	for name, info := range cases {
		sess, err := Simulator{}.Start(context.Background(), info, func(ctx context.Context) (File, error) {
			t.Fatalf("%s: commit must not run", name)
			return File{}, nil
		})
		assert.Nil(t, sess, name)
		assert.True(t, failure.Is(err, failure.KindValidation), "%s: %v", name, err)
	}
}

func TestValidateBoundaries(t *testing.T) {
	assert.NoError(t, Validate(pdfInfo(MaxFileSize)))
	assert.ErrorIs(t, Validate(pdfInfo(MaxFileSize+1)), ErrTooLarge)
	assert.NoError(t, Validate(FileInfo{Name: "cv.doc", Size: 1, MimeType: "application/msword"}))
	assert.NoError(t, Validate(FileInfo{Name: "cv.docx", Size: 1, MimeType: extract.MimeDOCX + "; charset=binary"}))
}

func TestSimulatorCancellationStopsProgress(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sess, err := Simulator{Chunks: 20, ChunkDelay: 20 * time.Millisecond}.Start(ctx, pdfInfo(100), func(ctx context.Context) (File, error) {
		t.Fatalf("commit must not run after cancel")
		return File{}, nil
	})
	require.NoError(t, err)

	<-sess.Progress()
	cancel()
	got := collect(t, sess)
	for _, p := range got {
		assert.Less(t, p, 100)
	}

	_, err = sess.Wait(context.Background())
	assert.ErrorIs(t, err, ErrCancelled)
	assert.True(t, failure.Is(err, failure.KindTimeout))
}

func TestSimulatorCommitFailureSurfaces(t *testing.T) {
	sess, err := Simulator{Chunks: 2}.Start(context.Background(), pdfInfo(10), func(ctx context.Context) (File, error) {
		return File{}, errors.New("disk full")
	})
	require.NoError(t, err)
	collect(t, sess)
	_, err = sess.Wait(context.Background())
	assert.EqualError(t, err, "disk full")
}

func TestStreamProgressFollowsBytes(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 1000)
	sess, err := StartStream(context.Background(), pdfInfo(int64(len(payload))), bytes.NewReader(payload),
		func(ctx context.Context, r io.Reader) (File, error) {
			buf := make([]byte, 100)
			for {
				if _, err := r.Read(buf); err == io.EOF {
					return File{ID: "cv-stream"}, nil
				}
			}
		})
	require.NoError(t, err)

	got := collect(t, sess)
	assertMonotonic(t, got)
	assert.Equal(t, 100, got[len(got)-1])
	assert.Contains(t, got, 50)
	assert.Equal(t, 99, got[len(got)-2])

	f, err := sess.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cv-stream", f.ID)
}
