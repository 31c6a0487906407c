package cv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"student-dashboard/internal/blob"
	"student-dashboard/internal/extract"
	"student-dashboard/internal/shared/failure"
	"student-dashboard/internal/shared/metrics"
	"student-dashboard/internal/shared/storage/object"
	"student-dashboard/internal/shared/telemetry"
	"student-dashboard/internal/shared/util"
)

// Upload modes.
const (
	ModeSimulated = "simulated"
	ModeStream    = "stream"
)

// Service owns CV uploads, replacement and retrieval.
type Service struct {
	Repo      Repo
	Store     object.ObjectStore
	Blobs     *blob.Registry
	Simulator Simulator
	Mode      string

	now func() time.Time
}

// NewService constructs a Service. Mode defaults to simulated.
func NewService(repo Repo, store object.ObjectStore, blobs *blob.Registry, sim Simulator, mode string) *Service {
	if mode != ModeStream {
		mode = ModeSimulated
	}
	return &Service{Repo: repo, Store: store, Blobs: blobs, Simulator: sim, Mode: mode, now: time.Now}
}

// Current returns the user's CV, re-registering its handle if needed.
func (s *Service) Current(ctx context.Context, userID string) (File, error) {
	f, err := s.Repo.Current(ctx, userID)
	if err != nil {
		return File{}, err
	}
	s.adopt(f)
	return f, nil
}

// Upload validates info and starts the transfer of r. Invalid files are
// rejected before a session exists. r must stay readable until the session ends.
func (s *Service) Upload(ctx context.Context, userID string, info FileInfo, r io.Reader) (*Session, error) {
	info.MimeType = normalizeMime(info.MimeType)
	if clean, err := util.SanitizeFileName(info.Name); err == nil {
		info.Name = clean
	}
	var (
		sess *Session
		err  error
	)
	if s.Mode == ModeStream {
		sess, err = StartStream(ctx, info, r, func(ctx context.Context, body io.Reader) (File, error) {
			return s.commit(ctx, userID, info, body)
		})
	} else {
		sess, err = s.Simulator.Start(ctx, info, func(ctx context.Context) (File, error) {
			return s.commit(ctx, userID, info, r)
		})
	}
	if err != nil {
		return nil, err
	}
	metrics.IncUploadStarted()
	go observe(sess, s.now())
	return sess, nil
}

// observe records the outcome of an upload once it ends.
func observe(sess *Session, start time.Time) {
	<-sess.Done()
	_, err := sess.Wait(context.Background())
	switch {
	case err == nil:
		metrics.IncUploadCompleted()
	case errors.Is(err, ErrCancelled):
		metrics.IncUploadCancelled()
	default:
		metrics.IncUploadFailed()
	}
	metrics.ObserveUploadDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)
}

func (s *Service) commit(ctx context.Context, userID string, info FileInfo, r io.Reader) (File, error) {
	obj, err := s.Store.Save(ctx, userID, info.Name, io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return File{}, fmt.Errorf("store cv: %w", err)
	}
	if obj.Size > MaxFileSize || obj.Size == 0 {
		s.discard(obj.Key)
		if obj.Size == 0 {
			return File{}, ErrEmptyFile
		}
		return File{}, ErrTooLarge
	}

	f := File{
		ID:         uuid.NewString(),
		UserID:     userID,
		FileName:   info.Name,
		FileSize:   obj.Size,
		MimeType:   info.MimeType,
		UploadedAt: s.now().UTC(),
		FileURL:    s.Blobs.Issue(obj.Key),
		StorageKey: obj.Key,
	}
	prev, err := s.Repo.Replace(ctx, f)
	if err != nil {
		_ = s.Blobs.Release(context.WithoutCancel(ctx), f.FileURL)
		return File{}, fmt.Errorf("record cv: %w", err)
	}
	if prev != nil {
		s.release(ctx, *prev)
	}
	telemetry.Info("cv.uploaded", map[string]any{
		"user_id":   userID,
		"cv_id":     f.ID,
		"size":      f.FileSize,
		"mime_type": f.MimeType,
		"replaced":  prev != nil,
	})
	return f, nil
}

// Delete removes the user's CV. Deleting when there is none is not an error.
func (s *Service) Delete(ctx context.Context, userID string) error {
	f, err := s.Repo.Delete(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	s.release(ctx, f)
	return nil
}

// Download opens the user's CV content.
func (s *Service) Download(ctx context.Context, userID string) (File, io.ReadCloser, error) {
	f, err := s.Current(ctx, userID)
	if err != nil {
		return File{}, nil, err
	}
	rc, err := s.Blobs.Open(ctx, f.FileURL)
	if errors.Is(err, object.ErrNotFound) {
		return File{}, nil, failure.NotFound("CV content is no longer available")
	}
	if err != nil {
		return File{}, nil, fmt.Errorf("open cv: %w", err)
	}
	return f, rc, nil
}

// Preview returns the leading text of the user's CV.
func (s *Service) Preview(ctx context.Context, userID string, limit int) (extract.Preview, error) {
	f, err := s.Current(ctx, userID)
	if err != nil {
		return extract.Preview{}, err
	}
	return extract.FromStore(ctx, s.Store, f.StorageKey, f.MimeType, f.FileName, limit)
}

func (s *Service) adopt(f File) {
	if err := s.Blobs.Adopt(f.FileURL, f.StorageKey); err != nil {
		telemetry.Warn("cv.adopt_failed", map[string]any{"cv_id": f.ID, "handle": f.FileURL, "err": err})
	}
}

// release ends the handle of a displaced or deleted CV.
func (s *Service) release(ctx context.Context, f File) {
	s.adopt(f)
	if err := s.Blobs.Release(context.WithoutCancel(ctx), f.FileURL); err != nil {
		telemetry.Warn("cv.release_failed", map[string]any{"cv_id": f.ID, "handle": f.FileURL, "err": err})
	}
}

func (s *Service) discard(key string) {
	if err := s.Store.Delete(context.Background(), key); err != nil {
		telemetry.Warn("cv.discard_failed", map[string]any{"key": key, "err": err})
	}
}
