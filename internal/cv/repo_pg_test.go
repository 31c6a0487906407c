package cv

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var cvColumnNames = []string{"id", "user_id", "file_name", "file_size", "mime_type", "storage_key", "file_url", "uploaded_at"}

func newMock(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCurrentNoRowsIsNotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery("SELECT id, user_id, file_name").WithArgs("user-1").WillReturnError(sql.ErrNoRows)

	if _, err := repo.Current(context.Background(), "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoReplaceReturnsDisplacedRow(t *testing.T) {
	repo, mock := newMock(t)
	old := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	next := File{
		ID: "cv-2", UserID: "user-1", FileName: "new.pdf", FileSize: 20,
		MimeType: "application/pdf", StorageKey: "k2", FileURL: "blob:b", UploadedAt: old.Add(time.Hour),
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM cv_files WHERE user_id = \\$1 FOR UPDATE").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(cvColumnNames).
			AddRow("cv-1", "user-1", "old.pdf", int64(10), "application/pdf", "k1", "blob:a", old))
	mock.ExpectExec("INSERT INTO cv_files").
		WithArgs("cv-2", "user-1", "new.pdf", int64(20), "application/pdf", "k2", "blob:b", next.UploadedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	prev, err := repo.Replace(context.Background(), next)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if prev == nil || prev.ID != "cv-1" || prev.FileURL != "blob:a" || !prev.UploadedAt.Equal(old) {
		t.Fatalf("unexpected previous row: %+v", prev)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoReplaceFirstUpload(t *testing.T) {
	repo, mock := newMock(t)
	f := File{ID: "cv-1", UserID: "user-1", FileName: "cv.pdf", FileSize: 5, MimeType: "application/pdf", StorageKey: "k"}

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("user-1").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO cv_files").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	prev, err := repo.Replace(context.Background(), f)
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if prev != nil {
		t.Fatalf("expected no previous row, got %+v", prev)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoReplaceRollsBackOnUpsertError(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("user-1").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO cv_files").WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	if _, err := repo.Replace(context.Background(), File{ID: "cv-1", UserID: "user-1"}); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoDeleteReturnsRow(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery("DELETE FROM cv_files WHERE user_id = \\$1 RETURNING").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(cvColumnNames).
			AddRow("cv-1", "user-1", "cv.pdf", int64(10), "application/pdf", "k1", nil, at))

	f, err := repo.Delete(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if f.ID != "cv-1" || f.FileURL != "" {
		t.Fatalf("unexpected row: %+v", f)
	}

	mock.ExpectQuery("DELETE FROM cv_files").WithArgs("user-1").WillReturnError(sql.ErrNoRows)
	if _, err := repo.Delete(context.Background(), "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
