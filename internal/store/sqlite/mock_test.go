package sqlite

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/fosse-media/fosse/internal/errors"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS notebooks").WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := New(db, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s, mock
}

func TestBeginScanSession_StorageFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin().WillReturnError(errors.New("disk I/O error"))

	_, err := s.BeginScanSession(context.Background())
	if !errors.Is(err, errors.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCommit_StorageFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	sess, err := s.BeginScanSession(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	err = sess.Commit()
	if !errors.Is(err, errors.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}

	// The failed session no longer blocks the next scan.
	mock.ExpectBegin()
	next, err := s.BeginScanSession(context.Background())
	if err != nil {
		t.Fatalf("begin after failed commit: %v", err)
	}
	mock.ExpectRollback()
	if err := next.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestReconcile_StorageFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT directory_path FROM notebooks").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	sess, err := s.BeginScanSession(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := sess.Reconcile(context.Background()); !errors.Is(err, errors.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if err := sess.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestUpsertNotebook_StorageFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO notebooks").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	sess, err := s.BeginScanSession(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	err = sess.UpsertNotebook(context.Background(), "/m", mustNotebook(t, "genre: Skate\n"))
	if !errors.Is(err, errors.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if err := sess.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
