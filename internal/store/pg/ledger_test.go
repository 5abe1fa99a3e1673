package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kamideathless/books-shop/internal/purchase"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestFindPendingAbsent(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("select .* from transactions").
		WithArgs(int64(3), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, ok, err := store.FindPending(context.Background(), 3, 7)
	if err != nil {
		t.Fatalf("FindPending: %v", err)
	}
	if ok {
		t.Fatal("expected no pending intent")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindPendingFound(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("select .* from transactions").
		WithArgs(int64(3), int64(7)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "idempotence_key", "shop_item_id", "user_id", "amount_minor", "status", "created_at"}).
			AddRow(int64(11), "key-1", int64(3), int64(7), int64(49900), "pending", created))

	tx, ok, err := store.FindPending(context.Background(), 3, 7)
	if err != nil {
		t.Fatalf("FindPending: %v", err)
	}
	if !ok {
		t.Fatal("expected a pending intent")
	}
	if tx.IdempotenceKey != "key-1" || tx.Amount != 49900 || tx.Status != purchase.StatusPending {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertIntentMapsPendingConflict(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("insert into transactions").
		WithArgs("key-1", int64(3), int64(7), int64(49900)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: pendingPairConstraint})

	_, err := store.InsertIntent(context.Background(), 3, 7, 49900, "key-1")
	if !errors.Is(err, purchase.ErrDuplicatePending) {
		t.Fatalf("expected ErrDuplicatePending, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertIntentKeyCollisionIsNotRecovered(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("insert into transactions").
		WithArgs("key-1", int64(3), int64(7), int64(49900)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "transactions_idempotence_key_key"})

	_, err := store.InsertIntent(context.Background(), 3, 7, 49900, "key-1")
	if err == nil || errors.Is(err, purchase.ErrDuplicatePending) {
		t.Fatalf("expected a non-recoverable error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertIntentSuccess(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("insert into transactions").
		WithArgs("key-1", int64(3), int64(7), int64(49900)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), created))

	tx, err := store.InsertIntent(context.Background(), 3, 7, 49900, "key-1")
	if err != nil {
		t.Fatalf("InsertIntent: %v", err)
	}
	if tx.ID != 11 || tx.Status != purchase.StatusPending || tx.Amount != 49900 {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMarkStatusFinalized(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("update transactions set status").
		WithArgs(int64(11), "expired").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select .* from transactions").
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "idempotence_key", "shop_item_id", "user_id", "amount_minor", "status", "created_at"}).
			AddRow(int64(11), "key-1", int64(3), int64(7), int64(49900), "completed", created))

	err := store.MarkStatus(context.Background(), 11, purchase.StatusExpired)
	if !errors.Is(err, purchase.ErrFinalized) {
		t.Fatalf("expected ErrFinalized, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("select .* from transactions").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.FindByID(context.Background(), 99)
	if !errors.Is(err, purchase.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
