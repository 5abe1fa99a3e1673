package pg

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kamideathless/books-shop/internal/catalog"
)

func TestCreateUserDuplicateUsername(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("insert into users").
		WithArgs("reader42", "Reader", nil, "user", "hash").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	_, err := store.CreateUser(context.Background(), catalog.User{
		Username: "reader42", Name: "Reader", PasswordHash: "hash",
	})
	if !errors.Is(err, catalog.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindUserByUsernameNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("select .* from users").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.FindUserByUsername(context.Background(), "ghost")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetItemPrice(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("select price_minor from shop_items").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"price_minor"}).AddRow(int64(49900)))

	price, err := store.GetItemPrice(context.Background(), 3)
	if err != nil {
		t.Fatalf("GetItemPrice: %v", err)
	}
	if price != 49900 {
		t.Fatalf("unexpected price: %d", price)
	}

	mock.ExpectQuery("select price_minor from shop_items").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"price_minor"}))
	if _, err := store.GetItemPrice(context.Background(), 99); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateReviewDuplicatePerUser(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("select 1 from books").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"one"}).AddRow(1))
	mock.ExpectQuery("insert into reviews").
		WithArgs(int64(5), int64(7), 4.5, "great").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_review_book_user"})

	_, err := store.CreateReview(context.Background(), catalog.Review{
		BookID: 5, UserID: 7, Rate: 4.5, Description: "great",
	})
	if !errors.Is(err, catalog.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteBookNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("delete from books").
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteBook(context.Background(), 99); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
