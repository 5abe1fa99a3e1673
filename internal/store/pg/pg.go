// Package pg provides the durable Postgres implementations of the catalog,
// credential and transaction ledger contracts.
package pg

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kamideathless/books-shop/internal/catalog"
	"github.com/kamideathless/books-shop/internal/purchase"
)

// Store implements every store contract over one connection pool.
type Store struct {
	db *sql.DB
}

var (
	_ catalog.UserStore = (*Store)(nil)
	_ catalog.BookStore = (*Store)(nil)
	_ catalog.ShopStore = (*Store)(nil)
	_ purchase.Ledger   = (*Store)(nil)
)

// Open connects to Postgres and tunes the pool.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing handle (tests).
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle for the ready probe and migrations.
func (s *Store) DB() *sql.DB { return s.db }

// pendingPairConstraint is the partial unique index guaranteeing at most one
// pending transaction per (user, item). Defined in the initial migration.
const pendingPairConstraint = "ux_transactions_pending_pair"

func uniqueViolation(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr, true
	}
	return nil, false
}
