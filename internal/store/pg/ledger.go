package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kamideathless/books-shop/internal/purchase"
)

const transactionColumns = `
	id, idempotence_key, shop_item_id, user_id, amount_minor, status, created_at
`

// FindPending returns the outstanding intent for the (item, user) pair.
func (s *Store) FindPending(ctx context.Context, itemID, userID int64) (purchase.Transaction, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+transactionColumns+`
		from transactions
		where shop_item_id=$1 and user_id=$2 and status='pending'
	`, itemID, userID)
	tx, err := scanTransaction(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return purchase.Transaction{}, false, nil
	}
	if err != nil {
		return purchase.Transaction{}, false, err
	}
	return tx, true, nil
}

// InsertIntent creates a pending intent. The ux_transactions_pending_pair
// partial unique index serializes concurrent check-then-insert callers: the
// loser observes a unique violation which is surfaced as ErrDuplicatePending.
func (s *Store) InsertIntent(ctx context.Context, itemID, userID, amount int64, key string) (purchase.Transaction, error) {
	tx := purchase.Transaction{
		IdempotenceKey: key,
		ShopItemID:     itemID,
		UserID:         userID,
		Amount:         amount,
		Status:         purchase.StatusPending,
	}
	err := s.db.QueryRowContext(ctx, `
		insert into transactions(idempotence_key, shop_item_id, user_id, amount_minor, status)
		values ($1,$2,$3,$4,'pending')
		returning id, created_at
	`, key, itemID, userID, amount).Scan(&tx.ID, &tx.CreatedAt)
	if pgErr, ok := uniqueViolation(err); ok {
		if pgErr.ConstraintName == pendingPairConstraint {
			return purchase.Transaction{}, purchase.ErrDuplicatePending
		}
		// Key collision would mean a reused idempotence key; never recovered.
		return purchase.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	if err != nil {
		return purchase.Transaction{}, err
	}
	return tx, nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (purchase.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+transactionColumns+`
		from transactions where id=$1
	`, id)
	tx, err := scanTransaction(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return purchase.Transaction{}, purchase.ErrNotFound
	}
	return tx, err
}

// MarkStatus moves a pending intent to a terminal state. Terminal rows are
// immutable.
func (s *Store) MarkStatus(ctx context.Context, id int64, status purchase.Status) error {
	res, err := s.db.ExecContext(ctx, `
		update transactions set status=$2
		where id=$1 and status='pending'
	`, id, string(status))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}
	if _, err := s.FindByID(ctx, id); err != nil {
		return err
	}
	return purchase.ErrFinalized
}

func scanTransaction(scan func(dest ...any) error) (purchase.Transaction, error) {
	var tx purchase.Transaction
	var status string
	if err := scan(&tx.ID, &tx.IdempotenceKey, &tx.ShopItemID, &tx.UserID, &tx.Amount, &status, &tx.CreatedAt); err != nil {
		return purchase.Transaction{}, err
	}
	tx.Status = purchase.Status(status)
	return tx, nil
}
