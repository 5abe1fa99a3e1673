// Package purchase implements the idempotent purchase orchestrator and the
// transaction ledger contract it drives. At most one pending intent may exist
// per (user, item) pair; that exclusion is enforced by the ledger store, not
// by in-process locks, so it holds across server instances.
package purchase

import (
	"context"
	"errors"
	"time"
)

// Status is the transaction intent state machine. An intent is created
// pending and moves to completed or expired by the external settlement
// process; terminal states are immutable.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// Transaction is a recorded intention to pay for an item, prior to
// settlement. Amount is the item's price snapshotted at creation in minor
// units; it is never recomputed.
type Transaction struct {
	ID             int64     `json:"id"`
	IdempotenceKey string    `json:"idempotence_key"`
	ShopItemID     int64     `json:"shop_item_id"`
	UserID         int64     `json:"user_id"`
	Amount         int64     `json:"amount"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

var (
	// ErrNotFound indicates a missing transaction.
	ErrNotFound = errors.New("transaction not found")
	// ErrDuplicatePending is the distinguishable uniqueness-violation
	// condition raised by InsertIntent when a pending intent already exists
	// for the (user, item) pair. The orchestrator recovers from it locally.
	ErrDuplicatePending = errors.New("pending intent already exists")
	// ErrFinalized rejects status transitions out of a terminal state.
	ErrFinalized = errors.New("transaction already finalized")
)

// Ledger is the durable transaction store contract.
type Ledger interface {
	// FindPending returns the pending intent for the pair, if any.
	FindPending(ctx context.Context, itemID, userID int64) (Transaction, bool, error)
	// InsertIntent atomically creates a new pending intent. Two concurrent
	// inserts for the same pair must not both succeed; the loser fails with
	// ErrDuplicatePending.
	InsertIntent(ctx context.Context, itemID, userID, amount int64, key string) (Transaction, error)
	// FindByID fails with ErrNotFound when the transaction does not exist.
	FindByID(ctx context.Context, id int64) (Transaction, error)
	// MarkStatus is the transition point used by the settlement process.
	// Fails with ErrFinalized when the row is already terminal.
	MarkStatus(ctx context.Context, id int64, status Status) error
}

// PriceSource is the narrow catalog contract the orchestrator snapshots
// prices through.
type PriceSource interface {
	GetItemPrice(ctx context.Context, id int64) (int64, error)
}
