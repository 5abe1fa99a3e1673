package purchase

import (
	"context"
	"sync"
	"time"
)

type pairKey struct {
	itemID int64
	userID int64
}

// MemoryLedger implements Ledger with in-process exclusion semantics matching
// the durable store: one pending intent per (user, item). Used by tests and
// local development.
type MemoryLedger struct {
	mu      sync.Mutex
	txs     map[int64]Transaction
	pending map[pairKey]int64
	nextID  int64
}

var _ Ledger = (*MemoryLedger)(nil)

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		txs:     make(map[int64]Transaction),
		pending: make(map[pairKey]int64),
	}
}

func (l *MemoryLedger) FindPending(ctx context.Context, itemID, userID int64) (Transaction, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.pending[pairKey{itemID, userID}]
	if !ok {
		return Transaction{}, false, nil
	}
	return l.txs[id], true, nil
}

func (l *MemoryLedger) InsertIntent(ctx context.Context, itemID, userID, amount int64, key string) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pk := pairKey{itemID, userID}
	if _, exists := l.pending[pk]; exists {
		return Transaction{}, ErrDuplicatePending
	}
	l.nextID++
	tx := Transaction{
		ID:             l.nextID,
		IdempotenceKey: key,
		ShopItemID:     itemID,
		UserID:         userID,
		Amount:         amount,
		Status:         StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
	l.txs[tx.ID] = tx
	l.pending[pk] = tx.ID
	return tx, nil
}

func (l *MemoryLedger) FindByID(ctx context.Context, id int64) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tx, ok := l.txs[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return tx, nil
}

func (l *MemoryLedger) MarkStatus(ctx context.Context, id int64, status Status) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	tx, ok := l.txs[id]
	if !ok {
		return ErrNotFound
	}
	if tx.Status != StatusPending {
		return ErrFinalized
	}
	tx.Status = status
	l.txs[id] = tx
	if status != StatusPending {
		delete(l.pending, pairKey{tx.ShopItemID, tx.UserID})
	}
	return nil
}

// Len reports the number of ledger rows (test helper).
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.txs)
}
