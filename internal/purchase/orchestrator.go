package purchase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Orchestrator creates purchase intents exactly once per outstanding
// (user, item) pair, independent of client retries or request duplication.
type Orchestrator struct {
	ledger Ledger
	prices PriceSource
	newKey func() string
}

// OrchestratorOption configures the orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithKeyFunc overrides idempotence key generation (tests).
func WithKeyFunc(fn func() string) OrchestratorOption {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newKey = fn
		}
	}
}

// NewOrchestrator wires the orchestrator to its ledger and price source.
func NewOrchestrator(ledger Ledger, prices PriceSource, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		ledger: ledger,
		prices: prices,
		newKey: uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CreatePurchase returns the user's pending intent for the item, creating it
// if none exists. created reports whether this call inserted the intent, so a
// client can tell a resumed flow from a brand new one.
//
// A concurrent insert losing the race against the ledger's uniqueness
// constraint is recovered locally by re-reading the winner's row; every other
// failure propagates to the caller.
func (o *Orchestrator) CreatePurchase(ctx context.Context, itemID, userID int64) (Transaction, bool, error) {
	if tx, ok, err := o.ledger.FindPending(ctx, itemID, userID); err != nil {
		return Transaction{}, false, fmt.Errorf("find pending intent: %w", err)
	} else if ok {
		return tx, false, nil
	}

	// Snapshot the current price; the intent keeps this amount even if the
	// listing is repriced later.
	amount, err := o.prices.GetItemPrice(ctx, itemID)
	if err != nil {
		return Transaction{}, false, err
	}

	tx, err := o.ledger.InsertIntent(ctx, itemID, userID, amount, o.newKey())
	if err == nil {
		return tx, true, nil
	}
	if !errors.Is(err, ErrDuplicatePending) {
		return Transaction{}, false, fmt.Errorf("insert intent: %w", err)
	}

	// Lost the race: another request inserted the pending intent between our
	// lookup and insert. Return that row as a resumed flow.
	tx, ok, err := o.ledger.FindPending(ctx, itemID, userID)
	if err != nil {
		return Transaction{}, false, fmt.Errorf("re-read pending intent: %w", err)
	}
	if !ok {
		// The winner settled before our re-read; the caller retry lands on a
		// clean state.
		return Transaction{}, false, ErrDuplicatePending
	}
	return tx, false, nil
}

// GetTransaction looks up a transaction by id.
func (o *Orchestrator) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	return o.ledger.FindByID(ctx, id)
}
