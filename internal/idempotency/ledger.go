package idempotency

import (
	"context"
	"errors"

	"tipbot-go/internal/store"

	"github.com/google/uuid"
)

// Ledger mints one-time transfer tokens and answers whether a token has
// already been attached to a transaction row. The backing uniqueness
// constraint on the datastore is the source of truth for "already
// recorded"; IsProcessed is an advisory pre-check.
type Ledger struct {
	store store.Store
}

func NewLedger(st store.Store) *Ledger {
	return &Ledger{store: st}
}

// NewToken produces a globally-unique opaque token. Minted once per
// transfer intent, when validation succeeds and the intent enters its
// confirmation state.
func (l *Ledger) NewToken() string {
	return uuid.New().String()
}

// IsProcessed reports whether a transaction row carries this token. A
// true result means the flow must short-circuit with no further side
// effects.
func (l *Ledger) IsProcessed(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	_, err := l.store.TransactionByIdempotencyKey(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
