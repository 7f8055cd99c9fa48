package cache

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceCache serves time-bounded balance snapshots for display paths
// only. Spend authorization never consults it: a stale, higher cached
// balance must not gate a transfer.
type BalanceCache interface {
	// Get returns the cached balance when present and unexpired.
	Get(ctx context.Context, userId int64) (decimal.Decimal, bool)
	// Put overwrites the entry with a fresh expiry.
	Put(ctx context.Context, userId int64, balance decimal.Decimal, ttl time.Duration)
	// Invalidate removes the entry. Called after any transfer that
	// debits the user.
	Invalidate(ctx context.Context, userId int64)
}
