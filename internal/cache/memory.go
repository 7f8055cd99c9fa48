package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Compile-time check: *Memory must satisfy BalanceCache.
var _ BalanceCache = (*Memory)(nil)

type entry struct {
	balance   decimal.Decimal
	expiresAt time.Time
}

// Memory is the process-local cache backend. Entries are purged lazily on
// read; coherence across processes is out of scope (use Redis for that).
type Memory struct {
	mu      sync.Mutex
	entries map[int64]entry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[int64]entry)}
}

func (m *Memory) Get(_ context.Context, userId int64) (decimal.Decimal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[userId]
	if !ok {
		return decimal.Zero, false
	}
	if !time.Now().Before(e.expiresAt) {
		delete(m.entries, userId)
		return decimal.Zero, false
	}
	return e.balance, true
}

func (m *Memory) Put(_ context.Context, userId int64, balance decimal.Decimal, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[userId] = entry{balance: balance, expiresAt: time.Now().Add(ttl)}
}

func (m *Memory) Invalidate(_ context.Context, userId int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userId)
}
