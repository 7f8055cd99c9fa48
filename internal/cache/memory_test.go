package cache

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestMemoryPutGet(t *testing.T) {
	cache := NewMemory()
	ctx := context.Background()

	cache.Put(ctx, 1001, decimal.NewFromFloat(12.5), time.Minute)

	balance, hit := cache.Get(ctx, 1001)
	if !hit {
		t.Fatalf("Expected cache hit")
	}
	if !balance.Equal(decimal.NewFromFloat(12.5)) {
		t.Errorf("Expected balance 12.5, got %s", balance.String())
	}
}

func TestMemoryMiss(t *testing.T) {
	cache := NewMemory()

	_, hit := cache.Get(context.Background(), 9999)
	if hit {
		t.Errorf("Expected miss for unknown user")
	}
}

func TestMemoryExpiry(t *testing.T) {
	cache := NewMemory()
	ctx := context.Background()

	cache.Put(ctx, 1001, decimal.NewFromInt(1), 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	_, hit := cache.Get(ctx, 1001)
	if hit {
		t.Errorf("Expected entry to expire")
	}
}

func TestMemoryInvalidate(t *testing.T) {
	cache := NewMemory()
	ctx := context.Background()

	cache.Put(ctx, 1001, decimal.NewFromInt(1), time.Minute)
	cache.Invalidate(ctx, 1001)

	_, hit := cache.Get(ctx, 1001)
	if hit {
		t.Errorf("Expected miss after invalidation")
	}
}

func TestMemoryOverwrite(t *testing.T) {
	cache := NewMemory()
	ctx := context.Background()

	cache.Put(ctx, 1001, decimal.NewFromInt(1), time.Minute)
	cache.Put(ctx, 1001, decimal.NewFromInt(2), time.Minute)

	balance, hit := cache.Get(ctx, 1001)
	if !hit {
		t.Fatalf("Expected cache hit")
	}
	if !balance.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Expected overwritten balance 2, got %s", balance.String())
	}
}
