package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *Redis must satisfy BalanceCache.
var _ BalanceCache = (*Redis)(nil)

// Redis is the shared cache backend for multi-process deployments, where
// an invalidation performed by one process must be visible to the rest.
// All errors degrade to cache misses; the chain remains the source of
// truth either way.
type Redis struct {
	client *redis.Client
}

func NewRedis(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

func balanceKey(userId int64) string {
	return fmt.Sprintf("balance:%d", userId)
}

func (r *Redis) Get(ctx context.Context, userId int64) (decimal.Decimal, bool) {
	value, err := r.client.Get(ctx, balanceKey(userId)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("Redis balance read failed", zap.Int64("user_id", userId), zap.Error(err))
		}
		return decimal.Zero, false
	}

	balance, err := decimal.NewFromString(value)
	if err != nil {
		zap.L().Warn("Dropping unparseable cached balance",
			zap.Int64("user_id", userId), zap.String("value", value))
		r.Invalidate(ctx, userId)
		return decimal.Zero, false
	}
	return balance, true
}

func (r *Redis) Put(ctx context.Context, userId int64, balance decimal.Decimal, ttl time.Duration) {
	if err := r.client.Set(ctx, balanceKey(userId), balance.String(), ttl).Err(); err != nil {
		zap.L().Warn("Redis balance write failed", zap.Int64("user_id", userId), zap.Error(err))
	}
}

func (r *Redis) Invalidate(ctx context.Context, userId int64) {
	if err := r.client.Del(ctx, balanceKey(userId)).Err(); err != nil {
		zap.L().Warn("Redis balance invalidation failed", zap.Int64("user_id", userId), zap.Error(err))
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
