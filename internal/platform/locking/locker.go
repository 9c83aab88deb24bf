// Package locking serialises audit submissions per fund need period across
// API replicas.
package locking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/funding-audit-ledger/internal/config"
)

// ErrNotObtained means another process holds the lock
var ErrNotObtained = errors.New("lock is held by another process")

// Lock is a held lock
type Lock interface {
	Release(ctx context.Context) error
}

// PeriodLocker guards work on one fund need period
type PeriodLocker interface {
	Obtain(ctx context.Context, fundNeedID uuid.UUID, year, month int) (Lock, error)
}

// PeriodKey is the Redis key guarding a fund need period
func PeriodKey(fundNeedID uuid.UUID, year, month int) string {
	return fmt.Sprintf("funding-audit:period:%s:%04d:%02d", fundNeedID, year, month)
}

// RedisLocker obtains locks through redislock. Attempts are not retried.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisLocker wraps an existing go-redis client
func NewRedisLocker(logger *slog.Logger, client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(client),
		ttl:    ttl,
		logger: logger,
	}
}

// Obtain takes the period lock or returns ErrNotObtained
func (l *RedisLocker) Obtain(ctx context.Context, fundNeedID uuid.UUID, year, month int) (Lock, error) {
	key := PeriodKey(fundNeedID, year, month)
	lock, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		l.logger.Warn("Period lock is held elsewhere", "key", key)
		return nil, ErrNotObtained
	}
	if err != nil {
		l.logger.Error("Failed to obtain period lock", "key", key, "error", err)
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}
	return lock, nil
}

// NoopLocker always succeeds; used when Redis is not configured
type NoopLocker struct{}

func (NoopLocker) Obtain(context.Context, uuid.UUID, int, int) (Lock, error) {
	return noopLock{}, nil
}

type noopLock struct{}

func (noopLock) Release(context.Context) error { return nil }

// New connects to Redis when an address is configured and falls back to
// NoopLocker otherwise. The returned close func releases the client.
func New(ctx context.Context, logger *slog.Logger, cfg *config.RedisConfig) (PeriodLocker, func() error, error) {
	if cfg.Address == "" {
		logger.Info("Redis address not configured, period locking disabled")
		return NoopLocker{}, func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("Connected to Redis", "address", cfg.Address)
	return NewRedisLocker(logger, client, cfg.LockTTL), client.Close, nil
}
