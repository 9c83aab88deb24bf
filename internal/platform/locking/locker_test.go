package locking

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funding-audit-ledger/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func setupLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(testLogger(), client, 5*time.Second), mr
}

func TestPeriodKey(t *testing.T) {
	id := uuid.MustParse("7d5c3c1e-6a8e-4a53-9d0e-3f7a9a0c1b2d")
	assert.Equal(t, "funding-audit:period:7d5c3c1e-6a8e-4a53-9d0e-3f7a9a0c1b2d:2024:03", PeriodKey(id, 2024, 3))
}

func TestRedisLocker_ObtainAndRelease(t *testing.T) {
	locker, mr := setupLocker(t)
	ctx := context.Background()
	fundNeed := uuid.New()

	lock, err := locker.Obtain(ctx, fundNeed, 2024, 3)
	require.NoError(t, err)
	assert.True(t, mr.Exists(PeriodKey(fundNeed, 2024, 3)))

	_, err = locker.Obtain(ctx, fundNeed, 2024, 3)
	assert.ErrorIs(t, err, ErrNotObtained)

	// A different period is independent
	other, err := locker.Obtain(ctx, fundNeed, 2024, 4)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lock.Release(ctx))
	assert.False(t, mr.Exists(PeriodKey(fundNeed, 2024, 3)))

	again, err := locker.Obtain(ctx, fundNeed, 2024, 3)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestRedisLocker_ExpiresAfterTTL(t *testing.T) {
	locker, mr := setupLocker(t)
	ctx := context.Background()
	fundNeed := uuid.New()

	_, err := locker.Obtain(ctx, fundNeed, 2024, 1)
	require.NoError(t, err)

	mr.FastForward(6 * time.Second)

	lock, err := locker.Obtain(ctx, fundNeed, 2024, 1)
	require.NoError(t, err)
	require.NoError(t, lock.Release(ctx))
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("NoAddressUsesNoop", func(t *testing.T) {
		locker, closeFn, err := New(ctx, testLogger(), &config.RedisConfig{})
		require.NoError(t, err)
		assert.IsType(t, NoopLocker{}, locker)
		assert.NoError(t, closeFn())

		lock, err := locker.Obtain(ctx, uuid.New(), 2024, 1)
		require.NoError(t, err)
		assert.NoError(t, lock.Release(ctx))
	})

	t.Run("ConnectsToRedis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		locker, closeFn, err := New(ctx, testLogger(), &config.RedisConfig{Address: mr.Addr(), LockTTL: time.Second})
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &RedisLocker{}, locker)
	})
}
