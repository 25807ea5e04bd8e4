package lock_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-checkout/internal/application"
	"github.com/DanielPopoola/ficmart-checkout/internal/application/services/testhelpers"
	"github.com/DanielPopoola/ficmart-checkout/internal/infrastructure/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertMutualExclusion runs workers against the same key and fails if two overlap.
func assertMutualExclusion(t *testing.T, locker application.Locker) {
	t.Helper()
	ctx := context.Background()

	const workers = 8
	var (
		wg      sync.WaitGroup
		holders atomic.Int32
		maxSeen atomic.Int32
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "customer:user-1")
			if !assert.NoError(t, err) {
				return
			}
			n := holders.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(5 * time.Millisecond)
			holders.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
}

func TestLocalLocker_MutualExclusion(t *testing.T) {
	assertMutualExclusion(t, lock.NewLocalLocker())
}

func TestLocalLocker_IndependentKeys(t *testing.T) {
	locker := lock.NewLocalLocker()
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	unlockB, err := locker.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestLocalLocker_ContextCancelled(t *testing.T) {
	locker := lock.NewLocalLocker()

	unlock, err := locker.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLocalLocker_UnlockIsIdempotent(t *testing.T) {
	locker := lock.NewLocalLocker()

	unlock, err := locker.Lock(context.Background(), "a")
	require.NoError(t, err)
	unlock()
	unlock()

	unlock, err = locker.Lock(context.Background(), "a")
	require.NoError(t, err)
	unlock()
}

func TestRedisLocker(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	redisEnv := testhelpers.SetupTestRedis(t)
	defer redisEnv.Cleanup(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	locker := lock.NewRedisLocker(redisEnv.Client, 5*time.Second, 2*time.Millisecond, logger)

	t.Run("mutual exclusion", func(t *testing.T) {
		assertMutualExclusion(t, locker)
	})

	t.Run("expired lock is not released by its old holder", func(t *testing.T) {
		ctx := context.Background()
		short := lock.NewRedisLocker(redisEnv.Client, 50*time.Millisecond, 2*time.Millisecond, logger)

		staleUnlock, err := short.Lock(ctx, "k")
		require.NoError(t, err)
		time.Sleep(100 * time.Millisecond)

		freshUnlock, err := short.Lock(ctx, "k")
		require.NoError(t, err)

		staleUnlock()
		exists, err := redisEnv.Client.Exists(ctx, "lock:k").Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), exists)

		freshUnlock()
	})

	t.Run("waits until context deadline", func(t *testing.T) {
		unlock, err := locker.Lock(context.Background(), "busy")
		require.NoError(t, err)
		defer unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		_, err = locker.Lock(ctx, "busy")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
