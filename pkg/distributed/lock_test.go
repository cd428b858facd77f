package distributed

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*miniredis.Miniredis, *LockManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewLockManager(client, "mirrorbot:lock:")
}

func TestTryLock_ExclusiveBetweenHolders(t *testing.T) {
	mr, lm := newTestManager(t)
	ctx := context.Background()

	first := lm.AcquireLock("sweep", time.Minute)
	second := lm.AcquireLock("sweep", time.Minute)

	ok, err := first.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, mr.Exists("mirrorbot:lock:sweep"))

	require.NoError(t, first.Unlock(ctx))

	ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Unlock(ctx))
}

func TestUnlock_NotHeld(t *testing.T) {
	_, lm := newTestManager(t)
	lock := lm.AcquireLock("sweep", time.Minute)

	assert.ErrorIs(t, lock.Unlock(context.Background()), ErrNotHeld)
}

func TestUnlock_AfterExpiry(t *testing.T) {
	mr, lm := newTestManager(t)
	ctx := context.Background()
	lock := lm.AcquireLock("sweep", time.Hour)

	ok, err := lock.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Hour)

	assert.ErrorIs(t, lock.Unlock(ctx), ErrNotHeld)
}
