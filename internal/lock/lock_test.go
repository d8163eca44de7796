package redlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (redis.UniversalClient, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr
}

func TestLockAndUnlock(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	locker := NewLocker(client, "acc_1", "holder-a")
	require.NoError(t, locker.Lock(ctx, time.Minute))

	// A second holder cannot take the same key while it is held.
	other := NewLocker(client, "acc_1", "holder-b")
	assert.Error(t, other.Lock(ctx, time.Minute))

	require.NoError(t, locker.Unlock(ctx))
	assert.NoError(t, other.Lock(ctx, time.Minute))
}

func TestUnlockOnlyByHolder(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	locker := NewLocker(client, "acc_1", "holder-a")
	require.NoError(t, locker.Lock(ctx, time.Minute))

	impostor := NewLocker(client, "acc_1", "holder-b")
	assert.Error(t, impostor.Unlock(ctx))
	assert.NoError(t, locker.Unlock(ctx))
}

func TestExtendLock(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	locker := NewLocker(client, "acc_1", "holder-a")
	require.NoError(t, locker.Lock(ctx, time.Second))
	require.NoError(t, locker.ExtendLock(ctx, time.Minute))

	mr.FastForward(5 * time.Second)
	// Still held after the original timeout would have elapsed.
	other := NewLocker(client, "acc_1", "holder-b")
	assert.Error(t, other.Lock(ctx, time.Minute))
}

func TestMultiLockerAcquiresInOrder(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	ml := NewMultiLocker(client, []string{"acc_b", "acc_a"}, "transfer-1")
	require.NoError(t, ml.Lock(ctx, time.Minute, time.Second))

	// Both scopes are held regardless of the caller's key ordering.
	assert.Error(t, NewLocker(client, "acc_a", "x").Lock(ctx, time.Minute))
	assert.Error(t, NewLocker(client, "acc_b", "x").Lock(ctx, time.Minute))

	require.NoError(t, ml.Unlock(ctx))
	assert.NoError(t, NewLocker(client, "acc_a", "x").Lock(ctx, time.Minute))
}

func TestMultiLockerReleasesOnPartialFailure(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	// Pre-hold one of the two scopes so acquisition must fail.
	blocker := NewLocker(client, "acc_b", "blocker")
	require.NoError(t, blocker.Lock(ctx, time.Minute))

	ml := NewMultiLocker(client, []string{"acc_a", "acc_b"}, "transfer-1")
	assert.Error(t, ml.Lock(ctx, time.Minute, 200*time.Millisecond))

	// The scope acquired before the failure must have been released.
	assert.NoError(t, NewLocker(client, "acc_a", "x").Lock(ctx, time.Minute))
}
