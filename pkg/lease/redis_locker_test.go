package lease

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opt)
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())
	return rdb
}

func TestRedisLocker_ExclusiveUntilReleased(t *testing.T) {
	rdb := testClient(t)
	ctx := context.Background()
	locker := NewRedisLocker(rdb, "test-"+uuid.NewString())

	release, ok, err := locker.TryLock(ctx, "cycle", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "cycle", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, release(ctx))
	assert.ErrorIs(t, release(ctx), ErrNotHeld)

	release, ok, err = locker.TryLock(ctx, "cycle", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, release(ctx))
}

func TestRedisLocker_ExpiredLeaseIsNotReleasedByOldHolder(t *testing.T) {
	rdb := testClient(t)
	ctx := context.Background()
	locker := NewRedisLocker(rdb, "test-"+uuid.NewString())

	stale, ok, err := locker.TryLock(ctx, "cycle", 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	time.Sleep(100 * time.Millisecond)

	fresh, ok, err := locker.TryLock(ctx, "cycle", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	assert.ErrorIs(t, stale(ctx), ErrNotHeld)
	require.NoError(t, fresh(ctx))
}

func TestRedisLocker_Key(t *testing.T) {
	assert.Equal(t, "research:cycle", NewRedisLocker(nil, "").key("research:cycle"))
	assert.Equal(t, "prod:research:cycle", NewRedisLocker(nil, "prod").key("research:cycle"))
}
