package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crowdtasks-admin/internal/shared/lock"
)

func newTestLocker(t *testing.T) *Locker {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	l, err := NewLockerFromURL(context.Background(), url, time.Minute)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLockerExclusive(t *testing.T) {
	l := newTestLocker(t)
	ctx := context.Background()
	key := "test-" + uuid.NewString()

	unlock, err := l.TryLock(ctx, key)
	require.NoError(t, err)

	_, err = l.TryLock(ctx, key)
	assert.ErrorIs(t, err, lock.ErrLocked)

	require.NoError(t, unlock())
	require.NoError(t, unlock())

	unlock2, err := l.TryLock(ctx, key)
	require.NoError(t, err)
	require.NoError(t, unlock2())
}

func TestLockerReleaseChecksToken(t *testing.T) {
	l := newTestLocker(t)
	ctx := context.Background()
	key := "test-" + uuid.NewString()

	unlock, err := l.TryLock(ctx, key)
	require.NoError(t, err)

	// 模拟锁过期后被他人获取
	require.NoError(t, l.Client().Set(ctx, KeyPrefix+key, "someone-else", time.Minute).Err())
	err = unlock()
	assert.ErrorIs(t, err, lock.ErrNotHeld)
	assert.ErrorIs(t, unlock(), lock.ErrNotHeld)

	val, err := l.Client().Get(ctx, KeyPrefix+key).Result()
	require.NoError(t, err)
	assert.Equal(t, "someone-else", val)
	l.Client().Del(ctx, KeyPrefix+key)
}

func TestLockerRefreshesLease(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	l, err := NewLockerFromURL(context.Background(), url, 300*time.Millisecond)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { l.Close() })

	ctx := context.Background()
	key := "test-" + uuid.NewString()
	unlock, err := l.TryLock(ctx, key)
	require.NoError(t, err)

	// 持有时间超过多个 TTL，锁仍然属于当前持有者
	time.Sleep(time.Second)
	_, err = l.TryLock(ctx, key)
	assert.ErrorIs(t, err, lock.ErrLocked)

	require.NoError(t, unlock())
	exists, err := l.Client().Exists(ctx, KeyPrefix+key).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}
