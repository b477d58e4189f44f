package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	l := NewLocal()
	l.now = func() time.Time { return now }

	release, ok, err := l.Acquire(ctx, "dispatch", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, "dispatch", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	_, ok, err = l.Acquire(ctx, "dispatch", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocal_ExpiredLockCanBeRetaken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	l := NewLocal()
	l.now = func() time.Time { return now }

	_, ok, _ := l.Acquire(ctx, "dispatch", time.Minute)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = l.Acquire(ctx, "dispatch", time.Minute)
	assert.True(t, ok)
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	l := NewRedis(client)

	release, ok, err := l.Acquire(ctx, "lock:dispatch", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("lock:dispatch"))

	_, ok, err = l.Acquire(ctx, "lock:dispatch", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	assert.False(t, mr.Exists("lock:dispatch"))
}

func TestRedis_ReleaseLeavesForeignLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	l := NewRedis(client)

	release, ok, err := l.Acquire(ctx, "lock:dispatch", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)
	require.NoError(t, mr.Set("lock:dispatch", "someone-else"))

	release()
	got, err := mr.Get("lock:dispatch")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}
