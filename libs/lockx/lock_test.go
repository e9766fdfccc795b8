package lockx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLeaseExclusive(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()

	a, err := NewLease(client, "datasync:tick", time.Minute)
	require.NoError(t, err)
	b, err := NewLease(client, "datasync:tick", time.Minute)
	require.NoError(t, err)

	lock, ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Release(ctx, lock))

	_, ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseIgnoresForeignToken(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()

	lease, err := NewLease(client, "datasync:tick", time.Second)
	require.NoError(t, err)

	lock, ok, err := lease.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	other, ok, err := lease.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, lease.Release(ctx, lock))
	got, err := mr.Get("datasync:tick")
	require.NoError(t, err)
	assert.Equal(t, other.Token, got)
}

func TestNewLeaseValidation(t *testing.T) {
	_, client := newTestClient(t)

	_, err := NewLease(nil, "k", time.Second)
	assert.Error(t, err)
	_, err = NewLease(client, "", time.Second)
	assert.Error(t, err)
	_, err = NewLease(client, "k", 0)
	assert.Error(t, err)
}

func TestReadyCheck(t *testing.T) {
	_, client := newTestClient(t)
	assert.NoError(t, ReadyCheck(client)(context.Background()))
	assert.Error(t, ReadyCheck(nil)(context.Background()))
}
