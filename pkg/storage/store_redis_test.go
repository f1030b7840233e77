package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Storage {
	t.Helper()
	srv, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	store, err := CreateStorage("redis://" + srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestCreateStorageInvalidScheme(t *testing.T) {
	_, err := CreateStorage("memcached://127.0.0.1:11211")
	require.Error(t, err)
}

func TestRedisStoreSetGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "decision-key", "Granted", time.Minute))

	value, err := store.Get(ctx, "decision-key")
	require.NoError(t, err)
	assert.Equal(t, "Granted", value)

	found, err := store.Exists(ctx, "decision-key")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRedisStoreGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "decision-key", "Denied", time.Minute))
	require.NoError(t, store.Delete(ctx, "decision-key"))

	found, err := store.Exists(ctx, "decision-key")
	require.NoError(t, err)
	assert.False(t, found)
}
