package crypto

import (
	"testing"
	"time"

	"sealvault-node/types"

	"cosmossdk.io/errors"
	"github.com/stretchr/testify/require"
)

func TestKeyCacheStoreTake(t *testing.T) {
	cache := NewKeyCache(0)

	key, err := GenerateKey()
	require.NoError(t, err)

	require.NoError(t, cache.Store("rec-1", key))
	require.True(t, cache.Has("rec-1"))

	got, err := cache.Take("rec-1")
	require.NoError(t, err)
	require.Equal(t, key, got)
	require.False(t, cache.Has("rec-1"))
}

func TestKeyCacheSingleConsumption(t *testing.T) {
	cache := NewKeyCache(0)

	key, err := GenerateKey()
	require.NoError(t, err)
	require.NoError(t, cache.Store("rec-1", key))

	_, err = cache.Take("rec-1")
	require.NoError(t, err)

	// the second take must miss: the key exists exactly once.
	_, err = cache.Take("rec-1")
	require.Error(t, err)
	require.True(t, errors.IsOf(err, types.ErrKeyCacheMiss))
}

func TestKeyCacheStoreConflict(t *testing.T) {
	cache := NewKeyCache(0)

	key, err := GenerateKey()
	require.NoError(t, err)
	require.NoError(t, cache.Store("rec-1", key))

	err = cache.Store("rec-1", key)
	require.Error(t, err)
	require.True(t, errors.IsOf(err, types.ErrKeyCacheConflict))
}

func TestKeyCacheKeepsNoAlias(t *testing.T) {
	cache := NewKeyCache(0)

	key, err := GenerateKey()
	require.NoError(t, err)
	require.NoError(t, cache.Store("rec-1", key))

	// mutating the caller's buffer must not affect the cached copy.
	original := make([]byte, len(key))
	copy(original, key)
	Zeroize(key)

	got, err := cache.Take("rec-1")
	require.NoError(t, err)
	require.Equal(t, original, got)
}

func TestKeyCacheDiscard(t *testing.T) {
	cache := NewKeyCache(0)

	key, err := GenerateKey()
	require.NoError(t, err)
	require.NoError(t, cache.Store("rec-1", key))

	cache.Discard("rec-1")
	_, err = cache.Take("rec-1")
	require.Error(t, err)

	// discarding an absent entry is a no-op.
	cache.Discard("rec-1")
}

func TestKeyCacheSweep(t *testing.T) {
	cache := NewKeyCache(10 * time.Millisecond)

	key, err := GenerateKey()
	require.NoError(t, err)
	require.NoError(t, cache.Store("stale", key))

	time.Sleep(20 * time.Millisecond)
	cache.sweep()

	_, err = cache.Take("stale")
	require.Error(t, err)
	require.True(t, errors.IsOf(err, types.ErrKeyCacheMiss))
}
