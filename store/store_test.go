package store

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"sealvault-node/types"
	"sealvault-node/utils"

	"cosmossdk.io/errors"
	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	content := []byte("ciphertext bytes go here")
	cidStr, err := backend.Store(ctx, bytes.NewReader(content))
	require.NoError(t, err)

	// the reported cid is the content address, recomputable from bytes.
	expected, err := utils.CalculateCid(content)
	require.NoError(t, err)
	require.Equal(t, expected.String(), cidStr)

	reader, err := backend.Get(ctx, expected)
	require.NoError(t, err)
	defer reader.Close()
	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, content, got)

	require.NoError(t, backend.Remove(ctx, expected))
	_, err = backend.Get(ctx, expected)
	require.Error(t, err)
}

func TestMemoryBackendBroken(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	backend.Broken = true

	_, err := backend.Store(ctx, bytes.NewReader([]byte("x")))
	require.Error(t, err)
}

func TestStoreManagerFanout(t *testing.T) {
	ctx := context.Background()
	b1 := NewMemoryBackend()
	b2 := NewMemoryBackend()
	manager := NewStoreManager([]StoreBackend{b1, b2}, 0)
	require.NoError(t, manager.Open())

	content := []byte("replicated blob")
	cidStr, err := manager.Store(ctx, bytes.NewReader(content))
	require.NoError(t, err)

	contentCid, err := utils.CalculateCid(content)
	require.NoError(t, err)
	require.Equal(t, contentCid.String(), cidStr)

	// both backends hold the blob; losing one must not lose the content.
	require.NoError(t, b1.Remove(ctx, contentCid))
	reader, err := manager.Get(ctx, contentCid)
	require.NoError(t, err)
	defer reader.Close()
	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestStoreManagerBackendFailure(t *testing.T) {
	ctx := context.Background()
	b1 := NewMemoryBackend()
	b2 := NewMemoryBackend()
	b2.Broken = true
	manager := NewStoreManager([]StoreBackend{b1, b2}, 0)

	_, err := manager.Store(ctx, bytes.NewReader([]byte("x")))
	require.Error(t, err)
	require.True(t, errors.IsOf(err, types.ErrStoreBackendFailed))
}

func TestStoreManagerNoBackends(t *testing.T) {
	manager := NewStoreManager(nil, 0)

	_, err := manager.Store(context.Background(), bytes.NewReader([]byte("x")))
	require.Error(t, err)
	require.True(t, errors.IsOf(err, types.ErrStoreBackendFailed))
}

// stallingBackend blocks every call until its context is cancelled.
type stallingBackend struct {
	MemoryBackend
}

func (b *stallingBackend) Store(ctx context.Context, reader io.Reader) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (b *stallingBackend) Get(ctx context.Context, contentCid cid.Cid) (io.ReadCloser, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestStoreManagerTimeout(t *testing.T) {
	ctx := context.Background()
	manager := NewStoreManager([]StoreBackend{&stallingBackend{}}, 50*time.Millisecond)

	start := time.Now()
	_, err := manager.Store(ctx, bytes.NewReader([]byte("x")))
	require.Error(t, err)
	require.Less(t, time.Since(start), 5*time.Second)

	contentCid, err := utils.CalculateCid([]byte("x"))
	require.NoError(t, err)
	_, err = manager.Get(ctx, contentCid)
	require.Error(t, err)
}
