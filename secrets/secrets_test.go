package secrets

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"sealvault-node/crypto"
	"sealvault-node/types"

	"cosmossdk.io/errors"
	"github.com/stretchr/testify/require"
)

func TestStaticResolverRoundTrip(t *testing.T) {
	ctx := context.Background()

	kek, err := crypto.GenerateKey()
	require.NoError(t, err)
	resolver := NewStaticKeyResolver(kek)

	handle, err := resolver.Resolve(ctx, "owner-1")
	require.NoError(t, err)

	cek, err := crypto.GenerateKey()
	require.NoError(t, err)

	blob, err := WrapUnder(handle, cek)
	require.NoError(t, err)
	require.Len(t, blob, crypto.WrappedKeySize)

	got, err := resolver.Decrypt(ctx, handle, blob)
	require.NoError(t, err)
	require.Equal(t, cek, got)
}

func TestEnvResolver(t *testing.T) {
	ctx := context.Background()
	const envVar = "SEALVAULT_TEST_WRAP_KEY"

	resolver := NewEnvKeyResolver(envVar)

	_, err := resolver.Resolve(ctx, "owner-1")
	require.Error(t, err)
	require.True(t, errors.IsOf(err, types.ErrResolveKeyFailed))

	t.Setenv(envVar, "not base64!")
	_, err = resolver.Resolve(ctx, "owner-1")
	require.Error(t, err)

	t.Setenv(envVar, base64.StdEncoding.EncodeToString([]byte("short")))
	_, err = resolver.Resolve(ctx, "owner-1")
	require.Error(t, err)

	kek, err := crypto.GenerateKey()
	require.NoError(t, err)
	t.Setenv(envVar, base64.StdEncoding.EncodeToString(kek))

	handle, err := resolver.Resolve(ctx, "owner-1")
	require.NoError(t, err)

	cek, err := crypto.GenerateKey()
	require.NoError(t, err)
	blob, err := WrapUnder(handle, cek)
	require.NoError(t, err)
	got, err := resolver.Decrypt(ctx, handle, blob)
	require.NoError(t, err)
	require.Equal(t, cek, got)
}

func TestFileResolver(t *testing.T) {
	ctx := context.Background()
	keystore := t.TempDir()

	resolver := NewFileKeyResolver(keystore)
	_, err := resolver.Resolve(ctx, "owner-1")
	require.Error(t, err)
	require.True(t, errors.IsOf(err, types.ErrResolveKeyFailed))

	kek, err := crypto.GenerateKey()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(keystore, "wrap.key"), kek, 0600))

	handle, err := resolver.Resolve(ctx, "owner-1")
	require.NoError(t, err)

	cek, err := crypto.GenerateKey()
	require.NoError(t, err)
	blob, err := WrapUnder(handle, cek)
	require.NoError(t, err)
	got, err := resolver.Decrypt(ctx, handle, blob)
	require.NoError(t, err)
	require.Equal(t, cek, got)
}

func TestDecryptWithEmptyHandle(t *testing.T) {
	resolver := NewStaticKeyResolver(nil)
	_, err := resolver.Decrypt(context.Background(), KeyHandle{Id: "static/none"}, []byte("blob"))
	require.Error(t, err)
	require.True(t, errors.IsOf(err, types.ErrResolveKeyFailed))
}
