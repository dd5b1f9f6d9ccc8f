package secrets

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"

	"sealvault-node/crypto"
	"sealvault-node/types"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("secrets")

/**
 * KeyHandle is an opaque reference to a resolved wrapping key. Callers
 * never see raw key bytes; they hand the handle back to Decrypt.
 */
type KeyHandle struct {
	Id  string
	key []byte
}

/**
 * KeyResolver is the key-resolution capability consumed by the rotation
 * workflow: production deployments back it with a secret manager, other
 * environments with a local fallback key. The choice is made once at
 * startup and never branches inside the workflow.
 */
type KeyResolver interface {
	Resolve(ctx context.Context, scope string) (KeyHandle, error)
	Decrypt(ctx context.Context, handle KeyHandle, blob []byte) ([]byte, error)
}

// ----------------
// env-backed resolver
// ----------------

/**
 * EnvKeyResolver reads the base64 wrapping key from an environment
 * variable populated by the deployment's secret manager.
 */
type EnvKeyResolver struct {
	envVar string
}

func NewEnvKeyResolver(envVar string) *EnvKeyResolver {
	return &EnvKeyResolver{envVar: envVar}
}

func (r *EnvKeyResolver) Resolve(ctx context.Context, scope string) (KeyHandle, error) {
	raw := os.Getenv(r.envVar)
	if raw == "" {
		return KeyHandle{}, types.Wrapf(types.ErrResolveKeyFailed, "%s not set", r.envVar)
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return KeyHandle{}, types.Wrap(types.ErrResolveKeyFailed, err)
	}
	if len(key) != crypto.KeySize {
		return KeyHandle{}, types.Wrapf(types.ErrResolveKeyFailed, "wrapping key must be %d bytes, got %d", crypto.KeySize, len(key))
	}
	return KeyHandle{Id: r.envVar + "/" + scope, key: key}, nil
}

func (r *EnvKeyResolver) Decrypt(ctx context.Context, handle KeyHandle, blob []byte) ([]byte, error) {
	return decryptWithHandle(handle, blob)
}

// ----------------
// local fallback resolver
// ----------------

/**
 * FileKeyResolver reads the wrapping key generated into the repo keystore
 * at init time. Non-production fallback.
 */
type FileKeyResolver struct {
	path string
}

func NewFileKeyResolver(keystorePath string) *FileKeyResolver {
	return &FileKeyResolver{path: filepath.Join(keystorePath, "wrap.key")}
}

func (r *FileKeyResolver) Resolve(ctx context.Context, scope string) (KeyHandle, error) {
	key, err := os.ReadFile(r.path)
	if err != nil {
		return KeyHandle{}, types.Wrap(types.ErrResolveKeyFailed, err)
	}
	if len(key) != crypto.KeySize {
		return KeyHandle{}, types.Wrapf(types.ErrResolveKeyFailed, "wrapping key must be %d bytes, got %d", crypto.KeySize, len(key))
	}
	log.Debugf("resolved local wrapping key for scope %s", scope)
	return KeyHandle{Id: "file/" + scope, key: key}, nil
}

func (r *FileKeyResolver) Decrypt(ctx context.Context, handle KeyHandle, blob []byte) ([]byte, error) {
	return decryptWithHandle(handle, blob)
}

// ----------------
// static resolver (tests)
// ----------------

type StaticKeyResolver struct {
	key []byte
}

func NewStaticKeyResolver(key []byte) *StaticKeyResolver {
	return &StaticKeyResolver{key: key}
}

func (r *StaticKeyResolver) Resolve(ctx context.Context, scope string) (KeyHandle, error) {
	return KeyHandle{Id: "static/" + scope, key: r.key}, nil
}

func (r *StaticKeyResolver) Decrypt(ctx context.Context, handle KeyHandle, blob []byte) ([]byte, error) {
	return decryptWithHandle(handle, blob)
}

// WrapUnder seals a CEK under the handle's key, producing the 60-byte
// symmetric recovery blob persisted on a record.
func WrapUnder(handle KeyHandle, cek []byte) ([]byte, error) {
	return crypto.WrapSymmetric(cek, handle.key)
}

func decryptWithHandle(handle KeyHandle, blob []byte) ([]byte, error) {
	if len(handle.key) != crypto.KeySize {
		return nil, types.Wrapf(types.ErrResolveKeyFailed, "handle %s carries no key", handle.Id)
	}
	return crypto.UnwrapSymmetric(blob, handle.key)
}
