package store

import (
	"bytes"
	"context"
	"io"
	"time"

	"sealvault-node/types"

	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("store")

/**
 * StoreBackend is one content-addressable blob store. Pinning and
 * retrieval mechanics live behind this interface; the core only puts
 * ciphertext and gets it back by cid.
 */
type StoreBackend interface {
	Id() string
	Type() string
	Open() error
	Close() error
	Store(ctx context.Context, reader io.Reader) (string, error)
	Get(ctx context.Context, contentCid cid.Cid) (io.ReadCloser, error)
	Remove(ctx context.Context, contentCid cid.Cid) error
}

type StoreManager struct {
	backends []StoreBackend
	timeout  time.Duration
}

func NewStoreManager(initial []StoreBackend, timeout time.Duration) *StoreManager {
	return &StoreManager{
		backends: initial,
		timeout:  timeout,
	}
}

// opCtx bounds one blob-store call; nothing in the core retries, so every
// backend call must come back within the configured window.
func (sm *StoreManager) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if sm.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, sm.timeout)
}

func (sm *StoreManager) AddBackend(backend StoreBackend) {
	sm.backends = append(sm.backends, backend)
}

func (sm *StoreManager) Open() error {
	for _, back := range sm.backends {
		if err := back.Open(); err != nil {
			log.Errorf("%s open error: %v", back.Id(), err)
			return types.Wrap(types.ErrOpenBackendFailed, err)
		}
	}
	return nil
}

func (sm *StoreManager) Close() error {
	for _, back := range sm.backends {
		if err := back.Close(); err != nil {
			log.Errorf("%s close error: %v", back.Id(), err)
			return err
		}
	}
	return nil
}

/**
 * Store writes the blob to every backend and returns the cid reported by
 * the first. Backends must agree on content addressing.
 */
func (sm *StoreManager) Store(ctx context.Context, reader io.Reader) (string, error) {
	if len(sm.backends) == 0 {
		return "", types.Wrapf(types.ErrStoreBackendFailed, "no backend configured")
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return "", types.Wrap(types.ErrStoreBackendFailed, err)
	}

	ctx, cancel := sm.opCtx(ctx)
	defer cancel()

	var first string
	for i, back := range sm.backends {
		stored, err := back.Store(ctx, bytes.NewReader(content))
		if err != nil {
			return "", types.Wrapf(types.ErrStoreBackendFailed, "%s: %v", back.Id(), err)
		}
		if i == 0 {
			first = stored
		} else if stored != first {
			return "", types.Wrapf(types.ErrContentMismatch, "backend %s returned %s, expected %s", back.Id(), stored, first)
		}
	}
	return first, nil
}

/**
 * Get tries each backend in order; the first hit wins.
 */
func (sm *StoreManager) Get(ctx context.Context, contentCid cid.Cid) (io.ReadCloser, error) {
	ctx, cancel := sm.opCtx(ctx)
	defer cancel()

	var lastErr error
	for _, back := range sm.backends {
		reader, err := back.Get(ctx, contentCid)
		if err == nil {
			return reader, nil
		}
		log.Warnf("%s get %v: %v", back.Id(), contentCid, err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = types.Wrapf(types.ErrStoreBackendFailed, "no backend configured")
	}
	return nil, types.Wrap(types.ErrStoreBackendFailed, lastErr)
}

func (sm *StoreManager) Remove(ctx context.Context, contentCid cid.Cid) error {
	for _, back := range sm.backends {
		if err := back.Remove(ctx, contentCid); err != nil {
			return types.Wrapf(types.ErrStoreBackendFailed, "%s: %v", back.Id(), err)
		}
	}
	return nil
}
