package store

import (
	"bytes"
	"context"
	"io"
	"sync"

	"sealvault-node/utils"

	"github.com/ipfs/go-cid"
	"golang.org/x/xerrors"
)

/**
 * MemoryBackend is the in-process blob store used in standalone mode and
 * in tests. Content addressing matches the ipfs backend (CIDv1, raw,
 * sha2-256) so cids are interchangeable across backends.
 */
type MemoryBackend struct {
	lk    sync.Mutex
	blobs map[string][]byte

	// when set, Store and Get fail; used to exercise failure paths.
	Broken bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		blobs: make(map[string][]byte),
	}
}

func (b *MemoryBackend) Id() string {
	return "memory"
}

func (b *MemoryBackend) Type() string {
	return "memory"
}

func (b *MemoryBackend) Open() error {
	return nil
}

func (b *MemoryBackend) Close() error {
	return nil
}

func (b *MemoryBackend) Store(ctx context.Context, reader io.Reader) (string, error) {
	if b.Broken {
		return "", xerrors.Errorf("memory backend is broken")
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}

	contentCid, err := utils.CalculateCid(content)
	if err != nil {
		return "", err
	}

	b.lk.Lock()
	b.blobs[contentCid.String()] = content
	b.lk.Unlock()

	return contentCid.String(), nil
}

func (b *MemoryBackend) Get(ctx context.Context, contentCid cid.Cid) (io.ReadCloser, error) {
	if b.Broken {
		return nil, xerrors.Errorf("memory backend is broken")
	}

	b.lk.Lock()
	content, ok := b.blobs[contentCid.String()]
	b.lk.Unlock()

	if !ok {
		return nil, xerrors.Errorf("blob %v not found", contentCid)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (b *MemoryBackend) Remove(ctx context.Context, contentCid cid.Cid) error {
	b.lk.Lock()
	delete(b.blobs, contentCid.String())
	b.lk.Unlock()
	return nil
}
