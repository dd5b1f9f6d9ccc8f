package crypto

import (
	"context"
	"sync"
	"time"

	"sealvault-node/types"
)

/**
 * KeyCache is the single-owner temporary store for a content key between
 * generation and first wrapping. At most one outstanding key per record;
 * Take atomically removes the entry so a key can be consumed exactly once.
 *
 * Entries left behind by abandoned uploads are swept after the TTL so raw
 * key material is never retained indefinitely.
 */
type KeyCache struct {
	lk      sync.Mutex
	entries map[string]*cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	key     []byte
	created time.Time
}

const DefaultKeyTTL = 15 * time.Minute

func NewKeyCache(ttl time.Duration) *KeyCache {
	if ttl <= 0 {
		ttl = DefaultKeyTTL
	}
	return &KeyCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
	}
}

/**
 * Store caches a copy of key for recordId. Fails with ErrKeyCacheConflict
 * if an entry already exists, preserving the at-most-one invariant.
 */
func (c *KeyCache) Store(recordId string, key []byte) error {
	c.lk.Lock()
	defer c.lk.Unlock()

	if _, exists := c.entries[recordId]; exists {
		return types.Wrapf(types.ErrKeyCacheConflict, "record=%s", recordId)
	}

	cp := make([]byte, len(key))
	copy(cp, key)
	c.entries[recordId] = &cacheEntry{key: cp, created: time.Now()}
	return nil
}

/**
 * Take removes and returns the cached key. A second Take for the same
 * record fails with ErrKeyCacheMiss. The cache keeps no copy after Take;
 * the caller owns the returned buffer and must Zeroize it when done.
 */
func (c *KeyCache) Take(recordId string) ([]byte, error) {
	c.lk.Lock()
	defer c.lk.Unlock()

	entry, exists := c.entries[recordId]
	if !exists {
		return nil, types.Wrapf(types.ErrKeyCacheMiss, "record=%s", recordId)
	}
	delete(c.entries, recordId)

	key := entry.key
	entry.key = nil
	return key, nil
}

/**
 * Discard drops and zeroes the cached key for an abandoned upload.
 */
func (c *KeyCache) Discard(recordId string) {
	c.lk.Lock()
	defer c.lk.Unlock()
	c.drop(recordId)
}

func (c *KeyCache) Has(recordId string) bool {
	c.lk.Lock()
	defer c.lk.Unlock()
	_, exists := c.entries[recordId]
	return exists
}

/**
 * Run sweeps expired entries until the context is done.
 */
func (c *KeyCache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.ttl / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *KeyCache) sweep() {
	c.lk.Lock()
	defer c.lk.Unlock()

	cutoff := time.Now().Add(-c.ttl)
	for recordId, entry := range c.entries {
		if entry.created.Before(cutoff) {
			log.Warnf("sweeping abandoned content key for record %s", recordId)
			c.drop(recordId)
		}
	}
}

// caller must hold c.lk.
func (c *KeyCache) drop(recordId string) {
	if entry, exists := c.entries[recordId]; exists {
		Zeroize(entry.key)
		entry.key = nil
		delete(c.entries, recordId)
	}
}
