package proofs

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"

	"sealvault-node/types"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("proofs")

/**
 * Commitment is a salted digest over a record's permitted actor set,
 * proving an authorization fact without revealing the set itself.
 */
type Commitment struct {
	RecordId string
	Digest   string
}

/**
 * Store is the privacy-proof capability. Commit records a commitment for
 * the current actor set; CheckMembership answers whether an actor is
 * covered by the latest commitment.
 */
type Store interface {
	Commit(ctx context.Context, recordId string, actors []types.ActorCode, context_ []byte) (Commitment, error)
	CheckMembership(ctx context.Context, recordId string, actor types.ActorCode) (bool, error)
}

// ----------------
// hash-commitment store
// ----------------

type entry struct {
	salt    []byte
	actors  map[types.ActorCode]struct{}
	context []byte
	digest  string
}

/**
 * HashStore keeps salted hash commitments in process. The digest alone is
 * what an external verifier would see; the salt and set stay private to
 * the committing node, which is what lets it answer membership checks.
 */
type HashStore struct {
	lk      sync.Mutex
	entries map[string]*entry
}

func NewHashStore() *HashStore {
	return &HashStore{entries: make(map[string]*entry)}
}

func (s *HashStore) Commit(ctx context.Context, recordId string, actors []types.ActorCode, context_ []byte) (Commitment, error) {
	if recordId == "" {
		return Commitment{}, types.Wrapf(types.ErrCommitFailed, "empty record id")
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return Commitment{}, types.Wrap(types.ErrCommitFailed, err)
	}

	set := make(map[types.ActorCode]struct{}, len(actors))
	codes := make([]string, 0, len(actors))
	for _, a := range actors {
		set[a] = struct{}{}
		codes = append(codes, a.String())
	}
	sort.Strings(codes)

	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(recordId))
	for _, c := range codes {
		h.Write([]byte(c))
	}
	h.Write(context_)
	digest := hex.EncodeToString(h.Sum(nil))

	s.lk.Lock()
	s.entries[recordId] = &entry{salt: salt, actors: set, context: context_, digest: digest}
	s.lk.Unlock()

	log.Debugf("committed actor set for record %s: %s", recordId, digest)
	return Commitment{RecordId: recordId, Digest: digest}, nil
}

func (s *HashStore) CheckMembership(ctx context.Context, recordId string, actor types.ActorCode) (bool, error) {
	s.lk.Lock()
	e, ok := s.entries[recordId]
	s.lk.Unlock()

	if !ok {
		return false, types.Wrapf(types.ErrNoProofPresent, "record=%s", recordId)
	}
	_, member := e.actors[actor]
	return member, nil
}
