package ledger

import (
	"context"
	"sync"

	"sealvault-node/types"
	"sealvault-node/utils"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("ledger")

/**
 * Client talks to the off-chain fast-path ledger. Propose pushes a
 * per-record authorization snapshot; Lookup serves the low-latency read
 * side the permission oracle consults first. The ledger is advisory only:
 * a stale or unavailable snapshot never grants by itself.
 */
type Client interface {
	Propose(ctx context.Context, headId string, update types.SnapshotUpdate) (types.SnapshotRef, error)
	Lookup(ctx context.Context, recordId string) (*Snapshot, bool)
}

/**
 * Snapshot is the fast-path view of one record's authorization state.
 */
type Snapshot struct {
	Ref       types.SnapshotRef
	Permitted map[types.ActorCode]string
}

func (s *Snapshot) Permits(code types.ActorCode) bool {
	if s == nil {
		return false
	}
	_, ok := s.Permitted[code]
	return ok
}

// ----------------
// in-memory head
// ----------------

/**
 * MemoryLedger keeps snapshot heads in process. It stands in for the real
 * fast-path network in standalone mode and in tests; the propose/epoch
 * contract matches what a remote head would answer.
 */
type MemoryLedger struct {
	lk     sync.Mutex
	headId string
	epoch  uint64
	byId   map[string]*Snapshot
}

func NewMemoryLedger(headId string) *MemoryLedger {
	return &MemoryLedger{
		headId: headId,
		byId:   make(map[string]*Snapshot),
	}
}

func (l *MemoryLedger) Propose(ctx context.Context, headId string, update types.SnapshotUpdate) (types.SnapshotRef, error) {
	l.lk.Lock()
	defer l.lk.Unlock()

	if headId != l.headId {
		return types.SnapshotRef{}, types.Wrapf(types.ErrUnknownHead, "head=%s", headId)
	}
	if update.RecordId == "" {
		return types.SnapshotRef{}, types.Wrapf(types.ErrProposeFailed, "empty record id")
	}

	l.epoch++
	ref := types.SnapshotRef{
		HeadId:     l.headId,
		SnapshotId: utils.GenerateSnapshotId(),
		Epoch:      l.epoch,
		Status:     types.SnapshotStatusAccepted,
	}

	permitted := make(map[types.ActorCode]string, len(update.Permitted))
	for code, blob := range update.Permitted {
		permitted[code] = blob
	}
	l.byId[update.RecordId] = &Snapshot{Ref: ref, Permitted: permitted}

	log.Debugf("accepted snapshot %s epoch=%d record=%s", ref.SnapshotId, ref.Epoch, update.RecordId)
	return ref, nil
}

func (l *MemoryLedger) Lookup(ctx context.Context, recordId string) (*Snapshot, bool) {
	l.lk.Lock()
	defer l.lk.Unlock()

	snap, ok := l.byId[recordId]
	return snap, ok
}
