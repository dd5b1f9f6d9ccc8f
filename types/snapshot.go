package types

// ----------------
// fast-path snapshot state
// ----------------

type SnapshotStatus string

const (
	SnapshotStatusAccepted SnapshotStatus = "accepted"
	SnapshotStatusPending  SnapshotStatus = "pending"
	SnapshotStatusRejected SnapshotStatus = "rejected"
)

/**
 * SnapshotRef points at one accepted off-chain snapshot covering a record.
 * Snapshots are a low-latency cache of authorization state, never an
 * authority of record.
 */
type SnapshotRef struct {
	HeadId     string
	SnapshotId string
	Epoch      uint64
	Status     SnapshotStatus
}

/**
 * SnapshotUpdate is the per-record view proposed to the fast-path ledger
 * after a grant or revocation.
 */
type SnapshotUpdate struct {
	RecordId  string
	Permitted map[ActorCode]string
}

// ----------------
// best-effort side tasks
// ----------------

type SideEffectState string

const (
	SideEffectOk      SideEffectState = "ok"
	SideEffectSkipped SideEffectState = "skipped"
	SideEffectFailed  SideEffectState = "failed"
)

/**
 * SideEffect is the tri-state outcome of a fire-and-forget task such as
 * fast-path propagation or a privacy-proof commitment. Surfaced for
 * observability, never gating the primary operation.
 */
type SideEffect struct {
	Name   string
	State  SideEffectState
	Reason string
}

func SideEffectDone(name string) SideEffect {
	return SideEffect{Name: name, State: SideEffectOk}
}

func SideEffectSkip(name string, reason string) SideEffect {
	return SideEffect{Name: name, State: SideEffectSkipped, Reason: reason}
}

func SideEffectFail(name string, err error) SideEffect {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return SideEffect{Name: name, State: SideEffectFailed, Reason: reason}
}
