package types

// ----------------
// record state
// ----------------

type RecordStatus string

const (
	RecordStatusDraft         RecordStatus = "draft"
	RecordStatusUploaded      RecordStatus = "uploaded"
	RecordStatusPendingAnchor RecordStatus = "pending_anchor"
	RecordStatusAnchored      RecordStatus = "anchored"
	RecordStatusRevoked       RecordStatus = "revoked"
)

// statuses are ordered; transitions are monotonic and no state is re-entered.
var recordStatusRank = map[RecordStatus]int{
	RecordStatusDraft:         0,
	RecordStatusUploaded:      1,
	RecordStatusPendingAnchor: 2,
	RecordStatusAnchored:      3,
	RecordStatusRevoked:       4,
}

func (s RecordStatus) Valid() bool {
	_, ok := recordStatusRank[s]
	return ok
}

func (s RecordStatus) String() string {
	return string(s)
}

func (s RecordStatus) Terminal() bool {
	return s == RecordStatusAnchored || s == RecordStatusRevoked
}

/**
 * CanTransition reports whether next is a legal forward move. Revoked is
 * reachable from every other state, anchored included: losing the last
 * wrapped key must revoke the record no matter how far it got. Everything
 * else walks strictly forward one rank at a time.
 */
func (s RecordStatus) CanTransition(next RecordStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if next == RecordStatusRevoked {
		return s != RecordStatusRevoked
	}
	return recordStatusRank[next] == recordStatusRank[s]+1
}

// ----------------
// record model
// ----------------

/**
 * RecordMeta is the free-form, never-secret metadata kept on a record.
 */
type RecordMeta struct {
	OriginalName string
	PlainSize    uint64
	CipherSize   uint64
	CreatedAt    int64
	UpdatedAt    int64
}

/**
 * Record is the persisted view of one shared encrypted document. The
 * content encryption key itself is never part of the record; only
 * per-actor wrapped blobs and the symmetric recovery blob appear here.
 */
type Record struct {
	Id     string
	Owner  string
	Status RecordStatus

	Cid     string
	CidHash string

	// base64 wrapped-key blob per actor code. Empty map means revoked.
	WrappedKeys map[ActorCode]string

	// recipient public keys recorded at wrap time, so rotation can
	// re-wrap for remaining actors without a fresh grant round.
	ActorPubKeys map[ActorCode][]byte

	// base64 of the CEK wrapped under the node wrapping key, used only
	// by the rotation workflow. 60 bytes decoded.
	RecoveryKey string

	Meta      RecordMeta
	AnchorTx  string
	Snapshots []SnapshotRef

	// optimistic concurrency counter, bumped on every store update.
	Version uint64
}

func (r *Record) HasActor(code ActorCode) bool {
	_, ok := r.WrappedKeys[code]
	return ok
}

func (r *Record) Actors() []ActorCode {
	actors := make([]ActorCode, 0, len(r.WrappedKeys))
	for code := range r.WrappedKeys {
		actors = append(actors, code)
	}
	return actors
}

/**
 * SafeView strips everything a caller is not entitled to see. Wrapped keys
 * are released through requestAccess only, never through metadata.
 */
type RecordView struct {
	Id        string
	Owner     string
	Status    RecordStatus
	Cid       string
	CidHash   string
	Actors    []ActorCode
	Meta      RecordMeta
	AnchorTx  string
	Snapshots []SnapshotRef
}

func (r *Record) SafeView() RecordView {
	return RecordView{
		Id:        r.Id,
		Owner:     r.Owner,
		Status:    r.Status,
		Cid:       r.Cid,
		CidHash:   r.CidHash,
		Actors:    r.Actors(),
		Meta:      r.Meta,
		AnchorTx:  r.AnchorTx,
		Snapshots: r.Snapshots,
	}
}
