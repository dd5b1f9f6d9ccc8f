package record

import (
	"bytes"
	"context"
	"encoding/base64"
	"sort"
	"strings"
	"sync"

	apitypes "sealvault-node/api/types"
	"sealvault-node/audit"
	"sealvault-node/auth"
	"sealvault-node/crypto"
	"sealvault-node/ledger"
	"sealvault-node/oracle"
	"sealvault-node/proofs"
	"sealvault-node/secrets"
	"sealvault-node/store"
	"sealvault-node/types"
	"sealvault-node/utils"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("record")

const (
	OpWrapKeys      = "wrapKeys"
	OpRequestAccess = "requestAccess"
	OpRevoke        = "revoke"
	OpAnchor        = "anchor"
)

/**
 * RecordSvc is the envelope-encryption and key-lifecycle engine: it owns
 * the upload/wrap/access/revoke workflow and wires the collaborator
 * capabilities together. Request handling is stateless per call; the only
 * shared mutable resources are the key cache and the record store.
 */
type RecordSvc struct {
	network string

	records      *RecordStore
	storeManager *store.StoreManager
	keyCache     *crypto.KeyCache
	verifier     auth.Verifier
	oracle       *oracle.Oracle
	rotator      *RotationWorkflow
	resolver     secrets.KeyResolver
	sink         audit.Sink

	ledgerClient ledger.Client
	ledgerHead   string
	proofs       proofs.Store
	proofsOn     bool

	sideTasks sync.WaitGroup
}

type RecordSvcOpts struct {
	Network      string
	Records      *RecordStore
	StoreManager *store.StoreManager
	KeyCache     *crypto.KeyCache
	Verifier     auth.Verifier
	Oracle       *oracle.Oracle
	Rotator      *RotationWorkflow
	Resolver     secrets.KeyResolver
	Sink         audit.Sink
	LedgerClient ledger.Client
	LedgerHead   string
	Proofs       proofs.Store
	ProofsOn     bool
}

func NewRecordSvc(opts RecordSvcOpts) *RecordSvc {
	return &RecordSvc{
		network:      opts.Network,
		records:      opts.Records,
		storeManager: opts.StoreManager,
		keyCache:     opts.KeyCache,
		verifier:     opts.Verifier,
		oracle:       opts.Oracle,
		rotator:      opts.Rotator,
		resolver:     opts.Resolver,
		sink:         opts.Sink,
		ledgerClient: opts.LedgerClient,
		ledgerHead:   opts.LedgerHead,
		proofs:       opts.Proofs,
		proofsOn:     opts.ProofsOn,
	}
}

/**
 * Upload encrypts content under a fresh CEK, stores the ciphertext, and
 * caches the CEK for the owner's later wrapKeys call. Plaintext is never
 * stored; the CEK never leaves server memory.
 */
func (rs *RecordSvc) Upload(ctx context.Context, content []byte, owner string, actorCodes []string) (apitypes.UploadResp, error) {
	if len(content) == 0 {
		return apitypes.UploadResp{}, types.Wrapf(types.ErrMissingField, "content")
	}
	if owner == "" {
		return apitypes.UploadResp{}, types.Wrapf(types.ErrMissingField, "ownerIdentity")
	}
	if _, err := types.ParseActorCodes(actorCodes); err != nil {
		return apitypes.UploadResp{}, err
	}

	cek, err := crypto.GenerateKey()
	if err != nil {
		return apitypes.UploadResp{}, err
	}
	defer crypto.Zeroize(cek)

	ciphertext, err := crypto.Encrypt(content, cek)
	if err != nil {
		return apitypes.UploadResp{}, err
	}

	cidStr, err := rs.storeManager.Store(ctx, bytes.NewReader(ciphertext))
	if err != nil {
		return apitypes.UploadResp{}, err
	}

	rec := &types.Record{
		Id:           utils.GenerateRecordId(),
		Owner:        owner,
		Status:       types.RecordStatusUploaded,
		Cid:          cidStr,
		CidHash:      crypto.ContentHash(ciphertext),
		WrappedKeys:  make(map[types.ActorCode]string),
		ActorPubKeys: make(map[types.ActorCode][]byte),
		Meta: types.RecordMeta{
			PlainSize:  uint64(len(content)),
			CipherSize: uint64(len(ciphertext)),
		},
	}

	if err := rs.records.Save(ctx, rec); err != nil {
		return apitypes.UploadResp{}, err
	}

	if err := rs.keyCache.Store(rec.Id, cek); err != nil {
		return apitypes.UploadResp{}, err
	}

	rs.emit(audit.Event{Op: "upload", RecordId: rec.Id, Outcome: "ok",
		Detail: map[string]string{"cid": cidStr}})

	return apitypes.UploadResp{
		RecordId: rec.Id,
		Cid:      cidStr,
		CidHash:  rec.CidHash,
	}, nil
}

/**
 * WrapKeys consumes the cached CEK exactly once and wraps it for each
 * granted actor's public key. The symmetric recovery blob for rotation is
 * produced in the same pass; the plaintext CEK is zeroized before return.
 */
func (rs *RecordSvc) WrapKeys(ctx context.Context, recordId string, ownerSig apitypes.SignedRequest, pubKeys map[string][]byte) (apitypes.WrapKeysResp, error) {
	if !utils.IsRecordId(recordId) {
		return apitypes.WrapKeysResp{}, types.Wrapf(types.ErrInvalidRecordId, "id=%s", recordId)
	}
	if len(pubKeys) == 0 {
		return apitypes.WrapKeysResp{}, types.Wrapf(types.ErrMissingField, "publicKeys")
	}

	grants := make(map[types.ActorCode][]byte, len(pubKeys))
	for raw, pub := range pubKeys {
		code, err := types.ParseActorCode(raw)
		if err != nil {
			return apitypes.WrapKeysResp{}, err
		}
		if len(pub) != crypto.EphPubSize {
			return apitypes.WrapKeysResp{}, types.Wrapf(types.ErrWrapFailed,
				"public key for actor %s must be %d bytes, got %d", code, crypto.EphPubSize, len(pub))
		}
		grants[code] = pub
	}

	unlock := rs.records.LockRecord(recordId)
	defer unlock()

	rec, err := rs.records.Get(ctx, recordId)
	if err != nil {
		return apitypes.WrapKeysResp{}, err
	}
	if rec.Status == types.RecordStatusRevoked {
		return apitypes.WrapKeysResp{}, types.Wrapf(types.ErrRecordRevoked, "record=%s", recordId)
	}

	if err := rs.verifyOwner(rec, OpWrapKeys, ownerSig, map[string]string{
		"actors": joinActorCodes(grants),
	}); err != nil {
		return apitypes.WrapKeysResp{}, err
	}

	// the recovery wrapping key is resolved before the CEK leaves the
	// cache, so a resolver outage cannot destroy the only copy.
	handle, err := rs.resolver.Resolve(ctx, rec.Owner)
	if err != nil {
		return apitypes.WrapKeysResp{}, err
	}

	cek, err := rs.keyCache.Take(recordId)
	if err != nil {
		return apitypes.WrapKeysResp{}, err
	}
	defer crypto.Zeroize(cek)

	// until the update is persisted the CEK is returned to the cache on
	// failure; the owner can retry the grant round.
	restore := func() {
		if err := rs.keyCache.Store(recordId, cek); err != nil {
			log.Errorf("content key for record %s lost after failed grant: %v", recordId, err)
		}
	}

	for code, pub := range grants {
		blob, err := crypto.Wrap(cek, pub)
		if err != nil {
			restore()
			return apitypes.WrapKeysResp{}, err
		}
		rec.WrappedKeys[code] = base64.StdEncoding.EncodeToString(blob)
		rec.ActorPubKeys[code] = pub
	}

	recovery, err := secrets.WrapUnder(handle, cek)
	if err != nil {
		restore()
		return apitypes.WrapKeysResp{}, err
	}
	rec.RecoveryKey = base64.StdEncoding.EncodeToString(recovery)

	if err := rs.records.Update(ctx, rec); err != nil {
		restore()
		return apitypes.WrapKeysResp{}, err
	}

	rs.propagate(rec)
	rs.emit(audit.Event{Op: OpWrapKeys, RecordId: recordId, Outcome: "ok",
		Detail: map[string]string{"actors": joinActorCodes(grants)}})

	wrapped := make(map[types.ActorCode]string, len(rec.WrappedKeys))
	for code, blob := range rec.WrappedKeys {
		wrapped[code] = blob
	}
	return apitypes.WrapKeysResp{WrappedKeys: wrapped}, nil
}

/**
 * RequestAccess verifies the caller, asks the permission oracle, and on a
 * grant releases the actor's wrapped key. Decryption happens client-side.
 */
func (rs *RecordSvc) RequestAccess(ctx context.Context, recordId string, actorCode string, actorSig apitypes.SignedRequest) (apitypes.AccessResp, error) {
	if !utils.IsRecordId(recordId) {
		return apitypes.AccessResp{}, types.Wrapf(types.ErrInvalidRecordId, "id=%s", recordId)
	}
	code, err := types.ParseActorCode(actorCode)
	if err != nil {
		return apitypes.AccessResp{}, err
	}

	rec, err := rs.records.Get(ctx, recordId)
	if err != nil {
		return apitypes.AccessResp{}, err
	}

	payload, err := auth.BuildPayload(OpRequestAccess, recordId, map[string]string{
		"actorCode": code.String(),
	}, actorSig.Timestamp, rs.network)
	if err != nil {
		return apitypes.AccessResp{}, err
	}
	if err := rs.verifier.Verify(actorSig.Identity, payload, actorSig.Signature); err != nil {
		rs.emit(audit.Event{Op: OpRequestAccess, RecordId: recordId, Actor: code, Outcome: "authentication-failed"})
		return apitypes.AccessResp{}, err
	}

	decision := rs.oracle.Decide(ctx, rec, code)
	if !decision.Granted {
		rs.emit(audit.Event{Op: OpRequestAccess, RecordId: recordId, Actor: code, Outcome: "denied",
			Detail: map[string]string{"reason": decision.Reason}})
		if decision.Reason == oracle.ReasonNoKeyIssued {
			return apitypes.AccessResp{}, types.Wrapf(types.ErrNoKeyIssued, "record=%s actor=%s", recordId, code)
		}
		return apitypes.AccessResp{}, types.Wrapf(types.ErrAuthorizationDenied, "%s", decision.Reason)
	}

	rs.emit(audit.Event{Op: OpRequestAccess, RecordId: recordId, Actor: code, Outcome: "granted",
		Detail: map[string]string{"source": decision.Source}})

	return apitypes.AccessResp{
		Cid:        rec.Cid,
		WrappedKey: rec.WrappedKeys[code],
		Source:     decision.Source,
	}, nil
}

/**
 * Revoke removes the actor's wrapped key, persists that removal, then
 * attempts a key rotation for the remaining actors. The removal is never
 * rolled back: rotation failure means the existing ciphertext stays under
 * the old key until a future successful rotation, and the caller is told
 * so through RotationStatus.
 */
func (rs *RecordSvc) Revoke(ctx context.Context, recordId string, actorCode string, ownerSig apitypes.SignedRequest) (apitypes.RevokeResp, error) {
	if !utils.IsRecordId(recordId) {
		return apitypes.RevokeResp{}, types.Wrapf(types.ErrInvalidRecordId, "id=%s", recordId)
	}
	code, err := types.ParseActorCode(actorCode)
	if err != nil {
		return apitypes.RevokeResp{}, err
	}

	unlock := rs.records.LockRecord(recordId)
	defer unlock()

	rec, err := rs.records.Get(ctx, recordId)
	if err != nil {
		return apitypes.RevokeResp{}, err
	}

	if err := rs.verifyOwner(rec, OpRevoke, ownerSig, map[string]string{
		"actorCode": code.String(),
	}); err != nil {
		return apitypes.RevokeResp{}, err
	}

	if !rec.HasActor(code) {
		return apitypes.RevokeResp{}, types.Wrapf(types.ErrNoKeyIssued, "record=%s actor=%s", recordId, code)
	}

	delete(rec.WrappedKeys, code)
	delete(rec.ActorPubKeys, code)

	oldCid := rec.Cid
	lastActorGone := len(rec.WrappedKeys) == 0
	if lastActorGone && rec.Status.CanTransition(types.RecordStatusRevoked) {
		rec.Status = types.RecordStatusRevoked
	}

	// the removal is applied and persisted before rotation is attempted;
	// a revoked actor cannot decrypt new content regardless of what
	// happens next.
	if err := rs.records.Update(ctx, rec); err != nil {
		return apitypes.RevokeResp{}, err
	}

	resp := apitypes.RevokeResp{OldCid: oldCid}

	if lastActorGone {
		resp.RotationStatus = RotationStatusSkipped
		rs.emit(audit.Event{Op: OpRevoke, RecordId: recordId, Actor: code, Outcome: "revoked-terminal"})
		rs.propagate(rec)
		return resp, nil
	}

	rotation := rs.rotator.Run(ctx, rec)
	resp.RotationStatus = rotation.Status
	resp.NewCid = rotation.NewCid
	resp.ManualFollowup = rotation.ManualFollowup

	rs.propagate(rec)
	rs.emit(audit.Event{Op: OpRevoke, RecordId: recordId, Actor: code, Outcome: "ok",
		Detail: map[string]string{"rotation": rotation.Status, "step": rotation.Step.String()}})

	return resp, nil
}

/**
 * Anchor ties the record to an on-chain transaction. The status reaches
 * anchored only once the chain oracle confirms the tx; otherwise it rests
 * at pending_anchor.
 */
func (rs *RecordSvc) Anchor(ctx context.Context, recordId string, txHash string, ownerSig apitypes.SignedRequest) (apitypes.AnchorResp, error) {
	if !utils.IsRecordId(recordId) {
		return apitypes.AnchorResp{}, types.Wrapf(types.ErrInvalidRecordId, "id=%s", recordId)
	}
	if txHash == "" {
		return apitypes.AnchorResp{}, types.Wrapf(types.ErrMissingField, "txHash")
	}

	unlock := rs.records.LockRecord(recordId)
	defer unlock()

	rec, err := rs.records.Get(ctx, recordId)
	if err != nil {
		return apitypes.AnchorResp{}, err
	}

	if err := rs.verifyOwner(rec, OpAnchor, ownerSig, map[string]string{
		"txHash": txHash,
	}); err != nil {
		return apitypes.AnchorResp{}, err
	}

	if !rec.Status.CanTransition(types.RecordStatusPendingAnchor) {
		return apitypes.AnchorResp{}, types.Wrapf(types.ErrInvalidTransition, "%s -> %s", rec.Status, types.RecordStatusPendingAnchor)
	}

	rec.AnchorTx = txHash
	rec.Status = types.RecordStatusPendingAnchor

	confirmed, err := rs.oracle.VerifyAnchor(ctx, txHash)
	if err != nil {
		log.Warnf("anchor confirmation for %s: %v", recordId, err)
	} else if confirmed {
		rec.Status = types.RecordStatusAnchored
	}

	if err := rs.records.Update(ctx, rec); err != nil {
		return apitypes.AnchorResp{}, err
	}

	rs.emit(audit.Event{Op: OpAnchor, RecordId: recordId, Outcome: string(rec.Status),
		Detail: map[string]string{"tx": txHash}})

	return apitypes.AnchorResp{Status: rec.Status, AnchorTx: txHash}, nil
}

/**
 * Metadata returns the safe view: identifiers, status, sizes, snapshot
 * refs. Never raw or wrapped key material.
 */
func (rs *RecordSvc) Metadata(ctx context.Context, recordId string) (types.RecordView, error) {
	if !utils.IsRecordId(recordId) {
		return types.RecordView{}, types.Wrapf(types.ErrInvalidRecordId, "id=%s", recordId)
	}
	rec, err := rs.records.Get(ctx, recordId)
	if err != nil {
		return types.RecordView{}, err
	}
	return rec.SafeView(), nil
}

/**
 * Flush waits for outstanding fire-and-forget side tasks. Shutdown and
 * test hook; request paths never block on it.
 */
func (rs *RecordSvc) Flush() {
	rs.sideTasks.Wait()
}

// verifyOwner rebuilds the canonical payload and checks both the
// signature and that the signer is the record owner. A valid signature
// from a non-owner is an authorization failure, not an authentication
// one.
func (rs *RecordSvc) verifyOwner(rec *types.Record, op string, sig apitypes.SignedRequest, extra map[string]string) error {
	payload, err := auth.BuildPayload(op, rec.Id, extra, sig.Timestamp, rs.network)
	if err != nil {
		return err
	}
	if err := rs.verifier.Verify(sig.Identity, payload, sig.Signature); err != nil {
		return err
	}
	if sig.Identity != rec.Owner {
		return types.Wrapf(types.ErrAuthorizationDenied, "signer %s is not the record owner", sig.Identity)
	}
	return nil
}

// propagate pushes the record's current authorization view to the
// fast-path ledger and refreshes the privacy-proof commitment,
// fire-and-forget. Outcomes land on the audit trail only.
func (rs *RecordSvc) propagate(rec *types.Record) {
	permitted := make(map[types.ActorCode]string, len(rec.WrappedKeys))
	for code, blob := range rec.WrappedKeys {
		permitted[code] = blob
	}
	actors := rec.Actors()
	recordId := rec.Id

	rs.sideTasks.Add(1)
	go func() {
		defer rs.sideTasks.Done()

		var effect types.SideEffect
		if rs.ledgerClient == nil {
			effect = types.SideEffectSkip("fast-path", "ledger disabled")
		} else {
			ref, err := rs.ledgerClient.Propose(context.Background(), rs.ledgerHead, types.SnapshotUpdate{
				RecordId:  recordId,
				Permitted: permitted,
			})
			if err != nil {
				effect = types.SideEffectFail("fast-path", err)
			} else {
				effect = types.SideEffectDone("fast-path")
				rs.recordSnapshot(recordId, ref)
			}
		}
		rs.emit(audit.SideEffectOutcome("propagate", recordId, effect))

		if !rs.proofsOn || rs.proofs == nil {
			rs.emit(audit.SideEffectOutcome("propagate", recordId, types.SideEffectSkip("proof-commit", "proofs disabled")))
			return
		}
		if _, err := rs.proofs.Commit(context.Background(), recordId, actors, nil); err != nil {
			rs.emit(audit.SideEffectOutcome("propagate", recordId, types.SideEffectFail("proof-commit", err)))
			return
		}
		rs.emit(audit.SideEffectOutcome("propagate", recordId, types.SideEffectDone("proof-commit")))
	}()
}

// recordSnapshot appends an accepted snapshot ref to the record,
// best-effort under the per-record lock.
func (rs *RecordSvc) recordSnapshot(recordId string, ref types.SnapshotRef) {
	unlock := rs.records.LockRecord(recordId)
	defer unlock()

	ctx := context.Background()
	rec, err := rs.records.Get(ctx, recordId)
	if err != nil {
		log.Warnf("snapshot ref for %s not recorded: %v", recordId, err)
		return
	}
	rec.Snapshots = append(rec.Snapshots, ref)
	if err := rs.records.Update(ctx, rec); err != nil {
		log.Warnf("snapshot ref for %s not recorded: %v", recordId, err)
	}
}

func (rs *RecordSvc) emit(event audit.Event) {
	if rs.sink == nil {
		return
	}
	rs.sink.Emit(event)
}

func joinActorCodes(grants map[types.ActorCode][]byte) string {
	codes := make([]string, 0, len(grants))
	for code := range grants {
		codes = append(codes, code.String())
	}
	sort.Strings(codes)
	return strings.Join(codes, ",")
}
