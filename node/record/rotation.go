package record

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"

	"sealvault-node/audit"
	"sealvault-node/crypto"
	"sealvault-node/secrets"
	"sealvault-node/store"
	"sealvault-node/types"

	"github.com/ipfs/go-cid"
)

// ----------------
// rotation state
// ----------------

type RotationStep uint64

const (
	RotationIdle RotationStep = iota
	RotationDownloading
	RotationUnwrapping
	RotationDecrypting
	RotationRegenerating
	RotationReencrypting
	RotationReuploading
	RotationPersisting
	RotationRewrapping
	RotationComplete
	RotationFailed
)

var rotationStepString = map[RotationStep]string{
	RotationIdle:         "idle",
	RotationDownloading:  "downloading",
	RotationUnwrapping:   "unwrapping",
	RotationDecrypting:   "decrypting",
	RotationRegenerating: "regenerating",
	RotationReencrypting: "reencrypting",
	RotationReuploading:  "reuploading",
	RotationPersisting:   "persisting",
	RotationRewrapping:   "rewrapping",
	RotationComplete:     "complete",
	RotationFailed:       "failed",
}

func (s RotationStep) String() string {
	return rotationStepString[s]
}

const (
	RotationStatusCompleted = "completed"
	RotationStatusFailed    = "failed"
	RotationStatusSkipped   = "skipped"
)

/**
 * RotationResult reports how far a rotation got. Rotation failure is a
 * workflow status, never a request-ending error: the revocation that
 * triggered it has already been persisted and stands either way.
 */
type RotationResult struct {
	Status string
	Step   RotationStep
	Err    string

	OldCid string
	NewCid string

	Rewrapped []types.ActorCode
	// remaining actors with no recorded public key; they need a fresh
	// wrapKeys grant from the owner before they can read new content.
	ManualFollowup []types.ActorCode
}

/**
 * RotationWorkflow re-encrypts a record under a fresh CEK after a
 * revocation: fetch ciphertext, unwrap the old key via the injected
 * key-resolution capability, decrypt, regenerate, re-encrypt, re-store,
 * persist, re-wrap for remaining actors. Linear, no cycles; any step
 * failure moves to the absorbing failed state. There is no mid-workflow
 * abort: once started it runs to completion or failure.
 */
type RotationWorkflow struct {
	storeManager *store.StoreManager
	records      *RecordStore
	resolver     secrets.KeyResolver
	sink         audit.Sink
}

func NewRotationWorkflow(storeManager *store.StoreManager, records *RecordStore, resolver secrets.KeyResolver, sink audit.Sink) *RotationWorkflow {
	return &RotationWorkflow{
		storeManager: storeManager,
		records:      records,
		resolver:     resolver,
		sink:         sink,
	}
}

/**
 * Run rotates rec in place. The caller holds the per-record lock and has
 * already persisted the actor removal; rec.Version reflects that write.
 */
func (w *RotationWorkflow) Run(ctx context.Context, rec *types.Record) RotationResult {
	res := RotationResult{
		Status: RotationStatusCompleted,
		Step:   RotationIdle,
		OldCid: rec.Cid,
	}

	step := func(s RotationStep, fn func() error) bool {
		if err := fn(); err != nil {
			log.Errorf("rotation of record %s failed at step %s: %v", rec.Id, s, err)
			res.Status = RotationStatusFailed
			res.Step = s
			res.Err = err.Error()
			w.emit(rec.Id, s, "failed")
			return false
		}
		res.Step = s
		return true
	}

	var (
		ciphertext    []byte
		oldCek        []byte
		plaintext     []byte
		newCek        []byte
		newCiphertext []byte
	)
	defer func() {
		crypto.Zeroize(oldCek)
		crypto.Zeroize(plaintext)
		crypto.Zeroize(newCek)
	}()

	if !step(RotationDownloading, func() error {
		oldCid, err := cid.Decode(rec.Cid)
		if err != nil {
			return err
		}
		reader, err := w.storeManager.Get(ctx, oldCid)
		if err != nil {
			return err
		}
		defer reader.Close()
		ciphertext, err = io.ReadAll(reader)
		return err
	}) {
		return res
	}

	if !step(RotationUnwrapping, func() error {
		handle, err := w.resolver.Resolve(ctx, rec.Owner)
		if err != nil {
			return err
		}
		blob, err := base64.StdEncoding.DecodeString(rec.RecoveryKey)
		if err != nil {
			return err
		}
		oldCek, err = w.resolver.Decrypt(ctx, handle, blob)
		return err
	}) {
		return res
	}

	if !step(RotationDecrypting, func() error {
		var err error
		plaintext, err = crypto.Decrypt(ciphertext, oldCek)
		return err
	}) {
		return res
	}

	if !step(RotationRegenerating, func() error {
		var err error
		newCek, err = crypto.GenerateKey()
		return err
	}) {
		return res
	}

	if !step(RotationReencrypting, func() error {
		var err error
		newCiphertext, err = crypto.Encrypt(plaintext, newCek)
		return err
	}) {
		return res
	}

	var newCidStr string
	if !step(RotationReuploading, func() error {
		var err error
		newCidStr, err = w.storeManager.Store(ctx, bytes.NewReader(newCiphertext))
		return err
	}) {
		return res
	}

	// A crash between re-upload and persist leaves the new ciphertext
	// unreferenced; the cid is logged here so an operator can reconcile.
	log.Infof("rotation of record %s re-uploaded new cid %s (old %s)", rec.Id, newCidStr, rec.Cid)

	if !step(RotationPersisting, func() error {
		handle, err := w.resolver.Resolve(ctx, rec.Owner)
		if err != nil {
			return err
		}
		recovery, err := secrets.WrapUnder(handle, newCek)
		if err != nil {
			return err
		}

		rec.Cid = newCidStr
		rec.CidHash = crypto.ContentHash(newCiphertext)
		rec.RecoveryKey = base64.StdEncoding.EncodeToString(recovery)
		rec.Meta.CipherSize = uint64(len(newCiphertext))
		return w.records.Update(ctx, rec)
	}) {
		return res
	}

	if !step(RotationRewrapping, func() error {
		rewrapped := make(map[types.ActorCode]string, len(rec.WrappedKeys))
		for code := range rec.WrappedKeys {
			pub, ok := rec.ActorPubKeys[code]
			if !ok {
				res.ManualFollowup = append(res.ManualFollowup, code)
				continue
			}
			blob, err := crypto.Wrap(newCek, pub)
			if err != nil {
				return err
			}
			rewrapped[code] = base64.StdEncoding.EncodeToString(blob)
			res.Rewrapped = append(res.Rewrapped, code)
		}

		// keys wrapped under the old CEK are invalid now; actors without
		// a recorded public key lose access until re-granted.
		for code := range rec.WrappedKeys {
			if _, ok := rewrapped[code]; !ok {
				delete(rec.WrappedKeys, code)
				continue
			}
			rec.WrappedKeys[code] = rewrapped[code]
		}
		if len(rec.WrappedKeys) == 0 && rec.Status.CanTransition(types.RecordStatusRevoked) {
			rec.Status = types.RecordStatusRevoked
		}
		return w.records.Update(ctx, rec)
	}) {
		return res
	}

	res.Step = RotationComplete
	res.NewCid = newCidStr
	w.emit(rec.Id, RotationComplete, "completed")
	return res
}

func (w *RotationWorkflow) emit(recordId string, step RotationStep, outcome string) {
	if w.sink == nil {
		return
	}
	w.sink.Emit(audit.Event{
		Op:       "rotation",
		RecordId: recordId,
		Outcome:  outcome,
		Detail:   map[string]string{"step": step.String()},
	})
}
