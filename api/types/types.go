package apitypes

import "sealvault-node/types"

/**
 * SignedRequest carries the authorization proof for an owner or actor
 * operation. The canonical payload is rebuilt server-side from the
 * operation, record id and extra fields; the signature must verify over
 * exactly those bytes.
 */
type SignedRequest struct {
	Identity  string
	Timestamp int64
	Signature []byte
}

type UploadResp struct {
	RecordId string
	Cid      string
	CidHash  string
}

type WrapKeysResp struct {
	WrappedKeys map[types.ActorCode]string
}

type AccessResp struct {
	Cid        string
	WrappedKey string
	Source     string
}

type RevokeResp struct {
	RotationStatus string
	OldCid         string
	NewCid         string
	ManualFollowup []types.ActorCode
}

type AnchorResp struct {
	Status   types.RecordStatus
	AnchorTx string
}
