package api

import (
	"context"

	apitypes "sealvault-node/api/types"
	"sealvault-node/types"
)

/**
 * RecordApi is the transport-neutral core API surface. Wrapped keys are
 * released through RequestAccess only; Metadata never exposes key
 * material.
 */
type RecordApi interface {
	Upload(ctx context.Context, content []byte, owner string, actorCodes []string) (apitypes.UploadResp, error)
	WrapKeys(ctx context.Context, recordId string, ownerSig apitypes.SignedRequest, pubKeys map[string][]byte) (apitypes.WrapKeysResp, error)
	RequestAccess(ctx context.Context, recordId string, actorCode string, actorSig apitypes.SignedRequest) (apitypes.AccessResp, error)
	Revoke(ctx context.Context, recordId string, actorCode string, ownerSig apitypes.SignedRequest) (apitypes.RevokeResp, error)
	Anchor(ctx context.Context, recordId string, txHash string, ownerSig apitypes.SignedRequest) (apitypes.AnchorResp, error)
	Metadata(ctx context.Context, recordId string) (types.RecordView, error)
}
