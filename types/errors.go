package types

import "cosmossdk.io/errors"

var (
	ModuleCrypto = "crypto"

	ErrKeyGenFailed     = errors.Register(ModuleCrypto, 20000, "failed to generate the content key")
	ErrEncryptFailed    = errors.Register(ModuleCrypto, 20001, "failed to encrypt the content")
	ErrIntegrity        = errors.Register(ModuleCrypto, 20002, "authentication tag verification failed")
	ErrWrapFailed       = errors.Register(ModuleCrypto, 20003, "failed to wrap the content key")
	ErrUnwrapFailed     = errors.Register(ModuleCrypto, 20004, "failed to unwrap the content key")
	ErrCidCalculation   = errors.Register(ModuleCrypto, 20005, "failed to calculate the content cid")
	ErrKeyCacheConflict = errors.Register(ModuleCrypto, 20006, "a content key is already cached for the record")
	ErrKeyCacheMiss     = errors.Register(ModuleCrypto, 20007, "no content key cached for the record")
)

var (
	ModuleAuth = "auth"

	ErrAuthentication    = errors.Register(ModuleAuth, 21000, "signature verification failed")
	ErrUnknownIdentity   = errors.Register(ModuleAuth, 21001, "unknown signer identity")
	ErrBuildPayload      = errors.Register(ModuleAuth, 21002, "failed to build the signature payload")
	ErrUnknownVerifyMode = errors.Register(ModuleAuth, 21003, "unknown signature verification mode")
)

var (
	ModuleOracle = "oracle"

	ErrAuthorizationDenied = errors.Register(ModuleOracle, 22000, "permission denied by the authorization oracle")
	ErrNoKeyIssued         = errors.Register(ModuleOracle, 22001, "no wrapped key issued for the actor")
)

var (
	ModuleRecord = "record"

	ErrInvalidRecordId    = errors.Register(ModuleRecord, 23000, "invalid record id")
	ErrUnknownActor       = errors.Register(ModuleRecord, 23001, "unknown actor code")
	ErrMissingField       = errors.Register(ModuleRecord, 23002, "missing required field")
	ErrRecordNotFound     = errors.Register(ModuleRecord, 23003, "record not found")
	ErrRecordConflict     = errors.Register(ModuleRecord, 23004, "record was modified concurrently")
	ErrInvalidTransition  = errors.Register(ModuleRecord, 23005, "invalid record status transition")
	ErrRecordRevoked      = errors.Register(ModuleRecord, 23006, "record is revoked")
	ErrRotationStepFailed = errors.Register(ModuleRecord, 23007, "rotation step failed")
	ErrSaveRecordFailed   = errors.Register(ModuleRecord, 23008, "failed to save the record")
)

var (
	ModuleStore = "store"

	ErrStoreBackendFailed = errors.Register(ModuleStore, 24000, "blob store backend failure")
	ErrOpenBackendFailed  = errors.Register(ModuleStore, 24001, "failed to open the blob store backend")
	ErrContentMismatch    = errors.Register(ModuleStore, 24002, "fetched content does not match its cid")
)

var (
	ModuleChain = "chain"

	ErrCreateChainServiceFailed = errors.Register(ModuleChain, 25000, "failed to create the chain service")
	ErrTxQueryFailed            = errors.Register(ModuleChain, 25001, "failed to query the tx")
	ErrTxNotConfirmed           = errors.Register(ModuleChain, 25002, "tx is not confirmed on chain")
)

var (
	ModuleLedger = "ledger"

	ErrProposeFailed = errors.Register(ModuleLedger, 26000, "failed to propose the snapshot update")
	ErrUnknownHead   = errors.Register(ModuleLedger, 26001, "unknown ledger head")
)

var (
	ModuleSecrets = "secrets"

	ErrResolveKeyFailed = errors.Register(ModuleSecrets, 26500, "failed to resolve the wrapping key")
)

var (
	ModuleProofs = "proofs"

	ErrCommitFailed   = errors.Register(ModuleProofs, 26600, "failed to commit the privacy proof")
	ErrProofMismatch  = errors.Register(ModuleProofs, 26601, "actor is not covered by the commitment")
	ErrNoProofPresent = errors.Register(ModuleProofs, 26602, "no commitment recorded for the record")
)

var (
	ModuleRepo = "repo"

	ErrCreateDirFailed    = errors.Register(ModuleRepo, 27000, "failed to create the directory")
	ErrOpenRepoFailed     = errors.Register(ModuleRepo, 27001, "failed to open the repo")
	ErrEncodeConfigFailed = errors.Register(ModuleRepo, 27002, "failed to encode the config")
	ErrDecodeConfigFailed = errors.Register(ModuleRepo, 27003, "failed to decode the config")
	ErrOpenDataStoreFaild = errors.Register(ModuleRepo, 27004, "failed to open the datastore")
	ErrOpenKeystoreFailed = errors.Register(ModuleRepo, 27005, "failed to open the keystore")
)

func Wrap(err0 error, err1 error) error {
	return errors.Wrapf(err0, ", due to %v", err1)
}

func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}
