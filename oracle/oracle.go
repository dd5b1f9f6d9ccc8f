package oracle

import (
	"context"
	"fmt"

	"sealvault-node/chain"
	"sealvault-node/ledger"
	"sealvault-node/types"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("oracle")

const (
	SourceFastPath = "fast-path"
	SourceChain    = "chain"
	SourceProof    = "proof"
)

const ReasonNoKeyIssued = "no key issued"

/**
 * Decision is the oracle's answer for one record/actor pair, with the
 * authority source that produced a grant.
 */
type Decision struct {
	Granted bool
	Reason  string
	Source  string
}

/**
 * ProofChecker is the optional privacy-proof authority.
 */
type ProofChecker interface {
	CheckMembership(ctx context.Context, recordId string, actor types.ActorCode) (bool, error)
}

/**
 * Oracle combines local wrapped-key presence, the off-chain fast-path
 * snapshot, the on-chain authority and the optional privacy-proof check
 * into one grant/deny decision.
 */
type Oracle struct {
	ledger        ledger.Client
	chainOracle   chain.Oracle
	proofs        ProofChecker
	proofsEnabled bool
}

func NewOracle(ledgerClient ledger.Client, chainOracle chain.Oracle, proofs ProofChecker, proofsEnabled bool) *Oracle {
	return &Oracle{
		ledger:        ledgerClient,
		chainOracle:   chainOracle,
		proofs:        proofs,
		proofsEnabled: proofsEnabled,
	}
}

/**
 * VerifyAnchor asks the on-chain authority whether an anchoring tx is
 * confirmed. Reports unconfirmed when no chain oracle is configured.
 */
func (o *Oracle) VerifyAnchor(ctx context.Context, txHash string) (bool, error) {
	if o.chainOracle == nil {
		return false, nil
	}
	return o.chainOracle.VerifyTx(ctx, txHash)
}

/**
 * Decide runs the grant algorithm:
 *   1. no wrapped-key entry for the actor is an immediate deny;
 *   2. a fast-path snapshot that permits the actor grants at low latency;
 *   3. otherwise the on-chain check and, if enabled, the privacy-proof
 *      check each may grant;
 *   4. otherwise deny with the first failure reason encountered.
 *
 * The fast path is strictly an optimization. It cannot override the
 * wrapped-key precondition and is never the sole authority when it has no
 * snapshot for the record.
 */
func (o *Oracle) Decide(ctx context.Context, record *types.Record, actor types.ActorCode) Decision {
	if !record.HasActor(actor) {
		return Decision{Granted: false, Reason: ReasonNoKeyIssued}
	}

	if o.ledger != nil {
		if snap, ok := o.ledger.Lookup(ctx, record.Id); ok {
			if snap.Permits(actor) {
				return Decision{Granted: true, Source: SourceFastPath}
			}
			log.Debugf("snapshot for record %s does not permit actor %s, falling back", record.Id, actor)
		}
	}

	firstReason := ""

	if o.chainOracle != nil && record.AnchorTx != "" {
		confirmed, err := o.chainOracle.VerifyTx(ctx, record.AnchorTx)
		if err != nil {
			log.Warnf("chain check for record %s: %v", record.Id, err)
			firstReason = fmt.Sprintf("chain check failed: %v", err)
		} else if confirmed {
			return Decision{Granted: true, Source: SourceChain}
		} else {
			firstReason = "anchor tx not confirmed"
		}
	} else {
		firstReason = "record is not anchored"
	}

	if o.proofsEnabled && o.proofs != nil {
		member, err := o.proofs.CheckMembership(ctx, record.Id, actor)
		if err != nil {
			log.Warnf("proof check for record %s: %v", record.Id, err)
			if firstReason == "" {
				firstReason = fmt.Sprintf("proof check failed: %v", err)
			}
		} else if member {
			return Decision{Granted: true, Source: SourceProof}
		} else if firstReason == "" {
			firstReason = "actor not covered by commitment"
		}
	}

	if firstReason == "" {
		firstReason = "no authority granted access"
	}
	return Decision{Granted: false, Reason: firstReason}
}
