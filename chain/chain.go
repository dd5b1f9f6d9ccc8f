package chain

import (
	"context"
	"encoding/hex"
	"time"

	"sealvault-node/types"

	logging "github.com/ipfs/go-log/v2"
	rpchttp "github.com/tendermint/tendermint/rpc/client/http"
)

var log = logging.Logger("chain")

/**
 * Oracle is the on-chain authority consulted by the permission engine. It
 * only answers whether an anchoring transaction is confirmed; broadcasting
 * and consensus are out of scope.
 */
type Oracle interface {
	VerifyTx(ctx context.Context, txHash string) (bool, error)
}

type ChainSvc struct {
	remote  string
	rpc     *rpchttp.HTTP
	timeout time.Duration
}

func NewChainSvc(remote string, wsEndpoint string, timeout time.Duration) (*ChainSvc, error) {
	client, err := rpchttp.New(remote, wsEndpoint)
	if err != nil {
		return nil, types.Wrap(types.ErrCreateChainServiceFailed, err)
	}
	return &ChainSvc{
		remote:  remote,
		rpc:     client,
		timeout: timeout,
	}, nil
}

/**
 * VerifyTx reports whether txHash is included on chain with result code 0.
 * Transport failures surface as ErrTxQueryFailed so the caller can tell an
 * unreachable oracle from a rejected tx.
 */
func (c *ChainSvc) VerifyTx(ctx context.Context, txHash string) (bool, error) {
	hash, err := hex.DecodeString(txHash)
	if err != nil {
		return false, types.Wrapf(types.ErrInvalidRecordId, "tx hash is not hex: %v", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	res, err := c.rpc.Tx(ctx, hash, false)
	if err != nil {
		return false, types.Wrap(types.ErrTxQueryFailed, err)
	}
	if res.TxResult.Code != 0 {
		log.Warnf("tx %s found but failed with code=%d", txHash, res.TxResult.Code)
		return false, nil
	}
	return true, nil
}
