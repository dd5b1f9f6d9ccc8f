package node

import (
	"context"
	"encoding/base64"
	"os"
	"time"

	"sealvault-node/api"
	"sealvault-node/audit"
	"sealvault-node/auth"
	"sealvault-node/chain"
	"sealvault-node/crypto"
	"sealvault-node/ledger"
	"sealvault-node/node/record"
	"sealvault-node/node/repo"
	"sealvault-node/oracle"
	"sealvault-node/proofs"
	"sealvault-node/secrets"
	"sealvault-node/store"
	"sealvault-node/types"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("node")

// env var holding the secret-manager provided wrapping key; when unset
// the repo keystore fallback key is used.
const WrapKeyEnv = "SEALVAULT_WRAP_KEY"

/**
 * Node wires the collaborator capabilities into the record service. All
 * strategy choices (signature mode, key resolution, store backend) are
 * made once here, never branched per call.
 */
type Node struct {
	ctx  context.Context
	stop context.CancelFunc

	repo         *repo.Repo
	storeManager *store.StoreManager
	keyCache     *crypto.KeyCache
	recordSvc    *record.RecordSvc
}

func NewNode(ctx context.Context, rp *repo.Repo) (*Node, error) {
	cfg, err := rp.Config()
	if err != nil {
		return nil, err
	}

	var backends []store.StoreBackend
	if cfg.Store.Ipfs != "" {
		ipfs, err := store.NewIpfsBackend(cfg.Store.Ipfs)
		if err != nil {
			return nil, err
		}
		backends = append(backends, ipfs)
	} else {
		log.Warnf("no ipfs backend configured, using the in-process memory backend")
		backends = append(backends, store.NewMemoryBackend())
	}
	storeManager := store.NewStoreManager(backends, time.Duration(cfg.Store.Timeout)*time.Second)
	if err := storeManager.Open(); err != nil {
		return nil, err
	}

	var secret []byte
	if cfg.Auth.Secret != "" {
		secret, err = base64.StdEncoding.DecodeString(cfg.Auth.Secret)
		if err != nil {
			return nil, types.Wrap(types.ErrDecodeConfigFailed, err)
		}
	}
	verifier, err := auth.NewVerifier(cfg.Auth.Mode, secret)
	if err != nil {
		return nil, err
	}

	var chainOracle chain.Oracle
	if cfg.Chain.Enable {
		chainSvc, err := chain.NewChainSvc(cfg.Chain.Remote, cfg.Chain.WsEndpoint, time.Duration(cfg.Chain.Timeout)*time.Second)
		if err != nil {
			return nil, err
		}
		chainOracle = chainSvc
	}

	var ledgerClient ledger.Client
	if cfg.Ledger.Enable {
		ledgerClient = ledger.NewMemoryLedger(cfg.Ledger.HeadId)
	}

	var proofStore proofs.Store
	if cfg.Proofs.Enable {
		proofStore = proofs.NewHashStore()
	}

	var resolver secrets.KeyResolver
	if os.Getenv(WrapKeyEnv) != "" {
		resolver = secrets.NewEnvKeyResolver(WrapKeyEnv)
	} else {
		resolver = secrets.NewFileKeyResolver(rp.KeystorePath())
	}

	recordsDs, err := rp.Datastore(repo.DsNsRecords)
	if err != nil {
		return nil, err
	}
	metadataDs, err := rp.Datastore(repo.DsNsMetadata)
	if err != nil {
		return nil, err
	}
	records := record.NewRecordStore(recordsDs, metadataDs)

	sink := audit.NewLogSink()
	keyCache := crypto.NewKeyCache(time.Duration(cfg.Cache.KeyTTLMinutes) * time.Minute)
	permOracle := oracle.NewOracle(ledgerClient, chainOracle, proofStore, cfg.Proofs.Enable)
	rotator := record.NewRotationWorkflow(storeManager, records, resolver, sink)

	recordSvc := record.NewRecordSvc(record.RecordSvcOpts{
		Network:      cfg.Auth.Network,
		Records:      records,
		StoreManager: storeManager,
		KeyCache:     keyCache,
		Verifier:     verifier,
		Oracle:       permOracle,
		Rotator:      rotator,
		Resolver:     resolver,
		Sink:         sink,
		LedgerClient: ledgerClient,
		LedgerHead:   cfg.Ledger.HeadId,
		Proofs:       proofStore,
		ProofsOn:     cfg.Proofs.Enable,
	})

	nctx, cancel := context.WithCancel(ctx)
	n := &Node{
		ctx:          nctx,
		stop:         cancel,
		repo:         rp,
		storeManager: storeManager,
		keyCache:     keyCache,
		recordSvc:    recordSvc,
	}

	go keyCache.Run(nctx)

	return n, nil
}

func (n *Node) RecordApi() api.RecordApi {
	return n.recordSvc
}

func (n *Node) Stop() error {
	n.stop()
	n.recordSvc.Flush()
	if err := n.storeManager.Close(); err != nil {
		return err
	}
	return n.repo.Close()
}
