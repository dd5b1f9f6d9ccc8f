package repo

import (
	"crypto/rand"
	"os"
	"path/filepath"

	"sealvault-node/crypto"
	"sealvault-node/node/config"
	"sealvault-node/types"

	"github.com/ipfs/go-datastore"
	logging "github.com/ipfs/go-log/v2"
	lcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/xerrors"
)

var log = logging.Logger("repo")

var ErrRepoExists = xerrors.New("repo exists")

const (
	fsConfig    = "config.toml"
	fsKeystore  = "keystore"
	fsNodeKey   = "node.key"
	fsWrapKey   = "wrap.key"
	fsDatastore = "datastore"
)

/**
 * Repo is the node's on-disk home: config.toml, keystore (node identity
 * key plus the local fallback wrapping key), and the datastores.
 */
type Repo struct {
	path       string
	configPath string

	dss map[string]datastore.Batching
}

func NewRepo(path string) (*Repo, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, err
	}

	return &Repo{
		path:       path,
		configPath: filepath.Join(path, fsConfig),
	}, nil
}

func (r *Repo) Path() string {
	return r.path
}

func (r *Repo) KeystorePath() string {
	return filepath.Join(r.path, fsKeystore)
}

func (r *Repo) Exists() (bool, error) {
	_, err := os.Stat(r.KeystorePath())
	notexist := os.IsNotExist(err)
	if notexist {
		err = nil
	}
	return !notexist, err
}

func (r *Repo) Init() error {
	exist, err := r.Exists()
	if err != nil {
		return err
	}
	if exist {
		return ErrRepoExists
	}

	log.Infof("Initializing repo at '%s'", r.path)
	err = os.MkdirAll(r.path, 0755) //nolint: gosec
	if err != nil && !os.IsExist(err) {
		return types.Wrap(types.ErrCreateDirFailed, err)
	}

	if err := r.initConfig(); err != nil {
		return err
	}
	if err := r.initKeystore(); err != nil {
		return err
	}

	return nil
}

func (r *Repo) initConfig() error {
	return config.Write(r.configPath, config.DefaultNode())
}

func (r *Repo) initKeystore() error {
	keystore := r.KeystorePath()
	if err := os.MkdirAll(keystore, 0700); err != nil {
		return types.Wrap(types.ErrOpenKeystoreFailed, err)
	}

	// node identity key
	pk, _, err := lcrypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return types.Wrap(types.ErrOpenKeystoreFailed, err)
	}
	raw, err := lcrypto.MarshalPrivateKey(pk)
	if err != nil {
		return types.Wrap(types.ErrOpenKeystoreFailed, err)
	}
	if err := os.WriteFile(filepath.Join(keystore, fsNodeKey), raw, 0600); err != nil {
		return types.Wrap(types.ErrOpenKeystoreFailed, err)
	}

	// local fallback wrapping key for non-production key resolution
	wrapKey := make([]byte, crypto.KeySize)
	if _, err := rand.Read(wrapKey); err != nil {
		return types.Wrap(types.ErrOpenKeystoreFailed, err)
	}
	defer crypto.Zeroize(wrapKey)
	if err := os.WriteFile(filepath.Join(keystore, fsWrapKey), wrapKey, 0600); err != nil {
		return types.Wrap(types.ErrOpenKeystoreFailed, err)
	}

	return nil
}

func (r *Repo) Config() (*config.Node, error) {
	return config.Load(r.configPath)
}

/**
 * Datastore opens (once) and returns the namespaced datastore.
 */
func (r *Repo) Datastore(ns string) (datastore.Batching, error) {
	if r.dss == nil {
		dss, err := r.openDatastores()
		if err != nil {
			return nil, err
		}
		r.dss = dss
	}

	ds, ok := r.dss[ns]
	if !ok {
		return nil, types.Wrapf(types.ErrOpenDataStoreFaild, "unknown namespace %s", ns)
	}
	return ds, nil
}

func (r *Repo) Close() error {
	for ns, ds := range r.dss {
		if err := ds.Close(); err != nil {
			log.Errorf("closing datastore %s: %v", ns, err)
			return err
		}
	}
	return nil
}
