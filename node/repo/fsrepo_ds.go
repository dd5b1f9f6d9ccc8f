package repo

import (
	"os"
	"path/filepath"

	"sealvault-node/types"

	dgbadger "github.com/dgraph-io/badger/v2"
	"github.com/ipfs/go-datastore"
	badger "github.com/ipfs/go-ds-badger2"
	levelds "github.com/ipfs/go-ds-leveldb"
	measure "github.com/ipfs/go-ds-measure"
	ldbopts "github.com/syndtr/goleveldb/leveldb/opt"
)

const (
	DsNsMetadata = "metadata"
	DsNsRecords  = "records"
)

type dsCtor func(path string) (datastore.Batching, error)

var fsDatastores = map[string]dsCtor{
	DsNsMetadata: levelDs,
	// record writes are frequent during rotation; badger handles the churn
	DsNsRecords: badgerDs,
}

func levelDs(path string) (datastore.Batching, error) {
	return levelds.NewDatastore(path, &levelds.Options{
		Compression: ldbopts.NoCompression,
		NoSync:      false,
		Strict:      ldbopts.StrictAll,
	})
}

func badgerDs(path string) (datastore.Batching, error) {
	opts := badger.DefaultOptions

	opts.Options = dgbadger.DefaultOptions("").WithTruncate(true).
		WithValueThreshold(1 << 10)
	return badger.NewDatastore(path, &opts)
}

func (r *Repo) openDatastores() (map[string]datastore.Batching, error) {
	if err := os.MkdirAll(filepath.Join(r.path, fsDatastore), 0755); err != nil {
		return nil, types.Wrapf(types.ErrCreateDirFailed, "mkdir %s: %v", filepath.Join(r.path, fsDatastore), err)
	}

	out := map[string]datastore.Batching{}
	for ns, ctor := range fsDatastores {
		prefix := filepath.Join(r.path, fsDatastore, ns)

		ds, err := ctor(prefix)
		if err != nil {
			return nil, types.Wrapf(types.ErrOpenDataStoreFaild, "%s: %v", ns, err)
		}

		out[ns] = measure.New("fsrepo."+ns, ds)
	}

	return out, nil
}
