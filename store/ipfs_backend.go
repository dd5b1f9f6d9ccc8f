package store

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ipfs/go-cid"
	shell "github.com/ipfs/go-ipfs-api"
	"golang.org/x/xerrors"
)

/**
 * IpfsBackend pins ciphertext blobs on an IPFS node reachable over its
 * HTTP API. Connection strings use the ipfs+http(s) scheme.
 */
type IpfsBackend struct {
	ipfsAddress string
	ipfsApi     *shell.Shell
}

func NewIpfsBackend(connectionString string) (*IpfsBackend, error) {
	var conn string
	if strings.HasPrefix(connectionString, "ipfs+http") {
		conn = strings.Replace(connectionString, "ipfs+http", "http", 1)
	} else if strings.HasPrefix(connectionString, "ipfs+https") {
		conn = strings.Replace(connectionString, "ipfs+https", "https", 1)
	} else {
		return nil, xerrors.Errorf("unsupported ipfs connection protocol")
	}

	b := IpfsBackend{
		ipfsAddress: conn,
	}
	return &b, nil
}

func (b *IpfsBackend) Id() string {
	return fmt.Sprintf("%s-%s", b.Type(), b.ipfsAddress)
}

func (b *IpfsBackend) Type() string {
	return "ipfs"
}

func (b *IpfsBackend) Open() error {
	b.ipfsApi = shell.NewShell(b.ipfsAddress)
	return nil
}

func (b *IpfsBackend) Close() error {
	return nil
}

func (b *IpfsBackend) Store(ctx context.Context, reader io.Reader) (string, error) {
	hash, err := b.ipfsApi.Add(reader, shell.Pin(true), shell.CidVersion(1), shell.RawLeaves(true))
	if err != nil {
		return "", err
	}
	log.Debugf("%s store hash: %v", b.Id(), hash)
	return hash, nil
}

func (b *IpfsBackend) Get(ctx context.Context, contentCid cid.Cid) (io.ReadCloser, error) {
	return b.ipfsApi.Cat(contentCid.String())
}

func (b *IpfsBackend) Remove(ctx context.Context, contentCid cid.Cid) error {
	return b.ipfsApi.Unpin(contentCid.String())
}
