package utils

import (
	"github.com/ipfs/go-cid"
	jsoniter "github.com/json-iterator/go"
	"github.com/multiformats/go-multicodec"
	"github.com/multiformats/go-multihash"
	uuid "github.com/satori/go.uuid"
	"golang.org/x/xerrors"
)

func IsRecordId(content string) bool {
	_, err := uuid.FromString(content)
	return err == nil
}

func GenerateRecordId() string {
	return uuid.NewV4().String()
}

func GenerateSnapshotId() string {
	return uuid.NewV4().String()
}

/**
 * CalculateCid derives the CIDv1 (raw codec, sha2-256) of a blob, so a
 * content address handed back by any store backend can be re-derived and
 * checked locally.
 */
func CalculateCid(content []byte) (cid.Cid, error) {
	pref := cid.Prefix{
		Version:  1,
		Codec:    uint64(multicodec.Raw),
		MhType:   multihash.SHA2_256,
		MhLength: -1,
	}

	contentCid, err := pref.Sum(content)
	if err != nil {
		return cid.Undef, err
	}

	return contentCid, nil
}

func Marshal(obj interface{}) ([]byte, error) {
	b, err := jsoniter.Marshal(obj)
	if err != nil {
		return nil, xerrors.Errorf("marshal: %w", err)
	}
	return b, nil
}

func Unmarshal(data []byte, obj interface{}) error {
	err := jsoniter.Unmarshal(data, obj)
	if err != nil {
		return xerrors.Errorf("unmarshal: %w", err)
	}
	return nil
}
