package config

import (
	"bytes"

	"sealvault-node/types"

	"github.com/BurntSushi/toml"
)

// sealvault node config
type Node struct {
	Auth   Auth
	Chain  Chain
	Store  Store
	Ledger Ledger
	Proofs Proofs
	Cache  Cache
}

type Auth struct {
	// wallet | hmac
	Mode string
	// shared secret for hmac mode, base64
	Secret string
	// network name bound into every signature payload
	Network string
}

type Chain struct {
	Enable     bool
	Remote     string
	WsEndpoint string
	// seconds per chain query
	Timeout int
}

type Store struct {
	// ipfs+http(s) connection string; empty means memory backend
	Ipfs string
	// seconds per blob store call
	Timeout int
}

type Ledger struct {
	Enable bool
	HeadId string
}

type Proofs struct {
	Enable bool
}

type Cache struct {
	// minutes before an unconsumed content key is swept
	KeyTTLMinutes int
}

func DefaultNode() *Node {
	return &Node{
		Auth: Auth{
			Mode:    "wallet",
			Network: "testnet",
		},
		Chain: Chain{
			Enable:     false,
			Remote:     "http://localhost:26657",
			WsEndpoint: "/websocket",
			Timeout:    30,
		},
		Store: Store{
			Ipfs:    "",
			Timeout: 30,
		},
		Ledger: Ledger{
			Enable: true,
			HeadId: "head-0",
		},
		Proofs: Proofs{
			Enable: false,
		},
		Cache: Cache{
			KeyTTLMinutes: 15,
		},
	}
}

func NodeBytes(cfg interface{}) ([]byte, error) {
	buf := new(bytes.Buffer)
	e := toml.NewEncoder(buf)
	if err := e.Encode(cfg); err != nil {
		return nil, types.Wrap(types.ErrEncodeConfigFailed, err)
	}

	return buf.Bytes(), nil
}
