package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"sealvault-node/types"

	"github.com/cosmos/cosmos-sdk/crypto/keys/secp256k1"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("auth")

const (
	VerifyModeWallet = "wallet"
	VerifyModeHmac   = "hmac"
)

/**
 * Verifier checks an actor or owner authorization signature over a
 * canonical payload. Callers are agnostic to which strategy is active;
 * the implementation is chosen once at startup.
 */
type Verifier interface {
	Verify(identity string, payload []byte, signature []byte) error
}

/**
 * NewVerifier selects the deployment-mode verification strategy: a
 * secp256k1 wallet scheme for production, a shared-secret MAC for
 * non-production testing.
 */
func NewVerifier(mode string, hmacSecret []byte) (Verifier, error) {
	switch mode {
	case VerifyModeWallet:
		return &Secp256k1Verifier{}, nil
	case VerifyModeHmac:
		if len(hmacSecret) == 0 {
			return nil, types.Wrapf(types.ErrMissingField, "auth.Secret")
		}
		return &HmacVerifier{secret: hmacSecret}, nil
	default:
		return nil, types.Wrapf(types.ErrUnknownVerifyMode, "mode=%s", mode)
	}
}

// ----------------
// wallet mode
// ----------------

/**
 * Secp256k1Verifier binds a signature to a wallet-style identity: the
 * hex encoding of a compressed secp256k1 public key.
 */
type Secp256k1Verifier struct{}

func (v *Secp256k1Verifier) Verify(identity string, payload []byte, signature []byte) error {
	raw, err := hex.DecodeString(identity)
	if err != nil {
		return types.Wrapf(types.ErrUnknownIdentity, "identity is not hex: %v", err)
	}
	if len(raw) != secp256k1.PubKeySize {
		return types.Wrapf(types.ErrUnknownIdentity, "public key must be %d bytes, got %d", secp256k1.PubKeySize, len(raw))
	}

	pub := &secp256k1.PubKey{Key: raw}
	if !pub.VerifySignature(payload, signature) {
		log.Debugf("secp256k1 verification failed for %s", identity)
		return types.Wrapf(types.ErrAuthentication, "identity=%s", identity)
	}
	return nil
}

// ----------------
// shared-secret mode
// ----------------

type HmacVerifier struct {
	secret []byte
}

func NewHmacVerifier(secret []byte) *HmacVerifier {
	return &HmacVerifier{secret: secret}
}

func (v *HmacVerifier) Verify(identity string, payload []byte, signature []byte) error {
	expected := HmacSign(v.secret, payload)
	if !hmac.Equal(expected, signature) {
		log.Debugf("hmac verification failed for %s", identity)
		return types.Wrapf(types.ErrAuthentication, "identity=%s", identity)
	}
	return nil
}

// HmacSign is the signing half of the shared-secret scheme, used by
// non-production clients and tests.
func HmacSign(secret []byte, payload []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return mac.Sum(nil)
}
