package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"sealvault-node/types"
	"sealvault-node/utils"

	"github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

var log = logging.Logger("crypto")

const (
	KeySize   = 32
	NonceSize = 12
	TagSize   = 16

	// Encrypt output overhead over the plaintext: nonce plus tag.
	Overhead = NonceSize + TagSize

	// symmetric wrapped-key blob: nonce(12) || tag(16) || ciphertext(32)
	WrappedKeySize = NonceSize + TagSize + KeySize

	// asymmetric variant prepends the ephemeral X25519 public key.
	EphPubSize         = 32
	AsymWrappedKeySize = EphPubSize + WrappedKeySize
)

// key-derivation binding for the asymmetric wrap path.
var wrapInfo = []byte("sealvault:cek-wrap:v1")

/**
 * GenerateKey returns a fresh 32-byte content encryption key from the
 * system CSPRNG. A new key is produced on every call.
 */
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, types.Wrap(types.ErrKeyGenFailed, err)
	}
	return key, nil
}

/**
 * Encrypt seals plaintext under key with AES-256-GCM and a fresh 96-bit
 * nonce, packaged as nonce || tag || ciphertext. Nonce reuse under the
 * same key never happens because the nonce is drawn per call.
 */
func Encrypt(plaintext []byte, key []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, types.Wrap(types.ErrEncryptFailed, err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, types.Wrap(types.ErrEncryptFailed, err)
	}

	// Seal returns ciphertext || tag; reorder into nonce || tag || ciphertext.
	sealed := aead.Seal(nil, nonce, plaintext, nil)
	ct := sealed[:len(sealed)-TagSize]
	tag := sealed[len(sealed)-TagSize:]

	pkg := make([]byte, 0, NonceSize+TagSize+len(ct))
	pkg = append(pkg, nonce...)
	pkg = append(pkg, tag...)
	pkg = append(pkg, ct...)
	return pkg, nil
}

/**
 * Decrypt opens a nonce || tag || ciphertext package. A short or malformed
 * package and a tag mismatch both fail with ErrIntegrity; there is no
 * silent wrong-plaintext path.
 */
func Decrypt(pkg []byte, key []byte) ([]byte, error) {
	if len(pkg) < Overhead {
		return nil, types.Wrapf(types.ErrIntegrity, "package too short: %d bytes", len(pkg))
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, types.Wrap(types.ErrIntegrity, err)
	}

	nonce := pkg[:NonceSize]
	tag := pkg[NonceSize:Overhead]
	ct := pkg[Overhead:]

	sealed := make([]byte, 0, len(ct)+TagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, types.Wrap(types.ErrIntegrity, err)
	}
	return plaintext, nil
}

/**
 * WrapSymmetric protects a CEK under a 32-byte wrapping key. The blob is
 * exactly 60 bytes: nonce(12) || tag(16) || ciphertext(32).
 */
func WrapSymmetric(cek []byte, kek []byte) ([]byte, error) {
	if len(cek) != KeySize {
		return nil, types.Wrapf(types.ErrWrapFailed, "cek must be %d bytes, got %d", KeySize, len(cek))
	}
	blob, err := Encrypt(cek, kek)
	if err != nil {
		return nil, types.Wrap(types.ErrWrapFailed, err)
	}
	return blob, nil
}

func UnwrapSymmetric(blob []byte, kek []byte) ([]byte, error) {
	if len(blob) != WrappedKeySize {
		return nil, types.Wrapf(types.ErrUnwrapFailed, "wrapped key must be %d bytes, got %d", WrappedKeySize, len(blob))
	}
	cek, err := Decrypt(blob, kek)
	if err != nil {
		return nil, types.Wrap(types.ErrUnwrapFailed, err)
	}
	return cek, nil
}

/**
 * Wrap encrypts a CEK to a recipient's X25519 public key: ephemeral ECDH,
 * HKDF-SHA256, then the symmetric wrap. Blob layout is
 * ephPub(32) || nonce(12) || tag(16) || ciphertext(32), 92 bytes.
 */
func Wrap(cek []byte, recipientPub []byte) ([]byte, error) {
	if len(recipientPub) != EphPubSize {
		return nil, types.Wrapf(types.ErrWrapFailed, "recipient public key must be %d bytes, got %d", EphPubSize, len(recipientPub))
	}

	ephPriv := make([]byte, EphPubSize)
	if _, err := rand.Read(ephPriv); err != nil {
		return nil, types.Wrap(types.ErrWrapFailed, err)
	}
	defer Zeroize(ephPriv)

	ephPub, err := curve25519.X25519(ephPriv, curve25519.Basepoint)
	if err != nil {
		return nil, types.Wrap(types.ErrWrapFailed, err)
	}

	wrapKey, err := deriveWrapKey(ephPriv, recipientPub, ephPub)
	if err != nil {
		return nil, types.Wrap(types.ErrWrapFailed, err)
	}
	defer Zeroize(wrapKey)

	sym, err := WrapSymmetric(cek, wrapKey)
	if err != nil {
		return nil, err
	}

	blob := make([]byte, 0, AsymWrappedKeySize)
	blob = append(blob, ephPub...)
	blob = append(blob, sym...)
	return blob, nil
}

/**
 * Unwrap is the exact inverse of Wrap for the recipient's private key.
 */
func Unwrap(blob []byte, recipientPriv []byte) ([]byte, error) {
	if len(blob) != AsymWrappedKeySize {
		return nil, types.Wrapf(types.ErrUnwrapFailed, "wrapped key must be %d bytes, got %d", AsymWrappedKeySize, len(blob))
	}

	ephPub := blob[:EphPubSize]
	wrapKey, err := deriveWrapKey(recipientPriv, ephPub, ephPub)
	if err != nil {
		return nil, types.Wrap(types.ErrUnwrapFailed, err)
	}
	defer Zeroize(wrapKey)

	return UnwrapSymmetric(blob[EphPubSize:], wrapKey)
}

/**
 * GenerateRecipientKeypair returns an X25519 (public, private) pair for a
 * wrap recipient.
 */
func GenerateRecipientKeypair() ([]byte, []byte, error) {
	priv := make([]byte, EphPubSize)
	if _, err := rand.Read(priv); err != nil {
		return nil, nil, types.Wrap(types.ErrKeyGenFailed, err)
	}
	pub, err := curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, nil, types.Wrap(types.ErrKeyGenFailed, err)
	}
	return pub, priv, nil
}

/**
 * ContentCid derives the content address of a ciphertext blob.
 */
func ContentCid(content []byte) (cid.Cid, error) {
	contentCid, err := utils.CalculateCid(content)
	if err != nil {
		return cid.Undef, types.Wrap(types.ErrCidCalculation, err)
	}
	return contentCid, nil
}

/**
 * ContentHash binds a content pointer to the exact ciphertext bytes for
 * downstream integrity checks.
 */
func ContentHash(content []byte) string {
	digest := sha256.Sum256(content)
	return hex.EncodeToString(digest[:])
}

// Zeroize overwrites a secret buffer in place.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, types.Wrapf(types.ErrEncryptFailed, "key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func deriveWrapKey(priv, peerPub, ephPub []byte) ([]byte, error) {
	shared, err := curve25519.X25519(priv, peerPub)
	if err != nil {
		return nil, err
	}
	defer Zeroize(shared)

	// salt binds the derived key to this exchange's ephemeral public key.
	kdf := hkdf.New(sha256.New, shared, ephPub, wrapInfo)
	wrapKey := make([]byte, KeySize)
	if _, err := io.ReadFull(kdf, wrapKey); err != nil {
		return nil, err
	}
	return wrapKey, nil
}
