package crypto

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec"
)

// ErrNonCanonical is returned when a signature does not satisfy the
// canonical form nodes accept. Callers change the digest and sign again.
var ErrNonCanonical = errors.New("non-canonical signature")

// SignDigest produces a 65-byte compact signature (recovery header, r, s)
// over a 32-byte digest.
func (k *PrivateKey) SignDigest(digest []byte) ([]byte, error) {
	if len(digest) != 32 {
		return nil, fmt.Errorf("digest must be 32 bytes, got %d", len(digest))
	}
	sig, err := btcec.SignCompact(btcec.S256(), k.key, digest, true)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}
	if !IsCanonical(sig) {
		return nil, ErrNonCanonical
	}
	return sig, nil
}

// IsCanonical reports whether r and s are both positive and minimally
// encoded when read as 32-byte big-endian integers.
func IsCanonical(sig []byte) bool {
	if len(sig) != 65 {
		return false
	}
	return sig[1]&0x80 == 0 &&
		!(sig[1] == 0 && sig[2]&0x80 == 0) &&
		sig[33]&0x80 == 0 &&
		!(sig[33] == 0 && sig[34]&0x80 == 0)
}

// RecoverPublicKey returns the STM public key that produced sig over digest.
func RecoverPublicKey(sig, digest []byte) (string, error) {
	pub, _, err := btcec.RecoverCompact(btcec.S256(), sig, digest)
	if err != nil {
		return "", fmt.Errorf("failed to recover public key: %w", err)
	}
	return EncodePublicKey(pub.SerializeCompressed()), nil
}
