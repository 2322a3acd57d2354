// Package crypto handles Hive key material: WIF private keys, STM public
// keys and compact secp256k1 signatures.
package crypto

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // Hive key checksums are ripemd160
)

// PublicKeyPrefix is the address prefix used by Hive mainnet.
const PublicKeyPrefix = "STM"

const wifVersion = 0x80

var (
	ErrInvalidWIF       = errors.New("invalid WIF private key")
	ErrInvalidPublicKey = errors.New("invalid public key")
)

// PrivateKey is a secp256k1 signing key. Its String method never reveals
// the key.
type PrivateKey struct {
	key *btcec.PrivateKey
}

// ParseWIF decodes a base58check wallet-import-format key.
func ParseWIF(wif string) (*PrivateKey, error) {
	raw, err := base58.Decode(strings.TrimSpace(wif))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWIF, err)
	}
	if len(raw) != 37 {
		return nil, fmt.Errorf("%w: unexpected length %d", ErrInvalidWIF, len(raw))
	}
	if raw[0] != wifVersion {
		return nil, fmt.Errorf("%w: unexpected version byte 0x%02x", ErrInvalidWIF, raw[0])
	}
	payload, checksum := raw[:33], raw[33:]
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	if !bytes.Equal(second[:4], checksum) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidWIF)
	}
	priv, _ := btcec.PrivKeyFromBytes(btcec.S256(), payload[1:])
	return &PrivateKey{key: priv}, nil
}

// GenerateKey returns a new random key.
func GenerateKey() (*PrivateKey, error) {
	priv, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return &PrivateKey{key: priv}, nil
}

// WIF encodes the key in wallet import format.
func (k *PrivateKey) WIF() string {
	payload := append([]byte{wifVersion}, k.key.Serialize()...)
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return base58.Encode(append(payload, second[:4]...))
}

// PublicKey returns the STM-prefixed public key.
func (k *PrivateKey) PublicKey() string {
	return EncodePublicKey(k.key.PubKey().SerializeCompressed())
}

func (k *PrivateKey) String() string {
	return "PrivateKey(" + k.PublicKey() + ")"
}

// EncodePublicKey formats a compressed secp256k1 public key.
func EncodePublicKey(compressed []byte) string {
	h := ripemd160.New()
	h.Write(compressed)
	sum := h.Sum(nil)
	return PublicKeyPrefix + base58.Encode(append(append([]byte{}, compressed...), sum[:4]...))
}

// DecodePublicKey parses an STM-prefixed public key into its compressed
// form, verifying the checksum.
func DecodePublicKey(s string) ([]byte, error) {
	if !strings.HasPrefix(s, PublicKeyPrefix) {
		return nil, fmt.Errorf("%w: missing %s prefix", ErrInvalidPublicKey, PublicKeyPrefix)
	}
	raw, err := base58.Decode(strings.TrimPrefix(s, PublicKeyPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(raw) != 37 {
		return nil, fmt.Errorf("%w: unexpected length %d", ErrInvalidPublicKey, len(raw))
	}
	key, checksum := raw[:33], raw[33:]
	h := ripemd160.New()
	h.Write(key)
	if !bytes.Equal(h.Sum(nil)[:4], checksum) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidPublicKey)
	}
	if _, err := btcec.ParsePubKey(key, btcec.S256()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return key, nil
}
