package protocol

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/thecrazygm/claim-rewards/hive/pkg/crypto"
)

// HiveChainID is the mainnet chain id mixed into every signing digest.
const HiveChainID = "beeab0de00000000000000000000000000000000000000000000000000000000"

const timeLayout = "2006-01-02T15:04:05"

// maxSignAttempts bounds the expiration bumps spent looking for a canonical
// signature.
const maxSignAttempts = 64

// Time is a UTC timestamp in the node's format, without zone suffix.
type Time struct {
	time.Time
}

func (t Time) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(timeLayout))
}

func (t *Time) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid time %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

// Transaction is an unsigned or signed ledger transaction.
type Transaction struct {
	RefBlockNum    uint16     `json:"ref_block_num"`
	RefBlockPrefix uint32     `json:"ref_block_prefix"`
	Expiration     Time       `json:"expiration"`
	Operations     Operations `json:"operations"`
	Extensions     []any      `json:"extensions"`
	Signatures     []string   `json:"signatures"`
}

// NewTransaction references the given head block and expires after ttl
// from now.
func NewTransaction(headBlockNum uint32, headBlockID string, now time.Time, ttl time.Duration, ops ...Operation) (*Transaction, error) {
	if len(ops) == 0 {
		return nil, errors.New("transaction needs at least one operation")
	}
	id, err := hex.DecodeString(headBlockID)
	if err != nil || len(id) < 8 {
		return nil, fmt.Errorf("invalid head block id %q", headBlockID)
	}
	return &Transaction{
		RefBlockNum:    uint16(headBlockNum & 0xffff),
		RefBlockPrefix: binary.LittleEndian.Uint32(id[4:8]),
		Expiration:     Time{now.UTC().Add(ttl).Truncate(time.Second)},
		Operations:     ops,
		Extensions:     []any{},
		Signatures:     []string{},
	}, nil
}

// Serialize returns the binary form without signatures.
func (tx *Transaction) Serialize() ([]byte, error) {
	var enc Encoder
	enc.Uint16(tx.RefBlockNum)
	enc.Uint32(tx.RefBlockPrefix)
	enc.Uint32(uint32(tx.Expiration.Unix()))
	enc.Varint(uint64(len(tx.Operations)))
	for _, op := range tx.Operations {
		enc.Varint(op.OpID())
		if err := op.encode(&enc); err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", op.OpName(), err)
		}
	}
	enc.Varint(0) // extensions
	return enc.Result(), nil
}

// Digest is sha256(chain id || serialized transaction).
func (tx *Transaction) Digest(chainID []byte) ([]byte, error) {
	body, err := tx.Serialize()
	if err != nil {
		return nil, err
	}
	h := sha256.New()
	h.Write(chainID)
	h.Write(body)
	return h.Sum(nil), nil
}

// ID is the transaction id nodes report: the first 20 bytes of
// sha256(serialized transaction), hex encoded.
func (tx *Transaction) ID() (string, error) {
	body, err := tx.Serialize()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:20]), nil
}

// Sign replaces the signatures with one from key. Nodes reject
// non-canonical signatures and signing is deterministic, so the expiration
// is moved forward a second at a time until the digest yields a canonical
// one.
func (tx *Transaction) Sign(key *crypto.PrivateKey, chainID []byte) error {
	for attempt := 0; attempt < maxSignAttempts; attempt++ {
		digest, err := tx.Digest(chainID)
		if err != nil {
			return err
		}
		sig, err := key.SignDigest(digest)
		if errors.Is(err, crypto.ErrNonCanonical) {
			tx.Expiration = Time{tx.Expiration.Add(time.Second)}
			continue
		}
		if err != nil {
			return err
		}
		tx.Signatures = []string{hex.EncodeToString(sig)}
		return nil
	}
	return fmt.Errorf("no canonical signature after %d attempts", maxSignAttempts)
}

// ParseChainID decodes a hex chain id.
func ParseChainID(s string) ([]byte, error) {
	id, err := hex.DecodeString(s)
	if err != nil || len(id) != 32 {
		return nil, fmt.Errorf("invalid chain id %q", s)
	}
	return id, nil
}
