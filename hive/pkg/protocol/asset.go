package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Symbols as reported by Hive API nodes.
const (
	SymbolHIVE  = "HIVE"
	SymbolHBD   = "HBD"
	SymbolVESTS = "VESTS"
)

var symbolPrecision = map[string]int32{
	SymbolHIVE:  3,
	SymbolHBD:   3,
	SymbolVESTS: 6,
	"STEEM":     3,
	"SBD":       3,
	"TESTS":     3,
	"TBD":       3,
}

// Binary serialization still uses the pre-fork symbol names.
var legacySymbol = map[string]string{
	SymbolHIVE: "STEEM",
	SymbolHBD:  "SBD",
}

var ErrInvalidAsset = errors.New("invalid asset")

// Asset is an amount of one of the native ledger denominations.
type Asset struct {
	Amount    decimal.Decimal
	Precision int32
	Symbol    string
}

// ParseAsset parses the legacy string form, e.g. "1.234 HIVE".
func ParseAsset(s string) (Asset, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Asset{}, fmt.Errorf("%w: %q", ErrInvalidAsset, s)
	}
	amount, err := decimal.NewFromString(fields[0])
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %q: %v", ErrInvalidAsset, s, err)
	}
	symbol := fields[1]
	precision, ok := symbolPrecision[symbol]
	if !ok {
		precision = int32(0)
		if i := strings.IndexByte(fields[0], '.'); i >= 0 {
			precision = int32(len(fields[0]) - i - 1)
		}
	}
	return Asset{Amount: amount, Precision: precision, Symbol: symbol}, nil
}

// NewAsset builds an asset with the symbol's standard precision.
func NewAsset(amount decimal.Decimal, symbol string) Asset {
	return Asset{Amount: amount, Precision: symbolPrecision[symbol], Symbol: symbol}
}

func (a Asset) String() string {
	return a.Amount.StringFixed(a.Precision) + " " + a.Symbol
}

// IsPositive reports whether the amount is greater than zero.
func (a Asset) IsPositive() bool {
	return a.Amount.IsPositive()
}

// Satoshis returns the amount as an integer count of the smallest unit.
func (a Asset) Satoshis() int64 {
	return a.Amount.Shift(a.Precision).IntPart()
}

func (a Asset) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Asset) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAsset, err)
	}
	parsed, err := ParseAsset(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// encode writes amount (int64 LE), precision (uint8) and the symbol
// padded to 7 bytes.
func (a Asset) encode(enc *Encoder) error {
	symbol := a.Symbol
	if legacy, ok := legacySymbol[symbol]; ok {
		symbol = legacy
	}
	if len(symbol) > 7 {
		return fmt.Errorf("%w: symbol %q too long", ErrInvalidAsset, a.Symbol)
	}
	enc.Int64(a.Satoshis())
	enc.Uint8(uint8(a.Precision))
	var padded [7]byte
	copy(padded[:], symbol)
	enc.Bytes(padded[:])
	return nil
}
