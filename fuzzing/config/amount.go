package config

import (
	"encoding/json"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Amount describes a 256-bit unsigned ledger amount in a configuration file. It is written as a decimal string and
// read from decimal, scientific ("1e18") or hexadecimal ("0x1337") strings. An empty string is zero.
type Amount struct {
	uint256.Int
}

// NewAmount creates an Amount holding the provided value.
func NewAmount(value uint64) Amount {
	return Amount{*uint256.NewInt(value)}
}

// NewAmountFromUint256 creates an Amount holding a copy of the provided value.
func NewAmountFromUint256(value *uint256.Int) Amount {
	return Amount{*new(uint256.Int).Set(value)}
}

// ParseAmount parses an Amount from a decimal, scientific or hexadecimal string.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, nil
	}

	var value *big.Int
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		var ok bool
		value, ok = new(big.Int).SetString(s[2:], 16)
		if !ok {
			return Amount{}, errors.Errorf("invalid hexadecimal amount '%s'", s)
		}
	} else {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return Amount{}, errors.Wrapf(err, "invalid amount '%s'", s)
		}
		if !d.IsInteger() {
			return Amount{}, errors.Errorf("amount '%s' is not an integer", s)
		}
		value = d.BigInt()
	}

	if value.Sign() < 0 {
		return Amount{}, errors.Errorf("amount '%s' is negative", s)
	}
	result, overflow := uint256.FromBig(value)
	if overflow {
		return Amount{}, errors.Errorf("amount '%s' does not fit in 256 bits", s)
	}
	return Amount{*result}, nil
}

// Uint256 returns a copy of the amount as a uint256.Int.
func (a Amount) Uint256() *uint256.Int {
	return new(uint256.Int).Set(&a.Int)
}

// String returns the decimal representation of the amount.
func (a Amount) String() string {
	return a.Int.Dec()
}

// MarshalJSON writes the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Int.Dec())
}

// UnmarshalJSON reads the amount from a decimal, scientific or hexadecimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.WithStack(err)
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
