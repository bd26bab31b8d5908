// Package coin converts between native-coin base units and human-readable
// decimal amounts. All ledger arithmetic uses uint64 base units; decimals
// exist only at the edges (CLI input, RPC display).
package coin

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Denomination constants for the native coin.
const (
	Decimals  = 12
	Coin      = 1_000_000_000_000 // 10^12 base units per coin
	MilliCoin = 1_000_000_000     // 10^9
	MicroCoin = 1_000_000         // 10^6
)

// Parse converts a decimal amount string ("1.25") to base units.
// Rejects negative values, more than Decimals fractional places, and
// amounts that do not fit in uint64.
func Parse(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative amount")
	}

	units := d.Shift(Decimals)
	if !units.IsInteger() {
		return 0, fmt.Errorf("too many decimal places (max %d)", Decimals)
	}
	bi := units.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("amount too large")
	}
	return bi.Uint64(), nil
}

// Format converts base units to a decimal string with full precision
// (e.g. 1500000000000 -> "1.500000000000").
func Format(units uint64) string {
	return decimal.NewFromUint64(units).Shift(-Decimals).StringFixed(Decimals)
}

// FormatShort converts base units to a decimal string with trailing
// zeros trimmed (e.g. 1500000000000 -> "1.5").
func FormatShort(units uint64) string {
	return decimal.NewFromUint64(units).Shift(-Decimals).String()
}
