package units

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ToDecimal scales a raw integer amount down by 10^decimals.
func ToDecimal(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// Format renders a raw amount in whole units without trailing zeros.
func Format(raw *big.Int, decimals uint8) string {
	return ToDecimal(raw, decimals).String()
}

// Parse converts a human amount such as "1.5" into raw units.
// Amounts with more fractional digits than decimals are rejected.
func Parse(amount string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("amount %q is negative", amount)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", amount, decimals)
	}
	return scaled.BigInt(), nil
}

// ParseRaw accepts either a raw integer ("1000000") or, when the input
// carries a decimal point, a human amount scaled by decimals.
func ParseRaw(amount string, decimals uint8) (*big.Int, error) {
	if v, ok := new(big.Int).SetString(amount, 0); ok {
		if v.Sign() < 0 {
			return nil, fmt.Errorf("amount %q is negative", amount)
		}
		return v, nil
	}
	return Parse(amount, decimals)
}

// ParseAmount reads a human amount, or an integer count of raw units when raw is set.
func ParseAmount(amount string, decimals uint8, raw bool) (*big.Int, error) {
	if !raw {
		return Parse(amount, decimals)
	}
	v, ok := new(big.Int).SetString(amount, 0)
	if !ok {
		return nil, fmt.Errorf("raw amount %q must be an integer", amount)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("amount %q is negative", amount)
	}
	return v, nil
}
