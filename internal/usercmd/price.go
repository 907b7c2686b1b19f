package usercmd

import (
	"fmt"
	"math"
	"math/big"
)

// PriceFractionBits is the number of fractional bits in a Q64.64 square-root price.
const PriceFractionBits = 64

const (
	floatPrec = 256

	// MinTick and MaxTick bound the dex price grid.
	MinTick int32 = -665454
	MaxTick int32 = 831818

	tickBase = 1.0001
)

var (
	// MinSqrtPrice and MaxSqrtPrice are the Q64.64 prices at MinTick and MaxTick.
	MinSqrtPrice = big.NewInt(65538)
	MaxSqrtPrice, _ = new(big.Int).SetString("21267430153580247136652501917186561138", 10)
)

// EncodePrice converts a quote-per-base price into Q64.64 sqrt form, rounding toward zero.
func EncodePrice(price float64) (*big.Int, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return nil, &PriceDomainError{Price: price}
	}
	return EncodePriceBig(new(big.Float).SetPrec(floatPrec).SetFloat64(price))
}

// EncodePriceBig is EncodePrice for an arbitrary-precision price.
// Prices that encode below MinSqrtPrice are off the dex price grid and rejected.
func EncodePriceBig(price *big.Float) (*big.Int, error) {
	if price == nil || price.Sign() <= 0 || price.IsInf() {
		f := math.NaN()
		if price != nil {
			f, _ = price.Float64()
		}
		return nil, &PriceDomainError{Price: f}
	}

	// price >= 2^128 puts sqrt(price)·2^64 at or above 2^128.
	if price.MantExp(nil) > 2*(liquidityBits-PriceFractionBits) {
		return nil, &EncodingRangeError{Field: "price", Bits: liquidityBits}
	}

	// floor(sqrt(floor(x))) == floor(sqrt(x)), so the integer root is exact.
	scaled, _ := new(big.Float).SetMantExp(price, 2*PriceFractionBits).Int(nil)
	out := new(big.Int).Sqrt(scaled)

	if out.BitLen() > liquidityBits {
		return nil, &EncodingRangeError{Field: "price", Value: out, Bits: liquidityBits}
	}
	if out.Cmp(MinSqrtPrice) < 0 {
		f, _ := price.Float64()
		return nil, &PriceDomainError{Price: f, Reason: "is below the minimum encodable price"}
	}
	return out, nil
}

// DecodePrice converts a Q64.64 sqrt price back into a quote-per-base price.
func DecodePrice(encoded *big.Int) float64 {
	out, _ := DecodePriceBig(encoded).Float64()
	return out
}

// DecodePriceBig squares a Q64.64 sqrt price without loss for any uint128 input.
func DecodePriceBig(encoded *big.Int) *big.Float {
	if encoded == nil || encoded.Sign() <= 0 {
		return new(big.Float).SetPrec(floatPrec)
	}
	root := new(big.Float).SetPrec(floatPrec).SetInt(encoded)
	root.SetMantExp(root, -PriceFractionBits)
	return new(big.Float).SetPrec(floatPrec).Mul(root, root)
}

// SlippageBounds encodes spot·(1−tolerance) and spot·(1+tolerance).
func SlippageBounds(spot, tolerance float64) (*big.Int, *big.Int, error) {
	if math.IsNaN(tolerance) || tolerance < 0 || tolerance >= 1 {
		return nil, nil, fmt.Errorf("slippage tolerance %v must be in [0, 1)", tolerance)
	}
	lower, err := EncodePrice(spot * (1 - tolerance))
	if err != nil {
		return nil, nil, fmt.Errorf("lower bound: %w", err)
	}
	upper, err := EncodePrice(spot * (1 + tolerance))
	if err != nil {
		return nil, nil, fmt.Errorf("upper bound: %w", err)
	}
	return lower, upper, nil
}

// SpotFromDisplay scales a human quote-per-base price into raw token units.
func SpotFromDisplay(display float64, baseDecimals, quoteDecimals uint8) (float64, error) {
	if math.IsNaN(display) || math.IsInf(display, 0) || display <= 0 {
		return 0, &PriceDomainError{Price: display}
	}
	return display * math.Pow10(int(quoteDecimals)-int(baseDecimals)), nil
}

// DisplayFromSpot is the inverse of SpotFromDisplay.
func DisplayFromSpot(spot float64, baseDecimals, quoteDecimals uint8) float64 {
	return spot * math.Pow10(int(baseDecimals)-int(quoteDecimals))
}

// TickToPrice returns 1.0001^tick.
func TickToPrice(tick int32) float64 {
	return math.Pow(tickBase, float64(tick))
}

// PriceToTick returns the greatest tick whose price does not exceed price.
func PriceToTick(price float64) (int32, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, &PriceDomainError{Price: price}
	}
	tick := math.Floor(math.Log(price) / math.Log(tickBase))
	if tick < float64(MinTick) {
		return MinTick, nil
	}
	if tick > float64(MaxTick) {
		return MaxTick, nil
	}
	return int32(tick), nil
}

// PinTick snaps tick to a multiple of grid, rounding down or up, and keeps it on the price grid.
func PinTick(tick int32, grid uint16, up bool) (int32, error) {
	if grid == 0 {
		return 0, fmt.Errorf("tick grid must be greater than zero")
	}
	g := int32(grid)
	pinned := tick / g * g
	if pinned > tick {
		pinned -= g
	}
	if up && pinned < tick {
		pinned += g
	}
	for pinned < MinTick {
		pinned += g
	}
	for pinned > MaxTick {
		pinned -= g
	}
	return pinned, nil
}
