package usercmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	tickBits      = 24
	liquidityBits = 128
	poolIdxBits   = 256

	// ReserveBaseSurplus settles the base side against the caller's surplus collateral.
	ReserveBaseSurplus uint8 = 0x1
	// ReserveQuoteSurplus settles the quote side against the caller's surplus collateral.
	ReserveQuoteSurplus uint8 = 0x2
)

// NativeAsset is the sentinel base address for the chain's native coin.
var NativeAsset = common.Address{}

var (
	// NoLimitLower and NoLimitUpper span the whole uint128 price domain.
	NoLimitLower = new(big.Int)
	NoLimitUpper = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), liquidityBits), big.NewInt(1))

	minTickValue = big.NewInt(-1 << (tickBits - 1))
	maxTickValue = big.NewInt(1<<(tickBits-1) - 1)
)

// Command is one liquidity instruction for the dex dispatch entry point.
type Command struct {
	Code         Code
	Base         common.Address
	Quote        common.Address
	PoolIdx      *big.Int
	BidTick      int32
	AskTick      int32
	Liquidity    *big.Int
	LimitLower   *big.Int
	LimitHigher  *big.Int
	ReserveFlags uint8
	LPConduit    common.Address
}

// Variant returns the descriptor for the command's code under proxy.
func (c Command) Variant(proxy Proxy) (Variant, error) {
	return Lookup(proxy, c.Code)
}

// IsNativeBase reports whether the pool's base side is the native coin.
func (c Command) IsNativeBase() bool {
	return c.Base == NativeAsset
}

// Validate checks the command against the field widths and the variant table.
func Validate(proxy Proxy, c Command) error {
	return validate(proxy, c, true)
}

// ValidateDecoded is Validate without the zero-tick rule for ambient variants,
// whose tick words the dex ignores.
func ValidateDecoded(proxy Proxy, c Command) error {
	return validate(proxy, c, false)
}

func validate(proxy Proxy, c Command, strictTicks bool) error {
	variant, err := Lookup(proxy, c.Code)
	if err != nil {
		return err
	}

	if bytes.Compare(c.Base.Bytes(), c.Quote.Bytes()) >= 0 {
		return fmt.Errorf("%w: base %s quote %s", ErrUnorderedPair, c.Base.Hex(), c.Quote.Hex())
	}
	if err := checkUnsigned("poolIdx", c.PoolIdx, poolIdxBits); err != nil {
		return err
	}
	if err := checkTick("bidTick", c.BidTick); err != nil {
		return err
	}
	if err := checkTick("askTick", c.AskTick); err != nil {
		return err
	}
	if variant.TicksMeaningful() {
		if c.BidTick >= c.AskTick {
			return fmt.Errorf("%w: bid %d ask %d", ErrInvertedTicks, c.BidTick, c.AskTick)
		}
	} else if strictTicks && (c.BidTick != 0 || c.AskTick != 0) {
		return fmt.Errorf("%w: %s bid %d ask %d", ErrTicksNotApplicable, variant.Name, c.BidTick, c.AskTick)
	}
	if err := checkUnsigned("liquidity", c.Liquidity, liquidityBits); err != nil {
		return err
	}
	if err := checkUnsigned("limitLower", c.LimitLower, liquidityBits); err != nil {
		return err
	}
	if err := checkUnsigned("limitHigher", c.LimitHigher, liquidityBits); err != nil {
		return err
	}
	if bigOrZero(c.LimitLower).Cmp(bigOrZero(c.LimitHigher)) > 0 {
		return fmt.Errorf("%w: %s > %s", ErrInvertedLimits, bigOrZero(c.LimitLower), bigOrZero(c.LimitHigher))
	}
	return nil
}

// Equal compares two commands field by field, treating nil integers as zero.
func (c Command) Equal(other Command) bool {
	return c.Code == other.Code &&
		c.Base == other.Base &&
		c.Quote == other.Quote &&
		bigOrZero(c.PoolIdx).Cmp(bigOrZero(other.PoolIdx)) == 0 &&
		c.BidTick == other.BidTick &&
		c.AskTick == other.AskTick &&
		bigOrZero(c.Liquidity).Cmp(bigOrZero(other.Liquidity)) == 0 &&
		bigOrZero(c.LimitLower).Cmp(bigOrZero(other.LimitLower)) == 0 &&
		bigOrZero(c.LimitHigher).Cmp(bigOrZero(other.LimitHigher)) == 0 &&
		c.ReserveFlags == other.ReserveFlags &&
		c.LPConduit == other.LPConduit
}

type commandJSON struct {
	Code         uint8  `json:"code"`
	Base         string `json:"base"`
	Quote        string `json:"quote"`
	PoolIdx      string `json:"pool_idx"`
	BidTick      int32  `json:"bid_tick"`
	AskTick      int32  `json:"ask_tick"`
	Liquidity    string `json:"liquidity"`
	LimitLower   string `json:"limit_lower"`
	LimitHigher  string `json:"limit_higher"`
	ReserveFlags uint8  `json:"reserve_flags"`
	LPConduit    string `json:"lp_conduit"`
}

// MarshalJSON renders integers as decimal strings so 128-bit values survive.
func (c Command) MarshalJSON() ([]byte, error) {
	return json.Marshal(commandJSON{
		Code:         uint8(c.Code),
		Base:         c.Base.Hex(),
		Quote:        c.Quote.Hex(),
		PoolIdx:      bigOrZero(c.PoolIdx).String(),
		BidTick:      c.BidTick,
		AskTick:      c.AskTick,
		Liquidity:    bigOrZero(c.Liquidity).String(),
		LimitLower:   bigOrZero(c.LimitLower).String(),
		LimitHigher:  bigOrZero(c.LimitHigher).String(),
		ReserveFlags: c.ReserveFlags,
		LPConduit:    c.LPConduit.Hex(),
	})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (c *Command) UnmarshalJSON(data []byte) error {
	var raw commandJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, addr := range []string{raw.Base, raw.Quote, raw.LPConduit} {
		if addr != "" && !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid address: %s", addr)
		}
	}

	out := Command{
		Code:         Code(raw.Code),
		Base:         common.HexToAddress(raw.Base),
		Quote:        common.HexToAddress(raw.Quote),
		BidTick:      raw.BidTick,
		AskTick:      raw.AskTick,
		ReserveFlags: raw.ReserveFlags,
		LPConduit:    common.HexToAddress(raw.LPConduit),
	}
	var err error
	if out.PoolIdx, err = parseDecimal("pool_idx", raw.PoolIdx); err != nil {
		return err
	}
	if out.Liquidity, err = parseDecimal("liquidity", raw.Liquidity); err != nil {
		return err
	}
	if out.LimitLower, err = parseDecimal("limit_lower", raw.LimitLower); err != nil {
		return err
	}
	if out.LimitHigher, err = parseDecimal("limit_higher", raw.LimitHigher); err != nil {
		return err
	}
	*c = out
	return nil
}

func parseDecimal(field, value string) (*big.Int, error) {
	if value == "" {
		return new(big.Int), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("%s: invalid integer %q", field, value)
	}
	return parsed, nil
}

func checkUnsigned(field string, value *big.Int, bits int) error {
	v := bigOrZero(value)
	if v.Sign() < 0 {
		return &EncodingRangeError{Field: field, Value: new(big.Int).Set(v), Bits: bits}
	}
	word, overflow := uint256.FromBig(v)
	if overflow || word.BitLen() > bits {
		return &EncodingRangeError{Field: field, Value: new(big.Int).Set(v), Bits: bits}
	}
	return nil
}

func checkTick(field string, tick int32) error {
	v := big.NewInt(int64(tick))
	if v.Cmp(minTickValue) < 0 || v.Cmp(maxTickValue) > 0 {
		return &EncodingRangeError{Field: field, Value: v, Bits: tickBits, Signed: true}
	}
	return nil
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
