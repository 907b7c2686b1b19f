package usercmd

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// PayloadSize is the byte length of an encoded command: eleven static ABI words.
const PayloadSize = 11 * 32

var payloadFields = []struct {
	name   string
	typ    string
	bits   int
	signed bool
}{
	{"code", "uint8", 8, false},
	{"base", "address", 160, false},
	{"quote", "address", 160, false},
	{"poolIdx", "uint256", 256, false},
	{"bidTick", "int24", 24, true},
	{"askTick", "int24", 24, true},
	{"liquidity", "uint128", 128, false},
	{"limitLower", "uint128", 128, false},
	{"limitHigher", "uint128", 128, false},
	{"reserveFlags", "uint8", 8, false},
	{"lpConduit", "address", 160, false},
}

var (
	payloadArgs     abi.Arguments
	payloadArgsOnce sync.Once
	payloadArgsErr  error
)

// PayloadArguments returns the ABI argument list of the command tuple.
func PayloadArguments() (abi.Arguments, error) {
	payloadArgsOnce.Do(func() {
		args := make(abi.Arguments, 0, len(payloadFields))
		for _, field := range payloadFields {
			typ, err := abi.NewType(field.typ, "", nil)
			if err != nil {
				payloadArgsErr = fmt.Errorf("abi type %s: %w", field.typ, err)
				return
			}
			args = append(args, abi.Argument{Name: field.name, Type: typ})
		}
		payloadArgs = args
	})
	return payloadArgs, payloadArgsErr
}

// Encode validates the command and returns its ABI payload for proxy.
func Encode(proxy Proxy, c Command) ([]byte, error) {
	if err := Validate(proxy, c); err != nil {
		return nil, err
	}
	args, err := PayloadArguments()
	if err != nil {
		return nil, err
	}

	data, err := args.Pack(
		uint8(c.Code),
		c.Base,
		c.Quote,
		new(big.Int).Set(bigOrZero(c.PoolIdx)),
		big.NewInt(int64(c.BidTick)),
		big.NewInt(int64(c.AskTick)),
		new(big.Int).Set(bigOrZero(c.Liquidity)),
		new(big.Int).Set(bigOrZero(c.LimitLower)),
		new(big.Int).Set(bigOrZero(c.LimitHigher)),
		c.ReserveFlags,
		c.LPConduit,
	)
	if err != nil {
		return nil, fmt.Errorf("pack command: %w", err)
	}
	return data, nil
}

// Decode parses a payload previously produced by Encode for proxy.
func Decode(proxy Proxy, data []byte) (Command, error) {
	if len(data) != PayloadSize {
		return Command{}, &DecodingLengthError{Got: len(data), Want: PayloadSize}
	}
	for idx, field := range payloadFields {
		if err := checkWord(field.name, data[idx*32:(idx+1)*32], field.bits, field.signed); err != nil {
			return Command{}, err
		}
	}

	args, err := PayloadArguments()
	if err != nil {
		return Command{}, err
	}
	values, err := args.Unpack(data)
	if err != nil {
		return Command{}, fmt.Errorf("unpack command: %w", err)
	}
	if len(values) != len(payloadFields) {
		return Command{}, fmt.Errorf("unexpected command values: %d", len(values))
	}

	code, err := asUint8(values[0])
	if err != nil {
		return Command{}, fmt.Errorf("code: %w", err)
	}
	base, err := asAddress(values[1])
	if err != nil {
		return Command{}, fmt.Errorf("base: %w", err)
	}
	quote, err := asAddress(values[2])
	if err != nil {
		return Command{}, fmt.Errorf("quote: %w", err)
	}
	poolIdx, err := asBigInt(values[3])
	if err != nil {
		return Command{}, fmt.Errorf("poolIdx: %w", err)
	}
	bidTick, err := asTick("bidTick", values[4])
	if err != nil {
		return Command{}, err
	}
	askTick, err := asTick("askTick", values[5])
	if err != nil {
		return Command{}, err
	}
	liq, err := asBigInt(values[6])
	if err != nil {
		return Command{}, fmt.Errorf("liquidity: %w", err)
	}
	lower, err := asBigInt(values[7])
	if err != nil {
		return Command{}, fmt.Errorf("limitLower: %w", err)
	}
	higher, err := asBigInt(values[8])
	if err != nil {
		return Command{}, fmt.Errorf("limitHigher: %w", err)
	}
	flags, err := asUint8(values[9])
	if err != nil {
		return Command{}, fmt.Errorf("reserveFlags: %w", err)
	}
	conduit, err := asAddress(values[10])
	if err != nil {
		return Command{}, fmt.Errorf("lpConduit: %w", err)
	}

	cmd := Command{
		Code:         Code(code),
		Base:         base,
		Quote:        quote,
		PoolIdx:      poolIdx,
		BidTick:      bidTick,
		AskTick:      askTick,
		Liquidity:    liq,
		LimitLower:   lower,
		LimitHigher:  higher,
		ReserveFlags: flags,
		LPConduit:    conduit,
	}
	if err := ValidateDecoded(proxy, cmd); err != nil {
		return Command{}, fmt.Errorf("decoded command: %w", err)
	}
	return cmd, nil
}

// checkWord verifies that a 32-byte word holds a value of the given width.
// Signed values must be sign-extended across the whole word.
func checkWord(field string, word []byte, bits int, signed bool) error {
	value := new(big.Int).SetBytes(word)
	if signed && value.Bit(255) == 1 {
		value.Sub(value, new(big.Int).Lsh(big.NewInt(1), 256))
	}

	if !signed {
		if value.BitLen() > bits {
			return &EncodingRangeError{Field: field, Value: value, Bits: bits}
		}
		return nil
	}

	limit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
	if value.Cmp(new(big.Int).Neg(limit)) < 0 || value.Cmp(limit) >= 0 {
		return &EncodingRangeError{Field: field, Value: value, Bits: bits, Signed: true}
	}
	return nil
}

func asTick(field string, value interface{}) (int32, error) {
	v, err := asBigInt(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if v.Cmp(minTickValue) < 0 || v.Cmp(maxTickValue) > 0 {
		return 0, &EncodingRangeError{Field: field, Value: v, Bits: tickBits, Signed: true}
	}
	return int32(v.Int64()), nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 0xff {
			return 0, &EncodingRangeError{Value: new(big.Int).Set(v), Bits: 8}
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
