package dex

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cronii/crikeyooo/internal/usercmd"
)

// ParseAddress converts a hex address. "eth" and "native" name the zero
// address the dex uses for the native coin.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	switch strings.ToLower(input) {
	case "eth", "native":
		return usercmd.NativeAsset, nil
	}
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %s", input)
	}
	return common.HexToAddress(input), nil
}

// ParseAddresses converts string addresses into common.Address.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		address, err := ParseAddress(input)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, address)
	}
	return addresses, nil
}

// NewPoolKey orders a token pair into base and quote. flipped reports
// whether a was the numerically larger token.
func NewPoolKey(a, b common.Address, poolIdx uint64) (key PoolKey, flipped bool, err error) {
	switch cmp := bytes.Compare(a.Bytes(), b.Bytes()); {
	case cmp == 0:
		return PoolKey{}, false, fmt.Errorf("%w: identical tokens %s", usercmd.ErrUnorderedPair, a.Hex())
	case cmp < 0:
		return PoolKey{Base: a, Quote: b, PoolIdx: new(big.Int).SetUint64(poolIdx)}, false, nil
	default:
		return PoolKey{Base: b, Quote: a, PoolIdx: new(big.Int).SetUint64(poolIdx)}, true, nil
	}
}
