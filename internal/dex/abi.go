package dex

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const crocDexABIJSON = `[
  {
    "inputs": [
      {"internalType": "uint16", "name": "callpath", "type": "uint16"},
      {"internalType": "bytes", "name": "cmd", "type": "bytes"}
    ],
    "name": "userCmd",
    "outputs": [{"internalType": "bytes", "name": "", "type": "bytes"}],
    "stateMutability": "payable",
    "type": "function"
  }
]`

const crocQueryABIJSON = `[
  {
    "inputs": [
      {"internalType": "address", "name": "base", "type": "address"},
      {"internalType": "address", "name": "quote", "type": "address"},
      {"internalType": "uint256", "name": "poolIdx", "type": "uint256"}
    ],
    "name": "queryPrice",
    "outputs": [{"internalType": "uint128", "name": "", "type": "uint128"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "base", "type": "address"},
      {"internalType": "address", "name": "quote", "type": "address"},
      {"internalType": "uint256", "name": "poolIdx", "type": "uint256"}
    ],
    "name": "queryCurveTick",
    "outputs": [{"internalType": "int24", "name": "", "type": "int24"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "base", "type": "address"},
      {"internalType": "address", "name": "quote", "type": "address"},
      {"internalType": "uint256", "name": "poolIdx", "type": "uint256"}
    ],
    "name": "queryLiquidity",
    "outputs": [{"internalType": "uint128", "name": "", "type": "uint128"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "owner", "type": "address"},
      {"internalType": "address", "name": "base", "type": "address"},
      {"internalType": "address", "name": "quote", "type": "address"},
      {"internalType": "uint256", "name": "poolIdx", "type": "uint256"}
    ],
    "name": "queryAmbientTokens",
    "outputs": [
      {"internalType": "uint128", "name": "liq", "type": "uint128"},
      {"internalType": "uint128", "name": "baseQty", "type": "uint128"},
      {"internalType": "uint128", "name": "quoteQty", "type": "uint128"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "owner", "type": "address"},
      {"internalType": "address", "name": "base", "type": "address"},
      {"internalType": "address", "name": "quote", "type": "address"},
      {"internalType": "uint256", "name": "poolIdx", "type": "uint256"},
      {"internalType": "int24", "name": "lowerTick", "type": "int24"},
      {"internalType": "int24", "name": "upperTick", "type": "int24"}
    ],
    "name": "queryRangeTokens",
    "outputs": [
      {"internalType": "uint128", "name": "liq", "type": "uint128"},
      {"internalType": "uint128", "name": "baseQty", "type": "uint128"},
      {"internalType": "uint128", "name": "quoteQty", "type": "uint128"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	crocDexABI     abi.ABI
	crocDexABIOnce sync.Once
	crocDexABIErr  error

	crocQueryABI     abi.ABI
	crocQueryABIOnce sync.Once
	crocQueryABIErr  error
)

// DexABI returns the parsed dispatch contract ABI.
func DexABI() (abi.ABI, error) {
	crocDexABIOnce.Do(func() {
		crocDexABI, crocDexABIErr = abi.JSON(strings.NewReader(crocDexABIJSON))
	})
	return crocDexABI, crocDexABIErr
}

// QueryABI returns the parsed read-only query contract ABI.
func QueryABI() (abi.ABI, error) {
	crocQueryABIOnce.Do(func() {
		crocQueryABI, crocQueryABIErr = abi.JSON(strings.NewReader(crocQueryABIJSON))
	})
	return crocQueryABI, crocQueryABIErr
}
