package dex

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/cronii/crikeyooo/internal/usercmd"
)

func TestParseAddresses(t *testing.T) {
	got, err := ParseAddresses([]string{" 0xa6024a169c2fc6bfd0feabee150b86d268aaf4ce ", "", "eth"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 addresses, got %d", len(got))
	}
	if got[0] != testToken || got[1] != usercmd.NativeAsset {
		t.Fatalf("unexpected addresses: %v", got)
	}

	if _, err := ParseAddresses([]string{"0x1234"}); err == nil {
		t.Fatalf("expected error for short address")
	}
}

func TestNewPoolKeyOrdersPair(t *testing.T) {
	key, flipped, err := NewPoolKey(testToken, usercmd.NativeAsset, 36000)
	if err != nil {
		t.Fatalf("pool key: %v", err)
	}
	if !flipped || key.Base != usercmd.NativeAsset || key.Quote != testToken {
		t.Fatalf("unexpected key: %+v flipped=%v", key, flipped)
	}
	if key.PoolIdx.Uint64() != 36000 {
		t.Fatalf("pool idx = %s", key.PoolIdx)
	}

	key, flipped, err = NewPoolKey(usercmd.NativeAsset, testToken, 36000)
	if err != nil || flipped || key.Base != usercmd.NativeAsset {
		t.Fatalf("ordered pair should not flip: %+v %v %v", key, flipped, err)
	}

	same := common.HexToAddress("0x01")
	if _, _, err := NewPoolKey(same, same, 1); !errors.Is(err, usercmd.ErrUnorderedPair) {
		t.Fatalf("expected ErrUnorderedPair, got %v", err)
	}
}
