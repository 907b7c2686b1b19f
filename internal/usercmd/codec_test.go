package usercmd

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	testToken   = common.HexToAddress("0xa6024a169c2fc6bfd0feabee150b86d268aaf4ce")
	testConduit = common.HexToAddress("0xd97D770755C7f8ea1cbD6EA2D0C1A1EF3264e277")
)

func pow2(n uint) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), n)
}

func hexInt(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		t.Fatalf("bad hex int %s", s)
	}
	return v
}

func validCommand(v Variant) Command {
	cmd := Command{
		Code:        v.Code,
		Base:        NativeAsset,
		Quote:       testToken,
		PoolIdx:     big.NewInt(36000),
		Liquidity:   big.NewInt(1000),
		LimitLower:  new(big.Int).Set(NoLimitLower),
		LimitHigher: new(big.Int).Set(NoLimitUpper),
		LPConduit:   testConduit,
	}
	if v.TicksMeaningful() {
		cmd.BidTick = -640000
		cmd.AskTick = 80000
	}
	return cmd
}

func TestEncodeMatchesRecordedPayload(t *testing.T) {
	words := []string{
		"000000000000000000000000000000000000000000000000000000000000000b",
		"0000000000000000000000000000000000000000000000000000000000000000",
		"000000000000000000000000a6024a169c2fc6bfd0feabee150b86d268aaf4ce",
		"0000000000000000000000000000000000000000000000000000000000008ca0",
		"fffffffffffffffffffffffffffffffffffffffffffffffffffffffffff63c00",
		"0000000000000000000000000000000000000000000000000000000000000000",
		"00000000000000000000000000000000000000000000000000038d7ea4c68000",
		"000000000000000000000000000000000000000000000046b274160800000000",
		"0000000000000000000000000000000000000000000000640000000000000000",
		"0000000000000000000000000000000000000000000000000000000000000000",
		"000000000000000000000000d97d770755c7f8ea1cbd6ea2d0c1a1ef3264e277",
	}
	want, err := hex.DecodeString(strings.Join(words, ""))
	if err != nil {
		t.Fatalf("decode golden: %v", err)
	}

	cmd := Command{
		Code:        CodeMintRangeBase,
		Base:        NativeAsset,
		Quote:       testToken,
		PoolIdx:     big.NewInt(36000),
		BidTick:     -640000,
		AskTick:     0,
		Liquidity:   hexInt(t, "38d7ea4c68000"),
		LimitLower:  hexInt(t, "46b274160800000000"),
		LimitHigher: hexInt(t, "640000000000000000"),
		LPConduit:   testConduit,
	}

	got, err := Encode(ProxyLiquidity, cmd)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("payload mismatch:\n got %x\nwant %x", got, want)
	}
}

func TestRoundTripAllVariants(t *testing.T) {
	for _, v := range Variants() {
		if v.Proxy != ProxyLiquidity {
			continue
		}
		cmd := validCommand(v)
		data, err := Encode(v.Proxy, cmd)
		if err != nil {
			t.Fatalf("%s: encode: %v", v.Name, err)
		}
		if len(data) != PayloadSize {
			t.Fatalf("%s: payload size %d", v.Name, len(data))
		}
		decoded, err := Decode(v.Proxy, data)
		if err != nil {
			t.Fatalf("%s: decode: %v", v.Name, err)
		}
		if !decoded.Equal(cmd) {
			t.Fatalf("%s: round-trip mismatch: %+v != %+v", v.Name, decoded, cmd)
		}
	}
}

func TestBurnAmbientNativePool(t *testing.T) {
	cmd := Command{
		Code:        CodeBurnAmbientLiq,
		Base:        NativeAsset,
		Quote:       testToken,
		PoolIdx:     big.NewInt(36000),
		Liquidity:   big.NewInt(1000),
		LimitLower:  big.NewInt(0),
		LimitHigher: new(big.Int).Sub(pow2(128), big.NewInt(1)),
		LPConduit:   common.HexToAddress("0x4111edb29044B41F3a0EE318B417899086c613f3"),
	}

	data, err := Encode(ProxyLiquidity, cmd)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(data) != PayloadSize {
		t.Fatalf("payload size %d", len(data))
	}
	if !bytes.Equal(data[32:64], make([]byte, 32)) {
		t.Fatalf("native base word must be zero: %x", data[32:64])
	}

	decoded, err := Decode(ProxyLiquidity, data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Equal(cmd) {
		t.Fatalf("round-trip mismatch: %+v != %+v", decoded, cmd)
	}
	if !decoded.IsNativeBase() {
		t.Fatalf("expected native base")
	}
	variant, err := decoded.Variant(ProxyLiquidity)
	if err != nil {
		t.Fatalf("variant: %v", err)
	}
	if variant.TicksMeaningful() || variant.Action != ActionBurn || variant.Denom != DenomLiquidity {
		t.Fatalf("variant mismatch: %+v", variant)
	}
}

func TestMintRangeSignedTicks(t *testing.T) {
	v, err := Lookup(ProxyLiquidity, CodeMintRangeBase)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	cmd := validCommand(v)

	data, err := Encode(ProxyLiquidity, cmd)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	bidWord := data[4*32 : 5*32]
	for _, b := range bidWord[:29] {
		if b != 0xff {
			t.Fatalf("bid tick not sign-extended: %x", bidWord)
		}
	}

	decoded, err := Decode(ProxyLiquidity, data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.BidTick != -640000 || decoded.AskTick != 80000 {
		t.Fatalf("tick mismatch: %d/%d", decoded.BidTick, decoded.AskTick)
	}
}

func TestEncodeWidthEnforcement(t *testing.T) {
	ambient, _ := Lookup(ProxyLiquidity, CodeBurnAmbientLiq)
	rng, _ := Lookup(ProxyLiquidity, CodeMintRangeBase)

	cases := []struct {
		name  string
		field string
		cmd   func() Command
	}{
		{"liquidity 2^128", "liquidity", func() Command {
			c := validCommand(ambient)
			c.Liquidity = pow2(128)
			return c
		}},
		{"poolIdx 2^256", "poolIdx", func() Command {
			c := validCommand(ambient)
			c.PoolIdx = pow2(256)
			return c
		}},
		{"negative poolIdx", "poolIdx", func() Command {
			c := validCommand(ambient)
			c.PoolIdx = big.NewInt(-1)
			return c
		}},
		{"ask tick 2^23", "askTick", func() Command {
			c := validCommand(rng)
			c.AskTick = 1 << 23
			return c
		}},
		{"bid tick -2^23-1", "bidTick", func() Command {
			c := validCommand(rng)
			c.BidTick = -(1 << 23) - 1
			return c
		}},
		{"limit above uint128", "limitHigher", func() Command {
			c := validCommand(ambient)
			c.LimitHigher = pow2(128)
			return c
		}},
	}

	for _, tc := range cases {
		_, err := Encode(ProxyLiquidity, tc.cmd())
		var rangeErr *EncodingRangeError
		if !errors.As(err, &rangeErr) {
			t.Fatalf("%s: expected EncodingRangeError, got %v", tc.name, err)
		}
		if rangeErr.Field != tc.field {
			t.Fatalf("%s: field %s, want %s", tc.name, rangeErr.Field, tc.field)
		}
	}
}

func TestEncodeAcceptsWidthBoundaries(t *testing.T) {
	rng, _ := Lookup(ProxyLiquidity, CodeBurnRangeLiq)
	cmd := validCommand(rng)
	cmd.BidTick = -(1 << 23)
	cmd.AskTick = 1<<23 - 1
	cmd.Liquidity = new(big.Int).Sub(pow2(128), big.NewInt(1))
	cmd.PoolIdx = new(big.Int).Sub(pow2(256), big.NewInt(1))

	data, err := Encode(ProxyLiquidity, cmd)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := Decode(ProxyLiquidity, data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Equal(cmd) {
		t.Fatalf("round-trip mismatch: %+v != %+v", decoded, cmd)
	}
}

func TestValidateRejectsInvalidShapes(t *testing.T) {
	ambient, _ := Lookup(ProxyLiquidity, CodeMintAmbientQuote)
	rng, _ := Lookup(ProxyLiquidity, CodeBurnRangeLiq)

	unordered := validCommand(ambient)
	unordered.Base, unordered.Quote = testToken, NativeAsset
	if err := Validate(ProxyLiquidity, unordered); !errors.Is(err, ErrUnorderedPair) {
		t.Fatalf("expected ErrUnorderedPair, got %v", err)
	}

	same := validCommand(ambient)
	same.Base = testToken
	if err := Validate(ProxyLiquidity, same); !errors.Is(err, ErrUnorderedPair) {
		t.Fatalf("expected ErrUnorderedPair for equal assets, got %v", err)
	}

	inverted := validCommand(rng)
	inverted.BidTick, inverted.AskTick = 100, 100
	if err := Validate(ProxyLiquidity, inverted); !errors.Is(err, ErrInvertedTicks) {
		t.Fatalf("expected ErrInvertedTicks, got %v", err)
	}

	ambientTicks := validCommand(ambient)
	ambientTicks.AskTick = 10
	if err := Validate(ProxyLiquidity, ambientTicks); !errors.Is(err, ErrTicksNotApplicable) {
		t.Fatalf("expected ErrTicksNotApplicable, got %v", err)
	}

	limits := validCommand(ambient)
	limits.LimitLower, limits.LimitHigher = big.NewInt(10), big.NewInt(9)
	if err := Validate(ProxyLiquidity, limits); !errors.Is(err, ErrInvertedLimits) {
		t.Fatalf("expected ErrInvertedLimits, got %v", err)
	}

	unknown := validCommand(ambient)
	unknown.Code = 200
	if _, err := Encode(ProxyLiquidity, unknown); !errors.Is(err, ErrUnknownVariant) {
		t.Fatalf("expected ErrUnknownVariant, got %v", err)
	}
	if _, err := Encode(Proxy(7), validCommand(ambient)); !errors.Is(err, ErrUnknownVariant) {
		t.Fatalf("expected ErrUnknownVariant for proxy, got %v", err)
	}
}

func TestDecodeLength(t *testing.T) {
	for _, size := range []int{0, PayloadSize - 1, PayloadSize + 1, PayloadSize + 32} {
		_, err := Decode(ProxyLiquidity, make([]byte, size))
		var lenErr *DecodingLengthError
		if !errors.As(err, &lenErr) {
			t.Fatalf("size %d: expected DecodingLengthError, got %v", size, err)
		}
		if lenErr.Got != size || lenErr.Want != PayloadSize {
			t.Fatalf("size %d: unexpected error fields %+v", size, lenErr)
		}
	}
}

func TestDecodeRejectsDirtyWords(t *testing.T) {
	v, _ := Lookup(ProxyLiquidity, CodeBurnAmbientLiq)
	data, err := Encode(ProxyLiquidity, validCommand(v))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	dirtyAddr := append([]byte(nil), data...)
	dirtyAddr[2*32] = 0x01
	if _, err := Decode(ProxyLiquidity, dirtyAddr); err == nil {
		t.Fatalf("expected error for dirty address padding")
	}

	wideLiq := append([]byte(nil), data...)
	wideLiq[6*32] = 0x01
	var rangeErr *EncodingRangeError
	if _, err := Decode(ProxyLiquidity, wideLiq); !errors.As(err, &rangeErr) {
		t.Fatalf("expected EncodingRangeError for wide liquidity, got %v", err)
	}
}

func TestDecodeIgnoresAmbientTickWords(t *testing.T) {
	v, _ := Lookup(ProxyLiquidity, CodeBurnAmbientLiq)
	data, err := Encode(ProxyLiquidity, validCommand(v))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	data[6*32-1] = 10
	decoded, err := Decode(ProxyLiquidity, data)
	if err != nil {
		t.Fatalf("decode with ambient ask tick: %v", err)
	}
	if decoded.AskTick != 10 || decoded.BidTick != 0 {
		t.Fatalf("ticks = %d/%d, want 0/10", decoded.BidTick, decoded.AskTick)
	}
	if err := Validate(ProxyLiquidity, decoded); !errors.Is(err, ErrTicksNotApplicable) {
		t.Fatalf("encode-side validation should still reject, got %v", err)
	}
}

func TestRegisterExtendsTable(t *testing.T) {
	custom := Variant{
		Proxy:  Proxy(0x7ffe),
		Code:   Code(99),
		Name:   "test-mint-ambient-custom",
		Action: ActionMint,
		Shape:  ShapeAmbient,
		Denom:  DenomBase,
	}
	if _, err := Lookup(custom.Proxy, custom.Code); err != nil {
		if err := Register(custom); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	if err := Register(custom); err == nil {
		t.Fatalf("expected duplicate registration error")
	}

	cmd := validCommand(custom)
	data, err := Encode(custom.Proxy, cmd)
	if err != nil {
		t.Fatalf("encode custom: %v", err)
	}

	ambient, _ := Lookup(ProxyLiquidity, CodeBurnAmbientLiq)
	existing := validCommand(ambient)
	existingData, err := Encode(ProxyLiquidity, existing)
	if err != nil {
		t.Fatalf("encode existing: %v", err)
	}
	if !bytes.Equal(data[32:], existingData[32:]) {
		t.Fatalf("registering a variant changed the shared field layout")
	}

	byName, err := LookupName("TEST-MINT-AMBIENT-CUSTOM")
	if err != nil || byName.Code != custom.Code {
		t.Fatalf("lookup by name: %+v %v", byName, err)
	}
}

func TestEncodeConcurrent(t *testing.T) {
	v, _ := Lookup(ProxyLiquidity, CodeMintRangeBase)
	want, err := Encode(ProxyLiquidity, validCommand(v))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Encode(ProxyLiquidity, validCommand(v))
			if err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(got, want) {
				errs <- errors.New("payload mismatch")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent encode: %v", err)
	}
}

func TestCommandJSONRoundTrip(t *testing.T) {
	v, _ := Lookup(ProxyLiquidity, CodeMintRangeBase)
	cmd := validCommand(v)

	data, err := cmd.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"limit_higher":"340282366920938463463374607431768211455"`) {
		t.Fatalf("limit not rendered as decimal string: %s", data)
	}

	var decoded Command
	if err := decoded.UnmarshalJSON(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.Equal(cmd) {
		t.Fatalf("round-trip mismatch: %+v != %+v", decoded, cmd)
	}
}
