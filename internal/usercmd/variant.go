package usercmd

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Proxy selects the dex subsystem that receives a command (the userCmd callpath).
type Proxy uint16

// ProxyLiquidity is the warm-path callpath handling liquidity mint/burn.
const ProxyLiquidity Proxy = 2

func (p Proxy) String() string {
	switch p {
	case ProxyLiquidity:
		return "liquidity"
	default:
		return fmt.Sprintf("proxy(%d)", uint16(p))
	}
}

// ParseProxy accepts a proxy name or its numeric callpath.
func ParseProxy(input string) (Proxy, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "liquidity", "lp", "warm", "2":
		return ProxyLiquidity, nil
	default:
		return 0, fmt.Errorf("unsupported proxy: %s", input)
	}
}

// Code selects the operation within a proxy.
type Code uint8

const (
	CodeMintRangeLiq     Code = 1
	CodeMintRangeBase    Code = 11
	CodeMintRangeQuote   Code = 12
	CodeBurnRangeLiq     Code = 2
	CodeBurnRangeBase    Code = 21
	CodeBurnRangeQuote   Code = 22
	CodeMintAmbientLiq   Code = 3
	CodeMintAmbientBase  Code = 31
	CodeMintAmbientQuote Code = 32
	CodeBurnAmbientLiq   Code = 4
	CodeBurnAmbientBase  Code = 41
	CodeBurnAmbientQuote Code = 42
	CodeHarvestRange     Code = 5
)

type Action uint8

const (
	ActionMint Action = iota + 1
	ActionBurn
	ActionHarvest
)

func (a Action) String() string {
	switch a {
	case ActionMint:
		return "mint"
	case ActionBurn:
		return "burn"
	case ActionHarvest:
		return "harvest"
	default:
		return "unknown"
	}
}

// Shape tells whether the bid/ask ticks carry meaning.
type Shape uint8

const (
	ShapeAmbient Shape = iota + 1
	ShapeRange
)

func (s Shape) String() string {
	switch s {
	case ShapeAmbient:
		return "ambient"
	case ShapeRange:
		return "range"
	default:
		return "unknown"
	}
}

// Denom is the unit of the liquidity field.
type Denom uint8

const (
	DenomLiquidity Denom = iota + 1
	DenomBase
	DenomQuote
)

func (d Denom) String() string {
	switch d {
	case DenomLiquidity:
		return "liquidity"
	case DenomBase:
		return "base"
	case DenomQuote:
		return "quote"
	default:
		return "unknown"
	}
}

// Variant describes how one (proxy, code) pair interprets the command fields.
type Variant struct {
	Proxy  Proxy
	Code   Code
	Name   string
	Action Action
	Shape  Shape
	Denom  Denom
}

// TicksMeaningful reports whether bid/ask ticks are read by the contract.
func (v Variant) TicksMeaningful() bool {
	return v.Shape == ShapeRange
}

// LiquidityMeaningful reports whether the liquidity field is read by the contract.
func (v Variant) LiquidityMeaningful() bool {
	return v.Action != ActionHarvest
}

type variantKey struct {
	proxy Proxy
	code  Code
}

var (
	registryMu sync.RWMutex
	registry   = make(map[variantKey]Variant)
	byName     = make(map[string]variantKey)
)

func init() {
	for _, v := range []Variant{
		{ProxyLiquidity, CodeMintRangeLiq, "mint-range-liq", ActionMint, ShapeRange, DenomLiquidity},
		{ProxyLiquidity, CodeMintRangeBase, "mint-range-base", ActionMint, ShapeRange, DenomBase},
		{ProxyLiquidity, CodeMintRangeQuote, "mint-range-quote", ActionMint, ShapeRange, DenomQuote},
		{ProxyLiquidity, CodeBurnRangeLiq, "burn-range-liq", ActionBurn, ShapeRange, DenomLiquidity},
		{ProxyLiquidity, CodeBurnRangeBase, "burn-range-base", ActionBurn, ShapeRange, DenomBase},
		{ProxyLiquidity, CodeBurnRangeQuote, "burn-range-quote", ActionBurn, ShapeRange, DenomQuote},
		{ProxyLiquidity, CodeMintAmbientLiq, "mint-ambient-liq", ActionMint, ShapeAmbient, DenomLiquidity},
		{ProxyLiquidity, CodeMintAmbientBase, "mint-ambient-base", ActionMint, ShapeAmbient, DenomBase},
		{ProxyLiquidity, CodeMintAmbientQuote, "mint-ambient-quote", ActionMint, ShapeAmbient, DenomQuote},
		{ProxyLiquidity, CodeBurnAmbientLiq, "burn-ambient-liq", ActionBurn, ShapeAmbient, DenomLiquidity},
		{ProxyLiquidity, CodeBurnAmbientBase, "burn-ambient-base", ActionBurn, ShapeAmbient, DenomBase},
		{ProxyLiquidity, CodeBurnAmbientQuote, "burn-ambient-quote", ActionBurn, ShapeAmbient, DenomQuote},
		{ProxyLiquidity, CodeHarvestRange, "harvest-range", ActionHarvest, ShapeRange, DenomLiquidity},
	} {
		if err := Register(v); err != nil {
			panic(err)
		}
	}
}

// Register adds a variant to the table. Existing entries cannot be replaced.
func Register(v Variant) error {
	if v.Name == "" {
		return fmt.Errorf("variant %d/%d: name is required", v.Proxy, v.Code)
	}
	if v.Shape != ShapeAmbient && v.Shape != ShapeRange {
		return fmt.Errorf("variant %s: invalid shape", v.Name)
	}
	if v.Action < ActionMint || v.Action > ActionHarvest {
		return fmt.Errorf("variant %s: invalid action", v.Name)
	}
	if v.Denom < DenomLiquidity || v.Denom > DenomQuote {
		return fmt.Errorf("variant %s: invalid denomination", v.Name)
	}

	key := variantKey{proxy: v.Proxy, code: v.Code}
	name := strings.ToLower(v.Name)

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[key]; ok {
		return fmt.Errorf("variant %d/%d already registered", v.Proxy, v.Code)
	}
	if _, ok := byName[name]; ok {
		return fmt.Errorf("variant name %s already registered", v.Name)
	}
	registry[key] = v
	byName[name] = key
	return nil
}

// Lookup returns the variant registered for a proxy and code.
func Lookup(proxy Proxy, code Code) (Variant, error) {
	registryMu.RLock()
	v, ok := registry[variantKey{proxy: proxy, code: code}]
	registryMu.RUnlock()
	if !ok {
		return Variant{}, fmt.Errorf("%w: proxy %d code %d", ErrUnknownVariant, proxy, code)
	}
	return v, nil
}

// LookupName resolves a variant by its registered name, e.g. "burn-ambient-liq".
func LookupName(name string) (Variant, error) {
	registryMu.RLock()
	key, ok := byName[strings.ToLower(strings.TrimSpace(name))]
	v := registry[key]
	registryMu.RUnlock()
	if !ok {
		return Variant{}, fmt.Errorf("%w: %s", ErrUnknownVariant, name)
	}
	return v, nil
}

// Variants lists the registered variants ordered by proxy then code.
func Variants() []Variant {
	registryMu.RLock()
	out := make([]Variant, 0, len(registry))
	for _, v := range registry {
		out = append(out, v)
	}
	registryMu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Proxy != out[j].Proxy {
			return out[i].Proxy < out[j].Proxy
		}
		return out[i].Code < out[j].Code
	})
	return out
}
