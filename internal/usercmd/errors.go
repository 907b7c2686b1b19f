package usercmd

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrUnknownVariant     = errors.New("unknown proxy/code variant")
	ErrUnorderedPair      = errors.New("base must sort before quote")
	ErrInvertedTicks      = errors.New("bid tick must be below ask tick")
	ErrInvertedLimits     = errors.New("lower limit must not exceed upper limit")
	ErrTicksNotApplicable = errors.New("ticks must be zero for ambient variants")
)

// EncodingRangeError reports a field value that does not fit its declared width.
type EncodingRangeError struct {
	Field  string
	Value  *big.Int
	Bits   int
	Signed bool
}

func (e *EncodingRangeError) Error() string {
	kind := "uint"
	if e.Signed {
		kind = "int"
	}
	if e.Value == nil {
		return fmt.Sprintf("%s: value out of range for %s%d", e.Field, kind, e.Bits)
	}
	return fmt.Sprintf("%s: value %s out of range for %s%d", e.Field, e.Value, kind, e.Bits)
}

// PriceDomainError reports a price that cannot be square-root encoded.
type PriceDomainError struct {
	Price  float64
	Reason string
}

func (e *PriceDomainError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "must be positive and finite"
	}
	return fmt.Sprintf("price %v %s", e.Price, reason)
}

// DecodingLengthError reports a payload of the wrong size.
type DecodingLengthError struct {
	Got  int
	Want int
}

func (e *DecodingLengthError) Error() string {
	return fmt.Sprintf("payload length %d, want %d", e.Got, e.Want)
}
