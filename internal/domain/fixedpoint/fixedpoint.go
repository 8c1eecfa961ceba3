// Package fixedpoint converts protocol fixed-point integers into float64 values.
//
// Debt figures are scaled by 10^18 (the "med precise" unit). Ownership fractions
// recorded per holder use 10^27. Conversions go through shopspring/decimal so the
// only precision loss is the final float64 rounding.
package fixedpoint

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Precision constants, in decimal places.
const (
	UnitDecimals    int32 = 18
	PreciseDecimals int32 = 27
)

// Unit is 10^18 as a big integer.
var Unit = new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(UnitDecimals)), nil) //nolint:gochecknoglobals // constant-like

// ToDecimal divides v by 10^18. A nil value converts to 0.
func ToDecimal(v *big.Int) float64 {
	return ScaleDown(v, UnitDecimals)
}

// ScaleDown divides v by 10^decimals.
func ScaleDown(v *big.Int, decimals int32) float64 {
	if v == nil {
		return 0
	}
	f, _ := decimal.NewFromBigInt(v, -decimals).Float64()
	return f
}

// Parse reads a base-10 integer string as returned by indexers for BigInt fields.
func Parse(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty value", ErrMalformed)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return v, nil
}

// Ratio returns num/den as a float64, or 0 when den is nil or zero.
func Ratio(num, den *big.Int) float64 {
	if num == nil || den == nil || den.Sign() == 0 {
		return 0
	}
	f, _ := new(big.Rat).SetFrac(num, den).Float64()
	return f
}
