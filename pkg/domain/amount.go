package domain

import (
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	dErrors "flightsurety/pkg/domain-errors"
)

// unitDecimals is the number of decimals between the smallest indivisible
// unit and one unit of native currency.
const unitDecimals = 18

var unitScale = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(unitDecimals))

// Units returns n whole units of native currency expressed in the smallest unit.
func Units(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), unitScale)
}

// ParseAmount parses a base-10 amount in the smallest unit.
//
// Errors: CodeInvalidInput for empty, negative, fractional or overflowing input.
func ParseAmount(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "amount is required")
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid amount")
	}
	return v, nil
}

// ParseUnits parses a decimal amount of whole units, e.g. "1.5", into the
// smallest unit.
func ParseUnits(s string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid amount")
	}
	if d.IsNegative() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "amount cannot be negative")
	}
	scaled := d.Shift(unitDecimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "amount has too many decimals")
	}
	v, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "amount overflows")
	}
	return v, nil
}

// FormatUnits renders an amount in whole units with trailing zeros trimmed.
func FormatUnits(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v.ToBig(), -unitDecimals).String()
}

// Scale returns v * num / den, truncating toward zero. den must be non-zero.
func Scale(v *uint256.Int, num, den uint64) *uint256.Int {
	out := new(uint256.Int).Mul(v, uint256.NewInt(num))
	return out.Div(out, uint256.NewInt(den))
}
