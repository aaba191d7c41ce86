package table

import (
	"math/big"

	"github.com/cockroachdb/apd/v3"
	"github.com/pkg/errors"
)

// Decimal is a fixed-point number: Unscaled * 10^-Scale, with at most
// Precision significant digits.
type Decimal struct {
	Unscaled  *big.Int
	Precision int32
	Scale     int32
}

// NewDecimal creates a decimal from an unscaled 64 bit value.
func NewDecimal(unscaled int64, precision, scale int32) Decimal {
	return Decimal{Unscaled: big.NewInt(unscaled), Precision: precision, Scale: scale}
}

// ParseDecimal parses s and quantizes it to the given scale. Values that
// would lose digits or that need more than precision digits are rejected.
func ParseDecimal(s string, precision, scale int32) (Decimal, error) {
	if precision <= 0 {
		return Decimal{}, errors.Errorf("invalid decimal precision %d", precision)
	}

	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Decimal{}, errors.Wrapf(err, "parsing decimal %q failed", s)
	}

	ctx := apd.BaseContext.WithPrecision(uint32(precision))
	res := new(apd.Decimal)
	cond, err := ctx.Quantize(res, d, -scale)
	if err != nil {
		return Decimal{}, errors.Wrapf(err, "decimal %q does not fit (%d,%d)", s, precision, scale)
	}
	if cond.Inexact() {
		return Decimal{}, errors.Errorf("decimal %q can not be represented with scale %d", s, scale)
	}

	unscaled := res.Coeff.MathBigInt()
	if res.Negative {
		unscaled.Neg(unscaled)
	}

	return Decimal{Unscaled: unscaled, Precision: precision, Scale: scale}, nil
}

func (d Decimal) unscaled() *big.Int {
	if d.Unscaled == nil {
		return new(big.Int)
	}
	return d.Unscaled
}

// String formats the decimal in plain notation, keeping trailing zeros of
// the scale.
func (d Decimal) String() string {
	coeff := new(apd.BigInt).SetMathBigInt(d.unscaled())
	return apd.NewWithBigInt(coeff, -d.Scale).Text('f')
}

// Digits returns the number of decimal digits of the unscaled value.
func (d Decimal) Digits() int32 {
	u := d.unscaled()
	if u.Sign() == 0 {
		return 1
	}
	return int32(len(new(big.Int).Abs(u).String()))
}

// Rescale returns d with the given scale. Increasing the scale is always
// exact; decreasing it fails if digits would be dropped.
func (d Decimal) Rescale(scale int32) (Decimal, error) {
	u := new(big.Int).Set(d.unscaled())
	switch {
	case scale > d.Scale:
		u.Mul(u, pow10(scale-d.Scale))
	case scale < d.Scale:
		q, r := new(big.Int).QuoRem(u, pow10(d.Scale-scale), new(big.Int))
		if r.Sign() != 0 {
			return Decimal{}, errors.Errorf("decimal %s can not be represented with scale %d", d, scale)
		}
		u = q
	}
	return Decimal{Unscaled: u, Precision: d.Precision, Scale: scale}, nil
}

// Equal reports whether both decimals have the same value, precision and
// scale.
func (d Decimal) Equal(o Decimal) bool {
	return d.Precision == o.Precision && d.Scale == o.Scale && d.unscaled().Cmp(o.unscaled()) == 0
}

func pow10(n int32) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
