// Package money holds the decimal arithmetic conventions for the engine.
// Every monetary quantity is a shopspring decimal; native floats never touch
// money. Rounding happens exactly once per tax line, at the final rate
// multiplication, half-up to cents. Intermediate sums stay unrounded.
package money

import (
	"github.com/shopspring/decimal"
)

// CentPlaces is the scale every tax amount is rounded to.
const CentPlaces = 2

// RoundCents rounds half-up to cents. Amounts in this engine are clamped
// non-negative before rounding, so decimal's round-half-away-from-zero is
// exactly half-up here.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(CentPlaces)
}

// ApplyRate multiplies a taxable base by a rate and rounds the product to
// cents. This is the only place a rate multiplication gets rounded.
func ApplyRate(base, rate decimal.Decimal) decimal.Decimal {
	return RoundCents(base.Mul(rate))
}

// ClampZero floors a decimal at zero. Tax amounts and taxable bases are never
// negative after credits.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Ratio divides num by den at full precision, returning zero when den is
// zero. Used for effective-rate reporting, never for tax computation.
func Ratio(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.DivRound(den, 6)
}
