package auction

import "math/bits"

// Fraction is a fill ratio in [0, 1] held in 1e18-scaled fixed point.
// The scale is wide enough that Apply reproduces the same filled
// quantity on every read with no rounding drift.
type Fraction uint64

const FracOne Fraction = 1_000_000_000_000_000_000

// FractionOf returns part/whole as a Fraction, rounding up. Requires
// part <= whole. Rounding up here while Apply rounds down means
// FractionOf(part, whole).Apply(whole) == part for any whole up to
// FracOne, so no consumed unit is lost to the fixed-point margin.
func FractionOf(part, whole uint64) Fraction {
	if whole == 0 || part == 0 {
		return 0
	}
	if part >= whole {
		return FracOne
	}
	hi, lo := bits.Mul64(part, uint64(FracOne))
	q, r := bits.Div64(hi, lo, whole)
	if r != 0 {
		q++
	}
	return Fraction(q)
}

// Apply returns qty * f, rounding down.
func (f Fraction) Apply(qty uint64) uint64 {
	if f == 0 || qty == 0 {
		return 0
	}
	if f >= FracOne {
		return qty
	}
	hi, lo := bits.Mul64(qty, uint64(f))
	q, _ := bits.Div64(hi, lo, uint64(FracOne))
	return q
}
