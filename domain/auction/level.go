package auction

// Curve identifies one of the four interest curves tracked per tick.
type Curve uint8

const (
	RestingBuy Curve = iota
	RestingSell
	AggressiveBuy
	AggressiveSell
	NumCurves
)

func (c Curve) String() string {
	switch c {
	case RestingBuy:
		return "resting-buy"
	case RestingSell:
		return "resting-sell"
	case AggressiveBuy:
		return "aggressive-buy"
	default:
		return "aggressive-sell"
	}
}

// CurveOf maps an order's role and side to its curve.
func CurveOf(role Role, side Side) Curve {
	switch {
	case role == Maker && side == Buy:
		return RestingBuy
	case role == Maker && side == Sell:
		return RestingSell
	case role == Taker && side == Buy:
		return AggressiveBuy
	default:
		return AggressiveSell
	}
}

// PriceLevel holds the per-tick running totals for one batch, plus the
// fill fractions written by finalization. The live counters always
// equal the summed quantity of non-cancelled orders at this tick.
type PriceLevel struct {
	Qty  [NumCurves]uint64
	Fill [NumCurves]Fraction
}

func (l *PriceLevel) empty() bool {
	return l.Qty[RestingBuy] == 0 &&
		l.Qty[RestingSell] == 0 &&
		l.Qty[AggressiveBuy] == 0 &&
		l.Qty[AggressiveSell] == 0
}
