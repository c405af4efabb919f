// Package price maps between decimal prices and the engine's integer
// tick domain. The core never sees a decimal; everything inside the
// clearing path is tick arithmetic.
package price

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"

	"github.com/auralshin/dfba-sub000/domain/auction"
)

var (
	ErrBadTickSize = errors.New("price: tick size must be positive")
	ErrOffGrid     = errors.New("price: not a multiple of the tick size")
	ErrOutOfRange  = errors.New("price: outside the tick domain")
)

// Converter maps prices on a fixed grid to ticks and back.
type Converter struct {
	tickSize decimal.Decimal
}

func NewConverter(tickSize string) (*Converter, error) {
	d, err := decimal.NewFromString(tickSize)
	if err != nil {
		return nil, err
	}
	if d.Sign() <= 0 {
		return nil, ErrBadTickSize
	}
	return &Converter{tickSize: d}, nil
}

// ToTick converts a price to its tick. Prices off the grid are
// rejected rather than rounded, so callers cannot silently submit at a
// different level than they quoted.
func (c *Converter) ToTick(p decimal.Decimal) (auction.Tick, error) {
	q := p.Div(c.tickSize)
	if !q.IsInteger() {
		return 0, ErrOffGrid
	}
	n := q.IntPart()
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, ErrOutOfRange
	}
	return auction.Tick(n), nil
}

// FromTick returns the exact price at a tick.
func (c *Converter) FromTick(t auction.Tick) decimal.Decimal {
	return c.tickSize.Mul(decimal.NewFromInt(int64(t)))
}
