package auction

import "math/bits"

// TickIndex is a presence set over the bounded signed tick domain
// [min, max]. Ticks are packed into 64-bit words so nearest-active
// queries reduce to masked bit scans. The index stores no quantities;
// it is purely a navigation aid for the level map.
type TickIndex struct {
	min   Tick
	max   Tick
	words []uint64
}

func NewTickIndex(min, max Tick) *TickIndex {
	if max < min {
		panic("auction: inverted tick range")
	}
	span := uint64(int64(max)-int64(min)) + 1
	return &TickIndex{
		min:   min,
		max:   max,
		words: make([]uint64, (span+63)/64),
	}
}

// Contains reports whether t lies inside the configured domain.
func (x *TickIndex) Contains(t Tick) bool {
	return t >= x.min && t <= x.max
}

func (x *TickIndex) pos(t Tick) (word int, bit uint) {
	p := uint64(int64(t) - int64(x.min))
	return int(p >> 6), uint(p & 63)
}

func (x *TickIndex) Set(t Tick) {
	w, b := x.pos(t)
	x.words[w] |= 1 << b
}

func (x *TickIndex) Clear(t Tick) {
	w, b := x.pos(t)
	x.words[w] &^= 1 << b
}

func (x *TickIndex) IsActive(t Tick) bool {
	if !x.Contains(t) {
		return false
	}
	w, b := x.pos(t)
	return x.words[w]&(1<<b) != 0
}

// NextActive returns the smallest active tick in [from, upper].
func (x *TickIndex) NextActive(from, upper Tick) (Tick, bool) {
	if from < x.min {
		from = x.min
	}
	if upper > x.max {
		upper = x.max
	}
	if from > upper {
		return 0, false
	}

	w, b := x.pos(from)
	// Mask off bits below the starting position in the first word.
	word := x.words[w] &^ ((1 << b) - 1)
	for {
		if word != 0 {
			t := x.min + Tick(w<<6+bits.TrailingZeros64(word))
			if t > upper {
				return 0, false
			}
			return t, true
		}
		w++
		if w >= len(x.words) {
			return 0, false
		}
		word = x.words[w]
	}
}

// PrevActive returns the largest active tick in [lower, from].
func (x *TickIndex) PrevActive(from, lower Tick) (Tick, bool) {
	if from > x.max {
		from = x.max
	}
	if lower < x.min {
		lower = x.min
	}
	if from < lower {
		return 0, false
	}

	w, b := x.pos(from)
	// Mask off bits above the starting position in the first word.
	word := x.words[w] & (^uint64(0) >> (63 - b))
	for {
		if word != 0 {
			t := x.min + Tick(w<<6+63-bits.LeadingZeros64(word))
			if t < lower {
				return 0, false
			}
			return t, true
		}
		if w == 0 {
			return 0, false
		}
		w--
		word = x.words[w]
	}
}
