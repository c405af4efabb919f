package auction

// Batch owns the aggregates for one (market, batch) pair: a tick index,
// the tick -> PriceLevel map, batch-wide totals, the active-tick bounds
// and the live order count. Once the batch window has elapsed the
// aggregates stop mutating and finalization takes over.
type Batch struct {
	Market      MarketID
	ID          BatchID
	WindowStart int64 // unix nanos, inclusive
	WindowEnd   int64 // unix nanos, exclusive

	tickMin Tick
	tickMax Tick
	idx     *TickIndex
	levels  map[Tick]*PriceLevel
	totals  [NumCurves]uint64

	minActive Tick
	maxActive Tick
	hasActive bool
	live      int

	cp     Checkpoint
	disc   discoveryScratch
	cons   consumeCursor
	result *Result
}

func NewBatch(market MarketID, id BatchID, tickMin, tickMax Tick) *Batch {
	return &Batch{
		Market:  market,
		ID:      id,
		tickMin: tickMin,
		tickMax: tickMax,
		idx:     NewTickIndex(tickMin, tickMax),
		levels:  make(map[Tick]*PriceLevel),
	}
}

// TickRange returns the configured tick domain.
func (b *Batch) TickRange() (Tick, Tick) {
	return b.tickMin, b.tickMax
}

// LiveOrders returns the number of non-cancelled orders in the batch.
func (b *Batch) LiveOrders() int {
	return b.live
}

// Bounds returns the smallest and largest tick carrying any interest.
func (b *Batch) Bounds() (min, max Tick, ok bool) {
	return b.minActive, b.maxActive, b.hasActive
}

// Total returns the batch-wide quantity on one curve.
func (b *Batch) Total(c Curve) uint64 {
	return b.totals[c]
}

// Level returns a snapshot of the PriceLevel at tick. Absent ticks
// report a zero level.
func (b *Batch) Level(tick Tick) PriceLevel {
	if l, ok := b.levels[tick]; ok {
		return *l
	}
	return PriceLevel{}
}

// Record adds an order's quantity to the matching level counter and
// batch total, activating the tick and extending the bounds as needed.
func (b *Batch) Record(tick Tick, role Role, side Side, qty uint64) error {
	if !b.idx.Contains(tick) {
		return ErrInvalidTick
	}
	if qty == 0 {
		return ErrZeroQuantity
	}

	lvl, ok := b.levels[tick]
	if !ok {
		lvl = &PriceLevel{}
		b.levels[tick] = lvl
	}
	if lvl.empty() {
		b.idx.Set(tick)
		if !b.hasActive {
			b.minActive, b.maxActive = tick, tick
			b.hasActive = true
		} else {
			if tick < b.minActive {
				b.minActive = tick
			}
			if tick > b.maxActive {
				b.maxActive = tick
			}
		}
	}

	c := CurveOf(role, side)
	lvl.Qty[c] += qty
	b.totals[c] += qty
	b.live++
	return nil
}

// Remove subtracts a cancelled order's quantity. If the level drains
// completely the tick is cleared from the index and a drained bound is
// re-derived with a nearest-neighbor query, not a fresh scan.
func (b *Batch) Remove(tick Tick, role Role, side Side, qty uint64) error {
	if !b.idx.Contains(tick) {
		return ErrInvalidTick
	}
	if qty == 0 {
		return ErrZeroQuantity
	}
	lvl, ok := b.levels[tick]
	if !ok {
		return ErrOrderNotFound
	}

	c := CurveOf(role, side)
	if lvl.Qty[c] < qty {
		return ErrOrderNotFound
	}
	lvl.Qty[c] -= qty
	b.totals[c] -= qty
	b.live--

	if !lvl.empty() {
		return nil
	}
	delete(b.levels, tick)
	b.idx.Clear(tick)

	if b.minActive == tick && b.maxActive == tick {
		b.hasActive = false
		return nil
	}
	if tick == b.minActive {
		next, ok := b.idx.NextActive(tick, b.maxActive)
		if !ok {
			b.hasActive = false
			return nil
		}
		b.minActive = next
	}
	if tick == b.maxActive {
		prev, ok := b.idx.PrevActive(tick, b.minActive)
		if !ok {
			b.hasActive = false
			return nil
		}
		b.maxActive = prev
	}
	return nil
}
