package auction

// consumeCursor is the resumable state of one fill-allocation walk.
type consumeCursor struct {
	cursor    Tick
	started   bool
	remaining uint64
}

// consumeAscending allocates fills on one curve walking active ticks
// upward from the batch minimum to the clearing tick. Ticks strictly
// below the clearing tick consume their full quantity (fraction 1);
// the clearing tick consumes whatever matched volume remains and
// records the pro-rata fraction. Ticks above are never visited and
// implicitly carry fraction 0.
func (b *Batch) consumeAscending(cur *consumeCursor, c Curve, clearing Tick, budget int) (used int, done bool) {
	if cur.remaining == 0 {
		return 0, true
	}
	for used < budget {
		from := b.minActive
		if cur.started {
			from = cur.cursor
		}
		t, ok := b.idx.NextActive(from, clearing)
		if !ok {
			return used, true
		}
		b.fillAt(cur, c, t)
		used++
		if t >= clearing || cur.remaining == 0 {
			return used, true
		}
		cur.cursor = t + 1
		cur.started = true
	}
	return used, false
}

// consumeDescending mirrors consumeAscending from the batch maximum
// down to the clearing tick.
func (b *Batch) consumeDescending(cur *consumeCursor, c Curve, clearing Tick, budget int) (used int, done bool) {
	if cur.remaining == 0 {
		return 0, true
	}
	for used < budget {
		from := b.maxActive
		if cur.started {
			from = cur.cursor
		}
		t, ok := b.idx.PrevActive(from, clearing)
		if !ok {
			return used, true
		}
		b.fillAt(cur, c, t)
		used++
		if t <= clearing || cur.remaining == 0 {
			return used, true
		}
		cur.cursor = t - 1
		cur.started = true
	}
	return used, false
}

func (b *Batch) fillAt(cur *consumeCursor, c Curve, t Tick) {
	lvl := b.levels[t]
	q := lvl.Qty[c]
	if q == 0 {
		return
	}
	consumed := min(q, cur.remaining)
	lvl.Fill[c] = FractionOf(consumed, q)
	cur.remaining -= consumed
}
