package auction

// discoveryScratch is the resumable state of one ascending clearing
// scan. It exists only while a Discover phase is in progress; the
// outcome is folded into the checkpoint when the scan completes.
type discoveryScratch struct {
	cursor      Tick
	started     bool
	cumSupply   uint64
	demandBelow uint64
	bestVolume  uint64
	bestTick    Tick
	haveBest    bool
	locked      bool
}

// runDiscovery advances one side's clearing scan by at most budget
// active ticks. At each tick the candidate matched volume is
// min(cumulative supply at-or-below, cumulative demand at-or-above).
//
// Tie-break, applied identically on both sides: the scan locks onto the
// first maximizer whose demand-at-or-above equals the matched volume;
// until locked, equal candidates keep sliding the best tick upward.
// This keeps demand strictly above and supply strictly below the
// chosen tick within the matched volume, so consumption can fill every
// tick strictly inside the clearing tick completely.
func (b *Batch) runDiscovery(sc *discoveryScratch, supply, demand Curve, budget int) (used int, done bool) {
	if b.totals[supply] == 0 || b.totals[demand] == 0 {
		// No auction possible; resolve() reports the sentinel.
		sc.haveBest = false
		return 0, true
	}
	totalDemand := b.totals[demand]

	for used < budget {
		from := b.minActive
		if sc.started {
			from = sc.cursor
		}
		t, ok := b.idx.NextActive(from, b.maxActive)
		if !ok {
			return used, true
		}
		lvl := b.levels[t]

		sc.cumSupply += lvl.Qty[supply]
		above := totalDemand - sc.demandBelow
		cand := min(sc.cumSupply, above)

		if !sc.haveBest || cand > sc.bestVolume || (cand == sc.bestVolume && !sc.locked) {
			sc.bestTick = t
			sc.bestVolume = cand
			sc.haveBest = true
			sc.locked = above == cand
		}

		sc.demandBelow += lvl.Qty[demand]
		used++

		if t >= b.maxActive {
			return used, true
		}
		sc.cursor = t + 1
		sc.started = true
	}
	return used, false
}

// resolve reports the completed scan's outcome. A scan that never
// crossed yields the side's sentinel tick with zero volume.
func (sc *discoveryScratch) resolve(sentinel Tick) (Tick, uint64) {
	if !sc.haveBest || sc.bestVolume == 0 {
		return sentinel, 0
	}
	return sc.bestTick, sc.bestVolume
}
