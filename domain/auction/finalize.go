package auction

// Phase is the finalization state machine's position. Phases advance
// monotonically and never roll back.
type Phase uint8

const (
	PhaseNotStarted Phase = iota
	PhaseDiscoverBid
	PhaseConsumeBidDemand
	PhaseConsumeBidSupply
	PhaseDiscoverAsk
	PhaseConsumeAskSupply
	PhaseConsumeAskDemand
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "NOT_STARTED"
	case PhaseDiscoverBid:
		return "DISCOVER_BID"
	case PhaseConsumeBidDemand:
		return "CONSUME_BID_DEMAND"
	case PhaseConsumeBidSupply:
		return "CONSUME_BID_SUPPLY"
	case PhaseDiscoverAsk:
		return "DISCOVER_ASK"
	case PhaseConsumeAskSupply:
		return "CONSUME_ASK_SUPPLY"
	case PhaseConsumeAskDemand:
		return "CONSUME_ASK_DEMAND"
	case PhaseDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Checkpoint is the single source of truth for finalization progress.
// It is created on the first finalize attempt and advances until Done.
type Checkpoint struct {
	Phase     Phase
	BidTick   Tick
	BidVolume uint64
	AskTick   Tick
	AskVolume uint64
}

// SideClearing is one auction side's immutable outcome. A sentinel
// tick (domain minimum for the bid side, maximum for the ask side)
// with zero volume means no auction was possible.
type SideClearing struct {
	Tick   Tick
	Volume uint64
}

// Result is the HistoricalBatchResult: written exactly once when the
// checkpoint reaches Done, immutable afterwards, and the only record
// fill queries read.
type Result struct {
	Market      MarketID
	Batch       BatchID
	WindowStart int64
	WindowEnd   int64
	Bid         SideClearing
	Ask         SideClearing
}

// Checkpoint returns a copy of the current finalization checkpoint.
func (b *Batch) Checkpoint() Checkpoint {
	return b.cp
}

// Done reports whether the batch has been finalized.
func (b *Batch) Done() bool {
	return b.cp.Phase == PhaseDone
}

// Result returns the batch's immutable outcome once Done.
func (b *Batch) Result() (Result, bool) {
	if b.result == nil {
		return Result{}, false
	}
	return *b.result, true
}

// FilledFraction returns the stored fill fraction for a curve at a
// tick. Zero until the batch is Done.
func (b *Batch) FilledFraction(tick Tick, role Role, side Side) Fraction {
	if !b.Done() {
		return 0
	}
	lvl, ok := b.levels[tick]
	if !ok {
		return 0
	}
	return lvl.Fill[CurveOf(role, side)]
}

// FinalizeStep performs at most maxSteps units of finalization work,
// where one unit is one active tick visited by a scan or walk. When a
// phase completes within budget the machine advances immediately and
// keeps spending the remaining budget in the next phase. Re-entering a
// Done batch is a no-op reporting (PhaseDone, true).
//
// The two auctions run in a fixed order: the bid auction clears
// resting buys (demand) against aggressive sells (supply), then the
// ask auction clears aggressive buys (demand) against resting sells
// (supply).
func (b *Batch) FinalizeStep(maxSteps int) (Phase, bool) {
	if b.cp.Phase == PhaseDone {
		return PhaseDone, true
	}
	budget := maxSteps

	for {
		switch b.cp.Phase {
		case PhaseNotStarted:
			if b.live == 0 {
				b.cp.BidTick, b.cp.BidVolume = b.tickMin, 0
				b.cp.AskTick, b.cp.AskVolume = b.tickMax, 0
				b.seal()
				return PhaseDone, true
			}
			b.disc = discoveryScratch{}
			b.cp.Phase = PhaseDiscoverBid

		case PhaseDiscoverBid:
			used, done := b.runDiscovery(&b.disc, AggressiveSell, RestingBuy, budget)
			budget -= used
			if !done {
				return b.cp.Phase, false
			}
			b.cp.BidTick, b.cp.BidVolume = b.disc.resolve(b.tickMin)
			b.cons = consumeCursor{remaining: b.cp.BidVolume}
			b.cp.Phase = PhaseConsumeBidDemand

		case PhaseConsumeBidDemand:
			used, done := b.consumeDescending(&b.cons, RestingBuy, b.cp.BidTick, budget)
			budget -= used
			if !done {
				return b.cp.Phase, false
			}
			b.cons = consumeCursor{remaining: b.cp.BidVolume}
			b.cp.Phase = PhaseConsumeBidSupply

		case PhaseConsumeBidSupply:
			used, done := b.consumeAscending(&b.cons, AggressiveSell, b.cp.BidTick, budget)
			budget -= used
			if !done {
				return b.cp.Phase, false
			}
			b.disc = discoveryScratch{}
			b.cp.Phase = PhaseDiscoverAsk

		case PhaseDiscoverAsk:
			used, done := b.runDiscovery(&b.disc, RestingSell, AggressiveBuy, budget)
			budget -= used
			if !done {
				return b.cp.Phase, false
			}
			b.cp.AskTick, b.cp.AskVolume = b.disc.resolve(b.tickMax)
			b.cons = consumeCursor{remaining: b.cp.AskVolume}
			b.cp.Phase = PhaseConsumeAskSupply

		case PhaseConsumeAskSupply:
			used, done := b.consumeAscending(&b.cons, RestingSell, b.cp.AskTick, budget)
			budget -= used
			if !done {
				return b.cp.Phase, false
			}
			b.cons = consumeCursor{remaining: b.cp.AskVolume}
			b.cp.Phase = PhaseConsumeAskDemand

		case PhaseConsumeAskDemand:
			used, done := b.consumeDescending(&b.cons, AggressiveBuy, b.cp.AskTick, budget)
			budget -= used
			if !done {
				return b.cp.Phase, false
			}
			b.seal()
			return PhaseDone, true
		}
	}
}

func (b *Batch) seal() {
	b.cp.Phase = PhaseDone
	b.result = &Result{
		Market:      b.Market,
		Batch:       b.ID,
		WindowStart: b.WindowStart,
		WindowEnd:   b.WindowEnd,
		Bid:         SideClearing{Tick: b.cp.BidTick, Volume: b.cp.BidVolume},
		Ask:         SideClearing{Tick: b.cp.AskTick, Volume: b.cp.AskVolume},
	}
}
