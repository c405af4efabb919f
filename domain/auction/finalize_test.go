package auction

import "testing"

func finalizeAll(t *testing.T, b *Batch, budget int) {
	t.Helper()
	for i := 0; i < 10000; i++ {
		if _, done := b.FinalizeStep(budget); done {
			return
		}
	}
	t.Fatal("finalization did not converge")
}

func TestSimpleCross(t *testing.T) {
	b := newTestBatch()
	if err := b.Record(100, Maker, Buy, 1000); err != nil {
		t.Fatal(err)
	}
	if err := b.Record(100, Taker, Sell, 500); err != nil {
		t.Fatal(err)
	}

	finalizeAll(t, b, 100)

	res, ok := b.Result()
	if !ok {
		t.Fatal("no result after Done")
	}
	if res.Bid.Tick != 100 || res.Bid.Volume != 500 {
		t.Errorf("bid clearing = %d/%d want 100/500", res.Bid.Tick, res.Bid.Volume)
	}
	// No resting sells, so the ask auction is a sentinel.
	if res.Ask.Tick != 1000 || res.Ask.Volume != 0 {
		t.Errorf("ask clearing = %d/%d want sentinel 1000/0", res.Ask.Tick, res.Ask.Volume)
	}

	if got := b.FilledFraction(100, Maker, Buy); got != FracOne/2 {
		t.Errorf("resting buy fraction = %d want %d", got, FracOne/2)
	}
	if got := b.FilledFraction(100, Taker, Sell); got != FracOne {
		t.Errorf("aggressive sell fraction = %d want FracOne", got)
	}
}

// A pro-rata fraction with no exact fixed-point representation (1/3)
// must still hand the marginal maker its full matched quantity.
func TestMarginalFillRecoversMatchedVolume(t *testing.T) {
	b := newTestBatch()
	if err := b.Record(100, Maker, Buy, 3); err != nil {
		t.Fatal(err)
	}
	if err := b.Record(100, Taker, Sell, 1); err != nil {
		t.Fatal(err)
	}

	finalizeAll(t, b, 100)

	res, _ := b.Result()
	if res.Bid.Tick != 100 || res.Bid.Volume != 1 {
		t.Fatalf("bid clearing = %d/%d want 100/1", res.Bid.Tick, res.Bid.Volume)
	}
	if got := b.FilledFraction(100, Maker, Buy).Apply(3); got != 1 {
		t.Errorf("maker recovers %d of matched volume 1", got)
	}
	if got := b.FilledFraction(100, Taker, Sell).Apply(1); got != 1 {
		t.Errorf("taker recovers %d of matched volume 1", got)
	}
}

func TestAskAuction(t *testing.T) {
	b := newTestBatch()
	if err := b.Record(100, Maker, Sell, 500); err != nil {
		t.Fatal(err)
	}
	if err := b.Record(100, Taker, Buy, 1000); err != nil {
		t.Fatal(err)
	}

	finalizeAll(t, b, 100)

	res, _ := b.Result()
	if res.Ask.Tick != 100 || res.Ask.Volume != 500 {
		t.Errorf("ask clearing = %d/%d want 100/500", res.Ask.Tick, res.Ask.Volume)
	}
	if res.Bid.Tick != -1000 || res.Bid.Volume != 0 {
		t.Errorf("bid clearing = %d/%d want sentinel -1000/0", res.Bid.Tick, res.Bid.Volume)
	}
	if got := b.FilledFraction(100, Maker, Sell); got != FracOne {
		t.Errorf("resting sell fraction = %d want FracOne", got)
	}
	if got := b.FilledFraction(100, Taker, Buy); got != FracOne/2 {
		t.Errorf("aggressive buy fraction = %d want half", got)
	}
}

func TestEmptyBatchShortCircuits(t *testing.T) {
	b := newTestBatch()
	phase, done := b.FinalizeStep(1)
	if phase != PhaseDone || !done {
		t.Fatalf("empty batch: got %v,%v want Done,true", phase, done)
	}
	res, _ := b.Result()
	if res.Bid.Tick != -1000 || res.Ask.Tick != 1000 {
		t.Errorf("sentinels = %d/%d want -1000/1000", res.Bid.Tick, res.Ask.Tick)
	}
	if res.Bid.Volume != 0 || res.Ask.Volume != 0 {
		t.Error("empty batch must clear zero volume")
	}
}

func TestDoneIsIdempotent(t *testing.T) {
	b := newTestBatch()
	finalizeAll(t, b, 1)
	before, _ := b.Result()

	phase, done := b.FinalizeStep(100)
	if phase != PhaseDone || !done {
		t.Fatalf("re-entry: got %v,%v want Done,true", phase, done)
	}
	after, _ := b.Result()
	if before != after {
		t.Error("re-entering Done mutated the result")
	}
}

func TestNoCrossYieldsSentinel(t *testing.T) {
	b := newTestBatch()
	// Buy interest entirely below sell interest: curves never cross.
	if err := b.Record(90, Maker, Buy, 100); err != nil {
		t.Fatal(err)
	}
	if err := b.Record(110, Taker, Sell, 100); err != nil {
		t.Fatal(err)
	}

	finalizeAll(t, b, 100)

	res, _ := b.Result()
	if res.Bid.Tick != -1000 || res.Bid.Volume != 0 {
		t.Errorf("bid clearing = %d/%d want sentinel", res.Bid.Tick, res.Bid.Volume)
	}
	if got := b.FilledFraction(90, Maker, Buy); got != 0 {
		t.Errorf("uncrossed resting buy fraction = %d want 0", got)
	}
}

// Demand-heavy tie: resting buys at 110 (100) and 100 (50) against 60
// aggressive sells at 90. All three ticks maximize volume 60; the
// clearing tick must be 110 so buys strictly above it stay fully
// fillable.
func TestTieBreakDemandHeavy(t *testing.T) {
	b := newTestBatch()
	must := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}
	must(b.Record(110, Maker, Buy, 100))
	must(b.Record(100, Maker, Buy, 50))
	must(b.Record(90, Taker, Sell, 60))

	finalizeAll(t, b, 100)

	res, _ := b.Result()
	if res.Bid.Tick != 110 || res.Bid.Volume != 60 {
		t.Fatalf("bid clearing = %d/%d want 110/60", res.Bid.Tick, res.Bid.Volume)
	}
	if got := b.FilledFraction(110, Maker, Buy); got != FractionOf(60, 100) {
		t.Errorf("marginal buy fraction = %d want 0.6", got)
	}
	if got := b.FilledFraction(100, Maker, Buy); got != 0 {
		t.Errorf("buy below clearing fraction = %d want 0", got)
	}
	if got := b.FilledFraction(90, Taker, Sell); got != FracOne {
		t.Errorf("sell fraction = %d want FracOne", got)
	}
}

// Supply-heavy tie: 100 aggressive sells at 90 and 40 at 100 against 60
// resting buys at 110. The clearing tick must be 90 so sells strictly
// below it stay fully fillable.
func TestTieBreakSupplyHeavy(t *testing.T) {
	b := newTestBatch()
	must := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}
	must(b.Record(90, Taker, Sell, 100))
	must(b.Record(100, Taker, Sell, 40))
	must(b.Record(110, Maker, Buy, 60))

	finalizeAll(t, b, 100)

	res, _ := b.Result()
	if res.Bid.Tick != 90 || res.Bid.Volume != 60 {
		t.Fatalf("bid clearing = %d/%d want 90/60", res.Bid.Tick, res.Bid.Volume)
	}
	if got := b.FilledFraction(90, Taker, Sell); got != FractionOf(60, 100) {
		t.Errorf("marginal sell fraction = %d want 0.6", got)
	}
	if got := b.FilledFraction(100, Taker, Sell); got != 0 {
		t.Errorf("sell beyond clearing fraction = %d want 0", got)
	}
	if got := b.FilledFraction(110, Maker, Buy); got != FracOne {
		t.Errorf("buy fraction = %d want FracOne", got)
	}
}

type fixtureOrder struct {
	tick Tick
	role Role
	side Side
	qty  uint64
}

// Both auctions populated across many ticks, including ticks carrying
// interest on several curves at once.
var mixedFixture = []fixtureOrder{
	{95, Maker, Buy, 300},
	{100, Maker, Buy, 1000},
	{105, Maker, Buy, 250},
	{90, Taker, Sell, 400},
	{100, Taker, Sell, 500},
	{110, Taker, Sell, 200},
	{98, Maker, Sell, 600},
	{103, Maker, Sell, 350},
	{99, Taker, Buy, 450},
	{107, Taker, Buy, 300},
	{-20, Maker, Buy, 10},
	{250, Maker, Sell, 10},
}

func buildMixed(t *testing.T) *Batch {
	t.Helper()
	b := newTestBatch()
	for _, f := range mixedFixture {
		if err := b.Record(f.tick, f.role, f.side, f.qty); err != nil {
			t.Fatalf("record %+v: %v", f, err)
		}
	}
	return b
}

func snapshotFills(b *Batch) map[Tick]PriceLevel {
	out := make(map[Tick]PriceLevel)
	for _, f := range mixedFixture {
		out[f.tick] = b.Level(f.tick)
	}
	return out
}

// The final result must not depend on how the step budget is split
// across calls.
func TestChunkingDeterminism(t *testing.T) {
	oneShot := buildMixed(t)
	finalizeAll(t, oneShot, 1_000_000)
	want, _ := oneShot.Result()
	wantFills := snapshotFills(oneShot)

	for _, budget := range []int{1, 2, 3, 7} {
		b := buildMixed(t)
		calls := 0
		for {
			_, done := b.FinalizeStep(budget)
			calls++
			if done {
				break
			}
			if calls > 100000 {
				t.Fatalf("budget %d: did not converge", budget)
			}
		}
		got, _ := b.Result()
		if got != want {
			t.Errorf("budget %d: result %+v want %+v", budget, got, want)
		}
		gotFills := snapshotFills(b)
		for tk, lvl := range wantFills {
			if gotFills[tk] != lvl {
				t.Errorf("budget %d: level %d = %+v want %+v", budget, tk, gotFills[tk], lvl)
			}
		}
		if calls < 2 {
			t.Errorf("budget %d completed in one call; chunking not exercised", budget)
		}
	}
}

func TestPhasesAdvanceInOrder(t *testing.T) {
	b := buildMixed(t)
	last := PhaseNotStarted
	for {
		phase, done := b.FinalizeStep(1)
		if phase < last {
			t.Fatalf("phase went backwards: %v after %v", phase, last)
		}
		last = phase
		if done {
			break
		}
	}
	if last != PhaseDone {
		t.Fatalf("terminal phase = %v want Done", last)
	}
}

func TestConservationAndFractionBounds(t *testing.T) {
	b := buildMixed(t)
	finalizeAll(t, b, 5)
	res, _ := b.Result()

	if res.Bid.Volume > min(b.Total(RestingBuy), b.Total(AggressiveSell)) {
		t.Errorf("bid volume %d exceeds curve totals", res.Bid.Volume)
	}
	if res.Ask.Volume > min(b.Total(RestingSell), b.Total(AggressiveBuy)) {
		t.Errorf("ask volume %d exceeds curve totals", res.Ask.Volume)
	}

	minT, maxT, _ := b.Bounds()
	if res.Bid.Volume > 0 && (res.Bid.Tick < minT || res.Bid.Tick > maxT) {
		t.Errorf("bid tick %d outside active bounds [%d,%d]", res.Bid.Tick, minT, maxT)
	}
	if res.Ask.Volume > 0 && (res.Ask.Tick < minT || res.Ask.Tick > maxT) {
		t.Errorf("ask tick %d outside active bounds [%d,%d]", res.Ask.Tick, minT, maxT)
	}

	for _, f := range mixedFixture {
		lvl := b.Level(f.tick)
		for c := RestingBuy; c < NumCurves; c++ {
			if lvl.Fill[c] > FracOne {
				t.Errorf("tick %d curve %v fraction above one", f.tick, c)
			}
		}
	}

	// Matched volume is conserved: each auction side's two curves
	// consume exactly the clearing volume.
	checks := []struct {
		curve Curve
		want  uint64
	}{
		{RestingBuy, res.Bid.Volume},
		{AggressiveSell, res.Bid.Volume},
		{RestingSell, res.Ask.Volume},
		{AggressiveBuy, res.Ask.Volume},
	}
	for _, ck := range checks {
		var sum uint64
		for _, f := range mixedFixture {
			lvl := b.Level(f.tick)
			if CurveOf(f.role, f.side) == ck.curve {
				sum += lvl.Fill[ck.curve].Apply(f.qty)
			}
		}
		if sum != ck.want {
			t.Errorf("curve %v consumed %d want %d", ck.curve, sum, ck.want)
		}
	}
}

// Ticks strictly inside the clearing tick fill completely; ticks beyond
// it fill nothing.
func TestFillMonotoneAroundClearing(t *testing.T) {
	b := buildMixed(t)
	finalizeAll(t, b, 3)
	res, _ := b.Result()

	for _, f := range mixedFixture {
		lvl := b.Level(f.tick)
		switch CurveOf(f.role, f.side) {
		case RestingBuy:
			if f.tick > res.Bid.Tick && lvl.Fill[RestingBuy] != FracOne {
				t.Errorf("resting buy above clearing tick %d not fully filled", f.tick)
			}
			if f.tick < res.Bid.Tick && lvl.Fill[RestingBuy] != 0 {
				t.Errorf("resting buy below clearing tick %d has fill", f.tick)
			}
		case AggressiveSell:
			if f.tick < res.Bid.Tick && lvl.Fill[AggressiveSell] != FracOne {
				t.Errorf("aggressive sell below clearing tick %d not fully filled", f.tick)
			}
			if f.tick > res.Bid.Tick && lvl.Fill[AggressiveSell] != 0 {
				t.Errorf("aggressive sell above clearing tick %d has fill", f.tick)
			}
		}
	}
}
