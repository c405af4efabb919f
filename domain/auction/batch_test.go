package auction

import "testing"

func newTestBatch() *Batch {
	return NewBatch("ETH-USD", 1, -1000, 1000)
}

func TestRecordUpdatesAggregates(t *testing.T) {
	b := newTestBatch()

	if err := b.Record(100, Maker, Buy, 1000); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := b.Record(105, Taker, Sell, 500); err != nil {
		t.Fatalf("record: %v", err)
	}

	if got := b.Level(100).Qty[RestingBuy]; got != 1000 {
		t.Errorf("resting buy at 100 = %d want 1000", got)
	}
	if got := b.Total(AggressiveSell); got != 500 {
		t.Errorf("aggressive sell total = %d want 500", got)
	}
	min, max, ok := b.Bounds()
	if !ok || min != 100 || max != 105 {
		t.Errorf("bounds = %d,%d,%v want 100,105,true", min, max, ok)
	}
	if b.LiveOrders() != 2 {
		t.Errorf("live orders = %d want 2", b.LiveOrders())
	}
}

func TestRecordValidation(t *testing.T) {
	b := newTestBatch()
	if err := b.Record(5000, Maker, Buy, 1); err != ErrInvalidTick {
		t.Errorf("out-of-range tick: got %v want ErrInvalidTick", err)
	}
	if err := b.Record(0, Maker, Buy, 0); err != ErrZeroQuantity {
		t.Errorf("zero qty: got %v want ErrZeroQuantity", err)
	}
}

func TestRemoveDrainsLevelAndIndex(t *testing.T) {
	b := newTestBatch()
	if err := b.Record(100, Maker, Buy, 1000); err != nil {
		t.Fatal(err)
	}
	if err := b.Remove(100, Maker, Buy, 1000); err != nil {
		t.Fatalf("remove: %v", err)
	}

	lvl := b.Level(100)
	for c := RestingBuy; c < NumCurves; c++ {
		if lvl.Qty[c] != 0 {
			t.Errorf("curve %v not drained", c)
		}
	}
	if b.idx.IsActive(100) {
		t.Error("tick 100 still active after drain")
	}
	if _, _, ok := b.Bounds(); ok {
		t.Error("bounds should be gone with no interest left")
	}
	if b.LiveOrders() != 0 {
		t.Errorf("live orders = %d want 0", b.LiveOrders())
	}
}

func TestRemoveRederivesBounds(t *testing.T) {
	b := newTestBatch()
	for _, tk := range []Tick{-50, 10, 200} {
		if err := b.Record(tk, Maker, Sell, 10); err != nil {
			t.Fatal(err)
		}
	}

	if err := b.Remove(-50, Maker, Sell, 10); err != nil {
		t.Fatal(err)
	}
	min, _, ok := b.Bounds()
	if !ok || min != 10 {
		t.Errorf("min after removing lower bound = %d,%v want 10,true", min, ok)
	}

	if err := b.Remove(200, Maker, Sell, 10); err != nil {
		t.Fatal(err)
	}
	min, max, ok := b.Bounds()
	if !ok || min != 10 || max != 10 {
		t.Errorf("bounds = %d,%d,%v want 10,10,true", min, max, ok)
	}
}

func TestRemoveKeepsTickWithOtherInterest(t *testing.T) {
	b := newTestBatch()
	if err := b.Record(7, Maker, Buy, 5); err != nil {
		t.Fatal(err)
	}
	if err := b.Record(7, Taker, Sell, 3); err != nil {
		t.Fatal(err)
	}
	if err := b.Remove(7, Maker, Buy, 5); err != nil {
		t.Fatal(err)
	}
	if !b.idx.IsActive(7) {
		t.Error("tick with remaining interest was cleared")
	}
	if got := b.Level(7).Qty[AggressiveSell]; got != 3 {
		t.Errorf("aggressive sell at 7 = %d want 3", got)
	}
}
