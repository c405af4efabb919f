package auction

import "testing"

func TestOrderIDDeterministic(t *testing.T) {
	o := Order{
		Trader: "alice",
		Market: "ETH-USD",
		Side:   Buy,
		Role:   Maker,
		Tick:   100,
		Qty:    1000,
		Nonce:  1,
	}
	dup := o
	if o.ID() != dup.ID() {
		t.Fatal("identical orders must collide on ID")
	}
}

func TestOrderIDDiffers(t *testing.T) {
	base := Order{Trader: "alice", Market: "ETH-USD", Side: Buy, Role: Maker, Tick: 100, Qty: 1000, Nonce: 1}

	variants := []Order{
		{Trader: "bob", Market: "ETH-USD", Side: Buy, Role: Maker, Tick: 100, Qty: 1000, Nonce: 1},
		{Trader: "alice", Market: "BTC-USD", Side: Buy, Role: Maker, Tick: 100, Qty: 1000, Nonce: 1},
		{Trader: "alice", Market: "ETH-USD", Side: Sell, Role: Maker, Tick: 100, Qty: 1000, Nonce: 1},
		{Trader: "alice", Market: "ETH-USD", Side: Buy, Role: Taker, Tick: 100, Qty: 1000, Nonce: 1},
		{Trader: "alice", Market: "ETH-USD", Side: Buy, Role: Maker, Tick: 101, Qty: 1000, Nonce: 1},
		{Trader: "alice", Market: "ETH-USD", Side: Buy, Role: Maker, Tick: 100, Qty: 999, Nonce: 1},
		{Trader: "alice", Market: "ETH-USD", Side: Buy, Role: Maker, Tick: 100, Qty: 1000, Nonce: 2},
	}
	seen := map[OrderID]bool{base.ID(): true}
	for i, v := range variants {
		id := v.ID()
		if seen[id] {
			t.Errorf("variant %d collided with a previous order", i)
		}
		seen[id] = true
	}
}

func TestOrderIDFieldBoundaries(t *testing.T) {
	// Trader/market are delimited, so shifting bytes between them must
	// change the hash.
	a := Order{Trader: "ab", Market: "c"}
	b := Order{Trader: "a", Market: "bc"}
	if a.ID() == b.ID() {
		t.Fatal("trader/market boundary not encoded")
	}
}
