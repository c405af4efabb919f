package auction

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/zeebo/blake3"
)

type Side uint8
type Role uint8

const (
	Buy Side = iota
	Sell
)

const (
	// Maker orders rest and fill only if the clearing tick reaches them.
	Maker Role = iota
	// Taker orders cross into the opposing auction at whatever it clears to.
	Taker
)

func (s Side) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

func (r Role) String() string {
	if r == Taker {
		return "taker"
	}
	return "maker"
}

// MarketID names a market. BatchID is the index of a batch window on
// that market (windowStart / windowLength).
type MarketID string
type BatchID uint64

// Tick is a discretized price level. The price-to-tick mapping lives
// outside the core (pkg/price).
type Tick int32

// OrderID is derived from the order's content, so resubmitting the same
// order collides on purpose and is rejected as a duplicate.
type OrderID [32]byte

func (id OrderID) String() string {
	return hex.EncodeToString(id[:])
}

// Order is a pure domain entity. All fields participate in the ID.
type Order struct {
	Trader string
	Market MarketID
	Side   Side
	Role   Role
	Tick   Tick
	Qty    uint64
	Nonce  uint64
	Expiry int64 // unix nanos; 0 means no expiry
}

// ID hashes the canonical field encoding with BLAKE3.
func (o *Order) ID() OrderID {
	buf := make([]byte, 0, len(o.Trader)+len(o.Market)+32)
	buf = append(buf, o.Trader...)
	buf = append(buf, 0)
	buf = append(buf, o.Market...)
	buf = append(buf, 0)

	var fixed [30]byte
	fixed[0] = byte(o.Side)
	fixed[1] = byte(o.Role)
	binary.BigEndian.PutUint32(fixed[2:6], uint32(o.Tick))
	binary.BigEndian.PutUint64(fixed[6:14], o.Qty)
	binary.BigEndian.PutUint64(fixed[14:22], o.Nonce)
	binary.BigEndian.PutUint64(fixed[22:30], uint64(o.Expiry))
	buf = append(buf, fixed[:]...)

	return OrderID(blake3.Sum256(buf))
}

// OrderState tracks what has happened to an order after submission.
// It is never deleted.
type OrderState struct {
	Remaining uint64
	Claimed   uint64
	Cancelled bool
}
