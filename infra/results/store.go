package results

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/pebble"

	"github.com/auralshin/dfba-sub000/domain/auction"
)

// OutboxState tracks publication of a finalized batch result.
type OutboxState uint8

const (
	StateNew OutboxState = iota
	StateSent
	StateAcked
)

func (s OutboxState) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	default:
		return "UNKNOWN"
	}
}

var ErrNotFound = errors.New("results: not found")

// Store persists HistoricalBatchResults. A result is written exactly
// once, when its batch reaches Done, and never mutated afterwards;
// only the attached outbox state byte changes as the broadcaster
// publishes it.
type Store struct {
	db *pebble.DB
}

func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores a finalized result with outbox state NEW. Re-putting an
// existing result is a no-op so replay cannot re-trigger publication.
func (s *Store) Put(res auction.Result) error {
	key := keyFor(res.Market, res.Batch)
	if _, closer, err := s.db.Get(key); err == nil {
		_ = closer.Close()
		return nil
	} else if err != pebble.ErrNotFound {
		return err
	}
	return s.db.Set(key, encode(res, StateNew), pebble.Sync)
}

func (s *Store) Get(market auction.MarketID, batch auction.BatchID) (auction.Result, OutboxState, error) {
	val, closer, err := s.db.Get(keyFor(market, batch))
	if err == pebble.ErrNotFound {
		return auction.Result{}, 0, ErrNotFound
	}
	if err != nil {
		return auction.Result{}, 0, err
	}
	defer closer.Close()

	res, state, err := decode(val)
	if err != nil {
		return auction.Result{}, 0, err
	}
	res.Market = market
	res.Batch = batch
	return res, state, nil
}

func (s *Store) MarkSent(market auction.MarketID, batch auction.BatchID) error {
	return s.setState(market, batch, StateSent)
}

func (s *Store) MarkAcked(market auction.MarketID, batch auction.BatchID) error {
	return s.setState(market, batch, StateAcked)
}

func (s *Store) setState(market auction.MarketID, batch auction.BatchID, state OutboxState) error {
	res, _, err := s.Get(market, batch)
	if err != nil {
		return err
	}
	return s.db.Set(keyFor(market, batch), encode(res, state), pebble.Sync)
}

// ScanPending visits every result not yet acked, oldest key first.
// SENT records are revisited so a crash between publish and ack
// degrades to at-least-once delivery.
func (s *Store) ScanPending(fn func(res auction.Result, state OutboxState) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		res, state, err := decode(iter.Value())
		if err != nil {
			return err
		}
		if state == StateAcked {
			continue
		}
		market, batch, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		res.Market = market
		res.Batch = batch
		if err := fn(res, state); err != nil {
			return err
		}
	}
	return iter.Error()
}

// -------------------- encoding --------------------

const keyPrefix = "result/"

// value: [state:1][bidTick:4][bidVol:8][askTick:4][askVol:8][winStart:8][winEnd:8]
const valueLen = 1 + 4 + 8 + 4 + 8 + 8 + 8

func encode(res auction.Result, state OutboxState) []byte {
	b := make([]byte, valueLen)
	b[0] = byte(state)
	binary.BigEndian.PutUint32(b[1:5], uint32(res.Bid.Tick))
	binary.BigEndian.PutUint64(b[5:13], res.Bid.Volume)
	binary.BigEndian.PutUint32(b[13:17], uint32(res.Ask.Tick))
	binary.BigEndian.PutUint64(b[17:25], res.Ask.Volume)
	binary.BigEndian.PutUint64(b[25:33], uint64(res.WindowStart))
	binary.BigEndian.PutUint64(b[33:41], uint64(res.WindowEnd))
	return b
}

func decode(b []byte) (auction.Result, OutboxState, error) {
	if len(b) != valueLen {
		return auction.Result{}, 0, errors.New("results: invalid record length")
	}
	res := auction.Result{
		Bid: auction.SideClearing{
			Tick:   auction.Tick(int32(binary.BigEndian.Uint32(b[1:5]))),
			Volume: binary.BigEndian.Uint64(b[5:13]),
		},
		Ask: auction.SideClearing{
			Tick:   auction.Tick(int32(binary.BigEndian.Uint32(b[13:17]))),
			Volume: binary.BigEndian.Uint64(b[17:25]),
		},
		WindowStart: int64(binary.BigEndian.Uint64(b[25:33])),
		WindowEnd:   int64(binary.BigEndian.Uint64(b[33:41])),
	}
	return res, OutboxState(b[0]), nil
}

func keyFor(market auction.MarketID, batch auction.BatchID) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d", keyPrefix, market, batch))
}

func parseKey(key []byte) (auction.MarketID, auction.BatchID, error) {
	rest := strings.TrimPrefix(string(key), keyPrefix)
	i := strings.LastIndexByte(rest, '/')
	if i < 0 {
		return "", 0, errors.New("results: malformed key")
	}
	batch, err := strconv.ParseUint(rest[i+1:], 10, 64)
	if err != nil {
		return "", 0, err
	}
	return auction.MarketID(rest[:i]), auction.BatchID(batch), nil
}
