package service

import (
	"fmt"
	"time"

	"github.com/auralshin/dfba-sub000/domain/auction"
	"github.com/auralshin/dfba-sub000/infra/wal/entry"
)

// Replay rebuilds in-memory state from the write-ahead log. Markets
// that appear in the log but not in the registry are recreated, since
// the registry itself is configuration, not logged state. The results
// store is write-once, so replayed finalizations cannot re-trigger
// publication.
func (s *AuctionService) Replay(dir string) error {
	count := 0
	last, err := entry.Replay(dir, func(r *entry.Record) error {
		count++
		at := time.Unix(0, r.Time)
		switch r.Type {
		case entry.RecordSubmit:
			o, err := decodeSubmit(r.Data)
			if err != nil {
				return err
			}
			s.ensureMarket(o.Market)
			if _, _, err := s.applySubmit(o, at); err != nil {
				return fmt.Errorf("replay submit seq %d: %w", r.Seq, err)
			}
		case entry.RecordCancel:
			caller, id, err := decodeOrderRef(r.Data)
			if err != nil {
				return err
			}
			if err := s.applyCancel(caller, id, at); err != nil {
				return fmt.Errorf("replay cancel seq %d: %w", r.Seq, err)
			}
		case entry.RecordClaim:
			caller, id, err := decodeOrderRef(r.Data)
			if err != nil {
				return err
			}
			if _, err := s.applyClaim(caller, id); err != nil {
				return fmt.Errorf("replay claim seq %d: %w", r.Seq, err)
			}
		case entry.RecordFinalize:
			market, batch, err := decodeFinalize(r.Data)
			if err != nil {
				return err
			}
			if err := s.replayFinalize(market, batch); err != nil {
				return fmt.Errorf("replay finalize seq %d: %w", r.Seq, err)
			}
		default:
			return fmt.Errorf("replay: unknown record type %d at seq %d", r.Type, r.Seq)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.seq.Reset(last)
	s.log.Infow("replay complete", "records", count, "last_seq", last)
	return nil
}

func (s *AuctionService) ensureMarket(id auction.MarketID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[id]; ok {
		return
	}
	s.markets[id] = &marketState{
		active:  true,
		batches: make(map[auction.BatchID]*auction.Batch),
		byBatch: make(map[auction.BatchID][]auction.OrderID),
	}
}

// replayFinalize re-runs finalization to completion. The work is
// deterministic, so the rebuilt result matches the logged one; fill
// fractions come back without having been persisted.
func (s *AuctionService) replayFinalize(market auction.MarketID, batch auction.BatchID) error {
	s.ensureMarket(market)
	ms, err := s.market(market)
	if err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	b, ok := ms.batches[batch]
	if !ok {
		b = s.getOrCreateBatch(ms, market, batch)
	}
	if b.Done() {
		return nil
	}
	for {
		if _, done := b.FinalizeStep(1 << 20); done {
			break
		}
	}
	res, _ := b.Result()
	if err := s.store.Put(res); err != nil {
		return err
	}

	for i, id := range ms.pending {
		if id == batch {
			ms.pending = append(ms.pending[:i], ms.pending[i+1:]...)
			break
		}
	}
	ms.sealed = append(ms.sealed, batch)
	s.evictSealed(ms)

	s.mu.RLock()
	for _, id := range ms.byBatch[batch] {
		if e := s.orders[id]; e != nil && !e.state.Cancelled {
			filled := b.FilledFraction(e.order.Tick, e.order.Role, e.order.Side).Apply(e.order.Qty)
			e.state.Remaining = e.order.Qty - filled
		}
	}
	s.mu.RUnlock()
	return nil
}
