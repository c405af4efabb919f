package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/auralshin/dfba-sub000/domain/auction"
	"github.com/auralshin/dfba-sub000/infra/results"
	"github.com/auralshin/dfba-sub000/infra/sequence"
	"github.com/auralshin/dfba-sub000/infra/wal/entry"
)

var ErrMarketExists = errors.New("service: market already exists")

// Clock is injected so batch windows are testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// WAL is the slice of the intent log the service appends to.
type WAL interface {
	Append(*entry.Record) error
}

// Authorizer decides whether a trader may act on a market.
type Authorizer interface {
	Authorize(trader string, market auction.MarketID) error
}

// AllowAll authorizes every trader on every market.
type AllowAll struct{}

func (AllowAll) Authorize(string, auction.MarketID) error { return nil }

// FillPublisher receives per-order fill events after finalization.
type FillPublisher interface {
	Send(ctx context.Context, key, value []byte) error
}

// ResultSink receives clearing results as they are sealed, for live
// feeds. Publication must not block the caller.
type ResultSink interface {
	PublishResult(auction.Result)
}

// FillEvent is the per-order outcome of a finalized batch.
type FillEvent struct {
	V         int              `json:"v"`
	Market    auction.MarketID `json:"market"`
	Batch     auction.BatchID  `json:"batch"`
	OrderID   string           `json:"order_id"`
	Trader    string           `json:"trader"`
	Filled    uint64           `json:"filled"`
	Remaining uint64           `json:"remaining"`
}

type Config struct {
	Window         time.Duration
	TickMin        auction.Tick
	TickMax        auction.Tick
	FinalizeBudget int // steps spent advancing the oldest closed batch per submit
	RetainBatches  int // sealed batches kept in memory per market; older ones are evicted
}

type Deps struct {
	Log   *zap.SugaredLogger
	Clock Clock
	Auth  Authorizer
	WAL   WAL
	Seq   *sequence.Sequencer
	Store *results.Store
	Fills FillPublisher // optional
	Sink  ResultSink    // optional
}

// AuctionService is the single writer for all batch state. The market
// registry and order table are guarded by mu; each market carries its
// own mutex serializing mutation of its batches.
type AuctionService struct {
	cfg Config
	log *zap.SugaredLogger

	clock Clock
	auth  Authorizer
	wal   WAL
	seq   *sequence.Sequencer
	store *results.Store
	fills FillPublisher
	sink  ResultSink

	mu      sync.RWMutex
	markets map[auction.MarketID]*marketState
	orders  map[auction.OrderID]*orderEntry
}

type marketState struct {
	mu      sync.Mutex
	active  bool
	batches map[auction.BatchID]*auction.Batch
	byBatch map[auction.BatchID][]auction.OrderID
	pending []auction.BatchID // creation order, awaiting finalization
	sealed  []auction.BatchID // seal order, oldest first; bounds in-memory retention
}

// orderEntry fields past the immutable order are guarded by the owning
// market's mutex.
type orderEntry struct {
	order auction.Order
	batch auction.BatchID
	state auction.OrderState
}

func New(cfg Config, deps Deps) *AuctionService {
	if cfg.FinalizeBudget <= 0 {
		cfg.FinalizeBudget = 64
	}
	if cfg.RetainBatches <= 0 {
		cfg.RetainBatches = 256
	}
	return &AuctionService{
		cfg:     cfg,
		log:     deps.Log,
		clock:   deps.Clock,
		auth:    deps.Auth,
		wal:     deps.WAL,
		seq:     deps.Seq,
		store:   deps.Store,
		fills:   deps.Fills,
		sink:    deps.Sink,
		markets: make(map[auction.MarketID]*marketState),
		orders:  make(map[auction.OrderID]*orderEntry),
	}
}

func (s *AuctionService) CreateMarket(id auction.MarketID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[id]; ok {
		return ErrMarketExists
	}
	s.markets[id] = &marketState{
		active:  true,
		batches: make(map[auction.BatchID]*auction.Batch),
		byBatch: make(map[auction.BatchID][]auction.OrderID),
	}
	s.log.Infow("market created", "market", id)
	return nil
}

func (s *AuctionService) SetMarketActive(id auction.MarketID, active bool) error {
	s.mu.RLock()
	ms, ok := s.markets[id]
	s.mu.RUnlock()
	if !ok {
		return auction.ErrMarketInactive
	}
	ms.mu.Lock()
	ms.active = active
	ms.mu.Unlock()
	s.log.Infow("market state changed", "market", id, "active", active)
	return nil
}

func (s *AuctionService) market(id auction.MarketID) (*marketState, error) {
	s.mu.RLock()
	ms, ok := s.markets[id]
	s.mu.RUnlock()
	if !ok {
		return nil, auction.ErrMarketInactive
	}
	return ms, nil
}

// batchID maps a timestamp to its window index.
func (s *AuctionService) batchID(now time.Time) auction.BatchID {
	return auction.BatchID(uint64(now.UnixNano()) / uint64(s.cfg.Window.Nanoseconds()))
}

// getOrCreateBatch is called with ms.mu held.
func (s *AuctionService) getOrCreateBatch(ms *marketState, market auction.MarketID, id auction.BatchID) *auction.Batch {
	if b, ok := ms.batches[id]; ok {
		return b
	}
	b := auction.NewBatch(market, id, s.cfg.TickMin, s.cfg.TickMax)
	b.WindowStart = int64(id) * s.cfg.Window.Nanoseconds()
	b.WindowEnd = b.WindowStart + s.cfg.Window.Nanoseconds()
	ms.batches[id] = b
	ms.pending = append(ms.pending, id)
	return b
}

// SubmitOrder validates, records, logs and acknowledges one order, and
// then spends a bounded budget advancing the oldest closed batch so
// finalization keeps pace with traffic.
func (s *AuctionService) SubmitOrder(ctx context.Context, caller string, o auction.Order) (auction.OrderID, auction.BatchID, error) {
	o.Trader = caller
	now := s.clock.Now()

	if err := s.auth.Authorize(caller, o.Market); err != nil {
		return auction.OrderID{}, 0, err
	}

	id, batch, err := s.applySubmit(o, now)
	if err != nil {
		return auction.OrderID{}, 0, err
	}

	rec := &entry.Record{
		Type: entry.RecordSubmit,
		Seq:  s.seq.Next(),
		Time: now.UnixNano(),
		Data: encodeSubmit(o),
	}
	if err := s.wal.Append(rec); err != nil {
		// An unlogged mutation must not survive: a rejected caller
		// retries, and replay knows nothing about this order.
		s.rollbackSubmit(o, id, batch)
		return auction.OrderID{}, 0, err
	}

	s.log.Debugw("order accepted",
		"order", id, "market", o.Market, "batch", batch,
		"side", o.Side, "role", o.Role, "tick", o.Tick, "qty", o.Qty)

	s.advanceOldest(ctx, o.Market, now)
	return id, batch, nil
}

// applySubmit is the replayable core of SubmitOrder: everything except
// authorization, logging and the WAL append.
func (s *AuctionService) applySubmit(o auction.Order, now time.Time) (auction.OrderID, auction.BatchID, error) {
	ms, err := s.market(o.Market)
	if err != nil {
		return auction.OrderID{}, 0, err
	}
	if o.Expiry != 0 && o.Expiry <= now.UnixNano() {
		return auction.OrderID{}, 0, auction.ErrExpired
	}
	id := o.ID()

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if !ms.active {
		return auction.OrderID{}, 0, auction.ErrMarketInactive
	}

	s.mu.RLock()
	_, dup := s.orders[id]
	s.mu.RUnlock()
	if dup {
		return auction.OrderID{}, 0, auction.ErrDuplicateOrder
	}

	batchID := s.batchID(now)
	b := s.getOrCreateBatch(ms, o.Market, batchID)
	if err := b.Record(o.Tick, o.Role, o.Side, o.Qty); err != nil {
		return auction.OrderID{}, 0, err
	}

	s.mu.Lock()
	s.orders[id] = &orderEntry{
		order: o,
		batch: batchID,
		state: auction.OrderState{Remaining: o.Qty},
	}
	s.mu.Unlock()
	ms.byBatch[batchID] = append(ms.byBatch[batchID], id)
	return id, batchID, nil
}

// CancelOrder removes a resting order from its batch while the window
// is still open. Takers are committed on submission and cannot back
// out.
func (s *AuctionService) CancelOrder(ctx context.Context, caller string, id auction.OrderID) error {
	now := s.clock.Now()
	if err := s.applyCancel(caller, id, now); err != nil {
		return err
	}

	rec := &entry.Record{
		Type: entry.RecordCancel,
		Seq:  s.seq.Next(),
		Time: now.UnixNano(),
		Data: encodeOrderRef(caller, id),
	}
	if err := s.wal.Append(rec); err != nil {
		s.rollbackCancel(id)
		return err
	}
	s.log.Debugw("order cancelled", "order", id, "caller", caller)
	return nil
}

func (s *AuctionService) applyCancel(caller string, id auction.OrderID, now time.Time) error {
	s.mu.RLock()
	e, ok := s.orders[id]
	s.mu.RUnlock()
	if !ok {
		return auction.ErrOrderNotFound
	}
	if e.order.Trader != caller {
		return auction.ErrNotOwner
	}
	if e.order.Role == auction.Taker {
		return auction.ErrTakerNotCancellable
	}

	ms, err := s.market(e.order.Market)
	if err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if e.state.Cancelled {
		return auction.ErrAlreadyCancelled
	}
	b, ok := ms.batches[e.batch]
	if !ok {
		return auction.ErrOrderNotFound
	}
	if now.UnixNano() >= b.WindowEnd {
		return auction.ErrBatchClosed
	}
	if err := b.Remove(e.order.Tick, e.order.Role, e.order.Side, e.order.Qty); err != nil {
		return err
	}
	e.state.Cancelled = true
	e.state.Remaining = 0
	return nil
}

// FinalizeBatch spends at most maxSteps finalizing the batch. A batch
// nobody submitted to is materialized empty so it can still be sealed.
func (s *AuctionService) FinalizeBatch(ctx context.Context, market auction.MarketID, batch auction.BatchID, maxSteps int) (auction.Phase, bool, error) {
	ms, err := s.market(market)
	if err != nil {
		return 0, false, err
	}
	now := s.clock.Now()

	ms.mu.Lock()
	b, ok := ms.batches[batch]
	if !ok {
		if s.batchID(now) <= batch {
			ms.mu.Unlock()
			return 0, false, auction.ErrBatchStillOpen
		}
		b = s.getOrCreateBatch(ms, market, batch)
	}
	if now.UnixNano() < b.WindowEnd {
		ms.mu.Unlock()
		return 0, false, auction.ErrBatchStillOpen
	}
	if b.Done() {
		ms.mu.Unlock()
		return auction.PhaseDone, true, auction.ErrAlreadyFinalized
	}

	phase, done := b.FinalizeStep(maxSteps)
	var events []FillEvent
	if done {
		events = s.sealed(ms, b, now)
	}
	ms.mu.Unlock()

	if done {
		s.publishFills(ctx, events)
	}
	return phase, done, nil
}

// sealed is called with ms.mu held, right after a batch reaches Done.
// It persists the result, logs the transition to the WAL, trims the
// pending queue and collects fill events for publication outside the
// lock.
func (s *AuctionService) sealed(ms *marketState, b *auction.Batch, now time.Time) []FillEvent {
	res, _ := b.Result()
	if err := s.store.Put(res); err != nil {
		s.log.Errorw("result persist failed", "market", res.Market, "batch", res.Batch, "err", err)
	}
	rec := &entry.Record{
		Type: entry.RecordFinalize,
		Seq:  s.seq.Next(),
		Time: now.UnixNano(),
		Data: encodeFinalize(res.Market, res.Batch),
	}
	if err := s.wal.Append(rec); err != nil {
		s.log.Errorw("finalize log failed", "market", res.Market, "batch", res.Batch, "err", err)
	}

	for i, id := range ms.pending {
		if id == res.Batch {
			ms.pending = append(ms.pending[:i], ms.pending[i+1:]...)
			break
		}
	}

	var events []FillEvent
	s.mu.RLock()
	for _, id := range ms.byBatch[res.Batch] {
		e := s.orders[id]
		if e == nil || e.state.Cancelled {
			continue
		}
		filled := b.FilledFraction(e.order.Tick, e.order.Role, e.order.Side).Apply(e.order.Qty)
		e.state.Remaining = e.order.Qty - filled
		events = append(events, FillEvent{
			V:         1,
			Market:    res.Market,
			Batch:     res.Batch,
			OrderID:   id.String(),
			Trader:    e.order.Trader,
			Filled:    filled,
			Remaining: e.state.Remaining,
		})
	}
	s.mu.RUnlock()

	ms.sealed = append(ms.sealed, res.Batch)
	s.evictSealed(ms)

	if s.sink != nil {
		s.sink.PublishResult(res)
	}
	s.log.Infow("batch finalized",
		"market", res.Market, "batch", res.Batch,
		"bid_tick", res.Bid.Tick, "bid_volume", res.Bid.Volume,
		"ask_tick", res.Ask.Tick, "ask_volume", res.Ask.Volume)
	return events
}

// evictSealed drops the oldest sealed batches past the retention
// horizon, called with ms.mu held. Their results stay readable through
// the pebble store; per-order fill queries and claims for evicted
// batches report ErrOrderNotFound.
func (s *AuctionService) evictSealed(ms *marketState) {
	for len(ms.sealed) > s.cfg.RetainBatches {
		old := ms.sealed[0]
		ms.sealed = ms.sealed[1:]
		s.mu.Lock()
		for _, id := range ms.byBatch[old] {
			delete(s.orders, id)
		}
		s.mu.Unlock()
		delete(ms.byBatch, old)
		delete(ms.batches, old)
		s.log.Debugw("sealed batch evicted", "batch", old)
	}
}

func (s *AuctionService) publishFills(ctx context.Context, events []FillEvent) {
	if s.fills == nil {
		return
	}
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if err := s.fills.Send(ctx, []byte(ev.OrderID), payload); err != nil {
			// Best effort; the outbox broadcaster is the durable path.
			s.log.Warnw("fill publish failed", "order", ev.OrderID, "err", err)
		}
	}
}

// advanceOldest spends the configured budget on the oldest pending
// batch whose window has closed.
func (s *AuctionService) advanceOldest(ctx context.Context, market auction.MarketID, now time.Time) {
	ms, err := s.market(market)
	if err != nil {
		return
	}
	ms.mu.Lock()
	var target auction.BatchID
	found := false
	for _, id := range ms.pending {
		if b := ms.batches[id]; b != nil && now.UnixNano() >= b.WindowEnd && !b.Done() {
			target, found = id, true
			break
		}
	}
	ms.mu.Unlock()
	if !found {
		return
	}
	if _, _, err := s.FinalizeBatch(ctx, market, target, s.cfg.FinalizeBudget); err != nil &&
		!errors.Is(err, auction.ErrAlreadyFinalized) {
		s.log.Warnw("background finalize failed", "market", market, "batch", target, "err", err)
	}
}

// GetClearing reports the clearing outcome for a batch. The boolean is
// false while the batch is still open or mid-finalization; the partial
// Result then carries only identity fields.
func (s *AuctionService) GetClearing(market auction.MarketID, batch auction.BatchID) (auction.Result, bool, error) {
	ms, err := s.market(market)
	if err != nil {
		return auction.Result{}, false, err
	}
	ms.mu.Lock()
	b, ok := ms.batches[batch]
	ms.mu.Unlock()
	if ok {
		if res, done := b.Result(); done {
			return res, true, nil
		}
		return auction.Result{Market: market, Batch: batch, WindowStart: b.WindowStart, WindowEnd: b.WindowEnd}, false, nil
	}

	res, _, err := s.store.Get(market, batch)
	if err == results.ErrNotFound {
		return auction.Result{Market: market, Batch: batch}, false, nil
	}
	if err != nil {
		return auction.Result{}, false, err
	}
	return res, true, nil
}

// Checkpoint exposes finalization progress for a batch.
func (s *AuctionService) Checkpoint(market auction.MarketID, batch auction.BatchID) (auction.Checkpoint, error) {
	ms, err := s.market(market)
	if err != nil {
		return auction.Checkpoint{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	b, ok := ms.batches[batch]
	if !ok {
		return auction.Checkpoint{}, auction.ErrOrderNotFound
	}
	return b.Checkpoint(), nil
}

// OrderFilled reports how much of an order filled. done is false until
// the order's batch has finalized.
func (s *AuctionService) OrderFilled(id auction.OrderID) (filled uint64, done bool, err error) {
	s.mu.RLock()
	e, ok := s.orders[id]
	s.mu.RUnlock()
	if !ok {
		return 0, false, auction.ErrOrderNotFound
	}
	ms, err := s.market(e.order.Market)
	if err != nil {
		return 0, false, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if e.state.Cancelled {
		return 0, false, auction.ErrAlreadyCancelled
	}
	b, ok := ms.batches[e.batch]
	if !ok || !b.Done() {
		return 0, false, nil
	}
	return b.FilledFraction(e.order.Tick, e.order.Role, e.order.Side).Apply(e.order.Qty), true, nil
}

// ClaimFill hands the caller the not-yet-claimed filled quantity of
// their order, exactly once per filled unit. Claims are logged so the
// exactly-once property survives a restart.
func (s *AuctionService) ClaimFill(caller string, id auction.OrderID) (uint64, error) {
	now := s.clock.Now()
	amount, err := s.applyClaim(caller, id)
	if err != nil {
		return 0, err
	}
	rec := &entry.Record{
		Type: entry.RecordClaim,
		Seq:  s.seq.Next(),
		Time: now.UnixNano(),
		Data: encodeOrderRef(caller, id),
	}
	if err := s.wal.Append(rec); err != nil {
		s.rollbackClaim(id, amount)
		return 0, err
	}
	return amount, nil
}

// The rollbacks below undo an applied mutation whose log append
// failed, so in-memory state never gets ahead of the WAL.

func (s *AuctionService) rollbackSubmit(o auction.Order, id auction.OrderID, batch auction.BatchID) {
	ms, err := s.market(o.Market)
	if err != nil {
		return
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if b, ok := ms.batches[batch]; ok {
		_ = b.Remove(o.Tick, o.Role, o.Side, o.Qty)
	}
	ids := ms.byBatch[batch]
	for i, oid := range ids {
		if oid == id {
			ms.byBatch[batch] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	s.mu.Lock()
	delete(s.orders, id)
	s.mu.Unlock()
}

func (s *AuctionService) rollbackCancel(id auction.OrderID) {
	s.mu.RLock()
	e, ok := s.orders[id]
	s.mu.RUnlock()
	if !ok {
		return
	}
	ms, err := s.market(e.order.Market)
	if err != nil {
		return
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if b, ok := ms.batches[e.batch]; ok {
		_ = b.Record(e.order.Tick, e.order.Role, e.order.Side, e.order.Qty)
	}
	e.state.Cancelled = false
	e.state.Remaining = e.order.Qty
}

func (s *AuctionService) rollbackClaim(id auction.OrderID, amount uint64) {
	s.mu.RLock()
	e, ok := s.orders[id]
	s.mu.RUnlock()
	if !ok {
		return
	}
	ms, err := s.market(e.order.Market)
	if err != nil {
		return
	}
	ms.mu.Lock()
	e.state.Claimed -= amount
	ms.mu.Unlock()
}

func (s *AuctionService) applyClaim(caller string, id auction.OrderID) (uint64, error) {
	s.mu.RLock()
	e, ok := s.orders[id]
	s.mu.RUnlock()
	if !ok {
		return 0, auction.ErrOrderNotFound
	}
	if e.order.Trader != caller {
		return 0, auction.ErrNotOwner
	}
	ms, err := s.market(e.order.Market)
	if err != nil {
		return 0, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if e.state.Cancelled {
		return 0, auction.ErrAlreadyCancelled
	}
	b, ok := ms.batches[e.batch]
	if !ok || !b.Done() {
		return 0, auction.ErrBatchStillOpen
	}
	filled := b.FilledFraction(e.order.Tick, e.order.Role, e.order.Side).Apply(e.order.Qty)
	if filled <= e.state.Claimed {
		return 0, auction.ErrAlreadyClaimed
	}
	amount := filled - e.state.Claimed
	e.state.Claimed = filled
	return amount, nil
}

// TickLevel snapshots the aggregate interest at one tick of a batch.
func (s *AuctionService) TickLevel(market auction.MarketID, batch auction.BatchID, tick auction.Tick) (auction.PriceLevel, error) {
	if tick < s.cfg.TickMin || tick > s.cfg.TickMax {
		return auction.PriceLevel{}, auction.ErrInvalidTick
	}
	ms, err := s.market(market)
	if err != nil {
		return auction.PriceLevel{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	b, ok := ms.batches[batch]
	if !ok {
		return auction.PriceLevel{}, nil
	}
	return b.Level(tick), nil
}
