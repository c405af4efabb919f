package broadcaster

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/auralshin/dfba-sub000/domain/auction"
	"github.com/auralshin/dfba-sub000/infra/results"
)

// Broadcaster drains the results outbox to Kafka. Delivery is
// at-least-once: a result is marked SENT before publishing and ACKED
// only after the broker confirms, so a crash in between replays it.
type Broadcaster struct {
	store    *results.Store
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      *zap.SugaredLogger
}

// ClearingEvent is the published envelope for one finalized batch.
type ClearingEvent struct {
	V           int              `json:"v"`
	EventID     string           `json:"event_id"`
	Market      auction.MarketID `json:"market"`
	Batch       auction.BatchID  `json:"batch"`
	WindowStart int64            `json:"window_start"`
	WindowEnd   int64            `json:"window_end"`
	BidTick     auction.Tick     `json:"bid_tick"`
	BidVolume   uint64           `json:"bid_volume"`
	AskTick     auction.Tick     `json:"ask_tick"`
	AskVolume   uint64           `json:"ask_volume"`
}

func New(store *results.Store, brokers []string, topic string, interval time.Duration, log *zap.SugaredLogger) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return &Broadcaster{
		store:    store,
		producer: producer,
		topic:    topic,
		interval: interval,
		log:      log,
	}, nil
}

func (b *Broadcaster) Run(ctx context.Context) {
	b.log.Infow("broadcaster started", "topic", b.topic, "interval", b.interval)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.drainOnce()
		}
	}
}

func (b *Broadcaster) drainOnce() {
	err := b.store.ScanPending(func(res auction.Result, _ results.OutboxState) error {
		if err := b.store.MarkSent(res.Market, res.Batch); err != nil {
			return err
		}

		payload, err := json.Marshal(ClearingEvent{
			V:           1,
			EventID:     uuid.NewString(),
			Market:      res.Market,
			Batch:       res.Batch,
			WindowStart: res.WindowStart,
			WindowEnd:   res.WindowEnd,
			BidTick:     res.Bid.Tick,
			BidVolume:   res.Bid.Volume,
			AskTick:     res.Ask.Tick,
			AskVolume:   res.Ask.Volume,
		})
		if err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(string(res.Market)),
			Value: sarama.ByteEncoder(payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			// Left in SENT; the next drain retries it.
			b.log.Warnw("publish failed", "market", res.Market, "batch", res.Batch, "err", err)
			return nil
		}
		return b.store.MarkAcked(res.Market, res.Batch)
	})
	if err != nil {
		b.log.Errorw("outbox scan failed", "err", err)
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
