package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/auralshin/dfba-sub000/domain/auction"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 16
)

// Feed pushes clearing results to websocket subscribers as batches
// finalize. Slow subscribers are dropped rather than allowed to stall
// the hub.
type Feed struct {
	log      *zap.SugaredLogger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

type resultMessage struct {
	Type        string           `json:"type"`
	Market      auction.MarketID `json:"market"`
	Batch       auction.BatchID  `json:"batch"`
	WindowStart int64            `json:"window_start"`
	WindowEnd   int64            `json:"window_end"`
	BidTick     auction.Tick     `json:"bid_tick"`
	BidVolume   uint64           `json:"bid_volume"`
	AskTick     auction.Tick     `json:"ask_tick"`
	AskVolume   uint64           `json:"ask_volume"`
}

func NewFeed(log *zap.SugaredLogger) *Feed {
	return &Feed{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the connection and streams results until the peer
// goes away.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.log.Warnw("ws upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}

	f.mu.Lock()
	f.conns[c] = struct{}{}
	f.mu.Unlock()
	f.log.Debugw("ws subscriber connected", "remote", r.RemoteAddr)

	go f.writeLoop(c)
	f.readLoop(c)
}

// PublishResult fans a sealed result out to every subscriber without
// blocking the finalizer.
func (f *Feed) PublishResult(res auction.Result) {
	payload, err := json.Marshal(resultMessage{
		Type:        "clearing",
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
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.conns {
		select {
		case c.send <- payload:
		default:
			delete(f.conns, c)
			close(c.send)
			f.log.Warnw("ws subscriber dropped, send buffer full")
		}
	}
}

func (f *Feed) writeLoop(c *client) {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
	_ = c.conn.Close()
}

func (f *Feed) readLoop(c *client) {
	defer f.detach(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *Feed) detach(c *client) {
	f.mu.Lock()
	if _, ok := f.conns[c]; ok {
		delete(f.conns, c)
		close(c.send)
	}
	f.mu.Unlock()
	_ = c.conn.Close()
}
