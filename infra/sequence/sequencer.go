package sequence

import "sync/atomic"

// Sequencer hands out strictly monotonic sequence numbers for WAL
// records. Replay resets it to the last sequence found on disk.
type Sequencer struct {
	next atomic.Uint64
}

func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next sequence number.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued sequence number.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

// Reset is only used after WAL replay.
func (s *Sequencer) Reset(v uint64) {
	s.next.Store(v)
}
