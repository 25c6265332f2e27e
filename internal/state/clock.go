package state

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Sequencer hands out insertion-sequential z-orders.
type Sequencer struct {
	counter uint64
}

// Next returns the next z-order.
func (s *Sequencer) Next() uint64 {
	return atomic.AddUint64(&s.counter, 1)
}

// Observe moves the sequencer past a z-order seen in restored content.
func (s *Sequencer) Observe(z uint64) {
	for {
		cur := atomic.LoadUint64(&s.counter)
		if z <= cur || atomic.CompareAndSwapUint64(&s.counter, cur, z) {
			return
		}
	}
}

func (s *Sequencer) Reset() {
	atomic.StoreUint64(&s.counter, 0)
}

func newAnnotationID() string {
	return "text-" + uuid.NewString()
}
