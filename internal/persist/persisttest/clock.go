// Package persisttest provides a manually advanced clock for debounced code.
package persisttest

import (
	"sort"
	"sync"
	"time"

	"ClassBoard/internal/persist"
)

type pending struct {
	clock   *Clock
	at      time.Duration
	seq     int
	f       func()
	stopped bool
}

func (p *pending) Stop() bool {
	p.clock.mu.Lock()
	defer p.clock.mu.Unlock()
	was := !p.stopped
	p.stopped = true
	return was
}

// Clock fires callbacks only when Advance moves past their deadline.
type Clock struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	queue []*pending
}

var _ persist.Clock = (*Clock)(nil)

func NewClock() *Clock { return &Clock{} }

func (c *Clock) AfterFunc(d time.Duration, f func()) persist.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	p := &pending{clock: c, at: c.now + d, seq: c.seq, f: f}
	c.queue = append(c.queue, p)
	return p
}

// Advance moves time forward, running due callbacks in deadline order on the
// calling goroutine.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		sort.Slice(c.queue, func(i, j int) bool {
			if c.queue[i].at != c.queue[j].at {
				return c.queue[i].at < c.queue[j].at
			}
			return c.queue[i].seq < c.queue[j].seq
		})
		var next *pending
		for len(c.queue) > 0 {
			head := c.queue[0]
			if head.stopped {
				c.queue = c.queue[1:]
				continue
			}
			if head.at <= target {
				next = head
				c.queue = c.queue[1:]
				c.now = head.at
			}
			break
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.stopped = true
		c.mu.Unlock()
		next.f()
	}
}

// Pending counts callbacks that have neither fired nor been stopped.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, p := range c.queue {
		if !p.stopped {
			n++
		}
	}
	return n
}
