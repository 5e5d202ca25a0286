// Package live runs the execution core against a realtime feed: a
// premarket decision cycle, intraday monitor passes, and order submission
// through a broker gateway. All portfolio mutation happens on one
// goroutine; the feed only ever touches the tick queue.
package live

import (
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/equitrader/market"
)

// Tick is one realtime price update.
type Tick struct {
	Symbol market.Symbol
	Price  decimal.Decimal
	Time   time.Time
}

// TickQueue is a bounded queue between the feed and the decision loop.
// When full, Push drops the oldest tick: a stale price is worth less than
// a fresh one, and the monitor pass re-reads current state anyway.
type TickQueue struct {
	ch      chan Tick
	dropped atomic.Int64
}

func NewTickQueue(size int) *TickQueue {
	if size <= 0 {
		size = 1
	}
	return &TickQueue{ch: make(chan Tick, size)}
}

// Push enqueues the tick, evicting the oldest entry if the queue is full.
// Reports whether an eviction happened.
func (q *TickQueue) Push(t Tick) bool {
	for {
		select {
		case q.ch <- t:
			return false
		default:
		}
		select {
		case <-q.ch:
			q.dropped.Add(1)
		default:
		}
		select {
		case q.ch <- t:
			return true
		default:
			// Lost the race with another producer; try again.
		}
	}
}

// C is the consumer side.
func (q *TickQueue) C() <-chan Tick { return q.ch }

// Drain empties the queue without blocking and returns what was queued.
func (q *TickQueue) Drain() []Tick {
	var out []Tick
	for {
		select {
		case t := <-q.ch:
			out = append(out, t)
		default:
			return out
		}
	}
}

// Dropped is the total number of evicted ticks.
func (q *TickQueue) Dropped() int64 { return q.dropped.Load() }
