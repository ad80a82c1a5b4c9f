package ownership

import "sync/atomic"

// Sequencer stamps journal events. Clock is the only implementation
// outside tests.
type Sequencer interface {
	Next() int64
}

// Clock is a monotonic logical clock for ownership events.
//
// Events are ordered by seq, never by wall-clock time, so a replayed call
// sequence produces an identical journal.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming after start, e.g. the last seq
// persisted in a journal.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
