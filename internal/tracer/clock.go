package tracer

import "sync/atomic"

// Sequencer issues strictly increasing, positive event seqs.
// Implemented by *Clock and by the deterministic test clock.
type Sequencer interface {
	Next() int64
}

// Clock is the logical clock stamping recorded events.
//
// Every journaled event carries a strictly increasing seq from this clock;
// replay orders events by seq alone, never by wall-clock time.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next value is start+1. Used to resume
// recording into a run that already holds events.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
