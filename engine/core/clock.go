package core

import "time"

// Clock measures frame time in seconds. Tick returns the delta since the
// previous Tick so callers never touch raw nanoseconds.
type Clock struct {
	startTime int64
	lastTick  int64
	elapsed   float64
}

func NewClock() *Clock {
	return &Clock{}
}

// Start resets the clock; deltas and elapsed time are measured from here.
func (c *Clock) Start() {
	now := time.Now().UnixNano()
	c.startTime = now
	c.lastTick = now
	c.elapsed = 0
}

// Stop halts the clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.startTime = 0
}

// Tick advances the clock and returns the seconds since the previous Tick
// (or Start). Returns 0 on a non-started clock.
func (c *Clock) Tick() float64 {
	if c.startTime == 0 {
		return 0
	}
	now := time.Now().UnixNano()
	delta := float64(now-c.lastTick) / float64(time.Second)
	c.lastTick = now
	c.elapsed = float64(now-c.startTime) / float64(time.Second)
	return delta
}

// Elapsed returns the seconds between Start and the latest Tick.
func (c *Clock) Elapsed() float64 {
	return c.elapsed
}
