package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockTickReturnsSecondsDelta(t *testing.T) {
	c := NewClock()
	assert.Zero(t, c.Tick())

	c.Start()
	time.Sleep(20 * time.Millisecond)
	delta := c.Tick()
	assert.GreaterOrEqual(t, delta, 0.015)
	assert.Less(t, delta, 5.0)
	assert.GreaterOrEqual(t, c.Elapsed(), delta)

	time.Sleep(10 * time.Millisecond)
	c.Tick()
	assert.Greater(t, c.Elapsed(), delta)
}

func TestClockStopSuppressesTicks(t *testing.T) {
	c := NewClock()
	c.Start()
	c.Stop()
	assert.Zero(t, c.Tick())
}

func TestClockStartResetsElapsed(t *testing.T) {
	c := NewClock()
	c.Start()
	time.Sleep(5 * time.Millisecond)
	c.Tick()
	assert.Greater(t, c.Elapsed(), 0.0)

	c.Start()
	assert.Zero(t, c.Elapsed())
}
