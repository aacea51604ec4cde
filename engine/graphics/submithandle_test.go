package graphics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubmitHandleRoundTrip(t *testing.T) {
	h := NewSubmitHandle(7, 42)
	assert.Equal(t, uint32(7), h.BufferIndex())
	assert.Equal(t, uint32(42), h.SubmitID())
	assert.False(t, h.Empty())
}

func TestSubmitHandleZeroIsEmpty(t *testing.T) {
	var h SubmitHandle
	assert.True(t, h.Empty())
	// A handle with a submit id is never empty, whatever the buffer slot.
	assert.False(t, NewSubmitHandle(0, 1).Empty())
	assert.True(t, NewSubmitHandle(3, 0).Empty())
}

func TestSubmitHandlesOrderBySubmitID(t *testing.T) {
	// Handles from one queue compare strictly increasing across
	// submissions regardless of which buffer slot carried them.
	prev := NewSubmitHandle(31, 1)
	for id := uint32(2); id < 100; id++ {
		h := NewSubmitHandle(id%32, id)
		assert.Greater(t, h, prev)
		prev = h
	}
}
