package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueueFIFO(t *testing.T) {
	rq := NewRingQueue[int](4)
	assert.True(t, rq.IsEmpty())

	for i := 1; i <= 4; i++ {
		require.NoError(t, rq.Enqueue(i))
	}
	assert.True(t, rq.IsFull())
	assert.Equal(t, 4, rq.Len())

	for i := 1; i <= 4; i++ {
		v, err := rq.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	assert.True(t, rq.IsEmpty())
}

func TestRingQueueEnqueueFullFails(t *testing.T) {
	rq := NewRingQueue[string](1)
	require.NoError(t, rq.Enqueue("a"))
	assert.Error(t, rq.Enqueue("b"))
}

func TestRingQueueDequeueEmptyFails(t *testing.T) {
	rq := NewRingQueue[int](1)
	_, err := rq.Dequeue()
	assert.Error(t, err)
	_, err = rq.Peek()
	assert.Error(t, err)
}

func TestRingQueueWrapsAround(t *testing.T) {
	rq := NewRingQueue[int](3)
	require.NoError(t, rq.Enqueue(1))
	require.NoError(t, rq.Enqueue(2))

	v, err := rq.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	// The write index wraps past the end of the backing slice.
	require.NoError(t, rq.Enqueue(3))
	require.NoError(t, rq.Enqueue(4))
	assert.True(t, rq.IsFull())

	want := []int{2, 3, 4}
	for _, w := range want {
		v, err := rq.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, w, v)
	}
}

func TestRingQueuePeekDoesNotConsume(t *testing.T) {
	rq := NewRingQueue[int](2)
	require.NoError(t, rq.Enqueue(7))

	v, err := rq.Peek()
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 1, rq.Len())
}
