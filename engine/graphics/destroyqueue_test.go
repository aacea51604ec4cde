package graphics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeCompletionTracker struct {
	completed map[SubmitHandle]bool
}

func (f *fakeCompletionTracker) IsComplete(handle SubmitHandle) bool {
	return f.completed[handle]
}

func TestDestroyQueueWaitsForCompletion(t *testing.T) {
	tracker := &fakeCompletionTracker{completed: map[SubmitHandle]bool{}}
	q := NewDestroyQueue(tracker)

	destroyed := false
	handle := NewSubmitHandle(0, 1)
	q.Defer(handle, func() { destroyed = true })

	q.Drain()
	assert.False(t, destroyed, "resource freed while its last use was still in flight")
	assert.Equal(t, 1, q.Len())

	tracker.completed[handle] = true
	q.Drain()
	assert.True(t, destroyed)
	assert.Equal(t, 0, q.Len())
}

func TestDestroyQueueDrainsOldestFirst(t *testing.T) {
	tracker := &fakeCompletionTracker{completed: map[SubmitHandle]bool{}}
	q := NewDestroyQueue(tracker)

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		q.Defer(NewSubmitHandle(0, uint32(i)), func() { order = append(order, i) })
	}

	// Completing an entry behind an incomplete one frees nothing: fences
	// signal in order, so reclamation is strictly oldest-first.
	tracker.completed[NewSubmitHandle(0, 2)] = true
	q.Drain()
	assert.Empty(t, order)

	tracker.completed[NewSubmitHandle(0, 1)] = true
	tracker.completed[NewSubmitHandle(0, 3)] = true
	q.Drain()
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestDestroyQueueEmptyHandleIsAlwaysComplete(t *testing.T) {
	tracker := &fakeCompletionTracker{completed: map[SubmitHandle]bool{}}
	q := NewDestroyQueue(tracker)

	destroyed := false
	// Zero handle: the resource was never used by the GPU.
	q.Defer(0, func() { destroyed = true })
	q.Drain()
	assert.True(t, destroyed)
}

func TestDestroyQueueOverflowDrainsSynchronously(t *testing.T) {
	tracker := &fakeCompletionTracker{completed: map[SubmitHandle]bool{}}
	q := NewDestroyQueue(tracker)

	count := 0
	for i := 0; i < destroyQueueCapacity+10; i++ {
		q.Defer(NewSubmitHandle(0, uint32(i+1)), func() { count++ })
	}
	// The overflowing entries forced the oldest ones out.
	assert.Equal(t, 10, count)
	assert.Equal(t, destroyQueueCapacity, q.Len())
}
