package graphics

import (
	"sync"

	"github.com/spaghettifunk/prism/engine/containers"
)

// CompletionTracker answers whether the work identified by a submit handle
// has GPU-visibly finished. Backends implement it with their fence pools.
type CompletionTracker interface {
	IsComplete(handle SubmitHandle) bool
}

type deferredDestroy struct {
	lastUse SubmitHandle
	destroy func()
}

// DestroyQueue defers native resource destruction until the GPU is proven
// done with the resource. Entries are keyed by the last-use submit handle
// and drained oldest-first, matching fence signal order on one queue.
type DestroyQueue struct {
	mu      sync.Mutex
	pending *containers.RingQueue[deferredDestroy]
	tracker CompletionTracker
}

const destroyQueueCapacity = 1024

func NewDestroyQueue(tracker CompletionTracker) *DestroyQueue {
	return &DestroyQueue{
		pending: containers.NewRingQueue[deferredDestroy](destroyQueueCapacity),
		tracker: tracker,
	}
}

// Defer schedules destroy to run once lastUse completes. When the queue is
// full the oldest entries are drained synchronously first; fences on one
// queue signal in order, so waiting on the front entry is the minimal stall.
func (q *DestroyQueue) Defer(lastUse SubmitHandle, destroy func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.pending.IsFull() {
		q.drainFrontLocked()
	}
	// error is impossible after the drain above
	_ = q.pending.Enqueue(deferredDestroy{lastUse: lastUse, destroy: destroy})
}

// Drain runs every deferred destroy whose handle has completed. Called
// opportunistically at frame boundaries.
func (q *DestroyQueue) Drain() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for !q.pending.IsEmpty() {
		front, _ := q.pending.Peek()
		if !front.lastUse.Empty() && !q.tracker.IsComplete(front.lastUse) {
			return
		}
		q.drainFrontLocked()
	}
}

// Len reports the number of resources awaiting destruction.
func (q *DestroyQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending.Len()
}

func (q *DestroyQueue) drainFrontLocked() {
	front, err := q.pending.Dequeue()
	if err != nil {
		return
	}
	front.destroy()
}
