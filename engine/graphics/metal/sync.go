package metal

import (
	"sync"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/graphics"
)

const DefaultMaxInFlightBuffers = 3

// BufferSyncManager caps the number of CPU frames encoded ahead of the GPU.
// A counting semaphore holds maxInFlightBuffers slots; each end-of-frame
// command buffer takes a slot at MarkCommandBufferAsEndOfFrame, before its
// completion callback can possibly fire, and returns it from that callback.
// The in-flight buffer index only advances once a slot was acquired, so
// per-frame resources indexed by it are never written while the GPU still
// reads them.
type BufferSyncManager struct {
	maxInFlight uint32
	slots       chan struct{}

	mu           sync.Mutex
	currentIndex uint32
	frameCount   uint64
}

func NewBufferSyncManager(maxInFlightBuffers uint32) (*BufferSyncManager, error) {
	if maxInFlightBuffers == 0 {
		return nil, graphics.NewResult(graphics.ArgumentOutOfRange, "maxInFlightBuffers must be at least 1")
	}
	m := &BufferSyncManager{
		maxInFlight: maxInFlightBuffers,
		slots:       make(chan struct{}, maxInFlightBuffers),
	}
	for i := uint32(0); i < maxInFlightBuffers; i++ {
		m.slots <- struct{}{}
	}
	return m, nil
}

func (m *BufferSyncManager) MaxInFlightBuffers() uint32 {
	return m.maxInFlight
}

// CurrentInFlightBufferIndex identifies the per-frame resource slot the
// caller may write this frame.
func (m *BufferSyncManager) CurrentInFlightBufferIndex() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentIndex
}

// MarkCommandBufferAsEndOfFrame tags cb as the last submission of the
// current frame. It blocks until a frame slot is free; with max=2, the
// third frame blocks here until the first frame's completion handler has
// fired. The slot is taken before the handler is attached, so the handler's
// release always has a consumed token to return and never blocks the
// driver's completion thread.
func (m *BufferSyncManager) MarkCommandBufferAsEndOfFrame(cb NativeCommandBuffer) {
	<-m.slots
	cb.AddCompletedHandler(func() {
		m.slots <- struct{}{}
	})
}

// ManageEndOfFrameSync advances the in-flight buffer index once the frame's
// end-of-frame buffer holds its slot.
func (m *BufferSyncManager) ManageEndOfFrameSync() {
	m.mu.Lock()
	m.currentIndex = (m.currentIndex + 1) % m.maxInFlight
	m.frameCount++
	if m.frameCount%600 == 0 {
		core.LogDebug("frame sync: %d frames, in-flight index %d", m.frameCount, m.currentIndex)
	}
	m.mu.Unlock()
}
