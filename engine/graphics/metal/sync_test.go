package metal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/graphics"
)

// fakeCommandBuffer lets the test fire completion handlers by hand.
type fakeCommandBuffer struct {
	completed []func()
	scheduled []func()
	committed bool
	presented []NativeTexture
}

func (f *fakeCommandBuffer) Commit()                      { f.committed = true }
func (f *fakeCommandBuffer) AddScheduledHandler(h func()) { f.scheduled = append(f.scheduled, h) }
func (f *fakeCommandBuffer) AddCompletedHandler(h func()) { f.completed = append(f.completed, h) }
func (f *fakeCommandBuffer) WaitUntilScheduled()          {}
func (f *fakeCommandBuffer) WaitUntilCompleted()          {}
func (f *fakeCommandBuffer) RenderCommandEncoder(desc graphics.RenderPassDesc, color, depth NativeTexture) (NativeRenderCommandEncoder, error) {
	return nil, nil
}
func (f *fakeCommandBuffer) ComputeCommandEncoder() (NativeComputeCommandEncoder, error) {
	return nil, nil
}
func (f *fakeCommandBuffer) CopyBuffer(src, dst NativeBuffer, srcOffset, dstOffset, size uint64) {}
func (f *fakeCommandBuffer) CopyTextureToBuffer(src NativeTexture, dst NativeBuffer, dstOffset uint64) {
}
func (f *fakeCommandBuffer) PresentDrawable(drawable NativeTexture) {
	f.presented = append(f.presented, drawable)
}
func (f *fakeCommandBuffer) PushDebugGroup(label string) {}
func (f *fakeCommandBuffer) PopDebugGroup()              {}

func (f *fakeCommandBuffer) fireCompleted() {
	for _, h := range f.completed {
		h()
	}
}

func (f *fakeCommandBuffer) fireScheduled() {
	for _, h := range f.scheduled {
		h()
	}
}

func TestNewBufferSyncManagerRejectsZeroFrames(t *testing.T) {
	_, err := NewBufferSyncManager(0)
	require.Error(t, err)
	assert.Equal(t, graphics.ArgumentOutOfRange, graphics.CodeOf(err))
}

func TestBufferSyncManagerAdvancesIndexModuloMax(t *testing.T) {
	m, err := NewBufferSyncManager(3)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), m.MaxInFlightBuffers())
	assert.Equal(t, uint32(0), m.CurrentInFlightBufferIndex())

	for frame := 0; frame < 7; frame++ {
		cb := &fakeCommandBuffer{}
		m.MarkCommandBufferAsEndOfFrame(cb)
		// Complete immediately so the semaphore never runs dry.
		cb.fireCompleted()
		m.ManageEndOfFrameSync()
		assert.Equal(t, uint32((frame+1)%3), m.CurrentInFlightBufferIndex())
	}
}

func TestBufferSyncManagerCompletionBeforeSyncNeverBlocks(t *testing.T) {
	m, err := NewBufferSyncManager(1)
	require.NoError(t, err)

	// The driver thread may complete a buffer between Commit and
	// ManageEndOfFrameSync; the handler must not block on the slot channel.
	for frame := 0; frame < 3; frame++ {
		cb := &fakeCommandBuffer{}
		m.MarkCommandBufferAsEndOfFrame(cb)

		done := make(chan struct{})
		go func() {
			cb.fireCompleted()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("completion handler blocked before end-of-frame sync ran")
		}

		m.ManageEndOfFrameSync()
		assert.Equal(t, uint32(0), m.CurrentInFlightBufferIndex())
	}
}

func TestBufferSyncManagerThirdFrameBlocksUntilFirstCompletes(t *testing.T) {
	m, err := NewBufferSyncManager(2)
	require.NoError(t, err)

	buffers := make([]*fakeCommandBuffer, 5)
	for i := range buffers {
		buffers[i] = &fakeCommandBuffer{}
	}
	frameDone := make(chan int, 5)

	advance := func(frame int) {
		m.MarkCommandBufferAsEndOfFrame(buffers[frame])
		m.ManageEndOfFrameSync()
		frameDone <- frame
	}

	// Two frames in flight: both acquisitions succeed immediately.
	advance(0)
	advance(1)
	require.Len(t, frameDone, 2)
	<-frameDone
	<-frameDone

	// The third frame must block until frame 0's completion fires.
	go advance(2)

	select {
	case <-frameDone:
		t.Fatal("third frame advanced while two frames were still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	buffers[0].fireCompleted()

	select {
	case frame := <-frameDone:
		assert.Equal(t, 2, frame)
	case <-time.After(time.Second):
		t.Fatal("third frame did not advance after frame 0 completed")
	}

	// Frames 3 and 4 keep the in-flight bound: each blocks until the
	// oldest outstanding frame completes.
	go advance(3)
	select {
	case <-frameDone:
		t.Fatal("fourth frame advanced without a completed frame")
	case <-time.After(50 * time.Millisecond):
	}
	buffers[1].fireCompleted()
	select {
	case <-frameDone:
	case <-time.After(time.Second):
		t.Fatal("fourth frame did not advance after frame 1 completed")
	}

	go advance(4)
	buffers[2].fireCompleted()
	select {
	case <-frameDone:
	case <-time.After(time.Second):
		t.Fatal("fifth frame did not advance after frame 2 completed")
	}
}
