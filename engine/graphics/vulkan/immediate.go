package vulkan

import (
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/graphics"
)

// The maximum number of command buffers which can simultaneously exist in
// the pool; when we run out, Acquire stalls until one becomes available.
const MaxImmediateCommandBuffers = 32

// CommandBufferWrapper bundles a native command buffer with the fence that
// proves its completion and the semaphore chained into the next submission.
type CommandBufferWrapper struct {
	CmdBuf     vk.CommandBuffer
	Handle     graphics.SubmitHandle
	Fence      *VulkanFence
	Semaphore  vk.Semaphore
	IsEncoding bool
}

// ImmediateCommands hands out pre-allocated command buffers and tracks their
// completion through per-wrapper fences. A SubmitHandle packs the wrapper
// index with a monotonically increasing submit id, so a handle can always be
// mapped back to the fence that retires it — and a stale handle is detected
// as recycled instead of aliasing a newer submission.
type ImmediateCommands struct {
	context          *VulkanContext
	pool             vk.CommandPool
	queue            vk.Queue
	buffers          [MaxImmediateCommandBuffers]CommandBufferWrapper
	lastSubmitHandle graphics.SubmitHandle
	lastSubmitSem    vk.Semaphore
	waitSem          vk.Semaphore
	nextSubmitID     uint32
	numAvailable     int
	mu               sync.Mutex
}

func NewImmediateCommands(context *VulkanContext, queueFamilyIndex uint32, queue vk.Queue) (*ImmediateCommands, error) {
	ic := &ImmediateCommands{
		context:      context,
		queue:        queue,
		nextSubmitID: 1,
		numAvailable: MaxImmediateCommandBuffers,
	}

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: queueFamilyIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit | vk.CommandPoolCreateTransientBit),
	}
	if res := vk.CreateCommandPool(context.Device.LogicalDevice, &poolCreateInfo, context.Allocator, &ic.pool); res != vk.Success {
		return nil, resultFromVk(res, "vkCreateCommandPool")
	}

	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        ic.pool,
		CommandBufferCount: MaxImmediateCommandBuffers,
		Level:              vk.CommandBufferLevelPrimary,
	}
	cmdBufs := make([]vk.CommandBuffer, MaxImmediateCommandBuffers)
	if res := vk.AllocateCommandBuffers(context.Device.LogicalDevice, &allocateInfo, cmdBufs); res != vk.Success {
		return nil, resultFromVk(res, "vkAllocateCommandBuffers")
	}

	for i := 0; i < MaxImmediateCommandBuffers; i++ {
		fence, err := NewFence(context, false)
		if err != nil {
			return nil, err
		}
		semInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
		var sem vk.Semaphore
		if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semInfo, context.Allocator, &sem); res != vk.Success {
			return nil, resultFromVk(res, "vkCreateSemaphore")
		}
		ic.buffers[i] = CommandBufferWrapper{
			CmdBuf:    cmdBufs[i],
			Fence:     fence,
			Semaphore: sem,
		}
	}

	return ic, nil
}

func (ic *ImmediateCommands) Destroy() {
	ic.WaitAll()
	for i := range ic.buffers {
		ic.buffers[i].Fence.FenceDestroy(ic.context)
		vk.DestroySemaphore(ic.context.Device.LogicalDevice, ic.buffers[i].Semaphore, ic.context.Allocator)
	}
	vk.DestroyCommandPool(ic.context.Device.LogicalDevice, ic.pool, ic.context.Allocator)
}

// purge reclaims wrappers whose fences have signaled.
func (ic *ImmediateCommands) purge() {
	for i := range ic.buffers {
		w := &ic.buffers[i]
		if w.Handle.Empty() || w.IsEncoding {
			continue
		}
		if w.Fence.FenceStatus(ic.context) {
			if res := vk.ResetCommandBuffer(w.CmdBuf, 0); res != vk.Success {
				core.LogWarn("failed to reset immediate command buffer: %d", res)
			}
			w.Fence.FenceReset(ic.context)
			w.Handle = graphics.SubmitHandle(0)
			ic.numAvailable++
		}
	}
}

// Acquire returns a wrapper in the recording state, stalling on the oldest
// fence when the pool is exhausted.
func (ic *ImmediateCommands) Acquire() (*CommandBufferWrapper, error) {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	ic.purge()
	for ic.numAvailable == 0 {
		core.LogWarn("immediate command buffers exhausted, waiting on oldest fence...")
		if !ic.waitOldestLocked() {
			return nil, graphics.NewResult(graphics.RuntimeError, "failed waiting for an immediate command buffer")
		}
		ic.purge()
	}

	for i := range ic.buffers {
		w := &ic.buffers[i]
		if w.Handle.Empty() && !w.IsEncoding {
			w.IsEncoding = true
			ic.numAvailable--

			beginInfo := vk.CommandBufferBeginInfo{
				SType: vk.StructureTypeCommandBufferBeginInfo,
				Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
			}
			if res := vk.BeginCommandBuffer(w.CmdBuf, &beginInfo); res != vk.Success {
				w.IsEncoding = false
				ic.numAvailable++
				return nil, resultFromVk(res, "vkBeginCommandBuffer")
			}
			return w, nil
		}
	}

	err := fmt.Errorf("immediate command pool accounting is corrupt")
	core.LogError(err.Error())
	return nil, err
}

// Submit ends recording and submits the wrapper, returning its handle.
func (ic *ImmediateCommands) Submit(w *CommandBufferWrapper) (graphics.SubmitHandle, error) {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	if res := vk.EndCommandBuffer(w.CmdBuf); res != vk.Success {
		return 0, resultFromVk(res, "vkEndCommandBuffer")
	}

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{w.CmdBuf},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{w.Semaphore},
	}
	if ic.waitSem != nil {
		submitInfo.WaitSemaphoreCount = 1
		submitInfo.PWaitSemaphores = []vk.Semaphore{ic.waitSem}
		submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)}
	}

	if res := vk.QueueSubmit(ic.queue, 1, []vk.SubmitInfo{submitInfo}, w.Fence.Handle); res != vk.Success {
		return 0, resultFromVk(res, "vkQueueSubmit")
	}

	var bufferIndex uint32
	for i := range ic.buffers {
		if &ic.buffers[i] == w {
			bufferIndex = uint32(i)
			break
		}
	}

	w.Handle = graphics.NewSubmitHandle(bufferIndex, ic.nextSubmitID)
	w.IsEncoding = false
	ic.nextSubmitID++
	ic.lastSubmitHandle = w.Handle
	ic.lastSubmitSem = w.Semaphore
	ic.waitSem = nil
	core.MetricsCountSubmit()

	return w.Handle, nil
}

// WaitSemaphore chains the given semaphore into the next submission.
func (ic *ImmediateCommands) WaitSemaphore(sem vk.Semaphore) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.waitSem = sem
}

// AcquireLastSubmitSemaphore returns the semaphore signaled by the most
// recent submission and clears it.
func (ic *ImmediateCommands) AcquireLastSubmitSemaphore() vk.Semaphore {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	sem := ic.lastSubmitSem
	ic.lastSubmitSem = nil
	return sem
}

func (ic *ImmediateCommands) LastSubmitHandle() graphics.SubmitHandle {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.lastSubmitHandle
}

// IsRecycled reports whether the wrapper referenced by the handle has been
// reused for a newer submission. A recycled handle's work is long complete.
func (ic *ImmediateCommands) IsRecycled(handle graphics.SubmitHandle) bool {
	if handle.Empty() {
		return true
	}
	idx := handle.BufferIndex()
	if idx >= MaxImmediateCommandBuffers {
		return true
	}
	current := ic.buffers[idx].Handle
	return current.Empty() || current.SubmitID() != handle.SubmitID()
}

// IsReady is a non-blocking completion poll.
func (ic *ImmediateCommands) IsReady(handle graphics.SubmitHandle) bool {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.isReadyLocked(handle)
}

func (ic *ImmediateCommands) isReadyLocked(handle graphics.SubmitHandle) bool {
	if ic.IsRecycled(handle) {
		return true
	}
	return ic.buffers[handle.BufferIndex()].Fence.FenceStatus(ic.context)
}

// IsComplete implements graphics.CompletionTracker.
func (ic *ImmediateCommands) IsComplete(handle graphics.SubmitHandle) bool {
	return ic.IsReady(handle)
}

// Wait blocks until the handle's work completed. Blocks indefinitely,
// matching the native fence semantics.
func (ic *ImmediateCommands) Wait(handle graphics.SubmitHandle) bool {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	if ic.IsRecycled(handle) {
		return true
	}
	w := &ic.buffers[handle.BufferIndex()]
	if !w.Fence.FenceWaitIndefinite(ic.context) {
		return false
	}
	ic.purge()
	return true
}

func (ic *ImmediateCommands) WaitAll() {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	for i := range ic.buffers {
		w := &ic.buffers[i]
		if !w.Handle.Empty() && !w.IsEncoding {
			w.Fence.FenceWaitIndefinite(ic.context)
		}
	}
	ic.purge()
}

func (ic *ImmediateCommands) waitOldestLocked() bool {
	oldest := graphics.SubmitHandle(0)
	var oldestWrapper *CommandBufferWrapper
	for i := range ic.buffers {
		w := &ic.buffers[i]
		if w.Handle.Empty() || w.IsEncoding {
			continue
		}
		if oldest.Empty() || w.Handle.SubmitID() < oldest.SubmitID() {
			oldest = w.Handle
			oldestWrapper = w
		}
	}
	if oldestWrapper == nil {
		return false
	}
	return oldestWrapper.Fence.FenceWaitIndefinite(ic.context)
}
