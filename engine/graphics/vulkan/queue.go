package vulkan

import (
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/graphics"
)

// Queue serializes submission. All submissions funnel through the immediate
// pool of the owning device, so handles returned here increase strictly.
type Queue struct {
	device *Device
	label  string
}

func (q *Queue) CreateCommandBuffer(desc graphics.CommandBufferDesc) (graphics.CommandBuffer, error) {
	if q.device == nil || q.device.context == nil || q.device.context.Device == nil {
		return nil, graphics.NewResult(graphics.RuntimeError, "no context set")
	}
	wrapper, err := q.device.immediate.Acquire()
	if err != nil {
		return nil, err
	}
	return &commandBuffer{
		device:  q.device,
		wrapper: wrapper,
		label:   desc.Label,
	}, nil
}

func (q *Queue) Submit(buf graphics.CommandBuffer) (graphics.SubmitHandle, error) {
	cb, ok := buf.(*commandBuffer)
	if !ok || cb == nil {
		return 0, graphics.NewResult(graphics.ArgumentInvalid, "command buffer was not created by this queue")
	}

	device := q.device
	presenting := false
	for _, target := range cb.PresentTargets() {
		if vt, isVk := target.(*vulkanTexture); isVk && vt.presentable {
			presenting = true
		}
	}

	// A presenting submission must wait for the swapchain image acquire.
	if presenting && device.swapchain != nil {
		device.immediate.WaitSemaphore(device.swapchain.AcquireSemaphore)
	}

	handle, err := device.immediate.Submit(cb.wrapper)
	if err != nil {
		return 0, err
	}
	cb.MarkSubmitted(handle)
	// vkQueueSubmit returning means the driver accepted the work.
	cb.MarkScheduled()

	if presenting && device.swapchain != nil {
		renderComplete := device.immediate.AcquireLastSubmitSemaphore()
		if !device.swapchain.SwapchainPresent(device, device.context.Device.PresentQueue, renderComplete, device.swapchain.CurrentImageIndex) {
			core.LogWarn("Swapchain went out of date at present; recreating next frame.")
			device.context.FramebufferSizeGeneration++
		}
	}

	// Completed submissions unlock deferred destructions.
	device.destroyQueue.Drain()

	return handle, nil
}
