package graphics

// CommandBuffer is a recorded sequence of GPU operations. Created per frame
// or per pass, submitted once through its queue, then invalid for further
// recording. Not safe for concurrent use; record from one thread.
type CommandBuffer interface {
	// CreateRenderCommandEncoder opens a render encoder targeting the
	// framebuffer. Only one encoder may be open at a time.
	CreateRenderCommandEncoder(desc RenderPassDesc, fb Framebuffer) (RenderCommandEncoder, error)
	// CreateComputeCommandEncoder opens a compute encoder.
	CreateComputeCommandEncoder() (ComputeCommandEncoder, error)

	// CopyBuffer records a GPU-side buffer copy.
	CopyBuffer(src, dst Buffer, srcOffset, dstOffset, size uint64) error
	// CopyTextureToBuffer records a GPU-side readback copy.
	CopyTextureToBuffer(src Texture, dst Buffer, dstOffset uint64) error

	PushDebugGroupLabel(label string)
	PopDebugGroupLabel()

	// Present marks the surface for display at submission time. It does not
	// itself submit.
	Present(surface Texture) error

	// State exposes the lifecycle for callers that poll.
	State() CommandBufferState

	// WaitUntilScheduled blocks until the backend has handed the buffer to
	// the GPU driver. No-op before submission completes the transition or
	// after Completed.
	WaitUntilScheduled()
	// WaitUntilCompleted blocks until GPU execution finished. No-op after
	// Completed.
	WaitUntilCompleted()
}

type CommandBufferDesc struct {
	Label string
}

// CommandQueue serializes submission of command buffers to the GPU. Within
// one queue, submitted buffers execute GPU-side in submission order; the
// returned handles increase strictly.
type CommandQueue interface {
	// CreateCommandBuffer returns a fresh Recording buffer, or a
	// RuntimeError when no valid graphics context is bound.
	CreateCommandBuffer(desc CommandBufferDesc) (CommandBuffer, error)
	// Submit hands the buffer to the GPU and returns its SubmitHandle.
	Submit(buf CommandBuffer) (SubmitHandle, error)
}
