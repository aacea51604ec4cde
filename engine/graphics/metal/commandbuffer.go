package metal

import (
	"sync/atomic"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/graphics"
)

// commandBuffer bridges the portable state machine onto an MTLCommandBuffer.
// Scheduled/completed transitions ride the native handlers, which Metal
// fires on its own threads; the base's atomic state absorbs that.
type commandBuffer struct {
	graphics.CommandBufferBase
	device *Device
	native NativeCommandBuffer
	label  string
}

func (cb *commandBuffer) CreateRenderCommandEncoder(desc graphics.RenderPassDesc, fb graphics.Framebuffer) (graphics.RenderCommandEncoder, error) {
	cb.BeginEncoder("Render")

	mfb, ok := fb.(*metalFramebuffer)
	if !ok || mfb == nil {
		cb.EndEncoder()
		return nil, graphics.NewResult(graphics.ArgumentNull, "render encoder requires a framebuffer from this device")
	}

	var color, depth NativeTexture
	if t, isMetal := mfb.color.(*metalTexture); isMetal {
		color = t.native
	}
	if t, isMetal := mfb.depth.(*metalTexture); isMetal {
		depth = t.native
	}

	native, err := cb.native.RenderCommandEncoder(desc, color, depth)
	if err != nil {
		cb.EndEncoder()
		return nil, err
	}
	return &renderEncoder{cb: cb, native: native}, nil
}

func (cb *commandBuffer) CreateComputeCommandEncoder() (graphics.ComputeCommandEncoder, error) {
	cb.BeginEncoder("Compute")
	native, err := cb.native.ComputeCommandEncoder()
	if err != nil {
		cb.EndEncoder()
		return nil, err
	}
	return &computeEncoder{cb: cb, native: native}, nil
}

func (cb *commandBuffer) CopyBuffer(src, dst graphics.Buffer, srcOffset, dstOffset, size uint64) error {
	cb.AssertRecording("copyBuffer")
	msrc, okSrc := src.(*metalBuffer)
	mdst, okDst := dst.(*metalBuffer)
	if !okSrc || !okDst {
		return graphics.NewResult(graphics.ArgumentInvalid, "copy requires buffers created by this device")
	}
	if srcOffset+size > msrc.size || dstOffset+size > mdst.size {
		return graphics.NewResult(graphics.ArgumentOutOfRange,
			"copy of %d bytes exceeds buffer bounds (src %d, dst %d)", size, msrc.size, mdst.size)
	}
	cb.native.CopyBuffer(msrc.native, mdst.native, srcOffset, dstOffset, size)
	return nil
}

func (cb *commandBuffer) CopyTextureToBuffer(src graphics.Texture, dst graphics.Buffer, dstOffset uint64) error {
	cb.AssertRecording("copyTextureToBuffer")
	msrc, okSrc := src.(*metalTexture)
	mdst, okDst := dst.(*metalBuffer)
	if !okSrc || !okDst {
		return graphics.NewResult(graphics.ArgumentInvalid, "copy requires resources created by this device")
	}
	need := uint64(msrc.desc.Width) * uint64(msrc.desc.Height) * uint64(msrc.desc.Format.BytesPerPixel())
	if dstOffset+need > mdst.size {
		return graphics.NewResult(graphics.ArgumentOutOfRange,
			"readback needs %d bytes at offset %d but buffer holds %d", need, dstOffset, mdst.size)
	}
	cb.native.CopyTextureToBuffer(msrc.native, mdst.native, dstOffset)
	return nil
}

func (cb *commandBuffer) PushDebugGroupLabel(label string) {
	cb.native.PushDebugGroup(label)
}

func (cb *commandBuffer) PopDebugGroupLabel() {
	cb.native.PopDebugGroup()
}

func (cb *commandBuffer) Present(surface graphics.Texture) error {
	if surface != nil {
		if _, ok := surface.(*metalTexture); !ok {
			return graphics.NewResult(graphics.ArgumentInvalid, "present surface was not created by this device")
		}
	}
	return cb.MarkPresent(surface)
}

func (cb *commandBuffer) WaitUntilScheduled() {
	if cb.State() == graphics.CommandBufferStateRecording || cb.State() == graphics.CommandBufferStateCompleted {
		return
	}
	cb.native.WaitUntilScheduled()
}

func (cb *commandBuffer) WaitUntilCompleted() {
	if cb.State() == graphics.CommandBufferStateRecording || cb.State() == graphics.CommandBufferStateCompleted {
		return
	}
	cb.native.WaitUntilCompleted()
}

// Queue submits through the native queue and pins the lifecycle callbacks.
type Queue struct {
	device       *Device
	native       NativeCommandQueue
	label        string
	submitSerial atomic.Uint32
}

func (q *Queue) CreateCommandBuffer(desc graphics.CommandBufferDesc) (graphics.CommandBuffer, error) {
	if q.device == nil || q.native == nil {
		return nil, graphics.NewResult(graphics.RuntimeError, "no context set")
	}
	native, err := q.native.CommandBuffer()
	if err != nil {
		return nil, err
	}
	return &commandBuffer{device: q.device, native: native, label: desc.Label}, nil
}

func (q *Queue) Submit(buf graphics.CommandBuffer) (graphics.SubmitHandle, error) {
	cb, ok := buf.(*commandBuffer)
	if !ok || cb == nil {
		return 0, graphics.NewResult(graphics.ArgumentInvalid, "command buffer was not created by this queue")
	}

	for _, target := range cb.PresentTargets() {
		if t, isMetal := target.(*metalTexture); isMetal {
			cb.native.PresentDrawable(t.native)
		}
	}

	handle := graphics.NewSubmitHandle(0, q.submitSerial.Add(1))
	cb.MarkSubmitted(handle)
	cb.native.AddScheduledHandler(cb.MarkScheduled)
	cb.native.AddCompletedHandler(cb.MarkCompleted)

	// Only the presenting submission closes a frame. Auxiliary passes
	// submitted earlier in the frame must not consume a frame slot or
	// advance the per-frame resource index.
	endOfFrame := len(cb.PresentTargets()) > 0
	if endOfFrame {
		q.device.sync.MarkCommandBufferAsEndOfFrame(cb.native)
	}
	cb.native.Commit()
	if endOfFrame {
		q.device.sync.ManageEndOfFrameSync()
	}
	core.MetricsCountSubmit()
	return handle, nil
}

type renderEncoder struct {
	cb     *commandBuffer
	native NativeRenderCommandEncoder

	pipeline *metalRenderPipeline
	// Metal takes the index buffer at draw time, not bind time.
	indexBuffer *metalBuffer
	indexFormat graphics.IndexFormat
	indexOffset uint64
	ended       bool
}

func (e *renderEncoder) BindRenderPipelineState(pso graphics.RenderPipelineState) {
	p, ok := pso.(*metalRenderPipeline)
	if !ok {
		core.LogError("bindRenderPipelineState: pipeline was not created by this device")
		return
	}
	e.pipeline = p
	e.native.SetRenderPipelineState(p.native)
}

func (e *renderEncoder) BindDepthStencilState(dss graphics.DepthStencilState) {
	s, ok := dss.(*metalDepthStencilState)
	if !ok {
		core.LogError("bindDepthStencilState: state was not created by this device")
		return
	}
	e.native.SetDepthStencilState(s.native)
}

func (e *renderEncoder) BindViewport(v graphics.Viewport) {
	e.native.SetViewport(v)
}

func (e *renderEncoder) BindScissorRect(r graphics.ScissorRect) {
	e.native.SetScissorRect(r)
}

func (e *renderEncoder) BindVertexBuffer(index uint32, buf graphics.Buffer, offset uint64) {
	vb, ok := buf.(*metalBuffer)
	if !ok {
		core.LogError("bindVertexBuffer: buffer was not created by this device")
		return
	}
	e.native.SetVertexBuffer(index, vb.native, offset)
}

func (e *renderEncoder) BindIndexBuffer(buf graphics.Buffer, format graphics.IndexFormat, offset uint64) {
	ib, ok := buf.(*metalBuffer)
	if !ok {
		core.LogError("bindIndexBuffer: buffer was not created by this device")
		return
	}
	e.indexBuffer = ib
	e.indexFormat = format
	e.indexOffset = offset
}

func (e *renderEncoder) BindUniformBuffer(index uint32, buf graphics.Buffer, offset uint64) {
	ub, ok := buf.(*metalBuffer)
	if !ok {
		core.LogError("bindUniformBuffer: buffer was not created by this device")
		return
	}
	e.native.SetVertexBuffer(index, ub.native, offset)
	e.native.SetFragmentBuffer(index, ub.native, offset)
}

func (e *renderEncoder) BindTexture(index uint32, tex graphics.Texture) {
	t, ok := tex.(*metalTexture)
	if !ok {
		core.LogError("bindTexture: texture was not created by this device")
		return
	}
	e.native.SetFragmentTexture(index, t.native)
}

func (e *renderEncoder) BindSamplerState(index uint32, s graphics.SamplerState) {
	ms, ok := s.(*metalSamplerState)
	if !ok {
		core.LogError("bindSamplerState: sampler was not created by this device")
		return
	}
	e.native.SetFragmentSamplerState(index, ms.native)
}

func (e *renderEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if e.pipeline == nil {
		core.LogError("draw with no render pipeline bound")
		return
	}
	e.native.Draw(e.pipeline.desc.Primitive, vertexCount, instanceCount, firstVertex, firstInstance)
	core.MetricsCountDraw()
}

func (e *renderEncoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	if e.pipeline == nil {
		core.LogError("drawIndexed with no render pipeline bound")
		return
	}
	if e.indexBuffer == nil {
		core.LogError("drawIndexed with no index buffer bound")
		return
	}
	e.native.DrawIndexed(e.pipeline.desc.Primitive, indexCount, instanceCount, firstIndex, e.indexFormat, e.indexBuffer.native, e.indexOffset, vertexOffset)
	core.MetricsCountDraw()
}

func (e *renderEncoder) PushDebugGroupLabel(label string) { e.cb.PushDebugGroupLabel(label) }
func (e *renderEncoder) PopDebugGroupLabel()              { e.cb.PopDebugGroupLabel() }

func (e *renderEncoder) EndEncoding() {
	if e.ended {
		core.LogFatal("EndEncoding called twice on a render encoder")
	}
	e.ended = true
	e.native.EndEncoding()
	e.cb.EndEncoder()
}

type computeEncoder struct {
	cb       *commandBuffer
	native   NativeComputeCommandEncoder
	pipeline *metalComputePipeline
	ended    bool
}

func (e *computeEncoder) BindComputePipelineState(pso graphics.ComputePipelineState) {
	p, ok := pso.(*metalComputePipeline)
	if !ok {
		core.LogError("bindComputePipelineState: pipeline was not created by this device")
		return
	}
	e.pipeline = p
	e.native.SetComputePipelineState(p.native)
}

func (e *computeEncoder) BindBuffer(index uint32, buf graphics.Buffer, offset uint64) {
	mb, ok := buf.(*metalBuffer)
	if !ok {
		core.LogError("bindBuffer: buffer was not created by this device")
		return
	}
	e.native.SetBuffer(index, mb.native, offset)
}

func (e *computeEncoder) BindTexture(index uint32, tex graphics.Texture) {
	t, ok := tex.(*metalTexture)
	if !ok {
		core.LogError("bindTexture: texture was not created by this device")
		return
	}
	e.native.SetTexture(index, t.native)
}

func (e *computeEncoder) DispatchThreadGroups(groups graphics.Dimensions) {
	if e.pipeline == nil {
		core.LogError("dispatch with no compute pipeline bound")
		return
	}
	e.native.DispatchThreadgroups(groups)
}

func (e *computeEncoder) PushDebugGroupLabel(label string) { e.cb.PushDebugGroupLabel(label) }
func (e *computeEncoder) PopDebugGroupLabel()              { e.cb.PopDebugGroupLabel() }

func (e *computeEncoder) EndEncoding() {
	if e.ended {
		core.LogFatal("EndEncoding called twice on a compute encoder")
	}
	e.ended = true
	e.native.EndEncoding()
	e.cb.EndEncoder()
}
