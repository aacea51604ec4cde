package opengl

import (
	"sync/atomic"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/graphics"
)

// commandBuffer captures recorded commands as closures and replays them on
// the context thread at submit. Because execution happens inside Submit, a
// buffer is Completed the moment Submit returns, and the wait operations
// are no-ops.
type commandBuffer struct {
	graphics.CommandBufferBase
	device   *Device
	label    string
	commands []func()
}

func (cb *commandBuffer) record(f func()) {
	cb.commands = append(cb.commands, f)
}

func (cb *commandBuffer) CreateRenderCommandEncoder(desc graphics.RenderPassDesc, fb graphics.Framebuffer) (graphics.RenderCommandEncoder, error) {
	cb.BeginEncoder("Render")

	gfb, ok := fb.(*glFramebuffer)
	if !ok || gfb == nil {
		cb.EndEncoder()
		return nil, graphics.NewResult(graphics.ArgumentNull, "render encoder requires a framebuffer from this device")
	}

	cb.record(func() {
		gfb.bind()
		var clearBits uint32
		if desc.ColorLoadAction == graphics.LoadActionClear {
			c := desc.ClearColor
			gl.ClearColor(c.R, c.G, c.B, c.A)
			clearBits |= gl.COLOR_BUFFER_BIT
		}
		if desc.DepthLoadAction == graphics.LoadActionClear {
			gl.ClearDepth(float64(desc.ClearDepth))
			clearBits |= gl.DEPTH_BUFFER_BIT
		}
		if desc.StencilLoadAction == graphics.LoadActionClear {
			gl.ClearStencil(int32(desc.ClearStencil))
			clearBits |= gl.STENCIL_BUFFER_BIT
		}
		if clearBits != 0 {
			gl.Clear(clearBits)
		}
	})

	return &renderEncoder{cb: cb}, nil
}

func (cb *commandBuffer) CreateComputeCommandEncoder() (graphics.ComputeCommandEncoder, error) {
	cb.BeginEncoder("Compute")
	cb.EndEncoder()
	return nil, graphics.NewResult(graphics.Unimplemented, "compute encoders are not available on the OpenGL backend")
}

func (cb *commandBuffer) CopyBuffer(src, dst graphics.Buffer, srcOffset, dstOffset, size uint64) error {
	cb.AssertRecording("copyBuffer")
	gsrc, okSrc := src.(*glBuffer)
	gdst, okDst := dst.(*glBuffer)
	if !okSrc || !okDst {
		return graphics.NewResult(graphics.ArgumentInvalid, "copy requires buffers created by this device")
	}
	if srcOffset+size > gsrc.size || dstOffset+size > gdst.size {
		return graphics.NewResult(graphics.ArgumentOutOfRange,
			"copy of %d bytes exceeds buffer bounds (src %d, dst %d)", size, gsrc.size, gdst.size)
	}
	cb.record(func() {
		gl.BindBuffer(gl.COPY_READ_BUFFER, gsrc.id)
		gl.BindBuffer(gl.COPY_WRITE_BUFFER, gdst.id)
		gl.CopyBufferSubData(gl.COPY_READ_BUFFER, gl.COPY_WRITE_BUFFER, int(srcOffset), int(dstOffset), int(size))
		gl.BindBuffer(gl.COPY_READ_BUFFER, 0)
		gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)
	})
	return nil
}

func (cb *commandBuffer) CopyTextureToBuffer(src graphics.Texture, dst graphics.Buffer, dstOffset uint64) error {
	cb.AssertRecording("copyTextureToBuffer")
	gsrc, okSrc := src.(*glTexture)
	gdst, okDst := dst.(*glBuffer)
	if !okSrc || !okDst {
		return graphics.NewResult(graphics.ArgumentInvalid, "copy requires resources created by this device")
	}
	need := uint64(gsrc.desc.Width) * uint64(gsrc.desc.Height) * uint64(gsrc.desc.Format.BytesPerPixel())
	if dstOffset+need > gdst.size {
		return graphics.NewResult(graphics.ArgumentOutOfRange,
			"readback needs %d bytes at offset %d but buffer holds %d", need, dstOffset, gdst.size)
	}
	cb.record(func() {
		var fbo uint32
		gl.GenFramebuffers(1, &fbo)
		gl.BindFramebuffer(gl.READ_FRAMEBUFFER, fbo)
		gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, gsrc.id, 0)
		_, format, typ, _ := glTextureFormat(gsrc.desc.Format)
		gl.BindBuffer(gl.PIXEL_PACK_BUFFER, gdst.id)
		gl.ReadPixels(0, 0, int32(gsrc.desc.Width), int32(gsrc.desc.Height), format, typ, gl.PtrOffset(int(dstOffset)))
		gl.BindBuffer(gl.PIXEL_PACK_BUFFER, 0)
		gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
		gl.DeleteFramebuffers(1, &fbo)
	})
	return nil
}

func (cb *commandBuffer) PushDebugGroupLabel(label string) {
	core.LogDebug("[%s] debug group begin: %s", cb.label, label)
}

func (cb *commandBuffer) PopDebugGroupLabel() {}

func (cb *commandBuffer) Present(surface graphics.Texture) error {
	return cb.MarkPresent(surface)
}

func (cb *commandBuffer) WaitUntilScheduled() {}
func (cb *commandBuffer) WaitUntilCompleted() {}

// Queue executes buffers inline. Handles still increase strictly so callers
// can reason about submission order uniformly across backends.
type Queue struct {
	device       *Device
	label        string
	submitSerial atomic.Uint32
}

func (q *Queue) CreateCommandBuffer(desc graphics.CommandBufferDesc) (graphics.CommandBuffer, error) {
	if q.device == nil || q.device.window == nil {
		return nil, graphics.NewResult(graphics.RuntimeError, "no context set")
	}
	return &commandBuffer{device: q.device, label: desc.Label}, nil
}

func (q *Queue) Submit(buf graphics.CommandBuffer) (graphics.SubmitHandle, error) {
	cb, ok := buf.(*commandBuffer)
	if !ok || cb == nil {
		return 0, graphics.NewResult(graphics.ArgumentInvalid, "command buffer was not created by this queue")
	}

	handle := graphics.NewSubmitHandle(0, q.submitSerial.Add(1))
	cb.MarkSubmitted(handle)
	cb.MarkScheduled()

	for _, cmd := range cb.commands {
		cmd()
	}

	for _, target := range cb.PresentTargets() {
		if _, isBackbuffer := target.(*backbufferTexture); isBackbuffer {
			q.device.window.SwapBuffers()
		}
	}

	cb.MarkCompleted()
	core.MetricsCountSubmit()
	return handle, nil
}

// renderEncoder records draw state mutations as closures.
type renderEncoder struct {
	cb       *commandBuffer
	pipeline *glRenderPipeline
	// Index format recorded at bind time, consumed by DrawIndexed.
	indexType   uint32
	indexOffset uint64
	ended       bool
}

func (e *renderEncoder) BindRenderPipelineState(pso graphics.RenderPipelineState) {
	p, ok := pso.(*glRenderPipeline)
	if !ok {
		core.LogError("bindRenderPipelineState: pipeline was not created by this device")
		return
	}
	e.pipeline = p
	e.cb.record(func() { p.bind() })
}

func (e *renderEncoder) BindDepthStencilState(dss graphics.DepthStencilState) {
	s, ok := dss.(*glDepthStencilState)
	if !ok {
		core.LogError("bindDepthStencilState: state was not created by this device")
		return
	}
	e.cb.record(func() { s.apply() })
}

func (e *renderEncoder) BindViewport(v graphics.Viewport) {
	e.cb.record(func() {
		gl.Viewport(int32(v.X), int32(v.Y), int32(v.Width), int32(v.Height))
		gl.DepthRangef(v.MinDepth, v.MaxDepth)
	})
}

func (e *renderEncoder) BindScissorRect(r graphics.ScissorRect) {
	e.cb.record(func() {
		gl.Enable(gl.SCISSOR_TEST)
		gl.Scissor(int32(r.X), int32(r.Y), int32(r.Width), int32(r.Height))
	})
}

func (e *renderEncoder) BindVertexBuffer(index uint32, buf graphics.Buffer, offset uint64) {
	vb, ok := buf.(*glBuffer)
	if !ok {
		core.LogError("bindVertexBuffer: buffer was not created by this device")
		return
	}
	pipeline := e.pipeline
	e.cb.record(func() {
		gl.BindBuffer(gl.ARRAY_BUFFER, vb.id)
		if pipeline != nil {
			pipeline.applyVertexLayout()
		}
	})
}

func (e *renderEncoder) BindIndexBuffer(buf graphics.Buffer, format graphics.IndexFormat, offset uint64) {
	ib, ok := buf.(*glBuffer)
	if !ok {
		core.LogError("bindIndexBuffer: buffer was not created by this device")
		return
	}
	e.indexType = gl.UNSIGNED_SHORT
	if format == graphics.IndexFormatUInt32 {
		e.indexType = gl.UNSIGNED_INT
	}
	e.indexOffset = offset
	e.cb.record(func() {
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ib.id)
	})
}

func (e *renderEncoder) BindUniformBuffer(index uint32, buf graphics.Buffer, offset uint64) {
	ub, ok := buf.(*glBuffer)
	if !ok {
		core.LogError("bindUniformBuffer: buffer was not created by this device")
		return
	}
	e.cb.record(func() {
		gl.BindBufferRange(gl.UNIFORM_BUFFER, index, ub.id, int(offset), int(ub.size-offset))
	})
}

func (e *renderEncoder) BindTexture(index uint32, tex graphics.Texture) {
	t, ok := tex.(*glTexture)
	if !ok {
		core.LogError("bindTexture: texture was not created by this device")
		return
	}
	e.cb.record(func() {
		gl.ActiveTexture(gl.TEXTURE0 + index)
		gl.BindTexture(gl.TEXTURE_2D, t.id)
	})
}

func (e *renderEncoder) BindSamplerState(index uint32, s graphics.SamplerState) {
	gs, ok := s.(*glSamplerState)
	if !ok {
		core.LogError("bindSamplerState: sampler was not created by this device")
		return
	}
	e.cb.record(func() {
		gl.BindSampler(index, gs.id)
	})
}

func (e *renderEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	pipeline := e.pipeline
	if pipeline == nil {
		core.LogError("draw with no render pipeline bound")
		return
	}
	e.cb.record(func() {
		if instanceCount > 1 {
			gl.DrawArraysInstanced(pipeline.primitive(), int32(firstVertex), int32(vertexCount), int32(instanceCount))
		} else {
			gl.DrawArrays(pipeline.primitive(), int32(firstVertex), int32(vertexCount))
		}
		core.MetricsCountDraw()
	})
}

func (e *renderEncoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	pipeline := e.pipeline
	if pipeline == nil {
		core.LogError("drawIndexed with no render pipeline bound")
		return
	}
	indexType := e.indexType
	indexSize := uint64(2)
	if indexType == gl.UNSIGNED_INT {
		indexSize = 4
	}
	offset := e.indexOffset + uint64(firstIndex)*indexSize
	e.cb.record(func() {
		if instanceCount > 1 {
			gl.DrawElementsInstancedBaseVertex(pipeline.primitive(), int32(indexCount), indexType, gl.PtrOffset(int(offset)), int32(instanceCount), vertexOffset)
		} else {
			gl.DrawElementsBaseVertex(pipeline.primitive(), int32(indexCount), indexType, gl.PtrOffset(int(offset)), vertexOffset)
		}
		core.MetricsCountDraw()
	})
}

func (e *renderEncoder) PushDebugGroupLabel(label string) { e.cb.PushDebugGroupLabel(label) }
func (e *renderEncoder) PopDebugGroupLabel()              { e.cb.PopDebugGroupLabel() }

func (e *renderEncoder) EndEncoding() {
	if e.ended {
		core.LogFatal("EndEncoding called twice on a render encoder")
	}
	e.ended = true
	e.cb.record(func() {
		gl.Disable(gl.SCISSOR_TEST)
		gl.BindVertexArray(0)
		gl.UseProgram(0)
	})
	e.cb.EndEncoder()
}
