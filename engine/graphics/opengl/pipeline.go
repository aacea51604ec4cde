package opengl

import (
	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/graphics"
)

type glRenderPipeline struct {
	program uint32
	vao     uint32
	desc    graphics.RenderPipelineDesc
}

func (p *glRenderPipeline) Label() string { return p.desc.Label }

func newGLRenderPipeline(desc graphics.RenderPipelineDesc) (*glRenderPipeline, error) {
	stages, ok := desc.Stages.(*glShaderStages)
	if !ok {
		return nil, graphics.NewResult(graphics.ArgumentInvalid, "shader stages were not created by this device")
	}

	program, err := stages.link()
	if err != nil {
		return nil, err
	}

	p := &glRenderPipeline{program: program, desc: desc}
	gl.GenVertexArrays(1, &p.vao)

	core.MetricsCountShaderCompile()
	core.LogDebug("GL pipeline created: %s", desc.Label)
	return p, nil
}

// bind applies the whole fixed-function state the pipeline carries.
func (p *glRenderPipeline) bind() {
	gl.UseProgram(p.program)
	gl.BindVertexArray(p.vao)

	switch p.desc.Cull {
	case graphics.CullModeNone:
		gl.Disable(gl.CULL_FACE)
	case graphics.CullModeFront:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	default:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	}
	if p.desc.Winding == graphics.WindingClockwise {
		gl.FrontFace(gl.CW)
	} else {
		gl.FrontFace(gl.CCW)
	}

	if p.desc.BlendEnabled {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	} else {
		gl.Disable(gl.BLEND)
	}
}

// applyVertexLayout points the VAO attributes at the currently bound array
// buffer.
func (p *glRenderPipeline) applyVertexLayout() {
	vi, ok := p.desc.VertexInput.(*glVertexInputState)
	if !ok || vi == nil {
		return
	}
	for _, a := range vi.desc.Attributes {
		stride := int32(vi.desc.Bindings[a.BufferIndex].Stride)
		size, typ, normalized := glVertexFormat(a.Format)
		gl.EnableVertexAttribArray(a.Location)
		gl.VertexAttribPointerWithOffset(a.Location, size, typ, normalized, stride, uintptr(a.Offset))
	}
}

func (p *glRenderPipeline) primitive() uint32 {
	switch p.desc.Primitive {
	case graphics.PrimitiveTriangleStrip:
		return gl.TRIANGLE_STRIP
	case graphics.PrimitiveLine:
		return gl.LINES
	case graphics.PrimitiveLineStrip:
		return gl.LINE_STRIP
	case graphics.PrimitivePoint:
		return gl.POINTS
	}
	return gl.TRIANGLES
}

func glVertexFormat(f graphics.VertexFormat) (size int32, typ uint32, normalized bool) {
	switch f {
	case graphics.VertexFormatFloat1:
		return 1, gl.FLOAT, false
	case graphics.VertexFormatFloat2:
		return 2, gl.FLOAT, false
	case graphics.VertexFormatFloat3:
		return 3, gl.FLOAT, false
	case graphics.VertexFormatFloat4:
		return 4, gl.FLOAT, false
	case graphics.VertexFormatUByte4Norm:
		return 4, gl.UNSIGNED_BYTE, true
	}
	return 4, gl.FLOAT, false
}
