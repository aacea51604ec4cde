package testbed

import (
	"encoding/binary"
	"fmt"
	stdmath "math"
	"os"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/graphics"
	"github.com/spaghettifunk/prism/engine/math"
)

const openglVertexShader = `#version 410 core
layout(location = 0) in vec2 inPosition;
layout(location = 1) in vec3 inColor;
uniform UniformBlock { mat4 mvp; } ubo;
out vec3 fragColor;
void main() {
	gl_Position = ubo.mvp * vec4(inPosition, 0.0, 1.0);
	fragColor = inColor;
}
`

const openglFragmentShader = `#version 410 core
in vec3 fragColor;
out vec4 outColor;
void main() {
	outColor = vec4(fragColor, 1.0);
}
`

// TriangleSession renders one spinning triangle. It exercises buffer and
// pipeline creation, per-frame uniform upload and the encoder draw path.
type TriangleSession struct {
	device   graphics.Device
	queue    graphics.CommandQueue
	pipeline graphics.RenderPipelineState
	vertices graphics.Buffer
	uniforms graphics.Buffer

	width  uint32
	height uint32
	angle  float32
}

func NewTriangleSession() *TriangleSession {
	return &TriangleSession{
		width:  1280,
		height: 720,
		angle:  math.RandomRange(0, math.TwoPi),
	}
}

func (s *TriangleSession) Initialize(device graphics.Device) error {
	s.device = device

	queue, err := device.CreateCommandQueue(graphics.CommandQueueDesc{Label: "testbed"})
	if err != nil {
		return err
	}
	s.queue = queue

	// x, y, r, g, b
	vertexData := floatBytes(
		0.0, 0.6, 1.0, 0.2, 0.2,
		-0.6, -0.6, 0.2, 1.0, 0.2,
		0.6, -0.6, 0.2, 0.2, 1.0,
	)
	s.vertices, err = device.CreateBuffer(graphics.BufferDesc{
		Data:  vertexData,
		Size:  uint64(len(vertexData)),
		Usage: graphics.BufferUsageVertex,
		Label: "triangle-vertices",
	})
	if err != nil {
		return err
	}

	s.uniforms, err = device.CreateBuffer(graphics.BufferDesc{
		Size:    64,
		Usage:   graphics.BufferUsageUniform,
		Storage: graphics.StorageModeShared,
		Label:   "triangle-uniforms",
	})
	if err != nil {
		return err
	}

	stages, err := s.createShaderStages()
	if err != nil {
		return err
	}

	vertexInput, err := device.CreateVertexInputState(graphics.VertexInputDesc{
		Attributes: []graphics.VertexAttribute{
			{Format: graphics.VertexFormatFloat2, Offset: 0, BufferIndex: 0, Location: 0},
			{Format: graphics.VertexFormatFloat3, Offset: 8, BufferIndex: 0, Location: 1},
		},
		Bindings: []graphics.VertexBinding{{Stride: 20}},
		Label:    "triangle-layout",
	})
	if err != nil {
		return err
	}

	s.pipeline, err = device.CreateRenderPipeline(graphics.RenderPipelineDesc{
		Stages:      stages,
		VertexInput: vertexInput,
		ColorFormat: graphics.TextureFormatBGRA8UNorm,
		Cull:        graphics.CullModeNone,
		Winding:     graphics.WindingCounterClockwise,
		Primitive:   graphics.PrimitiveTriangle,
		Label:       "triangle",
	})
	if err != nil {
		return err
	}

	core.LogInfo("testbed session ready on %s", device.BackendType())
	return nil
}

func (s *TriangleSession) createShaderStages() (graphics.ShaderStages, error) {
	var vertCode, fragCode []byte
	entry := "main"

	switch s.device.BackendType() {
	case graphics.BackendOpenGL:
		vertCode = []byte(openglVertexShader)
		fragCode = []byte(openglFragmentShader)
	case graphics.BackendVulkan:
		var err error
		if vertCode, err = os.ReadFile("assets/shaders/triangle.vert.spv"); err != nil {
			return nil, fmt.Errorf("load vertex shader: %w", err)
		}
		if fragCode, err = os.ReadFile("assets/shaders/triangle.frag.spv"); err != nil {
			return nil, fmt.Errorf("load fragment shader: %w", err)
		}
	default:
		return nil, graphics.NewResult(graphics.Unsupported, "testbed has no shaders for backend %s", s.device.BackendType())
	}

	vert, err := s.device.CreateShaderModule(graphics.ShaderModuleDesc{
		Stage: graphics.ShaderStageVertex,
		Code:  vertCode,
		Entry: entry,
		Label: "triangle-vert",
	})
	if err != nil {
		return nil, err
	}
	frag, err := s.device.CreateShaderModule(graphics.ShaderModuleDesc{
		Stage: graphics.ShaderStageFragment,
		Code:  fragCode,
		Entry: entry,
		Label: "triangle-frag",
	})
	if err != nil {
		return nil, err
	}
	return s.device.CreateShaderStages(graphics.ShaderStagesDesc{
		Vertex:   vert,
		Fragment: frag,
		Label:    "triangle",
	})
}

func (s *TriangleSession) Update(surface graphics.SurfaceTextures, deltaTime float64) error {
	s.angle += float32(deltaTime)
	aspect := float32(s.width) / float32(s.height)
	mvp := math.NewMat4Scale(math.Vec3{X: 1.0 / aspect, Y: 1.0, Z: 1.0}).Mul(math.NewMat4EulerZ(s.angle))
	if err := s.uniforms.Upload(mvp.Bytes(), 0); err != nil {
		return err
	}

	fb, err := s.device.CreateFramebuffer(graphics.FramebufferDesc{
		ColorAttachment: surface.Color,
		DepthAttachment: surface.Depth,
		Label:           "backbuffer",
	})
	if err != nil {
		return err
	}

	cb, err := s.queue.CreateCommandBuffer(graphics.CommandBufferDesc{Label: "frame"})
	if err != nil {
		return err
	}

	encoder, err := cb.CreateRenderCommandEncoder(graphics.RenderPassDesc{
		ColorLoadAction:  graphics.LoadActionClear,
		ColorStoreAction: graphics.StoreActionStore,
		ClearColor:       graphics.Color{R: 0.05, G: 0.05, B: 0.08, A: 1.0},
		DepthLoadAction:  graphics.LoadActionClear,
		ClearDepth:       1.0,
	}, fb)
	if err != nil {
		return err
	}

	encoder.BindRenderPipelineState(s.pipeline)
	encoder.BindVertexBuffer(0, s.vertices, 0)
	encoder.BindUniformBuffer(0, s.uniforms, 0)
	encoder.Draw(3, 1, 0, 0)
	encoder.EndEncoding()

	if err := cb.Present(surface.Color); err != nil {
		return err
	}
	if _, err := s.queue.Submit(cb); err != nil {
		return err
	}
	return nil
}

func (s *TriangleSession) Resize(width, height uint32) {
	s.width = width
	s.height = height
}

func (s *TriangleSession) Shutdown() {
	if s.vertices != nil {
		s.vertices.Destroy()
	}
	if s.uniforms != nil {
		s.uniforms.Destroy()
	}
}

func floatBytes(values ...float32) []byte {
	out := make([]byte, 0, len(values)*4)
	for _, v := range values {
		out = binary.LittleEndian.AppendUint32(out, stdmath.Float32bits(v))
	}
	return out
}
