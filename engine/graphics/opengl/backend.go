package opengl

import (
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/graphics"
)

// Device is the OpenGL implementation of graphics.Device. OpenGL has no
// native command buffers; recording captures closures that execute on the
// context thread at submit, so a submitted buffer is complete when Submit
// returns. That makes this backend fully synchronous and a convenient
// conformance reference for the others.
type Device struct {
	window    *glfw.Window
	pipelines *graphics.PipelineCache
	config    graphics.DeviceConfig
}

// Querier enumerates the single adapter the bound context exposes.
type Querier struct {
	Window *glfw.Window
}

func (q *Querier) QueryDevices() ([]graphics.HWDeviceDesc, error) {
	if q.Window == nil {
		return nil, graphics.NewResult(graphics.RuntimeError, "no context set")
	}
	q.Window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		return nil, graphics.NewResult(graphics.RuntimeError, "failed to initialize OpenGL: %s", err)
	}
	name := gl.GoStr(gl.GetString(gl.RENDERER))
	return []graphics.HWDeviceDesc{{
		Name:    name,
		Type:    graphics.HWDeviceTypeUnknown,
		Backend: graphics.BackendOpenGL,
		Index:   0,
	}}, nil
}

func (q *Querier) Create(desc graphics.HWDeviceDesc, config graphics.DeviceConfig) (graphics.Device, error) {
	return NewDevice(q.Window, config)
}

func NewDevice(window *glfw.Window, config graphics.DeviceConfig) (*Device, error) {
	if window == nil {
		return nil, graphics.NewResult(graphics.RuntimeError, "no context set")
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		return nil, graphics.NewResult(graphics.RuntimeError, "failed to initialize OpenGL: %s", err)
	}
	if config.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	core.LogInfo("OpenGL device initialized: %s", gl.GoStr(gl.GetString(gl.VERSION)))
	return &Device{
		window:    window,
		pipelines: graphics.NewPipelineCache(),
		config:    config,
	}, nil
}

func (d *Device) BackendType() graphics.BackendType {
	return graphics.BackendOpenGL
}

func (d *Device) CreateCommandQueue(desc graphics.CommandQueueDesc) (graphics.CommandQueue, error) {
	return &Queue{device: d, label: desc.Label}, nil
}

func (d *Device) CreateBuffer(desc graphics.BufferDesc) (graphics.Buffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return newGLBuffer(desc)
}

func (d *Device) CreateTexture(desc graphics.TextureDesc) (graphics.Texture, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return newGLTexture(desc)
}

func (d *Device) CreateShaderModule(desc graphics.ShaderModuleDesc) (graphics.ShaderModule, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return newGLShaderModule(desc)
}

func (d *Device) CreateShaderStages(desc graphics.ShaderStagesDesc) (graphics.ShaderStages, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	stages := &glShaderStages{label: desc.Label}
	var err error
	if stages.vertex, err = asGLModule(desc.Vertex); err != nil {
		return nil, err
	}
	if stages.fragment, err = asGLModule(desc.Fragment); err != nil {
		return nil, err
	}
	if stages.compute, err = asGLModule(desc.Compute); err != nil {
		return nil, err
	}
	return stages, nil
}

func (d *Device) CreateRenderPipeline(desc graphics.RenderPipelineDesc) (graphics.RenderPipelineState, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return d.pipelines.RenderPipeline(desc, func() (graphics.RenderPipelineState, error) {
		return newGLRenderPipeline(desc)
	})
}

func (d *Device) CreateComputePipeline(desc graphics.ComputePipelineDesc) (graphics.ComputePipelineState, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	// Compute requires GL 4.3; the 4.1 core profile used for macOS
	// compatibility does not expose it.
	return nil, graphics.NewResult(graphics.Unimplemented, "compute pipelines are not available on the OpenGL backend")
}

func (d *Device) CreateSamplerState(desc graphics.SamplerDesc) (graphics.SamplerState, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return newGLSamplerState(desc)
}

func (d *Device) CreateDepthStencilState(desc graphics.DepthStencilDesc) (graphics.DepthStencilState, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return &glDepthStencilState{desc: desc}, nil
}

func (d *Device) CreateVertexInputState(desc graphics.VertexInputDesc) (graphics.VertexInputState, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return &glVertexInputState{desc: desc}, nil
}

func (d *Device) CreateFramebuffer(desc graphics.FramebufferDesc) (graphics.Framebuffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return newGLFramebuffer(desc)
}

// CurrentSurfaceTextures returns the default-framebuffer surfaces. OpenGL
// renders straight into the backbuffer, so these are placeholders sized to
// the framebuffer.
func (d *Device) CurrentSurfaceTextures() graphics.SurfaceTextures {
	w, h := d.window.GetFramebufferSize()
	if w == 0 || h == 0 {
		return graphics.SurfaceTextures{}
	}
	return graphics.SurfaceTextures{
		Color: &backbufferTexture{width: uint32(w), height: uint32(h)},
	}
}

func (d *Device) Destroy() {
	core.LogInfo("OpenGL device destroyed.")
}
