package metal

import (
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/graphics"
)

// Device is the Metal implementation of graphics.Device over an injected
// native driver. Frame pacing goes through the BufferSyncManager.
type Device struct {
	native    NativeDevice
	sync      *BufferSyncManager
	pipelines *graphics.PipelineCache
	config    graphics.DeviceConfig
}

// Querier enumerates the injected native device.
type Querier struct {
	Native NativeDevice
}

func (q *Querier) QueryDevices() ([]graphics.HWDeviceDesc, error) {
	if q.Native == nil {
		return nil, graphics.NewResult(graphics.RuntimeError, "no context set")
	}
	return []graphics.HWDeviceDesc{{
		Name:    q.Native.Name(),
		Type:    graphics.HWDeviceTypeIntegrated,
		Backend: graphics.BackendMetal,
		Index:   0,
	}}, nil
}

func (q *Querier) Create(desc graphics.HWDeviceDesc, config graphics.DeviceConfig) (graphics.Device, error) {
	return NewDevice(q.Native, config)
}

func NewDevice(native NativeDevice, config graphics.DeviceConfig) (*Device, error) {
	if native == nil {
		return nil, graphics.NewResult(graphics.ArgumentNull, "native metal device must not be nil")
	}
	maxInFlight := config.MaxFramesInFlight
	if maxInFlight == 0 {
		maxInFlight = DefaultMaxInFlightBuffers
	}
	syncManager, err := NewBufferSyncManager(maxInFlight)
	if err != nil {
		return nil, err
	}
	core.LogInfo("Metal device initialized: %s", native.Name())
	return &Device{
		native:    native,
		sync:      syncManager,
		pipelines: graphics.NewPipelineCache(),
		config:    config,
	}, nil
}

// SyncManager exposes frame pacing to the shell loop.
func (d *Device) SyncManager() *BufferSyncManager {
	return d.sync
}

func (d *Device) BackendType() graphics.BackendType {
	return graphics.BackendMetal
}

func (d *Device) CreateCommandQueue(desc graphics.CommandQueueDesc) (graphics.CommandQueue, error) {
	native, err := d.native.NewCommandQueue()
	if err != nil {
		return nil, err
	}
	return &Queue{device: d, native: native, label: desc.Label}, nil
}

func (d *Device) CreateBuffer(desc graphics.BufferDesc) (graphics.Buffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	storage := desc.Storage
	if storage == graphics.StorageModeUnset {
		storage = graphics.StorageModeShared
	}
	native, err := d.native.NewBuffer(desc.Size, storage)
	if err != nil {
		return nil, err
	}
	label := desc.Label
	if label == "" {
		label = core.NewResourceID()
	}
	b := &metalBuffer{native: native, size: desc.Size, storage: storage, label: label}
	if desc.Data != nil {
		if err := b.Upload(desc.Data, 0); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (d *Device) CreateTexture(desc graphics.TextureDesc) (graphics.Texture, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	native, err := d.native.NewTexture(desc)
	if err != nil {
		return nil, err
	}
	return &metalTexture{native: native, desc: desc}, nil
}

func (d *Device) CreateShaderModule(desc graphics.ShaderModuleDesc) (graphics.ShaderModule, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	fn, err := d.native.NewShaderFunction(string(desc.Code), desc.Entry, desc.Stage)
	if err != nil {
		return nil, err
	}
	return &metalShaderModule{fn: fn, stage: desc.Stage, label: desc.Label}, nil
}

func (d *Device) CreateShaderStages(desc graphics.ShaderStagesDesc) (graphics.ShaderStages, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	stages := &metalShaderStages{label: desc.Label}
	var err error
	if stages.vertex, err = asMetalModule(desc.Vertex); err != nil {
		return nil, err
	}
	if stages.fragment, err = asMetalModule(desc.Fragment); err != nil {
		return nil, err
	}
	if stages.compute, err = asMetalModule(desc.Compute); err != nil {
		return nil, err
	}
	return stages, nil
}

func (d *Device) CreateRenderPipeline(desc graphics.RenderPipelineDesc) (graphics.RenderPipelineState, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return d.pipelines.RenderPipeline(desc, func() (graphics.RenderPipelineState, error) {
		stages, ok := desc.Stages.(*metalShaderStages)
		if !ok {
			return nil, graphics.NewResult(graphics.ArgumentInvalid, "shader stages were not created by this device")
		}
		nativeDesc := RenderPipelineNativeDesc{
			Vertex:       stages.vertex.fn,
			ColorFormat:  desc.ColorFormat,
			DepthFormat:  desc.DepthFormat,
			BlendEnabled: desc.BlendEnabled,
			Label:        desc.Label,
		}
		if stages.fragment != nil {
			nativeDesc.Fragment = stages.fragment.fn
		}
		pso, err := d.native.NewRenderPipelineState(nativeDesc)
		if err != nil {
			return nil, err
		}
		core.MetricsCountShaderCompile()
		return &metalRenderPipeline{native: pso, desc: desc}, nil
	})
}

func (d *Device) CreateComputePipeline(desc graphics.ComputePipelineDesc) (graphics.ComputePipelineState, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return d.pipelines.ComputePipeline(desc, func() (graphics.ComputePipelineState, error) {
		stages, ok := desc.Stages.(*metalShaderStages)
		if !ok {
			return nil, graphics.NewResult(graphics.ArgumentInvalid, "shader stages were not created by this device")
		}
		pso, err := d.native.NewComputePipelineState(stages.compute.fn)
		if err != nil {
			return nil, err
		}
		core.MetricsCountShaderCompile()
		return &metalComputePipeline{native: pso, label: desc.Label}, nil
	})
}

func (d *Device) CreateSamplerState(desc graphics.SamplerDesc) (graphics.SamplerState, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	native, err := d.native.NewSamplerState(desc)
	if err != nil {
		return nil, err
	}
	return &metalSamplerState{native: native, label: desc.Label}, nil
}

func (d *Device) CreateDepthStencilState(desc graphics.DepthStencilDesc) (graphics.DepthStencilState, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	native, err := d.native.NewDepthStencilState(desc)
	if err != nil {
		return nil, err
	}
	return &metalDepthStencilState{native: native, label: desc.Label}, nil
}

func (d *Device) CreateVertexInputState(desc graphics.VertexInputDesc) (graphics.VertexInputState, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	// Metal resolves vertex layout through the pipeline's stage-in
	// descriptor; keeping the portable desc is enough.
	return &metalVertexInputState{desc: desc}, nil
}

func (d *Device) CreateFramebuffer(desc graphics.FramebufferDesc) (graphics.Framebuffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return &metalFramebuffer{color: desc.ColorAttachment, depth: desc.DepthAttachment, label: desc.Label}, nil
}

func (d *Device) Destroy() {
	core.LogInfo("Metal device destroyed.")
}

func asMetalModule(m graphics.ShaderModule) (*metalShaderModule, error) {
	if m == nil {
		return nil, nil
	}
	mm, ok := m.(*metalShaderModule)
	if !ok {
		return nil, graphics.NewResult(graphics.ArgumentInvalid, "shader module was not created by this device")
	}
	return mm, nil
}
