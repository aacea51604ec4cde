package graphics

// Device owns a backend context and creates every other resource. Created
// once at startup, destroyed at shutdown; it exclusively owns its command
// queues and resource caches.
type Device interface {
	BackendType() BackendType

	CreateCommandQueue(desc CommandQueueDesc) (CommandQueue, error)
	CreateBuffer(desc BufferDesc) (Buffer, error)
	CreateTexture(desc TextureDesc) (Texture, error)
	CreateShaderModule(desc ShaderModuleDesc) (ShaderModule, error)
	CreateShaderStages(desc ShaderStagesDesc) (ShaderStages, error)
	CreateRenderPipeline(desc RenderPipelineDesc) (RenderPipelineState, error)
	CreateComputePipeline(desc ComputePipelineDesc) (ComputePipelineState, error)
	CreateSamplerState(desc SamplerDesc) (SamplerState, error)
	CreateDepthStencilState(desc DepthStencilDesc) (DepthStencilState, error)
	CreateVertexInputState(desc VertexInputDesc) (VertexInputState, error)
	CreateFramebuffer(desc FramebufferDesc) (Framebuffer, error)

	// Destroy tears down the device. All resources must have been released;
	// backends drain their deferred-destruction queues before returning.
	Destroy()
}

type CommandQueueDesc struct {
	Label string
}
