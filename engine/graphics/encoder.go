package graphics

// RenderCommandEncoder scopes render state and draw calls within a command
// buffer. All methods are only valid before EndEncoding.
type RenderCommandEncoder interface {
	BindRenderPipelineState(pso RenderPipelineState)
	BindDepthStencilState(dss DepthStencilState)
	BindViewport(v Viewport)
	BindScissorRect(r ScissorRect)
	BindVertexBuffer(index uint32, buf Buffer, offset uint64)
	BindIndexBuffer(buf Buffer, format IndexFormat, offset uint64)
	BindUniformBuffer(index uint32, buf Buffer, offset uint64)
	BindTexture(index uint32, tex Texture)
	BindSamplerState(index uint32, s SamplerState)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	PushDebugGroupLabel(label string)
	PopDebugGroupLabel()
	// EndEncoding closes the encoder and returns the command buffer to a
	// state where a new encoder may be opened or the buffer submitted.
	EndEncoding()
}

// ComputeCommandEncoder scopes compute dispatches within a command buffer.
type ComputeCommandEncoder interface {
	BindComputePipelineState(pso ComputePipelineState)
	BindBuffer(index uint32, buf Buffer, offset uint64)
	BindTexture(index uint32, tex Texture)
	DispatchThreadGroups(groups Dimensions)
	PushDebugGroupLabel(label string)
	PopDebugGroupLabel()
	EndEncoding()
}
