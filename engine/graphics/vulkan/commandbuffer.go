package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/graphics"
)

// commandBuffer records into one wrapper from the immediate pool. The
// lifecycle state machine lives in the embedded base; this type adds the
// native recording.
type commandBuffer struct {
	graphics.CommandBufferBase
	device  *Device
	wrapper *CommandBufferWrapper
	label   string
	// Debug group nesting, host-side only.
	debugGroups []string
}

func (cb *commandBuffer) CreateRenderCommandEncoder(desc graphics.RenderPassDesc, fb graphics.Framebuffer) (graphics.RenderCommandEncoder, error) {
	cb.BeginEncoder("Render")

	vfb, ok := fb.(*vulkanFramebuffer)
	if !ok || vfb == nil {
		cb.EndEncoder()
		return nil, graphics.NewResult(graphics.ArgumentNull, "render encoder requires a framebuffer from this device")
	}

	key := renderPassKey{
		colorLoad:  vkLoadOp(desc.ColorLoadAction),
		colorStore: vkStoreOp(desc.ColorStoreAction),
		depthLoad:  vkLoadOp(desc.DepthLoadAction),
		depthStore: vkStoreOp(desc.DepthStoreAction),
	}
	if vfb.color != nil {
		key.colorFormat = vkFormatFromTextureFormat(vfb.color.desc.Format)
		key.presentable = vfb.color.presentable
	}
	if vfb.depth != nil {
		key.depthFormat = vkFormatFromTextureFormat(vfb.depth.desc.Format)
	}

	renderPass, err := cb.device.renderPasses.get(key)
	if err != nil {
		cb.EndEncoder()
		return nil, err
	}
	fbHandle, err := vfb.handleFor(renderPass)
	if err != nil {
		cb.EndEncoder()
		return nil, err
	}

	ext := vfb.extent()
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  renderPass,
		Framebuffer: fbHandle,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{},
			Extent: ext,
		},
	}

	var clearValues []vk.ClearValue
	if vfb.color != nil {
		var cv vk.ClearValue
		cv.SetColor([]float32{desc.ClearColor.R, desc.ClearColor.G, desc.ClearColor.B, desc.ClearColor.A})
		clearValues = append(clearValues, cv)
	}
	if vfb.depth != nil {
		var dv vk.ClearValue
		dv.SetDepthStencil(desc.ClearDepth, desc.ClearStencil)
		clearValues = append(clearValues, dv)
	}
	beginInfo.ClearValueCount = uint32(len(clearValues))
	beginInfo.PClearValues = clearValues
	beginInfo.Deref()

	vk.CmdBeginRenderPass(cb.wrapper.CmdBuf, &beginInfo, vk.SubpassContentsInline)

	enc := &renderEncoder{cb: cb}
	// Full-target viewport and scissor until the caller binds its own.
	enc.BindViewport(graphics.Viewport{Width: float32(ext.Width), Height: float32(ext.Height), MaxDepth: 1})
	enc.BindScissorRect(graphics.ScissorRect{Width: ext.Width, Height: ext.Height})
	return enc, nil
}

func (cb *commandBuffer) CreateComputeCommandEncoder() (graphics.ComputeCommandEncoder, error) {
	cb.BeginEncoder("Compute")
	return &computeEncoder{cb: cb}, nil
}

func (cb *commandBuffer) CopyBuffer(src, dst graphics.Buffer, srcOffset, dstOffset, size uint64) error {
	cb.AssertRecording("copyBuffer")
	vsrc, okSrc := src.(*vulkanBuffer)
	vdst, okDst := dst.(*vulkanBuffer)
	if !okSrc || !okDst {
		return graphics.NewResult(graphics.ArgumentInvalid, "copy requires buffers created by this device")
	}
	if srcOffset+size > vsrc.size || dstOffset+size > vdst.size {
		return graphics.NewResult(graphics.ArgumentOutOfRange,
			"copy of %d bytes exceeds buffer bounds (src %d, dst %d)", size, vsrc.size, vdst.size)
	}
	region := vk.BufferCopy{
		SrcOffset: vk.DeviceSize(srcOffset),
		DstOffset: vk.DeviceSize(dstOffset),
		Size:      vk.DeviceSize(size),
	}
	vk.CmdCopyBuffer(cb.wrapper.CmdBuf, vsrc.handle, vdst.handle, 1, []vk.BufferCopy{region})
	return nil
}

func (cb *commandBuffer) CopyTextureToBuffer(src graphics.Texture, dst graphics.Buffer, dstOffset uint64) error {
	cb.AssertRecording("copyTextureToBuffer")
	vsrc, okSrc := src.(*vulkanTexture)
	vdst, okDst := dst.(*vulkanBuffer)
	if !okSrc || !okDst {
		return graphics.NewResult(graphics.ArgumentInvalid, "copy requires resources created by this device")
	}
	need := uint64(vsrc.desc.Width) * uint64(vsrc.desc.Height) * uint64(vsrc.desc.Format.BytesPerPixel())
	if dstOffset+need > vdst.size {
		return graphics.NewResult(graphics.ArgumentOutOfRange,
			"readback needs %d bytes at offset %d but buffer holds %d", need, dstOffset, vdst.size)
	}

	subresource := vk.ImageSubresourceRange{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LevelCount: 1,
		LayerCount: 1,
	}
	imageTransitionLayout(cb.wrapper.CmdBuf, vsrc.image.Handle, subresource,
		vk.ImageLayoutShaderReadOnlyOptimal, vk.ImageLayoutTransferSrcOptimal)

	region := vk.BufferImageCopy{
		BufferOffset: vk.DeviceSize(dstOffset),
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{Width: vsrc.desc.Width, Height: vsrc.desc.Height, Depth: 1},
	}
	vk.CmdCopyImageToBuffer(cb.wrapper.CmdBuf, vsrc.image.Handle, vk.ImageLayoutTransferSrcOptimal, vdst.handle, 1, []vk.BufferImageCopy{region})

	imageTransitionLayout(cb.wrapper.CmdBuf, vsrc.image.Handle, subresource,
		vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	return nil
}

// Debug groups are tracked host-side; they decorate log output without
// requiring the debug-utils extension at runtime.
func (cb *commandBuffer) PushDebugGroupLabel(label string) {
	cb.debugGroups = append(cb.debugGroups, label)
	core.LogDebug("[%s] debug group begin: %s", cb.label, label)
}

func (cb *commandBuffer) PopDebugGroupLabel() {
	if len(cb.debugGroups) == 0 {
		core.LogWarn("[%s] debug group pop with empty stack", cb.label)
		return
	}
	cb.debugGroups = cb.debugGroups[:len(cb.debugGroups)-1]
}

func (cb *commandBuffer) Present(surface graphics.Texture) error {
	if surface != nil {
		if _, ok := surface.(*vulkanTexture); !ok {
			return graphics.NewResult(graphics.ArgumentInvalid, "present surface was not created by this device")
		}
	}
	return cb.MarkPresent(surface)
}

// WaitUntilScheduled is a no-op on this backend: vkQueueSubmit returns after
// the driver accepted the work, so submission implies scheduling.
func (cb *commandBuffer) WaitUntilScheduled() {}

func (cb *commandBuffer) WaitUntilCompleted() {
	if cb.State() == graphics.CommandBufferStateRecording {
		return
	}
	cb.device.immediate.Wait(cb.Handle())
	cb.MarkCompleted()
}

// renderEncoder translates the portable render commands into vkCmd calls.
// Resource bindings accumulate and flush into one descriptor set per draw.
type renderEncoder struct {
	cb       *commandBuffer
	pipeline *vulkanRenderPipeline

	uniformBuffers [maxUniformSlots]vk.Buffer
	uniformOffsets [maxUniformSlots]vk.DeviceSize
	uniformSizes   [maxUniformSlots]vk.DeviceSize
	textures       [maxTextureSlots]*vulkanTexture
	samplers       [maxTextureSlots]*vulkanSamplerState
	bindingsDirty  bool
	ended          bool
}

func (e *renderEncoder) BindRenderPipelineState(pso graphics.RenderPipelineState) {
	p, ok := pso.(*vulkanRenderPipeline)
	if !ok {
		core.LogError("bindRenderPipelineState: pipeline was not created by this device")
		return
	}
	e.pipeline = p
	vk.CmdBindPipeline(e.cb.wrapper.CmdBuf, vk.PipelineBindPointGraphics, p.handle)
}

func (e *renderEncoder) BindDepthStencilState(dss graphics.DepthStencilState) {
	s, ok := dss.(*vulkanDepthStencilState)
	if !ok {
		core.LogError("bindDepthStencilState: state was not created by this device")
		return
	}
	// Depth state is baked into the pipeline on this backend; flag drift
	// between the two instead of silently diverging.
	if e.pipeline != nil && e.pipeline.desc.DepthFormat == graphics.TextureFormatInvalid && s.desc.DepthWriteEnabled {
		core.LogWarn("depth writes requested on a pipeline without a depth attachment")
	}
}

func (e *renderEncoder) BindViewport(v graphics.Viewport) {
	// Flip the viewport so the portable coordinate system is top-left origin.
	viewport := vk.Viewport{
		X:        v.X,
		Y:        v.Y + v.Height,
		Width:    v.Width,
		Height:   -v.Height,
		MinDepth: v.MinDepth,
		MaxDepth: v.MaxDepth,
	}
	vk.CmdSetViewport(e.cb.wrapper.CmdBuf, 0, 1, []vk.Viewport{viewport})
}

func (e *renderEncoder) BindScissorRect(r graphics.ScissorRect) {
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: int32(r.X), Y: int32(r.Y)},
		Extent: vk.Extent2D{Width: r.Width, Height: r.Height},
	}
	vk.CmdSetScissor(e.cb.wrapper.CmdBuf, 0, 1, []vk.Rect2D{scissor})
}

func (e *renderEncoder) BindVertexBuffer(index uint32, buf graphics.Buffer, offset uint64) {
	vb, ok := buf.(*vulkanBuffer)
	if !ok {
		core.LogError("bindVertexBuffer: buffer was not created by this device")
		return
	}
	vk.CmdBindVertexBuffers(e.cb.wrapper.CmdBuf, index, 1, []vk.Buffer{vb.handle}, []vk.DeviceSize{vk.DeviceSize(offset)})
}

func (e *renderEncoder) BindIndexBuffer(buf graphics.Buffer, format graphics.IndexFormat, offset uint64) {
	ib, ok := buf.(*vulkanBuffer)
	if !ok {
		core.LogError("bindIndexBuffer: buffer was not created by this device")
		return
	}
	indexType := vk.IndexTypeUint16
	if format == graphics.IndexFormatUInt32 {
		indexType = vk.IndexTypeUint32
	}
	vk.CmdBindIndexBuffer(e.cb.wrapper.CmdBuf, ib.handle, vk.DeviceSize(offset), indexType)
}

func (e *renderEncoder) BindUniformBuffer(index uint32, buf graphics.Buffer, offset uint64) {
	if index >= maxUniformSlots {
		core.LogError("bindUniformBuffer: slot %d out of range (max %d)", index, maxUniformSlots-1)
		return
	}
	ub, ok := buf.(*vulkanBuffer)
	if !ok {
		core.LogError("bindUniformBuffer: buffer was not created by this device")
		return
	}
	e.uniformBuffers[index] = ub.handle
	e.uniformOffsets[index] = vk.DeviceSize(offset)
	e.uniformSizes[index] = vk.DeviceSize(ub.size - offset)
	e.bindingsDirty = true
}

func (e *renderEncoder) BindTexture(index uint32, tex graphics.Texture) {
	if index >= maxTextureSlots {
		core.LogError("bindTexture: slot %d out of range (max %d)", index, maxTextureSlots-1)
		return
	}
	vt, ok := tex.(*vulkanTexture)
	if !ok {
		core.LogError("bindTexture: texture was not created by this device")
		return
	}
	e.textures[index] = vt
	e.bindingsDirty = true
}

func (e *renderEncoder) BindSamplerState(index uint32, s graphics.SamplerState) {
	if index >= maxTextureSlots {
		core.LogError("bindSamplerState: slot %d out of range (max %d)", index, maxTextureSlots-1)
		return
	}
	vs, ok := s.(*vulkanSamplerState)
	if !ok {
		core.LogError("bindSamplerState: sampler was not created by this device")
		return
	}
	e.samplers[index] = vs
	e.bindingsDirty = true
}

func (e *renderEncoder) flushBindings(bindPoint vk.PipelineBindPoint, layout vk.PipelineLayout) {
	if !e.bindingsDirty {
		return
	}
	set, err := e.cb.device.descriptors.allocate()
	if err != nil {
		core.LogError("descriptor allocation failed: %s", err.Error())
		return
	}

	var writes []vk.WriteDescriptorSet
	for i := 0; i < maxUniformSlots; i++ {
		if e.uniformBuffers[i] == nil {
			continue
		}
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      uint32(i),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: e.uniformBuffers[i],
				Offset: e.uniformOffsets[i],
				Range:  e.uniformSizes[i],
			}},
		})
	}
	for i := 0; i < maxTextureSlots; i++ {
		if e.textures[i] == nil || e.samplers[i] == nil {
			continue
		}
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      uint32(maxUniformSlots + i),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			PImageInfo: []vk.DescriptorImageInfo{{
				Sampler:     e.samplers[i].handle,
				ImageView:   e.textures[i].image.View,
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}},
		})
	}
	if len(writes) > 0 {
		vk.UpdateDescriptorSets(e.cb.device.context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	}
	vk.CmdBindDescriptorSets(e.cb.wrapper.CmdBuf, bindPoint, layout, 0, 1, []vk.DescriptorSet{set}, 0, nil)
	e.bindingsDirty = false
}

func (e *renderEncoder) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if e.pipeline == nil {
		core.LogError("draw with no render pipeline bound")
		return
	}
	e.flushBindings(vk.PipelineBindPointGraphics, e.pipeline.layout)
	vk.CmdDraw(e.cb.wrapper.CmdBuf, vertexCount, instanceCount, firstVertex, firstInstance)
	core.MetricsCountDraw()
}

func (e *renderEncoder) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	if e.pipeline == nil {
		core.LogError("drawIndexed with no render pipeline bound")
		return
	}
	e.flushBindings(vk.PipelineBindPointGraphics, e.pipeline.layout)
	vk.CmdDrawIndexed(e.cb.wrapper.CmdBuf, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
	core.MetricsCountDraw()
}

func (e *renderEncoder) PushDebugGroupLabel(label string) { e.cb.PushDebugGroupLabel(label) }
func (e *renderEncoder) PopDebugGroupLabel()              { e.cb.PopDebugGroupLabel() }

func (e *renderEncoder) EndEncoding() {
	if e.ended {
		core.LogFatal("EndEncoding called twice on a render encoder")
	}
	e.ended = true
	vk.CmdEndRenderPass(e.cb.wrapper.CmdBuf)
	e.cb.EndEncoder()
}

type computeEncoder struct {
	cb       *commandBuffer
	pipeline *vulkanComputePipeline

	uniformBuffers [maxUniformSlots]vk.Buffer
	uniformOffsets [maxUniformSlots]vk.DeviceSize
	uniformSizes   [maxUniformSlots]vk.DeviceSize
	bindingsDirty  bool
	ended          bool
}

func (e *computeEncoder) BindComputePipelineState(pso graphics.ComputePipelineState) {
	p, ok := pso.(*vulkanComputePipeline)
	if !ok {
		core.LogError("bindComputePipelineState: pipeline was not created by this device")
		return
	}
	e.pipeline = p
	vk.CmdBindPipeline(e.cb.wrapper.CmdBuf, vk.PipelineBindPointCompute, p.handle)
}

func (e *computeEncoder) BindBuffer(index uint32, buf graphics.Buffer, offset uint64) {
	if index >= maxUniformSlots {
		core.LogError("bindBuffer: slot %d out of range (max %d)", index, maxUniformSlots-1)
		return
	}
	vb, ok := buf.(*vulkanBuffer)
	if !ok {
		core.LogError("bindBuffer: buffer was not created by this device")
		return
	}
	e.uniformBuffers[index] = vb.handle
	e.uniformOffsets[index] = vk.DeviceSize(offset)
	e.uniformSizes[index] = vk.DeviceSize(vb.size - offset)
	e.bindingsDirty = true
}

func (e *computeEncoder) BindTexture(index uint32, tex graphics.Texture) {
	// Storage image bindings share the sampled-texture slots.
	if _, ok := tex.(*vulkanTexture); !ok {
		core.LogError("bindTexture: texture was not created by this device")
	}
}

func (e *computeEncoder) flushBindings() {
	if !e.bindingsDirty || e.pipeline == nil {
		return
	}
	set, err := e.cb.device.descriptors.allocate()
	if err != nil {
		core.LogError("descriptor allocation failed: %s", err.Error())
		return
	}
	var writes []vk.WriteDescriptorSet
	for i := 0; i < maxUniformSlots; i++ {
		if e.uniformBuffers[i] == nil {
			continue
		}
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      uint32(i),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: e.uniformBuffers[i],
				Offset: e.uniformOffsets[i],
				Range:  e.uniformSizes[i],
			}},
		})
	}
	if len(writes) > 0 {
		vk.UpdateDescriptorSets(e.cb.device.context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	}
	vk.CmdBindDescriptorSets(e.cb.wrapper.CmdBuf, vk.PipelineBindPointCompute, e.pipeline.layout, 0, 1, []vk.DescriptorSet{set}, 0, nil)
	e.bindingsDirty = false
}

func (e *computeEncoder) DispatchThreadGroups(groups graphics.Dimensions) {
	if e.pipeline == nil {
		core.LogError("dispatch with no compute pipeline bound")
		return
	}
	e.flushBindings()
	vk.CmdDispatch(e.cb.wrapper.CmdBuf, maxUint32(groups.Width, 1), maxUint32(groups.Height, 1), maxUint32(groups.Depth, 1))
}

func (e *computeEncoder) PushDebugGroupLabel(label string) { e.cb.PushDebugGroupLabel(label) }
func (e *computeEncoder) PopDebugGroupLabel()              { e.cb.PopDebugGroupLabel() }

func (e *computeEncoder) EndEncoding() {
	if e.ended {
		core.LogFatal("EndEncoding called twice on a compute encoder")
	}
	e.ended = true
	e.cb.EndEncoder()
}
