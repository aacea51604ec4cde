package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/graphics"
)

type vulkanRenderPipeline struct {
	device *Device
	handle vk.Pipeline
	layout vk.PipelineLayout
	desc   graphics.RenderPipelineDesc
}

func (p *vulkanRenderPipeline) Label() string { return p.desc.Label }

func newVulkanRenderPipeline(device *Device, desc graphics.RenderPipelineDesc) (*vulkanRenderPipeline, error) {
	stages, ok := desc.Stages.(*vulkanShaderStages)
	if !ok {
		return nil, graphics.NewResult(graphics.ArgumentInvalid, "shader stages were not created by this device")
	}

	colorFormat := vkFormatFromTextureFormat(desc.ColorFormat)
	depthFormat := vkFormatFromTextureFormat(desc.DepthFormat)
	// Render pass compatibility ignores load/store ops; use a canonical pass.
	renderPass, err := device.renderPasses.get(renderPassKey{
		colorFormat: colorFormat,
		depthFormat: depthFormat,
		colorLoad:   vk.AttachmentLoadOpClear,
		colorStore:  vk.AttachmentStoreOpStore,
		depthLoad:   vk.AttachmentLoadOpClear,
		depthStore:  vk.AttachmentStoreOpDontCare,
	})
	if err != nil {
		return nil, err
	}

	out := &vulkanRenderPipeline{device: device, desc: desc}

	// Viewport and scissor are dynamic; the values here are placeholders.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{{Width: 1, Height: 1, MaxDepth: 1}},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{{Extent: vk.Extent2D{Width: 1, Height: 1}}},
	}
	viewportState.Deref()

	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		DepthBiasEnable:         vk.False,
	}
	switch desc.Cull {
	case graphics.CullModeNone:
		rasterizerCreateInfo.CullMode = vk.CullModeFlags(vk.CullModeNone)
	case graphics.CullModeFront:
		rasterizerCreateInfo.CullMode = vk.CullModeFlags(vk.CullModeFrontBit)
	default:
		rasterizerCreateInfo.CullMode = vk.CullModeFlags(vk.CullModeBackBit)
	}
	if desc.Winding == graphics.WindingClockwise {
		rasterizerCreateInfo.FrontFace = vk.FrontFaceClockwise
	} else {
		rasterizerCreateInfo.FrontFace = vk.FrontFaceCounterClockwise
	}
	rasterizerCreateInfo.Deref()

	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}
	multisamplingCreateInfo.Deref()

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		StencilTestEnable: vk.False,
	}
	if depthFormat != vk.FormatUndefined {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthWriteEnable = vk.True
		depthStencil.DepthCompareOp = vk.CompareOpLess
	}
	depthStencil.Deref()

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable: vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	if desc.BlendEnabled {
		colorBlendAttachmentState.BlendEnable = vk.True
		colorBlendAttachmentState.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		colorBlendAttachmentState.DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		colorBlendAttachmentState.ColorBlendOp = vk.BlendOpAdd
		colorBlendAttachmentState.SrcAlphaBlendFactor = vk.BlendFactorSrcAlpha
		colorBlendAttachmentState.DstAlphaBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		colorBlendAttachmentState.AlphaBlendOp = vk.BlendOpAdd
	}
	colorBlendAttachmentState.Deref()

	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}
	colorBlendStateCreateInfo.Deref()

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}
	dynamicStateCreateInfo.Deref()

	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	if vi, ok := desc.VertexInput.(*vulkanVertexInputState); ok && vi != nil {
		vertexInputInfo.VertexBindingDescriptionCount = uint32(len(vi.bindings))
		vertexInputInfo.PVertexBindingDescriptions = vi.bindings
		vertexInputInfo.VertexAttributeDescriptionCount = uint32(len(vi.attributes))
		vertexInputInfo.PVertexAttributeDescriptions = vi.attributes
	}
	vertexInputInfo.Deref()

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vkPrimitiveTopology(desc.Primitive),
		PrimitiveRestartEnable: vk.False,
	}
	inputAssembly.Deref()

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{device.descriptors.layout},
	}
	pipelineLayoutCreateInfo.Deref()

	var pPipelineLayout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(device.context.Device.LogicalDevice, &pipelineLayoutCreateInfo, device.context.Allocator, &pPipelineLayout); res != vk.Success {
		return nil, resultFromVk(res, "vkCreatePipelineLayout")
	}
	out.layout = pPipelineLayout

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages.renderStageInfos())),
		PStages:             stages.renderStageInfos(),
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              out.layout,
		RenderPass:          renderPass,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}
	pipelineCreateInfo.Deref()

	pPipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(
		device.context.Device.LogicalDevice,
		vk.NullPipelineCache,
		1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
		device.context.Allocator,
		pPipelines); res != vk.Success {
		return nil, resultFromVk(res, "vkCreateGraphicsPipelines")
	}
	out.handle = pPipelines[0]

	core.MetricsCountShaderCompile()
	core.LogDebug("Graphics pipeline created: %s", desc.Label)
	return out, nil
}

func (p *vulkanRenderPipeline) destroy() {
	if p.handle != nil {
		vk.DestroyPipeline(p.device.context.Device.LogicalDevice, p.handle, p.device.context.Allocator)
		p.handle = nil
	}
	if p.layout != nil {
		vk.DestroyPipelineLayout(p.device.context.Device.LogicalDevice, p.layout, p.device.context.Allocator)
		p.layout = nil
	}
}

type vulkanComputePipeline struct {
	device *Device
	handle vk.Pipeline
	layout vk.PipelineLayout
	label  string
}

func (p *vulkanComputePipeline) Label() string { return p.label }

func newVulkanComputePipeline(device *Device, desc graphics.ComputePipelineDesc) (*vulkanComputePipeline, error) {
	stages, ok := desc.Stages.(*vulkanShaderStages)
	if !ok {
		return nil, graphics.NewResult(graphics.ArgumentInvalid, "shader stages were not created by this device")
	}

	out := &vulkanComputePipeline{device: device, label: desc.Label}

	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{device.descriptors.layout},
	}
	var pLayout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(device.context.Device.LogicalDevice, &layoutInfo, device.context.Allocator, &pLayout); res != vk.Success {
		return nil, resultFromVk(res, "vkCreatePipelineLayout(compute)")
	}
	out.layout = pLayout

	createInfo := vk.ComputePipelineCreateInfo{
		SType:              vk.StructureTypeComputePipelineCreateInfo,
		Stage:              stages.compute.stageCreateInfo(),
		Layout:             out.layout,
		BasePipelineHandle: vk.NullPipeline,
		BasePipelineIndex:  -1,
	}
	createInfo.Deref()

	pPipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateComputePipelines(
		device.context.Device.LogicalDevice,
		vk.NullPipelineCache,
		1,
		[]vk.ComputePipelineCreateInfo{createInfo},
		device.context.Allocator,
		pPipelines); res != vk.Success {
		return nil, resultFromVk(res, "vkCreateComputePipelines")
	}
	out.handle = pPipelines[0]

	core.MetricsCountShaderCompile()
	core.LogDebug("Compute pipeline created: %s", desc.Label)
	return out, nil
}

func (p *vulkanComputePipeline) destroy() {
	if p.handle != nil {
		vk.DestroyPipeline(p.device.context.Device.LogicalDevice, p.handle, p.device.context.Allocator)
		p.handle = nil
	}
	if p.layout != nil {
		vk.DestroyPipelineLayout(p.device.context.Device.LogicalDevice, p.layout, p.device.context.Allocator)
		p.layout = nil
	}
}

func vkPrimitiveTopology(p graphics.PrimitiveType) vk.PrimitiveTopology {
	switch p {
	case graphics.PrimitiveTriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip
	case graphics.PrimitiveLine:
		return vk.PrimitiveTopologyLineList
	case graphics.PrimitiveLineStrip:
		return vk.PrimitiveTopologyLineStrip
	case graphics.PrimitivePoint:
		return vk.PrimitiveTopologyPointList
	}
	return vk.PrimitiveTopologyTriangleList
}
