package vulkan

import (
	"sync"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/graphics"
)

// vulkanShaderModule wraps one compiled SPIR-V stage.
type vulkanShaderModule struct {
	device *Device
	handle vk.ShaderModule
	stage  graphics.ShaderStage
	entry  string
	label  string
}

func newVulkanShaderModule(device *Device, desc graphics.ShaderModuleDesc) (*vulkanShaderModule, error) {
	if len(desc.Code)%4 != 0 {
		return nil, graphics.NewResult(graphics.ArgumentInvalid, "SPIR-V payload length %d is not a multiple of 4", len(desc.Code))
	}

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(desc.Code)),
		PCode:    sliceUint32(desc.Code),
	}
	var handle vk.ShaderModule
	if res := vk.CreateShaderModule(device.context.Device.LogicalDevice, &createInfo, device.context.Allocator, &handle); res != vk.Success {
		return nil, resultFromVk(res, "vkCreateShaderModule")
	}

	return &vulkanShaderModule{
		device: device,
		handle: handle,
		stage:  desc.Stage,
		entry:  desc.Entry,
		label:  desc.Label,
	}, nil
}

func (m *vulkanShaderModule) Stage() graphics.ShaderStage { return m.stage }
func (m *vulkanShaderModule) Label() string               { return m.label }

func (m *vulkanShaderModule) stageCreateInfo() vk.PipelineShaderStageCreateInfo {
	stageFlag := vk.ShaderStageVertexBit
	switch m.stage {
	case graphics.ShaderStageFragment:
		stageFlag = vk.ShaderStageFragmentBit
	case graphics.ShaderStageCompute:
		stageFlag = vk.ShaderStageComputeBit
	}
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stageFlag,
		Module: m.handle,
		PName:  VulkanSafeString(m.entry),
	}
}

type vulkanShaderStages struct {
	vertex   *vulkanShaderModule
	fragment *vulkanShaderModule
	compute  *vulkanShaderModule
	label    string
}

func (s *vulkanShaderStages) IsCompute() bool { return s.compute != nil }
func (s *vulkanShaderStages) Label() string   { return s.label }

func (s *vulkanShaderStages) renderStageInfos() []vk.PipelineShaderStageCreateInfo {
	infos := []vk.PipelineShaderStageCreateInfo{s.vertex.stageCreateInfo()}
	if s.fragment != nil {
		infos = append(infos, s.fragment.stageCreateInfo())
	}
	return infos
}

type vulkanSamplerState struct {
	device *Device
	handle vk.Sampler
	label  string
}

func newVulkanSamplerState(device *Device, desc graphics.SamplerDesc) (*vulkanSamplerState, error) {
	anisotropyEnable := vk.False
	maxAnisotropy := float32(1)
	if desc.MaxAnisotropy > 1 {
		anisotropyEnable = vk.True
		maxAnisotropy = float32(desc.MaxAnisotropy)
	}

	createInfo := vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MinFilter:        vkFilter(desc.MinFilter),
		MagFilter:        vkFilter(desc.MagFilter),
		AddressModeU:     vkAddressMode(desc.AddressU),
		AddressModeV:     vkAddressMode(desc.AddressV),
		AddressModeW:     vkAddressMode(desc.AddressW),
		AnisotropyEnable: vk.Bool32(anisotropyEnable),
		MaxAnisotropy:    maxAnisotropy,
		BorderColor:      vk.BorderColorIntOpaqueBlack,
		MipmapMode:       vk.SamplerMipmapModeLinear,
	}

	var handle vk.Sampler
	if res := vk.CreateSampler(device.context.Device.LogicalDevice, &createInfo, device.context.Allocator, &handle); res != vk.Success {
		return nil, resultFromVk(res, "vkCreateSampler")
	}
	return &vulkanSamplerState{device: device, handle: handle, label: desc.Label}, nil
}

func (s *vulkanSamplerState) Label() string { return s.label }

// vulkanDepthStencilState carries the desc; depth state is baked into the
// pipeline at creation and validated against the bound state at draw time.
type vulkanDepthStencilState struct {
	desc graphics.DepthStencilDesc
}

func (s *vulkanDepthStencilState) Label() string { return s.desc.Label }

// vulkanVertexInputState pre-converts attributes and bindings to the native
// descriptions a pipeline consumes.
type vulkanVertexInputState struct {
	bindings   []vk.VertexInputBindingDescription
	attributes []vk.VertexInputAttributeDescription
	label      string
}

func newVulkanVertexInputState(desc graphics.VertexInputDesc) *vulkanVertexInputState {
	s := &vulkanVertexInputState{label: desc.Label}
	for i, b := range desc.Bindings {
		s.bindings = append(s.bindings, vk.VertexInputBindingDescription{
			Binding:   uint32(i),
			Stride:    b.Stride,
			InputRate: vk.VertexInputRateVertex,
		})
	}
	for _, a := range desc.Attributes {
		s.attributes = append(s.attributes, vk.VertexInputAttributeDescription{
			Location: a.Location,
			Binding:  a.BufferIndex,
			Format:   vkVertexFormat(a.Format),
			Offset:   a.Offset,
		})
	}
	return s
}

func (s *vulkanVertexInputState) Label() string { return s.label }

// vulkanFramebuffer lazily materializes one native framebuffer per render
// pass it is used with. Attachments are referenced, not owned.
type vulkanFramebuffer struct {
	device *Device
	color  *vulkanTexture
	depth  *vulkanTexture
	label  string

	mu      sync.Mutex
	handles map[vk.RenderPass]vk.Framebuffer
}

func newVulkanFramebuffer(device *Device, desc graphics.FramebufferDesc) (*vulkanFramebuffer, error) {
	fb := &vulkanFramebuffer{
		device:  device,
		label:   desc.Label,
		handles: make(map[vk.RenderPass]vk.Framebuffer),
	}
	if desc.ColorAttachment != nil {
		color, ok := desc.ColorAttachment.(*vulkanTexture)
		if !ok {
			return nil, graphics.NewResult(graphics.ArgumentInvalid, "color attachment was not created by this device")
		}
		fb.color = color
	}
	if desc.DepthAttachment != nil {
		depth, ok := desc.DepthAttachment.(*vulkanTexture)
		if !ok {
			return nil, graphics.NewResult(graphics.ArgumentInvalid, "depth attachment was not created by this device")
		}
		fb.depth = depth
	}
	return fb, nil
}

func (fb *vulkanFramebuffer) ColorAttachment() graphics.Texture {
	if fb.color == nil {
		return nil
	}
	return fb.color
}

func (fb *vulkanFramebuffer) DepthAttachment() graphics.Texture {
	if fb.depth == nil {
		return nil
	}
	return fb.depth
}

func (fb *vulkanFramebuffer) Label() string { return fb.label }

func (fb *vulkanFramebuffer) extent() vk.Extent2D {
	if fb.color != nil {
		return vk.Extent2D{Width: fb.color.image.Width, Height: fb.color.image.Height}
	}
	return vk.Extent2D{Width: fb.depth.image.Width, Height: fb.depth.image.Height}
}

func (fb *vulkanFramebuffer) handleFor(renderPass vk.RenderPass) (vk.Framebuffer, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if handle, ok := fb.handles[renderPass]; ok {
		return handle, nil
	}

	var attachments []vk.ImageView
	if fb.color != nil {
		attachments = append(attachments, fb.color.image.View)
	}
	if fb.depth != nil {
		attachments = append(attachments, fb.depth.image.View)
	}
	ext := fb.extent()

	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderPass,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           ext.Width,
		Height:          ext.Height,
		Layers:          1,
	}
	var handle vk.Framebuffer
	if res := vk.CreateFramebuffer(fb.device.context.Device.LogicalDevice, &createInfo, fb.device.context.Allocator, &handle); res != vk.Success {
		return nil, resultFromVk(res, "vkCreateFramebuffer")
	}
	fb.handles[renderPass] = handle
	return handle, nil
}

func (fb *vulkanFramebuffer) destroy() {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for _, handle := range fb.handles {
		vk.DestroyFramebuffer(fb.device.context.Device.LogicalDevice, handle, fb.device.context.Allocator)
	}
	fb.handles = make(map[vk.RenderPass]vk.Framebuffer)
}

func vkFilter(f graphics.SamplerFilter) vk.Filter {
	if f == graphics.SamplerFilterLinear {
		return vk.FilterLinear
	}
	return vk.FilterNearest
}

func vkAddressMode(m graphics.SamplerAddressMode) vk.SamplerAddressMode {
	switch m {
	case graphics.SamplerAddressClamp:
		return vk.SamplerAddressModeClampToEdge
	case graphics.SamplerAddressMirror:
		return vk.SamplerAddressModeMirroredRepeat
	}
	return vk.SamplerAddressModeRepeat
}

func vkVertexFormat(f graphics.VertexFormat) vk.Format {
	switch f {
	case graphics.VertexFormatFloat1:
		return vk.FormatR32Sfloat
	case graphics.VertexFormatFloat2:
		return vk.FormatR32g32Sfloat
	case graphics.VertexFormatFloat3:
		return vk.FormatR32g32b32Sfloat
	case graphics.VertexFormatFloat4:
		return vk.FormatR32g32b32a32Sfloat
	case graphics.VertexFormatUByte4Norm:
		return vk.FormatR8g8b8a8Unorm
	}
	return vk.FormatUndefined
}
