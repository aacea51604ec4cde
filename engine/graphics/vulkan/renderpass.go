package vulkan

import (
	"sync"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/graphics"
)

// renderPassKey identifies a compatible render pass: attachment formats plus
// load/store behavior plus whether the color target transitions to the
// present layout.
type renderPassKey struct {
	colorFormat vk.Format
	depthFormat vk.Format
	colorLoad   vk.AttachmentLoadOp
	colorStore  vk.AttachmentStoreOp
	depthLoad   vk.AttachmentLoadOp
	depthStore  vk.AttachmentStoreOp
	presentable bool
}

// renderPassCache memoizes render passes. Passes are cheap to keep for the
// device lifetime and framebuffers reference them by handle.
type renderPassCache struct {
	context *VulkanContext
	mu      sync.Mutex
	passes  map[renderPassKey]vk.RenderPass
}

func newRenderPassCache(context *VulkanContext) *renderPassCache {
	return &renderPassCache{
		context: context,
		passes:  make(map[renderPassKey]vk.RenderPass),
	}
}

func (c *renderPassCache) get(key renderPassKey) (vk.RenderPass, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rp, ok := c.passes[key]; ok {
		return rp, nil
	}
	rp, err := c.build(key)
	if err != nil {
		return nil, err
	}
	c.passes[key] = rp
	return rp, nil
}

func (c *renderPassCache) build(key renderPassKey) (vk.RenderPass, error) {
	subpass := vk.SubpassDescription{
		PipelineBindPoint: vk.PipelineBindPointGraphics,
	}

	var attachments []vk.AttachmentDescription

	if key.colorFormat != vk.FormatUndefined {
		finalLayout := vk.ImageLayoutColorAttachmentOptimal
		if key.presentable {
			finalLayout = vk.ImageLayoutPresentSrc
		}
		initialLayout := vk.ImageLayoutUndefined
		if key.colorLoad == vk.AttachmentLoadOpLoad {
			initialLayout = vk.ImageLayoutColorAttachmentOptimal
		}
		colorAttachment := vk.AttachmentDescription{
			Format:         key.colorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         key.colorLoad,
			StoreOp:        key.colorStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  initialLayout,
			FinalLayout:    finalLayout,
		}
		colorAttachment.Deref()
		attachments = append(attachments, colorAttachment)

		subpass.ColorAttachmentCount = 1
		subpass.PColorAttachments = []vk.AttachmentReference{
			{
				Attachment: 0,
				Layout:     vk.ImageLayoutColorAttachmentOptimal,
			},
		}
	}

	if key.depthFormat != vk.FormatUndefined {
		depthAttachment := vk.AttachmentDescription{
			Format:         key.depthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         key.depthLoad,
			StoreOp:        key.depthStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
		depthAttachment.Deref()
		attachments = append(attachments, depthAttachment)

		depthAttachmentReference := vk.AttachmentReference{
			Attachment: uint32(len(attachments) - 1),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
		depthAttachmentReference.Deref()
		subpass.PDepthStencilAttachment = &depthAttachmentReference
	}

	subpass.Deref()

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}
	dependency.Deref()

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}
	renderpassCreateInfo.Deref()

	var pRenderPass vk.RenderPass
	if res := vk.CreateRenderPass(c.context.Device.LogicalDevice, &renderpassCreateInfo, c.context.Allocator, &pRenderPass); res != vk.Success {
		return nil, resultFromVk(res, "vkCreateRenderPass")
	}
	return pRenderPass, nil
}

func (c *renderPassCache) destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rp := range c.passes {
		vk.DestroyRenderPass(c.context.Device.LogicalDevice, rp, c.context.Allocator)
	}
	c.passes = make(map[renderPassKey]vk.RenderPass)
}

func vkLoadOp(a graphics.LoadAction) vk.AttachmentLoadOp {
	switch a {
	case graphics.LoadActionLoad:
		return vk.AttachmentLoadOpLoad
	case graphics.LoadActionClear:
		return vk.AttachmentLoadOpClear
	}
	return vk.AttachmentLoadOpDontCare
}

func vkStoreOp(a graphics.StoreAction) vk.AttachmentStoreOp {
	if a == graphics.StoreActionStore {
		return vk.AttachmentStoreOpStore
	}
	return vk.AttachmentStoreOpDontCare
}
