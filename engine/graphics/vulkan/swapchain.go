package vulkan

import (
	stdmath "math"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/graphics"
	"github.com/spaghettifunk/prism/engine/math"
)

type VulkanSwapchain struct {
	ImageFormat vk.SurfaceFormat
	Handle      vk.Swapchain
	Extent      vk.Extent2D
	ImageCount  uint32
	Images      []vk.Image
	Views       []vk.ImageView

	DepthAttachment *VulkanImage

	// graphics.Texture wrappers over the swapchain images and the depth
	// attachment, handed out through SurfaceTextures.
	ColorTextures []*vulkanTexture
	DepthTexture  *vulkanTexture

	// Signaled when the acquired image is ready to be rendered to; chained
	// into the submission that draws to it.
	AcquireSemaphore vk.Semaphore

	CurrentImageIndex uint32
	acquired          bool
}

type VulkanSwapchainSupportInfo struct {
	Capabilities     vk.SurfaceCapabilities
	FormatCount      uint32
	Formats          []vk.SurfaceFormat
	PresentModeCount uint32
	PresentModes     []vk.PresentMode
}

func SwapchainCreate(device *Device, width, height uint32) (*VulkanSwapchain, error) {
	return createSwapchain(device, width, height)
}

func (vs *VulkanSwapchain) SwapchainRecreate(device *Device, width, height uint32) (*VulkanSwapchain, error) {
	vs.destroySwapchain(device)
	return createSwapchain(device, width, height)
}

func (vs *VulkanSwapchain) SwapchainDestroy(device *Device) {
	vs.destroySwapchain(device)
}

// SwapchainAcquireNextImageIndex acquires the next presentable image. Returns
// false when the swapchain is out of date and must be recreated before the
// frame can proceed.
func (vs *VulkanSwapchain) SwapchainAcquireNextImageIndex(device *Device, timeoutNS uint64) (uint32, bool) {
	var imageIndex uint32
	result := vk.AcquireNextImage(device.context.Device.LogicalDevice, vs.Handle, timeoutNS, vs.AcquireSemaphore, vk.NullFence, &imageIndex)

	if result == vk.ErrorOutOfDate {
		return 0, false
	} else if result != vk.Success && result != vk.Suboptimal {
		core.LogFatal("Failed to acquire swapchain image!")
		return 0, false
	}

	vs.CurrentImageIndex = imageIndex
	vs.acquired = true
	return imageIndex, true
}

// SwapchainPresent returns the image to the presentation engine. Returns
// false when the swapchain went out of date; the caller recreates it on the
// next frame.
func (vs *VulkanSwapchain) SwapchainPresent(device *Device, presentQueue vk.Queue, renderCompleteSemaphore vk.Semaphore, presentImageIndex uint32) bool {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{renderCompleteSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{presentImageIndex},
		PResults:           nil,
	}

	vs.acquired = false

	result := vk.QueuePresent(presentQueue, &presentInfo)
	if result == vk.ErrorOutOfDate || result == vk.Suboptimal {
		return false
	} else if result != vk.Success {
		core.LogFatal("Failed to present swap chain image!")
		return false
	}
	return true
}

func createSwapchain(device *Device, width, height uint32) (*VulkanSwapchain, error) {
	context := device.context
	swapchain := &VulkanSwapchain{}

	swapchainExtent := vk.Extent2D{
		Width:  width,
		Height: height,
	}

	// Choose a swap surface format.
	found := false
	for i := 0; i < int(context.Device.SwapchainSupport.FormatCount); i++ {
		format := context.Device.SwapchainSupport.Formats[i]
		// Preferred formats
		if format.Format == vk.FormatB8g8r8a8Unorm &&
			format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			swapchain.ImageFormat = format
			found = true
		}
	}
	if !found {
		swapchain.ImageFormat = context.Device.SwapchainSupport.Formats[0]
	}

	// Fifo is always available and is the vsync mode; mailbox trades tearing
	// protection for latency when vsync is off.
	presentMode := vk.PresentModeFifo
	if !device.config.VSync {
		for i := 0; i < int(context.Device.SwapchainSupport.PresentModeCount); i++ {
			mode := context.Device.SwapchainSupport.PresentModes[i]
			if mode == vk.PresentModeMailbox {
				presentMode = mode
				break
			}
		}
	}

	// Swapchain extent
	if context.Device.SwapchainSupport.Capabilities.CurrentExtent.Width != stdmath.MaxUint32 {
		swapchainExtent = context.Device.SwapchainSupport.Capabilities.CurrentExtent
	}

	// Clamp to the value allowed by the GPU.
	min := context.Device.SwapchainSupport.Capabilities.MinImageExtent
	max := context.Device.SwapchainSupport.Capabilities.MaxImageExtent
	swapchainExtent.Width = math.Clamp(swapchainExtent.Width, min.Width, max.Width)
	swapchainExtent.Height = math.Clamp(swapchainExtent.Height, min.Height, max.Height)
	swapchain.Extent = swapchainExtent

	imageCount := context.Device.SwapchainSupport.Capabilities.MinImageCount + 1
	if context.Device.SwapchainSupport.Capabilities.MaxImageCount > 0 && imageCount > context.Device.SwapchainSupport.Capabilities.MaxImageCount {
		imageCount = context.Device.SwapchainSupport.Capabilities.MaxImageCount
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchainExtent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
	}

	// Setup the queue family indices
	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		queueFamilyIndices := []uint32{
			uint32(context.Device.GraphicsQueueIndex),
			uint32(context.Device.PresentQueueIndex),
		}
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = queueFamilyIndices
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
		swapchainCreateInfo.QueueFamilyIndexCount = 0
		swapchainCreateInfo.PQueueFamilyIndices = nil
	}

	swapchainCreateInfo.PreTransform = context.Device.SwapchainSupport.Capabilities.CurrentTransform
	swapchainCreateInfo.CompositeAlpha = vk.CompositeAlphaOpaqueBit
	swapchainCreateInfo.PresentMode = presentMode
	swapchainCreateInfo.Clipped = vk.True
	swapchainCreateInfo.OldSwapchain = nil

	var swapchainHandle vk.Swapchain
	if res := vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &swapchainHandle); res != vk.Success {
		return nil, resultFromVk(res, "vkCreateSwapchainKHR")
	}
	swapchain.Handle = swapchainHandle

	// Images
	swapchain.ImageCount = 0
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, nil); res != vk.Success {
		return nil, resultFromVk(res, "vkGetSwapchainImagesKHR")
	}
	swapchain.Images = make([]vk.Image, swapchain.ImageCount)
	swapchain.Views = make([]vk.ImageView, swapchain.ImageCount)
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, swapchain.Images); res != vk.Success {
		return nil, resultFromVk(res, "vkGetSwapchainImagesKHR")
	}

	// Views
	for i := 0; i < int(swapchain.ImageCount); i++ {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    swapchain.Images[i],
			ViewType: vk.ImageViewType2d,
			Format:   swapchain.ImageFormat.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}
		if res := vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &swapchain.Views[i]); res != vk.Success {
			return nil, resultFromVk(res, "vkCreateImageView(swapchain)")
		}
	}

	// Depth resources
	if !DeviceDetectDepthFormat(context.Device) {
		context.Device.DepthFormat = vk.FormatUndefined
		core.LogFatal("Failed to find a supported depth format!")
	}

	depthAttachment, err := ImageCreate(
		context,
		vk.ImageType2d,
		swapchainExtent.Width,
		swapchainExtent.Height,
		context.Device.DepthFormat,
		vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		true,
		vk.ImageAspectFlags(vk.ImageAspectDepthBit))
	if err != nil {
		return nil, err
	}
	swapchain.DepthAttachment = depthAttachment

	// Texture wrappers for the device's surface API.
	colorFormat := textureFormatFromVk(swapchain.ImageFormat.Format)
	swapchain.ColorTextures = make([]*vulkanTexture, swapchain.ImageCount)
	for i := 0; i < int(swapchain.ImageCount); i++ {
		swapchain.ColorTextures[i] = &vulkanTexture{
			device: device,
			image: &VulkanImage{
				Handle:    swapchain.Images[i],
				View:      swapchain.Views[i],
				Width:     swapchainExtent.Width,
				Height:    swapchainExtent.Height,
				OwnsImage: false,
			},
			desc: graphics.TextureDesc{
				Width:  swapchainExtent.Width,
				Height: swapchainExtent.Height,
				Format: colorFormat,
				Usage:  graphics.TextureUsageAttachment,
				Label:  "swapchain color",
			},
			presentable: true,
		}
	}
	swapchain.DepthTexture = &vulkanTexture{
		device: device,
		image:  depthAttachment,
		desc: graphics.TextureDesc{
			Width:  swapchainExtent.Width,
			Height: swapchainExtent.Height,
			Format: textureFormatFromVk(context.Device.DepthFormat),
			Usage:  graphics.TextureUsageAttachment,
			Label:  "swapchain depth",
		},
	}

	semInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semInfo, context.Allocator, &swapchain.AcquireSemaphore); res != vk.Success {
		return nil, resultFromVk(res, "vkCreateSemaphore(swapchain)")
	}

	core.LogInfo("Swapchain created successfully (%dx%d, %d images).", swapchainExtent.Width, swapchainExtent.Height, swapchain.ImageCount)

	return swapchain, nil
}

func (vs *VulkanSwapchain) destroySwapchain(device *Device) {
	context := device.context
	vk.DeviceWaitIdle(context.Device.LogicalDevice)
	vs.DepthAttachment.ImageDestroy(context)

	// Only destroy the views, not the images, since those are owned by the
	// swapchain and are thus destroyed when it is.
	for i := 0; i < int(vs.ImageCount); i++ {
		vk.DestroyImageView(context.Device.LogicalDevice, vs.Views[i], context.Allocator)
	}

	vk.DestroySemaphore(context.Device.LogicalDevice, vs.AcquireSemaphore, context.Allocator)
	vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
}

func textureFormatFromVk(format vk.Format) graphics.TextureFormat {
	switch format {
	case vk.FormatR8g8b8a8Unorm:
		return graphics.TextureFormatRGBA8UNorm
	case vk.FormatB8g8r8a8Unorm:
		return graphics.TextureFormatBGRA8UNorm
	case vk.FormatR8g8b8a8Srgb:
		return graphics.TextureFormatRGBA8SRGB
	case vk.FormatB8g8r8a8Srgb:
		return graphics.TextureFormatBGRA8SRGB
	case vk.FormatD24UnormS8Uint:
		return graphics.TextureFormatZ24UNormS8UInt
	case vk.FormatD32Sfloat:
		return graphics.TextureFormatZ32Float
	}
	return graphics.TextureFormatInvalid
}
