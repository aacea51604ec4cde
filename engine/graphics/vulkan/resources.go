package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/graphics"
)

// vulkanBuffer implements graphics.Buffer. Device-local buffers upload
// through the staging device; host-visible buffers stay persistently mapped.
type vulkanBuffer struct {
	device  *Device
	handle  vk.Buffer
	memory  vk.DeviceMemory
	size    uint64
	storage graphics.StorageMode
	label   string
	mapped  unsafe.Pointer
}

func newVulkanBuffer(device *Device, desc graphics.BufferDesc) (*vulkanBuffer, error) {
	storage := desc.Storage
	if storage == graphics.StorageModeUnset {
		// Unset carries no meaning; pick private as the device default.
		storage = graphics.StorageModePrivate
	}

	usage := vk.BufferUsageFlags(vk.BufferUsageTransferDstBit | vk.BufferUsageTransferSrcBit)
	if desc.Usage&graphics.BufferUsageVertex != 0 {
		usage |= vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	}
	if desc.Usage&graphics.BufferUsageIndex != 0 {
		usage |= vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	}
	if desc.Usage&graphics.BufferUsageUniform != 0 {
		usage |= vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	}
	if desc.Usage&graphics.BufferUsageStorage != 0 {
		usage |= vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	}

	b := &vulkanBuffer{
		device:  device,
		size:    desc.Size,
		storage: storage,
		label:   desc.Label,
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(desc.Size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	if res := vk.CreateBuffer(device.context.Device.LogicalDevice, &bufferInfo, device.context.Allocator, &b.handle); res != vk.Success {
		return nil, resultFromVk(res, "vkCreateBuffer")
	}

	var memReq vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device.context.Device.LogicalDevice, b.handle, &memReq)
	memReq.Deref()

	memFlags := vk.MemoryPropertyDeviceLocalBit
	if storage == graphics.StorageModeShared {
		memFlags = vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
	}
	memoryIndex := device.context.FindMemoryIndex(memReq.MemoryTypeBits, uint32(memFlags))
	if memoryIndex < 0 {
		return nil, graphics.NewResult(graphics.RuntimeError, "required buffer memory type not found")
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	if res := vk.AllocateMemory(device.context.Device.LogicalDevice, &allocInfo, device.context.Allocator, &b.memory); res != vk.Success {
		return nil, resultFromVk(res, "vkAllocateMemory(buffer)")
	}
	if res := vk.BindBufferMemory(device.context.Device.LogicalDevice, b.handle, b.memory, 0); res != vk.Success {
		return nil, resultFromVk(res, "vkBindBufferMemory")
	}

	if storage == graphics.StorageModeShared {
		var mapped unsafe.Pointer
		if res := vk.MapMemory(device.context.Device.LogicalDevice, b.memory, 0, vk.DeviceSize(desc.Size), 0, &mapped); res != vk.Success {
			return nil, resultFromVk(res, "vkMapMemory(buffer)")
		}
		b.mapped = mapped
	}

	if desc.Data != nil {
		if err := b.Upload(desc.Data, 0); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *vulkanBuffer) Upload(data []byte, offset uint64) error {
	if data == nil {
		return graphics.NewResult(graphics.ArgumentNull, "upload data must not be nil")
	}
	if offset+uint64(len(data)) > b.size {
		return graphics.NewResult(graphics.ArgumentOutOfRange,
			"upload of %d bytes at offset %d exceeds buffer size %d", len(data), offset, b.size)
	}
	if b.storage == graphics.StorageModeShared {
		dst := unsafe.Pointer(uintptr(b.mapped) + uintptr(offset))
		vk.Memcopy(dst, data)
		return nil
	}
	return b.device.staging.BufferSubData(b.handle, offset, data)
}

func (b *vulkanBuffer) SizeInBytes() uint64 {
	return b.size
}

func (b *vulkanBuffer) Storage() graphics.StorageMode {
	return b.storage
}

func (b *vulkanBuffer) Label() string {
	return b.label
}

// Destroy defers the native release until every submission issued so far has
// retired. Keying on the queue's last submit handle over-approximates the
// buffer's last use, which is safe.
func (b *vulkanBuffer) Destroy() {
	device := b.device
	handle, memory, mapped := b.handle, b.memory, b.mapped
	b.handle, b.memory, b.mapped = nil, nil, nil
	device.destroyQueue.Defer(device.immediate.LastSubmitHandle(), func() {
		if mapped != nil {
			vk.UnmapMemory(device.context.Device.LogicalDevice, memory)
		}
		vk.DestroyBuffer(device.context.Device.LogicalDevice, handle, device.context.Allocator)
		vk.FreeMemory(device.context.Device.LogicalDevice, memory, device.context.Allocator)
	})
}

// vulkanTexture implements graphics.Texture over a VulkanImage.
type vulkanTexture struct {
	device *Device
	image  *VulkanImage
	desc   graphics.TextureDesc
	// Swapchain images render through a present-transitioning pass.
	presentable bool
}

func newVulkanTexture(device *Device, desc graphics.TextureDesc) (*vulkanTexture, error) {
	format := vkFormatFromTextureFormat(desc.Format)
	if format == vk.FormatUndefined {
		return nil, graphics.NewResult(graphics.Unsupported, "texture format %d is not supported by the vulkan backend", desc.Format)
	}

	usage := vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageTransferSrcBit)
	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	if desc.Usage&graphics.TextureUsageSampled != 0 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	}
	if desc.Usage&graphics.TextureUsageStorage != 0 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageStorageBit)
	}
	if desc.Usage&graphics.TextureUsageAttachment != 0 {
		if desc.Format.IsDepthOrStencil() {
			usage |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
			aspect = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
		} else {
			usage |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
		}
	}

	image, err := ImageCreate(
		device.context,
		vk.ImageType2d,
		desc.Width,
		desc.Height,
		format,
		vk.ImageTilingOptimal,
		usage,
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		true,
		aspect)
	if err != nil {
		return nil, err
	}

	return &vulkanTexture{device: device, image: image, desc: desc}, nil
}

func (t *vulkanTexture) Upload(data []byte, rng graphics.TextureRangeDesc) error {
	if data == nil {
		return graphics.NewResult(graphics.ArgumentNull, "upload data must not be nil")
	}
	if rng.Width == 0 || rng.Height == 0 {
		return graphics.NewResult(graphics.ArgumentOutOfRange, "upload range must have non-zero dimensions")
	}
	if rng.X+rng.Width > t.desc.Width || rng.Y+rng.Height > t.desc.Height {
		return graphics.NewResult(graphics.ArgumentOutOfRange,
			"upload range %dx%d at (%d,%d) exceeds texture dimensions %dx%d",
			rng.Width, rng.Height, rng.X, rng.Y, t.desc.Width, t.desc.Height)
	}
	expected := uint64(rng.Width) * uint64(rng.Height) * uint64(t.desc.Format.BytesPerPixel())
	if uint64(len(data)) < expected {
		return graphics.NewResult(graphics.ArgumentOutOfRange,
			"upload data has %d bytes, range requires %d", len(data), expected)
	}
	return t.device.staging.ImageData2D(t.image, rng, data)
}

func (t *vulkanTexture) Dimensions() graphics.Dimensions {
	return graphics.Dimensions{Width: t.desc.Width, Height: t.desc.Height, Depth: maxUint32(t.desc.Depth, 1)}
}

func (t *vulkanTexture) Format() graphics.TextureFormat {
	return t.desc.Format
}

func (t *vulkanTexture) Label() string {
	return t.desc.Label
}

func (t *vulkanTexture) Destroy() {
	device := t.device
	image := t.image
	t.image = nil
	device.destroyQueue.Defer(device.immediate.LastSubmitHandle(), func() {
		image.ImageDestroy(device.context)
	})
}
