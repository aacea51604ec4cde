package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/containers"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/graphics"
)

// Default capacity of the staging buffer.
// TODO: clamp against VkPhysicalDeviceLimits::maxStorageBufferRange once the
// device reports unusually small limits.
const DefaultStagingBufferSize uint64 = 64 * 1024 * 1024

const maxOutstandingStagingRegions = 256

// submitTracker is the slice of ImmediateCommands the ring allocator needs.
// Split out so the allocator can be exercised without a GPU.
type submitTracker interface {
	IsComplete(handle graphics.SubmitHandle) bool
	Wait(handle graphics.SubmitHandle) bool
}

type stagingRegion struct {
	offset uint64
	size   uint64
	// Fence of the command buffer that consumes this region. The region is
	// not reusable until the handle completes.
	handle graphics.SubmitHandle
}

// stagingRing carves transient upload regions out of one fixed-capacity
// buffer. Regions are handed out front-to-back, wrap to offset zero when the
// tail of the buffer cannot fit a request, and are reclaimed strictly
// oldest-first by fence value. The allocator never hands out a region that
// overlaps an outstanding unfenced write; when it would, it blocks on the
// oldest fence until enough space is reclaimed.
type stagingRing struct {
	capacity    uint64
	alignment   uint64
	frontOffset uint64
	outstanding *containers.RingQueue[stagingRegion]
	tracker     submitTracker
}

func newStagingRing(capacity, alignment uint64, tracker submitTracker) *stagingRing {
	if alignment == 0 {
		alignment = 16
	}
	return &stagingRing{
		capacity:    capacity,
		alignment:   alignment,
		outstanding: containers.NewRingQueue[stagingRegion](maxOutstandingStagingRegions),
		tracker:     tracker,
	}
}

func (s *stagingRing) alignedSize(size uint64) uint64 {
	return (size + s.alignment - 1) &^ (s.alignment - 1)
}

// GetNextFreeOffset reserves an aligned region for size bytes and returns
// its offset. Requests larger than the whole buffer fail with
// ArgumentOutOfRange rather than silently truncating.
func (s *stagingRing) GetNextFreeOffset(size uint64) (uint64, error) {
	aligned := s.alignedSize(size)
	if aligned > s.capacity {
		return 0, graphics.NewResult(graphics.ArgumentOutOfRange,
			"staging upload of %d bytes exceeds staging buffer capacity of %d bytes", size, s.capacity)
	}

	start := s.frontOffset
	if start+aligned > s.capacity {
		// Wrap to the beginning of the buffer.
		start = 0
	}

	// Block until the candidate region no longer overlaps an outstanding
	// unfenced write.
	for s.overlapsOutstanding(start, aligned) {
		if err := s.waitOldest(); err != nil {
			return 0, err
		}
	}

	s.frontOffset = start + aligned
	if s.frontOffset == s.capacity {
		s.frontOffset = 0
	}
	return start, nil
}

// CommitRegion tags the region with the fence value of the command buffer
// that will consume it.
func (s *stagingRing) CommitRegion(offset, size uint64, handle graphics.SubmitHandle) error {
	aligned := s.alignedSize(size)
	for s.outstanding.IsFull() {
		if err := s.waitOldest(); err != nil {
			return err
		}
	}
	return s.outstanding.Enqueue(stagingRegion{offset: offset, size: aligned, handle: handle})
}

// FlushOutstandingFences polls the oldest fences and reclaims every region
// whose consumer has completed. Non-blocking.
func (s *stagingRing) FlushOutstandingFences() {
	for !s.outstanding.IsEmpty() {
		front, _ := s.outstanding.Peek()
		if !s.tracker.IsComplete(front.handle) {
			return
		}
		s.outstanding.Dequeue()
	}
}

// OutstandingBytes reports how much of the buffer is still pending.
func (s *stagingRing) OutstandingBytes() uint64 {
	s.FlushOutstandingFences()
	var total uint64
	for i, n := 0, s.outstanding.Len(); i < n; i++ {
		front, _ := s.outstanding.Dequeue()
		total += front.size
		s.outstanding.Enqueue(front)
	}
	return total
}

func (s *stagingRing) overlapsOutstanding(start, size uint64) bool {
	s.FlushOutstandingFences()
	end := start + size
	overlap := false
	for i, n := 0, s.outstanding.Len(); i < n; i++ {
		front, _ := s.outstanding.Dequeue()
		if start < front.offset+front.size && front.offset < end {
			overlap = true
		}
		s.outstanding.Enqueue(front)
	}
	return overlap
}

func (s *stagingRing) waitOldest() error {
	front, err := s.outstanding.Peek()
	if err != nil {
		// Nothing outstanding yet the region is blocked: accounting bug.
		return graphics.NewResult(graphics.RuntimeError, "staging ring blocked with no outstanding fences")
	}
	if !s.tracker.Wait(front.handle) {
		return graphics.NewResult(graphics.RuntimeError, "failed waiting for staging fence")
	}
	s.outstanding.Dequeue()
	return nil
}

// StagingDevice provides CPU→GPU uploads for device-local buffers and
// textures without the caller managing a persistent staging allocation.
type StagingDevice struct {
	context   *VulkanContext
	immediate *ImmediateCommands
	ring      *stagingRing

	buffer vk.Buffer
	memory vk.DeviceMemory
	mapped unsafe.Pointer
}

func NewStagingDevice(context *VulkanContext, immediate *ImmediateCommands, capacity uint64) (*StagingDevice, error) {
	sd := &StagingDevice{
		context:   context,
		immediate: immediate,
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(capacity),
		Usage:       vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		SharingMode: vk.SharingModeExclusive,
	}
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &sd.buffer); res != vk.Success {
		return nil, resultFromVk(res, "vkCreateBuffer(staging)")
	}

	var memReq vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, sd.buffer, &memReq)
	memReq.Deref()

	memoryIndex := context.FindMemoryIndex(memReq.MemoryTypeBits,
		uint32(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if memoryIndex < 0 {
		err := fmt.Errorf("no host-visible memory type for the staging buffer")
		core.LogError(err.Error())
		return nil, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocInfo, context.Allocator, &sd.memory); res != vk.Success {
		return nil, resultFromVk(res, "vkAllocateMemory(staging)")
	}
	if res := vk.BindBufferMemory(context.Device.LogicalDevice, sd.buffer, sd.memory, 0); res != vk.Success {
		return nil, resultFromVk(res, "vkBindBufferMemory(staging)")
	}

	// Persistently mapped for the lifetime of the device.
	var mapped unsafe.Pointer
	if res := vk.MapMemory(context.Device.LogicalDevice, sd.memory, 0, vk.DeviceSize(capacity), 0, &mapped); res != vk.Success {
		return nil, resultFromVk(res, "vkMapMemory(staging)")
	}
	sd.mapped = mapped

	context.Device.Properties.Limits.Deref()
	alignment := uint64(context.Device.Properties.Limits.OptimalBufferCopyOffsetAlignment)
	sd.ring = newStagingRing(capacity, alignment, immediate)

	core.LogInfo("Staging device created (%d MiB).", capacity/(1024*1024))
	return sd, nil
}

func (sd *StagingDevice) Destroy() {
	sd.immediate.WaitAll()
	if sd.mapped != nil {
		vk.UnmapMemory(sd.context.Device.LogicalDevice, sd.memory)
		sd.mapped = nil
	}
	vk.DestroyBuffer(sd.context.Device.LogicalDevice, sd.buffer, sd.context.Allocator)
	vk.FreeMemory(sd.context.Device.LogicalDevice, sd.memory, sd.context.Allocator)
}

// BufferSubData uploads data into a device-local buffer at dstOffset.
// Asynchronous; the destination is safe to use on the submission queue
// because copies execute in submission order.
func (sd *StagingDevice) BufferSubData(dst vk.Buffer, dstOffset uint64, data []byte) error {
	offset, err := sd.ring.GetNextFreeOffset(uint64(len(data)))
	if err != nil {
		return err
	}

	sd.writeStaging(offset, data)

	wrapper, err := sd.immediate.Acquire()
	if err != nil {
		return err
	}
	region := vk.BufferCopy{
		SrcOffset: vk.DeviceSize(offset),
		DstOffset: vk.DeviceSize(dstOffset),
		Size:      vk.DeviceSize(len(data)),
	}
	vk.CmdCopyBuffer(wrapper.CmdBuf, sd.buffer, dst, 1, []vk.BufferCopy{region})

	handle, err := sd.immediate.Submit(wrapper)
	if err != nil {
		return err
	}
	return sd.ring.CommitRegion(offset, uint64(len(data)), handle)
}

// ImageData2D uploads pixel data covering a 2D region of an image, handling
// the layout transitions around the copy.
func (sd *StagingDevice) ImageData2D(image *VulkanImage, rng graphics.TextureRangeDesc, data []byte) error {
	offset, err := sd.ring.GetNextFreeOffset(uint64(len(data)))
	if err != nil {
		return err
	}

	sd.writeStaging(offset, data)

	wrapper, err := sd.immediate.Acquire()
	if err != nil {
		return err
	}

	subresource := vk.ImageSubresourceRange{
		AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		BaseMipLevel:   rng.MipLevel,
		LevelCount:     1,
		BaseArrayLayer: rng.Layer,
		LayerCount:     1,
	}
	imageTransitionLayout(wrapper.CmdBuf, image.Handle, subresource,
		vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)

	copyRegion := vk.BufferImageCopy{
		BufferOffset: vk.DeviceSize(offset),
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       rng.MipLevel,
			BaseArrayLayer: rng.Layer,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{X: int32(rng.X), Y: int32(rng.Y), Z: int32(rng.Z)},
		ImageExtent: vk.Extent3D{Width: rng.Width, Height: rng.Height, Depth: maxUint32(rng.Depth, 1)},
	}
	vk.CmdCopyBufferToImage(wrapper.CmdBuf, sd.buffer, image.Handle,
		vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{copyRegion})

	imageTransitionLayout(wrapper.CmdBuf, image.Handle, subresource,
		vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)

	handle, err := sd.immediate.Submit(wrapper)
	if err != nil {
		return err
	}
	return sd.ring.CommitRegion(offset, uint64(len(data)), handle)
}

func (sd *StagingDevice) writeStaging(offset uint64, data []byte) {
	dst := unsafe.Pointer(uintptr(sd.mapped) + uintptr(offset))
	vk.Memcopy(dst, data)
}

func maxUint32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
