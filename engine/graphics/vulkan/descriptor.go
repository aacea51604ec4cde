package vulkan

import (
	"sync"

	vk "github.com/goki/vulkan"
)

// One fixed descriptor set layout serves every pipeline: a few uniform
// buffer slots followed by combined image sampler slots. Encoders bind by
// slot index and the layout maps slots onto bindings.
const (
	maxUniformSlots = 4
	maxTextureSlots = 8

	// Per-draw sets come from one big pool; sets are never freed
	// individually, the pool is reset when the device is idle.
	descriptorPoolSets = 2048
)

type descriptorAllocator struct {
	context *VulkanContext
	layout  vk.DescriptorSetLayout
	pool    vk.DescriptorPool
	mu      sync.Mutex
}

func newDescriptorAllocator(context *VulkanContext) (*descriptorAllocator, error) {
	da := &descriptorAllocator{context: context}

	bindings := make([]vk.DescriptorSetLayoutBinding, 0, maxUniformSlots+maxTextureSlots)
	for i := 0; i < maxUniformSlots; i++ {
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         uint32(i),
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit | vk.ShaderStageComputeBit),
		})
	}
	for i := 0; i < maxTextureSlots; i++ {
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         uint32(maxUniformSlots + i),
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit | vk.ShaderStageComputeBit),
		})
	}

	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	if res := vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &layoutInfo, context.Allocator, &da.layout); res != vk.Success {
		return nil, resultFromVk(res, "vkCreateDescriptorSetLayout")
	}

	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: descriptorPoolSets * maxUniformSlots},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: descriptorPoolSets * maxTextureSlots},
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       descriptorPoolSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &da.pool); res != vk.Success {
		return nil, resultFromVk(res, "vkCreateDescriptorPool")
	}

	return da, nil
}

// allocate hands out one set. When the pool runs dry, it is reset after the
// device drains; safe because sets only live for the frame that wrote them.
func (da *descriptorAllocator) allocate() (vk.DescriptorSet, error) {
	da.mu.Lock()
	defer da.mu.Unlock()

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     da.pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{da.layout},
	}
	sets := make([]vk.DescriptorSet, 1)
	res := vk.AllocateDescriptorSets(da.context.Device.LogicalDevice, &allocInfo, &sets[0])
	if res == vk.ErrorOutOfPoolMemory || res == vk.ErrorFragmentedPool {
		vk.DeviceWaitIdle(da.context.Device.LogicalDevice)
		vk.ResetDescriptorPool(da.context.Device.LogicalDevice, da.pool, 0)
		res = vk.AllocateDescriptorSets(da.context.Device.LogicalDevice, &allocInfo, &sets[0])
	}
	if res != vk.Success {
		return nil, resultFromVk(res, "vkAllocateDescriptorSets")
	}
	return sets[0], nil
}

func (da *descriptorAllocator) destroy() {
	vk.DestroyDescriptorPool(da.context.Device.LogicalDevice, da.pool, da.context.Allocator)
	vk.DestroyDescriptorSetLayout(da.context.Device.LogicalDevice, da.layout, da.context.Allocator)
}
