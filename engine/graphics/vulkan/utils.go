package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/graphics"
)

func VulkanResultIsSuccess(result vk.Result) bool {
	return result >= vk.Success
}

// resultFromVk translates a VkResult into the shared taxonomy at the
// boundary of each device call. Callers of the abstraction never see
// VkResult values.
func resultFromVk(result vk.Result, op string) error {
	if VulkanResultIsSuccess(result) {
		return nil
	}
	switch result {
	case vk.ErrorOutOfHostMemory, vk.ErrorOutOfDeviceMemory, vk.ErrorOutOfPoolMemory:
		return graphics.NewResult(graphics.RuntimeError, "%s: out of memory (%d)", op, result)
	case vk.ErrorDeviceLost:
		return graphics.NewResult(graphics.RuntimeError, "%s: device lost", op)
	case vk.ErrorFormatNotSupported:
		return graphics.NewResult(graphics.Unsupported, "%s: format not supported", op)
	case vk.ErrorExtensionNotPresent, vk.ErrorFeatureNotPresent, vk.ErrorLayerNotPresent:
		return graphics.NewResult(graphics.Unsupported, "%s: requested capability not present (%d)", op, result)
	case vk.ErrorOutOfDate, vk.ErrorSurfaceLost:
		return graphics.NewResult(graphics.InvalidOperation, "%s: surface no longer usable (%d)", op, result)
	default:
		return graphics.NewResult(graphics.RuntimeError, "%s: vulkan error %d", op, result)
	}
}

var end = "\x00"
var endChar byte = '\x00'

func VulkanSafeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func VulkanSafeStrings(list []string) []string {
	for i := range list {
		list[i] = VulkanSafeString(list[i])
	}
	return list
}

// sliceUint32 reinterprets SPIR-V bytes as the word slice the loader wants.
// The caller has already validated the length is a multiple of 4.
func sliceUint32(data []byte) []uint32 {
	const m = 0x7fffffff
	return (*[m / 4]uint32)(unsafe.Pointer(&data[0]))[:len(data)/4]
}
