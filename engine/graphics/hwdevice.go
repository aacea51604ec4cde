package graphics

// HWDeviceType classifies a physical adapter.
type HWDeviceType uint8

const (
	HWDeviceTypeUnknown HWDeviceType = iota
	HWDeviceTypeDiscrete
	HWDeviceTypeIntegrated
	HWDeviceTypeSoftware
)

// HWDeviceDesc describes one enumerated physical adapter.
type HWDeviceDesc struct {
	Name    string
	Type    HWDeviceType
	Backend BackendType
	// Backend-specific adapter index, fed back into the factory.
	Index uint32
}

// DeviceConfig carries construction-time options common to all backends.
// Debug toggles live here instead of ambient environment variables.
type DeviceConfig struct {
	// Enable the native validation/debug layer (Vulkan validation layers,
	// D3D12 debug layer).
	EnableDebugLayer bool
	// Present with vertical sync. Backends that cannot honor it ignore it.
	VSync bool
	// Upper bound on CPU frames in flight; 0 picks the backend default.
	MaxFramesInFlight uint32
}

// HWDeviceQuerier enumerates adapters for one backend and creates the
// logical device. Each backend package exposes an implementation.
type HWDeviceQuerier interface {
	QueryDevices() ([]HWDeviceDesc, error)
	Create(desc HWDeviceDesc, config DeviceConfig) (Device, error)
}
