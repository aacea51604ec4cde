package d3d12

// The D3D12 objects this backend drives live behind small interfaces. The
// Win32/COM shim (or a test fake) supplies the implementation; the fence and
// present protocols above them are portable Go.

// NativeFence mirrors ID3D12Fence. SetEventOnCompletion registers done to be
// closed once the fence value reaches target; it replaces the Win32 event
// handle with a channel.
type NativeFence interface {
	GetCompletedValue() uint64
	SetEventOnCompletion(target uint64, done chan<- struct{}) error
}

// NativeDevice mirrors the slice of ID3D12Device the present path needs.
// DeviceRemovedReason returns nil while the device is healthy and the
// translated removal reason once it has been lost.
type NativeDevice interface {
	DeviceRemovedReason() error
}

// NativeSwapChain mirrors IDXGISwapChain::Present.
type NativeSwapChain interface {
	Present(syncInterval uint32) error
}

// NativeInfoQueue drains debug-layer breadcrumb messages after a removal.
// Nil is fine outside debug builds.
type NativeInfoQueue interface {
	Messages() []string
}
