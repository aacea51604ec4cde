package d3d12

import (
	"github.com/spaghettifunk/prism/engine/core"
)

const presentWaitTimeoutMs = 1000

// PresentManager presents the swapchain while watching for device removal.
// A removed device is reported through the Present return value; the caller
// tears the device down and recreates it, nothing in this path touches the
// native device again once removal is seen.
type PresentManager struct {
	device    NativeDevice
	swapchain NativeSwapChain
	infoQueue NativeInfoQueue
	debug     bool

	syncInterval uint32

	// Frame pacing. The caller's queue signals frameFence with the frame
	// serial after each present; Present blocks until the GPU is at most
	// maxFrameLatency frames behind.
	frameFence      NativeFence
	maxFrameLatency uint64
	frameSerial     uint64

	removed bool
}

type PresentOption func(*PresentManager)

// WithVSync overrides the default sync interval of 1.
func WithVSync(enabled bool) PresentOption {
	return func(m *PresentManager) {
		if enabled {
			m.syncInterval = 1
		} else {
			m.syncInterval = 0
		}
	}
}

// WithInfoQueue enables breadcrumb logging on device removal.
func WithInfoQueue(q NativeInfoQueue) PresentOption {
	return func(m *PresentManager) {
		m.infoQueue = q
		m.debug = true
	}
}

// WithFramePacing bounds how many presented frames the CPU may run ahead of
// fence, which the submitting queue signals with the frame serial.
func WithFramePacing(fence NativeFence, maxFrameLatency uint64) PresentOption {
	return func(m *PresentManager) {
		m.frameFence = fence
		if maxFrameLatency == 0 {
			maxFrameLatency = 1
		}
		m.maxFrameLatency = maxFrameLatency
	}
}

func NewPresentManager(device NativeDevice, swapchain NativeSwapChain, opts ...PresentOption) *PresentManager {
	m := &PresentManager{
		device:       device,
		swapchain:    swapchain,
		syncInterval: 1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DeviceRemoved reports whether a removal has been observed on this path.
func (m *PresentManager) DeviceRemoved() bool {
	return m.removed
}

// FrameSerial is the number of frames presented so far.
func (m *PresentManager) FrameSerial() uint64 {
	return m.frameSerial
}

// Present pushes the current backbuffer to the swapchain. It returns false
// when the device was removed before, during, or after the native Present;
// a successful Present return does not prove the device survived it, so the
// status is checked on both sides. Present never panics on removal.
func (m *PresentManager) Present() bool {
	if m.removed {
		return false
	}
	if !m.checkDeviceStatus("before present") {
		return false
	}

	if err := m.swapchain.Present(m.syncInterval); err != nil {
		core.LogError("swapchain present failed: %v", err)
		m.checkDeviceStatus("during present")
		return false
	}

	if !m.checkDeviceStatus("after present") {
		return false
	}

	m.frameSerial++
	m.pace()
	return true
}

// pace blocks until the GPU has caught up to within maxFrameLatency frames.
func (m *PresentManager) pace() {
	if m.frameFence == nil || m.frameSerial <= m.maxFrameLatency {
		return
	}
	target := m.frameSerial - m.maxFrameLatency
	waiter, err := NewFenceWaiter(m.frameFence, target)
	if err != nil {
		return
	}
	if !waiter.Wait(presentWaitTimeoutMs) {
		core.LogWarn("frame pacing wait for serial %d did not complete within %dms", target, presentWaitTimeoutMs)
	}
}

func (m *PresentManager) checkDeviceStatus(when string) bool {
	err := m.device.DeviceRemovedReason()
	if err == nil {
		return true
	}
	m.removed = true
	core.LogError("device removed %s: %v", when, err)
	if m.debug && m.infoQueue != nil {
		for _, msg := range m.infoQueue.Messages() {
			core.LogDebug("d3d12 breadcrumb: %s", msg)
		}
	}
	return false
}
