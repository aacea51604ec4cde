package d3d12

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDevice struct {
	removed      error
	statusChecks int
	// removeAfterChecks flips the device to removed once this many status
	// checks have happened. Zero disables the trip.
	removeAfterChecks int
}

func (d *fakeDevice) DeviceRemovedReason() error {
	d.statusChecks++
	if d.removeAfterChecks > 0 && d.statusChecks > d.removeAfterChecks {
		d.removed = errors.New("device hung")
	}
	return d.removed
}

type fakeSwapChain struct {
	presents      int
	lastInterval  uint32
	presentResult error
}

func (s *fakeSwapChain) Present(syncInterval uint32) error {
	s.presents++
	s.lastInterval = syncInterval
	return s.presentResult
}

type fakeInfoQueue struct {
	drained bool
}

func (q *fakeInfoQueue) Messages() []string {
	q.drained = true
	return []string{"breadcrumb: draw 42", "breadcrumb: present"}
}

func TestPresentManagerPresentsWhileHealthy(t *testing.T) {
	device := &fakeDevice{}
	swapchain := &fakeSwapChain{}
	m := NewPresentManager(device, swapchain)

	for i := 0; i < 3; i++ {
		require.True(t, m.Present())
	}
	assert.Equal(t, 3, swapchain.presents)
	assert.Equal(t, uint32(1), swapchain.lastInterval)
	assert.Equal(t, uint64(3), m.FrameSerial())
	assert.False(t, m.DeviceRemoved())
}

func TestPresentManagerVSyncOverride(t *testing.T) {
	swapchain := &fakeSwapChain{}
	m := NewPresentManager(&fakeDevice{}, swapchain, WithVSync(false))

	require.True(t, m.Present())
	assert.Equal(t, uint32(0), swapchain.lastInterval)
}

func TestPresentManagerRemovalBeforePresent(t *testing.T) {
	device := &fakeDevice{removed: errors.New("driver reset")}
	swapchain := &fakeSwapChain{}
	m := NewPresentManager(device, swapchain)

	assert.False(t, m.Present())
	assert.Zero(t, swapchain.presents, "a removed device must not be presented to")
	assert.True(t, m.DeviceRemoved())
}

func TestPresentManagerRemovalAfterPresent(t *testing.T) {
	// The device dies during Present: the pre-check passes, the native
	// call succeeds, the post-check catches it.
	device := &fakeDevice{removeAfterChecks: 1}
	swapchain := &fakeSwapChain{}
	m := NewPresentManager(device, swapchain)

	assert.False(t, m.Present())
	assert.Equal(t, 1, swapchain.presents)
	assert.True(t, m.DeviceRemoved())
	assert.Equal(t, uint64(0), m.FrameSerial(), "a frame lost to removal does not count")

	// Once removal is seen, nothing touches the native device again.
	checksAtRemoval := device.statusChecks
	assert.False(t, m.Present())
	assert.Equal(t, 1, swapchain.presents)
	assert.Equal(t, checksAtRemoval, device.statusChecks)
}

func TestPresentManagerPresentFailureIsSoft(t *testing.T) {
	device := &fakeDevice{}
	swapchain := &fakeSwapChain{presentResult: errors.New("DXGI_ERROR_DEVICE_RESET")}
	m := NewPresentManager(device, swapchain)

	assert.False(t, m.Present())
	assert.False(t, m.DeviceRemoved(), "a present failure without removal stays recoverable")
}

func TestPresentManagerDrainsBreadcrumbsOnRemoval(t *testing.T) {
	device := &fakeDevice{removed: errors.New("page fault")}
	queue := &fakeInfoQueue{}
	m := NewPresentManager(device, &fakeSwapChain{}, WithInfoQueue(queue))

	assert.False(t, m.Present())
	assert.True(t, queue.drained)
}

func TestPresentManagerFramePacing(t *testing.T) {
	fence := &fakeFence{}
	device := &fakeDevice{}
	swapchain := &fakeSwapChain{}
	m := NewPresentManager(device, swapchain, WithFramePacing(fence, 2))

	// Frames 1 and 2 stay within the latency bound and never wait.
	require.True(t, m.Present())
	require.True(t, m.Present())

	// Frame 3 waits for frame serial 1. The queue has signaled it, so the
	// wait resolves immediately.
	fence.signal(1)
	require.True(t, m.Present())
	assert.Equal(t, uint64(3), m.FrameSerial())
}
