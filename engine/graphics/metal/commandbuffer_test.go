package metal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/graphics"
)

type fakeNativeDevice struct{}

func (d *fakeNativeDevice) Name() string { return "Fake GPU" }
func (d *fakeNativeDevice) NewCommandQueue() (NativeCommandQueue, error) {
	return &fakeNativeQueue{}, nil
}
func (d *fakeNativeDevice) NewBuffer(length uint64, storage graphics.StorageMode) (NativeBuffer, error) {
	var contents []byte
	if storage != graphics.StorageModePrivate {
		contents = make([]byte, length)
	}
	return &fakeNativeBuffer{contents: contents, length: length}, nil
}
func (d *fakeNativeDevice) NewTexture(desc graphics.TextureDesc) (NativeTexture, error) {
	return &fakeNativeTexture{}, nil
}
func (d *fakeNativeDevice) NewShaderFunction(source, entry string, stage graphics.ShaderStage) (NativeFunction, error) {
	return &fakeNativeFunction{name: entry}, nil
}
func (d *fakeNativeDevice) NewRenderPipelineState(desc RenderPipelineNativeDesc) (NativeRenderPipelineState, error) {
	return struct{}{}, nil
}
func (d *fakeNativeDevice) NewComputePipelineState(fn NativeFunction) (NativeComputePipelineState, error) {
	return struct{}{}, nil
}
func (d *fakeNativeDevice) NewSamplerState(desc graphics.SamplerDesc) (NativeSamplerState, error) {
	return struct{}{}, nil
}
func (d *fakeNativeDevice) NewDepthStencilState(desc graphics.DepthStencilDesc) (NativeDepthStencilState, error) {
	return struct{}{}, nil
}

type fakeNativeQueue struct {
	buffers []*fakeCommandBuffer
}

func (q *fakeNativeQueue) CommandBuffer() (NativeCommandBuffer, error) {
	cb := &fakeCommandBuffer{}
	q.buffers = append(q.buffers, cb)
	return cb, nil
}

type fakeNativeBuffer struct {
	contents []byte
	length   uint64
}

func (b *fakeNativeBuffer) Contents() []byte { return b.contents }
func (b *fakeNativeBuffer) Length() uint64   { return b.length }

type fakeNativeTexture struct{}

func (t *fakeNativeTexture) ReplaceRegion(rng graphics.TextureRangeDesc, data []byte) error {
	return nil
}

type fakeNativeFunction struct {
	name string
}

func (f *fakeNativeFunction) Name() string { return f.name }

func newTestDevice(t *testing.T) *Device {
	t.Helper()
	device, err := NewDevice(&fakeNativeDevice{}, graphics.DeviceConfig{})
	require.NoError(t, err)
	return device
}

func TestCreateCommandBufferWithNoContext(t *testing.T) {
	q := &Queue{}
	cb, err := q.CreateCommandBuffer(graphics.CommandBufferDesc{})
	assert.Nil(t, cb)
	require.Error(t, err)
	assert.Equal(t, graphics.RuntimeError, graphics.CodeOf(err))
	assert.Contains(t, err.Error(), "no context set")
}

func TestSubmitHandlesStrictlyIncrease(t *testing.T) {
	device := newTestDevice(t)
	queue, err := device.CreateCommandQueue(graphics.CommandQueueDesc{Label: "test"})
	require.NoError(t, err)

	var prev graphics.SubmitHandle
	for i := 0; i < 5; i++ {
		cb, err := queue.CreateCommandBuffer(graphics.CommandBufferDesc{})
		require.NoError(t, err)

		handle, err := queue.Submit(cb)
		require.NoError(t, err)
		assert.Greater(t, handle, prev)
		prev = handle
	}
}

func TestOnlyPresentingSubmissionAdvancesFrameIndex(t *testing.T) {
	device := newTestDevice(t)
	queue, err := device.CreateCommandQueue(graphics.CommandQueueDesc{})
	require.NoError(t, err)

	surface, err := device.CreateTexture(graphics.TextureDesc{
		Width:  640,
		Height: 480,
		Format: graphics.TextureFormatBGRA8UNorm,
		Usage:  graphics.TextureUsageAttachment,
	})
	require.NoError(t, err)

	// A frame with an auxiliary pass: the first submission does not
	// present and must not consume a frame slot.
	aux, err := queue.CreateCommandBuffer(graphics.CommandBufferDesc{})
	require.NoError(t, err)
	_, err = queue.Submit(aux)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), device.SyncManager().CurrentInFlightBufferIndex())

	final, err := queue.CreateCommandBuffer(graphics.CommandBufferDesc{})
	require.NoError(t, err)
	require.NoError(t, final.Present(surface))
	_, err = queue.Submit(final)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), device.SyncManager().CurrentInFlightBufferIndex())
}

func TestSubmitDrivesStateMachineThroughNativeHandlers(t *testing.T) {
	device := newTestDevice(t)
	queue, err := device.CreateCommandQueue(graphics.CommandQueueDesc{})
	require.NoError(t, err)

	cb, err := queue.CreateCommandBuffer(graphics.CommandBufferDesc{})
	require.NoError(t, err)
	assert.Equal(t, graphics.CommandBufferStateRecording, cb.State())

	_, err = queue.Submit(cb)
	require.NoError(t, err)
	assert.Equal(t, graphics.CommandBufferStateSubmitted, cb.State())

	native := cb.(*commandBuffer).native.(*fakeCommandBuffer)
	assert.True(t, native.committed)

	native.fireScheduled()
	assert.Equal(t, graphics.CommandBufferStateScheduled, cb.State())

	native.fireCompleted()
	assert.Equal(t, graphics.CommandBufferStateCompleted, cb.State())
}

func TestSubmitPresentsMarkedSurfaces(t *testing.T) {
	device := newTestDevice(t)
	queue, err := device.CreateCommandQueue(graphics.CommandQueueDesc{})
	require.NoError(t, err)

	surface, err := device.CreateTexture(graphics.TextureDesc{
		Width:  640,
		Height: 480,
		Format: graphics.TextureFormatBGRA8UNorm,
		Usage:  graphics.TextureUsageAttachment,
	})
	require.NoError(t, err)

	cb, err := queue.CreateCommandBuffer(graphics.CommandBufferDesc{})
	require.NoError(t, err)
	require.NoError(t, cb.Present(surface))

	_, err = queue.Submit(cb)
	require.NoError(t, err)

	native := cb.(*commandBuffer).native.(*fakeCommandBuffer)
	require.Len(t, native.presented, 1)
	assert.Same(t, surface.(*metalTexture).native, native.presented[0])
}

func TestSharedBufferUploadWritesContents(t *testing.T) {
	device := newTestDevice(t)
	buf, err := device.CreateBuffer(graphics.BufferDesc{
		Size:    8,
		Usage:   graphics.BufferUsageVertex,
		Storage: graphics.StorageModeShared,
	})
	require.NoError(t, err)

	require.NoError(t, buf.Upload([]byte{1, 2, 3, 4}, 2))
	native := buf.(*metalBuffer).native.(*fakeNativeBuffer)
	assert.Equal(t, []byte{0, 0, 1, 2, 3, 4, 0, 0}, native.contents)

	err = buf.Upload([]byte{9, 9, 9}, 6)
	require.Error(t, err)
	assert.Equal(t, graphics.ArgumentOutOfRange, graphics.CodeOf(err))
}

func TestPrivateBufferUploadRequiresBlit(t *testing.T) {
	device := newTestDevice(t)
	buf, err := device.CreateBuffer(graphics.BufferDesc{
		Size:    8,
		Usage:   graphics.BufferUsageStorage,
		Storage: graphics.StorageModePrivate,
	})
	require.NoError(t, err)

	err = buf.Upload([]byte{1}, 0)
	require.Error(t, err)
	assert.Equal(t, graphics.InvalidOperation, graphics.CodeOf(err))
}
