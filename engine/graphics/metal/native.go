package metal

import (
	"github.com/spaghettifunk/prism/engine/graphics"
)

// The Metal objects this backend drives live behind small interfaces. Go has
// no maintained MTL bindings, so the cgo shim (or a test fake) supplies the
// implementation; everything above these interfaces is portable Go.

type NativeDevice interface {
	Name() string
	NewCommandQueue() (NativeCommandQueue, error)
	NewBuffer(length uint64, storage graphics.StorageMode) (NativeBuffer, error)
	NewTexture(desc graphics.TextureDesc) (NativeTexture, error)
	NewShaderFunction(source, entry string, stage graphics.ShaderStage) (NativeFunction, error)
	NewRenderPipelineState(desc RenderPipelineNativeDesc) (NativeRenderPipelineState, error)
	NewComputePipelineState(fn NativeFunction) (NativeComputePipelineState, error)
	NewSamplerState(desc graphics.SamplerDesc) (NativeSamplerState, error)
	NewDepthStencilState(desc graphics.DepthStencilDesc) (NativeDepthStencilState, error)
}

type NativeCommandQueue interface {
	CommandBuffer() (NativeCommandBuffer, error)
}

// NativeCommandBuffer mirrors the MTLCommandBuffer lifecycle hooks the
// portable state machine attaches to.
type NativeCommandBuffer interface {
	Commit()
	AddScheduledHandler(func())
	AddCompletedHandler(func())
	WaitUntilScheduled()
	WaitUntilCompleted()
	RenderCommandEncoder(desc graphics.RenderPassDesc, color, depth NativeTexture) (NativeRenderCommandEncoder, error)
	ComputeCommandEncoder() (NativeComputeCommandEncoder, error)
	CopyBuffer(src, dst NativeBuffer, srcOffset, dstOffset, size uint64)
	CopyTextureToBuffer(src NativeTexture, dst NativeBuffer, dstOffset uint64)
	PresentDrawable(drawable NativeTexture)
	PushDebugGroup(label string)
	PopDebugGroup()
}

type NativeRenderCommandEncoder interface {
	SetRenderPipelineState(pso NativeRenderPipelineState)
	SetDepthStencilState(dss NativeDepthStencilState)
	SetViewport(v graphics.Viewport)
	SetScissorRect(r graphics.ScissorRect)
	SetVertexBuffer(index uint32, buf NativeBuffer, offset uint64)
	SetFragmentBuffer(index uint32, buf NativeBuffer, offset uint64)
	SetFragmentTexture(index uint32, tex NativeTexture)
	SetFragmentSamplerState(index uint32, s NativeSamplerState)
	Draw(primitive graphics.PrimitiveType, vertexCount, instanceCount, firstVertex, firstInstance uint32)
	DrawIndexed(primitive graphics.PrimitiveType, indexCount, instanceCount, firstIndex uint32, format graphics.IndexFormat, buf NativeBuffer, offset uint64, vertexOffset int32)
	EndEncoding()
}

type NativeComputeCommandEncoder interface {
	SetComputePipelineState(pso NativeComputePipelineState)
	SetBuffer(index uint32, buf NativeBuffer, offset uint64)
	SetTexture(index uint32, tex NativeTexture)
	DispatchThreadgroups(groups graphics.Dimensions)
	EndEncoding()
}

type NativeBuffer interface {
	// Contents exposes the shared-storage mapping; nil for private storage.
	Contents() []byte
	Length() uint64
}

type NativeTexture interface {
	ReplaceRegion(rng graphics.TextureRangeDesc, data []byte) error
}

type NativeFunction interface {
	Name() string
}

type NativeRenderPipelineState interface{}
type NativeComputePipelineState interface{}
type NativeSamplerState interface{}
type NativeDepthStencilState interface{}

// RenderPipelineNativeDesc is the subset of the portable pipeline descriptor
// the native side needs to build an MTLRenderPipelineState.
type RenderPipelineNativeDesc struct {
	Vertex       NativeFunction
	Fragment     NativeFunction
	ColorFormat  graphics.TextureFormat
	DepthFormat  graphics.TextureFormat
	BlendEnabled bool
	Label        string
}
