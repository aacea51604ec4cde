package metal

import (
	"github.com/spaghettifunk/prism/engine/graphics"
)

type metalBuffer struct {
	native  NativeBuffer
	size    uint64
	storage graphics.StorageMode
	label   string
}

func (b *metalBuffer) Upload(data []byte, offset uint64) error {
	if data == nil {
		return graphics.NewResult(graphics.ArgumentNull, "upload data must not be nil")
	}
	if offset+uint64(len(data)) > b.size {
		return graphics.NewResult(graphics.ArgumentOutOfRange,
			"upload of %d bytes at offset %d exceeds buffer size %d", len(data), offset, b.size)
	}
	contents := b.native.Contents()
	if contents == nil {
		return graphics.NewResult(graphics.InvalidOperation, "private-storage buffers upload through a blit; use CommandBuffer.CopyBuffer")
	}
	copy(contents[offset:], data)
	return nil
}

func (b *metalBuffer) SizeInBytes() uint64           { return b.size }
func (b *metalBuffer) Storage() graphics.StorageMode { return b.storage }
func (b *metalBuffer) Label() string                 { return b.label }
func (b *metalBuffer) Destroy()                      {}

type metalTexture struct {
	native NativeTexture
	desc   graphics.TextureDesc
}

func (t *metalTexture) Upload(data []byte, rng graphics.TextureRangeDesc) error {
	if data == nil {
		return graphics.NewResult(graphics.ArgumentNull, "upload data must not be nil")
	}
	if rng.X+rng.Width > t.desc.Width || rng.Y+rng.Height > t.desc.Height {
		return graphics.NewResult(graphics.ArgumentOutOfRange,
			"upload range %dx%d at (%d,%d) exceeds texture dimensions %dx%d",
			rng.Width, rng.Height, rng.X, rng.Y, t.desc.Width, t.desc.Height)
	}
	return t.native.ReplaceRegion(rng, data)
}

func (t *metalTexture) Dimensions() graphics.Dimensions {
	return graphics.Dimensions{Width: t.desc.Width, Height: t.desc.Height, Depth: 1}
}
func (t *metalTexture) Format() graphics.TextureFormat { return t.desc.Format }
func (t *metalTexture) Label() string                  { return t.desc.Label }
func (t *metalTexture) Destroy()                       {}

type metalShaderModule struct {
	fn    NativeFunction
	stage graphics.ShaderStage
	label string
}

func (m *metalShaderModule) Stage() graphics.ShaderStage { return m.stage }
func (m *metalShaderModule) Label() string               { return m.label }

type metalShaderStages struct {
	vertex   *metalShaderModule
	fragment *metalShaderModule
	compute  *metalShaderModule
	label    string
}

func (s *metalShaderStages) IsCompute() bool { return s.compute != nil }
func (s *metalShaderStages) Label() string   { return s.label }

type metalRenderPipeline struct {
	native NativeRenderPipelineState
	desc   graphics.RenderPipelineDesc
}

func (p *metalRenderPipeline) Label() string { return p.desc.Label }

type metalComputePipeline struct {
	native NativeComputePipelineState
	label  string
}

func (p *metalComputePipeline) Label() string { return p.label }

type metalSamplerState struct {
	native NativeSamplerState
	label  string
}

func (s *metalSamplerState) Label() string { return s.label }

type metalDepthStencilState struct {
	native NativeDepthStencilState
	label  string
}

func (s *metalDepthStencilState) Label() string { return s.label }

type metalVertexInputState struct {
	desc graphics.VertexInputDesc
}

func (s *metalVertexInputState) Label() string { return s.desc.Label }

type metalFramebuffer struct {
	color graphics.Texture
	depth graphics.Texture
	label string
}

func (fb *metalFramebuffer) ColorAttachment() graphics.Texture { return fb.color }
func (fb *metalFramebuffer) DepthAttachment() graphics.Texture { return fb.depth }
func (fb *metalFramebuffer) Label() string                     { return fb.label }
