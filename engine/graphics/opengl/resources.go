package opengl

import (
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/spaghettifunk/prism/engine/graphics"
)

type glBuffer struct {
	id      uint32
	size    uint64
	storage graphics.StorageMode
	usage   graphics.BufferUsage
	label   string
}

func newGLBuffer(desc graphics.BufferDesc) (*glBuffer, error) {
	storage := desc.Storage
	if storage == graphics.StorageModeUnset {
		storage = graphics.StorageModeShared
	}

	b := &glBuffer{
		size:    desc.Size,
		storage: storage,
		usage:   desc.Usage,
		label:   desc.Label,
	}
	gl.GenBuffers(1, &b.id)

	target := b.target()
	gl.BindBuffer(target, b.id)
	var ptr unsafe.Pointer
	if desc.Data != nil {
		ptr = gl.Ptr(desc.Data)
	}
	hint := uint32(gl.STATIC_DRAW)
	if storage == graphics.StorageModeShared {
		hint = gl.DYNAMIC_DRAW
	}
	gl.BufferData(target, int(desc.Size), ptr, hint)
	gl.BindBuffer(target, 0)
	return b, nil
}

func (b *glBuffer) target() uint32 {
	switch {
	case b.usage&graphics.BufferUsageIndex != 0:
		return gl.ELEMENT_ARRAY_BUFFER
	case b.usage&graphics.BufferUsageUniform != 0:
		return gl.UNIFORM_BUFFER
	default:
		return gl.ARRAY_BUFFER
	}
}

func (b *glBuffer) Upload(data []byte, offset uint64) error {
	if data == nil {
		return graphics.NewResult(graphics.ArgumentNull, "upload data must not be nil")
	}
	if offset+uint64(len(data)) > b.size {
		return graphics.NewResult(graphics.ArgumentOutOfRange,
			"upload of %d bytes at offset %d exceeds buffer size %d", len(data), offset, b.size)
	}
	target := b.target()
	gl.BindBuffer(target, b.id)
	gl.BufferSubData(target, int(offset), len(data), gl.Ptr(data))
	gl.BindBuffer(target, 0)
	return nil
}

func (b *glBuffer) SizeInBytes() uint64              { return b.size }
func (b *glBuffer) Storage() graphics.StorageMode    { return b.storage }
func (b *glBuffer) Label() string                    { return b.label }
func (b *glBuffer) Destroy()                         { gl.DeleteBuffers(1, &b.id) }

type glTexture struct {
	id   uint32
	desc graphics.TextureDesc
}

func newGLTexture(desc graphics.TextureDesc) (*glTexture, error) {
	internal, format, typ, ok := glTextureFormat(desc.Format)
	if !ok {
		return nil, graphics.NewResult(graphics.Unsupported, "texture format %d is not supported by the opengl backend", desc.Format)
	}

	t := &glTexture{desc: desc}
	gl.GenTextures(1, &t.id)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(desc.Width), int32(desc.Height), 0, format, typ, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return t, nil
}

func (t *glTexture) Upload(data []byte, rng graphics.TextureRangeDesc) error {
	if data == nil {
		return graphics.NewResult(graphics.ArgumentNull, "upload data must not be nil")
	}
	if rng.X+rng.Width > t.desc.Width || rng.Y+rng.Height > t.desc.Height {
		return graphics.NewResult(graphics.ArgumentOutOfRange,
			"upload range %dx%d at (%d,%d) exceeds texture dimensions %dx%d",
			rng.Width, rng.Height, rng.X, rng.Y, t.desc.Width, t.desc.Height)
	}
	_, format, typ, _ := glTextureFormat(t.desc.Format)
	gl.BindTexture(gl.TEXTURE_2D, t.id)
	gl.TexSubImage2D(gl.TEXTURE_2D, int32(rng.MipLevel), int32(rng.X), int32(rng.Y),
		int32(rng.Width), int32(rng.Height), format, typ, gl.Ptr(data))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

func (t *glTexture) Dimensions() graphics.Dimensions {
	return graphics.Dimensions{Width: t.desc.Width, Height: t.desc.Height, Depth: 1}
}
func (t *glTexture) Format() graphics.TextureFormat { return t.desc.Format }
func (t *glTexture) Label() string                  { return t.desc.Label }
func (t *glTexture) Destroy()                       { gl.DeleteTextures(1, &t.id) }

// backbufferTexture stands in for the default framebuffer; it cannot be
// sampled or uploaded to.
type backbufferTexture struct {
	width  uint32
	height uint32
}

func (t *backbufferTexture) Upload([]byte, graphics.TextureRangeDesc) error {
	return graphics.NewResult(graphics.InvalidOperation, "the backbuffer cannot be uploaded to")
}
func (t *backbufferTexture) Dimensions() graphics.Dimensions {
	return graphics.Dimensions{Width: t.width, Height: t.height, Depth: 1}
}
func (t *backbufferTexture) Format() graphics.TextureFormat { return graphics.TextureFormatBGRA8UNorm }
func (t *backbufferTexture) Label() string                  { return "backbuffer" }
func (t *backbufferTexture) Destroy()                       {}

type glShaderModule struct {
	id    uint32
	stage graphics.ShaderStage
	label string
}

func newGLShaderModule(desc graphics.ShaderModuleDesc) (*glShaderModule, error) {
	var kind uint32
	switch desc.Stage {
	case graphics.ShaderStageVertex:
		kind = gl.VERTEX_SHADER
	case graphics.ShaderStageFragment:
		kind = gl.FRAGMENT_SHADER
	default:
		return nil, graphics.NewResult(graphics.Unsupported, "stage %s is not supported by the opengl backend", desc.Stage)
	}

	id := gl.CreateShader(kind)
	src, free := gl.Strs(string(desc.Code) + "\x00")
	gl.ShaderSource(id, 1, src, nil)
	free()
	gl.CompileShader(id)

	var status int32
	gl.GetShaderiv(id, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(id, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(id, logLen, nil, gl.Str(log))
		gl.DeleteShader(id)
		return nil, graphics.NewResult(graphics.ArgumentInvalid, "shader compile failed: %s", log)
	}

	return &glShaderModule{id: id, stage: desc.Stage, label: desc.Label}, nil
}

func (m *glShaderModule) Stage() graphics.ShaderStage { return m.stage }
func (m *glShaderModule) Label() string               { return m.label }

type glShaderStages struct {
	vertex   *glShaderModule
	fragment *glShaderModule
	compute  *glShaderModule
	label    string
}

func (s *glShaderStages) IsCompute() bool { return s.compute != nil }
func (s *glShaderStages) Label() string   { return s.label }

func (s *glShaderStages) link() (uint32, error) {
	program := gl.CreateProgram()
	gl.AttachShader(program, s.vertex.id)
	if s.fragment != nil {
		gl.AttachShader(program, s.fragment.id)
	}
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(program, logLen, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, graphics.NewResult(graphics.ArgumentInvalid, "program link failed: %s", log)
	}
	return program, nil
}

type glSamplerState struct {
	id    uint32
	label string
}

func newGLSamplerState(desc graphics.SamplerDesc) (*glSamplerState, error) {
	s := &glSamplerState{label: desc.Label}
	gl.GenSamplers(1, &s.id)
	gl.SamplerParameteri(s.id, gl.TEXTURE_MIN_FILTER, glFilter(desc.MinFilter))
	gl.SamplerParameteri(s.id, gl.TEXTURE_MAG_FILTER, glFilter(desc.MagFilter))
	gl.SamplerParameteri(s.id, gl.TEXTURE_WRAP_S, glAddressMode(desc.AddressU))
	gl.SamplerParameteri(s.id, gl.TEXTURE_WRAP_T, glAddressMode(desc.AddressV))
	gl.SamplerParameteri(s.id, gl.TEXTURE_WRAP_R, glAddressMode(desc.AddressW))
	return s, nil
}

func (s *glSamplerState) Label() string { return s.label }

type glDepthStencilState struct {
	desc graphics.DepthStencilDesc
}

func (s *glDepthStencilState) Label() string { return s.desc.Label }

func (s *glDepthStencilState) apply() {
	if s.desc.CompareFunc == graphics.CompareFuncAlways && !s.desc.DepthWriteEnabled {
		gl.Disable(gl.DEPTH_TEST)
		return
	}
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(glCompareFunc(s.desc.CompareFunc))
	gl.DepthMask(s.desc.DepthWriteEnabled)
}

type glVertexInputState struct {
	desc graphics.VertexInputDesc
}

func (s *glVertexInputState) Label() string { return s.desc.Label }

type glFramebuffer struct {
	id    uint32
	color graphics.Texture
	depth graphics.Texture
	label string
	// The default framebuffer binds id 0.
	backbuffer bool
}

func newGLFramebuffer(desc graphics.FramebufferDesc) (*glFramebuffer, error) {
	fb := &glFramebuffer{color: desc.ColorAttachment, depth: desc.DepthAttachment, label: desc.Label}

	if _, ok := desc.ColorAttachment.(*backbufferTexture); ok {
		fb.backbuffer = true
		return fb, nil
	}

	gl.GenFramebuffers(1, &fb.id)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.id)
	if color, ok := desc.ColorAttachment.(*glTexture); ok {
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, color.id, 0)
	}
	if depth, ok := desc.DepthAttachment.(*glTexture); ok {
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, depth.id, 0)
	}
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		gl.DeleteFramebuffers(1, &fb.id)
		return nil, graphics.NewResult(graphics.ArgumentInvalid, "framebuffer incomplete: 0x%x", status)
	}
	return fb, nil
}

func (fb *glFramebuffer) ColorAttachment() graphics.Texture { return fb.color }
func (fb *glFramebuffer) DepthAttachment() graphics.Texture { return fb.depth }
func (fb *glFramebuffer) Label() string                     { return fb.label }

func (fb *glFramebuffer) bind() {
	if fb.backbuffer {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		return
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb.id)
}

func asGLModule(m graphics.ShaderModule) (*glShaderModule, error) {
	if m == nil {
		return nil, nil
	}
	gm, ok := m.(*glShaderModule)
	if !ok {
		return nil, graphics.NewResult(graphics.ArgumentInvalid, "shader module was not created by this device")
	}
	return gm, nil
}

func glTextureFormat(f graphics.TextureFormat) (internal int32, format, typ uint32, ok bool) {
	switch f {
	case graphics.TextureFormatRGBA8UNorm:
		return gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE, true
	case graphics.TextureFormatBGRA8UNorm:
		return gl.RGBA8, gl.BGRA, gl.UNSIGNED_BYTE, true
	case graphics.TextureFormatRGBA8SRGB:
		return gl.SRGB8_ALPHA8, gl.RGBA, gl.UNSIGNED_BYTE, true
	case graphics.TextureFormatR8UNorm:
		return gl.R8, gl.RED, gl.UNSIGNED_BYTE, true
	case graphics.TextureFormatRG8UNorm:
		return gl.RG8, gl.RG, gl.UNSIGNED_BYTE, true
	case graphics.TextureFormatRGBA16Float:
		return gl.RGBA16F, gl.RGBA, gl.HALF_FLOAT, true
	case graphics.TextureFormatRGBA32Float:
		return gl.RGBA32F, gl.RGBA, gl.FLOAT, true
	case graphics.TextureFormatZ24UNormS8UInt:
		return gl.DEPTH24_STENCIL8, gl.DEPTH_STENCIL, gl.UNSIGNED_INT_24_8, true
	case graphics.TextureFormatZ32Float:
		return gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT, true
	}
	return 0, 0, 0, false
}

func glFilter(f graphics.SamplerFilter) int32 {
	if f == graphics.SamplerFilterLinear {
		return gl.LINEAR
	}
	return gl.NEAREST
}

func glAddressMode(m graphics.SamplerAddressMode) int32 {
	switch m {
	case graphics.SamplerAddressClamp:
		return gl.CLAMP_TO_EDGE
	case graphics.SamplerAddressMirror:
		return gl.MIRRORED_REPEAT
	}
	return gl.REPEAT
}

func glCompareFunc(f graphics.CompareFunc) uint32 {
	switch f {
	case graphics.CompareFuncNever:
		return gl.NEVER
	case graphics.CompareFuncLess:
		return gl.LESS
	case graphics.CompareFuncEqual:
		return gl.EQUAL
	case graphics.CompareFuncLessEqual:
		return gl.LEQUAL
	case graphics.CompareFuncGreater:
		return gl.GREATER
	case graphics.CompareFuncNotEqual:
		return gl.NOTEQUAL
	case graphics.CompareFuncGreaterEqual:
		return gl.GEQUAL
	}
	return gl.ALWAYS
}
