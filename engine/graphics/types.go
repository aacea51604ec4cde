package graphics

// BackendType selects the native GPU API implementation at device
// construction time.
type BackendType uint8

const (
	BackendVulkan BackendType = iota
	BackendDirectX
	BackendMetal
	BackendOpenGL
)

func (b BackendType) String() string {
	switch b {
	case BackendVulkan:
		return "vulkan"
	case BackendDirectX:
		return "directx"
	case BackendMetal:
		return "metal"
	case BackendOpenGL:
		return "opengl"
	}
	return "unknown"
}

type Dimensions struct {
	Width  uint32
	Height uint32
	Depth  uint32
}

type Viewport struct {
	X        float32
	Y        float32
	Width    float32
	Height   float32
	MinDepth float32
	MaxDepth float32
}

type ScissorRect struct {
	X      uint32
	Y      uint32
	Width  uint32
	Height uint32
}

type Color struct {
	R float32
	G float32
	B float32
	A float32
}

type TextureFormat uint8

const (
	TextureFormatInvalid TextureFormat = iota
	TextureFormatRGBA8UNorm
	TextureFormatBGRA8UNorm
	TextureFormatRGBA8SRGB
	TextureFormatBGRA8SRGB
	TextureFormatR8UNorm
	TextureFormatRG8UNorm
	TextureFormatRGBA16Float
	TextureFormatRGBA32Float
	TextureFormatZ24UNormS8UInt
	TextureFormatZ32Float
)

// BytesPerPixel returns 0 for invalid formats.
func (f TextureFormat) BytesPerPixel() uint32 {
	switch f {
	case TextureFormatR8UNorm:
		return 1
	case TextureFormatRG8UNorm:
		return 2
	case TextureFormatRGBA8UNorm, TextureFormatBGRA8UNorm,
		TextureFormatRGBA8SRGB, TextureFormatBGRA8SRGB,
		TextureFormatZ24UNormS8UInt, TextureFormatZ32Float:
		return 4
	case TextureFormatRGBA16Float:
		return 8
	case TextureFormatRGBA32Float:
		return 16
	}
	return 0
}

func (f TextureFormat) IsDepthOrStencil() bool {
	return f == TextureFormatZ24UNormS8UInt || f == TextureFormatZ32Float
}

type TextureType uint8

const (
	TextureType2D TextureType = iota
	TextureType2DArray
	TextureType3D
	TextureTypeCube
)

// TextureRangeDesc addresses a sub-region of a texture for uploads.
type TextureRangeDesc struct {
	X         uint32
	Y         uint32
	Z         uint32
	Width     uint32
	Height    uint32
	Depth     uint32
	Layer     uint32
	NumLayers uint32
	MipLevel  uint32
}

type IndexFormat uint8

const (
	IndexFormatUInt16 IndexFormat = iota
	IndexFormatUInt32
)

type PrimitiveType uint8

const (
	PrimitiveTriangle PrimitiveType = iota
	PrimitiveTriangleStrip
	PrimitiveLine
	PrimitiveLineStrip
	PrimitivePoint
)

type LoadAction uint8

const (
	LoadActionDontCare LoadAction = iota
	LoadActionLoad
	LoadActionClear
)

type StoreAction uint8

const (
	StoreActionDontCare StoreAction = iota
	StoreActionStore
)

// RenderPassDesc configures the attachments of a render encoder.
type RenderPassDesc struct {
	ColorLoadAction   LoadAction
	ColorStoreAction  StoreAction
	ClearColor        Color
	DepthLoadAction   LoadAction
	DepthStoreAction  StoreAction
	ClearDepth        float32
	StencilLoadAction LoadAction
	ClearStencil      uint32
}
