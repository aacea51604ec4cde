package graphics

type TextureUsage uint8

const (
	TextureUsageSampled TextureUsage = 1 << iota
	TextureUsageStorage
	TextureUsageAttachment
)

type TextureDesc struct {
	Type      TextureType
	Format    TextureFormat
	Width     uint32
	Height    uint32
	Depth     uint32
	NumLayers uint32
	NumMips   uint32
	Usage     TextureUsage
	Label     string
}

func (d *TextureDesc) Validate() error {
	if d.Width == 0 || d.Height == 0 {
		return NewResult(ArgumentOutOfRange, "texture dimensions must be greater than zero (got %dx%d)", d.Width, d.Height)
	}
	if d.Format == TextureFormatInvalid {
		return NewResult(ArgumentInvalid, "texture format must be set")
	}
	if d.Usage == 0 {
		return NewResult(ArgumentInvalid, "texture usage flags must not be empty")
	}
	if d.Type == TextureType3D && d.Depth == 0 {
		return NewResult(ArgumentOutOfRange, "3D texture depth must be greater than zero")
	}
	return nil
}

// Texture is a GPU image resource. Same ownership rules as Buffer.
type Texture interface {
	// Upload copies pixel data covering the given range. Asynchronous for
	// device-local textures; the staging machinery fences the transfer.
	Upload(data []byte, rng TextureRangeDesc) error
	Dimensions() Dimensions
	Format() TextureFormat
	Label() string
	Destroy()
}

// SurfaceTextures bundles the per-frame drawable surfaces handed to a render
// session. Color may be nil when the swapchain has no image available this
// frame; sessions must skip rendering instead of crashing.
type SurfaceTextures struct {
	Color Texture
	Depth Texture
}
