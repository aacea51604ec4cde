package assets

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/graphics"
)

type captureTexture struct {
	data []byte
	rng  graphics.TextureRangeDesc
}

func (c *captureTexture) Upload(data []byte, rng graphics.TextureRangeDesc) error {
	c.data = append([]byte(nil), data...)
	c.rng = rng
	return nil
}
func (c *captureTexture) Dimensions() graphics.Dimensions { return graphics.Dimensions{} }
func (c *captureTexture) Format() graphics.TextureFormat  { return graphics.TextureFormatRGBA8UNorm }
func (c *captureTexture) Label() string                   { return "" }
func (c *captureTexture) Destroy()                        {}

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDefaultRegistryRecognizesContainers(t *testing.T) {
	registry := DefaultRegistry()

	tests := []struct {
		name   string
		header []byte
		ok     bool
	}{
		{name: "png", header: []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, ok: true},
		{name: "jpeg", header: []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0, 0, 0}, ok: true},
		{name: "bmp", header: []byte{'B', 'M', 0, 0, 0, 0, 0, 0}, ok: true},
		{name: "ktx is not wired", header: []byte{0xab, 'K', 'T', 'X', ' ', '1', '1', 0xbb}, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.Probe(tt.header)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, graphics.Unsupported, graphics.CodeOf(err))
			}
		})
	}
}

func TestPNGLoaderDecodesAndUploads(t *testing.T) {
	encoded := encodeTestPNG(t, 4, 2)
	registry := DefaultRegistry()

	factory, err := registry.Probe(encoded[:16])
	require.NoError(t, err)

	loader, err := factory.TryCreate(bytes.NewReader(encoded))
	require.NoError(t, err)

	desc := loader.Desc()
	assert.Equal(t, uint32(4), desc.Width)
	assert.Equal(t, uint32(2), desc.Height)
	assert.Equal(t, graphics.TextureFormatRGBA8UNorm, desc.Format)

	tex := &captureTexture{}
	require.NoError(t, loader.Upload(tex))
	assert.Equal(t, uint32(4), tex.rng.Width)
	assert.Equal(t, uint32(2), tex.rng.Height)
	require.Len(t, tex.data, 4*2*4)
	// Pixel (1,1): R=x, G=y, B=0x80, A=0xff.
	offset := (1*4 + 1) * 4
	assert.Equal(t, []byte{0x01, 0x01, 0x80, 0xff}, tex.data[offset:offset+4])
}

func TestPNGLoaderRejectsTruncatedContainer(t *testing.T) {
	encoded := encodeTestPNG(t, 4, 4)
	factory, err := DefaultRegistry().Probe(encoded[:16])
	require.NoError(t, err)

	_, err = factory.TryCreate(bytes.NewReader(encoded[:20]))
	require.Error(t, err)
	assert.Equal(t, graphics.RuntimeError, graphics.CodeOf(err))
}

func TestImageLoaderUploadRequiresTexture(t *testing.T) {
	loader := newImageLoader(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	err := loader.Upload(nil)
	require.Error(t, err)
	assert.Equal(t, graphics.ArgumentNull, graphics.CodeOf(err))
}
