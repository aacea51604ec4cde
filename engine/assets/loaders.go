package assets

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/spaghettifunk/prism/engine/graphics"
)

// imageLoader adapts a decoded image.Image to the device upload contract.
// Pixels are converted to tightly-packed RGBA before upload.
type imageLoader struct {
	rgba *image.RGBA
}

func newImageLoader(img image.Image) *imageLoader {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return &imageLoader{rgba: rgba}
}

func (l *imageLoader) Desc() graphics.TextureDesc {
	return graphics.TextureDesc{
		Width:  uint32(l.rgba.Rect.Dx()),
		Height: uint32(l.rgba.Rect.Dy()),
		Format: graphics.TextureFormatRGBA8UNorm,
		Usage:  graphics.TextureUsageSampled,
	}
}

func (l *imageLoader) Upload(tex graphics.Texture) error {
	if tex == nil {
		return graphics.NewResult(graphics.ArgumentNull, "texture must not be nil")
	}
	return tex.Upload(l.rgba.Pix, graphics.TextureRangeDesc{
		Width:  uint32(l.rgba.Rect.Dx()),
		Height: uint32(l.rgba.Rect.Dy()),
	})
}

type decodeFunc func(io.Reader) (image.Image, error)

// containerFactory recognizes one container format by magic bytes and
// decodes it with the matching stdlib/x decoder.
type containerFactory struct {
	magic  []byte
	decode decodeFunc
}

func (f *containerFactory) CanCreate(header []byte) bool {
	return len(header) >= len(f.magic) && bytes.Equal(header[:len(f.magic)], f.magic)
}

func (f *containerFactory) TryCreate(r io.Reader) (graphics.TextureLoader, error) {
	img, err := f.decode(r)
	if err != nil {
		return nil, graphics.NewResult(graphics.RuntimeError, "decode texture container: %v", err)
	}
	return newImageLoader(img), nil
}

// PNGFactory recognizes PNG containers.
func PNGFactory() graphics.TextureLoaderFactory {
	return &containerFactory{
		magic:  []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'},
		decode: png.Decode,
	}
}

// JPEGFactory recognizes JPEG containers.
func JPEGFactory() graphics.TextureLoaderFactory {
	return &containerFactory{
		magic:  []byte{0xff, 0xd8, 0xff},
		decode: jpeg.Decode,
	}
}

// BMPFactory recognizes BMP containers.
func BMPFactory() graphics.TextureLoaderFactory {
	return &containerFactory{
		magic:  []byte{'B', 'M'},
		decode: bmp.Decode,
	}
}

// DefaultRegistry holds the container formats the shell understands.
func DefaultRegistry() *graphics.LoaderRegistry {
	return graphics.NewLoaderRegistry(PNGFactory(), JPEGFactory(), BMPFactory())
}
