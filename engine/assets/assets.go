package assets

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/graphics"
)

const headerProbeSize = 16

// LoadTexture probes the container format, decodes the file and uploads it
// into a new device texture.
func LoadTexture(device graphics.Device, registry *graphics.LoaderRegistry, path string) (graphics.Texture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open texture %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	header, err := r.Peek(headerProbeSize)
	if err != nil {
		return nil, fmt.Errorf("read texture header %s: %w", path, err)
	}

	factory, err := registry.Probe(header)
	if err != nil {
		return nil, err
	}
	loader, err := factory.TryCreate(r)
	if err != nil {
		return nil, err
	}

	desc := loader.Desc()
	desc.Label = filepath.Base(path)
	tex, err := device.CreateTexture(desc)
	if err != nil {
		return nil, err
	}
	if err := loader.Upload(tex); err != nil {
		tex.Destroy()
		return nil, err
	}
	core.LogDebug("loaded texture %s (%dx%d)", desc.Label, desc.Width, desc.Height)
	return tex, nil
}
