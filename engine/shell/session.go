package shell

import (
	"github.com/spaghettifunk/prism/engine/graphics"
)

// Session is one render application hosted by the shell. Initialize runs
// once after device creation; Update runs once per frame with the surface
// textures to draw into.
type Session interface {
	Initialize(device graphics.Device) error
	Update(surface graphics.SurfaceTextures, deltaTime float64) error
	Resize(width, height uint32)
	Shutdown()
}

// ShaderReloader is implemented by sessions that rebuild pipelines when a
// watched shader file changes.
type ShaderReloader interface {
	OnShaderChanged(path string)
}
