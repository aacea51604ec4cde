package shell

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/graphics"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, "Prism", cfg.Window.Title)
	assert.Equal(t, uint32(1280), cfg.Window.Width)
	assert.Equal(t, "vulkan", cfg.Graphics.Backend)
	assert.True(t, cfg.Graphics.VSync)
	assert.Equal(t, int32(-1), cfg.Graphics.PreferredAdapter)
}

func TestLoadConfigParsesToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prism.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"
shader_dir = "assets/shaders"

[window]
title = "demo"
width = 800
height = 600

[graphics]
backend = "opengl"
vsync = false
enable_debug_layer = true
max_frames_in_flight = 2
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Window.Title)
	assert.Equal(t, uint32(800), cfg.Window.Width)
	assert.Equal(t, uint32(600), cfg.Window.Height)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "assets/shaders", cfg.ShaderDir)

	dc := cfg.DeviceConfig()
	assert.True(t, dc.EnableDebugLayer)
	assert.False(t, dc.VSync)
	assert.Equal(t, uint32(2), dc.MaxFramesInFlight)
}

func TestLoadConfigRejectsZeroDimensions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prism.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[window]
width = 0
height = 600
`), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Equal(t, graphics.ArgumentOutOfRange, graphics.CodeOf(err))
}

func TestLoadConfigRejectsMalformedToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prism.toml")
	require.NoError(t, os.WriteFile(path, []byte("[window\nwidth="), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigBackendType(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		want    graphics.BackendType
		wantErr bool
	}{
		{name: "vulkan", backend: "vulkan", want: graphics.BackendVulkan},
		{name: "empty defaults to vulkan", backend: "", want: graphics.BackendVulkan},
		{name: "opengl", backend: "opengl", want: graphics.BackendOpenGL},
		{name: "metal", backend: "metal", want: graphics.BackendMetal},
		{name: "d3d12", backend: "d3d12", want: graphics.BackendDirectX},
		{name: "directx alias", backend: "directx", want: graphics.BackendDirectX},
		{name: "unknown", backend: "glide", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Graphics.Backend = tt.backend
			got, err := cfg.BackendType()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, graphics.ArgumentInvalid, graphics.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
