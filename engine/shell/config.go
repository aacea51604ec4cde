package shell

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/graphics"
)

// Config is the shell's toml configuration.
type Config struct {
	Window struct {
		Title  string `toml:"title"`
		X      uint32 `toml:"x"`
		Y      uint32 `toml:"y"`
		Width  uint32 `toml:"width"`
		Height uint32 `toml:"height"`
	} `toml:"window"`

	Graphics struct {
		// vulkan, opengl, metal or d3d12.
		Backend           string `toml:"backend"`
		EnableDebugLayer  bool   `toml:"enable_debug_layer"`
		VSync             bool   `toml:"vsync"`
		MaxFramesInFlight uint32 `toml:"max_frames_in_flight"`
		// Adapter index from QueryDevices; -1 lets the backend pick.
		PreferredAdapter int32 `toml:"preferred_adapter"`
	} `toml:"graphics"`

	// Directory watched for shader hot-reload. Empty disables the watcher.
	ShaderDir string `toml:"shader_dir"`

	LogLevel string `toml:"log_level"`
}

func DefaultConfig() Config {
	var cfg Config
	cfg.Window.Title = "Prism"
	cfg.Window.X = 100
	cfg.Window.Y = 100
	cfg.Window.Width = 1280
	cfg.Window.Height = 720
	cfg.Graphics.Backend = "vulkan"
	cfg.Graphics.VSync = true
	cfg.Graphics.PreferredAdapter = -1
	cfg.LogLevel = "info"
	return cfg
}

// LoadConfig reads a toml file, falling back to defaults when the file does
// not exist.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			core.LogInfo("config %s not found, using defaults", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Window.Width == 0 || cfg.Window.Height == 0 {
		return cfg, graphics.NewResult(graphics.ArgumentOutOfRange, "window dimensions must be positive")
	}
	return cfg, nil
}

func (c Config) BackendType() (graphics.BackendType, error) {
	switch c.Graphics.Backend {
	case "vulkan", "":
		return graphics.BackendVulkan, nil
	case "opengl":
		return graphics.BackendOpenGL, nil
	case "metal":
		return graphics.BackendMetal, nil
	case "d3d12", "directx":
		return graphics.BackendDirectX, nil
	default:
		return 0, graphics.NewResult(graphics.ArgumentInvalid, "unknown backend %q", c.Graphics.Backend)
	}
}

func (c Config) DeviceConfig() graphics.DeviceConfig {
	return graphics.DeviceConfig{
		EnableDebugLayer:  c.Graphics.EnableDebugLayer,
		VSync:             c.Graphics.VSync,
		MaxFramesInFlight: c.Graphics.MaxFramesInFlight,
	}
}
