package shell

import (
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/graphics"
	"github.com/spaghettifunk/prism/engine/graphics/opengl"
	"github.com/spaghettifunk/prism/engine/graphics/vulkan"
	"github.com/spaghettifunk/prism/engine/platform"
)

// surfaceDevice is the slice of the backend device the frame loop needs on
// top of graphics.Device. The windowed backends implement it.
type surfaceDevice interface {
	graphics.Device
	CurrentSurfaceTextures() graphics.SurfaceTextures
}

type resizableDevice interface {
	Resize(width, height uint32)
}

// Shell owns the window, the device and the frame loop, and drives one
// Session.
type Shell struct {
	config   Config
	platform *platform.Platform
	device   surfaceDevice
	session  Session
	watcher  *ShaderWatcher
	clock    *core.Clock

	isRunning   bool
	isSuspended bool
}

func New(cfg Config, session Session) (*Shell, error) {
	if session == nil {
		return nil, graphics.NewResult(graphics.ArgumentNull, "session must not be nil")
	}
	core.SetLogLevel(core.LogLevel(cfg.LogLevel))

	backend, err := cfg.BackendType()
	if err != nil {
		return nil, err
	}

	p, err := platform.New()
	if err != nil {
		return nil, err
	}
	if err := p.Startup(cfg.Window.Title, backend, cfg.Window.X, cfg.Window.Y, cfg.Window.Width, cfg.Window.Height); err != nil {
		return nil, err
	}

	device, err := createDevice(cfg, backend, p)
	if err != nil {
		p.Shutdown()
		return nil, err
	}

	s := &Shell{
		config:    cfg,
		platform:  p,
		device:    device,
		session:   session,
		clock:     core.NewClock(),
		isRunning: true,
	}

	p.OnResize = s.onResized

	if cfg.ShaderDir != "" {
		watcher, err := NewShaderWatcher(cfg.ShaderDir)
		if err != nil {
			core.LogWarn("shader watcher disabled: %v", err)
		} else {
			s.watcher = watcher
		}
	}

	if err := core.MetricsInitialize(); err != nil {
		return nil, err
	}

	if err := session.Initialize(device); err != nil {
		s.Shutdown()
		return nil, err
	}
	return s, nil
}

func createDevice(cfg Config, backend graphics.BackendType, p *platform.Platform) (surfaceDevice, error) {
	switch backend {
	case graphics.BackendVulkan:
		querier := &vulkan.Querier{AppName: cfg.Window.Title, Window: p.Window}
		descs, err := querier.QueryDevices()
		if err != nil {
			return nil, err
		}
		desc := descs[0]
		if cfg.Graphics.PreferredAdapter >= 0 && int(cfg.Graphics.PreferredAdapter) < len(descs) {
			desc = descs[cfg.Graphics.PreferredAdapter]
		}
		core.LogInfo("using adapter %s (%s)", desc.Name, desc.Backend)
		device, err := querier.Create(desc, cfg.DeviceConfig())
		if err != nil {
			return nil, err
		}
		return device.(surfaceDevice), nil
	case graphics.BackendOpenGL:
		querier := &opengl.Querier{Window: p.Window}
		descs, err := querier.QueryDevices()
		if err != nil {
			return nil, err
		}
		device, err := querier.Create(descs[0], cfg.DeviceConfig())
		if err != nil {
			return nil, err
		}
		return device.(surfaceDevice), nil
	default:
		// Metal and D3D12 need a native driver bound by the hosting
		// platform layer; the desktop shell only builds the GLFW backends.
		return nil, graphics.NewResult(graphics.Unsupported, "backend %s is not available in the desktop shell", backend)
	}
}

func (s *Shell) Device() graphics.Device {
	return s.device
}

// Run drives the frame loop until the window closes or the session fails.
func (s *Shell) Run() error {
	s.clock.Start()

	for s.isRunning {
		s.platform.PumpMessages()
		if s.platform.ShouldClose() {
			s.isRunning = false
			break
		}

		s.drainShaderChanges()

		if s.isSuspended {
			continue
		}

		delta := s.clock.Tick()

		surface := s.device.CurrentSurfaceTextures()
		if surface.Color == nil {
			// Swapchain is out of date or the window is minimized; skip
			// the frame and let the next acquire recreate it.
			continue
		}

		if err := s.session.Update(surface, delta); err != nil {
			core.LogError("session update failed, shutting down: %v", err)
			s.isRunning = false
			return err
		}

		core.MetricsUpdate(delta)
	}
	return nil
}

func (s *Shell) drainShaderChanges() {
	if s.watcher == nil {
		return
	}
	reloader, ok := s.session.(ShaderReloader)
	for {
		select {
		case path := <-s.watcher.Changed():
			if ok {
				reloader.OnShaderChanged(path)
			}
		default:
			return
		}
	}
}

func (s *Shell) onResized(width, height uint32) {
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending frame loop.")
		s.isSuspended = true
		return
	}
	if s.isSuspended {
		core.LogInfo("Window restored, resuming frame loop.")
		s.isSuspended = false
	}
	if rd, isResizable := s.device.(resizableDevice); isResizable {
		rd.Resize(width, height)
	}
	s.session.Resize(width, height)
}

func (s *Shell) Shutdown() {
	if s.watcher != nil {
		s.watcher.Close()
	}
	if s.session != nil {
		s.session.Shutdown()
	}
	if s.device != nil {
		s.device.Destroy()
	}
	if s.platform != nil {
		s.platform.Shutdown()
	}
}
