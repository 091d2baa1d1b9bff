//go:build sdl2

package sdl2

import (
	"fmt"
	"log/slog"

	"github.com/valerio/jeebie-host/jeebie/backend"
	"github.com/valerio/jeebie-host/jeebie/display"
	"github.com/valerio/jeebie-host/jeebie/surface"
	"github.com/valerio/jeebie-host/jeebie/timing"
	"github.com/valerio/jeebie-host/jeebie/video"
	"github.com/veandco/go-sdl2/sdl"
)

// Backend implements the Backend interface using SDL2 bindings, one window
// per output. SDL reports real key releases, so no key expiry is needed.
// Note: building this requires SDL2 development libraries installed.
// Default builds skip this and use a stubbed backend, see build tags (sdl2)
type Backend struct {
	windows   []*window
	config    backend.BackendConfig
	refresher timing.Refresher
	refreshHz float64
}

// New creates a new SDL2 backend refreshing at refreshHz, where zero means
// the native Game Boy rate.
func New(refreshHz float64) *Backend {
	return &Backend{refreshHz: refreshHz}
}

// Init initializes SDL2 and opens a window for every output
func (s *Backend) Init(config backend.BackendConfig) error {
	s.config = config

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return fmt.Errorf("failed to initialize SDL2: %w", err)
	}

	scale := config.Scale
	if scale < 1 {
		scale = display.DefaultPixelScale
	}
	for i, out := range config.Outputs {
		title := config.Title
		if i > 0 {
			title = fmt.Sprintf("%s - %s", config.Title, out.Name)
		}
		// only the first window waits for vsync, the ticker paces the loop
		w, err := newWindow(title, out.Name, out.Geometry, scale, i == 0)
		if err != nil {
			s.Cleanup()
			return err
		}
		s.windows = append(s.windows, w)
	}

	s.refresher = timing.NewTicker(timing.Interval(s.refreshHz))
	slog.Info("SDL2 backend initialized", "windows", len(s.windows), "scale", scale)
	return nil
}

func (s *Backend) Surface(name string) (video.Surface, error) {
	for _, w := range s.windows {
		if w.name == name {
			return w, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", backend.ErrUnknownSurface, name)
}

func (s *Backend) Refresher() timing.Refresher {
	return s.refresher
}

// Poll processes SDL events
func (s *Backend) Poll() error {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		s.handleEvent(event)
	}
	return nil
}

func (s *Backend) handleEvent(event sdl.Event) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		s.config.Callbacks.Quit()

	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_CLOSE {
			s.config.Callbacks.Quit()
		}

	case *sdl.KeyboardEvent:
		sc := uint32(e.Keysym.Scancode)
		if e.Type == sdl.KEYDOWN {
			if s.handleHostKey(hostKeyFor(sc), e.Repeat != 0) {
				return
			}
			if code, ok := ScancodeCode(sc); ok {
				s.config.Callbacks.KeyDown(code)
			}
		} else if e.Type == sdl.KEYUP {
			if hostKeyFor(sc) != hostNone {
				return
			}
			if code, ok := ScancodeCode(sc); ok {
				s.config.Callbacks.KeyUp(code)
			}
		}
	}
}

// handleHostKey reports whether the key was consumed by the backend.
func (s *Backend) handleHostKey(key hostKey, repeat bool) bool {
	switch key {
	case hostQuit:
		s.config.Callbacks.Quit()
	case hostSnapshot:
		if !repeat {
			s.snapshot()
		}
	case hostFaster:
		n := s.config.Callbacks.Nudge(-1)
		slog.Info("Slowdown changed", "slowdown", n)
	case hostSlower:
		n := s.config.Callbacks.Nudge(1)
		slog.Info("Slowdown changed", "slowdown", n)
	default:
		return false
	}
	return true
}

func (s *Backend) snapshot() {
	for _, w := range s.windows {
		if w.last == nil {
			continue
		}
		if _, err := surface.SavePNG(w.last, "jeebie_"+w.name, "", s.config.Scale); err != nil {
			slog.Error("Failed to save snapshot", "surface", w.name, "error", err)
		}
	}
}

// Cleanup cleans up SDL2 resources
func (s *Backend) Cleanup() error {
	slog.Info("Cleaning up SDL2 backend")

	if s.refresher != nil {
		s.refresher.Stop()
	}
	for _, w := range s.windows {
		w.destroy()
	}
	s.windows = nil
	sdl.Quit()
	return nil
}
