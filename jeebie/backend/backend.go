package backend

import (
	"errors"

	"github.com/valerio/jeebie-host/jeebie/display"
	"github.com/valerio/jeebie-host/jeebie/timing"
	"github.com/valerio/jeebie-host/jeebie/video"
)

// ErrUnknownSurface is returned by Surface for a name that was not configured.
var ErrUnknownSurface = errors.New("unknown surface")

// Backend represents a host platform (display + input + refresh source).
// Backends are responsible for:
// - Creating one surface per configured output and showing presented images
// - Translating platform key events into key codes for the callbacks
// - Providing the refresher whose ticks pace the frame loop
//
// All methods are called from the driver's goroutine. Backends that receive
// events on other goroutines queue them and dispatch the callbacks from Poll.
type Backend interface {
	// Init configures the backend with the provided configuration.
	// This is a required step before calling any other method.
	Init(config BackendConfig) error

	// Surface returns the surface created for the named output.
	Surface(name string) (video.Surface, error)

	// Poll dispatches pending platform events through the callbacks.
	Poll() error

	// Refresher returns the source of host refresh callbacks.
	Refresher() timing.Refresher

	// Cleanup resources when shutting down
	Cleanup() error
}

// Output names a surface and the geometry of the images it will receive.
type Output struct {
	Name     string
	Geometry display.Geometry
}

// BackendConfig holds configuration for backends
type BackendConfig struct {
	Title     string
	Scale     int
	Outputs   []Output         // surfaces to create, in presentation order
	Slowdown  int              // initial throttle value, for backends that show it
	Callbacks BackendCallbacks // Callbacks for backend communication
}

// BackendCallbacks allows backends to communicate with the driver.
// Any callback may be nil.
type BackendCallbacks struct {
	// Input callbacks, key codes follow the DOM KeyboardEvent.code naming
	OnKeyDown func(code string)
	OnKeyUp   func(code string)

	// Throttle callbacks
	OnSlowdown      func(n int)         // set an absolute slowdown
	OnSlowdownNudge func(delta int) int // adjust by delta, returns the new value

	// Control callbacks
	OnQuit func() // Backend requests shutdown (e.g., window close)
}

// KeyDown invokes OnKeyDown when set.
func (c BackendCallbacks) KeyDown(code string) {
	if c.OnKeyDown != nil {
		c.OnKeyDown(code)
	}
}

// KeyUp invokes OnKeyUp when set.
func (c BackendCallbacks) KeyUp(code string) {
	if c.OnKeyUp != nil {
		c.OnKeyUp(code)
	}
}

// Slowdown invokes OnSlowdown when set.
func (c BackendCallbacks) Slowdown(n int) {
	if c.OnSlowdown != nil {
		c.OnSlowdown(n)
	}
}

// Nudge invokes OnSlowdownNudge when set and returns its result, or zero.
func (c BackendCallbacks) Nudge(delta int) int {
	if c.OnSlowdownNudge != nil {
		return c.OnSlowdownNudge(delta)
	}
	return 0
}

// Quit invokes OnQuit when set.
func (c BackendCallbacks) Quit() {
	if c.OnQuit != nil {
		c.OnQuit()
	}
}

// HasOutput reports whether the config asks for the named surface.
func (c BackendConfig) HasOutput(name string) bool {
	for _, o := range c.Outputs {
		if o.Name == name {
			return true
		}
	}
	return false
}
