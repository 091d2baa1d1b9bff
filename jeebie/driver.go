// Package jeebie hosts an execution core: it paces ticks against a backend's
// refresh callbacks, forwards keyboard input and presents the core's output
// buffers on the backend's surfaces.
package jeebie

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/valerio/jeebie-host/jeebie/backend"
	"github.com/valerio/jeebie-host/jeebie/core"
	"github.com/valerio/jeebie-host/jeebie/display"
	"github.com/valerio/jeebie-host/jeebie/input"
	"github.com/valerio/jeebie-host/jeebie/scheduler"
	"github.com/valerio/jeebie-host/jeebie/throttle"
	"github.com/valerio/jeebie-host/jeebie/video"
)

// ErrQuit is returned by Frame once the backend asked to shut down.
var ErrQuit = errors.New("quit requested")

// Options configures a Driver.
type Options struct {
	Title    string
	Scale    int
	Slowdown int  // initial slowdown, clamped to the throttle's range
	Tiles    bool // also present the tile view when the core has one
	Logger   *slog.Logger
}

// Driver runs one core on one backend. It is not safe for concurrent use:
// Frame and Run must be called from a single goroutine.
type Driver struct {
	core      core.Core
	backend   backend.Backend
	throttle  *throttle.Controller
	forwarder *input.Forwarder
	scheduler *scheduler.Scheduler
	logger    *slog.Logger
	outputs   []backend.Output

	quit   bool
	closed bool
}

// New wires core to backend and initialises the backend. The caller owns the
// core; Close releases only the backend.
func New(c core.Core, b backend.Backend, opts Options) (*Driver, error) {
	d := &Driver{
		core:      c,
		backend:   b,
		throttle:  throttle.New(opts.Slowdown),
		forwarder: input.NewForwarder(c),
	}

	// resolved again after Init, a backend may have installed its own default handler
	logger := func() *slog.Logger {
		if opts.Logger != nil {
			return opts.Logger
		}
		return slog.Default()
	}
	d.logger = logger()

	d.outputs = []backend.Output{{Name: display.ScreenSurface, Geometry: display.Screen}}
	if opts.Tiles {
		if _, err := c.Tileset(); errors.Is(err, core.ErrNoBuffer) {
			d.logger.Info("Core has no tile view, presenting the screen only")
		} else {
			d.outputs = append(d.outputs, backend.Output{Name: display.TilesSurface, Geometry: display.Tiles})
		}
	}

	err := b.Init(backend.BackendConfig{
		Title:    opts.Title,
		Scale:    opts.Scale,
		Outputs:  d.outputs,
		Slowdown: d.throttle.Slowdown(),
		Callbacks: backend.BackendCallbacks{
			OnKeyDown:       d.forwarder.KeyDown,
			OnKeyUp:         d.forwarder.KeyUp,
			OnSlowdown:      func(n int) { d.throttle.SetSlowdown(n) },
			OnSlowdownNudge: d.throttle.Nudge,
			OnQuit:          func() { d.quit = true },
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize backend: %w", err)
	}

	d.logger = logger()

	sched := make([]scheduler.Output, 0, len(d.outputs))
	for _, out := range d.outputs {
		s, err := b.Surface(out.Name)
		if err != nil {
			_ = b.Cleanup()
			return nil, fmt.Errorf("failed to get %s surface: %w", out.Name, err)
		}
		locate := core.LocateFramebuffer
		if out.Name == display.TilesSurface {
			locate = core.LocateTileset
		}
		sched = append(sched, scheduler.Output{Locate: locate, Presenter: video.NewPresenter(out.Geometry, s)})
	}
	d.scheduler = scheduler.New(c, d.throttle, sched, d.logger)

	d.logger.Info("Driver ready", "outputs", len(d.outputs), "slowdown", d.throttle.Slowdown())
	return d, nil
}

// Frame handles one host refresh: it dispatches pending backend events, then
// runs one scheduler step. It returns ErrQuit once shutdown was requested and
// the scheduler's error once it halted.
func (d *Driver) Frame() error {
	if err := d.backend.Poll(); err != nil {
		return fmt.Errorf("poll backend: %w", err)
	}
	if d.quit {
		return ErrQuit
	}
	return d.scheduler.Step()
}

// Run calls Frame on every refresh until ctx is cancelled, the backend asks
// to quit or the scheduler halts. Only a halt is returned as an error.
func (d *Driver) Run(ctx context.Context) error {
	refresh := d.backend.Refresher()
	if refresh == nil {
		return errors.New("backend provides no refresher")
	}

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Stopping driver", "reason", context.Cause(ctx))
			return nil
		case <-refresh.C():
			err := d.Frame()
			if errors.Is(err, ErrQuit) {
				return nil
			}
			if err != nil {
				return err
			}
		}
	}
}

// Close cleans up the backend and logs the run statistics. It is safe to
// call more than once.
func (d *Driver) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	stats := d.scheduler.Stats()
	d.logger.Info("Driver stopped",
		"callbacks", stats.Callbacks,
		"ticks", stats.Ticks,
		"presents", stats.Presents,
		"keys", d.forwarder.Forwarded(),
		"halted", d.scheduler.Halted())
	return d.backend.Cleanup()
}

// Stats returns the scheduler counters.
func (d *Driver) Stats() scheduler.Stats {
	return d.scheduler.Stats()
}

// Throttle exposes the slowdown controller.
func (d *Driver) Throttle() *throttle.Controller {
	return d.throttle
}

// Outputs returns the surfaces the driver presents to, in order.
func (d *Driver) Outputs() []backend.Output {
	return d.outputs
}

// Err returns the error that halted the frame loop, if any.
func (d *Driver) Err() error {
	return d.scheduler.Err()
}
