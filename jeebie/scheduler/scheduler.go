// Package scheduler implements the frame-paced loop body: one Step per host
// refresh callback, ticking the core on every Nth callback and moving each
// output buffer from shared memory to its surface.
package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/valerio/jeebie-host/jeebie/core"
	"github.com/valerio/jeebie-host/jeebie/throttle"
	"github.com/valerio/jeebie-host/jeebie/video"
	"github.com/valerio/jeebie-host/jeebie/view"
)

// Output binds one core buffer to the presenter of its surface.
type Output struct {
	Locate    core.Locator
	Presenter *video.Presenter
}

// Stats counts what the scheduler has done so far.
type Stats struct {
	Callbacks uint64 // scheduled callbacks seen
	Ticks     uint64 // tick frames executed
	Presents  uint64 // images handed to surfaces
}

// Scheduler drives a core from host refresh callbacks.
//
// A Scheduler is not safe for concurrent use; the caller serialises Step with
// every other access to the core.
type Scheduler struct {
	core     core.Core
	throttle *throttle.Controller
	outputs  []Output
	logger   *slog.Logger

	counter uint64
	stats   Stats
	err     error
}

// New creates a scheduler for core. Outputs are extracted and presented in
// order on every tick frame.
func New(c core.Core, t *throttle.Controller, outputs []Output, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		core:     c,
		throttle: t,
		outputs:  outputs,
		logger:   logger,
	}
}

// Step handles one host refresh callback. It returns a non-nil error only
// when the scheduler has halted; the caller must then stop scheduling.
func (s *Scheduler) Step() error {
	if s.err != nil {
		return s.err
	}

	s.counter++
	s.stats.Callbacks++

	// read once per callback, so a throttle change applies from the next one
	if s.counter%uint64(s.throttle.Slowdown()) != 0 {
		return nil
	}

	if err := s.tick(); err != nil {
		s.halt(err)
		return s.err
	}
	return nil
}

func (s *Scheduler) tick() error {
	if err := s.core.Tick(); err != nil {
		return fmt.Errorf("core tick: %w", err)
	}
	s.stats.Ticks++

	for _, out := range s.outputs {
		desc, err := out.Locate(s.core)
		if err != nil {
			return fmt.Errorf("locate %s buffer: %w", out.Presenter.Name(), err)
		}
		// the region is fetched again every frame, the core may have replaced it
		if err := view.Scope(s.core.Memory(), desc, out.Presenter.Present); err != nil {
			return fmt.Errorf("present %s: %w", out.Presenter.Name(), err)
		}
		s.stats.Presents++
	}
	return nil
}

func (s *Scheduler) halt(err error) {
	s.err = fmt.Errorf("frame %d: %w", s.counter, err)
	s.logger.Error("Frame loop halted", "frame", s.counter, "error", err)
}

// Halted reports whether a fatal error stopped the scheduler.
func (s *Scheduler) Halted() bool {
	return s.err != nil
}

// Err returns the fatal error, or nil while running.
func (s *Scheduler) Err() error {
	return s.err
}

// Counter returns the number of callbacks handled.
func (s *Scheduler) Counter() uint64 {
	return s.counter
}

// Stats returns the running counters.
func (s *Scheduler) Stats() Stats {
	return s.stats
}
