// Package throttle holds the user-controlled emulation slowdown factor.
package throttle

import "log/slog"

const (
	// MinSlowdown ticks the core on every refresh callback.
	MinSlowdown = 1
	// MaxSlowdown bounds Nudge, the stepwise control used by keyboard hosts.
	MaxSlowdown = 60
)

// Controller holds the slowdown factor: the core ticks on one refresh
// callback out of every Slowdown().
//
// It is a plain single-writer, single-reader cell. The driver reads and writes
// it from the run loop goroutine only, so no locking is done.
type Controller struct {
	factor int
}

// New creates a controller with the given initial factor, clamped to MinSlowdown.
func New(initial int) *Controller {
	c := &Controller{factor: MinSlowdown}
	c.SetSlowdown(initial)
	return c
}

// Slowdown returns the current factor. It is always >= MinSlowdown.
func (c *Controller) Slowdown() int {
	return c.factor
}

// SetSlowdown replaces the factor and returns the value applied. Values below
// MinSlowdown would make the tick condition a modulo by zero and are clamped.
func (c *Controller) SetSlowdown(n int) int {
	if n < MinSlowdown {
		slog.Warn("Slowdown factor out of range, clamping", "requested", n, "applied", MinSlowdown)
		n = MinSlowdown
	}
	if n != c.factor {
		slog.Debug("Slowdown changed", "from", c.factor, "to", n)
	}
	c.factor = n
	return n
}

// Nudge moves the factor by delta within [MinSlowdown, MaxSlowdown] and
// returns the new value.
func (c *Controller) Nudge(delta int) int {
	n := c.factor + delta
	if n > MaxSlowdown {
		n = MaxSlowdown
	}
	if n < MinSlowdown {
		n = MinSlowdown
	}
	return c.SetSlowdown(n)
}
