// Package input forwards host keyboard events to the execution core.
package input

import "log/slog"

// Injector is the key-event half of the core interface.
type Injector interface {
	KeyDown(code string) error
	KeyUp(code string) error
}

// Forwarder passes every key event to the core as it arrives: no debouncing,
// no repeat suppression, no filtering of unmapped keys. Backends call it from
// the driver's run loop so injections never overlap a frame.
type Forwarder struct {
	core      Injector
	forwarded uint64
}

// NewForwarder creates a forwarder bound to one core for its whole lifetime.
func NewForwarder(core Injector) *Forwarder {
	return &Forwarder{core: core}
}

// KeyDown forwards a key press, including auto-repeat presses.
func (f *Forwarder) KeyDown(code string) {
	f.forwarded++
	if err := f.core.KeyDown(code); err != nil {
		slog.Warn("Key down injection failed", "code", code, "error", err)
	}
}

// KeyUp forwards a key release.
func (f *Forwarder) KeyUp(code string) {
	f.forwarded++
	if err := f.core.KeyUp(code); err != nil {
		slog.Warn("Key up injection failed", "code", code, "error", err)
	}
}

// Forwarded returns the number of events passed to the core.
func (f *Forwarder) Forwarded() uint64 {
	return f.forwarded
}
