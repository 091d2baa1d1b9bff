// Package timing provides the refresh cadence that drives the frame loop.
package timing

import "time"

// Refresher delivers one value per host display refresh. It is the Go form
// of a per-refresh callback registration: the run loop waits on C once per
// iteration and runs a frame for every value received.
type Refresher interface {
	C() <-chan time.Time

	// Stop ends delivery; no further values are sent after it returns.
	Stop()
}

// Constants for Game Boy timing
const (
	CyclesPerFrame = 70224
	CPUFrequency   = 4194304

	// DefaultRefreshRate is the display refresh assumed for desktop hosts.
	DefaultRefreshRate = 60.0
)

// TargetFPS calculates the exact Game Boy frame rate.
func TargetFPS() float64 {
	return float64(CPUFrequency) / float64(CyclesPerFrame)
}

// FrameDuration returns the target duration of a single Game Boy frame.
func FrameDuration() time.Duration {
	return time.Duration(float64(time.Second) / TargetFPS())
}

// Interval returns the period of a refresh rate in Hz. A non-positive rate
// selects the native Game Boy frame rate.
func Interval(hz float64) time.Duration {
	if hz <= 0 {
		return FrameDuration()
	}
	return time.Duration(float64(time.Second) / hz)
}

// Ticker uses time.Ticker for simple, consistent refresh timing.
type Ticker struct {
	ticker *time.Ticker
}

// NewTicker creates a refresher firing every d.
func NewTicker(d time.Duration) *Ticker {
	return &Ticker{ticker: time.NewTicker(d)}
}

func (t *Ticker) C() <-chan time.Time {
	return t.ticker.C
}

func (t *Ticker) Stop() {
	t.ticker.Stop()
}

// NewUnthrottled returns a refresher that never waits, for headless runs.
func NewUnthrottled() Refresher {
	ch := make(chan time.Time)
	close(ch)
	return &unthrottled{ch: ch}
}

type unthrottled struct {
	ch chan time.Time
}

func (u *unthrottled) C() <-chan time.Time { return u.ch }
func (u *unthrottled) Stop()               {}
