//go:build !sdl2

package sdl2

import (
	"errors"

	"github.com/valerio/jeebie-host/jeebie/backend"
	"github.com/valerio/jeebie-host/jeebie/timing"
	"github.com/valerio/jeebie-host/jeebie/video"
)

// ErrUnavailable is returned when the binary was built without SDL2.
var ErrUnavailable = errors.New("SDL2 backend not available - build with -tags sdl2 to enable")

// Backend stub for when SDL2 is not available
type Backend struct{}

// New creates a stub SDL2 backend that returns an error
func New(refreshHz float64) *Backend {
	return &Backend{}
}

// Init returns an error indicating SDL2 is not available
func (s *Backend) Init(config backend.BackendConfig) error {
	return ErrUnavailable
}

func (s *Backend) Surface(name string) (video.Surface, error) {
	return nil, ErrUnavailable
}

func (s *Backend) Poll() error {
	return ErrUnavailable
}

func (s *Backend) Refresher() timing.Refresher {
	return nil
}

// Cleanup does nothing
func (s *Backend) Cleanup() error {
	return nil
}
