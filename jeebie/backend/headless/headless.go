package headless

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/valerio/jeebie-host/jeebie/backend"
	"github.com/valerio/jeebie-host/jeebie/surface"
	"github.com/valerio/jeebie-host/jeebie/timing"
	"github.com/valerio/jeebie-host/jeebie/video"
)

// Backend implements the Backend interface for automated testing and batch processing.
// Surfaces keep the last image in memory and optionally save periodic PNG snapshots.
type Backend struct {
	config         backend.BackendConfig
	frameCount     int
	maxFrames      int
	snapshotConfig SnapshotConfig
	refresher      timing.Refresher

	canvases  map[string]*surface.Canvas
	snapshots map[string]*surface.Snapshotter
	surfaces  map[string]video.Surface
	quitSent  bool
}

// SnapshotConfig holds configuration for frame snapshots
type SnapshotConfig struct {
	Enabled   bool
	Interval  int    // Save snapshot every N presented frames
	Directory string // Directory to save snapshots
	Prefix    string // Prefix for snapshot filenames
	Scale     int
}

// Option customises a headless backend.
type Option func(*Backend)

// WithRefresher replaces the default unthrottled refresher, e.g. with a
// timing.Manual in tests.
func WithRefresher(r timing.Refresher) Option {
	return func(h *Backend) {
		h.refresher = r
	}
}

// New creates a backend that requests shutdown after maxFrames refreshes.
// A maxFrames of zero runs until the driver is stopped.
func New(maxFrames int, snapshotConfig SnapshotConfig, opts ...Option) *Backend {
	h := &Backend{
		maxFrames:      maxFrames,
		snapshotConfig: snapshotConfig,
		canvases:       make(map[string]*surface.Canvas),
		snapshots:      make(map[string]*surface.Snapshotter),
		surfaces:       make(map[string]video.Surface),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Backend) Init(config backend.BackendConfig) error {
	h.config = config

	for _, out := range config.Outputs {
		canvas := surface.NewCanvas(out.Name)
		h.canvases[out.Name] = canvas
		h.surfaces[out.Name] = canvas

		if h.snapshotConfig.Enabled {
			snap := &surface.Snapshotter{
				Next:      canvas,
				Interval:  h.snapshotConfig.Interval,
				Directory: h.snapshotConfig.Directory,
				Prefix:    h.snapshotConfig.Prefix,
				Scale:     h.snapshotConfig.Scale,
			}
			h.snapshots[out.Name] = snap
			h.surfaces[out.Name] = snap
		}
	}

	if h.refresher == nil {
		h.refresher = timing.NewUnthrottled()
	}

	slog.Info("Running headless mode",
		"frames", h.maxFrames,
		"outputs", len(config.Outputs),
		"snapshot_interval", h.snapshotConfig.Interval,
		"snapshot_dir", h.snapshotConfig.Directory)
	return nil
}

func (h *Backend) Surface(name string) (video.Surface, error) {
	s, ok := h.surfaces[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", backend.ErrUnknownSurface, name)
	}
	return s, nil
}

// Poll counts refreshes and requests shutdown once the frame budget is spent.
func (h *Backend) Poll() error {
	h.frameCount++

	// Log progress periodically
	if h.frameCount%600 == 0 {
		slog.Info("Frame progress", "completed", h.frameCount, "total", h.maxFrames)
	}

	if h.maxFrames > 0 && h.frameCount > h.maxFrames && !h.quitSent {
		h.quitSent = true
		slog.Info("Headless execution completed", "frames", h.maxFrames)
		h.config.Callbacks.Quit()
	}
	return nil
}

func (h *Backend) Refresher() timing.Refresher {
	return h.refresher
}

// Cleanup saves the final frame of every surface that was not just saved.
func (h *Backend) Cleanup() error {
	for _, snap := range h.snapshots {
		snap.Flush()
	}
	if h.snapshotConfig.Enabled {
		slog.Info("PNG snapshots saved", "directory", h.snapshotConfig.Directory)
	}
	if h.refresher != nil {
		h.refresher.Stop()
	}
	return nil
}

// Canvas returns the in-memory surface for name, or nil.
func (h *Backend) Canvas(name string) *surface.Canvas {
	return h.canvases[name]
}

// Frames returns how many refreshes were polled.
func (h *Backend) Frames() int {
	return h.frameCount
}

// CreateSnapshotConfig creates a snapshot configuration from CLI parameters
func CreateSnapshotConfig(interval int, directory, prefix string, scale int) (SnapshotConfig, error) {
	config := SnapshotConfig{
		Enabled:  interval > 0,
		Interval: interval,
		Prefix:   prefix,
		Scale:    scale,
	}

	if !config.Enabled {
		return config, nil
	}

	// Set up snapshot directory
	if directory == "" {
		tempDir, err := os.MkdirTemp("", "jeebie-snapshots-*")
		if err != nil {
			return config, fmt.Errorf("failed to create snapshot directory: %w", err)
		}
		config.Directory = tempDir
	} else {
		if err := os.MkdirAll(directory, 0o755); err != nil {
			return config, fmt.Errorf("failed to create snapshot directory: %w", err)
		}
		config.Directory = directory
	}

	return config, nil
}
