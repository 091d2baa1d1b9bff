package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/valerio/jeebie-host/jeebie/display"
	"github.com/valerio/jeebie-host/jeebie/throttle"
)

// Backend names
const (
	BackendHeadless = "headless"
	BackendTerminal = "terminal"
	BackendSDL2     = "sdl2"
)

// Core kinds
const (
	CorePattern = "pattern"
	CoreWasm    = "wasm"
)

// Config represents the complete host configuration
type Config struct {
	Backend   string         `yaml:"backend"` // headless, terminal, sdl2
	Core      CoreConfig     `yaml:"core"`
	Slowdown  int            `yaml:"slowdown"`   // tick every Nth refresh, 1-60
	RefreshHz float64        `yaml:"refresh_hz"` // ticker backends only, 0 means native rate
	Scale     int            `yaml:"scale"`      // window pixel scale
	Tiles     bool           `yaml:"tiles"`      // present the tile view as a second surface
	Headless  HeadlessConfig `yaml:"headless"`
	LogLevel  string         `yaml:"log_level"` // debug, info, warn, error
}

// CoreConfig selects the execution core
type CoreConfig struct {
	Kind          string `yaml:"kind"`           // pattern, wasm
	WasmPath      string `yaml:"wasm_path"`      // required for kind wasm
	RelocateEvery int    `yaml:"relocate_every"` // pattern core: move buffers every N ticks
}

// HeadlessConfig contains settings for runs without a display
type HeadlessConfig struct {
	Frames           int    `yaml:"frames"`            // stop after this many refreshes, 0 runs until interrupted
	SnapshotInterval int    `yaml:"snapshot_interval"` // save PNGs every N presents, 0 disables
	SnapshotDir      string `yaml:"snapshot_dir"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Backend:  BackendTerminal,
		Core:     CoreConfig{Kind: CorePattern},
		Slowdown: throttle.MinSlowdown,
		Scale:    display.DefaultPixelScale,
		Tiles:    true,
		LogLevel: "info",
	}
}

// Load reads a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks field values. A slowdown outside the supported range is
// not an error here, the throttle clamps it.
func (c *Config) Validate() error {
	var errs []error

	switch c.Backend {
	case BackendHeadless, BackendTerminal, BackendSDL2:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}

	switch c.Core.Kind {
	case CorePattern:
	case CoreWasm:
		if c.Core.WasmPath == "" {
			errs = append(errs, errors.New("core kind wasm requires wasm_path"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown core kind %q", c.Core.Kind))
	}

	if c.Core.RelocateEvery < 0 {
		errs = append(errs, fmt.Errorf("relocate_every must not be negative, got %d", c.Core.RelocateEvery))
	}
	if c.Scale < 1 || c.Scale > display.MaxPixelScale {
		errs = append(errs, fmt.Errorf("scale must be between 1 and %d, got %d", display.MaxPixelScale, c.Scale))
	}
	if c.RefreshHz < 0 {
		errs = append(errs, fmt.Errorf("refresh_hz must not be negative, got %v", c.RefreshHz))
	}
	if c.Headless.Frames < 0 || c.Headless.SnapshotInterval < 0 {
		errs = append(errs, errors.New("headless frames and snapshot_interval must not be negative"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ParseLevel converts a log level name into a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}
