package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/urfave/cli"
	"github.com/valerio/jeebie-host/jeebie"
	"github.com/valerio/jeebie-host/jeebie/backend"
	"github.com/valerio/jeebie-host/jeebie/backend/headless"
	"github.com/valerio/jeebie-host/jeebie/backend/sdl2"
	"github.com/valerio/jeebie-host/jeebie/backend/terminal"
	"github.com/valerio/jeebie-host/jeebie/config"
	"github.com/valerio/jeebie-host/jeebie/core"
	"github.com/valerio/jeebie-host/jeebie/core/pattern"
	"github.com/valerio/jeebie-host/jeebie/core/wasm"
)

func main() {
	app := cli.NewApp()
	app.Name = "jeebie-host"
	app.Description = "Frame-paced host for emulation cores"
	app.Usage = "jeebie-host [options]"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "Path to a YAML configuration file",
		},
		cli.StringFlag{
			Name:  "backend",
			Usage: "Display backend: headless, terminal or sdl2",
		},
		cli.StringFlag{
			Name:  "core",
			Usage: "Execution core: pattern or wasm",
		},
		cli.StringFlag{
			Name:  "wasm",
			Usage: "Path to the core's .wasm module (implies --core wasm)",
		},
		cli.IntFlag{
			Name:  "slowdown",
			Usage: "Tick the core on every Nth refresh",
		},
		cli.IntFlag{
			Name:  "scale",
			Usage: "Window pixel scale (sdl2 and snapshots)",
		},
		cli.Float64Flag{
			Name:  "refresh-hz",
			Usage: "Refresh rate for ticker backends (0 = native rate)",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of refreshes to run in headless mode (0 = until interrupted)",
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save PNG snapshots every N frames in headless mode (0 = disabled)",
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory to save snapshots (default: temp directory)",
		},
		cli.BoolFlag{
			Name:  "no-tiles",
			Usage: "Present the screen only, without the tile view",
		},
		cli.IntFlag{
			Name:  "relocate-every",
			Usage: "Pattern core: move its buffers every N ticks (0 = never)",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn or error",
		},
	}
	app.Action = runHost

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("Error running host", "error", err)
		os.Exit(1)
	}
}

func runHost(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	level, _ := config.ParseLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	emu, closeCore, err := newCore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCore()

	b, err := newBackend(cfg, level)
	if err != nil {
		return err
	}

	slog.Info("Starting host", "backend", cfg.Backend, "core", cfg.Core.Kind, "slowdown", cfg.Slowdown)
	driver, err := jeebie.New(emu, b, jeebie.Options{
		Title:    "Jeebie",
		Scale:    cfg.Scale,
		Slowdown: cfg.Slowdown,
		Tiles:    cfg.Tiles,
	})
	if err != nil {
		return err
	}

	runErr := driver.Run(ctx)
	if err := driver.Close(); err != nil {
		slog.Warn("Backend cleanup failed", "error", err)
	}
	return runErr
}

// loadConfig reads the optional config file, then applies the flags that were
// set explicitly on the command line.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("backend") {
		cfg.Backend = c.String("backend")
	}
	if c.IsSet("core") {
		cfg.Core.Kind = c.String("core")
	}
	if c.IsSet("wasm") {
		cfg.Core.WasmPath = c.String("wasm")
		if !c.IsSet("core") {
			cfg.Core.Kind = config.CoreWasm
		}
	}
	if c.IsSet("slowdown") {
		cfg.Slowdown = c.Int("slowdown")
	}
	if c.IsSet("scale") {
		cfg.Scale = c.Int("scale")
	}
	if c.IsSet("refresh-hz") {
		cfg.RefreshHz = c.Float64("refresh-hz")
	}
	if c.IsSet("frames") {
		cfg.Headless.Frames = c.Int("frames")
	}
	if c.IsSet("snapshot-interval") {
		cfg.Headless.SnapshotInterval = c.Int("snapshot-interval")
	}
	if c.IsSet("snapshot-dir") {
		cfg.Headless.SnapshotDir = c.String("snapshot-dir")
	}
	if c.Bool("no-tiles") {
		cfg.Tiles = false
	}
	if c.IsSet("relocate-every") {
		cfg.Core.RelocateEvery = c.Int("relocate-every")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newCore(ctx context.Context, cfg *config.Config) (core.Core, func(), error) {
	switch cfg.Core.Kind {
	case config.CoreWasm:
		emu, err := wasm.LoadFile(ctx, cfg.Core.WasmPath)
		if err != nil {
			return nil, nil, err
		}
		closeCore := func() {
			// the run context may already be cancelled
			if err := emu.Close(context.Background()); err != nil {
				slog.Warn("Failed to close wasm core", "error", err)
			}
		}
		return emu, closeCore, nil
	default:
		emu, err := pattern.New(pattern.Options{RelocateEvery: cfg.Core.RelocateEvery})
		if err != nil {
			return nil, nil, err
		}
		return emu, func() {}, nil
	}
}

func newBackend(cfg *config.Config, level slog.Level) (backend.Backend, error) {
	switch cfg.Backend {
	case config.BackendHeadless:
		snapshots, err := headless.CreateSnapshotConfig(
			cfg.Headless.SnapshotInterval, cfg.Headless.SnapshotDir, snapshotPrefix(cfg), cfg.Scale)
		if err != nil {
			return nil, err
		}
		slog.Info("Running headless mode", "frames", cfg.Headless.Frames,
			"snapshot_interval", snapshots.Interval, "snapshot_dir", snapshots.Directory)
		return headless.New(cfg.Headless.Frames, snapshots), nil
	case config.BackendSDL2:
		return sdl2.New(cfg.RefreshHz), nil
	default:
		t := terminal.New(cfg.RefreshHz)
		t.SetLogLevel(level)
		return t, nil
	}
}

// snapshotPrefix names snapshot files after the core module.
func snapshotPrefix(cfg *config.Config) string {
	if cfg.Core.Kind != config.CoreWasm {
		return config.CorePattern
	}
	name := filepath.Base(cfg.Core.WasmPath)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
