package jeebie

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/jeebie-host/jeebie/backend"
	"github.com/valerio/jeebie-host/jeebie/backend/headless"
	"github.com/valerio/jeebie-host/jeebie/core"
	"github.com/valerio/jeebie-host/jeebie/core/pattern"
	"github.com/valerio/jeebie-host/jeebie/display"
	"github.com/valerio/jeebie-host/jeebie/surface"
	"github.com/valerio/jeebie-host/jeebie/timing"
	"github.com/valerio/jeebie-host/jeebie/video"
)

// scriptedBackend runs queued actions on Poll, the way a real backend
// dispatches its input events.
type scriptedBackend struct {
	config    backend.BackendConfig
	canvases  map[string]*surface.Canvas
	refresher *timing.Manual
	script    []func(backend.BackendCallbacks)
	polls     int
	cleanups  int
}

func newScriptedBackend() *scriptedBackend {
	return &scriptedBackend{
		canvases:  make(map[string]*surface.Canvas),
		refresher: timing.NewManual(64),
	}
}

func (b *scriptedBackend) Init(config backend.BackendConfig) error {
	b.config = config
	for _, out := range config.Outputs {
		b.canvases[out.Name] = surface.NewCanvas(out.Name)
	}
	return nil
}

func (b *scriptedBackend) Surface(name string) (video.Surface, error) {
	c, ok := b.canvases[name]
	if !ok {
		return nil, backend.ErrUnknownSurface
	}
	return c, nil
}

func (b *scriptedBackend) Poll() error {
	b.polls++
	script := b.script
	b.script = nil
	for _, action := range script {
		action(b.config.Callbacks)
	}
	return nil
}

func (b *scriptedBackend) Refresher() timing.Refresher { return b.refresher }

func (b *scriptedBackend) Cleanup() error {
	b.cleanups++
	b.refresher.Stop()
	return nil
}

func (b *scriptedBackend) queue(action func(backend.BackendCallbacks)) {
	b.script = append(b.script, action)
}

func newPatternCore(t *testing.T) *pattern.Core {
	t.Helper()
	c, err := pattern.New(pattern.Options{})
	require.NoError(t, err)
	return c
}

// noTiles hides the tile view of a pattern core.
type noTiles struct {
	*pattern.Core
}

func (noTiles) Tileset() (core.Descriptor, error) {
	return core.Descriptor{}, core.ErrNoBuffer
}

// oversized reports a framebuffer that runs past the end of memory.
type oversized struct {
	*pattern.Core
}

func (oversized) Framebuffer() (core.Descriptor, error) {
	return core.Descriptor{Ptr: 1 << 30, Len: uint32(display.Screen.Size())}, nil
}

func TestNew_Outputs(t *testing.T) {
	t.Run("screen and tiles", func(t *testing.T) {
		b := newScriptedBackend()
		d, err := New(newPatternCore(t), b, Options{Tiles: true})
		require.NoError(t, err)
		defer d.Close()

		assert.Len(t, d.Outputs(), 2)
		assert.True(t, b.config.HasOutput(display.TilesSurface))
		assert.Equal(t, 1, b.config.Slowdown)
	})

	t.Run("tiles disabled", func(t *testing.T) {
		b := newScriptedBackend()
		d, err := New(newPatternCore(t), b, Options{})
		require.NoError(t, err)
		defer d.Close()

		assert.Equal(t, []backend.Output{{Name: display.ScreenSurface, Geometry: display.Screen}}, d.Outputs())
	})

	t.Run("core without a tile view", func(t *testing.T) {
		b := newScriptedBackend()
		var logs bytes.Buffer
		d, err := New(noTiles{newPatternCore(t)}, b, Options{
			Tiles:  true,
			Logger: slog.New(slog.NewTextHandler(&logs, nil)),
		})
		require.NoError(t, err)
		defer d.Close()

		assert.False(t, b.config.HasOutput(display.TilesSurface))
		assert.Contains(t, logs.String(), "Core has no tile view")

		require.NoError(t, d.Frame())
		assert.Equal(t, uint64(1), d.Stats().Presents)
	})

	t.Run("slowdown is clamped", func(t *testing.T) {
		b := newScriptedBackend()
		d, err := New(newPatternCore(t), b, Options{Slowdown: 0})
		require.NoError(t, err)
		defer d.Close()

		assert.Equal(t, 1, d.Throttle().Slowdown())
	})
}

func TestFrame_PresentsEveryTick(t *testing.T) {
	b := newScriptedBackend()
	d, err := New(newPatternCore(t), b, Options{Tiles: true})
	require.NoError(t, err)
	defer d.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, d.Frame())
	}

	stats := d.Stats()
	assert.Equal(t, uint64(3), stats.Ticks)
	assert.Equal(t, uint64(6), stats.Presents)
	assert.Equal(t, 3, b.canvases[display.ScreenSurface].Presents())
	assert.Equal(t, 3, b.canvases[display.TilesSurface].Presents())

	img := b.canvases[display.ScreenSurface].Current()
	require.NotNil(t, img)
	assert.Equal(t, display.ScreenWidth, img.Bounds().Dx())
	assert.Equal(t, display.ScreenHeight, img.Bounds().Dy())
}

func TestFrame_SlowdownCallbacks(t *testing.T) {
	b := newScriptedBackend()
	d, err := New(newPatternCore(t), b, Options{})
	require.NoError(t, err)
	defer d.Close()

	b.queue(func(cb backend.BackendCallbacks) { cb.Slowdown(3) })
	for i := 0; i < 6; i++ {
		require.NoError(t, d.Frame())
	}
	assert.Equal(t, uint64(2), d.Stats().Ticks, "one tick every third callback")

	b.queue(func(cb backend.BackendCallbacks) {
		assert.Equal(t, 2, cb.Nudge(-1))
	})
	require.NoError(t, d.Frame())
	assert.Equal(t, 2, d.Throttle().Slowdown())
}

func TestFrame_ForwardsKeys(t *testing.T) {
	c := newPatternCore(t)
	b := newScriptedBackend()
	d, err := New(c, b, Options{})
	require.NoError(t, err)
	defer d.Close()

	b.queue(func(cb backend.BackendCallbacks) {
		cb.KeyDown("Enter")
		cb.KeyUp("Enter")
	})
	require.NoError(t, d.Frame())
	assert.Equal(t, "Gradient", c.PatternName())
}

func TestFrame_Quit(t *testing.T) {
	b := newScriptedBackend()
	d, err := New(newPatternCore(t), b, Options{})
	require.NoError(t, err)
	defer d.Close()

	b.queue(func(cb backend.BackendCallbacks) { cb.Quit() })
	assert.ErrorIs(t, d.Frame(), ErrQuit)
	assert.Zero(t, d.Stats().Callbacks, "no step after a quit request")
}

func TestFrame_HaltsOnBadDescriptor(t *testing.T) {
	b := newScriptedBackend()
	d, err := New(oversized{newPatternCore(t)}, b, Options{})
	require.NoError(t, err)
	defer d.Close()

	err = d.Frame()
	require.Error(t, err)
	assert.ErrorIs(t, d.Err(), err)

	// halted for good
	assert.Equal(t, err, d.Frame())
	assert.Equal(t, uint64(1), d.Stats().Callbacks)
	assert.Zero(t, b.canvases[display.ScreenSurface].Presents())
}

func TestRun_HeadlessFrameBudget(t *testing.T) {
	h := headless.New(5, headless.SnapshotConfig{})
	d, err := New(newPatternCore(t), h, Options{Tiles: true})
	require.NoError(t, err)

	require.NoError(t, d.Run(context.Background()))
	require.NoError(t, d.Close())

	assert.Equal(t, uint64(5), d.Stats().Ticks)
	assert.Equal(t, 5, h.Canvas(display.ScreenSurface).Presents())
	assert.Equal(t, 5, h.Canvas(display.TilesSurface).Presents())
}

func TestRun_ReturnsHaltError(t *testing.T) {
	b := newScriptedBackend()
	d, err := New(oversized{newPatternCore(t)}, b, Options{})
	require.NoError(t, err)
	defer d.Close()

	b.refresher.Fire(1)
	err = d.Run(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrQuit))
}

func TestRun_StopsOnCancel(t *testing.T) {
	b := newScriptedBackend()
	d, err := New(newPatternCore(t), b, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.Equal(t, 1, b.cleanups)
}
