package headless_test

import (
	"image"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/jeebie-host/jeebie/backend"
	"github.com/valerio/jeebie-host/jeebie/backend/headless"
	"github.com/valerio/jeebie-host/jeebie/display"
)

func outputs() []backend.Output {
	return []backend.Output{
		{Name: display.ScreenSurface, Geometry: display.Screen},
		{Name: display.TilesSurface, Geometry: display.Tiles},
	}
}

func TestHeadlessBackend(t *testing.T) {
	t.Run("frame budget", func(t *testing.T) {
		quits := 0
		h := headless.New(3, headless.SnapshotConfig{})
		require.NoError(t, h.Init(backend.BackendConfig{
			Title:     "Test",
			Outputs:   outputs(),
			Callbacks: backend.BackendCallbacks{OnQuit: func() { quits++ }},
		}))

		for i := 0; i < 3; i++ {
			require.NoError(t, h.Poll())
			assert.Zero(t, quits, "should not quit before reaching max frames")
		}

		require.NoError(t, h.Poll())
		require.NoError(t, h.Poll())
		assert.Equal(t, 1, quits, "quit is requested exactly once")
		assert.NoError(t, h.Cleanup())
	})

	t.Run("unbounded", func(t *testing.T) {
		h := headless.New(0, headless.SnapshotConfig{})
		require.NoError(t, h.Init(backend.BackendConfig{
			Callbacks: backend.BackendCallbacks{OnQuit: func() { t.Fatal("unexpected quit") }},
		}))
		for i := 0; i < 100; i++ {
			require.NoError(t, h.Poll())
		}
		assert.Equal(t, 100, h.Frames())
	})

	t.Run("surfaces", func(t *testing.T) {
		h := headless.New(1, headless.SnapshotConfig{})
		require.NoError(t, h.Init(backend.BackendConfig{Outputs: outputs()}))

		s, err := h.Surface(display.TilesSurface)
		require.NoError(t, err)
		img := image.NewRGBA(image.Rect(0, 0, display.TileViewWidth, display.TileViewHeight))
		require.NoError(t, s.Present(img))
		assert.Same(t, img, h.Canvas(display.TilesSurface).Current())

		_, err = h.Surface("debug")
		assert.ErrorIs(t, err, backend.ErrUnknownSurface)
	})

	t.Run("refresher fires without waiting", func(t *testing.T) {
		h := headless.New(1, headless.SnapshotConfig{})
		require.NoError(t, h.Init(backend.BackendConfig{}))

		for i := 0; i < 3; i++ {
			<-h.Refresher().C()
		}
	})
}

func TestHeadlessSnapshots(t *testing.T) {
	dir := t.TempDir()
	cfg, err := headless.CreateSnapshotConfig(2, dir, "run", 1)
	require.NoError(t, err)
	require.True(t, cfg.Enabled)

	h := headless.New(5, cfg)
	require.NoError(t, h.Init(backend.BackendConfig{Outputs: outputs()[:1]}))

	s, err := h.Surface(display.ScreenSurface)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Present(image.NewRGBA(image.Rect(0, 0, display.ScreenWidth, display.ScreenHeight))))
	}
	require.NoError(t, h.Cleanup())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "frames 2 and 4 plus the final frame")
}

func TestCreateSnapshotConfig_Disabled(t *testing.T) {
	cfg, err := headless.CreateSnapshotConfig(0, "", "run", 1)
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.Empty(t, cfg.Directory)
}

func TestHeadlessImplementsBackend(t *testing.T) {
	// Compile-time check that headless.Backend implements backend.Backend
	var _ backend.Backend = (*headless.Backend)(nil)
}
