package terminal

import (
	"bytes"
	"image"
	"image/color"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/jeebie-host/jeebie/backend"
	"github.com/valerio/jeebie-host/jeebie/display"
	"github.com/valerio/jeebie-host/jeebie/timing"
)

type recorder struct {
	events   []string
	quits    int
	slowdown int
}

func (r *recorder) callbacks() backend.BackendCallbacks {
	return backend.BackendCallbacks{
		OnKeyDown: func(code string) { r.events = append(r.events, "down:"+code) },
		OnKeyUp:   func(code string) { r.events = append(r.events, "up:"+code) },
		OnSlowdownNudge: func(delta int) int {
			r.slowdown += delta
			return r.slowdown
		},
		OnQuit: func() { r.quits++ },
	}
}

type fixture struct {
	backend *Backend
	screen  tcell.SimulationScreen
	rec     *recorder
	clock   time.Time
}

func newFixture(t *testing.T, width, height int) *fixture {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	screen.SetSize(width, height)

	fx := &fixture{screen: screen, rec: &recorder{slowdown: 1}, clock: time.Unix(1000, 0)}
	fx.backend = New(0,
		WithScreen(screen),
		WithRefresher(timing.NewManual(1)),
		WithClock(func() time.Time { return fx.clock }),
	)
	require.NoError(t, fx.backend.Init(backend.BackendConfig{
		Title:    "test",
		Slowdown: 1,
		Outputs: []backend.Output{
			{Name: display.ScreenSurface, Geometry: display.Screen},
			{Name: display.TilesSurface, Geometry: display.Tiles},
		},
		Callbacks: fx.rec.callbacks(),
	}))
	t.Cleanup(func() { _ = fx.backend.Cleanup() })
	return fx
}

func (fx *fixture) advance(d time.Duration) {
	fx.clock = fx.clock.Add(d)
}

func TestPoll_SpecialKeys(t *testing.T) {
	fx := newFixture(t, 200, 80)

	fx.screen.InjectKey(tcell.KeyUp, 0, tcell.ModNone)
	fx.screen.InjectKey(tcell.KeyEnter, 0, tcell.ModNone)
	fx.screen.InjectKey(tcell.KeyRune, 'z', tcell.ModNone)
	fx.screen.InjectKey(tcell.KeyF5, 0, tcell.ModNone)
	require.NoError(t, fx.backend.Poll())

	assert.Equal(t, []string{"down:ArrowUp", "down:Enter", "down:KeyZ"}, fx.rec.events)
}

func TestPoll_SynthesisesKeyUp(t *testing.T) {
	fx := newFixture(t, 200, 80)

	fx.screen.InjectKey(tcell.KeyLeft, 0, tcell.ModNone)
	require.NoError(t, fx.backend.Poll())

	// auto-repeat keeps the key held and is forwarded
	fx.advance(60 * time.Millisecond)
	fx.screen.InjectKey(tcell.KeyLeft, 0, tcell.ModNone)
	require.NoError(t, fx.backend.Poll())

	fx.advance(60 * time.Millisecond)
	require.NoError(t, fx.backend.Poll())
	assert.Equal(t, []string{"down:ArrowLeft", "down:ArrowLeft"}, fx.rec.events, "still within the timeout")

	fx.advance(keyTimeout)
	require.NoError(t, fx.backend.Poll())
	assert.Equal(t, []string{"down:ArrowLeft", "down:ArrowLeft", "up:ArrowLeft"}, fx.rec.events)

	fx.advance(time.Second)
	require.NoError(t, fx.backend.Poll())
	assert.Len(t, fx.rec.events, 3, "a key is released once")
}

func TestPoll_ThrottleKeys(t *testing.T) {
	fx := newFixture(t, 200, 80)

	fx.screen.InjectKey(tcell.KeyRune, '+', tcell.ModNone)
	fx.screen.InjectKey(tcell.KeyRune, '+', tcell.ModNone)
	fx.screen.InjectKey(tcell.KeyRune, '-', tcell.ModNone)
	require.NoError(t, fx.backend.Poll())

	assert.Equal(t, 2, fx.rec.slowdown)
	assert.Empty(t, fx.rec.events, "throttle keys are not forwarded to the core")
	assert.Equal(t, 2, fx.backend.slowdown)
}

func TestPoll_Quit(t *testing.T) {
	for _, key := range []tcell.Key{tcell.KeyEscape, tcell.KeyCtrlC} {
		fx := newFixture(t, 200, 80)
		fx.screen.InjectKey(key, 0, tcell.ModNone)
		require.NoError(t, fx.backend.Poll())
		assert.Equal(t, 1, fx.rec.quits)
	}
}

func TestSurface_DrawsPanels(t *testing.T) {
	fx := newFixture(t, 400, 120)

	screenSurface, err := fx.backend.Surface(display.ScreenSurface)
	require.NoError(t, err)
	tilesSurface, err := fx.backend.Surface(display.TilesSurface)
	require.NoError(t, err)

	img := image.NewRGBA(image.Rect(0, 0, display.ScreenWidth, display.ScreenHeight))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	require.NoError(t, screenSurface.Present(img))
	require.NoError(t, tilesSurface.Present(image.NewRGBA(image.Rect(0, 0, display.TileViewWidth, display.TileViewHeight))))

	ch, _, style, _ := fx.screen.GetContent(0, 1)
	assert.Equal(t, '▀', ch)
	fg, _, _ := style.Decompose()
	r, g, b := fg.RGB()
	assert.Equal(t, [3]int32{255, 0, 0}, [3]int32{r, g, b})

	// tiles panel starts after the screen panel and the gap
	ch, _, _, _ = fx.screen.GetContent(display.ScreenWidth+panelGap, 1)
	assert.Equal(t, '█', ch)

	_, err = fx.backend.Surface("debug")
	assert.ErrorIs(t, err, backend.ErrUnknownSurface)
}

func TestSurface_TooSmall(t *testing.T) {
	fx := newFixture(t, 30, 10)

	s, err := fx.backend.Surface(display.ScreenSurface)
	require.NoError(t, err)
	require.NoError(t, s.Present(image.NewRGBA(image.Rect(0, 0, display.ScreenWidth, display.ScreenHeight))))

	ch, _, _, _ := fx.screen.GetContent(0, 5)
	assert.Equal(t, 'T', ch)
}

func TestCleanup_RestoresLogger(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	var out bytes.Buffer
	stderr := slog.New(slog.NewTextHandler(&out, nil))
	slog.SetDefault(stderr)

	fx := newFixture(t, 200, 80)
	require.NotSame(t, stderr, slog.Default(), "logs go to the panel while running")

	slog.Info("Panel only")
	slog.Error("Frame loop halted", "frame", 7)

	require.NoError(t, fx.backend.Cleanup())
	assert.Same(t, stderr, slog.Default())
	assert.Contains(t, out.String(), "Frame loop halted frame=7")
	assert.NotContains(t, out.String(), "Panel only")

	require.NoError(t, fx.backend.Cleanup())
	assert.Equal(t, 1, strings.Count(out.String(), "Frame loop halted"), "replayed once")
}

func TestTerminalImplementsBackend(t *testing.T) {
	var _ backend.Backend = (*Backend)(nil)
}
