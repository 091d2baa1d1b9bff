package terminal

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/valerio/jeebie-host/jeebie/backend"
	"github.com/valerio/jeebie-host/jeebie/backend/terminal/render"
	"github.com/valerio/jeebie-host/jeebie/input"
	"github.com/valerio/jeebie-host/jeebie/surface"
	"github.com/valerio/jeebie-host/jeebie/timing"
	"github.com/valerio/jeebie-host/jeebie/video"
)

const (
	panelGap      = 2
	logPanelWidth = 40
	minTermWidth  = 40
	minTermHeight = 12
	logCapacity   = 200
)

// Key expiry timeout - slightly longer than typical key repeat interval.
// Terminals report presses only, so a key is released once it stops repeating.
const keyTimeout = 100 * time.Millisecond

// tcellKeyCodes maps tcell special keys to key codes
var tcellKeyCodes = map[tcell.Key]string{
	tcell.KeyUp:         input.CodeArrowUp,
	tcell.KeyDown:       input.CodeArrowDown,
	tcell.KeyLeft:       input.CodeArrowLeft,
	tcell.KeyRight:      input.CodeArrowRight,
	tcell.KeyEnter:      input.CodeEnter,
	tcell.KeyTab:        input.CodeTab,
	tcell.KeyBackspace:  input.CodeBackspace,
	tcell.KeyBackspace2: input.CodeBackspace,
}

// panel is the surface for one output, drawn as half blocks.
type panel struct {
	name    string
	backend *Backend
	last    *image.RGBA
}

func (p *panel) Name() string {
	return p.name
}

func (p *panel) Present(img *image.RGBA) error {
	p.last = img
	p.backend.draw()
	return nil
}

// Backend implements the Backend interface using tcell for terminal rendering
type Backend struct {
	screen    tcell.Screen
	logBuffer *render.LogBuffer
	logLevel  *slog.LevelVar
	prevLog   *slog.Logger // default logger replaced by Init
	config    backend.BackendConfig
	refresher timing.Refresher
	refreshHz float64

	panels   []*panel
	held     map[string]time.Time // key code -> last press
	now      func() time.Time
	signals  chan os.Signal
	slowdown int
	cleaned  bool
}

// Option customises a terminal backend.
type Option func(*Backend)

// WithScreen uses screen instead of the real terminal, e.g. a tcell
// SimulationScreen in tests.
func WithScreen(screen tcell.Screen) Option {
	return func(t *Backend) {
		t.screen = screen
	}
}

// WithRefresher replaces the default display-rate ticker.
func WithRefresher(r timing.Refresher) Option {
	return func(t *Backend) {
		t.refresher = r
	}
}

// WithClock replaces time.Now for key expiry.
func WithClock(now func() time.Time) Option {
	return func(t *Backend) {
		t.now = now
	}
}

// New creates a new terminal backend refreshing at refreshHz, where zero
// means the native Game Boy rate.
func New(refreshHz float64, opts ...Option) *Backend {
	t := &Backend{
		refreshHz: refreshHz,
		logLevel:  new(slog.LevelVar),
		held:      make(map[string]time.Time),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Init initializes the terminal backend
func (t *Backend) Init(config backend.BackendConfig) error {
	t.config = config
	t.slowdown = config.Slowdown

	if t.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to initialize terminal: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("failed to initialize terminal: %w", err)
		}
		t.screen = screen
	}

	for _, out := range config.Outputs {
		t.panels = append(t.panels, &panel{name: out.Name, backend: t})
	}

	// Logs go to the side panel; stderr is unusable while tcell owns the terminal
	t.logBuffer = render.NewLogBuffer(logCapacity)
	t.prevLog = slog.Default()
	slog.SetDefault(slog.New(render.NewLogBufferHandler(t.logBuffer, slog.LevelDebug)))

	if t.refresher == nil {
		t.refresher = timing.NewTicker(timing.Interval(t.refreshHz))
	}

	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	// Set up signal handling for graceful shutdown
	t.signals = make(chan os.Signal, 1)
	signal.Notify(t.signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	slog.Info("Terminal backend initialized", "outputs", len(t.panels), "refresh", timing.Interval(t.refreshHz))
	return nil
}

// SetLogLevel filters the log panel.
func (t *Backend) SetLogLevel(level slog.Level) {
	t.logLevel.Set(level)
}

func (t *Backend) Surface(name string) (video.Surface, error) {
	for _, p := range t.panels {
		if p.name == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", backend.ErrUnknownSurface, name)
}

func (t *Backend) Refresher() timing.Refresher {
	return t.refresher
}

// Poll drains terminal events, releases keys that stopped repeating and
// forwards everything through the callbacks.
func (t *Backend) Poll() error {
	select {
	case sig := <-t.signals:
		slog.Info("Received signal, shutting down", "signal", sig)
		t.config.Callbacks.Quit()
	default:
	}

	now := t.now()
	for t.screen.HasPendingEvent() {
		switch ev := t.screen.PollEvent().(type) {
		case *tcell.EventKey:
			t.processKeyEvent(ev, now)
		case *tcell.EventResize:
			t.screen.Sync()
			t.draw()
		}
	}

	t.releaseExpired(now)
	return nil
}

func (t *Backend) processKeyEvent(ev *tcell.EventKey, now time.Time) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		t.config.Callbacks.Quit()
		return
	case tcell.KeyF12:
		t.snapshot()
		return
	case tcell.KeyRune:
		switch ev.Rune() {
		case '+', '=':
			t.nudge(1)
			return
		case '-', '_':
			t.nudge(-1)
			return
		}
		if code, ok := input.RuneCode(ev.Rune()); ok {
			t.press(code, now)
		}
		return
	}

	if code, ok := tcellKeyCodes[ev.Key()]; ok {
		t.press(code, now)
	}
}

// press forwards every key event, terminal auto-repeat included.
func (t *Backend) press(code string, now time.Time) {
	t.held[code] = now
	t.config.Callbacks.KeyDown(code)
}

func (t *Backend) releaseExpired(now time.Time) {
	var expired []string
	for code, last := range t.held {
		if now.Sub(last) >= keyTimeout {
			expired = append(expired, code)
		}
	}
	sort.Strings(expired)
	for _, code := range expired {
		delete(t.held, code)
		t.config.Callbacks.KeyUp(code)
	}
}

func (t *Backend) nudge(delta int) {
	if t.config.Callbacks.OnSlowdownNudge == nil {
		return
	}
	t.slowdown = t.config.Callbacks.Nudge(delta)
	t.draw()
}

// snapshot saves the last image of every panel as a PNG
func (t *Backend) snapshot() {
	for _, p := range t.panels {
		if p.last == nil {
			continue
		}
		if _, err := surface.SavePNG(p.last, "jeebie_"+p.name, "", 4); err != nil {
			slog.Error("Failed to save snapshot", "surface", p.name, "error", err)
		}
	}
}

// Cleanup cleans up terminal resources and gives logging back to the previous
// default logger, replaying warnings and errors the log panel may never have
// shown.
func (t *Backend) Cleanup() error {
	if t.cleaned {
		return nil
	}
	t.cleaned = true

	if t.signals != nil {
		signal.Stop(t.signals)
	}
	if t.refresher != nil {
		t.refresher.Stop()
	}
	if t.screen != nil {
		slog.Info("Cleaning up terminal backend")
		t.screen.Fini()
	}
	t.restoreLogger()
	return nil
}

func (t *Backend) restoreLogger() {
	if t.prevLog == nil {
		return
	}
	slog.SetDefault(t.prevLog)

	entries := t.logBuffer.GetRecent(0, slog.LevelWarn)
	for i := len(entries) - 1; i >= 0; i-- {
		t.prevLog.Log(context.Background(), entries[i].Level, entries[i].Message)
	}
	t.prevLog = nil
}

func (t *Backend) draw() {
	if t.screen == nil {
		return
	}
	t.screen.Clear()
	termWidth, termHeight := t.screen.Size()

	if termWidth < minTermWidth || termHeight < minTermHeight {
		t.drawTooSmall(termWidth, termHeight)
		t.screen.Show()
		return
	}

	// title row, help row
	rows := termHeight - 2
	cols := termWidth
	withLogs := cols-logPanelWidth-1 >= minTermWidth
	if withLogs {
		cols -= logPanelWidth + 1
	}

	sizes := make([]image.Point, 0, len(t.panels))
	for _, p := range t.panels {
		if p.last != nil {
			sizes = append(sizes, p.last.Bounds().Size())
		}
	}
	factor := render.FitFactor(sizes, cols, rows, panelGap)
	if factor == 0 {
		t.drawTooSmall(termWidth, termHeight)
		t.screen.Show()
		return
	}

	titleStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	x := 0
	for _, p := range t.panels {
		if p.last == nil {
			continue
		}
		img := render.Shrink(p.last, factor)
		w, _ := render.CellSize(p.last.Bounds().Dx(), p.last.Bounds().Dy(), factor)
		render.DrawText(t.screen, x, 0, w, " "+p.name+" ", titleStyle)
		render.DrawImage(t.screen, img, x, 1)
		x += w + panelGap
	}

	if withLogs {
		t.drawLogs(termWidth-logPanelWidth, termHeight)
	}

	help := fmt.Sprintf(" Arrows/Z/X/Enter=keys +/-=slowdown (%d) F12=snapshot ESC=exit ", t.slowdown)
	render.DrawText(t.screen, 0, termHeight-1, termWidth, help, tcell.StyleDefault.Foreground(tcell.ColorWhite))
	t.screen.Show()
}

func (t *Backend) drawTooSmall(termWidth, termHeight int) {
	style := tcell.StyleDefault.Foreground(tcell.ColorRed)
	msg := fmt.Sprintf("Terminal too small! Need at least %dx%d", minTermWidth, minTermHeight)
	render.DrawText(t.screen, 0, termHeight/2, termWidth, msg, style)
}

func (t *Backend) drawLogs(startX, termHeight int) {
	borderStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	for y := 0; y < termHeight-1; y++ {
		t.screen.SetContent(startX-1, y, '│', nil, borderStyle)
	}
	render.DrawText(t.screen, startX, 0, logPanelWidth, " Logs ", tcell.StyleDefault.Foreground(tcell.ColorYellow))

	availableHeight := termHeight - 2
	if availableHeight <= 0 {
		return
	}

	debugStyle := tcell.StyleDefault.Foreground(tcell.ColorGray)
	infoStyle := tcell.StyleDefault.Foreground(tcell.ColorBlue)
	warnStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	errStyle := tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)

	for i, entry := range t.logBuffer.GetRecent(availableHeight, t.logLevel.Level()) {
		style := infoStyle
		switch {
		case entry.Level >= slog.LevelError:
			style = errStyle
		case entry.Level >= slog.LevelWarn:
			style = warnStyle
		case entry.Level < slog.LevelInfo:
			style = debugStyle
		}

		logText := render.FormatLogEntry(entry)
		if len(logText) > logPanelWidth && logPanelWidth > 3 {
			logText = logText[:logPanelWidth-3] + "..."
		}
		render.DrawText(t.screen, startX, 1+i, logPanelWidth, logText, style)
	}
}
