//go:build js && wasm

package web

import (
	"fmt"
	"image"
	"log/slog"
	"strconv"
	"syscall/js"
	"time"

	"github.com/valerio/jeebie-host/jeebie/backend"
	"github.com/valerio/jeebie-host/jeebie/display"
	"github.com/valerio/jeebie-host/jeebie/throttle"
	"github.com/valerio/jeebie-host/jeebie/timing"
	"github.com/valerio/jeebie-host/jeebie/video"
)

// Element IDs looked up in the host page
const (
	DefaultScreenCanvas = "emulator-canvas"
	DefaultTilesCanvas  = "tileset-canvas"
	DefaultSlider       = "slowdown"
	eventQueueSize      = 64 // initial capacity, the queue grows
)

// Options names the page elements the backend binds to.
type Options struct {
	Canvases map[string]string // output name -> canvas element id
	SliderID string            // range input driving the slowdown, optional
}

// DefaultOptions binds the screen and tile view canvases and the slider.
func DefaultOptions() Options {
	return Options{
		Canvases: map[string]string{
			display.ScreenSurface: DefaultScreenCanvas,
			display.TilesSurface:  DefaultTilesCanvas,
		},
		SliderID: DefaultSlider,
	}
}

// canvas is an output surface drawing into an HTML canvas with putImageData.
type canvas struct {
	name      string
	geometry  display.Geometry
	ctx       js.Value
	pixels    js.Value // Uint8ClampedArray shared with imageData
	imageData js.Value
}

func (c *canvas) Name() string {
	return c.name
}

func (c *canvas) Present(img *image.RGBA) error {
	if len(img.Pix) != c.geometry.Size() {
		return fmt.Errorf("%s: image is %d bytes, canvas holds %d", c.name, len(img.Pix), c.geometry.Size())
	}
	js.CopyBytesToJS(c.pixels, img.Pix)
	c.ctx.Call("putImageData", c.imageData, 0, 0)
	return nil
}

// animationFrames is a refresher fed by requestAnimationFrame.
type animationFrames struct {
	ch      chan time.Time
	fn      js.Func
	stopped bool
}

func newAnimationFrames() *animationFrames {
	a := &animationFrames{ch: make(chan time.Time, 1)}
	a.fn = js.FuncOf(func(this js.Value, args []js.Value) any {
		if a.stopped {
			return nil
		}
		// a slow frame coalesces callbacks rather than queueing them
		select {
		case a.ch <- time.Now():
		default:
		}
		js.Global().Call("requestAnimationFrame", a.fn)
		return nil
	})
	js.Global().Call("requestAnimationFrame", a.fn)
	return a
}

func (a *animationFrames) C() <-chan time.Time {
	return a.ch
}

func (a *animationFrames) Stop() {
	a.stopped = true
}

// Backend implements the Backend interface in the browser.
type Backend struct {
	opts      Options
	config    backend.BackendConfig
	document  js.Value
	canvases  map[string]*canvas
	events    *eventQueue
	refresher *animationFrames
	listeners []listener
}

type listener struct {
	target js.Value
	event  string
	fn     js.Func
}

// New creates a browser backend.
func New(opts Options) *Backend {
	return &Backend{
		opts:     opts,
		canvases: make(map[string]*canvas),
		events:   newEventQueue(eventQueueSize),
	}
}

func (b *Backend) Init(config backend.BackendConfig) error {
	b.config = config
	b.document = js.Global().Get("document")
	if b.document.IsUndefined() {
		return fmt.Errorf("no DOM document available")
	}

	for _, out := range config.Outputs {
		id, ok := b.opts.Canvases[out.Name]
		if !ok {
			return fmt.Errorf("%w: no canvas configured for %q", backend.ErrUnknownSurface, out.Name)
		}
		c, err := b.bindCanvas(out, id, config.Scale)
		if err != nil {
			return err
		}
		b.canvases[out.Name] = c
	}

	b.listen(b.document, "keydown", func(event js.Value) {
		b.events.push(hostEvent{kind: eventKeyDown, code: event.Get("code").String()})
	})
	b.listen(b.document, "keyup", func(event js.Value) {
		b.events.push(hostEvent{kind: eventKeyUp, code: event.Get("code").String()})
	})

	if slider := b.document.Call("getElementById", b.opts.SliderID); b.opts.SliderID != "" && !slider.IsNull() {
		slider.Set("min", throttle.MinSlowdown)
		slider.Set("max", throttle.MaxSlowdown)
		slider.Set("value", config.Slowdown)
		b.listen(slider, "input", func(event js.Value) {
			n, err := strconv.Atoi(event.Get("target").Get("value").String())
			if err != nil {
				return
			}
			b.events.push(hostEvent{kind: eventSlowdown, value: n})
		})
	}

	b.refresher = newAnimationFrames()
	slog.Info("Web backend initialized", "canvases", len(b.canvases))
	return nil
}

func (b *Backend) bindCanvas(out backend.Output, id string, scale int) (*canvas, error) {
	el := b.document.Call("getElementById", id)
	if el.IsNull() {
		return nil, fmt.Errorf("canvas element %q not found", id)
	}
	el.Set("width", out.Geometry.Width)
	el.Set("height", out.Geometry.Height)
	if scale > 1 {
		style := el.Get("style")
		style.Set("width", fmt.Sprintf("%dpx", out.Geometry.Width*scale))
		style.Set("height", fmt.Sprintf("%dpx", out.Geometry.Height*scale))
		style.Set("imageRendering", "pixelated")
	}

	pixels := js.Global().Get("Uint8ClampedArray").New(out.Geometry.Size())
	return &canvas{
		name:      out.Name,
		geometry:  out.Geometry,
		ctx:       el.Call("getContext", "2d"),
		pixels:    pixels,
		imageData: js.Global().Get("ImageData").New(pixels, out.Geometry.Width, out.Geometry.Height),
	}, nil
}

func (b *Backend) listen(target js.Value, event string, handle func(js.Value)) {
	fn := js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) > 0 {
			handle(args[0])
		}
		return nil
	})
	target.Call("addEventListener", event, fn)
	b.listeners = append(b.listeners, listener{target: target, event: event, fn: fn})
}

func (b *Backend) Surface(name string) (video.Surface, error) {
	c, ok := b.canvases[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", backend.ErrUnknownSurface, name)
	}
	return c, nil
}

// Poll dispatches DOM events queued since the last frame.
func (b *Backend) Poll() error {
	b.events.drain(b.config.Callbacks)
	return nil
}

func (b *Backend) Refresher() timing.Refresher {
	return b.refresher
}

// Cleanup stops the animation loop and removes every listener.
func (b *Backend) Cleanup() error {
	if b.refresher != nil {
		b.refresher.Stop()
	}
	for _, l := range b.listeners {
		l.target.Call("removeEventListener", l.event, l.fn)
		l.fn.Release()
	}
	b.listeners = nil
	return nil
}
