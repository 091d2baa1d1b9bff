//go:build sdl2

package sdl2

import (
	"fmt"
	"image"
	"log/slog"
	"unsafe"

	"github.com/valerio/jeebie-host/jeebie/display"
	"github.com/veandco/go-sdl2/sdl"
)

// window is one output surface: an SDL window with a streaming texture the
// size of the output geometry, stretched to the window.
type window struct {
	name     string
	geometry display.Geometry
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	last     *image.RGBA
}

func newWindow(title, name string, g display.Geometry, scale int, vsync bool) (*window, error) {
	w := &window{name: name, geometry: g}

	win, err := sdl.CreateWindow(
		title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(g.Width*scale),
		int32(g.Height*scale),
		sdl.WINDOW_SHOWN|sdl.WINDOW_RESIZABLE,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s window: %w", name, err)
	}
	w.window = win

	flags := uint32(sdl.RENDERER_ACCELERATED)
	if vsync {
		flags |= sdl.RENDERER_PRESENTVSYNC
	}
	renderer, err := sdl.CreateRenderer(win, -1, flags)
	if err != nil {
		w.destroy()
		return nil, fmt.Errorf("failed to create %s renderer: %w", name, err)
	}
	w.renderer = renderer

	// image.RGBA keeps bytes in R, G, B, A order, which SDL calls ABGR8888
	// on little-endian hosts
	texture, err := renderer.CreateTexture(
		sdl.PIXELFORMAT_ABGR8888,
		sdl.TEXTUREACCESS_STREAMING,
		int32(g.Width),
		int32(g.Height),
	)
	if err != nil {
		w.destroy()
		return nil, fmt.Errorf("failed to create %s texture: %w", name, err)
	}
	w.texture = texture
	return w, nil
}

func (w *window) Name() string {
	return w.name
}

// Present uploads img and shows it scaled to the window.
func (w *window) Present(img *image.RGBA) error {
	if img.Rect.Dx() != w.geometry.Width || img.Rect.Dy() != w.geometry.Height {
		return fmt.Errorf("%s: image is %v, texture is %v", w.name, img.Rect.Size(), w.geometry)
	}
	w.last = img

	if err := w.texture.Update(nil, unsafe.Pointer(&img.Pix[0]), img.Stride); err != nil {
		return fmt.Errorf("%s: texture update: %w", w.name, err)
	}

	w.renderer.SetDrawColor(0, 0, 0, display.FullAlpha)
	w.renderer.Clear()
	if err := w.renderer.Copy(w.texture, nil, nil); err != nil {
		slog.Warn("Failed to copy texture", "surface", w.name, "error", err)
	}
	w.renderer.Present()
	return nil
}

func (w *window) destroy() {
	if w.texture != nil {
		w.texture.Destroy()
	}
	if w.renderer != nil {
		w.renderer.Destroy()
	}
	if w.window != nil {
		w.window.Destroy()
	}
}
