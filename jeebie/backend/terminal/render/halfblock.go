package render

import (
	"image"
	"image/color"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/image/draw"
)

// Upper half block: foreground paints the top pixel, background the bottom.
const upperHalfBlock = '▀'

// MaxShrink is the largest downscale factor Fit will try.
const MaxShrink = 8

// HalfBlock returns the cell showing two vertically stacked pixels.
func HalfBlock(top, bottom color.RGBA) (rune, tcell.Style) {
	fg := tcell.NewRGBColor(int32(top.R), int32(top.G), int32(top.B))
	if top == bottom {
		return '█', tcell.StyleDefault.Foreground(fg)
	}
	bg := tcell.NewRGBColor(int32(bottom.R), int32(bottom.G), int32(bottom.B))
	return upperHalfBlock, tcell.StyleDefault.Foreground(fg).Background(bg)
}

// CellSize returns the terminal cells needed to show a w x h image shrunk by
// factor, two pixel rows per cell.
func CellSize(w, h, factor int) (cols, rows int) {
	w, h = w/factor, h/factor
	return w, (h + 1) / 2
}

// FitFactor returns the smallest shrink factor at which every image fits side
// by side, separated by gap columns, in cols x rows cells. It returns 0 when
// even MaxShrink does not fit.
func FitFactor(sizes []image.Point, cols, rows, gap int) int {
	for f := 1; f <= MaxShrink; f++ {
		width := gap * (len(sizes) - 1)
		fits := true
		for _, s := range sizes {
			c, r := CellSize(s.X, s.Y, f)
			width += c
			if r > rows {
				fits = false
			}
		}
		if fits && width <= cols {
			return f
		}
	}
	return 0
}

// Shrink scales img down by factor. Factor 1 returns img itself.
func Shrink(img *image.RGBA, factor int) *image.RGBA {
	if factor <= 1 {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()/factor, b.Dy()/factor))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// DrawImage draws one half-block cell per pair of image rows starting at x, y.
func DrawImage(screen tcell.Screen, img *image.RGBA, x, y int) {
	b := img.Bounds()
	for py := b.Min.Y; py < b.Max.Y; py += 2 {
		for px := b.Min.X; px < b.Max.X; px++ {
			top := img.RGBAAt(px, py)
			bottom := top
			if py+1 < b.Max.Y {
				bottom = img.RGBAAt(px, py+1)
			}
			ch, style := HalfBlock(top, bottom)
			screen.SetContent(x+px-b.Min.X, y+(py-b.Min.Y)/2, ch, nil, style)
		}
	}
}

// DrawText writes s at x, y, clipped to width cells.
func DrawText(screen tcell.Screen, x, y, width int, s string, style tcell.Style) {
	i := 0
	for _, ch := range s {
		if i >= width {
			return
		}
		screen.SetContent(x+i, y, ch, nil, style)
		i++
	}
}
