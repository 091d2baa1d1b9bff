package display

import "fmt"

// RGBA pixel format constants
const (
	// RGBABytesPerPixel is the number of bytes per pixel in RGBA format
	RGBABytesPerPixel = 4
	// FullAlpha is the alpha value for fully opaque pixels
	FullAlpha = 255
)

// Game Boy screen dimensions
const (
	ScreenWidth  = 160
	ScreenHeight = 144
)

// Tile view dimensions: 384 tiles of 8x8 laid out 16 across and 24 down
const (
	TilePixelSize = 8
	TilesPerRow   = 16
	TileRows      = 24
	TileCount     = TilesPerRow * TileRows

	TileViewWidth  = TilesPerRow * TilePixelSize // 128
	TileViewHeight = TileRows * TilePixelSize    // 192
)

// Backend scaling and window constants
const (
	// DefaultPixelScale is the default scaling factor for Game Boy pixels
	DefaultPixelScale = 4
	// MaxPixelScale bounds window and snapshot scaling
	MaxPixelScale = 16
)

// Surface names shared by the driver and the backends.
const (
	ScreenSurface = "screen"
	TilesSurface  = "tiles"
)

// Geometry is the fixed pixel layout of one output surface.
type Geometry struct {
	Width  int
	Height int
}

var (
	// Screen is the main 160x144 display.
	Screen = Geometry{Width: ScreenWidth, Height: ScreenHeight}
	// Tiles is the 128x192 tile data view.
	Tiles = Geometry{Width: TileViewWidth, Height: TileViewHeight}
)

// Stride returns the number of bytes in one row.
func (g Geometry) Stride() int {
	return g.Width * RGBABytesPerPixel
}

// Size returns the number of bytes in one frame.
func (g Geometry) Size() int {
	return g.Width * g.Height * RGBABytesPerPixel
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d", g.Width, g.Height)
}

// ForSurface returns the geometry of a named surface.
func ForSurface(name string) (Geometry, bool) {
	switch name {
	case ScreenSurface:
		return Screen, true
	case TilesSurface:
		return Tiles, true
	}
	return Geometry{}, false
}
