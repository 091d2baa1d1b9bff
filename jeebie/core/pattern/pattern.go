// Package pattern is a self-contained execution core that draws test patterns
// instead of running a ROM. It keeps its screen, tile data and tile view in a
// relocatable memory.Arena and can be told to move them periodically, which
// makes it useful for exercising the host driver's memory handling.
package pattern

import (
	"fmt"
	"log/slog"

	"github.com/valerio/jeebie-host/jeebie/core"
	"github.com/valerio/jeebie-host/jeebie/display"
	"github.com/valerio/jeebie-host/jeebie/memory"
	"github.com/valerio/jeebie-host/jeebie/video"
)

// Test pattern constants
const (
	// PatternCount is the number of available test patterns
	PatternCount = 4
	// TileSize is the size of tiles for checkerboard and diagonal patterns
	TileSize = 8
	// StripeWidth is the width of stripes in the stripe pattern
	StripeWidth = 4
	// AnimationFrames is the number of frames between pattern animation steps
	AnimationFrames = 30
	// StripeSpeed is the animation speed for stripe patterns
	StripeSpeed = 2
	// DiagonalSpeed is the animation speed for diagonal patterns
	DiagonalSpeed = 4
)

var patternNames = [PatternCount]string{"Checkerboard", "Gradient", "Stripes", "Diagonal"}

// Options configures a pattern core.
type Options struct {
	// RelocateEvery moves every buffer to a fresh offset after this many
	// ticks, growing the arena as needed. Zero disables relocation.
	RelocateEvery int
	// ArenaSize is the initial size of the shared memory region.
	ArenaSize int
}

// Core draws animated test patterns into shared memory.
type Core struct {
	mem     *memory.Arena
	screen  uint32
	tiles   uint32
	tileMap uint32

	patternType      int
	animationCounter int
	scrollX, scrollY int
	palette          video.Palette
	joypad           Joypad

	relocateEvery int
	relocations   int
}

// New allocates the core's buffers and draws the first pattern.
func New(opts Options) (*Core, error) {
	c := &Core{
		mem:           memory.NewArena(opts.ArenaSize),
		palette:       video.DefaultPalette,
		relocateEvery: opts.RelocateEvery,
	}

	var err error
	if c.tileMap, err = c.mem.Alloc(display.TileCount * video.TileDataSize); err != nil {
		return nil, fmt.Errorf("allocate tile data: %w", err)
	}
	if c.screen, err = c.mem.Alloc(uint32(display.Screen.Size())); err != nil {
		return nil, fmt.Errorf("allocate screen: %w", err)
	}
	if c.tiles, err = c.mem.Alloc(uint32(display.Tiles.Size())); err != nil {
		return nil, fmt.Errorf("allocate tile view: %w", err)
	}

	c.generateTileData()
	if err := c.render(); err != nil {
		return nil, err
	}
	return c, nil
}

// Tick advances the animation by one frame.
func (c *Core) Tick() error {
	c.animationCounter++

	if dx, dy := c.joypad.Direction(); dx != 0 || dy != 0 {
		c.scrollX += dx
		c.scrollY += dy
	}

	if c.relocateEvery > 0 && c.animationCounter%c.relocateEvery == 0 {
		if err := c.relocate(); err != nil {
			return err
		}
	}

	if c.animationCounter%AnimationFrames == 0 {
		c.animateTileData()
	}
	return c.render()
}

// KeyDown updates the joypad; Start cycles the pattern, A inverts the palette.
func (c *Core) KeyDown(code string) error {
	button, ok := c.joypad.Press(code)
	if !ok {
		return nil
	}
	switch button {
	case ButtonStart:
		c.CyclePattern()
	case ButtonA:
		c.palette = Inverted(c.palette)
	}
	return nil
}

// KeyUp releases a joypad button.
func (c *Core) KeyUp(code string) error {
	c.joypad.Release(code)
	return nil
}

func (c *Core) Framebuffer() (core.Descriptor, error) {
	return core.Descriptor{Ptr: c.screen, Len: uint32(display.Screen.Size())}, nil
}

func (c *Core) Tileset() (core.Descriptor, error) {
	return core.Descriptor{Ptr: c.tiles, Len: uint32(display.Tiles.Size())}, nil
}

func (c *Core) Memory() core.Region {
	return c.mem
}

// CyclePattern switches to the next test pattern.
func (c *Core) CyclePattern() {
	c.patternType = (c.patternType + 1) % PatternCount
	slog.Info("Switched to test pattern", "pattern", patternNames[c.patternType])
}

// PatternName returns the name of the active pattern.
func (c *Core) PatternName() string {
	return patternNames[c.patternType]
}

// Relocations returns how many times the buffers were moved.
func (c *Core) Relocations() int {
	return c.relocations
}

// Joypad exposes the button state, mostly for tests.
func (c *Core) Joypad() *Joypad {
	return &c.joypad
}

func (c *Core) relocate() error {
	var err error
	if c.tileMap, err = c.mem.Relocate(c.tileMap, display.TileCount*video.TileDataSize); err != nil {
		return fmt.Errorf("relocate tile data: %w", err)
	}
	if c.screen, err = c.mem.Relocate(c.screen, uint32(display.Screen.Size())); err != nil {
		return fmt.Errorf("relocate screen: %w", err)
	}
	if c.tiles, err = c.mem.Relocate(c.tiles, uint32(display.Tiles.Size())); err != nil {
		return fmt.Errorf("relocate tile view: %w", err)
	}
	c.relocations++
	slog.Debug("Pattern core buffers relocated",
		"screen", c.screen, "tiles", c.tiles, "arena_size", c.mem.Size(), "generation", c.mem.Generation())
	return nil
}

func (c *Core) render() error {
	screen, ok := c.mem.Read(c.screen, uint32(display.Screen.Size()))
	if !ok {
		return fmt.Errorf("screen buffer 0x%08X outside arena", c.screen)
	}
	c.drawPattern(screen)

	tileData, ok := c.mem.Read(c.tileMap, display.TileCount*video.TileDataSize)
	if !ok {
		return fmt.Errorf("tile data 0x%08X outside arena", c.tileMap)
	}
	sheet, ok := c.mem.Read(c.tiles, uint32(display.Tiles.Size()))
	if !ok {
		return fmt.Errorf("tile view 0x%08X outside arena", c.tiles)
	}
	return video.RenderTileSheet(tileData, c.palette, sheet)
}

// drawPattern fills an RGBA screen buffer with the active pattern.
func (c *Core) drawPattern(dst []byte) {
	frame := c.animationCounter / AnimationFrames
	stride := display.Screen.Stride()

	for y := 0; y < display.ScreenHeight; y++ {
		for x := 0; x < display.ScreenWidth; x++ {
			px, py := x+c.scrollX, y+c.scrollY
			var shade byte
			switch c.patternType {
			case 0: // Checkerboard
				if (floorDiv(px, TileSize)+floorDiv(py, TileSize))%2 != 0 {
					shade = 3
				}
			case 1: // Gradient
				shade = 3 - byte(mod(px, display.ScreenWidth)*4/display.ScreenWidth)
			case 2: // Vertical stripes, animated
				if floorDiv(px+frame*StripeSpeed, StripeWidth)%2 != 0 {
					shade = 2
				}
			case 3: // Diagonal lines, animated
				shade = 1
				if floorDiv(px+py+frame*DiagonalSpeed, TileSize)%2 != 0 {
					shade = 2
				}
			}
			c.palette[shade].Put(dst[y*stride+x*display.RGBABytesPerPixel:])
		}
	}
}

// generateTileData fills tile data with recognisable tiles: each tile index
// is drawn as a bar whose length and shade come from the index bits.
func (c *Core) generateTileData() {
	data, ok := c.mem.Read(c.tileMap, display.TileCount*video.TileDataSize)
	if !ok {
		return
	}
	for index := 0; index < display.TileCount; index++ {
		tile := data[index*video.TileDataSize : (index+1)*video.TileDataSize]
		for row := 0; row < 8; row++ {
			bits := byte(0xFF) << uint((index+row)%8)
			tile[row*2] = bits
			if (index/8)%2 == 1 {
				tile[row*2+1] = bits
			} else {
				tile[row*2+1] = 0
			}
		}
		// outline every tile so the grid is visible
		tile[0], tile[1] = 0xFF, 0xFF
	}
}

// animateTileData rotates the rows of every tile by one.
func (c *Core) animateTileData() {
	data, ok := c.mem.Read(c.tileMap, display.TileCount*video.TileDataSize)
	if !ok {
		return
	}
	for index := 0; index < display.TileCount; index++ {
		tile := data[index*video.TileDataSize : (index+1)*video.TileDataSize]
		low, high := tile[2], tile[3]
		copy(tile[2:], tile[4:])
		tile[14], tile[15] = low, high
	}
}

// Inverted swaps light and dark shades of a palette.
func Inverted(p video.Palette) video.Palette {
	return video.Palette{p[3], p[2], p[1], p[0]}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
