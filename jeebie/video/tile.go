package video

import (
	"fmt"

	"github.com/valerio/jeebie-host/jeebie/display"
)

// TileDataSize is the number of bytes one 8x8 tile occupies in tile data.
const TileDataSize = 16

// TileRow represents one row of a tile pattern (8 pixels).
//
// Game Boy tiles are 8x8 pixels, with 2 bits per pixel allowing 4 colors.
// Each tile row uses 2 bytes in a bit-plane format:
//
//	Byte 1 (Low):  Bit plane 0 - provides bit 0 of each pixel's color
//	Byte 2 (High): Bit plane 1 - provides bit 1 of each pixel's color
//
// Bit 7 represents the leftmost pixel, bit 0 the rightmost:
//
//	Bit:     7 6 5 4 3 2 1 0
//	Pixel:   0 1 2 3 4 5 6 7
//
// Example: Bytes $3C and $7E represent a row:
//
//	Low  (0x3C): 0 0 1 1 1 1 0 0
//	High (0x7E): 0 1 1 1 1 1 1 0
//	            -----------------
//	Colors:      0 2 3 3 3 3 2 0
//
// Reference: https://gbdev.io/pandocs/Tile_Data.html
type TileRow struct {
	Low  byte
	High byte
}

// GetPixel extracts a pixel color (0-3) from the tile row.
// pixelX should be 0-7, where 0 is the leftmost pixel.
func (t TileRow) GetPixel(pixelX int) int {
	bitIndex := uint(7 - pixelX)

	pixel := 0
	if (t.Low>>bitIndex)&1 == 1 {
		pixel |= 1
	}
	if (t.High>>bitIndex)&1 == 1 {
		pixel |= 2
	}

	return pixel
}

// Tile represents a complete 8x8 tile pattern.
type Tile struct {
	Rows [8]TileRow
}

// GetPixel returns the color index (0-3) for a pixel at (x, y).
func (t *Tile) GetPixel(x, y int) int {
	if y < 0 || y >= 8 || x < 0 || x >= 8 {
		return 0
	}
	return t.Rows[y].GetPixel(x)
}

// DecodeTile reads one tile from 16 bytes of tile data.
func DecodeTile(data []byte) Tile {
	var tile Tile
	for row := 0; row < 8; row++ {
		tile.Rows[row] = TileRow{
			Low:  data[row*2],
			High: data[row*2+1],
		}
	}
	return tile
}

// RenderTileSheet decodes every tile in tileData and lays them out 16 per row
// as RGBA pixels into dst, which must hold display.Tiles.Size() bytes.
func RenderTileSheet(tileData []byte, pal Palette, dst []byte) error {
	if len(tileData) < display.TileCount*TileDataSize {
		return fmt.Errorf("tile data too short: %d bytes", len(tileData))
	}
	if len(dst) != display.Tiles.Size() {
		return fmt.Errorf("tile sheet buffer is %d bytes, want %d", len(dst), display.Tiles.Size())
	}

	stride := display.Tiles.Stride()
	for index := 0; index < display.TileCount; index++ {
		tile := DecodeTile(tileData[index*TileDataSize:])
		originX := (index % display.TilesPerRow) * display.TilePixelSize
		originY := (index / display.TilesPerRow) * display.TilePixelSize

		for y := 0; y < display.TilePixelSize; y++ {
			for x := 0; x < display.TilePixelSize; x++ {
				offset := (originY+y)*stride + (originX+x)*display.RGBABytesPerPixel
				pal[tile.GetPixel(x, y)].Put(dst[offset:])
			}
		}
	}
	return nil
}
