package video

import "github.com/valerio/jeebie-host/jeebie/display"

// GBColor is a Game Boy shade encoded as 0xAARRGGBB.
type GBColor uint32

const (
	WhiteColor     GBColor = 0xFFFFFFFF
	LightGreyColor GBColor = 0xFF989898
	DarkGreyColor  GBColor = 0xFF4C4C4C
	BlackColor     GBColor = 0xFF000000
)

// RGBA returns the colour's channels.
func (c GBColor) RGBA() (r, g, b, a uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c), uint8(c >> 24)
}

// Put writes the colour as four RGBA bytes at the start of dst.
func (c GBColor) Put(dst []byte) {
	_ = dst[display.RGBABytesPerPixel-1]
	dst[0], dst[1], dst[2], dst[3] = c.RGBA()
}

// Palette maps the four 2-bit colour indices to shades.
type Palette [4]GBColor

// DefaultPalette is the identity mapping, BGP = 0xE4.
var DefaultPalette = DecodePalette(0xE4)

// DecodePalette expands a palette register (BGP/OBP0/OBP1) where bits 1-0
// give the shade for index 0, bits 3-2 for index 1 and so on.
func DecodePalette(reg byte) Palette {
	var p Palette
	for i := range p {
		p[i] = ByteToColor((reg >> (i * 2)) & 0x03)
	}
	return p
}

// ByteToColor converts a 2-bit shade number into a colour, 0 being white.
func ByteToColor(shade byte) GBColor {
	switch shade & 0x03 {
	case 0:
		return WhiteColor
	case 1:
		return LightGreyColor
	case 2:
		return DarkGreyColor
	default:
		return BlackColor
	}
}
