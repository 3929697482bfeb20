package palette

import (
	"fmt"
	"hash/crc32"
	"image/color"
)

// Default is the fallback palette, picked with a Munsell color picker. The
// first six are very bright, the last three darker.
var Default = Palette{
	"#FF00A6", // Magenta
	"#FF0000", // Red
	"#FFDD00", // Yellow
	"#00FF00", // Green
	"#00CFE0", // Cyan
	"#FF9300", // Orange
	"#004500", // Dark green
	"#002492", // Dark blue
	"#8B0000", // Dark red
}

// Palette is an ordered list of hex colors.
type Palette []string

// ColorFor deterministically picks a palette color for key by taking the
// CRC-32 (IEEE) checksum of its string form modulo the palette size.
func (p Palette) ColorFor(key any) string {
	if len(p) == 0 {
		return ""
	}
	sum := crc32.ChecksumIEEE([]byte(fmt.Sprint(key)))
	return p[sum%uint32(len(p))]
}

// Contains reports whether hex is one of the palette's colors.
func (p Palette) Contains(hex string) bool {
	for _, c := range p {
		if c == hex {
			return true
		}
	}
	return false
}

// ColorFor picks a color for key from the Default palette.
func ColorFor(key any) string {
	return Default.ColorFor(key)
}

// ParseHex parses a "#RRGGBB" or "#RRGGBBAA" color.
func ParseHex(s string) (color.Color, error) {
	var r, g, b, a uint8 = 0, 0, 0, 255
	switch len(s) {
	case 7:
		if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
			return color.Black, fmt.Errorf("invalid color %q: %w", s, err)
		}
	case 9:
		if _, err := fmt.Sscanf(s, "#%02x%02x%02x%02x", &r, &g, &b, &a); err != nil {
			return color.Black, fmt.Errorf("invalid color %q: %w", s, err)
		}
	default:
		return color.Black, fmt.Errorf("invalid color %q: expected #RRGGBB", s)
	}
	return color.NRGBA{R: r, G: g, B: b, A: a}, nil
}
