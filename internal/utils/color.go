package utils

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ParseHexColor parses "#RRGGBB" or "#RRGGBBAA" (leading '#' optional) into
// an RGBA color. Alpha defaults to 255 when omitted.
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 && len(s) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}

	value, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}

	c := color.RGBA{A: 255}
	if len(s) == 8 {
		c.A = uint8(value & 0xFF)
		value >>= 8
	}
	c.B = uint8(value & 0xFF)
	c.G = uint8(value >> 8 & 0xFF)
	c.R = uint8(value >> 16 & 0xFF)
	return c, nil
}
