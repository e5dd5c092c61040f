package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ParseHex parses #rgb, #rgba, #rrggbb and #rrggbbaa colours.
func ParseHex(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	expand := func(c byte) string { return string([]byte{c, c}) }
	switch len(s) {
	case 3:
		s = expand(s[0]) + expand(s[1]) + expand(s[2]) + "ff"
	case 4:
		s = expand(s[0]) + expand(s[1]) + expand(s[2]) + expand(s[3])
	case 6:
		s += "ff"
	case 8:
	default:
		return color.NRGBA{}, fmt.Errorf("render: invalid colour %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("render: invalid colour %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// withOpacity scales the alpha channel. Opacity 0 or >= 1 leaves c unchanged.
func withOpacity(c color.NRGBA, opacity float64) color.NRGBA {
	if opacity <= 0 || opacity >= 1 {
		return c
	}
	c.A = uint8(float64(c.A) * opacity)
	return c
}

// Mix blends two hex colours; t=0 yields a, t=1 yields b. Invalid input falls back to a.
func Mix(a, b string, t float64) string {
	ca, err := ParseHex(a)
	if err != nil {
		return a
	}
	cb, err := ParseHex(b)
	if err != nil {
		return a
	}
	lerp := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*t) }
	return fmt.Sprintf("#%02x%02x%02x%02x", lerp(ca.R, cb.R), lerp(ca.G, cb.G), lerp(ca.B, cb.B), lerp(ca.A, cb.A))
}
