package raster

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// White is the default board background.
var White = colornames.White

// ParseColor accepts #RGB, #RRGGBB, #RRGGBBAA and the CSS colour names.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "transparent" {
		return color.RGBA{}, nil
	}
	if c, ok := colornames.Map[s]; ok {
		return c, nil
	}
	if !strings.HasPrefix(s, "#") {
		return color.RGBA{}, fmt.Errorf("unsupported color %q", s)
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("unsupported color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	c := color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
	return color.RGBAModel.Convert(c).(color.RGBA), nil
}

// MustColor parses s and falls back to fallback when s is not a color.
func MustColor(s string, fallback color.RGBA) color.RGBA {
	c, err := ParseColor(s)
	if err != nil {
		return fallback
	}
	return c
}

// Hex formats c as #RRGGBB, dropping alpha.
func Hex(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B)
}
