// Package colorutil provides shared color utilities for overlays and config.
package colorutil

import (
	"fmt"
	"image/color"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Common overlay colors used throughout the application.
var (
	Black   = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Cyan    = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	Magenta = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	Blue    = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	Green   = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Red     = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Yellow  = color.RGBA{R: 255, G: 255, B: 0, A: 255}
)

var named = map[string]color.RGBA{
	"black":   Black,
	"white":   White,
	"cyan":    Cyan,
	"magenta": Magenta,
	"blue":    Blue,
	"green":   Green,
	"red":     Red,
	"yellow":  Yellow,
}

// Parse accepts a color name ("yellow") or a hex triplet ("#ffcc00").
func Parse(s string) (color.RGBA, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if c, ok := named[key]; ok {
		return c, nil
	}
	if !strings.HasPrefix(key, "#") {
		key = "#" + key
	}
	c, err := colorful.Hex(key)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// Factors returns the color's RGB components scaled to [0,1], for use as
// per-channel multipliers.
func Factors(c color.Color) [3]float64 {
	cf, ok := colorful.MakeColor(c)
	if !ok {
		// Fully transparent.
		return [3]float64{}
	}
	return [3]float64{cf.R, cf.G, cf.B}
}

// Hex formats c as "#rrggbb".
func Hex(c color.Color) string {
	cf, _ := colorful.MakeColor(c)
	return cf.Hex()
}
