// Package mask builds the binary weight images used by the blender.
package mask

import (
	"tourist-remover/internal/raster"
	"tourist-remover/pkg/geometry"
)

// Sample values stored in a mask.
const (
	White = 255.0 // take the white (base) image
	Black = 0.0   // take the black (patch) image
)

// BuildRect returns a single-channel height x width mask that is White
// everywhere except the rectangle at (x, y), which is Black.
//
// Both rectangle edges are inclusive: pixel (r, c) is black when
// y <= r <= y+rectHeight and x <= c <= x+rectWidth, so the black region is
// one pixel taller and wider than rectHeight x rectWidth. Existing blend
// parameters depend on that, so it is kept. The rectangle is clipped to the
// image and a negative size yields an all-white mask.
func BuildRect(height, width, x, y, rectWidth, rectHeight int) *raster.Image {
	m := raster.NewFilled(height, width, 1, White)
	if rectWidth < 0 || rectHeight < 0 {
		return m
	}

	r0, r1 := max(y, 0), min(y+rectHeight, height-1)
	c0, c1 := max(x, 0), min(x+rectWidth, width-1)
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			m.Set(r, c, 0, Black)
		}
	}
	return m
}

// FromRect is BuildRect taking the rectangle as a geometry.RectInt.
func FromRect(height, width int, rect geometry.RectInt) *raster.Image {
	return BuildRect(height, width, rect.X, rect.Y, rect.Width, rect.Height)
}

// Inverted returns a copy of m with white and black swapped.
func Inverted(m *raster.Image) *raster.Image {
	out := m.Clone()
	for i, v := range out.Pix {
		out.Pix[i] = White - v
	}
	return out
}
