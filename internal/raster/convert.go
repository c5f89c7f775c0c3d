package raster

import (
	"image"
	"image/color"
)

// FromImage converts a decoded image to a 3-channel RGB raster with samples in
// [0,255]. Alpha is ignored.
func FromImage(img image.Image) *Image {
	b := img.Bounds()
	out := New(b.Dy(), b.Dx(), 3)

	// Fast paths for the decoder outputs we see most.
	switch src := img.(type) {
	case *image.RGBA:
		copyRGB(out, src.Pix, src.Stride, src.PixOffset(b.Min.X, b.Min.Y))
		return out
	case *image.NRGBA:
		copyRGB(out, src.Pix, src.Stride, src.PixOffset(b.Min.X, b.Min.Y))
		return out
	}

	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			px := out.Pixel(y, x)
			px[0] = float64(c.R)
			px[1] = float64(c.G)
			px[2] = float64(c.B)
		}
	}
	return out
}

// copyRGB reads 4-byte pixels starting at pix[start], stride bytes per row.
func copyRGB(out *Image, pix []byte, stride, start int) {
	for y := 0; y < out.Height; y++ {
		row := pix[start+y*stride:]
		for x := 0; x < out.Width; x++ {
			px := out.Pixel(y, x)
			px[0] = float64(row[x*4+0])
			px[1] = float64(row[x*4+1])
			px[2] = float64(row[x*4+2])
		}
	}
}

// ToImage converts the raster to an 8-bit image. One channel produces
// *image.Gray; three or more produce *image.NRGBA using the first three
// channels as RGB.
func (m *Image) ToImage() image.Image {
	rect := image.Rect(0, 0, m.Width, m.Height)
	if m.Channels < 3 {
		g := image.NewGray(rect)
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				g.Pix[y*g.Stride+x] = uint8(Clamp8(m.At(y, x, 0)))
			}
		}
		return g
	}

	out := image.NewNRGBA(rect)
	for y := 0; y < m.Height; y++ {
		row := out.Pix[y*out.Stride:]
		for x := 0; x < m.Width; x++ {
			px := m.Pixel(y, x)
			row[x*4+0] = uint8(Clamp8(px[0]))
			row[x*4+1] = uint8(Clamp8(px[1]))
			row[x*4+2] = uint8(Clamp8(px[2]))
			row[x*4+3] = 255
		}
	}
	return out
}

// Gray returns a single-channel luminance plane (ITU-R BT.601 weights).
// Single-channel images are copied as-is.
func (m *Image) Gray() *Plane {
	if m.Channels < 3 {
		return m.Channel(0)
	}
	p := NewPlane(m.Height, m.Width)
	for i := range p.Pix {
		px := m.Pix[i*m.Channels:]
		p.Pix[i] = 0.299*px[0] + 0.587*px[1] + 0.114*px[2]
	}
	return p
}
