// Package raster provides the float sample grids the alignment and blending
// stages operate on. Values are treated as immutable once returned: every
// operation allocates a new buffer.
package raster

import (
	"errors"
	"fmt"
	"math"
)

// ErrNilImage is returned when a required image argument is absent.
var ErrNilImage = errors.New("image is missing")

// Size is a height x width pair.
type Size struct {
	Rows int
	Cols int
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Rows, s.Cols) }

// Plane is a single-channel grid of samples in row-major order.
type Plane struct {
	Rows int
	Cols int
	Pix  []float64
}

// NewPlane allocates a zeroed plane.
func NewPlane(rows, cols int) *Plane {
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}
	return &Plane{Rows: rows, Cols: cols, Pix: make([]float64, rows*cols)}
}

// NewPlaneFilled allocates a plane with every sample set to v.
func NewPlaneFilled(rows, cols int, v float64) *Plane {
	p := NewPlane(rows, cols)
	for i := range p.Pix {
		p.Pix[i] = v
	}
	return p
}

// Size returns the plane's dimensions.
func (p *Plane) Size() Size { return Size{Rows: p.Rows, Cols: p.Cols} }

// At returns the sample at row r, column c.
func (p *Plane) At(r, c int) float64 { return p.Pix[r*p.Cols+c] }

// Set stores v at row r, column c.
func (p *Plane) Set(r, c int, v float64) { p.Pix[r*p.Cols+c] = v }

// Clone returns a deep copy.
func (p *Plane) Clone() *Plane {
	out := &Plane{Rows: p.Rows, Cols: p.Cols, Pix: make([]float64, len(p.Pix))}
	copy(out.Pix, p.Pix)
	return out
}

// CropTopLeft keeps the top-left rows x cols region. It never pads: requesting
// more than the plane holds is an error.
func (p *Plane) CropTopLeft(rows, cols int) (*Plane, error) {
	if rows > p.Rows || cols > p.Cols || rows < 0 || cols < 0 {
		return nil, fmt.Errorf("crop %dx%d from %s: out of range", rows, cols, p.Size())
	}
	if rows == p.Rows && cols == p.Cols {
		return p.Clone(), nil
	}
	out := NewPlane(rows, cols)
	for r := 0; r < rows; r++ {
		copy(out.Pix[r*cols:(r+1)*cols], p.Pix[r*p.Cols:r*p.Cols+cols])
	}
	return out, nil
}

// Image is a dense H x W x C grid of samples, interleaved by channel.
// Samples are nominally in [0,255].
type Image struct {
	Height   int
	Width    int
	Channels int
	Pix      []float64
}

// New allocates a zeroed image.
func New(height, width, channels int) *Image {
	if height < 0 {
		height = 0
	}
	if width < 0 {
		width = 0
	}
	if channels < 1 {
		channels = 1
	}
	return &Image{
		Height:   height,
		Width:    width,
		Channels: channels,
		Pix:      make([]float64, height*width*channels),
	}
}

// NewFilled allocates an image with every sample set to v.
func NewFilled(height, width, channels int, v float64) *Image {
	img := New(height, width, channels)
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// Size returns the image's height and width.
func (m *Image) Size() Size { return Size{Rows: m.Height, Cols: m.Width} }

func (m *Image) offset(r, c int) int { return (r*m.Width + c) * m.Channels }

// At returns channel ch of the pixel at row r, column c.
func (m *Image) At(r, c, ch int) float64 { return m.Pix[m.offset(r, c)+ch] }

// Set stores v in channel ch of the pixel at row r, column c.
func (m *Image) Set(r, c, ch int, v float64) { m.Pix[m.offset(r, c)+ch] = v }

// Pixel returns the samples of one pixel. The slice aliases the image buffer.
func (m *Image) Pixel(r, c int) []float64 {
	o := m.offset(r, c)
	return m.Pix[o : o+m.Channels]
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	out := &Image{Height: m.Height, Width: m.Width, Channels: m.Channels, Pix: make([]float64, len(m.Pix))}
	copy(out.Pix, m.Pix)
	return out
}

// HasData reports whether the pixel at (r, c) carries any non-zero sample.
// All-zero pixels are the "no data" sentinel written by the warper.
func (m *Image) HasData(r, c int) bool {
	for _, v := range m.Pixel(r, c) {
		if v > 0 {
			return true
		}
	}
	return false
}

// Channel extracts channel ch as a plane.
func (m *Image) Channel(ch int) *Plane {
	p := NewPlane(m.Height, m.Width)
	for i := range p.Pix {
		p.Pix[i] = m.Pix[i*m.Channels+ch]
	}
	return p
}

// Split returns one plane per channel.
func (m *Image) Split() []*Plane {
	planes := make([]*Plane, m.Channels)
	for ch := range planes {
		planes[ch] = m.Channel(ch)
	}
	return planes
}

// Merge interleaves equally sized planes into an image.
func Merge(planes []*Plane) (*Image, error) {
	if len(planes) == 0 {
		return nil, fmt.Errorf("merge: no planes")
	}
	size := planes[0].Size()
	for i, p := range planes {
		if p == nil {
			return nil, fmt.Errorf("merge: plane %d: %w", i, ErrNilImage)
		}
		if p.Size() != size {
			return nil, fmt.Errorf("merge: plane %d is %s, want %s", i, p.Size(), size)
		}
	}

	out := New(size.Rows, size.Cols, len(planes))
	for ch, p := range planes {
		for i, v := range p.Pix {
			out.Pix[i*out.Channels+ch] = v
		}
	}
	return out, nil
}

// Crop copies the height x width window whose top-left corner is at (y, x).
// Parts of the window that fall outside the image are left at zero.
func (m *Image) Crop(x, y, width, height int) *Image {
	out := New(height, width, m.Channels)
	for r := 0; r < height; r++ {
		sr := y + r
		if sr < 0 || sr >= m.Height {
			continue
		}
		for c := 0; c < width; c++ {
			sc := x + c
			if sc < 0 || sc >= m.Width {
				continue
			}
			copy(out.Pixel(r, c), m.Pixel(sr, sc))
		}
	}
	return out
}

// Clamp8 clamps v to [0,255] and rounds it.
func Clamp8(v float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return math.Round(v)
}
