package alignment

import (
	"fmt"
	"image"
	"math"
	"runtime"
	"sync"

	"tourist-remover/internal/raster"
	"tourist-remover/pkg/geometry"
)

// MaxCanvasPixels bounds the canvas WarpPerspective will allocate.
const MaxCanvasPixels = 1 << 28

// Canvas describes the plane that holds both the warped secondary image and
// the primary image.
type Canvas struct {
	Width  int
	Height int
	// Offset is where the primary image's origin falls inside the canvas.
	Offset image.Point
	// Translated maps secondary pixels directly to canvas pixels.
	Translated geometry.Homography
}

// CanvasFor computes the union bounding box of the secondary image's corners
// mapped through h and the primary image's own corners. The minimum is
// floored and the maximum ceiled, so the translation into the canvas is a
// whole number of pixels.
func CanvasFor(secondary, primary raster.Size, h geometry.Homography) (Canvas, error) {
	corners := make([]geometry.Point2D, 0, 8)
	for _, p := range geometry.Corners(secondary.Cols, secondary.Rows) {
		q, ok := h.Apply(p)
		if !ok {
			return Canvas{}, fmt.Errorf("corner (%.0f,%.0f) maps to infinity: %w", p.X, p.Y, ErrDegenerateHomography)
		}
		corners = append(corners, q)
	}
	corners = append(corners, geometry.Corners(primary.Cols, primary.Rows)...)

	bb := geometry.BoundingBox(corners)
	xMin, yMin := math.Floor(bb.X), math.Floor(bb.Y)
	xMax, yMax := math.Ceil(bb.MaxX()), math.Ceil(bb.MaxY())
	if xMax-xMin > math.MaxInt32 || yMax-yMin > math.MaxInt32 {
		return Canvas{}, fmt.Errorf("canvas %.0fx%.0f: %w", xMax-xMin, yMax-yMin, ErrDegenerateHomography)
	}

	t := geometry.TranslationHomography(-xMin, -yMin)
	return Canvas{
		Width:      int(xMax - xMin),
		Height:     int(yMax - yMin),
		Offset:     image.Point{X: int(-xMin), Y: int(-yMin)},
		Translated: t.Compose(h),
	}, nil
}

// WarpPerspective maps src through h onto a width x height canvas. Each
// destination pixel is inverse-mapped and sampled bilinearly; destinations
// whose source falls outside src are left at 0 in every channel.
func WarpPerspective(src *raster.Image, h geometry.Homography, width, height int) (*raster.Image, error) {
	if src == nil {
		return nil, fmt.Errorf("warp perspective: %w", raster.ErrNilImage)
	}
	if width*height > MaxCanvasPixels || width < 0 || height < 0 {
		return nil, fmt.Errorf("warp perspective: canvas %dx%d too large", width, height)
	}
	inv, ok := h.Inverse()
	if !ok {
		return nil, fmt.Errorf("warp perspective: %w", ErrDegenerateHomography)
	}

	dst := raster.New(height, width, src.Channels)
	warpWindow(dst, src, inv, image.Point{}, image.Rect(0, 0, width, height))
	return dst, nil
}

// WarpAndCrop registers secondary into primary's pixel frame: it warps
// secondary through h onto the union canvas and crops the canvas at the
// primary's origin to exactly primary's height and width. Pixels without
// secondary coverage, or outside the canvas, hold the sentinel 0.
//
// Only the crop window of the canvas is evaluated; the result is the same as
// warping the whole canvas and cropping it.
func WarpAndCrop(secondary, primary *raster.Image, h geometry.Homography) (*raster.Image, error) {
	if secondary == nil {
		return nil, fmt.Errorf("warp and crop: secondary: %w", raster.ErrNilImage)
	}
	if primary == nil {
		return nil, fmt.Errorf("warp and crop: primary: %w", raster.ErrNilImage)
	}

	canvas, err := CanvasFor(secondary.Size(), primary.Size(), h)
	if err != nil {
		return nil, &AlignmentError{Stage: "warp", Err: err}
	}
	inv, ok := canvas.Translated.Inverse()
	if !ok {
		return nil, &AlignmentError{Stage: "warp", Err: ErrDegenerateHomography}
	}

	out := raster.New(primary.Height, primary.Width, secondary.Channels)

	// Crop window in canvas coordinates, clamped to the canvas.
	window := image.Rect(canvas.Offset.X, canvas.Offset.Y,
		canvas.Offset.X+primary.Width, canvas.Offset.Y+primary.Height).
		Intersect(image.Rect(0, 0, canvas.Width, canvas.Height))
	warpWindow(out, secondary, inv, canvas.Offset, window)
	return out, nil
}

// warpWindow fills the pixels of dst that correspond to canvas rectangle
// window. origin is the canvas position of dst's (0,0). inv maps canvas
// coordinates to src coordinates. Rows are split into stripes across CPUs.
func warpWindow(dst, src *raster.Image, inv geometry.Homography, origin image.Point, window image.Rectangle) {
	if window.Empty() {
		return
	}

	numWorkers := runtime.NumCPU()
	rows := window.Dy()
	rowsPerWorker := (rows + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		startY := window.Min.Y + w*rowsPerWorker
		endY := min(startY+rowsPerWorker, window.Max.Y)
		if startY >= window.Max.Y {
			break
		}

		wg.Add(1)
		go func(yStart, yEnd int) {
			defer wg.Done()
			for v := yStart; v < yEnd; v++ {
				for u := window.Min.X; u < window.Max.X; u++ {
					p, ok := inv.Apply(geometry.Point2D{X: float64(u), Y: float64(v)})
					if !ok {
						continue
					}
					sampleBilinear(src, p, dst.Pixel(v-origin.Y, u-origin.X))
				}
			}
		}(startY, endY)
	}
	wg.Wait()
}

// sampleBilinear writes the bilinear interpolation of src at p into out.
// Positions outside [0,w-1] x [0,h-1] leave out untouched.
func sampleBilinear(src *raster.Image, p geometry.Point2D, out []float64) bool {
	maxX := float64(src.Width - 1)
	maxY := float64(src.Height - 1)
	if p.X < 0 || p.Y < 0 || p.X > maxX || p.Y > maxY {
		return false
	}

	x0 := int(p.X)
	y0 := int(p.Y)
	x1 := min(x0+1, src.Width-1)
	y1 := min(y0+1, src.Height-1)
	fx := p.X - float64(x0)
	fy := p.Y - float64(y0)

	p00 := src.Pixel(y0, x0)
	p01 := src.Pixel(y0, x1)
	p10 := src.Pixel(y1, x0)
	p11 := src.Pixel(y1, x1)
	for ch := range out {
		top := p00[ch]*(1-fx) + p01[ch]*fx
		bottom := p10[ch]*(1-fx) + p11[ch]*fx
		out[ch] = top*(1-fy) + bottom*fy
	}
	return true
}
