package image

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"tourist-remover/internal/raster"
	"tourist-remover/pkg/colorutil"
	"tourist-remover/pkg/geometry"
)

// DefaultPreviewSide is the longest side of a preview image.
const DefaultPreviewSide = 800

func checkOverlay(primary, aligned *raster.Image) error {
	if primary == nil || aligned == nil {
		return raster.ErrNilImage
	}
	if primary.Size() != aligned.Size() || primary.Channels != aligned.Channels {
		return fmt.Errorf("overlay: primary %s x%d vs aligned %s x%d",
			primary.Size(), primary.Channels, aligned.Size(), aligned.Channels)
	}
	return nil
}

// SimpleMerge pastes every aligned pixel that carries data over the primary.
func SimpleMerge(primary, aligned *raster.Image) (*raster.Image, error) {
	if err := checkOverlay(primary, aligned); err != nil {
		return nil, err
	}
	out := primary.Clone()
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			if aligned.HasData(y, x) {
				copy(out.Pixel(y, x), aligned.Pixel(y, x))
			}
		}
	}
	return out, nil
}

// Highlight marks where the aligned image has coverage by multiplying those
// pixels with tint. highlight tints the primary; merged tints the simple merge,
// so the covered region shows the aligned pixels.
func Highlight(primary, aligned *raster.Image, tint color.Color) (highlight, merged *raster.Image, err error) {
	if err := checkOverlay(primary, aligned); err != nil {
		return nil, nil, err
	}
	f := colorutil.Factors(tint)

	highlight = primary.Clone()
	merged = primary.Clone()
	for y := 0; y < primary.Height; y++ {
		for x := 0; x < primary.Width; x++ {
			if !aligned.HasData(y, x) {
				continue
			}
			hp := highlight.Pixel(y, x)
			mp := merged.Pixel(y, x)
			ap := aligned.Pixel(y, x)
			for ch := range hp {
				k := f[min(ch, 2)]
				hp[ch] = raster.Clamp8(hp[ch] * k)
				mp[ch] = raster.Clamp8(ap[ch] * k)
			}
		}
	}
	return highlight, merged, nil
}

// OutlinePatch draws the outline of rect over img. The outline spans
// (x, y) to (x+width, y+height).
func OutlinePatch(img *raster.Image, rect geometry.RectInt, c color.Color, lineWidth float64) (image.Image, error) {
	if img == nil {
		return nil, raster.ErrNilImage
	}
	if lineWidth <= 0 {
		lineWidth = 2
	}
	dc := gg.NewContextForImage(img.ToImage())
	dc.SetColor(c)
	dc.SetLineWidth(lineWidth)
	dc.DrawRectangle(float64(rect.X), float64(rect.Y), float64(rect.Width), float64(rect.Height))
	dc.Stroke()
	return dc.Image(), nil
}

// Fit scales img down so its longest side is at most maxSide. Smaller images
// are returned unchanged.
func Fit(img image.Image, maxSide int) image.Image {
	if maxSide <= 0 {
		maxSide = DefaultPreviewSide
	}
	b := img.Bounds()
	longest := max(b.Dx(), b.Dy())
	if longest <= maxSide {
		return img
	}

	scale := float64(maxSide) / float64(longest)
	w := max(1, int(float64(b.Dx())*scale+0.5))
	h := max(1, int(float64(b.Dy())*scale+0.5))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
