// Package blend implements multi-band (Laplacian pyramid) blending of two
// images under a mask.
//
// The white image is taken where the mask is 1 (255), the black image where
// it is 0. Each band of the two images is mixed under a matching Gaussian
// band of the mask and the result is collapsed back to full resolution, so
// the seam is spread over a width that grows with the band's scale.
package blend

import (
	"fmt"
	"log"
	"math"

	"golang.org/x/sync/errgroup"

	"tourist-remover/internal/raster"
)

// MinTopSize is the smallest edge, in pixels, the coarsest pyramid level may have.
const MinTopSize = 16

// Options configures a Blender.
type Options struct {
	A          float64 // generating kernel centre weight
	Border     Border  // how image convolution reads past the plane edge
	Sequential bool    // process channels one after another instead of concurrently
	Debug      bool    // log pyramid depth and sizes
}

// DefaultOptions returns the standard blending options: a = 0.4, zero
// padding for the image bands, channels in parallel. The mask pyramid always
// reflects at the frame.
func DefaultOptions() Options {
	return Options{
		A:      DefaultA,
		Border: BorderZero,
	}
}

// Blender runs pyramid operations with a fixed kernel and border policy.
// It holds no mutable state and is safe for concurrent use.
type Blender struct {
	opts   Options
	kernel [5]float64
}

// New creates a Blender.
func New(opts Options) *Blender {
	if opts.A == 0 {
		opts.A = DefaultA
	}
	return &Blender{opts: opts, kernel: Kernel(opts.A)}
}

// Options returns the blender's configuration.
func (b *Blender) Options() Options { return b.opts }

var std = New(DefaultOptions())

// Reduce smooths and halves p using the default options.
func Reduce(p *raster.Plane) *raster.Plane { return std.Reduce(p) }

// Expand doubles p using the default options.
func Expand(p *raster.Plane) *raster.Plane { return std.Expand(p) }

// GaussianPyramid builds a Gaussian pyramid using the default options.
func GaussianPyramid(p *raster.Plane, levels int) Pyramid { return std.GaussianPyramid(p, levels) }

// LaplacianPyramid builds a Laplacian pyramid using the default options.
func LaplacianPyramid(gauss Pyramid) (Pyramid, error) { return std.LaplacianPyramid(gauss) }

// Collapse reconstructs a plane using the default options.
func Collapse(pyr Pyramid) (*raster.Plane, error) { return std.Collapse(pyr) }

// Blend blends using the default options.
func Blend(white, black, mask *raster.Image) (*raster.Image, error) {
	return std.Blend(white, black, mask)
}

// Depth returns the number of reductions used for an image of the given
// size: floor(log2(min(rows, cols))) - 4, so the coarsest level keeps at
// least MinTopSize pixels along its shorter edge. Never negative.
func Depth(rows, cols int) int {
	short := min(rows, cols)
	if short < MinTopSize {
		return 0
	}
	d := int(math.Floor(math.Log2(float64(short)))) - 4
	return max(d, 0)
}

// RunBlend blends one channel. black and white hold samples in [0,255];
// mask holds weights in [0,1]. The result is clamped to [0,255] and rounded.
func (b *Blender) RunBlend(black, white, mask *raster.Plane) (*raster.Plane, error) {
	if black == nil || white == nil || mask == nil {
		return nil, fmt.Errorf("run blend: %w", ErrInputMissing)
	}
	if black.Size() != white.Size() {
		return nil, sizeMismatch("run blend", "black", -1, white.Size(), black.Size())
	}
	if mask.Size() != white.Size() {
		return nil, sizeMismatch("run blend", "mask", -1, white.Size(), mask.Size())
	}

	depth := Depth(white.Rows, white.Cols)

	gaussBlack := b.GaussianPyramid(black, depth)
	gaussWhite := b.GaussianPyramid(white, depth)
	gaussMask := b.maskPyramid(mask, depth)

	lapBlack, err := b.LaplacianPyramid(gaussBlack)
	if err != nil {
		return nil, err
	}
	lapWhite, err := b.LaplacianPyramid(gaussWhite)
	if err != nil {
		return nil, err
	}

	blended, err := BlendPyramids(lapWhite, lapBlack, gaussMask)
	if err != nil {
		return nil, err
	}

	out, err := b.Collapse(blended)
	if err != nil {
		return nil, err
	}
	for i, v := range out.Pix {
		out.Pix[i] = raster.Clamp8(v)
	}
	return out, nil
}

// Blend mixes white and black under mask: white where the mask is white,
// black where it is black. All three must share height and width; white and
// black must have the same channel count. The mask is either single-channel
// (shared by every channel) or has as many channels as the images, and may
// be stored as 0/255 or as 0/1.
func (b *Blender) Blend(white, black, mask *raster.Image) (*raster.Image, error) {
	const op = "blend"
	switch {
	case white == nil:
		return nil, fmt.Errorf("%s: white image: %w", op, ErrInputMissing)
	case black == nil:
		return nil, fmt.Errorf("%s: black image: %w", op, ErrInputMissing)
	case mask == nil:
		return nil, fmt.Errorf("%s: mask: %w", op, ErrInputMissing)
	}

	if black.Size() != white.Size() {
		return nil, sizeMismatch(op, "black image", -1, white.Size(), black.Size())
	}
	if mask.Size() != white.Size() {
		return nil, sizeMismatch(op, "mask", -1, white.Size(), mask.Size())
	}
	if black.Channels != white.Channels {
		return nil, &ShapeMismatchError{Op: op, Level: -1, What: "black channels",
			Want: fmt.Sprint(white.Channels), Got: fmt.Sprint(black.Channels)}
	}
	if mask.Channels != 1 && mask.Channels != white.Channels {
		return nil, &ShapeMismatchError{Op: op, Level: -1, What: "mask channels",
			Want: fmt.Sprintf("1 or %d", white.Channels), Got: fmt.Sprint(mask.Channels)}
	}

	if b.opts.Debug {
		log.Printf("blend: %s x%d, depth %d, border %s",
			white.Size(), white.Channels, Depth(white.Height, white.Width), b.opts.Border)
	}

	weights := normalizeMask(mask)
	whites := white.Split()
	blacks := black.Split()
	out := make([]*raster.Plane, white.Channels)

	run := func(ch int) error {
		w := weights[0]
		if len(weights) > 1 {
			w = weights[ch]
		}
		p, err := b.RunBlend(blacks[ch], whites[ch], w)
		if err != nil {
			return fmt.Errorf("%s: channel %d: %w", op, ch, err)
		}
		out[ch] = p
		return nil
	}

	if b.opts.Sequential {
		for ch := range out {
			if err := run(ch); err != nil {
				return nil, err
			}
		}
	} else {
		var g errgroup.Group
		for ch := range out {
			g.Go(func() error { return run(ch) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	return raster.Merge(out)
}

// normalizeMask converts the mask to [0,1] weight planes. A mask with any
// sample above 1 is treated as 0..255.
func normalizeMask(mask *raster.Image) []*raster.Plane {
	scale := 1.0
	for _, v := range mask.Pix {
		if v > 1 {
			scale = 1.0 / 255
			break
		}
	}

	planes := mask.Split()
	for _, p := range planes {
		for i, v := range p.Pix {
			p.Pix[i] = math.Min(math.Max(v*scale, 0), 1)
		}
	}
	return planes
}
