package blend

import (
	"fmt"
	"strconv"

	"tourist-remover/internal/raster"
)

// Pyramid is a sequence of planes; index 0 is full resolution and each
// following level is half the size of the one before (rounded up).
type Pyramid []*raster.Plane

// Levels returns the number of reductions, i.e. len(p)-1.
func (p Pyramid) Levels() int { return len(p) - 1 }

// Top returns the smallest level.
func (p Pyramid) Top() *raster.Plane { return p[len(p)-1] }

// Reduce smooths p and halves it to ceil(rows/2) x ceil(cols/2).
func (b *Blender) Reduce(p *raster.Plane) *raster.Plane {
	return reduce(p, b.kernel, b.opts.Border)
}

// Expand doubles p to 2*rows x 2*cols.
func (b *Blender) Expand(p *raster.Plane) *raster.Plane {
	return expand(p, b.kernel, b.opts.Border)
}

// GaussianPyramid returns [p, reduce(p), reduce(reduce(p)), ...] with
// levels+1 entries. Level 0 is p itself. Negative levels are treated as 0.
func (b *Blender) GaussianPyramid(p *raster.Plane, levels int) Pyramid {
	if levels < 0 {
		levels = 0
	}
	pyr := make(Pyramid, levels+1)
	pyr[0] = p
	for i := 1; i <= levels; i++ {
		pyr[i] = b.Reduce(pyr[i-1])
	}
	return pyr
}

// maskPyramid builds the Gaussian pyramid of a weight plane. It always
// reflects at the frame so a constant mask keeps its value on every level,
// whatever border the image bands use.
func (b *Blender) maskPyramid(m *raster.Plane, levels int) Pyramid {
	if levels < 0 {
		levels = 0
	}
	pyr := make(Pyramid, levels+1)
	pyr[0] = m
	for i := 1; i <= levels; i++ {
		pyr[i] = reduce(pyr[i-1], b.kernel, BorderReflect101)
	}
	return pyr
}

// LaplacianPyramid turns a Gaussian pyramid into band-pass residuals. The
// expanded coarser level is cropped from the top-left to the finer level's
// shape before subtracting. The last level is a copy of the Gaussian top.
func (b *Blender) LaplacianPyramid(gauss Pyramid) (Pyramid, error) {
	if len(gauss) == 0 {
		return nil, fmt.Errorf("laplacian pyramid: empty gaussian pyramid")
	}

	lap := make(Pyramid, len(gauss))
	for i := 0; i < len(gauss)-1; i++ {
		fine := gauss[i]
		up, err := b.Expand(gauss[i+1]).CropTopLeft(fine.Rows, fine.Cols)
		if err != nil {
			return nil, fmt.Errorf("laplacian pyramid: level %d: %w", i, err)
		}
		for j, v := range fine.Pix {
			up.Pix[j] = v - up.Pix[j]
		}
		lap[i] = up
	}
	lap[len(gauss)-1] = gauss.Top().Clone()
	return lap, nil
}

// Collapse reconstructs the full-resolution plane from a Laplacian pyramid,
// starting at the smallest level.
func (b *Blender) Collapse(pyr Pyramid) (*raster.Plane, error) {
	if len(pyr) == 0 {
		return nil, fmt.Errorf("collapse: empty pyramid")
	}

	acc := pyr.Top().Clone()
	for i := len(pyr) - 2; i >= 0; i-- {
		next := pyr[i]
		up, err := b.Expand(acc).CropTopLeft(next.Rows, next.Cols)
		if err != nil {
			return nil, fmt.Errorf("collapse: level %d: %w", i, err)
		}
		for j, v := range next.Pix {
			up.Pix[j] += v
		}
		acc = up
	}
	return acc, nil
}

// BlendPyramids combines two Laplacian pyramids level by level under a
// Gaussian pyramid of a [0,1] mask: out = mask*white + (1-mask)*black.
func BlendPyramids(white, black, mask Pyramid) (Pyramid, error) {
	const op = "blend pyramids"
	if len(black) != len(white) {
		return nil, &ShapeMismatchError{Op: op, Level: -1, What: "black pyramid levels",
			Want: strconv.Itoa(len(white)), Got: strconv.Itoa(len(black))}
	}
	if len(mask) != len(white) {
		return nil, &ShapeMismatchError{Op: op, Level: -1, What: "mask pyramid levels",
			Want: strconv.Itoa(len(white)), Got: strconv.Itoa(len(mask))}
	}

	out := make(Pyramid, len(white))
	for i := range white {
		w, k, m := white[i], black[i], mask[i]
		if k.Size() != w.Size() {
			return nil, sizeMismatch(op, "black level", i, w.Size(), k.Size())
		}
		if m.Size() != w.Size() {
			return nil, sizeMismatch(op, "mask level", i, w.Size(), m.Size())
		}

		level := raster.NewPlane(w.Rows, w.Cols)
		for j := range level.Pix {
			a := m.Pix[j]
			level.Pix[j] = a*w.Pix[j] + (1-a)*k.Pix[j]
		}
		out[i] = level
	}
	return out, nil
}
