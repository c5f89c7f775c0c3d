package blend

import (
	"fmt"

	"tourist-remover/internal/raster"
)

// DefaultA is the centre weight of the generating kernel.
const DefaultA = 0.4

// Border selects how samples outside a plane are read during convolution.
type Border int

const (
	// BorderZero treats everything outside the plane as 0.
	BorderZero Border = iota
	// BorderReflect101 mirrors about the edge sample without repeating it
	// (…, 2, 1, | 0, 1, 2, …).
	BorderReflect101
)

func (b Border) String() string {
	switch b {
	case BorderZero:
		return "zero"
	case BorderReflect101:
		return "reflect101"
	default:
		return "unknown"
	}
}

// ParseBorder maps a config name to a Border.
func ParseBorder(s string) (Border, error) {
	switch s {
	case "", "zero":
		return BorderZero, nil
	case "reflect", "reflect101":
		return BorderReflect101, nil
	default:
		return BorderZero, fmt.Errorf("unknown border mode %q", s)
	}
}

// Kernel returns the 5-tap generating kernel
// [0.25-a/2, 0.25, a, 0.25, 0.25-a/2]. The 5x5 kernel is its outer product.
func Kernel(a float64) [5]float64 {
	return [5]float64{0.25 - a/2, 0.25, a, 0.25, 0.25 - a/2}
}

// resolve maps index i of a line of length n to the sample actually read.
// ok is false when the sample is an implicit zero.
func (b Border) resolve(i, n int) (idx int, ok bool) {
	if i >= 0 && i < n {
		return i, true
	}
	if b == BorderZero || n == 0 {
		return 0, false
	}
	if n == 1 {
		return 0, true
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i, true
}

// reduce filters p with the separable kernel and keeps every second row and
// column starting at 0. Only the kept positions are evaluated.
func reduce(p *raster.Plane, k [5]float64, border Border) *raster.Plane {
	outRows := (p.Rows + 1) / 2
	outCols := (p.Cols + 1) / 2

	// Horizontal pass at even columns, all rows.
	tmp := raster.NewPlane(p.Rows, outCols)
	for r := 0; r < p.Rows; r++ {
		row := p.Pix[r*p.Cols : (r+1)*p.Cols]
		for j := 0; j < outCols; j++ {
			x := 2 * j
			var s float64
			for t := -2; t <= 2; t++ {
				if q, ok := border.resolve(x+t, p.Cols); ok {
					s += k[t+2] * row[q]
				}
			}
			tmp.Pix[r*outCols+j] = s
		}
	}

	// Vertical pass at even rows.
	out := raster.NewPlane(outRows, outCols)
	for i := 0; i < outRows; i++ {
		y := 2 * i
		for t := -2; t <= 2; t++ {
			q, ok := border.resolve(y+t, p.Rows)
			if !ok {
				continue
			}
			w := k[t+2]
			src := tmp.Pix[q*outCols : (q+1)*outCols]
			dst := out.Pix[i*outCols : (i+1)*outCols]
			for j := range dst {
				dst[j] += w * src[j]
			}
		}
	}
	return out
}

// expand zero-interleaves p to twice its size, filters with the separable
// kernel and scales by 4. Interleaved zeros are never materialised: an index
// that resolves to an odd position contributes nothing.
func expand(p *raster.Plane, k [5]float64, border Border) *raster.Plane {
	outRows := 2 * p.Rows
	outCols := 2 * p.Cols

	// Horizontal pass over the source rows (the interleaved rows are all zero).
	tmp := raster.NewPlane(p.Rows, outCols)
	for r := 0; r < p.Rows; r++ {
		row := p.Pix[r*p.Cols : (r+1)*p.Cols]
		for x := 0; x < outCols; x++ {
			var s float64
			for t := -2; t <= 2; t++ {
				if q, ok := border.resolve(x+t, outCols); ok && q%2 == 0 {
					s += k[t+2] * row[q/2]
				}
			}
			tmp.Pix[r*outCols+x] = 2 * s
		}
	}

	// Vertical pass. The factor 4 is split as 2 per axis.
	out := raster.NewPlane(outRows, outCols)
	for y := 0; y < outRows; y++ {
		dst := out.Pix[y*outCols : (y+1)*outCols]
		for t := -2; t <= 2; t++ {
			q, ok := border.resolve(y+t, outRows)
			if !ok || q%2 != 0 {
				continue
			}
			w := 2 * k[t+2]
			src := tmp.Pix[(q/2)*outCols : (q/2+1)*outCols]
			for x := range dst {
				dst[x] += w * src[x]
			}
		}
	}
	return out
}
