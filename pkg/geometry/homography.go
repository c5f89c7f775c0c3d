package geometry

import (
	"fmt"
	"math"
)

// Homography is a 3x3 projective transform acting on homogeneous points.
//
//	[h00 h01 h02]
//	[h10 h11 h12]
//	[h20 h21 h22]
type Homography [3][3]float64

// IdentityHomography returns the identity transform.
func IdentityHomography() Homography {
	return Homography{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// TranslationHomography returns a pure translation by (tx, ty).
func TranslationHomography(tx, ty float64) Homography {
	return Homography{{1, 0, tx}, {0, 1, ty}, {0, 0, 1}}
}

// Apply maps a point through the transform. The second result is false when
// the point maps to infinity.
func (h Homography) Apply(p Point2D) (Point2D, bool) {
	w := h[2][0]*p.X + h[2][1]*p.Y + h[2][2]
	if w == 0 || math.IsNaN(w) {
		return Point2D{}, false
	}
	out := Point2D{
		X: (h[0][0]*p.X + h[0][1]*p.Y + h[0][2]) / w,
		Y: (h[1][0]*p.X + h[1][1]*p.Y + h[1][2]) / w,
	}
	return out, out.IsFinite()
}

// Compose returns h applied after other (h * other).
func (h Homography) Compose(other Homography) Homography {
	var out Homography
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = h[i][0]*other[0][j] + h[i][1]*other[1][j] + h[i][2]*other[2][j]
		}
	}
	return out
}

// Det returns the determinant.
func (h Homography) Det() float64 {
	return h[0][0]*(h[1][1]*h[2][2]-h[1][2]*h[2][1]) -
		h[0][1]*(h[1][0]*h[2][2]-h[1][2]*h[2][0]) +
		h[0][2]*(h[1][0]*h[2][1]-h[1][1]*h[2][0])
}

// Inverse returns the inverse transform, if it exists.
func (h Homography) Inverse() (Homography, bool) {
	det := h.Det()
	if math.Abs(det) < 1e-12 || !h.IsFinite() {
		return Homography{}, false
	}

	inv := 1.0 / det
	return Homography{
		{
			(h[1][1]*h[2][2] - h[1][2]*h[2][1]) * inv,
			(h[0][2]*h[2][1] - h[0][1]*h[2][2]) * inv,
			(h[0][1]*h[1][2] - h[0][2]*h[1][1]) * inv,
		},
		{
			(h[1][2]*h[2][0] - h[1][0]*h[2][2]) * inv,
			(h[0][0]*h[2][2] - h[0][2]*h[2][0]) * inv,
			(h[0][2]*h[1][0] - h[0][0]*h[1][2]) * inv,
		},
		{
			(h[1][0]*h[2][1] - h[1][1]*h[2][0]) * inv,
			(h[0][1]*h[2][0] - h[0][0]*h[2][1]) * inv,
			(h[0][0]*h[1][1] - h[0][1]*h[1][0]) * inv,
		},
	}, true
}

// Normalize scales the matrix so that h22 == 1. Matrices with h22 == 0 are
// returned unchanged.
func (h Homography) Normalize() Homography {
	s := h[2][2]
	if s == 0 {
		return h
	}
	var out Homography
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = h[i][j] / s
		}
	}
	return out
}

// IsFinite reports whether every entry is finite.
func (h Homography) IsFinite() bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			v := h[i][j]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// Flat returns the entries in row-major order.
func (h Homography) Flat() []float64 {
	return []float64{
		h[0][0], h[0][1], h[0][2],
		h[1][0], h[1][1], h[1][2],
		h[2][0], h[2][1], h[2][2],
	}
}

// HomographyFromFlat builds a Homography from 9 row-major entries.
func HomographyFromFlat(v []float64) (Homography, error) {
	if len(v) != 9 {
		return Homography{}, fmt.Errorf("homography needs 9 entries, got %d", len(v))
	}
	return Homography{
		{v[0], v[1], v[2]},
		{v[3], v[4], v[5]},
		{v[6], v[7], v[8]},
	}, nil
}

func (h Homography) String() string {
	return fmt.Sprintf("[%.6g %.6g %.6g; %.6g %.6g %.6g; %.6g %.6g %.6g]",
		h[0][0], h[0][1], h[0][2],
		h[1][0], h[1][1], h[1][2],
		h[2][0], h[2][1], h[2][2])
}
