package alignment

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"tourist-remover/pkg/geometry"
)

// RANSACEstimator fits a homography with RANSAC over minimal 4-point samples
// followed by a least-squares refit on the best inlier set. The sampler is
// seeded, so the same correspondences always give the same result.
type RANSACEstimator struct {
	Iterations int
	Seed       int64
}

// NewRANSACEstimator returns an estimator with the given iteration count and seed.
func NewRANSACEstimator(iterations int, seed int64) *RANSACEstimator {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &RANSACEstimator{Iterations: iterations, Seed: seed}
}

// EstimateRobust computes the homography mapping src[i] to dst[i]. A pair is
// an inlier when its reprojection error is below threshold pixels. Returns the
// transform and the indices of its inliers.
func (e *RANSACEstimator) EstimateRobust(src, dst []geometry.Point2D, threshold float64) (geometry.Homography, []int, error) {
	if len(src) != len(dst) {
		return geometry.Homography{}, nil, fmt.Errorf("point count mismatch: %d vs %d", len(src), len(dst))
	}
	n := len(src)
	if n < MinCorrespondences {
		return geometry.Homography{}, nil, fmt.Errorf("need at least %d points, got %d: %w", MinCorrespondences, n, ErrTooFewMatches)
	}

	rng := rand.New(rand.NewSource(e.Seed))
	var bestInliers []int
	bestErr := math.Inf(1)
	var bestTransform geometry.Homography

	sample := make([]geometry.Point2D, 4)
	target := make([]geometry.Point2D, 4)
	for iter := 0; iter < e.Iterations; iter++ {
		// Randomly sample 4 pairs
		indices := rng.Perm(n)[:4]
		for i, idx := range indices {
			sample[i] = src[idx]
			target[i] = dst[idx]
		}
		if nearlyCollinear(sample) || nearlyCollinear(target) {
			continue
		}

		h, err := ComputeHomographyDLT(sample, target)
		if err != nil {
			continue
		}

		inliers, total := countInliers(h, src, dst, threshold)
		if len(inliers) > len(bestInliers) || (len(inliers) == len(bestInliers) && total < bestErr) {
			bestInliers = inliers
			bestErr = total
			bestTransform = h
		}
		if len(bestInliers) == n {
			break
		}
	}

	if len(bestInliers) < MinCorrespondences {
		return geometry.Homography{}, nil, fmt.Errorf("RANSAC found %d inliers: %w", len(bestInliers), ErrTooFewMatches)
	}

	// Recompute the transform using all inliers
	inlierSrc := make([]geometry.Point2D, len(bestInliers))
	inlierDst := make([]geometry.Point2D, len(bestInliers))
	for i, idx := range bestInliers {
		inlierSrc[i] = src[idx]
		inlierDst[i] = dst[idx]
	}

	refit, err := ComputeHomographyDLT(inlierSrc, inlierDst)
	if err != nil {
		return bestTransform, bestInliers, nil
	}
	refitInliers, refitErr := countInliers(refit, src, dst, threshold)
	if len(refitInliers) < len(bestInliers) || (len(refitInliers) == len(bestInliers) && refitErr > bestErr) {
		return bestTransform, bestInliers, nil
	}
	return refit, refitInliers, nil
}

// ComputeHomographyDLT fits a homography to four or more pairs with the
// normalised direct linear transform: both point sets are shifted to their
// centroid and scaled to mean distance sqrt(2), the 2n x 9 system is solved
// by SVD, and the result is denormalised. The returned matrix has h22 == 1.
func ComputeHomographyDLT(src, dst []geometry.Point2D) (geometry.Homography, error) {
	n := len(src)
	if n != len(dst) {
		return geometry.Homography{}, fmt.Errorf("point count mismatch: %d vs %d", n, len(dst))
	}
	if n < 4 {
		return geometry.Homography{}, fmt.Errorf("need at least 4 points, got %d", n)
	}

	ns, ts, err := normalizePoints(src)
	if err != nil {
		return geometry.Homography{}, err
	}
	nd, td, err := normalizePoints(dst)
	if err != nil {
		return geometry.Homography{}, err
	}

	A := mat.NewDense(2*n, 9, nil)
	for i := 0; i < n; i++ {
		x, y := ns[i].X, ns[i].Y
		u, v := nd[i].X, nd[i].Y

		A.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		A.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}

	// The solution is the right singular vector of the smallest singular value.
	var svd mat.SVD
	if ok := svd.Factorize(A, mat.SVDFull); !ok {
		return geometry.Homography{}, fmt.Errorf("SVD failed: %w", ErrDegenerateHomography)
	}
	var V mat.Dense
	svd.VTo(&V)

	h := make([]float64, 9)
	for i := range h {
		h[i] = V.At(i, 8)
	}
	hn, err := geometry.HomographyFromFlat(h)
	if err != nil {
		return geometry.Homography{}, err
	}

	tdInv, ok := td.Inverse()
	if !ok {
		return geometry.Homography{}, ErrDegenerateHomography
	}
	out := tdInv.Compose(hn).Compose(ts)
	if math.Abs(out[2][2]) < 1e-12 {
		return geometry.Homography{}, fmt.Errorf("h22 vanished: %w", ErrDegenerateHomography)
	}
	out = out.Normalize()
	if !out.IsFinite() {
		return geometry.Homography{}, fmt.Errorf("non-finite solution: %w", ErrDegenerateHomography)
	}
	return out, nil
}

// normalizePoints returns the conditioned points and the similarity that
// produced them.
func normalizePoints(pts []geometry.Point2D) ([]geometry.Point2D, geometry.Homography, error) {
	c := geometry.Centroid(pts)
	var meanDist float64
	for _, p := range pts {
		meanDist += p.Distance(c)
	}
	meanDist /= float64(len(pts))
	if meanDist < 1e-9 {
		return nil, geometry.Homography{}, fmt.Errorf("coincident points: %w", ErrDegenerateHomography)
	}

	s := math.Sqrt2 / meanDist
	t := geometry.Homography{
		{s, 0, -s * c.X},
		{0, s, -s * c.Y},
		{0, 0, 1},
	}
	out := make([]geometry.Point2D, len(pts))
	for i, p := range pts {
		out[i] = geometry.Point2D{X: s * (p.X - c.X), Y: s * (p.Y - c.Y)}
	}
	return out, t, nil
}

// nearlyCollinear reports whether any three of the points are (almost) on a line.
func nearlyCollinear(pts []geometry.Point2D) bool {
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			for k := j + 1; k < len(pts); k++ {
				a, b, c := pts[i], pts[j], pts[k]
				cross := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
				if math.Abs(cross) < 1.0 {
					return true
				}
			}
		}
	}
	return false
}

// countInliers returns the indices whose reprojection error is below
// threshold and the summed error over those inliers.
func countInliers(h geometry.Homography, src, dst []geometry.Point2D, threshold float64) ([]int, float64) {
	var inliers []int
	var total float64
	for i := range src {
		p, ok := h.Apply(src[i])
		if !ok {
			continue
		}
		if d := p.Distance(dst[i]); d < threshold {
			inliers = append(inliers, i)
			total += d
		}
	}
	return inliers, total
}

// ReprojectionError returns the mean distance between h(src[i]) and dst[i]
// over the given indices (all pairs when indices is nil).
func ReprojectionError(h geometry.Homography, src, dst []geometry.Point2D, indices []int) float64 {
	if indices == nil {
		indices = make([]int, len(src))
		for i := range indices {
			indices[i] = i
		}
	}
	if len(indices) == 0 {
		return math.Inf(1)
	}

	var total float64
	for _, i := range indices {
		p, ok := h.Apply(src[i])
		if !ok {
			return math.Inf(1)
		}
		total += p.Distance(dst[i])
	}
	return total / float64(len(indices))
}

// ValidateHomography rejects transforms that cannot be used for warping.
func ValidateHomography(h geometry.Homography, maxCondition float64) error {
	if !h.IsFinite() {
		return fmt.Errorf("non-finite entries: %w", ErrDegenerateHomography)
	}
	n := h.Normalize()
	if math.Abs(n.Det()) < 1e-10 {
		return fmt.Errorf("determinant %.3g: %w", n.Det(), ErrDegenerateHomography)
	}
	if maxCondition > 0 {
		if c := mat.Cond(mat.NewDense(3, 3, n.Flat()), 2); c > maxCondition || math.IsNaN(c) {
			return fmt.Errorf("condition number %.3g: %w", c, ErrDegenerateHomography)
		}
	}
	return nil
}
