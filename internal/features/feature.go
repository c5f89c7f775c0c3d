// Package features binds the alignment capabilities to OpenCV: ORB keypoint
// detection and brute-force Hamming matching with cross-check.
package features

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"tourist-remover/internal/alignment"
	"tourist-remover/internal/raster"
	"tourist-remover/pkg/geometry"
)

// Descriptors holds ORB descriptors, one row per keypoint.
type Descriptors struct {
	mat gocv.Mat
}

// Len returns the number of descriptors.
func (d *Descriptors) Len() int {
	if d == nil || d.mat.Empty() {
		return 0
	}
	return d.mat.Rows()
}

// Close releases the native buffer.
func (d *Descriptors) Close() error {
	if d == nil {
		return nil
	}
	return d.mat.Close()
}

// ORBDetector detects ORB keypoints on the luminance of an image.
// It is safe for concurrent use.
type ORBDetector struct {
	mu  sync.Mutex
	orb gocv.ORB
}

// NewORBDetector creates a detector with OpenCV's default ORB parameters.
func NewORBDetector() *ORBDetector {
	return &ORBDetector{orb: gocv.NewORB()}
}

// DetectAndCompute implements alignment.FeatureDetector.
func (d *ORBDetector) DetectAndCompute(img *raster.Image) ([]alignment.Keypoint, alignment.Descriptors, error) {
	mat, err := grayToMat(img)
	if err != nil {
		return nil, nil, fmt.Errorf("orb: %w", err)
	}
	defer mat.Close()

	noMask := gocv.NewMat()
	defer noMask.Close()

	d.mu.Lock()
	kps, desc := d.orb.DetectAndCompute(mat, noMask)
	d.mu.Unlock()

	out := make([]alignment.Keypoint, len(kps))
	for i, kp := range kps {
		out[i] = alignment.Keypoint{
			Point:    geometry.Point2D{X: kp.X, Y: kp.Y},
			Size:     kp.Size,
			Angle:    kp.Angle,
			Response: kp.Response,
			Octave:   kp.Octave,
		}
	}
	return out, &Descriptors{mat: desc}, nil
}

// Close releases the detector.
func (d *ORBDetector) Close() error {
	return d.orb.Close()
}

// HammingMatcher is a brute-force matcher over binary descriptors. With
// cross-check on, a pair is kept only when each side is the other's nearest
// neighbour. It is safe for concurrent use.
type HammingMatcher struct {
	mu      sync.Mutex
	matcher gocv.BFMatcher
}

// NewHammingMatcher creates a matcher using Hamming distance.
func NewHammingMatcher(crossCheck bool) *HammingMatcher {
	return &HammingMatcher{matcher: gocv.NewBFMatcherWithParams(gocv.NormHamming, crossCheck)}
}

// Match implements alignment.Matcher. Both arguments must come from an
// ORBDetector.
func (m *HammingMatcher) Match(query, train alignment.Descriptors) ([]alignment.Match, error) {
	q, ok := query.(*Descriptors)
	if !ok {
		return nil, fmt.Errorf("hamming matcher: unsupported query descriptors %T", query)
	}
	t, ok := train.(*Descriptors)
	if !ok {
		return nil, fmt.Errorf("hamming matcher: unsupported train descriptors %T", train)
	}
	if q.Len() == 0 || t.Len() == 0 {
		return nil, nil
	}

	m.mu.Lock()
	dm := m.matcher.Match(q.mat, t.mat)
	m.mu.Unlock()

	out := make([]alignment.Match, len(dm))
	for i, d := range dm {
		out[i] = alignment.Match{QueryIdx: d.QueryIdx, TrainIdx: d.TrainIdx, Distance: d.Distance}
	}
	return out, nil
}

// Close releases the matcher.
func (m *HammingMatcher) Close() error {
	return m.matcher.Close()
}

// NewRegistrar wires an ORB detector and a cross-checked Hamming matcher into
// an alignment.Registrar. The returned close function releases both.
func NewRegistrar(opts alignment.Options) (*alignment.Registrar, func()) {
	det := NewORBDetector()
	m := NewHammingMatcher(true)
	return alignment.NewRegistrar(det, m, nil, opts), func() {
		det.Close()
		m.Close()
	}
}
