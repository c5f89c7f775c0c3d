package alignment

import (
	"fmt"
	"log"

	"tourist-remover/internal/raster"
	"tourist-remover/pkg/geometry"
)

const (
	// MinCorrespondences is the fewest point pairs a homography can be fit to.
	MinCorrespondences = 4

	// DefaultMaxMatches is how many of the best matches feed the estimator.
	DefaultMaxMatches = 50

	// DefaultReprojThreshold is the RANSAC inlier distance in pixels.
	DefaultReprojThreshold = 5.0

	// DefaultIterations is the RANSAC iteration count.
	DefaultIterations = 2000

	// DefaultMaxCondition rejects nearly singular transforms.
	DefaultMaxCondition = 1e12
)

// Options configures the alignment process.
type Options struct {
	MaxMatches      int     // Best matches kept for estimation
	ReprojThreshold float64 // RANSAC inlier threshold in pixels
	Iterations      int     // RANSAC iterations
	Seed            int64   // RANSAC sampler seed
	MaxCondition    float64 // Largest accepted condition number (0 disables)
	Debug           bool    // Enable debug output
}

// DefaultOptions returns default alignment options.
func DefaultOptions() Options {
	return Options{
		MaxMatches:      DefaultMaxMatches,
		ReprojThreshold: DefaultReprojThreshold,
		Iterations:      DefaultIterations,
		Seed:            1,
		MaxCondition:    DefaultMaxCondition,
	}
}

// Result contains the outcome of aligning one secondary image.
type Result struct {
	Homography   geometry.Homography // secondary -> primary pixel coordinates
	Registration *Registration
	// Aligned is the secondary image in the primary's frame, primary-sized,
	// with 0 wherever the secondary has no coverage.
	Aligned *raster.Image
}

// Coverage returns the fraction of aligned pixels that carry image data.
func (r *Result) Coverage() float64 {
	if r == nil || r.Aligned == nil {
		return 0
	}
	total := r.Aligned.Height * r.Aligned.Width
	if total == 0 {
		return 0
	}
	covered := 0
	for y := 0; y < r.Aligned.Height; y++ {
		for x := 0; x < r.Aligned.Width; x++ {
			if r.Aligned.HasData(y, x) {
				covered++
			}
		}
	}
	return float64(covered) / float64(total)
}

// Align registers secondary against primary and warps it into the primary's
// frame. Failures to find a usable transform are *AlignmentError.
func (r *Registrar) Align(primary, secondary *raster.Image) (*Result, error) {
	if primary == nil {
		return nil, fmt.Errorf("align: primary: %w", raster.ErrNilImage)
	}
	if secondary == nil {
		return nil, fmt.Errorf("align: secondary: %w", raster.ErrNilImage)
	}

	// Step 1: estimate secondary -> primary
	h, reg, err := r.Register(primary, secondary)
	if err != nil {
		return nil, err
	}

	// Step 2: warp onto the union canvas and crop to the primary frame
	aligned, err := WarpAndCrop(secondary, primary, h)
	if err != nil {
		return nil, err
	}

	res := &Result{Homography: h, Registration: reg, Aligned: aligned}
	if r.opts.Debug {
		log.Printf("align: %dx%d secondary -> %dx%d, coverage %.1f%%",
			secondary.Width, secondary.Height, primary.Width, primary.Height, 100*res.Coverage())
	}
	return res, nil
}

// AlignImages aligns secondary to primary using the given detector and
// matcher with the RANSAC estimator.
func AlignImages(primary, secondary *raster.Image, det FeatureDetector, m Matcher, opts Options) (*Result, error) {
	return NewRegistrar(det, m, nil, opts).Align(primary, secondary)
}
