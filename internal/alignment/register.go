package alignment

import (
	"fmt"
	"io"
	"log"
	"sort"

	"github.com/samber/lo"

	"tourist-remover/internal/raster"
	"tourist-remover/pkg/geometry"
)

// Keypoint is a detected interest point.
type Keypoint struct {
	Point    geometry.Point2D
	Size     float64
	Angle    float64
	Response float64
	Octave   int
}

// Descriptors is an opaque block of feature descriptors, one per keypoint.
// Implementations that hold native memory should also implement io.Closer;
// the registrar closes them when it is done.
type Descriptors interface {
	Len() int
}

// Match pairs descriptor QueryIdx of the query set with TrainIdx of the
// train set. Lower Distance is a better match.
type Match struct {
	QueryIdx int
	TrainIdx int
	Distance float64
}

// Correspondence is a matched point pair.
type Correspondence struct {
	Secondary geometry.Point2D
	Primary   geometry.Point2D
	Distance  float64
}

// FeatureDetector finds keypoints and computes their descriptors.
type FeatureDetector interface {
	DetectAndCompute(img *raster.Image) ([]Keypoint, Descriptors, error)
}

// Matcher pairs descriptors one-to-one. Whether it cross-checks is up to
// the implementation.
type Matcher interface {
	Match(query, train Descriptors) ([]Match, error)
}

// HomographyEstimator fits a transform mapping src[i] to dst[i] while
// tolerating outliers, and reports the inlier indices.
type HomographyEstimator interface {
	EstimateRobust(src, dst []geometry.Point2D, threshold float64) (geometry.Homography, []int, error)
}

// Registration describes how a homography was obtained.
type Registration struct {
	SecondaryKeypoints int
	PrimaryKeypoints   int
	RawMatches         int
	Correspondences    []Correspondence
	Inliers            []int
	MeanError          float64 // mean reprojection error over inliers, pixels
}

// Registrar finds the homography that maps a secondary image onto a primary.
type Registrar struct {
	Detector  FeatureDetector
	Matcher   Matcher
	Estimator HomographyEstimator
	opts      Options
}

// NewRegistrar creates a Registrar. A nil estimator selects the RANSAC
// estimator configured by opts.
func NewRegistrar(det FeatureDetector, m Matcher, est HomographyEstimator, opts Options) *Registrar {
	if est == nil {
		est = NewRANSACEstimator(opts.Iterations, opts.Seed)
	}
	if opts.MaxMatches <= 0 {
		opts.MaxMatches = DefaultMaxMatches
	}
	if opts.ReprojThreshold <= 0 {
		opts.ReprojThreshold = DefaultReprojThreshold
	}
	return &Registrar{Detector: det, Matcher: m, Estimator: est, opts: opts}
}

// Register returns the homography taking secondary pixel coordinates to
// primary pixel coordinates. Failures are *AlignmentError.
func (r *Registrar) Register(primary, secondary *raster.Image) (geometry.Homography, *Registration, error) {
	if primary == nil || secondary == nil {
		return geometry.Homography{}, nil, &AlignmentError{Stage: "detect", Err: raster.ErrNilImage}
	}
	reg := &Registration{}

	// Step 1: detect on both images independently
	secKps, secDesc, err := r.Detector.DetectAndCompute(secondary)
	if err != nil {
		return geometry.Homography{}, reg, &AlignmentError{Stage: "detect", Err: fmt.Errorf("secondary: %w", err)}
	}
	defer closeDescriptors(secDesc)

	priKps, priDesc, err := r.Detector.DetectAndCompute(primary)
	if err != nil {
		return geometry.Homography{}, reg, &AlignmentError{Stage: "detect", Err: fmt.Errorf("primary: %w", err)}
	}
	defer closeDescriptors(priDesc)

	reg.SecondaryKeypoints = len(secKps)
	reg.PrimaryKeypoints = len(priKps)
	if r.opts.Debug {
		log.Printf("register: %d secondary keypoints, %d primary keypoints", len(secKps), len(priKps))
	}
	if len(secKps) < MinCorrespondences || len(priKps) < MinCorrespondences {
		return geometry.Homography{}, reg, &AlignmentError{Stage: "detect", Err: fmt.Errorf(
			"%d secondary / %d primary keypoints: %w", len(secKps), len(priKps), ErrTooFewMatches)}
	}

	// Step 2: match secondary (query) against primary (train)
	matches, err := r.Matcher.Match(secDesc, priDesc)
	if err != nil {
		return geometry.Homography{}, reg, &AlignmentError{Stage: "match", Err: err}
	}
	reg.RawMatches = len(matches)

	// Step 3: best matches first, truncated
	corr, err := Correspondences(secKps, priKps, matches, r.opts.MaxMatches)
	if err != nil {
		return geometry.Homography{}, reg, &AlignmentError{Stage: "match", Matches: len(matches), Err: err}
	}
	reg.Correspondences = corr
	if len(corr) < MinCorrespondences {
		return geometry.Homography{}, reg, &AlignmentError{Stage: "match", Matches: len(corr), Err: ErrTooFewMatches}
	}

	// Step 4: robust fit
	src := lo.Map(corr, func(c Correspondence, _ int) geometry.Point2D { return c.Secondary })
	dst := lo.Map(corr, func(c Correspondence, _ int) geometry.Point2D { return c.Primary })

	h, inliers, err := r.Estimator.EstimateRobust(src, dst, r.opts.ReprojThreshold)
	if err != nil {
		return geometry.Homography{}, reg, &AlignmentError{Stage: "estimate", Matches: len(corr), Err: err}
	}
	if len(inliers) < MinCorrespondences {
		return geometry.Homography{}, reg, &AlignmentError{Stage: "estimate", Matches: len(corr),
			Err: fmt.Errorf("%d inliers: %w", len(inliers), ErrTooFewMatches)}
	}
	if err := ValidateHomography(h, r.opts.MaxCondition); err != nil {
		return geometry.Homography{}, reg, &AlignmentError{Stage: "validate", Matches: len(corr), Err: err}
	}

	h = h.Normalize()
	reg.Inliers = inliers
	reg.MeanError = ReprojectionError(h, src, dst, inliers)

	if r.opts.Debug {
		log.Printf("register: %d correspondences, %d inliers, mean error %.2f px, H=%s",
			len(corr), len(inliers), reg.MeanError, h)
	}
	return h, reg, nil
}

// Correspondences resolves matches to point pairs, ordered by ascending
// distance (ties keep the matcher's order) and truncated to maxMatches.
// query keypoints belong to the secondary image, train keypoints to the primary.
func Correspondences(query, train []Keypoint, matches []Match, maxMatches int) ([]Correspondence, error) {
	sorted := make([]Match, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Distance < sorted[j].Distance })

	if maxMatches > 0 && len(sorted) > maxMatches {
		sorted = sorted[:maxMatches]
	}

	out := make([]Correspondence, 0, len(sorted))
	for _, m := range sorted {
		if m.QueryIdx < 0 || m.QueryIdx >= len(query) || m.TrainIdx < 0 || m.TrainIdx >= len(train) {
			return nil, fmt.Errorf("match %d->%d out of range (%d query, %d train keypoints)",
				m.QueryIdx, m.TrainIdx, len(query), len(train))
		}
		out = append(out, Correspondence{
			Secondary: query[m.QueryIdx].Point,
			Primary:   train[m.TrainIdx].Point,
			Distance:  m.Distance,
		})
	}
	return out, nil
}

func closeDescriptors(d Descriptors) {
	if c, ok := d.(io.Closer); ok {
		c.Close()
	}
}
