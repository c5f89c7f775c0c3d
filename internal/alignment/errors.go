package alignment

import (
	"errors"
	"fmt"
)

var (
	// ErrAlignment matches every *AlignmentError via errors.Is.
	ErrAlignment = errors.New("alignment failed")

	// ErrTooFewMatches means fewer than MinCorrespondences usable pairs exist.
	ErrTooFewMatches = errors.New("too few correspondences")

	// ErrDegenerateHomography means the fitted transform is singular,
	// non-finite, badly conditioned, or sends the image to infinity.
	ErrDegenerateHomography = errors.New("degenerate homography")
)

// AlignmentError reports a failed attempt to register or warp one secondary
// image. It is fatal to that attempt only; callers may skip the image.
type AlignmentError struct {
	Stage   string // detect, match, estimate, validate, warp
	Matches int    // correspondences available when the stage failed
	Err     error
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("alignment failed at %s (%d matches): %v", e.Stage, e.Matches, e.Err)
}

func (e *AlignmentError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrAlignment) match.
func (e *AlignmentError) Is(target error) bool { return target == ErrAlignment }
