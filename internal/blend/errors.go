package blend

import (
	"errors"
	"fmt"

	"tourist-remover/internal/raster"
)

// ErrInputMissing is returned when a required image argument is nil.
var ErrInputMissing = raster.ErrNilImage

// ErrShapeMismatch matches any *ShapeMismatchError via errors.Is.
var ErrShapeMismatch = errors.New("shape mismatch")

// ShapeMismatchError reports inputs whose dimensions or level counts disagree.
type ShapeMismatchError struct {
	Op    string
	Level int // pyramid level, or -1 when not applicable
	What  string
	Want  string
	Got   string
}

func (e *ShapeMismatchError) Error() string {
	if e.Level >= 0 {
		return fmt.Sprintf("%s: level %d: %s is %s, want %s", e.Op, e.Level, e.What, e.Got, e.Want)
	}
	return fmt.Sprintf("%s: %s is %s, want %s", e.Op, e.What, e.Got, e.Want)
}

// Is lets errors.Is(err, ErrShapeMismatch) match.
func (e *ShapeMismatchError) Is(target error) bool { return target == ErrShapeMismatch }

func sizeMismatch(op, what string, level int, want, got raster.Size) error {
	return &ShapeMismatchError{Op: op, Level: level, What: what, Want: want.String(), Got: got.String()}
}
