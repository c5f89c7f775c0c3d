package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHomographyApplyTranslation(t *testing.T) {
	h := TranslationHomography(10, -3)
	p, ok := h.Apply(Point2D{X: 1, Y: 2})
	require.True(t, ok)
	assert.InDelta(t, 11, p.X, 1e-12)
	assert.InDelta(t, -1, p.Y, 1e-12)
}

func TestHomographyInverseRoundTrip(t *testing.T) {
	h := Homography{
		{1.1, 0.05, 12},
		{-0.02, 0.95, -7},
		{1e-4, -2e-4, 1},
	}
	inv, ok := h.Inverse()
	require.True(t, ok)

	id := h.Compose(inv).Normalize()
	want := IdentityHomography()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, want[i][j], id[i][j], 1e-9, "entry %d,%d", i, j)
		}
	}

	for _, p := range []Point2D{{0, 0}, {100, 0}, {37.5, 80}} {
		q, ok := h.Apply(p)
		require.True(t, ok)
		back, ok := inv.Apply(q)
		require.True(t, ok)
		assert.InDelta(t, p.X, back.X, 1e-9)
		assert.InDelta(t, p.Y, back.Y, 1e-9)
	}
}

func TestHomographySingular(t *testing.T) {
	h := Homography{{1, 2, 3}, {2, 4, 6}, {0, 0, 1}}
	_, ok := h.Inverse()
	assert.False(t, ok)
}

func TestHomographyApplyAtInfinity(t *testing.T) {
	h := Homography{{1, 0, 0}, {0, 1, 0}, {1, 0, 0}}
	_, ok := h.Apply(Point2D{X: 0, Y: 5})
	assert.False(t, ok)
}

func TestComposeOrder(t *testing.T) {
	// Translation applied after scaling.
	s := Homography{{2, 0, 0}, {0, 2, 0}, {0, 0, 1}}
	tr := TranslationHomography(5, 5)
	p, ok := tr.Compose(s).Apply(Point2D{X: 1, Y: 1})
	require.True(t, ok)
	assert.Equal(t, Point2D{X: 7, Y: 7}, p)
}

func TestBoundingBoxAndCorners(t *testing.T) {
	bb := BoundingBox(append(Corners(10, 20), Point2D{X: -5, Y: 3}))
	assert.Equal(t, Rect{X: -5, Y: 0, Width: 15, Height: 20}, bb)
	assert.Equal(t, 10.0, bb.MaxX())
}

func TestHomographyFromFlat(t *testing.T) {
	h, err := HomographyFromFlat(IdentityHomography().Flat())
	require.NoError(t, err)
	assert.Equal(t, IdentityHomography(), h)

	_, err = HomographyFromFlat([]float64{1, 2})
	assert.Error(t, err)
}
