package blend

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourist-remover/internal/raster"
)

func randomPlane(rows, cols int, seed int64) *raster.Plane {
	rng := rand.New(rand.NewSource(seed))
	p := raster.NewPlane(rows, cols)
	for i := range p.Pix {
		p.Pix[i] = rng.Float64() * 255
	}
	return p
}

func TestKernelSumsToOne(t *testing.T) {
	k := Kernel(DefaultA)
	assert.InDelta(t, 1.0, k[0]+k[1]+k[2]+k[3]+k[4], 1e-12)
	assert.InDelta(t, 0.05, k[0], 1e-12)
	assert.Equal(t, k[0], k[4])
}

func TestReduceExpandDims(t *testing.T) {
	for _, tc := range []struct{ rows, cols int }{
		{1, 1}, {2, 3}, {7, 5}, {16, 16}, {33, 20}, {50, 51},
	} {
		p := randomPlane(tc.rows, tc.cols, 1)

		r := Reduce(p)
		assert.Equal(t, (tc.rows+1)/2, r.Rows, "reduce rows of %dx%d", tc.rows, tc.cols)
		assert.Equal(t, (tc.cols+1)/2, r.Cols, "reduce cols of %dx%d", tc.rows, tc.cols)

		e := Expand(p)
		assert.Equal(t, 2*tc.rows, e.Rows)
		assert.Equal(t, 2*tc.cols, e.Cols)
	}
}

func TestReduceMatchesDirectConvolution(t *testing.T) {
	p := randomPlane(9, 7, 2)
	k := Kernel(DefaultA)
	got := Reduce(p)

	for i := 0; i < got.Rows; i++ {
		for j := 0; j < got.Cols; j++ {
			var want float64
			for a := -2; a <= 2; a++ {
				for b := -2; b <= 2; b++ {
					y, x := 2*i+a, 2*j+b
					if y < 0 || y >= p.Rows || x < 0 || x >= p.Cols {
						continue
					}
					want += k[a+2] * k[b+2] * p.At(y, x)
				}
			}
			assert.InDelta(t, want, got.At(i, j), 1e-9, "at %d,%d", i, j)
		}
	}
}

func TestExpandMatchesDirectConvolution(t *testing.T) {
	p := randomPlane(4, 5, 3)
	k := Kernel(DefaultA)
	got := Expand(p)

	up := raster.NewPlane(8, 10)
	for r := 0; r < p.Rows; r++ {
		for c := 0; c < p.Cols; c++ {
			up.Set(2*r, 2*c, p.At(r, c))
		}
	}
	for y := 0; y < up.Rows; y++ {
		for x := 0; x < up.Cols; x++ {
			var want float64
			for a := -2; a <= 2; a++ {
				for b := -2; b <= 2; b++ {
					yy, xx := y+a, x+b
					if yy < 0 || yy >= up.Rows || xx < 0 || xx >= up.Cols {
						continue
					}
					want += k[a+2] * k[b+2] * up.At(yy, xx)
				}
			}
			assert.InDelta(t, 4*want, got.At(y, x), 1e-9, "at %d,%d", y, x)
		}
	}
}

func TestExpandOfConstantInterior(t *testing.T) {
	p := raster.NewPlaneFilled(10, 10, 100)
	e := Expand(p)
	// Away from the zero-padded border the energy compensation is exact.
	for y := 4; y < 16; y++ {
		for x := 4; x < 16; x++ {
			assert.InDelta(t, 100, e.At(y, x), 1e-9)
		}
	}
}

func TestReflectBorderPreservesConstants(t *testing.T) {
	b := New(Options{Border: BorderReflect101})
	p := raster.NewPlaneFilled(7, 9, 42)

	for _, v := range b.Reduce(p).Pix {
		assert.InDelta(t, 42, v, 1e-9)
	}
	for _, v := range b.Expand(p).Pix {
		assert.InDelta(t, 42, v, 1e-9)
	}
}

func TestGaussianPyramidShape(t *testing.T) {
	p := randomPlane(37, 50, 4)
	g := GaussianPyramid(p, 3)
	require.Len(t, g, 4)
	assert.Same(t, p, g[0])
	assert.Equal(t, raster.Size{Rows: 19, Cols: 25}, g[1].Size())
	assert.Equal(t, raster.Size{Rows: 10, Cols: 13}, g[2].Size())
	assert.Equal(t, raster.Size{Rows: 5, Cols: 7}, g[3].Size())
	assert.Equal(t, 3, g.Levels())

	assert.Len(t, GaussianPyramid(p, -2), 1)
}

func TestLaplacianLastLevelIsGaussianTop(t *testing.T) {
	g := GaussianPyramid(randomPlane(21, 13, 5), 2)
	l, err := LaplacianPyramid(g)
	require.NoError(t, err)
	require.Len(t, l, 3)

	assert.Equal(t, g.Top().Pix, l.Top().Pix)
	assert.NotSame(t, g.Top(), l.Top())
	for i := range g {
		assert.Equal(t, g[i].Size(), l[i].Size(), "level %d", i)
	}
}

func TestCollapseReconstructs(t *testing.T) {
	for _, border := range []Border{BorderZero, BorderReflect101} {
		b := New(Options{Border: border})
		for _, tc := range []struct{ rows, cols, levels int }{
			{64, 64, 2}, {37, 50, 3}, {33, 17, 4}, {5, 5, 0},
		} {
			p := randomPlane(tc.rows, tc.cols, int64(tc.rows*tc.cols))
			l, err := b.LaplacianPyramid(b.GaussianPyramid(p, tc.levels))
			require.NoError(t, err)

			got, err := b.Collapse(l)
			require.NoError(t, err)
			require.Equal(t, p.Size(), got.Size())

			var worst float64
			for i := range p.Pix {
				worst = math.Max(worst, math.Abs(p.Pix[i]-got.Pix[i]))
			}
			assert.Less(t, worst, 1e-9, "%s border %dx%d levels %d", border, tc.rows, tc.cols, tc.levels)
		}
	}
}

func TestBlendPyramidsShapeMismatch(t *testing.T) {
	a := GaussianPyramid(randomPlane(32, 32, 6), 2)
	b := GaussianPyramid(randomPlane(32, 32, 7), 1)
	c := GaussianPyramid(randomPlane(32, 30, 8), 2)

	_, err := BlendPyramids(a, b, a)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = BlendPyramids(a, a, c)
	var sme *ShapeMismatchError
	require.ErrorAs(t, err, &sme)
	assert.Equal(t, 0, sme.Level)
}

func TestBlendPyramidsWeights(t *testing.T) {
	w := Pyramid{raster.NewPlaneFilled(2, 2, 10)}
	b := Pyramid{raster.NewPlaneFilled(2, 2, 20)}
	m := Pyramid{&raster.Plane{Rows: 2, Cols: 2, Pix: []float64{1, 0, 0.5, 0.25}}}

	out, err := BlendPyramids(w, b, m)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{10, 20, 15, 17.5}, out[0].Pix, 1e-12)
}

func TestParseBorder(t *testing.T) {
	b, err := ParseBorder("reflect")
	require.NoError(t, err)
	assert.Equal(t, BorderReflect101, b)

	b, err = ParseBorder("")
	require.NoError(t, err)
	assert.Equal(t, BorderZero, b)

	_, err = ParseBorder("wrap")
	assert.Error(t, err)
}
