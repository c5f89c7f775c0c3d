package blend

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourist-remover/internal/mask"
	"tourist-remover/internal/raster"
)

// patterned returns an RGB image whose channels vary smoothly and differ from
// each other, quantised to 8-bit values.
func patterned(h, w int, phase float64) *raster.Image {
	img := raster.New(h, w, 3)
	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			px := img.Pixel(r, c)
			px[0] = raster.Clamp8(128 + 100*math.Sin(float64(r)/7+phase))
			px[1] = raster.Clamp8(128 + 100*math.Cos(float64(c)/5+phase))
			px[2] = raster.Clamp8(float64((r*3+c*2)%256))
		}
	}
	return img
}

func TestDepth(t *testing.T) {
	assert.Equal(t, 0, Depth(8, 100))
	assert.Equal(t, 0, Depth(16, 16))
	assert.Equal(t, 0, Depth(31, 40))
	assert.Equal(t, 1, Depth(50, 50))
	assert.Equal(t, 2, Depth(64, 80))
	assert.Equal(t, 5, Depth(600, 800))

	// The coarsest level keeps at least 16 pixels on its short side.
	for _, n := range []int{16, 17, 31, 32, 50, 63, 64, 100, 257, 1000} {
		side := n
		for i := 0; i < Depth(n, n); i++ {
			side = (side + 1) / 2
		}
		assert.GreaterOrEqual(t, side, MinTopSize, "n=%d", n)
	}
}

func TestBlendMissingInputs(t *testing.T) {
	img := raster.New(20, 20, 3)
	m := mask.BuildRect(20, 20, 2, 2, 4, 4)

	_, err := Blend(nil, img, m)
	assert.ErrorIs(t, err, ErrInputMissing)
	_, err = Blend(img, nil, m)
	assert.ErrorIs(t, err, ErrInputMissing)
	_, err = Blend(img, img, nil)
	assert.ErrorIs(t, err, ErrInputMissing)
}

func TestBlendShapeMismatch(t *testing.T) {
	a := raster.New(20, 20, 3)
	b := raster.New(20, 21, 3)
	m := mask.BuildRect(20, 20, 2, 2, 4, 4)

	_, err := Blend(a, b, m)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = Blend(a, a, mask.BuildRect(21, 20, 2, 2, 4, 4))
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = Blend(a, raster.New(20, 20, 1), m)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = Blend(a, a, raster.New(20, 20, 2))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestBlendAllWhiteMaskGivesWhite(t *testing.T) {
	const H, W = 64, 64
	white := patterned(H, W, 0)
	black := patterned(H, W, 2)
	m := raster.NewFilled(H, W, 1, mask.White)

	out, err := Blend(white, black, m)
	require.NoError(t, err)

	// Every pixel, frame included.
	for i := range white.Pix {
		assert.InDelta(t, white.Pix[i], out.Pix[i], 1, "sample %d", i)
	}
}

func TestBlendAllBlackMaskGivesBlack(t *testing.T) {
	const H, W = 64, 64
	white := patterned(H, W, 0)
	black := patterned(H, W, 2)
	m := raster.NewFilled(H, W, 1, mask.Black)

	out, err := Blend(white, black, m)
	require.NoError(t, err)

	for i := range black.Pix {
		assert.InDelta(t, black.Pix[i], out.Pix[i], 1, "sample %d", i)
	}
}

func TestBlendReflectBorderExactEverywhere(t *testing.T) {
	const H, W = 48, 40
	white := patterned(H, W, 0.5)
	black := patterned(H, W, 1.5)
	b := New(Options{Border: BorderReflect101, Sequential: true})

	out, err := b.Blend(white, black, raster.NewFilled(H, W, 1, mask.White))
	require.NoError(t, err)
	for i := range white.Pix {
		assert.InDelta(t, white.Pix[i], out.Pix[i], 1, "sample %d", i)
	}

	out, err = b.Blend(white, black, raster.NewFilled(H, W, 1, mask.Black))
	require.NoError(t, err)
	for i := range black.Pix {
		assert.InDelta(t, black.Pix[i], out.Pix[i], 1, "sample %d", i)
	}
}

func TestBlendRectangleScenario(t *testing.T) {
	const N = 50
	white := raster.NewFilled(N, N, 3, 255)
	black := raster.NewFilled(N, N, 3, 0)
	// Black over rows 10..20 and columns 10..20 inclusive.
	m := mask.BuildRect(N, N, 10, 10, 10, 10)

	out, err := Blend(white, black, m)
	require.NoError(t, err)
	require.Equal(t, raster.Size{Rows: N, Cols: N}, out.Size())
	require.Equal(t, 3, out.Channels)

	// Core of the patch comes from the black image.
	for r := 13; r <= 17; r++ {
		for c := 13; c <= 17; c++ {
			for ch := 0; ch < 3; ch++ {
				assert.InDelta(t, 0, out.At(r, c, ch), 1, "pixel %d,%d", r, c)
			}
		}
	}

	// Outside the halo of the coarse mask band every pixel, frame included,
	// is the white image.
	const haloLo, haloHi = 4, 26
	for r := 0; r < N; r++ {
		for c := 0; c < N; c++ {
			if r >= haloLo && r <= haloHi && c >= haloLo && c <= haloHi {
				continue
			}
			for ch := 0; ch < 3; ch++ {
				assert.InDelta(t, 255, out.At(r, c, ch), 1, "pixel %d,%d", r, c)
			}
		}
	}

	// The transition is spread out: no neighbouring pixels differ by anything
	// close to the hard 255 step of the mask.
	const lo, hi = 4, 44
	var worst float64
	for r := lo; r < hi; r++ {
		for c := lo; c < hi; c++ {
			v := out.At(r, c, 0)
			worst = math.Max(worst, math.Abs(v-out.At(r, c+1, 0)))
			worst = math.Max(worst, math.Abs(v-out.At(r+1, c, 0)))
		}
	}
	assert.Less(t, worst, 0.5*255)
	assert.Greater(t, worst, 0.0)
}

func TestRepeatedBlendsKeepFrame(t *testing.T) {
	const N = 64
	base := raster.NewFilled(N, N, 3, 200)
	// Aligned secondary with a no-data frame.
	patch := raster.NewFilled(N, N, 3, 120)
	for r := 0; r < N; r++ {
		for c := 0; c < N; c++ {
			if r < 3 || c < 3 || r >= N-3 || c >= N-3 {
				copy(patch.Pixel(r, c), []float64{0, 0, 0})
			}
		}
	}
	m := mask.BuildRect(N, N, 29, 29, 6, 6)

	out := base
	for i := 0; i < 3; i++ {
		var err error
		out, err = Blend(out, patch, m)
		require.NoError(t, err)
	}

	for r := 0; r < N; r++ {
		for c := 0; c < N; c++ {
			if r >= 8 && r < N-8 && c >= 8 && c < N-8 {
				continue
			}
			assert.InDelta(t, 200, out.At(r, c, 0), 1, "pixel %d,%d", r, c)
		}
	}
	assert.Less(t, out.At(32, 32, 0), 170.0)
}

func TestBlendSequentialMatchesParallel(t *testing.T) {
	const H, W = 40, 56
	white := patterned(H, W, 0)
	black := patterned(H, W, 1)
	m := mask.BuildRect(H, W, 12, 8, 20, 15)

	par, err := New(DefaultOptions()).Blend(white, black, m)
	require.NoError(t, err)
	seq, err := New(Options{Sequential: true}).Blend(white, black, m)
	require.NoError(t, err)
	assert.Equal(t, seq.Pix, par.Pix)
}

func TestBlendAcceptsUnitMaskAndPerChannelMask(t *testing.T) {
	const H, W = 32, 32
	white := patterned(H, W, 0)
	black := patterned(H, W, 1)

	byteMask := mask.BuildRect(H, W, 8, 8, 10, 10)
	unit := byteMask.Clone()
	for i := range unit.Pix {
		unit.Pix[i] /= 255
	}
	a, err := Blend(white, black, byteMask)
	require.NoError(t, err)
	b, err := Blend(white, black, unit)
	require.NoError(t, err)
	assert.Equal(t, a.Pix, b.Pix)

	planes := []*raster.Plane{byteMask.Channel(0), byteMask.Channel(0), byteMask.Channel(0)}
	rgbMask, err := raster.Merge(planes)
	require.NoError(t, err)
	c, err := Blend(white, black, rgbMask)
	require.NoError(t, err)
	assert.Equal(t, a.Pix, c.Pix)
}

func TestBlendOutputIsQuantised(t *testing.T) {
	const H, W = 32, 32
	out, err := Blend(patterned(H, W, 0), patterned(H, W, 3), mask.BuildRect(H, W, 5, 5, 20, 20))
	require.NoError(t, err)
	for _, v := range out.Pix {
		assert.Equal(t, math.Round(v), v)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 255.0)
	}
}

func TestBlendDoesNotModifyInputs(t *testing.T) {
	const H, W = 32, 32
	white := patterned(H, W, 0)
	black := patterned(H, W, 1)
	m := mask.BuildRect(H, W, 4, 4, 8, 8)
	wc, bc, mc := white.Clone(), black.Clone(), m.Clone()

	_, err := Blend(white, black, m)
	require.NoError(t, err)
	assert.Equal(t, wc.Pix, white.Pix)
	assert.Equal(t, bc.Pix, black.Pix)
	assert.Equal(t, mc.Pix, m.Pix)
}
