package colorutil

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	c, err := Parse("Yellow")
	require.NoError(t, err)
	assert.Equal(t, Yellow, c)

	c, err = Parse("#00ff00")
	require.NoError(t, err)
	assert.Equal(t, Green, c)

	c, err = Parse("ff8000")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, G: 128, B: 0, A: 255}, c)

	_, err = Parse("not-a-color")
	assert.Error(t, err)
}

func TestFactors(t *testing.T) {
	assert.Equal(t, [3]float64{1, 1, 0}, Factors(Yellow))
	assert.Equal(t, [3]float64{0, 0, 0}, Factors(color.RGBA{}))
}

func TestHex(t *testing.T) {
	assert.Equal(t, "#ffff00", Hex(Yellow))
}
