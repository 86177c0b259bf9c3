package utils

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#ff8000")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, G: 128, B: 0, A: 255}, c)

	c, err = ParseHexColor("102030a0")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 16, G: 32, B: 48, A: 160}, c)
}

func TestParseHexColorInvalid(t *testing.T) {
	for _, s := range []string{"", "#fff", "not-a-color", "#gggggg"} {
		_, err := ParseHexColor(s)
		assert.Error(t, err, "input=%q", s)
	}
}
