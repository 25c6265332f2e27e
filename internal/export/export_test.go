package export

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func board() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 64, 36))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(10, 10, color.RGBA{A: 255})
	return img
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(".PDF")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	assert.Equal(t, ".pdf", f.Ext())

	_, err = ParseFormat("svg")
	assert.Error(t, err)
}

func TestPNGRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, board(), FormatPNG, ""))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	r, _, _, _ := img.At(10, 10).RGBA()
	assert.Zero(t, r)
}

func TestPDFProducesDocument(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, board(), FormatPDF, "Session 7"))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Contains(t, buf.String(), "/Subtype /Image")
}
