package imageio

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// marker is a 3x2 image with a red top-left pixel
func marker() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	return img
}

func isRed(c color.Color) bool {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return n.R == 255 && n.G == 0 && n.B == 0
}

func TestOrient(t *testing.T) {
	tests := []struct {
		orientation int
		size        image.Point
		red         image.Point
	}{
		{1, image.Pt(3, 2), image.Pt(0, 0)},
		{2, image.Pt(3, 2), image.Pt(2, 0)},
		{3, image.Pt(3, 2), image.Pt(2, 1)},
		{4, image.Pt(3, 2), image.Pt(0, 1)},
		{5, image.Pt(2, 3), image.Pt(0, 0)},
		{6, image.Pt(2, 3), image.Pt(1, 0)},
		{7, image.Pt(2, 3), image.Pt(1, 2)},
		{8, image.Pt(2, 3), image.Pt(0, 2)},
		{0, image.Pt(3, 2), image.Pt(0, 0)},
	}
	for _, tt := range tests {
		out := Orient(marker(), tt.orientation)
		assert.Equal(t, tt.size, out.Bounds().Size(), "orientation %d", tt.orientation)
		assert.True(t, isRed(out.At(tt.red.X, tt.red.Y)), "orientation %d red pixel at %v", tt.orientation, tt.red)
	}
}

func TestSaveLoadPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "face.png")
	require.NoError(t, Save(path, marker()))

	img, meta, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "png", meta.Format)
	assert.Equal(t, 1, meta.Orientation)
	assert.Equal(t, image.Pt(3, 2), meta.Size)
	assert.True(t, isRed(img.At(0, 0)))
}

func TestEncodeDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, marker(), ".png"))

	img, meta, err := Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "png", meta.Format)
	assert.Equal(t, image.Pt(3, 2), img.Bounds().Size())

	assert.ErrorIs(t, Encode(&buf, marker(), ".xyz"), ErrUnsupportedFormat)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := Load(filepath.Join(dir, "missing.jpg"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	junk := filepath.Join(dir, "junk.jpg")
	require.NoError(t, os.WriteFile(junk, []byte("not an image"), 0o644))
	_, _, err = Load(junk)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
