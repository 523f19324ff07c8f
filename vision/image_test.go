package vision

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeBytes(t *testing.T) {
	img, err := DecodeBytes(pngBytes(t, 64, 32, color.White))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Width)
	assert.Equal(t, 32, img.Height)
	assert.Equal(t, FormatPNG, img.Format)
}

func TestDecodeBytesGIF(t *testing.T) {
	pal := image.NewPaletted(image.Rect(0, 0, 4, 4), color.Palette{color.Black, color.RGBA{0, 200, 0, 255}})
	pal.SetColorIndex(2, 2, 1)
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, pal, nil))

	img, err := DecodeBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, FormatGIF, img.Format)
	assert.Equal(t, color.RGBA{0, 200, 0, 255}, img.Image.RGBAAt(2, 2))
}

func TestDecodeBytesInvalid(t *testing.T) {
	_, err := DecodeBytes([]byte("kein bild, nur text"))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	// gueltige Signatur, kaputter Rest
	_, err = DecodeBytes([]byte("\x89PNG\r\n\x1a\n-----"))
	assert.ErrorContains(t, err, "png dekodieren")
}

func TestLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 10, 20, color.Black), 0o644))

	img, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 10, 20), img.Image.Bounds())
}

func TestLoadImageMissingNamesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample_imgs", "Dog", "0.png")
	_, err := LoadImage(path)
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorContains(t, err, path)
}

func TestLoadImageDropsAlpha(t *testing.T) {
	img, err := DecodeBytes(pngBytes(t, 2, 2, color.NRGBA{200, 10, 20, 64}))
	require.NoError(t, err)
	// Farbe bleibt unmultipliziert, Alpha wird 255
	assert.Equal(t, color.RGBA{200, 10, 20, 255}, img.Image.RGBAAt(1, 1))
}

func TestDecodeImage(t *testing.T) {
	img, err := DecodeImage(bytes.NewReader(pngBytes(t, 80, 60, color.White)))
	require.NoError(t, err)
	assert.Equal(t, 80, img.Width)
	assert.Equal(t, 60, img.Height)
}

func TestResizeImage(t *testing.T) {
	img, err := DecodeBytes(pngBytes(t, 100, 40, color.RGBA{10, 20, 30, 255}))
	require.NoError(t, err)

	resized, err := ResizeImage(img, 256, 256)
	require.NoError(t, err)
	assert.Equal(t, 256, resized.Width)
	assert.Equal(t, 256, resized.Height)
	assert.Equal(t, FormatPNG, resized.Format)
	assert.Equal(t, color.RGBA{10, 20, 30, 255}, resized.Image.RGBAAt(128, 128))

	_, err = ResizeImage(img, 0, 50)
	assert.Error(t, err)
	_, err = ResizeImage(img, 50, -1)
	assert.Error(t, err)
}

func TestScaleToFit(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 200, 100))

	assert.Equal(t, image.Rect(0, 0, 50, 25), ScaleToFit(src, 50, 50).Bounds())
	assert.Same(t, src, ScaleToFit(src, 400, 400))
	assert.Same(t, src, ScaleToFit(src, 0, 10))
	assert.Equal(t, image.Rect(0, 0, 2, 1), ScaleToFit(src, 2, 2).Bounds())
}

func TestFitSize(t *testing.T) {
	tests := []struct {
		srcW, srcH, maxW, maxH int
		w, h                   int
	}{
		{200, 100, 100, 100, 100, 50},
		{100, 200, 100, 100, 50, 100},
		{100, 100, 200, 200, 200, 200},
		{50, 50, 100, 50, 50, 50},
		{1000, 1, 10, 10, 10, 1},
	}

	for _, tt := range tests {
		w, h := fitSize(tt.srcW, tt.srcH, tt.maxW, tt.maxH)
		assert.Equal(t, [2]int{tt.w, tt.h}, [2]int{w, h}, "fitSize(%d,%d,%d,%d)", tt.srcW, tt.srcH, tt.maxW, tt.maxH)
	}
}
