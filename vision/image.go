// image.go - Zielbilder laden und skalieren
// Enthaelt: ImageInput, LoadImage(), DecodeBytes(), DecodeImage(), ResizeImage(), ScaleToFit()

package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageInput ist ein dekodiertes, opakes Bild
type ImageInput struct {
	Image  *image.RGBA
	Width  int
	Height int
	Format ImageFormat
}

func newImageInput(img *image.RGBA, format ImageFormat) *ImageInput {
	b := img.Bounds()
	return &ImageInput{Image: img, Width: b.Dx(), Height: b.Dy(), Format: format}
}

// LoadImage liest und dekodiert ein Zielbild; Fehler nennen den Pfad
func LoadImage(path string) (*ImageInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("zielbild %q lesen: %w", path, err)
	}

	img, err := DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("zielbild %q: %w", path, err)
	}
	return img, nil
}

// DecodeBytes prueft die Signatur und dekodiert
func DecodeBytes(data []byte) (*ImageInput, error) {
	format := DetectFormat(data)
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s dekodieren: %w", format, err)
	}
	return newImageInput(opaque(img), format), nil
}

func DecodeImage(r io.Reader) (*ImageInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("bilddaten lesen: %w", err)
	}
	return DecodeBytes(data)
}

// opaque verwirft Alpha ohne die Farben vorzumultiplizieren, wie ein
// Farb-Laden ohne Alphakanal
func opaque(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := range b.Dy() {
		for x := range b.Dx() {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			i := dst.PixOffset(x, y)
			dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = c.R, c.G, c.B, 0xff
		}
	}
	return dst
}

// ResizeImage skaliert bilinear auf width x height
func ResizeImage(img *ImageInput, width, height int) (*ImageInput, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("ungueltige groesse %dx%d", width, height)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img.Image, img.Image.Bounds(), draw.Src, nil)
	return newImageInput(dst, img.Format), nil
}

// ScaleToFit verkleinert src unter Erhalt des Seitenverhaeltnisses auf
// hoechstens maxWidth x maxHeight. Vergroessert wird nie.
func ScaleToFit(src *image.RGBA, maxWidth, maxHeight int) *image.RGBA {
	b := src.Bounds()
	if maxWidth <= 0 || maxHeight <= 0 || (b.Dx() <= maxWidth && b.Dy() <= maxHeight) {
		return src
	}

	w, h := fitSize(b.Dx(), b.Dy(), maxWidth, maxHeight)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// fitSize gibt die groesste Groesse mit Seitenverhaeltnis srcW:srcH
// innerhalb von maxW x maxH zurueck, mindestens 1x1
func fitSize(srcW, srcH, maxW, maxH int) (int, int) {
	ratio := min(float64(maxW)/float64(srcW), float64(maxH)/float64(srcH))
	return max(int(float64(srcW)*ratio), 1), max(int(float64(srcH)*ratio), 1)
}
