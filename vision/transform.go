// MODUL: transform
// ZWECK: Feste Vorverarbeitung des Zielbilds und deren Umkehrung fuer die Anzeige
// INPUT: ImageInput, Transform (resize, img_size, normalize, mean, std)
// OUTPUT: normalisierter CHW-Tensor bzw. RGBA-Bild
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: golang.org/x/image/draw (ueber ResizeImage)
// HINWEISE: Denormalize ist die exakte Umkehrung von Normalize
//           (torchvision Normalize(-m/s, 1/s))

package vision

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// Standard-Normalisierungswerte, die Bilder auf [-1, 1] abbilden
var (
	StandardMean = [3]float32{0.5, 0.5, 0.5}
	StandardStd  = [3]float32{0.5, 0.5, 0.5}
)

// ErrInvalidTransform wird bei unbrauchbaren Vorverarbeitungs-Parametern zurueckgegeben
var ErrInvalidTransform = errors.New("ungueltige bild-transformation")

// Transform beschreibt die Vorverarbeitung eines Zielbilds
type Transform struct {
	Resize    bool
	Size      int
	Normalize bool
	Mean      [3]float32
	Std       [3]float32
}

// DefaultTransform entspricht resize=True, img_size=256, normalize=True, mean=std=0.5
func DefaultTransform() Transform {
	return Transform{
		Resize:    true,
		Size:      256,
		Normalize: true,
		Mean:      StandardMean,
		Std:       StandardStd,
	}
}

// Validate prueft Groesse und Standardabweichungen
func (tr Transform) Validate() error {
	if tr.Resize && tr.Size <= 0 {
		return fmt.Errorf("%w: img_size %d", ErrInvalidTransform, tr.Size)
	}
	if tr.Normalize {
		for i, s := range tr.Std {
			if s == 0 {
				return fmt.Errorf("%w: std[%d] ist 0", ErrInvalidTransform, i)
			}
		}
	}
	return nil
}

// Preprocess wendet Resize, ToTensor und Normalize an
func Preprocess(img *ImageInput, tr Transform) (*Tensor, error) {
	if err := tr.Validate(); err != nil {
		return nil, err
	}

	if tr.Resize && (img.Width != tr.Size || img.Height != tr.Size) {
		resized, err := ResizeImage(img, tr.Size, tr.Size)
		if err != nil {
			return nil, err
		}
		img = resized
	}

	hwc := ToFloat32Tensor(img)
	chw, err := CHWTensorLayout(hwc, img.Height, img.Width, 3)
	if err != nil {
		return nil, err
	}

	t := &Tensor{Data: chw, Channels: 3, Height: img.Height, Width: img.Width}
	if tr.Normalize {
		tr.normalizeInPlace(t)
	}
	return t, nil
}

// normalizeInPlace rechnet (x - mean) / std pro Kanal
func (tr Transform) normalizeInPlace(t *Tensor) {
	plane := t.Height * t.Width
	for c := 0; c < t.Channels && c < 3; c++ {
		m, s := tr.Mean[c], tr.Std[c]
		ch := t.Data[c*plane : (c+1)*plane]
		for i := range ch {
			ch[i] = (ch[i] - m) / s
		}
	}
}

// NormalizeTensor gibt eine normalisierte Kopie zurueck
func (tr Transform) NormalizeTensor(t *Tensor) *Tensor {
	out := t.Clone()
	if tr.Normalize {
		tr.normalizeInPlace(out)
	}
	return out
}

// Denormalize gibt eine Kopie mit x * std + mean pro Kanal zurueck
func (tr Transform) Denormalize(t *Tensor) *Tensor {
	out := t.Clone()
	if !tr.Normalize {
		return out
	}

	plane := out.Height * out.Width
	for c := 0; c < out.Channels && c < 3; c++ {
		m, s := tr.Mean[c], tr.Std[c]
		ch := out.Data[c*plane : (c+1)*plane]
		for i := range ch {
			ch[i] = ch[i]*s + m
		}
	}
	return out
}

// ToFloat32Tensor konvertiert ein Bild zu einem float32-Slice im HWC Format
// Werte werden auf [0,1] skaliert ohne Normalisierung
func ToFloat32Tensor(img *ImageInput) []float32 {
	bounds := img.Image.Bounds()
	result := make([]float32, 0, bounds.Dx()*bounds.Dy()*3)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.Image.RGBAAt(x, y)
			result = append(result, float32(c.R)/255.0, float32(c.G)/255.0, float32(c.B)/255.0)
		}
	}

	return result
}

// ToImage clippt einen [0,1]-Tensor und erzeugt ein RGBA-Bild
// (np.clip(sample, 0, 1) * 255)
func ToImage(t *Tensor) (*image.RGBA, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if t.Channels != 3 {
		return nil, fmt.Errorf("erwartet 3 kanaele, bekommen %d", t.Channels)
	}

	hwc, err := HWCTensorLayout(t.Data, t.Channels, t.Height, t.Width)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, t.Width, t.Height))
	for i := 0; i < t.Height*t.Width; i++ {
		img.SetRGBA(i%t.Width, i/t.Width, color.RGBA{
			R: toByte(hwc[3*i]),
			G: toByte(hwc[3*i+1]),
			B: toByte(hwc[3*i+2]),
			A: 0xff,
		})
	}
	return img, nil
}

// toByte clippt auf [0,1] und rundet auf 0..255
func toByte(v float32) uint8 {
	if v != v {
		return 0
	}
	v = min(max(v, 0), 1)
	return uint8(v*255 + 0.5)
}

// TensorShape gibt die Tensor-Form fuer ein gegebenes Layout zurueck
func (img *ImageInput) TensorShape(channelFirst bool) []int {
	if channelFirst {
		return []int{3, img.Height, img.Width}
	}
	return []int{img.Height, img.Width, 3}
}
