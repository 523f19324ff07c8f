// MODUL: tensor
// ZWECK: CHW-Bildtensor fuer Generator-Ausgaben und Zielbilder
// INPUT: float32-Daten mit Kanal/Hoehe/Breite
// OUTPUT: Tensor, Layout-Konvertierungen
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: github.com/pdevine/tensor (Achsen-Permutation)
// HINWEISE: Layout ist immer Channel-First, wie bei torchvision ToTensor

package vision

import (
	"fmt"

	"github.com/pdevine/tensor"
)

// Tensor ist ein Bild im CHW-Layout
type Tensor struct {
	Data     []float32
	Channels int
	Height   int
	Width    int
}

// NewTensor legt einen genullten Tensor an
func NewTensor(c, h, w int) *Tensor {
	return &Tensor{
		Data:     make([]float32, c*h*w),
		Channels: c,
		Height:   h,
		Width:    w,
	}
}

// Shape gibt [C, H, W] zurueck
func (t *Tensor) Shape() []int {
	return []int{t.Channels, t.Height, t.Width}
}

// Len gibt die Anzahl der Elemente zurueck
func (t *Tensor) Len() int {
	return t.Channels * t.Height * t.Width
}

// Clone erstellt eine tiefe Kopie
func (t *Tensor) Clone() *Tensor {
	data := make([]float32, len(t.Data))
	copy(data, t.Data)
	return &Tensor{Data: data, Channels: t.Channels, Height: t.Height, Width: t.Width}
}

// SameShape prueft ob zwei Tensoren dieselbe Form haben
func (t *Tensor) SameShape(o *Tensor) bool {
	return t.Channels == o.Channels && t.Height == o.Height && t.Width == o.Width
}

// Validate prueft ob Daten und Form zusammenpassen
func (t *Tensor) Validate() error {
	if t.Channels <= 0 || t.Height <= 0 || t.Width <= 0 {
		return fmt.Errorf("ungueltige tensor-form %v", t.Shape())
	}
	if len(t.Data) != t.Len() {
		return fmt.Errorf("tensor-form %v passt nicht zu %d werten", t.Shape(), len(t.Data))
	}
	return nil
}

// permute ordnet die Achsen eines dichten float32-Tensors um und gibt die
// physisch umkopierten Daten zurueck
func permute(data []float32, shape []int, axes ...int) ([]float32, error) {
	backing := make([]float32, len(data))
	copy(backing, data)

	t := tensor.New(tensor.WithShape(shape...), tensor.WithBacking(backing))
	if err := t.T(axes...); err != nil {
		return nil, err
	}
	if err := t.Transpose(); err != nil {
		return nil, err
	}

	out, ok := t.Data().([]float32)
	if !ok {
		return nil, fmt.Errorf("unerwarteter tensor-datentyp %T", t.Data())
	}
	return out, nil
}

// CHWTensorLayout konvertiert HWC zu CHW Layout
func CHWTensorLayout(hwc []float32, h, w, c int) ([]float32, error) {
	if len(hwc) != h*w*c {
		return nil, fmt.Errorf("hwc-laenge %d passt nicht zu %dx%dx%d", len(hwc), h, w, c)
	}
	return permute(hwc, []int{h, w, c}, 2, 0, 1)
}

// HWCTensorLayout konvertiert CHW zu HWC Layout
func HWCTensorLayout(chw []float32, c, h, w int) ([]float32, error) {
	if len(chw) != c*h*w {
		return nil, fmt.Errorf("chw-laenge %d passt nicht zu %dx%dx%d", len(chw), c, h, w)
	}
	return permute(chw, []int{c, h, w}, 1, 2, 0)
}
