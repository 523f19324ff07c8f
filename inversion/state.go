package inversion

import (
	"image"

	"github.com/latentlab/ganinvert/optim"
	"github.com/latentlab/ganinvert/vision"
)

// TraceEvery ist der Abstand der dauerhaften Plot-Punkte
const TraceEvery = 100

// Target ist das Zielbild eines Laufs
type Target struct {
	Path string

	// Raw ist das Bild wie gelesen, fuer die Anzeige
	Raw *image.RGBA

	// Tensor ist das transformierte Ziel fuer den Verlust
	Tensor *vision.Tensor
}

// LoadTarget liest und transformiert ein Zielbild
func LoadTarget(path string, tr vision.Transform) (*Target, error) {
	img, err := vision.LoadImage(path)
	if err != nil {
		return nil, err
	}
	t, err := vision.Preprocess(img, tr)
	if err != nil {
		return nil, err
	}
	return &Target{Path: path, Raw: img.Image, Tensor: t}, nil
}

// State ist der veraenderliche Zustand eines Laufs
type State struct {
	Target *Target

	// Iteration ist die zuletzt ausgefuehrte Iteration, 0 vor dem Start
	Iteration int
	Total     int

	Latent []float32
	Grad   []float32

	Adam     *optim.Adam
	Schedule *optim.CosineWarmRestarts

	Trace []TracePoint

	nonFiniteLogged bool
}

// Done meldet ob das Iterationsbudget erschoepft ist
func (s *State) Done() bool {
	return s.Iteration >= s.Total
}

// Frame ist das Ergebnis einer Iteration
type Frame struct {
	Iteration int
	Total     int

	Image      *image.RGBA
	Coordinate Coordinate
	Progress   float64

	Loss       float64
	Perceptual float64
	Pixel      float64
	LR         float32

	TraceAppended bool
}
