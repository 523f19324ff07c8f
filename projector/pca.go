// MODUL: pca
// ZWECK: Lineare Projektion von Latent-Vektoren auf PCA-Koordinaten
// INPUT: Latent-Vektor (float32), Anzahl Achsen
// OUTPUT: Koordinaten (float64)
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: gonum.org/v1/gonum/mat
// HINWEISE: Entspricht sklearn PCA.transform inklusive whiten

package projector

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrDimension = errors.New("dimension passt nicht zur projektion")
	ErrAxes      = errors.New("zu viele achsen angefordert")
)

// PCA ist eine gefittete Hauptkomponenten-Transformation
type PCA struct {
	// Components hat die Form (n_components, n_features)
	Components *mat.Dense

	// Mean ist der Feature-Mittelwert, nil bei TruncatedSVD
	Mean []float64

	Whiten            bool
	ExplainedVariance []float64

	// Class ist der Python-Klassenname des Artefakts
	Class string
}

// NewPCA prueft die Formen und baut eine Projektion
func NewPCA(components *mat.Dense, mean []float64) (*PCA, error) {
	if components == nil {
		return nil, fmt.Errorf("%w: keine komponenten", ErrMalformedArtifact)
	}
	_, f := components.Dims()
	if mean != nil && len(mean) != f {
		return nil, fmt.Errorf("%w: mean hat %d werte, komponenten %d features", ErrMalformedArtifact, len(mean), f)
	}
	return &PCA{Components: components, Mean: mean}, nil
}

// NumComponents gibt die Anzahl der Ausgabe-Achsen zurueck
func (p *PCA) NumComponents() int {
	k, _ := p.Components.Dims()
	return k
}

// NumFeatures gibt die erwartete Latent-Dimension zurueck
func (p *PCA) NumFeatures() int {
	_, f := p.Components.Dims()
	return f
}

// Transform projiziert x auf alle Komponenten
func (p *PCA) Transform(x []float64) ([]float64, error) {
	k, f := p.Components.Dims()
	if len(x) != f {
		return nil, fmt.Errorf("%w: latent hat %d werte, erwartet %d", ErrDimension, len(x), f)
	}

	centered := mat.NewVecDense(f, nil)
	for i, v := range x {
		if p.Mean != nil {
			v -= p.Mean[i]
		}
		centered.SetVec(i, v)
	}

	var y mat.VecDense
	y.MulVec(p.Components, centered)

	out := make([]float64, k)
	for i := range out {
		out[i] = y.AtVec(i)
		if p.Whiten && i < len(p.ExplainedVariance) && p.ExplainedVariance[i] > 0 {
			out[i] /= math.Sqrt(p.ExplainedVariance[i])
		}
	}
	return out, nil
}

// Coord projiziert eine Kopie des Latents und gibt die ersten nAxis Achsen zurueck
func (p *PCA) Coord(latent []float32, nAxis int) ([]float64, error) {
	if nAxis <= 0 || nAxis > p.NumComponents() {
		return nil, fmt.Errorf("%w: %d von %d", ErrAxes, nAxis, p.NumComponents())
	}

	x := make([]float64, len(latent))
	for i, v := range latent {
		x[i] = float64(v)
	}

	y, err := p.Transform(x)
	if err != nil {
		return nil, err
	}
	return y[:nAxis], nil
}
