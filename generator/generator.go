// MODUL: generator
// ZWECK: Vertrag fuer vortrainierte Generatoren (Style -> Bild)
// INPUT: Style-Vektor, Synthese-Parameter
// OUTPUT: CHW-Bildtensor plus Vektor-Jacobi-Produkt fuer den Rueckweg
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: vision (Tensor)
// HINWEISE: Gewichte sind eingefroren, Gradienten fliessen nur zum Style

package generator

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/latentlab/ganinvert/vision"
)

var (
	ErrStep          = errors.New("progressiver schritt ausserhalb des generators")
	ErrSize          = errors.New("bildgroesse ist keine stufe des generators")
	ErrStyleDim      = errors.New("style-dimension passt nicht")
	ErrGradientShape = errors.New("gradient passt nicht zur ausgabe")
)

// Synthesis sind die festen Parameter eines Generator-Aufrufs
type Synthesis struct {
	// Step waehlt die Aufloesung 4 * 2^Step
	Step int

	// Alpha mischt mit der hochskalierten Vorstufe, wenn 0 <= Alpha < 1
	Alpha float32

	// MeanStyle und StyleWeight bilden den Truncation-Trick
	MeanStyle   []float32
	StyleWeight float32
}

// Generator bildet Style-Vektoren auf Bilder ab
type Generator interface {
	LatentDim() int
	MaxStep() int
	Resolution(step int) int

	// Style ist das Mapping-Netzwerk z -> w
	Style(z []float32) ([]float32, error)

	ForwardFromStyle(style []float32, s Synthesis) (*Output, error)
}

// Output ist ein generiertes Bild mit seinem Rueckweg
type Output struct {
	Image *vision.Tensor

	backward func(grad []float32) []float32
}

// Backward gibt dL/dstyle fuer dL/dImage zurueck
func (o *Output) Backward(grad []float32) ([]float32, error) {
	if len(grad) != o.Image.Len() {
		return nil, fmt.Errorf("%w: %d statt %d werte", ErrGradientShape, len(grad), o.Image.Len())
	}
	return o.backward(grad), nil
}

// Resolution ist die Kantenlaenge zu einem progressiven Schritt
func Resolution(step int) int {
	return 4 << step
}

// maxResolutionStep ist der groesste Schritt, dessen Kantenlaenge noch in
// ein int passt
const maxResolutionStep = strconv.IntSize - 4

// StepForSize ist die Umkehrung von Resolution
func StepForSize(size int) (int, error) {
	for step := 0; step <= maxResolutionStep && Resolution(step) <= size; step++ {
		if Resolution(step) == size {
			return step, nil
		}
	}
	return 0, fmt.Errorf("%w: %d (erwartet 4, 8, 16, ...)", ErrSize, size)
}
