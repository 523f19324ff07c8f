// MODUL: loss
// ZWECK: Rekonstruktionsverluste zwischen Generator-Ausgabe und Zielbild
// INPUT: zwei CHW-Tensoren gleicher Form
// OUTPUT: Skalar plus Gradient nach der Vorhersage
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: gonum.org/v1/gonum/floats, vision
// HINWEISE: Gradienten sind float32 wie die Bilddaten, Summen laufen in float64

package loss

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/latentlab/ganinvert/vision"
)

var ErrShape = errors.New("vorhersage und ziel haben verschiedene formen")

// Criterion bewertet eine Vorhersage gegen ein Ziel
type Criterion interface {
	Name() string
	Evaluate(pred, target *vision.Tensor) (value float64, grad []float32, err error)
}

func checkShapes(pred, target *vision.Tensor) error {
	if pred == nil || target == nil {
		return fmt.Errorf("%w: tensor fehlt", ErrShape)
	}
	if !pred.SameShape(target) || len(pred.Data) != len(target.Data) {
		return fmt.Errorf("%w: %v gegen %v", ErrShape, pred.Shape(), target.Shape())
	}
	return nil
}

// diff gibt pred - target in float64 zurueck
func diff(pred, target *vision.Tensor) []float64 {
	d := make([]float64, len(pred.Data))
	for i, v := range pred.Data {
		d[i] = float64(v) - float64(target.Data[i])
	}
	return d
}

// MSE ist der mittlere quadratische Fehler (Mittelwert-Reduktion)
type MSE struct{}

func (MSE) Name() string { return "mse" }

func (MSE) Evaluate(pred, target *vision.Tensor) (float64, []float32, error) {
	if err := checkShapes(pred, target); err != nil {
		return 0, nil, err
	}

	d := diff(pred, target)
	n := float64(len(d))

	grad := make([]float32, len(d))
	for i, v := range d {
		grad[i] = float32(2 * v / n)
	}
	return floats.Dot(d, d) / n, grad, nil
}

// Result zerlegt einen gewichteten Verlust
type Result struct {
	Total      float64
	Perceptual float64
	Pixel      float64
	Grad       []float32
}

// Weighted ist Alpha * Perceptual + Beta * Pixel
type Weighted struct {
	Perceptual Criterion
	Pixel      Criterion
	Alpha      float64
	Beta       float64
}

func (w *Weighted) Name() string { return "weighted" }

func (w *Weighted) Evaluate(pred, target *vision.Tensor) (float64, []float32, error) {
	r, err := w.EvaluateParts(pred, target)
	if err != nil {
		return 0, nil, err
	}
	return r.Total, r.Grad, nil
}

// EvaluateParts wertet beide Terme aus; ein Gewicht von 0 ueberspringt den Term
func (w *Weighted) EvaluateParts(pred, target *vision.Tensor) (Result, error) {
	if err := checkShapes(pred, target); err != nil {
		return Result{}, err
	}

	r := Result{Grad: make([]float32, len(pred.Data))}
	terms := []struct {
		c      Criterion
		weight float64
		value  *float64
	}{
		{w.Perceptual, w.Alpha, &r.Perceptual},
		{w.Pixel, w.Beta, &r.Pixel},
	}

	for _, term := range terms {
		if term.weight == 0 || term.c == nil {
			continue
		}
		v, g, err := term.c.Evaluate(pred, target)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", term.c.Name(), err)
		}
		*term.value = v
		r.Total += term.weight * v
		for i, gi := range g {
			r.Grad[i] += float32(term.weight) * gi
		}
	}
	return r, nil
}
