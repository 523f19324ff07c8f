// Package optim enthaelt den Optimierer und den Lernraten-Plan der Inversion.
package optim

import (
	"fmt"
	"math"
)

// Adam ist der bias-korrigierte Adam-Optimierer fuer einen Parametervektor
type Adam struct {
	Beta1       float32
	Beta2       float32
	Epsilon     float32
	WeightDecay float32

	step int
	m    []float32
	v    []float32
}

// NewAdam erstellt Adam mit den torch-Standardwerten
func NewAdam() *Adam {
	return &Adam{Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-8}
}

// Steps gibt die Anzahl der ausgefuehrten Schritte zurueck
func (opt *Adam) Steps() int {
	return opt.step
}

// Step aktualisiert params in place um -lr * mHat / (sqrt(vHat) + eps)
func (opt *Adam) Step(params, grad []float32, lr float32) error {
	if len(params) != len(grad) {
		return fmt.Errorf("adam: %d parameter, %d gradienten", len(params), len(grad))
	}
	if opt.m == nil {
		opt.m = make([]float32, len(params))
		opt.v = make([]float32, len(params))
	}
	if len(opt.m) != len(params) {
		return fmt.Errorf("adam: parametergroesse von %d auf %d geaendert", len(opt.m), len(params))
	}

	opt.step++
	biasCorrection1 := 1.0 - math.Pow(float64(opt.Beta1), float64(opt.step))
	biasCorrection2 := 1.0 - math.Pow(float64(opt.Beta2), float64(opt.step))
	stepSize := float64(lr) / biasCorrection1

	for j, g := range grad {
		// L2 wie torch.optim.Adam, nicht entkoppelt
		if opt.WeightDecay != 0 {
			g += opt.WeightDecay * params[j]
		}

		opt.m[j] = opt.Beta1*opt.m[j] + (1-opt.Beta1)*g
		opt.v[j] = opt.Beta2*opt.v[j] + (1-opt.Beta2)*g*g

		denom := math.Sqrt(float64(opt.v[j]))/math.Sqrt(biasCorrection2) + float64(opt.Epsilon)
		params[j] -= float32(stepSize * float64(opt.m[j]) / denom)
	}
	return nil
}

// Clone gibt eine unabhaengige Kopie mit eigenen Momenten zurueck
func (opt *Adam) Clone() *Adam {
	c := *opt
	if opt.m != nil {
		c.m = append([]float32(nil), opt.m...)
		c.v = append([]float32(nil), opt.v...)
	}
	return &c
}

func (opt *Adam) Reset() {
	opt.step = 0
	opt.m = nil
	opt.v = nil
}
