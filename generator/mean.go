package generator

import (
	"fmt"
	"math/rand/v2"
)

// MeanStyle mittelt Style(z) ueber n standardnormale Ziehungen
func MeanStyle(g Generator, n int, rng *rand.Rand) ([]float32, error) {
	if n <= 0 {
		return nil, fmt.Errorf("style_mean_num muss positiv sein, ist %d", n)
	}

	mean := make([]float32, g.LatentDim())
	for range n {
		s, err := g.Style(Noise(g.LatentDim(), rng))
		if err != nil {
			return nil, err
		}
		for i, v := range s {
			mean[i] += v
		}
	}

	for i := range mean {
		mean[i] /= float32(n)
	}
	return mean, nil
}

// Noise zieht einen standardnormalen Latent-Vektor
func Noise(dim int, rng *rand.Rand) []float32 {
	z := make([]float32, dim)
	for i := range z {
		z[i] = float32(rng.NormFloat64())
	}
	return z
}
