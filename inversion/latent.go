package inversion

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/latentlab/ganinvert/domain"
	"github.com/latentlab/ganinvert/generator"
)

const (
	LatentMeanStyle   = "mean_style"
	LatentIndependent = "independent"
)

var ErrUnknownLatentType = errors.New("unbekannter latent-typ")

// latentFunc erzeugt den Startpunkt der Optimierung
type latentFunc func(g generator.Generator, mean []float32, weight float32, rng *rand.Rand) ([]float32, error)

var latentTypes = map[string]latentFunc{
	// Kopie des mittleren Styles
	LatentMeanStyle: func(g generator.Generator, mean []float32, _ float32, _ *rand.Rand) ([]float32, error) {
		if len(mean) != g.LatentDim() {
			return nil, fmt.Errorf("%w: mean style hat %d werte", generator.ErrStyleDim, len(mean))
		}
		return append([]float32(nil), mean...), nil
	},

	// Ein frischer Style, zum Mittel hin gezogen
	LatentIndependent: func(g generator.Generator, mean []float32, weight float32, rng *rand.Rand) ([]float32, error) {
		style, err := g.Style(generator.Noise(g.LatentDim(), rng))
		if err != nil {
			return nil, err
		}
		if len(mean) != len(style) {
			return nil, fmt.Errorf("%w: mean style hat %d werte", generator.ErrStyleDim, len(mean))
		}
		for i := range style {
			style[i] = mean[i] + weight*(style[i]-mean[i])
		}
		return style, nil
	},
}

// LatentTypes gibt die bekannten Strategien zurueck
func LatentTypes() []string {
	return []string{LatentMeanStyle, LatentIndependent}
}

func latentInitializer(name string) (latentFunc, error) {
	f, ok := latentTypes[name]
	if !ok {
		if s := domain.Suggest(name, LatentTypes()); s != "" {
			return nil, fmt.Errorf("%w %q (meinten sie %q?)", ErrUnknownLatentType, name, s)
		}
		return nil, fmt.Errorf("%w %q (bekannt: %v)", ErrUnknownLatentType, name, LatentTypes())
	}
	return f, nil
}

// InitialLatent gibt einen Latent-Vektor zurueck, der dem Aufrufer gehoert
func InitialLatent(g generator.Generator, latentType string, mean []float32, weight float32, rng *rand.Rand) ([]float32, error) {
	f, err := latentInitializer(latentType)
	if err != nil {
		return nil, err
	}
	return f(g, mean, weight, rng)
}
