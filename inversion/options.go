package inversion

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/latentlab/ganinvert/vision"
)

var ErrInvalidOptions = errors.New("ungueltige inversions-optionen")

// Options sind die Parameter eines Inversionslaufs
type Options struct {
	ExpDetail string
	GPUNum    int
	Seed      int64

	LatentType string
	Iterations int
	LR         float64
	LPIPSAlpha float64
	MSEBeta    float64

	// Truncation-Trick und progressives Wachstum
	StyleMeanNum int
	Alpha        float64
	StyleWeight  float64

	Transform vision.Transform

	// AccumulateGrad setzt Gradienten nie zurueck (Verhalten der Streamlit-Demo)
	AccumulateGrad bool
}

// DefaultOptions gibt die Standardwerte der Demo zurueck
func DefaultOptions() Options {
	return Options{
		ExpDetail:    "Invert StyleGAN",
		GPUNum:       0,
		Seed:         100,
		LatentType:   LatentMeanStyle,
		Iterations:   6000,
		LR:           1e-3,
		LPIPSAlpha:   0.5,
		MSEBeta:      0.5,
		StyleMeanNum: 10,
		Alpha:        1,
		StyleWeight:  0.7,
		Transform:    vision.DefaultTransform(),
	}
}

func (o Options) Validate() error {
	switch {
	case o.Iterations < 1:
		return fmt.Errorf("%w: iterations muss mindestens 1 sein, ist %d", ErrInvalidOptions, o.Iterations)
	case o.LR <= 0:
		return fmt.Errorf("%w: lr muss positiv sein, ist %g", ErrInvalidOptions, o.LR)
	case o.LPIPSAlpha < 0 || o.MSEBeta < 0:
		return fmt.Errorf("%w: verlustgewichte duerfen nicht negativ sein", ErrInvalidOptions)
	case o.StyleMeanNum < 1:
		return fmt.Errorf("%w: style_mean_num muss mindestens 1 sein", ErrInvalidOptions)
	}
	if o.Transform.Size <= 0 {
		return fmt.Errorf("%w: img_size muss positiv sein, ist %d", ErrInvalidOptions, o.Transform.Size)
	}
	if err := o.Transform.Validate(); err != nil {
		return err
	}
	if _, err := latentInitializer(o.LatentType); err != nil {
		return err
	}
	return nil
}

// LogValue listet die Optionen fuer den Start-Log auf
func (o Options) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("latent_type", o.LatentType),
		slog.Int("iterations", o.Iterations),
		slog.Float64("lr", o.LR),
		slog.Float64("lpips_alpha", o.LPIPSAlpha),
		slog.Float64("mse_beta", o.MSEBeta),
		slog.Int("style_mean_num", o.StyleMeanNum),
		slog.Float64("alpha", o.Alpha),
		slog.Float64("style_weight", o.StyleWeight),
		slog.Int("img_size", o.Transform.Size),
		slog.Bool("normalize", o.Transform.Normalize),
		slog.Bool("accumulate_grad", o.AccumulateGrad),
		slog.Int64("seed", o.Seed),
	)
}
