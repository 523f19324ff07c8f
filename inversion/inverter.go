// MODUL: inverter
// ZWECK: Eine Iteration der GAN-Inversion (Generator, Verlust, Adam, Projektion)
// INPUT: State mit Latent, Optimierer und Zielbild
// OUTPUT: Frame fuer die Anzeige
// NEBENEFFEKTE: veraendert State (Latent, Momente, Lernraten-Plan, Trajektorie)
// ABHAENGIGKEITEN: generator, loss, optim, vision
// HINWEISE: Gradienten fliessen nur zum Latent, alle anderen Parameter sind fest

package inversion

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/latentlab/ganinvert/generator"
	"github.com/latentlab/ganinvert/logutil"
	"github.com/latentlab/ganinvert/loss"
	"github.com/latentlab/ganinvert/optim"
	"github.com/latentlab/ganinvert/vision"
)

// Scheduler-Konstanten der Demo
const (
	RestartPeriod = 400
	RestartMult   = 2
	MinLR         = 1e-5
)

// Projector bildet einen Latent-Vektor auf Koordinaten ab
type Projector interface {
	Coord(latent []float32, nAxis int) ([]float64, error)
}

// Inverter haelt alles, was waehrend eines Laufs fest bleibt
type Inverter struct {
	opts      Options
	gen       generator.Generator
	proj      Projector
	criterion *loss.Weighted
	synthesis generator.Synthesis
	rng       *rand.Rand
	logger    *slog.Logger
}

// New bereitet einen Lauf vor und berechnet den mittleren Style
func New(opts Options, gen generator.Generator, proj Projector, logger *slog.Logger) (*Inverter, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	step, err := generator.StepForSize(opts.Transform.Size)
	if err != nil {
		return nil, err
	}
	if step > gen.MaxStep() {
		return nil, fmt.Errorf("%w: img_size %d braucht stufe %d, generator hat %d", generator.ErrStep, opts.Transform.Size, step, gen.MaxStep())
	}

	rng := rand.New(rand.NewPCG(uint64(opts.Seed), uint64(opts.Seed)))
	mean, err := generator.MeanStyle(gen, opts.StyleMeanNum, rng)
	if err != nil {
		return nil, fmt.Errorf("mean style: %w", err)
	}

	return &Inverter{
		opts: opts,
		gen:  gen,
		proj: proj,
		criterion: &loss.Weighted{
			Perceptual: loss.NewPerceptual(4),
			Pixel:      loss.MSE{},
			Alpha:      opts.LPIPSAlpha,
			Beta:       opts.MSEBeta,
		},
		synthesis: generator.Synthesis{
			Step:        step,
			Alpha:       float32(opts.Alpha),
			MeanStyle:   mean,
			StyleWeight: float32(opts.StyleWeight),
		},
		rng:    rng,
		logger: logger,
	}, nil
}

func (inv *Inverter) Options() Options { return inv.opts }

// MeanStyle gibt den mittleren Style des Laufs zurueck
func (inv *Inverter) MeanStyle() []float32 {
	return inv.synthesis.MeanStyle
}

// SetCriterion ersetzt die Verlustterme, die Gewichte bleiben
func (inv *Inverter) SetCriterion(perceptual, pixel loss.Criterion) {
	inv.criterion.Perceptual = perceptual
	inv.criterion.Pixel = pixel
}

// NewState erzeugt den Startzustand fuer ein Zielbild
func (inv *Inverter) NewState(target *Target) (*State, error) {
	res := inv.gen.Resolution(inv.synthesis.Step)
	if target == nil || target.Tensor == nil {
		return nil, fmt.Errorf("kein zielbild")
	}
	if t := target.Tensor; t.Channels != 3 || t.Height != res || t.Width != res {
		return nil, fmt.Errorf("%w: zielbild %v, generator erzeugt [3 %d %d]", loss.ErrShape, t.Shape(), res, res)
	}

	latent, err := InitialLatent(inv.gen, inv.opts.LatentType, inv.synthesis.MeanStyle, inv.synthesis.StyleWeight, inv.rng)
	if err != nil {
		return nil, err
	}

	return &State{
		Target:   target,
		Total:    inv.opts.Iterations,
		Latent:   latent,
		Grad:     make([]float32, len(latent)),
		Adam:     optim.NewAdam(),
		Schedule: optim.NewCosineWarmRestarts(float32(inv.opts.LR), RestartPeriod, RestartMult, MinLR),
	}, nil
}

// Step fuehrt die naechste Iteration aus
func (inv *Inverter) Step(s *State) (Frame, error) {
	if s.Done() {
		return Frame{}, fmt.Errorf("lauf ist nach %d iterationen beendet", s.Total)
	}
	iteration := s.Iteration + 1

	out, err := inv.gen.ForwardFromStyle(s.Latent, inv.synthesis)
	if err != nil {
		return Frame{}, fmt.Errorf("iteration %d: generator: %w", iteration, err)
	}

	r, err := inv.criterion.EvaluateParts(out.Image, s.Target.Tensor)
	if err != nil {
		return Frame{}, fmt.Errorf("iteration %d: verlust: %w", iteration, err)
	}
	if !s.nonFiniteLogged && !isFinite(r.Total) {
		s.nonFiniteLogged = true
		inv.logger.Warn("verlust ist nicht endlich, optimierung laeuft weiter",
			"iteration", iteration, "perceptual", r.Perceptual, "mse", r.Pixel)
	}

	grad, err := out.Backward(r.Grad)
	if err != nil {
		return Frame{}, fmt.Errorf("iteration %d: rueckweg: %w", iteration, err)
	}
	// alles Fehlbare laeuft auf Kopien, State aendert sich erst danach
	nextGrad := grad
	if inv.opts.AccumulateGrad {
		nextGrad = make([]float32, len(grad))
		for i, g := range grad {
			nextGrad[i] = s.Grad[i] + g
		}
	}

	lr := s.Schedule.LR()
	latent := append([]float32(nil), s.Latent...)
	adam := s.Adam.Clone()
	if err := adam.Step(latent, nextGrad, lr); err != nil {
		return Frame{}, fmt.Errorf("iteration %d: %w", iteration, err)
	}

	img, err := vision.ToImage(inv.opts.Transform.Denormalize(out.Image))
	if err != nil {
		return Frame{}, fmt.Errorf("iteration %d: anzeige: %w", iteration, err)
	}

	c, err := inv.proj.Coord(append([]float32(nil), latent...), 3)
	if err != nil {
		return Frame{}, fmt.Errorf("iteration %d: projektion: %w", iteration, err)
	}

	copy(s.Grad, nextGrad)
	s.Latent = latent
	*s.Adam = *adam
	s.Iteration = iteration
	f := Frame{
		Iteration:  iteration,
		Total:      s.Total,
		Image:      img,
		Coordinate: Coordinate{X: c[0], Y: c[1], Z: c[2]},
		Progress:   float64(iteration) / float64(s.Total),
		Loss:       r.Total,
		Perceptual: r.Perceptual,
		Pixel:      r.Pixel,
		LR:         lr,
	}
	if iteration%TraceEvery == 1 {
		s.Trace = append(s.Trace, TracePoint{Iteration: iteration, X: c[0], Y: c[1]})
		f.TraceAppended = true
	}

	s.Schedule.Step()

	inv.logger.Log(context.Background(), logutil.LevelTrace, "iteration", "iteration", iteration, "loss", r.Total, "perceptual", r.Perceptual, "mse", r.Pixel, "lr", lr)
	return f, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
