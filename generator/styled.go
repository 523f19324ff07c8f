// MODUL: styled
// ZWECK: Progressiver Style-Generator mit Mapping-MLP und to-RGB-Stufen
// INPUT: Gewichte aus dem Checkpoint
// OUTPUT: Bilder in [-1, 1]-Skala (wie das Trainingsziel)
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: gonum.org/v1/gonum/blas/blas32
// HINWEISE: Equalized Learning Rate wird zur Laufzeit skaliert,
//           gespeichert sind die unskalierten Gewichte

package generator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/latentlab/ganinvert/vision"
)

const leakySlope = 0.2

// linear ist eine voll verbundene Schicht y = scale * W x + b
type linear struct {
	w     blas32.General
	b     []float32
	scale float32
}

func newLinear(w []float32, out, in int, b []float32, equalized bool) (*linear, error) {
	if len(w) != out*in {
		return nil, fmt.Errorf("gewicht hat %d werte, erwartet %dx%d", len(w), out, in)
	}
	if b == nil {
		b = make([]float32, out)
	}
	if len(b) != out {
		return nil, fmt.Errorf("bias hat %d werte, erwartet %d", len(b), out)
	}

	l := &linear{
		w:     blas32.General{Rows: out, Cols: in, Stride: in, Data: w},
		b:     b,
		scale: 1,
	}
	if equalized {
		l.scale = float32(math.Sqrt(2 / float64(in)))
	}
	return l, nil
}

func (l *linear) forward(x []float32) []float32 {
	y := make([]float32, l.w.Rows)
	copy(y, l.b)
	blas32.Gemv(blas.NoTrans, l.scale, l.w, vec(x), 1, vec(y))
	return y
}

// backward addiert scale * W^T g auf dst
func (l *linear) backward(g, dst []float32) {
	blas32.Gemv(blas.Trans, l.scale, l.w, vec(g), 1, vec(dst))
}

func vec(x []float32) blas32.Vector {
	return blas32.Vector{N: len(x), Data: x, Inc: 1}
}

func leaky(x []float32) []float32 {
	y := make([]float32, len(x))
	for i, v := range x {
		if v < 0 {
			v *= leakySlope
		}
		y[i] = v
	}
	return y
}

func pixelNorm(x []float32) []float32 {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	inv := float32(1 / math.Sqrt(sum/float64(len(x))+1e-8))

	y := make([]float32, len(x))
	for i, v := range x {
		y[i] = v * inv
	}
	return y
}

// StyledGenerator ist der eingefrorene Generator einer Domaene
type StyledGenerator struct {
	dim       int
	mapping   []*linear
	synthesis *linear
	toRGB     []*linear
}

var _ Generator = (*StyledGenerator)(nil)

func (g *StyledGenerator) LatentDim() int { return g.dim }

func (g *StyledGenerator) MaxStep() int { return len(g.toRGB) - 1 }

func (g *StyledGenerator) Resolution(step int) int { return Resolution(step) }

// Style berechnet w = MLP(pixelnorm(z))
func (g *StyledGenerator) Style(z []float32) ([]float32, error) {
	if len(z) != g.dim {
		return nil, fmt.Errorf("%w: z hat %d werte, erwartet %d", ErrStyleDim, len(z), g.dim)
	}

	x := pixelNorm(z)
	for _, l := range g.mapping {
		x = leaky(l.forward(x))
	}
	return x, nil
}

// ForwardFromStyle erzeugt ein Bild aus einem Style-Vektor
func (g *StyledGenerator) ForwardFromStyle(style []float32, s Synthesis) (*Output, error) {
	if len(style) != g.dim {
		return nil, fmt.Errorf("%w: style hat %d werte, erwartet %d", ErrStyleDim, len(style), g.dim)
	}
	if s.Step < 0 || s.Step > g.MaxStep() {
		return nil, fmt.Errorf("%w: %d (maximal %d)", ErrStep, s.Step, g.MaxStep())
	}

	truncate := s.MeanStyle != nil
	if truncate && len(s.MeanStyle) != g.dim {
		return nil, fmt.Errorf("%w: mean style hat %d werte", ErrStyleDim, len(s.MeanStyle))
	}

	w := style
	if truncate {
		w = make([]float32, g.dim)
		for i := range w {
			w[i] = s.MeanStyle[i] + s.StyleWeight*(style[i]-s.MeanStyle[i])
		}
	}

	pre := g.synthesis.forward(w)
	h := leaky(pre)

	res := Resolution(s.Step)
	rgb := g.toRGB[s.Step].forward(h)

	blend := s.Step > 0 && s.Alpha >= 0 && s.Alpha < 1
	if blend {
		skip := upsample2(g.toRGB[s.Step-1].forward(h), 3, res/2, res/2)
		for i := range rgb {
			rgb[i] = (1-s.Alpha)*skip[i] + s.Alpha*rgb[i]
		}
	}

	img := &vision.Tensor{Data: rgb, Channels: 3, Height: res, Width: res}

	backward := func(grad []float32) []float32 {
		gh := make([]float32, len(h))
		if blend {
			gs := make([]float32, len(grad))
			for i, v := range grad {
				gs[i] = s.Alpha * v
			}
			g.toRGB[s.Step].backward(gs, gh)

			gp := downsum2(grad, 3, res/2, res/2)
			for i := range gp {
				gp[i] *= 1 - s.Alpha
			}
			g.toRGB[s.Step-1].backward(gp, gh)
		} else {
			g.toRGB[s.Step].backward(grad, gh)
		}

		for i, v := range pre {
			if v < 0 {
				gh[i] *= leakySlope
			}
		}

		gw := make([]float32, g.dim)
		g.synthesis.backward(gh, gw)
		if truncate {
			for i := range gw {
				gw[i] *= s.StyleWeight
			}
		}
		return gw
	}

	return &Output{Image: img, backward: backward}, nil
}

// upsample2 verdoppelt Hoehe und Breite (nearest neighbour)
func upsample2(x []float32, c, h, w int) []float32 {
	out := make([]float32, c*4*h*w)
	for ch := 0; ch < c; ch++ {
		for y := 0; y < 2*h; y++ {
			for xx := 0; xx < 2*w; xx++ {
				out[(ch*2*h+y)*2*w+xx] = x[(ch*h+y/2)*w+xx/2]
			}
		}
	}
	return out
}

// downsum2 ist die Adjungierte von upsample2
func downsum2(g []float32, c, h, w int) []float32 {
	out := make([]float32, c*h*w)
	for ch := 0; ch < c; ch++ {
		for y := 0; y < 2*h; y++ {
			for xx := 0; xx < 2*w; xx++ {
				out[(ch*h+y/2)*w+xx/2] += g[(ch*2*h+y)*2*w+xx]
			}
		}
	}
	return out
}
