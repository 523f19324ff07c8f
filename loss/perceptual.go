package loss

import (
	"gonum.org/v1/gonum/floats"

	"github.com/latentlab/ganinvert/vision"
)

// Perceptual vergleicht Intensitaet und Bildgradienten auf einer Bildpyramide.
// Alle Merkmale sind linear im Bild, der Gradient ist deshalb exakt.
type Perceptual struct {
	// Weights gewichtet die Pyramidenstufen, beginnend mit voller Aufloesung
	Weights []float64
}

// NewPerceptual erstellt eine Pyramide mit levels gleich gewichteten Stufen
func NewPerceptual(levels int) *Perceptual {
	if levels < 1 {
		levels = 1
	}
	w := make([]float64, levels)
	for i := range w {
		w[i] = 1 / float64(levels)
	}
	return &Perceptual{Weights: w}
}

func (p *Perceptual) Name() string { return "perceptual" }

// plane ist ein CHW-Feld in float64
type plane struct {
	data    []float64
	c, h, w int
}

func (p *Perceptual) Evaluate(pred, target *vision.Tensor) (float64, []float32, error) {
	if err := checkShapes(pred, target); err != nil {
		return 0, nil, err
	}

	levels := []plane{{diff(pred, target), pred.Channels, pred.Height, pred.Width}}
	for len(levels) < len(p.Weights) {
		last := levels[len(levels)-1]
		if last.h < 2 || last.w < 2 {
			break
		}
		levels = append(levels, pool2(last))
	}

	var value float64
	grads := make([]plane, len(levels))
	for k, l := range levels {
		v, g := levelDistance(l)
		value += p.Weights[k] * v
		floats.Scale(p.Weights[k], g.data)
		grads[k] = g
	}

	// Rueckweg durch die Pyramide, von grob nach fein
	for k := len(levels) - 1; k > 0; k-- {
		floats.Add(grads[k-1].data, unpool2(grads[k], levels[k-1]).data)
	}

	out := make([]float32, len(grads[0].data))
	for i, v := range grads[0].data {
		out[i] = float32(v)
	}
	return value, out, nil
}

// levelDistance ist mean(d^2) + mean(dx^2) + mean(dy^2) mit Gradient nach d
func levelDistance(d plane) (float64, plane) {
	g := plane{make([]float64, len(d.data)), d.c, d.h, d.w}
	n := float64(len(d.data))
	value := floats.Dot(d.data, d.data) / n
	for i, v := range d.data {
		g.data[i] = 2 * v / n
	}

	at := func(c, y, x int) int { return (c*d.h+y)*d.w + x }

	if d.w > 1 {
		nx := float64(d.c * d.h * (d.w - 1))
		for c := 0; c < d.c; c++ {
			for y := 0; y < d.h; y++ {
				for x := 0; x+1 < d.w; x++ {
					dx := d.data[at(c, y, x+1)] - d.data[at(c, y, x)]
					value += dx * dx / nx
					g.data[at(c, y, x+1)] += 2 * dx / nx
					g.data[at(c, y, x)] -= 2 * dx / nx
				}
			}
		}
	}

	if d.h > 1 {
		ny := float64(d.c * (d.h - 1) * d.w)
		for c := 0; c < d.c; c++ {
			for y := 0; y+1 < d.h; y++ {
				for x := 0; x < d.w; x++ {
					dy := d.data[at(c, y+1, x)] - d.data[at(c, y, x)]
					value += dy * dy / ny
					g.data[at(c, y+1, x)] += 2 * dy / ny
					g.data[at(c, y, x)] -= 2 * dy / ny
				}
			}
		}
	}

	return value, g
}

// pool2 ist 2x2 average pooling; ungerade Raender fallen weg
func pool2(in plane) plane {
	out := plane{c: in.c, h: in.h / 2, w: in.w / 2}
	out.data = make([]float64, out.c*out.h*out.w)
	for c := 0; c < in.c; c++ {
		for y := 0; y < out.h; y++ {
			for x := 0; x < out.w; x++ {
				i := (c*in.h+2*y)*in.w + 2*x
				sum := in.data[i] + in.data[i+1] + in.data[i+in.w] + in.data[i+in.w+1]
				out.data[(c*out.h+y)*out.w+x] = sum / 4
			}
		}
	}
	return out
}

// unpool2 ist die Adjungierte von pool2 auf die Form von fine
func unpool2(g plane, fine plane) plane {
	out := plane{make([]float64, len(fine.data)), fine.c, fine.h, fine.w}
	for c := 0; c < g.c; c++ {
		for y := 0; y < g.h; y++ {
			for x := 0; x < g.w; x++ {
				v := g.data[(c*g.h+y)*g.w+x] / 4
				i := (c*fine.h+2*y)*fine.w + 2*x
				out.data[i] += v
				out.data[i+1] += v
				out.data[i+fine.w] += v
				out.data[i+fine.w+1] += v
			}
		}
	}
	return out
}
