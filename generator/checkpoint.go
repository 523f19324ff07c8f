// MODUL: checkpoint
// ZWECK: Generator-Gewichte aus PyTorch-Checkpoints laden
// INPUT: checkpoints/<domain>.pt
// OUTPUT: *StyledGenerator
// NEBENEFFEKTE: Dateisystem-Lesezugriff
// ABHAENGIGKEITEN: github.com/nlpodyssey/gopickle/pytorch
// HINWEISE: Schluessel: style.<i>.weight/bias, synthesis.weight/bias,
//           to_rgb.<step>.weight/bias

package generator

import (
	"errors"
	"fmt"
	"os"

	"github.com/nlpodyssey/gopickle/pytorch"
)

var ErrCheckpoint = errors.New("generator-checkpoint ungueltig")

// Param ist ein dichter float32-Parameter in C-Reihenfolge
type Param struct {
	Shape []int
	Data  []float32
}

// stateDict ist die gemeinsame Lese-Schnittstelle von Dict und OrderedDict
type stateDict interface {
	Get(key interface{}) (interface{}, bool)
}

// LoadCheckpoint liest einen Checkpoint mit optional verschachteltem State-Dict
func LoadCheckpoint(path string) (*StyledGenerator, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("generator-checkpoint %s: %w", path, err)
	}

	root, err := pytorch.Load(path)
	if err != nil {
		return nil, fmt.Errorf("generator-checkpoint %s laden: %w", path, err)
	}

	sd, ok := root.(stateDict)
	if !ok {
		return nil, fmt.Errorf("%w: %s hat wurzeltyp %T", ErrCheckpoint, path, root)
	}
	for _, key := range []string{"g_running", "generator"} {
		if nested, ok := sd.Get(key); ok {
			if nsd, ok := nested.(stateDict); ok {
				sd = nsd
				break
			}
		}
	}

	params := func(name string) (*Param, bool, error) {
		v, ok := sd.Get(name)
		if !ok {
			return nil, false, nil
		}
		t, ok := v.(*pytorch.Tensor)
		if !ok {
			return nil, true, fmt.Errorf("%w: %s ist kein tensor (%T)", ErrCheckpoint, name, v)
		}
		p, err := gather(t)
		if err != nil {
			return nil, true, fmt.Errorf("%w: %s: %v", ErrCheckpoint, name, err)
		}
		return p, true, nil
	}

	g, err := FromParams(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// gather liest einen Tensor ueber Offset und Strides aus seinem Storage
func gather(t *pytorch.Tensor) (*Param, error) {
	var src []float32
	switch s := t.Source.(type) {
	case *pytorch.FloatStorage:
		src = s.Data
	case *pytorch.HalfStorage:
		src = s.Data
	case *pytorch.BFloat16Storage:
		src = s.Data
	case *pytorch.DoubleStorage:
		src = make([]float32, len(s.Data))
		for i, v := range s.Data {
			src[i] = float32(v)
		}
	default:
		return nil, fmt.Errorf("storage-typ %T wird nicht unterstuetzt", t.Source)
	}

	if len(t.Stride) != len(t.Size) {
		return nil, fmt.Errorf("form %v mit strides %v", t.Size, t.Stride)
	}

	n := 1
	for _, s := range t.Size {
		n *= s
	}

	out := make([]float32, n)
	idx := make([]int, len(t.Size))
	for i := range out {
		off := t.StorageOffset
		for d, k := range idx {
			off += k * t.Stride[d]
		}
		if off < 0 || off >= len(src) {
			return nil, fmt.Errorf("index %d ausserhalb des storage (%d)", off, len(src))
		}
		out[i] = src[off]

		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < t.Size[d] {
				break
			}
			idx[d] = 0
		}
	}

	return &Param{Shape: append([]int(nil), t.Size...), Data: out}, nil
}

// ParamFunc liefert einen Parameter nach Name; ok meldet ob er existiert
type ParamFunc func(name string) (p *Param, ok bool, err error)

// FromParams baut den Generator aus benannten Parametern
func FromParams(get ParamFunc) (*StyledGenerator, error) {
	layer := func(prefix string, equalized bool, in int) (*linear, bool, error) {
		w, ok, err := get(prefix + ".weight")
		if err != nil || !ok {
			return nil, ok, err
		}
		if len(w.Shape) != 2 {
			return nil, true, fmt.Errorf("%w: %s.weight hat form %v", ErrCheckpoint, prefix, w.Shape)
		}
		if in > 0 && w.Shape[1] != in {
			return nil, true, fmt.Errorf("%w: %s.weight erwartet eingang %d, hat %d", ErrCheckpoint, prefix, in, w.Shape[1])
		}

		var bias []float32
		b, ok, err := get(prefix + ".bias")
		if err != nil {
			return nil, true, err
		}
		if ok {
			bias = b.Data
		}

		l, err := newLinear(w.Data, w.Shape[0], w.Shape[1], bias, equalized)
		if err != nil {
			return nil, true, fmt.Errorf("%w: %s: %v", ErrCheckpoint, prefix, err)
		}
		return l, true, nil
	}

	syn, ok, err := layer("synthesis", false, 0)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: synthesis.weight fehlt", ErrCheckpoint)
	}

	g := &StyledGenerator{dim: syn.w.Cols, synthesis: syn}

	for i := 0; ; i++ {
		l, ok, err := layer(fmt.Sprintf("style.%d", i), true, g.dim)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if l.w.Rows != g.dim {
			return nil, fmt.Errorf("%w: style.%d hat ausgang %d, erwartet %d", ErrCheckpoint, i, l.w.Rows, g.dim)
		}
		g.mapping = append(g.mapping, l)
	}

	for step := 0; ; step++ {
		l, ok, err := layer(fmt.Sprintf("to_rgb.%d", step), false, syn.w.Rows)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		res := Resolution(step)
		if l.w.Rows != 3*res*res {
			return nil, fmt.Errorf("%w: to_rgb.%d hat %d ausgaenge, erwartet 3x%dx%d", ErrCheckpoint, step, l.w.Rows, res, res)
		}
		g.toRGB = append(g.toRGB, l)
	}

	if len(g.toRGB) == 0 {
		return nil, fmt.Errorf("%w: keine to_rgb-stufen", ErrCheckpoint)
	}
	return g, nil
}

// FromMap ist FromParams fuer bereits geladene Parameter
func FromMap(params map[string]*Param) (*StyledGenerator, error) {
	return FromParams(func(name string) (*Param, bool, error) {
		p, ok := params[name]
		return p, ok, nil
	})
}
