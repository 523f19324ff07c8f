package projector

import (
	"bytes"
	"encoding/binary"
	"math"
)

// pickleWriter baut Protokoll-3-Pickles Opcode fuer Opcode zusammen
type pickleWriter struct {
	bytes.Buffer
}

func newPickle() *pickleWriter {
	w := &pickleWriter{}
	w.Write([]byte{0x80, 3})
	return w
}

func (w *pickleWriter) global(module, name string) *pickleWriter {
	w.WriteByte('c')
	w.WriteString(module + "\n" + name + "\n")
	return w
}

func (w *pickleWriter) str(s string) *pickleWriter {
	w.WriteByte('X')
	binary.Write(w, binary.LittleEndian, uint32(len(s)))
	w.WriteString(s)
	return w
}

func (w *pickleWriter) raw(b []byte) *pickleWriter {
	w.WriteByte('B')
	binary.Write(w, binary.LittleEndian, uint32(len(b)))
	w.Write(b)
	return w
}

func (w *pickleWriter) int(n int32) *pickleWriter {
	w.WriteByte('J')
	binary.Write(w, binary.LittleEndian, n)
	return w
}

func (w *pickleWriter) float(f float64) *pickleWriter {
	w.WriteByte('G')
	binary.Write(w, binary.BigEndian, math.Float64bits(f))
	return w
}

func (w *pickleWriter) bool(b bool) *pickleWriter {
	if b {
		w.WriteByte(0x88)
	} else {
		w.WriteByte(0x89)
	}
	return w
}

func (w *pickleWriter) op(ops ...byte) *pickleWriter {
	w.Write(ops)
	return w
}

func (w *pickleWriter) mark() *pickleWriter   { return w.op('(') }
func (w *pickleWriter) tuple() *pickleWriter  { return w.op('t') }
func (w *pickleWriter) none() *pickleWriter   { return w.op('N') }
func (w *pickleWriter) dict() *pickleWriter   { return w.op('}') }
func (w *pickleWriter) reduce() *pickleWriter { return w.op('R') }
func (w *pickleWriter) build() *pickleWriter  { return w.op('b') }

func (w *pickleWriter) stop() []byte {
	w.WriteByte('.')
	return w.Bytes()
}

// dtype schreibt numpy.dtype(spec, False, True) mit Zustand
func (w *pickleWriter) dtype(module, spec string, order string) *pickleWriter {
	w.global(module, "dtype").mark().str(spec).bool(false).bool(true).tuple().reduce()
	w.mark().int(3).str(order).none().none().none().int(-1).int(-1).int(0).tuple().build()
	return w
}

// ndarray schreibt ein float64- oder float16-Array in C-Reihenfolge
func (w *pickleWriter) ndarray(module string, shape []int32, spec string, data []byte) *pickleWriter {
	w.global(module, "_reconstruct")
	w.mark().global(module, "ndarray").mark().int(0).tuple().raw([]byte("b")).tuple().reduce()

	w.mark().int(1)
	w.mark()
	for _, s := range shape {
		w.int(s)
	}
	w.tuple()
	w.dtype(module, spec, "<")
	w.bool(false).raw(data).tuple().build()
	return w
}

func float64Bytes(vals ...float64) []byte {
	var b bytes.Buffer
	for _, v := range vals {
		binary.Write(&b, binary.LittleEndian, math.Float64bits(v))
	}
	return b.Bytes()
}

// pcaFields beschreibt den __dict__ eines gefitteten PCA-Objekts
type pcaFields struct {
	components []float64
	k, f       int
	mean       []float64
	whiten     bool
	variance   []float64
}

// pcaPickle erzeugt {"model": sklearn PCA} wie pickle.dump im Original
func pcaPickle(module string, p pcaFields) []byte {
	w := newPickle()
	w.dict().str("model")

	w.global("sklearn.decomposition._pca", "PCA")
	w.op(')').op(0x81)

	w.dict().mark()
	w.str("n_components").int(int32(p.k))
	w.str("whiten").bool(p.whiten)
	w.str("components_").ndarray(module, []int32{int32(p.k), int32(p.f)}, "f8", float64Bytes(p.components...))
	if p.mean != nil {
		w.str("mean_").ndarray(module, []int32{int32(p.f)}, "f8", float64Bytes(p.mean...))
	}
	if p.variance != nil {
		w.str("explained_variance_").ndarray(module, []int32{int32(p.k)}, "f8", float64Bytes(p.variance...))
	}
	w.str("_sklearn_version").str("1.3.0")
	w.op('u').build()

	w.op('s')
	return w.stop()
}
