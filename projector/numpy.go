// MODUL: numpy
// ZWECK: Minimale numpy-Typen fuer das Entpickeln von PCA-Artefakten
// INPUT: Pickle-Zustaende von ndarray, dtype und Skalaren
// OUTPUT: float64-Arrays mit Form
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: github.com/nlpodyssey/gopickle/types, github.com/x448/float16
// HINWEISE: Unterstuetzt f2/f4/f8, i1..i8, u1..u8 und b1; Objekt-Arrays nicht

package projector

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/nlpodyssey/gopickle/types"
	"github.com/x448/float16"
)

// dtype entspricht numpy.dtype fuer einfache Zahlentypen
type dtype struct {
	kind  byte
	size  int
	order byte
}

// dtypeClass ist die Klasse numpy.dtype, aufgerufen als dtype('f8', False, True)
type dtypeClass struct{}

var _ types.Callable = (*dtypeClass)(nil)

func (dtypeClass) Call(args ...interface{}) (interface{}, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("numpy.dtype ohne argumente")
	}
	spec, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("numpy.dtype: erwartet string, bekommen %T", args[0])
	}
	return parseDType(spec)
}

// parseDType liest Angaben wie "f8", "<f4" oder "|b1"
func parseDType(spec string) (*dtype, error) {
	d := &dtype{order: '<'}
	if len(spec) > 0 {
		switch spec[0] {
		case '<', '>', '|', '=':
			d.order = spec[0]
			spec = spec[1:]
		}
	}
	if len(spec) < 2 {
		return nil, fmt.Errorf("unbekannter numpy dtype %q", spec)
	}

	size, err := strconv.Atoi(spec[1:])
	if err != nil {
		return nil, fmt.Errorf("unbekannter numpy dtype %q", spec)
	}
	d.kind, d.size = spec[0], size

	switch {
	case d.kind == 'f' && (size == 2 || size == 4 || size == 8):
	case (d.kind == 'i' || d.kind == 'u') && (size == 1 || size == 2 || size == 4 || size == 8):
	case d.kind == 'b' && size == 1:
	default:
		return nil, fmt.Errorf("nicht unterstuetzter numpy dtype %q", spec)
	}
	return d, nil
}

// PySetState uebernimmt die Byte-Reihenfolge aus (3, '<', None, ...)
func (d *dtype) PySetState(state interface{}) error {
	t, ok := state.(*types.Tuple)
	if !ok || t.Len() < 2 {
		return nil
	}
	if order, ok := t.Get(1).(string); ok && len(order) == 1 {
		d.order = order[0]
	}
	return nil
}

func (d *dtype) byteOrder() binary.ByteOrder {
	if d.order == '>' {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// decode wandelt Rohdaten in float64-Werte um
func (d *dtype) decode(raw []byte) ([]float64, error) {
	if len(raw)%d.size != 0 {
		return nil, fmt.Errorf("rohdaten-laenge %d ist kein vielfaches von %d", len(raw), d.size)
	}

	bo := d.byteOrder()
	out := make([]float64, len(raw)/d.size)
	for i := range out {
		b := raw[i*d.size : (i+1)*d.size]
		switch d.kind {
		case 'f':
			switch d.size {
			case 2:
				out[i] = float64(float16.Frombits(bo.Uint16(b)).Float32())
			case 4:
				out[i] = float64(math.Float32frombits(bo.Uint32(b)))
			case 8:
				out[i] = math.Float64frombits(bo.Uint64(b))
			}
		case 'i':
			switch d.size {
			case 1:
				out[i] = float64(int8(b[0]))
			case 2:
				out[i] = float64(int16(bo.Uint16(b)))
			case 4:
				out[i] = float64(int32(bo.Uint32(b)))
			case 8:
				out[i] = float64(int64(bo.Uint64(b)))
			}
		case 'u', 'b':
			switch d.size {
			case 1:
				out[i] = float64(b[0])
			case 2:
				out[i] = float64(bo.Uint16(b))
			case 4:
				out[i] = float64(bo.Uint32(b))
			case 8:
				out[i] = float64(bo.Uint64(b))
			}
		}
	}
	return out, nil
}

// ndarray ist ein dichtes numpy-Array, immer in C-Reihenfolge gespeichert
type ndarray struct {
	shape []int
	data  []float64
}

// ndarrayClass steht fuer numpy.ndarray als Argument von _reconstruct
type ndarrayClass struct{}

// reconstruct ist numpy.core.multiarray._reconstruct(ndarray, (0,), b'b')
type reconstruct struct{}

var _ types.Callable = (*reconstruct)(nil)

func (reconstruct) Call(args ...interface{}) (interface{}, error) {
	return &ndarray{}, nil
}

// PySetState liest (version, shape, dtype, is_fortran, rawdata)
func (a *ndarray) PySetState(state interface{}) error {
	t, ok := state.(*types.Tuple)
	if !ok {
		return fmt.Errorf("ndarray-zustand: erwartet tuple, bekommen %T", state)
	}

	items := make([]interface{}, t.Len())
	for i := range items {
		items[i] = t.Get(i)
	}
	// Aeltere Pickles lassen die Versionsnummer weg
	if len(items) == 5 {
		items = items[1:]
	}
	if len(items) != 4 {
		return fmt.Errorf("ndarray-zustand mit %d eintraegen", t.Len())
	}

	shape, err := intTuple(items[0])
	if err != nil {
		return fmt.Errorf("ndarray-form: %w", err)
	}
	dt, ok := items[1].(*dtype)
	if !ok {
		return fmt.Errorf("ndarray-dtype: bekommen %T", items[1])
	}
	fortran, _ := items[2].(bool)

	var raw []byte
	switch v := items[3].(type) {
	case []byte:
		raw = v
	case string:
		raw = latin1(v)
	default:
		return fmt.Errorf("ndarray-daten vom typ %T werden nicht unterstuetzt", items[3])
	}

	data, err := dt.decode(raw)
	if err != nil {
		return err
	}

	n := 1
	for _, s := range shape {
		n *= s
	}
	if n != len(data) {
		return fmt.Errorf("ndarray-form %v passt nicht zu %d werten", shape, len(data))
	}

	if fortran && len(shape) == 2 {
		data = fortranToC(data, shape[0], shape[1])
	}

	a.shape, a.data = shape, data
	return nil
}

// fortranToC ordnet eine spaltenweise gespeicherte Matrix zeilenweise um
func fortranToC(data []float64, rows, cols int) []float64 {
	out := make([]float64, len(data))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out[r*cols+c] = data[c*rows+r]
		}
	}
	return out
}

// scalar ist numpy.core.multiarray.scalar(dtype, rawbytes)
type scalar struct{}

var _ types.Callable = (*scalar)(nil)

func (scalar) Call(args ...interface{}) (interface{}, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("numpy scalar mit %d argumenten", len(args))
	}
	dt, ok := args[0].(*dtype)
	if !ok {
		return nil, fmt.Errorf("numpy scalar: dtype vom typ %T", args[0])
	}

	var raw []byte
	switch v := args[1].(type) {
	case []byte:
		raw = v
	case string:
		raw = latin1(v)
	default:
		return nil, fmt.Errorf("numpy scalar: daten vom typ %T", args[1])
	}

	vals, err := dt.decode(raw)
	if err != nil {
		return nil, err
	}
	if len(vals) != 1 {
		return nil, fmt.Errorf("numpy scalar mit %d werten", len(vals))
	}
	return vals[0], nil
}

// codecsEncode ist _codecs.encode(str, 'latin1') aus Protokoll-2-Pickles
type codecsEncode struct{}

var _ types.Callable = (*codecsEncode)(nil)

func (codecsEncode) Call(args ...interface{}) (interface{}, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("_codecs.encode ohne argumente")
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("_codecs.encode: erwartet string, bekommen %T", args[0])
	}
	return latin1(s), nil
}

// latin1 kodiert jeden Codepoint als ein Byte
func latin1(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		out = append(out, byte(r))
	}
	return out
}

// intTuple liest ein Tuple aus ganzen Zahlen
func intTuple(v interface{}) ([]int, error) {
	t, ok := v.(*types.Tuple)
	if !ok {
		return nil, fmt.Errorf("erwartet tuple, bekommen %T", v)
	}
	out := make([]int, t.Len())
	for i := range out {
		n, err := toInt(t.Get(i))
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// toInt akzeptiert die Ganzzahl-Darstellungen von gopickle
func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case *big.Int:
		return int(n.Int64()), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("erwartet ganzzahl, bekommen %T", v)
}

// toFloat akzeptiert Zahlen, numpy-Skalare und 0-dimensionale Arrays
func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case *ndarray:
		if len(n.data) == 1 {
			return n.data[0], nil
		}
		return 0, fmt.Errorf("erwartet skalar, bekommen array der form %v", n.shape)
	}
	i, err := toInt(v)
	return float64(i), err
}
