// MODUL: pickle
// ZWECK: Entpickeln von pca(<domain>).pickle mit scikit-learn/numpy-Klassen
// INPUT: io.Reader mit Python-Pickle-Daten
// OUTPUT: geschachtelte gopickle-Werte mit estimator/ndarray-Knoten
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: github.com/nlpodyssey/gopickle/pickle, .../types
// HINWEISE: Unbekannte Klassen werden als opake Objekte gelesen und erst beim
//           Zugriff als Fehler gemeldet

package projector

import (
	"fmt"
	"io"
	"strings"

	"github.com/nlpodyssey/gopickle/pickle"
	"github.com/nlpodyssey/gopickle/types"
)

// estimator ist ein entpickeltes scikit-learn-Objekt mit seinem __dict__
type estimator struct {
	class string
	state *types.Dict
}

// estimatorClass erzeugt estimator-Instanzen ueber NEWOBJ oder _reconstructor
type estimatorClass struct {
	name string
}

var (
	_ types.PyNewable       = (*estimatorClass)(nil)
	_ types.Callable        = (*estimatorClass)(nil)
	_ types.PyStateSettable = (*estimator)(nil)
)

func (c *estimatorClass) PyNew(args ...interface{}) (interface{}, error) {
	return &estimator{class: c.name}, nil
}

func (c *estimatorClass) Call(args ...interface{}) (interface{}, error) {
	return &estimator{class: c.name}, nil
}

func (e *estimator) PySetState(state interface{}) error {
	// (state, slotstate) wird auf den dict-Teil reduziert
	if t, ok := state.(*types.Tuple); ok && t.Len() == 2 {
		state = t.Get(0)
	}
	d, ok := state.(*types.Dict)
	if !ok {
		return fmt.Errorf("%s: zustand vom typ %T", e.class, state)
	}
	e.state = d
	return nil
}

// get liest ein Attribut aus dem Objekt-Zustand
func (e *estimator) get(key string) (interface{}, bool) {
	if e.state == nil {
		return nil, false
	}
	return e.state.Get(key)
}

// opaque steht fuer Klassen, die fuer die Projektion keine Rolle spielen
type opaque struct {
	class string
}

var (
	_ types.PyNewable       = (*opaque)(nil)
	_ types.Callable        = (*opaque)(nil)
	_ types.PyStateSettable = (*opaque)(nil)
)

func (o *opaque) PyNew(args ...interface{}) (interface{}, error) { return &opaque{class: o.class}, nil }
func (o *opaque) Call(args ...interface{}) (interface{}, error)  { return &opaque{class: o.class}, nil }
func (o *opaque) PySetState(state interface{}) error             { return nil }

// findClass loest die globalen Namen eines PCA-Artefakts auf
func findClass(module, name string) (interface{}, error) {
	switch module {
	case "numpy", "numpy.core.multiarray", "numpy._core.multiarray":
		switch name {
		case "dtype":
			return &dtypeClass{}, nil
		case "ndarray":
			return &ndarrayClass{}, nil
		case "_reconstruct":
			return &reconstruct{}, nil
		case "scalar":
			return &scalar{}, nil
		}
	case "_codecs":
		if name == "encode" {
			return &codecsEncode{}, nil
		}
	}

	if strings.HasPrefix(module, "sklearn.") {
		return &estimatorClass{name: module + "." + name}, nil
	}

	return &opaque{class: module + "." + name}, nil
}

// unpickle liest einen Pickle-Strom mit den Klassen von findClass
func unpickle(r io.Reader) (interface{}, error) {
	u := pickle.NewUnpickler(r)
	u.FindClass = findClass
	return u.Load()
}
