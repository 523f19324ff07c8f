// MODUL: load
// ZWECK: PCA-Artefakte laden und in eine Projektion umwandeln
// INPUT: Pfad zu pca(<domain>).pickle
// OUTPUT: *PCA
// NEBENEFFEKTE: Dateisystem-Lesezugriff
// ABHAENGIGKEITEN: gonum.org/v1/gonum/mat, pickle.go, numpy.go
// HINWEISE: Fehlende oder kaputte Artefakte sind immer ein Fehler, es wird
//           nie still eine andere Projektion verwendet

package projector

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nlpodyssey/gopickle/types"
	"gonum.org/v1/gonum/mat"

	"github.com/latentlab/ganinvert/domain"
)

var (
	ErrArtifactMissing   = errors.New("pca-artefakt fehlt")
	ErrMalformedArtifact = errors.New("pca-artefakt ungueltig")
)

// LoadArtifact liest ein PCA-Artefakt von der Platte
func LoadArtifact(path string) (*PCA, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}
		return nil, fmt.Errorf("pca-artefakt %s oeffnen: %w", path, err)
	}
	defer f.Close()

	p, err := ReadArtifact(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// LoadForDomain laedt das Artefakt, das der Domaene zugeordnet ist
func LoadForDomain(dataDir string, d domain.Domain) (*PCA, error) {
	return LoadArtifact(d.ProjectorPath(dataDir))
}

// ReadArtifact entpickelt ein Artefakt mit mindestens einem "model"-Eintrag
func ReadArtifact(r io.Reader) (*PCA, error) {
	v, err := unpickle(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArtifact, err)
	}

	var model interface{}
	switch root := v.(type) {
	case *types.Dict:
		m, ok := root.Get("model")
		if !ok {
			return nil, fmt.Errorf("%w: kein eintrag \"model\"", ErrMalformedArtifact)
		}
		model = m
	case *estimator:
		model = root
	default:
		return nil, fmt.Errorf("%w: unerwarteter wurzeltyp %T", ErrMalformedArtifact, v)
	}

	est, ok := model.(*estimator)
	if !ok {
		return nil, fmt.Errorf("%w: model ist kein scikit-learn-objekt (%T)", ErrMalformedArtifact, model)
	}
	return fromEstimator(est)
}

// fromEstimator liest components_, mean_, whiten und explained_variance_
func fromEstimator(est *estimator) (*PCA, error) {
	raw, ok := est.get("components_")
	if !ok {
		return nil, fmt.Errorf("%w: %s hat keine components_ (nicht gefittet?)", ErrMalformedArtifact, est.class)
	}
	comp, ok := raw.(*ndarray)
	if !ok || len(comp.shape) != 2 {
		return nil, fmt.Errorf("%w: components_ ist keine matrix", ErrMalformedArtifact)
	}

	var mean []float64
	if rawMean, ok := est.get("mean_"); ok && rawMean != nil {
		m, ok := rawMean.(*ndarray)
		if !ok {
			return nil, fmt.Errorf("%w: mean_ vom typ %T", ErrMalformedArtifact, rawMean)
		}
		mean = m.data
	}

	p, err := NewPCA(mat.NewDense(comp.shape[0], comp.shape[1], comp.data), mean)
	if err != nil {
		return nil, err
	}
	p.Class = est.class

	if w, ok := est.get("whiten"); ok {
		p.Whiten, _ = w.(bool)
	}
	if rawVar, ok := est.get("explained_variance_"); ok {
		if ev, ok := rawVar.(*ndarray); ok {
			p.ExplainedVariance = ev.data
		}
	}
	if p.Whiten && len(p.ExplainedVariance) != p.NumComponents() {
		return nil, fmt.Errorf("%w: whiten ohne passende explained_variance_", ErrMalformedArtifact)
	}

	return p, nil
}
