// domain.go - Domaenen-Tabelle fuer die GAN-Inversion
//
// Jede Domaene bestimmt Beispielbild-Verzeichnis, Generator-Checkpoint,
// PCA-Artefakt und Referenzpunkte im Koordinaten-Plot.
package domain

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Name ist der Anzeigename einer Domaene
type Name string

const (
	Dog    Name = "Dog"
	Cat    Name = "Cat"
	AFAD   Name = "AFAD"
	FFHQ   Name = "FFHQ"
	Celebs Name = "celebs"
)

// Verzeichnisse relativ zum Daten-Verzeichnis
const (
	SampleRoot     = "sample_imgs"
	PickleRoot     = "pickle_data"
	CheckpointRoot = "checkpoints"
)

var (
	ErrUnknownDomain    = errors.New("unbekannte domaene")
	ErrNoSamples        = errors.New("keine beispielbilder gefunden")
	ErrUnknownSample    = errors.New("unbekanntes beispielbild")
	ErrSampleDirMissing = errors.New("beispielbild-verzeichnis fehlt")
)

// Domain beschreibt eine auswaehlbare Domaene
type Domain struct {
	Name Name

	// GeneratorDomain ist die Domaene, deren Checkpoint geladen wird
	GeneratorDomain Name

	// ProjectorDomain ist die Domaene, deren pca(<name>).pickle geladen wird.
	// celebs nutzt bewusst das FFHQ-Artefakt.
	ProjectorDomain Name

	// SelectByName waehlt Beispielbilder ueber den Dateinamen statt ueber den Index
	SelectByName bool

	References []ReferencePoint
}

var domains = []Domain{
	{Name: Dog, GeneratorDomain: Dog, ProjectorDomain: Dog},
	{Name: Cat, GeneratorDomain: Cat, ProjectorDomain: Cat},
	{Name: AFAD, GeneratorDomain: AFAD, ProjectorDomain: AFAD},
	{Name: FFHQ, GeneratorDomain: FFHQ, ProjectorDomain: FFHQ, References: celebReferences},
	{Name: Celebs, GeneratorDomain: FFHQ, ProjectorDomain: FFHQ, SelectByName: true, References: celebReferences},
}

// All gibt alle Domaenen in Auswahl-Reihenfolge zurueck
func All() []Domain {
	out := make([]Domain, len(domains))
	copy(out, domains)
	return out
}

// Names gibt die Domaenen-Namen in Auswahl-Reihenfolge zurueck
func Names() []string {
	names := make([]string, len(domains))
	for i, d := range domains {
		names[i] = string(d.Name)
	}
	return names
}

// Lookup sucht eine Domaene exakt nach Namen
func Lookup(name string) (Domain, error) {
	for _, d := range domains {
		if string(d.Name) == name {
			return d, nil
		}
	}

	if suggestion := Suggest(name, Names()); suggestion != "" {
		return Domain{}, fmt.Errorf("%w %q (meinten sie %q?)", ErrUnknownDomain, name, suggestion)
	}
	return Domain{}, fmt.Errorf("%w %q, erlaubt: %s", ErrUnknownDomain, name, strings.Join(Names(), ", "))
}

// Suggest gibt den aehnlichsten Kandidaten zurueck, oder "" wenn keiner nahe genug ist
func Suggest(name string, candidates []string) string {
	best, bestDist := "", 0
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(c))
		if best == "" || d < bestDist {
			best, bestDist = c, d
		}
	}

	if best == "" || bestDist > max(2, len(best)/3) {
		return ""
	}
	return best
}

// SampleDir gibt das Beispielbild-Verzeichnis der Domaene zurueck
func (d Domain) SampleDir(dataDir string) string {
	return filepath.Join(dataDir, SampleRoot, string(d.Name))
}

// ProjectorPath gibt den Pfad des PCA-Artefakts zurueck
func (d Domain) ProjectorPath(dataDir string) string {
	return filepath.Join(dataDir, PickleRoot, fmt.Sprintf("pca(%s).pickle", d.ProjectorDomain))
}

// CheckpointPath gibt den Pfad des Generator-Checkpoints zurueck
func (d Domain) CheckpointPath(dataDir string) string {
	return filepath.Join(dataDir, CheckpointRoot, string(d.GeneratorDomain)+".pt")
}
