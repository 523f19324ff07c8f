package inversion

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/latentlab/ganinvert/domain"
	"github.com/latentlab/ganinvert/generator"
	"github.com/latentlab/ganinvert/projector"
)

// Model fasst die eingefrorenen Bausteine einer Domaene zusammen
type Model struct {
	Domain    domain.Domain
	Generator generator.Generator
	Projector Projector
}

// LoadModel laedt Generator-Checkpoint und PCA-Artefakt einer Domaene.
// checkpoint ueberschreibt den Standardpfad, wenn gesetzt.
func LoadModel(dataDir string, d domain.Domain, checkpoint string) (*Model, error) {
	start := time.Now()
	if checkpoint == "" {
		checkpoint = d.CheckpointPath(dataDir)
	}

	gen, err := generator.LoadCheckpoint(checkpoint)
	if err != nil {
		return nil, fmt.Errorf("generator fuer %s: %w", d.Name, err)
	}

	proj, err := projector.LoadForDomain(dataDir, d)
	if err != nil {
		return nil, fmt.Errorf("projektion fuer %s: %w", d.Name, err)
	}

	slog.Info("modell geladen",
		"domain", d.Name,
		"checkpoint", checkpoint,
		"projector", d.ProjectorPath(dataDir),
		"latent_dim", gen.LatentDim(),
		"max_resolution", gen.Resolution(gen.MaxStep()),
		"pca_class", proj.Class,
		"duration", time.Since(start))

	return &Model{Domain: d, Generator: gen, Projector: proj}, nil
}

// NewInverter ist New mit den Bausteinen des Modells
func (m *Model) NewInverter(opts Options, logger *slog.Logger) (*Inverter, error) {
	return New(opts, m.Generator, m.Projector, logger)
}
