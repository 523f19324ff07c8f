// samples.go - Beispielbilder pro Domaene finden und auswaehlen
package domain

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/latentlab/ganinvert/vision"
)

// Sample ist ein auswaehlbares Zielbild
type Sample struct {
	// Key ist der Auswahlwert: Dateiname ohne Endung (celebs) oder Index
	Key  string
	Path string
}

// ListImages sammelt alle Bilddateien unterhalb von dir, sortiert nach Pfad
func ListImages(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSampleDirMissing, dir)
		}
		return nil, fmt.Errorf("beispielbild-verzeichnis %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s ist kein verzeichnis", ErrSampleDirMissing, dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && vision.IsImageFile(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("beispielbilder in %s lesen: %w", dir, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// Samples gibt die auswaehlbaren Beispielbilder der Domaene zurueck.
// Bei Index-Auswahl beginnt die Liste bei 1, das erste Bild wird wie in der
// urspruenglichen Auswahlbox nie angeboten.
func (d Domain) Samples(dataDir string) ([]Sample, error) {
	dir := d.SampleDir(dataDir)
	paths, err := ListImages(dir)
	if err != nil {
		return nil, err
	}

	var samples []Sample
	if d.SelectByName {
		for _, p := range paths {
			samples = append(samples, Sample{Key: baseName(p), Path: p})
		}
	} else {
		for i := 1; i < len(paths); i++ {
			samples = append(samples, Sample{Key: strconv.Itoa(i), Path: paths[i]})
		}
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSamples, dir)
	}
	return samples, nil
}

// ResolveSample waehlt ein Beispielbild. Ein leerer Schluessel waehlt den
// ersten Eintrag, wie die Vorauswahl einer Auswahlbox.
func (d Domain) ResolveSample(dataDir, key string) (Sample, error) {
	samples, err := d.Samples(dataDir)
	if err != nil {
		return Sample{}, err
	}
	if key == "" {
		return samples[0], nil
	}

	if d.SelectByName {
		// celebs: nur angebotene Namen, der Pfad ist immer <name>.png im
		// Beispielbild-Verzeichnis
		path := filepath.Join(d.SampleDir(dataDir), key+".png")
		if !offered(samples, key) || filepath.Dir(path) != filepath.Clean(d.SampleDir(dataDir)) {
			return Sample{}, fmt.Errorf("%w %q: %s", ErrUnknownSample, key, path)
		}
		if _, err := os.Stat(path); err != nil {
			return Sample{}, fmt.Errorf("%w %q: %s", ErrUnknownSample, key, path)
		}
		return Sample{Key: key, Path: path}, nil
	}

	for _, s := range samples {
		if s.Key == key {
			return s, nil
		}
	}
	return Sample{}, fmt.Errorf("%w %q in %s, erlaubt 1..%d", ErrUnknownSample, key, d.Name, len(samples))
}

func offered(samples []Sample, key string) bool {
	for _, s := range samples {
		if s.Key == key {
			return true
		}
	}
	return false
}

// baseName gibt den Dateinamen bis zum ersten Punkt zurueck
func baseName(path string) string {
	name := filepath.Base(path)
	if i := strings.Index(name, "."); i >= 0 {
		return name[:i]
	}
	return name
}
