// domain_test.go - Tests fuer Domaenen-Tabelle und Beispielbild-Auswahl
package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectorArtifactMapping(t *testing.T) {
	tests := []struct {
		domain   string
		artifact string
	}{
		{"Dog", "pca(Dog).pickle"},
		{"Cat", "pca(Cat).pickle"},
		{"AFAD", "pca(AFAD).pickle"},
		{"FFHQ", "pca(FFHQ).pickle"},
		{"celebs", "pca(FFHQ).pickle"},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			d, err := Lookup(tt.domain)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join("/data", PickleRoot, tt.artifact), d.ProjectorPath("/data"))
		})
	}
}

func TestGeneratorMapping(t *testing.T) {
	celebs, err := Lookup("celebs")
	require.NoError(t, err)
	assert.Equal(t, FFHQ, celebs.GeneratorDomain)
	assert.Equal(t, filepath.Join("d", CheckpointRoot, "FFHQ.pt"), celebs.CheckpointPath("d"))

	dog, err := Lookup("Dog")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("d", CheckpointRoot, "Dog.pt"), dog.CheckpointPath("d"))
	assert.Equal(t, filepath.Join("d", SampleRoot, "Dog"), dog.SampleDir("d"))
}

func TestReferencePoints(t *testing.T) {
	for _, d := range All() {
		switch d.Name {
		case FFHQ, Celebs:
			assert.Len(t, d.References, 10, d.Name)
		default:
			assert.Empty(t, d.References, d.Name)
		}
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("dgo")
	require.ErrorIs(t, err, ErrUnknownDomain)
	assert.Contains(t, err.Error(), `"Dog"`)

	_, err = Lookup("spaceships")
	require.ErrorIs(t, err, ErrUnknownDomain)
	assert.Contains(t, err.Error(), "erlaubt")
}

func TestSuggest(t *testing.T) {
	candidates := []string{"mean_style", "independent"}
	assert.Equal(t, "mean_style", Suggest("mean-style", candidates))
	assert.Equal(t, "independent", Suggest("indepndent", candidates))
	assert.Equal(t, "", Suggest("xyz", candidates))
}

// writeSamples legt leere Bilddateien fuer die Verzeichnisstruktur an
func writeSamples(t *testing.T, dir string, names ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte{0x89, 'P', 'N', 'G'}, 0o644))
	}
}

func TestSamplesByIndex(t *testing.T) {
	data := t.TempDir()
	dog, _ := Lookup("Dog")
	writeSamples(t, dog.SampleDir(data), "c.png", "a.png", "b.jpg", "notes.txt")

	samples, err := dog.Samples(data)
	require.NoError(t, err)

	// Index 0 (a.png) wird nie angeboten
	want := []Sample{
		{Key: "1", Path: filepath.Join(dog.SampleDir(data), "b.jpg")},
		{Key: "2", Path: filepath.Join(dog.SampleDir(data), "c.png")},
	}
	if diff := cmp.Diff(want, samples); diff != "" {
		t.Errorf("Samples() mismatch (-want +got):\n%s", diff)
	}

	s, err := dog.ResolveSample(data, "2")
	require.NoError(t, err)
	assert.Equal(t, want[1], s)

	s, err = dog.ResolveSample(data, "")
	require.NoError(t, err)
	assert.Equal(t, want[0], s)

	_, err = dog.ResolveSample(data, "0")
	assert.ErrorIs(t, err, ErrUnknownSample)
}

func TestSamplesByName(t *testing.T) {
	data := t.TempDir()
	celebs, _ := Lookup("celebs")
	writeSamples(t, celebs.SampleDir(data), "irene.png", "jimin.png")

	samples, err := celebs.Samples(data)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, "irene", samples[0].Key)

	s, err := celebs.ResolveSample(data, "jimin")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(celebs.SampleDir(data), "jimin.png"), s.Path)

	_, err = celebs.ResolveSample(data, "suzy")
	require.ErrorIs(t, err, ErrUnknownSample)
	assert.Contains(t, err.Error(), "suzy.png")
}

func TestSamplesByNameStaysInDir(t *testing.T) {
	data := t.TempDir()
	celebs, _ := Lookup("celebs")
	writeSamples(t, celebs.SampleDir(data), "irene.png")
	writeSamples(t, data, "outside.png")
	writeSamples(t, filepath.Join(celebs.SampleDir(data), "nested"), "deep.png")

	for _, key := range []string{
		"../../outside",
		"../../../" + filepath.Base(data) + "/outside",
		filepath.Join(data, "outside"),
		"nested/deep",
		"deep",
		"..",
		".",
	} {
		t.Run(key, func(t *testing.T) {
			s, err := celebs.ResolveSample(data, key)
			assert.ErrorIs(t, err, ErrUnknownSample, "pfad %q", s.Path)
		})
	}
}

func TestSamplesMissingDir(t *testing.T) {
	data := t.TempDir()
	cat, _ := Lookup("Cat")

	_, err := cat.Samples(data)
	require.ErrorIs(t, err, ErrSampleDirMissing)
	assert.Contains(t, err.Error(), cat.SampleDir(data))
}

func TestSamplesSingleImage(t *testing.T) {
	data := t.TempDir()
	afad, _ := Lookup("AFAD")
	writeSamples(t, afad.SampleDir(data), "only.png")

	_, err := afad.Samples(data)
	assert.ErrorIs(t, err, ErrNoSamples)
}
