package cmd

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latentlab/ganinvert/domain"
	"github.com/latentlab/ganinvert/inversion"
)

func optionsFor(t *testing.T, args ...string) (inversion.Options, error) {
	t.Helper()
	cmd := newInvertCmd()
	require.NoError(t, cmd.ParseFlags(args))
	v, err := loadConfig(cmd)
	require.NoError(t, err)
	return optionsFromConfig(v)
}

func TestOptionsDefaults(t *testing.T) {
	opts, err := optionsFor(t)
	require.NoError(t, err)
	if diff := cmp.Diff(inversion.DefaultOptions(), opts); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestOptionsFlags(t *testing.T) {
	opts, err := optionsFor(t,
		"--iterations", "12",
		"--lr", "0.01",
		"--latent-type", "independent",
		"--lpips-alpha", "0",
		"--mse-beta", "1",
		"--img-size", "64",
		"--normalize=false",
		"--mean", "0.1,0.2,0.3",
		"--std", "0.4", "--std", "0.5", "--std", "0.6",
		"--accumulate-grad",
		"--seed", "7",
	)
	require.NoError(t, err)

	assert.Equal(t, 12, opts.Iterations)
	assert.Equal(t, 0.01, opts.LR)
	assert.Equal(t, inversion.LatentIndependent, opts.LatentType)
	assert.Equal(t, 0.0, opts.LPIPSAlpha)
	assert.Equal(t, 1.0, opts.MSEBeta)
	assert.Equal(t, 64, opts.Transform.Size)
	assert.False(t, opts.Transform.Normalize)
	assert.Equal(t, [3]float32{0.1, 0.2, 0.3}, opts.Transform.Mean)
	assert.Equal(t, [3]float32{0.4, 0.5, 0.6}, opts.Transform.Std)
	assert.True(t, opts.AccumulateGrad)
	assert.Equal(t, int64(7), opts.Seed)
}

func TestOptionsInvalid(t *testing.T) {
	cases := map[string][]string{
		"latent type":   {"--latent-type", "mean"},
		"iterations":    {"--iterations", "0"},
		"short mean":    {"--mean", "0.5,0.5"},
		"bad std":       {"--std", "a,b,c"},
		"zero std":      {"--std", "0,0.5,0.5"},
		"negative beta": {"--mse-beta", "-0.5"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := optionsFor(t, args...)
			assert.Error(t, err)
		})
	}
}

func TestOptionsZeroWeights(t *testing.T) {
	opts, err := optionsFor(t, "--lpips-alpha", "0", "--mse-beta", "0")
	require.NoError(t, err)
	assert.Zero(t, opts.LPIPSAlpha)
	assert.Zero(t, opts.MSEBeta)
}

func TestOptionsConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
iterations: 300
lr: 0.005
style-weight: 0.5
mean: [0.2, 0.2, 0.2]
`), 0o644))

	t.Setenv("GANINVERT_STYLE_WEIGHT", "0.25")

	opts, err := optionsFor(t, "--config", path, "--iterations", "40")
	require.NoError(t, err)

	// Flag vor Env vor Datei
	assert.Equal(t, 40, opts.Iterations)
	assert.Equal(t, 0.25, opts.StyleWeight)
	assert.Equal(t, 0.005, opts.LR)
	assert.Equal(t, [3]float32{0.2, 0.2, 0.2}, opts.Transform.Mean)
}

func TestOptionsMissingConfig(t *testing.T) {
	cmd := newInvertCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")}))
	_, err := loadConfig(cmd)
	assert.ErrorContains(t, err, "nope.yaml")
}

func TestParseTriple(t *testing.T) {
	cases := map[string][]string{
		"csv":     {"0.5,0.25,1"},
		"spaces":  {"0.5 0.25 1"},
		"list":    {"0.5", "0.25", "1"},
		"bracket": {"[0.5,0.25,1]"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := parseTriple("mean", in)
			require.NoError(t, err)
			assert.Equal(t, [3]float32{0.5, 0.25, 1}, got)
		})
	}
}

func writeSample(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 4))))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewCLI()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestDomainsCommand(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.png", "c.jpg"} {
		writeSample(t, filepath.Join(dir, domain.SampleRoot, string(domain.Dog), name))
	}
	writeSample(t, filepath.Join(dir, domain.SampleRoot, string(domain.Celebs), "irene.png"))

	out, err := run(t, "domains", "--data-dir", dir)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, []string{"DOMAIN", "GENERATOR", "PROJECTOR", "SELECT", "SAMPLES", "REFERENCES"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"Dog", "Dog", "pca(Dog)", "index", "2", "0"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"Cat", "Cat", "pca(Cat)", "index", "-", "0"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"celebs", "FFHQ", "pca(FFHQ)", "name", "1", "10"}, strings.Fields(lines[5]))

	out, err = run(t, "domains", "--data-dir", dir, "ce")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimRight(out, "\n"), "\n"), 2)
}

func TestInvertErrors(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, filepath.Join(dir, domain.SampleRoot, string(domain.Celebs), "irene.png"))

	t.Run("unknown domain", func(t *testing.T) {
		_, err := run(t, "invert", "--data-dir", dir, "--domain", "celeb")
		require.ErrorIs(t, err, domain.ErrUnknownDomain)
		assert.ErrorContains(t, err, `"celebs"`)
	})

	t.Run("unknown sample", func(t *testing.T) {
		_, err := run(t, "invert", "--data-dir", dir, "--sample", "nobody")
		assert.ErrorIs(t, err, domain.ErrUnknownSample)
	})

	t.Run("missing checkpoint", func(t *testing.T) {
		_, err := run(t, "invert", "--data-dir", dir, "--sample", "irene")
		require.Error(t, err)
		assert.ErrorContains(t, err, filepath.Join(dir, domain.CheckpointRoot, "FFHQ.pt"))
	})

	t.Run("invalid options", func(t *testing.T) {
		_, err := run(t, "invert", "--data-dir", dir, "--iterations", "-1")
		assert.ErrorIs(t, err, inversion.ErrInvalidOptions)
	})
}

func TestServeHelpListsEnv(t *testing.T) {
	out, err := run(t, "serve", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "GANINVERT_HOST")
	assert.Contains(t, out, "--style-weight")
}
