// cmd_config.go - Flags, Konfigurationsdatei und Env-Bindung
// Hauptfunktionen: addOptionFlags, loadConfig, optionsFromConfig
package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/latentlab/ganinvert/envconfig"
	"github.com/latentlab/ganinvert/inversion"
)

// addOptionFlags registriert die Parameter eines Inversionslaufs
func addOptionFlags(fs *pflag.FlagSet) {
	def := inversion.DefaultOptions()

	fs.String("config", "", "Read options from a YAML, TOML or JSON file")
	fs.String("data-dir", envconfig.DataDir(), "Directory holding sample_imgs/, pickle_data/ and checkpoints/")

	fs.String("exp-detail", def.ExpDetail, "Experiment label shown in logs")
	fs.Int("gpu-num", def.GPUNum, "Device index (accepted for compatibility, inference runs on the CPU)")
	fs.Int64("seed", def.Seed, "Seed for the latent initialisation")
	fs.String("latent-type", def.LatentType, "Latent initialisation: "+strings.Join(inversion.LatentTypes(), ", "))
	fs.Int("iterations", def.Iterations, "Number of optimisation steps")
	fs.Float64("lr", def.LR, "Adam learning rate")
	fs.Float64("lpips-alpha", def.LPIPSAlpha, "Weight of the perceptual loss")
	fs.Float64("mse-beta", def.MSEBeta, "Weight of the pixel loss")
	fs.Int("style-mean-num", def.StyleMeanNum, "Noise samples averaged into the mean style")
	fs.Float64("alpha", def.Alpha, "Blend factor between the last two resolutions")
	fs.Float64("style-weight", def.StyleWeight, "Truncation weight towards the mean style")
	fs.Bool("accumulate-grad", def.AccumulateGrad, "Never reset gradients between iterations")

	fs.Bool("resize", def.Transform.Resize, "Resize the target image")
	fs.Int("img-size", def.Transform.Size, "Target image size")
	fs.Bool("normalize", def.Transform.Normalize, "Normalize the target image")
	fs.StringSlice("mean", tripleFlag(def.Transform.Mean), "Per-channel normalisation mean")
	fs.StringSlice("std", tripleFlag(def.Transform.Std), "Per-channel normalisation std")
}

func tripleFlag(v [3]float32) []string {
	out := make([]string, len(v))
	for i, f := range v {
		out[i] = strconv.FormatFloat(float64(f), 'g', -1, 32)
	}
	return out
}

// loadConfig bindet Flags, GANINVERT_<FLAG> und die optionale Konfigurationsdatei.
// Reihenfolge: gesetzte Flags vor Env vor Datei vor Flag-Default.
func loadConfig(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("GANINVERT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("konfiguration %s lesen: %w", path, err)
		}
	}
	return v, nil
}

// optionsFromConfig baut die Laufparameter aus der gebundenen Konfiguration
func optionsFromConfig(v *viper.Viper) (inversion.Options, error) {
	opts := inversion.DefaultOptions()

	opts.ExpDetail = v.GetString("exp-detail")
	opts.GPUNum = v.GetInt("gpu-num")
	opts.Seed = v.GetInt64("seed")
	opts.LatentType = v.GetString("latent-type")
	opts.Iterations = v.GetInt("iterations")
	opts.LR = v.GetFloat64("lr")
	opts.LPIPSAlpha = v.GetFloat64("lpips-alpha")
	opts.MSEBeta = v.GetFloat64("mse-beta")
	opts.StyleMeanNum = v.GetInt("style-mean-num")
	opts.Alpha = v.GetFloat64("alpha")
	opts.StyleWeight = v.GetFloat64("style-weight")
	opts.AccumulateGrad = v.GetBool("accumulate-grad")

	opts.Transform.Resize = v.GetBool("resize")
	opts.Transform.Size = v.GetInt("img-size")
	opts.Transform.Normalize = v.GetBool("normalize")

	var err error
	if opts.Transform.Mean, err = parseTriple("mean", v.GetStringSlice("mean")); err != nil {
		return opts, err
	}
	if opts.Transform.Std, err = parseTriple("std", v.GetStringSlice("std")); err != nil {
		return opts, err
	}

	return opts, opts.Validate()
}

// parseTriple akzeptiert "a,b,c", "a b c" und Listen aus Konfigurationsdateien
func parseTriple(name string, vals []string) ([3]float32, error) {
	var out [3]float32
	fields := strings.FieldsFunc(strings.Join(vals, ","), func(r rune) bool {
		return r == ',' || r == '[' || r == ']' || unicode.IsSpace(r)
	})
	if len(fields) != len(out) {
		return out, fmt.Errorf("%w: --%s braucht 3 werte, hat %d", inversion.ErrInvalidOptions, name, len(fields))
	}
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return out, fmt.Errorf("%w: --%s: %v", inversion.ErrInvalidOptions, name, err)
		}
		out[i] = float32(x)
	}
	return out, nil
}
