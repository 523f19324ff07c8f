// cmd_invert.go - Inversion im Terminal
// Hauptfunktionen: InvertHandler, newInvertCmd
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/latentlab/ganinvert/display"
	"github.com/latentlab/ganinvert/domain"
	"github.com/latentlab/ganinvert/envconfig"
	"github.com/latentlab/ganinvert/inversion"
	"github.com/latentlab/ganinvert/logutil"
)

// InvertHandler - Fuehrt eine Inversion mit Live-Ansicht im Terminal aus
func InvertHandler(cmd *cobra.Command, _ []string) error {
	v, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts, err := optionsFromConfig(v)
	if err != nil {
		return err
	}

	d, err := domain.Lookup(v.GetString("domain"))
	if err != nil {
		return err
	}

	dataDir := v.GetString("data-dir")
	sample, err := d.ResolveSample(dataDir, v.GetString("sample"))
	if err != nil {
		return err
	}

	slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))

	model, err := inversion.LoadModel(dataDir, d, v.GetString("checkpoint"))
	if err != nil {
		return err
	}

	inv, err := model.NewInverter(opts, slog.Default().With("domain", d.Name, "sample", sample.Key))
	if err != nil {
		return err
	}

	target, err := inversion.LoadTarget(sample.Path, opts.Transform)
	if err != nil {
		return err
	}

	topts := display.DetectTerminal(os.Stdout)
	topts.References = d.References
	view := display.NewTerminal(cmd.OutOrStdout(), topts)
	defer view.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, err := inv.Run(ctx, target, view)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintf(cmd.ErrOrStderr(), "\nabgebrochen nach %d von %d iterationen\n", state.Iteration, state.Total)
		return nil
	}
	return err
}

// newInvertCmd - Erstellt den invert Command
func newInvertCmd() *cobra.Command {
	invertCmd := &cobra.Command{
		Use:     "invert",
		Aliases: []string{"run"},
		Short:   "Invert a sample image and show the progress in the terminal",
		Args:    cobra.ExactArgs(0),
		RunE:    InvertHandler,
	}

	addOptionFlags(invertCmd.Flags())
	invertCmd.Flags().String("domain", string(domain.Celebs), "Domain: "+fmt.Sprint(domain.Names()))
	invertCmd.Flags().String("sample", "", "Sample key (file name for celebs, index otherwise); empty picks the first")
	invertCmd.Flags().String("checkpoint", "", "Generator checkpoint (default <data-dir>/checkpoints/<domain>.pt)")

	return invertCmd
}
