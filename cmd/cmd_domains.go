// cmd_domains.go - Domains Command
// Hauptfunktionen: DomainsHandler
package cmd

import (
	"errors"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/latentlab/ganinvert/domain"
	"github.com/latentlab/ganinvert/envconfig"
)

// DomainsHandler - Listet alle Domaenen mit ihren Artefakten auf
func DomainsHandler(cmd *cobra.Command, args []string) error {
	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return err
	}

	var data [][]string
	for _, d := range domain.All() {
		if len(args) > 0 && !strings.HasPrefix(strings.ToLower(string(d.Name)), strings.ToLower(args[0])) {
			continue
		}

		samples := "-"
		if s, err := d.Samples(dataDir); err == nil {
			samples = strconv.Itoa(len(s))
		} else if !errors.Is(err, domain.ErrSampleDirMissing) && !errors.Is(err, domain.ErrNoSamples) {
			return err
		}

		selectBy := "index"
		if d.SelectByName {
			selectBy = "name"
		}

		data = append(data, []string{
			string(d.Name),
			string(d.GeneratorDomain),
			"pca(" + string(d.ProjectorDomain) + ")",
			selectBy,
			samples,
			strconv.Itoa(len(d.References)),
		})
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"DOMAIN", "GENERATOR", "PROJECTOR", "SELECT", "SAMPLES", "REFERENCES"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}

// newDomainsCmd - Erstellt den domains Command
func newDomainsCmd() *cobra.Command {
	domainsCmd := &cobra.Command{
		Use:     "domains [prefix]",
		Aliases: []string{"ls"},
		Short:   "List domains and their sample images",
		Args:    cobra.MaximumNArgs(1),
		RunE:    DomainsHandler,
	}
	domainsCmd.Flags().String("data-dir", envconfig.DataDir(), "Directory holding sample_imgs/, pickle_data/ and checkpoints/")
	return domainsCmd
}
