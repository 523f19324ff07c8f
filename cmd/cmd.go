// cmd.go - Root Command der ganinvert CLI
// Hauptfunktionen: NewCLI, appendEnvDocs
package cmd

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/containerd/console"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/latentlab/ganinvert/envconfig"
)

// appendEnvDocs - Haengt die relevanten GANINVERT_* Variablen an die Hilfe an
func appendEnvDocs(cmd *cobra.Command, names ...string) {
	envVars := envconfig.AsMap()

	var b strings.Builder
	for _, name := range names {
		if e, ok := envVars[name]; ok {
			fmt.Fprintf(&b, "      %-24s   %s\n", e.Name, e.Description)
		}
	}
	if b.Len() == 0 {
		return
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + "\nEnvironment Variables:\n" + b.String())
}

// NewCLI - Erstellt die CLI mit invert, serve und domains
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	// Windows-Konsole in den VT-Modus schalten, sonst bleiben ANSI-Sequenzen roh
	if runtime.GOOS == "windows" && term.IsTerminal(int(os.Stdout.Fd())) {
		console.ConsoleFromFile(os.Stdin) //nolint:errcheck
	}

	rootCmd := &cobra.Command{
		Use:           "ganinvert",
		Short:         "Invert images into the latent space of a style-based GAN",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(cmd.UsageString())
		},
	}

	invertCmd := newInvertCmd()
	appendEnvDocs(invertCmd, "GANINVERT_DEBUG", "GANINVERT_DATA", "GANINVERT_NOCOLOR", "GANINVERT_PLAIN", "GANINVERT_REFRESH_EVERY")

	serveCmd := newServeCmd()
	appendEnvDocs(serveCmd, "GANINVERT_DEBUG", "GANINVERT_DATA", "GANINVERT_HOST", "GANINVERT_ORIGINS")

	domainsCmd := newDomainsCmd()
	appendEnvDocs(domainsCmd, "GANINVERT_DATA")

	rootCmd.AddCommand(invertCmd, serveCmd, domainsCmd)
	return rootCmd
}
