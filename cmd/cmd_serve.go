// cmd_serve.go - Web-Ansicht starten
// Hauptfunktionen: RunServer, newServeCmd
package cmd

import (
	"net"

	"github.com/spf13/cobra"

	"github.com/latentlab/ganinvert/envconfig"
	"github.com/latentlab/ganinvert/server"
)

// RunServer - Startet die Web-Ansicht auf GANINVERT_HOST
func RunServer(cmd *cobra.Command, _ []string) error {
	v, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts, err := optionsFromConfig(v)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", envconfig.Host().Host)
	if err != nil {
		return err
	}

	return server.Serve(ln, server.Config{
		DataDir: v.GetString("data-dir"),
		Options: opts,
	})
}

// newServeCmd - Erstellt den serve Command
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the web display",
		Args:    cobra.ExactArgs(0),
		RunE:    RunServer,
	}
	addOptionFlags(serveCmd.Flags())
	return serveCmd
}
