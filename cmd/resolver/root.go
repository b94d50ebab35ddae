package main

import (
	"github.com/spf13/cobra"
)

var configFlag string

// newRootCmd builds the resolver root command and wires its subcommands,
// grounded on open-platform-model-cli's cmd/opm/root.go.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "resolver",
		Short:         "Moniker resolution service",
		Long:          `resolver serves and administers the moniker catalog: resolve/describe/list lookups, governance lanes, and catalog reloads.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configFlag, "config", "c", "config.yaml", "path to config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newReloadCmd())

	return root
}
