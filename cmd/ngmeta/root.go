package main

import (
	"os"

	"ngmeta/internal/core/version"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ngmeta",
		Short:         "Collect the package catalog feed and merge it into per package documents",
		Version:       version.Info().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newCollectCmd(resolverCollector),
		newCollectCmd(countCollector),
		newServeCmd(),
		newCursorCmd(),
	)
	return root
}

// setEnv surfaces a flag to the modules that read FromConfig
func setEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}
