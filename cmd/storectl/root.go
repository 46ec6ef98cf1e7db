package main

import (
	"github.com/spf13/cobra"

	"github.com/trailbase/core/pkg/log"
)

var (
	flagConfigPath string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "storectl",
		Short:         "Operate a trailbase entity store repository",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagConfigPath, "config", "storectl.yaml", "path to the repository/cache config file")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		log.Init(log.Config{Level: log.InfoLevel})
	}

	root.AddCommand(newInitCmd())
	root.AddCommand(newPersistCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newResolveCmd())
	root.AddCommand(newGCCmd())

	return root
}
