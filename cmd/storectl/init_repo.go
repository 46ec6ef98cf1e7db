package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trailbase/core/pkg/cache"
	"github.com/trailbase/core/pkg/config"
	"github.com/trailbase/core/pkg/gitstore"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a fresh repository at the config's repo_path",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfigPath)
			if err != nil {
				return err
			}
			store, err := gitstore.Init(cfg.RepoPath, cfg.App, cache.NoopHooks{})
			if err != nil {
				return err
			}
			defer store.Close()
			fmt.Printf("initialized repository at %s (app=%s)\n", cfg.RepoPath, cfg.App)
			return nil
		},
	}
}
