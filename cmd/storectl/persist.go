package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/trailbase/core/pkg/config"
	"github.com/trailbase/core/pkg/coreerr"
	"github.com/trailbase/core/pkg/gitstore"
	"github.com/trailbase/core/pkg/ids"
	"github.com/trailbase/core/pkg/metrics"
	"github.com/trailbase/core/pkg/op"
)

func newPersistCmd() *cobra.Command {
	var family, packPath string

	cmd := &cobra.Command{
		Use:   "persist",
		Short: "Persist an operation pack read from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if family == "" {
				return coreerr.Validationf("--family is required")
			}
			if packPath == "" {
				return coreerr.Validationf("--pack is required")
			}

			raw, err := os.ReadFile(packPath)
			if err != nil {
				return coreerr.WrapIo(err, "read pack file %s", packPath)
			}
			var pack op.Pack
			if err := json.Unmarshal(raw, &pack); err != nil {
				return coreerr.Validationf("decode pack file %s: %v", packPath, err)
			}

			cfg, err := config.Load(flagConfigPath)
			if err != nil {
				return err
			}
			store, c, err := openStore(flagConfigPath, gitstore.LockWrite)
			if err != nil {
				return err
			}
			defer closeStore(store, c)

			timer := metrics.NewTimer()
			inserted, err := store.PersistPack(ids.EntityFamily(family), pack.EntityID, &pack)
			outcome := "ok"
			if err != nil {
				outcome = "error"
			}
			timer.ObserveDurationVec(metrics.StorePersistDuration, cfg.App)
			metrics.StoreOperationsTotal.WithLabelValues(cfg.App, "persist", outcome).Inc()
			if err != nil {
				return err
			}

			fmt.Printf("persisted %d operation(s) to entity %s\n", len(inserted), pack.EntityID)
			return nil
		},
	}

	cmd.Flags().StringVar(&family, "family", "", "entity family namespace (required)")
	cmd.Flags().StringVar(&packPath, "pack", "", "path to a JSON-encoded operation pack (required)")
	return cmd
}
