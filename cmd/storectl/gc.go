package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trailbase/core/pkg/gitstore"
)

func newGCCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Report (but not reclaim) blobs no operation payload references",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, c, err := openStore(flagConfigPath, gitstore.LockRead)
			if err != nil {
				return err
			}
			defer closeStore(store, c)

			report, err := store.GC(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("scanned %d entities, found %d orphaned blob(s)\n", report.EntitiesScanned, report.OrphanedBlobs)
			return nil
		},
	}
}
