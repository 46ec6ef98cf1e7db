package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trailbase/core/pkg/coreerr"
	"github.com/trailbase/core/pkg/gitstore"
	"github.com/trailbase/core/pkg/ids"
	"github.com/trailbase/core/pkg/merge"
)

func newResolveCmd() *cobra.Command {
	var family, entityID, strategy, headsCSV string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a multi-head entity down to a chosen head set",
		RunE: func(cmd *cobra.Command, args []string) error {
			if family == "" || entityID == "" {
				return coreerr.Validationf("--family and --entity are required")
			}

			var s merge.Strategy
			switch strategy {
			case "ours":
				s = merge.Ours()
			case "theirs":
				s = merge.Theirs()
			case "manual":
				if headsCSV == "" {
					return coreerr.Validationf("--heads is required for --strategy manual")
				}
				var selection []ids.OperationId
				for _, raw := range strings.Split(headsCSV, ",") {
					id, err := ids.ParseOperationId(strings.TrimSpace(raw))
					if err != nil {
						return err
					}
					selection = append(selection, id)
				}
				s = merge.Manual(selection)
			default:
				return coreerr.Validationf("--strategy must be one of ours, theirs, manual")
			}

			store, c, err := openStore(flagConfigPath, gitstore.LockWrite)
			if err != nil {
				return err
			}
			defer closeStore(store, c)

			resolved, err := store.ResolveConflicts(ids.EntityFamily(family), ids.EntityId(entityID), s)
			if err != nil {
				return err
			}
			fmt.Printf("entity %s now has %d head(s)\n", entityID, len(resolved))
			return nil
		},
	}

	cmd.Flags().StringVar(&family, "family", "", "entity family namespace (required)")
	cmd.Flags().StringVar(&entityID, "entity", "", "entity id (required)")
	cmd.Flags().StringVar(&strategy, "strategy", "ours", "merge strategy: ours, theirs, manual")
	cmd.Flags().StringVar(&headsCSV, "heads", "", "comma-separated operation ids to keep (strategy=manual only)")
	return cmd
}
