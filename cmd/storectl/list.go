package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trailbase/core/pkg/gitstore"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every entity ref in the repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, c, err := openStore(flagConfigPath, gitstore.LockRead)
			if err != nil {
				return err
			}
			defer closeStore(store, c)

			entities, err := store.ListEntities()
			if err != nil {
				return err
			}
			for _, e := range entities {
				marker := ""
				if e.HeadCount > 1 {
					marker = "\t(needs resolve)"
				}
				fmt.Printf("%s\theads=%d%s\n", e.EntityID, e.HeadCount, marker)
			}
			return nil
		},
	}
}
