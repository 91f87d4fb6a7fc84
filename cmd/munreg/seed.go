package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func seedCommand(c *cli) *cobra.Command {
	var file string
	var force bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the committee catalog from a YAML file",
		Long: `Load the committee catalog from a YAML file.

The catalog is frozen once any seat is assigned; --force replaces it anyway.
Seats that no longer exist in the new catalog stay assigned until an admin
moves or releases them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = c.cfg.CommitteesFile
			}

			a, err := c.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.SeedCatalogFile(cmd.Context(), file, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d committees with %d seats from %s\n", result.Committees, result.Seats, file)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog file (default committees_file)")
	cmd.Flags().BoolVar(&force, "force", false, "replace the catalog even if seats are assigned")
	return cmd
}
