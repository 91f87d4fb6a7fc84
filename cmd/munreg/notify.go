package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func notifyCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "notify",
		Short: "Enqueue an assignment mail for every seated delegate",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Notifier.NotifyAllAssigned(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "queued %d of %d assignment mails\n", result.Queued, result.Attempted)
			for _, f := range result.Failed {
				fmt.Fprintf(out, "  failed %s: %s\n", f.DelegateID, f.Error)
			}
			return nil
		},
	}
}
