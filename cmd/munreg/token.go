package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abrezinsky/munreg/internal/auth"
)

func tokenCommand(c *cli) *cobra.Command {
	var email string
	var admin bool
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <delegate-id>",
		Short: "Mint a development bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.cfg.RequireJWTSecret(); err != nil {
				return err
			}
			if args[0] == "" {
				return errors.New("delegate id must not be empty")
			}

			authn := auth.New(c.log, c.cfg.JWTSecret, c.cfg.JWTIssuer, c.cfg.AdminEmails)
			token, err := authn.Mint(args[0], email, admin, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().BoolVar(&admin, "admin", false, "set the admin claim")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenExpiry, "token lifetime")
	return cmd
}
