package main

import (
	"context"

	"github.com/spf13/cobra"
)

func serveCommand(c *cli) *cobra.Command {
	var addr string
	var httpLog bool
	var noKeyboard bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				c.cfg.Addr = addr
			}
			if err := c.cfg.RequireJWTSecret(); err != nil {
				return err
			}
			if httpLog {
				c.log.EnableHTTPLogging()
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if !noKeyboard {
				restore := startConsole(ctx, &console{
					out:     cmd.OutOrStdout(),
					log:     c.log,
					summary: a.Rosters.Summary,
					quit:    cancel,
				})
				if restore != nil {
					defer restore()
				}
			}

			return a.Run(ctx, c.cfg.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (addr)")
	cmd.Flags().BoolVar(&httpLog, "http-log", false, "log every HTTP request")
	cmd.Flags().BoolVar(&noKeyboard, "no-keyboard", false, "disable keyboard shortcuts")
	return cmd
}
