package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abrezinsky/munreg/internal/app"
	"github.com/abrezinsky/munreg/internal/config"
	"github.com/abrezinsky/munreg/internal/logger"
)

const programName = "munreg"

var version = "dev"

// cli carries the loaded configuration and logger between cobra hooks
type cli struct {
	configFile string
	cfg        *config.Config
	log        *logger.SlogLogger
	logOut     io.Writer
}

// openApp builds the application from the loaded configuration
func (c *cli) openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, c.log, c.cfg)
}

func newRootCommand(out io.Writer) *cobra.Command {
	c := &cli{logOut: os.Stderr}

	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Model UN conference registration and seat assignment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	// Global flags; each overrides the matching config key when set
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "path to YAML config file")
	flags.String("db", "", "SQLite database path (database_path)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(c.configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if f := cmd.Flags().Lookup("db"); f != nil && f.Changed {
			cfg.DatabasePath = f.Value.String()
		}
		if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
			cfg.LogLevel = f.Value.String()
		}
		if f := cmd.Flags().Lookup("log-format"); f != nil && f.Changed {
			cfg.LogFormat = f.Value.String()
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		c.cfg = cfg
		c.log = logger.NewWithOptions(c.logOut, logger.ParseFormat(cfg.LogFormat), logger.ParseLevel(cfg.LogLevel))
		return nil
	}

	rootCmd.AddCommand(serveCommand(c))
	rootCmd.AddCommand(seedCommand(c))
	rootCmd.AddCommand(notifyCommand(c))
	rootCmd.AddCommand(tokenCommand(c))
	rootCmd.AddCommand(versionCommand())
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		os.Exit(1)
	}
}
