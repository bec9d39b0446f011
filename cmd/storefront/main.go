package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/logging"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "storefront",
		Usage: "storefront pricing and ordering service",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			notifierCommand(),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and initializes the process logger for component.
func setup(component string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logging.Init(component, cfg.Log.File, cfg.Log.Level)
	return cfg, nil
}
