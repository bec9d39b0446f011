package main

import (
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/logging"
	"github.com/urfave/cli/v2"
)

func migrateCommand() *cli.Command {
	run := func(direction database.MigrateDirection) cli.ActionFunc {
		return func(c *cli.Context) error {
			cfg, err := setup("storefront-migrate")
			if err != nil {
				return err
			}
			if err := database.Migrate(cfg.Database.URL, direction); err != nil {
				return err
			}
			logging.Base().Info("migrations applied", "direction", string(direction))
			return nil
		}
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "apply or roll back the database schema",
		Subcommands: []*cli.Command{
			{Name: "up", Usage: "apply all pending migrations", Action: run(database.MigrateUp)},
			{Name: "down", Usage: "roll back every migration", Action: run(database.MigrateDown)},
		},
	}
}
