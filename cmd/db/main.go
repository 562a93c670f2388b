package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/lunalog/lunalog/cmd/db/commands"
	"github.com/lunalog/lunalog/internal/database/migrations"
	"github.com/lunalog/lunalog/internal/setup"
	"github.com/lunalog/lunalog/internal/setup/telemetry"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v3"
)

const (
	// DBLogDir specifies where database tool log files are stored.
	DBLogDir = "logs/db_logs"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	app, err := setup.InitializeApp(ctx, telemetry.ServiceCLI, DBLogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(ctx)

	deps := &commands.CLIDependencies{
		Config:    app.Config,
		DB:        app.DB,
		Migrator:  migrate.NewMigrator(app.DB.DB(), migrations.Migrations),
		Cache:     app.CacheClient,
		RecapLock: app.RecapLock,
		Logger:    app.Logger.Named("cli"),
	}

	cmd := &cli.Command{
		Name:  "db",
		Usage: "Database management tool",
		Commands: append(
			commands.MigrationCommands(deps),
			commands.StatsCommands(deps)...,
		),
	}

	return cmd.Run(ctx, os.Args)
}
