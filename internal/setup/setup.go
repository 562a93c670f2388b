package setup

import (
	"context"
	"fmt"
	"log"

	"github.com/lunalog/lunalog/internal/database"
	"github.com/lunalog/lunalog/internal/database/migrations"
	"github.com/lunalog/lunalog/internal/redis"
	"github.com/lunalog/lunalog/internal/setup/config"
	"github.com/lunalog/lunalog/internal/setup/telemetry"
	"github.com/redis/rueidis"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
type App struct {
	Config       *config.Config     // Application configuration
	Logger       *zap.Logger        // Main application logger
	DBLogger     *zap.Logger        // Database-specific logger
	DB           database.Client    // Store connection
	RedisManager *redis.Manager     // Redis connection manager
	CacheClient  rueidis.Client     // Leaderboard cache, nil when Redis is disabled
	RecapLock    rueidis.Client     // Recap publishing lock, nil when Redis is disabled
	LogManager   *telemetry.Manager // Log and trace management
}

// InitializeApp bootstraps all application dependencies in order. The bot
// asks before applying pending migrations; the CLI leaves the schema alone
// since it manages migrations itself.
func InitializeApp(ctx context.Context, serviceType telemetry.ServiceType, logDir string) (*App, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging is initialized next to capture setup issues
	logManager := telemetry.NewManager(serviceType, logDir, &cfg.Common.Debug, &cfg.Common.Telemetry)
	logManager.StartTracing(config.RepositoryVersion)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	var db database.Client
	if serviceType == telemetry.ServiceBot {
		db, err = checkAndRunMigrations(ctx, cfg, dbLogger)
	} else {
		db, err = database.NewConnection(ctx, cfg, dbLogger, false)
	}
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:     cfg,
		Logger:     logger,
		DBLogger:   dbLogger.Named("database"),
		DB:         db,
		LogManager: logManager,
	}

	if cfg.Common.Redis.Enabled {
		app.RedisManager = redis.NewManager(&cfg.Common.Redis, logger)

		if app.CacheClient, err = app.RedisManager.GetClient(redis.CacheDBIndex); err != nil {
			app.Cleanup(ctx)
			return nil, err
		}
		if app.RecapLock, err = app.RedisManager.GetClient(redis.RecapDBIndex); err != nil {
			app.Cleanup(ctx)
			return nil, err
		}
	}

	return app, nil
}

// Cleanup shuts down all components in reverse initialization order. Errors
// are logged so every component gets a cleanup attempt.
func (s *App) Cleanup(ctx context.Context) {
	if err := s.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	if s.RedisManager != nil {
		s.RedisManager.Close()
	}

	if err := s.LogManager.Stop(ctx); err != nil {
		log.Printf("Failed to flush traces: %v", err)
	}

	// Sync buffered logs last so shutdown messages are kept
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}
}

// checkAndRunMigrations asks on stdin before applying pending migrations.
func checkAndRunMigrations(ctx context.Context, cfg *config.Config, dbLogger *zap.Logger) (database.Client, error) {
	db, err := database.NewConnection(ctx, cfg, dbLogger, false)
	if err != nil {
		return nil, err
	}

	migrator := migrate.NewMigrator(db.DB(), migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}

	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}

	if len(ms.Unapplied()) == 0 {
		return db, nil
	}

	log.Println("Database migrations are pending. Would you like to run them now? (y/N)")

	var response string
	_, _ = fmt.Scanln(&response)

	if response != "y" && response != "Y" {
		db.Close()
		return nil, ErrMigrationsPending
	}

	if err := database.Migrate(ctx, db.DB(), dbLogger); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
