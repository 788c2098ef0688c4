package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"route-tracking-service/internal/adapters/repositories"
	"route-tracking-service/internal/config"
	"route-tracking-service/internal/platform/db"
	"route-tracking-service/internal/platform/obs"
)

// dbtool creates the schema and loads the seed file into the configured
// database, Postgres when DATABASE_URL is set and SQLite otherwise.
func main() {
	dotenv := config.LoadDotenv()
	cfg := config.Load()

	logger := obs.NewLogger(os.Stderr, "route-tracking-dbtool", cfg.LogLevel)
	if !dotenv {
		logger.Info("no .env file found (using environment variables)")
	}

	var (
		conn    *sql.DB
		dialect db.Dialect
		err     error
	)
	if cfg.DatabaseURL != "" {
		conn, err = db.Open(cfg.DatabaseURL)
		dialect = db.Postgres
	} else {
		conn, err = db.OpenSQLite(cfg.DBPath)
		dialect = db.SQLite
	}
	if err != nil {
		logger.Error("open database", "err", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := initAndSeed(context.Background(), conn, dialect, cfg.SeedPath, logger); err != nil {
		logger.Error("dbtool failed", "err", err)
		conn.Close()
		os.Exit(1)
	}
}

func initAndSeed(ctx context.Context, conn *sql.DB, dialect db.Dialect, seedPath string, logger *slog.Logger) error {
	logger.Info("initializing database schema", "dialect", string(dialect))
	if err := repositories.InitSchema(ctx, conn); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}
	logger.Info("schema ready")

	logger.Info("seeding database", "path", seedPath)
	if err := repositories.SeedFromJSON(ctx, conn, dialect, seedPath); err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	logger.Info("seeding complete")

	return nil
}
