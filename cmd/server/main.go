package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"route-tracking-service/internal/adapters/geocode"
	"route-tracking-service/internal/adapters/optimizer"
	"route-tracking-service/internal/adapters/pubsub"
	"route-tracking-service/internal/adapters/repositories"
	"route-tracking-service/internal/api"
	"route-tracking-service/internal/config"
	"route-tracking-service/internal/platform/db"
	"route-tracking-service/internal/platform/obs"
	"route-tracking-service/internal/ports"
	"route-tracking-service/internal/services"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

// main is the application composition root.
// It wires concrete adapters (SQL, Redis, Kafka, optimizer) behind ports and starts the HTTP server.
func main() {
	dotenv := config.LoadDotenv()
	cfg := config.Load()

	logger := obs.NewLogger(os.Stdout, "route-tracking", cfg.LogLevel)
	slog.SetDefault(logger)
	if !dotenv {
		logger.Info("no .env file found (using environment variables)")
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, dialect, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Initialize schema and seed demo data on startup for local runs.
	if err := initAndSeed(ctx, conn, dialect, cfg.SeedPath, logger); err != nil {
		return err
	}

	places, err := repositories.NewSQLPlaceStore(conn, dialect, logger).ListPlaces(ctx)
	if err != nil {
		return fmt.Errorf("load known places: %w", err)
	}
	gazetteer := geocode.NewGazetteer(geocode.Options{Extra: places})
	logger.Info("gazetteer ready", "places", gazetteer.Len())

	routeOptimizer, err := newOptimizer(cfg, logger)
	if err != nil {
		return err
	}

	var (
		positions ports.PositionSource
		publisher ports.PositionPublisher
	)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis %q: %w", cfg.RedisAddr, err)
		}
		rp, err := pubsub.NewRedisPositions(client, logger)
		if err != nil {
			return err
		}
		positions, publisher = rp, rp
		logger.Info("position fan-out enabled", "redis", cfg.RedisAddr)
	}

	manager := services.NewManager(
		repositories.NewSQLRouteRepository(conn, dialect, logger),
		services.SessionDeps{
			Geocoder:  gazetteer,
			Optimizer: routeOptimizer,
			Positions: positions,
			Logger:    logger,
			Config: services.SessionConfig{
				DebounceWindow:     cfg.RerouteDebounce,
				OracleTimeout:      cfg.OracleTimeout,
				CompletionRadiusKm: cfg.StopCompletionRadiusKm,
				SpeedKmh:           cfg.DefaultSpeedKmh,
				HeuristicFallback:  cfg.RerouteLocalHeuristic,
			},
		},
		publisher,
	)
	defer manager.CloseAll()

	var wg sync.WaitGroup
	if len(cfg.KafkaBrokers) > 0 {
		consumer := pubsub.NewAttendanceConsumer(
			pubsub.NewKafkaReader(cfg.KafkaBrokers, cfg.KafkaAttendanceTopic, cfg.KafkaGroupID),
			logger,
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(ctx, manager.HandleAttendance); err != nil {
				logger.Error("attendance consumer stopped", "err", err)
			}
		}()
		logger.Info("attendance feed enabled", "topic", cfg.KafkaAttendanceTopic)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(manager, gazetteer, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}

	stop()
	wg.Wait()
	return nil
}

// openDB prefers Postgres when DATABASE_URL is set, else a local SQLite file.
func openDB(cfg config.Config) (*sql.DB, db.Dialect, error) {
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(cfg.DatabaseURL)
		return conn, db.Postgres, err
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, "", fmt.Errorf("openDB: create %q: %w", dir, err)
		}
	}
	conn, err := db.OpenSQLite(cfg.DBPath)
	return conn, db.SQLite, err
}

func initAndSeed(ctx context.Context, conn *sql.DB, dialect db.Dialect, seedPath string, logger *slog.Logger) error {
	if err := repositories.InitSchema(ctx, conn); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if _, err := os.Stat(seedPath); errors.Is(err, os.ErrNotExist) {
		logger.Info("no seed file, skipping", "path", seedPath)
		return nil
	}
	if err := repositories.SeedFromJSON(ctx, conn, dialect, seedPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	return nil
}

func newOptimizer(cfg config.Config, logger *slog.Logger) (ports.RouteOptimizer, error) {
	if cfg.OracleURL == "" {
		logger.Warn("ORACLE_URL not set, stops keep their submitted order")
		return optimizer.NewStaticOptimizer(), nil
	}

	o, err := optimizer.NewHTTPOptimizer(cfg.OracleURL, optimizer.Options{
		APIKey:      cfg.OracleAPIKey,
		Timeout:     cfg.OracleTimeout,
		MaxAttempts: cfg.OracleAttempts,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("route optimizer: %w", err)
	}
	return o, nil
}
