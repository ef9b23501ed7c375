package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "agency-hub/internal/adapter/http"
	"agency-hub/internal/adapter/filestore"
	"agency-hub/internal/adapter/memory"
	"agency-hub/internal/adapter/postgres"
	"agency-hub/internal/adapter/redis"
	"agency-hub/internal/adapter/usecase"
	"agency-hub/internal/config"
	"agency-hub/internal/core/port"
	"agency-hub/internal/db"
)

// main is the entry point of agency-hub. It loads configuration, opens the
// configured backing store and broadcast channel, builds the agency store
// and the preference bus once, and serves them to the view layer over
// HTTP. On receiving a termination signal it gracefully shuts down.
func main() {
	exitCode := 1
	defer func() {
		if r := recover(); r != nil {
			panic(r)
		} else {
			os.Exit(exitCode)
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		return
	}
	logger := cfg.Log.NewLogger(os.Stdout)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	storage, closeStorage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("storage error", slog.Any("error", err))
		return
	}
	defer closeStorage()

	channel, closeChannel, err := openBroadcast(ctx, cfg, logger)
	if err != nil {
		logger.Error("broadcast error", slog.Any("error", err))
		return
	}
	defer closeChannel()

	if cfg.Storage.SeedDemo {
		seeded, err := db.Seed(ctx, storage)
		if err != nil {
			logger.Error("seed error", slog.Any("error", err))
		} else if seeded {
			logger.Info("demo state seeded")
		}
	}

	agency := usecase.NewAgencyStore(storage, logger, usecase.WithMaxAccounts(cfg.Quota.MaxAccounts))
	defer agency.Close()
	if cfg.Quota.Override {
		if err = agency.SetQuotaOverride(ctx, true); err != nil {
			logger.Warn("quota override not persisted", slog.Any("error", err))
		}
	}
	agency.Hydrate(ctx)

	prefs := usecase.NewPreferenceBus(storage, channel, memory.NewEventTarget[port.Message](), logger)
	defer prefs.Close()

	handler := httpadapter.NewHandler(agency, prefs, logger, cfg.HTTP.AllowedOrigins)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: handler.Router(),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.Int("port", int(cfg.HTTP.Port)),
			slog.String("storage", cfg.Storage.Backend), slog.String("broadcast", cfg.Storage.Broadcast))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err = <-serveErr:
		logger.Error("server error", slog.Any("error", err))
		return
	case <-ctx.Done():
		exitCode = 0
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancelShutdown()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	} else {
		logger.Info("server gracefully stopped")
	}
}

// openStorage builds the configured backing store. The memory backend is
// only shared within this process.
func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (port.KeyValueStore, func(), error) {
	switch cfg.Storage.Backend {
	case "file":
		s, err := filestore.Open(cfg.Storage.Dir, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, closer(s, logger), nil
	case "postgres":
		if cfg.Psql.RunMigrations {
			if err := db.Migrate(cfg.Psql.Addr.String()); err != nil {
				return nil, nil, fmt.Errorf("migrate: %w", err)
			}
			logger.Info("migrations applied successfully")
		}
		pool, err := db.NewPostgresPool(ctx, cfg.Psql)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection: %w", err)
		}
		return postgres.NewStorage(pool, logger), pool.Close, nil
	default:
		return memory.NewOrigin().Storage(), func() {}, nil
	}
}

func openBroadcast(ctx context.Context, cfg config.Config, logger *slog.Logger) (port.Broadcaster, func(), error) {
	switch cfg.Storage.Broadcast {
	case "redis":
		rdb, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return redis.NewBroadcaster(rdb, cfg.Redis.Channel, logger), closer(rdb, logger), nil
	default:
		return memory.NewOrigin().Channel(cfg.Redis.Channel), func() {}, nil
	}
}

func closer(c io.Closer, logger *slog.Logger) func() {
	return func() {
		if err := c.Close(); err != nil {
			logger.Warn("close error", slog.Any("error", err))
		}
	}
}
