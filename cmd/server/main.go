package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"wordchain/internal/app"
	"wordchain/internal/config"
	"wordchain/internal/dictionary"
	"wordchain/internal/storage"
	"wordchain/internal/storage/sqlite"
	"wordchain/internal/transport/auth"
	httpTransport "wordchain/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment may already be set
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Set up logger
	var logger *slog.Logger
	logOpts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	if cfg.Logging.Format == "json" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, logOpts))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, logOpts))
	}

	slog.SetDefault(logger)

	logger.Info("starting word chain server",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"storage", cfg.Storage.Driver,
	)

	store, closeStore, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer closeStore()

	dicts, err := dictionary.LoadSources(cfg.Dictionary.Paths)
	if err != nil {
		return fmt.Errorf("load dictionaries: %w", err)
	}
	if langs := dicts.Languages(); len(langs) > 0 {
		logger.Info("dictionaries loaded", "languages", langs)
	}

	authn := auth.New(cfg.Auth.JWTSecret, cfg.Auth.Cookie, cfg.Auth.AdminToken)
	if authn.DevMode() {
		if cfg.IsProduction() {
			return errors.New("JWT_SECRET is required in production")
		}
		logger.Warn("JWT_SECRET not set, trusting plain player ids")
	}

	dir := app.NewDirectory(store, dicts, logger, app.Options{
		DefaultCapacity: cfg.Game.DefaultCapacity,
		MaxCapacity:     cfg.Game.MaxCapacity,
		SinkBuffer:      cfg.Game.SinkBuffer,
	})
	defer dir.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, err := dir.Load(ctx)
	if err != nil {
		return err
	}
	logger.Info("rooms restored", "count", n)

	server := httpTransport.NewServer(cfg, dir, authn, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		dir.Run(gctx, cfg.Game.ReconcileInterval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server forced to shutdown", "error", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("server stopped")
	return err
}

// openStore returns the configured snapshot store and its closer
func openStore(cfg config.StorageConfig) (storage.SnapshotStore, func() error, error) {
	switch cfg.Driver {
	case config.StorageSQLite:
		store, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return storage.NewMemoryStore(), func() error { return nil }, nil
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
