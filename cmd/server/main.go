package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/ai-tool-finder/internal/config"
	"github.com/Clark-Hu/ai-tool-finder/internal/discovery"
	httpserver "github.com/Clark-Hu/ai-tool-finder/internal/http"
	"github.com/Clark-Hu/ai-tool-finder/internal/logging"
	"github.com/Clark-Hu/ai-tool-finder/internal/rating"
	"github.com/Clark-Hu/ai-tool-finder/internal/repository"
	"github.com/Clark-Hu/ai-tool-finder/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("service", "ai-tool-finder"))

	if cfg.DBAutoMigrate {
		if err := store.Migrate(cfg.DBURL, logger); err != nil {
			logger.Fatal("migrate database", zap.Error(err))
		}
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, store.OptionsFromConfig(cfg, logger))
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer st.Close()

	repo := repository.New(st)
	svc := discovery.NewService(repo.Tools, repo.Ratings, discovery.LoaderOptions{
		BatchSize:   cfg.LoaderBatchSize,
		MaxPages:    cfg.LoaderMaxPages,
		CallTimeout: cfg.StoreCallTimeout(),
	}, logger)
	guard := rating.NewGuard(repo.Ratings, rating.Options{CallTimeout: cfg.StoreCallTimeout()}, logger)
	server := httpserver.New(cfg, st, svc, guard, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Error("server error", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("graceful shutdown error", zap.Error(err))
	}
}
