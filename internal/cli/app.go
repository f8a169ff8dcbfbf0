// Package cli implements the toolsctl operator commands.
package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Clark-Hu/ai-tool-finder/internal/config"
	"github.com/Clark-Hu/ai-tool-finder/internal/discovery"
	"github.com/Clark-Hu/ai-tool-finder/internal/logging"
	"github.com/Clark-Hu/ai-tool-finder/internal/repository"
	"github.com/Clark-Hu/ai-tool-finder/internal/store"
)

// app is the database-backed wiring shared by commands.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *store.Store
	repo      *repository.Repository
	discovery *discovery.Service
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	st, err := store.New(dbCtx, cfg.DBURL, store.OptionsFromConfig(cfg, logger))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	repo := repository.New(st)
	svc := discovery.NewService(repo.Tools, repo.Ratings, discovery.LoaderOptions{
		BatchSize:   cfg.LoaderBatchSize,
		MaxPages:    cfg.LoaderMaxPages,
		CallTimeout: cfg.StoreCallTimeout(),
	}, logger)

	return &app{cfg: cfg, logger: logger, store: st, repo: repo, discovery: svc}, nil
}

func (a *app) Close() {
	a.store.Close()
	_ = a.logger.Sync()
}
