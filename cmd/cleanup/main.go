package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/issue-desk/internal/config"
	"github.com/spec-kit/issue-desk/internal/observability"
	"github.com/spec-kit/issue-desk/internal/persistence"
	"github.com/spec-kit/issue-desk/internal/repository"
	"github.com/spec-kit/issue-desk/internal/service"
)

// One-shot retention run, for external schedulers that prefer a binary over
// the HTTP trigger.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	settingsService := service.NewSettingsService(repository.NewSettingRepository(pool), nil, logger)
	retentionService := service.NewRetentionService(repository.NewIssueRepository(pool), settingsService, logger)

	result, err := retentionService.Run(ctx)
	if err != nil {
		logger.Fatal("retention run failed", zap.Error(err))
	}
	logger.Info("retention run completed",
		zap.Int64("deleted_closed", result.DeletedClosedCount),
		zap.Int64("deleted_pending", result.DeletedPendingCount),
	)
}
