package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/issue-desk/internal/api/http"
	"github.com/spec-kit/issue-desk/internal/api/http/handlers"
	"github.com/spec-kit/issue-desk/internal/auth"
	"github.com/spec-kit/issue-desk/internal/config"
	"github.com/spec-kit/issue-desk/internal/observability"
	"github.com/spec-kit/issue-desk/internal/persistence"
	"github.com/spec-kit/issue-desk/internal/repository"
	"github.com/spec-kit/issue-desk/internal/service"
	"github.com/spec-kit/issue-desk/internal/worker"
)

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	issueRepo := repository.NewIssueRepository(pool)
	replyRepo := repository.NewReplyRepository(pool)
	settingRepo := repository.NewSettingRepository(pool)

	authService := service.NewAuthService(cfg.Auth, userRepo)
	settingsService := service.NewSettingsService(settingRepo, redis.Client, logger)
	issueService := service.NewIssueService(service.IssueDependencies{
		IssueRepo: issueRepo,
		ReplyRepo: replyRepo,
		UserRepo:  userRepo,
		Settings:  settingsService,
	})
	retentionService := service.NewRetentionService(issueRepo, settingsService, logger)

	sessionMiddleware := auth.NewSessionMiddleware(authService.TokenManager(), userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:     handlers.NewAuthHandler(authService, cfg.Auth.CookieSecure),
		Users:    handlers.NewUsersHandler(authService),
		Issues:   handlers.NewIssuesHandler(issueService),
		Settings: handlers.NewSettingsHandler(settingsService, issueService),
		Cron:     handlers.NewCronHandler(retentionService, cfg.Cron.Secret),
		Session:  sessionMiddleware,
	})

	if cfg.Cron.Enabled {
		scheduler, err := worker.StartRetentionWorker(cfg.Cron.Schedule, retentionService, logger)
		if err != nil {
			logger.Fatal("failed to start retention worker", zap.Error(err))
		}
		defer scheduler.Stop()
	}

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
