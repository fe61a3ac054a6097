package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/remediation-review/internal/api/http"
	"github.com/spec-kit/remediation-review/internal/api/http/handlers"
	"github.com/spec-kit/remediation-review/internal/audit"
	"github.com/spec-kit/remediation-review/internal/auth"
	"github.com/spec-kit/remediation-review/internal/config"
	"github.com/spec-kit/remediation-review/internal/domain"
	"github.com/spec-kit/remediation-review/internal/events"
	"github.com/spec-kit/remediation-review/internal/notify"
	"github.com/spec-kit/remediation-review/internal/observability"
	"github.com/spec-kit/remediation-review/internal/persistence"
	"github.com/spec-kit/remediation-review/internal/repository"
	"github.com/spec-kit/remediation-review/internal/service"
	"github.com/spec-kit/remediation-review/internal/worker"
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
	ticketRepo := repository.NewTicketRepository(pool)
	reviewerRepo := repository.NewReviewerRepository(pool)

	recorder := audit.NewPostgresRecorder(pool, logger)
	dispatcher := events.NewInMemoryDispatcher()

	publisher := notify.NewRedisPublisher(redis.Client, cfg.Notify.Channel)
	notify.RegisterBridge(dispatcher, publisher, logger)

	approvalService := service.NewApprovalService(service.ApprovalDependencies{
		TicketRepo: ticketRepo,
		Audit:      recorder,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	authService := service.NewAuthService(*cfg, reviewerRepo)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), reviewerRepo)

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(approvalService),
		AuthMiddleware: authMiddleware,
	})

	if cfg.Worker.Enabled {
		applyWorker := worker.NewApplyWorker(
			approvalService,
			noopApplier{},
			logger,
			time.Duration(cfg.Worker.PollIntervalSeconds)*time.Second,
			cfg.Worker.BatchSize,
		)
		go applyWorker.Run(ctx)
		logger.Info("apply worker started",
			zap.Int("poll_seconds", cfg.Worker.PollIntervalSeconds),
			zap.Int("batch_size", cfg.Worker.BatchSize))
	}

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

// noopApplier acknowledges approved tickets without touching any target
// system. Real deployments inject an applier that executes healing steps.
type noopApplier struct{}

func (noopApplier) Apply(_ context.Context, ticket domain.ReviewTicket) (domain.ApplicationResult, error) {
	return domain.ApplicationResult{
		Success:    true,
		StepsTotal: len(ticket.HealingSteps),
		Changes:    []string{"no-op applier: no changes made"},
	}, nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
