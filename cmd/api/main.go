package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-desk/internal/api/http"
	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/notify"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/ratelimit"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/richtext"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, cfg.App.Name, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var store repository.Store
	if pool := pg.PoolHandle(); pool != nil {
		store = repository.NewPostgresStore(pool)
	} else {
		logger.Warn("using in-memory store; data is lost on restart")
		store = repository.NewMemoryStore()
	}

	var (
		redis   *persistence.Redis
		limiter ratelimit.Limiter = ratelimit.Unlimited{}
	)
	if cfg.RateLimit.Enabled {
		redis = persistence.NewRedis(ctx, cfg.Redis, cfg.App.Name, logger)
		defer redis.Close()
		limiter = ratelimit.NewRedisLimiter(redis.Client, cfg.App.Name+":ratelimit", ratelimit.Limits{
			PerMinute: cfg.RateLimit.TicketsPerMinute,
			PerHour:   cfg.RateLimit.TicketsPerHour,
		})
	}

	metrics := observability.NewMetrics("support_desk")
	dispatcher := events.NewInMemoryDispatcher(logger)

	notifications := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:  dispatcher,
		Mailer:      notify.NewMailer(cfg.App, cfg.Email, logger),
		Metrics:     metrics,
		Logger:      logger,
		PublicURL:   cfg.App.PublicURL,
		SendTimeout: cfg.Email.SendTimeout(),
	})
	worker.StartNotificationWorker(notifications)
	worker.StartActivityLogger(dispatcher, logger)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{UserRepo: store.Users()})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Sanitizer:  richtext.NewSanitizer(),
		Limiter:    limiter,
		Metrics:    metrics,
		Logger:     logger,
	})
	clientService := service.NewClientService(service.ClientDependencies{Store: store, Logger: logger})
	userService := service.NewUserService(service.UserDependencies{Store: store, BcryptCost: cfg.Auth.BcryptCost, Logger: logger})

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Clients:        handlers.NewClientsHandler(clientService, userService),
		Users:          handlers.NewUsersHandler(userService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store.Users()),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	notifications.Wait()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
