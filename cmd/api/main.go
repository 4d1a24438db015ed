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

	httptransport "github.com/booking-system/user-service/internal/api/http"
	"github.com/booking-system/user-service/internal/api/http/handlers"
	"github.com/booking-system/user-service/internal/auth"
	"github.com/booking-system/user-service/internal/config"
	"github.com/booking-system/user-service/internal/events"
	"github.com/booking-system/user-service/internal/observability"
	"github.com/booking-system/user-service/internal/persistence"
	"github.com/booking-system/user-service/internal/repository"
	"github.com/booking-system/user-service/internal/service"
	"github.com/booking-system/user-service/internal/worker"
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

	var store repository.UserStore
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewUserRepository(pg.Pool())
	} else {
		logger.Warn("using in-memory user store; data is lost on restart")
		store = repository.NewMemoryUserStore()
	}

	redis, err := persistence.NewRedis(ctx, cfg.Redis, cfg.Events.RedisStreams, logger)
	if err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewDispatcher(logger)
	publisher := events.NewAsyncPublisher(buildTransport(cfg.Events, redis, dispatcher, logger), logger, metrics, events.PublisherConfig{
		Shards:      cfg.Events.Shards,
		BufferSize:  cfg.Events.BufferSize,
		SendTimeout: cfg.Events.PublishTimeout(),
	})

	passwords := auth.NewPasswordPolicy(cfg.Auth.BcryptCost, cfg.Auth.RequireSpecialChar)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	userService := service.NewUserService(service.UserDependencies{
		Store:     store,
		Passwords: passwords,
		Publisher: publisher,
		Logger:    logger,
		ServiceID: cfg.Events.ServiceID,
	})
	notificationService := service.NewNotificationService(store, logger, cfg.Notification)
	notificationWorker := worker.NewNotificationWorker(dispatcher, notificationService.HandleNotificationRequested, logger, worker.Config{
		Workers:   cfg.Notification.Workers,
		QueueSize: cfg.Notification.QueueSize,
	})
	if err := notificationWorker.Start(ctx); err != nil {
		logger.Fatal("failed to start notification worker", zap.Error(err))
	}

	authMiddleware := auth.NewAuthMiddleware(tokens, store, cfg.Auth.AdminIDs)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Users:          handlers.NewUsersHandler(userService, tokens, authMiddleware),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer drainCancel()
	if err := publisher.Close(drainCtx); err != nil {
		logger.Warn("event publisher did not drain", zap.Error(err))
	}
	// after the publisher so its last notification requests are delivered
	if err := notificationWorker.Stop(drainCtx); err != nil {
		logger.Warn("notification worker did not drain", zap.Error(err))
	}
}

// buildTransport selects event transports from config. The in-process
// dispatcher always receives events so local subscribers run.
func buildTransport(cfg config.EventsConfig, redis *persistence.Redis, dispatcher *events.Dispatcher, logger *zap.Logger) events.Transport {
	transports := []events.Transport{dispatcher}
	brokered := false

	if len(cfg.KafkaBrokers) > 0 {
		transports = append(transports, events.NewKafkaTransport(events.KafkaConfig{
			Brokers:     cfg.KafkaBrokers,
			ClientID:    cfg.KafkaClientID,
			MaxAttempts: cfg.KafkaMaxAttempts,
		}))
		logger.Info("kafka event transport enabled", zap.Strings("brokers", cfg.KafkaBrokers))
		brokered = true
	}
	if cfg.RedisStreams && redis.Enabled() {
		transports = append(transports, events.NewRedisStreamTransport(redis.Client, cfg.RedisStreamMaxLen))
		logger.Info("redis stream event transport enabled")
		brokered = true
	}
	if !brokered {
		transports = append(transports, events.NewLogTransport(logger))
	}
	return events.Fanout(transports...)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
