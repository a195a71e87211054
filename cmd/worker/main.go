package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jwalitptl/clinic-dashboard-api/internal/config"
	"github.com/jwalitptl/clinic-dashboard-api/internal/email"
	"github.com/jwalitptl/clinic-dashboard-api/internal/handler/health"
	promHandler "github.com/jwalitptl/clinic-dashboard-api/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-dashboard-api/internal/middleware"
	"github.com/jwalitptl/clinic-dashboard-api/internal/repository/postgres"
	"github.com/jwalitptl/clinic-dashboard-api/internal/service/notification"
	internalWorker "github.com/jwalitptl/clinic-dashboard-api/internal/worker"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/logger"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/messaging"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/metrics"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	appLogger := logger.NewLogger(cfg.Log.ToLoggerConfig())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	redisClient, err := redis.NewClient(ctx, cfg.Redis.ToBrokerConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	broker := messaging.NewBrokerAdapter(redis.NewRedisBroker(redisClient, *appLogger.With("broker").Zerolog()))
	defer broker.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics("clinic_worker", registry)

	repos := postgres.NewRepositories(db)

	processor := worker.NewOutboxProcessor(
		repos.Outbox,
		broker,
		circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:             "redis-broker",
			MaxRequests:      1,
			Interval:         10 * time.Second,
			Timeout:          5 * time.Second,
			FailureThreshold: 5,
		}),
		worker.OutboxProcessorConfig{
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: cfg.Outbox.RetryAttempts,
			RetryDelay:    cfg.Outbox.RetryDelay,
		},
		appLogger.With("outbox"),
		m,
	)
	cleanup := internalWorker.NewOutboxCleanupWorker(repos.Outbox, cfg.Outbox.RetentionPeriod, cfg.Outbox.CleanupInterval)

	mailer := email.NewLogService()
	if cfg.Mail.Enabled {
		mailer = email.NewSMTPService(cfg.Mail.ToEmailConfig())
	}
	notifier := notification.NewService(mailer, cfg.Schedule.Location(), m.NotificationsSent)
	if err := notifier.Subscribe(ctx, broker, cfg.Redis.Channel); err != nil {
		log.Fatal().Err(err).Str("channel", cfg.Redis.Channel).Msg("failed to subscribe to appointment events")
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(middleware.Recovery())
	health.NewHandler(map[string]health.Check{
		"database": db.PingContext,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	}).RegisterRoutes(engine.Group(""))
	promHandler.New(registry).RegisterRoutes(engine.Group(""))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Worker.Port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		processor.Start(gctx)
		return nil
	})
	g.Go(func() error {
		cleanup.Start(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info().Int("port", cfg.Worker.Port).Msg("worker health endpoint listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("worker stopped with error")
	}
	log.Info().Msg("worker exited properly")
}
