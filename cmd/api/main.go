package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-dashboard-api/internal/config"
	appointmentHandler "github.com/jwalitptl/clinic-dashboard-api/internal/handler/appointment"
	authHandler "github.com/jwalitptl/clinic-dashboard-api/internal/handler/auth"
	"github.com/jwalitptl/clinic-dashboard-api/internal/handler/health"
	patientHandler "github.com/jwalitptl/clinic-dashboard-api/internal/handler/patient"
	promHandler "github.com/jwalitptl/clinic-dashboard-api/internal/handler/prometheus"
	staffHandler "github.com/jwalitptl/clinic-dashboard-api/internal/handler/staff"
	userHandler "github.com/jwalitptl/clinic-dashboard-api/internal/handler/user"
	"github.com/jwalitptl/clinic-dashboard-api/internal/middleware"
	"github.com/jwalitptl/clinic-dashboard-api/internal/repository/postgres"
	"github.com/jwalitptl/clinic-dashboard-api/internal/router"
	"github.com/jwalitptl/clinic-dashboard-api/internal/service/access"
	appointmentService "github.com/jwalitptl/clinic-dashboard-api/internal/service/appointment"
	authService "github.com/jwalitptl/clinic-dashboard-api/internal/service/auth"
	eventService "github.com/jwalitptl/clinic-dashboard-api/internal/service/event"
	patientService "github.com/jwalitptl/clinic-dashboard-api/internal/service/patient"
	staffService "github.com/jwalitptl/clinic-dashboard-api/internal/service/staff"
	userService "github.com/jwalitptl/clinic-dashboard-api/internal/service/user"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/auth"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/cache"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/logger"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/metrics"
	"github.com/jwalitptl/clinic-dashboard-api/pkg/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.NewLogger(cfg.Log.ToLoggerConfig())

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
	defer redisClient.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics("clinic", registry)

	repos := postgres.NewRepositories(db)
	loc := cfg.Schedule.Location()

	// Access and the token denylist are shared between instances; staff
	// lookups are cheap to rebuild and stay in process.
	shared := cache.NewRedisStore(redisClient, "clinic:")
	accessStore := cache.Instrument(shared, "access", m.CacheLookups)
	denylist := cache.Instrument(shared, "denylist", m.CacheLookups)
	staffStore := cache.Instrument(cache.NewMemoryStore(cfg.Cache.StaffTTL, 2*cfg.Cache.StaffTTL), "staff", m.CacheLookups)

	hasher := security.NewBcryptHasher(cfg.Security.BcryptCost)
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry)

	accessCache := access.NewCache(accessStore, cfg.Cache.AccessTTL)
	staffSvc := staffService.NewService(repos.Specialists, repos.Assistants, repos.Users, hasher,
		staffStore, cfg.Cache.StaffTTL, accessCache)
	accessSvc := access.NewService(staffSvc, accessCache)
	events := eventService.NewEventService(repos.Outbox, cfg.Redis.Channel)
	appointmentSvc := appointmentService.NewService(repos.Appointments, repos.Specialists, accessSvc, events,
		loc, cfg.Schedule.MinuteHeight)
	patientSvc := patientService.NewService(repos.Patients)
	authSvc := authService.NewService(repos.Users, jwtSvc, hasher, denylist, accessSvc)
	userSvc := userService.NewService(repos.Users, hasher, accessCache, authSvc)

	routerConfig := router.RouterConfig{
		Mode:           cfg.Server.Mode,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		CORS:           corsConfig(cfg.Security),
	}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimit = &middleware.RateLimiterConfig{
			RPS:   cfg.RateLimit.RequestsPerSecond,
			Burst: cfg.RateLimit.Burst,
		}
	}

	r, err := router.NewRouter(
		middleware.NewAuthMiddleware(authSvc, accessSvc),
		router.Handlers{
			Health: health.NewHandler(map[string]health.Check{
				"database": db.PingContext,
				"redis": func(ctx context.Context) error {
					return redisClient.Ping(ctx).Err()
				},
			}),
			Metrics:     promHandler.New(registry),
			Auth:        authHandler.NewHandler(authSvc),
			Appointment: appointmentHandler.NewHandler(appointmentSvc, loc),
			Staff:       staffHandler.NewHandler(staffSvc),
			Patient:     patientHandler.NewHandler(patientSvc),
			User:        userHandler.NewHandler(userSvc),
		},
		m,
		routerConfig,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

func corsConfig(sec config.SecurityConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	if len(sec.AllowedOrigins) > 0 {
		cors.AllowOrigins = sec.AllowedOrigins
	}
	if len(sec.AllowedMethods) > 0 {
		cors.AllowMethods = sec.AllowedMethods
	}
	if len(sec.AllowedHeaders) > 0 {
		cors.AllowHeaders = sec.AllowedHeaders
	}
	return cors
}
