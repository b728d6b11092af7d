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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/practice-api/internal/cache"
	"github.com/jwalitptl/practice-api/internal/config"
	clinicHandler "github.com/jwalitptl/practice-api/internal/handler/clinic"
	"github.com/jwalitptl/practice-api/internal/handler/health"
	"github.com/jwalitptl/practice-api/internal/handler/lookup"
	patientHandler "github.com/jwalitptl/practice-api/internal/handler/patient"
	promHandler "github.com/jwalitptl/practice-api/internal/handler/prometheus"
	registrationHandler "github.com/jwalitptl/practice-api/internal/handler/registration"
	"github.com/jwalitptl/practice-api/internal/middleware"
	"github.com/jwalitptl/practice-api/internal/repository/postgres"
	"github.com/jwalitptl/practice-api/internal/router"
	"github.com/jwalitptl/practice-api/internal/service/catalog"
	clinicService "github.com/jwalitptl/practice-api/internal/service/clinic"
	"github.com/jwalitptl/practice-api/internal/service/dashboard"
	patientService "github.com/jwalitptl/practice-api/internal/service/patient"
	"github.com/jwalitptl/practice-api/internal/service/registration"
	"github.com/jwalitptl/practice-api/pkg/auth"
	"github.com/jwalitptl/practice-api/pkg/logger"
	redisBroker "github.com/jwalitptl/practice-api/pkg/messaging/redis"
	"github.com/jwalitptl/practice-api/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Log.Console,
	})
	log.Logger = *appLogger.Zerolog()
	if logger.ParseLevel(cfg.Log.Level) > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := redisBroker.NewClient(ctx, redisBroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(cfg.Monitoring.MetricsNamespace, registry)
	httpMetrics := promHandler.New(cfg.Monitoring.MetricsNamespace, registry)

	// Initialize repositories
	baseRepo := postgres.NewBaseRepository(db)
	clinicRepo := postgres.NewClinicRepository(baseRepo)
	dentistRepo := postgres.NewDentistRepository(baseRepo)
	locationRepo := postgres.NewLocationRepository(baseRepo)
	treatmentRepo := postgres.NewTreatmentRepository(baseRepo)
	patientRepo := postgres.NewPatientRepository(baseRepo)

	profiles := cache.NewProfileCache(redisClient, cfg.Cache.ProfileTTL, cfg.Cache.CleanupInterval, appMetrics, appLogger)

	// Initialize services
	workflow := registration.NewWorkflow(registration.Dependencies{
		Tx:               postgres.NewTxRunner(db),
		Clinics:          clinicRepo,
		Dentists:         dentistRepo,
		ClinicTreatments: postgres.NewClinicTreatmentRepository(baseRepo),
		Roles:            postgres.NewUserRoleRepository(baseRepo),
		Leads:            postgres.NewLeadRepository(baseRepo),
		Locations:        locationRepo,
		Treatments:       treatmentRepo,
		Outbox:           postgres.NewOutboxRepository(baseRepo),
		Profiles:         profiles,
		Logger:           appLogger,
		Metrics:          appMetrics,
	}, registration.Config{
		Transactional:       cfg.Registration.Transactional,
		SlugConflictRetries: cfg.Registration.SlugConflictRetries,
	})
	drafts := registration.NewDraftService(
		registration.NewDraftStore(cfg.Registration.DraftTTL, cfg.Cache.CleanupInterval),
		workflow,
		appLogger,
	)
	clinicSvc := clinicService.NewService(clinicRepo, dentistRepo, profiles)
	dashboardSvc := dashboard.NewService(
		clinicRepo,
		postgres.NewAppointmentRepository(baseRepo),
		postgres.NewFunnelEventRepository(baseRepo),
		patientRepo,
	)
	patientSvc := patientService.NewService(patientRepo, appMetrics, appLogger)
	catalogSvc := catalog.NewService(locationRepo, treatmentRepo, cfg.Cache.ProfileTTL)

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry())

	r := router.NewRouter(middleware.NewAuthMiddleware(jwtSvc), router.Handlers{
		Health: health.NewHandler(map[string]health.Pinger{
			"database": db,
			"redis":    redisBroker.Pinger{Client: redisClient},
		}, httpMetrics.Handler()),
		Protected: []router.Handler{
			lookup.NewHandler(catalogSvc),
			registrationHandler.NewHandler(drafts, workflow),
			clinicHandler.NewHandler(clinicSvc, dashboardSvc),
			patientHandler.NewHandler(patientSvc, clinicSvc, cfg.Server.MaxUploadBytes),
		},
	}, router.RouterConfig{
		RateLimit: middleware.RateLimiterConfig{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
		},
		CORSConfig: middleware.CORSConfig{
			AllowOrigins:     cfg.Server.AllowedOrigins,
			AllowCredentials: true,
			MaxAge:           86400,
		},
		RequestTimeout: cfg.Server.WriteTimeout,
		Metrics:        httpMetrics.Middleware(),
		Logger:         appLogger,
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
