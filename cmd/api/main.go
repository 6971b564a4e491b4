package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/meditrack/hospital-api/internal/artifact"
	"github.com/meditrack/hospital-api/internal/config"
	"github.com/meditrack/hospital-api/internal/email"
	"github.com/meditrack/hospital-api/internal/handler"
	appointmentHandler "github.com/meditrack/hospital-api/internal/handler/appointment"
	auditHandler "github.com/meditrack/hospital-api/internal/handler/audit"
	authHandler "github.com/meditrack/hospital-api/internal/handler/auth"
	catalogHandler "github.com/meditrack/hospital-api/internal/handler/catalog"
	resultHandler "github.com/meditrack/hospital-api/internal/handler/labresult"
	patientHandler "github.com/meditrack/hospital-api/internal/handler/patient"
	requestHandler "github.com/meditrack/hospital-api/internal/handler/request"
	staffHandler "github.com/meditrack/hospital-api/internal/handler/staff"
	"github.com/meditrack/hospital-api/internal/middleware"
	"github.com/meditrack/hospital-api/internal/repository/postgres"
	"github.com/meditrack/hospital-api/internal/router"
	appointmentService "github.com/meditrack/hospital-api/internal/service/appointment"
	authService "github.com/meditrack/hospital-api/internal/service/auth"
	catalogService "github.com/meditrack/hospital-api/internal/service/catalog"
	patientService "github.com/meditrack/hospital-api/internal/service/patient"
	requestService "github.com/meditrack/hospital-api/internal/service/request"
	resultService "github.com/meditrack/hospital-api/internal/service/result"
	staffService "github.com/meditrack/hospital-api/internal/service/staff"
	"github.com/meditrack/hospital-api/internal/storage"
	"github.com/meditrack/hospital-api/pkg/logger"
	"github.com/meditrack/hospital-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	store, err := storage.NewStore(cfg.Storage.BaseDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}

	m := metrics.NewMetrics("hospital_api")
	mailer := email.NewSMTPService(cfg.SMTP)

	// Repositories
	baseRepo := postgres.NewBaseRepository(db)
	userRepo := postgres.NewUserRepository(baseRepo)
	patientRepo := postgres.NewPatientRepository(baseRepo)
	testRepo := postgres.NewTestRepository(baseRepo)
	requestRepo := postgres.NewTestRequestRepository(baseRepo)
	resultRepo := postgres.NewTestResultRepository(baseRepo)
	accessRepo := postgres.NewPatientAccessRepository(baseRepo)
	appointmentRepo := postgres.NewAppointmentRepository(baseRepo)
	reminderRepo := postgres.NewReminderRepository(baseRepo)
	auditRepo := postgres.NewAuditRepository(baseRepo)
	outboxRepo := postgres.NewOutboxRepository(baseRepo)

	// Services
	authSvc := authService.NewService(userRepo, cfg.JWT)
	patientSvc := patientService.NewService(&baseRepo, patientRepo, userRepo, mailer, appLogger)
	staffSvc := staffService.NewService(userRepo, mailer, appLogger)
	catalogSvc := catalogService.NewService(testRepo)
	requestSvc := requestService.NewService(&baseRepo, requestRepo, patientRepo, testRepo, userRepo, auditRepo, outboxRepo)
	resultSvc := resultService.NewService(
		&baseRepo, resultRepo, requestRepo, patientRepo, testRepo, accessRepo,
		auditRepo, outboxRepo, store, artifact.NewRenderer(), mailer, m, appLogger,
	)
	appointmentSvc := appointmentService.NewService(&baseRepo, appointmentRepo, reminderRepo, outboxRepo)

	// Middleware and handlers
	authMiddleware := middleware.NewAuthMiddleware(authSvc)
	h := handler.NewHandler()

	r := router.NewRouter(
		authMiddleware,
		authHandler.NewHandler(authSvc),
		patientHandler.NewHandler(patientSvc),
		staffHandler.NewHandler(staffSvc),
		catalogHandler.NewHandler(catalogSvc),
		requestHandler.NewHandler(requestSvc),
		resultHandler.NewHandler(resultSvc, cfg.Server.ExposeAccessCodes),
		appointmentHandler.NewHandler(appointmentSvc),
		auditHandler.NewHandler(auditRepo),
		h,
		router.RouterConfig{
			RateLimit:     rate.Limit(cfg.Server.RateLimitRPS),
			RateBurst:     cfg.Server.RateLimitBurst,
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "hospital_api_http",
			Timeout:       time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		appLogger.Info("Starting API server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
}
