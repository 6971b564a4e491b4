package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/meditrack/hospital-api/internal/config"
	"github.com/meditrack/hospital-api/internal/email"
	"github.com/meditrack/hospital-api/internal/repository/postgres"
	"github.com/meditrack/hospital-api/pkg/logger"
	"github.com/meditrack/hospital-api/pkg/messaging/redis"
	"github.com/meditrack/hospital-api/pkg/metrics"
	"github.com/meditrack/hospital-api/pkg/worker"
)

// workerEnv overrides worker tuning from the environment, so deployments
// can retune batch sizes without touching the config file.
type workerEnv struct {
	HealthPort       int           `envconfig:"HEALTH_PORT" default:"8081"`
	OutboxBatchSize  int           `envconfig:"OUTBOX_BATCH_SIZE"`
	OutboxInterval   time.Duration `envconfig:"OUTBOX_INTERVAL"`
	ReminderInterval time.Duration `envconfig:"REMINDER_INTERVAL"`
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	var env workerEnv
	if err := envconfig.Process("worker", &env); err != nil {
		log.Fatal().Err(err).Msg("failed to process worker environment")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     10,
		MinIdleConns: 2,
	}, appLogger.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Redis broker")
	}
	defer broker.Close()

	baseRepo := postgres.NewBaseRepository(db)
	outboxRepo := postgres.NewOutboxRepository(baseRepo)
	reminderRepo := postgres.NewReminderRepository(baseRepo)
	appointmentRepo := postgres.NewAppointmentRepository(baseRepo)
	patientRepo := postgres.NewPatientRepository(baseRepo)
	auditRepo := postgres.NewAuditRepository(baseRepo)

	m := metrics.NewMetrics("hospital_worker")
	mailer := email.NewSMTPService(cfg.SMTP)

	outboxInterval := time.Duration(cfg.Worker.OutboxIntervalMS) * time.Millisecond
	if env.OutboxInterval > 0 {
		outboxInterval = env.OutboxInterval
	}
	batchSize := cfg.Worker.OutboxBatchSize
	if env.OutboxBatchSize > 0 {
		batchSize = env.OutboxBatchSize
	}
	reminderInterval := time.Duration(cfg.Worker.ReminderIntervalSecs) * time.Second
	if env.ReminderInterval > 0 {
		reminderInterval = env.ReminderInterval
	}

	processor := worker.NewOutboxProcessor(
		&baseRepo,
		outboxRepo,
		broker,
		worker.OutboxProcessorConfig{
			BatchSize:    batchSize,
			PollInterval: outboxInterval,
			MaxRetries:   cfg.Worker.OutboxMaxRetries,
		},
		appLogger,
		m,
	)

	reminders := worker.NewReminderWorker(
		&baseRepo, reminderRepo, appointmentRepo, patientRepo, mailer,
		reminderInterval, appLogger,
	)

	cleanup := worker.NewCleanupWorker(
		auditRepo, outboxRepo, cfg.Worker.AuditRetentionDays, 24*time.Hour, appLogger,
	)

	setupHealthCheck(env.HealthPort, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Shutting down workers")
		cancel()
	}()

	go reminders.Start(ctx)
	go cleanup.Start(ctx)
	processor.Start(ctx)
}

func setupHealthCheck(port int, appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		addr := fmt.Sprintf(":%d", port)
		if err := http.ListenAndServe(addr, mux); err != nil {
			appLogger.Error(err, "health check server failed")
		}
	}()
}
