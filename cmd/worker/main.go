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

	"github.com/mesdirectives/access-api/internal/config"
	"github.com/mesdirectives/access-api/internal/email"
	"github.com/mesdirectives/access-api/internal/repository/postgres"
	auditService "github.com/mesdirectives/access-api/internal/service/audit"
	"github.com/mesdirectives/access-api/internal/service/notification"
	"github.com/mesdirectives/access-api/pkg/logger"
	messagingRedis "github.com/mesdirectives/access-api/pkg/messaging/redis"
	"github.com/mesdirectives/access-api/pkg/metrics"
	"github.com/mesdirectives/access-api/pkg/worker"
)

// WorkerEnv overrides the periodic-job knobs from the environment, so a
// deployment can retune the worker without touching the shared config
// file.
type WorkerEnv struct {
	HealthPort          int           `envconfig:"WORKER_HEALTH_PORT" default:"8081"`
	OutboxBatchSize     int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	OutboxPollInterval  time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	OutboxRetryAttempts int           `envconfig:"OUTBOX_RETRY_ATTEMPTS" default:"3"`
	OutboxRetryDelay    time.Duration `envconfig:"OUTBOX_RETRY_DELAY" default:"1s"`
	ScanWindowDays      int           `envconfig:"AUDIT_SCAN_WINDOW_DAYS" default:"7"`
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
			appLogger.Fatal(err, "Health check server failed")
		}
	}()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	var env WorkerEnv
	if err := envconfig.Process("", &env); err != nil {
		log.Fatal().Err(err).Msg("Failed to read worker environment")
	}

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.NewMetrics("mesdirectives", "access_worker")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	broker, err := messagingRedis.NewRedisBroker(messagingRedis.Config{URL: cfg.Redis.URL}, appLogger.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Redis broker")
	}
	defer broker.Close()

	baseRepo := postgres.NewBaseRepository(db)
	profileRepo := postgres.NewProfileRepository(baseRepo)
	accessLogRepo := postgres.NewAccessLogRepository(baseRepo)
	outboxRepo := postgres.NewOutboxRepository(baseRepo)

	auditor := auditService.NewService(accessLogRepo, appLogger)
	emailSvc := email.NewSMTPService(cfg.SMTP)
	notifier := notification.NewService(profileRepo, emailSvc, broker, appLogger)

	outboxProcessor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     env.OutboxBatchSize,
		PollInterval:  env.OutboxPollInterval,
		RetryAttempts: env.OutboxRetryAttempts,
		RetryDelay:    env.OutboxRetryDelay,
	}, appLogger, appMetrics)

	scanWorker := worker.NewAuditScanWorker(
		accessLogRepo, auditor, notifier,
		time.Duration(cfg.Audit.ScanHours)*time.Hour,
		env.ScanWindowDays,
		appLogger, appMetrics,
	)

	cleanupWorker := worker.NewAuditCleanupWorker(
		accessLogRepo, cfg.Audit.RetentionDays, 24*time.Hour, appLogger,
	)

	setupHealthCheck(env.HealthPort, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		appLogger.Info("Shutting down...")
		cancel()
	}()

	go scanWorker.Start(ctx)
	go cleanupWorker.Start(ctx)
	outboxProcessor.Start(ctx)
}
