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

	"github.com/mesdirectives/access-api/internal/config"
	"github.com/mesdirectives/access-api/internal/email"
	"github.com/mesdirectives/access-api/internal/handler"
	accessHandler "github.com/mesdirectives/access-api/internal/handler/access"
	auditHandler "github.com/mesdirectives/access-api/internal/handler/audit"
	codeHandler "github.com/mesdirectives/access-api/internal/handler/code"
	"github.com/mesdirectives/access-api/internal/middleware"
	"github.com/mesdirectives/access-api/internal/repository/postgres"
	"github.com/mesdirectives/access-api/internal/router"
	"github.com/mesdirectives/access-api/internal/service/accesscode"
	auditService "github.com/mesdirectives/access-api/internal/service/audit"
	"github.com/mesdirectives/access-api/internal/service/dossier"
	"github.com/mesdirectives/access-api/internal/service/identity"
	"github.com/mesdirectives/access-api/internal/service/notification"
	"github.com/mesdirectives/access-api/pkg/auth"
	"github.com/mesdirectives/access-api/pkg/logger"
	messagingRedis "github.com/mesdirectives/access-api/pkg/messaging/redis"
	"github.com/mesdirectives/access-api/pkg/metrics"
	"github.com/mesdirectives/access-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.NewMetrics("mesdirectives", "access_api")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	baseRepo := postgres.NewBaseRepository(db)
	profileRepo := postgres.NewProfileRepository(baseRepo)
	directiveRepo := postgres.NewDirectiveRepository(baseRepo)
	codeRepo := postgres.NewAccessCodeRepository(baseRepo)
	shareRepo := postgres.NewSharedProfileRepository(baseRepo)
	accessLogRepo := postgres.NewAccessLogRepository(baseRepo)
	outboxRepo := postgres.NewOutboxRepository(baseRepo)

	// Services
	auditor := auditService.NewService(accessLogRepo, appLogger)
	generator := accesscode.NewGenerator(
		codeRepo, shareRepo, profileRepo, directiveRepo, outboxRepo,
		appLogger, appMetrics, cfg.Access.DefaultExpiryDays,
	)
	matcher := identity.NewMatcher(cfg.Access.StrictIdentityMatch)
	resolver := dossier.NewResolver(profileRepo, directiveRepo)
	sources := accesscode.DefaultSources(codeRepo, shareRepo, directiveRepo, profileRepo)
	validator := accesscode.NewValidator(
		sources, codeRepo, profileRepo, matcher, resolver, auditor,
		appLogger, appMetrics,
	)

	emailSvc := email.NewSMTPService(cfg.SMTP)

	// Redis broker feeds in-app alerts and the outbox drain.
	broker, err := messagingRedis.NewRedisBroker(messagingRedis.Config{URL: cfg.Redis.URL}, appLogger.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	notifier := notification.NewService(profileRepo, emailSvc, broker, appLogger)

	// Auth middleware validates tokens issued by the session provider.
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	// Handlers
	h := handler.NewHandler(db)
	accessH := accessHandler.NewHandler(validator)
	codeH := codeHandler.NewHandler(generator, notifier)
	auditH := auditHandler.NewHandler(auditor)

	r := router.NewRouter(authMiddleware, accessH, codeH, auditH, h, router.RouterConfig{
		RateLimitRPS:   float64(cfg.Server.RateLimitRPS),
		RateLimitBurst: cfg.Server.RateLimitBurst,
		Timeout:        time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		CORSConfig:     middleware.DefaultCORSConfig(),
		MetricsPrefix:  "access_api",
	})
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Drain the outbox from the API process too; the dedicated worker
	// handles the heavier periodic jobs.
	outboxProcessor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{}, appLogger, appMetrics)
	go outboxProcessor.Start(ctx)

	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("Shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
		os.Exit(1)
	}
}
