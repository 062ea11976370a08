package worker

import (
	"context"
	"time"

	"github.com/mesdirectives/access-api/internal/repository"
	"github.com/mesdirectives/access-api/pkg/logger"
)

// AuditCleanupWorker enforces the access-trail retention window.
type AuditCleanupWorker struct {
	repo          repository.AccessLogRepository
	retentionDays int
	interval      time.Duration
	logger        *logger.Logger
}

func NewAuditCleanupWorker(repo repository.AccessLogRepository, retentionDays int, interval time.Duration, log *logger.Logger) *AuditCleanupWorker {
	if retentionDays <= 0 {
		retentionDays = 365
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &AuditCleanupWorker{
		repo:          repo,
		retentionDays: retentionDays,
		interval:      interval,
		logger:        log,
	}
}

func (w *AuditCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Starting audit cleanup worker", "retention_days", w.retentionDays)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Shutting down audit cleanup worker")
			return
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -w.retentionDays)
			deleted, err := w.repo.DeleteBefore(ctx, cutoff)
			if err != nil {
				w.logger.Error(err, "Failed to prune access logs")
				continue
			}
			if deleted > 0 {
				w.logger.Info("Pruned access logs", "deleted", deleted)
			}
		}
	}
}
