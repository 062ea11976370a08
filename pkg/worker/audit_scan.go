package worker

import (
	"context"
	"time"

	"github.com/mesdirectives/access-api/internal/repository"
	"github.com/mesdirectives/access-api/internal/service/audit"
	"github.com/mesdirectives/access-api/internal/service/notification"
	"github.com/mesdirectives/access-api/pkg/logger"
	"github.com/mesdirectives/access-api/pkg/metrics"
)

// AuditScanWorker periodically re-runs the anomaly heuristics over every
// owner with recent activity and alerts the flagged ones.
type AuditScanWorker struct {
	logs     repository.AccessLogRepository
	auditor  *audit.Service
	notifier *notification.Service
	interval time.Duration
	window   int
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewAuditScanWorker(
	logs repository.AccessLogRepository,
	auditor *audit.Service,
	notifier *notification.Service,
	interval time.Duration,
	windowDays int,
	log *logger.Logger,
	m *metrics.Metrics,
) *AuditScanWorker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if windowDays <= 0 {
		windowDays = 7
	}
	return &AuditScanWorker{
		logs:     logs,
		auditor:  auditor,
		notifier: notifier,
		interval: interval,
		window:   windowDays,
		logger:   log,
		metrics:  m,
	}
}

func (w *AuditScanWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("Starting audit scan worker", "window_days", w.window)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Shutting down audit scan worker")
			return
		case <-ticker.C:
			if err := w.scan(ctx); err != nil {
				w.logger.Error(err, "Audit scan failed")
			}
		}
	}
}

func (w *AuditScanWorker) scan(ctx context.Context) error {
	since := time.Now().AddDate(0, 0, -w.window)
	userIDs, err := w.logs.ListActiveUsersSince(ctx, since)
	if err != nil {
		return err
	}

	for _, userID := range userIDs {
		report, err := w.auditor.Audit(ctx, userID, w.window)
		if err != nil {
			w.logger.Error(err, "Failed to audit user trail", "user_id", userID.String())
			continue
		}
		if !report.Suspicious {
			continue
		}

		for _, detail := range report.Details {
			w.metrics.AnomaliesDetected.WithLabelValues(detail.Type).Inc()
		}
		w.logger.Warn("Suspicious access activity",
			"user_id", userID.String(),
			"anomalies", len(report.Details),
		)
		w.notifier.NotifyAnomalies(ctx, userID, report)
	}

	return nil
}
