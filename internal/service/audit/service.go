package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mesdirectives/access-api/internal/model"
	"github.com/mesdirectives/access-api/internal/repository"
	"github.com/mesdirectives/access-api/pkg/logger"
)

// Service records access attempts and scans the trail for anomalies.
// Log writes never fail the caller: losing a log line must not block a
// patient's access.
type Service struct {
	repo   repository.AccessLogRepository
	logger *logger.Logger
	now    func() time.Time
}

func NewService(repo repository.AccessLogRepository, log *logger.Logger) *Service {
	return &Service{repo: repo, logger: log, now: time.Now}
}

// WithClock overrides the service's clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// EventOptions carries optional actor metadata for one log entry.
type EventOptions struct {
	AccessCodeID   *uuid.UUID
	ActorName      string
	ActorFirstName string
	IPAddress      string
	UserAgent      string
	ResourceID     *string
}

// LogAccessEvent appends one entry to the access trail. IP and user
// agent fall back to the request context when not provided, then to the
// client_side sentinel.
func (s *Service) LogAccessEvent(ctx context.Context, userID uuid.UUID, resourceType, action string, opts *EventOptions) {
	if opts == nil {
		opts = &EventOptions{}
	}

	ipAddress := opts.IPAddress
	userAgent := opts.UserAgent
	if gc, ok := ctx.(*gin.Context); ok && ipAddress == "" {
		ipAddress = gc.ClientIP()
		userAgent = gc.GetHeader("User-Agent")
	}
	if ipAddress == "" {
		ipAddress = model.IPClientSide
	}

	entry := &model.AccessLogEntry{
		ID:             uuid.New(),
		UserID:         userID,
		AccessCodeID:   opts.AccessCodeID,
		ActorName:      opts.ActorName,
		ActorFirstName: opts.ActorFirstName,
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
		ResourceType:   resourceType,
		Action:         action,
		ResourceID:     opts.ResourceID,
		CreatedAt:      s.now(),
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error(err, "failed to write access log entry",
			"user_id", userID.String(),
			"action", action,
		)
	}
}

// LogAccessError records a technical failure against the trail. The
// owner may be unknown at that point; uuid.Nil is the sentinel.
func (s *Service) LogAccessError(ctx context.Context, userID uuid.UUID, resourceType string, cause error) {
	entry := &model.AccessLogEntry{
		ID:           uuid.New(),
		UserID:       userID,
		IPAddress:    model.IPClientSide,
		ResourceType: resourceType,
		Action:       model.AccessActionError,
		UserAgent:    fmt.Sprintf("error: %v", cause),
		CreatedAt:    s.now(),
	}
	if gc, ok := ctx.(*gin.Context); ok {
		entry.IPAddress = gc.ClientIP()
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error(err, "failed to write access error entry", "user_id", userID.String())
	}
}

// ListLogs returns the paginated access trail for an owner.
func (s *Service) ListLogs(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*model.AccessLogEntry, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// Audit scans the owner's trail over the window and flags high-volume
// days and off-hours accesses. Heuristic reporting only; nothing is
// blocked.
func (s *Service) Audit(ctx context.Context, userID uuid.UUID, daysBack int) (*model.AuditReport, error) {
	if daysBack <= 0 {
		daysBack = 30
	}

	since := s.now().AddDate(0, 0, -daysBack)
	entries, err := s.repo.ListByUserSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load access logs: %w", err)
	}

	perDay := make(map[string]int)
	offHoursPerDay := make(map[string]int)
	ips := make(map[string]struct{})
	agents := make(map[string]struct{})

	for _, entry := range entries {
		local := entry.CreatedAt.Local()
		day := local.Format("2006-01-02")
		perDay[day]++
		if hour := local.Hour(); hour >= model.OffHoursStart && hour < model.OffHoursEnd {
			offHoursPerDay[day]++
		}
		if entry.IPAddress != "" {
			ips[entry.IPAddress] = struct{}{}
		}
		if entry.UserAgent != "" {
			agents[entry.UserAgent] = struct{}{}
		}
	}

	var details []model.AnomalyEntry
	for day, count := range perDay {
		if count > model.HighVolumeThreshold {
			details = append(details, model.AnomalyEntry{
				Type:        model.AnomalyHighVolume,
				Date:        day,
				Count:       count,
				Description: fmt.Sprintf("%d accès le %s (seuil: %d)", count, day, model.HighVolumeThreshold),
			})
		}
	}
	for day, count := range offHoursPerDay {
		details = append(details, model.AnomalyEntry{
			Type:        model.AnomalyOffHours,
			Date:        day,
			Count:       count,
			Description: fmt.Sprintf("%d accès entre %dh et %dh le %s", count, model.OffHoursStart, model.OffHoursEnd, day),
		})
	}

	report := &model.AuditReport{
		Suspicious: len(details) > 0,
		Details:    details,
		Stats: model.AuditStats{
			TotalAccesses:   len(entries),
			DistinctIPs:     len(ips),
			DistinctAgents:  len(agents),
			AccessesPerDay:  perDay,
			WindowDays:      daysBack,
			WindowStartDate: since.Format("2006-01-02"),
		},
	}
	if report.Suspicious {
		report.Message = "activité inhabituelle détectée"
	} else {
		report.Message = "aucune anomalie détectée"
	}
	return report, nil
}

// Cleanup removes trail entries older than the retention cutoff.
func (s *Service) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	return s.repo.DeleteBefore(ctx, before)
}
