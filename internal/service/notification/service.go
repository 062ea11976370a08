package notification

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mesdirectives/access-api/internal/email"
	"github.com/mesdirectives/access-api/internal/model"
	"github.com/mesdirectives/access-api/internal/repository"
	"github.com/mesdirectives/access-api/pkg/logger"
	"github.com/mesdirectives/access-api/pkg/messaging"
)

// Service informs dossier owners about credential lifecycle events and
// audit alerts. Delivery failures are logged, never propagated: a mail
// outage must not block issuance or revocation.
type Service struct {
	profiles repository.ProfileRepository
	emailSvc email.Service
	broker   messaging.Broker
	logger   *logger.Logger
}

func NewService(profiles repository.ProfileRepository, emailSvc email.Service, broker messaging.Broker, log *logger.Logger) *Service {
	return &Service{
		profiles: profiles,
		emailSvc: emailSvc,
		broker:   broker,
		logger:   log,
	}
}

func (s *Service) NotifyCodeIssued(ctx context.Context, ownerUserID uuid.UUID, code string, expiresAt *time.Time) {
	profile, err := s.profiles.Get(ctx, ownerUserID)
	if err != nil {
		s.logger.Warn("cannot notify owner, profile missing", "user_id", ownerUserID.String())
		return
	}
	if profile.Email == "" {
		return
	}
	if err := s.emailSvc.SendCodeIssued(ctx, profile.Email, code, expiresAt); err != nil {
		s.logger.Error(err, "failed to send issuance email", "user_id", ownerUserID.String())
	}
}

func (s *Service) NotifyCodeRevoked(ctx context.Context, ownerUserID uuid.UUID, code string) {
	profile, err := s.profiles.Get(ctx, ownerUserID)
	if err != nil || profile.Email == "" {
		return
	}
	if err := s.emailSvc.SendCodeRevoked(ctx, profile.Email, code); err != nil {
		s.logger.Error(err, "failed to send revocation email", "user_id", ownerUserID.String())
	}
}

// NotifyAnomalies emails the owner a summary of the flagged activity and
// publishes an in-app alert.
func (s *Service) NotifyAnomalies(ctx context.Context, ownerUserID uuid.UUID, report *model.AuditReport) {
	if report == nil || !report.Suspicious {
		return
	}

	if s.broker != nil {
		alert := map[string]interface{}{
			"user_id": ownerUserID,
			"report":  report,
		}
		if err := s.broker.Publish(ctx, messaging.ChannelAuditAlerts, alert); err != nil {
			s.logger.Error(err, "failed to publish audit alert", "user_id", ownerUserID.String())
		}
	}

	profile, err := s.profiles.Get(ctx, ownerUserID)
	if err != nil || profile.Email == "" {
		return
	}
	if err := s.emailSvc.SendAccessAlert(ctx, profile.Email, summarize(report)); err != nil {
		s.logger.Error(err, "failed to send audit alert email", "user_id", ownerUserID.String())
	}
}

func summarize(report *model.AuditReport) string {
	lines := make([]string, 0, len(report.Details))
	for _, d := range report.Details {
		lines = append(lines, d.Description)
	}
	return strings.Join(lines, " ; ")
}
