package email

import (
	"context"
	"fmt"
	"time"

	gomail "gopkg.in/gomail.v2"

	"github.com/mesdirectives/access-api/internal/config"
)

type Service interface {
	SendCodeIssued(ctx context.Context, to string, code string, expiresAt *time.Time) error
	SendCodeRevoked(ctx context.Context, to string, code string) error
	SendAccessAlert(ctx context.Context, to string, summary string) error
	SendCustom(ctx context.Context, to string, subject string, content string) error
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPService(cfg config.SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) SendCodeIssued(ctx context.Context, to, code string, expiresAt *time.Time) error {
	validity := "sans limite de validité"
	if expiresAt != nil {
		validity = fmt.Sprintf("valable jusqu'au %s", expiresAt.Format("02/01/2006"))
	}
	body := fmt.Sprintf(
		"<p>Un code d'accès à votre dossier vient d'être créé.</p><p>Code : <strong>%s</strong> (%s)</p><p>Si vous n'êtes pas à l'origine de cette demande, révoquez ce code depuis votre espace personnel.</p>",
		code, validity,
	)
	return s.send(ctx, to, "Votre code d'accès", body)
}

func (s *smtpService) SendCodeRevoked(ctx context.Context, to, code string) error {
	body := fmt.Sprintf("<p>Le code d'accès <strong>%s</strong> a été révoqué. Il ne permet plus de consulter votre dossier.</p>", code)
	return s.send(ctx, to, "Code d'accès révoqué", body)
}

func (s *smtpService) SendAccessAlert(ctx context.Context, to, summary string) error {
	body := fmt.Sprintf(
		"<p>Une activité inhabituelle a été détectée sur votre dossier :</p><p>%s</p><p>Consultez l'historique des accès depuis votre espace personnel.</p>",
		summary,
	)
	return s.send(ctx, to, "Alerte d'accès à votre dossier", body)
}

func (s *smtpService) SendCustom(ctx context.Context, to, subject, content string) error {
	return s.send(ctx, to, subject, content)
}

func (s *smtpService) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
