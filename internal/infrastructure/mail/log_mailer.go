package mail

import (
	"context"

	"github.com/thirdhand/marketplace/internal/application/notification"
	"github.com/thirdhand/marketplace/internal/infrastructure/config"
	"go.uber.org/zap"
)

var _ notification.Mailer = (*LogMailer)(nil)

// LogMailer renders emails and logs them instead of sending.
// Used when SMTP is disabled, e.g. in development.
type LogMailer struct {
	renderer *TemplateRenderer
	logger   *zap.Logger
}

// NewLogMailer creates a new LogMailer
func NewLogMailer(renderer *TemplateRenderer, logger *zap.Logger) *LogMailer {
	return &LogMailer{renderer: renderer, logger: logger}
}

// Send renders the email and writes it to the log
func (m *LogMailer) Send(_ context.Context, email notification.Email) error {
	body, err := m.renderer.Render(email.Template, email.Data)
	if err != nil {
		return err
	}
	m.logger.Info("Email (not sent, smtp disabled)",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
		zap.String("template", email.Template),
		zap.Int("body_bytes", len(body)))
	m.logger.Debug("Email body", zap.String("body", body))
	return nil
}

// NewFromConfig returns the SMTP mailer when SMTP is enabled, else a LogMailer
func NewFromConfig(cfg config.SMTPConfig, logger *zap.Logger) (notification.Mailer, error) {
	renderer, err := NewTemplateRenderer()
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		logger.Warn("SMTP disabled, emails will only be logged")
		return NewLogMailer(renderer, logger), nil
	}
	return NewSMTPMailer(cfg, renderer, logger)
}
