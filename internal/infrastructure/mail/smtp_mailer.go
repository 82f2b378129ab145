// Package mail delivers the marketplace's transactional emails.
package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/thirdhand/marketplace/internal/application/notification"
	"github.com/thirdhand/marketplace/internal/infrastructure/config"
	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const sendTimeout = 30 * time.Second

var _ notification.Mailer = (*SMTPMailer)(nil)

// SMTPMailer sends rendered emails through an SMTP relay
type SMTPMailer struct {
	client   *gomail.Client
	renderer *TemplateRenderer
	from     string
	fromName string
	logger   *zap.Logger
}

// NewSMTPMailer creates a mailer for the configured relay. Port 465 uses
// implicit TLS, other ports STARTTLS (mandatory when TLS is set).
func NewSMTPMailer(cfg config.SMTPConfig, renderer *TemplateRenderer, logger *zap.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("mail: smtp host is required")
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTimeout(sendTimeout),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	switch {
	case cfg.Port == 465:
		opts = append(opts, gomail.WithSSL())
	case cfg.TLS:
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSMandatory))
	default:
		opts = append(opts, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail: failed to create smtp client: %w", err)
	}

	return &SMTPMailer{
		client:   client,
		renderer: renderer,
		from:     cfg.From,
		fromName: cfg.FromName,
		logger:   logger,
	}, nil
}

// Send renders and delivers one email
func (m *SMTPMailer) Send(ctx context.Context, email notification.Email) error {
	msg, err := buildMessage(m.renderer, m.from, m.fromName, email)
	if err != nil {
		return err
	}

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		m.logger.Error("Failed to send email",
			zap.String("to", email.To),
			zap.String("template", email.Template),
			zap.Error(err))
		return fmt.Errorf("mail: failed to send %s: %w", email.Template, err)
	}

	m.logger.Info("Email sent",
		zap.String("to", email.To),
		zap.String("template", email.Template))
	return nil
}

func buildMessage(renderer *TemplateRenderer, from, fromName string, email notification.Email) (*gomail.Msg, error) {
	body, err := renderer.Render(email.Template, email.Data)
	if err != nil {
		return nil, err
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(fromName, from); err != nil {
		return nil, fmt.Errorf("mail: invalid sender %q: %w", from, err)
	}
	if err := msg.To(email.To); err != nil {
		return nil, fmt.Errorf("mail: invalid recipient %q: %w", email.To, err)
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(gomail.TypeTextHTML, body)
	return msg, nil
}
