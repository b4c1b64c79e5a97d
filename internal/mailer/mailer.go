package mailer

import (
	"context"

	mail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"marketready/internal/config"
)

type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Mailer delivers a rendered email. Implementations must be safe for
// concurrent use.
type Mailer interface {
	SendEmail(ctx context.Context, msg Message) error
}

type SMTPMailer struct {
	client *mail.Client
}

func NewSMTPMailer(cfg config.SMTP) (*SMTPMailer, error) {
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, err
	}
	return &SMTPMailer{client: client}, nil
}

func (m *SMTPMailer) SendEmail(ctx context.Context, msg Message) error {
	out := mail.NewMsg()
	if err := out.From(msg.From); err != nil {
		return err
	}
	if err := out.To(msg.To); err != nil {
		return err
	}
	out.Subject(msg.Subject)
	out.SetBodyString(mail.TypeTextHTML, msg.HTML)
	return m.client.DialAndSendWithContext(ctx, out)
}

// LogMailer writes the email to the log instead of sending it. Used in
// development and whenever SMTP is not configured.
type LogMailer struct {
	Logger *zap.Logger
}

func (m *LogMailer) SendEmail(_ context.Context, msg Message) error {
	m.Logger.Info("email delivery skipped, logging instead",
		zap.String("from", msg.From),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}

// FromConfig picks the SMTP mailer when a host is configured and falls
// back to the log mailer otherwise.
func FromConfig(cfg config.Config, logger *zap.Logger) (Mailer, error) {
	if cfg.SMTP.Host == "" {
		return &LogMailer{Logger: logger}, nil
	}
	return NewSMTPMailer(cfg.SMTP)
}
