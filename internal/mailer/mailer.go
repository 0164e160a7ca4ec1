package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/amoylab/hydrowatch/internal/common/config"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Message is one outbound plain text email
type Message struct {
	Kind    string // otp, admin_welcome, reset, outbox
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP mailer, or a logging mailer when mail is disabled
func New(cfg config.MailConfig, lg *zap.Logger) (Mailer, error) {
	if !cfg.Enabled {
		return NewLogMailer(lg), nil
	}
	return NewSMTPMailer(cfg, lg)
}

// SMTPMailer sends through an SMTP relay
type SMTPMailer struct {
	cfg    config.MailConfig
	opts   []mail.Option
	logger *zap.Logger
}

func NewSMTPMailer(cfg config.MailConfig, lg *zap.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("mail host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("mail from address is required")
	}

	opts := []mail.Option{mail.WithPort(cfg.Port)}
	switch strings.ToLower(cfg.TLS) {
	case "none":
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	case "mandatory":
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	return &SMTPMailer{cfg: cfg, opts: opts, logger: lg.Named("mailer")}, nil
}

func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	client, err := mail.NewClient(s.cfg.Host, s.opts...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	s.logger.Info("mail sent", zap.String("kind", msg.Kind), zap.String("to", msg.To))
	return nil
}

// LogMailer writes messages to the log instead of sending them
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(lg *zap.Logger) *LogMailer {
	return &LogMailer{logger: lg.Named("mailer")}
}

func (l *LogMailer) Send(_ context.Context, msg Message) error {
	l.logger.Info("mail delivery disabled, logging message",
		zap.String("kind", msg.Kind),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	return nil
}

// MailerFunc adapts a function to the Mailer interface
type MailerFunc func(ctx context.Context, msg Message) error

func (f MailerFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
