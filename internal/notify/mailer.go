// Package notify delivers outbound email for ticket lifecycle events.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/spec-kit/support-desk/internal/config"
)

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer sends a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends through an SMTP relay.
type SMTPMailer struct {
	from     string
	fromName string
	dialer   *gomail.Dialer
}

// NewSMTPMailer builds a mailer from the email config.
func NewSMTPMailer(cfg config.EmailConfig) *SMTPMailer {
	return &SMTPMailer{
		from:     cfg.From,
		fromName: cfg.FromName,
		dialer:   gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
	}
}

// Send dials the relay and delivers msg, giving up when ctx is done.
func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	m.AddAlternative("text/html", msg.HTML)

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send email: %w", ctx.Err())
	}
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer returns a mailer for environments without SMTP.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the envelope.
func (l *LogMailer) Send(_ context.Context, msg Message) error {
	l.logger.Info("email not sent; smtp disabled",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

// DemoPrefix marks rerouted demo mail.
const DemoPrefix = "[DEMO] "

// DemoMailer reroutes every message to one mailbox.
type DemoMailer struct {
	next       Mailer
	adminEmail string
}

// NewDemoMailer wraps next so that all mail goes to adminEmail.
func NewDemoMailer(next Mailer, adminEmail string) *DemoMailer {
	return &DemoMailer{next: next, adminEmail: adminEmail}
}

// Send rewrites the recipient and subject before delegating.
func (d *DemoMailer) Send(ctx context.Context, msg Message) error {
	original := msg.To
	msg.To = d.adminEmail
	msg.Subject = DemoPrefix + msg.Subject
	msg.Text = fmt.Sprintf("Original recipient: %s\n\n%s", original, msg.Text)
	return d.next.Send(ctx, msg)
}

// NewMailer picks the transport for cfg: SMTP when a host is configured, the
// log otherwise, wrapped for demo rerouting when the app runs in DEMO mode.
func NewMailer(app config.AppConfig, cfg config.EmailConfig, logger *zap.Logger) Mailer {
	var mailer Mailer
	if cfg.SMTPHost == "" {
		mailer = NewLogMailer(logger)
	} else {
		mailer = NewSMTPMailer(cfg)
	}
	if app.IsDemo() {
		mailer = NewDemoMailer(mailer, cfg.AdminEmail)
	}
	return mailer
}
