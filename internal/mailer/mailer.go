// Package mailer delivers plain-text emails for the alerting pipeline.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

var ErrInvalidEmail = errors.New("invalid email")

type Email struct {
	To      string
	Subject string
	Body    string
}

func (e Email) validate() error {
	if strings.TrimSpace(e.To) == "" {
		return fmt.Errorf("%w: missing recipient", ErrInvalidEmail)
	}
	if strings.TrimSpace(e.Subject) == "" {
		return fmt.Errorf("%w: missing subject", ErrInvalidEmail)
	}
	return nil
}

// Sender sends a single email. Implementations honour ctx deadlines.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender opens one SMTP session per message. A go-mail Client holds the
// live connection, so each Send builds its own and concurrent sends never
// share a session.
type SMTPSender struct {
	host string
	opts []mail.Option
	from string
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	// Surface option errors at startup rather than on the first alert.
	if _, err := mail.NewClient(cfg.Host, opts...); err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return &SMTPSender{host: cfg.Host, opts: opts, from: cfg.From}, nil
}

func (s *SMTPSender) Send(ctx context.Context, email Email) error {
	msg, err := buildMessage(s.from, email)
	if err != nil {
		return err
	}
	client, err := s.newClient(ctx)
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", email.To, err)
	}
	return nil
}

// newClient bounds the whole SMTP conversation by the ctx deadline, including
// the greeting read that go-mail performs before it sets its own deadlines.
func (s *SMTPSender) newClient(ctx context.Context) (*mail.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := append([]mail.Option{}, s.opts...)
	opts = append(opts, mail.WithDialContextFunc(dialWithDeadline))
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, context.DeadlineExceeded
		}
		opts = append(opts, mail.WithTimeout(remaining))
	}

	client, err := mail.NewClient(s.host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}
	return client, nil
}

func dialWithDeadline(ctx context.Context, network, address string) (net.Conn, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

func buildMessage(from string, email Email) (*mail.Msg, error) {
	if err := email.validate(); err != nil {
		return nil, err
	}
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("%w: sender %q: %v", ErrInvalidEmail, from, err)
	}
	if err := msg.To(email.To); err != nil {
		return nil, fmt.Errorf("%w: recipient %q: %v", ErrInvalidEmail, email.To, err)
	}
	msg.Subject(email.Subject)
	msg.SetBodyString(mail.TypeTextPlain, email.Body)
	return msg, nil
}

// LogSender writes emails to the logger instead of delivering them. It is used
// when no SMTP host is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger.Named("mailer")}
}

func (s *LogSender) Send(ctx context.Context, email Email) error {
	if err := email.validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info("email",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
		zap.String("body", email.Body),
	)
	return nil
}
