// Package notification delivers best-effort confirmation emails after a
// patient registration commits. Send failures are logged and never surface
// to the workflow that triggered them.
package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

const smtpTimeout = 10 * time.Second

// Sender is the single capability the rest of the system sees.
type Sender interface {
	Send(ctx context.Context, toEmail, toName, subject, body string) error
}

// ---------------------------------------------------------------------------
// SMTP sender
// ---------------------------------------------------------------------------

// SMTPConfig holds the settings for the SMTP-backed sender. The sender is
// only constructed when every field is populated.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// SMTPSender delivers mail over SMTP via gomail.
type SMTPSender struct {
	cfg    SMTPConfig
	logger zerolog.Logger
}

func NewSMTPSender(cfg SMTPConfig, logger zerolog.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, logger: logger}
}

func (s *SMTPSender) Send(ctx context.Context, toEmail, toName, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.cfg.FromEmail, s.cfg.FromName)
	msg.SetAddressHeader("To", toEmail, toName)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)

	done := make(chan error, 1)
	go func() {
		done <- d.DialAndSend(msg)
	}()

	wait := smtpTimeout
	if dl, ok := ctx.Deadline(); ok {
		if until := time.Until(dl); until > 0 && until < wait {
			wait = until
		}
	}

	select {
	case err := <-done:
		if err != nil {
			s.logger.Error().Err(err).Str("to", toEmail).Msg("smtp send failed")
			return fmt.Errorf("smtp send to %s: %w", toEmail, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return context.DeadlineExceeded
	}
}

// ---------------------------------------------------------------------------
// Noop sender
// ---------------------------------------------------------------------------

// NoopSender logs and discards every message. Used when SMTP configuration
// is incomplete.
type NoopSender struct {
	logger zerolog.Logger
}

func NewNoopSender(logger zerolog.Logger) *NoopSender {
	return &NoopSender{logger: logger}
}

func (s *NoopSender) Send(_ context.Context, toEmail, _, subject, _ string) error {
	s.logger.Info().Str("to", toEmail).Str("subject", subject).Msg("noop sender, skipping email")
	return nil
}

// ---------------------------------------------------------------------------
// Mock sender (test double)
// ---------------------------------------------------------------------------

// SendCall records a single call to Send.
type SendCall struct {
	ToEmail string
	ToName  string
	Subject string
	Body    string
}

// MockSender records sent messages and optionally fails.
type MockSender struct {
	mu         sync.Mutex
	calls      []SendCall
	ShouldFail bool
}

func (m *MockSender) Send(_ context.Context, toEmail, toName, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, SendCall{ToEmail: toEmail, ToName: toName, Subject: subject, Body: body})
	if m.ShouldFail {
		return fmt.Errorf("mock sender failure")
	}
	return nil
}

// Calls returns a copy of recorded calls.
func (m *MockSender) Calls() []SendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SendCall, len(m.calls))
	copy(out, m.calls)
	return out
}
