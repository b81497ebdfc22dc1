package notification

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestNoopSender_AlwaysSucceeds(t *testing.T) {
	s := NewNoopSender(zerolog.Nop())
	if err := s.Send(context.Background(), "a@example.com", "A", "subject", "body"); err != nil {
		t.Fatalf("noop send: %v", err)
	}
}

func TestMockSender_RecordsCalls(t *testing.T) {
	m := &MockSender{}

	if err := m.Send(context.Background(), "a@example.com", "Ada", "Welcome", "hi"); err != nil {
		t.Fatalf("send: %v", err)
	}

	calls := m.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(calls))
	}
	got := calls[0]
	if got.ToEmail != "a@example.com" || got.ToName != "Ada" || got.Subject != "Welcome" || got.Body != "hi" {
		t.Errorf("recorded call = %+v", got)
	}
}

func TestMockSender_FailureMode(t *testing.T) {
	m := &MockSender{ShouldFail: true}

	if err := m.Send(context.Background(), "a@example.com", "Ada", "s", "b"); err == nil {
		t.Fatal("expected failure")
	}
	if len(m.Calls()) != 1 {
		t.Error("failed sends should still be recorded")
	}
}

func TestSMTPSender_ContextCancellation(t *testing.T) {
	// Points at a closed port; the dial goroutine loses the race against the
	// already-cancelled context, so Send must return promptly with an error.
	s := NewSMTPSender(SMTPConfig{
		Host:      "127.0.0.1",
		Port:      1,
		Username:  "u",
		Password:  "p",
		FromEmail: "noreply@example.com",
		FromName:  "Registration",
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Send(ctx, "a@example.com", "Ada", "s", "b"); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
