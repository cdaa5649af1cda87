package common

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// EmailSender delivers plain-text messages such as sale receipts.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// InMemoryEmail records messages instead of sending them.
type InMemoryEmail struct {
	mu     sync.Mutex
	Outbox []Email
}

// Email is a single message captured by InMemoryEmail.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Send records the email in memory.
func (m *InMemoryEmail) Send(_ context.Context, to, subject, body string) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outbox = append(m.Outbox, Email{To: to, Subject: subject, Body: body})
	return nil
}

// Sent returns a copy of the recorded messages.
func (m *InMemoryEmail) Sent() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Email(nil), m.Outbox...)
}

// LogEmailSender writes messages to the logger. Used when no mail relay is configured.
type LogEmailSender struct {
	Logger zerolog.Logger
}

// Send implements EmailSender.
func (l LogEmailSender) Send(_ context.Context, to, subject, body string) error {
	l.Logger.Info().Str("to", to).Str("subject", subject).Int("bytes", len(body)).Msg("email suppressed")
	return nil
}
