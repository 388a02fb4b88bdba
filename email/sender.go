package email

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Message is a rendered outbound email
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender delivers a message once. The core never retries automatically; the
// outcome is recorded back onto the aggregate as an audit event.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes outbound messages to the log instead of delivering them.
// Used in development and as the default when no delivery backend is
// configured.
type LogSender struct {
	From string
}

// NewLogSender creates a log-backed sender with the given from address
func NewLogSender(from string) *LogSender {
	return &LogSender{From: from}
}

// Send logs the message
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	log.Info().
		Str("from", s.From).
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("Email delivery (log sender)")
	return nil
}
