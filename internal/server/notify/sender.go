// Package notify delivers account mails (verification and password reset)
// through SMTP, Amazon SES or the log.
package notify

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
)

// Sender delivers one HTML message. It reports false when delivery failed;
// the failure detail is logged by the sender.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) bool
}

// LogSender writes messages to the log instead of delivering them. Used in
// development and by the admin CLI.
type LogSender struct {
	log logging.Logger
}

func NewLogSender(log logging.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) bool {
	s.log.Info(ctx, "mail not delivered, log transport", "to", to, "subject", subject, "body", body)
	return true
}
