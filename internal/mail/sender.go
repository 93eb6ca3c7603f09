// Package mail delivers outbound messages for the email queue consumer.
package mail

import (
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"
)

// Sender delivers a single message.  Errors propagate to the consumer,
// which decides whether to reject the job.
type Sender interface {
	Send(to, subject, html string) error
}

// SMTPSender delivers mail through a plain SMTP relay.
type SMTPSender struct {
	Addr string // host:port of the relay
	From string // envelope sender
}

func NewSMTPSender(host, port, from string) *SMTPSender {
	return &SMTPSender{Addr: host + ":" + port, From: from}
}

func (s *SMTPSender) Send(to, subject, html string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n",
		s.From, to, subject, html)
	if err := smtp.SendMail(s.Addr, nil, s.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogSender records messages instead of delivering them.  Used in dev and
// test environments where no SMTP relay is configured.
type LogSender struct{ Log zerolog.Logger }

func (s *LogSender) Send(to, subject, _ string) error {
	s.Log.Info().Str("to", to).Str("subject", subject).Msg("email delivery skipped (no SMTP configured)")
	return nil
}
