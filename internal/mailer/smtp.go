// Package mailer delivers application emails over SMTP.
package mailer

import (
	"context"
	"log/slog"

	"gopkg.in/gomail.v2"

	"github.com/mgirault/postule/internal/model"
)

// Ensure SMTPSender implements model.Sender.
var _ model.Sender = (*SMTPSender)(nil)

// SMTPSender delivers messages through an SMTP relay. Port 465 uses
// implicit TLS; other ports upgrade via STARTTLS when the server offers it.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
	logger *slog.Logger
}

// NewSMTPSender returns a sender authenticating as username against
// host:port. An empty username skips authentication.
func NewSMTPSender(host string, port int, username, password, from string, logger *slog.Logger) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
		logger: logger,
	}
}

// Send delivers msg as text/plain. Transport failures come back as
// *model.SendError.
func (s *SMTPSender) Send(ctx context.Context, msg model.Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	// DialAndSend has no context support, so run it out of line and
	// abandon the attempt when the context ends first.
	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case <-ctx.Done():
		return &model.SendError{Recipient: msg.To, Err: ctx.Err()}
	case err := <-done:
		if err != nil {
			return &model.SendError{Recipient: msg.To, Err: err}
		}
	}

	s.logger.Info("email sent", "to", msg.To, "subject", msg.Subject)
	return nil
}
