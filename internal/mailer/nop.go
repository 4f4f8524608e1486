package mailer

import (
	"context"
	"log/slog"

	"github.com/mgirault/postule/internal/model"
)

// Ensure NopSender implements model.Sender.
var _ model.Sender = (*NopSender)(nil)

// NopSender logs what would have been sent instead of delivering it. It
// stands in for the SMTP sender when no relay is configured, so
// submissions still get recorded.
type NopSender struct {
	logger *slog.Logger
}

// NewNopSender returns a sender that only logs.
func NewNopSender(logger *slog.Logger) *NopSender {
	return &NopSender{logger: logger}
}

// Send logs the message and reports success without delivering anything.
func (n *NopSender) Send(ctx context.Context, msg model.Message) error {
	n.logger.Info("email skipped, no smtp relay configured", "to", msg.To, "subject", msg.Subject)
	return nil
}
