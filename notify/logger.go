package notify

import (
	"context"
	"fmt"

	"github.com/goliatone/go-webhooks/core"
)

// LoggerSender writes rendered notifications to the log instead of a mail
// transport. Default sender when SMTP is not configured.
type LoggerSender struct {
	logger core.Logger
}

func NewLoggerSender(logger core.Logger) *LoggerSender {
	return &LoggerSender{logger: logger}
}

func (s *LoggerSender) Send(ctx context.Context, notification core.Notification) error {
	if s == nil || s.logger == nil {
		return fmt.Errorf("notify: logger sender is not configured")
	}
	message, err := Render(notification)
	if err != nil {
		return err
	}
	s.logger.Info("operator notification",
		"kind", string(notification.Kind),
		"endpoint_id", notification.Endpoint.ID,
		"endpoint_url", notification.Endpoint.URL,
		"to", message.To,
		"subject", message.Subject,
		"body", message.Body,
	)
	return nil
}

var _ core.NotificationSender = (*LoggerSender)(nil)
