package webhooks

import (
	"github.com/goliatone/go-webhooks/core"
	"github.com/goliatone/go-webhooks/notify"
)

// SMTPSender builds the email transport for operator notifications.
func SMTPSender(cfg notify.SMTPConfig, logger core.Logger, opts ...notify.SMTPOption) (core.NotificationSender, error) {
	return notify.NewSMTPSender(cfg, logger, opts...)
}

// LoggerSender builds the log-only transport, the default when no SMTP
// server is configured.
func LoggerSender(logger core.Logger) core.NotificationSender {
	return notify.NewLoggerSender(logger)
}
