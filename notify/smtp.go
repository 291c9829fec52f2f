package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-webhooks/core"
)

type SMTPConfig struct {
	Host string `koanf:"host" mapstructure:"host"`
	Port int    `koanf:"port" mapstructure:"port"`
	From string `koanf:"from" mapstructure:"from"`
	User string `koanf:"user" mapstructure:"user"`
	Pass string `koanf:"pass" mapstructure:"pass"`
}

type SMTPOption func(*SMTPSender)

func WithTLSConfig(cfg *tls.Config) SMTPOption {
	return func(s *SMTPSender) {
		s.tlsConfig = cfg
	}
}

func WithDialer(dialer Dialer) SMTPOption {
	return func(s *SMTPSender) {
		if dialer != nil {
			s.dialer = dialer
		}
	}
}

func WithAuth(auth smtp.Auth) SMTPOption {
	return func(s *SMTPSender) {
		s.auth = auth
	}
}

// Dialer abstracts net.Dialer for tests.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// SMTPSender delivers operator notifications over SMTP with opportunistic
// STARTTLS.
type SMTPSender struct {
	host      string
	port      int
	from      string
	auth      smtp.Auth
	tlsConfig *tls.Config
	dialer    Dialer
	logger    core.Logger
}

func NewSMTPSender(cfg SMTPConfig, logger core.Logger, opts ...SMTPOption) (*SMTPSender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("notify: smtp host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("notify: invalid smtp port %d", cfg.Port)
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("notify: smtp from address is required")
	}

	sender := &SMTPSender{
		host:   strings.TrimSpace(cfg.Host),
		port:   cfg.Port,
		from:   strings.TrimSpace(cfg.From),
		dialer: &net.Dialer{Timeout: 30 * time.Second},
		logger: logger,
		tlsConfig: &tls.Config{
			ServerName: strings.TrimSpace(cfg.Host),
			MinVersion: tls.VersionTLS12,
		},
	}
	if strings.TrimSpace(cfg.User) != "" {
		sender.auth = smtp.PlainAuth("", cfg.User, cfg.Pass, sender.host)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(sender)
		}
	}
	return sender, nil
}

func (s *SMTPSender) Send(ctx context.Context, notification core.Notification) error {
	if s == nil {
		return fmt.Errorf("notify: smtp sender is not configured")
	}
	message, err := Render(notification)
	if err != nil {
		return err
	}
	if message.To == "" {
		// Endpoint owner never supplied an email; nothing to deliver.
		if s.logger != nil {
			s.logger.Warn("notification skipped, endpoint owner has no email",
				"kind", string(notification.Kind),
				"endpoint_id", notification.Endpoint.ID,
			)
		}
		return nil
	}
	return s.deliver(ctx, message)
}

func (s *SMTPSender) deliver(ctx context.Context, message Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	conn, err := s.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("notify: smtp dial: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return fmt.Errorf("notify: smtp client: %w", err)
	}
	defer client.Close()

	if s.tlsConfig != nil {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(s.tlsConfig.Clone()); err != nil {
				return fmt.Errorf("notify: smtp starttls: %w", err)
			}
		}
	}
	if s.auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(s.auth); err != nil {
				return fmt.Errorf("notify: smtp auth: %w", err)
			}
		}
	}

	if err := client.Mail(s.from); err != nil {
		return fmt.Errorf("notify: smtp mail from: %w", err)
	}
	if err := client.Rcpt(message.To); err != nil {
		return fmt.Errorf("notify: smtp rcpt to %s: %w", message.To, err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("notify: smtp data: %w", err)
	}
	if _, err := writer.Write(encodeMessage(s.from, message)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("notify: smtp data write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("notify: smtp data close: %w", err)
	}
	if err := client.Quit(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("notify: smtp quit: %w", err)
	}
	return ctx.Err()
}

func encodeMessage(from string, message Message) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", sanitizeHeader(from))
	fmt.Fprintf(&buf, "To: %s\r\n", sanitizeHeader(message.To))
	fmt.Fprintf(&buf, "Subject: %s\r\n", sanitizeHeader(message.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", formatDate(time.Now()))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(message.Body, "\n", "\r\n"))
	return buf.Bytes()
}

func sanitizeHeader(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

var _ core.NotificationSender = (*SMTPSender)(nil)
