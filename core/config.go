package core

import (
	"fmt"
	"strings"
	"time"
)

type DeliveryConfig struct {
	ConnectTimeout    time.Duration `koanf:"connect_timeout" mapstructure:"connect_timeout"`
	ReadTimeout       time.Duration `koanf:"read_timeout" mapstructure:"read_timeout"`
	ResponseBodyLimit int           `koanf:"response_body_limit" mapstructure:"response_body_limit"`
}

type RetryConfig struct {
	MaxRetries    int           `koanf:"max_retries" mapstructure:"max_retries"`
	CutoffWindow  time.Duration `koanf:"cutoff_window" mapstructure:"cutoff_window"`
	SweepInterval time.Duration `koanf:"sweep_interval" mapstructure:"sweep_interval"`
	BatchLimit    int           `koanf:"batch_limit" mapstructure:"batch_limit"`
}

type RetentionConfig struct {
	Window      time.Duration `koanf:"window" mapstructure:"window"`
	MinuteOfDay int           `koanf:"minute_of_day" mapstructure:"minute_of_day"`
}

type NotificationConfig struct {
	// FailingAfterRetries is the retry counter value at which the first
	// "endpoint is failing" notification fires. Under the default ladder
	// counter 2 means the endpoint has been failing for at least 15 minutes.
	FailingAfterRetries int `koanf:"failing_after_retries" mapstructure:"failing_after_retries"`
	// DisabledReminderDays caps the once-per-day "still disabled" reminders.
	DisabledReminderDays int `koanf:"disabled_reminder_days" mapstructure:"disabled_reminder_days"`
}

type Config struct {
	ServiceName   string             `koanf:"service_name" mapstructure:"service_name"`
	Delivery      DeliveryConfig     `koanf:"delivery" mapstructure:"delivery"`
	Retry         RetryConfig        `koanf:"retry" mapstructure:"retry"`
	Retention     RetentionConfig    `koanf:"retention" mapstructure:"retention"`
	Notifications NotificationConfig `koanf:"notifications" mapstructure:"notifications"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "webhooks",
		Delivery: DeliveryConfig{
			ConnectTimeout:    time.Second,
			ReadTimeout:       time.Second,
			ResponseBodyLimit: 500,
		},
		Retry: RetryConfig{
			MaxRetries:    8,
			CutoffWindow:  48 * time.Hour,
			SweepInterval: time.Minute,
			BatchLimit:    200,
		},
		Retention: RetentionConfig{
			Window:      90 * 24 * time.Hour,
			MinuteOfDay: 5 * 60,
		},
		Notifications: NotificationConfig{
			FailingAfterRetries:  2,
			DisabledReminderDays: 3,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Delivery.ConnectTimeout <= 0 || c.Delivery.ReadTimeout <= 0 {
		return fmt.Errorf("core: delivery timeouts must be positive")
	}
	if c.Delivery.ResponseBodyLimit <= 0 {
		return fmt.Errorf("core: delivery response_body_limit must be positive")
	}
	if c.Retry.MaxRetries <= 0 {
		return fmt.Errorf("core: retry max_retries must be positive")
	}
	if c.Retry.CutoffWindow <= 0 {
		return fmt.Errorf("core: retry cutoff_window must be positive")
	}
	if c.Retry.SweepInterval <= 0 {
		return fmt.Errorf("core: retry sweep_interval must be positive")
	}
	if c.Retry.BatchLimit <= 0 {
		return fmt.Errorf("core: retry batch_limit must be positive")
	}
	if c.Retention.Window <= 0 {
		return fmt.Errorf("core: retention window must be positive")
	}
	if c.Retention.MinuteOfDay < 0 || c.Retention.MinuteOfDay >= 24*60 {
		return fmt.Errorf("core: retention minute_of_day must be within a day")
	}
	if c.Notifications.FailingAfterRetries < 0 {
		return fmt.Errorf("core: notifications failing_after_retries must not be negative")
	}
	if c.Notifications.DisabledReminderDays < 0 {
		return fmt.Errorf("core: notifications disabled_reminder_days must not be negative")
	}
	return nil
}
