package webhooks

import "github.com/goliatone/go-webhooks/core"

type Config = core.Config

type DeliveryConfig = core.DeliveryConfig
type RetryConfig = core.RetryConfig
type RetentionConfig = core.RetentionConfig
type NotificationConfig = core.NotificationConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type EndpointStore = core.EndpointStore
type DeliveryEventStore = core.DeliveryEventStore
type NotificationDispatchLedger = core.NotificationDispatchLedger
type NotificationSender = core.NotificationSender
type Attempter = core.Attempter

type Endpoint = core.Endpoint
type DeliveryEvent = core.DeliveryEvent
type EventStatus = core.EventStatus
type Notification = core.Notification
type NotificationDispatch = core.NotificationDispatch

type RegisterEndpointInput = core.RegisterEndpointInput
type EnqueueInput = core.EnqueueInput
type EndpointFilter = core.EndpointFilter
type EventFilter = core.EventFilter

var (
	WithLogger                     = core.WithLogger
	WithLoggerProvider             = core.WithLoggerProvider
	WithMetricsRecorder            = core.WithMetricsRecorder
	WithErrorFactory               = core.WithErrorFactory
	WithErrorMapper                = core.WithErrorMapper
	WithPersistenceClient          = core.WithPersistenceClient
	WithRepositoryFactory          = core.WithRepositoryFactory
	WithConfigProvider             = core.WithConfigProvider
	WithOptionsResolver            = core.WithOptionsResolver
	WithEndpointStore              = core.WithEndpointStore
	WithDeliveryEventStore         = core.WithDeliveryEventStore
	WithNotificationDispatchLedger = core.WithNotificationDispatchLedger
	WithNotificationSender         = core.WithNotificationSender
	WithExecutor                   = core.WithExecutor
	WithHTTPClient                 = core.WithHTTPClient
	WithClock                      = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}

var _ CommandQueryService = (*core.Service)(nil)
