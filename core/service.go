package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

// StoreProvider exposes the persistence surface a repository factory builds.
type StoreProvider interface {
	EndpointStore() EndpointStore
	DeliveryEventStore() DeliveryEventStore
	NotificationDispatchLedger() NotificationDispatchLedger
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

// Service is the webhook delivery subsystem facade: event fan-in from
// producers, the scheduler entry points, and the operator-facing read and
// toggle surface.
type Service struct {
	config            Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	endpoints         EndpointStore
	events            DeliveryEventStore
	ledger            NotificationDispatchLedger
	sender            NotificationSender
	executor          Attempter
	backoff           BackoffScheduler
	health            *HealthManager
	sweeper           *RetrySweeper
	retention         *RetentionSweeper
	now               func() time.Time
}

type ServiceDependencies struct {
	Logger             Logger
	LoggerProvider     LoggerProvider
	MetricsRecorder    MetricsRecorder
	ErrorFactory       ErrorFactory
	ErrorMapper        ErrorMapper
	PersistenceClient  any
	RepositoryFactory  any
	ConfigProvider     ConfigProvider
	OptionsResolver    OptionsResolver
	EndpointStore      EndpointStore
	DeliveryEventStore DeliveryEventStore
	DispatchLedger     NotificationDispatchLedger
	NotificationSender NotificationSender
	Executor           Attempter
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("webhooks", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("webhooks"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if err := resolveStores(&builder); err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	if builder.endpointStore == nil || builder.eventStore == nil {
		return nil, mapBuildError(
			builder.errorMapper,
			fmt.Errorf("core: endpoint and delivery event stores are required"),
		)
	}
	if builder.dispatchLedger == nil {
		return nil, mapBuildError(
			builder.errorMapper,
			fmt.Errorf("core: notification dispatch ledger is required"),
		)
	}

	executor := builder.executor
	if executor == nil {
		httpExecutor := NewHTTPExecutor(finalConfig.Delivery)
		if builder.httpClient != nil {
			httpExecutor = httpExecutor.WithClient(builder.httpClient)
		}
		executor = httpExecutor
	}

	backoff := NewBackoffScheduler(finalConfig.Retry.MaxRetries)

	health, err := NewHealthManager(
		builder.endpointStore,
		builder.eventStore,
		builder.dispatchLedger,
		builder.notificationSender,
		finalConfig.Notifications,
		logger,
	)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	sweeper, err := NewRetrySweeper(
		builder.eventStore,
		builder.endpointStore,
		executor,
		backoff,
		health,
		finalConfig.Retry,
		logger,
	)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	retention, err := NewRetentionSweeper(
		builder.eventStore,
		builder.endpointStore,
		builder.dispatchLedger,
		builder.notificationSender,
		finalConfig.Retention,
		finalConfig.Notifications,
		logger,
	)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	service := &Service{
		config:            finalConfig,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorFactory:      builder.errorFactory,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		endpoints:         builder.endpointStore,
		events:            builder.eventStore,
		ledger:            builder.dispatchLedger,
		sender:            builder.notificationSender,
		executor:          executor,
		backoff:           backoff,
		health:            health,
		sweeper:           sweeper,
		retention:         retention,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	if builder.clock != nil {
		service.now = builder.clock
		health.WithClock(builder.clock)
		sweeper.WithClock(builder.clock)
		retention.WithClock(builder.clock)
	}
	return service, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
}

func resolveStores(builder *serviceBuilder) error {
	if builder.repositoryFactory == nil {
		return nil
	}
	if builder.endpointStore != nil && builder.eventStore != nil && builder.dispatchLedger != nil {
		return nil
	}
	var provider StoreProvider
	if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
		built, err := storeFactory.BuildStores(builder.persistenceClient)
		if err != nil {
			return err
		}
		provider = built
	} else if typed, ok := builder.repositoryFactory.(StoreProvider); ok {
		provider = typed
	}
	if provider == nil {
		return nil
	}
	if builder.endpointStore == nil {
		builder.endpointStore = provider.EndpointStore()
	}
	if builder.eventStore == nil {
		builder.eventStore = provider.DeliveryEventStore()
	}
	if builder.dispatchLedger == nil {
		builder.dispatchLedger = provider.NotificationDispatchLedger()
	}
	return nil
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:             s.logger,
		LoggerProvider:     s.loggerProvider,
		MetricsRecorder:    s.metricsRecorder,
		ErrorFactory:       s.errorFactory,
		ErrorMapper:        s.errorMapper,
		PersistenceClient:  s.persistenceClient,
		RepositoryFactory:  s.repositoryFactory,
		ConfigProvider:     s.configProvider,
		OptionsResolver:    s.optionsResolver,
		EndpointStore:      s.endpoints,
		DeliveryEventStore: s.events,
		DispatchLedger:     s.ledger,
		NotificationSender: s.sender,
		Executor:           s.executor,
	}
}

// RegisterEndpoint creates a subscriber registration. New endpoints start
// enabled with a zero failure count.
func (s *Service) RegisterEndpoint(ctx context.Context, in RegisterEndpointInput) (Endpoint, error) {
	startedAt := time.Now()
	endpoint, err := s.registerEndpoint(ctx, in)
	s.observeOperation(ctx, startedAt, "endpoint_register", err, map[string]any{
		"owner_id":    in.OwnerID,
		"endpoint_id": endpoint.ID,
	})
	return endpoint, s.mapError(err)
}

func (s *Service) registerEndpoint(ctx context.Context, in RegisterEndpointInput) (Endpoint, error) {
	if s == nil || s.endpoints == nil {
		return Endpoint{}, fmt.Errorf("core: webhook service is not configured")
	}
	if in.Version <= 0 {
		in.Version = 1
	}
	candidate := Endpoint{
		OwnerID:    strings.TrimSpace(in.OwnerID),
		OwnerEmail: strings.TrimSpace(in.OwnerEmail),
		URL:        strings.TrimSpace(in.URL),
		EventTypes: in.EventTypes,
		Version:    in.Version,
		Enabled:    true,
	}
	if err := candidate.Validate(); err != nil {
		return Endpoint{}, err
	}
	return s.endpoints.Create(ctx, in)
}

// Enqueue creates the delivery record for one logical event and immediately
// performs the first attempt, outside the sweep cycle.
func (s *Service) Enqueue(ctx context.Context, in EnqueueInput) (DeliveryEvent, error) {
	startedAt := time.Now()
	event, err := s.enqueue(ctx, in)
	s.observeOperation(ctx, startedAt, "event_enqueue", err, map[string]any{
		"endpoint_id": in.EndpointID,
		"event_id":    event.EventID,
	})
	return event, s.mapError(err)
}

func (s *Service) enqueue(ctx context.Context, in EnqueueInput) (DeliveryEvent, error) {
	if s == nil || s.events == nil || s.endpoints == nil {
		return DeliveryEvent{}, fmt.Errorf("core: webhook service is not configured")
	}
	if err := in.Validate(); err != nil {
		return DeliveryEvent{}, err
	}
	endpoint, err := s.endpoints.Get(ctx, strings.TrimSpace(in.EndpointID))
	if err != nil {
		return DeliveryEvent{}, err
	}
	if !endpoint.Enabled {
		return DeliveryEvent{}, fmt.Errorf("%w: %s", ErrEndpointDisabled, endpoint.ID)
	}
	if !endpoint.Subscribed(in.EventType) {
		return DeliveryEvent{}, fmt.Errorf(
			"core: endpoint %s is not subscribed to event type %d", endpoint.ID, in.EventType,
		)
	}

	now := s.now()
	body, err := BuildBody(endpoint, in.EventType, in.Payload, now)
	if err != nil {
		return DeliveryEvent{}, err
	}
	event, err := s.events.Create(ctx, DeliveryEvent{
		EventID:    uuid.NewString(),
		EndpointID: endpoint.ID,
		EventType:  in.EventType,
		Payload:    body,
		Status:     EventStatusInProgress,
		Debug:      in.Debug,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return DeliveryEvent{}, err
	}
	return s.attempt(ctx, event, endpoint)
}

// AttemptNow performs an immediate delivery attempt for an existing event.
func (s *Service) AttemptNow(ctx context.Context, eventID string) (DeliveryEvent, error) {
	startedAt := time.Now()
	event, err := s.attemptNow(ctx, eventID)
	s.observeOperation(ctx, startedAt, "event_attempt_now", err, map[string]any{
		"event_id": eventID,
	})
	return event, s.mapError(err)
}

func (s *Service) attemptNow(ctx context.Context, eventID string) (DeliveryEvent, error) {
	if s == nil || s.events == nil {
		return DeliveryEvent{}, fmt.Errorf("core: webhook service is not configured")
	}
	event, err := s.events.Get(ctx, strings.TrimSpace(eventID))
	if err != nil {
		return DeliveryEvent{}, err
	}
	if event.Status.Terminal() {
		return event, fmt.Errorf("core: event %s is %s and cannot be attempted", event.EventID, event.Status)
	}
	endpoint, err := s.endpoints.Get(ctx, event.EndpointID)
	if err != nil {
		return DeliveryEvent{}, err
	}
	if !endpoint.Enabled {
		return event, fmt.Errorf("%w: %s", ErrEndpointDisabled, endpoint.ID)
	}
	return s.attempt(ctx, event, endpoint)
}

func (s *Service) attempt(ctx context.Context, event DeliveryEvent, endpoint Endpoint) (DeliveryEvent, error) {
	outcome := s.executor.Attempt(ctx, event, endpoint)
	decision := s.backoff.Decide(event, outcome, s.now())
	if err := s.events.ApplyDecision(ctx, event.EventID, decision); err != nil {
		return event, err
	}
	if err := s.health.Observe(ctx, endpoint, event, decision); err != nil {
		return event, err
	}
	return s.events.Get(ctx, event.EventID)
}

// RunOnce executes one retry sweep. Scheduler entry point.
func (s *Service) RunOnce(ctx context.Context) (int, error) {
	startedAt := time.Now()
	count, err := s.sweeper.RunOnce(ctx)
	s.observeOperation(ctx, startedAt, "retry_sweep", err, map[string]any{
		"processed": count,
	})
	return count, s.mapError(err)
}

// RunOnceDaily executes the retention sweep and disabled-endpoint reminders.
// Scheduler entry point; safe to call more often than daily.
func (s *Service) RunOnceDaily(ctx context.Context) (int64, bool, error) {
	startedAt := time.Now()
	deleted, ran, err := s.retention.RunOnceDaily(ctx)
	if ran || err != nil {
		s.observeOperation(ctx, startedAt, "retention_sweep", err, map[string]any{
			"deleted": deleted,
		})
	}
	return deleted, ran, s.mapError(err)
}

// EnableEndpoint is the explicit owner action that lifts an auto-disable.
// It reports whether the gate actually changed.
func (s *Service) EnableEndpoint(ctx context.Context, endpointID string) (bool, error) {
	startedAt := time.Now()
	changed, err := s.setEnabled(ctx, endpointID, true)
	s.observeOperation(ctx, startedAt, "endpoint_enable", err, map[string]any{
		"endpoint_id": endpointID,
		"changed":     changed,
	})
	return changed, s.mapError(err)
}

func (s *Service) DisableEndpoint(ctx context.Context, endpointID string) (bool, error) {
	startedAt := time.Now()
	changed, err := s.setEnabled(ctx, endpointID, false)
	s.observeOperation(ctx, startedAt, "endpoint_disable", err, map[string]any{
		"endpoint_id": endpointID,
		"changed":     changed,
	})
	return changed, s.mapError(err)
}

func (s *Service) setEnabled(ctx context.Context, endpointID string, enabled bool) (bool, error) {
	if s == nil || s.endpoints == nil {
		return false, fmt.Errorf("core: webhook service is not configured")
	}
	return s.endpoints.SetEnabled(ctx, strings.TrimSpace(endpointID), enabled)
}

func (s *Service) GetEndpoint(ctx context.Context, endpointID string) (Endpoint, error) {
	if s == nil || s.endpoints == nil {
		return Endpoint{}, s.mapError(fmt.Errorf("core: webhook service is not configured"))
	}
	endpoint, err := s.endpoints.Get(ctx, strings.TrimSpace(endpointID))
	return endpoint, s.mapError(err)
}

func (s *Service) ListEndpoints(ctx context.Context, filter EndpointFilter) ([]Endpoint, error) {
	if s == nil || s.endpoints == nil {
		return nil, s.mapError(fmt.Errorf("core: webhook service is not configured"))
	}
	endpoints, err := s.endpoints.List(ctx, filter)
	return endpoints, s.mapError(err)
}

func (s *Service) GetEvent(ctx context.Context, eventID string) (DeliveryEvent, error) {
	if s == nil || s.events == nil {
		return DeliveryEvent{}, s.mapError(fmt.Errorf("core: webhook service is not configured"))
	}
	event, err := s.events.Get(ctx, strings.TrimSpace(eventID))
	return event, s.mapError(err)
}

func (s *Service) ListEvents(ctx context.Context, filter EventFilter) ([]DeliveryEvent, error) {
	if s == nil || s.events == nil {
		return nil, s.mapError(fmt.Errorf("core: webhook service is not configured"))
	}
	events, err := s.events.List(ctx, filter)
	return events, s.mapError(err)
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
