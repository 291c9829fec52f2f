package core

import (
	"context"
	"fmt"
	"time"
)

// HealthObserver receives every persisted delivery decision.
type HealthObserver interface {
	Observe(ctx context.Context, endpoint Endpoint, event DeliveryEvent, decision Decision) error
}

// RetrySweeper executes one pass of the retry cycle. It is re-triggered on a
// fixed external cadence; overlap protection lives in the store's atomic
// claim, not in an application-level mutex, so independent invocations are
// safe to race.
type RetrySweeper struct {
	events    DeliveryEventStore
	endpoints EndpointStore
	executor  Attempter
	backoff   BackoffScheduler
	health    HealthObserver
	config    RetryConfig
	logger    Logger
	now       func() time.Time
}

func NewRetrySweeper(
	events DeliveryEventStore,
	endpoints EndpointStore,
	executor Attempter,
	backoff BackoffScheduler,
	health HealthObserver,
	cfg RetryConfig,
	logger Logger,
) (*RetrySweeper, error) {
	if events == nil || endpoints == nil {
		return nil, fmt.Errorf("core: retry sweeper requires event and endpoint stores")
	}
	if executor == nil {
		return nil, fmt.Errorf("core: retry sweeper requires a delivery executor")
	}
	defaults := DefaultConfig().Retry
	if cfg.CutoffWindow <= 0 {
		cfg.CutoffWindow = defaults.CutoffWindow
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = defaults.BatchLimit
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	return &RetrySweeper{
		events:    events,
		endpoints: endpoints,
		executor:  executor,
		backoff:   backoff,
		health:    health,
		config:    cfg,
		logger:    logger,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

// WithClock replaces the clock. Test hook.
func (s *RetrySweeper) WithClock(now func() time.Time) *RetrySweeper {
	if now != nil {
		s.now = now
	}
	return s
}

// RunOnce claims every due event and delivers each sequentially, oldest
// first. It returns the number of events actually handed to the executor;
// stale rows failed by the cutoff rule are not counted.
func (s *RetrySweeper) RunOnce(ctx context.Context) (int, error) {
	if s == nil || s.events == nil {
		return 0, fmt.Errorf("core: retry sweeper is not configured")
	}

	batch, err := s.events.ClaimDue(ctx, s.now(), s.config.CutoffWindow, s.config.BatchLimit)
	if err != nil {
		return 0, err
	}
	if s.logger != nil && (batch.Staled > 0 || batch.Resets > 0) {
		s.logger.Info("retry sweep preprocessing",
			"staled", batch.Staled,
			"reenabled_resets", batch.Resets,
		)
	}

	processed := 0
	var sweepErr error
	for _, event := range batch.Events {
		if err := s.deliverOne(ctx, event); err != nil {
			// A malformed or orphaned event is a producer contract
			// violation; skip it and keep the batch moving.
			if s.logger != nil {
				s.logger.Error("retry sweep event failed",
					"event_id", event.EventID,
					"endpoint_id", event.EndpointID,
					"error", err.Error(),
				)
			}
			sweepErr = joinErrors(sweepErr, err)
			continue
		}
		processed++
	}
	return processed, sweepErr
}

func (s *RetrySweeper) deliverOne(ctx context.Context, event DeliveryEvent) error {
	endpoint, err := s.endpoints.Get(ctx, event.EndpointID)
	if err != nil {
		return fmt.Errorf("core: resolve endpoint %q for event %q: %w", event.EndpointID, event.EventID, err)
	}
	if len(event.Payload) == 0 {
		return fmt.Errorf("core: event %q has no payload", event.EventID)
	}

	outcome := s.executor.Attempt(ctx, event, endpoint)
	decision := s.backoff.Decide(event, outcome, s.now())
	if err := s.events.ApplyDecision(ctx, event.EventID, decision); err != nil {
		return err
	}
	if s.health != nil {
		if err := s.health.Observe(ctx, endpoint, event, decision); err != nil {
			return err
		}
	}
	return nil
}

func joinErrors(existing error, next error) error {
	if existing == nil {
		return next
	}
	if next == nil {
		return existing
	}
	return fmt.Errorf("%w; %v", existing, next)
}
