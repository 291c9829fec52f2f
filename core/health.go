package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// HealthManager tracks consecutive-failure state per endpoint, performs the
// exactly-once auto-disable transition, and decides when each operator
// notification class fires. Notification de-duplication lives in the persisted
// dispatch ledger, never in process memory, so it survives restarts and
// concurrent sweepers.
type HealthManager struct {
	endpoints EndpointStore
	events    DeliveryEventStore
	ledger    NotificationDispatchLedger
	sender    NotificationSender
	config    NotificationConfig
	logger    Logger
	now       func() time.Time
}

func NewHealthManager(
	endpoints EndpointStore,
	events DeliveryEventStore,
	ledger NotificationDispatchLedger,
	sender NotificationSender,
	cfg NotificationConfig,
	logger Logger,
) (*HealthManager, error) {
	if endpoints == nil || events == nil {
		return nil, fmt.Errorf("core: health manager requires endpoint and event stores")
	}
	if ledger == nil {
		return nil, fmt.Errorf("core: health manager requires a notification dispatch ledger")
	}
	if cfg.FailingAfterRetries <= 0 {
		cfg.FailingAfterRetries = DefaultConfig().Notifications.FailingAfterRetries
	}
	if cfg.DisabledReminderDays <= 0 {
		cfg.DisabledReminderDays = DefaultConfig().Notifications.DisabledReminderDays
	}
	return &HealthManager{
		endpoints: endpoints,
		events:    events,
		ledger:    ledger,
		sender:    sender,
		config:    cfg,
		logger:    logger,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

// WithClock replaces the clock. Test hook.
func (m *HealthManager) WithClock(now func() time.Time) *HealthManager {
	if now != nil {
		m.now = now
	}
	return m
}

// Observe applies one delivery decision to the endpoint's health state.
func (m *HealthManager) Observe(
	ctx context.Context,
	endpoint Endpoint,
	event DeliveryEvent,
	decision Decision,
) error {
	if m == nil || m.endpoints == nil {
		return fmt.Errorf("core: health manager is not configured")
	}
	switch decision.Status {
	case EventStatusSuccessful:
		return m.endpoints.ResetFailureCount(ctx, endpoint.ID)
	case EventStatusEnqueuedRetry:
		if decision.RetryCounter == m.config.FailingAfterRetries && endpoint.Enabled {
			return m.notifyFailing(ctx, endpoint, event)
		}
		return nil
	case EventStatusFailed:
		return m.observeTerminalFailure(ctx, endpoint, event)
	}
	return nil
}

func (m *HealthManager) observeTerminalFailure(
	ctx context.Context,
	endpoint Endpoint,
	event DeliveryEvent,
) error {
	if err := m.endpoints.IncrementFailureCount(ctx, endpoint.ID); err != nil {
		return err
	}

	disabled, err := m.endpoints.DisableIfEnabled(ctx, endpoint.ID)
	if err != nil {
		return err
	}
	if !disabled {
		// Already disabled by an earlier event in this episode; the event
		// keeps its terminal FAILED status.
		return nil
	}

	if err := m.events.MarkEndpointDisabled(ctx, event.EventID); err != nil {
		return err
	}
	return m.notify(ctx, Notification{
		Kind:       NotificationEndpointDisabled,
		Endpoint:   endpoint,
		Event:      &event,
		OccurredAt: m.now(),
	}, dispatchKey("disabled", endpoint.ID, event.EventID))
}

func (m *HealthManager) notifyFailing(ctx context.Context, endpoint Endpoint, event DeliveryEvent) error {
	// Key off the oldest still-failing event so a storm of concurrently
	// failing events produces one notification per episode.
	anchor := event
	if oldest, found, err := m.events.OldestFailing(ctx, endpoint.ID); err != nil {
		return err
	} else if found {
		anchor = oldest
	}
	return m.notify(ctx, Notification{
		Kind:       NotificationEndpointFailing,
		Endpoint:   endpoint,
		Event:      &anchor,
		OccurredAt: m.now(),
	}, dispatchKey("failing", endpoint.ID, anchor.EventID))
}

func (m *HealthManager) notify(ctx context.Context, notification Notification, key string) error {
	seen, err := m.ledger.Seen(ctx, key)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	status := "sent"
	sendErr := ""
	if m.sender != nil {
		if err := m.sender.Send(ctx, notification); err != nil {
			status = "failed"
			sendErr = err.Error()
			if m.logger != nil {
				m.logger.Error("operator notification send failed",
					"kind", string(notification.Kind),
					"endpoint_id", notification.Endpoint.ID,
					"error", err.Error(),
				)
			}
		}
	}

	dispatch := NotificationDispatch{
		EndpointID:     notification.Endpoint.ID,
		Kind:           notification.Kind,
		RecipientKey:   strings.TrimSpace(notification.Endpoint.OwnerEmail),
		IdempotencyKey: key,
		Status:         status,
		Error:          sendErr,
	}
	if notification.Event != nil {
		dispatch.EventID = notification.Event.EventID
	}
	// The send failure is already logged and recorded; the key is in the
	// ledger, so surfacing it would mark the event unprocessed without ever
	// retrying the notification.
	return m.ledger.Record(ctx, dispatch)
}

func dispatchKey(parts ...string) string {
	return "webhooks::" + strings.Join(parts, "::")
}
