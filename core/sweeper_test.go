package core

import (
	"context"
	"testing"
	"time"
)

type sweepFixture struct {
	sweeper   *RetrySweeper
	endpoints *memEndpointStore
	events    *memEventStore
	attempter *scriptedAttempter
	health    *HealthManager
	sender    *recordingSender
	now       time.Time
}

func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	endpoints := newMemEndpointStore(clock)
	events := newMemEventStore(endpoints, clock)
	ledger := newMemLedger()
	sender := &recordingSender{}
	attempter := newScriptedAttempter(FailureOutcome(500, "", "endpoint returned status 500"))

	health, err := NewHealthManager(endpoints, events, ledger, sender, NotificationConfig{
		FailingAfterRetries:  2,
		DisabledReminderDays: 3,
	}, nil)
	if err != nil {
		t.Fatalf("NewHealthManager: %v", err)
	}
	health.WithClock(clock)

	sweeper, err := NewRetrySweeper(events, endpoints, attempter, NewBackoffScheduler(8), health, RetryConfig{
		MaxRetries:   8,
		CutoffWindow: 48 * time.Hour,
		BatchLimit:   200,
	}, nil)
	if err != nil {
		t.Fatalf("NewRetrySweeper: %v", err)
	}
	sweeper.WithClock(clock)

	return &sweepFixture{
		sweeper:   sweeper,
		endpoints: endpoints,
		events:    events,
		attempter: attempter,
		health:    health,
		sender:    sender,
		now:       now,
	}
}

func (f *sweepFixture) dueEvent(t *testing.T, endpoint Endpoint, id string, counter int, age time.Duration) DeliveryEvent {
	t.Helper()
	due := f.now.Add(-time.Minute)
	event, err := f.events.Create(context.Background(), DeliveryEvent{
		EventID:      id,
		EndpointID:   endpoint.ID,
		Payload:      []byte(`{"webhook":{},"payload":{}}`),
		Status:       EventStatusEnqueuedRetry,
		RetryCounter: counter,
		NextRetryAt:  &due,
		CreatedAt:    f.now.Add(-age),
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return event
}

func TestRunOnceDeliversDueEvents(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()

	endpoint := f.endpoints.put(Endpoint{Enabled: true})
	f.dueEvent(t, endpoint, "ev-ok", 1, time.Hour)
	f.attempter.script("ev-ok", SuccessOutcome(200, "ok"))

	processed, err := f.sweeper.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}

	got, _ := f.events.Get(ctx, "ev-ok")
	if got.Status != EventStatusSuccessful {
		t.Fatalf("status = %q, want %q", got.Status, EventStatusSuccessful)
	}
	if got.NextRetryAt != nil || got.ErrorMessage != "" {
		t.Fatalf("retry state not cleared: %+v", got)
	}
}

func TestRunOnceReschedulesFailures(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()

	endpoint := f.endpoints.put(Endpoint{Enabled: true})
	f.dueEvent(t, endpoint, "ev-retry", 2, time.Hour)

	if _, err := f.sweeper.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	got, _ := f.events.Get(ctx, "ev-retry")
	if got.Status != EventStatusEnqueuedRetry {
		t.Fatalf("status = %q, want %q", got.Status, EventStatusEnqueuedRetry)
	}
	if got.RetryCounter != 3 {
		t.Fatalf("retry counter = %d, want 3", got.RetryCounter)
	}
	if got.NextRetryAt == nil {
		t.Fatal("next retry at missing")
	}
	if delay := got.NextRetryAt.Sub(f.now); delay != 27*time.Minute {
		t.Fatalf("delay = %v, want 27m", delay)
	}
}

func TestRunOnceSkipsDebugAndDisabledAndFuture(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()

	enabled := f.endpoints.put(Endpoint{Enabled: true})
	disabled := f.endpoints.put(Endpoint{Enabled: false})

	due := f.now.Add(-time.Minute)
	future := f.now.Add(time.Hour)
	f.events.Create(ctx, DeliveryEvent{
		EventID: "ev-debug", EndpointID: enabled.ID, Payload: []byte(`{}`),
		Status: EventStatusEnqueuedRetry, NextRetryAt: &due, Debug: true, CreatedAt: f.now.Add(-time.Hour),
	})
	f.events.Create(ctx, DeliveryEvent{
		EventID: "ev-disabled", EndpointID: disabled.ID, Payload: []byte(`{}`),
		Status: EventStatusEnqueuedRetry, NextRetryAt: &due, CreatedAt: f.now.Add(-time.Hour),
	})
	f.events.Create(ctx, DeliveryEvent{
		EventID: "ev-future", EndpointID: enabled.ID, Payload: []byte(`{}`),
		Status: EventStatusEnqueuedRetry, NextRetryAt: &future, CreatedAt: f.now.Add(-time.Hour),
	})

	processed, err := f.sweeper.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if processed != 0 {
		t.Fatalf("processed = %d, want 0", processed)
	}
	if f.attempter.attempts != 0 {
		t.Fatalf("attempts = %d, want 0", f.attempter.attempts)
	}
}

func TestRunOnceFailsEventsPastCutoff(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()

	endpoint := f.endpoints.put(Endpoint{Enabled: true})
	f.dueEvent(t, endpoint, "ev-stale", 5, 49*time.Hour)

	processed, err := f.sweeper.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if processed != 0 {
		t.Fatalf("processed = %d, want 0", processed)
	}
	got, _ := f.events.Get(ctx, "ev-stale")
	if got.Status != EventStatusFailed {
		t.Fatalf("status = %q, want %q", got.Status, EventStatusFailed)
	}
	if got.NextRetryAt != nil {
		t.Fatal("stale event kept next_retry_at")
	}
}

func TestRunOnceExhaustionDisablesEndpoint(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()

	endpoint := f.endpoints.put(Endpoint{Enabled: true, OwnerEmail: "owner@example.com"})
	f.dueEvent(t, endpoint, "ev-last", 7, time.Hour)

	if _, err := f.sweeper.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	got, _ := f.events.Get(ctx, "ev-last")
	if got.Status != EventStatusEndpointDisabled {
		t.Fatalf("event status = %q, want %q", got.Status, EventStatusEndpointDisabled)
	}
	ep, _ := f.endpoints.Get(ctx, endpoint.ID)
	if ep.Enabled {
		t.Fatal("endpoint still enabled after budget exhaustion")
	}
	sent := f.sender.sent()
	if len(sent) != 1 || sent[0].Kind != NotificationEndpointDisabled {
		t.Fatalf("notifications = %+v", sent)
	}
}

func TestRunOnceResumesParkedEventsAfterReenable(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()

	endpoint := f.endpoints.put(Endpoint{Enabled: false})
	parked, _ := f.events.Create(ctx, DeliveryEvent{
		EventID:      "ev-parked",
		EndpointID:   endpoint.ID,
		Payload:      []byte(`{"webhook":{},"payload":{}}`),
		Status:       EventStatusEndpointDisabled,
		RetryCounter: 8,
		CreatedAt:    f.now.Add(-2 * time.Hour),
	})
	// Owner turns the endpoint back on after the event was parked.
	enabledAt := f.now.Add(-time.Minute)
	f.endpoints.put(Endpoint{
		ID: endpoint.ID, Enabled: true, EnabledAt: &enabledAt,
	})
	f.attempter.script(parked.EventID, SuccessOutcome(200, "ok"))

	processed, err := f.sweeper.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}
	got, _ := f.events.Get(ctx, parked.EventID)
	if got.Status != EventStatusSuccessful {
		t.Fatalf("status = %q, want %q", got.Status, EventStatusSuccessful)
	}
	if got.RetryCounter != 0 {
		t.Fatalf("retry counter = %d, want 0 after reset", got.RetryCounter)
	}
}

func TestRunOnceKeepsBatchMovingOnEventError(t *testing.T) {
	f := newSweepFixture(t)
	ctx := context.Background()

	endpoint := f.endpoints.put(Endpoint{Enabled: true})
	due := f.now.Add(-time.Minute)
	// Orphaned event: its endpoint id resolves, but payload is empty.
	f.events.Create(ctx, DeliveryEvent{
		EventID: "ev-broken", EndpointID: endpoint.ID,
		Status: EventStatusEnqueuedRetry, NextRetryAt: &due,
		CreatedAt: f.now.Add(-2 * time.Hour),
	})
	f.dueEvent(t, endpoint, "ev-good", 0, time.Hour)
	f.attempter.script("ev-good", SuccessOutcome(200, "ok"))

	processed, err := f.sweeper.RunOnce(ctx)
	if err == nil {
		t.Fatal("expected aggregated error for the broken event")
	}
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}
	got, _ := f.events.Get(ctx, "ev-good")
	if got.Status != EventStatusSuccessful {
		t.Fatalf("good event status = %q", got.Status)
	}
}
