package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// EndpointStore persists subscriber registrations. Enable/disable writes are
// conditional updates so an owner toggle and a sweeper auto-disable cannot
// both win the same transition.
type EndpointStore interface {
	Create(ctx context.Context, in RegisterEndpointInput) (Endpoint, error)
	Get(ctx context.Context, id string) (Endpoint, error)
	List(ctx context.Context, filter EndpointFilter) ([]Endpoint, error)

	// SetEnabled flips the gate only when the stored value differs; it
	// reports whether the row actually changed. Enabling stamps enabled_at,
	// disabling stamps disabled_at.
	SetEnabled(ctx context.Context, id string, enabled bool) (bool, error)

	// DisableIfEnabled is SetEnabled(false) restricted to rows that are
	// still enabled; the sweeper uses it for the exactly-once disable
	// transition per failure episode.
	DisableIfEnabled(ctx context.Context, id string) (bool, error)

	IncrementFailureCount(ctx context.Context, id string) error
	ResetFailureCount(ctx context.Context, id string) error

	// ListDisabledBetween returns endpoints whose disabled_at falls inside
	// [from, to) and that are still disabled. Drives the day-N reminders.
	ListDisabledBetween(ctx context.Context, from, to time.Time) ([]Endpoint, error)
}

// ClaimedBatch is what one atomic sweep selection produced: the events locked
// for delivery this pass plus the count of stale rows failed outright.
type ClaimedBatch struct {
	Events []DeliveryEvent
	Staled int
	Resets int
}

// DeliveryEventStore persists the attempt series. ClaimDue must perform the
// stale cutoff, the re-enable reset, and the due selection inside a single
// transaction so overlapping sweeper invocations never double-deliver.
type DeliveryEventStore interface {
	Create(ctx context.Context, event DeliveryEvent) (DeliveryEvent, error)
	Get(ctx context.Context, eventID string) (DeliveryEvent, error)
	List(ctx context.Context, filter EventFilter) ([]DeliveryEvent, error)

	// ClaimDue selects events with next_retry_at <= now, debug = false,
	// endpoint enabled, status in {enqueued_retry, endpoint_disabled},
	// ordered by created_at ascending, claiming each by flipping it to
	// in_progress. Rows older than the cutoff are marked failed and
	// excluded; endpoint_disabled rows whose endpoint was re-enabled since
	// their last update get retry_counter reset to zero before selection.
	ClaimDue(ctx context.Context, now time.Time, cutoff time.Duration, limit int) (ClaimedBatch, error)

	ApplyDecision(ctx context.Context, eventID string, decision Decision) error

	// MarkEndpointDisabled rewrites a just-failed event as parked by the
	// health manager's disable transition.
	MarkEndpointDisabled(ctx context.Context, eventID string) error

	// OldestFailing returns the oldest non-debug event for the endpoint that
	// is still on the retry ladder, if any.
	OldestFailing(ctx context.Context, endpointID string) (DeliveryEvent, bool, error)

	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// NotificationDispatchLedger de-duplicates operator notifications across
// process restarts and concurrent sweepers. Record with an already-seen
// idempotency key is a silent no-op.
type NotificationDispatchLedger interface {
	Seen(ctx context.Context, idempotencyKey string) (bool, error)
	Record(ctx context.Context, input NotificationDispatch) error
}

type NotificationDispatch struct {
	EndpointID     string
	EventID        string
	Kind           NotificationKind
	RecipientKey   string
	IdempotencyKey string
	Status         string
	Error          string
	Metadata       map[string]any
}

type NotificationKind string

const (
	NotificationEndpointFailing  NotificationKind = "webhook.endpoint.failing"
	NotificationEndpointDisabled NotificationKind = "webhook.endpoint.disabled"
	NotificationStillDisabled    NotificationKind = "webhook.endpoint.still_disabled"
)

type Notification struct {
	Kind       NotificationKind
	Endpoint   Endpoint
	Event      *DeliveryEvent
	DaysSince  int
	OccurredAt time.Time
}

// NotificationSender delivers an operator notification. Transport (SMTP,
// chat, ticketing) is a collaborator concern; the notify package ships the
// default implementations.
type NotificationSender interface {
	Send(ctx context.Context, notification Notification) error
}

// Attempter performs one HTTP delivery attempt. Classification only; all
// state mutation happens in the caller via the returned Outcome.
type Attempter interface {
	Attempt(ctx context.Context, event DeliveryEvent, endpoint Endpoint) Outcome
}
