package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrEndpointNotFound       = errors.New("core: endpoint not found")
	ErrEventNotFound          = errors.New("core: delivery event not found")
	ErrEndpointDisabled       = errors.New("core: endpoint is disabled")
	ErrInvalidEventStatus     = errors.New("core: invalid delivery event status")
	ErrEventInvariantViolated = errors.New("core: delivery event invariant violated")
)

type EventStatus string

const (
	EventStatusInProgress       EventStatus = "in_progress"
	EventStatusEnqueuedRetry    EventStatus = "enqueued_retry"
	EventStatusSuccessful       EventStatus = "successful"
	EventStatusFailed           EventStatus = "failed"
	EventStatusEndpointDisabled EventStatus = "endpoint_disabled"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusInProgress,
		EventStatusEnqueuedRetry,
		EventStatusSuccessful,
		EventStatusFailed,
		EventStatusEndpointDisabled:
		return true
	}
	return false
}

// Terminal reports whether no further automatic retry occurs from this status.
func (s EventStatus) Terminal() bool {
	return s == EventStatusFailed || s == EventStatusSuccessful
}

type Endpoint struct {
	ID           string
	OwnerID      string
	OwnerEmail   string
	URL          string
	EventTypes   []int
	Version      int
	Enabled      bool
	FailureCount int
	EnabledAt    *time.Time
	DisabledAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (e Endpoint) Validate() error {
	if strings.TrimSpace(e.OwnerID) == "" {
		return fmt.Errorf("core: endpoint owner id is required")
	}
	url := strings.TrimSpace(e.URL)
	if url == "" {
		return fmt.Errorf("core: endpoint url is required")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("core: endpoint url %q must be http or https", e.URL)
	}
	if e.Version <= 0 {
		return fmt.Errorf("core: endpoint protocol version must be positive")
	}
	return nil
}

// Subscribed reports whether the endpoint's event-type filter matches.
// An empty filter matches every event type.
func (e Endpoint) Subscribed(eventType int) bool {
	if len(e.EventTypes) == 0 {
		return true
	}
	for _, candidate := range e.EventTypes {
		if candidate == eventType {
			return true
		}
	}
	return false
}

// ReenabledSince reports whether the owner flipped the endpoint back on after
// the given moment. Used by the sweeper to restore retry state for events
// parked by an auto-disable.
func (e Endpoint) ReenabledSince(moment time.Time) bool {
	if !e.Enabled || e.EnabledAt == nil {
		return false
	}
	return e.EnabledAt.After(moment)
}

type DeliveryEvent struct {
	// EventID is stable across all attempts and reused as the
	// Idempotency-Key header on the wire.
	EventID      string
	EndpointID   string
	EventType    int
	Payload      []byte
	Status       EventStatus
	RetryCounter int
	NextRetryAt  *time.Time
	StatusCode   *int
	ResponseBody string
	ErrorMessage string
	Debug        bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CheckInvariants validates the status/next-retry relationships. A violation
// indicates a programming error in whatever mutated the event, not a delivery
// failure.
func (e DeliveryEvent) CheckInvariants(maxRetries int) error {
	if !e.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidEventStatus, e.Status)
	}
	switch e.Status {
	case EventStatusSuccessful:
		if e.NextRetryAt != nil {
			return fmt.Errorf("%w: successful event has next_retry_at", ErrEventInvariantViolated)
		}
		if e.ErrorMessage != "" {
			return fmt.Errorf("%w: successful event has error_message", ErrEventInvariantViolated)
		}
	case EventStatusEnqueuedRetry:
		if e.NextRetryAt == nil {
			return fmt.Errorf("%w: enqueued event missing next_retry_at", ErrEventInvariantViolated)
		}
		if maxRetries > 0 && e.RetryCounter >= maxRetries {
			return fmt.Errorf(
				"%w: enqueued event retry_counter %d at or beyond budget %d",
				ErrEventInvariantViolated, e.RetryCounter, maxRetries,
			)
		}
	case EventStatusFailed:
		if e.NextRetryAt != nil {
			return fmt.Errorf("%w: failed event has next_retry_at", ErrEventInvariantViolated)
		}
	}
	return nil
}

// Outcome is the classified result of a single delivery attempt. Transport
// errors never surface as Go errors from the executor; they arrive here with
// a human-readable ErrorMessage instead.
type Outcome struct {
	Success      bool
	StatusCode   int
	ResponseBody string
	ErrorMessage string
}

func SuccessOutcome(statusCode int, body string) Outcome {
	return Outcome{Success: true, StatusCode: statusCode, ResponseBody: body}
}

func FailureOutcome(statusCode int, body string, message string) Outcome {
	return Outcome{
		StatusCode:   statusCode,
		ResponseBody: body,
		ErrorMessage: strings.TrimSpace(message),
	}
}

// Decision is the backoff scheduler's verdict for one attempt. The caller
// persists it verbatim; nothing mutates the event in place.
type Decision struct {
	Status       EventStatus
	RetryCounter int
	NextRetryAt  *time.Time
	StatusCode   *int
	ResponseBody string
	ErrorMessage string
}

type EnqueueInput struct {
	EndpointID string
	EventType  int
	Payload    []byte
	Debug      bool
}

func (in EnqueueInput) Validate() error {
	if strings.TrimSpace(in.EndpointID) == "" {
		return fmt.Errorf("core: endpoint id is required")
	}
	if len(in.Payload) == 0 {
		return fmt.Errorf("core: payload is required")
	}
	return nil
}

type RegisterEndpointInput struct {
	OwnerID    string
	OwnerEmail string
	URL        string
	EventTypes []int
	Version    int
}

type EventFilter struct {
	EndpointID string
	OwnerID    string
	Status     EventStatus
	Debug      *bool
	Limit      int
	Offset     int
}

type EndpointFilter struct {
	OwnerID string
	Enabled *bool
	Limit   int
	Offset  int
}
