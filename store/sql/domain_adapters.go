package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-webhooks/core"
)

func newEndpointRecord(in core.RegisterEndpointInput, now time.Time) *endpointRecord {
	eventTypes := append([]int(nil), in.EventTypes...)
	if eventTypes == nil {
		eventTypes = []int{}
	}
	version := in.Version
	if version <= 0 {
		version = 1
	}
	enabledAt := now
	return &endpointRecord{
		OwnerID:    strings.TrimSpace(in.OwnerID),
		OwnerEmail: strings.TrimSpace(in.OwnerEmail),
		URL:        strings.TrimSpace(in.URL),
		EventTypes: eventTypes,
		Version:    version,
		Enabled:    true,
		EnabledAt:  &enabledAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (r *endpointRecord) toDomain() core.Endpoint {
	if r == nil {
		return core.Endpoint{}
	}
	endpoint := core.Endpoint{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		OwnerEmail:   r.OwnerEmail,
		URL:          r.URL,
		EventTypes:   append([]int(nil), r.EventTypes...),
		Version:      r.Version,
		Enabled:      r.Enabled,
		FailureCount: r.FailureCount,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.EnabledAt != nil {
		value := *r.EnabledAt
		endpoint.EnabledAt = &value
	}
	if r.DisabledAt != nil {
		value := *r.DisabledAt
		endpoint.DisabledAt = &value
	}
	return endpoint
}

func newDeliveryEventRecord(event core.DeliveryEvent, now time.Time) *deliveryEventRecord {
	record := &deliveryEventRecord{
		ID:           strings.TrimSpace(event.EventID),
		EndpointID:   strings.TrimSpace(event.EndpointID),
		EventType:    event.EventType,
		Payload:      append([]byte(nil), event.Payload...),
		Status:       string(event.Status),
		RetryCounter: event.RetryCounter,
		ResponseBody: event.ResponseBody,
		ErrorMessage: event.ErrorMessage,
		Debug:        event.Debug,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !event.CreatedAt.IsZero() {
		record.CreatedAt = event.CreatedAt.UTC()
	}
	if event.NextRetryAt != nil {
		value := event.NextRetryAt.UTC()
		record.NextRetryAt = &value
	}
	if event.StatusCode != nil {
		code := *event.StatusCode
		record.StatusCode = &code
	}
	return record
}

func (r *deliveryEventRecord) toDomain() core.DeliveryEvent {
	if r == nil {
		return core.DeliveryEvent{}
	}
	event := core.DeliveryEvent{
		EventID:      r.ID,
		EndpointID:   r.EndpointID,
		EventType:    r.EventType,
		Payload:      append([]byte(nil), r.Payload...),
		Status:       core.EventStatus(r.Status),
		RetryCounter: r.RetryCounter,
		ResponseBody: r.ResponseBody,
		ErrorMessage: r.ErrorMessage,
		Debug:        r.Debug,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.NextRetryAt != nil {
		value := *r.NextRetryAt
		event.NextRetryAt = &value
	}
	if r.StatusCode != nil {
		code := *r.StatusCode
		event.StatusCode = &code
	}
	return event
}
