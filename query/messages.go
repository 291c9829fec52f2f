package query

import (
	"strings"

	"github.com/goliatone/go-webhooks/core"
)

const (
	TypeGetEndpoint   = "webhooks.query.endpoint.get"
	TypeListEndpoints = "webhooks.query.endpoint.list"
	TypeGetEvent      = "webhooks.query.event.get"
	TypeListEvents    = "webhooks.query.event.list"
)

type GetEndpointMessage struct {
	EndpointID string
}

func (GetEndpointMessage) Type() string { return TypeGetEndpoint }

func (m GetEndpointMessage) Validate() error {
	if strings.TrimSpace(m.EndpointID) == "" {
		return queryValidationError("endpoint_id", "endpoint id is required")
	}
	return nil
}

type ListEndpointsMessage struct {
	Filter core.EndpointFilter
}

func (ListEndpointsMessage) Type() string { return TypeListEndpoints }

func (m ListEndpointsMessage) Validate() error {
	if m.Filter.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	if m.Filter.Offset < 0 {
		return queryValidationError("offset", "offset must be >= 0")
	}
	return nil
}

type GetEventMessage struct {
	EventID string
}

func (GetEventMessage) Type() string { return TypeGetEvent }

func (m GetEventMessage) Validate() error {
	if strings.TrimSpace(m.EventID) == "" {
		return queryValidationError("event_id", "event id is required")
	}
	return nil
}

type ListEventsMessage struct {
	Filter core.EventFilter
}

func (ListEventsMessage) Type() string { return TypeListEvents }

func (m ListEventsMessage) Validate() error {
	if m.Filter.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	if m.Filter.Offset < 0 {
		return queryValidationError("offset", "offset must be >= 0")
	}
	if m.Filter.Status != "" && !m.Filter.Status.Valid() {
		return queryValidationError("status", "unknown event status")
	}
	return nil
}
