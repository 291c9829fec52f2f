package query

import (
	"context"

	"github.com/goliatone/go-webhooks/core"
)

type EndpointReader interface {
	GetEndpoint(ctx context.Context, endpointID string) (core.Endpoint, error)
	ListEndpoints(ctx context.Context, filter core.EndpointFilter) ([]core.Endpoint, error)
}

type EventReader interface {
	GetEvent(ctx context.Context, eventID string) (core.DeliveryEvent, error)
	ListEvents(ctx context.Context, filter core.EventFilter) ([]core.DeliveryEvent, error)
}

type GetEndpointQuery struct {
	reader EndpointReader
}

func NewGetEndpointQuery(reader EndpointReader) *GetEndpointQuery {
	return &GetEndpointQuery{reader: reader}
}

func (q *GetEndpointQuery) Query(ctx context.Context, msg GetEndpointMessage) (core.Endpoint, error) {
	if q == nil || q.reader == nil {
		return core.Endpoint{}, queryDependencyError("query: endpoint reader is required")
	}
	return q.reader.GetEndpoint(ctx, msg.EndpointID)
}

type ListEndpointsQuery struct {
	reader EndpointReader
}

func NewListEndpointsQuery(reader EndpointReader) *ListEndpointsQuery {
	return &ListEndpointsQuery{reader: reader}
}

func (q *ListEndpointsQuery) Query(ctx context.Context, msg ListEndpointsMessage) ([]core.Endpoint, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: endpoint reader is required")
	}
	return q.reader.ListEndpoints(ctx, msg.Filter)
}

type GetEventQuery struct {
	reader EventReader
}

func NewGetEventQuery(reader EventReader) *GetEventQuery {
	return &GetEventQuery{reader: reader}
}

func (q *GetEventQuery) Query(ctx context.Context, msg GetEventMessage) (core.DeliveryEvent, error) {
	if q == nil || q.reader == nil {
		return core.DeliveryEvent{}, queryDependencyError("query: event reader is required")
	}
	return q.reader.GetEvent(ctx, msg.EventID)
}

type ListEventsQuery struct {
	reader EventReader
}

func NewListEventsQuery(reader EventReader) *ListEventsQuery {
	return &ListEventsQuery{reader: reader}
}

func (q *ListEventsQuery) Query(ctx context.Context, msg ListEventsMessage) ([]core.DeliveryEvent, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: event reader is required")
	}
	return q.reader.ListEvents(ctx, msg.Filter)
}
