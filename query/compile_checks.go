package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-webhooks/core"
)

var (
	_ gocmd.Querier[GetEndpointMessage, core.Endpoint]       = (*GetEndpointQuery)(nil)
	_ gocmd.Querier[ListEndpointsMessage, []core.Endpoint]   = (*ListEndpointsQuery)(nil)
	_ gocmd.Querier[GetEventMessage, core.DeliveryEvent]     = (*GetEventQuery)(nil)
	_ gocmd.Querier[ListEventsMessage, []core.DeliveryEvent] = (*ListEventsQuery)(nil)
)
