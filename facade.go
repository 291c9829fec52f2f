package webhooks

import (
	"fmt"

	webhookscommand "github.com/goliatone/go-webhooks/command"
	webhooksquery "github.com/goliatone/go-webhooks/query"
)

// CommandQueryService is everything the facade needs from a webhook service.
// *core.Service satisfies it.
type CommandQueryService interface {
	webhookscommand.MutatingService
	webhooksquery.EndpointReader
	webhooksquery.EventReader
}

type Commands struct {
	RegisterEndpoint  *webhookscommand.RegisterEndpointCommand
	EnableEndpoint    *webhookscommand.EnableEndpointCommand
	DisableEndpoint   *webhookscommand.DisableEndpointCommand
	EnqueueEvent      *webhookscommand.EnqueueEventCommand
	AttemptDelivery   *webhookscommand.AttemptDeliveryCommand
	RunRetrySweep     *webhookscommand.RunRetrySweepCommand
	RunRetentionSweep *webhookscommand.RunRetentionSweepCommand
}

type Queries struct {
	GetEndpoint   *webhooksquery.GetEndpointQuery
	ListEndpoints *webhooksquery.ListEndpointsQuery
	GetEvent      *webhooksquery.GetEventQuery
	ListEvents    *webhooksquery.ListEventsQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("webhooks: command/query service is required")
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		RegisterEndpoint:  webhookscommand.NewRegisterEndpointCommand(service),
		EnableEndpoint:    webhookscommand.NewEnableEndpointCommand(service),
		DisableEndpoint:   webhookscommand.NewDisableEndpointCommand(service),
		EnqueueEvent:      webhookscommand.NewEnqueueEventCommand(service),
		AttemptDelivery:   webhookscommand.NewAttemptDeliveryCommand(service),
		RunRetrySweep:     webhookscommand.NewRunRetrySweepCommand(service),
		RunRetentionSweep: webhookscommand.NewRunRetentionSweepCommand(service),
	}
	facade.queries = Queries{
		GetEndpoint:   webhooksquery.NewGetEndpointQuery(service),
		ListEndpoints: webhooksquery.NewListEndpointsQuery(service),
		GetEvent:      webhooksquery.NewGetEventQuery(service),
		ListEvents:    webhooksquery.NewListEventsQuery(service),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
