package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-webhooks/core"
)

type MutatingService interface {
	RegisterEndpoint(ctx context.Context, in core.RegisterEndpointInput) (core.Endpoint, error)
	EnableEndpoint(ctx context.Context, endpointID string) (bool, error)
	DisableEndpoint(ctx context.Context, endpointID string) (bool, error)
	Enqueue(ctx context.Context, in core.EnqueueInput) (core.DeliveryEvent, error)
	AttemptNow(ctx context.Context, eventID string) (core.DeliveryEvent, error)
	RunOnce(ctx context.Context) (int, error)
	RunOnceDaily(ctx context.Context) (int64, bool, error)
}

// RetentionSweepResult reports one retention pass: how many delivery events
// were purged and whether the daily window actually ran.
type RetentionSweepResult struct {
	Deleted int64
	Ran     bool
}

type RegisterEndpointCommand struct {
	service MutatingService
}

func NewRegisterEndpointCommand(service MutatingService) *RegisterEndpointCommand {
	return &RegisterEndpointCommand{service: service}
}

func (c *RegisterEndpointCommand) Execute(ctx context.Context, msg RegisterEndpointMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: endpoint service is required")
	}
	out, err := c.service.RegisterEndpoint(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type EnableEndpointCommand struct {
	service MutatingService
}

func NewEnableEndpointCommand(service MutatingService) *EnableEndpointCommand {
	return &EnableEndpointCommand{service: service}
}

func (c *EnableEndpointCommand) Execute(ctx context.Context, msg EnableEndpointMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: endpoint service is required")
	}
	changed, err := c.service.EnableEndpoint(ctx, msg.EndpointID)
	if err != nil {
		return err
	}
	storeResult(ctx, changed)
	return nil
}

type DisableEndpointCommand struct {
	service MutatingService
}

func NewDisableEndpointCommand(service MutatingService) *DisableEndpointCommand {
	return &DisableEndpointCommand{service: service}
}

func (c *DisableEndpointCommand) Execute(ctx context.Context, msg DisableEndpointMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: endpoint service is required")
	}
	changed, err := c.service.DisableEndpoint(ctx, msg.EndpointID)
	if err != nil {
		return err
	}
	storeResult(ctx, changed)
	return nil
}

type EnqueueEventCommand struct {
	service MutatingService
}

func NewEnqueueEventCommand(service MutatingService) *EnqueueEventCommand {
	return &EnqueueEventCommand{service: service}
}

func (c *EnqueueEventCommand) Execute(ctx context.Context, msg EnqueueEventMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: delivery service is required")
	}
	out, err := c.service.Enqueue(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type AttemptDeliveryCommand struct {
	service MutatingService
}

func NewAttemptDeliveryCommand(service MutatingService) *AttemptDeliveryCommand {
	return &AttemptDeliveryCommand{service: service}
}

func (c *AttemptDeliveryCommand) Execute(ctx context.Context, msg AttemptDeliveryMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: delivery service is required")
	}
	out, err := c.service.AttemptNow(ctx, msg.EventID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RunRetrySweepCommand struct {
	service MutatingService
}

func NewRunRetrySweepCommand(service MutatingService) *RunRetrySweepCommand {
	return &RunRetrySweepCommand{service: service}
}

func (c *RunRetrySweepCommand) Execute(ctx context.Context, msg RunRetrySweepMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sweep service is required")
	}
	processed, err := c.service.RunOnce(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, processed)
	return nil
}

type RunRetentionSweepCommand struct {
	service MutatingService
}

func NewRunRetentionSweepCommand(service MutatingService) *RunRetentionSweepCommand {
	return &RunRetentionSweepCommand{service: service}
}

func (c *RunRetentionSweepCommand) Execute(ctx context.Context, msg RunRetentionSweepMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sweep service is required")
	}
	deleted, ran, err := c.service.RunOnceDaily(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, RetentionSweepResult{Deleted: deleted, Ran: ran})
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
