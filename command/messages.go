package command

import (
	"strings"

	"github.com/goliatone/go-webhooks/core"
)

const (
	TypeRegisterEndpoint  = "webhooks.command.endpoint.register"
	TypeEnableEndpoint    = "webhooks.command.endpoint.enable"
	TypeDisableEndpoint   = "webhooks.command.endpoint.disable"
	TypeEnqueueEvent      = "webhooks.command.event.enqueue"
	TypeAttemptDelivery   = "webhooks.command.event.attempt"
	TypeRunRetrySweep     = "webhooks.command.sweep.retry"
	TypeRunRetentionSweep = "webhooks.command.sweep.retention"
)

type RegisterEndpointMessage struct {
	Input core.RegisterEndpointInput
}

func (RegisterEndpointMessage) Type() string { return TypeRegisterEndpoint }

func (m RegisterEndpointMessage) Validate() error {
	if strings.TrimSpace(m.Input.OwnerID) == "" {
		return commandValidationError("owner_id", "owner id is required")
	}
	if strings.TrimSpace(m.Input.URL) == "" {
		return commandValidationError("url", "endpoint url is required")
	}
	return nil
}

type EnableEndpointMessage struct {
	EndpointID string
}

func (EnableEndpointMessage) Type() string { return TypeEnableEndpoint }

func (m EnableEndpointMessage) Validate() error {
	if strings.TrimSpace(m.EndpointID) == "" {
		return commandValidationError("endpoint_id", "endpoint id is required")
	}
	return nil
}

type DisableEndpointMessage struct {
	EndpointID string
}

func (DisableEndpointMessage) Type() string { return TypeDisableEndpoint }

func (m DisableEndpointMessage) Validate() error {
	if strings.TrimSpace(m.EndpointID) == "" {
		return commandValidationError("endpoint_id", "endpoint id is required")
	}
	return nil
}

type EnqueueEventMessage struct {
	Input core.EnqueueInput
}

func (EnqueueEventMessage) Type() string { return TypeEnqueueEvent }

func (m EnqueueEventMessage) Validate() error {
	if strings.TrimSpace(m.Input.EndpointID) == "" {
		return commandValidationError("endpoint_id", "endpoint id is required")
	}
	if m.Input.EventType <= 0 {
		return commandValidationError("event_type", "event type must be positive")
	}
	if len(m.Input.Payload) == 0 {
		return commandValidationError("payload", "payload is required")
	}
	return nil
}

type AttemptDeliveryMessage struct {
	EventID string
}

func (AttemptDeliveryMessage) Type() string { return TypeAttemptDelivery }

func (m AttemptDeliveryMessage) Validate() error {
	if strings.TrimSpace(m.EventID) == "" {
		return commandValidationError("event_id", "event id is required")
	}
	return nil
}

type RunRetrySweepMessage struct{}

func (RunRetrySweepMessage) Type() string { return TypeRunRetrySweep }

func (RunRetrySweepMessage) Validate() error { return nil }

type RunRetentionSweepMessage struct{}

func (RunRetentionSweepMessage) Type() string { return TypeRunRetentionSweep }

func (RunRetentionSweepMessage) Validate() error { return nil }
