package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// EnvelopeHeader carries the delivery metadata subscribers rely on to
// interpret the opaque payload.
type EnvelopeHeader struct {
	EventType       int        `json:"event_type"`
	Version         int        `json:"version"`
	DateCreated     time.Time  `json:"date_created"`
	DeprecationDate *time.Time `json:"deprecation_date"`
}

type Envelope struct {
	Webhook EnvelopeHeader  `json:"webhook"`
	Payload json.RawMessage `json:"payload"`
}

// BuildBody produces the wire body for an event at fan-out time. The result
// is stored on the DeliveryEvent and is immutable across attempts.
func BuildBody(endpoint Endpoint, eventType int, payload []byte, createdAt time.Time) ([]byte, error) {
	if !json.Valid(payload) {
		return nil, fmt.Errorf("core: payload is not valid JSON")
	}
	body, err := json.Marshal(Envelope{
		Webhook: EnvelopeHeader{
			EventType:   eventType,
			Version:     endpoint.Version,
			DateCreated: createdAt.UTC(),
		},
		Payload: json.RawMessage(payload),
	})
	if err != nil {
		return nil, fmt.Errorf("core: marshal webhook envelope: %w", err)
	}
	return body, nil
}
