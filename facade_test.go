package webhooks

import (
	"context"
	"testing"

	webhookscommand "github.com/goliatone/go-webhooks/command"
	"github.com/goliatone/go-webhooks/core"
	webhooksquery "github.com/goliatone/go-webhooks/query"
)

func TestNewFacade_WiresCommandsAndQueries(t *testing.T) {
	svc := &stubFacadeService{}

	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	commands := facade.Commands()
	if commands.RegisterEndpoint == nil || commands.EnqueueEvent == nil || commands.RunRetrySweep == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	queries := facade.Queries()
	if queries.GetEndpoint == nil || queries.ListEvents == nil {
		t.Fatalf("expected query handlers to be wired")
	}
	if facade.Service() == nil {
		t.Fatalf("expected facade to expose the backing service")
	}
}

func TestFacade_CommandAndQueryDelegation(t *testing.T) {
	svc := &stubFacadeService{}

	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	if err := facade.Commands().DisableEndpoint.Execute(context.Background(), webhookscommand.DisableEndpointMessage{
		EndpointID: "ep-1",
	}); err != nil {
		t.Fatalf("execute disable command: %v", err)
	}
	if svc.lastDisabledID != "ep-1" {
		t.Fatalf("unexpected disable delegation payload: %q", svc.lastDisabledID)
	}

	event, err := facade.Queries().GetEvent.Query(context.Background(), webhooksquery.GetEventMessage{
		EventID: "ev-1",
	})
	if err != nil {
		t.Fatalf("query event: %v", err)
	}
	if event.EventID != "ev-1" || event.Status != core.EventStatusSuccessful {
		t.Fatalf("unexpected event query result: %#v", event)
	}
}

func TestNewFacade_RequiresService(t *testing.T) {
	facade, err := NewFacade(nil)
	if err == nil {
		t.Fatalf("expected nil service error")
	}
	if facade != nil {
		t.Fatalf("expected nil facade on error")
	}
}

type stubFacadeService struct {
	lastDisabledID string
}

func (s *stubFacadeService) RegisterEndpoint(context.Context, core.RegisterEndpointInput) (core.Endpoint, error) {
	return core.Endpoint{ID: "ep-1", Enabled: true}, nil
}

func (s *stubFacadeService) EnableEndpoint(context.Context, string) (bool, error) {
	return true, nil
}

func (s *stubFacadeService) DisableEndpoint(_ context.Context, endpointID string) (bool, error) {
	s.lastDisabledID = endpointID
	return true, nil
}

func (s *stubFacadeService) Enqueue(context.Context, core.EnqueueInput) (core.DeliveryEvent, error) {
	return core.DeliveryEvent{EventID: "ev-1"}, nil
}

func (s *stubFacadeService) AttemptNow(_ context.Context, eventID string) (core.DeliveryEvent, error) {
	return core.DeliveryEvent{EventID: eventID}, nil
}

func (s *stubFacadeService) RunOnce(context.Context) (int, error) {
	return 0, nil
}

func (s *stubFacadeService) RunOnceDaily(context.Context) (int64, bool, error) {
	return 0, false, nil
}

func (s *stubFacadeService) GetEndpoint(_ context.Context, endpointID string) (core.Endpoint, error) {
	return core.Endpoint{ID: endpointID}, nil
}

func (s *stubFacadeService) ListEndpoints(context.Context, core.EndpointFilter) ([]core.Endpoint, error) {
	return nil, nil
}

func (s *stubFacadeService) GetEvent(_ context.Context, eventID string) (core.DeliveryEvent, error) {
	return core.DeliveryEvent{EventID: eventID, Status: core.EventStatusSuccessful}, nil
}

func (s *stubFacadeService) ListEvents(context.Context, core.EventFilter) ([]core.DeliveryEvent, error) {
	return nil, nil
}
