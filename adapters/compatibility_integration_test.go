package adapters_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-command"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-webhooks/adapters/gocommand"
	"github.com/goliatone/go-webhooks/adapters/gojob"
	"github.com/goliatone/go-webhooks/adapters/gologger"
	webhookscommand "github.com/goliatone/go-webhooks/command"
	"github.com/goliatone/go-webhooks/core"
	webhooksquery "github.com/goliatone/go-webhooks/query"
)

func TestRuntimeCompatibility_GoJobGoCommandGoLogger(t *testing.T) {
	ctx := context.Background()

	logger := &compatLogger{}
	provider := &compatProvider{logger: logger}

	_, _, jobProvider, jobLogger := gologger.ResolveForJob("webhooks", provider, nil)
	if jobProvider == nil || jobLogger == nil {
		t.Fatalf("expected go-job logger bridges")
	}

	rawEnqueuer := &compatEnqueuer{}
	enqueuer := gojob.NewEnqueuer(rawEnqueuer)
	receipt, err := enqueuer.EnqueueDelivery(ctx, "ev-1")
	if err != nil {
		t.Fatalf("enqueue via gojob adapter: %v", err)
	}
	if receipt.DispatchID == "" {
		t.Fatalf("expected dispatch id in enqueue receipt")
	}
	if rawEnqueuer.last == nil || rawEnqueuer.last.JobID != gojob.JobIDDeliverEvent {
		t.Fatalf("expected go-job message mapping through enqueuer")
	}
	if gojob.EventIDFromMessage(rawEnqueuer.last) != "ev-1" {
		t.Fatalf("expected event id to survive the queue mapping")
	}

	queueRegistry := jobqueuecommand.NewRegistry()
	commandAdapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	if err := commandAdapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	if err := commandAdapter.RegisterCommand(command.CommandFunc[compatMessage](func(context.Context, compatMessage) error {
		return nil
	})); err != nil {
		t.Fatalf("register command: %v", err)
	}
	if err := commandAdapter.Initialize(); err != nil {
		t.Fatalf("initialize command registry: %v", err)
	}
	if _, ok := queueRegistry.Get("webhooks.compat.command"); !ok {
		t.Fatalf("expected command resolver hook to mirror command into go-job queue registry")
	}
}

func TestRuntimeCompatibility_CommandsDispatchThroughWrappers(t *testing.T) {
	svc := &compatMutatingService{}
	adapter := gocommand.NewRegistryAdapter(command.NewRegistry())

	enqueueSub, err := gocommand.RegisterAndSubscribe(adapter, webhookscommand.NewEnqueueEventCommand(svc))
	if err != nil {
		t.Fatalf("register enqueue wrapper: %v", err)
	}
	defer enqueueSub.Unsubscribe()

	sweepSub, err := gocommand.RegisterAndSubscribe(adapter, webhookscommand.NewRunRetrySweepCommand(svc))
	if err != nil {
		t.Fatalf("register sweep wrapper: %v", err)
	}
	defer sweepSub.Unsubscribe()

	reader := &compatEventReader{}
	querySub, err := gocommand.RegisterAndSubscribeQuery(adapter, webhooksquery.NewGetEventQuery(reader))
	if err != nil {
		t.Fatalf("register query wrapper: %v", err)
	}
	defer querySub.Unsubscribe()

	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize adapter: %v", err)
	}

	err = gocommand.Dispatch(context.Background(), webhookscommand.EnqueueEventMessage{Input: core.EnqueueInput{
		EndpointID: "ep-1",
		EventType:  7,
		Payload:    []byte(`{"id":1}`),
	}})
	if err != nil {
		t.Fatalf("dispatch enqueue: %v", err)
	}
	if svc.enqueueCalls != 1 || svc.lastEndpointID != "ep-1" {
		t.Fatalf("expected enqueue wrapper invocation, calls=%d endpoint=%q", svc.enqueueCalls, svc.lastEndpointID)
	}

	if err := gocommand.Dispatch(context.Background(), webhookscommand.RunRetrySweepMessage{}); err != nil {
		t.Fatalf("dispatch sweep: %v", err)
	}
	if svc.sweepCalls != 1 {
		t.Fatalf("expected sweep wrapper invocation, calls=%d", svc.sweepCalls)
	}

	event, err := gocommand.Query[webhooksquery.GetEventMessage, core.DeliveryEvent](
		context.Background(),
		webhooksquery.GetEventMessage{EventID: "ev-9"},
	)
	if err != nil {
		t.Fatalf("dispatch query: %v", err)
	}
	if event.EventID != "ev-9" || reader.getCalls != 1 {
		t.Fatalf("expected query wrapper invocation, event=%q calls=%d", event.EventID, reader.getCalls)
	}
}

func TestRuntimeCompatibility_QueueExecutorRunsSweepService(t *testing.T) {
	svc := &compatMutatingService{}
	executor := gojob.NewExecutor(svc, gojob.RetryPolicy{MaxAttempts: 3}, nil)
	delivery := &compatDelivery{msg: gojob.NewRetrySweepMessage(time.Now())}

	if err := executor.Execute(context.Background(), delivery, 1); err != nil {
		t.Fatalf("execute sweep job: %v", err)
	}
	if svc.sweepCalls != 1 {
		t.Fatalf("expected sweep execution through queue, calls=%d", svc.sweepCalls)
	}
	if !delivery.acked {
		t.Fatalf("expected delivery ack")
	}
}

type compatMessage struct{}

func (compatMessage) Type() string { return "webhooks.compat.command" }

type compatEnqueuer struct {
	last *job.ExecutionMessage
}

func (e *compatEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) (queue.EnqueueReceipt, error) {
	e.last = msg
	return queue.EnqueueReceipt{DispatchID: "dispatch-1", EnqueuedAt: time.Now().UTC()}, nil
}

type compatDelivery struct {
	msg   *job.ExecutionMessage
	acked bool
}

func (d *compatDelivery) Message() *job.ExecutionMessage { return d.msg }

func (d *compatDelivery) Ack(context.Context) error {
	d.acked = true
	return nil
}

func (d *compatDelivery) Nack(context.Context, queue.NackOptions) error {
	return nil
}

type compatProvider struct {
	logger glog.Logger
}

func (p *compatProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type compatLogger struct{}

func (compatLogger) Trace(string, ...any)                    {}
func (compatLogger) Debug(string, ...any)                    {}
func (compatLogger) Info(string, ...any)                     {}
func (compatLogger) Warn(string, ...any)                     {}
func (compatLogger) Error(string, ...any)                    {}
func (compatLogger) Fatal(string, ...any)                    {}
func (compatLogger) WithContext(context.Context) glog.Logger { return compatLogger{} }

type compatEventReader struct {
	getCalls int
}

func (r *compatEventReader) GetEvent(_ context.Context, eventID string) (core.DeliveryEvent, error) {
	r.getCalls++
	return core.DeliveryEvent{EventID: eventID, Status: core.EventStatusSuccessful}, nil
}

func (r *compatEventReader) ListEvents(context.Context, core.EventFilter) ([]core.DeliveryEvent, error) {
	return nil, nil
}

type compatMutatingService struct {
	enqueueCalls   int
	lastEndpointID string
	sweepCalls     int
}

func (s *compatMutatingService) RegisterEndpoint(context.Context, core.RegisterEndpointInput) (core.Endpoint, error) {
	return core.Endpoint{}, nil
}

func (s *compatMutatingService) EnableEndpoint(context.Context, string) (bool, error) {
	return false, nil
}

func (s *compatMutatingService) DisableEndpoint(context.Context, string) (bool, error) {
	return false, nil
}

func (s *compatMutatingService) Enqueue(_ context.Context, in core.EnqueueInput) (core.DeliveryEvent, error) {
	s.enqueueCalls++
	s.lastEndpointID = in.EndpointID
	return core.DeliveryEvent{EventID: "ev-1", EndpointID: in.EndpointID}, nil
}

func (s *compatMutatingService) AttemptNow(_ context.Context, eventID string) (core.DeliveryEvent, error) {
	return core.DeliveryEvent{EventID: eventID}, nil
}

func (s *compatMutatingService) RunOnce(context.Context) (int, error) {
	s.sweepCalls++
	return 0, nil
}

func (s *compatMutatingService) RunOnceDaily(context.Context) (int64, bool, error) {
	return 0, false, nil
}
