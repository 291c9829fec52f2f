package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-webhooks/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
)

const (
	JobIDRetrySweep     = "webhooks.sweep.retry"
	JobIDRetentionSweep = "webhooks.sweep.retention"
	JobIDDeliverEvent   = "webhooks.event.deliver"
)

const paramEventID = "event_id"

// SweepService is the slice of the webhook service the queue jobs call into.
type SweepService interface {
	RunOnce(ctx context.Context) (int, error)
	RunOnceDaily(ctx context.Context) (int64, bool, error)
	AttemptNow(ctx context.Context, eventID string) (core.DeliveryEvent, error)
}

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// Normalize enforces bounded retry behavior for a nack operation. A retry
// disposition that has exhausted the attempt budget becomes dead_letter or
// failed; terminal dispositions carry no redelivery delay.
func (p RetryPolicy) Normalize(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.Disposition == "" {
		out.Disposition = queue.NackDispositionRetry
	}
	if out.Disposition == queue.NackDispositionRetry && p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		if p.DeadLetterOnMax {
			out.Disposition = queue.NackDispositionDeadLetter
		} else {
			out.Disposition = queue.NackDispositionFailed
		}
	}
	if out.Disposition != queue.NackDispositionRetry {
		out.Delay = 0
	}
	return out
}

// NewRetrySweepMessage builds the queue message for one retry sweep pass.
// The idempotency key collapses duplicate triggers inside the same minute.
func NewRetrySweepMessage(at time.Time) *job.ExecutionMessage {
	return &job.ExecutionMessage{
		JobID:          JobIDRetrySweep,
		IdempotencyKey: fmt.Sprintf("%s::%s", JobIDRetrySweep, at.UTC().Format("2006-01-02T15:04")),
		DedupPolicy:    job.DedupPolicyDrop,
	}
}

// NewRetentionSweepMessage builds the queue message for one retention pass.
// Keyed by UTC day since the sweep itself runs at most once per day.
func NewRetentionSweepMessage(at time.Time) *job.ExecutionMessage {
	return &job.ExecutionMessage{
		JobID:          JobIDRetentionSweep,
		IdempotencyKey: fmt.Sprintf("%s::%s", JobIDRetentionSweep, at.UTC().Format("2006-01-02")),
		DedupPolicy:    job.DedupPolicyDrop,
	}
}

// NewDeliverEventMessage builds the queue message for an on-demand delivery
// attempt of a single event.
func NewDeliverEventMessage(eventID string) *job.ExecutionMessage {
	id := strings.TrimSpace(eventID)
	return &job.ExecutionMessage{
		JobID:          JobIDDeliverEvent,
		Parameters:     map[string]any{paramEventID: id},
		IdempotencyKey: fmt.Sprintf("%s::%s", JobIDDeliverEvent, id),
		DedupPolicy:    job.DedupPolicyDrop,
	}
}

// EventIDFromMessage extracts the event id parameter from a delivery message.
func EventIDFromMessage(msg *job.ExecutionMessage) string {
	if msg == nil || msg.Parameters == nil {
		return ""
	}
	id, _ := msg.Parameters[paramEventID].(string)
	return strings.TrimSpace(id)
}

type Enqueuer struct {
	enqueuer queue.Enqueuer
}

func NewEnqueuer(enqueuer queue.Enqueuer) *Enqueuer {
	return &Enqueuer{enqueuer: enqueuer}
}

func (e *Enqueuer) EnqueueRetrySweep(ctx context.Context, at time.Time) (queue.EnqueueReceipt, error) {
	if e == nil || e.enqueuer == nil {
		return queue.EnqueueReceipt{}, fmt.Errorf("gojob: enqueuer is not configured")
	}
	return e.enqueuer.Enqueue(ctx, NewRetrySweepMessage(at))
}

func (e *Enqueuer) EnqueueRetentionSweep(ctx context.Context, at time.Time) (queue.EnqueueReceipt, error) {
	if e == nil || e.enqueuer == nil {
		return queue.EnqueueReceipt{}, fmt.Errorf("gojob: enqueuer is not configured")
	}
	return e.enqueuer.Enqueue(ctx, NewRetentionSweepMessage(at))
}

func (e *Enqueuer) EnqueueDelivery(ctx context.Context, eventID string) (queue.EnqueueReceipt, error) {
	if e == nil || e.enqueuer == nil {
		return queue.EnqueueReceipt{}, fmt.Errorf("gojob: enqueuer is not configured")
	}
	if strings.TrimSpace(eventID) == "" {
		return queue.EnqueueReceipt{}, fmt.Errorf("gojob: event id is required")
	}
	return e.enqueuer.Enqueue(ctx, NewDeliverEventMessage(eventID))
}

// Executor consumes webhook queue deliveries and dispatches them to the
// service. Delivery outcomes that are part of the retry protocol (an event
// that moved back to enqueued_retry) count as success here; the sweep owns
// the reschedule.
type Executor struct {
	service SweepService
	policy  RetryPolicy
	logger  core.Logger
}

func NewExecutor(service SweepService, policy RetryPolicy, logger core.Logger) *Executor {
	return &Executor{service: service, policy: policy, logger: logger}
}

// Execute runs one queue delivery and acks or nacks it. attempt is the
// 1-based consumer attempt used against the retry policy.
func (x *Executor) Execute(ctx context.Context, delivery queue.Delivery, attempt int) error {
	if x == nil || x.service == nil {
		return fmt.Errorf("gojob: executor service is not configured")
	}
	if delivery == nil {
		return fmt.Errorf("gojob: delivery is required")
	}
	msg := delivery.Message()
	if msg == nil {
		return fmt.Errorf("gojob: delivery has no message")
	}

	runErr := x.run(ctx, msg)
	if runErr == nil {
		return delivery.Ack(ctx)
	}

	if x.logger != nil {
		x.logger.Warn("webhook job failed",
			"job_id", msg.JobID,
			"attempt", attempt,
			"error", runErr.Error(),
		)
	}
	opts := x.policy.Normalize(queue.NackOptions{
		Disposition: queue.NackDispositionRetry,
		Reason:      runErr.Error(),
	}, attempt)
	if err := delivery.Nack(ctx, opts); err != nil {
		return err
	}
	return runErr
}

func (x *Executor) run(ctx context.Context, msg *job.ExecutionMessage) error {
	switch msg.JobID {
	case JobIDRetrySweep:
		_, err := x.service.RunOnce(ctx)
		return err
	case JobIDRetentionSweep:
		_, _, err := x.service.RunOnceDaily(ctx)
		return err
	case JobIDDeliverEvent:
		eventID := EventIDFromMessage(msg)
		if eventID == "" {
			return fmt.Errorf("gojob: delivery message has no event id")
		}
		_, err := x.service.AttemptNow(ctx, eventID)
		return err
	default:
		return fmt.Errorf("gojob: unknown job id %q", msg.JobID)
	}
}
