package core

import (
	"time"
)

const DefaultMaxRetries = 8

// BackoffScheduler computes retry timing and terminal-failure decisions.
// Pure: deterministic given "now", no side effects.
//
// The policy is a base-3 geometric ladder. The delay applied after the n-th
// failure is 3^n minutes, which puts the cumulative elapsed time since the
// first failure at 3, 12, 39, 120, 363, 1092 and 3279 minutes across seven
// retries, roughly 2.3 days before the budget runs out.
type BackoffScheduler struct {
	MaxRetries int
}

func NewBackoffScheduler(maxRetries int) BackoffScheduler {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return BackoffScheduler{MaxRetries: maxRetries}
}

func (s BackoffScheduler) maxRetries() int {
	if s.MaxRetries > 0 {
		return s.MaxRetries
	}
	return DefaultMaxRetries
}

// NextRetryAt returns the timestamp for the retry following the given
// previous retry counter value.
func (s BackoffScheduler) NextRetryAt(now time.Time, previousRetryCounter int) time.Time {
	if previousRetryCounter < 0 {
		previousRetryCounter = 0
	}
	delay := time.Minute
	for i := 0; i <= previousRetryCounter; i++ {
		delay *= 3
	}
	return now.Add(delay).UTC()
}

// Decide maps one attempt outcome onto the event's next persisted state.
func (s BackoffScheduler) Decide(event DeliveryEvent, outcome Outcome, now time.Time) Decision {
	decision := Decision{
		RetryCounter: event.RetryCounter,
		ResponseBody: outcome.ResponseBody,
	}
	if outcome.StatusCode != 0 {
		code := outcome.StatusCode
		decision.StatusCode = &code
	}

	if outcome.Success {
		decision.Status = EventStatusSuccessful
		decision.ErrorMessage = ""
		return decision
	}

	decision.ErrorMessage = outcome.ErrorMessage
	next := event.RetryCounter + 1
	if next >= s.maxRetries() {
		decision.Status = EventStatusFailed
		decision.RetryCounter = s.maxRetries()
		return decision
	}

	retryAt := s.NextRetryAt(now, event.RetryCounter)
	decision.Status = EventStatusEnqueuedRetry
	decision.RetryCounter = next
	decision.NextRetryAt = &retryAt
	return decision
}
