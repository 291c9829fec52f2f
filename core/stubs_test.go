package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memEndpointStore struct {
	mu        sync.Mutex
	endpoints map[string]Endpoint
	nextID    int
	now       func() time.Time
}

func newMemEndpointStore(now func() time.Time) *memEndpointStore {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &memEndpointStore{
		endpoints: map[string]Endpoint{},
		now:       now,
	}
}

func (s *memEndpointStore) put(endpoint Endpoint) Endpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if endpoint.ID == "" {
		s.nextID++
		endpoint.ID = fmt.Sprintf("ep-%d", s.nextID)
	}
	s.endpoints[endpoint.ID] = endpoint
	return endpoint
}

func (s *memEndpointStore) Create(ctx context.Context, in RegisterEndpointInput) (Endpoint, error) {
	now := s.now()
	return s.put(Endpoint{
		OwnerID:    in.OwnerID,
		OwnerEmail: in.OwnerEmail,
		URL:        in.URL,
		EventTypes: in.EventTypes,
		Version:    in.Version,
		Enabled:    true,
		EnabledAt:  &now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}), nil
}

func (s *memEndpointStore) Get(ctx context.Context, id string) (Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	endpoint, ok := s.endpoints[id]
	if !ok {
		return Endpoint{}, fmt.Errorf("%w: %s", ErrEndpointNotFound, id)
	}
	return endpoint, nil
}

func (s *memEndpointStore) List(ctx context.Context, filter EndpointFilter) ([]Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Endpoint
	for _, endpoint := range s.endpoints {
		if filter.OwnerID != "" && endpoint.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Enabled != nil && endpoint.Enabled != *filter.Enabled {
			continue
		}
		out = append(out, endpoint)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memEndpointStore) SetEnabled(ctx context.Context, id string, enabled bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	endpoint, ok := s.endpoints[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrEndpointNotFound, id)
	}
	if endpoint.Enabled == enabled {
		return false, nil
	}
	now := s.now()
	endpoint.Enabled = enabled
	if enabled {
		endpoint.EnabledAt = &now
	} else {
		endpoint.DisabledAt = &now
	}
	endpoint.UpdatedAt = now
	s.endpoints[id] = endpoint
	return true, nil
}

func (s *memEndpointStore) DisableIfEnabled(ctx context.Context, id string) (bool, error) {
	return s.SetEnabled(ctx, id, false)
}

func (s *memEndpointStore) IncrementFailureCount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	endpoint, ok := s.endpoints[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEndpointNotFound, id)
	}
	endpoint.FailureCount++
	s.endpoints[id] = endpoint
	return nil
}

func (s *memEndpointStore) ResetFailureCount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	endpoint, ok := s.endpoints[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEndpointNotFound, id)
	}
	endpoint.FailureCount = 0
	s.endpoints[id] = endpoint
	return nil
}

func (s *memEndpointStore) ListDisabledBetween(ctx context.Context, from, to time.Time) ([]Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Endpoint
	for _, endpoint := range s.endpoints {
		if endpoint.Enabled || endpoint.DisabledAt == nil {
			continue
		}
		at := *endpoint.DisabledAt
		if !at.Before(from) && at.Before(to) {
			out = append(out, endpoint)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memEventStore struct {
	mu        sync.Mutex
	events    map[string]DeliveryEvent
	endpoints *memEndpointStore
	nextID    int
	now       func() time.Time
	deleteErr error
}

func newMemEventStore(endpoints *memEndpointStore, now func() time.Time) *memEventStore {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &memEventStore{
		events:    map[string]DeliveryEvent{},
		endpoints: endpoints,
		now:       now,
	}
}

func (s *memEventStore) Create(ctx context.Context, event DeliveryEvent) (DeliveryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.EventID == "" {
		s.nextID++
		event.EventID = fmt.Sprintf("ev-%d", s.nextID)
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	event.UpdatedAt = event.CreatedAt
	s.events[event.EventID] = event
	return event, nil
}

func (s *memEventStore) Get(ctx context.Context, eventID string) (DeliveryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return DeliveryEvent{}, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	return event, nil
}

func (s *memEventStore) List(ctx context.Context, filter EventFilter) ([]DeliveryEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []DeliveryEvent
	for _, event := range s.events {
		if filter.EndpointID != "" && event.EndpointID != filter.EndpointID {
			continue
		}
		if filter.Status != "" && event.Status != filter.Status {
			continue
		}
		if filter.Debug != nil && event.Debug != *filter.Debug {
			continue
		}
		out = append(out, event)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memEventStore) ClaimDue(ctx context.Context, now time.Time, cutoff time.Duration, limit int) (ClaimedBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var batch ClaimedBatch
	var candidates []DeliveryEvent
	for _, event := range s.events {
		if event.Debug {
			continue
		}
		if event.Status != EventStatusEnqueuedRetry && event.Status != EventStatusEndpointDisabled {
			continue
		}

		var endpoint Endpoint
		if s.endpoints != nil {
			if found, err := s.endpoints.Get(ctx, event.EndpointID); err == nil {
				endpoint = found
			}
		}

		if event.Status == EventStatusEndpointDisabled && endpoint.Enabled && endpoint.ReenabledSince(event.UpdatedAt) {
			event.Status = EventStatusEnqueuedRetry
			event.RetryCounter = 0
			retryAt := now
			event.NextRetryAt = &retryAt
			s.events[event.EventID] = event
			batch.Resets++
		}

		// The cutoff applies to parked rows too, enabled endpoint or not.
		if cutoff > 0 && now.Sub(event.CreatedAt) > cutoff {
			event.Status = EventStatusFailed
			event.NextRetryAt = nil
			event.ErrorMessage = "retry window exhausted"
			event.UpdatedAt = now
			s.events[event.EventID] = event
			batch.Staled++
			continue
		}
		if !endpoint.Enabled {
			continue
		}
		if event.NextRetryAt == nil || event.NextRetryAt.After(now) {
			continue
		}
		candidates = append(candidates, event)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	for _, event := range candidates {
		event.Status = EventStatusInProgress
		event.UpdatedAt = now
		s.events[event.EventID] = event
		batch.Events = append(batch.Events, event)
	}
	return batch, nil
}

func (s *memEventStore) ApplyDecision(ctx context.Context, eventID string, decision Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	event.Status = decision.Status
	event.RetryCounter = decision.RetryCounter
	event.NextRetryAt = decision.NextRetryAt
	event.StatusCode = decision.StatusCode
	event.ResponseBody = decision.ResponseBody
	event.ErrorMessage = decision.ErrorMessage
	event.UpdatedAt = s.now()
	s.events[eventID] = event
	return nil
}

func (s *memEventStore) MarkEndpointDisabled(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	event.Status = EventStatusEndpointDisabled
	event.NextRetryAt = nil
	event.UpdatedAt = s.now()
	s.events[eventID] = event
	return nil
}

func (s *memEventStore) OldestFailing(ctx context.Context, endpointID string) (DeliveryEvent, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var oldest DeliveryEvent
	found := false
	for _, event := range s.events {
		if event.EndpointID != endpointID || event.Debug {
			continue
		}
		if event.Status != EventStatusEnqueuedRetry && event.Status != EventStatusInProgress {
			continue
		}
		if !found || event.CreatedAt.Before(oldest.CreatedAt) {
			oldest = event
			found = true
		}
	}
	return oldest, found, nil
}

func (s *memEventStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	var deleted int64
	for id, event := range s.events {
		if event.CreatedAt.Before(cutoff) {
			delete(s.events, id)
			deleted++
		}
	}
	return deleted, nil
}

type memLedger struct {
	mu      sync.Mutex
	entries map[string]NotificationDispatch
}

func newMemLedger() *memLedger {
	return &memLedger{entries: map[string]NotificationDispatch{}}
}

func (l *memLedger) Seen(ctx context.Context, idempotencyKey string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[idempotencyKey]
	return ok, nil
}

func (l *memLedger) Record(ctx context.Context, input NotificationDispatch) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[input.IdempotencyKey]; ok {
		return nil
	}
	l.entries[input.IdempotencyKey] = input
	return nil
}

func (l *memLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

type recordingSender struct {
	mu            sync.Mutex
	notifications []Notification
	err           error
}

func (s *recordingSender) Send(ctx context.Context, notification Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.notifications = append(s.notifications, notification)
	return nil
}

func (s *recordingSender) sent() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

type scriptedAttempter struct {
	mu       sync.Mutex
	outcomes map[string][]Outcome
	fallback Outcome
	attempts int
}

func newScriptedAttempter(fallback Outcome) *scriptedAttempter {
	return &scriptedAttempter{
		outcomes: map[string][]Outcome{},
		fallback: fallback,
	}
}

func (a *scriptedAttempter) script(eventID string, outcomes ...Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outcomes[eventID] = append(a.outcomes[eventID], outcomes...)
}

func (a *scriptedAttempter) Attempt(ctx context.Context, event DeliveryEvent, endpoint Endpoint) Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attempts++
	queue := a.outcomes[event.EventID]
	if len(queue) == 0 {
		return a.fallback
	}
	next := queue[0]
	a.outcomes[event.EventID] = queue[1:]
	return next
}

var (
	_ EndpointStore              = (*memEndpointStore)(nil)
	_ DeliveryEventStore         = (*memEventStore)(nil)
	_ NotificationDispatchLedger = (*memLedger)(nil)
	_ NotificationSender         = (*recordingSender)(nil)
	_ Attempter                  = (*scriptedAttempter)(nil)
)
