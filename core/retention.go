package core

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// RetentionSweeper deletes event records older than the retention window and
// drives the daily "still disabled" reminders. Execution is gated to at most
// one effective run per UTC day at a fixed minute-of-day; the gate is a
// persisted ledger key, so it holds across restarts and across schedulers
// firing the entry point more than once.
type RetentionSweeper struct {
	events        DeliveryEventStore
	endpoints     EndpointStore
	ledger        NotificationDispatchLedger
	sender        NotificationSender
	retention     RetentionConfig
	notifications NotificationConfig
	logger        Logger
	now           func() time.Time
}

func NewRetentionSweeper(
	events DeliveryEventStore,
	endpoints EndpointStore,
	ledger NotificationDispatchLedger,
	sender NotificationSender,
	retention RetentionConfig,
	notifications NotificationConfig,
	logger Logger,
) (*RetentionSweeper, error) {
	if events == nil || endpoints == nil {
		return nil, fmt.Errorf("core: retention sweeper requires event and endpoint stores")
	}
	if ledger == nil {
		return nil, fmt.Errorf("core: retention sweeper requires a notification dispatch ledger")
	}
	if retention.Window <= 0 {
		retention.Window = DefaultConfig().Retention.Window
	}
	if notifications.DisabledReminderDays <= 0 {
		notifications.DisabledReminderDays = DefaultConfig().Notifications.DisabledReminderDays
	}
	return &RetentionSweeper{
		events:        events,
		endpoints:     endpoints,
		ledger:        ledger,
		sender:        sender,
		retention:     retention,
		notifications: notifications,
		logger:        logger,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

// WithClock replaces the clock. Test hook.
func (s *RetentionSweeper) WithClock(now func() time.Time) *RetentionSweeper {
	if now != nil {
		s.now = now
	}
	return s
}

// RunOnceDaily performs the daily sweep. The second return value reports
// whether this call actually ran; a repeat call inside the same UTC day, or
// a call before the configured minute-of-day, is an idempotent no-op.
func (s *RetentionSweeper) RunOnceDaily(ctx context.Context) (int64, bool, error) {
	if s == nil || s.events == nil {
		return 0, false, fmt.Errorf("core: retention sweeper is not configured")
	}
	now := s.now().UTC()
	if now.Hour()*60+now.Minute() < s.retention.MinuteOfDay {
		return 0, false, nil
	}

	dayKey := dispatchKey("retention", now.Format("2006-01-02"))
	seen, err := s.ledger.Seen(ctx, dayKey)
	if err != nil {
		return 0, false, err
	}
	if seen {
		return 0, false, nil
	}

	deleted, err := s.events.DeleteOlderThan(ctx, now.Add(-s.retention.Window))
	if err != nil {
		// The day key is not recorded yet, so a later call retries the sweep.
		return 0, false, err
	}
	if err := s.ledger.Record(ctx, NotificationDispatch{
		Kind:           "webhook.retention.sweep",
		RecipientKey:   "system",
		IdempotencyKey: dayKey,
		Status:         "sent",
	}); err != nil {
		return deleted, true, err
	}
	if s.logger != nil {
		s.logger.Info("retention sweep completed", "deleted", deleted)
	}

	if err := s.sendDisabledReminders(ctx, now); err != nil {
		return deleted, true, err
	}
	return deleted, true, nil
}

func (s *RetentionSweeper) sendDisabledReminders(ctx context.Context, now time.Time) error {
	var remindErr error
	for day := 1; day <= s.notifications.DisabledReminderDays; day++ {
		from := now.Add(-time.Duration(day+1) * 24 * time.Hour)
		to := now.Add(-time.Duration(day) * 24 * time.Hour)
		endpoints, err := s.endpoints.ListDisabledBetween(ctx, from, to)
		if err != nil {
			remindErr = joinErrors(remindErr, err)
			continue
		}
		for _, endpoint := range endpoints {
			if err := s.remind(ctx, endpoint, day, now); err != nil {
				remindErr = joinErrors(remindErr, err)
			}
		}
	}
	return remindErr
}

func (s *RetentionSweeper) remind(ctx context.Context, endpoint Endpoint, day int, now time.Time) error {
	// The disable timestamp scopes the key to one disable episode, so an
	// endpoint disabled again after a re-enable gets a fresh reminder run.
	episode := ""
	if endpoint.DisabledAt != nil {
		episode = endpoint.DisabledAt.UTC().Format(time.RFC3339)
	}
	key := dispatchKey("still-disabled", endpoint.ID, episode, strconv.Itoa(day))
	seen, err := s.ledger.Seen(ctx, key)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	status := "sent"
	sendErr := ""
	if s.sender != nil {
		if err := s.sender.Send(ctx, Notification{
			Kind:       NotificationStillDisabled,
			Endpoint:   endpoint,
			DaysSince:  day,
			OccurredAt: now,
		}); err != nil {
			status = "failed"
			sendErr = err.Error()
		}
	}
	if err := s.ledger.Record(ctx, NotificationDispatch{
		EndpointID:     endpoint.ID,
		Kind:           NotificationStillDisabled,
		RecipientKey:   endpoint.OwnerEmail,
		IdempotencyKey: key,
		Status:         status,
		Error:          sendErr,
	}); err != nil {
		return err
	}
	if sendErr != "" {
		return fmt.Errorf("core: send still-disabled reminder for endpoint %q: %s", endpoint.ID, sendErr)
	}
	return nil
}
