package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-webhooks/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type DeliveryEventStore struct {
	db   *bun.DB
	repo repository.Repository[*deliveryEventRecord]
}

func NewDeliveryEventStore(db *bun.DB) (*DeliveryEventStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*deliveryEventRecord](db, deliveryEventHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid delivery event repository wiring: %w", err)
		}
	}
	return &DeliveryEventStore{db: db, repo: repo}, nil
}

func (s *DeliveryEventStore) Create(ctx context.Context, event core.DeliveryEvent) (core.DeliveryEvent, error) {
	if s == nil || s.db == nil {
		return core.DeliveryEvent{}, fmt.Errorf("sqlstore: delivery event store is not configured")
	}
	if strings.TrimSpace(event.EndpointID) == "" {
		return core.DeliveryEvent{}, fmt.Errorf("sqlstore: delivery event endpoint id is required")
	}
	if !event.Status.Valid() {
		return core.DeliveryEvent{}, fmt.Errorf("%w: %q", core.ErrInvalidEventStatus, event.Status)
	}
	record := newDeliveryEventRecord(event, time.Now().UTC())
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return core.DeliveryEvent{}, err
	}
	return record.toDomain(), nil
}

func (s *DeliveryEventStore) Get(ctx context.Context, eventID string) (core.DeliveryEvent, error) {
	if s == nil || s.repo == nil {
		return core.DeliveryEvent{}, fmt.Errorf("sqlstore: delivery event store is not configured")
	}
	record, err := s.repo.GetByID(ctx, strings.TrimSpace(eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isNotFoundError(err) {
			return core.DeliveryEvent{}, fmt.Errorf("%w: %s", core.ErrEventNotFound, eventID)
		}
		return core.DeliveryEvent{}, err
	}
	return record.toDomain(), nil
}

func (s *DeliveryEventStore) List(ctx context.Context, filter core.EventFilter) ([]core.DeliveryEvent, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: delivery event store is not configured")
	}
	criteria := []repository.SelectCriteria{
		repository.OrderBy("created_at DESC"),
	}
	if endpointID := strings.TrimSpace(filter.EndpointID); endpointID != "" {
		criteria = append(criteria, repository.SelectBy("endpoint_id", "=", endpointID))
	}
	if filter.Status != "" {
		criteria = append(criteria, repository.SelectBy("status", "=", string(filter.Status)))
	}
	if owner := strings.TrimSpace(filter.OwnerID); owner != "" {
		criteria = append(criteria, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where(
				"?TableAlias.endpoint_id IN (SELECT id FROM webhook_endpoints WHERE owner_id = ?)",
				owner,
			)
		}))
	}
	if filter.Debug != nil {
		debug := *filter.Debug
		criteria = append(criteria, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.debug = ?", debug)
		}))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	criteria = append(criteria, repository.SelectPaginate(limit, filter.Offset))

	records, _, err := s.repo.List(ctx, criteria...)
	if err != nil {
		return nil, err
	}
	events := make([]core.DeliveryEvent, 0, len(records))
	for _, record := range records {
		events = append(events, record.toDomain())
	}
	return events, nil
}

// ClaimDue runs the whole sweep selection inside one transaction: fail rows
// past the cutoff, restore rows whose endpoint was re-enabled, then claim the
// due remainder by flipping them to in_progress.
func (s *DeliveryEventStore) ClaimDue(
	ctx context.Context,
	now time.Time,
	cutoff time.Duration,
	limit int,
) (core.ClaimedBatch, error) {
	if s == nil || s.db == nil {
		return core.ClaimedBatch{}, fmt.Errorf("sqlstore: delivery event store is not configured")
	}
	if limit <= 0 {
		limit = 1
	}
	now = now.UTC()
	staleBefore := now.Add(-cutoff)

	var batch core.ClaimedBatch
	var records []deliveryEventRecord
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		resetResult, err := tx.NewUpdate().
			Model((*deliveryEventRecord)(nil)).
			Set("status = ?", string(core.EventStatusEnqueuedRetry)).
			Set("retry_counter = 0").
			Set("next_retry_at = ?", now).
			Set("updated_at = ?", now).
			Where("status = ?", string(core.EventStatusEndpointDisabled)).
			Where("debug = ?", false).
			Where("EXISTS (SELECT 1 FROM webhook_endpoints AS we WHERE we.id = ?TableAlias.endpoint_id AND we.enabled = ? AND we.enabled_at > ?TableAlias.updated_at)", true).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("sqlstore: restore re-enabled events: %w", err)
		}
		if affected, err := resetResult.RowsAffected(); err == nil {
			batch.Resets = int(affected)
		}

		if cutoff > 0 {
			staleResult, err := tx.NewUpdate().
				Model((*deliveryEventRecord)(nil)).
				Set("status = ?", string(core.EventStatusFailed)).
				Set("next_retry_at = NULL").
				Set("error_message = ?", "retry window exhausted").
				Set("updated_at = ?", now).
				Where("status IN (?, ?)",
					string(core.EventStatusEnqueuedRetry),
					string(core.EventStatusEndpointDisabled),
				).
				Where("debug = ?", false).
				Where("created_at < ?", staleBefore).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("sqlstore: fail stale events: %w", err)
			}
			if affected, err := staleResult.RowsAffected(); err == nil {
				batch.Staled = int(affected)
			}
		}

		query := `
WITH claimed AS (
	SELECT wde.id
	FROM webhook_delivery_events AS wde
	JOIN webhook_endpoints AS we ON we.id = wde.endpoint_id
	WHERE wde.status = ?
	  AND wde.debug = ?
	  AND we.enabled = ?
	  AND wde.next_retry_at IS NOT NULL
	  AND wde.next_retry_at <= ?
	ORDER BY wde.created_at ASC
	LIMIT ?
)
UPDATE webhook_delivery_events
SET status = ?, updated_at = ?
WHERE id IN (SELECT id FROM claimed)
  AND status = ?
RETURNING
	id,
	endpoint_id,
	event_type,
	payload,
	status,
	retry_counter,
	next_retry_at,
	status_code,
	response_body,
	error_message,
	debug,
	created_at,
	updated_at
`
		return tx.NewRaw(
			query,
			string(core.EventStatusEnqueuedRetry),
			false,
			true,
			now,
			limit,
			string(core.EventStatusInProgress),
			now,
			string(core.EventStatusEnqueuedRetry),
		).Scan(ctx, &records)
	})
	if err != nil {
		return core.ClaimedBatch{}, err
	}

	batch.Events = make([]core.DeliveryEvent, 0, len(records))
	for _, record := range records {
		batch.Events = append(batch.Events, record.toDomain())
	}
	return batch, nil
}

func (s *DeliveryEventStore) ApplyDecision(ctx context.Context, eventID string, decision core.Decision) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: delivery event store is not configured")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return fmt.Errorf("sqlstore: event id is required")
	}
	if !decision.Status.Valid() {
		return fmt.Errorf("%w: %q", core.ErrInvalidEventStatus, decision.Status)
	}

	var nextRetryAt *time.Time
	if decision.NextRetryAt != nil {
		value := decision.NextRetryAt.UTC()
		nextRetryAt = &value
	}
	result, err := s.db.NewUpdate().
		Model((*deliveryEventRecord)(nil)).
		Set("status = ?", string(decision.Status)).
		Set("retry_counter = ?", decision.RetryCounter).
		Set("next_retry_at = ?", nextRetryAt).
		Set("status_code = ?", decision.StatusCode).
		Set("response_body = ?", decision.ResponseBody).
		Set("error_message = ?", decision.ErrorMessage).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", eventID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", core.ErrEventNotFound, eventID)
	}
	return nil
}

func (s *DeliveryEventStore) MarkEndpointDisabled(ctx context.Context, eventID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: delivery event store is not configured")
	}
	_, err := s.db.NewUpdate().
		Model((*deliveryEventRecord)(nil)).
		Set("status = ?", string(core.EventStatusEndpointDisabled)).
		Set("next_retry_at = NULL").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", strings.TrimSpace(eventID)).
		Exec(ctx)
	return err
}

func (s *DeliveryEventStore) OldestFailing(ctx context.Context, endpointID string) (core.DeliveryEvent, bool, error) {
	if s == nil || s.repo == nil {
		return core.DeliveryEvent{}, false, fmt.Errorf("sqlstore: delivery event store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("endpoint_id", "=", strings.TrimSpace(endpointID)),
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.debug = ?", false).
				Where("?TableAlias.status IN (?, ?)",
					string(core.EventStatusEnqueuedRetry),
					string(core.EventStatusInProgress),
				)
		}),
		repository.OrderBy("created_at ASC"),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.DeliveryEvent{}, false, err
	}
	if len(records) == 0 {
		return core.DeliveryEvent{}, false, nil
	}
	return records[0].toDomain(), true, nil
}

func (s *DeliveryEventStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: delivery event store is not configured")
	}
	result, err := s.db.NewDelete().
		Model((*deliveryEventRecord)(nil)).
		Where("created_at < ?", cutoff.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

var _ core.DeliveryEventStore = (*DeliveryEventStore)(nil)
