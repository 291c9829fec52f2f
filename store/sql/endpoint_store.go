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

type EndpointStore struct {
	db   *bun.DB
	repo repository.Repository[*endpointRecord]
}

func NewEndpointStore(db *bun.DB) (*EndpointStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*endpointRecord](db, endpointHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid endpoint repository wiring: %w", err)
		}
	}
	return &EndpointStore{db: db, repo: repo}, nil
}

func (s *EndpointStore) Create(ctx context.Context, in core.RegisterEndpointInput) (core.Endpoint, error) {
	if s == nil || s.db == nil {
		return core.Endpoint{}, fmt.Errorf("sqlstore: endpoint store is not configured")
	}
	record := newEndpointRecord(in, time.Now().UTC())
	record.ID = uuid.NewString()
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return core.Endpoint{}, err
	}
	return record.toDomain(), nil
}

func (s *EndpointStore) Get(ctx context.Context, id string) (core.Endpoint, error) {
	if s == nil || s.repo == nil {
		return core.Endpoint{}, fmt.Errorf("sqlstore: endpoint store is not configured")
	}
	record, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isNotFoundError(err) {
			return core.Endpoint{}, fmt.Errorf("%w: %s", core.ErrEndpointNotFound, id)
		}
		return core.Endpoint{}, err
	}
	return record.toDomain(), nil
}

func (s *EndpointStore) List(ctx context.Context, filter core.EndpointFilter) ([]core.Endpoint, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: endpoint store is not configured")
	}
	criteria := []repository.SelectCriteria{
		repository.OrderBy("created_at ASC"),
	}
	if owner := strings.TrimSpace(filter.OwnerID); owner != "" {
		criteria = append(criteria, repository.SelectBy("owner_id", "=", owner))
	}
	if filter.Enabled != nil {
		enabled := *filter.Enabled
		criteria = append(criteria, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.enabled = ?", enabled)
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
	endpoints := make([]core.Endpoint, 0, len(records))
	for _, record := range records {
		endpoints = append(endpoints, record.toDomain())
	}
	return endpoints, nil
}

func (s *EndpointStore) SetEnabled(ctx context.Context, id string, enabled bool) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlstore: endpoint store is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return false, fmt.Errorf("sqlstore: endpoint id is required")
	}
	now := time.Now().UTC()
	query := s.db.NewUpdate().
		Model((*endpointRecord)(nil)).
		Set("enabled = ?", enabled).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("enabled = ?", !enabled)
	if enabled {
		query = query.Set("enabled_at = ?", now)
	} else {
		query = query.Set("disabled_at = ?", now)
	}
	result, err := query.Exec(ctx)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		// Either a no-op toggle or an unknown id; only the latter is an error.
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return false, getErr
		}
		return false, nil
	}
	return true, nil
}

func (s *EndpointStore) DisableIfEnabled(ctx context.Context, id string) (bool, error) {
	return s.SetEnabled(ctx, id, false)
}

func (s *EndpointStore) IncrementFailureCount(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: endpoint store is not configured")
	}
	_, err := s.db.NewUpdate().
		Model((*endpointRecord)(nil)).
		Set("failure_count = failure_count + 1").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", strings.TrimSpace(id)).
		Exec(ctx)
	return err
}

func (s *EndpointStore) ResetFailureCount(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: endpoint store is not configured")
	}
	_, err := s.db.NewUpdate().
		Model((*endpointRecord)(nil)).
		Set("failure_count = 0").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", strings.TrimSpace(id)).
		Where("failure_count <> 0").
		Exec(ctx)
	return err
}

func (s *EndpointStore) ListDisabledBetween(ctx context.Context, from, to time.Time) ([]core.Endpoint, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: endpoint store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.enabled = ?", false).
				Where("?TableAlias.disabled_at IS NOT NULL").
				Where("?TableAlias.disabled_at >= ?", from.UTC()).
				Where("?TableAlias.disabled_at < ?", to.UTC())
		}),
		repository.OrderBy("disabled_at ASC"),
	)
	if err != nil {
		return nil, err
	}
	endpoints := make([]core.Endpoint, 0, len(records))
	for _, record := range records {
		endpoints = append(endpoints, record.toDomain())
	}
	return endpoints, nil
}

func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "not found") || strings.Contains(text, "no rows")
}

var _ core.EndpointStore = (*EndpointStore)(nil)
