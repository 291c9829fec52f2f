package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-webhooks/core"
)

const endpointCacheKeyPrefix = "go-webhooks::endpoint::v1"

// CachedEndpointStore wraps an EndpointStore with read-through caching on
// Get. Endpoint rows are read on every delivery attempt, so this is the hot
// path; every write invalidates the cached entry.
type CachedEndpointStore struct {
	base  core.EndpointStore
	cache repositorycache.CacheService
}

func NewCachedEndpointStore(
	base core.EndpointStore,
	cacheService repositorycache.CacheService,
) (*CachedEndpointStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base endpoint store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: endpoint cache service is required")
	}
	return &CachedEndpointStore{base: base, cache: cacheService}, nil
}

// EndpointCacheKey returns the deterministic cache key for one endpoint:
// go-webhooks::endpoint::v1::<id> with the id URL-path escaped.
func EndpointCacheKey(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", fmt.Errorf("sqlstore: endpoint id is required")
	}
	return endpointCacheKeyPrefix + "::" + url.PathEscape(trimmed), nil
}

func (s *CachedEndpointStore) Get(ctx context.Context, id string) (core.Endpoint, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Endpoint{}, fmt.Errorf("sqlstore: cached endpoint store is not configured")
	}
	cacheKey, err := EndpointCacheKey(id)
	if err != nil {
		return core.Endpoint{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.Endpoint, error) {
		return s.base.Get(ctx, strings.TrimSpace(id))
	})
}

func (s *CachedEndpointStore) Create(ctx context.Context, in core.RegisterEndpointInput) (core.Endpoint, error) {
	if s == nil || s.base == nil {
		return core.Endpoint{}, fmt.Errorf("sqlstore: cached endpoint store is not configured")
	}
	return s.base.Create(ctx, in)
}

func (s *CachedEndpointStore) List(ctx context.Context, filter core.EndpointFilter) ([]core.Endpoint, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached endpoint store is not configured")
	}
	return s.base.List(ctx, filter)
}

func (s *CachedEndpointStore) SetEnabled(ctx context.Context, id string, enabled bool) (bool, error) {
	if s == nil || s.base == nil {
		return false, fmt.Errorf("sqlstore: cached endpoint store is not configured")
	}
	changed, err := s.base.SetEnabled(ctx, id, enabled)
	if err != nil {
		return changed, err
	}
	if invalidateErr := s.invalidate(ctx, id); invalidateErr != nil {
		return changed, invalidateErr
	}
	return changed, nil
}

func (s *CachedEndpointStore) DisableIfEnabled(ctx context.Context, id string) (bool, error) {
	if s == nil || s.base == nil {
		return false, fmt.Errorf("sqlstore: cached endpoint store is not configured")
	}
	changed, err := s.base.DisableIfEnabled(ctx, id)
	if err != nil {
		return changed, err
	}
	if invalidateErr := s.invalidate(ctx, id); invalidateErr != nil {
		return changed, invalidateErr
	}
	return changed, nil
}

func (s *CachedEndpointStore) IncrementFailureCount(ctx context.Context, id string) error {
	if s == nil || s.base == nil {
		return fmt.Errorf("sqlstore: cached endpoint store is not configured")
	}
	if err := s.base.IncrementFailureCount(ctx, id); err != nil {
		return err
	}
	return s.invalidate(ctx, id)
}

func (s *CachedEndpointStore) ResetFailureCount(ctx context.Context, id string) error {
	if s == nil || s.base == nil {
		return fmt.Errorf("sqlstore: cached endpoint store is not configured")
	}
	if err := s.base.ResetFailureCount(ctx, id); err != nil {
		return err
	}
	return s.invalidate(ctx, id)
}

func (s *CachedEndpointStore) ListDisabledBetween(ctx context.Context, from, to time.Time) ([]core.Endpoint, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached endpoint store is not configured")
	}
	return s.base.ListDisabledBetween(ctx, from, to)
}

func (s *CachedEndpointStore) invalidate(ctx context.Context, id string) error {
	if s.cache == nil {
		return nil
	}
	cacheKey, err := EndpointCacheKey(id)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

var _ core.EndpointStore = (*CachedEndpointStore)(nil)
