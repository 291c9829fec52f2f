package sqlstore

import (
	"context"
	"sync"
	"testing"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-webhooks/core"
)

type stubEndpointStore struct {
	mu           sync.Mutex
	endpoint     core.Endpoint
	getCalls     int
	enableCalls  int
	incCalls     int
	resetCalls   int
	enableResult bool
}

func (s *stubEndpointStore) Create(_ context.Context, _ core.RegisterEndpointInput) (core.Endpoint, error) {
	return s.endpoint, nil
}

func (s *stubEndpointStore) Get(_ context.Context, _ string) (core.Endpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	return s.endpoint, nil
}

func (s *stubEndpointStore) List(_ context.Context, _ core.EndpointFilter) ([]core.Endpoint, error) {
	return []core.Endpoint{s.endpoint}, nil
}

func (s *stubEndpointStore) SetEnabled(_ context.Context, _ string, enabled bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enableCalls++
	s.endpoint.Enabled = enabled
	return s.enableResult, nil
}

func (s *stubEndpointStore) DisableIfEnabled(ctx context.Context, id string) (bool, error) {
	return s.SetEnabled(ctx, id, false)
}

func (s *stubEndpointStore) IncrementFailureCount(_ context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incCalls++
	s.endpoint.FailureCount++
	return nil
}

func (s *stubEndpointStore) ResetFailureCount(_ context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetCalls++
	s.endpoint.FailureCount = 0
	return nil
}

func (s *stubEndpointStore) ListDisabledBetween(_ context.Context, _, _ time.Time) ([]core.Endpoint, error) {
	return nil, nil
}

func newTestEndpointCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}

func TestCachedEndpointStore_Get_MissFetchThenHit(t *testing.T) {
	cacheService := newTestEndpointCacheService(t)
	base := &stubEndpointStore{
		endpoint: core.Endpoint{ID: "ep-cache-1", URL: "https://example.com/hook", Enabled: true},
	}

	store, err := NewCachedEndpointStore(base, cacheService)
	if err != nil {
		t.Fatalf("new cached endpoint store: %v", err)
	}

	if _, err := store.Get(context.Background(), "ep-cache-1"); err != nil {
		t.Fatalf("first get: %v", err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected first get to fetch base store once, got %d", base.getCalls)
	}

	if _, err := store.Get(context.Background(), "ep-cache-1"); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected second get to be cache hit, base get calls=%d", base.getCalls)
	}
}

func TestCachedEndpointStore_SetEnabled_InvalidatesCachedKey(t *testing.T) {
	cacheService := newTestEndpointCacheService(t)
	base := &stubEndpointStore{
		endpoint:     core.Endpoint{ID: "ep-cache-2", URL: "https://example.com/hook", Enabled: true},
		enableResult: true,
	}

	store, err := NewCachedEndpointStore(base, cacheService)
	if err != nil {
		t.Fatalf("new cached endpoint store: %v", err)
	}

	if _, err := store.Get(context.Background(), "ep-cache-2"); err != nil {
		t.Fatalf("prime cache with get: %v", err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected one base read after cache prime, got %d", base.getCalls)
	}

	changed, err := store.SetEnabled(context.Background(), "ep-cache-2", false)
	if err != nil {
		t.Fatalf("set enabled through cached store: %v", err)
	}
	if !changed {
		t.Fatalf("expected SetEnabled to report a change")
	}

	endpoint, err := store.Get(context.Background(), "ep-cache-2")
	if err != nil {
		t.Fatalf("get after invalidation: %v", err)
	}
	if base.getCalls != 2 {
		t.Fatalf("expected invalidation to force a base re-read, got %d calls", base.getCalls)
	}
	if endpoint.Enabled {
		t.Fatalf("expected disabled endpoint after invalidated read")
	}
}

func TestCachedEndpointStore_FailureCountWritesInvalidate(t *testing.T) {
	cacheService := newTestEndpointCacheService(t)
	base := &stubEndpointStore{
		endpoint: core.Endpoint{ID: "ep-cache-3", URL: "https://example.com/hook", Enabled: true},
	}

	store, err := NewCachedEndpointStore(base, cacheService)
	if err != nil {
		t.Fatalf("new cached endpoint store: %v", err)
	}

	if _, err := store.Get(context.Background(), "ep-cache-3"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	if err := store.IncrementFailureCount(context.Background(), "ep-cache-3"); err != nil {
		t.Fatalf("increment failure count: %v", err)
	}
	endpoint, err := store.Get(context.Background(), "ep-cache-3")
	if err != nil {
		t.Fatalf("get after increment: %v", err)
	}
	if endpoint.FailureCount != 1 {
		t.Fatalf("failure count = %d, want 1", endpoint.FailureCount)
	}

	if err := store.ResetFailureCount(context.Background(), "ep-cache-3"); err != nil {
		t.Fatalf("reset failure count: %v", err)
	}
	endpoint, err = store.Get(context.Background(), "ep-cache-3")
	if err != nil {
		t.Fatalf("get after reset: %v", err)
	}
	if endpoint.FailureCount != 0 {
		t.Fatalf("failure count = %d, want 0 after reset", endpoint.FailureCount)
	}
}
