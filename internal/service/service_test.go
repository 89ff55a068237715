// file: internal/service/service_test.go
// version: 1.0.0
// guid: 2a7e4c91-8d35-4f60-b1c9-6e3d0a5f8b27

package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/jdfalk/bookmeta-orchestrator/internal/cache"
	"github.com/jdfalk/bookmeta-orchestrator/internal/config"
	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
	"github.com/jdfalk/bookmeta-orchestrator/internal/provider/providertest"
	"github.com/jdfalk/bookmeta-orchestrator/internal/providers/localparse"
	"github.com/jdfalk/bookmeta-orchestrator/internal/providers/openlibrary"
	"github.com/jdfalk/bookmeta-orchestrator/internal/quota"
	"github.com/jdfalk/bookmeta-orchestrator/internal/ratelimit"
	"github.com/jdfalk/bookmeta-orchestrator/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var fixedNow = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

func newService(t *testing.T, cfg config.Config, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithStore(quota.NewMemoryStore()), WithClock(func() time.Time { return fixedNow })}, opts...)
	s, err := New(cfg, zaptest.NewLogger(t), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func emptyEnv() provider.ContextOption {
	return provider.WithEnvironment(provider.MapEnvironment{})
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Quota.SoftCeiling = 0.95
	_, err := New(cfg, nil)
	assert.ErrorContains(t, err, "invalid config")

	cfg = config.Default()
	cfg.Store = quota.StoreConfig{Type: "pebble"}
	_, err = New(cfg, nil)
	assert.ErrorContains(t, err, "failed to open quota store")
}

func TestNewRejectsDuplicateRegistrations(t *testing.T) {
	reg := registry.Registration{Descriptor: localparse.Descriptor(), Adapter: localparse.New()}
	_, err := New(config.Default(), nil, WithStore(quota.NewMemoryStore()), WithRegistrations(reg, reg))
	assert.ErrorIs(t, err, registry.ErrDuplicateProvider)
}

func TestDefaultAdapters(t *testing.T) {
	names := func(regs []registry.Registration) []string {
		var out []string
		for _, r := range regs {
			out = append(out, r.Descriptor.Name)
		}
		return out
	}
	all := DefaultAdapters(config.ProvidersConfig{})
	assert.Equal(t, []string{"open-library", "google-books", "hardcover", "audnexus", "openai", "title-parser"}, names(all))

	some := DefaultAdapters(config.ProvidersConfig{Disabled: []string{"OpenAI", "google-books", "hardcover"}})
	assert.Equal(t, []string{"open-library", "audnexus", "title-parser"}, names(some))

	s := newService(t, config.Default())
	assert.Equal(t, 6, s.Registry.GetStats().TotalProviders)
}

func TestOpensConfiguredStore(t *testing.T) {
	cfg := config.Default()
	cfg.Store = quota.StoreConfig{Type: "pebble", Path: filepath.Join(t.TempDir(), "quota")}
	s, err := New(cfg, zaptest.NewLogger(t), WithRegistrations())
	require.NoError(t, err)

	d := s.Quota.CheckAndReserve(context.Background(), "openai", 1, quota.PriorityHigh)
	assert.True(t, d.Allowed)
	require.NoError(t, s.Close())
}

func TestNewContextDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Context.CachePolicy = "read-only"
	cfg.Context.RateLimitPolicy = "log-only"
	cfg.Context.Timeout = 30 * time.Second
	cfg.Context.Priority = "high"
	s := newService(t, cfg, WithRegistrations())

	sc := s.NewContext()
	assert.Equal(t, cache.PolicyReadOnly, sc.CachePolicy)
	assert.Equal(t, ratelimit.PolicyLogOnly, sc.RateLimitPolicy)
	assert.Equal(t, 30*time.Second, sc.Timeout)
	assert.Equal(t, quota.PriorityHigh, sc.Priority())
	assert.Same(t, s.Quota, sc.Quota)
	assert.NotEmpty(t, sc.RequestID)

	sc = s.NewContext(provider.WithPriority(quota.PriorityLow), provider.WithCachePolicy(cache.PolicyDisabled))
	assert.Equal(t, quota.PriorityLow, sc.Priority())
	assert.Equal(t, cache.PolicyDisabled, sc.CachePolicy)
}

func TestResolveThroughOpenLibrary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"numFound": 1, "docs": [
			{"title": "Dune", "author_name": ["Frank Herbert"], "isbn": ["9780441172719"]}
		]}`))
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Providers.OpenLibraryURL = server.URL
	cfg.Providers.CoversURL = server.URL
	s := newService(t, cfg)

	res := s.ISBN.Execute(context.Background(), s.NewContext(emptyEnv()), provider.ISBNRequest{Title: "Dune", Author: "Frank Herbert"})
	require.True(t, res.Found())
	assert.Equal(t, "9780441172719", res.Payload.ISBN)
	assert.Equal(t, openlibrary.Name, res.Source)
	assert.Equal(t, 100, res.Confidence)
}

func TestSeriesFromTitleParser(t *testing.T) {
	s := newService(t, config.Default())
	res := s.Series.Execute(context.Background(), s.NewContext(emptyEnv()), provider.SeriesRequest{Title: "Dune Messiah (Dune #2)"})
	require.True(t, res.Found())
	assert.Equal(t, "Dune", res.Payload.Name)
	assert.Equal(t, localparse.Name, res.Source)
}

func TestExhaustedQuotaFallsBackToFreeProvider(t *testing.T) {
	store := quota.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), quota.CounterKey("paid_a", fixedNow), 9, time.Hour))

	paid := providertest.NewMockAdapter(t).Available(true, nil)
	free := providertest.NewMockAdapter(t).Available(true, nil)
	free.On("ResolveISBN", mock.Anything, mock.Anything, mock.Anything).
		Return(&provider.ISBNMatch{ISBN: "9780441172719", Title: "Dune", Author: "Frank Herbert"}, nil).Once()

	cfg := config.Default()
	cfg.Quota.Limits = map[string]int64{"paid_a": 10}
	s := newService(t, cfg, WithStore(store), WithRegistrations(
		registry.Registration{Descriptor: provider.Descriptor{Name: "paid-a", Type: provider.TypePaid,
			Capabilities: []provider.Capability{provider.CapISBNResolution}, QuotaKey: "paid_a"}, Adapter: paid},
		registry.Registration{Descriptor: provider.Descriptor{Name: "free-b", Type: provider.TypeFree,
			Capabilities: []provider.Capability{provider.CapISBNResolution}}, Adapter: free},
	))

	sc := s.NewContext(emptyEnv(), provider.WithPriority(quota.PriorityHigh))
	res := s.ISBN.Execute(context.Background(), sc, provider.ISBNRequest{Title: "Dune", Author: "Frank Herbert"})
	require.True(t, res.Found())
	assert.Equal(t, "free-b", res.Source)
	paid.AssertNotCalled(t, "ResolveISBN", mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyConfigDropsCachedResults(t *testing.T) {
	free := providertest.NewMockAdapter(t).Available(true, nil)
	free.On("ResolveISBN", mock.Anything, mock.Anything, mock.Anything).
		Return(&provider.ISBNMatch{ISBN: "9780441172719", Title: "Dune", Author: "Frank Herbert"}, nil).Twice()

	s := newService(t, config.Default(), WithRegistrations(
		registry.Registration{Descriptor: provider.Descriptor{Name: "free-a", Type: provider.TypeFree,
			Capabilities: []provider.Capability{provider.CapISBNResolution}}, Adapter: free},
	))
	req := provider.ISBNRequest{Title: "Dune", Author: "Frank Herbert"}

	require.True(t, s.ISBN.Execute(context.Background(), s.NewContext(emptyEnv()), req).Found())
	require.True(t, s.ISBN.Execute(context.Background(), s.NewContext(emptyEnv()), req).Found())
	free.AssertNumberOfCalls(t, "ResolveISBN", 1)

	require.NoError(t, s.ApplyConfig(config.Default()))
	require.True(t, s.ISBN.Execute(context.Background(), s.NewContext(emptyEnv()), req).Found())
	free.AssertNumberOfCalls(t, "ResolveISBN", 2)
}

func TestApplyConfig(t *testing.T) {
	s := newService(t, config.Default())

	next := config.Default()
	next.Quota.Limits = map[string]int64{"openai": 3}
	next.Quota.SoftCeiling = 0.5
	next.Quota.HardCeiling = 0.6
	next.RateLimits.PerMinute = map[string]int{"title-parser": 1}
	require.NoError(t, s.ApplyConfig(next))

	limit, ok := s.Quota.Limit("openai")
	require.True(t, ok)
	assert.Equal(t, int64(3), limit)
	_, ok = s.Quota.Limit("google_books")
	assert.False(t, ok)
	assert.Equal(t, map[string]int64{"openai": 3}, s.Config().Quota.Limits)

	for i := 0; i < next.RateLimits.Burst; i++ {
		assert.True(t, s.Limiter.Allow("title-parser"))
	}
	assert.False(t, s.Limiter.Allow("title-parser"))
	assert.True(t, s.Limiter.Allow("open-library"))

	bad := next
	bad.Quota.SoftCeiling = 0.9
	assert.Error(t, s.ApplyConfig(bad))
}
