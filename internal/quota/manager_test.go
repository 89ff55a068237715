// file: internal/quota/manager_test.go
// version: 1.0.0
// guid: 6c1f8a2d-3e94-4b70-9d5c-a7e0b4f21c83

package quota

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var testDay = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, store CounterStore, limits map[string]int64, opts ...Option) *Manager {
	t.Helper()
	base := []Option{
		WithLimits(limits),
		WithClock(func() time.Time { return testDay }),
	}
	return NewManager(store, append(base, opts...)...)
}

func seed(t *testing.T, store CounterStore, key string, used int64) {
	t.Helper()
	require.NoError(t, store.Put(context.Background(), CounterKey(key, testDay), used, time.Hour))
}

// failingStore returns err from every call.
type failingStore struct {
	getErr error
	putErr error
	puts   int
}

func (f *failingStore) Get(context.Context, string) (int64, bool, error) {
	return 0, false, f.getErr
}

func (f *failingStore) Put(context.Context, string, int64, time.Duration) error {
	f.puts++
	return f.putErr
}

func (f *failingStore) Close() error { return nil }

func TestCheckAndReserve_PriorityTiers(t *testing.T) {
	tests := []struct {
		name     string
		used     int64
		priority Priority
		allowed  bool
		reason   string
	}{
		{"low under soft", 69, PriorityLow, true, ReasonAllowed},
		{"low at soft", 70, PriorityLow, false, ReasonSoftCeiling},
		{"medium at soft", 70, PriorityMedium, false, ReasonSoftCeiling},
		{"high past soft", 70, PriorityHigh, true, ReasonAllowed},
		{"high under hard", 84, PriorityHigh, true, ReasonAllowed},
		{"high at hard", 85, PriorityHigh, false, ReasonHardCeiling},
		{"low at hard", 85, PriorityLow, false, ReasonHardCeiling},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			seed(t, store, "google_books", tt.used)
			m := newTestManager(t, store, map[string]int64{"google_books": 100})

			d := m.CheckAndReserve(context.Background(), "google_books", 1, tt.priority)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)

			got, _, err := store.Get(context.Background(), CounterKey("google_books", testDay))
			require.NoError(t, err)
			if tt.allowed {
				assert.Equal(t, tt.used+1, got)
			} else {
				assert.Equal(t, tt.used, got, "denials must not increment")
			}
		})
	}
}

func TestCheckAndReserve_NinetyPercentUsageDeniesEveryone(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "paid", 90)
	m := newTestManager(t, store, map[string]int64{"paid": 100})

	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh} {
		d := m.CheckAndReserve(context.Background(), "paid", 1, p)
		assert.False(t, d.Allowed, p.String())
		assert.Equal(t, ReasonHardCeiling, d.Reason)
		assert.Equal(t, int64(0), d.Remaining)
	}
}

func TestCheckAndReserve_RemainingIsRelativeToCallerCeiling(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "k", 60)
	m := newTestManager(t, store, map[string]int64{"k": 100})

	low := m.CheckAndReserve(context.Background(), "k", 1, PriorityLow)
	require.True(t, low.Allowed)
	assert.Equal(t, int64(9), low.Remaining)

	high := m.CheckAndReserve(context.Background(), "k", 1, PriorityHigh)
	require.True(t, high.Allowed)
	assert.Equal(t, int64(23), high.Remaining)
}

func TestCheckAndReserve_UnconfiguredKeyIsUnmetered(t *testing.T) {
	store := &failingStore{getErr: errors.New("boom")}
	m := newTestManager(t, store, nil)

	d := m.CheckAndReserve(context.Background(), "anything", 1, PriorityLow)
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonUnmetered, d.Reason)
	assert.Zero(t, store.puts)
}

func TestCheckAndReserve_StoreReadFailureFailsClosed(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	store := &failingStore{getErr: errors.New("connection refused")}
	m := newTestManager(t, store, map[string]int64{"k": 100}, WithLogger(zap.New(core)))

	d := m.CheckAndReserve(context.Background(), "k", 1, PriorityHigh)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonStoreError, d.Reason)
	assert.False(t, m.Peek(context.Background(), "k", PriorityHigh))
	assert.Zero(t, store.puts)
	assert.GreaterOrEqual(t, logs.FilterMessageSnippet("quota store read failed").Len(), 1)
}

func TestCheckAndReserve_StoreWriteFailureFailsClosed(t *testing.T) {
	store := &failingStore{putErr: errors.New("disk full")}
	m := newTestManager(t, store, map[string]int64{"k": 100})

	d := m.CheckAndReserve(context.Background(), "k", 1, PriorityLow)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonStoreError, d.Reason)
}

func TestCheckAndReserve_CostBelowOneCountsAsOne(t *testing.T) {
	store := NewMemoryStore()
	m := newTestManager(t, store, map[string]int64{"k": 100})

	require.True(t, m.CheckAndReserve(context.Background(), "k", 0, PriorityLow).Allowed)
	got, _, _ := store.Get(context.Background(), CounterKey("k", testDay))
	assert.Equal(t, int64(1), got)
}

func TestCheckAndReserve_CounterIsMonotonicUnderConcurrency(t *testing.T) {
	store := NewMemoryStore()
	m := newTestManager(t, store, map[string]int64{"k": 1000})

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.CheckAndReserve(context.Background(), "k", 1, PriorityHigh).Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, _, _ := store.Get(context.Background(), CounterKey("k", testDay))
	assert.Equal(t, int64(allowed), got)
	assert.Equal(t, 200, allowed)
}

func TestCheckAndReserve_HardCeilingNeverExceeded(t *testing.T) {
	store := NewMemoryStore()
	m := newTestManager(t, store, map[string]int64{"k": 20})

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.CheckAndReserve(context.Background(), "k", 1, PriorityHigh)
		}()
	}
	wg.Wait()

	got, _, _ := store.Get(context.Background(), CounterKey("k", testDay))
	assert.Equal(t, int64(17), got)
}

func TestCounterResetsOnNewDay(t *testing.T) {
	store := NewMemoryStore()
	now := testDay
	m := NewManager(store,
		WithLimits(map[string]int64{"k": 10}),
		WithClock(func() time.Time { return now }))

	for range 7 {
		require.True(t, m.CheckAndReserve(context.Background(), "k", 1, PriorityLow).Allowed)
	}
	assert.False(t, m.CheckAndReserve(context.Background(), "k", 1, PriorityLow).Allowed)

	now = testDay.Add(24 * time.Hour)
	assert.True(t, m.CheckAndReserve(context.Background(), "k", 1, PriorityLow).Allowed)
}

func TestPeekDoesNotReserve(t *testing.T) {
	store := NewMemoryStore()
	m := newTestManager(t, store, map[string]int64{"k": 100})

	assert.True(t, m.Peek(context.Background(), "k", PriorityLow))
	_, found, _ := store.Get(context.Background(), CounterKey("k", testDay))
	assert.False(t, found)
}

func TestStatus(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "openai", 42)
	m := newTestManager(t, store, map[string]int64{"openai": 200})

	st, err := m.Status(context.Background(), "openai")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14", st.Day)
	assert.Equal(t, int64(42), st.Used)
	assert.Equal(t, int64(200), st.Limit)
	assert.Equal(t, int64(140), st.SoftCeiling)
	assert.Equal(t, int64(170), st.HardCeiling)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), st.ResetAt)
}

func TestStatusWrapsStoreError(t *testing.T) {
	m := newTestManager(t, &failingStore{getErr: ErrStoreUnavailable}, map[string]int64{"k": 1})
	_, err := m.Status(context.Background(), "k")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestSetCeilings(t *testing.T) {
	m := newTestManager(t, NewMemoryStore(), map[string]int64{"k": 100})

	assert.Error(t, m.SetCeilings(0, 0.5))
	assert.Error(t, m.SetCeilings(0.9, 0.5))
	assert.Error(t, m.SetCeilings(0.5, 1.2))
	require.NoError(t, m.SetCeilings(0.5, 0.6))

	st, err := m.Status(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, int64(50), st.SoftCeiling)
	assert.Equal(t, int64(60), st.HardCeiling)
}

func TestSetLimitsTakesEffectImmediately(t *testing.T) {
	store := NewMemoryStore()
	seed(t, store, "k", 50)
	m := newTestManager(t, store, map[string]int64{"k": 1000})
	require.True(t, m.Peek(context.Background(), "k", PriorityLow))

	m.SetLimits(map[string]int64{"k": 60})
	assert.False(t, m.Peek(context.Background(), "k", PriorityLow))
	assert.Equal(t, []string{"k"}, m.Keys())
}

func TestCounterKeyAndTTL(t *testing.T) {
	assert.Equal(t, "quota:openai:2026-03-14", CounterKey("openai", testDay))
	assert.Equal(t, 33*time.Hour, ttlFor(testDay))
}

func TestParsePriority(t *testing.T) {
	assert.Equal(t, PriorityHigh, ParsePriority("HIGH"))
	assert.Equal(t, PriorityHigh, ParsePriority("interactive"))
	assert.Equal(t, PriorityMedium, ParsePriority(" normal "))
	assert.Equal(t, PriorityLow, ParsePriority(""))
	assert.Equal(t, PriorityLow, ParsePriority("batch"))
}
