// file: internal/quota/manager.go
// version: 1.0.0
// guid: e27b4d90-5c1a-4f3e-8a6d-0b9c3f2e71a4

package quota

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/jdfalk/bookmeta-orchestrator/internal/metrics"
	"go.uber.org/zap"
)

// Default ceilings expressed as fractions of the daily limit.
const (
	DefaultSoftCeiling = 0.70
	DefaultHardCeiling = 0.85
)

// Decision reasons.
const (
	ReasonAllowed     = "allowed"
	ReasonUnmetered   = "unmetered"
	ReasonSoftCeiling = "soft_ceiling"
	ReasonHardCeiling = "hard_ceiling"
	ReasonStoreError  = "store_error"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool
	// Remaining is the number of calls left under the ceiling that applied
	// to the caller, after this reservation.
	Remaining int64
	Reason    string
}

// Status is a point-in-time view of one provider's daily counter.
type Status struct {
	Key         string    `json:"key" yaml:"key"`
	Day         string    `json:"day" yaml:"day"`
	Used        int64     `json:"used" yaml:"used"`
	Limit       int64     `json:"limit" yaml:"limit"`
	SoftCeiling int64     `json:"soft_ceiling" yaml:"soft_ceiling"`
	HardCeiling int64     `json:"hard_ceiling" yaml:"hard_ceiling"`
	ResetAt     time.Time `json:"reset_at" yaml:"reset_at"`
}

// Manager enforces daily call budgets for metered providers.
type Manager struct {
	store  CounterStore
	logger *zap.Logger
	now    func() time.Time

	mu     sync.RWMutex
	limits map[string]int64
	soft   float64
	hard   float64

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for store failures and denials.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock replaces time.Now. Tests use it to cross day boundaries.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithCeilings overrides the default ceilings. Invalid pairs are ignored;
// use SetCeilings to get the validation error.
func WithCeilings(soft, hard float64) Option {
	return func(m *Manager) {
		if validCeilings(soft, hard) == nil {
			m.soft, m.hard = soft, hard
		}
	}
}

// WithLimits sets the daily limit per quota key.
func WithLimits(limits map[string]int64) Option {
	return func(m *Manager) { m.limits = copyLimits(limits) }
}

// NewManager creates a Manager backed by store.
func NewManager(store CounterStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		logger: zap.NewNop(),
		now:    time.Now,
		limits: map[string]int64{},
		soft:   DefaultSoftCeiling,
		hard:   DefaultHardCeiling,
		locks:  map[string]*sync.Mutex{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetLimits replaces the whole limit table.
func (m *Manager) SetLimits(limits map[string]int64) {
	m.mu.Lock()
	m.limits = copyLimits(limits)
	m.mu.Unlock()
}

// SetCeilings changes the soft and hard ceilings. It requires
// 0 < soft <= hard <= 1.
func (m *Manager) SetCeilings(soft, hard float64) error {
	if err := validCeilings(soft, hard); err != nil {
		return err
	}
	m.mu.Lock()
	m.soft, m.hard = soft, hard
	m.mu.Unlock()
	return nil
}

// Limit returns the configured daily limit for key and whether it is metered.
func (m *Manager) Limit(key string) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	limit, ok := m.limits[key]
	return limit, ok && limit > 0
}

// CheckAndReserve admits a call of the given cost and, when admitted,
// increments the day's counter. Store failures deny the call.
func (m *Manager) CheckAndReserve(ctx context.Context, key string, cost int64, priority Priority) Decision {
	return m.admit(ctx, key, cost, priority, true)
}

// Peek reports whether a single call would be admitted, without reserving.
func (m *Manager) Peek(ctx context.Context, key string, priority Priority) bool {
	return m.admit(ctx, key, 1, priority, false).Allowed
}

func (m *Manager) admit(ctx context.Context, key string, cost int64, priority Priority, reserve bool) Decision {
	if cost < 1 {
		cost = 1
	}
	limit, metered := m.Limit(key)
	if !metered {
		return m.record(key, Decision{Allowed: true, Remaining: math.MaxInt64, Reason: ReasonUnmetered}, reserve)
	}
	softMax, hardMax := m.ceilings(limit)

	lock := m.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	now := m.now().UTC()
	counterKey := CounterKey(key, now)
	used, _, err := m.store.Get(ctx, counterKey)
	if err != nil {
		m.logger.Error("quota store read failed; denying call",
			zap.String("quota_key", key), zap.Error(err))
		return m.record(key, Decision{Allowed: false, Reason: ReasonStoreError}, reserve)
	}

	ceiling := hardMax
	if priority < PriorityHigh {
		ceiling = softMax
	}
	if used+cost > hardMax {
		return m.record(key, Decision{Allowed: false, Remaining: floorZero(ceiling - used), Reason: ReasonHardCeiling}, reserve)
	}
	if priority < PriorityHigh && used+cost > softMax {
		return m.record(key, Decision{Allowed: false, Remaining: floorZero(ceiling - used), Reason: ReasonSoftCeiling}, reserve)
	}
	if !reserve {
		return Decision{Allowed: true, Remaining: floorZero(ceiling - used), Reason: ReasonAllowed}
	}

	if err := m.store.Put(ctx, counterKey, used+cost, ttlFor(now)); err != nil {
		m.logger.Error("quota store write failed; denying call",
			zap.String("quota_key", key), zap.Error(err))
		return m.record(key, Decision{Allowed: false, Reason: ReasonStoreError}, reserve)
	}
	return m.record(key, Decision{Allowed: true, Remaining: floorZero(ceiling - used - cost), Reason: ReasonAllowed}, reserve)
}

// record emits a metric for reservations only; peeks are not decisions.
func (m *Manager) record(key string, d Decision, reserve bool) Decision {
	if !reserve {
		return d
	}
	metrics.IncQuotaDecision(key, d.Reason)
	if !d.Allowed && d.Reason != ReasonStoreError {
		m.logger.Debug("quota denied", zap.String("quota_key", key), zap.String("reason", d.Reason))
	}
	return d
}

// Status reports the current day's usage for key.
func (m *Manager) Status(ctx context.Context, key string) (Status, error) {
	now := m.now().UTC()
	limit, _ := m.Limit(key)
	softMax, hardMax := m.ceilings(limit)
	st := Status{
		Key:         key,
		Day:         now.Format(dayLayout),
		Limit:       limit,
		SoftCeiling: softMax,
		HardCeiling: hardMax,
		ResetAt:     nextMidnight(now),
	}
	used, _, err := m.store.Get(ctx, CounterKey(key, now))
	if err != nil {
		return st, fmt.Errorf("failed to read quota for %s: %w", key, err)
	}
	st.Used = used
	return st, nil
}

// Keys lists the metered quota keys in sorted order.
func (m *Manager) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.limits))
	for k, v := range m.limits {
		if v > 0 {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// Close releases the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}

func (m *Manager) ceilings(limit int64) (soft, hard int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ceilingCount(limit, m.soft), ceilingCount(limit, m.hard)
}

func (m *Manager) keyLock(key string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

const dayLayout = "2006-01-02"

// CounterKey is the store key for key's counter on the UTC day containing t.
func CounterKey(key string, t time.Time) string {
	return "quota:" + key + ":" + t.UTC().Format(dayLayout)
}

func nextMidnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, time.UTC)
}

// ttlFor keeps a counter a full day past its own day so late readers near
// midnight still see it.
func ttlFor(now time.Time) time.Duration {
	return nextMidnight(now).Sub(now) + 24*time.Hour
}

func ceilingCount(limit int64, ratio float64) int64 {
	return int64(math.Floor(float64(limit)*ratio + 1e-9))
}

func floorZero(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

func validCeilings(soft, hard float64) error {
	if soft <= 0 || hard > 1 || soft > hard {
		return fmt.Errorf("invalid quota ceilings soft=%.2f hard=%.2f: need 0 < soft <= hard <= 1", soft, hard)
	}
	return nil
}

func copyLimits(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
