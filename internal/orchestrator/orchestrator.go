// file: internal/orchestrator/orchestrator.go
// version: 1.0.0
// guid: 2b7e0f5c-9a13-4d68-8c4e-f1a6d3b9e027

// Package orchestrator composes registered providers into fallback, fan-out
// and aggregation strategies for one capability at a time.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/jdfalk/bookmeta-orchestrator/internal/metrics"
	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
	"github.com/jdfalk/bookmeta-orchestrator/internal/ratelimit"
	"go.uber.org/zap"
)

// Catalog is the part of the registry the orchestrators use.
type Catalog interface {
	GetAvailableProviders(ctx context.Context, c provider.Capability, sc *provider.ServiceContext) []provider.Descriptor
	Adapter(name string) (provider.Adapter, bool)
}

// Result is the outcome of a sequential orchestration. The zero value means
// every candidate was exhausted.
type Result[T any] struct {
	Payload    T      `json:"payload"`
	Confidence int    `json:"confidence"`
	Source     string `json:"source,omitempty"`
}

// Found reports whether a provider produced an accepted result.
func (r Result[T]) Found() bool {
	return r.Source != ""
}

func newResult[T any](payload T, confidence int, source string) Result[T] {
	return Result[T]{Payload: payload, Confidence: min(max(confidence, 0), 100), Source: source}
}

// State is a step of an orchestration, logged at debug level.
type State string

const (
	StateInit            State = "INIT"
	StateFilterAvailable State = "FILTER_AVAILABLE"
	StateExhausted       State = "EXHAUSTED"
	StateDispatch        State = "DISPATCH"
	StateSuccess         State = "SUCCESS"
	StateContinue        State = "CONTINUE"
	StateTerminal        State = "TERMINAL"
)

// Per-attempt outcomes, used as metric labels.
const (
	outcomeHit         = "hit"
	outcomeMiss        = "miss"
	outcomeTimeout     = "timeout"
	outcomeError       = "error"
	outcomeRateLimited = "rate_limited"
	outcomeQuotaDenied = "quota_denied"
	outcomeRejected    = "rejected"
)

// Orchestration outcomes.
const (
	resultSuccess   = "success"
	resultExhausted = "exhausted"
	resultCached    = "cached"
	resultSkipped   = "skipped"
)

// Strategy names.
const (
	strategySequential = "sequential"
	strategyFanOut     = "fan_out"
	strategyAggregate  = "aggregate"
)

// Call invokes one capability method on an adapter.
type Call[Req, Resp any] func(ctx context.Context, a provider.Adapter, sc *provider.ServiceContext, req Req) (Resp, error)

type settings struct {
	timeout   time.Duration
	limiter   *ratelimit.ProviderLimiter
	cacheTTL  time.Duration
	priority  []string
	freeFirst bool
	threshold float64
}

// Option configures an orchestrator.
type Option func(*settings)

// WithTimeout sets the per-provider timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLimiter applies per-provider rate limits before each call.
func WithLimiter(l *ratelimit.ProviderLimiter) Option {
	return func(s *settings) { s.limiter = l }
}

// WithCache caches found results for ttl. Only sequential orchestrators
// cache.
func WithCache(ttl time.Duration) Option {
	return func(s *settings) { s.cacheTTL = ttl }
}

// WithPriority orders candidates by name. Available providers not named
// follow in registration order.
func WithPriority(names ...string) Option {
	return func(s *settings) { s.priority = append([]string(nil), names...) }
}

// WithFreeFirst tries free providers before paid ones, then AI ones,
// regardless of the priority list.
func WithFreeFirst() Option {
	return func(s *settings) { s.freeFirst = true }
}

// WithThreshold sets the similarity threshold for validation or dedup.
func WithThreshold(t float64) Option {
	return func(s *settings) {
		if t > 0 && t <= 1 {
			s.threshold = t
		}
	}
}

type base struct {
	catalog    Catalog
	capability provider.Capability
	strategy   string
	settings
}

func newBase(catalog Catalog, c provider.Capability, strategy string, defaults settings, opts []Option) base {
	b := base{catalog: catalog, capability: c, strategy: strategy, settings: defaults}
	for _, opt := range opts {
		opt(&b.settings)
	}
	return b
}

// Capability returns the capability this orchestrator serves.
func (b *base) Capability() provider.Capability { return b.capability }

// Timeout returns the per-provider timeout.
func (b *base) Timeout() time.Duration { return b.timeout }

func (b *base) logger(sc *provider.ServiceContext) *zap.Logger {
	return sc.Log().With(
		zap.String("capability", string(b.capability)),
		zap.String("strategy", b.strategy))
}

func (b *base) state(log *zap.Logger, s State, fields ...zap.Field) {
	log.Debug("orchestrator state", append([]zap.Field{zap.String("state", string(s))}, fields...)...)
}

func (b *base) finish(log *zap.Logger, start time.Time, outcome string) {
	b.state(log, StateTerminal, zap.String("outcome", outcome))
	metrics.IncOrchestration(string(b.capability), b.strategy, outcome)
	metrics.ObserveOrchestration(string(b.capability), b.strategy, time.Since(start))
}

func (b *base) candidates(ctx context.Context, sc *provider.ServiceContext) []provider.Descriptor {
	return orderCandidates(b.catalog.GetAvailableProviders(ctx, b.capability, sc), b.priority, b.freeFirst)
}

// withBudget applies the ServiceContext timeout to ctx.
func withBudget(ctx context.Context, sc *provider.ServiceContext) (context.Context, context.CancelFunc) {
	if sc.Timeout > 0 {
		return context.WithTimeout(ctx, sc.Timeout)
	}
	return context.WithCancel(ctx)
}

// dispatch makes one gated, time-bounded call to the provider described by
// d and classifies it. Errors never escape; they become outcomes.
func dispatch[Req, Resp any](ctx context.Context, b *base, sc *provider.ServiceContext, log *zap.Logger,
	d provider.Descriptor, req Req, call Call[Req, Resp], empty func(Resp) bool) (Resp, string) {
	var zero Resp
	name := d.Name
	log = log.With(zap.String("provider", name))
	b.state(log, StateDispatch)

	outcome := func(o string) string {
		metrics.IncProviderCall(name, string(b.capability), o)
		return o
	}

	adapter, ok := b.catalog.Adapter(name)
	if !ok {
		log.Warn("provider vanished from registry")
		return zero, outcome(outcomeError)
	}
	if !b.limiter.Admit(sc.RateLimitPolicy, name, log) {
		return zero, outcome(outcomeRateLimited)
	}
	if d.Metered() && sc.Quota != nil {
		if dec := sc.Quota.CheckAndReserve(ctx, d.QuotaKey, 1, sc.Priority()); !dec.Allowed {
			log.Debug("quota denied at dispatch", zap.String("reason", dec.Reason))
			return zero, outcome(outcomeQuotaDenied)
		}
	}

	start := time.Now()
	resp, err := provider.Invoke(ctx, b.timeout, func(ctx context.Context) (Resp, error) {
		return call(ctx, adapter, sc, req)
	})
	metrics.ObserveProviderCall(name, string(b.capability), time.Since(start))

	switch {
	case errors.Is(err, provider.ErrTimeout):
		log.Info("provider timed out", zap.Duration("timeout", b.timeout))
		return zero, outcome(outcomeTimeout)
	case err != nil:
		log.Warn("provider call failed; treating as miss", zap.Error(err))
		return zero, outcome(outcomeError)
	case empty(resp):
		log.Debug("provider miss")
		return zero, outcome(outcomeMiss)
	}
	return resp, outcome(outcomeHit)
}
