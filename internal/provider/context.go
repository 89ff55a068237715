// file: internal/provider/context.go
// version: 1.1.0
// guid: 4f91c7b2-0e6d-4a38-9d54-b7a2e1f8c039

package provider

import (
	"context"
	"time"

	"github.com/jdfalk/bookmeta-orchestrator/internal/cache"
	"github.com/jdfalk/bookmeta-orchestrator/internal/quota"
	"github.com/jdfalk/bookmeta-orchestrator/internal/ratelimit"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// MetadataPriority is the metadata key holding the caller's priority tag.
const MetadataPriority = "priority"

// QuotaChecker is the admission gate consulted for metered providers.
// *quota.Manager satisfies it.
type QuotaChecker interface {
	Peek(ctx context.Context, key string, priority quota.Priority) bool
	CheckAndReserve(ctx context.Context, key string, cost int64, priority quota.Priority) quota.Decision
}

// ServiceContext carries request-scoped settings through the registry,
// orchestrators and adapters. It is owned by one request.
type ServiceContext struct {
	RequestID       string
	Env             Environment
	Logger          *zap.Logger
	Quota           QuotaChecker
	CachePolicy     cache.Policy
	RateLimitPolicy ratelimit.Policy
	// Timeout bounds a whole orchestrator call. Zero means no budget beyond
	// the per-provider timeouts.
	Timeout  time.Duration
	Metadata map[string]string
}

// ContextOption configures a ServiceContext.
type ContextOption func(*ServiceContext)

// WithEnvironment replaces the OS environment used for credential checks.
func WithEnvironment(env Environment) ContextOption {
	return func(sc *ServiceContext) { sc.Env = env }
}

// WithLogger sets the parent of the request logger.
func WithLogger(logger *zap.Logger) ContextOption {
	return func(sc *ServiceContext) { sc.Logger = logger }
}

// WithQuota enables the quota gate for metered providers.
func WithQuota(q QuotaChecker) ContextOption {
	return func(sc *ServiceContext) { sc.Quota = q }
}

func WithCachePolicy(p cache.Policy) ContextOption {
	return func(sc *ServiceContext) { sc.CachePolicy = p }
}

func WithRateLimitPolicy(p ratelimit.Policy) ContextOption {
	return func(sc *ServiceContext) { sc.RateLimitPolicy = p }
}

// WithTimeout bounds a whole orchestration. Zero means no budget.
func WithTimeout(d time.Duration) ContextOption {
	return func(sc *ServiceContext) { sc.Timeout = d }
}

// WithPriority sets the priority tag used for quota tiering.
func WithPriority(p quota.Priority) ContextOption {
	return WithMetadata(MetadataPriority, p.String())
}

// WithMetadata sets one free-form metadata entry.
func WithMetadata(key, value string) ContextOption {
	return func(sc *ServiceContext) { sc.Metadata[key] = value }
}

// WithRequestID overrides the generated request ID.
func WithRequestID(id string) ContextOption {
	return func(sc *ServiceContext) { sc.RequestID = id }
}

// NewServiceContext builds a context with a fresh ULID request ID, the OS
// environment, read-write caching and an enforcing rate limit policy.
func NewServiceContext(opts ...ContextOption) *ServiceContext {
	sc := &ServiceContext{
		RequestID:       ulid.Make().String(),
		Env:             OSEnvironment{},
		CachePolicy:     cache.PolicyReadWrite,
		RateLimitPolicy: ratelimit.PolicyEnforce,
		Metadata:        map[string]string{},
	}
	for _, opt := range opts {
		opt(sc)
	}
	if sc.Logger == nil {
		sc.Logger = zap.NewNop()
	}
	sc.Logger = sc.Logger.With(zap.String("request_id", sc.RequestID))
	return sc
}

// Priority returns the caller's quota tier. A missing tag is low.
func (sc *ServiceContext) Priority() quota.Priority {
	if sc == nil {
		return quota.PriorityLow
	}
	return quota.ParsePriority(sc.Metadata[MetadataPriority])
}

// Log returns the request logger, or a no-op logger for a nil context.
func (sc *ServiceContext) Log() *zap.Logger {
	if sc == nil || sc.Logger == nil {
		return zap.NewNop()
	}
	return sc.Logger
}

// Environment returns the request environment, defaulting to the OS one.
func (sc *ServiceContext) Environment() Environment {
	if sc == nil || sc.Env == nil {
		return OSEnvironment{}
	}
	return sc.Env
}
