// file: internal/orchestrator/sequential.go
// version: 1.1.0
// guid: a9c1e4f7-3d58-4b20-96e7-5f0b2a8d1c63

package orchestrator

import (
	"context"
	"time"

	"github.com/jdfalk/bookmeta-orchestrator/internal/cache"
	"github.com/jdfalk/bookmeta-orchestrator/internal/metrics"
	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
	"go.uber.org/zap"
)

// SequentialOps are the capability-specific parts of a sequential
// orchestrator.
type SequentialOps[Req, Resp any] struct {
	Call Call[Req, Resp]
	// Empty reports a miss.
	Empty func(Resp) bool
	// Validate may rewrite the response and returns the confidence. A nil
	// Validate accepts every non-empty response with confidence 100.
	Validate func(req Req, resp Resp) (Resp, int, bool)
	// Key is the cache key for req. A nil Key or an empty key disables
	// caching for the request.
	Key func(Req) string
	// Skip short-circuits requests that cannot match anything.
	Skip func(Req) bool
	// Clone copies a response going into or out of the cache so callers
	// never share a cached payload. Nil caches the response as is.
	Clone func(Resp) Resp
}

// Sequential tries providers one at a time in priority order and returns
// the first result that validates.
type Sequential[Req, Resp any] struct {
	base
	ops   SequentialOps[Req, Resp]
	cache *cache.Cache[Result[Resp]]
}

// NewSequential builds a sequential orchestrator for capability c.
func NewSequential[Req, Resp any](catalog Catalog, c provider.Capability, ops SequentialOps[Req, Resp], opts ...Option) *Sequential[Req, Resp] {
	return newSequential(catalog, c, ops, settings{timeout: DefaultLookupTimeout}, opts)
}

func newSequential[Req, Resp any](catalog Catalog, c provider.Capability, ops SequentialOps[Req, Resp], defaults settings, opts []Option) *Sequential[Req, Resp] {
	s := &Sequential[Req, Resp]{
		base: newBase(catalog, c, strategySequential, defaults, opts),
		ops:  ops,
	}
	if s.cacheTTL > 0 && ops.Key != nil {
		s.cache = cache.New[Result[Resp]](s.cacheTTL)
	}
	return s
}

// Execute runs the fallback chain. It never fails: exhaustion, timeouts and
// provider errors all end in an empty Result.
func (s *Sequential[Req, Resp]) Execute(ctx context.Context, sc *provider.ServiceContext, req Req) Result[Resp] {
	if sc == nil {
		sc = provider.NewServiceContext()
	}
	start := time.Now()
	log := s.logger(sc)
	s.state(log, StateInit)

	if s.ops.Skip != nil && s.ops.Skip(req) {
		s.finish(log, start, resultSkipped)
		return Result[Resp]{}
	}

	key := ""
	if s.cache != nil {
		key = s.ops.Key(req)
	}
	if key != "" && sc.CachePolicy.CanRead() {
		cached, ok := s.cache.Lookup(sc.CachePolicy, key)
		metrics.IncCacheLookup(string(s.capability), ok)
		if ok {
			log.Debug("cache hit", zap.String("source", cached.Source))
			s.finish(log, start, resultCached)
			return s.copyResult(cached)
		}
	}

	ctx, cancel := withBudget(ctx, sc)
	defer cancel()

	candidates := s.candidates(ctx, sc)
	s.state(log, StateFilterAvailable, zap.Int("candidates", len(candidates)))
	if len(candidates) == 0 {
		s.state(log, StateExhausted)
		s.finish(log, start, resultExhausted)
		return Result[Resp]{}
	}

	for _, d := range candidates {
		if ctx.Err() != nil {
			log.Info("timeout budget spent; abandoning remaining providers")
			break
		}
		resp, outcome := dispatch(ctx, &s.base, sc, log, d, req, s.ops.Call, s.ops.Empty)
		if outcome != outcomeHit {
			s.state(log, StateContinue, zap.String("provider", d.Name), zap.String("outcome", outcome))
			continue
		}

		confidence := 100
		if s.ops.Validate != nil {
			var ok bool
			resp, confidence, ok = s.ops.Validate(req, resp)
			if !ok {
				metrics.IncValidationRejection(d.Name, string(s.capability))
				log.Debug("result failed validation",
					zap.String("provider", d.Name), zap.Int("confidence", confidence))
				s.state(log, StateContinue, zap.String("provider", d.Name), zap.String("outcome", outcomeRejected))
				continue
			}
		}

		result := newResult(resp, confidence, d.Name)
		s.state(log, StateSuccess, zap.String("provider", d.Name), zap.Int("confidence", result.Confidence))
		if key != "" {
			s.cache.Store(sc.CachePolicy, key, s.copyResult(result))
		}
		s.finish(log, start, resultSuccess)
		return result
	}

	s.state(log, StateExhausted)
	s.finish(log, start, resultExhausted)
	return Result[Resp]{}
}

func (s *Sequential[Req, Resp]) copyResult(r Result[Resp]) Result[Resp] {
	if s.ops.Clone != nil {
		r.Payload = s.ops.Clone(r.Payload)
	}
	return r
}

// InvalidateCache drops every cached result.
func (s *Sequential[Req, Resp]) InvalidateCache() {
	if s.cache != nil {
		s.cache.InvalidateAll()
	}
}
