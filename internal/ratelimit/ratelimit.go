// file: internal/ratelimit/ratelimit.go
// version: 2.0.0
// guid: 1331705a-85cb-4158-92f5-5ce203d8a0e7

package ratelimit

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Policy decides what happens when a provider's bucket is empty.
type Policy string

const (
	PolicyEnforce  Policy = "enforce"
	PolicyLogOnly  Policy = "log-only"
	PolicyDisabled Policy = "disabled"
)

// ParsePolicy accepts the three policy names; empty means enforce.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyEnforce, nil
	case PolicyEnforce, PolicyLogOnly, PolicyDisabled:
		return p, nil
	default:
		return "", fmt.Errorf("unknown rate limit policy %q", s)
	}
}

// ProviderLimiter is a per-provider token bucket limiter. Providers without
// a configured rate are never limited.
type ProviderLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	perMinute map[string]int
	burst     int
}

// NewProviderLimiter creates a limiter with requests-per-minute per provider
// name. Burst is clamped to at least 1.
func NewProviderLimiter(perMinute map[string]int, burst int) *ProviderLimiter {
	if burst < 1 {
		burst = 1
	}
	l := &ProviderLimiter{
		limiters:  make(map[string]*rate.Limiter),
		perMinute: make(map[string]int, len(perMinute)),
		burst:     burst,
	}
	for name, rpm := range perMinute {
		if rpm > 0 {
			l.perMinute[name] = rpm
		}
	}
	return l
}

func (l *ProviderLimiter) limiterFor(provider string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	rpm, ok := l.perMinute[provider]
	if !ok {
		return nil
	}
	limiter, ok := l.limiters[provider]
	if !ok {
		perSecond := float64(rpm) / 60.0
		limiter = rate.NewLimiter(rate.Limit(perSecond), l.burst)
		l.limiters[provider] = limiter
	}
	return limiter
}

// Allow takes a token for provider if one is available.
func (l *ProviderLimiter) Allow(provider string) bool {
	if l == nil {
		return true
	}
	limiter := l.limiterFor(provider)
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}

// SetLimit changes one provider's rate. A non-positive rate removes it.
func (l *ProviderLimiter) SetLimit(provider string, perMinute int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, provider)
	if perMinute <= 0 {
		delete(l.perMinute, provider)
		return
	}
	l.perMinute[provider] = perMinute
}

// Admit applies policy to a call on provider. Under log-only an empty
// bucket is logged and the call proceeds.
func (l *ProviderLimiter) Admit(policy Policy, provider string, logger *zap.Logger) bool {
	if policy == PolicyDisabled || l == nil {
		return true
	}
	if l.Allow(provider) {
		return true
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == PolicyLogOnly {
		logger.Info("provider rate limit exceeded; proceeding under log-only policy",
			zap.String("provider", provider))
		return true
	}
	logger.Debug("provider rate limit exceeded", zap.String("provider", provider))
	return false
}
