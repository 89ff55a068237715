// file: internal/registry/registry.go
// version: 1.1.0
// guid: 5e2a9c7d-83f1-4b06-a4d8-1f6c0b7e9a32

// Package registry is the catalog of provider adapters and answers which of
// them can serve a capability right now.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jdfalk/bookmeta-orchestrator/internal/metrics"
	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrDuplicateProvider        = errors.New("provider already registered")
	ErrUnknownCapability        = errors.New("unknown capability")
	ErrCapabilityNotImplemented = errors.New("adapter does not implement declared capability")
	ErrInvalidDescriptor        = errors.New("invalid provider descriptor")
)

// DefaultAvailabilityTimeout bounds one IsAvailable call.
const DefaultAvailabilityTimeout = 5 * time.Second

// Availability check results, also used as metric labels.
const (
	availAvailable      = "available"
	availUnavailable    = "unavailable"
	availError          = "error"
	availQuotaExhausted = "quota_exhausted"
)

type entry struct {
	descriptor provider.Descriptor
	adapter    provider.Adapter
}

// Registration pairs a descriptor with its adapter for RegisterAll.
type Registration struct {
	Descriptor provider.Descriptor
	Adapter    provider.Adapter
}

// Registry holds registered providers in registration order.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
	byName  map[string]int

	logger              *zap.Logger
	availabilityTimeout time.Duration
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger for availability warnings. Nil is ignored.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithAvailabilityTimeout bounds each IsAvailable call. Non-positive values
// keep the default.
func WithAvailabilityTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.availabilityTimeout = d
		}
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		byName:              make(map[string]int),
		logger:              zap.NewNop(),
		availabilityTimeout: DefaultAvailabilityTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a provider. All errors are configuration mistakes and
// should stop startup.
func (r *Registry) Register(desc provider.Descriptor, adapter provider.Adapter) error {
	if desc.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDescriptor)
	}
	if !desc.Type.Valid() {
		return fmt.Errorf("%w: provider %s has unknown type %q", ErrInvalidDescriptor, desc.Name, desc.Type)
	}
	if adapter == nil {
		return fmt.Errorf("%w: provider %s has no adapter", ErrInvalidDescriptor, desc.Name)
	}
	if len(desc.Capabilities) == 0 {
		return fmt.Errorf("%w: provider %s declares no capabilities", ErrInvalidDescriptor, desc.Name)
	}
	for _, c := range desc.Capabilities {
		if !c.Valid() {
			return fmt.Errorf("%w: provider %s declares %q", ErrUnknownCapability, desc.Name, c)
		}
		if !provider.Implements(c, adapter) {
			return fmt.Errorf("%w: provider %s, capability %s", ErrCapabilityNotImplemented, desc.Name, c)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[desc.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, desc.Name)
	}
	r.byName[desc.Name] = len(r.entries)
	r.entries = append(r.entries, entry{descriptor: desc.Clone(), adapter: adapter})
	metrics.SetRegisteredProviders(len(r.entries))
	r.logger.Debug("registered provider",
		zap.String("provider", desc.Name),
		zap.String("type", string(desc.Type)),
		zap.Any("capabilities", desc.Capabilities))
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(desc provider.Descriptor, adapter provider.Adapter) {
	if err := r.Register(desc, adapter); err != nil {
		panic(err)
	}
}

// RegisterAll registers each entry in order and stops at the first error.
func (r *Registry) RegisterAll(regs ...Registration) error {
	for _, reg := range regs {
		if err := r.Register(reg.Descriptor, reg.Adapter); err != nil {
			return err
		}
	}
	return nil
}

// GetByCapability lists providers declaring c, in registration order.
func (r *Registry) GetByCapability(c provider.Capability) []provider.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []provider.Descriptor
	for _, e := range r.entries {
		if e.descriptor.Supports(c) {
			out = append(out, e.descriptor.Clone())
		}
	}
	return out
}

// GetAvailableProviders checks every provider declaring c concurrently and
// returns those that answered true, in registration order. A check that
// errors, panics or outlives the availability timeout excludes the provider.
// Metered providers are also excluded when sc.Quota would not admit a call
// at the caller's priority.
func (r *Registry) GetAvailableProviders(ctx context.Context, c provider.Capability, sc *provider.ServiceContext) []provider.Descriptor {
	r.mu.RLock()
	candidates := make([]entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.descriptor.Supports(c) {
			candidates = append(candidates, entry{descriptor: e.descriptor.Clone(), adapter: e.adapter})
		}
	}
	r.mu.RUnlock()
	if len(candidates) == 0 {
		return nil
	}

	log := sc.Log()
	env := sc.Environment()
	available := make([]bool, len(candidates))

	// Checks never return errors to the group so one failure cannot cancel
	// the others.
	var g errgroup.Group
	for i, cand := range candidates {
		g.Go(func() error {
			result := r.check(ctx, c, cand, sc, env, log)
			metrics.IncAvailabilityCheck(cand.descriptor.Name, string(c), result)
			available[i] = result == availAvailable
			return nil
		})
	}
	_ = g.Wait()

	out := make([]provider.Descriptor, 0, len(candidates))
	for i, cand := range candidates {
		if available[i] {
			out = append(out, cand.descriptor)
		}
	}
	return out
}

func (r *Registry) check(ctx context.Context, c provider.Capability, cand entry, sc *provider.ServiceContext, env provider.Environment, log *zap.Logger) string {
	name := cand.descriptor.Name
	ok, err := provider.Invoke(ctx, r.availabilityTimeout, func(ctx context.Context) (bool, error) {
		return cand.adapter.IsAvailable(ctx, env)
	})
	if err != nil {
		log.Warn("availability check failed; excluding provider",
			zap.String("provider", name),
			zap.String("capability", string(c)),
			zap.Error(err))
		return availError
	}
	if !ok {
		log.Debug("provider unavailable", zap.String("provider", name), zap.String("capability", string(c)))
		return availUnavailable
	}
	if cand.descriptor.Metered() && sc != nil && sc.Quota != nil {
		if !sc.Quota.Peek(ctx, cand.descriptor.QuotaKey, sc.Priority()) {
			log.Debug("provider over quota",
				zap.String("provider", name),
				zap.String("quota_key", cand.descriptor.QuotaKey),
				zap.Stringer("priority", sc.Priority()))
			return availQuotaExhausted
		}
	}
	return availAvailable
}

// Adapter returns the adapter registered under name.
func (r *Registry) Adapter(name string) (provider.Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.entries[i].adapter, true
}

// Descriptor returns the descriptor registered under name.
func (r *Registry) Descriptor(name string) (provider.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byName[name]
	if !ok {
		return provider.Descriptor{}, false
	}
	return r.entries[i].descriptor.Clone(), true
}

// Names lists provider names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.descriptor.Name
	}
	return names
}

// Descriptors returns every descriptor in registration order.
func (r *Registry) Descriptors() []provider.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]provider.Descriptor, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.descriptor.Clone()
	}
	return out
}

// Stats summarises the catalog.
type Stats struct {
	TotalProviders    int                         `json:"total_providers" yaml:"total_providers"`
	CountByType       map[provider.Type]int       `json:"count_by_type" yaml:"count_by_type"`
	CountByCapability map[provider.Capability]int `json:"count_by_capability" yaml:"count_by_capability"`
}

// GetStats counts providers by type and by capability.
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := Stats{
		TotalProviders:    len(r.entries),
		CountByType:       make(map[provider.Type]int),
		CountByCapability: make(map[provider.Capability]int),
	}
	for _, e := range r.entries {
		stats.CountByType[e.descriptor.Type]++
		for _, c := range e.descriptor.Capabilities {
			stats.CountByCapability[c]++
		}
	}
	return stats
}
