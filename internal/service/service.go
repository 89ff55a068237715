// file: internal/service/service.go
// version: 1.1.0
// guid: 5d1c8e3a-7f24-4b96-a0e8-2c9f6b4d7a13

// Package service wires the quota manager, the provider registry and every
// orchestrator together from a config.Config.
package service

import (
	"fmt"
	"time"

	"github.com/jdfalk/bookmeta-orchestrator/internal/cache"
	"github.com/jdfalk/bookmeta-orchestrator/internal/config"
	"github.com/jdfalk/bookmeta-orchestrator/internal/logging"
	"github.com/jdfalk/bookmeta-orchestrator/internal/orchestrator"
	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
	"github.com/jdfalk/bookmeta-orchestrator/internal/providers/audnexus"
	"github.com/jdfalk/bookmeta-orchestrator/internal/providers/googlebooks"
	"github.com/jdfalk/bookmeta-orchestrator/internal/providers/hardcover"
	"github.com/jdfalk/bookmeta-orchestrator/internal/providers/localparse"
	"github.com/jdfalk/bookmeta-orchestrator/internal/providers/openai"
	"github.com/jdfalk/bookmeta-orchestrator/internal/providers/openlibrary"
	"github.com/jdfalk/bookmeta-orchestrator/internal/quota"
	"github.com/jdfalk/bookmeta-orchestrator/internal/ratelimit"
	"github.com/jdfalk/bookmeta-orchestrator/internal/registry"
	"go.uber.org/zap"
)

// Service owns the long-lived components. Orchestrators are safe for
// concurrent use.
type Service struct {
	cfg    config.Config
	logger *zap.Logger

	Quota    *quota.Manager
	Limiter  *ratelimit.ProviderLimiter
	Registry *registry.Registry

	ISBN         *orchestrator.ISBNOrchestrator
	Covers       *orchestrator.CoverOrchestrator
	Authors      *orchestrator.AuthorOrchestrator
	Ratings      *orchestrator.RatingsOrchestrator
	Editions     *orchestrator.EditionsOrchestrator
	PublicDomain *orchestrator.PublicDomainOrchestrator
	Subjects     *orchestrator.SubjectOrchestrator
	Series       *orchestrator.SeriesOrchestrator
	Awards       *orchestrator.AwardsOrchestrator
	Translations *orchestrator.TranslationsOrchestrator
	Generation   *orchestrator.GenerationOrchestrator
	Metadata     *orchestrator.MetadataAggregator
	ExternalIDs  *orchestrator.ExternalIDAggregator
}

type options struct {
	store         quota.CounterStore
	registrations []registry.Registration
	custom        bool
	clock         func() time.Time
}

// Option customizes New.
type Option func(*options)

// WithStore uses store instead of opening cfg.Store.
func WithStore(store quota.CounterStore) Option {
	return func(o *options) { o.store = store }
}

// WithRegistrations replaces DefaultAdapters.
func WithRegistrations(regs ...registry.Registration) Option {
	return func(o *options) {
		o.registrations = regs
		o.custom = true
	}
}

// WithClock sets the quota manager clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// DefaultAdapters returns the built-in providers that cfg does not disable.
func DefaultAdapters(cfg config.ProvidersConfig) []registry.Registration {
	ol := openlibrary.New()
	if cfg.OpenLibraryURL != "" || cfg.CoversURL != "" {
		base, covers := cfg.OpenLibraryURL, cfg.CoversURL
		if base == "" {
			base = "https://openlibrary.org"
		}
		if covers == "" {
			covers = "https://covers.openlibrary.org"
		}
		ol = openlibrary.NewWithBaseURL(base, covers)
	}
	gb := googlebooks.New()
	if cfg.GoogleBooksURL != "" {
		gb = googlebooks.NewWithBaseURL(cfg.GoogleBooksURL)
	}
	hc := hardcover.New()
	if cfg.HardcoverURL != "" {
		hc = hardcover.NewWithBaseURL(cfg.HardcoverURL)
	}
	ax := audnexus.New()
	if cfg.AudnexusURL != "" {
		ax = audnexus.NewWithBaseURL(cfg.AudnexusURL)
	}

	all := []registry.Registration{
		{Descriptor: openlibrary.Descriptor(), Adapter: ol},
		{Descriptor: googlebooks.Descriptor(), Adapter: gb},
		{Descriptor: hardcover.Descriptor(), Adapter: hc},
		{Descriptor: audnexus.Descriptor(), Adapter: ax},
		{Descriptor: openai.Descriptor(), Adapter: openai.New(openai.WithModel(cfg.OpenAIModel))},
		{Descriptor: localparse.Descriptor(), Adapter: localparse.New()},
	}
	regs := make([]registry.Registration, 0, len(all))
	for _, r := range all {
		if cfg.Enabled(r.Descriptor.Name) {
			regs = append(regs, r)
		}
	}
	return regs
}

// New builds the service. The caller must Close it to release the quota
// store.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	store := o.store
	if store == nil {
		var err error
		store, err = quota.OpenStore(cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("failed to open quota store: %w", err)
		}
	}

	qopts := []quota.Option{
		quota.WithLogger(logging.Named(logger, "quota")),
		quota.WithCeilings(cfg.Quota.SoftCeiling, cfg.Quota.HardCeiling),
		quota.WithLimits(cfg.Quota.Limits),
	}
	if o.clock != nil {
		qopts = append(qopts, quota.WithClock(o.clock))
	}

	s := &Service{
		cfg:     cfg,
		logger:  logger,
		Quota:   quota.NewManager(store, qopts...),
		Limiter: ratelimit.NewProviderLimiter(cfg.RateLimits.PerMinute, cfg.RateLimits.Burst),
		Registry: registry.New(
			registry.WithLogger(logging.Named(logger, "registry")),
			registry.WithAvailabilityTimeout(cfg.Orchestrator.AvailabilityTimeout),
		),
	}

	regs := o.registrations
	if !o.custom {
		regs = DefaultAdapters(cfg.Providers)
	}
	if err := s.Registry.RegisterAll(regs...); err != nil {
		s.Quota.Close()
		return nil, fmt.Errorf("failed to register providers: %w", err)
	}

	s.buildOrchestrators()
	logger.Info("service ready",
		zap.Strings("providers", s.Registry.Names()),
		zap.String("store", cfg.Store.Type))
	return s, nil
}

func (s *Service) buildOrchestrators() {
	oc := s.cfg.Orchestrator
	opts := func(c provider.Capability, timeout time.Duration, extra ...orchestrator.Option) []orchestrator.Option {
		out := []orchestrator.Option{
			orchestrator.WithTimeout(timeout),
			orchestrator.WithLimiter(s.Limiter),
			orchestrator.WithPriority(oc.PriorityFor(c)...),
		}
		return append(out, extra...)
	}
	resolve := orchestrator.WithThreshold(oc.ResolutionThreshold)
	cached := orchestrator.WithCache(oc.CacheTTL)

	s.ISBN = orchestrator.NewISBNOrchestrator(s.Registry, opts(provider.CapISBNResolution, oc.ResolutionTimeout, resolve, cached)...)
	s.Covers = orchestrator.NewCoverOrchestrator(s.Registry, opts(provider.CapCoverImages, oc.CoverTimeout, cached)...)
	s.Authors = orchestrator.NewAuthorOrchestrator(s.Registry, opts(provider.CapAuthorBiography, oc.LookupTimeout, cached)...)
	s.Ratings = orchestrator.NewRatingsOrchestrator(s.Registry, opts(provider.CapRatings, oc.LookupTimeout, cached)...)
	s.Editions = orchestrator.NewEditionsOrchestrator(s.Registry, opts(provider.CapEditionVariants, oc.LookupTimeout, cached)...)
	s.PublicDomain = orchestrator.NewPublicDomainOrchestrator(s.Registry, opts(provider.CapPublicDomain, oc.LookupTimeout, cached)...)
	s.Subjects = orchestrator.NewSubjectOrchestrator(s.Registry, opts(provider.CapSubjectBrowsing, oc.LookupTimeout, cached)...)
	s.Series = orchestrator.NewSeriesOrchestrator(s.Registry, opts(provider.CapSeriesInfo, oc.LookupTimeout, cached)...)
	s.Awards = orchestrator.NewAwardsOrchestrator(s.Registry, opts(provider.CapAwards, oc.LookupTimeout, cached)...)
	s.Translations = orchestrator.NewTranslationsOrchestrator(s.Registry, opts(provider.CapTranslations, oc.LookupTimeout, cached)...)
	s.Generation = orchestrator.NewGenerationOrchestrator(s.Registry,
		opts(provider.CapBookGeneration, oc.FanOutTimeout, orchestrator.WithThreshold(oc.DedupThreshold))...)
	s.Metadata = orchestrator.NewMetadataAggregator(s.Registry, opts(provider.CapMetadataEnrichment, oc.LookupTimeout)...)
	s.ExternalIDs = orchestrator.NewExternalIDAggregator(s.Registry, opts(provider.CapEnhancedExternalIDs, oc.LookupTimeout)...)
}

// Config returns the configuration the service was built with, including
// changes applied through ApplyConfig.
func (s *Service) Config() config.Config {
	return s.cfg
}

// NewContext builds a ServiceContext with the configured defaults. opts are
// applied last and win.
func (s *Service) NewContext(opts ...provider.ContextOption) *provider.ServiceContext {
	cp, _ := cache.ParsePolicy(s.cfg.Context.CachePolicy)
	rp, _ := ratelimit.ParsePolicy(s.cfg.Context.RateLimitPolicy)
	base := []provider.ContextOption{
		provider.WithLogger(s.logger),
		provider.WithQuota(s.Quota),
		provider.WithCachePolicy(cp),
		provider.WithRateLimitPolicy(rp),
		provider.WithTimeout(s.cfg.Context.Timeout),
	}
	if s.cfg.Context.Priority != "" {
		base = append(base, provider.WithPriority(quota.ParsePriority(s.cfg.Context.Priority)))
	}
	return provider.NewServiceContext(append(base, opts...)...)
}

// ApplyConfig pushes the live-tunable parts of cfg into the running
// components: quota limits and ceilings and per-provider rate limits.
// Cached lookup results are dropped so that later calls see the new
// admission rules. Everything else needs a restart.
func (s *Service) ApplyConfig(cfg config.Config) error {
	if err := s.Quota.SetCeilings(cfg.Quota.SoftCeiling, cfg.Quota.HardCeiling); err != nil {
		return err
	}
	s.Quota.SetLimits(cfg.Quota.Limits)
	for _, name := range s.Registry.Names() {
		s.Limiter.SetLimit(name, cfg.RateLimits.PerMinute[name])
	}
	s.cfg.Quota = cfg.Quota
	s.cfg.RateLimits = cfg.RateLimits
	s.InvalidateCaches()
	s.logger.Info("applied config", zap.Int("quota_keys", len(cfg.Quota.Limits)))
	return nil
}

// InvalidateCaches drops the cached results of every sequential
// orchestrator.
func (s *Service) InvalidateCaches() {
	for _, inv := range []interface{ InvalidateCache() }{
		s.ISBN, s.Covers, s.Authors, s.Ratings, s.Editions, s.PublicDomain,
		s.Subjects, s.Series, s.Awards, s.Translations,
	} {
		inv.InvalidateCache()
	}
}

// Close releases the quota store.
func (s *Service) Close() error {
	return s.Quota.Close()
}
