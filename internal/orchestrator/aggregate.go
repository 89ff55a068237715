// file: internal/orchestrator/aggregate.go
// version: 1.1.0
// guid: 9b1c4f7e-2d60-4a85-b3e9-6c8f0a5d2e14

package orchestrator

import (
	"context"
	"time"

	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Aggregate is a record merged from several providers.
type Aggregate[T any] struct {
	Payload T `json:"payload"`
	// Contributors maps each filled field to the provider that supplied it.
	Contributors map[string]string `json:"contributors"`
	// Sources lists contributing providers in priority order.
	Sources []string `json:"sources"`
}

// Found reports whether any provider contributed a field.
func (a Aggregate[T]) Found() bool {
	return len(a.Sources) > 0
}

// Aggregator queries every available provider concurrently and merges the
// first non-empty value of each field in priority order.
type Aggregator[Req, Resp any] struct {
	base
	call       Call[Req, Resp]
	empty      func(Resp) bool
	newPayload func() Resp
	merge      func(dst, src Resp) []string
}

// NewAggregator builds an aggregator. merge copies the empty fields of dst
// from src and returns the names of the fields it filled.
func NewAggregator[Req, Resp any](catalog Catalog, c provider.Capability, call Call[Req, Resp],
	empty func(Resp) bool, newPayload func() Resp, merge func(dst, src Resp) []string, opts ...Option) *Aggregator[Req, Resp] {
	return &Aggregator[Req, Resp]{
		base:       newBase(catalog, c, strategyAggregate, settings{timeout: DefaultLookupTimeout}, opts),
		call:       call,
		empty:      empty,
		newPayload: newPayload,
		merge:      merge,
	}
}

// Execute never fails. With no contributions the payload is the empty value
// from newPayload.
func (a *Aggregator[Req, Resp]) Execute(ctx context.Context, sc *provider.ServiceContext, req Req) Aggregate[Resp] {
	if sc == nil {
		sc = provider.NewServiceContext()
	}
	start := time.Now()
	log := a.logger(sc)
	a.state(log, StateInit)

	out := Aggregate[Resp]{Payload: a.newPayload(), Contributors: map[string]string{}}

	ctx, cancel := withBudget(ctx, sc)
	defer cancel()

	candidates := a.candidates(ctx, sc)
	a.state(log, StateFilterAvailable, zap.Int("candidates", len(candidates)))
	if len(candidates) == 0 {
		a.state(log, StateExhausted)
		a.finish(log, start, resultExhausted)
		return out
	}

	responses := make([]Resp, len(candidates))
	hits := make([]bool, len(candidates))
	var g errgroup.Group
	for i, d := range candidates {
		g.Go(func() error {
			resp, outcome := dispatch(ctx, &a.base, sc, log, d, req, a.call, a.empty)
			responses[i], hits[i] = resp, outcome == outcomeHit
			return nil
		})
	}
	_ = g.Wait()

	for i, d := range candidates {
		if !hits[i] {
			continue
		}
		filled := a.merge(out.Payload, responses[i])
		if len(filled) == 0 {
			continue
		}
		for _, field := range filled {
			out.Contributors[field] = d.Name
		}
		out.Sources = append(out.Sources, d.Name)
	}

	if !out.Found() {
		a.state(log, StateExhausted)
		a.finish(log, start, resultExhausted)
		return out
	}
	a.state(log, StateSuccess, zap.Strings("sources", out.Sources))
	a.finish(log, start, resultSuccess)
	return out
}

// MetadataAggregator merges bibliographic records.
type MetadataAggregator = Aggregator[provider.MetadataRequest, *provider.BookRecord]

// NewMetadataAggregator merges every available METADATA_ENRICHMENT answer
// field by field in priority order.
func NewMetadataAggregator(catalog Catalog, opts ...Option) *MetadataAggregator {
	return NewAggregator(catalog, provider.CapMetadataEnrichment,
		func(ctx context.Context, a provider.Adapter, sc *provider.ServiceContext, req provider.MetadataRequest) (*provider.BookRecord, error) {
			return a.(provider.MetadataProvider).FetchMetadata(ctx, sc, req)
		},
		(*provider.BookRecord).Empty,
		func() *provider.BookRecord { return &provider.BookRecord{} },
		func(dst, src *provider.BookRecord) []string { return dst.MergeFrom(src) },
		opts...)
}

// ExternalIDAggregator merges identifiers from other catalogs.
type ExternalIDAggregator = Aggregator[provider.ExternalIDRequest, *provider.ExternalIDs]

// NewExternalIDAggregator collects identifiers from every available
// ENHANCED_EXTERNAL_IDS provider.
func NewExternalIDAggregator(catalog Catalog, opts ...Option) *ExternalIDAggregator {
	return NewAggregator(catalog, provider.CapEnhancedExternalIDs,
		func(ctx context.Context, a provider.Adapter, sc *provider.ServiceContext, req provider.ExternalIDRequest) (*provider.ExternalIDs, error) {
			return a.(provider.ExternalIDProvider).FetchExternalIDs(ctx, sc, req)
		},
		(*provider.ExternalIDs).Empty,
		func() *provider.ExternalIDs { return &provider.ExternalIDs{} },
		func(dst, src *provider.ExternalIDs) []string { return dst.MergeFrom(src) },
		opts...)
}
