// file: internal/orchestrator/fanout.go
// version: 1.0.0
// guid: 3a9e6d2c-5f04-4b18-8c7a-b1d0e4f9a376

package orchestrator

import (
	"context"
	"time"

	"github.com/jdfalk/bookmeta-orchestrator/internal/matcher"
	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sourced is one fan-out item tagged with the provider that produced it.
type Sourced[T any] struct {
	Item   T      `json:"item"`
	Source string `json:"source"`
}

// FanOut calls every available provider at once and merges their lists,
// collapsing items whose keys are near-duplicates.
type FanOut[Req, Item any] struct {
	base
	call Call[Req, []Item]
	key  func(Item) string
}

// NewFanOut builds a fan-out orchestrator. key extracts the string compared
// during dedup; items with a blank key are dropped.
func NewFanOut[Req, Item any](catalog Catalog, c provider.Capability, call Call[Req, []Item], key func(Item) string, opts ...Option) *FanOut[Req, Item] {
	defaults := settings{timeout: DefaultFanOutTimeout, threshold: matcher.DedupThreshold}
	return &FanOut[Req, Item]{
		base: newBase(catalog, c, strategyFanOut, defaults, opts),
		call: call,
		key:  key,
	}
}

// Threshold returns the dedup similarity threshold.
func (f *FanOut[Req, Item]) Threshold() float64 { return f.threshold }

// Execute returns the deduplicated items in provider order. A provider that
// times out or fails contributes nothing and does not affect the others.
// The result is empty, never nil, when nothing was produced.
func (f *FanOut[Req, Item]) Execute(ctx context.Context, sc *provider.ServiceContext, req Req) []Sourced[Item] {
	if sc == nil {
		sc = provider.NewServiceContext()
	}
	start := time.Now()
	log := f.logger(sc)
	f.state(log, StateInit)

	ctx, cancel := withBudget(ctx, sc)
	defer cancel()

	candidates := f.candidates(ctx, sc)
	f.state(log, StateFilterAvailable, zap.Int("candidates", len(candidates)))
	if len(candidates) == 0 {
		f.state(log, StateExhausted)
		f.finish(log, start, resultExhausted)
		return []Sourced[Item]{}
	}

	lists := make([][]Item, len(candidates))
	var g errgroup.Group
	for i, d := range candidates {
		g.Go(func() error {
			items, outcome := dispatch(ctx, &f.base, sc, log, d, req, f.call, isEmpty[Item])
			if outcome == outcomeHit {
				lists[i] = items
			}
			return nil
		})
	}
	_ = g.Wait()

	var all []Sourced[Item]
	for i, d := range candidates {
		for _, item := range lists[i] {
			if blank(f.key(item)) {
				continue
			}
			all = append(all, Sourced[Item]{Item: item, Source: d.Name})
		}
	}
	out := matcher.Dedup(all, func(s Sourced[Item]) string { return f.key(s.Item) }, f.threshold)
	log.Debug("fan-out merged",
		zap.Int("raw", len(all)),
		zap.Int("deduplicated", len(out)))

	if len(out) == 0 {
		f.state(log, StateExhausted)
		f.finish(log, start, resultExhausted)
		return []Sourced[Item]{}
	}
	f.state(log, StateSuccess, zap.Int("items", len(out)))
	f.finish(log, start, resultSuccess)
	return out
}

// Items strips the sources from a fan-out result.
func Items[T any](sourced []Sourced[T]) []T {
	out := make([]T, len(sourced))
	for i, s := range sourced {
		out[i] = s.Item
	}
	return out
}

// GenerationOrchestrator fans BOOK_GENERATION out to every generator.
type GenerationOrchestrator struct {
	*FanOut[provider.GenerationRequest, provider.GeneratedBook]
}

// NewGenerationOrchestrator dedups generated books by title.
func NewGenerationOrchestrator(catalog Catalog, opts ...Option) *GenerationOrchestrator {
	call := func(ctx context.Context, a provider.Adapter, sc *provider.ServiceContext, req provider.GenerationRequest) ([]provider.GeneratedBook, error) {
		return a.(provider.BookGenerator).GenerateBooks(ctx, sc, req)
	}
	key := func(b provider.GeneratedBook) string { return b.Title }
	return &GenerationOrchestrator{NewFanOut(catalog, provider.CapBookGeneration, call, key, opts...)}
}

// Execute runs the fan-out and trims the merged list to req.Count when it
// is positive.
func (g *GenerationOrchestrator) Execute(ctx context.Context, sc *provider.ServiceContext, req provider.GenerationRequest) []Sourced[provider.GeneratedBook] {
	out := g.FanOut.Execute(ctx, sc, req)
	if req.Count > 0 && len(out) > req.Count {
		out = out[:req.Count]
	}
	return out
}
