// file: internal/orchestrator/isbn.go
// version: 1.1.0
// guid: 0e5b7c3a-f1d6-4a29-8b47-c3e9a6f0d251

package orchestrator

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/jdfalk/bookmeta-orchestrator/internal/matcher"
	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
)

// Default per-provider timeouts.
const (
	DefaultResolutionTimeout = 12 * time.Second
	DefaultCoverTimeout      = 10 * time.Second
	DefaultLookupTimeout     = 15 * time.Second
	DefaultFanOutTimeout     = 60 * time.Second
)

// ISBNOrchestrator resolves a title/author pair to an ISBN.
type ISBNOrchestrator = Sequential[provider.ISBNRequest, *provider.ISBNMatch]

func callResolveISBN(ctx context.Context, a provider.Adapter, sc *provider.ServiceContext, req provider.ISBNRequest) (*provider.ISBNMatch, error) {
	return a.(provider.ISBNResolver).ResolveISBN(ctx, sc, req)
}

// NewISBNOrchestrator tries providers in the configured priority order and
// accepts the first match whose title and author are at least
// matcher.ResolutionThreshold similar to the request and whose ISBN has a
// valid checksum.
func NewISBNOrchestrator(catalog Catalog, opts ...Option) *ISBNOrchestrator {
	defaults := settings{timeout: DefaultResolutionTimeout, threshold: matcher.ResolutionThreshold}
	var s *ISBNOrchestrator
	s = newSequential(catalog, provider.CapISBNResolution, SequentialOps[provider.ISBNRequest, *provider.ISBNMatch]{
		Call: callResolveISBN,
		Empty: func(m *provider.ISBNMatch) bool {
			return m == nil || strings.TrimSpace(m.ISBN) == ""
		},
		Validate: func(req provider.ISBNRequest, m *provider.ISBNMatch) (*provider.ISBNMatch, int, bool) {
			isbn := provider.NormalizeISBN(m.ISBN)
			if isbn == "" {
				return m, 0, false
			}
			sim := matcher.TitleAuthorSimilarity(req.Title, req.Author, m.Title, m.Author)
			confidence := int(math.Round(sim * 100))
			if sim < s.threshold {
				return m, confidence, false
			}
			out := *m
			out.ISBN = isbn
			return &out, confidence, true
		},
		Key: func(req provider.ISBNRequest) string {
			return matcher.Normalize(req.Title) + "|" + matcher.Normalize(req.Author)
		},
		Skip: func(req provider.ISBNRequest) bool {
			return strings.TrimSpace(req.Title) == ""
		},
		Clone: clonePtr[provider.ISBNMatch],
	}, defaults, opts)
	return s
}
