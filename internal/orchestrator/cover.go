// file: internal/orchestrator/cover.go
// version: 1.1.0
// guid: 7c2a5e9f-4b81-4d36-a0f3-9e6d1b8c4a07

package orchestrator

import (
	"context"
	"slices"
	"strings"

	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
)

// CoverOrchestrator fetches cover images, cheapest providers first.
type CoverOrchestrator = Sequential[provider.CoverRequest, []provider.CoverImage]

func callFetchCovers(ctx context.Context, a provider.Adapter, sc *provider.ServiceContext, req provider.CoverRequest) ([]provider.CoverImage, error) {
	return a.(provider.CoverProvider).FetchCovers(ctx, sc, req)
}

// NewCoverOrchestrator always tries free providers before paid and AI ones;
// WithPriority only orders providers within a type. Covers without a URL
// are dropped and a provider left with none counts as a miss.
func NewCoverOrchestrator(catalog Catalog, opts ...Option) *CoverOrchestrator {
	defaults := settings{timeout: DefaultCoverTimeout}
	opts = append(opts, WithFreeFirst())
	return newSequential(catalog, provider.CapCoverImages, SequentialOps[provider.CoverRequest, []provider.CoverImage]{
		Call:  callFetchCovers,
		Empty: func(c []provider.CoverImage) bool { return len(c) == 0 },
		Validate: func(_ provider.CoverRequest, covers []provider.CoverImage) ([]provider.CoverImage, int, bool) {
			kept := make([]provider.CoverImage, 0, len(covers))
			for _, c := range covers {
				if strings.TrimSpace(c.URL) != "" {
					kept = append(kept, c)
				}
			}
			return kept, 100, len(kept) > 0
		},
		Key: func(req provider.CoverRequest) string {
			return provider.NormalizeISBN(req.ISBN)
		},
		Skip: func(req provider.CoverRequest) bool {
			return strings.TrimSpace(req.ISBN) == ""
		},
		Clone: slices.Clone[[]provider.CoverImage],
	}, defaults, opts)
}
