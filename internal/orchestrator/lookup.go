// file: internal/orchestrator/lookup.go
// version: 1.1.0
// guid: d4f8b2e6-1a97-4c53-b0d2-8e7a5c3f9b61

package orchestrator

import (
	"context"
	"math"
	"slices"
	"strings"

	"github.com/jdfalk/bookmeta-orchestrator/internal/matcher"
	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
)

// Sequential orchestrators for the single-answer lookup capabilities.
type (
	AuthorOrchestrator       = Sequential[provider.AuthorRequest, *provider.AuthorBio]
	RatingsOrchestrator      = Sequential[provider.RatingsRequest, *provider.Ratings]
	EditionsOrchestrator     = Sequential[provider.EditionRequest, []provider.Edition]
	PublicDomainOrchestrator = Sequential[provider.PublicDomainRequest, *provider.PublicDomainInfo]
	SubjectOrchestrator      = Sequential[provider.SubjectRequest, []provider.BookRecord]
	SeriesOrchestrator       = Sequential[provider.SeriesRequest, *provider.SeriesInfo]
	AwardsOrchestrator       = Sequential[provider.AwardsRequest, []provider.Award]
	TranslationsOrchestrator = Sequential[provider.TranslationRequest, []provider.Translation]
)

func isNil[T any](v *T) bool { return v == nil }

func isEmpty[T any](v []T) bool { return len(v) == 0 }

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneRecords(books []provider.BookRecord) []provider.BookRecord {
	if books == nil {
		return nil
	}
	out := make([]provider.BookRecord, len(books))
	for i := range books {
		out[i] = *books[i].Clone()
	}
	return out
}

func isbnKey(isbn string) string {
	if n := provider.NormalizeISBN(isbn); n != "" {
		return n
	}
	return strings.TrimSpace(isbn)
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// NewAuthorOrchestrator accepts a biography only when its name agrees with
// the requested one name by name (matcher.SameAuthor), so a relative with
// the same surname is rejected. Confidence is the overall name similarity.
func NewAuthorOrchestrator(catalog Catalog, opts ...Option) *AuthorOrchestrator {
	return NewSequential(catalog, provider.CapAuthorBiography, SequentialOps[provider.AuthorRequest, *provider.AuthorBio]{
		Call: func(ctx context.Context, a provider.Adapter, sc *provider.ServiceContext, req provider.AuthorRequest) (*provider.AuthorBio, error) {
			return a.(provider.AuthorBiographer).FetchAuthor(ctx, sc, req)
		},
		Empty: func(b *provider.AuthorBio) bool { return b == nil || blank(b.Name) },
		Validate: func(req provider.AuthorRequest, b *provider.AuthorBio) (*provider.AuthorBio, int, bool) {
			sim := matcher.AuthorSimilarity(req.Name, b.Name)
			return b, int(math.Round(sim * 100)), matcher.SameAuthor(req.Name, b.Name)
		},
		Key:   func(req provider.AuthorRequest) string { return matcher.Normalize(req.Name) },
		Skip:  func(req provider.AuthorRequest) bool { return blank(req.Name) },
		Clone: (*provider.AuthorBio).Clone,
	}, opts...)
}

// NewRatingsOrchestrator accepts the first rating backed by at least one vote.
func NewRatingsOrchestrator(catalog Catalog, opts ...Option) *RatingsOrchestrator {
	return NewSequential(catalog, provider.CapRatings, SequentialOps[provider.RatingsRequest, *provider.Ratings]{
		Call: func(ctx context.Context, a provider.Adapter, sc *provider.ServiceContext, req provider.RatingsRequest) (*provider.Ratings, error) {
			return a.(provider.RatingsProvider).FetchRatings(ctx, sc, req)
		},
		Empty: func(r *provider.Ratings) bool { return r == nil || r.Count <= 0 },
		Key:   func(req provider.RatingsRequest) string { return isbnKey(req.ISBN) },
		Skip:  func(req provider.RatingsRequest) bool { return blank(req.ISBN) },
		Clone: clonePtr[provider.Ratings],
	}, opts...)
}

// NewEditionsOrchestrator returns the first non-empty list of editions.
func NewEditionsOrchestrator(catalog Catalog, opts ...Option) *EditionsOrchestrator {
	return NewSequential(catalog, provider.CapEditionVariants, SequentialOps[provider.EditionRequest, []provider.Edition]{
		Call: func(ctx context.Context, a provider.Adapter, sc *provider.ServiceContext, req provider.EditionRequest) ([]provider.Edition, error) {
			return a.(provider.EditionProvider).FetchEditions(ctx, sc, req)
		},
		Empty: isEmpty[provider.Edition],
		Key:   func(req provider.EditionRequest) string { return isbnKey(req.ISBN) },
		Skip:  func(req provider.EditionRequest) bool { return blank(req.ISBN) },
		Clone: slices.Clone[[]provider.Edition],
	}, opts...)
}

// NewPublicDomainOrchestrator returns the first provider answer, including
// a negative one.
func NewPublicDomainOrchestrator(catalog Catalog, opts ...Option) *PublicDomainOrchestrator {
	return NewSequential(catalog, provider.CapPublicDomain, SequentialOps[provider.PublicDomainRequest, *provider.PublicDomainInfo]{
		Call: func(ctx context.Context, a provider.Adapter, sc *provider.ServiceContext, req provider.PublicDomainRequest) (*provider.PublicDomainInfo, error) {
			return a.(provider.PublicDomainProvider).CheckPublicDomain(ctx, sc, req)
		},
		Empty: isNil[provider.PublicDomainInfo],
		Key: func(req provider.PublicDomainRequest) string {
			return isbnKey(req.ISBN) + "|" + matcher.Normalize(req.Title) + "|" + matcher.Normalize(req.Author)
		},
		Skip:  func(req provider.PublicDomainRequest) bool { return blank(req.ISBN) && blank(req.Title) },
		Clone: (*provider.PublicDomainInfo).Clone,
	}, opts...)
}

// NewSubjectOrchestrator returns the first non-empty subject listing, cut
// to the requested limit. Subject listings are not cached.
func NewSubjectOrchestrator(catalog Catalog, opts ...Option) *SubjectOrchestrator {
	return NewSequential(catalog, provider.CapSubjectBrowsing, SequentialOps[provider.SubjectRequest, []provider.BookRecord]{
		Call: func(ctx context.Context, a provider.Adapter, sc *provider.ServiceContext, req provider.SubjectRequest) ([]provider.BookRecord, error) {
			return a.(provider.SubjectBrowser).BrowseSubject(ctx, sc, req)
		},
		Empty: isEmpty[provider.BookRecord],
		Validate: func(req provider.SubjectRequest, books []provider.BookRecord) ([]provider.BookRecord, int, bool) {
			if req.Limit > 0 && len(books) > req.Limit {
				books = books[:req.Limit]
			}
			return books, 100, true
		},
		Skip:  func(req provider.SubjectRequest) bool { return blank(req.Subject) },
		Clone: cloneRecords,
	}, opts...)
}

// NewSeriesOrchestrator returns the first named series.
func NewSeriesOrchestrator(catalog Catalog, opts ...Option) *SeriesOrchestrator {
	return NewSequential(catalog, provider.CapSeriesInfo, SequentialOps[provider.SeriesRequest, *provider.SeriesInfo]{
		Call: func(ctx context.Context, a provider.Adapter, sc *provider.ServiceContext, req provider.SeriesRequest) (*provider.SeriesInfo, error) {
			return a.(provider.SeriesProvider).FetchSeries(ctx, sc, req)
		},
		Empty: func(s *provider.SeriesInfo) bool { return s == nil || blank(s.Name) },
		Key:   func(req provider.SeriesRequest) string { return isbnKey(req.ISBN) + "|" + matcher.Normalize(req.Title) },
		Skip:  func(req provider.SeriesRequest) bool { return blank(req.ISBN) && blank(req.Title) },
		Clone: clonePtr[provider.SeriesInfo],
	}, opts...)
}

// NewAwardsOrchestrator returns the first non-empty list of awards.
func NewAwardsOrchestrator(catalog Catalog, opts ...Option) *AwardsOrchestrator {
	return NewSequential(catalog, provider.CapAwards, SequentialOps[provider.AwardsRequest, []provider.Award]{
		Call: func(ctx context.Context, a provider.Adapter, sc *provider.ServiceContext, req provider.AwardsRequest) ([]provider.Award, error) {
			return a.(provider.AwardsProvider).FetchAwards(ctx, sc, req)
		},
		Empty: isEmpty[provider.Award],
		Key:   func(req provider.AwardsRequest) string { return isbnKey(req.ISBN) },
		Skip:  func(req provider.AwardsRequest) bool { return blank(req.ISBN) },
		Clone: slices.Clone[[]provider.Award],
	}, opts...)
}

// NewTranslationsOrchestrator returns the first non-empty list of
// translations.
func NewTranslationsOrchestrator(catalog Catalog, opts ...Option) *TranslationsOrchestrator {
	return NewSequential(catalog, provider.CapTranslations, SequentialOps[provider.TranslationRequest, []provider.Translation]{
		Call: func(ctx context.Context, a provider.Adapter, sc *provider.ServiceContext, req provider.TranslationRequest) ([]provider.Translation, error) {
			return a.(provider.TranslationProvider).FetchTranslations(ctx, sc, req)
		},
		Empty: isEmpty[provider.Translation],
		Key:   func(req provider.TranslationRequest) string { return isbnKey(req.ISBN) },
		Skip:  func(req provider.TranslationRequest) bool { return blank(req.ISBN) },
		Clone: slices.Clone[[]provider.Translation],
	}, opts...)
}
