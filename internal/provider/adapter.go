// file: internal/provider/adapter.go
// version: 1.0.0
// guid: 2e8f4a17-c39d-4b60-a7e5-91d3b0c6f824

package provider

import (
	"context"
	"fmt"
	"os"
	"slices"
)

// Type classifies a provider by cost.
type Type string

const (
	TypeFree Type = "free"
	TypePaid Type = "paid"
	TypeAI   Type = "ai"
)

// Valid reports whether t is a known provider type.
func (t Type) Valid() bool {
	switch t {
	case TypeFree, TypePaid, TypeAI:
		return true
	}
	return false
}

// Rank orders types cheapest first.
func (t Type) Rank() int {
	switch t {
	case TypeFree:
		return 0
	case TypePaid:
		return 1
	case TypeAI:
		return 2
	default:
		return 3
	}
}

// Descriptor is the static catalog entry for one provider.
type Descriptor struct {
	Name         string       `json:"name" yaml:"name"`
	Type         Type         `json:"type" yaml:"type"`
	Capabilities []Capability `json:"capabilities" yaml:"capabilities"`
	// QuotaKey names the daily budget the provider draws from. Empty means
	// the provider is unmetered.
	QuotaKey string `json:"quota_key,omitempty" yaml:"quota_key,omitempty"`
}

// Supports reports whether d declares c.
func (d Descriptor) Supports(c Capability) bool {
	return slices.Contains(d.Capabilities, c)
}

// Metered reports whether calls count against a quota.
func (d Descriptor) Metered() bool {
	return d.QuotaKey != ""
}

// Clone returns a copy that shares no slices with d.
func (d Descriptor) Clone() Descriptor {
	d.Capabilities = slices.Clone(d.Capabilities)
	return d
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s(%s)", d.Name, d.Type)
}

// Environment exposes configuration such as API keys to adapters.
type Environment interface {
	Lookup(key string) (string, bool)
}

// OSEnvironment reads the process environment.
type OSEnvironment struct{}

func (OSEnvironment) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapEnvironment is a fixed environment, mostly for tests.
type MapEnvironment map[string]string

func (m MapEnvironment) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// HasValue reports whether key is set to a non-empty value in env.
func HasValue(env Environment, key string) bool {
	if env == nil {
		return false
	}
	v, ok := env.Lookup(key)
	return ok && v != ""
}

// Adapter is the part every provider implements. Capability methods come
// from the per-capability interfaces below.
//
// A miss is reported as a nil or empty response with a nil error. An error
// is treated as a miss by every orchestrator.
type Adapter interface {
	IsAvailable(ctx context.Context, env Environment) (bool, error)
}

type ISBNResolver interface {
	ResolveISBN(ctx context.Context, sc *ServiceContext, req ISBNRequest) (*ISBNMatch, error)
}

type CoverProvider interface {
	FetchCovers(ctx context.Context, sc *ServiceContext, req CoverRequest) ([]CoverImage, error)
}

type MetadataProvider interface {
	FetchMetadata(ctx context.Context, sc *ServiceContext, req MetadataRequest) (*BookRecord, error)
}

type AuthorBiographer interface {
	FetchAuthor(ctx context.Context, sc *ServiceContext, req AuthorRequest) (*AuthorBio, error)
}

type BookGenerator interface {
	GenerateBooks(ctx context.Context, sc *ServiceContext, req GenerationRequest) ([]GeneratedBook, error)
}

type RatingsProvider interface {
	FetchRatings(ctx context.Context, sc *ServiceContext, req RatingsRequest) (*Ratings, error)
}

type EditionProvider interface {
	FetchEditions(ctx context.Context, sc *ServiceContext, req EditionRequest) ([]Edition, error)
}

type PublicDomainProvider interface {
	CheckPublicDomain(ctx context.Context, sc *ServiceContext, req PublicDomainRequest) (*PublicDomainInfo, error)
}

type SubjectBrowser interface {
	BrowseSubject(ctx context.Context, sc *ServiceContext, req SubjectRequest) ([]BookRecord, error)
}

type SeriesProvider interface {
	FetchSeries(ctx context.Context, sc *ServiceContext, req SeriesRequest) (*SeriesInfo, error)
}

type AwardsProvider interface {
	FetchAwards(ctx context.Context, sc *ServiceContext, req AwardsRequest) ([]Award, error)
}

type TranslationProvider interface {
	FetchTranslations(ctx context.Context, sc *ServiceContext, req TranslationRequest) ([]Translation, error)
}

type ExternalIDProvider interface {
	FetchExternalIDs(ctx context.Context, sc *ServiceContext, req ExternalIDRequest) (*ExternalIDs, error)
}
