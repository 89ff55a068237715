// file: internal/provider/providertest/mock.go
// version: 1.0.0
// guid: 8a4f0c2e-6b93-4d71-b5e8-2c7d9f1a3e46

// Package providertest provides a testify mock that implements every
// capability interface.
package providertest

import (
	"context"

	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
	"github.com/stretchr/testify/mock"
)

// MockAdapter implements provider.Adapter and every capability interface.
// Expectations use the method names, e.g.
//
//	m.On("IsAvailable", mock.Anything, mock.Anything).Return(true, nil)
type MockAdapter struct {
	mock.Mock
}

// NewMockAdapter creates a mock and asserts its expectations at cleanup.
func NewMockAdapter(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAdapter {
	m := &MockAdapter{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Available is shorthand for an IsAvailable expectation that may be called
// any number of times.
func (m *MockAdapter) Available(ok bool, err error) *MockAdapter {
	m.On("IsAvailable", mock.Anything, mock.Anything).Return(ok, err).Maybe()
	return m
}

func (m *MockAdapter) IsAvailable(ctx context.Context, env provider.Environment) (bool, error) {
	ret := m.Called(ctx, env)
	return ret.Bool(0), ret.Error(1)
}

// result unpacks a (value, error) pair where value may be an untyped nil.
func result[T any](ret mock.Arguments) (T, error) {
	var zero T
	v := ret.Get(0)
	if v == nil {
		return zero, ret.Error(1)
	}
	return v.(T), ret.Error(1)
}

func (m *MockAdapter) ResolveISBN(ctx context.Context, sc *provider.ServiceContext, req provider.ISBNRequest) (*provider.ISBNMatch, error) {
	return result[*provider.ISBNMatch](m.Called(ctx, sc, req))
}

func (m *MockAdapter) FetchCovers(ctx context.Context, sc *provider.ServiceContext, req provider.CoverRequest) ([]provider.CoverImage, error) {
	return result[[]provider.CoverImage](m.Called(ctx, sc, req))
}

func (m *MockAdapter) FetchMetadata(ctx context.Context, sc *provider.ServiceContext, req provider.MetadataRequest) (*provider.BookRecord, error) {
	return result[*provider.BookRecord](m.Called(ctx, sc, req))
}

func (m *MockAdapter) FetchAuthor(ctx context.Context, sc *provider.ServiceContext, req provider.AuthorRequest) (*provider.AuthorBio, error) {
	return result[*provider.AuthorBio](m.Called(ctx, sc, req))
}

func (m *MockAdapter) GenerateBooks(ctx context.Context, sc *provider.ServiceContext, req provider.GenerationRequest) ([]provider.GeneratedBook, error) {
	return result[[]provider.GeneratedBook](m.Called(ctx, sc, req))
}

func (m *MockAdapter) FetchRatings(ctx context.Context, sc *provider.ServiceContext, req provider.RatingsRequest) (*provider.Ratings, error) {
	return result[*provider.Ratings](m.Called(ctx, sc, req))
}

func (m *MockAdapter) FetchEditions(ctx context.Context, sc *provider.ServiceContext, req provider.EditionRequest) ([]provider.Edition, error) {
	return result[[]provider.Edition](m.Called(ctx, sc, req))
}

func (m *MockAdapter) CheckPublicDomain(ctx context.Context, sc *provider.ServiceContext, req provider.PublicDomainRequest) (*provider.PublicDomainInfo, error) {
	return result[*provider.PublicDomainInfo](m.Called(ctx, sc, req))
}

func (m *MockAdapter) BrowseSubject(ctx context.Context, sc *provider.ServiceContext, req provider.SubjectRequest) ([]provider.BookRecord, error) {
	return result[[]provider.BookRecord](m.Called(ctx, sc, req))
}

func (m *MockAdapter) FetchSeries(ctx context.Context, sc *provider.ServiceContext, req provider.SeriesRequest) (*provider.SeriesInfo, error) {
	return result[*provider.SeriesInfo](m.Called(ctx, sc, req))
}

func (m *MockAdapter) FetchAwards(ctx context.Context, sc *provider.ServiceContext, req provider.AwardsRequest) ([]provider.Award, error) {
	return result[[]provider.Award](m.Called(ctx, sc, req))
}

func (m *MockAdapter) FetchTranslations(ctx context.Context, sc *provider.ServiceContext, req provider.TranslationRequest) ([]provider.Translation, error) {
	return result[[]provider.Translation](m.Called(ctx, sc, req))
}

func (m *MockAdapter) FetchExternalIDs(ctx context.Context, sc *provider.ServiceContext, req provider.ExternalIDRequest) (*provider.ExternalIDs, error) {
	return result[*provider.ExternalIDs](m.Called(ctx, sc, req))
}

// StaticAdapter is a lock-free adapter whose availability never changes.
// It only implements IsAvailable, so it can be used to test capability
// checks at registration.
type StaticAdapter struct {
	OK  bool
	Err error
}

func (s StaticAdapter) IsAvailable(context.Context, provider.Environment) (bool, error) {
	return s.OK, s.Err
}
