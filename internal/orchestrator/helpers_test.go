// file: internal/orchestrator/helpers_test.go
// version: 1.0.0
// guid: 1d6a3f8c-e59b-4072-a4c1-7b2e9d0f6a38

package orchestrator

import (
	"context"
	"testing"

	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
	"github.com/jdfalk/bookmeta-orchestrator/internal/provider/providertest"
	"github.com/jdfalk/bookmeta-orchestrator/internal/registry"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var any3 = []interface{}{mock.Anything, mock.Anything, mock.Anything}

type fixture struct {
	t   *testing.T
	reg *registry.Registry
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, reg: registry.New()}
}

// add registers a mock that reports itself available.
func (f *fixture) add(name string, typ provider.Type, quotaKey string, caps ...provider.Capability) *providertest.MockAdapter {
	f.t.Helper()
	m := providertest.NewMockAdapter(f.t).Available(true, nil)
	require.NoError(f.t, f.reg.Register(provider.Descriptor{
		Name: name, Type: typ, Capabilities: caps, QuotaKey: quotaKey,
	}, m))
	return m
}

// addUnavailable registers a mock whose IsAvailable returns false.
func (f *fixture) addUnavailable(name string, caps ...provider.Capability) *providertest.MockAdapter {
	f.t.Helper()
	m := providertest.NewMockAdapter(f.t).Available(false, nil)
	require.NoError(f.t, f.reg.Register(provider.Descriptor{
		Name: name, Type: provider.TypeFree, Capabilities: caps,
	}, m))
	return m
}

func testContext(opts ...provider.ContextOption) *provider.ServiceContext {
	return provider.NewServiceContext(append([]provider.ContextOption{
		provider.WithEnvironment(provider.MapEnvironment{}),
	}, opts...)...)
}

// stubISBN answers ResolveISBN with a fixed match, or a miss when nil.
type stubISBN struct {
	available bool
	match     *provider.ISBNMatch
}

func (s stubISBN) IsAvailable(context.Context, provider.Environment) (bool, error) {
	return s.available, nil
}

func (s stubISBN) ResolveISBN(context.Context, *provider.ServiceContext, provider.ISBNRequest) (*provider.ISBNMatch, error) {
	return s.match, nil
}

const (
	duneISBN13 = "9780441172719"
	duneISBN10 = "0441172717"
)

func duneMatch() *provider.ISBNMatch {
	return &provider.ISBNMatch{ISBN: duneISBN13, Title: "Dune", Author: "Frank Herbert"}
}
