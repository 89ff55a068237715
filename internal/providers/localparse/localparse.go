// file: internal/providers/localparse/localparse.go
// version: 1.0.0
// guid: 4e8a1c73-2b95-4d06-a1f7-c3e9d8b02a64

// Package localparse answers series questions from the title alone, without
// any network access.
package localparse

import (
	"context"

	"github.com/jdfalk/bookmeta-orchestrator/internal/matcher"
	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
)

const Name = "title-parser"

func Descriptor() provider.Descriptor {
	return provider.Descriptor{
		Name:         Name,
		Type:         provider.TypeFree,
		Capabilities: []provider.Capability{provider.CapSeriesInfo},
	}
}

// Parser is always available.
type Parser struct{}

func New() *Parser {
	return &Parser{}
}

func (p *Parser) IsAvailable(context.Context, provider.Environment) (bool, error) {
	return true, nil
}

// FetchSeries recognizes "Title (Series #2)", "Series Book 2: Title" and
// "The Series Trilogy: Title" forms.
func (p *Parser) FetchSeries(_ context.Context, _ *provider.ServiceContext, req provider.SeriesRequest) (*provider.SeriesInfo, error) {
	m, ok := matcher.ParseSeries(req.Title)
	if !ok {
		return nil, nil
	}
	return &provider.SeriesInfo{Name: m.Series, Position: m.Position}, nil
}
