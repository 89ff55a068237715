// file: internal/providers/hardcover/hardcover.go
// version: 2.0.0
// guid: e7e02554-8931-49ba-9528-d3d51279da1d

// Package hardcover adapts the Hardcover.app GraphQL search API. It needs a
// bearer token and its calls are metered.
package hardcover

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
	"go.uber.org/zap"
)

const (
	Name      = "hardcover"
	QuotaKey  = "hardcover"
	APIKeyEnv = "HARDCOVER_API_TOKEN"
)

func Descriptor() provider.Descriptor {
	return provider.Descriptor{
		Name: Name,
		Type: provider.TypePaid,
		Capabilities: []provider.Capability{
			provider.CapISBNResolution,
			provider.CapCoverImages,
			provider.CapRatings,
			provider.CapSeriesInfo,
		},
		QuotaKey: QuotaKey,
	}
}

// Client searches the Hardcover book index.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New creates a client for HARDCOVER_BASE_URL, or the public endpoint.
func New() *Client {
	baseURL := os.Getenv("HARDCOVER_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.hardcover.app/v1/graphql"
	}
	return NewWithBaseURL(baseURL)
}

// NewWithBaseURL creates a client with a custom base URL (for testing).
func NewWithBaseURL(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// IsAvailable reports whether an API token is configured.
func (c *Client) IsAvailable(_ context.Context, env provider.Environment) (bool, error) {
	return provider.HasValue(env, APIKeyEnv), nil
}

const searchQuery = `query Search($q: String!) {
  search_books(query: $q, limit: 5) {
    results { hits { document {
      title author_names isbns image { url } rating ratings_count series_names release_year
    } } }
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data *struct {
		SearchBooks *struct {
			Results *struct {
				Hits []struct {
					Document document `json:"document"`
				} `json:"hits"`
			} `json:"results"`
		} `json:"search_books"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type document struct {
	Title        string   `json:"title"`
	AuthorNames  []string `json:"author_names"`
	ISBNs        []string `json:"isbns"`
	Image        *image   `json:"image"`
	Rating       float64  `json:"rating"`
	RatingsCount int      `json:"ratings_count"`
	SeriesNames  []string `json:"series_names"`
	ReleaseYear  int      `json:"release_year"`
}

type image struct {
	URL string `json:"url"`
}

// search returns the hits for q, or nil on any failure. Failures are logged
// at debug and treated as a miss.
func (c *Client) search(ctx context.Context, sc *provider.ServiceContext, q string) []document {
	token, _ := sc.Environment().Lookup(APIKeyEnv)
	if token == "" {
		return nil
	}
	docs, err := c.query(ctx, token, q)
	if err != nil {
		sc.Log().Debug("hardcover search failed", zap.Error(err))
		return nil
	}
	return docs
}

func (c *Client) query(ctx context.Context, token, q string) ([]document, error) {
	body, err := json.Marshal(graphQLRequest{Query: searchQuery, Variables: map[string]any{"q": q}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Hardcover request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create Hardcover request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query Hardcover: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Hardcover API returned status %d", resp.StatusCode)
	}

	var gql graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&gql); err != nil {
		return nil, fmt.Errorf("failed to decode Hardcover response: %w", err)
	}
	if len(gql.Errors) > 0 {
		return nil, fmt.Errorf("Hardcover GraphQL error: %s", gql.Errors[0].Message)
	}
	if gql.Data == nil || gql.Data.SearchBooks == nil || gql.Data.SearchBooks.Results == nil {
		return nil, nil
	}
	docs := make([]document, 0, len(gql.Data.SearchBooks.Results.Hits))
	for _, hit := range gql.Data.SearchBooks.Results.Hits {
		docs = append(docs, hit.Document)
	}
	return docs, nil
}

// byISBN returns the first hit listing isbn among its ISBNs.
func (c *Client) byISBN(ctx context.Context, sc *provider.ServiceContext, isbn string) (document, bool) {
	isbn = provider.NormalizeISBN(isbn)
	if isbn == "" {
		return document{}, false
	}
	for _, doc := range c.search(ctx, sc, isbn) {
		for _, candidate := range doc.ISBNs {
			if provider.NormalizeISBN(candidate) == isbn {
				return doc, true
			}
		}
	}
	return document{}, false
}

func (c *Client) ResolveISBN(ctx context.Context, sc *provider.ServiceContext, req provider.ISBNRequest) (*provider.ISBNMatch, error) {
	q := strings.TrimSpace(req.Title + " " + req.Author)
	for _, doc := range c.search(ctx, sc, q) {
		isbn := preferISBN13(doc.ISBNs)
		if isbn == "" {
			continue
		}
		m := &provider.ISBNMatch{ISBN: isbn, Title: doc.Title}
		if len(doc.AuthorNames) > 0 {
			m.Author = doc.AuthorNames[0]
		}
		return m, nil
	}
	return nil, nil
}

func (c *Client) FetchCovers(ctx context.Context, sc *provider.ServiceContext, req provider.CoverRequest) ([]provider.CoverImage, error) {
	doc, ok := c.byISBN(ctx, sc, req.ISBN)
	if !ok || doc.Image == nil || doc.Image.URL == "" {
		return nil, nil
	}
	return []provider.CoverImage{{URL: doc.Image.URL}}, nil
}

func (c *Client) FetchRatings(ctx context.Context, sc *provider.ServiceContext, req provider.RatingsRequest) (*provider.Ratings, error) {
	doc, ok := c.byISBN(ctx, sc, req.ISBN)
	if !ok || doc.RatingsCount == 0 {
		return nil, nil
	}
	return &provider.Ratings{Average: doc.Rating, Count: doc.RatingsCount}, nil
}

// FetchSeries looks the book up by ISBN when one is given, else by title.
func (c *Client) FetchSeries(ctx context.Context, sc *provider.ServiceContext, req provider.SeriesRequest) (*provider.SeriesInfo, error) {
	var doc document
	if req.ISBN != "" {
		var ok bool
		if doc, ok = c.byISBN(ctx, sc, req.ISBN); !ok {
			return nil, nil
		}
	} else {
		docs := c.search(ctx, sc, req.Title)
		if len(docs) == 0 {
			return nil, nil
		}
		doc = docs[0]
	}
	if len(doc.SeriesNames) == 0 || strings.TrimSpace(doc.SeriesNames[0]) == "" {
		return nil, nil
	}
	return &provider.SeriesInfo{Name: doc.SeriesNames[0]}, nil
}

func preferISBN13(isbns []string) string {
	var fallback string
	for _, raw := range isbns {
		isbn := provider.NormalizeISBN(raw)
		switch len(isbn) {
		case 13:
			return isbn
		case 10:
			if fallback == "" {
				fallback = isbn
			}
		}
	}
	return fallback
}
