// file: internal/providers/audnexus/audnexus.go
// version: 3.0.0
// guid: c3d4e5f6-a7b8-9c0d-1e2f-a3b4c5d6e7f8

// Package audnexus serves author biographies from the Audnexus community
// API, which mirrors Audible author pages.
package audnexus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
	"go.uber.org/zap"
)

const Name = "audnexus"

func Descriptor() provider.Descriptor {
	return provider.Descriptor{
		Name:         Name,
		Type:         provider.TypeFree,
		Capabilities: []provider.Capability{provider.CapAuthorBiography},
	}
}

// Client looks authors up by name, then fetches the full author record.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New creates a client for AUDNEXUS_BASE_URL, or the public API.
func New() *Client {
	baseURL := os.Getenv("AUDNEXUS_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.audnex.us"
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

func (c *Client) IsAvailable(context.Context, provider.Environment) (bool, error) {
	return true, nil
}

type audnexusPerson struct {
	ASIN string `json:"asin"`
	Name string `json:"name"`
}

type audnexusAuthor struct {
	ASIN        string           `json:"asin"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Image       string           `json:"image"`
	Similar     []audnexusPerson `json:"similar"`
}

// FetchAuthor searches GET /authors?name= and expands the first hit with
// GET /authors/{asin}. The search result alone is returned when the detail
// lookup fails.
func (c *Client) FetchAuthor(ctx context.Context, sc *provider.ServiceContext, req provider.AuthorRequest) (*provider.AuthorBio, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, nil
	}

	var hits []audnexusAuthor
	if err := c.getJSON(ctx, fmt.Sprintf("%s/authors?name=%s", c.baseURL, url.QueryEscape(name)), &hits); err != nil {
		sc.Log().Debug("audnexus author search failed", zap.Error(err))
		return nil, nil
	}
	if len(hits) == 0 {
		return nil, nil
	}

	author := hits[0]
	if author.ASIN != "" {
		var detail audnexusAuthor
		err := c.getJSON(ctx, fmt.Sprintf("%s/authors/%s", c.baseURL, url.PathEscape(author.ASIN)), &detail)
		switch {
		case err != nil:
			sc.Log().Debug("audnexus author lookup failed", zap.String("asin", author.ASIN), zap.Error(err))
		case detail.Name != "":
			author = detail
		}
	}
	return &provider.AuthorBio{
		Name:      author.Name,
		Biography: strings.TrimSpace(author.Description),
		PhotoURL:  author.Image,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to query Audnexus: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Audnexus returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode Audnexus response: %w", err)
	}
	return nil
}
