// file: internal/providers/googlebooks/googlebooks.go
// version: 2.0.0
// guid: b2c3d4e5-f6a7-8b9c-0d1e-f2a3b4c5d6e7

// Package googlebooks adapts the Google Books volumes API.
package googlebooks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	// Name is the registry name of this provider.
	Name = "google-books"
	// QuotaKey is the daily budget shared by every Google Books call.
	QuotaKey = "google_books"
	// APIKeyEnv holds the API key; the provider is unavailable without it.
	APIKeyEnv = "GOOGLE_BOOKS_API_KEY"
)

// Descriptor lists what Google Books serves. Calls count against QuotaKey.
func Descriptor() provider.Descriptor {
	return provider.Descriptor{
		Name: Name,
		Type: provider.TypeFree,
		Capabilities: []provider.Capability{
			provider.CapISBNResolution,
			provider.CapMetadataEnrichment,
			provider.CapCoverImages,
			provider.CapRatings,
			provider.CapEnhancedExternalIDs,
		},
		QuotaKey: QuotaKey,
	}
}

// Client fetches volumes from the Google Books API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New creates a client for GOOGLE_BOOKS_BASE_URL, or the public API.
func New() *Client {
	baseURL := os.Getenv("GOOGLE_BOOKS_BASE_URL")
	if baseURL == "" {
		baseURL = "https://www.googleapis.com/books/v1"
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

// IsAvailable reports whether an API key is configured.
func (c *Client) IsAvailable(_ context.Context, env provider.Environment) (bool, error) {
	return provider.HasValue(env, APIKeyEnv), nil
}

// volumes runs a search and returns the items array, or an empty result on
// any failure.
func (c *Client) volumes(ctx context.Context, sc *provider.ServiceContext, query string, limit int) []gjson.Result {
	q := url.Values{}
	q.Set("q", query)
	q.Set("maxResults", fmt.Sprint(limit))
	if key, ok := sc.Environment().Lookup(APIKeyEnv); ok && key != "" {
		q.Set("key", key)
	}

	body, err := c.get(ctx, c.baseURL+"/volumes?"+q.Encode())
	if err != nil {
		sc.Log().Debug("google books request failed", zap.Error(err))
		return nil
	}
	if !gjson.ValidBytes(body) {
		sc.Log().Debug("google books returned malformed JSON")
		return nil
	}
	return gjson.GetBytes(body, "items").Array()
}

func (c *Client) byISBN(ctx context.Context, sc *provider.ServiceContext, isbn string) (gjson.Result, bool) {
	isbn = provider.NormalizeISBN(isbn)
	if isbn == "" {
		return gjson.Result{}, false
	}
	items := c.volumes(ctx, sc, "isbn:"+isbn, 1)
	if len(items) == 0 {
		return gjson.Result{}, false
	}
	return items[0], true
}

// ResolveISBN searches by title and author and returns the first volume
// with an ISBN.
func (c *Client) ResolveISBN(ctx context.Context, sc *provider.ServiceContext, req provider.ISBNRequest) (*provider.ISBNMatch, error) {
	query := "intitle:" + req.Title
	if req.Author != "" {
		query += "+inauthor:" + req.Author
	}
	for _, item := range c.volumes(ctx, sc, query, 5) {
		info := item.Get("volumeInfo")
		isbn := isbnFrom(info)
		if isbn == "" {
			continue
		}
		return &provider.ISBNMatch{
			ISBN:   isbn,
			Title:  info.Get("title").String(),
			Author: info.Get("authors.0").String(),
		}, nil
	}
	return nil, nil
}

// FetchMetadata returns the volume record for an ISBN.
func (c *Client) FetchMetadata(ctx context.Context, sc *provider.ServiceContext, req provider.MetadataRequest) (*provider.BookRecord, error) {
	item, ok := c.byISBN(ctx, sc, req.ISBN)
	if !ok {
		return nil, nil
	}
	info := item.Get("volumeInfo")
	rec := &provider.BookRecord{
		ISBN:          provider.NormalizeISBN(req.ISBN),
		Title:         info.Get("title").String(),
		Subtitle:      info.Get("subtitle").String(),
		Authors:       stringList(info.Get("authors")),
		Publisher:     info.Get("publisher").String(),
		PublishedDate: info.Get("publishedDate").String(),
		PageCount:     int(info.Get("pageCount").Int()),
		Language:      info.Get("language").String(),
		Description:   info.Get("description").String(),
		Subjects:      stringList(info.Get("categories")),
		CoverURL:      secure(info.Get("imageLinks.thumbnail").String()),
	}
	if rec.Empty() {
		return nil, nil
	}
	return rec, nil
}

// FetchCovers returns the image links of the volume, largest first.
func (c *Client) FetchCovers(ctx context.Context, sc *provider.ServiceContext, req provider.CoverRequest) ([]provider.CoverImage, error) {
	item, ok := c.byISBN(ctx, sc, req.ISBN)
	if !ok {
		return nil, nil
	}
	links := item.Get("volumeInfo.imageLinks")
	var covers []provider.CoverImage
	for _, size := range []string{"extraLarge", "large", "medium", "small", "thumbnail", "smallThumbnail"} {
		if u := links.Get(size).String(); u != "" {
			covers = append(covers, provider.CoverImage{URL: secure(u), Size: size})
		}
	}
	return covers, nil
}

// FetchRatings returns the average rating and vote count.
func (c *Client) FetchRatings(ctx context.Context, sc *provider.ServiceContext, req provider.RatingsRequest) (*provider.Ratings, error) {
	item, ok := c.byISBN(ctx, sc, req.ISBN)
	if !ok {
		return nil, nil
	}
	info := item.Get("volumeInfo")
	count := int(info.Get("ratingsCount").Int())
	if count == 0 {
		return nil, nil
	}
	return &provider.Ratings{Average: info.Get("averageRating").Float(), Count: count}, nil
}

// FetchExternalIDs returns the Google Books volume ID.
func (c *Client) FetchExternalIDs(ctx context.Context, sc *provider.ServiceContext, req provider.ExternalIDRequest) (*provider.ExternalIDs, error) {
	item, ok := c.byISBN(ctx, sc, req.ISBN)
	if !ok || item.Get("id").String() == "" {
		return nil, nil
	}
	return &provider.ExternalIDs{GoogleBooksID: item.Get("id").String()}, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query Google Books: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Google Books API returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// isbnFrom picks ISBN_13 over ISBN_10 from industryIdentifiers.
func isbnFrom(info gjson.Result) string {
	var isbn10 string
	for _, id := range info.Get("industryIdentifiers").Array() {
		v := provider.NormalizeISBN(id.Get("identifier").String())
		switch id.Get("type").String() {
		case "ISBN_13":
			if v != "" {
				return v
			}
		case "ISBN_10":
			if isbn10 == "" {
				isbn10 = v
			}
		}
	}
	return isbn10
}

func stringList(arr gjson.Result) []string {
	var out []string
	for _, v := range arr.Array() {
		if s := v.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// secure upgrades the http image links the API returns.
func secure(u string) string {
	return strings.Replace(u, "http://", "https://", 1)
}
