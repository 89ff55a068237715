// file: internal/providers/openlibrary/openlibrary.go
// version: 2.1.0
// guid: 1a2b3c4d-5e6f-7a8b-9c0d-1e2f3a4b5c6d

// Package openlibrary adapts the Open Library API to the provider
// capabilities it can serve.
package openlibrary

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

// Name is the registry name of this provider.
const Name = "open-library"

// Descriptor lists what Open Library serves. It is free and unmetered.
func Descriptor() provider.Descriptor {
	return provider.Descriptor{
		Name: Name,
		Type: provider.TypeFree,
		Capabilities: []provider.Capability{
			provider.CapISBNResolution,
			provider.CapCoverImages,
			provider.CapMetadataEnrichment,
			provider.CapEnhancedExternalIDs,
			provider.CapAuthorBiography,
			provider.CapEditionVariants,
			provider.CapPublicDomain,
			provider.CapSubjectBrowsing,
		},
	}
}

// Client talks to openlibrary.org and covers.openlibrary.org.
type Client struct {
	httpClient *http.Client
	baseURL    string
	coversURL  string
}

// New creates a client for OPENLIBRARY_BASE_URL, or the public site.
func New() *Client {
	baseURL := os.Getenv("OPENLIBRARY_BASE_URL")
	if baseURL == "" {
		baseURL = "https://openlibrary.org"
	}
	return NewWithBaseURL(baseURL, "https://covers.openlibrary.org")
}

// NewWithBaseURL creates a client with custom API and covers hosts.
func NewWithBaseURL(baseURL, coversURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		coversURL:  strings.TrimRight(coversURL, "/"),
	}
}

// IsAvailable always reports true; the API needs no key.
func (c *Client) IsAvailable(context.Context, provider.Environment) (bool, error) {
	return true, nil
}

type searchResult struct {
	Title      string   `json:"title"`
	AuthorName []string `json:"author_name"`
	ISBN       []string `json:"isbn"`
}

type searchResponse struct {
	NumFound int            `json:"numFound"`
	Docs     []searchResult `json:"docs"`
}

// ResolveISBN searches by title and author and returns the first hit that
// carries an ISBN. Failures are logged and reported as a miss.
func (c *Client) ResolveISBN(ctx context.Context, sc *provider.ServiceContext, req provider.ISBNRequest) (*provider.ISBNMatch, error) {
	q := url.Values{}
	q.Set("title", req.Title)
	if req.Author != "" {
		q.Set("author", req.Author)
	}
	q.Set("limit", "5")
	q.Set("fields", "title,author_name,isbn")

	var resp searchResponse
	if err := c.getJSON(ctx, c.baseURL+"/search.json?"+q.Encode(), &resp); err != nil {
		sc.Log().Debug("open library search failed", zap.Error(err))
		return nil, nil
	}
	for _, doc := range resp.Docs {
		isbn := firstValidISBN(doc.ISBN)
		if isbn == "" {
			continue
		}
		match := &provider.ISBNMatch{ISBN: isbn, Title: doc.Title}
		if len(doc.AuthorName) > 0 {
			match.Author = doc.AuthorName[0]
		}
		return match, nil
	}
	return nil, nil
}

// FetchCovers probes the large and medium cover sizes. The covers service
// returns 404 for unknown ISBNs when default=false is set.
func (c *Client) FetchCovers(ctx context.Context, sc *provider.ServiceContext, req provider.CoverRequest) ([]provider.CoverImage, error) {
	isbn := provider.NormalizeISBN(req.ISBN)
	if isbn == "" {
		return nil, nil
	}
	var covers []provider.CoverImage
	for _, size := range []string{"L", "M"} {
		u := fmt.Sprintf("%s/b/isbn/%s-%s.jpg", c.coversURL, isbn, size)
		ok, err := c.exists(ctx, u+"?default=false")
		if err != nil {
			sc.Log().Debug("open library cover probe failed", zap.String("size", size), zap.Error(err))
			continue
		}
		if ok {
			covers = append(covers, provider.CoverImage{URL: u, Size: size})
		}
	}
	return covers, nil
}

type booksEntry struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	NumberPages int    `json:"number_of_pages"`
	PublishDate string `json:"publish_date"`
	Authors     []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Publishers []struct {
		Name string `json:"name"`
	} `json:"publishers"`
	Subjects []struct {
		Name string `json:"name"`
	} `json:"subjects"`
	Cover struct {
		Large  string `json:"large"`
		Medium string `json:"medium"`
	} `json:"cover"`
	Identifiers struct {
		Goodreads    []string `json:"goodreads"`
		LibraryThing []string `json:"librarything"`
		OpenLibrary  []string `json:"openlibrary"`
		Amazon       []string `json:"amazon"`
		Google       []string `json:"google"`
		Wikidata     []string `json:"wikidata"`
	} `json:"identifiers"`
	Classifications struct {
		LCCN []string `json:"lccn"`
		OCLC []string `json:"oclc_numbers"`
	} `json:"classifications"`
}

// lookup fetches the jscmd=data record for an ISBN. A nil entry is a miss.
func (c *Client) lookup(ctx context.Context, isbn string) (*booksEntry, error) {
	isbn = provider.NormalizeISBN(isbn)
	if isbn == "" {
		return nil, nil
	}
	key := "ISBN:" + isbn
	q := url.Values{}
	q.Set("bibkeys", key)
	q.Set("format", "json")
	q.Set("jscmd", "data")

	var resp map[string]booksEntry
	if err := c.getJSON(ctx, c.baseURL+"/api/books?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	entry, ok := resp[key]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// FetchMetadata returns the bibliographic record for an ISBN.
func (c *Client) FetchMetadata(ctx context.Context, sc *provider.ServiceContext, req provider.MetadataRequest) (*provider.BookRecord, error) {
	entry, err := c.lookup(ctx, req.ISBN)
	if err != nil {
		sc.Log().Debug("open library books lookup failed", zap.Error(err))
		return nil, nil
	}
	if entry == nil {
		return nil, nil
	}
	rec := &provider.BookRecord{
		ISBN:          provider.NormalizeISBN(req.ISBN),
		Title:         entry.Title,
		Subtitle:      entry.Subtitle,
		PublishedDate: entry.PublishDate,
		PageCount:     entry.NumberPages,
		CoverURL:      firstNonEmpty(entry.Cover.Large, entry.Cover.Medium),
	}
	for _, a := range entry.Authors {
		rec.Authors = append(rec.Authors, a.Name)
	}
	if len(entry.Publishers) > 0 {
		rec.Publisher = entry.Publishers[0].Name
	}
	for _, s := range entry.Subjects {
		rec.Subjects = append(rec.Subjects, s.Name)
	}
	return rec, nil
}

// FetchExternalIDs returns the identifiers Open Library links to the ISBN.
func (c *Client) FetchExternalIDs(ctx context.Context, sc *provider.ServiceContext, req provider.ExternalIDRequest) (*provider.ExternalIDs, error) {
	entry, err := c.lookup(ctx, req.ISBN)
	if err != nil {
		sc.Log().Debug("open library identifier lookup failed", zap.Error(err))
		return nil, nil
	}
	if entry == nil {
		return nil, nil
	}
	ids := &provider.ExternalIDs{
		GoodreadsID:    first(entry.Identifiers.Goodreads),
		LibraryThingID: first(entry.Identifiers.LibraryThing),
		OpenLibraryID:  first(entry.Identifiers.OpenLibrary),
		AmazonASIN:     first(entry.Identifiers.Amazon),
		GoogleBooksID:  first(entry.Identifiers.Google),
		WikidataID:     first(entry.Identifiers.Wikidata),
		LCCN:           first(entry.Classifications.LCCN),
		OCLC:           first(entry.Classifications.OCLC),
	}
	if ids.Empty() {
		return nil, nil
	}
	return ids, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to query Open Library: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Open Library API returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode Open Library response: %w", err)
	}
	return nil
}

func (c *Client) exists(ctx context.Context, u string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("covers service returned status %d", resp.StatusCode)
	}
}

func firstValidISBN(candidates []string) string {
	// Prefer ISBN-13.
	for _, raw := range candidates {
		if isbn := provider.NormalizeISBN(raw); len(isbn) == 13 {
			return isbn
		}
	}
	for _, raw := range candidates {
		if isbn := provider.NormalizeISBN(raw); isbn != "" {
			return isbn
		}
	}
	return ""
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
