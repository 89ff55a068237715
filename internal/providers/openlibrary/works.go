// file: internal/providers/openlibrary/works.go
// version: 1.0.0
// guid: 4e7b1d92-a3c6-4f58-8b20-d9e5c1a7f364

package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
	"go.uber.org/zap"
)

const (
	archiveURL          = "https://archive.org"
	defaultSubjectLimit = 20
	editionsLimit       = 50
)

type authorDoc struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	BirthDate string `json:"birth_date"`
	DeathDate string `json:"death_date"`
	TopWork   string `json:"top_work"`
}

type authorDetail struct {
	Name      string          `json:"name"`
	Bio       json.RawMessage `json:"bio"`
	BirthDate string          `json:"birth_date"`
	DeathDate string          `json:"death_date"`
	Photos    []int           `json:"photos"`
}

// FetchAuthor finds the best author hit by name, then loads the author
// record for the biography. When the record cannot be loaded the search
// hit alone is returned.
func (c *Client) FetchAuthor(ctx context.Context, sc *provider.ServiceContext, req provider.AuthorRequest) (*provider.AuthorBio, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, nil
	}
	q := url.Values{}
	q.Set("q", name)
	q.Set("limit", "1")

	var search struct {
		Docs []authorDoc `json:"docs"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/search/authors.json?"+q.Encode(), &search); err != nil {
		sc.Log().Debug("open library author search failed", zap.Error(err))
		return nil, nil
	}
	if len(search.Docs) == 0 || search.Docs[0].Name == "" {
		return nil, nil
	}
	doc := search.Docs[0]
	bio := &provider.AuthorBio{
		Name:      doc.Name,
		BirthDate: doc.BirthDate,
		DeathDate: doc.DeathDate,
	}
	if doc.TopWork != "" {
		bio.Works = []string{doc.TopWork}
	}
	if doc.Key == "" {
		return bio, nil
	}

	var detail authorDetail
	if err := c.getJSON(ctx, c.baseURL+"/authors/"+url.PathEscape(doc.Key)+".json", &detail); err != nil {
		sc.Log().Debug("open library author lookup failed", zap.String("key", doc.Key), zap.Error(err))
		return bio, nil
	}
	bio.Biography = strings.TrimSpace(textValue(detail.Bio))
	if bio.BirthDate == "" {
		bio.BirthDate = detail.BirthDate
	}
	if bio.DeathDate == "" {
		bio.DeathDate = detail.DeathDate
	}
	if len(detail.Photos) > 0 {
		bio.PhotoURL = fmt.Sprintf("%s/a/olid/%s-L.jpg", c.coversURL, doc.Key)
	}
	return bio, nil
}

// textValue reads fields that are either a plain string or a
// {"type": "/type/text", "value": ...} object.
func textValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var typed struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &typed); err == nil {
		return typed.Value
	}
	return ""
}

type editionDoc struct {
	Title          string   `json:"title"`
	ISBN13         []string `json:"isbn_13"`
	ISBN10         []string `json:"isbn_10"`
	PhysicalFormat string   `json:"physical_format"`
	Publishers     []string `json:"publishers"`
	PublishDate    string   `json:"publish_date"`
	Languages      []struct {
		Key string `json:"key"`
	} `json:"languages"`
	Works []struct {
		Key string `json:"key"`
	} `json:"works"`
}

// FetchEditions resolves the ISBN to its work and lists the work's other
// editions. Editions without a valid ISBN are skipped.
func (c *Client) FetchEditions(ctx context.Context, sc *provider.ServiceContext, req provider.EditionRequest) ([]provider.Edition, error) {
	isbn := provider.NormalizeISBN(req.ISBN)
	if isbn == "" {
		return nil, nil
	}
	if len(isbn) == 10 {
		isbn = provider.ISBN10To13(isbn)
	}
	var book editionDoc
	if err := c.getJSON(ctx, c.baseURL+"/isbn/"+isbn+".json", &book); err != nil {
		sc.Log().Debug("open library edition lookup failed", zap.Error(err))
		return nil, nil
	}
	if len(book.Works) == 0 || book.Works[0].Key == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("limit", strconv.Itoa(editionsLimit))
	var resp struct {
		Entries []editionDoc `json:"entries"`
	}
	u := c.baseURL + book.Works[0].Key + "/editions.json?" + q.Encode()
	if err := c.getJSON(ctx, u, &resp); err != nil {
		sc.Log().Debug("open library editions request failed", zap.String("work", book.Works[0].Key), zap.Error(err))
		return nil, nil
	}

	editions := make([]provider.Edition, 0, len(resp.Entries))
	for _, e := range resp.Entries {
		id := firstValidISBN(append(append([]string(nil), e.ISBN13...), e.ISBN10...))
		if id == "" {
			continue
		}
		ed := provider.Edition{
			ISBN:          id,
			Title:         e.Title,
			Format:        e.PhysicalFormat,
			PublishedDate: e.PublishDate,
			Publisher:     first(e.Publishers),
		}
		if len(e.Languages) > 0 {
			ed.Language = strings.TrimPrefix(e.Languages[0].Key, "/languages/")
		}
		editions = append(editions, ed)
	}
	return editions, nil
}

type subjectWork struct {
	Title   string `json:"title"`
	CoverID int    `json:"cover_id"`
	Year    int    `json:"first_publish_year"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
}

// BrowseSubject lists works filed under a subject, most popular first.
func (c *Client) BrowseSubject(ctx context.Context, sc *provider.ServiceContext, req provider.SubjectRequest) ([]provider.BookRecord, error) {
	slug := subjectSlug(req.Subject)
	if slug == "" {
		return nil, nil
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultSubjectLimit
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))

	var resp struct {
		Name  string        `json:"name"`
		Works []subjectWork `json:"works"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/subjects/"+url.PathEscape(slug)+".json?"+q.Encode(), &resp); err != nil {
		sc.Log().Debug("open library subject request failed", zap.String("subject", slug), zap.Error(err))
		return nil, nil
	}
	subject := firstNonEmpty(resp.Name, strings.TrimSpace(req.Subject))

	books := make([]provider.BookRecord, 0, len(resp.Works))
	for _, w := range resp.Works {
		if w.Title == "" {
			continue
		}
		rec := provider.BookRecord{Title: w.Title, Subjects: []string{subject}}
		for _, a := range w.Authors {
			rec.Authors = append(rec.Authors, a.Name)
		}
		if w.Year > 0 {
			rec.PublishedDate = strconv.Itoa(w.Year)
		}
		if w.CoverID > 0 {
			rec.CoverURL = fmt.Sprintf("%s/b/id/%d-M.jpg", c.coversURL, w.CoverID)
		}
		books = append(books, rec)
	}
	return books, nil
}

// subjectSlug turns "Science Fiction" into "science_fiction".
func subjectSlug(subject string) string {
	return strings.Join(strings.Fields(strings.ToLower(subject)), "_")
}

type accessDoc struct {
	Title       string   `json:"title"`
	EbookAccess string   `json:"ebook_access"`
	PublicScan  bool     `json:"public_scan_b"`
	IA          []string `json:"ia"`
}

// CheckPublicDomain searches by ISBN, or by title and author, and reports
// whether Open Library holds a public scan. Public scans link to their
// Internet Archive items.
func (c *Client) CheckPublicDomain(ctx context.Context, sc *provider.ServiceContext, req provider.PublicDomainRequest) (*provider.PublicDomainInfo, error) {
	q := url.Values{}
	switch {
	case provider.NormalizeISBN(req.ISBN) != "":
		q.Set("isbn", provider.NormalizeISBN(req.ISBN))
	case strings.TrimSpace(req.Title) != "":
		q.Set("title", req.Title)
		if req.Author != "" {
			q.Set("author", req.Author)
		}
	default:
		return nil, nil
	}
	q.Set("limit", "1")
	q.Set("fields", "title,ebook_access,public_scan_b,ia")

	var resp struct {
		Docs []accessDoc `json:"docs"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/search.json?"+q.Encode(), &resp); err != nil {
		sc.Log().Debug("open library access search failed", zap.Error(err))
		return nil, nil
	}
	if len(resp.Docs) == 0 {
		return nil, nil
	}
	doc := resp.Docs[0]
	info := &provider.PublicDomainInfo{Source: "Open Library"}
	if doc.EbookAccess != "public" && !doc.PublicScan {
		return info, nil
	}
	info.PublicDomain = true
	info.Source = "Internet Archive"
	for _, id := range doc.IA {
		if id != "" {
			info.DownloadURLs = append(info.DownloadURLs, archiveURL+"/details/"+url.PathEscape(id))
		}
	}
	return info, nil
}
