// file: internal/provider/contracts.go
// version: 1.1.0
// guid: c5a0e3f8-4d21-4b97-8e6c-3f7b9a1d0e52

package provider

import (
	"slices"
	"strings"
)

// ISBNRequest asks for the ISBN of a title/author pair.
type ISBNRequest struct {
	Title  string `json:"title" yaml:"title"`
	Author string `json:"author,omitempty" yaml:"author,omitempty"`
}

// ISBNMatch is a provider's answer, including what it thinks it matched.
type ISBNMatch struct {
	ISBN   string `json:"isbn" yaml:"isbn"`
	Title  string `json:"title" yaml:"title"`
	Author string `json:"author" yaml:"author"`
}

type CoverRequest struct {
	ISBN string `json:"isbn" yaml:"isbn"`
}

// CoverImage is one downloadable cover. Dimensions are zero when unknown.
type CoverImage struct {
	URL    string `json:"url" yaml:"url"`
	Width  int    `json:"width,omitempty" yaml:"width,omitempty"`
	Height int    `json:"height,omitempty" yaml:"height,omitempty"`
	// Size is a provider label such as "S", "M", "L" or "thumbnail".
	Size string `json:"size,omitempty" yaml:"size,omitempty"`
}

type MetadataRequest struct {
	ISBN string `json:"isbn" yaml:"isbn"`
}

// BookRecord is the bibliographic record produced by enrichment.
type BookRecord struct {
	ISBN          string   `json:"isbn,omitempty" yaml:"isbn,omitempty"`
	Title         string   `json:"title,omitempty" yaml:"title,omitempty"`
	Subtitle      string   `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Authors       []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Publisher     string   `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	PublishedDate string   `json:"published_date,omitempty" yaml:"published_date,omitempty"`
	PageCount     int      `json:"page_count,omitempty" yaml:"page_count,omitempty"`
	Language      string   `json:"language,omitempty" yaml:"language,omitempty"`
	Description   string   `json:"description,omitempty" yaml:"description,omitempty"`
	Subjects      []string `json:"subjects,omitempty" yaml:"subjects,omitempty"`
	CoverURL      string   `json:"cover_url,omitempty" yaml:"cover_url,omitempty"`
}

// Empty reports whether no field is set.
func (b *BookRecord) Empty() bool {
	return b == nil || b.isZero()
}

func (b *BookRecord) isZero() bool {
	return b.ISBN == "" && b.Title == "" && b.Subtitle == "" && len(b.Authors) == 0 &&
		b.Publisher == "" && b.PublishedDate == "" && b.PageCount == 0 && b.Language == "" &&
		b.Description == "" && len(b.Subjects) == 0 && b.CoverURL == ""
}

// MergeFrom copies every field of other into b where b's field is empty,
// and returns the names of the fields it filled.
func (b *BookRecord) MergeFrom(other *BookRecord) []string {
	if b == nil || other == nil {
		return nil
	}
	var filled []string
	mergeString(&b.ISBN, other.ISBN, "isbn", &filled)
	mergeString(&b.Title, other.Title, "title", &filled)
	mergeString(&b.Subtitle, other.Subtitle, "subtitle", &filled)
	mergeSlice(&b.Authors, other.Authors, "authors", &filled)
	mergeString(&b.Publisher, other.Publisher, "publisher", &filled)
	mergeString(&b.PublishedDate, other.PublishedDate, "published_date", &filled)
	if b.PageCount == 0 && other.PageCount > 0 {
		b.PageCount = other.PageCount
		filled = append(filled, "page_count")
	}
	mergeString(&b.Language, other.Language, "language", &filled)
	mergeString(&b.Description, other.Description, "description", &filled)
	mergeSlice(&b.Subjects, other.Subjects, "subjects", &filled)
	mergeString(&b.CoverURL, other.CoverURL, "cover_url", &filled)
	return filled
}

// Clone returns a copy that shares no slices with b.
func (b *BookRecord) Clone() *BookRecord {
	if b == nil {
		return nil
	}
	c := *b
	c.Authors = slices.Clone(b.Authors)
	c.Subjects = slices.Clone(b.Subjects)
	return &c
}

type AuthorRequest struct {
	Name string `json:"name" yaml:"name"`
}

type AuthorBio struct {
	Name      string   `json:"name" yaml:"name"`
	Biography string   `json:"biography,omitempty" yaml:"biography,omitempty"`
	BirthDate string   `json:"birth_date,omitempty" yaml:"birth_date,omitempty"`
	DeathDate string   `json:"death_date,omitempty" yaml:"death_date,omitempty"`
	PhotoURL  string   `json:"photo_url,omitempty" yaml:"photo_url,omitempty"`
	Works     []string `json:"works,omitempty" yaml:"works,omitempty"`
}

// Clone returns a copy that shares no slices with a.
func (a *AuthorBio) Clone() *AuthorBio {
	if a == nil {
		return nil
	}
	c := *a
	c.Works = slices.Clone(a.Works)
	return &c
}

// GenerationRequest asks generators for Count candidate books.
type GenerationRequest struct {
	Prompt string `json:"prompt" yaml:"prompt"`
	Count  int    `json:"count" yaml:"count"`
}

type GeneratedBook struct {
	Title       string `json:"title" yaml:"title"`
	Author      string `json:"author" yaml:"author"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Year        int    `json:"year,omitempty" yaml:"year,omitempty"`
}

type RatingsRequest struct {
	ISBN string `json:"isbn" yaml:"isbn"`
}

type Ratings struct {
	Average float64 `json:"average" yaml:"average"`
	Count   int     `json:"count" yaml:"count"`
}

type EditionRequest struct {
	ISBN string `json:"isbn" yaml:"isbn"`
}

type Edition struct {
	ISBN          string `json:"isbn" yaml:"isbn"`
	Title         string `json:"title,omitempty" yaml:"title,omitempty"`
	Format        string `json:"format,omitempty" yaml:"format,omitempty"`
	Publisher     string `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	PublishedDate string `json:"published_date,omitempty" yaml:"published_date,omitempty"`
	Language      string `json:"language,omitempty" yaml:"language,omitempty"`
}

type PublicDomainRequest struct {
	ISBN   string `json:"isbn,omitempty" yaml:"isbn,omitempty"`
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`
	Author string `json:"author,omitempty" yaml:"author,omitempty"`
}

type PublicDomainInfo struct {
	PublicDomain bool     `json:"public_domain" yaml:"public_domain"`
	DownloadURLs []string `json:"download_urls,omitempty" yaml:"download_urls,omitempty"`
	Source       string   `json:"source,omitempty" yaml:"source,omitempty"`
}

func (p *PublicDomainInfo) Clone() *PublicDomainInfo {
	if p == nil {
		return nil
	}
	c := *p
	c.DownloadURLs = slices.Clone(p.DownloadURLs)
	return &c
}

type SubjectRequest struct {
	Subject string `json:"subject" yaml:"subject"`
	Limit   int    `json:"limit,omitempty" yaml:"limit,omitempty"`
}

type SeriesRequest struct {
	ISBN  string `json:"isbn,omitempty" yaml:"isbn,omitempty"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
}

type SeriesInfo struct {
	Name       string  `json:"name" yaml:"name"`
	Position   float64 `json:"position,omitempty" yaml:"position,omitempty"`
	TotalBooks int     `json:"total_books,omitempty" yaml:"total_books,omitempty"`
}

type AwardsRequest struct {
	ISBN string `json:"isbn" yaml:"isbn"`
}

type Award struct {
	Name     string `json:"name" yaml:"name"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
	Year     int    `json:"year,omitempty" yaml:"year,omitempty"`
	Won      bool   `json:"won" yaml:"won"`
}

type TranslationRequest struct {
	ISBN string `json:"isbn" yaml:"isbn"`
}

type Translation struct {
	Language string `json:"language" yaml:"language"`
	Title    string `json:"title" yaml:"title"`
	ISBN     string `json:"isbn,omitempty" yaml:"isbn,omitempty"`
}

type ExternalIDRequest struct {
	ISBN string `json:"isbn" yaml:"isbn"`
}

// ExternalIDs holds identifiers of the same work in other catalogs.
type ExternalIDs struct {
	GoodreadsID    string `json:"goodreads_id,omitempty" yaml:"goodreads_id,omitempty"`
	LibraryThingID string `json:"librarything_id,omitempty" yaml:"librarything_id,omitempty"`
	OCLC           string `json:"oclc,omitempty" yaml:"oclc,omitempty"`
	LCCN           string `json:"lccn,omitempty" yaml:"lccn,omitempty"`
	AmazonASIN     string `json:"amazon_asin,omitempty" yaml:"amazon_asin,omitempty"`
	GoogleBooksID  string `json:"google_books_id,omitempty" yaml:"google_books_id,omitempty"`
	OpenLibraryID  string `json:"openlibrary_id,omitempty" yaml:"openlibrary_id,omitempty"`
	WikidataID     string `json:"wikidata_id,omitempty" yaml:"wikidata_id,omitempty"`
}

// Empty reports whether no identifier is set.
func (e *ExternalIDs) Empty() bool {
	return e == nil || *e == ExternalIDs{}
}

// MergeFrom fills e's empty identifiers from other and returns the names of
// the fields it filled.
func (e *ExternalIDs) MergeFrom(other *ExternalIDs) []string {
	if e == nil || other == nil {
		return nil
	}
	var filled []string
	mergeString(&e.GoodreadsID, other.GoodreadsID, "goodreads_id", &filled)
	mergeString(&e.LibraryThingID, other.LibraryThingID, "librarything_id", &filled)
	mergeString(&e.OCLC, other.OCLC, "oclc", &filled)
	mergeString(&e.LCCN, other.LCCN, "lccn", &filled)
	mergeString(&e.AmazonASIN, other.AmazonASIN, "amazon_asin", &filled)
	mergeString(&e.GoogleBooksID, other.GoogleBooksID, "google_books_id", &filled)
	mergeString(&e.OpenLibraryID, other.OpenLibraryID, "openlibrary_id", &filled)
	mergeString(&e.WikidataID, other.WikidataID, "wikidata_id", &filled)
	return filled
}

func mergeString(dst *string, src, field string, filled *[]string) {
	if strings.TrimSpace(*dst) == "" && strings.TrimSpace(src) != "" {
		*dst = src
		*filled = append(*filled, field)
	}
}

func mergeSlice(dst *[]string, src []string, field string, filled *[]string) {
	if len(*dst) == 0 && len(src) > 0 {
		*dst = append([]string(nil), src...)
		*filled = append(*filled, field)
	}
}
