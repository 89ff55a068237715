// file: internal/providers/openlibrary/works_test.go
// version: 1.0.0
// guid: 8b3f6e05-c1d4-4a97-9e62-f0a7d2b5c813

package openlibrary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorksServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search/authors.json", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("q") {
		case "Frank Herbert":
			w.Write([]byte(`{"numFound": 1, "docs": [{"key": "OL79034A", "name": "Frank Herbert",
				"birth_date": "8 October 1920", "top_work": "Dune"}]}`))
		case "Ursula K. Le Guin":
			w.Write([]byte(`{"numFound": 1, "docs": [{"key": "OL31353A", "name": "Ursula K. Le Guin"}]}`))
		default:
			w.Write([]byte(`{"numFound": 0, "docs": []}`))
		}
	})
	mux.HandleFunc("/authors/OL79034A.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "Frank Herbert",
			"bio": {"type": "/type/text", "value": " American science fiction author. "},
			"death_date": "11 February 1986", "photos": [6257974]}`))
	})
	mux.HandleFunc("/authors/OL31353A.json", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusInternalServerError)
	})
	mux.HandleFunc("/isbn/9780441172719.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title": "Dune", "works": [{"key": "/works/OL893415W"}]}`))
	})
	mux.HandleFunc("/isbn/9780575081505.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"title": "Dune", "works": []}`))
	})
	mux.HandleFunc("/works/OL893415W/editions.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"size": 3, "entries": [
			{"title": "Dune", "isbn_13": ["9780441172719"], "isbn_10": ["0441172717"],
			 "physical_format": "Paperback", "publishers": ["Ace Books"], "publish_date": "1990",
			 "languages": [{"key": "/languages/eng"}]},
			{"title": "Dune (no isbn)", "physical_format": "Hardcover"},
			{"title": "Dune", "isbn_10": ["0340960191"], "publishers": ["Hodder"]}
		]}`))
	})
	mux.HandleFunc("/subjects/science_fiction.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"name": "Science fiction", "works": [
			{"title": "Dune", "cover_id": 11481354, "first_publish_year": 1965, "authors": [{"name": "Frank Herbert"}]},
			{"title": "", "authors": []},
			{"title": "Foundation", "authors": [{"name": "Isaac Asimov"}]}
		]}`))
	})
	mux.HandleFunc("/search.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		q := r.URL.Query()
		switch {
		case q.Get("title") == "Pride and Prejudice" && q.Get("author") == "Jane Austen":
			w.Write([]byte(`{"docs": [{"title": "Pride and Prejudice", "ebook_access": "public",
				"public_scan_b": true, "ia": ["prideprejudice00aust", ""]}]}`))
		case q.Get("isbn") == "9780441172719":
			w.Write([]byte(`{"docs": [{"title": "Dune", "ebook_access": "borrowable", "ia": ["dune00herb"]}]}`))
		default:
			w.Write([]byte(`{"docs": []}`))
		}
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestFetchAuthor(t *testing.T) {
	server := newWorksServer(t)
	c := NewWithBaseURL(server.URL, server.URL)

	bio, err := c.FetchAuthor(context.Background(), nil, provider.AuthorRequest{Name: "Frank Herbert"})
	require.NoError(t, err)
	require.NotNil(t, bio)
	assert.Equal(t, "Frank Herbert", bio.Name)
	assert.Equal(t, "American science fiction author.", bio.Biography)
	assert.Equal(t, "8 October 1920", bio.BirthDate)
	assert.Equal(t, "11 February 1986", bio.DeathDate)
	assert.Equal(t, server.URL+"/a/olid/OL79034A-L.jpg", bio.PhotoURL)
	assert.Equal(t, []string{"Dune"}, bio.Works)
}

func TestFetchAuthorFallsBackToSearchHit(t *testing.T) {
	server := newWorksServer(t)
	c := NewWithBaseURL(server.URL, server.URL)

	bio, err := c.FetchAuthor(context.Background(), nil, provider.AuthorRequest{Name: "Ursula K. Le Guin"})
	require.NoError(t, err)
	require.NotNil(t, bio)
	assert.Equal(t, "Ursula K. Le Guin", bio.Name)
	assert.Empty(t, bio.Biography)

	bio, err = c.FetchAuthor(context.Background(), nil, provider.AuthorRequest{Name: "Nobody Atall"})
	require.NoError(t, err)
	assert.Nil(t, bio)

	bio, err = c.FetchAuthor(context.Background(), nil, provider.AuthorRequest{Name: "  "})
	require.NoError(t, err)
	assert.Nil(t, bio)
}

func TestTextValue(t *testing.T) {
	assert.Equal(t, "plain", textValue([]byte(`"plain"`)))
	assert.Equal(t, "typed", textValue([]byte(`{"type": "/type/text", "value": "typed"}`)))
	assert.Empty(t, textValue(nil))
	assert.Empty(t, textValue([]byte(`42`)))
}

func TestFetchEditions(t *testing.T) {
	server := newWorksServer(t)
	c := NewWithBaseURL(server.URL, server.URL)

	editions, err := c.FetchEditions(context.Background(), nil, provider.EditionRequest{ISBN: "0-441-17271-7"})
	require.NoError(t, err)
	require.Len(t, editions, 2)
	assert.Equal(t, provider.Edition{
		ISBN:          "9780441172719",
		Title:         "Dune",
		Format:        "Paperback",
		Publisher:     "Ace Books",
		PublishedDate: "1990",
		Language:      "eng",
	}, editions[0])
	assert.Equal(t, "0340960191", editions[1].ISBN)
	assert.Equal(t, "Hodder", editions[1].Publisher)
}

func TestFetchEditionsMisses(t *testing.T) {
	server := newWorksServer(t)
	c := NewWithBaseURL(server.URL, server.URL)

	for _, isbn := range []string{"9780575081505", "9780140328721", "bogus"} {
		editions, err := c.FetchEditions(context.Background(), nil, provider.EditionRequest{ISBN: isbn})
		require.NoError(t, err, isbn)
		assert.Empty(t, editions, isbn)
	}
}

func TestBrowseSubject(t *testing.T) {
	server := newWorksServer(t)
	c := NewWithBaseURL(server.URL, server.URL)

	books, err := c.BrowseSubject(context.Background(), nil, provider.SubjectRequest{Subject: " Science  Fiction ", Limit: 2})
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Dune", books[0].Title)
	assert.Equal(t, []string{"Frank Herbert"}, books[0].Authors)
	assert.Equal(t, "1965", books[0].PublishedDate)
	assert.Equal(t, server.URL+"/b/id/11481354-M.jpg", books[0].CoverURL)
	assert.Equal(t, []string{"Science fiction"}, books[0].Subjects)
	assert.Equal(t, "Foundation", books[1].Title)
	assert.Empty(t, books[1].CoverURL)

	books, err = c.BrowseSubject(context.Background(), nil, provider.SubjectRequest{Subject: "cooking"})
	require.NoError(t, err, "unknown subject is a 404 and a miss")
	assert.Empty(t, books)
}

func TestSubjectSlug(t *testing.T) {
	assert.Equal(t, "science_fiction", subjectSlug("Science Fiction"))
	assert.Equal(t, "horror", subjectSlug("  horror "))
	assert.Empty(t, subjectSlug("   "))
}

func TestCheckPublicDomain(t *testing.T) {
	server := newWorksServer(t)
	c := NewWithBaseURL(server.URL, server.URL)

	info, err := c.CheckPublicDomain(context.Background(), nil,
		provider.PublicDomainRequest{Title: "Pride and Prejudice", Author: "Jane Austen"})
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.True(t, info.PublicDomain)
	assert.Equal(t, "Internet Archive", info.Source)
	assert.Equal(t, []string{"https://archive.org/details/prideprejudice00aust"}, info.DownloadURLs)

	info, err = c.CheckPublicDomain(context.Background(), nil, provider.PublicDomainRequest{ISBN: "978-0-441-17271-9", Title: "ignored"})
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.False(t, info.PublicDomain)
	assert.Empty(t, info.DownloadURLs)

	info, err = c.CheckPublicDomain(context.Background(), nil, provider.PublicDomainRequest{Title: "Unknown Book"})
	require.NoError(t, err)
	assert.Nil(t, info)

	info, err = c.CheckPublicDomain(context.Background(), nil, provider.PublicDomainRequest{})
	require.NoError(t, err)
	assert.Nil(t, info)
}
