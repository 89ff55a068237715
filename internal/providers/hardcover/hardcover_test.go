// file: internal/providers/hardcover/hardcover_test.go
// version: 2.0.0
// guid: 0c6d2f8e-4a17-4b93-9e5c-7d1a3f0b8e26

package hardcover

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const duneHits = `{"data": {"search_books": {"results": {"hits": [
	{"document": {
		"title": "Dune",
		"author_names": ["Frank Herbert"],
		"isbns": ["0441172717", "9780441172719"],
		"image": {"url": "https://assets.hardcover.app/dune.jpg"},
		"rating": 4.3,
		"ratings_count": 812,
		"series_names": ["Dune"],
		"release_year": 1965
	}}
]}}}}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "search_books")

		switch req.Variables["q"] {
		case "Dune Frank Herbert", "9780441172719", "0441172717", "Dune":
			w.Write([]byte(duneHits))
		case "error":
			w.Write([]byte(`{"errors": [{"message": "bad query"}]}`))
		default:
			w.Write([]byte(`{"data": {"search_books": {"results": {"hits": []}}}}`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func testContext(token string) *provider.ServiceContext {
	return provider.NewServiceContext(provider.WithEnvironment(provider.MapEnvironment{APIKeyEnv: token}))
}

func TestDescriptor(t *testing.T) {
	c := NewWithBaseURL("http://unused")
	for _, capability := range Descriptor().Capabilities {
		assert.True(t, provider.Implements(capability, c), capability)
	}
	assert.Equal(t, provider.TypePaid, Descriptor().Type)
	assert.True(t, Descriptor().Metered())

	ok, err := c.IsAvailable(context.Background(), provider.MapEnvironment{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLookups(t *testing.T) {
	c := NewWithBaseURL(newTestServer(t).URL)
	sc := testContext("secret")
	ctx := context.Background()

	m, err := c.ResolveISBN(ctx, sc, provider.ISBNRequest{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)
	assert.Equal(t, &provider.ISBNMatch{ISBN: "9780441172719", Title: "Dune", Author: "Frank Herbert"}, m)

	covers, err := c.FetchCovers(ctx, sc, provider.CoverRequest{ISBN: "0-441-17271-7"})
	require.NoError(t, err)
	assert.Equal(t, []provider.CoverImage{{URL: "https://assets.hardcover.app/dune.jpg"}}, covers)

	ratings, err := c.FetchRatings(ctx, sc, provider.RatingsRequest{ISBN: "9780441172719"})
	require.NoError(t, err)
	assert.Equal(t, &provider.Ratings{Average: 4.3, Count: 812}, ratings)

	series, err := c.FetchSeries(ctx, sc, provider.SeriesRequest{Title: "Dune"})
	require.NoError(t, err)
	assert.Equal(t, &provider.SeriesInfo{Name: "Dune"}, series)
}

func TestMisses(t *testing.T) {
	c := NewWithBaseURL(newTestServer(t).URL)
	ctx := context.Background()

	// No token means no request at all.
	m, err := c.ResolveISBN(ctx, testContext(""), provider.ISBNRequest{Title: "Dune"})
	require.NoError(t, err)
	assert.Nil(t, m)

	m, err = c.ResolveISBN(ctx, testContext("secret"), provider.ISBNRequest{Title: "error"})
	require.NoError(t, err)
	assert.Nil(t, m)

	r, err := c.FetchRatings(ctx, testContext("secret"), provider.RatingsRequest{ISBN: "not-an-isbn"})
	require.NoError(t, err)
	assert.Nil(t, r)

	s, err := c.FetchSeries(ctx, testContext("secret"), provider.SeriesRequest{ISBN: "9780306406157"})
	require.NoError(t, err)
	assert.Nil(t, s)
}
