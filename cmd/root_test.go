// file: cmd/root_test.go
// version: 2.0.0
// guid: 7eae8d0c-7fda-4f45-8f73-5d1e0c7c9f1a

package cmd

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

const duneSearchJSON = `{"numFound": 1, "docs": [
	{"title": "Dune", "author_name": ["Frank Herbert"], "isbn": ["9780441172719"]}
]}`

const duneBooksJSON = `{"ISBN:9780441172719": {
	"title": "Dune",
	"number_of_pages": 535,
	"authors": [{"name": "Frank Herbert"}],
	"publishers": [{"name": "Ace Books"}]
}}`

// newOpenLibrary serves just enough of the Open Library API for Dune.
func newOpenLibrary(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(duneSearchJSON))
	})
	mux.HandleFunc("/api/books", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("bibkeys") != "ISBN:9780441172719" {
			w.Write([]byte(`{}`))
			return
		}
		w.Write([]byte(duneBooksJSON))
	})
	mux.HandleFunc("/search/authors.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"docs": [{"key": "OL79034A", "name": "Frank Herbert"}]}`))
	})
	mux.HandleFunc("/authors/OL79034A.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "Frank Herbert", "bio": "American science fiction author."}`))
	})
	mux.HandleFunc("/b/isbn/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/b/isbn/9780441172719-L.jpg" {
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// writeConfig writes a config that keeps every provider offline except the
// fake Open Library at baseURL.
func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bookmeta.yaml")
	content := `
store:
  type: memory
logging:
  level: error
quota:
  limits:
    google_books: 100
    openai: 10
providers:
  disabled: [google-books, hardcover, audnexus, openai]
  openlibrary_url: ` + baseURL + `
  covers_url: ` + baseURL + `
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCommand executes the root command with args against a fresh global
// viper and returns stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}
