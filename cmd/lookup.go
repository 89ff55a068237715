// file: cmd/lookup.go
// version: 1.0.0
// guid: 8f2d6b40-1e7a-4c93-b5d8-0a4e9c3f7b62

package cmd

import (
	"fmt"
	"io"

	"github.com/jdfalk/bookmeta-orchestrator/internal/orchestrator"
	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	resolveCmd = &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a title and author to an ISBN",
		RunE: func(cmd *cobra.Command, args []string) error {
			title, _ := cmd.Flags().GetString("title")
			author, _ := cmd.Flags().GetString("author")
			if title == "" {
				return fmt.Errorf("--title is required")
			}

			svc, logger, err := openService()
			if err != nil {
				return err
			}
			defer closeService(svc, logger)

			res := svc.ISBN.Execute(cmd.Context(), svc.NewContext(), provider.ISBNRequest{Title: title, Author: author})
			if !res.Found() {
				return fmt.Errorf("no provider resolved %q", title)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "isbn: %s\n", res.Payload.ISBN)
			fmt.Fprintf(out, "title: %s\n", res.Payload.Title)
			fmt.Fprintf(out, "author: %s\n", res.Payload.Author)
			fmt.Fprintf(out, "source: %s\n", res.Source)
			fmt.Fprintf(out, "confidence: %d\n", res.Confidence)
			return nil
		},
	}

	metadataCmd = &cobra.Command{
		Use:   "metadata",
		Short: "Merge bibliographic metadata for an ISBN from every provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			isbn, _ := cmd.Flags().GetString("isbn")
			if provider.NormalizeISBN(isbn) == "" {
				return fmt.Errorf("--isbn must be a valid ISBN-10 or ISBN-13")
			}

			svc, logger, err := openService()
			if err != nil {
				return err
			}
			defer closeService(svc, logger)

			agg := svc.Metadata.Execute(cmd.Context(), svc.NewContext(), provider.MetadataRequest{ISBN: isbn})
			if !agg.Found() {
				return fmt.Errorf("no metadata found for %s", isbn)
			}
			return writeYAML(cmd.OutOrStdout(), map[string]any{
				"record":       agg.Payload,
				"sources":      agg.Sources,
				"contributors": agg.Contributors,
			})
		},
	}

	coversCmd = &cobra.Command{
		Use:   "covers",
		Short: "Find cover images for an ISBN, free providers first",
		RunE: func(cmd *cobra.Command, args []string) error {
			isbn, _ := cmd.Flags().GetString("isbn")
			if provider.NormalizeISBN(isbn) == "" {
				return fmt.Errorf("--isbn must be a valid ISBN-10 or ISBN-13")
			}

			svc, logger, err := openService()
			if err != nil {
				return err
			}
			defer closeService(svc, logger)

			res := svc.Covers.Execute(cmd.Context(), svc.NewContext(), provider.CoverRequest{ISBN: isbn})
			if !res.Found() {
				return fmt.Errorf("no covers found for %s", isbn)
			}
			out := cmd.OutOrStdout()
			for _, c := range res.Payload {
				fmt.Fprintf(out, "%s\t%s\n", c.Size, c.URL)
			}
			fmt.Fprintf(out, "source: %s\n", res.Source)
			return nil
		},
	}

	seriesCmd = &cobra.Command{
		Use:   "series",
		Short: "Identify the series a title belongs to",
		RunE: func(cmd *cobra.Command, args []string) error {
			title, _ := cmd.Flags().GetString("title")
			isbn, _ := cmd.Flags().GetString("isbn")
			if title == "" && isbn == "" {
				return fmt.Errorf("--title or --isbn is required")
			}

			svc, logger, err := openService()
			if err != nil {
				return err
			}
			defer closeService(svc, logger)

			res := svc.Series.Execute(cmd.Context(), svc.NewContext(), provider.SeriesRequest{Title: title, ISBN: isbn})
			if !res.Found() {
				return fmt.Errorf("no series found")
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "series: %s\n", res.Payload.Name)
			if res.Payload.Position > 0 {
				fmt.Fprintf(out, "position: %g\n", res.Payload.Position)
			}
			fmt.Fprintf(out, "source: %s\n", res.Source)
			return nil
		},
	}

	authorCmd = &cobra.Command{
		Use:   "author",
		Short: "Fetch an author biography",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			svc, logger, err := openService()
			if err != nil {
				return err
			}
			defer closeService(svc, logger)

			res := svc.Authors.Execute(cmd.Context(), svc.NewContext(), provider.AuthorRequest{Name: name})
			if !res.Found() {
				return fmt.Errorf("no biography found for %q", name)
			}
			return writeYAML(cmd.OutOrStdout(), map[string]any{
				"author":     res.Payload,
				"source":     res.Source,
				"confidence": res.Confidence,
			})
		},
	}

	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Ask every generator for book suggestions and merge the answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, _ := cmd.Flags().GetString("prompt")
			count, _ := cmd.Flags().GetInt("count")
			if prompt == "" {
				return fmt.Errorf("--prompt is required")
			}

			svc, logger, err := openService()
			if err != nil {
				return err
			}
			defer closeService(svc, logger)

			books := svc.Generation.Execute(cmd.Context(), svc.NewContext(), provider.GenerationRequest{Prompt: prompt, Count: count})
			if len(books) == 0 {
				return fmt.Errorf("no suggestions were generated")
			}
			return writeYAML(cmd.OutOrStdout(), generatedView(books))
		},
	}
)

func init() {
	resolveCmd.Flags().String("title", "", "book title")
	resolveCmd.Flags().String("author", "", "book author")

	metadataCmd.Flags().String("isbn", "", "ISBN-10 or ISBN-13")
	coversCmd.Flags().String("isbn", "", "ISBN-10 or ISBN-13")

	seriesCmd.Flags().String("title", "", "book title")
	seriesCmd.Flags().String("isbn", "", "ISBN-10 or ISBN-13")

	authorCmd.Flags().String("name", "", "author name")

	generateCmd.Flags().String("prompt", "", "what to suggest books for")
	generateCmd.Flags().Int("count", 5, "number of books to return")
}

type generatedEntry struct {
	Title       string `yaml:"title"`
	Author      string `yaml:"author"`
	Year        int    `yaml:"year,omitempty"`
	Description string `yaml:"description,omitempty"`
	Source      string `yaml:"source"`
}

func generatedView(books []orchestrator.Sourced[provider.GeneratedBook]) []generatedEntry {
	out := make([]generatedEntry, len(books))
	for i, b := range books {
		out[i] = generatedEntry{
			Title:       b.Item.Title,
			Author:      b.Item.Author,
			Year:        b.Item.Year,
			Description: b.Item.Description,
			Source:      b.Source,
		}
	}
	return out
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return enc.Close()
}
