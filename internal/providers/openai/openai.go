// file: internal/providers/openai/openai.go
// version: 2.0.0
// guid: 9a0b1c2d-3e4f-5a6b-7c8d-9e0f1a2b3c4d

// Package openai generates book suggestions with an OpenAI chat model.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jdfalk/bookmeta-orchestrator/internal/provider"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"
)

const (
	Name      = "openai"
	QuotaKey  = "openai"
	APIKeyEnv = "OPENAI_API_KEY"

	// DefaultModel is fast and cheap enough for suggestion lists.
	DefaultModel = "gpt-4o-mini"

	defaultCount = 5
	maxCount     = 20
)

func Descriptor() provider.Descriptor {
	return provider.Descriptor{
		Name:         Name,
		Type:         provider.TypeAI,
		Capabilities: []provider.Capability{provider.CapBookGeneration},
		QuotaKey:     QuotaKey,
	}
}

const systemPrompt = `You recommend real, published books. Given a request, suggest books that match it.

Return ONLY valid JSON in this shape:
{
  "books": [
    {"title": "book title", "author": "author name", "description": "one sentence", "year": 1965}
  ]
}

Do not invent books. Omit description or year if unsure.`

// Generator calls the chat completions API. A client is built per call from
// the request environment so a rotated key takes effect immediately.
type Generator struct {
	model      string
	baseURL    string
	maxRetries int
}

// Option configures a Generator.
type Option func(*Generator)

// WithModel overrides DefaultModel.
func WithModel(model string) Option {
	return func(g *Generator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(g *Generator) { g.baseURL = baseURL }
}

// WithMaxRetries sets how often the client retries failed requests.
func WithMaxRetries(n int) Option {
	return func(g *Generator) { g.maxRetries = n }
}

// New creates a generator. OPENAI_BASE_URL is honoured by the client itself.
func New(opts ...Option) *Generator {
	g := &Generator{model: DefaultModel, maxRetries: 2}
	if m := os.Getenv("OPENAI_MODEL"); m != "" {
		g.model = m
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Model returns the chat model in use.
func (g *Generator) Model() string {
	return g.model
}

// IsAvailable reports whether an API key is configured.
func (g *Generator) IsAvailable(_ context.Context, env provider.Environment) (bool, error) {
	return provider.HasValue(env, APIKeyEnv), nil
}

type generatedBooks struct {
	Books []provider.GeneratedBook `json:"books"`
}

// GenerateBooks asks the model for req.Count books matching req.Prompt.
// Unlike the HTTP catalog adapters, API failures are returned as errors.
func (g *Generator) GenerateBooks(ctx context.Context, sc *provider.ServiceContext, req provider.GenerationRequest) ([]provider.GeneratedBook, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, nil
	}
	key, _ := sc.Environment().Lookup(APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%s is not set", APIKeyEnv)
	}

	count := req.Count
	if count <= 0 {
		count = defaultCount
	}
	count = min(count, maxCount)

	opts := []option.RequestOption{option.WithAPIKey(key), option.WithMaxRetries(g.maxRetries)}
	if g.baseURL != "" {
		opts = append(opts, option.WithBaseURL(g.baseURL))
	}
	client := openai.NewClient(opts...)

	jsonObjectFormat := shared.NewResponseFormatJSONObjectParam()
	completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(fmt.Sprintf("Suggest %d books for: %s", count, req.Prompt)),
		},
		Model:       shared.ChatModel(g.model),
		Temperature: param.NewOpt(0.7),
		MaxTokens:   param.NewOpt(int64(200 * count)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &jsonObjectFormat,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	var out generatedBooks
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &out); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAI response: %w", err)
	}

	books := make([]provider.GeneratedBook, 0, len(out.Books))
	for _, b := range out.Books {
		b.Title = strings.TrimSpace(b.Title)
		b.Author = strings.TrimSpace(b.Author)
		if b.Title == "" {
			continue
		}
		books = append(books, b)
	}
	sc.Log().Debug("openai generated books", zap.Int("requested", count), zap.Int("returned", len(books)))
	return books, nil
}
