// Package search answers free-text questions with Gemini grounded on Google Search.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/rwagpt/agent/internal/clientdata"
	"github.com/rwagpt/agent/internal/domain"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-2.5-flash"

// DefaultTimeout bounds a single answer
const DefaultTimeout = 20 * time.Second

const systemInstruction = `You are an assistant for a real-world-asset (RWA) investment app.
Answer the user's question concisely in markdown, using current web results.
Prefer concrete numbers (yields, prices, dates) and name your sources.
Do not give personalised financial advice.`

// generator produces text for a prompt. It is the seam between the client and the Gemini SDK.
type generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// genaiGenerator calls Gemini with the Google Search tool enabled
type genaiGenerator struct {
	client *genai.Client
}

func (g *genaiGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
		},
	)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Client implements domain.Searcher.
type Client struct {
	gen       generator
	model     string
	timeout   time.Duration
	cacheRepo *clientdata.Repository
	log       zerolog.Logger
}

// NewClient creates a search client. An empty apiKey yields a client whose
// Answer always fails with domain.ErrNotConfigured. cacheRepo is optional.
func NewClient(ctx context.Context, apiKey, model string, cacheRepo *clientdata.Repository, log zerolog.Logger) (*Client, error) {
	c := &Client{
		model:     model,
		timeout:   DefaultTimeout,
		cacheRepo: cacheRepo,
		log:       log.With().Str("client", "search").Logger(),
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if apiKey == "" {
		return c, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	c.gen = &genaiGenerator{client: client}
	return c, nil
}

// Configured reports whether answers can be produced
func (c *Client) Configured() bool {
	return c.gen != nil
}

// Answer returns a markdown answer for query. Identical questions within
// clientdata.TTLSearch are served from cache.
func (c *Client) Answer(ctx context.Context, query string) (string, error) {
	if !c.Configured() {
		return "", domain.ErrNotConfigured
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("%w: empty query", domain.ErrMalformedResponse)
	}

	key := "answer:" + strings.ToLower(query)
	answer, stale, err := clientdata.Fetch(c.cacheRepo, clientdata.SourceSearch, key, clientdata.TTLSearch, func() (string, error) {
		return c.generate(ctx, query)
	})
	if err != nil {
		return "", err
	}
	if stale {
		c.log.Warn().Msg("Search failed, using stale cached answer")
	}
	return answer, nil
}

func (c *Client) generate(ctx context.Context, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	text, err := c.gen.Generate(ctx, c.model, query)
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %v", domain.ErrExternalUnavailable, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: gemini returned no text", domain.ErrMalformedResponse)
	}

	c.log.Debug().
		Str("model", c.model).
		Dur("elapsed", time.Since(start)).
		Int("chars", len(text)).
		Msg("Search answered")
	return text, nil
}
