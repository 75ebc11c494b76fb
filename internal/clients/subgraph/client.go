// Package subgraph queries the investment indexer deployed on The Graph.
package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rwagpt/agent/internal/clientdata"
	"github.com/rwagpt/agent/internal/domain"
)

// DefaultFirst is how many investments are requested
const DefaultFirst = 5

const investmentsQuery = `query RecentInvestments($first: Int!) {
  investments(first: $first, orderBy: timestamp, orderDirection: desc) {
    id
    investor
    amount
    timestamp
  }
}`

// Investment is one indexed Invested event. Amount and Timestamp are
// BigInt values and arrive as decimal strings.
type Investment struct {
	ID        string `json:"id"`
	Investor  string `json:"investor"`
	Amount    string `json:"amount"`
	Timestamp string `json:"timestamp"`
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type investmentsResponse struct {
	Data *struct {
		Investments []Investment `json:"investments"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// Client is the subgraph GraphQL client.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	cacheRepo  *clientdata.Repository
	log        zerolog.Logger
}

// NewClient creates a subgraph client. An empty endpoint disables it.
// apiKey is optional and sent as a bearer token for gateway deployments.
func NewClient(endpoint, apiKey string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cacheRepo: cacheRepo,
		log:       log.With().Str("client", "subgraph").Logger(),
	}
}

// Configured reports whether an endpoint is set
func (c *Client) Configured() bool {
	return c != nil && c.endpoint != ""
}

// RecentInvestments returns the newest indexed investments.
// An empty slice means the indexer is reachable but has nothing yet.
func (c *Client) RecentInvestments(ctx context.Context, first int) ([]Investment, error) {
	if !c.Configured() {
		return nil, domain.ErrNotConfigured
	}
	if first <= 0 {
		first = DefaultFirst
	}

	key := fmt.Sprintf("investments:%d", first)
	investments, stale, err := clientdata.Fetch(c.cacheRepo, clientdata.SourceSubgraph, key, clientdata.TTLSubgraph, func() ([]Investment, error) {
		return c.queryInvestments(ctx, first)
	})
	if err != nil {
		return nil, err
	}
	if stale {
		c.log.Warn().Msg("Subgraph query failed, using stale cached data")
	}
	return investments, nil
}

func (c *Client) queryInvestments(ctx context.Context, first int) ([]Investment, error) {
	body, err := json.Marshal(graphQLRequest{
		Query:     investmentsQuery,
		Variables: map[string]any{"first": first},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExternalUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: subgraph status %d: %s", domain.ErrExternalUnavailable, resp.StatusCode, string(msg))
	}

	var out investmentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, len(out.Errors))
		for i, e := range out.Errors {
			msgs[i] = e.Message
		}
		return nil, fmt.Errorf("%w: subgraph errors: %s", domain.ErrExternalUnavailable, strings.Join(msgs, "; "))
	}
	if out.Data == nil {
		return nil, fmt.Errorf("%w: subgraph response has no data", domain.ErrMalformedResponse)
	}

	investments := out.Data.Investments
	if investments == nil {
		investments = []Investment{}
	}
	c.log.Debug().Int("count", len(investments)).Msg("Fetched indexed investments")
	return investments, nil
}
