// Package realt provides a client for the RealT community token API,
// which lists tokenized rental properties.
package realt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/rwagpt/agent/internal/clientdata"
	"github.com/rwagpt/agent/internal/domain"
)

// DefaultBaseURL is the public RealT API
const DefaultBaseURL = "https://api.realt.community/v1"

// Token is one tokenized property
type Token struct {
	FullName              string  `json:"fullName"`
	ShortName             string  `json:"shortName"`
	City                  string  `json:"city"`
	State                 string  `json:"state"`
	TokenPrice            float64 `json:"tokenPrice"`
	AnnualPercentageYield float64 `json:"annualPercentageYield"`
	TotalTokens           int64   `json:"totalTokens"`
	RentedUnits           int     `json:"rentedUnits"`
	TotalUnits            int     `json:"totalUnits"`
	NetRentMonth          float64 `json:"netRentMonth"`
}

// Client is the RealT API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cacheRepo  *clientdata.Repository
	log        zerolog.Logger
}

// NewClient creates a RealT client. cacheRepo is optional; if nil, caching is disabled.
func NewClient(baseURL string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cacheRepo: cacheRepo,
		log:       log.With().Str("client", "realt").Logger(),
	}
}

// FetchTokens returns the first limit tokens of the listing.
// When the API fails, stale cached tokens are returned if available.
func (c *Client) FetchTokens(ctx context.Context, limit int) ([]Token, error) {
	key := fmt.Sprintf("tokens:%d", limit)

	tokens, stale, err := clientdata.Fetch(c.cacheRepo, clientdata.SourceRealT, key, clientdata.TTLRealT, func() ([]Token, error) {
		return c.doRequest(ctx, limit)
	})
	if err != nil {
		return nil, err
	}
	if stale {
		c.log.Warn().Msg("RealT API failed, using stale cached data")
	}
	return tokens, nil
}

func (c *Client) doRequest(ctx context.Context, limit int) ([]Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/token", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExternalUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: realt status %d: %s", domain.ErrExternalUnavailable, resp.StatusCode, string(body))
	}

	var tokens []Token
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	if limit > 0 && len(tokens) > limit {
		tokens = tokens[:limit]
	}
	c.log.Debug().Int("count", len(tokens)).Msg("Fetched RealT tokens")
	return tokens, nil
}
