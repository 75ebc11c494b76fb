// Package oneinch provides a client for the 1inch swap API.
// It is the primary aggregator; requests need an API key.
package oneinch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/rwagpt/agent/internal/domain"
	"github.com/rwagpt/agent/internal/modules/swap"
)

const (
	defaultBaseURL  = "https://api.1inch.dev/swap/v6.0"
	defaultSlippage = "1"
)

// txFields is the transaction object in a swap response
type txFields struct {
	From     string          `json:"from"`
	To       string          `json:"to"`
	Data     string          `json:"data"`
	Value    json.RawMessage `json:"value"`
	Gas      json.RawMessage `json:"gas"`
	GasPrice json.RawMessage `json:"gasPrice"`
}

// swapResponse accepts both shapes the API has used: a nested tx object or
// the transaction fields at the top level.
type swapResponse struct {
	Tx *txFields `json:"tx"`
	txFields
}

// Client is the 1inch API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new 1inch client. Without an API key every swap
// returns domain.ErrNotConfigured.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log.With().Str("client", "oneinch").Logger(),
	}
}

// Name identifies the aggregator in diagnostics.
func (c *Client) Name() string {
	return "1inch"
}

// Supports reports chain support; 1inch serves every chain we route.
func (c *Client) Supports(int) bool {
	return true
}

// Swap requests an executable swap transaction.
func (c *Client) Swap(ctx context.Context, p swap.Params) (swap.TxPayload, error) {
	if c.apiKey == "" {
		return swap.TxPayload{}, domain.ErrNotConfigured
	}

	q := url.Values{}
	q.Set("src", p.SrcToken)
	q.Set("dst", p.DstToken)
	q.Set("amount", p.Amount)
	q.Set("from", p.FromAddress)
	q.Set("origin", p.FromAddress)
	q.Set("slippage", defaultSlippage)
	q.Set("disableEstimate", "true")

	endpoint := fmt.Sprintf("%s/%d/swap?%s", c.baseURL, p.ChainID, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return swap.TxPayload{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Int("chain_id", p.ChainID).Str("amount", p.Amount).Msg("Requesting 1inch swap")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return swap.TxPayload{}, fmt.Errorf("%w: %v", domain.ErrExternalUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return swap.TxPayload{}, fmt.Errorf("%w: 1inch status %d: %s", domain.ErrExternalUnavailable, resp.StatusCode, string(body))
	}

	var sr swapResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return swap.TxPayload{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	fields := sr.txFields
	if sr.Tx != nil {
		fields = *sr.Tx
	}
	if fields.To == "" {
		return swap.TxPayload{}, fmt.Errorf("%w: no transaction in 1inch response", domain.ErrMalformedResponse)
	}
	return toPayload(fields)
}

func toPayload(f txFields) (swap.TxPayload, error) {
	value, err := swap.QuantityFromJSON(f.Value)
	if err != nil {
		return swap.TxPayload{}, err
	}
	gas, err := swap.QuantityFromJSON(f.Gas)
	if err != nil {
		return swap.TxPayload{}, err
	}

	tx := swap.TxPayload{
		From:  f.From,
		To:    f.To,
		Data:  f.Data,
		Value: value,
		Gas:   gas,
	}
	if len(f.GasPrice) > 0 {
		if tx.GasPrice, err = swap.QuantityFromJSON(f.GasPrice); err != nil {
			return swap.TxPayload{}, err
		}
	}
	if tx.Data == "" {
		tx.Data = "0x"
	}
	return tx, nil
}
