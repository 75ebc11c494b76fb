// Package openocean provides a client for the OpenOcean swap quote API.
// It is the secondary aggregator and needs no credential.
package openocean

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/rwagpt/agent/internal/domain"
	"github.com/rwagpt/agent/internal/modules/swap"
)

const (
	defaultBaseURL  = "https://open-api.openocean.finance/v3"
	defaultSlippage = "1"
	defaultGasPrice = "5"
)

// SupportedChains lists the chain ids OpenOcean is queried for
var SupportedChains = map[int]bool{
	swap.ChainEthereum: true,
	swap.ChainPolygon:  true,
}

type quoteResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *struct {
		From         string          `json:"from"`
		To           string          `json:"to"`
		Data         string          `json:"data"`
		Value        json.RawMessage `json:"value"`
		EstimatedGas json.RawMessage `json:"estimatedGas"`
		GasPrice     json.RawMessage `json:"gasPrice"`
	} `json:"data"`
}

// Client is the OpenOcean API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new OpenOcean client.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log.With().Str("client", "openocean").Logger(),
	}
}

// Name identifies the aggregator in diagnostics.
func (c *Client) Name() string {
	return "openocean"
}

// Supports reports whether chainID is served.
func (c *Client) Supports(chainID int) bool {
	return SupportedChains[chainID]
}

// Swap requests a swap quote and normalizes it into a transaction.
// OpenOcean takes the human amount; it applies token decimals itself.
func (c *Client) Swap(ctx context.Context, p swap.Params) (swap.TxPayload, error) {
	if !c.Supports(p.ChainID) {
		return swap.TxPayload{}, fmt.Errorf("%w: openocean does not serve chain %d", domain.ErrNotConfigured, p.ChainID)
	}

	q := url.Values{}
	q.Set("inTokenAddress", p.SrcToken)
	q.Set("outTokenAddress", p.DstToken)
	q.Set("amount", p.AmountHuman)
	q.Set("gasPrice", defaultGasPrice)
	q.Set("slippage", defaultSlippage)
	q.Set("account", p.FromAddress)

	endpoint := c.baseURL + "/" + strconv.Itoa(p.ChainID) + "/swap_quote?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return swap.TxPayload{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Int("chain_id", p.ChainID).Str("amount", p.AmountHuman).Msg("Requesting OpenOcean quote")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return swap.TxPayload{}, fmt.Errorf("%w: %v", domain.ErrExternalUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return swap.TxPayload{}, fmt.Errorf("%w: openocean status %d: %s", domain.ErrExternalUnavailable, resp.StatusCode, string(body))
	}

	var qr quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return swap.TxPayload{}, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if qr.Code != http.StatusOK {
		return swap.TxPayload{}, fmt.Errorf("%w: openocean code %d: %s", domain.ErrExternalUnavailable, qr.Code, qr.Message)
	}
	if qr.Data == nil || qr.Data.To == "" {
		return swap.TxPayload{}, fmt.Errorf("%w: no transaction in openocean quote", domain.ErrMalformedResponse)
	}

	value, err := swap.QuantityFromJSON(qr.Data.Value)
	if err != nil {
		return swap.TxPayload{}, err
	}
	gas, err := swap.QuantityFromJSON(qr.Data.EstimatedGas)
	if err != nil {
		return swap.TxPayload{}, err
	}

	tx := swap.TxPayload{
		From:  qr.Data.From,
		To:    qr.Data.To,
		Data:  qr.Data.Data,
		Value: value,
		Gas:   gas,
	}
	if len(qr.Data.GasPrice) > 0 {
		if tx.GasPrice, err = swap.QuantityFromJSON(qr.Data.GasPrice); err != nil {
			return swap.TxPayload{}, err
		}
	}
	if tx.Data == "" {
		tx.Data = "0x"
	}
	return tx, nil
}
