// Package payments creates x402 payment intents for agent-initiated investments.
// Intents are recorded locally; nothing is settled.
package payments

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Intent statuses
const (
	StatusProcessed = "processed"
	StatusFallback  = "fallback"
)

const (
	platform         = "RWA-GPT"
	intentType       = "rwa_investment"
	defaultNetwork   = "amoy"
	amoyUSDCAddress  = "0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582"
	fallbackResponse = "Using direct payment method (x402 unavailable)"
)

// PaymentData describes the intent as it would be sent to the x402 facilitator
type PaymentData struct {
	Amount    string            `json:"amount"`
	Token     string            `json:"token"`
	Recipient string            `json:"recipient"`
	Network   string            `json:"network"`
	Metadata  map[string]string `json:"metadata"`
}

// Result is the outcome of processing an agent payment
type Result struct {
	PaymentID     string       `json:"x402_payment_id,omitempty"`
	Status        string       `json:"status"`
	AgentResponse string       `json:"agent_response"`
	Details       *PaymentData `json:"payment_details,omitempty"`
	CanExecute    bool         `json:"can_execute"`
}

// Processed reports whether an intent id was issued
func (r Result) Processed() bool {
	return r.Status == StatusProcessed && r.PaymentID != ""
}

// Metadata flattens the result for embedding in a transaction payload
func (r Result) Metadata() map[string]any {
	m := map[string]any{
		"x402_payment_id": r.PaymentID,
		"status":          r.Status,
		"agent_response":  r.AgentResponse,
		"can_execute":     r.CanExecute,
	}
	if r.Details != nil {
		m["payment_details"] = r.Details
	}
	return m
}

// InvestmentRequest is what the agent knows about an investment
type InvestmentRequest struct {
	Message     string
	Amount      string
	AssetID     string
	UserAddress string
}

// Processor issues x402 payment intents
type Processor struct {
	network string
	now     func() time.Time
	log     zerolog.Logger
}

// NewProcessor creates a payment intent processor on the Amoy network
func NewProcessor(log zerolog.Logger) *Processor {
	return &Processor{
		network: defaultNetwork,
		now:     time.Now,
		log:     log.With().Str("component", "x402").Logger(),
	}
}

// ProcessAgentPayment creates a payment intent for an investment.
// A request missing amount or user yields a fallback result that still allows execution.
func (p *Processor) ProcessAgentPayment(req InvestmentRequest) Result {
	if req.Amount == "" || req.UserAddress == "" {
		return Result{Status: StatusFallback, AgentResponse: fallbackResponse, CanExecute: true}
	}

	now := p.now()
	id := fmt.Sprintf("x402_%d_%s", now.Unix(), uuid.New().String()[:8])

	data := &PaymentData{
		Amount:    req.Amount,
		Token:     amoyUSDCAddress,
		Recipient: req.UserAddress,
		Network:   p.network,
		Metadata: map[string]string{
			"type":               intentType,
			"timestamp":          now.Format(time.RFC3339),
			"platform":           platform,
			"asset_id":           req.AssetID,
			"investment_request": req.Message,
			"user_address":       req.UserAddress,
			"agent_processed":    "true",
		},
	}

	p.log.Info().
		Str("x402_payment_id", id).
		Str("amount", req.Amount).
		Str("asset_id", req.AssetID).
		Msg("Created x402 payment intent")

	return Result{
		PaymentID:     id,
		Status:        StatusProcessed,
		AgentResponse: fmt.Sprintf("✅ x402 payment created for %s USDC investment in %s", req.Amount, req.AssetID),
		Details:       data,
		CanExecute:    true,
	}
}
