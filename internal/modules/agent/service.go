// Package agent answers chat messages by dispatching them to the investment
// components the intent router selects.
package agent

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/rwagpt/agent/internal/clients/subgraph"
	"github.com/rwagpt/agent/internal/domain"
	"github.com/rwagpt/agent/internal/modules/catalog"
	"github.com/rwagpt/agent/internal/modules/intent"
	"github.com/rwagpt/agent/internal/modules/ledger"
	"github.com/rwagpt/agent/internal/modules/payments"
	"github.com/rwagpt/agent/internal/modules/realestate"
	"github.com/rwagpt/agent/internal/modules/recommendation"
	"github.com/rwagpt/agent/internal/modules/swap"
	"github.com/rwagpt/agent/internal/utils"
)

// DefaultFromAddress stands in for the wallet when the client sends none
const DefaultFromAddress = "0x1234567890123456789012345678901234567890"

// HelpText is the reply when nothing else applies
const HelpText = "I'm not sure how to handle that. Please try asking in a different way."

// AskRequest is an inbound chat message with optional wallet context
type AskRequest struct {
	Message     string  `json:"message"`
	ChainID     *int    `json:"chainId,omitempty"`
	FromAddress *string `json:"fromAddress,omitempty"`
}

// AskResponse is the agent's reply.
// TransactionData is set only for investments and is always executable.
type AskResponse struct {
	Response        string          `json:"response"`
	IsTransaction   bool            `json:"is_transaction"`
	TransactionData *swap.TxPayload `json:"transaction_data,omitempty"`
	RecordID        string          `json:"record_id,omitempty"`
}

// Swapper quotes investment swaps
type Swapper interface {
	Quote(ctx context.Context, req swap.QuoteRequest) swap.Result
}

// PaymentProcessor issues x402 payment intents
type PaymentProcessor interface {
	ProcessAgentPayment(req payments.InvestmentRequest) payments.Result
}

// ListingSource lists real estate offerings
type ListingSource interface {
	Listings(ctx context.Context) []realestate.Listing
}

// Indexer reads indexed on-chain investments
type Indexer interface {
	Configured() bool
	RecentInvestments(ctx context.Context, first int) ([]subgraph.Investment, error)
}

// Deps are the collaborators of the agent. Searcher, Indexer and Messages
// may be nil; the corresponding branches then use their offline fallback.
type Deps struct {
	Router         *intent.Router
	Catalog        *catalog.Catalog
	Scorer         *recommendation.Scorer
	Ledger         *ledger.Ledger
	Swapper        Swapper
	Payments       PaymentProcessor
	Listings       ListingSource
	Searcher       domain.Searcher
	Indexer        Indexer
	Messages       domain.MessageStore
	DefaultChainID int
}

// Service is the conversational agent
type Service struct {
	Deps
	now func() time.Time
	log zerolog.Logger
}

// NewService creates the agent
func NewService(deps Deps, log zerolog.Logger) *Service {
	if deps.Router == nil {
		deps.Router = intent.NewRouter()
	}
	if deps.Scorer == nil {
		deps.Scorer = recommendation.NewScorer()
	}
	if deps.DefaultChainID == 0 {
		deps.DefaultChainID = swap.DefaultChainID
	}
	return &Service{
		Deps: deps,
		now:  time.Now,
		log:  log.With().Str("component", "agent").Logger(),
	}
}

// Ask answers one message. External failures never surface as errors;
// an error means an internal fault.
func (s *Service) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	defer utils.OperationTimer("ask_agent", s.log)()
	s.remember(ctx, domain.RoleUser, req.Message)

	ictx := intent.Context{ChainID: req.ChainID, FromAddress: req.FromAddress}
	in := s.Router.Classify(req.Message, ictx)

	searchFailed := false
	if in.Kind == intent.KindSearch {
		answer, err := s.search(ctx, in.Query)
		if err == nil {
			return s.reply(ctx, AskResponse{Response: answer}), nil
		}
		s.log.Warn().Err(err).Msg("Search failed, re-classifying")
		searchFailed = true
		in = s.Router.ClassifyWithout(req.Message, ictx, intent.KindSearch)
	}

	s.log.Debug().Str("intent", string(in.Kind)).Msg("Message classified")

	var (
		resp AskResponse
		err  error
	)
	switch in.Kind {
	case intent.KindShowHistory:
		resp = s.history(fromAddress(req))
	case intent.KindShowRawCatalog:
		resp, err = s.rawCatalog(ctx)
	case intent.KindInvest:
		resp = s.invest(ctx, req, in)
	case intent.KindShowRealEstate:
		resp = s.realEstate(ctx, req.Message)
	default:
		resp = s.fallback(ctx, req.Message, searchFailed)
	}
	if err != nil {
		return AskResponse{}, err
	}
	return s.reply(ctx, resp), nil
}

// Recommend ranks the catalog against a prompt
func (s *Service) Recommend(prompt string) []recommendation.ScoredRecommendation {
	return s.Scorer.Recommend(prompt, s.Catalog.Options())
}

func (s *Service) search(ctx context.Context, query string) (string, error) {
	if s.Searcher == nil {
		return "", domain.ErrNotConfigured
	}
	return s.Searcher.Answer(ctx, query)
}

func (s *Service) history(address string) AskResponse {
	s.Ledger.Reconcile()
	return AskResponse{Response: renderHistory(s.Ledger.ListForUser(address))}
}

func (s *Service) rawCatalog(ctx context.Context) (AskResponse, error) {
	curated := curatedEntries(s.Catalog.Curated(3))

	if s.Indexer == nil || !s.Indexer.Configured() {
		text, err := renderCatalog(curated)
		if err != nil {
			return AskResponse{}, err
		}
		return AskResponse{Response: text}, nil
	}

	investments, err := s.Indexer.RecentInvestments(ctx, subgraph.DefaultFirst)
	if err != nil {
		s.log.Warn().Err(err).Msg("Indexer unavailable, showing curated options")
	}
	if len(investments) > 0 {
		text, err := renderIndexed(investments)
		if err != nil {
			return AskResponse{}, err
		}
		return AskResponse{Response: text}, nil
	}

	text, err := renderNoIndexed(curated)
	if err != nil {
		return AskResponse{}, err
	}
	return AskResponse{Response: text}, nil
}

func (s *Service) invest(ctx context.Context, req AskRequest, in intent.Intent) AskResponse {
	from := fromAddress(req)
	chainID := s.DefaultChainID
	if req.ChainID != nil {
		chainID = *req.ChainID
	}
	tokens := swap.TokensForChain(chainID)

	quote := s.Swapper.Quote(ctx, swap.QuoteRequest{
		ChainID:     tokens.ChainID,
		SrcToken:    tokens.Src.Address,
		DstToken:    tokens.Dst.Address,
		AmountHuman: in.AmountText,
		SrcDecimals: tokens.Src.Decimals,
		FromAddress: from,
	})

	var tx swap.TxPayload
	if quote.Executable() {
		tx = *quote.Tx
	} else {
		s.log.Info().Interface("details", quote.Details).Msg("No swap route, using no-op transaction")
		tx = swap.NoOpTransaction(from)
	}

	payment := s.Payments.ProcessAgentPayment(payments.InvestmentRequest{
		Message:     req.Message,
		Amount:      in.AmountText,
		AssetID:     in.AssetID,
		UserAddress: from,
	})

	var paymentID *string
	if payment.Processed() {
		paymentID = ledger.StringPtr(payment.PaymentID)
		tx.X402Metadata = payment.Metadata()
	}

	rec := s.Ledger.Append(ledger.Record{
		UserAddress:     from,
		Amount:          in.AmountText,
		AssetID:         in.AssetID,
		TransactionType: ledger.TransactionTypeInvestment,
		X402PaymentID:   paymentID,
		Status:          ledger.StatusPending,
		ChainID:         tokens.ChainID,
	})

	s.log.Info().
		Str("record_id", rec.ID).
		Str("amount", in.AmountText).
		Str("asset_id", in.AssetID).
		Bool("live_route", quote.Executable()).
		Msg("Investment prepared")

	return AskResponse{
		Response:        renderInvestment(in, s.listedOption(in.AssetID), tokens, quote, payment),
		IsTransaction:   true,
		TransactionData: &tx,
		RecordID:        rec.ID,
	}
}

// listedOption returns the catalog entry for assetID, or nil when it is not listed
func (s *Service) listedOption(assetID string) *catalog.InvestmentOption {
	if s.Catalog == nil {
		return nil
	}
	opt, ok := s.Catalog.ByAssetID(assetID)
	if !ok {
		return nil
	}
	return &opt
}

func (s *Service) realEstate(ctx context.Context, message string) AskResponse {
	text := realestate.Render(s.Listings.Listings(ctx), s.now())
	if recs := s.matches(message); len(recs) > 0 {
		text += "\n" + renderRecommendations(recs)
	}
	return AskResponse{Response: text}
}

func (s *Service) fallback(ctx context.Context, message string, searchFailed bool) AskResponse {
	if !searchFailed {
		answer, err := s.search(ctx, message)
		if err == nil {
			return AskResponse{Response: answer}
		}
		if !errors.Is(err, domain.ErrNotConfigured) {
			s.log.Warn().Err(err).Msg("Fallback search failed")
		}
	}

	if recs := s.matches(message); len(recs) > 0 {
		return AskResponse{Response: renderRecommendations(recs)}
	}
	return AskResponse{Response: HelpText}
}

// matches returns the top scored options, without the fallback triple
func (s *Service) matches(message string) []recommendation.ScoredRecommendation {
	recs := s.Scorer.Rank(message, s.Catalog.Options())
	if len(recs) > recommendation.MaxResults {
		recs = recs[:recommendation.MaxResults]
	}
	return recs
}

// reply stores the agent's text and returns the response unchanged
func (s *Service) reply(ctx context.Context, resp AskResponse) AskResponse {
	s.remember(ctx, domain.RoleAgent, resp.Response)
	return resp
}

func (s *Service) remember(ctx context.Context, role, content string) {
	if s.Messages == nil {
		return
	}
	if err := s.Messages.Insert(ctx, role, content, s.now().UTC()); err != nil {
		s.log.Warn().Err(err).Str("role", role).Msg("Failed to store message")
	}
}

func fromAddress(req AskRequest) string {
	if req.FromAddress != nil && *req.FromAddress != "" {
		return *req.FromAddress
	}
	return DefaultFromAddress
}
