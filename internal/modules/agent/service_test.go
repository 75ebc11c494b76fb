package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwagpt/agent/internal/clients/subgraph"
	"github.com/rwagpt/agent/internal/domain"
	"github.com/rwagpt/agent/internal/modules/catalog"
	"github.com/rwagpt/agent/internal/modules/ledger"
	"github.com/rwagpt/agent/internal/modules/payments"
	"github.com/rwagpt/agent/internal/modules/realestate"
	"github.com/rwagpt/agent/internal/modules/swap"
	testingpkg "github.com/rwagpt/agent/internal/testing"
)

type fakeSearcher struct {
	answer string
	err    error
	calls  int
}

func (f *fakeSearcher) Answer(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.answer, f.err
}

type fakeSwapper struct {
	result   swap.Result
	received swap.QuoteRequest
}

func (f *fakeSwapper) Quote(_ context.Context, req swap.QuoteRequest) swap.Result {
	f.received = req
	return f.result
}

type fakeListings struct{}

func (fakeListings) Listings(context.Context) []realestate.Listing {
	return []realestate.Listing{{
		AssetID: "REALT-001", PropertyName: "9943 Marlowe St", Location: "Detroit, MI",
		YieldAPY: 10.9, TokenPrice: 51.38, MinInvestment: "51.38 USDC", Status: "Active", Source: realestate.SourceLive,
	}}
}

type fakeIndexer struct {
	configured  bool
	investments []subgraph.Investment
	err         error
}

func (f *fakeIndexer) Configured() bool { return f.configured }

func (f *fakeIndexer) RecentInvestments(context.Context, int) ([]subgraph.Investment, error) {
	return f.investments, f.err
}

type fixture struct {
	svc      *Service
	ledger   *ledger.Ledger
	searcher *fakeSearcher
	swapper  *fakeSwapper
	indexer  *fakeIndexer
	messages *testingpkg.MockMessageStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)

	f := &fixture{
		ledger:   ledger.New(nil, zerolog.Nop()),
		searcher: &fakeSearcher{err: domain.ErrExternalUnavailable},
		swapper:  &fakeSwapper{},
		indexer:  &fakeIndexer{},
		messages: &testingpkg.MockMessageStore{},
	}
	f.svc = NewService(Deps{
		Catalog:  c,
		Ledger:   f.ledger,
		Swapper:  f.swapper,
		Payments: payments.NewProcessor(zerolog.Nop()),
		Listings: fakeListings{},
		Searcher: f.searcher,
		Indexer:  f.indexer,
		Messages: f.messages,
	}, zerolog.Nop())
	return f
}

func ask(t *testing.T, svc *Service, req AskRequest) AskResponse {
	t.Helper()
	resp, err := svc.Ask(context.Background(), req)
	require.NoError(t, err)
	return resp
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestAsk_SearchAnswers(t *testing.T) {
	f := newFixture(t)
	f.searcher.answer, f.searcher.err = "**RWA** are real-world assets.", nil

	resp := ask(t, f.svc, AskRequest{Message: "what is rwa"})

	assert.Equal(t, "**RWA** are real-world assets.", resp.Response)
	assert.False(t, resp.IsTransaction)
	assert.Nil(t, resp.TransactionData)
	assert.Equal(t, []string{
		"user: what is rwa",
		"agent: **RWA** are real-world assets.",
	}, f.messages.Transcript())
}

func TestAsk_SearchFailureFallsThrough(t *testing.T) {
	f := newFixture(t)

	resp := ask(t, f.svc, AskRequest{Message: "what is rwa"})
	assert.Contains(t, resp.Response, "REAL-TIME REAL ESTATE RWA INVESTMENTS")
	assert.Contains(t, resp.Response, "REALT-001")
	assert.Equal(t, 1, f.searcher.calls)

	resp = ask(t, f.svc, AskRequest{Message: "explain yourself"})
	assert.Equal(t, HelpText, resp.Response)
	assert.Equal(t, 2, f.searcher.calls, "a failed search is not retried by the fallback branch")
}

func TestAsk_FallbackUsesSearch(t *testing.T) {
	f := newFixture(t)
	f.searcher.answer, f.searcher.err = "Hello! Ask me about RWAs.", nil

	resp := ask(t, f.svc, AskRequest{Message: "hello there"})
	assert.Equal(t, "Hello! Ask me about RWAs.", resp.Response)
}

func TestAsk_FallbackRecommends(t *testing.T) {
	f := newFixture(t)
	f.svc.Searcher = nil

	resp := ask(t, f.svc, AskRequest{Message: "hedge with gold"})
	assert.Contains(t, resp.Response, "Recommended RWA investments")
	assert.Contains(t, resp.Response, "CMD-012")
	assert.Contains(t, resp.Response, "Matched: gold, hedge")
	assert.NotContains(t, resp.Response, "TCB-001", "the fallback triple is not used for chat replies")

	resp = ask(t, f.svc, AskRequest{Message: "hello there"})
	assert.Equal(t, HelpText, resp.Response)
}

func TestAsk_History(t *testing.T) {
	f := newFixture(t)

	resp := ask(t, f.svc, AskRequest{Message: "show my transaction history"})
	assert.Contains(t, resp.Response, "No transactions found yet.")

	hash := "0xfeed"
	f.ledger.Append(ledger.Record{UserAddress: DefaultFromAddress, Amount: "100", AssetID: "RE-001", ChainID: 80002, X402PaymentID: strPtr("x402_1")})
	f.ledger.Append(ledger.Record{UserAddress: DefaultFromAddress, Amount: "100", AssetID: "RE-001", ChainID: 80002, X402PaymentID: strPtr("x402_1"), TxHash: &hash, Status: ledger.StatusConfirmed})
	f.ledger.Append(ledger.Record{UserAddress: "0xother", Amount: "5", AssetID: "TCB-001", ChainID: 137})

	resp = ask(t, f.svc, AskRequest{Message: "past transactions"})
	assert.Contains(t, resp.Response, "Found 1 transaction(s)", "the x402 pair is reconciled into one")
	assert.Contains(t, resp.Response, "Polygon Amoy (ID: 80002)")
	assert.Contains(t, resp.Response, "✅ Confirmed")
	assert.Contains(t, resp.Response, "TX Hash: 0xfeed")
	assert.Contains(t, resp.Response, "x402 ID: x402_1")

	resp = ask(t, f.svc, AskRequest{Message: "history", FromAddress: strPtr("0xOTHER")})
	assert.Contains(t, resp.Response, "Found 1 transaction(s)")
	assert.Contains(t, resp.Response, "Polygon (ID: 137)")
	assert.Contains(t, resp.Response, "⏳ Pending")
}

func TestAsk_RawCatalog(t *testing.T) {
	f := newFixture(t)

	resp := ask(t, f.svc, AskRequest{Message: "raw data"})
	assert.Contains(t, resp.Response, "Available RWA Investment Options:")
	assert.Contains(t, resp.Response, `"asset_id": "TCB-001"`)
	assert.Contains(t, resp.Response, `"asset_id": "RWA-003"`)
	assert.NotContains(t, resp.Response, "CMD-012")
	assert.Contains(t, resp.Response, "To invest, try: 'invest 100 USDC in TCB-001'")

	f.indexer.configured = true
	f.indexer.err = domain.ErrExternalUnavailable
	resp = ask(t, f.svc, AskRequest{Message: "subgraph data"})
	assert.Contains(t, resp.Response, "No indexed investments yet.")
	assert.Contains(t, resp.Response, `"status": "Active"`)

	f.indexer.err = nil
	f.indexer.investments = []subgraph.Investment{{ID: "0xaa-1", Investor: "0xabc", Amount: "100000000", Timestamp: "1725192000"}}
	resp = ask(t, f.svc, AskRequest{Message: "subgraph data"})
	assert.Contains(t, resp.Response, "Raw investment data from subgraph:")
	assert.Contains(t, resp.Response, `"investor": "0xabc"`)
}

func TestAsk_InvestWithRoute(t *testing.T) {
	f := newFixture(t)
	f.swapper.result = swap.Result{
		Tx:         &swap.TxPayload{From: "0xabc", To: "0xrouter", Data: "0xdead", Value: "0x0"},
		Source:     swap.SourcePrimary,
		Aggregator: "1inch",
	}

	resp := ask(t, f.svc, AskRequest{Message: "invest 250 usdc in PCR-007", ChainID: intPtr(137), FromAddress: strPtr("0xabc")})

	assert.True(t, resp.IsTransaction)
	require.NotNil(t, resp.TransactionData)
	assert.Equal(t, "0xrouter", resp.TransactionData.To)
	assert.Contains(t, resp.Response, "1inch swap data for 250 USDC:")
	assert.Contains(t, resp.Response, "Asset: PCR-007 (Private Credit by Centrifuge, APY 9.2%, risk Medium-High, min 5000 USDC)")
	assert.Contains(t, resp.Response, "x402 Agentic Payment Available")

	assert.Equal(t, 137, f.swapper.received.ChainID)
	assert.Equal(t, "250", f.swapper.received.AmountHuman)
	assert.Equal(t, int32(6), f.swapper.received.SrcDecimals)
	assert.Equal(t, "0xabc", f.swapper.received.FromAddress)

	records := f.ledger.All()
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, resp.RecordID, rec.ID)
	assert.Equal(t, ledger.StatusPending, rec.Status)
	assert.Equal(t, "250", rec.Amount)
	assert.Equal(t, "PCR-007", rec.AssetID)
	assert.Equal(t, 137, rec.ChainID)
	require.True(t, rec.HasPaymentID())
	assert.Equal(t, *rec.X402PaymentID, resp.TransactionData.X402Metadata["x402_payment_id"])
}

func TestAsk_InvestWithoutRouteUsesNoOp(t *testing.T) {
	f := newFixture(t)
	f.swapper.result = swap.Result{Details: map[string]any{"primary": "1inch: not configured"}}

	resp := ask(t, f.svc, AskRequest{Message: "invest 100 usdc in TCB-001", ChainID: intPtr(999)})

	assert.True(t, resp.IsTransaction, "the no-op substitute is still a transaction")
	require.NotNil(t, resp.TransactionData)
	assert.Equal(t, DefaultFromAddress, resp.TransactionData.To)
	assert.Equal(t, "0x", resp.TransactionData.Data)
	assert.Equal(t, "0x0", resp.TransactionData.Value)
	assert.Equal(t, "0x5208", resp.TransactionData.Gas)
	assert.NotNil(t, resp.TransactionData.X402Metadata)
	assert.Contains(t, resp.Response, "No live swap route was found for 100 USDC on Polygon Amoy.")

	assert.Equal(t, swap.ChainPolygonAmoy, f.swapper.received.ChainID, "unknown chains use the default pair")
	rec := f.ledger.All()[0]
	assert.Equal(t, DefaultFromAddress, rec.UserAddress)
	assert.Equal(t, swap.ChainPolygonAmoy, rec.ChainID)
}

func TestAsk_InvestInUnlistedAsset(t *testing.T) {
	f := newFixture(t)
	f.swapper.result = swap.Result{Details: map[string]any{"primary": "1inch: not configured"}}

	resp := ask(t, f.svc, AskRequest{Message: "invest 10 usdc"})

	assert.True(t, resp.IsTransaction)
	assert.Contains(t, resp.Response, "Asset: RE-001 (not in the curated catalog)")
	assert.Equal(t, "RE-001", f.ledger.All()[0].AssetID, "unlisted assets are still recorded")
}

func TestAsk_MessageStoreFailureIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.messages.Err = errors.New("store down")

	resp, err := f.svc.Ask(context.Background(), AskRequest{Message: "hello there"})
	require.NoError(t, err)
	assert.Equal(t, HelpText, resp.Response)
}

func TestRecommend(t *testing.T) {
	f := newFixture(t)

	recs := f.svc.Recommend("I want safe investments")
	require.Len(t, recs, 1)
	assert.Equal(t, "treasury_bills", recs[0].Key)

	recs = f.svc.Recommend("")
	require.Len(t, recs, 3)
	assert.True(t, recs[0].Fallback)
}
