package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouter_Order(t *testing.T) {
	assert.Equal(t, []Kind{
		KindSearch,
		KindShowHistory,
		KindShowRawCatalog,
		KindInvest,
		KindShowRealEstate,
		KindFallback,
	}, NewRouter().Order())
}

func TestRouter_Classify(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    Intent
	}{
		{"search beats real estate", "what is the best rwa investment", Intent{Kind: KindSearch, Query: "what is the best rwa investment"}},
		{"best investments is a search", "best investments", Intent{Kind: KindSearch, Query: "best investments"}},
		{"search beats history", "find my history", Intent{Kind: KindSearch, Query: "find my history"}},
		{"history", "show my transaction history", Intent{Kind: KindShowHistory}},
		{"past transactions", "Past Transactions please", Intent{Kind: KindShowHistory}},
		{"raw catalog", "subgraph data", Intent{Kind: KindShowRawCatalog}},
		{"raw catalog trimmed and case folded", "  Raw Data \n", Intent{Kind: KindShowRawCatalog}},
		{"raw phrase inside a sentence", "give me subgraph data now", Intent{Kind: KindFallback}},
		{"invest command", "invest 100 usdc in TCB-001", Intent{Kind: KindInvest, AmountText: "100", AssetID: "TCB-001"}},
		{"invest decimal amount", "Invest 2.5 USDC", Intent{Kind: KindInvest, AmountText: "2.5", AssetID: DefaultAssetID}},
		{"invest default amount", "invest usdc in tcb", Intent{Kind: KindInvest, AmountText: DefaultAmount, AssetID: DefaultAssetID}},
		{"asset id lowercased in message", "invest 20 usdc in pcr-007", Intent{Kind: KindInvest, AmountText: "20", AssetID: "PCR-007"}},
		{"invest command suppresses search", "invest 50 dai, what is the best?", Intent{Kind: KindInvest, AmountText: "50", AssetID: DefaultAssetID}},
		{"invest without token", "invest in something", Intent{Kind: KindFallback}},
		{"invest verb needs a word boundary before", "reinvest 50 usdc", Intent{Kind: KindFallback}},
		{"invest verb needs a word boundary after", "invest100usdc", Intent{Kind: KindFallback}},
		{"invest verb inflections count", "investing 30 dai in PCR-007", Intent{Kind: KindInvest, AmountText: "30", AssetID: "PCR-007"}},
		{"real estate", "show real estate listings", Intent{Kind: KindShowRealEstate}},
		{"investment noun", "rental investment ideas", Intent{Kind: KindShowRealEstate}},
		{"empty", "", Intent{Kind: KindFallback}},
		{"unrelated", "hello there", Intent{Kind: KindFallback}},
	}

	r := NewRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Classify(tt.message, Context{}))
		})
	}
}

func TestRouter_ContextDoesNotChangeClassification(t *testing.T) {
	r := NewRouter()
	chain := 137
	from := "0xabc"

	msg := "invest 10 usdc"
	assert.Equal(t, r.Classify(msg, Context{}), r.Classify(msg, Context{ChainID: &chain, FromAddress: &from}))
}

func TestRouter_ClassifyWithout(t *testing.T) {
	r := NewRouter()

	// a failed search falls through to the remaining rules
	assert.Equal(t, KindShowRealEstate, r.ClassifyWithout("what is rwa", Context{}, KindSearch).Kind)
	assert.Equal(t, KindShowHistory, r.ClassifyWithout("find my history", Context{}, KindSearch).Kind)
	assert.Equal(t, KindFallback, r.ClassifyWithout("explain yourself", Context{}, KindSearch).Kind)

	// skipping nothing is Classify
	assert.Equal(t, r.Classify("best yields", Context{}), r.ClassifyWithout("best yields", Context{}))
}

func TestExtractAmount(t *testing.T) {
	assert.Equal(t, "100", ExtractAmount("invest 100 usdc"))
	assert.Equal(t, "0.75", ExtractAmount("put 0.75 USDC and then 3 more"))
	assert.Equal(t, DefaultAmount, ExtractAmount("invest usdc"))
}

func TestExtractAssetID(t *testing.T) {
	assert.Equal(t, "RWA-003", ExtractAssetID("buy rwa-003 now"))
	assert.Equal(t, DefaultAssetID, ExtractAssetID("invest 100 usdc"))
}
