package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rwagpt/agent/internal/clients/subgraph"
	"github.com/rwagpt/agent/internal/modules/catalog"
	"github.com/rwagpt/agent/internal/modules/intent"
	"github.com/rwagpt/agent/internal/modules/ledger"
	"github.com/rwagpt/agent/internal/modules/payments"
	"github.com/rwagpt/agent/internal/modules/recommendation"
	"github.com/rwagpt/agent/internal/modules/swap"
)

const displayTime = "2006-01-02 15:04:05"

// curatedEntry is the public shape of a catalog option in catalog dumps
type curatedEntry struct {
	AssetID       string  `json:"asset_id"`
	AssetType     string  `json:"asset_type"`
	Protocol      string  `json:"protocol"`
	YieldAPY      float64 `json:"yield_apy"`
	MinInvestment string  `json:"min_investment"`
	Status        string  `json:"status"`
}

func curatedEntries(opts []catalog.InvestmentOption) []curatedEntry {
	out := make([]curatedEntry, len(opts))
	for i, o := range opts {
		out[i] = curatedEntry{
			AssetID:       o.AssetID,
			AssetType:     o.AssetType,
			Protocol:      o.Protocol,
			YieldAPY:      o.YieldAPY,
			MinInvestment: o.MinInvestment,
			Status:        "Active",
		}
	}
	return out
}

func indentJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode catalog: %w", err)
	}
	return string(b), nil
}

func renderCatalog(entries []curatedEntry) (string, error) {
	body, err := indentJSON(entries)
	if err != nil {
		return "", err
	}
	return "Available RWA Investment Options:\n" + body + "\n\nTo invest, try: 'invest 100 USDC in TCB-001'", nil
}

func renderNoIndexed(entries []curatedEntry) (string, error) {
	body, err := indentJSON(entries)
	if err != nil {
		return "", err
	}
	return "No indexed investments yet. Here are curated options you can try now:\n" + body, nil
}

func renderIndexed(investments []subgraph.Investment) (string, error) {
	body, err := indentJSON(investments)
	if err != nil {
		return "", err
	}
	return "Raw investment data from subgraph:\n" + body, nil
}

func renderHistory(records []ledger.Record) string {
	var b strings.Builder
	b.WriteString("📋 **Your Transaction History**\n\n")

	if len(records) == 0 {
		b.WriteString("No transactions found yet.\n\n")
		b.WriteString("💡 Try making an investment first:\n")
		b.WriteString("• 'invest 100 USDC in RE-001'\n")
		b.WriteString("• 'invest 50 USDC in RE-002'")
		return b.String()
	}

	fmt.Fprintf(&b, "Found %d transaction(s)\n\n", len(records))
	for i, rec := range records {
		fmt.Fprintf(&b, "🔹 **Transaction #%d**\n", i+1)
		fmt.Fprintf(&b, "   💰 Amount: %s USDC\n", rec.Amount)
		fmt.Fprintf(&b, "   🏠 Asset: %s\n", rec.AssetID)
		fmt.Fprintf(&b, "   📅 Time: %s\n", rec.Timestamp.Format(displayTime))
		fmt.Fprintf(&b, "   🔗 Chain: %s (ID: %d)\n", chainName(rec.ChainID), rec.ChainID)
		fmt.Fprintf(&b, "   📊 Status: %s %s\n", statusEmoji(rec.Status), capitalize(string(rec.Status)))
		if rec.HasHash() {
			fmt.Fprintf(&b, "   🔗 TX Hash: %s\n", *rec.TxHash)
		}
		if rec.ConfirmedAt != nil {
			fmt.Fprintf(&b, "   ✅ Confirmed: %s\n", rec.ConfirmedAt.Format(displayTime))
		}
		if rec.HasPaymentID() {
			fmt.Fprintf(&b, "   🤖 x402 ID: %s\n", *rec.X402PaymentID)
		}
		b.WriteString("\n")
	}

	b.WriteString("💡 **Commands:**\n")
	b.WriteString("• 'invest 100 USDC in RE-001' - Make new investment\n")
	b.WriteString("• 'show real estate investments' - View available options\n")
	b.WriteString("• 'transaction history' - View this list again\n")
	return b.String()
}

// renderInvestment describes a prepared investment. option is the catalog entry
// of the requested asset, or nil when the asset is not listed.
func renderInvestment(in intent.Intent, option *catalog.InvestmentOption, tokens swap.ChainTokens, quote swap.Result, payment payments.Result) string {
	var b strings.Builder
	if quote.Executable() {
		fmt.Fprintf(&b, "%s swap data for %s %s:", quote.Aggregator, in.AmountText, tokens.Src.Symbol)
	} else {
		fmt.Fprintf(&b, "No live swap route was found for %s %s on %s. ", in.AmountText, tokens.Src.Symbol, tokens.Name)
		b.WriteString("Returning a no-op transaction to your own address so the flow can be tested.")
	}
	fmt.Fprintf(&b, "\nAsset: %s", in.AssetID)
	if option != nil {
		fmt.Fprintf(&b, " (%s by %s, APY %s, risk %s, min %s)",
			option.AssetType, option.Protocol, option.APYString(), option.RiskLevel, option.MinInvestment)
	} else {
		b.WriteString(" (not in the curated catalog)")
	}

	if payment.Processed() {
		b.WriteString("\n\n🤖 x402 Agentic Payment Available:\n")
		b.WriteString(payment.AgentResponse)
		fmt.Fprintf(&b, "\n💡 Payment ID: %s", payment.PaymentID)
	}
	return b.String()
}

func renderRecommendations(recs []recommendation.ScoredRecommendation) string {
	var b strings.Builder
	b.WriteString("🎯 **Recommended RWA investments for you**\n\n")
	for i, r := range recs {
		fmt.Fprintf(&b, "#%d %s (%s) by %s\n", i+1, r.AssetType, r.AssetID, r.Protocol)
		fmt.Fprintf(&b, "   💰 APY: %s | Risk: %s | Liquidity: %s\n", r.APYString(), r.RiskLevel, r.Liquidity)
		fmt.Fprintf(&b, "   🔵 Min Investment: %s | Duration: %s\n", r.MinInvestment, r.Duration)
		if len(r.MatchedKeywords) > 0 {
			fmt.Fprintf(&b, "   🔎 Matched: %s\n", strings.Join(r.MatchedKeywords, ", "))
		}
		fmt.Fprintf(&b, "   ⚡ To invest: 'invest 100 USDC in %s'\n\n", r.AssetID)
	}
	return strings.TrimRight(b.String(), "\n")
}

func chainName(id int) string {
	if t := swap.TokensForChain(id); t.ChainID == id {
		return t.Name
	}
	return "Chain"
}

func statusEmoji(s ledger.Status) string {
	switch s {
	case ledger.StatusConfirmed:
		return "✅"
	case ledger.StatusPending:
		return "⏳"
	}
	return "❌"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
