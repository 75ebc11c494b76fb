// Package recommendation ranks catalog options against a free-text investor prompt.
package recommendation

import (
	"sort"
	"strings"

	"github.com/rwagpt/agent/internal/modules/catalog"
)

// MaxResults is the length of the shortlist returned by Recommend
const MaxResults = 3

// FallbackKeys are returned, in this order, when nothing in the prompt matches
var FallbackKeys = []string{"treasury_bills", "real_estate", "private_credit"}

// Signal word families. Substring matching on the lowercased prompt.
var (
	conservativeSignals = []string{"safe", "low risk", "conservative", "stable"}
	aggressiveSignals   = []string{"high yield", "aggressive", "high return"}
	balancedSignals     = []string{"moderate", "balanced", "medium risk"}
	yieldSignals        = []string{"high yield", "good return", "profitable"}
	liquiditySignals    = []string{"liquid", "quick access", "flexible"}
	smallTicketSignals  = []string{"small", "little", "minimal"}
	largeTicketSignals  = []string{"large", "big", "substantial"}
	shortTermSignals    = []string{"short term", "quick", "temporary"}
	longTermSignals     = []string{"long term", "permanent", "hold"}
)

// Score weights
const (
	keywordWeight      = 2
	riskMatchWeight    = 3
	balancedWeight     = 2
	yieldWeight        = 2
	liquidityWeight    = 2
	ticketSizeWeight   = 1
	durationWeight     = 1
	highYieldThreshold = 7.0
)

// ScoredRecommendation is a catalog option annotated with why it was picked.
// Fallback entries carry no score and no matched keywords.
type ScoredRecommendation struct {
	catalog.InvestmentOption
	RelevanceScore  int      `json:"relevance_score,omitempty"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
	Fallback        bool     `json:"-"`
}

// Scorer scores catalog options against prompts
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Recommend returns up to MaxResults options ordered by relevance.
// Ties keep catalog order. When no option scores above zero the fixed fallback
// triple is returned instead.
func (s *Scorer) Recommend(query string, options []catalog.InvestmentOption) []ScoredRecommendation {
	scored := s.Rank(query, options)
	if len(scored) == 0 {
		return fallback(options)
	}
	if len(scored) > MaxResults {
		scored = scored[:MaxResults]
	}
	return scored
}

// Rank returns every option with a positive score, best first, without the fallback
func (s *Scorer) Rank(query string, options []catalog.InvestmentOption) []ScoredRecommendation {
	q := strings.ToLower(query)

	results := make([]ScoredRecommendation, 0, len(options))
	for _, opt := range options {
		score, matched := scoreOption(q, opt)
		if score > 0 {
			results = append(results, ScoredRecommendation{
				InvestmentOption: opt,
				RelevanceScore:   score,
				MatchedKeywords:  matched,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
	return results
}

// scoreOption scores one option against an already lowercased prompt.
// Only keyword-table hits are reported as matched; preference bonuses count toward the score only.
func scoreOption(q string, opt catalog.InvestmentOption) (int, []string) {
	score := 0
	var matched []string

	for _, kw := range opt.Keywords {
		if strings.Contains(q, kw) {
			score += keywordWeight
			matched = append(matched, kw)
		}
	}

	// Risk preference: the first signal family present decides, the rest are not consulted
	switch {
	case containsAny(q, conservativeSignals):
		if opt.RiskLevel == catalog.RiskLow {
			score += riskMatchWeight
		}
	case containsAny(q, aggressiveSignals):
		if opt.RiskLevel == catalog.RiskMediumHigh || opt.RiskLevel == catalog.RiskHigh {
			score += riskMatchWeight
		}
	case containsAny(q, balancedSignals):
		if opt.RiskLevel == catalog.RiskMedium {
			score += balancedWeight
		}
	}

	if containsAny(q, yieldSignals) && opt.YieldAPY > highYieldThreshold {
		score += yieldWeight
	}

	if containsAny(q, liquiditySignals) && opt.Liquidity == catalog.LiquidityHigh {
		score += liquidityWeight
	}

	switch {
	case containsAny(q, smallTicketSignals):
		if opt.MinInvestment == "50 USDC" || opt.MinInvestment == "100 USDC" {
			score += ticketSizeWeight
		}
	case containsAny(q, largeTicketSignals):
		if strings.Contains(opt.MinInvestment, "5000") || strings.Contains(opt.MinInvestment, "2500") {
			score += ticketSizeWeight
		}
	}

	switch {
	case containsAny(q, shortTermSignals):
		if strings.Contains(opt.Duration, "3-6 months") || strings.Contains(opt.Duration, "6-12 months") {
			score += durationWeight
		}
	case containsAny(q, longTermSignals):
		if strings.Contains(opt.Duration, "Long-term") || strings.Contains(opt.Duration, "18-36 months") {
			score += durationWeight
		}
	}

	return score, matched
}

// fallback picks the fixed triple out of options by catalog key.
// Keys missing from a custom catalog are skipped.
func fallback(options []catalog.InvestmentOption) []ScoredRecommendation {
	out := make([]ScoredRecommendation, 0, len(FallbackKeys))
	for _, key := range FallbackKeys {
		for _, opt := range options {
			if opt.Key == key {
				out = append(out, ScoredRecommendation{InvestmentOption: opt, Fallback: true})
				break
			}
		}
	}
	return out
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
