// Package intent classifies inbound chat messages into agent actions.
package intent

import (
	"regexp"
	"strings"
)

// Kind identifies what the agent should do with a message
type Kind string

// Intent kinds
const (
	KindSearch         Kind = "search"
	KindShowHistory    Kind = "show_history"
	KindShowRawCatalog Kind = "show_raw_catalog"
	KindInvest         Kind = "invest"
	KindShowRealEstate Kind = "show_real_estate"
	KindFallback       Kind = "fallback"
)

// Defaults used when an investment command omits details
const (
	DefaultAmount  = "100"
	DefaultAssetID = "RE-001"
)

// Context carries the optional wallet context sent with a message
type Context struct {
	ChainID     *int
	FromAddress *string
}

// Intent is the classification result.
// AmountText and AssetID are set for KindInvest; Query is set for KindSearch.
type Intent struct {
	Kind       Kind   `json:"kind"`
	AmountText string `json:"amount,omitempty"`
	AssetID    string `json:"asset_id,omitempty"`
	Query      string `json:"query,omitempty"`
}

// Keyword sets
var (
	SearchKeywords     = []string{"search", "what is", "who is", "explain", "best", "top", "latest", "find", "tell me about", "compare", "how to"}
	HistoryKeywords    = []string{"transaction history", "my transactions", "transaction list", "history", "past transactions"}
	RawCatalogPhrases  = []string{"subgraph data", "raw data"}
	SettlementTokens   = []string{"usdc", "dai", "tcb", "pcr", "rwa"}
	RealEstateKeywords = []string{"real estate", "property", "rental", "realt", "rwa", "investment"}
)

var (
	amountPattern  = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
	investVerb     = regexp.MustCompile(`\binvest(?:s|ed|ing)?\b`)
	assetIDPattern = regexp.MustCompile(`\b([A-Za-z]{2,5}-\d{3})\b`)
)

// message is a normalized view of the inbound text shared by all rules
type message struct {
	original string
	lower    string
}

// rule pairs a predicate with the intent it produces.
// Rules are evaluated in order and the first match wins, so the order is load-bearing:
// the keyword sets overlap.
type rule struct {
	Kind  Kind
	Match func(m message) bool
	Build func(m message) Intent
}

// rules is the ordered classification table
var rules = []rule{
	{
		Kind: KindSearch,
		Match: func(m message) bool {
			return containsAny(m.lower, SearchKeywords) && !isDirectInvestment(m.lower)
		},
		Build: func(m message) Intent {
			return Intent{Kind: KindSearch, Query: m.original}
		},
	},
	{
		Kind: KindShowHistory,
		Match: func(m message) bool {
			return containsAny(m.lower, HistoryKeywords)
		},
	},
	{
		Kind: KindShowRawCatalog,
		Match: func(m message) bool {
			trimmed := strings.TrimSpace(m.lower)
			for _, p := range RawCatalogPhrases {
				if trimmed == p {
					return true
				}
			}
			return false
		},
	},
	{
		Kind: KindInvest,
		Match: func(m message) bool {
			return isDirectInvestment(m.lower)
		},
		Build: func(m message) Intent {
			return Intent{
				Kind:       KindInvest,
				AmountText: ExtractAmount(m.original),
				AssetID:    ExtractAssetID(m.original),
			}
		},
	},
	{
		Kind: KindShowRealEstate,
		Match: func(m message) bool {
			return containsAny(m.lower, RealEstateKeywords)
		},
	},
}

// Router applies the rule table
type Router struct {
	rules []rule
}

// NewRouter creates a router over the default rule table
func NewRouter() *Router {
	return &Router{rules: rules}
}

// Order returns the rule kinds in evaluation order, Fallback last
func (r *Router) Order() []Kind {
	out := make([]Kind, 0, len(r.rules)+1)
	for _, rl := range r.rules {
		out = append(out, rl.Kind)
	}
	return append(out, KindFallback)
}

// Classify returns the intent of the first matching rule, or Fallback.
// Every input, including the empty string, has a classification. The wallet
// context does not influence classification today; it is accepted so callers
// pass it uniformly.
func (r *Router) Classify(text string, _ Context) Intent {
	return r.classify(text, nil)
}

// ClassifyWithout classifies as Classify but skips rules of the given kinds.
// The agent uses it to fall through to the remaining rules when a branch fails.
func (r *Router) ClassifyWithout(text string, _ Context, skip ...Kind) Intent {
	return r.classify(text, skip)
}

func (r *Router) classify(text string, skip []Kind) Intent {
	m := message{original: text, lower: strings.ToLower(text)}

	for _, rl := range r.rules {
		if skipped(rl.Kind, skip) || !rl.Match(m) {
			continue
		}
		if rl.Build != nil {
			return rl.Build(m)
		}
		return Intent{Kind: rl.Kind}
	}
	return Intent{Kind: KindFallback}
}

// ExtractAmount returns the first decimal numeral in text, or DefaultAmount
func ExtractAmount(text string) string {
	if m := amountPattern.FindString(text); m != "" {
		return m
	}
	return DefaultAmount
}

// ExtractAssetID returns the first asset code (e.g. "TCB-001") in text, uppercased, or DefaultAssetID
func ExtractAssetID(text string) string {
	if m := assetIDPattern.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}
	return DefaultAssetID
}

// isDirectInvestment reports whether a lowercased message is an "invest <amount> <token>" command.
// The verb must stand alone: "investment" is a noun and does not make a command,
// and fused forms such as "reinvest" or "invest100usdc" are not commands either.
func isDirectInvestment(lower string) bool {
	return investVerb.MatchString(lower) && containsAny(lower, SettlementTokens)
}

func skipped(kind Kind, skip []Kind) bool {
	for _, k := range skip {
		if k == kind {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
