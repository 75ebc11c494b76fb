// Package catalog holds the curated table of Real World Asset investment options.
package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// RiskLevel is the coarse risk band of an option
type RiskLevel string

// Risk levels
const (
	RiskLow        RiskLevel = "Low"
	RiskMedium     RiskLevel = "Medium"
	RiskMediumHigh RiskLevel = "Medium-High"
	RiskHigh       RiskLevel = "High"
)

// Valid reports whether r is one of the known risk levels
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskMediumHigh, RiskHigh:
		return true
	}
	return false
}

// Liquidity describes how quickly a position can be exited
type Liquidity string

// Liquidity bands
const (
	LiquidityLow    Liquidity = "Low"
	LiquidityMedium Liquidity = "Medium"
	LiquidityHigh   Liquidity = "High"
)

// Valid reports whether l is one of the known liquidity bands
func (l Liquidity) Valid() bool {
	switch l {
	case LiquidityLow, LiquidityMedium, LiquidityHigh:
		return true
	}
	return false
}

// InvestmentOption is one curated catalog entry.
// Key is the catalog identifier (e.g. "treasury_bills"); AssetID is the on-chain asset code.
type InvestmentOption struct {
	Key           string    `yaml:"key" json:"-"`
	AssetID       string    `yaml:"asset_id" json:"asset_id"`
	AssetType     string    `yaml:"asset_type" json:"asset_type"`
	Protocol      string    `yaml:"protocol" json:"protocol"`
	YieldAPY      float64   `yaml:"yield_apy" json:"yield_apy"`
	MinInvestment string    `yaml:"min_investment" json:"min_investment"`
	RiskLevel     RiskLevel `yaml:"risk_level" json:"risk_level"`
	Liquidity     Liquidity `yaml:"liquidity" json:"liquidity"`
	Duration      string    `yaml:"duration" json:"duration"`
	Description   string    `yaml:"description" json:"description"`
	Keywords      []string  `yaml:"keywords" json:"keywords"`
}

// clone returns a copy that shares no slices with o
func (o InvestmentOption) clone() InvestmentOption {
	o.Keywords = append([]string(nil), o.Keywords...)
	return o
}

// APYString formats the yield the way listings display it (e.g. "4.8%")
func (o InvestmentOption) APYString() string {
	return strconv.FormatFloat(o.YieldAPY, 'f', -1, 64) + "%"
}

// normalized returns a copy whose keywords are trimmed and lowercased,
// matching the lowercased query they are compared against
func (o InvestmentOption) normalized() InvestmentOption {
	keywords := make([]string, len(o.Keywords))
	for i, kw := range o.Keywords {
		keywords[i] = strings.ToLower(strings.TrimSpace(kw))
	}
	o.Keywords = keywords
	return o
}

func (o InvestmentOption) validate() error {
	if o.Key == "" {
		return fmt.Errorf("option without key")
	}
	if o.AssetID == "" {
		return fmt.Errorf("option %s: asset_id is required", o.Key)
	}
	if !o.RiskLevel.Valid() {
		return fmt.Errorf("option %s: invalid risk_level %q", o.Key, o.RiskLevel)
	}
	if !o.Liquidity.Valid() {
		return fmt.Errorf("option %s: invalid liquidity %q", o.Key, o.Liquidity)
	}
	if o.YieldAPY < 0 {
		return fmt.Errorf("option %s: negative yield_apy", o.Key)
	}
	for i, kw := range o.Keywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("option %s: keyword %d is empty", o.Key, i)
		}
	}
	return nil
}
