// Package pricing maps model identifiers to pricing tiers and computes
// estimated costs. The table is an approximation of published per-million-token
// rates, not a reproduction of the vendor's internal billing.
package pricing

import (
	"strings"

	"github.com/felipe-tactile/token-watcher/internal/model"
)

// Tier is a pricing bucket. Every model identifier is classified into one of
// the two buckets; families without their own bucket map onto the nearer one.
type Tier string

const (
	TierOpus   Tier = "opus"
	TierSonnet Tier = "sonnet"
)

// Rates holds per-million-token prices for one tier.
type Rates struct {
	Input         float64
	Output        float64
	CacheCreation float64 // 1.25x input
	CacheRead     float64 // 0.1x input
}

var tierRates = map[Tier]Rates{
	TierOpus:   {Input: 15, Output: 75, CacheCreation: 18.75, CacheRead: 1.5},
	TierSonnet: {Input: 3, Output: 15, CacheCreation: 3.75, CacheRead: 0.3},
}

// Known model identifiers checked before the substring heuristics.
var modelTiers = map[string]Tier{
	"claude-opus-4-6":           TierOpus,
	"claude-opus-4-20250514":    TierOpus,
	"claude-sonnet-4-6":         TierSonnet,
	"claude-sonnet-4-20250514":  TierSonnet,
	"claude-haiku-4-5-20251001": TierSonnet, // haiku priced at sonnet rates for estimation
}

// ClassifyModel resolves a free-form model identifier to a tier.
// Unknown identifiers default to opus so cost is never silently under-reported.
func ClassifyModel(id string) Tier {
	if tier, ok := modelTiers[id]; ok {
		return tier
	}
	if strings.Contains(id, "opus") {
		return TierOpus
	}
	if strings.Contains(id, "sonnet") || strings.Contains(id, "haiku") {
		return TierSonnet
	}
	return TierOpus
}

// RatesFor returns the per-million-token rates for a tier.
func RatesFor(t Tier) Rates {
	return tierRates[t]
}

// Cost computes the cost breakdown for a usage vector at the given tier.
// Each component is count/1e6 * rate; the total is their exact sum.
func Cost(u model.TokenUsage, t Tier) model.CostBreakdown {
	r := tierRates[t]
	const m = 1_000_000

	b := model.CostBreakdown{
		InputCost:         float64(u.InputTokens) / m * r.Input,
		OutputCost:        float64(u.OutputTokens) / m * r.Output,
		CacheCreationCost: float64(u.CacheCreationTokens) / m * r.CacheCreation,
		CacheReadCost:     float64(u.CacheReadTokens) / m * r.CacheRead,
	}
	b.TotalCost = b.InputCost + b.OutputCost + b.CacheCreationCost + b.CacheReadCost
	return b
}
