package risk

import (
	"strings"

	"yieldhunter/internal/models"
)

const (
	TierConservative         = "conservative"
	TierModerateConservative = "moderate-conservative"
	TierModerate             = "moderate"
	TierModerateAggressive   = "moderate-aggressive"
	TierAggressive           = "aggressive"
)

// Tiers lists the tolerance tiers from least to most aggressive.
var Tiers = []string{
	TierConservative,
	TierModerateConservative,
	TierModerate,
	TierModerateAggressive,
	TierAggressive,
}

type tierRule struct {
	// maxLevel is the highest Level admitted; -1 admits everything,
	// unknown risk strings included.
	maxLevel int
	sortAPY  bool
}

var tierRules = map[string]tierRule{
	TierConservative:         {maxLevel: 0},
	TierModerateConservative: {maxLevel: 1},
	TierModerate:             {maxLevel: 2},
	TierModerateAggressive:   {maxLevel: -1},
	TierAggressive:           {maxLevel: -1, sortAPY: true},
}

func IsTier(v string) bool {
	_, ok := tierRules[normalizeTier(v)]
	return ok
}

func normalizeTier(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// FilterByRiskTier keeps the opportunities a tier admits. Input order is kept
// except for the aggressive tier, which is re-sorted by apy. Unknown tiers use
// the moderate-conservative rule.
func FilterByRiskTier(items []models.YieldOpportunity, tier string) []models.YieldOpportunity {
	rule, ok := tierRules[normalizeTier(tier)]
	if !ok {
		rule = tierRules[TierModerateConservative]
	}
	out := make([]models.YieldOpportunity, 0, len(items))
	for _, item := range items {
		if rule.maxLevel >= 0 && Level(item.RiskLevel) > rule.maxLevel {
			continue
		}
		out = append(out, item)
	}
	if rule.sortAPY {
		return Rank(out, SortByAPY)
	}
	return out
}

// Recommend filters by tier, orders by apy and keeps the first limit items.
func Recommend(items []models.YieldOpportunity, tier string, limit int) []models.YieldOpportunity {
	if limit <= 0 {
		limit = 5
	}
	out := Rank(FilterByRiskTier(items, tier), SortByAPY)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
