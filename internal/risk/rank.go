package risk

import (
	"sort"
	"strings"

	"yieldhunter/internal/models"
)

const (
	SortByAPY  = "apy"
	SortByRisk = "risk"
	SortByTVL  = "tvl"
)

var riskOrder = map[string]int{
	"low":         0,
	"medium":      1,
	"medium-high": 2,
	"high":        3,
}

const unknownRiskRank = 4

// Level returns the position of a risk level in low < medium < medium-high <
// high. Unknown strings rank after high.
func Level(riskLevel string) int {
	if r, ok := riskOrder[strings.ToLower(strings.TrimSpace(riskLevel))]; ok {
		return r
	}
	return unknownRiskRank
}

// Rank returns a sorted copy. Sorting is stable; unknown keys keep input order.
func Rank(items []models.YieldOpportunity, sortKey string) []models.YieldOpportunity {
	out := make([]models.YieldOpportunity, len(items))
	copy(out, items)
	switch strings.ToLower(strings.TrimSpace(sortKey)) {
	case SortByAPY:
		sort.SliceStable(out, func(i, j int) bool { return out[i].APY.GreaterThan(out[j].APY) })
	case SortByRisk:
		sort.SliceStable(out, func(i, j int) bool { return Level(out[i].RiskLevel) < Level(out[j].RiskLevel) })
	case SortByTVL:
		sort.SliceStable(out, func(i, j int) bool { return out[i].TVL.GreaterThan(out[j].TVL) })
	}
	return out
}
