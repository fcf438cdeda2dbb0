package risk

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"yieldhunter/internal/config"
	"yieldhunter/internal/models"
	memoryrepository "yieldhunter/internal/repository/memory"
)

func opp(id uint64, apy string, risk string, tvl string) models.YieldOpportunity {
	return models.YieldOpportunity{
		ID:        id,
		Name:      "opp",
		Protocol:  "Raydium",
		APY:       decimal.RequireFromString(apy),
		RiskLevel: risk,
		TVL:       decimal.RequireFromString(tvl),
	}
}

func sample() []models.YieldOpportunity {
	return []models.YieldOpportunity{
		opp(1, "14.2", "Medium", "24500000"),
		opp(2, "6.8", "Low", "154200000"),
		opp(3, "4.3", "Low", "89700000"),
		opp(4, "9.7", "Medium-High", "12300000"),
		opp(5, "3.4", "Low", "201100000"),
		opp(6, "22.5", "High", "1000000"),
		opp(7, "2", "exotic", "500"),
	}
}

func ids(items []models.YieldOpportunity) []uint64 {
	out := make([]uint64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func equalIDs(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRankAPYIsNumeric(t *testing.T) {
	items := []models.YieldOpportunity{
		opp(1, "9.7", "Low", "1"),
		opp(2, "14.2", "Low", "1"),
		opp(3, "100", "Low", "1"),
	}
	got := ids(Rank(items, "apy"))
	if !equalIDs(got, []uint64{3, 2, 1}) {
		t.Fatalf("got %v", got)
	}
}

func TestRankAPYNonIncreasing(t *testing.T) {
	ranked := Rank(sample(), SortByAPY)
	for i := 1; i < len(ranked); i++ {
		if ranked[i].APY.GreaterThan(ranked[i-1].APY) {
			t.Fatalf("apy increased at %d: %s > %s", i, ranked[i].APY, ranked[i-1].APY)
		}
	}
}

func TestRankRiskOrderUnknownLastStable(t *testing.T) {
	got := ids(Rank(sample(), SortByRisk))
	want := []uint64{2, 3, 5, 1, 4, 6, 7}
	if !equalIDs(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestRankTVLDesc(t *testing.T) {
	got := ids(Rank(sample(), SortByTVL))
	want := []uint64{5, 2, 3, 1, 4, 6, 7}
	if !equalIDs(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestRankUnknownKeyKeepsOrder(t *testing.T) {
	in := sample()
	got := ids(Rank(in, "name"))
	if !equalIDs(got, ids(in)) {
		t.Fatalf("expected input order, got %v", got)
	}
}

func TestRankTiesStable(t *testing.T) {
	items := []models.YieldOpportunity{
		opp(1, "5", "Low", "1"),
		opp(2, "5", "Low", "1"),
		opp(3, "5", "Low", "1"),
	}
	if got := ids(Rank(items, SortByAPY)); !equalIDs(got, []uint64{1, 2, 3}) {
		t.Fatalf("ties reordered: %v", got)
	}
}

func TestFilterByRiskTier(t *testing.T) {
	cases := map[string][]uint64{
		TierConservative:         {2, 3, 5},
		TierModerateConservative: {1, 2, 3, 5},
		TierModerate:             {1, 2, 3, 4, 5},
		TierModerateAggressive:   {1, 2, 3, 4, 5, 6, 7},
		TierAggressive:           {6, 1, 4, 2, 3, 5, 7},
		"unheard-of":             {1, 2, 3, 5},
	}
	for tier, want := range cases {
		if got := ids(FilterByRiskTier(sample(), tier)); !equalIDs(got, want) {
			t.Fatalf("%s: got %v want %v", tier, got, want)
		}
	}
}

func TestFilterByRiskTierMonotone(t *testing.T) {
	prev := map[uint64]bool{}
	for _, tier := range Tiers {
		cur := map[uint64]bool{}
		for _, it := range FilterByRiskTier(sample(), tier) {
			cur[it.ID] = true
		}
		for id := range prev {
			if !cur[id] {
				t.Fatalf("tier %s dropped %d admitted by a narrower tier", tier, id)
			}
		}
		prev = cur
	}
}

func TestRecommendLimit(t *testing.T) {
	got := ids(Recommend(sample(), TierConservative, 2))
	if !equalIDs(got, []uint64{2, 3}) {
		t.Fatalf("got %v", got)
	}
	if n := len(Recommend(sample(), TierAggressive, 0)); n != 5 {
		t.Fatalf("expected default limit 5, got %d", n)
	}
}

func testRiskConfig() config.RiskConfig {
	return config.RiskConfig{
		Tiers: map[string]int{
			"conservative":          20,
			"moderate-conservative": 35,
			"moderate":              50,
			"moderate-aggressive":   70,
			"aggressive":            90,
		},
		DefaultTier:         "moderate-conservative",
		UnknownPercentage:   50,
		RecommendationLimit: 5,
	}
}

func TestProfileFor(t *testing.T) {
	cfg := testRiskConfig()
	if p := ProfileFor(cfg, nil); p.Level != TierModerateConservative || p.Percentage != 35 {
		t.Fatalf("unexpected default profile %+v", p)
	}
	if p := ProfileFor(cfg, &models.UserPreference{RiskTolerance: "Aggressive"}); p.Level != TierAggressive || p.Percentage != 90 {
		t.Fatalf("unexpected profile %+v", p)
	}
	if p := ProfileFor(cfg, &models.UserPreference{RiskTolerance: "yolo"}); p.Percentage != 50 {
		t.Fatalf("unexpected unknown profile %+v", p)
	}
	cfg.Tiers["conservative"] = 10
	if p := ProfileFor(cfg, &models.UserPreference{RiskTolerance: "conservative"}); p.Percentage != 10 {
		t.Fatalf("expected configured percentage, got %+v", p)
	}
}

type failingPrefRepo struct {
	*memoryrepository.Store
}

func (failingPrefRepo) GetUserPreference(context.Context, string) (*models.UserPreference, error) {
	return nil, errors.New("db down")
}

func TestManagerRecommendUsesStoredTier(t *testing.T) {
	repo := memoryrepository.New()
	ctx := context.Background()
	_ = repo.UpsertUserPreference(ctx, &models.UserPreference{UserID: "u1", RiskTolerance: TierConservative})
	m := &Manager{Config: testRiskConfig(), Repo: repo}

	got, prof := m.Recommend(ctx, "u1", sample(), 0)
	if prof.Level != TierConservative || !equalIDs(ids(got), []uint64{2, 3, 5}) {
		t.Fatalf("unexpected recommendation %v for %+v", ids(got), prof)
	}
}

func TestManagerRecommendFallsBackOnError(t *testing.T) {
	m := &Manager{Config: testRiskConfig(), Repo: failingPrefRepo{memoryrepository.New()}}
	_, prof := m.Recommend(context.Background(), "u1", sample(), 3)
	if prof.Level != TierModerateConservative {
		t.Fatalf("expected default tier, got %+v", prof)
	}
}
