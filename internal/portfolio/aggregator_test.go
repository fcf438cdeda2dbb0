package portfolio

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"yieldhunter/internal/models"
	"yieldhunter/internal/opportunity"
	memoryrepository "yieldhunter/internal/repository/memory"
)

type erroringRepo struct {
	*memoryrepository.Store
}

func (erroringRepo) ListActivePositions(context.Context, string) ([]models.Position, error) {
	return nil, errors.New("db down")
}

func newOpportunityStore(t *testing.T) *opportunity.Store {
	t.Helper()
	s := opportunity.NewStore(opportunity.StaticSource(opportunity.DefaultSeed(time.Now().UTC())), nil)
	if _, err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	return s
}

func addPosition(t *testing.T, repo *memoryrepository.Store, userID string, oppID uint64, amount string) *models.Position {
	t.Helper()
	p := &models.Position{
		UserID:        userID,
		OpportunityID: oppID,
		Amount:        decimal.RequireFromString(amount),
		Token:         "USDC",
		DepositDate:   time.Now().UTC(),
		Active:        true,
	}
	if err := repo.InsertPosition(context.Background(), p); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return p
}

func TestSummarizeEmpty(t *testing.T) {
	a := &Aggregator{Repo: memoryrepository.New(), Opportunities: newOpportunityStore(t)}
	for _, r := range []string{Range1D, Range1W, Range1M, Range1Y, "weird"} {
		got := a.Summarize(context.Background(), "nobody", r)
		if !got.TotalValue.IsZero() || got.ChangePercentage != 0 || len(got.Positions) != 0 || got.Positions == nil {
			t.Fatalf("%s: unexpected summary %+v", r, got)
		}
		if len(got.ChartData) != len(DefaultChart) {
			t.Fatalf("%s: expected default chart, got %v", r, got.ChartData)
		}
	}
}

func TestSummarizeDegradesOnRepoError(t *testing.T) {
	a := &Aggregator{Repo: erroringRepo{memoryrepository.New()}}
	got := a.Summarize(context.Background(), "u1", Range1M)
	if !got.TotalValue.IsZero() || len(got.Positions) != 0 {
		t.Fatalf("expected degraded summary, got %+v", got)
	}
	counts := a.SummaryCounts(context.Background(), "u1")
	if counts.ActivePositions != 0 || counts.Protocols == nil {
		t.Fatalf("expected empty counts, got %+v", counts)
	}
}

func TestSummarizeTotalsActiveOnly(t *testing.T) {
	repo := memoryrepository.New()
	addPosition(t, repo, "u1", 1, "100.50")
	addPosition(t, repo, "u1", 2, "20")
	gone := addPosition(t, repo, "u1", 3, "999")
	_ = repo.DeactivatePosition(context.Background(), gone.ID)
	addPosition(t, repo, "u2", 1, "5")

	a := &Aggregator{Repo: repo, Opportunities: newOpportunityStore(t), Valuation: NewRandomValuation(rand.NewPCG(1, 2))}
	got := a.Summarize(context.Background(), "u1", Range1W)
	if !got.TotalValue.Equal(decimal.RequireFromString("120.5")) {
		t.Fatalf("expected 120.5, got %s", got.TotalValue)
	}
	if len(got.Positions) != 2 || got.Positions[0].Name != "SOL-USDC LP" || got.Positions[1].Protocol != "Marinade" {
		t.Fatalf("unexpected positions %+v", got.Positions)
	}
	if len(got.ChartData) != 7 {
		t.Fatalf("expected 7 points, got %d", len(got.ChartData))
	}
}

func TestSummarizeUnknownOpportunity(t *testing.T) {
	repo := memoryrepository.New()
	addPosition(t, repo, "u1", 42, "10")
	addPosition(t, repo, "u1", 1, "10")
	a := &Aggregator{Repo: repo, Opportunities: newOpportunityStore(t)}

	got := a.Summarize(context.Background(), "u1", Range1D)
	p := got.Positions[0]
	if p.Name != "Unknown Opportunity" || p.Protocol != "Unknown" || !p.APY.IsZero() {
		t.Fatalf("expected sentinel values, got %+v", p)
	}

	counts := a.SummaryCounts(context.Background(), "u1")
	if counts.ActivePositions != 2 || counts.ProtocolCount != 1 || counts.Protocols[0] != "Raydium" {
		t.Fatalf("unexpected counts %+v", counts)
	}
}

func TestRandomValuationBounds(t *testing.T) {
	v := NewRandomValuation(rand.NewPCG(7, 11))
	for _, r := range []string{Range1D, Range1W, Range1M, Range1Y, ""} {
		for i := 0; i < 200; i++ {
			val, err := v.Valuation(context.Background(), "u", r)
			if err != nil {
				t.Fatalf("valuation: %v", err)
			}
			if len(val.Chart) != Points(r) {
				t.Fatalf("%s: expected %d points, got %d", r, Points(r), len(val.Chart))
			}
			for _, p := range val.Chart {
				if p < chartBase || p > chartMax {
					t.Fatalf("%s: point %v out of bounds", r, p)
				}
			}
			if val.Chart[len(val.Chart)-1] < val.Chart[0] {
				t.Fatalf("%s: last point below first: %v", r, val.Chart)
			}
			lo, hi := ChangeBounds(r)
			if val.ChangePercentage < lo || val.ChangePercentage > hi {
				t.Fatalf("%s: change %v outside [%v,%v]", r, val.ChangePercentage, lo, hi)
			}
		}
	}
}

func TestPoints(t *testing.T) {
	cases := map[string]int{Range1D: 24, Range1W: 7, Range1M: 30, Range1Y: 12, "5Y": 24}
	for r, want := range cases {
		if got := Points(r); got != want {
			t.Fatalf("%s: got %d want %d", r, got, want)
		}
	}
}

func TestSnapshotValuationFallsBack(t *testing.T) {
	repo := memoryrepository.New()
	fallback := NewRandomValuation(rand.NewPCG(3, 4))
	v := &SnapshotValuation{Repo: repo, Fallback: fallback}
	val, err := v.Valuation(context.Background(), "u1", Range1M)
	if err != nil {
		t.Fatalf("valuation: %v", err)
	}
	if len(val.Chart) != 30 {
		t.Fatalf("expected fallback chart of 30, got %d", len(val.Chart))
	}
}

func TestSnapshotValuationWithoutFallbackKeepsChartLength(t *testing.T) {
	repo := memoryrepository.New()
	_ = repo.InsertPortfolioSnapshot(context.Background(), &models.PortfolioSnapshot{
		UserID: "u1", SnapshotAt: time.Now().UTC().Add(-time.Hour), TotalValue: decimal.NewFromInt(50),
	})
	v := &SnapshotValuation{Repo: repo}
	for _, r := range []string{Range1D, Range1W, Range1M, Range1Y} {
		val, err := v.Valuation(context.Background(), "u1", r)
		if err != nil {
			t.Fatalf("%s: %v", r, err)
		}
		if len(val.Chart) != Points(r) {
			t.Fatalf("%s: expected %d points, got %d", r, Points(r), len(val.Chart))
		}
	}
}

func TestSnapshotValuationFromRecords(t *testing.T) {
	repo := memoryrepository.New()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()
	for i, total := range []string{"100", "105", "110"} {
		_ = repo.InsertPortfolioSnapshot(ctx, &models.PortfolioSnapshot{
			UserID:     "u1",
			SnapshotAt: now.Add(time.Duration(i-3) * time.Hour),
			TotalValue: decimal.RequireFromString(total),
		})
	}
	v := &SnapshotValuation{Repo: repo, Now: func() time.Time { return now }}
	val, err := v.Valuation(ctx, "u1", Range1D)
	if err != nil {
		t.Fatalf("valuation: %v", err)
	}
	if len(val.Chart) != 24 || val.Chart[0] != 100 || val.Chart[23] != 110 {
		t.Fatalf("unexpected chart %v", val.Chart)
	}
	if val.ChangePercentage != 10 {
		t.Fatalf("expected 10%% change, got %v", val.ChangePercentage)
	}
}

func TestRecordSnapshots(t *testing.T) {
	repo := memoryrepository.New()
	addPosition(t, repo, "u1", 1, "10")
	addPosition(t, repo, "u1", 2, "15")
	addPosition(t, repo, "u2", 1, "1")
	a := &Aggregator{Repo: repo}
	at := time.Now().UTC()
	n, err := a.RecordSnapshots(context.Background(), at)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 snapshots, got %d err=%v", n, err)
	}
	snaps, _ := repo.ListPortfolioSnapshots(context.Background(), "u1", time.Time{})
	if len(snaps) != 1 || !snaps[0].TotalValue.Equal(decimal.NewFromInt(25)) || snaps[0].TotalPositions != 2 {
		t.Fatalf("unexpected snapshot %+v", snaps)
	}
}
