package portfolio

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"yieldhunter/internal/models"
	"yieldhunter/internal/repository"
)

const (
	unknownOpportunityName = "Unknown Opportunity"
	unknownProtocol        = "Unknown"
)

// OpportunityLookup resolves opportunities by id.
type OpportunityLookup interface {
	Get(id uint64) (models.YieldOpportunity, bool)
}

type PositionView struct {
	models.Position
	Name     string          `json:"name"`
	Protocol string          `json:"protocol"`
	APY      decimal.Decimal `json:"apy"`
}

type Summary struct {
	TotalValue       decimal.Decimal `json:"totalValue"`
	ChangePercentage float64         `json:"changePercentage"`
	ChartData        []float64       `json:"chartData"`
	Positions        []PositionView  `json:"positions"`
}

type Counts struct {
	ActivePositions int      `json:"activePositions"`
	ProtocolCount   int      `json:"protocolCount"`
	Protocols       []string `json:"protocols"`
}

type Aggregator struct {
	Repo          repository.Repository
	Opportunities OpportunityLookup
	Valuation     ValuationProvider
	Logger        *zap.Logger
}

func emptySummary() Summary {
	return Summary{
		TotalValue:       decimal.Zero,
		ChangePercentage: 0,
		ChartData:        append([]float64(nil), DefaultChart...),
		Positions:        []PositionView{},
	}
}

// Summarize folds the user's active positions. It never fails: storage and
// valuation errors are logged and produce a degraded summary.
func (a *Aggregator) Summarize(ctx context.Context, userID string, timeRange string) Summary {
	if a == nil || a.Repo == nil {
		return emptySummary()
	}
	positions, err := a.Repo.ListActivePositions(ctx, userID)
	if err != nil {
		a.warn("list active positions failed", userID, err)
		return emptySummary()
	}
	if len(positions) == 0 {
		return emptySummary()
	}

	out := Summary{TotalValue: decimal.Zero, Positions: make([]PositionView, 0, len(positions))}
	for _, p := range positions {
		out.TotalValue = out.TotalValue.Add(p.Amount)
		out.Positions = append(out.Positions, a.enrich(p))
	}

	val, err := a.valuation(ctx, userID, timeRange)
	if err != nil {
		a.warn("portfolio valuation failed", userID, err)
		val, _ = NewRandomValuation(nil).Valuation(ctx, userID, timeRange)
	}
	out.ChartData = val.Chart
	out.ChangePercentage = val.ChangePercentage
	return out
}

func (a *Aggregator) valuation(ctx context.Context, userID, timeRange string) (Valuation, error) {
	if a.Valuation == nil {
		return NewRandomValuation(nil).Valuation(ctx, userID, timeRange)
	}
	return a.Valuation.Valuation(ctx, userID, timeRange)
}

func (a *Aggregator) enrich(p models.Position) PositionView {
	view := PositionView{Position: p, Name: unknownOpportunityName, Protocol: unknownProtocol, APY: decimal.Zero}
	if a.Opportunities == nil {
		return view
	}
	if o, ok := a.Opportunities.Get(p.OpportunityID); ok {
		view.Name = o.Name
		view.Protocol = o.Protocol
		view.APY = o.APY
	}
	return view
}

// SummaryCounts counts active positions and the distinct protocols they
// reach. Positions whose opportunity is gone add no protocol.
func (a *Aggregator) SummaryCounts(ctx context.Context, userID string) Counts {
	out := Counts{Protocols: []string{}}
	if a == nil || a.Repo == nil {
		return out
	}
	positions, err := a.Repo.ListActivePositions(ctx, userID)
	if err != nil {
		a.warn("list active positions failed", userID, err)
		return out
	}
	out.ActivePositions = len(positions)
	seen := map[string]struct{}{}
	for _, p := range positions {
		if a.Opportunities == nil {
			break
		}
		o, ok := a.Opportunities.Get(p.OpportunityID)
		if !ok {
			continue
		}
		if _, dup := seen[o.Protocol]; dup {
			continue
		}
		seen[o.Protocol] = struct{}{}
		out.Protocols = append(out.Protocols, o.Protocol)
	}
	out.ProtocolCount = len(out.Protocols)
	return out
}

// RecordSnapshots stores the current total of every user with active
// positions. It returns the number of snapshots written.
func (a *Aggregator) RecordSnapshots(ctx context.Context, at time.Time) (int, error) {
	if a == nil || a.Repo == nil {
		return 0, nil
	}
	users, err := a.Repo.ListUserIDsWithActivePositions(ctx)
	if err != nil {
		return 0, err
	}
	written := 0
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		positions, err := a.Repo.ListActivePositions(ctx, userID)
		if err != nil {
			a.warn("snapshot positions failed", userID, err)
			continue
		}
		total := decimal.Zero
		for _, p := range positions {
			total = total.Add(p.Amount)
		}
		snap := &models.PortfolioSnapshot{
			UserID:         userID,
			SnapshotAt:     at,
			TotalPositions: len(positions),
			TotalValue:     total,
		}
		if err := a.Repo.InsertPortfolioSnapshot(ctx, snap); err != nil {
			a.warn("insert snapshot failed", userID, err)
			continue
		}
		written++
	}
	return written, nil
}

func (a *Aggregator) warn(msg, userID string, err error) {
	if a.Logger == nil {
		return
	}
	a.Logger.Warn(msg, zap.String("user_id", userID), zap.Error(err))
}
