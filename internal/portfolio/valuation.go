package portfolio

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"yieldhunter/internal/repository"
)

const (
	Range1D = "1D"
	Range1W = "1W"
	Range1M = "1M"
	Range1Y = "1Y"
)

const (
	chartBase = 30.0
	chartMax  = 100.0
)

// DefaultChart is shown when a user holds no active positions.
var DefaultChart = []float64{30, 40, 35, 60, 50, 70, 65, 90, 80, 100, 90, 95}

type rangeSpec struct {
	points     int
	volatility float64
	window     time.Duration
	changeLow  float64
	changeHigh float64
}

var ranges = map[string]rangeSpec{
	Range1D: {points: 24, volatility: 5, window: 24 * time.Hour, changeLow: -0.5, changeHigh: 1.5},
	Range1W: {points: 7, volatility: 10, window: 7 * 24 * time.Hour, changeLow: 1, changeHigh: 6},
	Range1M: {points: 30, volatility: 15, window: 30 * 24 * time.Hour, changeLow: 3, changeHigh: 11},
	Range1Y: {points: 12, volatility: 25, window: 365 * 24 * time.Hour, changeLow: 5, changeHigh: 35},
}

var defaultRange = rangeSpec{points: 24, volatility: 15, window: 24 * time.Hour, changeLow: 2, changeHigh: 7}

func specFor(timeRange string) rangeSpec {
	if r, ok := ranges[timeRange]; ok {
		return r
	}
	return defaultRange
}

// Points is the chart length for a time range.
func Points(timeRange string) int {
	return specFor(timeRange).points
}

// ChangeBounds is the closed interval RandomValuation draws the change
// percentage from.
func ChangeBounds(timeRange string) (float64, float64) {
	r := specFor(timeRange)
	return r.changeLow, r.changeHigh
}

type Valuation struct {
	Chart            []float64
	ChangePercentage float64
}

// ValuationProvider supplies historical performance for a user's portfolio.
type ValuationProvider interface {
	Valuation(ctx context.Context, userID string, timeRange string) (Valuation, error)
}

// RandomValuation produces a bounded random walk with an upward bias. It
// stands in until enough snapshots exist.
type RandomValuation struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomValuation uses src when given, the global generator otherwise.
func NewRandomValuation(src rand.Source) *RandomValuation {
	v := &RandomValuation{}
	if src != nil {
		v.rnd = rand.New(src)
	}
	return v
}

func (v *RandomValuation) float() float64 {
	if v == nil || v.rnd == nil {
		return rand.Float64()
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rnd.Float64()
}

func (v *RandomValuation) Valuation(_ context.Context, _ string, timeRange string) (Valuation, error) {
	r := specFor(timeRange)
	chart := make([]float64, r.points)
	cur := chartBase
	for i := range chart {
		step := (v.float() - 0.3) * r.volatility
		cur = math.Max(chartBase, math.Min(chartMax, cur+step))
		chart[i] = math.Round(cur)
	}
	if last := len(chart) - 1; last > 0 && chart[last] < chart[0] {
		chart[last] = math.Min(chartMax, math.Round(chart[0]*1.1))
	}
	change := r.changeLow + v.float()*(r.changeHigh-r.changeLow)
	return Valuation{Chart: chart, ChangePercentage: round1(change)}, nil
}

// SnapshotValuation derives performance from recorded portfolio snapshots and
// defers to Fallback, or a RandomValuation when unset, when the window holds
// fewer than two.
type SnapshotValuation struct {
	Repo     repository.Repository
	Fallback ValuationProvider
	Now      func() time.Time
}

func (v *SnapshotValuation) Valuation(ctx context.Context, userID string, timeRange string) (Valuation, error) {
	r := specFor(timeRange)
	now := time.Now().UTC()
	if v.Now != nil {
		now = v.Now()
	}
	var values []float64
	if v.Repo != nil {
		snaps, err := v.Repo.ListPortfolioSnapshots(ctx, userID, now.Add(-r.window))
		if err != nil {
			return Valuation{}, err
		}
		values = make([]float64, 0, len(snaps))
		for _, s := range snaps {
			f, _ := s.TotalValue.Float64()
			values = append(values, f)
		}
	}
	if len(values) < 2 {
		if v.Fallback == nil {
			return NewRandomValuation(nil).Valuation(ctx, userID, timeRange)
		}
		return v.Fallback.Valuation(ctx, userID, timeRange)
	}
	chart := resample(values, r.points)
	change := 0.0
	if first := values[0]; first != 0 {
		change = round1((values[len(values)-1] - first) / first * 100)
	}
	return Valuation{Chart: chart, ChangePercentage: change}, nil
}

// resample picks n evenly spaced values, first and last included.
func resample(values []float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = values[len(values)-1]
		return out
	}
	for i := 0; i < n; i++ {
		idx := int(math.Round(float64(i) * float64(len(values)-1) / float64(n-1)))
		out[i] = round2(values[idx])
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
