package opportunity

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"yieldhunter/internal/models"
	"yieldhunter/internal/repository"
)

// Source produces the full opportunity set on each refresh.
type Source interface {
	Load(ctx context.Context) ([]models.YieldOpportunity, error)
}

// RepositorySource reads opportunities from persistent storage.
type RepositorySource struct {
	Repo repository.Repository
}

func (s RepositorySource) Load(ctx context.Context) ([]models.YieldOpportunity, error) {
	if s.Repo == nil {
		return nil, fmt.Errorf("opportunity source: repository missing")
	}
	return s.Repo.ListYieldOpportunities(ctx)
}

// StaticSource always returns the same items.
type StaticSource []models.YieldOpportunity

func (s StaticSource) Load(context.Context) ([]models.YieldOpportunity, error) {
	return append([]models.YieldOpportunity(nil), s...), nil
}

type Stats struct {
	AvgAPY           float64 `json:"avgApy"`
	ProtocolCount    int     `json:"protocolCount"`
	OpportunityCount int     `json:"opportunityCount"`
}

type snapshot struct {
	items       []models.YieldOpportunity
	byID        map[uint64]int
	refreshedAt time.Time
}

// Store serves reads from an immutable snapshot. Refresh builds a new
// snapshot and swaps the pointer, so readers see the old or the new set whole.
type Store struct {
	Source Source
	Logger *zap.Logger

	snap atomic.Pointer[snapshot]
}

func NewStore(src Source, logger *zap.Logger) *Store {
	s := &Store{Source: src, Logger: logger}
	s.snap.Store(&snapshot{byID: map[uint64]int{}})
	return s
}

// Refresh loads the source and replaces the snapshot. Invalid rows are
// skipped. On source error the current snapshot stays in place.
func (s *Store) Refresh(ctx context.Context) (int, error) {
	if s == nil || s.Source == nil {
		return 0, nil
	}
	items, err := s.Source.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load opportunities: %w", err)
	}
	next := &snapshot{
		items:       make([]models.YieldOpportunity, 0, len(items)),
		byID:        make(map[uint64]int, len(items)),
		refreshedAt: time.Now().UTC(),
	}
	for _, item := range items {
		if err := Validate(item); err != nil {
			if s.Logger != nil {
				s.Logger.Warn("skip invalid opportunity", zap.Uint64("id", item.ID), zap.String("name", item.Name), zap.Error(err))
			}
			continue
		}
		if _, dup := next.byID[item.ID]; dup {
			if s.Logger != nil {
				s.Logger.Warn("skip duplicate opportunity id", zap.Uint64("id", item.ID))
			}
			continue
		}
		next.byID[item.ID] = len(next.items)
		next.items = append(next.items, item)
	}
	s.snap.Store(next)
	if s.Logger != nil {
		s.Logger.Info("opportunities refreshed", zap.Int("count", len(next.items)), zap.Int("skipped", len(items)-len(next.items)))
	}
	return len(next.items), nil
}

func (s *Store) current() *snapshot {
	if s == nil {
		return &snapshot{}
	}
	if snap := s.snap.Load(); snap != nil {
		return snap
	}
	return &snapshot{}
}

// List returns opportunities in store order. An empty protocol or "all"
// disables filtering; otherwise the match is case-insensitive.
func (s *Store) List(protocol string) []models.YieldOpportunity {
	snap := s.current()
	protocol = strings.TrimSpace(protocol)
	out := make([]models.YieldOpportunity, 0, len(snap.items))
	for _, item := range snap.items {
		if protocol != "" && !strings.EqualFold(protocol, "all") && !strings.EqualFold(item.Protocol, protocol) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (s *Store) Get(id uint64) (models.YieldOpportunity, bool) {
	snap := s.current()
	idx, ok := snap.byID[id]
	if !ok {
		return models.YieldOpportunity{}, false
	}
	return snap.items[idx], true
}

// Best returns the highest-apy opportunity; the first one wins ties.
func (s *Store) Best() (models.YieldOpportunity, bool) {
	snap := s.current()
	if len(snap.items) == 0 {
		return models.YieldOpportunity{}, false
	}
	best := 0
	for i := 1; i < len(snap.items); i++ {
		if snap.items[i].APY.GreaterThan(snap.items[best].APY) {
			best = i
		}
	}
	return snap.items[best], true
}

func (s *Store) Stats() Stats {
	return ComputeStats(s.current().items)
}

func (s *Store) LastRefreshed() time.Time {
	return s.current().refreshedAt
}

func ComputeStats(items []models.YieldOpportunity) Stats {
	if len(items) == 0 {
		return Stats{}
	}
	sum := decimal.Zero
	protocols := map[string]struct{}{}
	for _, item := range items {
		sum = sum.Add(item.APY)
		protocols[item.Protocol] = struct{}{}
	}
	avg, _ := sum.Div(decimal.NewFromInt(int64(len(items)))).Round(2).Float64()
	return Stats{
		AvgAPY:           avg,
		ProtocolCount:    len(protocols),
		OpportunityCount: len(items),
	}
}
