package risk

import (
	"context"

	"go.uber.org/zap"

	"yieldhunter/internal/config"
	"yieldhunter/internal/models"
	"yieldhunter/internal/repository"
)

type Profile struct {
	Level      string `json:"level"`
	Percentage int    `json:"percentage"`
}

// ProfileFor maps stored preferences to the gauge shown in the UI. The
// percentages come from configuration.
func ProfileFor(cfg config.RiskConfig, pref *models.UserPreference) Profile {
	if pref == nil {
		level := cfg.DefaultTier
		if level == "" {
			level = TierModerateConservative
		}
		return Profile{Level: level, Percentage: percentage(cfg, level)}
	}
	level := normalizeTier(pref.RiskTolerance)
	return Profile{Level: level, Percentage: percentage(cfg, level)}
}

// DefaultPercentages applies when configuration carries no tier table.
var DefaultPercentages = map[string]int{
	TierConservative:         20,
	TierModerateConservative: 35,
	TierModerate:             50,
	TierModerateAggressive:   70,
	TierAggressive:           90,
}

func percentage(cfg config.RiskConfig, level string) int {
	tiers := cfg.Tiers
	if len(tiers) == 0 {
		tiers = DefaultPercentages
	}
	if p, ok := tiers[normalizeTier(level)]; ok {
		return p
	}
	if cfg.UnknownPercentage > 0 {
		return cfg.UnknownPercentage
	}
	return 50
}

type Manager struct {
	Config config.RiskConfig
	Repo   repository.Repository
	Logger *zap.Logger
}

func (m *Manager) Profile(ctx context.Context, userID string) (Profile, error) {
	if m == nil || m.Repo == nil {
		return ProfileFor(config.RiskConfig{}, nil), nil
	}
	pref, err := m.Repo.GetUserPreference(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	return ProfileFor(m.Config, pref), nil
}

// Recommend returns risk-adjusted opportunities for a user. A failed
// preference lookup falls back to the default tier.
func (m *Manager) Recommend(ctx context.Context, userID string, items []models.YieldOpportunity, limit int) ([]models.YieldOpportunity, Profile) {
	prof, err := m.Profile(ctx, userID)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Warn("risk profile lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		prof = ProfileFor(m.Config, nil)
	}
	if limit <= 0 {
		limit = m.Config.RecommendationLimit
	}
	return Recommend(items, prof.Level, limit), prof
}
