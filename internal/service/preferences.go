package service

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"yieldhunter/internal/apperr"
	"yieldhunter/internal/models"
	"yieldhunter/internal/repository"
	"yieldhunter/internal/risk"
)

type PreferenceService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// PreferencePatch is a partial update; nil fields are left alone.
type PreferencePatch struct {
	RiskTolerance        *string   `json:"riskTolerance"`
	PreferredChains      *[]string `json:"preferredChains"`
	PreferredTokens      *[]string `json:"preferredTokens"`
	NotificationsEnabled *bool     `json:"notificationsEnabled"`
	TelegramChatID       *string   `json:"telegramChatId"`
	TelegramUsername     *string   `json:"telegramUsername"`
}

// Get returns stored preferences or the defaults when none were saved.
func (s *PreferenceService) Get(ctx context.Context, userID string) (models.UserPreference, error) {
	if s == nil || s.Repo == nil {
		return models.DefaultUserPreference(userID), nil
	}
	pref, err := s.Repo.GetUserPreference(ctx, userID)
	if err != nil {
		return models.UserPreference{}, apperr.Internal("load preferences failed", err)
	}
	if pref == nil {
		return models.DefaultUserPreference(userID), nil
	}
	return *pref, nil
}

// Update merges patch into the stored preferences, creating them from the
// defaults first when absent.
func (s *PreferenceService) Update(ctx context.Context, userID string, patch PreferencePatch) (models.UserPreference, error) {
	if s == nil || s.Repo == nil {
		return models.UserPreference{}, apperr.Internal("preferences not configured", nil)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return models.UserPreference{}, apperr.NotConnected("session required")
	}
	if patch.RiskTolerance != nil && !risk.IsTier(*patch.RiskTolerance) {
		return models.UserPreference{}, apperr.Validation("riskTolerance must be one of " + strings.Join(risk.Tiers, ", "))
	}

	var out models.UserPreference
	err := s.Repo.InTx(ctx, func(repo repository.Repository) error {
		cur, err := repo.GetUserPreference(ctx, userID)
		if err != nil {
			return err
		}
		pref := models.DefaultUserPreference(userID)
		if cur != nil {
			pref = *cur
		}
		applyPatch(&pref, patch)
		if err := repo.UpsertUserPreference(ctx, &pref); err != nil {
			return err
		}
		out = pref
		return nil
	})
	if err != nil {
		return models.UserPreference{}, apperr.Internal("save preferences failed", err)
	}
	return out, nil
}

func applyPatch(pref *models.UserPreference, patch PreferencePatch) {
	if patch.RiskTolerance != nil {
		pref.RiskTolerance = strings.ToLower(strings.TrimSpace(*patch.RiskTolerance))
	}
	if patch.PreferredChains != nil {
		pref.PreferredChains = datatypes.JSONSlice[string](cleanSymbols(*patch.PreferredChains, strings.ToLower))
	}
	if patch.PreferredTokens != nil {
		pref.PreferredTokens = datatypes.JSONSlice[string](cleanSymbols(*patch.PreferredTokens, strings.ToUpper))
	}
	if patch.NotificationsEnabled != nil {
		pref.NotificationsEnabled = *patch.NotificationsEnabled
	}
	if patch.TelegramChatID != nil {
		pref.TelegramChatID = optional(*patch.TelegramChatID)
	}
	if patch.TelegramUsername != nil {
		pref.TelegramUsername = optional(*patch.TelegramUsername)
	}
}

func cleanSymbols(items []string, norm func(string) string) []string {
	out := make([]string, 0, len(items))
	seen := map[string]struct{}{}
	for _, raw := range items {
		v := norm(strings.TrimSpace(raw))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
