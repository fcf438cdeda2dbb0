package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"yieldhunter/internal/apperr"
	memoryrepository "yieldhunter/internal/repository/memory"
)

func strPtr(v string) *string { return &v }

func TestPreferencesDefaults(t *testing.T) {
	s := &PreferenceService{Repo: memoryrepository.New()}
	pref, err := s.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if pref.RiskTolerance != "moderate" || !pref.NotificationsEnabled || len(pref.PreferredChains) != 1 || pref.PreferredChains[0] != "solana" {
		t.Fatalf("unexpected defaults %+v", pref)
	}
}

func TestPreferencesPatchMerges(t *testing.T) {
	s := &PreferenceService{Repo: memoryrepository.New()}
	ctx := context.Background()
	off := false
	tokens := []string{"usdc", "SOL", "usdc", " "}
	if _, err := s.Update(ctx, "u1", PreferencePatch{RiskTolerance: strPtr("Aggressive"), PreferredTokens: &tokens}); err != nil {
		t.Fatalf("update: %v", err)
	}
	pref, err := s.Update(ctx, "u1", PreferencePatch{NotificationsEnabled: &off})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if pref.RiskTolerance != "aggressive" || pref.NotificationsEnabled {
		t.Fatalf("patch lost fields: %+v", pref)
	}
	if len(pref.PreferredTokens) != 2 || pref.PreferredTokens[0] != "USDC" || pref.PreferredTokens[1] != "SOL" {
		t.Fatalf("unexpected tokens %v", pref.PreferredTokens)
	}
	again, _ := s.Get(ctx, "u1")
	if again.ID != pref.ID || again.RiskTolerance != "aggressive" {
		t.Fatalf("expected stored prefs, got %+v", again)
	}
}

func TestPreferencesRejectsUnknownTier(t *testing.T) {
	s := &PreferenceService{Repo: memoryrepository.New()}
	if _, err := s.Update(context.Background(), "u1", PreferencePatch{RiskTolerance: strPtr("reckless")}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubscriptions(t *testing.T) {
	s := &SubscriptionService{Repo: memoryrepository.New()}
	ctx := context.Background()
	if s.IsSubscribed(ctx, "wallet1") {
		t.Fatalf("expected not subscribed")
	}
	if _, err := s.Record(ctx, "u1", SubscriptionInput{WalletAddress: "wallet1", TransactionHash: "sig", Amount: decimal.RequireFromString("0.1")}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if !s.IsSubscribed(ctx, "wallet1") {
		t.Fatalf("expected subscribed")
	}
	if _, err := s.Record(ctx, "u1", SubscriptionInput{WalletAddress: "wallet1", Amount: decimal.NewFromInt(1)}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
