package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"yieldhunter/internal/apperr"
	"yieldhunter/internal/models"
	"yieldhunter/internal/repository"
)

type SubscriptionService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

type SubscriptionInput struct {
	WalletAddress   string          `json:"walletAddress"`
	TransactionHash string          `json:"transactionHash"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
}

func (s *SubscriptionService) Record(ctx context.Context, userID string, in SubscriptionInput) (*models.Subscription, error) {
	if s == nil || s.Repo == nil {
		return nil, apperr.Internal("subscriptions not configured", nil)
	}
	in.WalletAddress = strings.TrimSpace(in.WalletAddress)
	in.TransactionHash = strings.TrimSpace(in.TransactionHash)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = "SOL"
	}
	switch {
	case in.WalletAddress == "":
		return nil, apperr.Validation("walletAddress is required")
	case in.TransactionHash == "":
		return nil, apperr.Validation("transactionHash is required")
	case !in.Amount.IsPositive():
		return nil, apperr.Validation("amount must be greater than zero")
	}
	item := &models.Subscription{
		UserID:          strings.TrimSpace(userID),
		WalletAddress:   in.WalletAddress,
		TransactionHash: in.TransactionHash,
		Amount:          in.Amount,
		Currency:        in.Currency,
	}
	if err := s.Repo.InsertSubscription(ctx, item); err != nil {
		return nil, apperr.Internal("record subscription failed", err)
	}
	return item, nil
}

// IsSubscribed reports whether the wallet has paid. Lookup errors read as
// not subscribed.
func (s *SubscriptionService) IsSubscribed(ctx context.Context, walletAddress string) bool {
	if s == nil || s.Repo == nil || strings.TrimSpace(walletAddress) == "" {
		return false
	}
	sub, err := s.Repo.GetSubscriptionByWallet(ctx, walletAddress)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Warn("subscription lookup failed", zap.String("wallet", walletAddress), zap.Error(err))
		}
		return false
	}
	return sub != nil
}
