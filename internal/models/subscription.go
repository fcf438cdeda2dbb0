package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subscription records a paid platform subscription for a wallet.
type Subscription struct {
	ID              uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          string          `gorm:"type:varchar(100);not null;index" json:"userId"`
	WalletAddress   string          `gorm:"type:varchar(64);not null;index" json:"walletAddress"`
	TransactionHash string          `gorm:"type:varchar(128);not null;uniqueIndex" json:"transactionHash"`
	Amount          decimal.Decimal `gorm:"type:numeric(20,9);not null" json:"amount"`
	Currency        string          `gorm:"type:varchar(10);not null" json:"currency"`
	CreatedAt       time.Time       `gorm:"type:timestamptz;autoCreateTime" json:"createdAt"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
