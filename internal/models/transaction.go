package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	TransactionTypeInvest   = "invest"
	TransactionTypeWithdraw = "withdraw"

	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// Transaction is append-only history. The only permitted mutation is the
// status transition pending -> completed|failed.
type Transaction struct {
	ID              uint64            `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          string            `gorm:"type:varchar(100);not null;index" json:"userId"`
	OpportunityID   uint64            `gorm:"not null;index" json:"opportunityId"`
	TransactionType string            `gorm:"type:varchar(20);not null;index" json:"transactionType"`
	Amount          decimal.Decimal   `gorm:"type:numeric(20,2);not null" json:"amount"`
	Token           string            `gorm:"type:varchar(20);not null" json:"token"`
	TransactionDate time.Time         `gorm:"type:timestamptz;not null;index" json:"transactionDate"`
	Status          string            `gorm:"type:varchar(20);not null;index" json:"status"`
	TransactionHash *string           `gorm:"type:varchar(128)" json:"transactionHash"`
	Details         datatypes.JSONMap `gorm:"type:jsonb" json:"details"`

	// Protocol is filled on read from the referenced opportunity.
	Protocol string `gorm:"-" json:"protocol,omitempty"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func IsTransactionType(v string) bool {
	return v == TransactionTypeInvest || v == TransactionTypeWithdraw
}

func IsTransactionStatus(v string) bool {
	switch v {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusFailed:
		return true
	}
	return false
}
