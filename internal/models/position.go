package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is a user's stake in one opportunity. Withdrawals flip Active to
// false; rows are never deleted.
type Position struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        string          `gorm:"type:varchar(100);not null;index" json:"userId"`
	OpportunityID uint64          `gorm:"not null;index" json:"opportunityId"`
	Amount        decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	DepositDate   time.Time       `gorm:"type:timestamptz;not null" json:"depositDate"`
	Token         string          `gorm:"type:varchar(20);not null" json:"token"`
	Active        bool            `gorm:"not null;default:true;index" json:"active"`
}

func (Position) TableName() string {
	return "user_portfolios"
}
