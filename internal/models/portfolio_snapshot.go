package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PortfolioSnapshot struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     string    `gorm:"type:varchar(100);not null;index:idx_snapshot_user_at,priority:1" json:"userId"`
	SnapshotAt time.Time `gorm:"type:timestamptz;not null;index:idx_snapshot_user_at,priority:2" json:"snapshotAt"`

	TotalPositions int             `gorm:"not null" json:"totalPositions"`
	TotalValue     decimal.Decimal `gorm:"type:numeric(30,10);not null" json:"totalValue"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"createdAt"`
}

func (PortfolioSnapshot) TableName() string {
	return "portfolio_snapshots"
}
