package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// YieldOpportunity is a named yield-bearing position a user can enter.
// Percentages and currency amounts are numeric in storage and travel as
// decimal text over JSON.
type YieldOpportunity struct {
	ID        uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string          `gorm:"type:text;not null" json:"name"`
	Protocol  string          `gorm:"type:varchar(50);not null;index" json:"protocol"`
	APY       decimal.Decimal `gorm:"column:apy;type:numeric(6,2);not null" json:"apy"`
	BaseAPY   decimal.Decimal `gorm:"column:base_apy;type:numeric(6,2);not null" json:"baseApy"`
	RewardAPY decimal.Decimal `gorm:"column:reward_apy;type:numeric(6,2);not null" json:"rewardApy"`
	RiskLevel string          `gorm:"type:varchar(20);not null" json:"riskLevel"`
	TVL       decimal.Decimal `gorm:"column:tvl;type:numeric(20,2);not null" json:"tvl"`
	AssetType string          `gorm:"type:text;not null" json:"assetType"`

	TokenPair datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"tokenPair"`

	DepositFee    decimal.Decimal `gorm:"type:numeric(6,2);not null;default:0" json:"depositFee"`
	WithdrawalFee decimal.Decimal `gorm:"type:numeric(6,2);not null;default:0" json:"withdrawalFee"`

	LastUpdated time.Time `gorm:"type:timestamptz;not null" json:"lastUpdated"`
	Link        string    `gorm:"type:text" json:"link"`
}

func (YieldOpportunity) TableName() string {
	return "yield_opportunities"
}

// ProtocolInfo is static display metadata for a supported protocol.
type ProtocolInfo struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Protocols is the fixed set of protocols opportunities may belong to.
var Protocols = []ProtocolInfo{
	{Name: "Raydium", URL: "https://raydium.io"},
	{Name: "Marinade", URL: "https://marinade.finance"},
	{Name: "Orca", URL: "https://www.orca.so"},
	{Name: "Solend", URL: "https://solend.fi"},
	{Name: "Tulip", URL: "https://tulip.garden"},
}
