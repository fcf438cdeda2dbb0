package opportunity

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"yieldhunter/internal/models"
	"yieldhunter/internal/repository"
)

// DefaultSeed is the opportunity set a fresh install starts with.
func DefaultSeed(now time.Time) []models.YieldOpportunity {
	d := decimal.RequireFromString
	return []models.YieldOpportunity{
		{
			ID: 1, Name: "SOL-USDC LP", Protocol: "Raydium",
			APY: d("14.2"), BaseAPY: d("10.6"), RewardAPY: d("3.6"),
			RiskLevel: "Medium", TVL: d("24500000"), AssetType: "Liquidity Pool",
			TokenPair:  datatypes.JSONSlice[string]{"SOL", "USDC"},
			DepositFee: d("0"), WithdrawalFee: d("0.25"),
			LastUpdated: now, Link: "https://raydium.io/liquidity/",
		},
		{
			ID: 2, Name: "Staked SOL (mSOL)", Protocol: "Marinade",
			APY: d("6.8"), BaseAPY: d("6.1"), RewardAPY: d("0.7"),
			RiskLevel: "Low", TVL: d("154200000"), AssetType: "Liquid Staking",
			TokenPair:  datatypes.JSONSlice[string]{"SOL"},
			DepositFee: d("0"), WithdrawalFee: d("0"),
			LastUpdated: now, Link: "https://marinade.finance/",
		},
		{
			ID: 3, Name: "USDT-USDC LP", Protocol: "Orca",
			APY: d("4.3"), BaseAPY: d("1.2"), RewardAPY: d("3.1"),
			RiskLevel: "Low", TVL: d("89700000"), AssetType: "Stablecoin Pool",
			TokenPair:  datatypes.JSONSlice[string]{"USDT", "USDC"},
			DepositFee: d("0"), WithdrawalFee: d("0.3"),
			LastUpdated: now, Link: "https://www.orca.so/pools",
		},
		{
			ID: 4, Name: "BTC-SOL LP", Protocol: "Raydium",
			APY: d("9.7"), BaseAPY: d("7.2"), RewardAPY: d("2.5"),
			RiskLevel: "Medium-High", TVL: d("12300000"), AssetType: "Liquidity Pool",
			TokenPair:  datatypes.JSONSlice[string]{"BTC", "SOL"},
			DepositFee: d("0"), WithdrawalFee: d("0.25"),
			LastUpdated: now, Link: "https://raydium.io/liquidity/",
		},
		{
			ID: 5, Name: "USDC Lending", Protocol: "Solend",
			APY: d("3.4"), BaseAPY: d("2.1"), RewardAPY: d("1.3"),
			RiskLevel: "Low", TVL: d("201100000"), AssetType: "Lending",
			TokenPair:  datatypes.JSONSlice[string]{"USDC"},
			DepositFee: d("0"), WithdrawalFee: d("0"),
			LastUpdated: now, Link: "https://solend.fi/dashboard",
		},
	}
}

// SeedIfEmpty writes DefaultSeed when the repository holds no opportunities.
func SeedIfEmpty(ctx context.Context, repo repository.Repository, now time.Time) (bool, error) {
	n, err := repo.CountYieldOpportunities(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	return true, repo.ReplaceYieldOpportunities(ctx, DefaultSeed(now))
}
