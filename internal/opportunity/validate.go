package opportunity

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"yieldhunter/internal/models"
)

var riskLevels = map[string]struct{}{
	"low":         {},
	"medium":      {},
	"medium-high": {},
	"high":        {},
}

// CanonicalProtocol returns the supported protocol name matching v
// case-insensitively.
func CanonicalProtocol(v string) (string, bool) {
	v = strings.TrimSpace(v)
	for _, p := range models.Protocols {
		if strings.EqualFold(p.Name, v) {
			return p.Name, true
		}
	}
	return "", false
}

func Validate(item models.YieldOpportunity) error {
	if item.ID == 0 {
		return fmt.Errorf("missing id")
	}
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("missing name")
	}
	if _, ok := CanonicalProtocol(item.Protocol); !ok {
		return fmt.Errorf("unsupported protocol %q", item.Protocol)
	}
	if _, ok := riskLevels[strings.ToLower(strings.TrimSpace(item.RiskLevel))]; !ok {
		return fmt.Errorf("unknown risk level %q", item.RiskLevel)
	}
	for name, v := range map[string]decimal.Decimal{
		"apy":           item.APY,
		"baseApy":       item.BaseAPY,
		"rewardApy":     item.RewardAPY,
		"tvl":           item.TVL,
		"depositFee":    item.DepositFee,
		"withdrawalFee": item.WithdrawalFee,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%s is negative", name)
		}
	}
	if len(item.TokenPair) > 2 {
		return fmt.Errorf("token pair has %d symbols", len(item.TokenPair))
	}
	return nil
}
