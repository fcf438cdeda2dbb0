package intent

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"yieldhunter/internal/models"
)

// rawIntent accepts the loose shapes models return: numbers as strings,
// ids as floats.
type rawIntent struct {
	Action        string `json:"action"`
	Amount        any    `json:"amount"`
	Protocol      any    `json:"protocol"`
	OpportunityID any    `json:"opportunityId"`
}

func parseIntent(content string) (TransactionIntent, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	var raw rawIntent
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return NoIntent(), fmt.Errorf("decode intent: %w", err)
	}
	out := TransactionIntent{Action: raw.Action}
	if f, ok := toFloat(raw.Amount); ok {
		out.Amount = &f
	}
	if s, ok := raw.Protocol.(string); ok {
		out.Protocol = &s
	}
	if f, ok := toFloat(raw.OpportunityID); ok && f >= 0 && f == math.Trunc(f) {
		id := uint64(f)
		out.OpportunityID = &id
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		x = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(x), "$"))
		f, err := strconv.ParseFloat(strings.ReplaceAll(x, ",", ""), 64)
		return f, err == nil
	}
	return 0, false
}

// Normalize constrains an intent to the opportunities in context. Unknown
// actions become none, protocols are canonicalized case-insensitively and ids
// outside the context are dropped.
func Normalize(in TransactionIntent, opps []models.YieldOpportunity) TransactionIntent {
	action := strings.ToLower(strings.TrimSpace(in.Action))
	if action != ActionInvest && action != ActionWithdraw {
		return NoIntent()
	}
	out := TransactionIntent{Action: action}
	if in.Amount != nil && *in.Amount > 0 && !math.IsInf(*in.Amount, 0) && !math.IsNaN(*in.Amount) {
		amt := *in.Amount
		out.Amount = &amt
	}
	if in.Protocol != nil {
		if p, ok := matchProtocol(*in.Protocol, opps); ok {
			out.Protocol = &p
		}
	}
	if in.OpportunityID != nil {
		for _, o := range opps {
			if o.ID != *in.OpportunityID {
				continue
			}
			id := o.ID
			out.OpportunityID = &id
			if out.Protocol == nil {
				p := o.Protocol
				out.Protocol = &p
			}
			break
		}
	}
	return out
}

func matchProtocol(v string, opps []models.YieldOpportunity) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	for _, o := range opps {
		if strings.EqualFold(o.Protocol, v) {
			return o.Protocol, true
		}
	}
	lower := strings.ToLower(v)
	for _, o := range opps {
		if strings.Contains(lower, strings.ToLower(o.Protocol)) {
			return o.Protocol, true
		}
	}
	return "", false
}
