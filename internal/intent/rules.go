package intent

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"yieldhunter/internal/models"
	"yieldhunter/internal/risk"
)

const ruleBasedReply = "The AI assistant is not configured on this server, so I can't answer free-form questions. " +
	"I can still pick up requests like \"Invest 10 USDC in the best Raydium pool\" or \"Withdraw 5 SOL from Marinade\"."

var (
	investWords   = regexp.MustCompile(`\b(invest|deposit|stake|supply|lend|allocate)\b`)
	withdrawWords = regexp.MustCompile(`\b(withdraw|unstake|redeem|remove|exit|take out|pull out|cash out)\b`)
	amountPattern = regexp.MustCompile(`\$?\s*(\d+(?:,\d{3})*(?:\.\d+)?)\s*(k\b)?`)
	idPattern     = regexp.MustCompile(`(?:\bid\s*[:#]?\s*|#)(\d+)\b`)
)

// RuleBased extracts intents with keyword and pattern matching against the
// opportunities in context. It needs no external service.
type RuleBased struct{}

func (RuleBased) Converse(context.Context, []ChatTurn) (string, error) {
	return ruleBasedReply, nil
}

func (RuleBased) ExtractIntent(_ context.Context, message string, opps []models.YieldOpportunity) TransactionIntent {
	lower := strings.ToLower(message)
	action := detectAction(lower)
	if action == ActionNone {
		return NoIntent()
	}
	out := TransactionIntent{Action: action}
	if amt, ok := detectAmount(lower); ok {
		out.Amount = &amt
	}
	if m := idPattern.FindStringSubmatch(lower); m != nil {
		if id, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			out.OpportunityID = &id
		}
	}
	for _, o := range opps {
		if strings.Contains(lower, strings.ToLower(o.Protocol)) {
			p := o.Protocol
			out.Protocol = &p
			break
		}
	}
	if out.OpportunityID == nil {
		if id, ok := detectOpportunity(lower, out.Protocol, opps); ok {
			out.OpportunityID = &id
		}
	}
	out = Normalize(out, opps)
	// A verb alone is a question, not an order.
	if out.Amount == nil && out.OpportunityID == nil && out.Protocol == nil {
		return NoIntent()
	}
	return out
}

func detectAction(lower string) string {
	inv := investWords.FindStringIndex(lower)
	wd := withdrawWords.FindStringIndex(lower)
	switch {
	case inv == nil && wd == nil:
		return ActionNone
	case wd == nil:
		return ActionInvest
	case inv == nil:
		return ActionWithdraw
	case wd[0] < inv[0]:
		return ActionWithdraw
	default:
		return ActionInvest
	}
}

// detectAmount takes the first number that is not a percentage or an id.
func detectAmount(lower string) (float64, bool) {
	for _, m := range amountPattern.FindAllStringSubmatchIndex(lower, -1) {
		end := m[1]
		rest := strings.TrimLeft(lower[end:], " ")
		if strings.HasPrefix(rest, "%") {
			continue
		}
		prefix := strings.TrimRight(lower[:m[0]], " :#")
		if strings.HasSuffix(" "+prefix, " id") || strings.HasSuffix(lower[:m[0]], "#") {
			continue
		}
		num := strings.ReplaceAll(lower[m[2]:m[3]], ",", "")
		v, err := strconv.ParseFloat(num, 64)
		if err != nil || v <= 0 {
			continue
		}
		if m[4] >= 0 {
			v *= 1000
		}
		return v, true
	}
	return 0, false
}

// detectOpportunity resolves a named opportunity, or the highest-apy one
// when the message asks for the best (optionally within a protocol).
func detectOpportunity(lower string, protocol *string, opps []models.YieldOpportunity) (uint64, bool) {
	for _, o := range opps {
		if strings.Contains(lower, strings.ToLower(o.Name)) {
			return o.ID, true
		}
	}
	if !strings.Contains(lower, "best") && !strings.Contains(lower, "highest") && !strings.Contains(lower, "top") {
		return 0, false
	}
	candidates := make([]models.YieldOpportunity, 0, len(opps))
	for _, o := range opps {
		if protocol == nil || strings.EqualFold(o.Protocol, *protocol) {
			candidates = append(candidates, o)
		}
	}
	ranked := risk.Rank(candidates, risk.SortByAPY)
	if len(ranked) == 0 {
		return 0, false
	}
	return ranked[0].ID, true
}
