// Package intent turns chat text into replies and structured trade intents.
package intent

import (
	"context"

	"go.uber.org/zap"

	"yieldhunter/internal/config"
	"yieldhunter/internal/models"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"

	ActionInvest   = "invest"
	ActionWithdraw = "withdraw"
	ActionNone     = "none"
)

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TransactionIntent struct {
	Action        string   `json:"action"`
	Amount        *float64 `json:"amount"`
	Protocol      *string  `json:"protocol"`
	OpportunityID *uint64  `json:"opportunityId"`
}

func NoIntent() TransactionIntent {
	return TransactionIntent{Action: ActionNone}
}

// Understanding is the language capability behind chat. Converse produces a
// reply for the history; ExtractIntent never fails and reports ActionNone
// when nothing actionable is found.
type Understanding interface {
	Converse(ctx context.Context, history []ChatTurn) (string, error)
	ExtractIntent(ctx context.Context, message string, opps []models.YieldOpportunity) TransactionIntent
}

// New returns the OpenAI-backed implementation when an API key is set and the
// rule-based one otherwise.
func New(cfg config.LLMConfig, logger *zap.Logger) Understanding {
	if cfg.APIKey == "" {
		if logger != nil {
			logger.Warn("llm api key not set, chat runs on rule-based intents")
		}
		return RuleBased{}
	}
	return NewOpenAI(cfg, logger)
}
