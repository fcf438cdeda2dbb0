package intent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"yieldhunter/internal/models"
	"yieldhunter/internal/opportunity"
)

type fakeCompleter struct {
	reply string
	err   error
	reqs  []openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.reply}}},
	}, nil
}

func seed() []models.YieldOpportunity {
	return opportunity.DefaultSeed(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
}

func newTestOpenAI(f *fakeCompleter) *OpenAI {
	return &OpenAI{client: f, Model: "gpt-4o", MaxTokens: 1000, Temperature: 0.7}
}

func TestFormatOpportunities(t *testing.T) {
	got := FormatOpportunities(seed()[:2])
	want := "1. SOL-USDC LP (ID:1) on Raydium: APY 14.2%, Risk:Medium, TVL:24500000\n" +
		"2. Staked SOL (mSOL) (ID:2) on Marinade: APY 6.8%, Risk:Low, TVL:154200000"
	if got != want {
		t.Fatalf("got\n%s\nwant\n%s", got, want)
	}
}

func TestOpenAIExtractInvest(t *testing.T) {
	f := &fakeCompleter{reply: `{"action":"invest","amount":10,"protocol":"raydium","opportunityId":null}`}
	got := newTestOpenAI(f).ExtractIntent(context.Background(), "Invest 10 USDC in the best Raydium pool", seed())
	if got.Action != ActionInvest || got.Amount == nil || *got.Amount != 10 {
		t.Fatalf("unexpected intent %+v", got)
	}
	if got.Protocol == nil || *got.Protocol != "Raydium" {
		t.Fatalf("expected canonical Raydium, got %v", got.Protocol)
	}
	req := f.reqs[0]
	if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Fatalf("expected json response format")
	}
	if req.Temperature > 0.0001 {
		t.Fatalf("expected deterministic temperature, got %v", req.Temperature)
	}
	if len(req.Messages) != 1 || !strings.Contains(req.Messages[0].Content, "(ID:4) on Raydium") {
		t.Fatalf("expected stateless prompt with opportunity listing")
	}
}

func TestOpenAIExtractDegrades(t *testing.T) {
	cases := []*fakeCompleter{
		{err: errors.New("503")},
		{reply: "sure! I think they want to invest"},
		{reply: `{"action":"transfer","amount":3}`},
	}
	for i, f := range cases {
		got := newTestOpenAI(f).ExtractIntent(context.Background(), "whatever", seed())
		if got.Action != ActionNone || got.Amount != nil || got.Protocol != nil || got.OpportunityID != nil {
			t.Fatalf("case %d: expected none, got %+v", i, got)
		}
	}
}

func TestOpenAIExtractStringNumbers(t *testing.T) {
	f := &fakeCompleter{reply: "```json\n{\"action\":\"Withdraw\",\"amount\":\"2.5\",\"protocol\":null,\"opportunityId\":\"2\"}\n```"}
	got := newTestOpenAI(f).ExtractIntent(context.Background(), "withdraw 2.5 from id 2", seed())
	if got.Action != ActionWithdraw || got.Amount == nil || *got.Amount != 2.5 {
		t.Fatalf("unexpected intent %+v", got)
	}
	if got.OpportunityID == nil || *got.OpportunityID != 2 || got.Protocol == nil || *got.Protocol != "Marinade" {
		t.Fatalf("expected opportunity 2 on Marinade, got %+v", got)
	}
}

func TestOpenAIConverse(t *testing.T) {
	f := &fakeCompleter{reply: "Raydium SOL-USDC pays the most."}
	history := []ChatTurn{{Role: RoleSystem, Content: SystemPrompt}, {Role: RoleUser, Content: "best?"}}
	got, err := newTestOpenAI(f).Converse(context.Background(), history)
	if err != nil || got != f.reply {
		t.Fatalf("got %q err=%v", got, err)
	}
	if len(f.reqs[0].Messages) != 2 || f.reqs[0].MaxTokens != 1000 {
		t.Fatalf("unexpected request %+v", f.reqs[0])
	}

	f = &fakeCompleter{err: errors.New("timeout")}
	if _, err := newTestOpenAI(f).Converse(context.Background(), history); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRuleBasedNoTradeLanguage(t *testing.T) {
	for _, msg := range []string{"What is impermanent loss?", "How does Marinade staking work?", "Show me 14.2% pools"} {
		got := RuleBased{}.ExtractIntent(context.Background(), msg, seed())
		if got.Action != ActionNone {
			t.Fatalf("%q: expected none, got %+v", msg, got)
		}
	}
}

func TestRuleBasedVerbWithoutTarget(t *testing.T) {
	for _, msg := range []string{"What should I buy?", "Should I invest now?", "Where do I put my money?", "When should I withdraw?"} {
		got := RuleBased{}.ExtractIntent(context.Background(), msg, seed())
		if got.Action != ActionNone {
			t.Fatalf("%q: expected none, got %+v", msg, got)
		}
	}
	got := RuleBased{}.ExtractIntent(context.Background(), "Invest 25 USDC", seed())
	if got.Action != ActionInvest || got.Amount == nil || *got.Amount != 25 {
		t.Fatalf("expected invest with an amount, got %+v", got)
	}
}

func TestRuleBasedInvestBestRaydium(t *testing.T) {
	got := RuleBased{}.ExtractIntent(context.Background(), "Invest 10 USDC in the best Raydium pool", seed())
	if got.Action != ActionInvest || got.Amount == nil || *got.Amount != 10 {
		t.Fatalf("unexpected intent %+v", got)
	}
	if got.Protocol == nil || !strings.EqualFold(*got.Protocol, "raydium") {
		t.Fatalf("expected Raydium, got %v", got.Protocol)
	}
	if got.OpportunityID == nil || *got.OpportunityID != 1 {
		t.Fatalf("expected best Raydium opportunity 1, got %v", got.OpportunityID)
	}
}

func TestRuleBasedWithdrawByID(t *testing.T) {
	got := RuleBased{}.ExtractIntent(context.Background(), "please withdraw 1.5k from id: 3", seed())
	if got.Action != ActionWithdraw || got.Amount == nil || *got.Amount != 1500 {
		t.Fatalf("unexpected intent %+v", got)
	}
	if got.OpportunityID == nil || *got.OpportunityID != 3 || *got.Protocol != "Orca" {
		t.Fatalf("expected opportunity 3 on Orca, got %+v", got)
	}
}

func TestNormalizeDropsUnknown(t *testing.T) {
	amt := -4.0
	proto := "Jupiter"
	id := uint64(99)
	got := Normalize(TransactionIntent{Action: "INVEST", Amount: &amt, Protocol: &proto, OpportunityID: &id}, seed())
	if got.Action != ActionInvest || got.Amount != nil || got.Protocol != nil || got.OpportunityID != nil {
		t.Fatalf("unexpected normalized intent %+v", got)
	}
}
