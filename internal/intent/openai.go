package intent

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"yieldhunter/internal/apperr"
	"yieldhunter/internal/config"
	"yieldhunter/internal/models"
)

// chatCompleter is the subset of *openai.Client used here.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type OpenAI struct {
	client      chatCompleter
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	Logger      *zap.Logger
}

func NewOpenAI(cfg config.LLMConfig, logger *zap.Logger) *OpenAI {
	occ := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		occ.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}
	return &OpenAI{
		client:      openai.NewClientWithConfig(occ),
		Model:       model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
		Logger:      logger,
	}
}

func (o *OpenAI) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.Timeout)
}

func (o *OpenAI) Converse(ctx context.Context, history []ChatTurn) (string, error) {
	if o == nil || o.client == nil {
		return "", apperr.Upstream("language model not configured", nil)
	}
	msgs := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, turn := range history {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: turn.Role, Content: turn.Content})
	}
	cctx, cancel := o.withTimeout(ctx)
	defer cancel()
	resp, err := o.client.CreateChatCompletion(cctx, openai.ChatCompletionRequest{
		Model:       o.Model,
		Messages:    msgs,
		Temperature: o.Temperature,
		MaxTokens:   o.MaxTokens,
	})
	if err != nil {
		return "", apperr.Upstream("chat completion failed", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return fallbackReply, nil
	}
	return resp.Choices[0].Message.Content, nil
}

// ExtractIntent runs a stateless, deterministic JSON-mode completion. Any
// failure yields NoIntent.
func (o *OpenAI) ExtractIntent(ctx context.Context, message string, opps []models.YieldOpportunity) TransactionIntent {
	if o == nil || o.client == nil {
		return NoIntent()
	}
	cctx, cancel := o.withTimeout(ctx)
	defer cancel()
	resp, err := o.client.CreateChatCompletion(cctx, openai.ChatCompletionRequest{
		Model: o.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: intentPrompt(message, opps)},
		},
		// go-openai drops a zero temperature from the request body.
		Temperature: math.SmallestNonzeroFloat32,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		o.warn("intent completion failed", err)
		return NoIntent()
	}
	if len(resp.Choices) == 0 {
		o.warn("intent completion empty", errors.New("no choices"))
		return NoIntent()
	}
	parsed, err := parseIntent(resp.Choices[0].Message.Content)
	if err != nil {
		o.warn("intent parse failed", err)
		return NoIntent()
	}
	return Normalize(parsed, opps)
}

func (o *OpenAI) warn(msg string, err error) {
	if o.Logger == nil {
		return
	}
	o.Logger.Warn(msg, zap.String("model", o.Model), zap.Error(err))
}
