// Package telegram links dashboard users to Telegram chats and sends them
// messages through the Bot API.
package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender delivers a plain text message to a chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Bot wraps the Bot API client.
type Bot struct {
	api    *tgbotapi.BotAPI
	Logger *zap.Logger
}

func NewBot(token string, logger *zap.Logger) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	api.Debug = false
	if logger != nil {
		logger.Info("telegram bot initialized", zap.String("username", api.Self.UserName))
	}
	return &Bot{api: api, Logger: logger}, nil
}

func (b *Bot) Username() string {
	if b == nil || b.api == nil {
		return ""
	}
	return b.api.Self.UserName
}

func (b *Bot) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// StartHandler answers "/start <token>" messages.
type StartHandler interface {
	HandleStart(ctx context.Context, chatID int64, username, token string) string
}

// Poll long-polls for updates until ctx is done. Only /start is handled;
// everything else is ignored.
func (b *Bot) Poll(ctx context.Context, h StartHandler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	if b.Logger != nil {
		b.Logger.Info("telegram bot polling for updates")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			msg := update.Message
			if msg == nil || !msg.IsCommand() || msg.Command() != "start" {
				continue
			}
			username := ""
			if msg.From != nil {
				username = msg.From.UserName
			}
			reply := h.HandleStart(ctx, msg.Chat.ID, username, strings.TrimSpace(msg.CommandArguments()))
			if reply == "" {
				continue
			}
			if err := b.SendText(ctx, msg.Chat.ID, reply); err != nil && b.Logger != nil {
				b.Logger.Warn("telegram reply failed", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
			}
		}
	}
}
