package telegram

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"yieldhunter/internal/apperr"
	"yieldhunter/internal/cache"
	"yieldhunter/internal/models"
	"yieldhunter/internal/service"
)

const defaultLinkTTL = 30 * time.Minute

// Preferences is the part of the preference service the linker writes to.
type Preferences interface {
	Get(ctx context.Context, userID string) (models.UserPreference, error)
	Update(ctx context.Context, userID string, patch service.PreferencePatch) (models.UserPreference, error)
}

type ConnectLink struct {
	Link      string    `json:"link"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Status struct {
	BotName     string  `json:"botName"`
	IsConnected bool    `json:"isConnected"`
	ChatID      *string `json:"chatId"`
	Username    *string `json:"username"`
}

// Linker issues one-time deep links and completes them when the bot sees
// the matching /start.
type Linker struct {
	Store       cache.Store
	Preferences Preferences
	BotUsername string
	LinkTTL     time.Duration
	Logger      *zap.Logger
	Now         func() time.Time
}

func linkKey(token string) string {
	return cache.Key("tglink", token)
}

func (l *Linker) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func (l *Linker) Connect(ctx context.Context, userID string) (ConnectLink, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ConnectLink{}, apperr.NotConnected("session required")
	}
	ttl := l.LinkTTL
	if ttl <= 0 {
		ttl = defaultLinkTTL
	}
	token := uuid.NewString()
	if err := l.Store.Set(ctx, linkKey(token), []byte(userID), ttl); err != nil {
		return ConnectLink{}, apperr.Internal("store telegram link failed", err)
	}
	return ConnectLink{
		Link:      "https://t.me/" + l.BotUsername + "?start=" + token,
		Token:     token,
		ExpiresAt: l.now().Add(ttl).UTC(),
	}, nil
}

// HandleStart consumes a link token and stores the chat on the user's
// preferences. The returned text is sent back to the chat.
func (l *Linker) HandleStart(ctx context.Context, chatID int64, username, token string) string {
	if token == "" {
		return "Welcome to Sol YieldHunter. Open the dashboard and use Connect Telegram to link this chat."
	}
	raw, ok, err := l.Store.Get(ctx, linkKey(token))
	if err != nil {
		l.warn("telegram link lookup failed", err)
		return "Something went wrong, please try again."
	}
	if !ok {
		return "This link has expired. Generate a new one from the dashboard."
	}
	userID := string(raw)
	chat := strconv.FormatInt(chatID, 10)
	patch := service.PreferencePatch{TelegramChatID: &chat}
	if username != "" {
		patch.TelegramUsername = &username
	}
	if _, err := l.Preferences.Update(ctx, userID, patch); err != nil {
		l.warn("telegram link save failed", err)
		return "Something went wrong, please try again."
	}
	if err := l.Store.Delete(ctx, linkKey(token)); err != nil {
		l.warn("telegram link cleanup failed", err)
	}
	if l.Logger != nil {
		l.Logger.Info("telegram linked", zap.String("user_id", userID), zap.Int64("chat_id", chatID))
	}
	return "Your Telegram is now connected. You will receive yield alerts here."
}

func (l *Linker) Status(ctx context.Context, userID string) (Status, error) {
	pref, err := l.Preferences.Get(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	return Status{
		BotName:     l.BotUsername,
		IsConnected: pref.TelegramChatID != nil && *pref.TelegramChatID != "",
		ChatID:      pref.TelegramChatID,
		Username:    pref.TelegramUsername,
	}, nil
}

func (l *Linker) warn(msg string, err error) {
	if l.Logger != nil {
		l.Logger.Warn(msg, zap.Error(err))
	}
}
