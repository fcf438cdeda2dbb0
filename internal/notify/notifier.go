// Package notification fans position activity out to Telegram and an
// optional webhook.
package notification

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"yieldhunter/internal/models"
	"yieldhunter/internal/service"
	"yieldhunter/internal/telegram"
)

const defaultTimeout = 5 * time.Second

type PreferenceReader interface {
	Get(ctx context.Context, userID string) (models.UserPreference, error)
}

// Notifier implements service.ActivityNotifier. Deliveries run in the
// background with their own deadline; Wait blocks until they finish.
type Notifier struct {
	Preferences PreferenceReader
	Telegram    telegram.Sender
	Webhook     WebhookSender
	WebhookURL  string
	Timeout     time.Duration
	Logger      *zap.Logger

	wg sync.WaitGroup
}

var _ service.ActivityNotifier = (*Notifier)(nil)

func (n *Notifier) NotifyActivity(ctx context.Context, a service.Activity) {
	if n == nil {
		return
	}
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer cancel()
		n.deliver(bg, a)
	}()
}

func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) deliver(ctx context.Context, a service.Activity) {
	text := FormatActivity(a)
	if n.Telegram != nil && n.Preferences != nil {
		if chatID, ok := n.chatFor(ctx, a.UserID); ok {
			if err := n.Telegram.SendText(ctx, chatID, text); err != nil {
				n.warn("telegram notification failed", a, err)
			}
		}
	}
	if url := strings.TrimSpace(n.WebhookURL); url != "" {
		payload := WebhookPayload{
			Event:           a.Type,
			UserID:          a.UserID,
			Amount:          a.Amount.String(),
			Token:           a.Token,
			OpportunityName: a.OpportunityName,
			Protocol:        a.Protocol,
			TransactionHash: a.TransactionHash,
			Message:         text,
			At:              a.At,
		}
		if err := n.Webhook.Send(ctx, url, payload); err != nil {
			n.warn("webhook notification failed", a, err)
		}
	}
}

func (n *Notifier) chatFor(ctx context.Context, userID string) (int64, bool) {
	pref, err := n.Preferences.Get(ctx, userID)
	if err != nil {
		n.warn("load preferences for notification failed", service.Activity{UserID: userID}, err)
		return 0, false
	}
	if !pref.NotificationsEnabled || pref.TelegramChatID == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(*pref.TelegramChatID, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (n *Notifier) warn(msg string, a service.Activity, err error) {
	if n.Logger != nil {
		n.Logger.Warn(msg, zap.String("user_id", a.UserID), zap.String("type", a.Type), zap.Error(err))
	}
}

func FormatActivity(a service.Activity) string {
	verb := "Invested"
	if a.Type == models.TransactionTypeWithdraw {
		verb = "Withdrew"
	}
	name := a.OpportunityName
	if a.Protocol != "" {
		name += " on " + a.Protocol
	}
	return fmt.Sprintf("%s %s %s %s %s", verb, a.Amount.StringFixed(2), a.Token, directionWord(a.Type), name)
}

func directionWord(kind string) string {
	if kind == models.TransactionTypeWithdraw {
		return "from"
	}
	return "in"
}
