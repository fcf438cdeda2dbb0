package chat

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"yieldhunter/internal/apperr"
	"yieldhunter/internal/cache"
	"yieldhunter/internal/intent"
	"yieldhunter/internal/models"
)

const (
	DefaultHistoryLimit = 10
	ErrorReply          = "Sorry, I encountered an error processing your request. Please try again."
	maxMessageLength    = 4000
	lockStripes         = 64
)

// OpportunityLister supplies the opportunity context for each message.
type OpportunityLister interface {
	List(protocol string) []models.YieldOpportunity
}

type Reply struct {
	Response          string                   `json:"response"`
	TransactionIntent intent.TransactionIntent `json:"transactionIntent"`
}

// Manager keeps bounded per-session chat history in the session store and
// runs the conversational and intent calls for each message.
type Manager struct {
	Store         cache.Store
	Understanding intent.Understanding
	Opportunities OpportunityLister
	Logger        *zap.Logger

	HistoryLimit int
	TTL          time.Duration

	// Sessions share a fixed set of mutexes so lock memory does not grow
	// with the number of sessions seen.
	locks [lockStripes]sync.Mutex
}

func historyKey(sessionID string) string {
	return cache.Key("chat", sessionID)
}

func (m *Manager) limit() int {
	if m.HistoryLimit < 2 {
		return DefaultHistoryLimit
	}
	return m.HistoryLimit
}

func lockStripe(sessionID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return int(h.Sum32() % lockStripes)
}

func (m *Manager) sessionLock(sessionID string) *sync.Mutex {
	return &m.locks[lockStripe(sessionID)]
}

// History returns the session's turns, seeding the system persona on first use.
func (m *Manager) History(ctx context.Context, sessionID string) ([]intent.ChatTurn, error) {
	if m == nil || m.Store == nil {
		return nil, apperr.Internal("chat not configured", nil)
	}
	turns, ok, err := cache.GetJSON[[]intent.ChatTurn](ctx, m.Store, historyKey(sessionID))
	if err != nil {
		return nil, err
	}
	if ok && len(turns) > 0 {
		return turns, nil
	}
	turns = []intent.ChatTurn{{Role: intent.RoleSystem, Content: intent.SystemPrompt}}
	if err := cache.SetJSON(ctx, m.Store, historyKey(sessionID), turns, m.TTL); err != nil {
		return nil, err
	}
	return turns, nil
}

// Process answers one user message. The reply and the intent degrade
// independently: a failed reply becomes ErrorReply, a failed extraction
// becomes action none.
func (m *Manager) Process(ctx context.Context, sessionID string, message string) (Reply, error) {
	if m == nil || m.Understanding == nil {
		return Reply{}, apperr.Internal("chat not configured", nil)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, apperr.Validation("message is required")
	}
	if len(message) > maxMessageLength {
		return Reply{}, apperr.Validation("message is too long")
	}
	mu := m.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	history, err := m.History(ctx, sessionID)
	if err != nil {
		m.warn("load chat history failed", sessionID, err)
		history = []intent.ChatTurn{{Role: intent.RoleSystem, Content: intent.SystemPrompt}}
	}
	var opps []models.YieldOpportunity
	if m.Opportunities != nil {
		opps = m.Opportunities.List("")
	}

	prompt := make([]intent.ChatTurn, 0, len(history)+1)
	prompt = append(prompt, history...)
	prompt = append(prompt, intent.ChatTurn{Role: intent.RoleUser, Content: intent.ContextualMessage(message, opps)})

	var (
		response  string
		converged bool
		extracted = intent.NoIntent()
	)
	var g errgroup.Group
	g.Go(func() error {
		out, err := m.Understanding.Converse(ctx, prompt)
		if err != nil {
			m.warn("chat reply failed", sessionID, err)
			response = ErrorReply
			return nil
		}
		response, converged = out, true
		return nil
	})
	g.Go(func() error {
		extracted = m.Understanding.ExtractIntent(ctx, message, opps)
		return nil
	})
	_ = g.Wait()

	if converged {
		history = append(history,
			intent.ChatTurn{Role: intent.RoleUser, Content: message},
			intent.ChatTurn{Role: intent.RoleAssistant, Content: response},
		)
		history = Truncate(history, m.limit())
		if err := cache.SetJSON(context.WithoutCancel(ctx), m.Store, historyKey(sessionID), history, m.TTL); err != nil {
			m.warn("save chat history failed", sessionID, err)
		}
	}
	return Reply{Response: response, TransactionIntent: extracted}, nil
}

func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	if m == nil || m.Store == nil {
		return nil
	}
	return m.Store.Delete(ctx, historyKey(sessionID))
}

// Truncate keeps the first (system) turn and the most recent limit-1 turns.
func Truncate(turns []intent.ChatTurn, limit int) []intent.ChatTurn {
	if len(turns) <= limit || limit < 1 {
		return turns
	}
	out := make([]intent.ChatTurn, 0, limit)
	out = append(out, turns[0])
	out = append(out, turns[len(turns)-(limit-1):]...)
	return out
}

func (m *Manager) warn(msg, sessionID string, err error) {
	if m.Logger == nil {
		return
	}
	m.Logger.Warn(msg, zap.String("session_id", sessionID), zap.Error(err))
}
