package wallet

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"yieldhunter/internal/apperr"
	"yieldhunter/internal/cache"
	"yieldhunter/internal/config"
)

// SubscriptionChecker reports whether a wallet paid for the platform.
type SubscriptionChecker interface {
	IsSubscribed(ctx context.Context, walletAddress string) bool
}

type binding struct {
	Address     string    `json:"address"`
	Seed        []byte    `json:"seed"`
	ConnectedAt time.Time `json:"connectedAt"`
}

type ConnectResult struct {
	Success bool    `json:"success"`
	Address string  `json:"address"`
	Balance float64 `json:"balance"`
}

type Status struct {
	Connected  bool     `json:"connected"`
	Address    string   `json:"address,omitempty"`
	Balance    *float64 `json:"balance,omitempty"`
	Subscribed bool     `json:"subscribed"`
}

type Info struct {
	Address      string  `json:"address"`
	Balance      float64 `json:"balance"`
	BalanceInUSD float64 `json:"balanceInUsd"`
	TotalValue   float64 `json:"totalValue"`
	ValueChange  float64 `json:"valueChange"`
}

// Manager keeps the session to wallet binding in the session store.
type Manager struct {
	Store         cache.Store
	Config        config.WalletConfig
	Subscriptions SubscriptionChecker
	TTL           time.Duration
	Logger        *zap.Logger
}

func walletKey(sessionID string) string {
	return cache.Key("wallet", sessionID)
}

// Connect creates a simulated wallet for the session, replacing any previous one.
func (m *Manager) Connect(ctx context.Context, sessionID string) (ConnectResult, error) {
	p, err := NewSimulatedProvider()
	if err != nil {
		return ConnectResult{}, apperr.Internal("create wallet failed", err)
	}
	b := binding{Address: p.Address(), Seed: p.Seed(), ConnectedAt: time.Now().UTC()}
	if err := cache.SetJSON(ctx, m.Store, walletKey(sessionID), b, m.TTL); err != nil {
		return ConnectResult{}, apperr.Internal("connect wallet failed", err)
	}
	if m.Logger != nil {
		m.Logger.Info("wallet connected", zap.String("session_id", sessionID), zap.String("address", b.Address))
	}
	return ConnectResult{Success: true, Address: b.Address, Balance: m.Config.SOLBalance}, nil
}

func (m *Manager) Disconnect(ctx context.Context, sessionID string) error {
	return m.Store.Delete(ctx, walletKey(sessionID))
}

func (m *Manager) binding(ctx context.Context, sessionID string) (binding, bool, error) {
	if m == nil || m.Store == nil || sessionID == "" {
		return binding{}, false, nil
	}
	return cache.GetJSON[binding](ctx, m.Store, walletKey(sessionID))
}

// Provider returns the session's wallet or a NotConnected error.
func (m *Manager) Provider(ctx context.Context, sessionID string) (Provider, error) {
	b, ok, err := m.binding(ctx, sessionID)
	if err != nil {
		return nil, apperr.Internal("load wallet failed", err)
	}
	if !ok {
		return nil, apperr.NotConnected("Not connected")
	}
	p, err := SimulatedProviderFromSeed(b.Seed)
	if err != nil {
		return nil, apperr.Internal("restore wallet failed", err)
	}
	return p, nil
}

func (m *Manager) Connected(ctx context.Context, sessionID string) bool {
	_, ok, err := m.binding(ctx, sessionID)
	return err == nil && ok
}

// Status never fails; lookup problems read as disconnected and a failed
// subscription check reads as not subscribed.
func (m *Manager) Status(ctx context.Context, sessionID string) Status {
	b, ok, err := m.binding(ctx, sessionID)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Warn("wallet status lookup failed", zap.String("session_id", sessionID), zap.Error(err))
		}
		return Status{}
	}
	if !ok {
		return Status{}
	}
	bal := m.Config.SOLBalance
	out := Status{Connected: true, Address: b.Address, Balance: &bal}
	if m.Subscriptions != nil {
		out.Subscribed = m.Subscriptions.IsSubscribed(ctx, b.Address)
	}
	return out
}

func (m *Manager) Info(ctx context.Context, sessionID string) (Info, error) {
	b, ok, err := m.binding(ctx, sessionID)
	if err != nil || !ok {
		return Info{}, apperr.NotConnected("Not connected")
	}
	usd := m.Config.SOLBalance * m.Config.SOLPriceUSD
	return Info{
		Address:      b.Address,
		Balance:      m.Config.SOLBalance,
		BalanceInUSD: round2(usd),
		TotalValue:   round2(usd + m.Config.USDCBalance),
		ValueChange:  m.Config.ValueChange,
	}, nil
}

// Address returns the connected wallet address for the session.
func (m *Manager) Address(ctx context.Context, sessionID string) (string, error) {
	b, ok, err := m.binding(ctx, sessionID)
	if err != nil || !ok {
		return "", apperr.NotConnected("Not connected")
	}
	return b.Address, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
