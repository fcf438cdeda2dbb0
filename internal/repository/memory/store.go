// Package memoryrepository keeps every table in process memory. It backs
// single-instance deployments without postgres and most package tests.
package memoryrepository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"yieldhunter/internal/models"
	"yieldhunter/internal/repository"
)

var ErrDuplicateSubscription = errors.New("subscription transaction hash already recorded")

type state struct {
	nextID        uint64
	opportunities []models.YieldOpportunity
	positions     []models.Position
	transactions  []models.Transaction
	preferences   map[string]models.UserPreference
	subscriptions []models.Subscription
	snapshots     []models.PortfolioSnapshot
}

func (st *state) clone() *state {
	out := &state{
		nextID:        st.nextID,
		opportunities: append([]models.YieldOpportunity(nil), st.opportunities...),
		positions:     append([]models.Position(nil), st.positions...),
		transactions:  append([]models.Transaction(nil), st.transactions...),
		preferences:   make(map[string]models.UserPreference, len(st.preferences)),
		subscriptions: append([]models.Subscription(nil), st.subscriptions...),
		snapshots:     append([]models.PortfolioSnapshot(nil), st.snapshots...),
	}
	for k, v := range st.preferences {
		out.preferences[k] = v
	}
	return out
}

func (st *state) id() uint64 {
	st.nextID++
	return st.nextID
}

type Store struct {
	mu   *sync.Mutex
	st   *state
	inTx bool
}

var _ repository.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		mu: &sync.Mutex{},
		st: &state{preferences: map[string]models.UserPreference{}},
	}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// InTx stages writes on a copy of the tables and swaps it in only when fn
// succeeds. fn must use tx, not the outer store, or it will deadlock.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Repository) error) error {
	if s == nil {
		return nil
	}
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	staged := s.st.clone()
	if err := fn(&Store{mu: s.mu, st: staged, inTx: true}); err != nil {
		return err
	}
	*s.st = *staged
	return nil
}

// --- opportunities ----------------------------------------------------------

func (s *Store) ListYieldOpportunities(ctx context.Context) ([]models.YieldOpportunity, error) {
	defer s.lock()()
	return append([]models.YieldOpportunity(nil), s.st.opportunities...), nil
}

func (s *Store) GetYieldOpportunityByID(ctx context.Context, id uint64) (*models.YieldOpportunity, error) {
	defer s.lock()()
	for _, item := range s.st.opportunities {
		if item.ID == id {
			out := item
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) ReplaceYieldOpportunities(ctx context.Context, items []models.YieldOpportunity) error {
	defer s.lock()()
	next := make([]models.YieldOpportunity, 0, len(items))
	for _, item := range items {
		if item.ID == 0 {
			item.ID = s.st.id()
		} else if item.ID > s.st.nextID {
			s.st.nextID = item.ID
		}
		next = append(next, item)
	}
	sort.SliceStable(next, func(i, j int) bool { return next[i].ID < next[j].ID })
	s.st.opportunities = next
	return nil
}

func (s *Store) CountYieldOpportunities(ctx context.Context) (int64, error) {
	defer s.lock()()
	return int64(len(s.st.opportunities)), nil
}

// --- positions --------------------------------------------------------------

func (s *Store) InsertPosition(ctx context.Context, item *models.Position) error {
	if item == nil {
		return nil
	}
	defer s.lock()()
	item.ID = s.st.id()
	s.st.positions = append(s.st.positions, *item)
	return nil
}

func (s *Store) GetPositionByID(ctx context.Context, id uint64) (*models.Position, error) {
	defer s.lock()()
	for _, item := range s.st.positions {
		if item.ID == id {
			out := item
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) ListActivePositions(ctx context.Context, userID string) ([]models.Position, error) {
	defer s.lock()()
	userID = strings.TrimSpace(userID)
	var out []models.Position
	for _, item := range s.st.positions {
		if item.Active && item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *Store) DeactivatePosition(ctx context.Context, id uint64) error {
	defer s.lock()()
	for i := range s.st.positions {
		if s.st.positions[i].ID == id && s.st.positions[i].Active {
			s.st.positions[i].Active = false
			return nil
		}
	}
	return repository.ErrStaleWrite
}

func (s *Store) ListUserIDsWithActivePositions(ctx context.Context) ([]string, error) {
	defer s.lock()()
	seen := map[string]struct{}{}
	var out []string
	for _, item := range s.st.positions {
		if !item.Active {
			continue
		}
		if _, ok := seen[item.UserID]; ok {
			continue
		}
		seen[item.UserID] = struct{}{}
		out = append(out, item.UserID)
	}
	sort.Strings(out)
	return out, nil
}

// --- transactions -----------------------------------------------------------

func (s *Store) InsertTransaction(ctx context.Context, item *models.Transaction) error {
	if item == nil {
		return nil
	}
	defer s.lock()()
	item.ID = s.st.id()
	s.st.transactions = append(s.st.transactions, *item)
	return nil
}

func (s *Store) GetTransactionByID(ctx context.Context, id uint64) (*models.Transaction, error) {
	defer s.lock()()
	for _, item := range s.st.transactions {
		if item.ID == id {
			out := item
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) ListTransactions(ctx context.Context, params repository.ListTransactionsParams) ([]models.Transaction, error) {
	defer s.lock()()
	userID := strings.TrimSpace(params.UserID)
	var out []models.Transaction
	for _, item := range s.st.transactions {
		if item.UserID != userID {
			continue
		}
		if params.Type != nil && strings.TrimSpace(*params.Type) != "" && item.TransactionType != strings.TrimSpace(*params.Type) {
			continue
		}
		if params.Status != nil && strings.TrimSpace(*params.Status) != "" && item.Status != strings.TrimSpace(*params.Status) {
			continue
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].TransactionDate.After(out[j].TransactionDate)
		}
		return out[i].ID > out[j].ID
	})
	if params.Offset > 0 {
		if params.Offset >= len(out) {
			return nil, nil
		}
		out = out[params.Offset:]
	}
	if params.Limit > 0 && params.Limit < len(out) {
		out = out[:params.Limit]
	}
	return out, nil
}

func (s *Store) UpdateTransactionStatus(ctx context.Context, id uint64, status string) error {
	defer s.lock()()
	for i := range s.st.transactions {
		if s.st.transactions[i].ID == id && s.st.transactions[i].Status == models.TransactionStatusPending {
			s.st.transactions[i].Status = strings.TrimSpace(status)
			return nil
		}
	}
	return repository.ErrStaleWrite
}

// --- preferences ------------------------------------------------------------

func (s *Store) GetUserPreference(ctx context.Context, userID string) (*models.UserPreference, error) {
	defer s.lock()()
	item, ok := s.st.preferences[strings.TrimSpace(userID)]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (s *Store) UpsertUserPreference(ctx context.Context, item *models.UserPreference) error {
	if item == nil {
		return nil
	}
	defer s.lock()()
	key := strings.TrimSpace(item.UserID)
	if prev, ok := s.st.preferences[key]; ok {
		item.ID = prev.ID
	} else {
		item.ID = s.st.id()
	}
	s.st.preferences[key] = *item
	return nil
}

// --- subscriptions ----------------------------------------------------------

func (s *Store) InsertSubscription(ctx context.Context, item *models.Subscription) error {
	if item == nil {
		return nil
	}
	defer s.lock()()
	for _, prev := range s.st.subscriptions {
		if prev.TransactionHash == item.TransactionHash {
			return ErrDuplicateSubscription
		}
	}
	item.ID = s.st.id()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.st.subscriptions = append(s.st.subscriptions, *item)
	return nil
}

func (s *Store) GetSubscriptionByWallet(ctx context.Context, walletAddress string) (*models.Subscription, error) {
	defer s.lock()()
	walletAddress = strings.TrimSpace(walletAddress)
	var found *models.Subscription
	for i := range s.st.subscriptions {
		item := s.st.subscriptions[i]
		if item.WalletAddress != walletAddress {
			continue
		}
		if found == nil || item.CreatedAt.After(found.CreatedAt) {
			found = &item
		}
	}
	return found, nil
}

// --- snapshots --------------------------------------------------------------

func (s *Store) InsertPortfolioSnapshot(ctx context.Context, item *models.PortfolioSnapshot) error {
	if item == nil {
		return nil
	}
	defer s.lock()()
	item.ID = s.st.id()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.st.snapshots = append(s.st.snapshots, *item)
	return nil
}

func (s *Store) ListPortfolioSnapshots(ctx context.Context, userID string, since time.Time) ([]models.PortfolioSnapshot, error) {
	defer s.lock()()
	userID = strings.TrimSpace(userID)
	var out []models.PortfolioSnapshot
	for _, item := range s.st.snapshots {
		if item.UserID != userID {
			continue
		}
		if !since.IsZero() && item.SnapshotAt.Before(since) {
			continue
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SnapshotAt.Before(out[j].SnapshotAt) })
	return out, nil
}
