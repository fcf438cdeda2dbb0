package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"yieldhunter/internal/models"
	"yieldhunter/internal/repository"
)

type Store struct {
	db *gorm.DB
}

var _ repository.Repository = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx repository.Repository) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// --- opportunities ----------------------------------------------------------

func (s *Store) ListYieldOpportunities(ctx context.Context) ([]models.YieldOpportunity, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.YieldOpportunity
	if err := s.db.WithContext(ctx).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetYieldOpportunityByID(ctx context.Context, id uint64) (*models.YieldOpportunity, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.YieldOpportunity
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ReplaceYieldOpportunities upserts items by id and removes rows not present in
// items. Positions keep their opportunity_id even if the row disappears.
func (s *Store) ReplaceYieldOpportunities(ctx context.Context, items []models.YieldOpportunity) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		keep := make([]uint64, 0, len(items))
		for i := range items {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).Create(&items[i]).Error; err != nil {
				return err
			}
			keep = append(keep, items[i].ID)
		}
		del := tx.Model(&models.YieldOpportunity{})
		if len(keep) > 0 {
			del = del.Where("id NOT IN ?", keep)
		} else {
			del = del.Where("1 = 1")
		}
		return del.Delete(&models.YieldOpportunity{}).Error
	})
}

func (s *Store) CountYieldOpportunities(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&models.YieldOpportunity{}).Count(&n).Error
	return n, err
}

// --- positions --------------------------------------------------------------

func (s *Store) InsertPosition(ctx context.Context, item *models.Position) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetPositionByID(ctx context.Context, id uint64) (*models.Position, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Position
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListActivePositions(ctx context.Context, userID string) ([]models.Position, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Position
	err := userActivePositionsQuery(s.db.WithContext(ctx), userID).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// DeactivatePosition matches only an active row, so of two racing
// withdrawals the second sees zero rows once the first commits.
func (s *Store) DeactivatePosition(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil {
		return nil
	}
	if id == 0 {
		return repository.ErrStaleWrite
	}
	return guarded(activePositionQuery(s.db.WithContext(ctx), id).Update("active", false))
}

func (s *Store) ListUserIDsWithActivePositions(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.Position{}).
		Where("active = ?", true).
		Distinct().
		Order("user_id asc").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// --- transactions -----------------------------------------------------------

func (s *Store) InsertTransaction(ctx context.Context, item *models.Transaction) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetTransactionByID(ctx context.Context, id uint64) (*models.Transaction, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Transaction
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListTransactions(ctx context.Context, params repository.ListTransactionsParams) ([]models.Transaction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Transaction
	if err := transactionsQuery(s.db.WithContext(ctx), params).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateTransactionStatus(ctx context.Context, id uint64, status string) error {
	if s == nil || s.db == nil {
		return nil
	}
	if id == 0 || strings.TrimSpace(status) == "" {
		return repository.ErrStaleWrite
	}
	return guarded(pendingTransactionQuery(s.db.WithContext(ctx), id).Update("status", strings.TrimSpace(status)))
}

// --- preferences ------------------------------------------------------------

func (s *Store) GetUserPreference(ctx context.Context, userID string) (*models.UserPreference, error) {
	if s == nil || s.db == nil || strings.TrimSpace(userID) == "" {
		return nil, nil
	}
	var item models.UserPreference
	err := s.db.WithContext(ctx).Where("user_id = ?", strings.TrimSpace(userID)).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpsertUserPreference(ctx context.Context, item *models.UserPreference) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(preferenceUpsert).Create(item).Error
}

// --- subscriptions ----------------------------------------------------------

func (s *Store) InsertSubscription(ctx context.Context, item *models.Subscription) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetSubscriptionByWallet(ctx context.Context, walletAddress string) (*models.Subscription, error) {
	if s == nil || s.db == nil || strings.TrimSpace(walletAddress) == "" {
		return nil, nil
	}
	var item models.Subscription
	err := s.db.WithContext(ctx).
		Where("wallet_address = ?", strings.TrimSpace(walletAddress)).
		Order("created_at desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- snapshots --------------------------------------------------------------

func (s *Store) InsertPortfolioSnapshot(ctx context.Context, item *models.PortfolioSnapshot) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListPortfolioSnapshots(ctx context.Context, userID string, since time.Time) ([]models.PortfolioSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.PortfolioSnapshot
	if err := snapshotsQuery(s.db.WithContext(ctx), userID, since).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- query builders ---------------------------------------------------------

func activePositionQuery(db *gorm.DB, id uint64) *gorm.DB {
	return db.Model(&models.Position{}).Where("id = ? AND active = ?", id, true)
}

func pendingTransactionQuery(db *gorm.DB, id uint64) *gorm.DB {
	return db.Model(&models.Transaction{}).Where("id = ? AND status = ?", id, models.TransactionStatusPending)
}

func userActivePositionsQuery(db *gorm.DB, userID string) *gorm.DB {
	return db.Model(&models.Position{}).
		Where("user_id = ? AND active = ?", strings.TrimSpace(userID), true).
		Order("deposit_date asc, id asc")
}

func transactionsQuery(db *gorm.DB, params repository.ListTransactionsParams) *gorm.DB {
	query := db.Model(&models.Transaction{}).
		Where("user_id = ?", strings.TrimSpace(params.UserID))
	if params.Type != nil && strings.TrimSpace(*params.Type) != "" {
		query = query.Where("transaction_type = ?", strings.TrimSpace(*params.Type))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	query = query.Order("transaction_date desc, id desc")
	if params.Limit > 0 {
		query = query.Limit(normalizeLimit(params.Limit, 200))
	}
	if params.Offset > 0 {
		query = query.Offset(params.Offset)
	}
	return query
}

func snapshotsQuery(db *gorm.DB, userID string, since time.Time) *gorm.DB {
	query := db.Model(&models.PortfolioSnapshot{}).
		Where("user_id = ?", strings.TrimSpace(userID))
	if !since.IsZero() {
		query = query.Where("snapshot_at >= ?", since)
	}
	return query.Order("snapshot_at asc")
}

var preferenceUpsert = clause.OnConflict{
	Columns: []clause.Column{{Name: "user_id"}},
	DoUpdates: clause.AssignmentColumns([]string{
		"telegram_chat_id",
		"telegram_username",
		"risk_tolerance",
		"preferred_chains",
		"preferred_tokens",
		"notifications_enabled",
	}),
}

// guarded turns a conditional update that matched nothing into ErrStaleWrite.
func guarded(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrStaleWrite
	}
	return nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}
