package repository

import (
	"context"
	"errors"
	"time"

	"yieldhunter/internal/models"
)

// ErrStaleWrite is returned by guarded updates when the row is no longer in
// the state the update requires.
var ErrStaleWrite = errors.New("repository: row changed by a concurrent write")

// Repository is the persistence boundary shared by the postgres and in-memory
// stores. Getters return (nil, nil) when the row does not exist.
type Repository interface {
	// InTx runs fn against a transactional view of the repository. Every write
	// made through tx commits together or not at all.
	InTx(ctx context.Context, fn func(tx Repository) error) error

	// opportunities
	ListYieldOpportunities(ctx context.Context) ([]models.YieldOpportunity, error)
	GetYieldOpportunityByID(ctx context.Context, id uint64) (*models.YieldOpportunity, error)
	ReplaceYieldOpportunities(ctx context.Context, items []models.YieldOpportunity) error
	CountYieldOpportunities(ctx context.Context) (int64, error)

	// positions
	InsertPosition(ctx context.Context, item *models.Position) error
	GetPositionByID(ctx context.Context, id uint64) (*models.Position, error)
	ListActivePositions(ctx context.Context, userID string) ([]models.Position, error)
	// DeactivatePosition flips an active position to inactive. It returns
	// ErrStaleWrite when the position is missing or already inactive.
	DeactivatePosition(ctx context.Context, id uint64) error
	ListUserIDsWithActivePositions(ctx context.Context) ([]string, error)

	// transactions
	InsertTransaction(ctx context.Context, item *models.Transaction) error
	GetTransactionByID(ctx context.Context, id uint64) (*models.Transaction, error)
	ListTransactions(ctx context.Context, params ListTransactionsParams) ([]models.Transaction, error)
	// UpdateTransactionStatus settles a pending transaction. It returns
	// ErrStaleWrite when the transaction is missing or no longer pending.
	UpdateTransactionStatus(ctx context.Context, id uint64, status string) error

	// preferences
	GetUserPreference(ctx context.Context, userID string) (*models.UserPreference, error)
	UpsertUserPreference(ctx context.Context, item *models.UserPreference) error

	// subscriptions
	InsertSubscription(ctx context.Context, item *models.Subscription) error
	GetSubscriptionByWallet(ctx context.Context, walletAddress string) (*models.Subscription, error)

	// snapshots
	InsertPortfolioSnapshot(ctx context.Context, item *models.PortfolioSnapshot) error
	ListPortfolioSnapshots(ctx context.Context, userID string, since time.Time) ([]models.PortfolioSnapshot, error)
}

// ListTransactionsParams narrows a user's transaction history. Type and Status
// are exact matches; results are newest first.
type ListTransactionsParams struct {
	UserID string
	Type   *string
	Status *string
	Limit  int
	Offset int
}
