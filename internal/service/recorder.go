package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"yieldhunter/internal/apperr"
	"yieldhunter/internal/models"
	"yieldhunter/internal/repository"
)

const defaultWriteTimeout = 10 * time.Second

// OpportunityLookup resolves opportunities by id.
type OpportunityLookup interface {
	Get(id uint64) (models.YieldOpportunity, bool)
}

// Activity describes a completed invest or withdraw for notifications.
type Activity struct {
	UserID          string
	Type            string
	Amount          decimal.Decimal
	Token           string
	OpportunityName string
	Protocol        string
	TransactionHash string
	At              time.Time
}

// ActivityNotifier is told about completed position changes. It must not
// block for long; failures are its own to log.
type ActivityNotifier interface {
	NotifyActivity(ctx context.Context, a Activity)
}

type Recorder struct {
	Repo          repository.Repository
	Opportunities OpportunityLookup
	Notifier      ActivityNotifier
	Logger        *zap.Logger

	WriteTimeout time.Duration
	Now          func() time.Time
}

type InvestInput struct {
	OpportunityID uint64          `json:"opportunityId"`
	Amount        decimal.Decimal `json:"amount"`
	Token         string          `json:"token"`
}

type TransactionInput struct {
	OpportunityID   uint64            `json:"opportunityId"`
	TransactionType string            `json:"transactionType"`
	Amount          decimal.Decimal   `json:"amount"`
	Token           string            `json:"token"`
	TransactionDate *time.Time        `json:"transactionDate"`
	Status          string            `json:"status"`
	TransactionHash *string           `json:"transactionHash"`
	Details         datatypes.JSONMap `json:"details"`
}

func (r *Recorder) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

// writeContext detaches from the caller so a disconnect cannot interrupt a
// position/transaction pair half way.
func (r *Recorder) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := r.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

func (r *Recorder) describe(opportunityID uint64) (name, protocol string) {
	name, protocol = "Unknown", "Unknown"
	if r.Opportunities == nil {
		return
	}
	if o, ok := r.Opportunities.Get(opportunityID); ok {
		return o.Name, o.Protocol
	}
	return
}

// Invest opens a position and records its completed invest transaction in
// one unit. An unresolvable opportunity is recorded as "Unknown".
func (r *Recorder) Invest(ctx context.Context, userID string, in InvestInput) (*models.Position, error) {
	if r == nil || r.Repo == nil {
		return nil, apperr.Internal("recorder not configured", nil)
	}
	userID = strings.TrimSpace(userID)
	token := strings.ToUpper(strings.TrimSpace(in.Token))
	switch {
	case userID == "":
		return nil, apperr.NotConnected("session required")
	case in.OpportunityID == 0:
		return nil, apperr.Validation("opportunityId is required")
	case !in.Amount.IsPositive():
		return nil, apperr.Validation("amount must be greater than zero")
	case token == "":
		return nil, apperr.Validation("token is required")
	}

	name, protocol := r.describe(in.OpportunityID)
	if protocol == "Unknown" && r.Logger != nil {
		r.Logger.Warn("invest into unknown opportunity", zap.Uint64("opportunity_id", in.OpportunityID))
	}
	hash, err := pseudoHash()
	if err != nil {
		return nil, apperr.Internal("generate transaction hash", err)
	}
	now := r.now()
	pos := &models.Position{
		UserID:        userID,
		OpportunityID: in.OpportunityID,
		Amount:        in.Amount,
		DepositDate:   now,
		Token:         token,
		Active:        true,
	}
	tx := &models.Transaction{
		UserID:          userID,
		OpportunityID:   in.OpportunityID,
		TransactionType: models.TransactionTypeInvest,
		Amount:          in.Amount,
		Token:           token,
		TransactionDate: now,
		Status:          models.TransactionStatusCompleted,
		TransactionHash: &hash,
		Details:         datatypes.JSONMap{"protocol": protocol, "opportunityName": name},
	}

	wctx, cancel := r.writeContext(ctx)
	defer cancel()
	err = r.Repo.InTx(wctx, func(repo repository.Repository) error {
		if err := repo.InsertPosition(wctx, pos); err != nil {
			return fmt.Errorf("insert position: %w", err)
		}
		if err := repo.InsertTransaction(wctx, tx); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Internal("investment failed", err)
	}

	r.notify(wctx, Activity{
		UserID: userID, Type: models.TransactionTypeInvest, Amount: in.Amount, Token: token,
		OpportunityName: name, Protocol: protocol, TransactionHash: hash, At: now,
	})
	return pos, nil
}

// Withdraw closes an active position owned by userID and records the
// withdraw transaction. The position row is kept with Active=false.
func (r *Recorder) Withdraw(ctx context.Context, userID string, positionID uint64) (*models.Transaction, error) {
	if r == nil || r.Repo == nil {
		return nil, apperr.Internal("recorder not configured", nil)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperr.NotConnected("session required")
	}
	if positionID == 0 {
		return nil, apperr.Validation("positionId is required")
	}
	hash, err := pseudoHash()
	if err != nil {
		return nil, apperr.Internal("generate transaction hash", err)
	}
	now := r.now()

	var out *models.Transaction
	var name, protocol string
	wctx, cancel := r.writeContext(ctx)
	defer cancel()
	err = r.Repo.InTx(wctx, func(repo repository.Repository) error {
		pos, err := repo.GetPositionByID(wctx, positionID)
		if err != nil {
			return fmt.Errorf("get position: %w", err)
		}
		if pos == nil || pos.UserID != userID {
			return apperr.NotFound(fmt.Sprintf("position %d not found", positionID))
		}
		if !pos.Active {
			return apperr.Validation(fmt.Sprintf("position %d already withdrawn", positionID))
		}
		name, protocol = r.describe(pos.OpportunityID)
		tx := &models.Transaction{
			UserID:          userID,
			OpportunityID:   pos.OpportunityID,
			TransactionType: models.TransactionTypeWithdraw,
			Amount:          pos.Amount,
			Token:           pos.Token,
			TransactionDate: now,
			Status:          models.TransactionStatusCompleted,
			TransactionHash: &hash,
			Details:         datatypes.JSONMap{"protocol": protocol, "opportunityName": name, "positionId": pos.ID},
		}
		if err := repo.DeactivatePosition(wctx, pos.ID); err != nil {
			if errors.Is(err, repository.ErrStaleWrite) {
				return apperr.Validation(fmt.Sprintf("position %d already withdrawn", positionID))
			}
			return fmt.Errorf("deactivate position: %w", err)
		}
		if err := repo.InsertTransaction(wctx, tx); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		out = tx
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.KindInternal {
			return nil, err
		}
		return nil, apperr.Internal("withdrawal failed", err)
	}

	r.notify(wctx, Activity{
		UserID: userID, Type: models.TransactionTypeWithdraw, Amount: out.Amount, Token: out.Token,
		OpportunityName: name, Protocol: protocol, TransactionHash: hash, At: now,
	})
	return out, nil
}

// CreateTransaction appends a transaction without touching positions. It is
// how failed or pending attempts are recorded.
func (r *Recorder) CreateTransaction(ctx context.Context, userID string, in TransactionInput) (*models.Transaction, error) {
	if r == nil || r.Repo == nil {
		return nil, apperr.Internal("recorder not configured", nil)
	}
	userID = strings.TrimSpace(userID)
	txType := strings.ToLower(strings.TrimSpace(in.TransactionType))
	status := strings.ToLower(strings.TrimSpace(in.Status))
	if status == "" {
		status = models.TransactionStatusPending
	}
	token := strings.ToUpper(strings.TrimSpace(in.Token))
	switch {
	case userID == "":
		return nil, apperr.NotConnected("session required")
	case in.OpportunityID == 0:
		return nil, apperr.Validation("opportunityId is required")
	case !models.IsTransactionType(txType):
		return nil, apperr.Validation("transactionType must be invest or withdraw")
	case !models.IsTransactionStatus(status):
		return nil, apperr.Validation("status must be pending, completed or failed")
	case !in.Amount.IsPositive():
		return nil, apperr.Validation("amount must be greater than zero")
	case token == "":
		return nil, apperr.Validation("token is required")
	}
	date := r.now()
	if in.TransactionDate != nil && !in.TransactionDate.IsZero() {
		date = in.TransactionDate.UTC()
	}
	var hash *string
	if in.TransactionHash != nil && strings.TrimSpace(*in.TransactionHash) != "" {
		h := strings.TrimSpace(*in.TransactionHash)
		hash = &h
	}
	tx := &models.Transaction{
		UserID:          userID,
		OpportunityID:   in.OpportunityID,
		TransactionType: txType,
		Amount:          in.Amount,
		Token:           token,
		TransactionDate: date,
		Status:          status,
		TransactionHash: hash,
		Details:         in.Details,
	}
	if tx.Details == nil {
		name, protocol := r.describe(in.OpportunityID)
		tx.Details = datatypes.JSONMap{"protocol": protocol, "opportunityName": name}
	}
	wctx, cancel := r.writeContext(ctx)
	defer cancel()
	if err := r.Repo.InsertTransaction(wctx, tx); err != nil {
		return nil, apperr.Internal("record transaction failed", err)
	}
	return tx, nil
}

// UpdateStatus settles a pending transaction. Completed and failed are
// terminal.
func (r *Recorder) UpdateStatus(ctx context.Context, userID string, id uint64, status string) (*models.Transaction, error) {
	if r == nil || r.Repo == nil {
		return nil, apperr.Internal("recorder not configured", nil)
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if status != models.TransactionStatusCompleted && status != models.TransactionStatusFailed {
		return nil, apperr.Validation("status must be completed or failed")
	}
	var out *models.Transaction
	wctx, cancel := r.writeContext(ctx)
	defer cancel()
	err := r.Repo.InTx(wctx, func(repo repository.Repository) error {
		tx, err := repo.GetTransactionByID(wctx, id)
		if err != nil {
			return err
		}
		if tx == nil || tx.UserID != strings.TrimSpace(userID) {
			return apperr.NotFound(fmt.Sprintf("transaction %d not found", id))
		}
		if tx.Status != models.TransactionStatusPending {
			return apperr.Validation(fmt.Sprintf("transaction %d is already %s", id, tx.Status))
		}
		if err := repo.UpdateTransactionStatus(wctx, id, status); err != nil {
			if errors.Is(err, repository.ErrStaleWrite) {
				return apperr.Validation(fmt.Sprintf("transaction %d is no longer pending", id))
			}
			return err
		}
		tx.Status = status
		out = tx
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.KindInternal {
			return nil, err
		}
		return nil, apperr.Internal("update transaction failed", err)
	}
	return out, nil
}

// ListTransactions returns the user's history. filter is "all", a
// transaction type or a status; anything else is treated as "all".
func (r *Recorder) ListTransactions(ctx context.Context, userID string, filter string) ([]models.Transaction, error) {
	if r == nil || r.Repo == nil {
		return []models.Transaction{}, nil
	}
	params := repository.ListTransactionsParams{UserID: strings.TrimSpace(userID)}
	filter = strings.ToLower(strings.TrimSpace(filter))
	switch {
	case models.IsTransactionType(filter):
		params.Type = &filter
	case models.IsTransactionStatus(filter):
		params.Status = &filter
	}
	items, err := r.Repo.ListTransactions(ctx, params)
	if err != nil {
		return nil, apperr.Internal("list transactions failed", err)
	}
	if items == nil {
		items = []models.Transaction{}
	}
	for i := range items {
		_, items[i].Protocol = r.describe(items[i].OpportunityID)
	}
	return items, nil
}

func (r *Recorder) notify(ctx context.Context, a Activity) {
	if r.Notifier == nil {
		return
	}
	r.Notifier.NotifyActivity(ctx, a)
}

// pseudoHash stands in for an on-chain signature: 32 random bytes, hex.
func pseudoHash() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
