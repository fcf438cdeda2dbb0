//go:build integration

package gormrepository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"yieldhunter/internal/config"
	"yieldhunter/internal/db"
	"yieldhunter/internal/models"
	"yieldhunter/internal/repository"
)

// Run with: YH_TEST_POSTGRES_DSN=... go test -tags integration ./internal/repository/gorm/
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("YH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("YH_TEST_POSTGRES_DSN not set")
	}
	conn, err := db.Open(config.DBConfig{DSN: dsn, MaxOpenConns: 4, MaxIdleConns: 2})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(conn) })
	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(conn.Gorm)
}

func TestPostgresGuardedWrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	user := "it-" + uuid.NewString()

	pos := &models.Position{UserID: user, OpportunityID: 1, Amount: decimal.NewFromInt(10), DepositDate: time.Now().UTC(), Token: "USDC", Active: true}
	if err := s.InsertPosition(ctx, pos); err != nil {
		t.Fatalf("insert position: %v", err)
	}
	if err := s.DeactivatePosition(ctx, pos.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := s.DeactivatePosition(ctx, pos.ID); !errors.Is(err, repository.ErrStaleWrite) {
		t.Fatalf("expected stale write on second deactivate, got %v", err)
	}

	tx := &models.Transaction{UserID: user, OpportunityID: 1, TransactionType: models.TransactionTypeInvest, Amount: decimal.NewFromInt(1), Token: "SOL", TransactionDate: time.Now().UTC(), Status: models.TransactionStatusPending}
	if err := s.InsertTransaction(ctx, tx); err != nil {
		t.Fatalf("insert transaction: %v", err)
	}
	if err := s.UpdateTransactionStatus(ctx, tx.ID, models.TransactionStatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := s.UpdateTransactionStatus(ctx, tx.ID, models.TransactionStatusFailed); !errors.Is(err, repository.ErrStaleWrite) {
		t.Fatalf("expected stale write on terminal transaction, got %v", err)
	}
	got, err := s.GetTransactionByID(ctx, tx.ID)
	if err != nil || got == nil || got.Status != models.TransactionStatusCompleted {
		t.Fatalf("expected completed to stick, got %+v err=%v", got, err)
	}
}

func TestPostgresListAndUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	user := "it-" + uuid.NewString()
	base := time.Now().UTC().Truncate(time.Second)

	for i, typ := range []string{models.TransactionTypeInvest, models.TransactionTypeWithdraw, models.TransactionTypeInvest} {
		tx := &models.Transaction{UserID: user, OpportunityID: 1, TransactionType: typ, Amount: decimal.NewFromInt(1), Token: "SOL", TransactionDate: base.Add(time.Duration(i) * time.Minute), Status: models.TransactionStatusCompleted}
		if err := s.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	invest := models.TransactionTypeInvest
	rows, err := s.ListTransactions(ctx, repository.ListTransactionsParams{UserID: user, Type: &invest})
	if err != nil || len(rows) != 2 {
		t.Fatalf("expected 2 invest rows, got %d err=%v", len(rows), err)
	}
	if !rows[0].TransactionDate.After(rows[1].TransactionDate) {
		t.Fatalf("expected newest first, got %v then %v", rows[0].TransactionDate, rows[1].TransactionDate)
	}

	if err := s.UpsertUserPreference(ctx, &models.UserPreference{UserID: user, RiskTolerance: "conservative", NotificationsEnabled: true}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.UpsertUserPreference(ctx, &models.UserPreference{UserID: user, RiskTolerance: "aggressive"}); err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	pref, err := s.GetUserPreference(ctx, user)
	if err != nil || pref == nil || pref.RiskTolerance != "aggressive" || pref.NotificationsEnabled {
		t.Fatalf("expected updated preference, got %+v err=%v", pref, err)
	}
}
