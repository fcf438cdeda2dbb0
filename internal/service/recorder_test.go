package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"yieldhunter/internal/apperr"
	"yieldhunter/internal/models"
	"yieldhunter/internal/opportunity"
	"yieldhunter/internal/portfolio"
	"yieldhunter/internal/repository"
	memoryrepository "yieldhunter/internal/repository/memory"
)

var hexHash = regexp.MustCompile(`^[0-9a-f]{64}$`)

type failOnTransaction struct {
	repository.Repository
}

func (failOnTransaction) InsertTransaction(context.Context, *models.Transaction) error {
	return errors.New("disk full")
}

type failingTxRepo struct {
	*memoryrepository.Store
}

func (f failingTxRepo) InTx(ctx context.Context, fn func(tx repository.Repository) error) error {
	return f.Store.InTx(ctx, func(tx repository.Repository) error {
		return fn(failOnTransaction{tx})
	})
}

// staleWriteRepo reports zero rows affected on guarded updates, as a store
// does when another request won the race for the same row.
type staleWriteRepo struct {
	repository.Repository
}

func (staleWriteRepo) DeactivatePosition(context.Context, uint64) error {
	return repository.ErrStaleWrite
}

func (staleWriteRepo) UpdateTransactionStatus(context.Context, uint64, string) error {
	return repository.ErrStaleWrite
}

type racingTxRepo struct {
	*memoryrepository.Store
}

func (r racingTxRepo) InTx(ctx context.Context, fn func(tx repository.Repository) error) error {
	return r.Store.InTx(ctx, func(tx repository.Repository) error {
		return fn(staleWriteRepo{tx})
	})
}

type recordingNotifier struct {
	mu   sync.Mutex
	seen []Activity
}

func (n *recordingNotifier) NotifyActivity(_ context.Context, a Activity) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, a)
}

func newRecorder(t *testing.T, repo repository.Repository) (*Recorder, *recordingNotifier) {
	t.Helper()
	opps := opportunity.NewStore(opportunity.StaticSource(opportunity.DefaultSeed(time.Now().UTC())), nil)
	if _, err := opps.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	n := &recordingNotifier{}
	return &Recorder{Repo: repo, Opportunities: opps, Notifier: n}, n
}

func TestInvestThenListInvest(t *testing.T) {
	repo := memoryrepository.New()
	r, n := newRecorder(t, repo)
	ctx := context.Background()

	pos, err := r.Invest(ctx, "u1", InvestInput{OpportunityID: 1, Amount: decimal.NewFromInt(10), Token: "usdc"})
	if err != nil {
		t.Fatalf("invest: %v", err)
	}
	if !pos.Active || pos.ID == 0 || pos.Token != "USDC" {
		t.Fatalf("unexpected position %+v", pos)
	}

	txs, err := r.ListTransactions(ctx, "u1", "invest")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected exactly one invest transaction, got %d", len(txs))
	}
	tx := txs[0]
	if tx.Status != models.TransactionStatusCompleted || tx.TransactionHash == nil || !hexHash.MatchString(*tx.TransactionHash) {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if tx.Protocol != "Raydium" || tx.Details["opportunityName"] != "SOL-USDC LP" {
		t.Fatalf("expected enrichment and snapshot details, got %+v", tx)
	}
	if len(n.seen) != 1 || n.seen[0].Type != models.TransactionTypeInvest {
		t.Fatalf("expected one notification, got %+v", n.seen)
	}
}

func TestInvestValidation(t *testing.T) {
	r, _ := newRecorder(t, memoryrepository.New())
	ctx := context.Background()
	cases := []InvestInput{
		{OpportunityID: 1, Amount: decimal.Zero, Token: "USDC"},
		{OpportunityID: 1, Amount: decimal.NewFromInt(-5), Token: "USDC"},
		{OpportunityID: 0, Amount: decimal.NewFromInt(5), Token: "USDC"},
		{OpportunityID: 1, Amount: decimal.NewFromInt(5), Token: " "},
	}
	for i, in := range cases {
		if _, err := r.Invest(ctx, "u1", in); apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
	if _, err := r.Invest(ctx, "", cases[0]); apperr.KindOf(err) != apperr.KindNotConnected {
		t.Fatalf("expected not connected, got %v", err)
	}
}

func TestInvestUnknownOpportunityProceeds(t *testing.T) {
	r, _ := newRecorder(t, memoryrepository.New())
	ctx := context.Background()
	if _, err := r.Invest(ctx, "u1", InvestInput{OpportunityID: 77, Amount: decimal.NewFromInt(1), Token: "SOL"}); err != nil {
		t.Fatalf("invest: %v", err)
	}
	txs, _ := r.ListTransactions(ctx, "u1", "all")
	if len(txs) != 1 || txs[0].Protocol != "Unknown" {
		t.Fatalf("expected Unknown protocol, got %+v", txs)
	}
}

func TestInvestIsAtomic(t *testing.T) {
	mem := memoryrepository.New()
	r, n := newRecorder(t, failingTxRepo{mem})
	ctx := context.Background()

	if _, err := r.Invest(ctx, "u1", InvestInput{OpportunityID: 1, Amount: decimal.NewFromInt(10), Token: "USDC"}); err == nil {
		t.Fatalf("expected failure")
	}
	positions, _ := mem.ListActivePositions(ctx, "u1")
	txs, _ := mem.ListTransactions(ctx, repository.ListTransactionsParams{UserID: "u1"})
	if len(positions) != 0 || len(txs) != 0 {
		t.Fatalf("expected no partial writes, got %d positions %d transactions", len(positions), len(txs))
	}
	if len(n.seen) != 0 {
		t.Fatalf("no notification expected on failure")
	}
}

func TestInvestSurvivesCallerCancel(t *testing.T) {
	repo := memoryrepository.New()
	r, _ := newRecorder(t, repo)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Invest(ctx, "u1", InvestInput{OpportunityID: 2, Amount: decimal.NewFromInt(3), Token: "SOL"}); err != nil {
		t.Fatalf("invest: %v", err)
	}
	positions, _ := repo.ListActivePositions(context.Background(), "u1")
	txs, _ := repo.ListTransactions(context.Background(), repository.ListTransactionsParams{UserID: "u1"})
	if len(positions) != 1 || len(txs) != 1 {
		t.Fatalf("expected pair to be written, got %d/%d", len(positions), len(txs))
	}
}

func TestWithdrawKeepsRowAndHistory(t *testing.T) {
	repo := memoryrepository.New()
	r, _ := newRecorder(t, repo)
	ctx := context.Background()
	pos, err := r.Invest(ctx, "u1", InvestInput{OpportunityID: 1, Amount: decimal.NewFromInt(10), Token: "USDC"})
	if err != nil {
		t.Fatalf("invest: %v", err)
	}

	tx, err := r.Withdraw(ctx, "u1", pos.ID)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if tx.TransactionType != models.TransactionTypeWithdraw || !tx.Amount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected withdraw transaction %+v", tx)
	}

	row, _ := repo.GetPositionByID(ctx, pos.ID)
	if row == nil || row.Active {
		t.Fatalf("expected inactive row to remain, got %+v", row)
	}
	agg := &portfolio.Aggregator{Repo: repo, Opportunities: r.Opportunities.(*opportunity.Store)}
	if sum := agg.Summarize(ctx, "u1", portfolio.Range1M); len(sum.Positions) != 0 {
		t.Fatalf("expected position gone from summary, got %+v", sum.Positions)
	}
	invests, _ := r.ListTransactions(ctx, "u1", "invest")
	withdraws, _ := r.ListTransactions(ctx, "u1", "withdraw")
	if len(invests) != 1 || len(withdraws) != 1 {
		t.Fatalf("expected history intact, got %d invest %d withdraw", len(invests), len(withdraws))
	}

	if _, err := r.Withdraw(ctx, "u1", pos.ID); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error on second withdraw, got %v", err)
	}
}

func TestWithdrawOtherUsersPosition(t *testing.T) {
	r, _ := newRecorder(t, memoryrepository.New())
	ctx := context.Background()
	pos, _ := r.Invest(ctx, "owner", InvestInput{OpportunityID: 1, Amount: decimal.NewFromInt(10), Token: "USDC"})
	if _, err := r.Withdraw(ctx, "intruder", pos.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := r.Withdraw(ctx, "owner", 999); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestWithdrawIsAtomic(t *testing.T) {
	mem := memoryrepository.New()
	good, _ := newRecorder(t, mem)
	ctx := context.Background()
	pos, _ := good.Invest(ctx, "u1", InvestInput{OpportunityID: 1, Amount: decimal.NewFromInt(10), Token: "USDC"})

	bad, _ := newRecorder(t, failingTxRepo{mem})
	if _, err := bad.Withdraw(ctx, "u1", pos.ID); err == nil {
		t.Fatalf("expected failure")
	}
	row, _ := mem.GetPositionByID(ctx, pos.ID)
	if row == nil || !row.Active {
		t.Fatalf("position must stay active when the transaction write fails")
	}
}

func TestListTransactionsFilters(t *testing.T) {
	r, _ := newRecorder(t, memoryrepository.New())
	ctx := context.Background()
	_, _ = r.Invest(ctx, "u1", InvestInput{OpportunityID: 1, Amount: decimal.NewFromInt(10), Token: "USDC"})
	if _, err := r.CreateTransaction(ctx, "u1", TransactionInput{OpportunityID: 3, TransactionType: "withdraw", Amount: decimal.NewFromInt(2), Token: "USDT", Status: "failed"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := r.CreateTransaction(ctx, "u1", TransactionInput{OpportunityID: 2, TransactionType: "invest", Amount: decimal.NewFromInt(1), Token: "SOL"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	cases := map[string]int{"all": 3, "": 3, "invest": 2, "withdraw": 1, "completed": 1, "pending": 1, "failed": 1, "bogus": 3}
	for filter, want := range cases {
		got, err := r.ListTransactions(ctx, "u1", filter)
		if err != nil {
			t.Fatalf("%s: %v", filter, err)
		}
		if len(got) != want {
			t.Fatalf("%s: expected %d, got %d", filter, want, len(got))
		}
	}
	if got, _ := r.ListTransactions(ctx, "u2", "all"); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list for other user")
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	r, _ := newRecorder(t, memoryrepository.New())
	ctx := context.Background()
	bad := []TransactionInput{
		{OpportunityID: 1, TransactionType: "swap", Amount: decimal.NewFromInt(1), Token: "SOL"},
		{OpportunityID: 1, TransactionType: "invest", Amount: decimal.NewFromInt(1), Token: "SOL", Status: "done"},
		{OpportunityID: 1, TransactionType: "invest", Amount: decimal.Zero, Token: "SOL"},
		{OpportunityID: 0, TransactionType: "invest", Amount: decimal.NewFromInt(1), Token: "SOL"},
	}
	for i, in := range bad {
		if _, err := r.CreateTransaction(ctx, "u1", in); apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
	tx, err := r.CreateTransaction(ctx, "u1", TransactionInput{OpportunityID: 1, TransactionType: "invest", Amount: decimal.NewFromInt(1), Token: "sol"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tx.Status != models.TransactionStatusPending || tx.TransactionHash != nil || tx.TransactionDate.IsZero() {
		t.Fatalf("unexpected defaults %+v", tx)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	r, _ := newRecorder(t, memoryrepository.New())
	ctx := context.Background()
	tx, _ := r.CreateTransaction(ctx, "u1", TransactionInput{OpportunityID: 1, TransactionType: "invest", Amount: decimal.NewFromInt(1), Token: "SOL"})

	if _, err := r.UpdateStatus(ctx, "u1", tx.ID, "pending"); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := r.UpdateStatus(ctx, "u2", tx.ID, "completed"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found for other user, got %v", err)
	}
	got, err := r.UpdateStatus(ctx, "u1", tx.ID, "completed")
	if err != nil || got.Status != models.TransactionStatusCompleted {
		t.Fatalf("expected completed, got %+v err=%v", got, err)
	}
	if _, err := r.UpdateStatus(ctx, "u1", tx.ID, "failed"); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("terminal status must not change, got %v", err)
	}
}

func TestConcurrentWithdrawLoserGetsValidation(t *testing.T) {
	mem := memoryrepository.New()
	good, _ := newRecorder(t, mem)
	ctx := context.Background()
	pos, _ := good.Invest(ctx, "u1", InvestInput{OpportunityID: 1, Amount: decimal.NewFromInt(10), Token: "USDC"})

	loser, n := newRecorder(t, racingTxRepo{mem})
	if _, err := loser.Withdraw(ctx, "u1", pos.ID); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	withdrawType := models.TransactionTypeWithdraw
	withdraws, _ := mem.ListTransactions(ctx, repository.ListTransactionsParams{UserID: "u1", Type: &withdrawType})
	if len(withdraws) != 0 {
		t.Fatalf("expected no withdraw transaction from the losing request, got %d", len(withdraws))
	}
	if len(n.seen) != 0 {
		t.Fatalf("no notification expected for the losing request")
	}
}

func TestConcurrentStatusUpdateLoserGetsValidation(t *testing.T) {
	mem := memoryrepository.New()
	good, _ := newRecorder(t, mem)
	ctx := context.Background()
	tx, _ := good.CreateTransaction(ctx, "u1", TransactionInput{OpportunityID: 1, TransactionType: "invest", Amount: decimal.NewFromInt(1), Token: "SOL"})

	loser, _ := newRecorder(t, racingTxRepo{mem})
	if _, err := loser.UpdateStatus(ctx, "u1", tx.ID, "failed"); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	row, _ := mem.GetTransactionByID(ctx, tx.ID)
	if row == nil || row.Status != models.TransactionStatusPending {
		t.Fatalf("expected status untouched, got %+v", row)
	}
}
