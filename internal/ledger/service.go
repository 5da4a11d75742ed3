package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campusrun/backend/internal/database"
	"github.com/campusrun/backend/internal/models"
)

// AccountStore is the minimal profile repository interface for settlement.
type AccountStore interface {
	LockProfile(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Profile, error)
	AddCredits(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int) (newBalance int, err error)
}

// TransactionStore is the minimal append-only ledger interface.
type TransactionStore interface {
	CreateTransactionTx(ctx context.Context, tx pgx.Tx, t *models.Transaction) error
}

// Service moves credits between accounts. Every mutation happens inside
// a transaction and appends matching transaction rows; rows are never
// updated or deleted afterwards.
type Service struct {
	db           database.TxBeginner
	accounts     AccountStore
	transactions TransactionStore
}

func NewService(db database.TxBeginner, accounts AccountStore, transactions TransactionStore) *Service {
	return &Service{db: db, accounts: accounts, transactions: transactions}
}

// SettleTx transfers the task reward from poster to helper inside the
// caller's transaction: poster balance -reward, helper balance +reward,
// plus one spent row and one earned row of equal magnitude. Only the
// credits reward kind ever settles; the caller guarantees the task has
// just won the completed transition, so this runs at most once per task.
func (s *Service) SettleTx(ctx context.Context, tx pgx.Tx, task *models.Task) error {
	if task.RewardType != models.RewardCredits {
		return fmt.Errorf("settle called for %s reward task %s", task.RewardType, task.ID)
	}
	if task.AcceptedBy == nil {
		return fmt.Errorf("settle called for task %s with no helper", task.ID)
	}
	poster, helper := task.PostedBy, *task.AcceptedBy

	// Lock both accounts in deterministic order to avoid deadlock.
	ids := []uuid.UUID{poster, helper}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	for _, id := range ids {
		if _, err := s.accounts.LockProfile(ctx, tx, id); err != nil {
			return fmt.Errorf("lock profile %s: %w", id, err)
		}
	}

	if _, err := s.accounts.AddCredits(ctx, tx, poster, -task.Reward); err != nil {
		return fmt.Errorf("debit poster: %w", err)
	}
	if _, err := s.accounts.AddCredits(ctx, tx, helper, task.Reward); err != nil {
		return fmt.Errorf("credit helper: %w", err)
	}

	title := task.Title
	rewardType := task.RewardType
	if err := s.transactions.CreateTransactionTx(ctx, tx, &models.Transaction{
		ID:          uuid.New(),
		UserID:      poster,
		Amount:      -task.Reward,
		Type:        models.TransactionSpent,
		TaskID:      &task.ID,
		Description: fmt.Sprintf("Payment for task: %s", task.Title),
		FromUser:    &poster,
		ToUser:      &helper,
		TaskTitle:   &title,
		RewardType:  &rewardType,
	}); err != nil {
		return fmt.Errorf("record spent: %w", err)
	}
	if err := s.transactions.CreateTransactionTx(ctx, tx, &models.Transaction{
		ID:          uuid.New(),
		UserID:      helper,
		Amount:      task.Reward,
		Type:        models.TransactionEarned,
		TaskID:      &task.ID,
		Description: fmt.Sprintf("Earned from task: %s", task.Title),
		FromUser:    &poster,
		ToUser:      &helper,
		TaskTitle:   &title,
		RewardType:  &rewardType,
	}); err != nil {
		return fmt.Errorf("record earned: %w", err)
	}
	return nil
}

// AdjustCredits applies an admin-signed delta to a user's balance and
// records one admin_adjustment row. No floor check runs here; a
// negative resulting balance is permitted.
func (s *Service) AdjustCredits(ctx context.Context, userID uuid.UUID, delta int, reason string) (newBalance int, err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin adjust tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.accounts.LockProfile(ctx, tx, userID); err != nil {
		return 0, fmt.Errorf("lock profile: %w", err)
	}
	newBalance, err = s.accounts.AddCredits(ctx, tx, userID, delta)
	if err != nil {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}
	if err := s.transactions.CreateTransactionTx(ctx, tx, &models.Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      delta,
		Type:        models.TransactionAdminAdjustment,
		Description: reason,
	}); err != nil {
		return 0, fmt.Errorf("record adjustment: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit adjust tx: %w", err)
	}
	return newBalance, nil
}
