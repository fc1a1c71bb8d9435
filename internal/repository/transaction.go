package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Fi44er/roi_ledger/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repository) CreateTransaction(ctx context.Context, t *models.Transaction, tx *gorm.DB) error {
	if err := r.conn(tx).WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// LockTransaction loads a ledger event FOR UPDATE inside tx.
func (r *Repository) LockTransaction(ctx context.Context, id uint, tx *gorm.DB) (*models.Transaction, error) {
	var t models.Transaction
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&t, "id = ?", id).
		Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}
	return &t, nil
}

func (r *Repository) SaveTransaction(ctx context.Context, t *models.Transaction, tx *gorm.DB) error {
	if err := r.conn(tx).WithContext(ctx).Save(t).Error; err != nil {
		return fmt.Errorf("failed to save transaction %d: %w", t.ID, err)
	}
	return nil
}

// ListWalletTransactions returns every event touching the wallet, oldest first.
func (r *Repository) ListWalletTransactions(ctx context.Context, walletID uint, tx *gorm.DB) ([]models.Transaction, error) {
	var events []models.Transaction
	err := r.conn(tx).WithContext(ctx).
		Where("origin_wallet_id = ? OR destination_wallet_id = ?", walletID, walletID).
		Order("created_at ASC, id ASC").
		Find(&events).
		Error

	if err != nil {
		return nil, fmt.Errorf("failed to list transactions of wallet %d: %w", walletID, err)
	}
	return events, nil
}

func (r *Repository) ListPendingWithdrawals(ctx context.Context) ([]models.Transaction, error) {
	var events []models.Transaction
	err := r.db.WithContext(ctx).
		Where("is_deposit = ? AND is_pending = ?", false, true).
		Order("created_at ASC, id ASC").
		Find(&events).
		Error

	if err != nil {
		return nil, fmt.Errorf("failed to get pending withdrawals: %w", err)
	}
	return events, nil
}

// ListTransactions returns the whole ledger, newest first.
func (r *Repository) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	var events []models.Transaction
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Find(&events).
		Error

	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return events, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id uint) (*models.Transaction, error) {
	var t models.Transaction
	err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}
	return &t, nil
}
