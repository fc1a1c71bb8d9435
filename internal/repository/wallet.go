package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repository) CreateWallet(ctx context.Context, wallet *models.Wallet, tx *gorm.DB) error {
	if err := r.conn(tx).WithContext(ctx).Create(wallet).Error; err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (r *Repository) UpdateWalletAddress(ctx context.Context, walletID uint, address string, tx *gorm.DB) error {
	err := r.conn(tx).WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Update("address", address).
		Error
	if err != nil {
		return fmt.Errorf("failed to set address for wallet %d: %w", walletID, err)
	}
	return nil
}

// EnsureSystemWallet returns the ownerless wallet with the given address,
// creating it on first use.
func (r *Repository) EnsureSystemWallet(ctx context.Context, address string) (*models.Wallet, error) {
	wallet := models.Wallet{
		Address:  address,
		Balance:  decimal.Zero,
		IsActive: true,
		IsSystem: true,
	}
	err := r.db.WithContext(ctx).
		Where(models.Wallet{Address: address}).
		FirstOrCreate(&wallet).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to ensure system wallet %s: %w", address, err)
	}
	return &wallet, nil
}

// LockWallet loads the wallet row with SELECT ... FOR UPDATE. tx must be an
// open transaction.
func (r *Repository) LockWallet(ctx context.Context, walletID uint, tx *gorm.DB) (*models.Wallet, error) {
	var wallet models.Wallet
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&wallet, "id = ?", walletID).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock wallet %d: %w", walletID, err)
	}
	return &wallet, nil
}

func (r *Repository) UpdateWalletBalance(ctx context.Context, walletID uint, balance decimal.Decimal, tx *gorm.DB) error {
	res := r.conn(tx).WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Update("balance", balance)

	if res.Error != nil {
		r.logger.Errorf("failed to update balance of wallet %d: %v", walletID, res.Error)
		return fmt.Errorf("failed to update wallet balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("wallet %d not found for balance update", walletID)
	}
	return nil
}

func (r *Repository) TouchWallet(ctx context.Context, walletID uint, at time.Time, tx *gorm.DB) error {
	err := r.conn(tx).WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", walletID).
		Update("last_transaction_at", at).
		Error
	if err != nil {
		return fmt.Errorf("failed to stamp wallet %d: %w", walletID, err)
	}
	return nil
}
