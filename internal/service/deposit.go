package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/Fi44er/roi_ledger/internal/roi"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Deposit records the ledger event, opens its ROI position and credits the
// wallet cache in one transaction.
func (s *Service) Deposit(ctx context.Context, userID uint, amount decimal.Decimal, hash *string) (*roi.Position, *models.Transaction, error) {
	if _, err := roi.ResolveTier(amount); err != nil {
		return nil, nil, err
	}
	if hash != nil && *hash == "" {
		hash = nil
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	system, err := s.EnsureSystemWallet(ctx)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	event := &models.Transaction{
		OriginWalletID:      user.Wallet.ID,
		DestinationWalletID: system.ID,
		Amount:              amount,
		IsDeposit:           true,
		IsPending:           false,
		IsApproved:          true,
		Hash:                hash,
		CreatedAt:           now,
	}
	var position roi.Position

	err = s.inTransaction(ctx, "deposit", func(tx *gorm.DB) error {
		if err := s.repo.CreateTransaction(ctx, event, tx); err != nil {
			if hash != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: %s", models.ErrDuplicateHash, *hash)
			}
			return err
		}

		p, err := roi.NewPosition(user.ID, amount, &event.ID, now)
		if err != nil {
			return err
		}
		if err := s.repo.CreatePosition(ctx, &p, tx); err != nil {
			return err
		}
		position = p

		w, err := s.repo.LockWallet(ctx, user.Wallet.ID, tx)
		if err != nil {
			return err
		}
		if w == nil {
			return fmt.Errorf("wallet %d: %w", user.Wallet.ID, models.ErrNotFound)
		}
		return s.repo.UpdateWalletBalance(ctx, w.ID, w.Balance.Add(amount), tx)
	})
	if err != nil {
		s.logger.Warnf("Deposit of %s for user %d failed: %v", amount, userID, err)
		return nil, nil, err
	}

	s.logger.Infof("User %d deposited %s, position %d at tier %d", userID, amount, position.ID, position.TierLevel)
	return &position, event, nil
}
