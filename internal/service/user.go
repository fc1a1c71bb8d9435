package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RegisterUser creates a user together with its wallet. Registering a known
// Telegram id returns the existing user.
func (s *Service) RegisterUser(ctx context.Context, username string, telegramID *int64, isAdmin bool) (*models.User, error) {
	if telegramID != nil {
		existing, err := s.repo.GetUserByTelegramID(ctx, *telegramID)
		if err != nil {
			return nil, storageErr("get user", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	user := &models.User{
		Username:   username,
		TelegramID: telegramID,
		IsAdmin:    isAdmin,
	}

	err := s.inTransaction(ctx, "register user", func(tx *gorm.DB) error {
		if err := s.repo.CreateUser(ctx, user, tx); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: %s", models.ErrUserExists, username)
			}
			return err
		}

		// The address depends on the wallet id, so the row is inserted with a
		// unique provisional address first.
		w := &models.Wallet{
			OwnerID:  &user.ID,
			Address:  fmt.Sprintf("provisional-%d", user.ID),
			Balance:  decimal.Zero,
			IsActive: true,
		}
		if err := s.repo.CreateWallet(ctx, w, tx); err != nil {
			return err
		}

		address, err := s.deriver.Address(w.ID)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateWalletAddress(ctx, w.ID, address, tx); err != nil {
			return err
		}
		w.Address = address
		user.Wallet = w
		return nil
	})
	if err != nil {
		s.logger.Errorf("Failed to register user %s: %v", username, err)
		return nil, err
	}

	s.logger.Infof("Registered user %d (%s) with wallet %s", user.ID, user.Username, user.Wallet.Address)
	return user, nil
}

// GetUser returns the user with its wallet or models.ErrNotFound.
func (s *Service) GetUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, storageErr("get user", err)
	}
	if user == nil || user.Wallet == nil {
		return nil, fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}
	return user, nil
}

func (s *Service) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, storageErr("get user", err)
	}
	if user == nil || user.Wallet == nil {
		return nil, fmt.Errorf("telegram user %d: %w", telegramID, models.ErrNotFound)
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, storageErr("list users", err)
	}
	return users, nil
}
