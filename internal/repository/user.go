package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Fi44er/roi_ledger/internal/models"
	"gorm.io/gorm"
)

func (r *Repository) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Wallet").First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return &user, nil
}

func (r *Repository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Wallet").First(&user, "telegram_id = ?", telegramID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by telegram id %d: %w", telegramID, err)
	}
	return &user, nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := r.db.WithContext(ctx).
		Preload("Wallet").
		Order("id ASC").
		Find(&users).
		Error

	if err != nil {
		r.logger.Errorf("failed to list users: %v", err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *Repository) CreateUser(ctx context.Context, user *models.User, tx *gorm.DB) error {
	if err := r.conn(tx).WithContext(ctx).Omit("Wallet").Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}
