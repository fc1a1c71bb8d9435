package repository

import (
	"context"
	"fmt"

	"github.com/Fi44er/roi_ledger/internal/roi"
	"gorm.io/gorm"
)

func (r *Repository) CreatePosition(ctx context.Context, p *roi.Position, tx *gorm.DB) error {
	if err := r.conn(tx).WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create position: %w", err)
	}
	return nil
}

func (r *Repository) ListPositions(ctx context.Context, ownerID uint, tx *gorm.DB) ([]roi.Position, error) {
	var positions []roi.Position
	err := r.conn(tx).WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC, id ASC").
		Find(&positions).
		Error

	if err != nil {
		return nil, fmt.Errorf("failed to list positions of user %d: %w", ownerID, err)
	}
	return positions, nil
}
