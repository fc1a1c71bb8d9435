package service

import (
	"context"
	"fmt"

	"github.com/Fi44er/roi_ledger/internal/models"
)

// requireAdmin loads the caller and refuses anyone without the admin flag.
func (s *Service) requireAdmin(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, storageErr("get user", err)
	}
	if user == nil || !user.IsAdmin {
		return nil, fmt.Errorf("user %d: %w", userID, models.ErrForbidden)
	}
	return user, nil
}

// ListAllTransactions is the full ledger for staff, newest first.
func (s *Service) ListAllTransactions(ctx context.Context, callerID uint) ([]models.Transaction, error) {
	if _, err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}

	events, err := s.repo.ListTransactions(ctx)
	if err != nil {
		return nil, storageErr("list transactions", err)
	}
	return events, nil
}

func (s *Service) GetTransaction(ctx context.Context, callerID, id uint) (*models.Transaction, error) {
	if _, err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}

	ev, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, storageErr("get transaction", err)
	}
	if ev == nil {
		return nil, fmt.Errorf("transaction %d: %w", id, models.ErrNotFound)
	}
	return ev, nil
}
