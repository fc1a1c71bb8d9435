package service

import (
	"context"
	"time"

	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/Fi44er/roi_ledger/internal/roi"
	"github.com/Fi44er/roi_ledger/utils"
	"github.com/shopspring/decimal"
)

type ledger struct {
	user      *models.User
	positions []roi.Position
	events    []models.Transaction
}

func (s *Service) loadLedger(ctx context.Context, userID uint) (*ledger, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	positions, err := s.repo.ListPositions(ctx, userID, nil)
	if err != nil {
		return nil, storageErr("list positions", err)
	}
	events, err := s.repo.ListWalletTransactions(ctx, user.Wallet.ID, nil)
	if err != nil {
		return nil, storageErr("list transactions", err)
	}

	return &ledger{user: user, positions: positions, events: events}, nil
}

func (s *Service) cutoff(asOf *time.Time) roi.Cutoff {
	if asOf == nil {
		return roi.Live(s.now())
	}
	return roi.AsOf(asOf.UTC())
}

// GetBalance is the display balance, live when asOf is nil.
func (s *Service) GetBalance(ctx context.Context, userID uint, asOf *time.Time) (decimal.Decimal, error) {
	st, err := s.GetStatement(ctx, userID, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	return st.Available, nil
}

func (s *Service) GetStatement(ctx context.Context, userID uint, asOf *time.Time) (*roi.Statement, error) {
	l, err := s.loadLedger(ctx, userID)
	if err != nil {
		return nil, err
	}

	st := roi.Summarize(l.positions, l.events, l.user.Wallet.ID, s.cutoff(asOf))
	return &st, nil
}

// GetBalanceByDate is the balance at 00:00 UTC of the given day.
func (s *Service) GetBalanceByDate(ctx context.Context, userID uint, day time.Time) (*roi.Statement, error) {
	start := utils.StartOfDay(day)
	return s.GetStatement(ctx, userID, &start)
}

func (s *Service) ListTransactions(ctx context.Context, userID uint) ([]models.Transaction, error) {
	l, err := s.loadLedger(ctx, userID)
	if err != nil {
		return nil, err
	}
	return l.events, nil
}

func (s *Service) ListPositions(ctx context.Context, userID uint) ([]roi.Position, error) {
	if _, err := s.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	positions, err := s.repo.ListPositions(ctx, userID, nil)
	if err != nil {
		return nil, storageErr("list positions", err)
	}
	return positions, nil
}
