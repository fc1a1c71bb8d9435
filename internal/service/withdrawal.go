package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Fi44er/roi_ledger/internal/lock"
	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/Fi44er/roi_ledger/internal/roi"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	cooldownDays = 7
	day          = 24 * time.Hour
)

// RequestWithdrawal admits a pending withdrawal when the live raw balance
// covers it and no withdrawal was requested in the last seven days.
func (s *Service) RequestWithdrawal(ctx context.Context, userID uint, amount decimal.Decimal) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidAmount, amount)
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	system, err := s.EnsureSystemWallet(ctx)
	if err != nil {
		return nil, err
	}

	unlock, err := lock.AcquireWait(ctx, s.locker, lock.UserKey(userID), s.config.LockTTL, lockRetry)
	if err != nil {
		return nil, fmt.Errorf("withdrawal lock for user %d: %w", userID, err)
	}
	defer unlock()

	var event *models.Transaction
	err = s.inTransaction(ctx, "request withdrawal", func(tx *gorm.DB) error {
		w, err := s.repo.LockWallet(ctx, user.Wallet.ID, tx)
		if err != nil {
			return err
		}
		if w == nil {
			return fmt.Errorf("wallet %d: %w", user.Wallet.ID, models.ErrNotFound)
		}

		positions, err := s.repo.ListPositions(ctx, userID, tx)
		if err != nil {
			return err
		}
		events, err := s.repo.ListWalletTransactions(ctx, w.ID, tx)
		if err != nil {
			return err
		}

		now := s.now()
		raw := roi.BalanceRaw(positions, events, w.ID, roi.Live(now))
		if raw.LessThan(amount) {
			return &models.InsufficientFundsError{Available: decimal.Max(raw, decimal.Zero), Requested: amount}
		}

		if remaining, active := cooldown(events, w.ID, now); active {
			return &models.CooldownError{DaysRemaining: remaining}
		}

		event = &models.Transaction{
			OriginWalletID:      system.ID,
			DestinationWalletID: w.ID,
			Amount:              amount,
			IsDeposit:           false,
			IsPending:           true,
			IsApproved:          false,
			CreatedAt:           now,
		}
		if err := s.repo.CreateTransaction(ctx, event, tx); err != nil {
			return err
		}
		return s.repo.UpdateWalletBalance(ctx, w.ID, w.Balance.Sub(amount), tx)
	})
	if err != nil {
		s.logger.Warnf("Withdrawal of %s for user %d refused: %v", amount, userID, err)
		return nil, err
	}

	s.logger.Infof("User %d requested withdrawal %d of %s", userID, event.ID, amount)
	if s.notify != nil {
		s.notify(user, event)
	}
	return event, nil
}

// cooldown looks at every withdrawal to the wallet regardless of status.
func cooldown(events []models.Transaction, walletID uint, now time.Time) (int, bool) {
	since := now.Add(-cooldownDays * day)

	var last *models.Transaction
	for i := range events {
		ev := &events[i]
		if ev.IsDeposit || ev.DestinationWalletID != walletID || ev.CreatedAt.Before(since) {
			continue
		}
		if last == nil || ev.CreatedAt.After(last.CreatedAt) {
			last = ev
		}
	}
	if last == nil {
		return 0, false
	}

	remaining := cooldownDays - int(now.Sub(last.CreatedAt)/day)
	if remaining < 1 {
		remaining = 1
	}
	return remaining, true
}

// ReviewWithdrawal approves or rejects a pending withdrawal exactly once.
// Rejection gives the amount back to the wallet cache.
func (s *Service) ReviewWithdrawal(ctx context.Context, eventID, reviewerID uint, approve bool) (*models.Transaction, error) {
	reviewer, err := s.requireAdmin(ctx, reviewerID)
	if err != nil {
		return nil, err
	}

	var event *models.Transaction
	err = s.inTransaction(ctx, "review withdrawal", func(tx *gorm.DB) error {
		ev, err := s.repo.LockTransaction(ctx, eventID, tx)
		if err != nil {
			return err
		}
		if ev == nil {
			return fmt.Errorf("transaction %d: %w", eventID, models.ErrNotFound)
		}
		if ev.IsDeposit {
			return fmt.Errorf("transaction %d: %w", eventID, models.ErrNotPending)
		}
		if !ev.IsPending {
			return fmt.Errorf("transaction %d is %s: %w", eventID, ev.Status(), models.ErrAlreadyProcessed)
		}

		now := s.now()
		ev.IsPending = false
		ev.IsApproved = approve
		ev.ReviewerID = &reviewer.ID
		ev.ReviewedAt = &now
		if err := s.repo.SaveTransaction(ctx, ev, tx); err != nil {
			return err
		}

		w, err := s.repo.LockWallet(ctx, ev.DestinationWalletID, tx)
		if err != nil {
			return err
		}
		if w == nil {
			return fmt.Errorf("wallet %d: %w", ev.DestinationWalletID, models.ErrNotFound)
		}

		if approve {
			if err := s.repo.TouchWallet(ctx, w.ID, now, tx); err != nil {
				return err
			}
		} else {
			if err := s.repo.UpdateWalletBalance(ctx, w.ID, w.Balance.Add(ev.Amount), tx); err != nil {
				return err
			}
		}

		event = ev
		return nil
	})
	if err != nil {
		s.logger.Warnf("Review of withdrawal %d by %d failed: %v", eventID, reviewerID, err)
		return nil, err
	}

	s.logger.Infof("Withdrawal %d %s by admin %d", event.ID, event.Status(), reviewerID)
	return event, nil
}

func (s *Service) ListPendingWithdrawals(ctx context.Context) ([]models.Transaction, error) {
	events, err := s.repo.ListPendingWithdrawals(ctx)
	if err != nil {
		return nil, storageErr("list pending withdrawals", err)
	}
	return events, nil
}
