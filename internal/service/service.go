package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Fi44er/roi_ledger/config"
	"github.com/Fi44er/roi_ledger/internal/lock"
	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/Fi44er/roi_ledger/internal/roi"
	"github.com/Fi44er/roi_ledger/internal/wallet"
	"github.com/Fi44er/roi_ledger/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const lockRetry = 25 * time.Millisecond

type Service struct {
	repo    Repository
	locker  lock.Locker
	deriver *wallet.Deriver
	logger  *utils.Logger
	config  *config.Config

	clock  func() time.Time
	notify models.WithdrawalNotifier

	mu           sync.Mutex
	systemWallet *models.Wallet
}

type Repository interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	CreateUser(ctx context.Context, user *models.User, tx *gorm.DB) error

	CreateWallet(ctx context.Context, wallet *models.Wallet, tx *gorm.DB) error
	EnsureSystemWallet(ctx context.Context, address string) (*models.Wallet, error)
	UpdateWalletAddress(ctx context.Context, walletID uint, address string, tx *gorm.DB) error
	LockWallet(ctx context.Context, walletID uint, tx *gorm.DB) (*models.Wallet, error)
	UpdateWalletBalance(ctx context.Context, walletID uint, balance decimal.Decimal, tx *gorm.DB) error
	TouchWallet(ctx context.Context, walletID uint, at time.Time, tx *gorm.DB) error

	CreateTransaction(ctx context.Context, t *models.Transaction, tx *gorm.DB) error
	LockTransaction(ctx context.Context, id uint, tx *gorm.DB) (*models.Transaction, error)
	SaveTransaction(ctx context.Context, t *models.Transaction, tx *gorm.DB) error
	ListWalletTransactions(ctx context.Context, walletID uint, tx *gorm.DB) ([]models.Transaction, error)
	ListPendingWithdrawals(ctx context.Context) ([]models.Transaction, error)
	ListTransactions(ctx context.Context) ([]models.Transaction, error)
	GetTransaction(ctx context.Context, id uint) (*models.Transaction, error)

	CreatePosition(ctx context.Context, p *roi.Position, tx *gorm.DB) error
	ListPositions(ctx context.Context, ownerID uint, tx *gorm.DB) ([]roi.Position, error)

	BeginTransaction(ctx context.Context) (*gorm.DB, error)
	Commit(tx *gorm.DB) error
	Rollback(tx *gorm.DB)
}

func NewService(repo Repository, locker lock.Locker, deriver *wallet.Deriver, cfg *config.Config, logger *utils.Logger) *Service {
	return &Service{
		repo:    repo,
		locker:  locker,
		deriver: deriver,
		logger:  logger,
		config:  cfg,
		clock:   time.Now,
	}
}

// SetClock replaces the time source. Tests use it to move time.
func (s *Service) SetClock(clock func() time.Time) {
	s.clock = clock
}

func (s *Service) SetWithdrawalNotifier(fn models.WithdrawalNotifier) {
	s.notify = fn
}

// now is UTC at microsecond precision, the resolution postgres stores.
func (s *Service) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

// EnsureSystemWallet creates the counterparty wallet on first use and caches it.
func (s *Service) EnsureSystemWallet(ctx context.Context) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.systemWallet != nil {
		return s.systemWallet, nil
	}

	w, err := s.repo.EnsureSystemWallet(ctx, s.config.SystemWalletAddress)
	if err != nil {
		return nil, storageErr("ensure system wallet", err)
	}
	s.systemWallet = w
	s.logger.Infof("System wallet %s ready (id %d)", w.Address, w.ID)
	return w, nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrStorageUnavailable, err)
}

// isDomainErr reports errors that must reach the caller unchanged.
func isDomainErr(err error) bool {
	for _, target := range []error{
		models.ErrInvalidDepositAmount,
		models.ErrInvalidAmount,
		models.ErrInsufficientFunds,
		models.ErrCooldownActive,
		models.ErrDuplicateHash,
		models.ErrAlreadyProcessed,
		models.ErrNotPending,
		models.ErrNotFound,
		models.ErrForbidden,
		models.ErrUserExists,
		models.ErrLockHeld,
		models.ErrStorageUnavailable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// inTransaction runs fn inside one database transaction. Errors not already
// classified are reported as storage failures.
func (s *Service) inTransaction(ctx context.Context, op string, fn func(tx *gorm.DB) error) (err error) {
	tx, err := s.repo.BeginTransaction(ctx)
	if err != nil {
		return storageErr(op, err)
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("Panic occurred in %s: %v", op, r)
			s.repo.Rollback(tx)
			panic(r)
		}
	}()

	if err = fn(tx); err != nil {
		s.repo.Rollback(tx)
		if isDomainErr(err) {
			return err
		}
		return storageErr(op, err)
	}

	if err = s.repo.Commit(tx); err != nil {
		return storageErr(op, err)
	}
	return nil
}
