package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidDepositAmount = errors.New("deposit amount is below the minimum tier")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrCooldownActive       = errors.New("withdrawal cooldown active")
	ErrDuplicateHash        = errors.New("transaction hash already used")
	ErrAlreadyProcessed     = errors.New("transaction has already been processed")
	ErrNotPending           = errors.New("transaction is not a pending withdrawal")
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrUserExists           = errors.New("user already exists")
	ErrLockHeld             = errors.New("lock already held")
	ErrStorageUnavailable   = errors.New("storage unavailable")
)

type InsufficientFundsError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %s, requested %s, short by %s",
		e.Available.StringFixed(8), e.Requested.StringFixed(8), e.Shortfall().StringFixed(8))
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

type CooldownError struct {
	DaysRemaining int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("withdrawal cooldown active: %d day(s) remaining", e.DaysRemaining)
}

func (e *CooldownError) Unwrap() error { return ErrCooldownActive }
