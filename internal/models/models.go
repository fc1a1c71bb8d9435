package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Username   string    `gorm:"uniqueIndex;size:150;not null" json:"username"`
	TelegramID *int64    `gorm:"uniqueIndex" json:"telegram_id,omitempty"`
	IsAdmin    bool      `json:"is_admin"`
	CreatedAt  time.Time `json:"created_at"`

	Wallet *Wallet `gorm:"foreignKey:OwnerID" json:"wallet,omitempty"`
}

// Wallet holds the denormalized balance cache. The system wallet has no owner.
type Wallet struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	OwnerID           *uint           `gorm:"index" json:"owner_id,omitempty"`
	Address           string          `gorm:"uniqueIndex;size:255;not null" json:"address"`
	Balance           decimal.Decimal `gorm:"type:numeric(40,8);not null" json:"balance"`
	IsActive          bool            `json:"is_active"`
	IsSystem          bool            `json:"is_system"`
	LastTransactionAt *time.Time      `json:"last_transaction_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Transaction is a ledger event moving value between a user wallet and the
// system wallet. Deposits flow user -> system, withdrawals system -> user.
type Transaction struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	OriginWalletID      uint            `gorm:"index;not null" json:"origin_wallet_id"`
	DestinationWalletID uint            `gorm:"index;not null" json:"destination_wallet_id"`
	Amount              decimal.Decimal `gorm:"type:numeric(40,8);not null" json:"amount"`
	IsDeposit           bool            `gorm:"index" json:"is_deposit"`
	IsPending           bool            `json:"is_pending"`
	IsApproved          bool            `json:"is_approved"`
	Comment             string          `json:"comment,omitempty"`
	ReviewerID          *uint           `json:"reviewer_id,omitempty"`
	ReviewedAt          *time.Time      `json:"reviewed_at,omitempty"`
	Hash                *string         `gorm:"uniqueIndex;size:255" json:"hash,omitempty"`
	CreatedAt           time.Time       `gorm:"index" json:"created_at"`
}

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

func (t *Transaction) Status() string {
	switch {
	case t.IsPending:
		return StatusPending
	case t.IsApproved:
		return StatusApproved
	default:
		return StatusRejected
	}
}

func (t *Transaction) Kind() string {
	if t.IsDeposit {
		return "deposit"
	}
	return "withdrawal"
}

// IsRejected reports whether a reviewer declined the event.
func (t *Transaction) IsRejected() bool {
	return !t.IsPending && !t.IsApproved
}

// WithdrawalNotifier is told about every admitted withdrawal request.
type WithdrawalNotifier func(user *User, ev *Transaction)
