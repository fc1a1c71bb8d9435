package roi

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	earnedPrecision = 10
	nanoExp         = -9
)

var (
	hundred      = decimal.NewFromInt(100)
	accrualDenom = decimal.NewFromInt(100 * secondsPerDay)
)

// Position is one deposit's accrual record. Tier fields are stamped once by
// NewPosition and never recomputed, even if the tier table changes later.
type Position struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	OwnerID         uint            `gorm:"index;not null" json:"owner_id"`
	DepositAmount   decimal.Decimal `gorm:"type:numeric(40,8);not null" json:"deposit_amount"`
	TierLevel       int             `gorm:"not null" json:"tier_level"`
	TotalROIPct     decimal.Decimal `gorm:"column:roi_percentage;type:numeric(40,8);not null" json:"roi_percentage"`
	DailyPct        decimal.Decimal `gorm:"column:daily_percentage;type:numeric(40,8);not null" json:"daily_percentage"`
	DurationSeconds int64           `gorm:"not null" json:"duration_seconds"`
	TransactionID   *uint           `gorm:"index" json:"transaction_id,omitempty"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
}

func (Position) TableName() string {
	return "roi_positions"
}

// NewPosition resolves the tier for amount and stamps the derived fields.
// It is the only way to build a Position.
func NewPosition(ownerID uint, amount decimal.Decimal, linkedEvent *uint, now time.Time) (Position, error) {
	tier, err := ResolveTier(amount)
	if err != nil {
		return Position{}, err
	}

	return Position{
		OwnerID:         ownerID,
		DepositAmount:   amount,
		TierLevel:       tier.Level,
		TotalROIPct:     tier.TotalROIPct,
		DailyPct:        tier.DailyPct,
		DurationSeconds: tier.DurationSeconds(),
		TransactionID:   linkedEvent,
		CreatedAt:       now,
	}, nil
}

func (p *Position) duration() time.Duration {
	return time.Duration(p.DurationSeconds) * time.Second
}

func (p *Position) EndsAt() time.Time {
	return p.CreatedAt.Add(p.duration())
}

// Cap is the total return once the duration has elapsed.
func (p *Position) Cap() decimal.Decimal {
	return p.DepositAmount.Mul(p.TotalROIPct).Div(hundred)
}

// EarnedValue is the continuous accrual at asOf. Before creation it is zero,
// after the duration it is exactly Cap, and in between it never exceeds Cap.
func (p *Position) EarnedValue(asOf time.Time) decimal.Decimal {
	elapsed := asOf.Sub(p.CreatedAt)
	if elapsed <= 0 {
		return decimal.Zero
	}

	capped := p.Cap()
	if elapsed >= p.duration() {
		return capped
	}

	seconds := decimal.New(elapsed.Nanoseconds(), nanoExp)
	earned := p.DepositAmount.Mul(p.DailyPct).Mul(seconds).Div(accrualDenom).RoundBank(earnedPrecision)
	if earned.GreaterThan(capped) {
		return capped
	}
	return earned
}

func (p *Position) RemainingDuration(asOf time.Time) time.Duration {
	remaining := p.duration() - asOf.Sub(p.CreatedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}
