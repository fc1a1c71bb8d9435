// Package roi holds the accrual core: the deposit tier table, ROI positions
// and the pure balance reconciliation functions built on top of them.
package roi

import (
	"fmt"

	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/shopspring/decimal"
)

const secondsPerDay = 24 * 60 * 60

type Tier struct {
	Level        int
	MinDeposit   decimal.Decimal
	TotalROIPct  decimal.Decimal
	DailyPct     decimal.Decimal
	DurationDays int
}

func (t Tier) DurationSeconds() int64 {
	return int64(t.DurationDays) * secondsPerDay
}

// Daily rates are configured independently of TotalROIPct/DurationDays and
// must stay verbatim.
var tiers = []Tier{
	{Level: 1, MinDeposit: decimal.NewFromInt(100), TotalROIPct: decimal.NewFromInt(30), DailyPct: decimal.RequireFromString("1.30"), DurationDays: 100},
	{Level: 2, MinDeposit: decimal.NewFromInt(500), TotalROIPct: decimal.NewFromInt(35), DailyPct: decimal.RequireFromString("7.50"), DurationDays: 90},
	{Level: 3, MinDeposit: decimal.NewFromInt(1000), TotalROIPct: decimal.NewFromInt(40), DailyPct: decimal.RequireFromString("17.50"), DurationDays: 80},
	{Level: 4, MinDeposit: decimal.NewFromInt(3000), TotalROIPct: decimal.NewFromInt(50), DailyPct: decimal.RequireFromString("64.28"), DurationDays: 70},
	{Level: 5, MinDeposit: decimal.NewFromInt(5000), TotalROIPct: decimal.NewFromInt(60), DailyPct: decimal.RequireFromString("133.33"), DurationDays: 60},
}

// Tiers returns a copy of the tier table ordered by MinDeposit.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

func MinDeposit() decimal.Decimal {
	return tiers[0].MinDeposit
}

// ResolveTier picks the highest tier whose inclusive lower bound the amount
// reaches.
func ResolveTier(amount decimal.Decimal) (Tier, error) {
	for i := len(tiers) - 1; i >= 0; i-- {
		if amount.GreaterThanOrEqual(tiers[i].MinDeposit) {
			return tiers[i], nil
		}
	}
	return Tier{}, fmt.Errorf("%w: %s < %s", models.ErrInvalidDepositAmount, amount.String(), MinDeposit().String())
}

func TierByLevel(level int) (Tier, bool) {
	for _, t := range tiers {
		if t.Level == level {
			return t, true
		}
	}
	return Tier{}, false
}
