package roi

import (
	"time"

	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/shopspring/decimal"
)

// Cutoff is the instant a balance is evaluated at. Live cutoffs include
// events stamped exactly at At; historical cutoffs exclude them.
type Cutoff struct {
	At        time.Time
	Inclusive bool
}

func Live(now time.Time) Cutoff {
	return Cutoff{At: now, Inclusive: true}
}

func AsOf(at time.Time) Cutoff {
	return Cutoff{At: at}
}

func (c Cutoff) includes(t time.Time) bool {
	if c.Inclusive {
		return !t.After(c.At)
	}
	return t.Before(c.At)
}

type Statement struct {
	Cutoff             time.Time       `json:"cutoff"`
	Principal          decimal.Decimal `json:"principal"`
	Earned             decimal.Decimal `json:"earned"`
	Withdrawn          decimal.Decimal `json:"withdrawn"`
	Raw                decimal.Decimal `json:"raw"`
	Available          decimal.Decimal `json:"available"`
	ActivePositions    int             `json:"active_positions"`
	CompletedPositions int             `json:"completed_positions"`
}

// Summarize reconciles one user's positions and ledger events at cutoff.
// events may contain any of the user's transactions; only withdrawals paid
// to walletID are netted.
func Summarize(positions []Position, events []models.Transaction, walletID uint, cutoff Cutoff) Statement {
	st := Statement{
		Cutoff:    cutoff.At,
		Principal: decimal.Zero,
		Earned:    decimal.Zero,
		Withdrawn: decimal.Zero,
	}

	for i := range positions {
		p := &positions[i]
		if !cutoff.includes(p.CreatedAt) {
			continue
		}
		st.Principal = st.Principal.Add(p.DepositAmount)

		if p.RemainingDuration(cutoff.At) > 0 {
			st.Earned = st.Earned.Add(p.EarnedValue(cutoff.At))
			st.ActivePositions++
			continue
		}
		st.Earned = st.Earned.Add(p.Cap())
		st.CompletedPositions++
	}

	for i := range events {
		if countsAgainst(&events[i], walletID, cutoff) {
			st.Withdrawn = st.Withdrawn.Add(events[i].Amount)
		}
	}

	st.Raw = st.Earned.Sub(st.Withdrawn)
	st.Available = st.Raw
	if st.Available.IsNegative() {
		st.Available = decimal.Zero
	}
	return st
}

// countsAgainst reports whether a withdrawal reduces the balance at cutoff.
// Pending withdrawals count from creation; a rejection stops counting from
// the moment it was reviewed.
func countsAgainst(ev *models.Transaction, walletID uint, cutoff Cutoff) bool {
	if ev.IsDeposit || ev.DestinationWalletID != walletID {
		return false
	}
	if !cutoff.includes(ev.CreatedAt) {
		return false
	}
	if ev.IsRejected() && (ev.ReviewedAt == nil || cutoff.includes(*ev.ReviewedAt)) {
		return false
	}
	return true
}

// BalanceRaw is earned ROI minus withdrawals, without the zero floor.
func BalanceRaw(positions []Position, events []models.Transaction, walletID uint, cutoff Cutoff) decimal.Decimal {
	return Summarize(positions, events, walletID, cutoff).Raw
}

// BalanceAsOf is the user-facing balance, floored at zero.
func BalanceAsOf(positions []Position, events []models.Transaction, walletID uint, cutoff Cutoff) decimal.Decimal {
	return Summarize(positions, events, walletID, cutoff).Available
}
