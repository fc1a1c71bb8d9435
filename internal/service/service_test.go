package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Fi44er/roi_ledger/config"
	"github.com/Fi44er/roi_ledger/db"
	"github.com/Fi44er/roi_ledger/internal/lock"
	"github.com/Fi44er/roi_ledger/internal/models"
	"github.com/Fi44er/roi_ledger/internal/repository"
	"github.com/Fi44er/roi_ledger/internal/wallet"
	"github.com/Fi44er/roi_ledger/utils"
	"github.com/shopspring/decimal"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func newTestService(t *testing.T) (*Service, *testClock) {
	t.Helper()
	logger := utils.InitLogger("error")

	database, err := db.ConnectSqlite(filepath.Join(t.TempDir(), "ledger.db"), logger)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.Migrate(database, true, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	deriver, err := wallet.NewDeriver("", "testnet3")
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{SystemWalletAddress: "SYSTEM_WALLET", LockTTL: time.Minute}

	svc := NewService(repository.NewRepository(database, logger), lock.NewMemoryLocker(), deriver, cfg, logger)
	clock := &testClock{t: t0}
	svc.SetClock(clock.Now)
	return svc, clock
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func register(t *testing.T, svc *Service, name string, admin bool) *models.User {
	t.Helper()
	u, err := svc.RegisterUser(context.Background(), name, nil, admin)
	if err != nil {
		t.Fatalf("RegisterUser(%s): %v", name, err)
	}
	return u
}

func TestRegisterUserCreatesWallet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	system, err := svc.EnsureSystemWallet(ctx)
	if err != nil {
		t.Fatal(err)
	}

	chat := int64(1001)
	u, err := svc.RegisterUser(ctx, "alice", &chat, false)
	if err != nil {
		t.Fatal(err)
	}
	if u.Wallet == nil || u.Wallet.IsSystem || u.Wallet.ID == system.ID {
		t.Fatalf("wallet = %+v", u.Wallet)
	}
	if u.Wallet.ID == u.ID {
		t.Fatalf("wallet id %d equals user id, address source is ambiguous", u.Wallet.ID)
	}
	if want := fmt.Sprintf("W-%d", u.Wallet.ID); u.Wallet.Address != want {
		t.Fatalf("address = %q, want %q", u.Wallet.Address, want)
	}
	stored, err := svc.GetUser(ctx, u.ID)
	if err != nil || stored.Wallet.Address != u.Wallet.Address {
		t.Fatalf("stored wallet = %+v, %v", stored.Wallet, err)
	}

	again, err := svc.RegisterUser(ctx, "alice-renamed", &chat, false)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != u.ID {
		t.Fatalf("re-registration created user %d, want %d", again.ID, u.ID)
	}

	if _, err := svc.RegisterUser(ctx, "alice", nil, false); !errors.Is(err, models.ErrUserExists) {
		t.Fatalf("duplicate username err = %v", err)
	}
	if _, err := svc.GetUser(ctx, 999); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("GetUser(missing) err = %v", err)
	}
}

func TestDepositOpensPosition(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "alice", false)

	hash := "0xabc"
	p, ev, err := svc.Deposit(ctx, u.ID, dec("100"), &hash)
	if err != nil {
		t.Fatal(err)
	}
	if p.TierLevel != 1 || p.TransactionID == nil || *p.TransactionID != ev.ID {
		t.Fatalf("position = %+v", p)
	}
	if !ev.IsDeposit || ev.Status() != models.StatusApproved || ev.OriginWalletID != u.Wallet.ID {
		t.Fatalf("event = %+v", ev)
	}

	clock.Set(t0.Add(12 * time.Hour))
	bal, err := svc.GetBalance(ctx, u.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bal.Equal(dec("0.65")) {
		t.Fatalf("balance = %s, want 0.65", bal)
	}

	fresh, _ := svc.GetUser(ctx, u.ID)
	if !fresh.Wallet.Balance.Equal(dec("100")) {
		t.Fatalf("wallet cache = %s", fresh.Wallet.Balance)
	}
}

func TestDepositRejections(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "alice", false)

	if _, _, err := svc.Deposit(ctx, u.ID, dec("99"), nil); !errors.Is(err, models.ErrInvalidDepositAmount) {
		t.Fatalf("small deposit err = %v", err)
	}

	hash := "dup"
	if _, _, err := svc.Deposit(ctx, u.ID, dec("500"), &hash); err != nil {
		t.Fatal(err)
	}
	if _, _, err := svc.Deposit(ctx, u.ID, dec("500"), &hash); !errors.Is(err, models.ErrDuplicateHash) {
		t.Fatalf("duplicate hash err = %v", err)
	}

	positions, err := svc.ListPositions(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(positions))
	}

	if _, _, err := svc.Deposit(ctx, 999, dec("500"), nil); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("unknown user err = %v", err)
	}
}

func TestWithdrawalInsufficientFunds(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "alice", false)

	if _, _, err := svc.Deposit(ctx, u.ID, dec("100"), nil); err != nil {
		t.Fatal(err)
	}
	clock.Set(t0.Add(12 * time.Hour))

	_, err := svc.RequestWithdrawal(ctx, u.ID, dec("1"))
	var insufficient *models.InsufficientFundsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want InsufficientFundsError", err)
	}
	if !insufficient.Available.Equal(dec("0.65")) || !insufficient.Shortfall().Equal(dec("0.35")) {
		t.Fatalf("available/shortfall = %s/%s", insufficient.Available, insufficient.Shortfall())
	}
	if !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatal("error does not unwrap to ErrInsufficientFunds")
	}

	for _, bad := range []string{"0", "-5"} {
		if _, err := svc.RequestWithdrawal(ctx, u.ID, dec(bad)); !errors.Is(err, models.ErrInvalidAmount) {
			t.Fatalf("amount %s err = %v", bad, err)
		}
	}
}

func TestWithdrawalCooldown(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "alice", false)

	clock.Set(t0.Add(-200 * 24 * time.Hour))
	if _, _, err := svc.Deposit(ctx, u.ID, dec("100"), nil); err != nil {
		t.Fatal(err)
	}

	clock.Set(t0)
	first, err := svc.RequestWithdrawal(ctx, u.ID, dec("10"))
	if err != nil {
		t.Fatal(err)
	}
	if first.Status() != models.StatusPending || first.IsDeposit {
		t.Fatalf("withdrawal = %+v", first)
	}

	bal, err := svc.GetBalance(ctx, u.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bal.Equal(dec("20")) {
		t.Fatalf("balance with pending withdrawal = %s, want 20", bal)
	}

	tests := []struct {
		name string
		at   time.Time
		days int
	}{
		{"same day", t0.Add(time.Hour), 7},
		{"after six days", t0.Add(6 * 24 * time.Hour), 1},
		{"exactly seven days", t0.Add(7 * 24 * time.Hour), 1},
	}
	for _, tt := range tests {
		clock.Set(tt.at)
		_, err := svc.RequestWithdrawal(ctx, u.ID, dec("1"))
		var cd *models.CooldownError
		if !errors.As(err, &cd) {
			t.Fatalf("%s: err = %v, want CooldownError", tt.name, err)
		}
		if cd.DaysRemaining != tt.days {
			t.Fatalf("%s: days remaining = %d, want %d", tt.name, cd.DaysRemaining, tt.days)
		}
	}

	clock.Set(t0.Add(7*24*time.Hour + time.Second))
	if _, err := svc.RequestWithdrawal(ctx, u.ID, dec("1")); err != nil {
		t.Fatalf("withdrawal after cooldown: %v", err)
	}
}

func TestRejectedWithdrawalStillStartsCooldown(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "alice", false)
	admin := register(t, svc, "root", true)

	clock.Set(t0.Add(-200 * 24 * time.Hour))
	if _, _, err := svc.Deposit(ctx, u.ID, dec("100"), nil); err != nil {
		t.Fatal(err)
	}
	clock.Set(t0)
	w, err := svc.RequestWithdrawal(ctx, u.ID, dec("10"))
	if err != nil {
		t.Fatal(err)
	}
	clock.Set(t0.Add(time.Hour))
	if _, err := svc.ReviewWithdrawal(ctx, w.ID, admin.ID, false); err != nil {
		t.Fatal(err)
	}

	clock.Set(t0.Add(2 * 24 * time.Hour))
	if _, err := svc.RequestWithdrawal(ctx, u.ID, dec("1")); !errors.Is(err, models.ErrCooldownActive) {
		t.Fatalf("err = %v, want ErrCooldownActive", err)
	}
}

func TestReviewWithdrawal(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "alice", false)
	admin := register(t, svc, "root", true)

	clock.Set(t0.Add(-200 * 24 * time.Hour))
	_, deposit, err := svc.Deposit(ctx, u.ID, dec("100"), nil)
	if err != nil {
		t.Fatal(err)
	}

	clock.Set(t0)
	first, err := svc.RequestWithdrawal(ctx, u.ID, dec("10"))
	if err != nil {
		t.Fatal(err)
	}

	pending, err := svc.ListPendingWithdrawals(ctx)
	if err != nil || len(pending) != 1 || pending[0].ID != first.ID {
		t.Fatalf("pending = %+v, %v", pending, err)
	}

	if _, err := svc.ReviewWithdrawal(ctx, first.ID, u.ID, true); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("non-admin review err = %v", err)
	}
	if _, err := svc.ReviewWithdrawal(ctx, deposit.ID, admin.ID, true); !errors.Is(err, models.ErrNotPending) {
		t.Fatalf("deposit review err = %v", err)
	}
	if _, err := svc.ReviewWithdrawal(ctx, 4242, admin.ID, true); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("unknown review err = %v", err)
	}

	clock.Set(t0.Add(time.Hour))
	approved, err := svc.ReviewWithdrawal(ctx, first.ID, admin.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if approved.Status() != models.StatusApproved || approved.ReviewedAt == nil || *approved.ReviewerID != admin.ID {
		t.Fatalf("approved = %+v", approved)
	}
	if _, err := svc.ReviewWithdrawal(ctx, first.ID, admin.ID, false); !errors.Is(err, models.ErrAlreadyProcessed) {
		t.Fatalf("second review err = %v", err)
	}

	fresh, _ := svc.GetUser(ctx, u.ID)
	if !fresh.Wallet.Balance.Equal(dec("90")) {
		t.Fatalf("wallet cache after approval = %s", fresh.Wallet.Balance)
	}
	if fresh.Wallet.LastTransactionAt == nil || !fresh.Wallet.LastTransactionAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("last transaction at = %v", fresh.Wallet.LastTransactionAt)
	}

	pending, _ = svc.ListPendingWithdrawals(ctx)
	if len(pending) != 0 {
		t.Fatalf("pending after review = %d", len(pending))
	}
}

func TestRejectionRestoresBalance(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "alice", false)
	admin := register(t, svc, "root", true)

	clock.Set(t0.Add(-200 * 24 * time.Hour))
	if _, _, err := svc.Deposit(ctx, u.ID, dec("100"), nil); err != nil {
		t.Fatal(err)
	}

	clock.Set(t0)
	w, err := svc.RequestWithdrawal(ctx, u.ID, dec("10"))
	if err != nil {
		t.Fatal(err)
	}

	rejectedAt := t0.Add(24 * time.Hour)
	clock.Set(rejectedAt)
	rejected, err := svc.ReviewWithdrawal(ctx, w.ID, admin.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if rejected.Status() != models.StatusRejected {
		t.Fatalf("status = %s", rejected.Status())
	}

	fresh, _ := svc.GetUser(ctx, u.ID)
	if !fresh.Wallet.Balance.Equal(dec("100")) {
		t.Fatalf("wallet cache after rejection = %s", fresh.Wallet.Balance)
	}

	live, err := svc.GetBalance(ctx, u.ID, nil)
	if err != nil || !live.Equal(dec("30")) {
		t.Fatalf("live balance = %s, %v", live, err)
	}

	// Before the rejection the withdrawal was still held against the balance.
	mid := t0.Add(12 * time.Hour)
	past, err := svc.GetBalance(ctx, u.ID, &mid)
	if err != nil || !past.Equal(dec("20")) {
		t.Fatalf("balance while pending = %s, %v", past, err)
	}
}

func TestConcurrentWithdrawalsAreSerialized(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "alice", false)

	clock.Set(t0.Add(-200 * 24 * time.Hour))
	if _, _, err := svc.Deposit(ctx, u.ID, dec("100"), nil); err != nil {
		t.Fatal(err)
	}
	clock.Set(t0)

	const workers = 4
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RequestWithdrawal(ctx, u.ID, dec("20"))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, models.ErrCooldownActive), errors.Is(err, models.ErrInsufficientFunds):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("succeeded = %d, want 1", succeeded)
	}

	bal, _ := svc.GetBalance(ctx, u.ID, nil)
	if !bal.Equal(dec("10")) {
		t.Fatalf("balance = %s, want 10", bal)
	}
}

func TestBalanceByDate(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "alice", false)

	if _, _, err := svc.Deposit(ctx, u.ID, dec("100"), nil); err != nil {
		t.Fatal(err)
	}
	clock.Set(t0.Add(30 * 24 * time.Hour))

	st, err := svc.GetBalanceByDate(ctx, u.ID, time.Date(2025, 3, 2, 18, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if !st.Available.Equal(dec("0.65")) || st.ActivePositions != 1 {
		t.Fatalf("statement = %+v", st)
	}

	st, err = svc.GetBalanceByDate(ctx, u.ID, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if !st.Available.IsZero() || !st.Principal.IsZero() {
		t.Fatalf("statement before deposit = %+v", st)
	}
}

func TestWithdrawalNotifier(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "alice", false)

	var notified *models.Transaction
	svc.SetWithdrawalNotifier(func(user *models.User, ev *models.Transaction) {
		if user.ID == u.ID {
			notified = ev
		}
	})

	clock.Set(t0.Add(-200 * 24 * time.Hour))
	if _, _, err := svc.Deposit(ctx, u.ID, dec("100"), nil); err != nil {
		t.Fatal(err)
	}
	clock.Set(t0)
	w, err := svc.RequestWithdrawal(ctx, u.ID, dec("5"))
	if err != nil {
		t.Fatal(err)
	}
	if notified == nil || notified.ID != w.ID {
		t.Fatalf("notifier got %+v", notified)
	}
}

func TestStaffTransactionViews(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()
	u := register(t, svc, "alice", false)
	admin := register(t, svc, "root", true)

	clock.Set(t0.Add(-200 * 24 * time.Hour))
	_, deposit, err := svc.Deposit(ctx, u.ID, dec("100"), nil)
	if err != nil {
		t.Fatal(err)
	}
	clock.Set(t0)
	withdrawal, err := svc.RequestWithdrawal(ctx, u.ID, dec("10"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.ListAllTransactions(ctx, u.ID); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("non-admin list err = %v", err)
	}
	if _, err := svc.GetTransaction(ctx, u.ID, deposit.ID); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("non-admin get err = %v", err)
	}

	all, err := svc.ListAllTransactions(ctx, admin.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ID != withdrawal.ID || all[1].ID != deposit.ID {
		t.Fatalf("all = %+v", all)
	}

	got, err := svc.GetTransaction(ctx, admin.ID, deposit.ID)
	if err != nil || !got.IsDeposit || !got.Amount.Equal(dec("100")) {
		t.Fatalf("get = %+v, %v", got, err)
	}
	if _, err := svc.GetTransaction(ctx, admin.ID, 4242); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("unknown id err = %v", err)
	}
}
