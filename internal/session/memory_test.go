package session

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestGetCreatesDefault(t *testing.T) {
	store := NewMemoryStore()
	sess, err := store.Get(context.Background(), 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.UserID != 42 {
		t.Fatalf("user id = %d, want 42", sess.UserID)
	}
	if sess.Verified || sess.HasWallet() || sess.HasActiveLoan() {
		t.Fatalf("default session not empty: %+v", sess)
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	in := &Session{
		UserID:        7,
		ChatID:        70,
		WalletAddress: "0xabc",
		Verified:      true,
		ActiveLoan: &Loan{
			ID:              "0xloan",
			Principal:       decimal.NewFromInt(10),
			APRBasisPoints:  1250,
			DurationHours:   336,
			DueDate:         time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC),
			RepaymentAmount: decimal.RequireFromString("10.05"),
			MagReward:       decimal.RequireFromString("0.150"),
			Status:          LoanActive,
		},
	}
	if err := store.Set(ctx, in); err != nil {
		t.Fatalf("set: %v", err)
	}

	out, err := store.Get(ctx, 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.WalletAddress != "0xabc" || !out.Verified {
		t.Fatalf("round trip lost fields: %+v", out)
	}
	if !out.HasActiveLoan() {
		t.Fatal("round trip lost active loan")
	}
	if !out.ActiveLoan.RepaymentAmount.Equal(in.ActiveLoan.RepaymentAmount) {
		t.Fatalf("repayment = %s, want %s", out.ActiveLoan.RepaymentAmount, in.ActiveLoan.RepaymentAmount)
	}
}

func TestGetReturnsIsolatedCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Set(ctx, &Session{UserID: 1, WalletAddress: "0xabc"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	first, _ := store.Get(ctx, 1)
	first.WalletAddress = "0xmutated"

	second, _ := store.Get(ctx, 1)
	if second.WalletAddress != "0xabc" {
		t.Fatalf("caller mutation leaked into store: %s", second.WalletAddress)
	}
}

func TestActiveLoanSessionsFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	withLoan := &Session{UserID: 1, WalletAddress: "0xa", Verified: true,
		ActiveLoan: &Loan{ID: "l1", Status: LoanActive}}
	repaid := &Session{UserID: 2, WalletAddress: "0xb", Verified: true,
		ActiveLoan: &Loan{ID: "l2", Status: LoanRepaid}}
	noLoan := &Session{UserID: 3, WalletAddress: "0xc", Verified: true}

	for _, s := range []*Session{withLoan, repaid, noLoan} {
		if err := store.Set(ctx, s); err != nil {
			t.Fatalf("set %d: %v", s.UserID, err)
		}
	}

	active, err := store.ActiveLoanSessions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 1 || active[0].UserID != 1 {
		t.Fatalf("active sessions = %+v, want only user 1", active)
	}
}
