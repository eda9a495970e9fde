package lending

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Tytandoteth/magbot-test-mode/internal/identity"
	"github.com/Tytandoteth/magbot-test-mode/internal/session"
)

type fakeIssuer struct {
	calls int
	fail  error
}

func (f *fakeIssuer) IssueLoan(_ context.Context, _ int64, _ int, _, _ int64) (string, error) {
	f.calls++
	if f.fail != nil {
		return "", f.fail
	}
	return "0xtest-tx", nil
}

func readySession() *session.Session {
	return &session.Session{UserID: 1, ChatID: 2, WalletAddress: "0xabc", Verified: true}
}

func TestSelectAmountGates(t *testing.T) {
	lc := NewLifecycle(NewCatalog(), &fakeIssuer{}, 1)

	if _, err := lc.SelectAmount(&session.Session{UserID: 1, Verified: true}, 10); !errors.Is(err, identity.ErrNoWallet) {
		t.Fatalf("no wallet: got %v, want ErrNoWallet", err)
	}
	if _, err := lc.SelectAmount(&session.Session{UserID: 1, WalletAddress: "0xabc"}, 10); !errors.Is(err, identity.ErrNotVerified) {
		t.Fatalf("unverified: got %v, want ErrNotVerified", err)
	}
	if _, err := lc.SelectAmount(readySession(), 7); !errors.Is(err, ErrUnknownOffer) {
		t.Fatalf("unknown amount: got %v, want ErrUnknownOffer", err)
	}
	offer, err := lc.SelectAmount(readySession(), 10)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if offer.APRBasisPoints != 1250 {
		t.Fatalf("apr = %d, want 1250", offer.APRBasisPoints)
	}
}

func TestConfirmIssuesLoan(t *testing.T) {
	issuer := &fakeIssuer{}
	lc := NewLifecycle(NewCatalog(), issuer, 1)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lc.SetClock(func() time.Time { return now })

	sess := readySession()
	loan, err := lc.Confirm(context.Background(), sess, 10, 14)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if issuer.calls != 1 {
		t.Fatalf("issuer called %d times, want 1", issuer.calls)
	}
	if loan.ID != "0xtest-tx" {
		t.Fatalf("loan id = %q", loan.ID)
	}
	if loan.Status != session.LoanActive {
		t.Fatalf("status = %s, want active", loan.Status)
	}
	if want := now.Add(14 * 24 * time.Hour); !loan.DueDate.Equal(want) {
		t.Fatalf("due = %v, want %v", loan.DueDate, want)
	}
	if s := FormatUSD(loan.RepaymentAmount); s != "10.05" {
		t.Fatalf("repayment = %s, want 10.05", s)
	}
	if !sess.HasActiveLoan() {
		t.Fatal("session has no active loan after confirm")
	}
}

func TestConfirmFailureLeavesSessionUntouched(t *testing.T) {
	issuer := &fakeIssuer{fail: errors.New("rpc down")}
	lc := NewLifecycle(NewCatalog(), issuer, 1)

	sess := readySession()
	if _, err := lc.Confirm(context.Background(), sess, 10, 14); err == nil {
		t.Fatal("expected confirm error")
	}
	if sess.ActiveLoan != nil {
		t.Fatal("session mutated despite issuance failure")
	}

	// Retry after the collaborator recovers.
	issuer.fail = nil
	if _, err := lc.Confirm(context.Background(), sess, 10, 14); err != nil {
		t.Fatalf("retry confirm: %v", err)
	}
}

func TestSingleActiveLoan(t *testing.T) {
	lc := NewLifecycle(NewCatalog(), &fakeIssuer{}, 1)
	sess := readySession()
	if _, err := lc.Confirm(context.Background(), sess, 5, 7); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := lc.SelectAmount(sess, 10); !errors.Is(err, ErrLoanActive) {
		t.Fatalf("second select: got %v, want ErrLoanActive", err)
	}
	if _, err := lc.Confirm(context.Background(), sess, 10, 14); !errors.Is(err, ErrLoanActive) {
		t.Fatalf("second confirm: got %v, want ErrLoanActive", err)
	}
}

func TestRepayIdempotent(t *testing.T) {
	lc := NewLifecycle(NewCatalog(), &fakeIssuer{}, 1)
	sess := readySession()
	if _, err := lc.Confirm(context.Background(), sess, 10, 14); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	loan, err := lc.Repay(sess)
	if err != nil {
		t.Fatalf("repay: %v", err)
	}
	if loan == nil || loan.Status != session.LoanRepaid {
		t.Fatalf("repay result: %+v", loan)
	}
	if sess.ActiveLoan != nil {
		t.Fatal("active loan not cleared")
	}

	again, err := lc.Repay(sess)
	if err != nil {
		t.Fatalf("second repay: %v", err)
	}
	if again != nil {
		t.Fatal("second repay returned a loan, want no-op")
	}
}

func TestExpirePredicate(t *testing.T) {
	lc := NewLifecycle(NewCatalog(), &fakeIssuer{}, 1)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lc.SetClock(func() time.Time { return now })

	sess := readySession()
	loan, err := lc.Confirm(context.Background(), sess, 10, 7)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if got := lc.Expire(sess, loan.DueDate); got != nil {
		t.Fatal("expired exactly at due date, want strict after")
	}
	got := lc.Expire(sess, loan.DueDate.Add(time.Second))
	if got == nil {
		t.Fatal("overdue loan not expired")
	}
	if got.Status != session.LoanDefaulted {
		t.Fatalf("status = %s, want defaulted", got.Status)
	}
	if sess.ActiveLoan != nil {
		t.Fatal("active loan not cleared after default")
	}
	if lc.Expire(sess, loan.DueDate.Add(time.Hour)) != nil {
		t.Fatal("expire on cleared session returned a loan")
	}
}
