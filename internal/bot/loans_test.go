package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Tytandoteth/magbot-test-mode/internal/analytics"
	"github.com/Tytandoteth/magbot-test-mode/internal/session"
)

// flakyStore fails the first N writes, then delegates.
type flakyStore struct {
	session.Store
	failures int
	sets     int
}

func (s *flakyStore) Set(ctx context.Context, sess *session.Session) error {
	s.sets++
	if s.sets <= s.failures {
		return errors.New("connection reset")
	}
	return s.Store.Set(ctx, sess)
}

type captureRecorder struct {
	kinds []string
}

func (r *captureRecorder) Track(_ context.Context, _ int64, kind string, _ map[string]any) {
	r.kinds = append(r.kinds, kind)
}

func (r *captureRecorder) Aggregate(context.Context) (analytics.Summary, error) {
	return analytics.Summary{}, nil
}

func (r *captureRecorder) has(kind string) bool {
	for _, k := range r.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func issuedSession() (*session.Session, *session.Loan) {
	loan := &session.Loan{
		ID:              "0xloan-1",
		Principal:       decimal.NewFromInt(10),
		APRBasisPoints:  1250,
		DurationHours:   14 * 24,
		DueDate:         time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC),
		RepaymentAmount: decimal.RequireFromString("10.05"),
		MagReward:       decimal.RequireFromString("0.150"),
		Status:          session.LoanActive,
		CreatedAt:       time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	sess := &session.Session{
		UserID:        9,
		ChatID:        90,
		WalletAddress: "0xabc",
		Verified:      true,
		ActiveLoan:    loan,
	}
	return sess, loan
}

func TestPersistIssuedLoanRetriesTransientFailure(t *testing.T) {
	store := &flakyStore{Store: session.NewMemoryStore(), failures: 1}
	rec := &captureRecorder{}
	b := New(Deps{Store: store, Recorder: rec})

	sess, loan := issuedSession()
	b.persistIssuedLoan(context.Background(), sess, loan)

	if store.sets != 2 {
		t.Fatalf("set attempts = %d, want 2", store.sets)
	}
	saved, err := store.Get(context.Background(), sess.UserID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !saved.HasActiveLoan() || saved.ActiveLoan.ID != loan.ID {
		t.Fatalf("issued loan not persisted: %+v", saved.ActiveLoan)
	}
	if rec.has(analytics.KindLoanSaveFailed) {
		t.Fatal("failure marker recorded despite successful save")
	}
}

func TestPersistIssuedLoanRecordsMarkerWhenStoreStaysDown(t *testing.T) {
	store := &flakyStore{Store: session.NewMemoryStore(), failures: 100}
	rec := &captureRecorder{}
	b := New(Deps{Store: store, Recorder: rec})

	sess, loan := issuedSession()
	b.persistIssuedLoan(context.Background(), sess, loan)

	if store.sets != persistAttempts {
		t.Fatalf("set attempts = %d, want %d", store.sets, persistAttempts)
	}
	if !rec.has(analytics.KindLoanSaveFailed) {
		t.Fatalf("no failure marker among %v", rec.kinds)
	}
}
