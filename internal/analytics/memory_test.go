package analytics

import (
	"context"
	"testing"
)

func TestMemoryRecorderAggregate(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRecorder()

	r.Track(ctx, 1, KindStart, nil)
	r.Track(ctx, 1, KindWalletCreated, nil)
	r.Track(ctx, 1, KindVerificationCompleted, nil)
	r.Track(ctx, 1, KindLoanConfirmed, map[string]any{"amount_usd": 10})
	r.Track(ctx, 1, KindLoanRepaid, nil)
	r.Track(ctx, 2, KindStart, nil)
	r.Track(ctx, 2, KindWalletCreated, nil)
	r.Track(ctx, 2, KindLoanConfirmed, map[string]any{"amount_usd": 5})
	r.Track(ctx, 2, KindLoanDefaulted, nil)

	s, err := r.Aggregate(ctx)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if s.TotalUsers != 2 {
		t.Fatalf("users = %d, want 2", s.TotalUsers)
	}
	if s.WalletsCreated != 2 || s.Verified != 1 {
		t.Fatalf("wallets = %d, verified = %d", s.WalletsCreated, s.Verified)
	}
	if s.LoansIssued != 2 || s.LoansRepaid != 1 || s.LoansDefaulted != 1 {
		t.Fatalf("loans: %+v", s)
	}
	if s.AvgLoanUSD != 7.5 {
		t.Fatalf("avg = %v, want 7.5", s.AvgLoanUSD)
	}
}
