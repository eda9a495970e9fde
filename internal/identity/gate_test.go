package identity

import (
	"errors"
	"testing"

	"github.com/Tytandoteth/magbot-test-mode/internal/session"
)

func TestGateOrdering(t *testing.T) {
	cases := []struct {
		name string
		sess *session.Session
		want GateResult
	}{
		{"empty", &session.Session{UserID: 1}, GateNoWallet},
		// Missing wallet wins even when the verified flag is set.
		{"verified without wallet", &session.Session{UserID: 1, Verified: true}, GateNoWallet},
		{"wallet unverified", &session.Session{UserID: 1, WalletAddress: "0xabc"}, GateNotVerified},
		{"wallet verified", &session.Session{UserID: 1, WalletAddress: "0xabc", Verified: true}, GateOk},
	}
	for _, tc := range cases {
		if got := Check(tc.sess); got != tc.want {
			t.Fatalf("%s: gate = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestGateErr(t *testing.T) {
	if err := GateNoWallet.Err(); !errors.Is(err, ErrNoWallet) {
		t.Fatalf("GateNoWallet.Err() = %v", err)
	}
	if err := GateNotVerified.Err(); !errors.Is(err, ErrNotVerified) {
		t.Fatalf("GateNotVerified.Err() = %v", err)
	}
	if err := GateOk.Err(); err != nil {
		t.Fatalf("GateOk.Err() = %v, want nil", err)
	}
}
