// Package identity gates loan access on wallet presence and completed
// verification, and defines the verification collaborator boundary.
package identity

import (
	"errors"

	"github.com/Tytandoteth/magbot-test-mode/internal/session"
)

var (
	// ErrNoWallet means the user has not completed wallet creation yet.
	ErrNoWallet = errors.New("identity: no wallet")
	// ErrNotVerified means the user has a wallet but has not verified.
	ErrNotVerified = errors.New("identity: not verified")
)

// GateResult classifies a session's access to loan operations.
type GateResult int

const (
	// GateOk grants access.
	GateOk GateResult = iota
	// GateNoWallet requires wallet creation first.
	GateNoWallet
	// GateNotVerified requires identity verification first.
	GateNotVerified
)

// Check applies the gate rules in order, first match wins: missing wallet
// beats unverified, regardless of the verified flag. Side-effect free.
func Check(sess *session.Session) GateResult {
	if !sess.HasWallet() {
		return GateNoWallet
	}
	if !sess.Verified {
		return GateNotVerified
	}
	return GateOk
}

// Err maps a gate result to its sentinel error, or nil for GateOk.
func (r GateResult) Err() error {
	switch r {
	case GateNoWallet:
		return ErrNoWallet
	case GateNotVerified:
		return ErrNotVerified
	default:
		return nil
	}
}
