package identity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Tytandoteth/magbot-test-mode/internal/logger"
)

// Result describes the outcome of a verification attempt. SBTMinted is
// informational: verification stands even when the soulbound token mint
// fails, because gating on a flaky mint would lock users out of loans.
type Result struct {
	Provider  string
	SBTMinted bool
	SBTTxRef  string
}

// Verifier performs identity verification for a wallet address.
type Verifier interface {
	Verify(ctx context.Context, userID int64, walletAddress string) (Result, error)
}

// SBTMinter mints a soulbound verification token on-chain.
type SBTMinter interface {
	MintSBT(ctx context.Context, walletAddress string) (string, error)
}

// AutoVerifier approves every request after a short simulated delay. Used in
// development mode so the full loan flow is exercisable without external
// providers.
type AutoVerifier struct {
	Delay time.Duration
}

// Verify always succeeds with the mock provider and a deterministic tx ref.
func (v *AutoVerifier) Verify(ctx context.Context, userID int64, walletAddress string) (Result, error) {
	delay := v.Delay
	if delay <= 0 {
		delay = time.Second
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	return Result{
		Provider:  "mock",
		SBTMinted: true,
		SBTTxRef:  fmt.Sprintf("0xmock-sbt-%d", userID),
	}, nil
}

// ChainVerifier verifies through an external provider and then mints the
// verification SBT. Mint failures are logged but never fail verification.
type ChainVerifier struct {
	Provider string
	Minter   SBTMinter
}

func (v *ChainVerifier) Verify(ctx context.Context, userID int64, walletAddress string) (Result, error) {
	res := Result{Provider: v.Provider}
	if v.Minter == nil {
		return res, nil
	}
	txRef, err := v.Minter.MintSBT(ctx, walletAddress)
	if err != nil {
		logger.Warn(ctx, "identity", "sbt.mint_failed",
			slog.Int64("user_id", userID),
			slog.String("wallet", walletAddress),
			slog.String("err", err.Error()),
		)
		return res, nil
	}
	res.SBTMinted = true
	res.SBTTxRef = txRef
	return res, nil
}
