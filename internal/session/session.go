// Package session holds the per-user state the bot mutates on every update:
// wallet address, verification flag, and at most one active loan.
package session

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus enumerates terminal and non-terminal loan states.
type LoanStatus string

const (
	LoanActive    LoanStatus = "active"
	LoanRepaid    LoanStatus = "repaid"
	LoanDefaulted LoanStatus = "defaulted"
)

// Loan is created on confirmation and owned by the session that created it.
// RepaymentAmount is computed once at confirmation time and never recomputed.
type Loan struct {
	ID              string          `json:"id"`
	Principal       decimal.Decimal `json:"principal"`
	APRBasisPoints  int64           `json:"apr_bps"`
	DurationHours   int64           `json:"duration_hours"`
	DueDate         time.Time       `json:"due_date"`
	RepaymentAmount decimal.Decimal `json:"repayment_amount"`
	MagReward       decimal.Decimal `json:"mag_reward"`
	Status          LoanStatus      `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ReminderPlan records the due date and the reminder offsets chosen for it.
// FiredOffsets marks offsets that have already been delivered by the watcher.
type ReminderPlan struct {
	DueDate      time.Time   `json:"due_date"`
	Offsets      []time.Time `json:"offsets"`
	FiredOffsets []bool      `json:"fired_offsets"`
}

// Session is the per-user mutable record. WalletAddress is set once by wallet
// creation; Verified never flips back to false; ActiveLoan holds at most one
// non-terminal loan.
type Session struct {
	UserID        int64         `json:"user_id"`
	ChatID        int64         `json:"chat_id"`
	WalletAddress string        `json:"wallet_address"`
	Verified      bool          `json:"verified"`
	ActiveLoan    *Loan         `json:"active_loan,omitempty"`
	Reminders     *ReminderPlan `json:"reminders,omitempty"`
}

// HasWallet reports whether wallet creation has completed for this user.
func (s *Session) HasWallet() bool {
	return s != nil && s.WalletAddress != ""
}

// HasActiveLoan reports whether a non-terminal loan is attached to the session.
func (s *Session) HasActiveLoan() bool {
	return s != nil && s.ActiveLoan != nil && s.ActiveLoan.Status == LoanActive
}

// Store abstracts session persistence. Get creates a default unverified
// record when absent; Set atomically replaces the stored record. Per-user
// operations are never interleaved with themselves by the transport layer.
type Store interface {
	Get(ctx context.Context, userID int64) (*Session, error)
	Set(ctx context.Context, sess *Session) error
	// ActiveLoanSessions lists sessions holding an active loan, feeding the
	// reminder/default watcher.
	ActiveLoanSessions(ctx context.Context) ([]*Session, error)
}
