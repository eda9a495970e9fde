// Package analytics records product events. Tracking is best-effort: a
// failed insert is logged and swallowed, never surfaced to the user flow.
package analytics

import (
	"context"
)

// Event kinds recorded by the bot.
const (
	KindStart                 = "start"
	KindWalletCreated         = "wallet_created"
	KindVerificationStarted   = "verification_started"
	KindVerificationCompleted = "verification_completed"
	KindLoanViewed            = "loan_viewed"
	KindLoanSelected          = "loan_selected"
	KindLoanConfirmed         = "loan_confirmed"
	KindLoanSaveFailed        = "loan_save_failed"
	KindLoanRepaid            = "loan_repaid"
	KindLoanDefaulted         = "loan_defaulted"
	KindReminderSet           = "reminder_set"
	KindReminderSent          = "reminder_sent"
)

// Summary aggregates recorded activity for the admin stats view.
type Summary struct {
	TotalUsers     int64   `db:"total_users" json:"total_users"`
	WalletsCreated int64   `db:"wallets_created" json:"wallets_created"`
	Verified       int64   `db:"verified" json:"verified"`
	LoansIssued    int64   `db:"loans_issued" json:"loans_issued"`
	LoansRepaid    int64   `db:"loans_repaid" json:"loans_repaid"`
	LoansDefaulted int64   `db:"loans_defaulted" json:"loans_defaulted"`
	AvgLoanUSD     float64 `db:"avg_loan_usd" json:"avg_loan_usd"`
}

// Recorder tracks events and aggregates them.
type Recorder interface {
	Track(ctx context.Context, userID int64, kind string, meta map[string]any)
	Aggregate(ctx context.Context) (Summary, error)
}
