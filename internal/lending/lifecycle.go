package lending

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Tytandoteth/magbot-test-mode/internal/identity"
	"github.com/Tytandoteth/magbot-test-mode/internal/session"
)

// Issuer is the on-chain loan issuance collaborator. It returns an opaque
// transaction reference used as the loan id.
type Issuer interface {
	IssueLoan(ctx context.Context, deskID int64, amountUSD int, durationHours, aprBasisPoints int64) (string, error)
}

// Lifecycle drives a single user's loan from selection through confirmation,
// active period, and repayment or default. Selection state is ephemeral: it
// lives only in outbound callback tokens, never in the session, so a process
// restart mid-selection simply restarts the flow.
type Lifecycle struct {
	catalog *Catalog
	issuer  Issuer
	deskID  int64
	now     func() time.Time
}

// NewLifecycle wires the lifecycle with its catalog and issuance collaborator.
func NewLifecycle(catalog *Catalog, issuer Issuer, deskID int64) *Lifecycle {
	return &Lifecycle{
		catalog: catalog,
		issuer:  issuer,
		deskID:  deskID,
		now:     time.Now,
	}
}

// SelectAmount validates that the session may enter loan selection for the
// given amount. Guards: the identity gate must pass, and there must be no
// active loan. Returns the resolved offer on success.
func (l *Lifecycle) SelectAmount(sess *session.Session, amountUSD int) (Offer, error) {
	if err := identity.Check(sess).Err(); err != nil {
		return Offer{}, err
	}
	if sess.HasActiveLoan() {
		return Offer{}, ErrLoanActive
	}
	offer, found := l.catalog.Find(amountUSD)
	if !found {
		return Offer{}, fmt.Errorf("%w: amount %d", ErrUnknownOffer, amountUSD)
	}
	return offer, nil
}

// Confirm executes the only transition with an external side effect: it
// re-validates the selection against the catalog (stale or tampered tokens
// decode but no longer resolve), computes the repayment and reward, requests
// issuance, and writes the active loan into the session. On issuance failure
// the session is left untouched so a retry is safe.
func (l *Lifecycle) Confirm(ctx context.Context, sess *session.Session, amountUSD, durationDays int) (*session.Loan, error) {
	if err := identity.Check(sess).Err(); err != nil {
		return nil, err
	}
	if sess.HasActiveLoan() {
		return nil, ErrLoanActive
	}
	offer, found := l.catalog.Find(amountUSD)
	if !found {
		return nil, fmt.Errorf("%w: amount %d", ErrUnknownOffer, amountUSD)
	}
	if !offer.AllowsDuration(durationDays) {
		return nil, fmt.Errorf("%w: %d days", ErrUnknownDuration, durationDays)
	}

	principal := decimal.NewFromInt(int64(amountUSD))
	durationHours := int64(durationDays) * 24
	repayment := RepaymentAmount(principal, offer.APRBasisPoints, durationHours)
	reward := MagReward(principal)

	txRef, err := l.issuer.IssueLoan(ctx, l.deskID, amountUSD, durationHours, offer.APRBasisPoints)
	if err != nil {
		return nil, fmt.Errorf("issue loan: %w", err)
	}

	now := l.now()
	loan := &session.Loan{
		ID:              txRef,
		Principal:       principal,
		APRBasisPoints:  offer.APRBasisPoints,
		DurationHours:   durationHours,
		DueDate:         now.Add(time.Duration(durationHours) * time.Hour),
		RepaymentAmount: repayment,
		MagReward:       reward,
		Status:          session.LoanActive,
		CreatedAt:       now,
	}
	sess.ActiveLoan = loan
	return loan, nil
}

// Repay marks the active loan repaid and clears it from the session. The
// transition is idempotent: repeating it on an already repaid session is a
// no-op, not an error. Returns the loan that was settled, or nil when there
// was nothing left to do.
func (l *Lifecycle) Repay(sess *session.Session) (*session.Loan, error) {
	if !sess.HasActiveLoan() {
		return nil, nil
	}
	loan := sess.ActiveLoan
	loan.Status = session.LoanRepaid
	sess.ActiveLoan = nil
	sess.Reminders = nil
	return loan, nil
}

// Expire applies the default predicate: an active loan past its due date is
// marked defaulted and cleared. Returns the defaulted loan, or nil when the
// predicate does not hold. The polling trigger lives in the reminder watcher.
func (l *Lifecycle) Expire(sess *session.Session, now time.Time) *session.Loan {
	if !sess.HasActiveLoan() {
		return nil
	}
	loan := sess.ActiveLoan
	if !now.After(loan.DueDate) {
		return nil
	}
	loan.Status = session.LoanDefaulted
	sess.ActiveLoan = nil
	sess.Reminders = nil
	return loan
}

// SetClock overrides the lifecycle clock, used by tests and the watcher.
func (l *Lifecycle) SetClock(now func() time.Time) {
	if now != nil {
		l.now = now
	}
}
