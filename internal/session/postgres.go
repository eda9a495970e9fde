package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresStore persists sessions in the sessions table. The active loan and
// reminder plan travel as JSONB so the schema stays stable as loan fields
// evolve.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps the shared database pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type sessionRow struct {
	UserID        int64  `db:"user_id"`
	ChatID        int64  `db:"chat_id"`
	WalletAddress string `db:"wallet_address"`
	Verified      bool   `db:"verified"`
	ActiveLoan    []byte `db:"active_loan"`
	Reminders     []byte `db:"reminders"`
}

// Get returns the stored session, or a fresh unverified record if absent.
func (p *PostgresStore) Get(ctx context.Context, userID int64) (*Session, error) {
	var row sessionRow
	err := p.db.GetContext(ctx, &row, `
		SELECT user_id, chat_id, wallet_address, verified, active_loan, reminders
		FROM sessions
		WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return &Session{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}
	return row.toSession()
}

// Set upserts the session record, replacing all fields atomically.
func (p *PostgresStore) Set(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	loanJSON, remindersJSON, err := marshalParts(sess)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO sessions (user_id, chat_id, wallet_address, verified, active_loan, reminders, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (user_id) DO UPDATE SET
			chat_id        = EXCLUDED.chat_id,
			wallet_address = EXCLUDED.wallet_address,
			verified       = EXCLUDED.verified,
			active_loan    = EXCLUDED.active_loan,
			reminders      = EXCLUDED.reminders,
			updated_at     = now()
	`, sess.UserID, sess.ChatID, sess.WalletAddress, sess.Verified, loanJSON, remindersJSON)
	if err != nil {
		return fmt.Errorf("session set: %w", err)
	}
	return nil
}

// ActiveLoanSessions lists sessions whose stored loan is still active.
func (p *PostgresStore) ActiveLoanSessions(ctx context.Context) ([]*Session, error) {
	var rows []sessionRow
	err := p.db.SelectContext(ctx, &rows, `
		SELECT user_id, chat_id, wallet_address, verified, active_loan, reminders
		FROM sessions
		WHERE active_loan IS NOT NULL
		  AND active_loan->>'status' = 'active'
	`)
	if err != nil {
		return nil, fmt.Errorf("session list active: %w", err)
	}
	out := make([]*Session, 0, len(rows))
	for i := range rows {
		sess, err := rows[i].toSession()
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

func (r *sessionRow) toSession() (*Session, error) {
	sess := &Session{
		UserID:        r.UserID,
		ChatID:        r.ChatID,
		WalletAddress: r.WalletAddress,
		Verified:      r.Verified,
	}
	if len(r.ActiveLoan) > 0 {
		var loan Loan
		if err := json.Unmarshal(r.ActiveLoan, &loan); err != nil {
			return nil, fmt.Errorf("session decode loan: %w", err)
		}
		sess.ActiveLoan = &loan
	}
	if len(r.Reminders) > 0 {
		var plan ReminderPlan
		if err := json.Unmarshal(r.Reminders, &plan); err != nil {
			return nil, fmt.Errorf("session decode reminders: %w", err)
		}
		sess.Reminders = &plan
	}
	return sess, nil
}

func marshalParts(sess *Session) ([]byte, []byte, error) {
	var loanJSON, remindersJSON []byte
	var err error
	if sess.ActiveLoan != nil {
		loanJSON, err = json.Marshal(sess.ActiveLoan)
		if err != nil {
			return nil, nil, fmt.Errorf("session encode loan: %w", err)
		}
	}
	if sess.Reminders != nil {
		remindersJSON, err = json.Marshal(sess.Reminders)
		if err != nil {
			return nil, nil, fmt.Errorf("session encode reminders: %w", err)
		}
	}
	return loanJSON, remindersJSON, nil
}
