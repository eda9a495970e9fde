package analytics

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/Tytandoteth/magbot-test-mode/internal/logger"
)

// PostgresRecorder persists events to the events table.
type PostgresRecorder struct {
	db *sqlx.DB
}

// NewPostgresRecorder wraps an open database handle.
func NewPostgresRecorder(db *sqlx.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// Track inserts one event row. Failures are logged and dropped: analytics
// must never break a user-facing flow.
func (r *PostgresRecorder) Track(ctx context.Context, userID int64, kind string, meta map[string]any) {
	var metaJSON []byte
	if len(meta) > 0 {
		raw, err := json.Marshal(meta)
		if err != nil {
			logger.Warn(ctx, "analytics", "event.encode_failed",
				slog.String("kind", kind),
				slog.String("err", err.Error()),
			)
			return
		}
		metaJSON = raw
	}

	const query = `
		INSERT INTO events (user_id, kind, meta)
		VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, userID, kind, metaJSON); err != nil {
		logger.Warn(ctx, "analytics", "event.insert_failed",
			slog.Int64("user_id", userID),
			slog.String("kind", kind),
			slog.String("err", err.Error()),
		)
		return
	}
	logger.Debug(ctx, "analytics", "event.tracked",
		slog.Int64("user_id", userID),
		slog.String("kind", kind),
	)
}

// Aggregate computes the stats summary in a single pass over events.
func (r *PostgresRecorder) Aggregate(ctx context.Context) (Summary, error) {
	const query = `
		SELECT
			COUNT(DISTINCT user_id)                                          AS total_users,
			COUNT(*) FILTER (WHERE kind = 'wallet_created')                  AS wallets_created,
			COUNT(*) FILTER (WHERE kind = 'verification_completed')          AS verified,
			COUNT(*) FILTER (WHERE kind = 'loan_confirmed')                  AS loans_issued,
			COUNT(*) FILTER (WHERE kind = 'loan_repaid')                     AS loans_repaid,
			COUNT(*) FILTER (WHERE kind = 'loan_defaulted')                  AS loans_defaulted,
			COALESCE(AVG((meta->>'amount_usd')::numeric)
				FILTER (WHERE kind = 'loan_confirmed'), 0)                   AS avg_loan_usd
		FROM events`
	var s Summary
	if err := r.db.GetContext(ctx, &s, query); err != nil {
		return Summary{}, err
	}
	return s, nil
}
