package reminder

import (
	"context"
	"log/slog"
	"time"

	"github.com/Tytandoteth/magbot-test-mode/internal/analytics"
	"github.com/Tytandoteth/magbot-test-mode/internal/lending"
	"github.com/Tytandoteth/magbot-test-mode/internal/logger"
	"github.com/Tytandoteth/magbot-test-mode/internal/session"
)

// Notifier delivers reminder and default notices to a chat. Implemented by
// the bot layer.
type Notifier interface {
	NotifyReminder(ctx context.Context, chatID int64, loan *session.Loan, fireAt time.Time) error
	NotifyDefault(ctx context.Context, chatID int64, loan *session.Loan) error
}

// Watcher polls active-loan sessions, fires due reminders at most once each,
// and transitions overdue loans to defaulted.
type Watcher struct {
	store     session.Store
	lifecycle *lending.Lifecycle
	notifier  Notifier
	recorder  analytics.Recorder
	interval  time.Duration
	now       func() time.Time
}

// NewWatcher builds a watcher with the given poll interval. Intervals at or
// below zero fall back to one minute.
func NewWatcher(store session.Store, lc *lending.Lifecycle, n Notifier, rec analytics.Recorder, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Watcher{
		store:     store,
		lifecycle: lc,
		notifier:  n,
		recorder:  rec,
		interval:  interval,
		now:       time.Now,
	}
}

// Run polls until the context is cancelled. One sweep failure never stops
// the loop.
func (w *Watcher) Run(ctx context.Context) {
	logger.Info(ctx, "watcher", "watcher.started",
		slog.String("interval", w.interval.String()),
	)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "watcher", "watcher.stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep processes every session with an active loan once.
func (w *Watcher) Sweep(ctx context.Context) {
	sessions, err := w.store.ActiveLoanSessions(ctx)
	if err != nil {
		logger.Error(ctx, "watcher", "sweep.load_failed",
			slog.String("err", err.Error()),
		)
		return
	}
	now := w.now()
	for _, sess := range sessions {
		w.sweepSession(ctx, sess, now)
	}
}

func (w *Watcher) sweepSession(ctx context.Context, sess *session.Session, now time.Time) {
	if loan := w.lifecycle.Expire(sess, now); loan != nil {
		logger.Warn(ctx, "watcher", "loan.defaulted",
			slog.Int64("user_id", sess.UserID),
			slog.String("loan_id", loan.ID),
			slog.Time("due_date", loan.DueDate),
		)
		if err := w.store.Set(ctx, sess); err != nil {
			logger.Error(ctx, "watcher", "sweep.save_failed",
				slog.Int64("user_id", sess.UserID),
				slog.String("err", err.Error()),
			)
			return
		}
		w.recorder.Track(ctx, sess.UserID, analytics.KindLoanDefaulted, map[string]any{
			"loan_id": loan.ID,
		})
		if err := w.notifier.NotifyDefault(ctx, sess.ChatID, loan); err != nil {
			logger.Error(ctx, "watcher", "notify.default_failed",
				slog.Int64("user_id", sess.UserID),
				slog.String("err", err.Error()),
			)
		}
		return
	}

	plan := sess.Reminders
	if plan == nil {
		return
	}
	var due []int
	for i, at := range plan.Offsets {
		if plan.FiredOffsets[i] || now.Before(at) {
			continue
		}
		plan.FiredOffsets[i] = true
		due = append(due, i)
	}
	if len(due) == 0 {
		return
	}
	// The marked plan is persisted before anything is sent. If the save
	// fails nothing fires and the next sweep retries; if the process dies
	// after the save, a reminder is lost rather than duplicated.
	if err := w.store.Set(ctx, sess); err != nil {
		logger.Error(ctx, "watcher", "sweep.save_failed",
			slog.Int64("user_id", sess.UserID),
			slog.String("err", err.Error()),
		)
		return
	}
	for _, i := range due {
		at := plan.Offsets[i]
		if err := w.notifier.NotifyReminder(ctx, sess.ChatID, sess.ActiveLoan, at); err != nil {
			logger.Error(ctx, "watcher", "notify.reminder_failed",
				slog.Int64("user_id", sess.UserID),
				slog.String("err", err.Error()),
			)
			continue
		}
		w.recorder.Track(ctx, sess.UserID, analytics.KindReminderSent, map[string]any{
			"loan_id": sess.ActiveLoan.ID,
			"fire_at": at,
		})
	}
}

// SetClock overrides the watcher clock for tests.
func (w *Watcher) SetClock(now func() time.Time) {
	if now != nil {
		w.now = now
	}
}
