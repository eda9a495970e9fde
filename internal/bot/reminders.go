package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/Tytandoteth/magbot-test-mode/internal/analytics"
	"github.com/Tytandoteth/magbot-test-mode/internal/lending"
	"github.com/Tytandoteth/magbot-test-mode/internal/logger"
	"github.com/Tytandoteth/magbot-test-mode/internal/reminder"
	"github.com/Tytandoteth/magbot-test-mode/internal/session"
	"github.com/Tytandoteth/magbot-test-mode/internal/telegram"
)

// cbReminderTelegram schedules in-chat reminders for the active loan.
func (b *Bot) cbReminderTelegram(c tele.Context) error {
	ctx := telegram.BuildContext(c)
	sess, err := b.loadSession(ctx, c)
	if err != nil {
		return err
	}
	if !sess.HasActiveLoan() {
		return b.cbViewActiveLoan(c)
	}

	sess.Reminders = reminder.ComputePlan(sess.ActiveLoan.DueDate, time.Now())
	if err := b.saveSession(ctx, sess); err != nil {
		return err
	}
	b.track(ctx, sess.UserID, analytics.KindReminderSet, map[string]any{
		"loan_id": sess.ActiveLoan.ID,
		"channel": "telegram",
	})
	logger.Info(ctx, "app", "reminder.scheduled",
		slog.Int64("user_id", sess.UserID),
		slog.Time("due_date", sess.ActiveLoan.DueDate),
	)

	return telegram.EditOrSendMD(c,
		"🔔 Done! I'll remind you 7, 3 and 1 days before your repayment is due.",
		telegram.InlineColumn(
			telegram.InlineBtn{Text: "👀 View loan", Unique: "view_active_loan"},
		))
}

// cbReminderCalendar hands out a prefilled Google Calendar link instead of
// scheduling in-chat reminders.
func (b *Bot) cbReminderCalendar(c tele.Context) error {
	ctx := telegram.BuildContext(c)
	sess, err := b.loadSession(ctx, c)
	if err != nil {
		return err
	}
	if !sess.HasActiveLoan() {
		return b.cbViewActiveLoan(c)
	}

	loan := sess.ActiveLoan
	url := reminder.GoogleCalendarURL(loan.DueDate, "$"+lending.FormatUSD(loan.RepaymentAmount))
	b.track(ctx, sess.UserID, analytics.KindReminderSet, map[string]any{
		"loan_id": loan.ID,
		"channel": "gcal",
	})

	return telegram.EditOrSendMD(c,
		"📅 Tap below to add the repayment date to your calendar.",
		telegram.InlineColumn(
			telegram.URLBtn("Add to Google Calendar", url),
			telegram.InlineBtn{Text: "👀 View loan", Unique: "view_active_loan"},
		))
}

// NotifyReminder implements reminder.Notifier. It is invoked by the watcher
// outside any update context, so it sends through the raw bot handle.
func (b *Bot) NotifyReminder(ctx context.Context, chatID int64, loan *session.Loan, fireAt time.Time) error {
	tb := b.tb.Load()
	if tb == nil {
		return fmt.Errorf("bot: transport not attached")
	}
	daysLeft := int(loan.DueDate.Sub(fireAt).Hours() / 24)
	text := fmt.Sprintf(
		"🔔 *Repayment reminder*\n\nYour $%s repayment is due in %d day(s), on %s.\n"+
			"Repay on time to earn %s MAG.",
		lending.FormatUSD(loan.RepaymentAmount),
		daysLeft,
		loan.DueDate.Format("Jan 2, 2006"),
		lending.FormatMag(loan.MagReward),
	)
	markup := telegram.InlineColumn(
		telegram.InlineBtn{Text: "💸 Repay now", Unique: "repay_loan"},
	)
	_, err := tb.Send(tele.ChatID(chatID), text, &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: markup})
	return err
}

// NotifyDefault implements reminder.Notifier for the overdue transition.
func (b *Bot) NotifyDefault(ctx context.Context, chatID int64, loan *session.Loan) error {
	tb := b.tb.Load()
	if tb == nil {
		return fmt.Errorf("bot: transport not attached")
	}
	text := fmt.Sprintf(
		"⚠️ *Loan overdue*\n\nYour loan of $%s was due on %s and has been marked as defaulted. "+
			"This affects your future borrowing limits.",
		lending.FormatUSD(loan.Principal),
		loan.DueDate.Format("Jan 2, 2006"),
	)
	_, err := tb.Send(tele.ChatID(chatID), text, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
	return err
}
