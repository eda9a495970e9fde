package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/Tytandoteth/magbot-test-mode/internal/analytics"
	"github.com/Tytandoteth/magbot-test-mode/internal/identity"
	"github.com/Tytandoteth/magbot-test-mode/internal/lending"
	"github.com/Tytandoteth/magbot-test-mode/internal/logger"
	"github.com/Tytandoteth/magbot-test-mode/internal/session"
	"github.com/Tytandoteth/magbot-test-mode/internal/telegram"
)

// handleLoans shows the loan catalog, routing users through the identity
// gate and to their active loan when they have one.
func (b *Bot) handleLoans(c tele.Context) error {
	ctx := telegram.BuildContext(c)
	sess, err := b.loadSession(ctx, c)
	if err != nil {
		return err
	}

	switch identity.Check(sess) {
	case identity.GateNoWallet:
		return telegram.EditOrSendMD(c,
			"To get a loan you first need a wallet.",
			telegram.InlineColumn(
				telegram.InlineBtn{Text: "🪪 Create wallet", Unique: "wallet"},
			))
	case identity.GateNotVerified:
		return telegram.EditOrSendMD(c,
			"Almost there — verify your identity to unlock loans.",
			telegram.InlineColumn(
				telegram.InlineBtn{Text: "✅ Verify identity", Unique: "verify"},
			))
	}

	if sess.HasActiveLoan() {
		return b.cbViewActiveLoan(c)
	}

	b.track(ctx, sess.UserID, analytics.KindLoanViewed, nil)

	buttons := make([]telegram.InlineBtn, 0, len(b.catalog.Offers()))
	for _, offer := range b.catalog.Offers() {
		label := fmt.Sprintf("$%d — %s%% APR", offer.AmountUSD, offer.APRPercent())
		buttons = append(buttons, telegram.BtnFromToken(label, b.catalog.EncodeSelection(offer.AmountUSD)))
	}
	buttons = append(buttons, telegram.InlineBtn{Text: "⬅️ Back", Unique: "cancel"})

	return telegram.EditOrSendMD(c,
		"*Micro-loans* 💰\n\nPick an amount. Repay on time and earn MAG rewards.",
		telegram.InlineColumn(buttons...))
}

// cbLoanSelect handles an amount button press and asks for a duration.
func (b *Bot) cbLoanSelect(c tele.Context) error {
	ctx := telegram.BuildContext(c)
	sess, err := b.loadSession(ctx, c)
	if err != nil {
		return err
	}

	_, payload := telegram.ParseCallback(c.Callback())
	token := lending.SelectKey + "|" + payload
	amount, err := b.catalog.DecodeSelection(token)
	if err != nil {
		logger.Warn(ctx, "lending", "select.bad_token",
			slog.String("payload", logger.SanitizeLimit(payload, 64)),
		)
		return b.handleLoans(c)
	}

	offer, err := b.lifecycle.SelectAmount(sess, amount)
	if err != nil {
		return b.lendingErrorReply(c, err)
	}
	b.track(ctx, sess.UserID, analytics.KindLoanSelected, map[string]any{
		"amount_usd": amount,
	})

	buttons := make([]telegram.InlineBtn, 0, len(offer.DurationsDays))
	for _, days := range offer.DurationsDays {
		buttons = append(buttons, telegram.BtnFromToken(
			fmt.Sprintf("%d days", days),
			b.catalog.EncodeConfirmation(amount, days),
		))
	}
	markup := telegram.InlineGrid(buttons, 2)
	markup.InlineKeyboard = append(markup.InlineKeyboard,
		telegram.InlineColumn(telegram.InlineBtn{Text: "⬅️ Back", Unique: "loans"}).InlineKeyboard...)

	text := fmt.Sprintf(
		"*$%d loan at %s%% APR*\n\nHow long do you need it for?",
		offer.AmountUSD, offer.APRPercent(),
	)
	return telegram.EditOrSendMD(c, text, markup)
}

// cbLoanConfirm issues the loan. This is the only handler with an external
// side effect.
func (b *Bot) cbLoanConfirm(c tele.Context) error {
	ctx := telegram.BuildContext(c)
	sess, err := b.loadSession(ctx, c)
	if err != nil {
		return err
	}

	_, payload := telegram.ParseCallback(c.Callback())
	token := lending.ConfirmKey + "|" + payload
	amount, days, err := b.catalog.DecodeConfirmation(token)
	if err != nil {
		logger.Warn(ctx, "lending", "confirm.bad_token",
			slog.String("payload", logger.SanitizeLimit(payload, 64)),
		)
		return b.handleLoans(c)
	}

	err = telegram.WithLoading(c, "⏳ Setting up your loan…", loadingPace, func() (string, *tele.ReplyMarkup, error) {
		loan, err := b.lifecycle.Confirm(ctx, sess, amount, days)
		if err != nil {
			return "", nil, err
		}
		b.persistIssuedLoan(ctx, sess, loan)
		b.track(ctx, sess.UserID, analytics.KindLoanConfirmed, map[string]any{
			"amount_usd": amount,
			"days":       days,
			"loan_id":    loan.ID,
		})
		logger.Info(ctx, "lending", "loan.confirmed",
			slog.Int64("user_id", sess.UserID),
			slog.Int("amount_usd", amount),
			slog.Int("duration_days", days),
			slog.String("loan_id", loan.ID),
			slog.Time("due_date", loan.DueDate),
		)

		text := fmt.Sprintf(
			"🎉 *Loan issued!*\n\n"+
				"Amount: $%s\n"+
				"Due: %s\n"+
				"Repayment: $%s\n"+
				"MAG reward on repayment: %s MAG\n\n"+
				"Want a repayment reminder?",
			lending.FormatUSD(loan.Principal),
			loan.DueDate.Format("Jan 2, 2006 15:04 MST"),
			lending.FormatUSD(loan.RepaymentAmount),
			lending.FormatMag(loan.MagReward),
		)
		markup := telegram.InlineColumn(
			telegram.InlineBtn{Text: "🔔 Remind me here", Unique: "reminder_tg"},
			telegram.InlineBtn{Text: "📅 Google Calendar", Unique: "reminder_gcal"},
			telegram.InlineBtn{Text: "👀 View loan", Unique: "view_active_loan"},
		)
		return text, markup, nil
	})
	if err != nil {
		return b.lendingErrorReply(c, err)
	}
	return nil
}

// cbViewActiveLoan shows the active loan details.
func (b *Bot) cbViewActiveLoan(c tele.Context) error {
	ctx := telegram.BuildContext(c)
	sess, err := b.loadSession(ctx, c)
	if err != nil {
		return err
	}
	if !sess.HasActiveLoan() {
		return telegram.EditOrSendMD(c,
			"You have no active loan.",
			telegram.InlineColumn(
				telegram.InlineBtn{Text: "💰 Get a loan", Unique: "loans"},
			))
	}

	loan := sess.ActiveLoan
	remaining := time.Until(loan.DueDate).Round(time.Hour)
	text := fmt.Sprintf(
		"*Your active loan*\n\n"+
			"Amount: $%s\n"+
			"Repayment: $%s\n"+
			"Due: %s (%s left)\n"+
			"MAG reward on repayment: %s MAG",
		lending.FormatUSD(loan.Principal),
		lending.FormatUSD(loan.RepaymentAmount),
		loan.DueDate.Format("Jan 2, 2006 15:04 MST"),
		formatRemaining(remaining),
		lending.FormatMag(loan.MagReward),
	)
	return telegram.EditOrSendMD(c, text, telegram.InlineColumn(
		telegram.InlineBtn{Text: "💸 Repay now", Unique: "repay_loan"},
		telegram.InlineBtn{Text: "🔔 Set reminder", Unique: "reminder_tg"},
		telegram.InlineBtn{Text: "⬅️ Back", Unique: "cancel"},
	))
}

// cbRepayLoan offers repayment methods.
func (b *Bot) cbRepayLoan(c tele.Context) error {
	ctx := telegram.BuildContext(c)
	sess, err := b.loadSession(ctx, c)
	if err != nil {
		return err
	}
	if !sess.HasActiveLoan() {
		return b.cbViewActiveLoan(c)
	}
	return telegram.EditOrSendMD(c,
		fmt.Sprintf("*Repay $%s*\n\nHow would you like to pay?",
			lending.FormatUSD(sess.ActiveLoan.RepaymentAmount)),
		telegram.InlineColumn(
			telegram.InlineBtn{Text: "🪙 Crypto (wallet balance)", Unique: "repay_crypto"},
			telegram.InlineBtn{Text: "💳 Card (soon)", Unique: "repay_card"},
			telegram.InlineBtn{Text: "🏦 Bank transfer (soon)", Unique: "repay_bank"},
			telegram.InlineBtn{Text: "⬅️ Back", Unique: "view_active_loan"},
		))
}

// cbRepayCrypto settles the loan from the wallet balance.
func (b *Bot) cbRepayCrypto(c tele.Context) error {
	ctx := telegram.BuildContext(c)
	sess, err := b.loadSession(ctx, c)
	if err != nil {
		return err
	}

	return telegram.WithLoading(c, "💸 Processing your repayment…", loadingPace, func() (string, *tele.ReplyMarkup, error) {
		loan, err := b.lifecycle.Repay(sess)
		if err != nil {
			return "", nil, err
		}
		if loan == nil {
			// Already settled; repeated taps land here.
			markup := telegram.InlineColumn(
				telegram.InlineBtn{Text: "💰 Get another loan", Unique: "loans"},
			)
			return "All settled — you have no outstanding loan.", markup, nil
		}
		if err := b.saveSession(ctx, sess); err != nil {
			return "", nil, err
		}
		b.track(ctx, sess.UserID, analytics.KindLoanRepaid, map[string]any{
			"loan_id":    loan.ID,
			"mag_reward": lending.FormatMag(loan.MagReward),
		})
		logger.Info(ctx, "lending", "loan.repaid",
			slog.Int64("user_id", sess.UserID),
			slog.String("loan_id", loan.ID),
			slog.String("mag_reward", lending.FormatMag(loan.MagReward)),
		)

		text := fmt.Sprintf(
			"✅ *Loan repaid!*\n\nYou earned *%s MAG* for paying on time. 🎉",
			lending.FormatMag(loan.MagReward),
		)
		markup := telegram.InlineColumn(
			telegram.InlineBtn{Text: "💰 Get another loan", Unique: "loans"},
		)
		return text, markup, nil
	})
}

// cbRepayMethodSoon covers payment rails that are not live yet.
func (b *Bot) cbRepayMethodSoon(c tele.Context) error {
	return telegram.EditOrSendMD(c,
		"That payment method is coming soon. Crypto repayment works today.",
		telegram.InlineColumn(
			telegram.InlineBtn{Text: "🪙 Repay with crypto", Unique: "repay_crypto"},
			telegram.InlineBtn{Text: "⬅️ Back", Unique: "repay_loan"},
		))
}

// persistIssuedLoan saves the session once the loan exists on-chain. A save
// failure here must not surface as a handler error: the user would retry and
// issue a second loan against the same session. The save is retried, and if
// it keeps failing a marker event with the tx reference is recorded so the
// orphaned state can be reconciled.
func (b *Bot) persistIssuedLoan(ctx context.Context, sess *session.Session, loan *session.Loan) {
	var err error
	for attempt := 1; attempt <= persistAttempts; attempt++ {
		if err = b.store.Set(ctx, sess); err == nil {
			return
		}
		if attempt < persistAttempts {
			time.Sleep(time.Duration(attempt) * persistBackoff)
		}
	}
	logger.Error(ctx, "lending", "loan.save_failed",
		slog.Int64("user_id", sess.UserID),
		slog.String("loan_id", loan.ID),
		slog.Int("attempts", persistAttempts),
		slog.String("err", err.Error()),
	)
	b.track(ctx, sess.UserID, analytics.KindLoanSaveFailed, map[string]any{
		"loan_id": loan.ID,
	})
}

// lendingErrorReply maps recoverable lending errors to user guidance.
func (b *Bot) lendingErrorReply(c tele.Context, err error) error {
	switch {
	case errors.Is(err, lending.ErrLoanActive):
		return b.cbViewActiveLoan(c)
	case errors.Is(err, identity.ErrNoWallet), errors.Is(err, identity.ErrNotVerified):
		return b.handleLoans(c)
	case errors.Is(err, lending.ErrUnknownOffer), errors.Is(err, lending.ErrUnknownDuration), errors.Is(err, lending.ErrBadToken):
		return b.handleLoans(c)
	default:
		return err
	}
}

func formatRemaining(d time.Duration) string {
	if d <= 0 {
		return "overdue"
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	if days > 0 {
		return strconv.Itoa(days) + "d " + strconv.Itoa(hours) + "h"
	}
	return strconv.Itoa(hours) + "h"
}
