package bot

import (
	"fmt"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/Tytandoteth/magbot-test-mode/internal/analytics"
	"github.com/Tytandoteth/magbot-test-mode/internal/logger"
	"github.com/Tytandoteth/magbot-test-mode/internal/telegram"
)

// handleStart greets the user. Returning users with a wallet go straight to
// the main menu; new users hit the community-join gate first.
func (b *Bot) handleStart(c tele.Context) error {
	ctx := telegram.BuildContext(c)
	sess, err := b.loadSession(ctx, c)
	if err != nil {
		return err
	}
	b.track(ctx, sess.UserID, analytics.KindStart, nil)
	_ = b.saveSession(ctx, sess)

	if sess.HasWallet() {
		return b.sendMainMenu(c, "Welcome back! What would you like to do?")
	}
	return b.sendCommunityGate(c)
}

// sendCommunityGate asks the user to join the community group before
// onboarding continues.
func (b *Bot) sendCommunityGate(c tele.Context) error {
	text := fmt.Sprintf(
		"*Welcome to Magnify Cash!* 🪄\n\n"+
			"Get instant micro-loans right here in Telegram.\n\n"+
			"First, join our community to continue:\n%s",
		b.cfg.Community.InviteLink,
	)
	markup := telegram.InlineColumn(
		telegram.URLBtn("👥 Join the community", b.cfg.Community.InviteLink),
		telegram.InlineBtn{Text: "✅ I've joined", Unique: "check_membership"},
	)
	return telegram.SendMD(c, text, markup)
}

// cbCheckMembership verifies community membership and moves the user on to
// wallet creation.
func (b *Bot) cbCheckMembership(c tele.Context) error {
	ctx := telegram.BuildContext(c)
	if !b.isCommunityMember(c) {
		logger.Info(ctx, "app", "membership.rejected",
			slog.Int64("user_id", c.Sender().ID),
		)
		return telegram.SendMD(c,
			"Hmm, I can't see you in the community yet. Join and tap the button again.",
			telegram.InlineColumn(
				telegram.URLBtn("👥 Join the community", b.cfg.Community.InviteLink),
				telegram.InlineBtn{Text: "✅ I've joined", Unique: "check_membership"},
			))
	}
	return telegram.EditOrSendMD(c,
		"Great, you're in! 🎉\n\nNext step: create your wallet. It takes a few seconds.",
		telegram.InlineColumn(
			telegram.InlineBtn{Text: "🪪 Create wallet", Unique: "wallet"},
		))
}

// isCommunityMember checks membership in the configured community group. In
// development mode there is no group to check, so everyone passes.
func (b *Bot) isCommunityMember(c tele.Context) bool {
	if b.cfg.IsDevelopment() {
		return true
	}
	tb := b.tb.Load()
	if tb == nil {
		return true
	}
	chat, err := tb.ChatByUsername("@" + b.cfg.Community.Username)
	if err != nil {
		logger.Warn(telegram.BuildContext(c), "app", "membership.chat_lookup_failed",
			slog.String("err", err.Error()),
		)
		return true
	}
	member, err := tb.ChatMemberOf(chat, c.Sender())
	if err != nil {
		return false
	}
	switch member.Role {
	case tele.Creator, tele.Administrator, tele.Member:
		return true
	default:
		return false
	}
}

// sendMainMenu shows the top-level actions.
func (b *Bot) sendMainMenu(c tele.Context, text string) error {
	markup := telegram.InlineColumn(
		telegram.InlineBtn{Text: "💰 Get a loan", Unique: "loans"},
		telegram.InlineBtn{Text: "🪪 My wallet", Unique: "wallet"},
		telegram.InlineBtn{Text: "✅ Verify identity", Unique: "verify"},
		telegram.InlineBtn{Text: "❓ Help", Unique: "help"},
	)
	return telegram.EditOrSendMD(c, text, markup)
}

// handleHelp explains the flow.
func (b *Bot) handleHelp(c tele.Context) error {
	text := "*How Magnify Cash works*\n\n" +
		"1️⃣ Create a wallet — /wallet\n" +
		"2️⃣ Verify your identity — /verify\n" +
		"3️⃣ Pick a loan — /loans\n\n" +
		"Repay on time to earn MAG rewards and build your credit. " +
		"Reminders can be set after you take a loan."
	return telegram.EditOrSendMD(c, text, telegram.InlineColumn(
		telegram.InlineBtn{Text: "💰 Get a loan", Unique: "loans"},
	))
}

// cbCancel returns to the main menu from any inline flow.
func (b *Bot) cbCancel(c tele.Context) error {
	return b.sendMainMenu(c, "No problem. What would you like to do?")
}
