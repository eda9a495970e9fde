package bot

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/Tytandoteth/magbot-test-mode/internal/analytics"
	"github.com/Tytandoteth/magbot-test-mode/internal/logger"
	"github.com/Tytandoteth/magbot-test-mode/internal/telegram"
)

// handleVerify shows verification options or short-circuits when done.
func (b *Bot) handleVerify(c tele.Context) error {
	ctx := telegram.BuildContext(c)
	sess, err := b.loadSession(ctx, c)
	if err != nil {
		return err
	}

	if !sess.HasWallet() {
		return telegram.EditOrSendMD(c,
			"You need a wallet first. Create one and come back.",
			telegram.InlineColumn(
				telegram.InlineBtn{Text: "🪪 Create wallet", Unique: "wallet"},
			))
	}
	if sess.Verified {
		return telegram.EditOrSendMD(c,
			"✅ You're already verified. Ready for a loan?",
			telegram.InlineColumn(
				telegram.InlineBtn{Text: "💰 Get a loan", Unique: "loans"},
			))
	}

	return telegram.EditOrSendMD(c,
		"*Verify your identity*\n\nPick a provider:",
		telegram.InlineColumn(
			telegram.InlineBtn{Text: "🌍 World ID", Unique: "verify_worldid"},
			telegram.InlineBtn{Text: "🅱️ Coinbase (soon)", Unique: "verify_coinbase_soon"},
			telegram.InlineBtn{Text: "🏛 Civic (soon)", Unique: "verify_civic_soon"},
			telegram.InlineBtn{Text: "⬅️ Back", Unique: "cancel"},
		))
}

// cbVerifyWorldID runs the verification flow with the wired provider.
func (b *Bot) cbVerifyWorldID(c tele.Context) error {
	ctx := telegram.BuildContext(c)
	sess, err := b.loadSession(ctx, c)
	if err != nil {
		return err
	}
	if !sess.HasWallet() {
		return b.handleVerify(c)
	}
	if sess.Verified {
		return b.handleVerify(c)
	}

	b.track(ctx, sess.UserID, analytics.KindVerificationStarted, map[string]any{
		"provider": "worldid",
	})

	return telegram.WithLoading(c, "🔎 Verifying your identity…", loadingPace, func() (string, *tele.ReplyMarkup, error) {
		res, err := b.verifier.Verify(ctx, sess.UserID, sess.WalletAddress)
		if err != nil {
			logger.Error(ctx, "identity", "verify.failed",
				slog.Int64("user_id", sess.UserID),
				slog.String("err", err.Error()),
			)
			return "", nil, err
		}

		sess.Verified = true
		if err := b.saveSession(ctx, sess); err != nil {
			return "", nil, err
		}
		b.track(ctx, sess.UserID, analytics.KindVerificationCompleted, map[string]any{
			"provider":   res.Provider,
			"sbt_minted": res.SBTMinted,
		})
		logger.Info(ctx, "identity", "verify.completed",
			slog.Int64("user_id", sess.UserID),
			slog.String("provider", res.Provider),
			slog.Bool("sbt_minted", res.SBTMinted),
		)

		markup := telegram.InlineColumn(
			telegram.InlineBtn{Text: "💰 Get a loan", Unique: "loans"},
		)
		return "✅ *Verified!*\n\nYou now have full access to micro-loans.", markup, nil
	})
}

// cbVerifySoon covers providers that are not yet wired.
func (b *Bot) cbVerifySoon(c tele.Context) error {
	return telegram.EditOrSendMD(c,
		"That provider is coming soon. World ID works today.",
		telegram.InlineColumn(
			telegram.InlineBtn{Text: "🌍 World ID", Unique: "verify_worldid"},
			telegram.InlineBtn{Text: "⬅️ Back", Unique: "verify"},
		))
}
