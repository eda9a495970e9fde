package bot

import (
	"fmt"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/Tytandoteth/magbot-test-mode/internal/analytics"
	"github.com/Tytandoteth/magbot-test-mode/internal/logger"
	"github.com/Tytandoteth/magbot-test-mode/internal/telegram"
)

// handleWallet shows the existing wallet or provisions a new one.
func (b *Bot) handleWallet(c tele.Context) error {
	ctx := telegram.BuildContext(c)
	sess, err := b.loadSession(ctx, c)
	if err != nil {
		return err
	}

	if sess.HasWallet() {
		balance, err := b.provisioner.Balance(ctx, sess.WalletAddress)
		if err != nil {
			logger.Warn(ctx, "wallet", "balance.fetch_failed",
				slog.String("wallet", sess.WalletAddress),
				slog.String("err", err.Error()),
			)
			balance = "unavailable"
		}
		text := fmt.Sprintf(
			"*Your wallet*\n\nAddress:\n`%s`\n\nBalance: %s",
			sess.WalletAddress, balance,
		)
		return telegram.EditOrSendMD(c, text, telegram.InlineColumn(
			telegram.InlineBtn{Text: "💰 Get a loan", Unique: "loans"},
			telegram.InlineBtn{Text: "⬅️ Back", Unique: "cancel"},
		))
	}

	return telegram.WithLoading(c, "🪄 Creating your wallet…", loadingPace, func() (string, *tele.ReplyMarkup, error) {
		creds, err := b.provisioner.Create(ctx)
		if err != nil {
			logger.Error(ctx, "wallet", "wallet.create_failed",
				slog.Int64("user_id", sess.UserID),
				slog.String("err", err.Error()),
			)
			return "", nil, err
		}

		sess.WalletAddress = creds.Address
		if err := b.saveSession(ctx, sess); err != nil {
			return "", nil, err
		}
		b.track(ctx, sess.UserID, analytics.KindWalletCreated, map[string]any{
			"wallet": creds.Address,
		})

		// Credentials go out in a separate self-destructing message; only
		// the address survives in chat history.
		secret := fmt.Sprintf(
			"🔐 *Save these now — this message self-destructs in 60 seconds.*\n\n"+
				"Private key:\n`%s`\n\nRecovery phrase:\n`%s`",
			creds.PrivateKey, creds.Mnemonic,
		)
		if err := telegram.SendSelfDestruct(c, secret, credentialsTTL, telegram.InlineColumn(
			telegram.InlineBtn{Text: "✅ I've saved them", Unique: "credentials_saved"},
		)); err != nil {
			logger.Error(ctx, "wallet", "credentials.send_failed",
				slog.String("err", err.Error()),
			)
		}

		text := fmt.Sprintf(
			"✨ *Wallet created!*\n\nAddress:\n`%s`\n\n"+
				"Your private key and recovery phrase were sent separately. Save them before they disappear.",
			creds.Address,
		)
		return text, nil, nil
	})
}

// cbCredentialsSaved acknowledges the user stored their secrets and points
// them at verification.
func (b *Bot) cbCredentialsSaved(c tele.Context) error {
	_ = c.Delete()
	return telegram.SendMD(c,
		"Good. Next, verify your identity to unlock loans.",
		telegram.InlineColumn(
			telegram.InlineBtn{Text: "✅ Verify identity", Unique: "verify"},
		))
}
