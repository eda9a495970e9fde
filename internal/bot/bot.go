// Package bot implements the user-facing command and callback handlers and
// wires them into the transport registry.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/Tytandoteth/magbot-test-mode/internal/analytics"
	"github.com/Tytandoteth/magbot-test-mode/internal/config"
	"github.com/Tytandoteth/magbot-test-mode/internal/identity"
	"github.com/Tytandoteth/magbot-test-mode/internal/lending"
	"github.com/Tytandoteth/magbot-test-mode/internal/logger"
	"github.com/Tytandoteth/magbot-test-mode/internal/session"
	"github.com/Tytandoteth/magbot-test-mode/internal/telegram"
	"github.com/Tytandoteth/magbot-test-mode/internal/wallet"
)

// loadingPace is the minimum time the cosmetic loading message stays
// on-screen before being replaced.
const loadingPace = time.Second

// credentialsTTL is how long wallet credentials stay visible before the
// message self-destructs.
const credentialsTTL = 60 * time.Second

// Session writes for an already-issued loan are retried before the failure
// marker is recorded.
const (
	persistAttempts = 3
	persistBackoff  = 50 * time.Millisecond
)

var errNoSender = errors.New("bot: update has no sender")

// Bot holds the handler dependencies. Collaborators are selected once at
// startup; handlers never branch on run mode.
type Bot struct {
	cfg         *config.Config
	store       session.Store
	catalog     *lending.Catalog
	lifecycle   *lending.Lifecycle
	provisioner wallet.Provisioner
	verifier    identity.Verifier
	recorder    analytics.Recorder

	tb atomic.Pointer[tele.Bot]
}

// Deps bundles the collaborators for New.
type Deps struct {
	Config      *config.Config
	Store       session.Store
	Catalog     *lending.Catalog
	Lifecycle   *lending.Lifecycle
	Provisioner wallet.Provisioner
	Verifier    identity.Verifier
	Recorder    analytics.Recorder
}

// New builds the handler set.
func New(deps Deps) *Bot {
	return &Bot{
		cfg:         deps.Config,
		store:       deps.Store,
		catalog:     deps.Catalog,
		lifecycle:   deps.Lifecycle,
		provisioner: deps.Provisioner,
		verifier:    deps.Verifier,
		recorder:    deps.Recorder,
	}
}

// AttachTelebot gives the bot its transport handle, needed for outbound
// messages that are not replies to an update (watcher notices).
func (b *Bot) AttachTelebot(tb *tele.Bot) {
	b.tb.Store(tb)
}

// Register wires every command and callback into the registry.
func (b *Bot) Register(reg *telegram.Registry) {
	reg.RegisterCommand("/start", telegram.Command{Handler: b.handleStart, Description: "Start and onboarding"})
	reg.RegisterCommand("/wallet", telegram.Command{Handler: b.handleWallet, Description: "Your wallet"})
	reg.RegisterCommand("/verify", telegram.Command{Handler: b.handleVerify, Description: "Verify your identity"})
	reg.RegisterCommand("/loans", telegram.Command{Handler: b.handleLoans, Description: "Browse micro-loans"})
	reg.RegisterCommand("/help", telegram.Command{Handler: b.handleHelp, Description: "How the bot works"})
	reg.RegisterCommand("/stats", telegram.Command{Handler: b.handleStats, Description: "Usage stats", AdminOnly: true, Hidden: true})

	callbacks := map[string]tele.HandlerFunc{
		"check_membership":     b.cbCheckMembership,
		"credentials_saved":    b.cbCredentialsSaved,
		"wallet":               b.handleWallet,
		"verify":               b.handleVerify,
		"verify_worldid":       b.cbVerifyWorldID,
		"verify_coinbase_soon": b.cbVerifySoon,
		"verify_civic_soon":    b.cbVerifySoon,
		"loans":                b.handleLoans,
		lending.SelectKey:      b.cbLoanSelect,
		lending.ConfirmKey:     b.cbLoanConfirm,
		"view_active_loan":     b.cbViewActiveLoan,
		"repay_loan":           b.cbRepayLoan,
		"repay_card":           b.cbRepayMethodSoon,
		"repay_bank":           b.cbRepayMethodSoon,
		"repay_crypto":         b.cbRepayCrypto,
		"reminder_tg":          b.cbReminderTelegram,
		"reminder_gcal":        b.cbReminderCalendar,
		"cancel":               b.cbCancel,
		"help":                 b.handleHelp,
	}
	for key, h := range callbacks {
		if err := reg.RegisterCallback(key, h); err != nil {
			logger.Warn(logger.Background(), "tg", "register.callback.failed",
				slog.String("key", key),
				slog.String("err", err.Error()),
			)
		}
	}
}

// loadSession fetches the user's session for an update.
func (b *Bot) loadSession(ctx context.Context, c tele.Context) (*session.Session, error) {
	user := c.Sender()
	if user == nil {
		return nil, errNoSender
	}
	sess, err := b.store.Get(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if chat := c.Chat(); chat != nil {
		sess.ChatID = chat.ID
	}
	return sess, nil
}

func (b *Bot) saveSession(ctx context.Context, sess *session.Session) error {
	if err := b.store.Set(ctx, sess); err != nil {
		logger.Error(ctx, "app", "session.save_failed",
			slog.Int64("user_id", sess.UserID),
			slog.String("err", err.Error()),
		)
		return err
	}
	return nil
}

func (b *Bot) track(ctx context.Context, userID int64, kind string, meta map[string]any) {
	if b.recorder != nil {
		b.recorder.Track(ctx, userID, kind, meta)
	}
}
