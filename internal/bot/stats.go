package bot

import (
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/Tytandoteth/magbot-test-mode/internal/telegram"
)

// handleStats shows aggregate usage numbers. Admin-only, enforced by
// transport middleware.
func (b *Bot) handleStats(c tele.Context) error {
	ctx := telegram.BuildContext(c)
	summary, err := b.recorder.Aggregate(ctx)
	if err != nil {
		return telegram.SendMD(c, "Stats are unavailable right now.")
	}
	text := fmt.Sprintf(
		"*Bot stats*\n\n"+
			"Users: %d\n"+
			"Wallets created: %d\n"+
			"Verified: %d\n"+
			"Loans issued: %d\n"+
			"Loans repaid: %d\n"+
			"Loans defaulted: %d\n"+
			"Average loan: $%.2f",
		summary.TotalUsers,
		summary.WalletsCreated,
		summary.Verified,
		summary.LoansIssued,
		summary.LoansRepaid,
		summary.LoansDefaulted,
		summary.AvgLoanUSD,
	)
	return telegram.SendMD(c, text)
}
