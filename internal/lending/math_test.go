package lending

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRepaymentTenDollarsTwoWeeks(t *testing.T) {
	principal := decimal.NewFromInt(10)
	got := RepaymentAmount(principal, 1250, 14*24)
	if s := FormatUSD(got); s != "10.05" {
		t.Fatalf("repayment = %s, want 10.05", s)
	}
	if s := FormatMag(MagReward(principal)); s != "0.150" {
		t.Fatalf("mag reward = %s, want 0.150", s)
	}
}

func TestRepaymentNeverBelowPrincipal(t *testing.T) {
	catalog := NewCatalog()
	for _, offer := range catalog.Offers() {
		principal := decimal.NewFromInt(int64(offer.AmountUSD))
		for _, days := range offer.DurationsDays {
			got := RepaymentAmount(principal, offer.APRBasisPoints, int64(days)*24)
			if got.LessThan(principal) {
				t.Fatalf("$%d for %dd: repayment %s < principal", offer.AmountUSD, days, got)
			}
		}
	}
}

func TestRepaymentMonotoneInDuration(t *testing.T) {
	catalog := NewCatalog()
	for _, offer := range catalog.Offers() {
		principal := decimal.NewFromInt(int64(offer.AmountUSD))
		prev := decimal.Zero
		for _, days := range offer.DurationsDays {
			got := RepaymentAmount(principal, offer.APRBasisPoints, int64(days)*24)
			if !got.GreaterThan(prev) {
				t.Fatalf("$%d: repayment for %dd (%s) not greater than previous (%s)",
					offer.AmountUSD, days, got, prev)
			}
			prev = got
		}
	}
}

func TestMagRewardExact(t *testing.T) {
	cases := map[int64]string{
		5:  "0.075",
		10: "0.150",
		15: "0.225",
	}
	for amount, want := range cases {
		got := FormatMag(MagReward(decimal.NewFromInt(amount)))
		if got != want {
			t.Fatalf("MagReward($%d) = %s, want %s", amount, got, want)
		}
	}
}

func TestRepaymentDeterministic(t *testing.T) {
	principal := decimal.NewFromInt(15)
	a := RepaymentAmount(principal, 1000, 60*24)
	b := RepaymentAmount(principal, 1000, 60*24)
	if !a.Equal(b) {
		t.Fatalf("same inputs produced %s and %s", a, b)
	}
}
