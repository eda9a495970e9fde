package lending

import "github.com/shopspring/decimal"

// HoursPerYear is the proration base for simple interest.
const HoursPerYear = 365 * 24

// magRewardRate is the flat reward paid in MAG tokens on repayment: 1.5% of
// principal, independent of APR and duration.
var magRewardRate = decimal.New(15, -3)

// RepaymentAmount computes principal * (1 + aprBps/10000 * durationHours/8760).
// Simple non-compounding interest, prorated linearly over a 365-day year.
// Pure: no external state, same inputs always yield the same output.
func RepaymentAmount(principal decimal.Decimal, aprBasisPoints, durationHours int64) decimal.Decimal {
	interest := decimal.NewFromInt(aprBasisPoints).
		Mul(decimal.NewFromInt(durationHours)).
		Div(decimal.NewFromInt(10000 * HoursPerYear))
	return principal.Mul(decimal.NewFromInt(1).Add(interest))
}

// MagReward computes the flat 1.5% MAG token reward for a principal.
func MagReward(principal decimal.Decimal) decimal.Decimal {
	return principal.Mul(magRewardRate)
}

// FormatUSD renders a money amount with 2 decimal places.
func FormatUSD(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatMag renders a MAG token amount with 3 decimal places.
func FormatMag(d decimal.Decimal) string {
	return d.StringFixed(3)
}
