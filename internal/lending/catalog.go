package lending

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Callback token keys. The transport returns these tokens verbatim when an
// inline button is pressed; encoding must stay reversible.
const (
	SelectKey  = "loan_select"
	ConfirmKey = "loan_confirm"

	tokenSep = "|"
)

// Offer is a static catalog entry: a fixed amount, its APR, and the duration
// choices presented to the user.
type Offer struct {
	AmountUSD      int
	APRBasisPoints int64
	DurationsDays  []int
}

// APRPercent renders the APR for display, e.g. "12.5".
func (o Offer) APRPercent() string {
	return decimal.New(o.APRBasisPoints, -2).StringFixed(1)
}

// AllowsDuration reports whether days is one of the offer's duration choices.
func (o Offer) AllowsDuration(days int) bool {
	for _, d := range o.DurationsDays {
		if d == days {
			return true
		}
	}
	return false
}

// Catalog is the fixed table of offered loans. Immutable after construction
// and safe for concurrent use.
type Catalog struct {
	offers []Offer
}

// NewCatalog returns the production catalog: $5 at 15.0%, $10 at 12.5% and
// $15 at 10.0% APR, each with 7/14/30/45/60 day terms.
func NewCatalog() *Catalog {
	durations := []int{7, 14, 30, 45, 60}
	return &Catalog{offers: []Offer{
		{AmountUSD: 5, APRBasisPoints: 1500, DurationsDays: durations},
		{AmountUSD: 10, APRBasisPoints: 1250, DurationsDays: durations},
		{AmountUSD: 15, APRBasisPoints: 1000, DurationsDays: durations},
	}}
}

// Offers returns the ordered offer list.
func (c *Catalog) Offers() []Offer {
	return c.offers
}

// Find resolves an offer by amount.
func (c *Catalog) Find(amountUSD int) (Offer, bool) {
	for _, o := range c.offers {
		if o.AmountUSD == amountUSD {
			return o, true
		}
	}
	return Offer{}, false
}

// EncodeSelection builds the callback token for an amount button.
func (c *Catalog) EncodeSelection(amountUSD int) string {
	return SelectKey + tokenSep + strconv.Itoa(amountUSD)
}

// DecodeSelection parses a selection token back into a catalog amount.
// A malformed token yields ErrBadToken; an amount missing from the catalog
// yields ErrUnknownOffer. Both are user-recoverable.
func (c *Catalog) DecodeSelection(token string) (int, error) {
	payload, ok := strings.CutPrefix(token, SelectKey+tokenSep)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrBadToken, token)
	}
	amount, err := strconv.Atoi(payload)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadToken, token)
	}
	if _, found := c.Find(amount); !found {
		return 0, fmt.Errorf("%w: amount %d", ErrUnknownOffer, amount)
	}
	return amount, nil
}

// EncodeConfirmation builds the callback token for a duration button.
func (c *Catalog) EncodeConfirmation(amountUSD, durationDays int) string {
	return ConfirmKey + tokenSep + strconv.Itoa(amountUSD) + tokenSep + strconv.Itoa(durationDays)
}

// DecodeConfirmation parses a confirmation token into amount and duration.
func (c *Catalog) DecodeConfirmation(token string) (int, int, error) {
	payload, ok := strings.CutPrefix(token, ConfirmKey+tokenSep)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadToken, token)
	}
	parts := strings.Split(payload, tokenSep)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadToken, token)
	}
	amount, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadToken, token)
	}
	days, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadToken, token)
	}
	offer, found := c.Find(amount)
	if !found {
		return 0, 0, fmt.Errorf("%w: amount %d", ErrUnknownOffer, amount)
	}
	if !offer.AllowsDuration(days) {
		return 0, 0, fmt.Errorf("%w: %d days", ErrUnknownDuration, days)
	}
	return amount, days, nil
}
