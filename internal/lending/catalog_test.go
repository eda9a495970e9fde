package lending

import (
	"errors"
	"testing"
)

func TestCatalogOffers(t *testing.T) {
	catalog := NewCatalog()
	offers := catalog.Offers()
	if len(offers) != 3 {
		t.Fatalf("got %d offers, want 3", len(offers))
	}
	wantAPR := map[int]int64{5: 1500, 10: 1250, 15: 1000}
	for _, o := range offers {
		if o.APRBasisPoints != wantAPR[o.AmountUSD] {
			t.Fatalf("$%d: apr %d, want %d", o.AmountUSD, o.APRBasisPoints, wantAPR[o.AmountUSD])
		}
		if len(o.DurationsDays) != 5 {
			t.Fatalf("$%d: %d durations, want 5", o.AmountUSD, len(o.DurationsDays))
		}
	}
}

func TestAPRPercentDisplay(t *testing.T) {
	catalog := NewCatalog()
	want := map[int]string{5: "15.0", 10: "12.5", 15: "10.0"}
	for amount, percent := range want {
		offer, ok := catalog.Find(amount)
		if !ok {
			t.Fatalf("offer $%d missing", amount)
		}
		if got := offer.APRPercent(); got != percent {
			t.Fatalf("$%d APRPercent = %s, want %s", amount, got, percent)
		}
	}
}

func TestSelectionTokenRoundTrip(t *testing.T) {
	catalog := NewCatalog()
	for _, offer := range catalog.Offers() {
		token := catalog.EncodeSelection(offer.AmountUSD)
		amount, err := catalog.DecodeSelection(token)
		if err != nil {
			t.Fatalf("decode %q: %v", token, err)
		}
		if amount != offer.AmountUSD {
			t.Fatalf("round trip %q → %d, want %d", token, amount, offer.AmountUSD)
		}
	}
}

func TestConfirmationTokenRoundTrip(t *testing.T) {
	catalog := NewCatalog()
	token := catalog.EncodeConfirmation(10, 14)
	amount, days, err := catalog.DecodeConfirmation(token)
	if err != nil {
		t.Fatalf("decode %q: %v", token, err)
	}
	if amount != 10 || days != 14 {
		t.Fatalf("round trip %q → (%d, %d), want (10, 14)", token, amount, days)
	}
}

func TestDecodeSelectionErrors(t *testing.T) {
	catalog := NewCatalog()
	if _, err := catalog.DecodeSelection("garbage"); !errors.Is(err, ErrBadToken) {
		t.Fatalf("garbage token: got %v, want ErrBadToken", err)
	}
	if _, err := catalog.DecodeSelection("loan_select|abc"); !errors.Is(err, ErrBadToken) {
		t.Fatalf("non-numeric amount: got %v, want ErrBadToken", err)
	}
	if _, err := catalog.DecodeSelection("loan_select|7"); !errors.Is(err, ErrUnknownOffer) {
		t.Fatalf("unknown amount: got %v, want ErrUnknownOffer", err)
	}
}

func TestDecodeConfirmationErrors(t *testing.T) {
	catalog := NewCatalog()
	if _, _, err := catalog.DecodeConfirmation("loan_confirm|10"); !errors.Is(err, ErrBadToken) {
		t.Fatalf("missing days: got %v, want ErrBadToken", err)
	}
	if _, _, err := catalog.DecodeConfirmation("loan_confirm|99|14"); !errors.Is(err, ErrUnknownOffer) {
		t.Fatalf("unknown amount: got %v, want ErrUnknownOffer", err)
	}
	if _, _, err := catalog.DecodeConfirmation("loan_confirm|10|13"); !errors.Is(err, ErrUnknownDuration) {
		t.Fatalf("unknown duration: got %v, want ErrUnknownDuration", err)
	}
}
