package lending

import "errors"

var (
	// ErrUnknownOffer signals an amount that does not resolve in the catalog,
	// usually a stale or tampered callback token. User-recoverable.
	ErrUnknownOffer = errors.New("lending: unknown offer")
	// ErrUnknownDuration signals a duration outside the offer's allowed set.
	ErrUnknownDuration = errors.New("lending: duration not offered")
	// ErrBadToken signals a selection token that failed to parse.
	ErrBadToken = errors.New("lending: malformed selection token")
	// ErrLoanActive rejects a new loan while one is still active.
	ErrLoanActive = errors.New("lending: loan already active")
)
