package emergency

import "errors"

// Observer receives outcome counts for the public endpoints.
// *telemetry.Metrics satisfies it.
type Observer interface {
	EmergencyView(outcome string)
	ShareRedeemed(outcome string)
	ShareIssued()
}

type nopObserver struct{}

func (nopObserver) EmergencyView(string) {}
func (nopObserver) ShareRedeemed(string) {}
func (nopObserver) ShareIssued()         {}

// outcome turns a core error into a low-cardinality metric label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenUsed):
		return "used"
	case errors.Is(err, ErrBadRequest):
		return "bad_request"
	default:
		return "error"
	}
}
