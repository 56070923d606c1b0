package payment

import "fmt"

// ErrorKind classifies gateway failures. Card kinds are permanent for the
// presented payment details; infrastructure kinds are transient and worth
// retrying as-is.
type ErrorKind string

const (
	KindCardDeclined       ErrorKind = "card_declined"
	KindCardExpired        ErrorKind = "card_expired"
	KindInsufficientFunds  ErrorKind = "insufficient_funds"
	KindInvalidDetails     ErrorKind = "invalid_details"
	KindAuthenticationReqd ErrorKind = "authentication_required"
	KindAPIError           ErrorKind = "api_error"
	KindNetwork            ErrorKind = "network_error"
	KindRateLimited        ErrorKind = "rate_limited"
)

type GatewayError struct {
	Kind    ErrorKind
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway: %s: %s", e.Kind, e.Message)
}

// Transient reports whether the failure is on the gateway's side rather than
// the card's, so the same payment details can simply be retried.
func (e *GatewayError) Transient() bool {
	switch e.Kind {
	case KindAPIError, KindNetwork, KindRateLimited:
		return true
	}
	return false
}

// Suggestion maps the classification to an actionable message for the
// customer.
func (e *GatewayError) Suggestion() string {
	switch e.Kind {
	case KindCardDeclined:
		return "Your card was declined. Try a different payment method."
	case KindCardExpired:
		return "Your card has expired. Use a different card."
	case KindInsufficientFunds:
		return "Your card has insufficient funds. Try a different payment method."
	case KindInvalidDetails:
		return "Check your card details and try again."
	case KindAuthenticationReqd:
		return "Your bank requires additional authentication. Follow the prompts and try again."
	case KindRateLimited:
		return "Too many attempts. Wait a moment and try again."
	default:
		return "A temporary problem occurred. Please try again."
	}
}

// classifyCode maps a gateway decline/error code onto an ErrorKind. Unknown
// codes are treated as an API error so they stay retryable.
func classifyCode(code string) ErrorKind {
	switch code {
	case "card_declined", "generic_decline", "do_not_honor":
		return KindCardDeclined
	case "expired_card":
		return KindCardExpired
	case "insufficient_funds":
		return KindInsufficientFunds
	case "incorrect_number", "incorrect_cvc", "invalid_expiry_month", "invalid_expiry_year", "invalid_number":
		return KindInvalidDetails
	case "authentication_required":
		return KindAuthenticationReqd
	case "rate_limit":
		return KindRateLimited
	default:
		return KindAPIError
	}
}
