package domain

// Step is the customer-facing phase of a checkout session.
type Step string

const (
	StepShippingInfo Step = "shipping_info"
	StepPayment      Step = "payment"
)

type CheckoutStatus string

const (
	CheckoutStatusOpen              CheckoutStatus = "OPEN"
	CheckoutStatusPaymentPending    CheckoutStatus = "PAYMENT_PENDING"
	CheckoutStatusPaymentProcessing CheckoutStatus = "PAYMENT_PROCESSING"
	CheckoutStatusRequiresAction    CheckoutStatus = "REQUIRES_ACTION"
	CheckoutStatusCompleted         CheckoutStatus = "COMPLETED"
	CheckoutStatusFailed            CheckoutStatus = "FAILED"
	CheckoutStatusCancelled         CheckoutStatus = "CANCELLED"
)

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusCompleted || s == CheckoutStatusFailed || s == CheckoutStatusCancelled
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

var allowedTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusOpen: {
		CheckoutStatusPaymentPending,
		CheckoutStatusCancelled,
	},
	CheckoutStatusPaymentPending: {
		CheckoutStatusPaymentPending, // retry after a decline
		CheckoutStatusPaymentProcessing,
		CheckoutStatusRequiresAction,
		CheckoutStatusCompleted,
		CheckoutStatusFailed,
		CheckoutStatusCancelled,
	},
	CheckoutStatusPaymentProcessing: {
		CheckoutStatusPaymentPending,
		CheckoutStatusCompleted,
		CheckoutStatusFailed,
		CheckoutStatusCancelled,
	},
	CheckoutStatusRequiresAction: {
		CheckoutStatusPaymentPending,
		CheckoutStatusPaymentProcessing,
		CheckoutStatusCompleted,
		CheckoutStatusFailed,
		CheckoutStatusCancelled,
	},
}

// CanTransitionTo reports whether a checkout session in status from may move
// to status to. Terminal statuses have no outgoing transitions.
func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
